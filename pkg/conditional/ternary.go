package conditional

// Ternary : returns a if the condition holds otherwise b
func Ternary[T any](cond bool, a T, b T) T {
	if cond {
		return a
	}
	return b
}
