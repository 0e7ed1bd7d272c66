package migrate

import "context"

// Runner : runs a migration between a source and a list destination
type Runner interface {
	Run(ctx context.Context) (*Result, error)
}
