// package colmap
//
// maps source column types to list store types and produces the value
// coercion rule that goes with each mapping
package colmap

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// Coercer : converts a single raw value into its destination typed form.
// A nil raw value is only legal for nullable columns.
type Coercer func(v any) (any, error)

// UnsupportedTypeError : the source declared a type this pipeline has no
// mapping for, fails the whole table before any row is touched
type UnsupportedTypeError struct {
	SourceType schema.SourceType
}

func (e *UnsupportedTypeError) Error() string {
	return fmt.Sprintf("This col type %s does not have a list store mapping", e.SourceType)
}

// CoercionError : a raw value could not be converted to the target type
type CoercionError struct {
	Value  any
	Target schema.DestinationType
}

func (e *CoercionError) Error() string {
	return fmt.Sprintf("cannot coerce %v (%T) to %s", e.Value, e.Value, e.Target)
}

// NullabilityViolation : a non nullable column got a null or absent value
type NullabilityViolation struct {
	Column string
}

func (e *NullabilityViolation) Error() string {
	return fmt.Sprintf("column %s is not nullable but got a null value", e.Column)
}

var sourceToListMap = map[schema.SourceType]schema.DestinationType{
	schema.Integer:  schema.DestInteger,
	schema.Text:     schema.DestString,
	schema.Boolean:  schema.DestBoolean,
	schema.Datetime: schema.DestTimestamp,
}

// order matters, first layout that parses wins
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Convert : converts a source column to its destination declaration and the
// coercer for its values, if it cannot it will error out with
// UnsupportedTypeError
func Convert(col schema.Column) (schema.DestinationColumn, Coercer, error) {
	target, ok := sourceToListMap[col.SourceType]
	if !ok {
		return schema.DestinationColumn{}, nil, &UnsupportedTypeError{SourceType: col.SourceType}
	}
	return schema.DestinationColumn{
		Name:     col.Name,
		Type:     target,
		Nullable: col.Nullable,
	}, coercerFor(col, target), nil
}

// MustConvert : if the conversion errors out it panics
func MustConvert(col schema.Column) (schema.DestinationColumn, Coercer) {
	dest, coerce, err := Convert(col)
	if err != nil {
		panic(fmt.Errorf("Could not cast column %s : %w", col.Name, err))
	}
	return dest, coerce
}

func coercerFor(col schema.Column, target schema.DestinationType) Coercer {
	return func(v any) (any, error) {
		if v == nil {
			if !col.Nullable {
				return nil, &NullabilityViolation{Column: col.Name}
			}
			return nil, nil
		}
		switch target {
		case schema.DestInteger:
			return coerceInteger(v)
		case schema.DestString:
			return coerceString(v), nil
		case schema.DestBoolean:
			return coerceBoolean(v)
		case schema.DestTimestamp:
			return coerceTimestamp(v)
		}
		return nil, &CoercionError{Value: v, Target: target}
	}
}

func coerceInteger(v any) (any, error) {
	switch n := v.(type) {
	case int:
		return int64(n), nil
	case int8:
		return int64(n), nil
	case int16:
		return int64(n), nil
	case int32:
		return int64(n), nil
	case int64:
		return n, nil
	case uint:
		if uint64(n) > math.MaxInt64 {
			return nil, &CoercionError{Value: v, Target: schema.DestInteger}
		}
		return int64(n), nil
	case uint8:
		return int64(n), nil
	case uint16:
		return int64(n), nil
	case uint32:
		return int64(n), nil
	case uint64:
		if n > math.MaxInt64 {
			return nil, &CoercionError{Value: v, Target: schema.DestInteger}
		}
		return int64(n), nil
	case float32:
		return integralFloat(float64(n))
	case float64:
		return integralFloat(n)
	case string:
		parsed, err := strconv.ParseInt(strings.TrimSpace(n), 10, 64)
		if err != nil {
			return nil, &CoercionError{Value: v, Target: schema.DestInteger}
		}
		return parsed, nil
	}
	return nil, &CoercionError{Value: v, Target: schema.DestInteger}
}

func integralFloat(f float64) (any, error) {
	if f != math.Trunc(f) {
		return nil, &CoercionError{Value: f, Target: schema.DestInteger}
	}
	return int64(f), nil
}

func coerceString(v any) string {
	switch s := v.(type) {
	case string:
		return s
	case time.Time:
		return s.Format(time.RFC3339)
	}
	return fmt.Sprint(v)
}

func coerceBoolean(v any) (any, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		}
	}
	return nil, &CoercionError{Value: v, Target: schema.DestBoolean}
}

func coerceTimestamp(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, strings.TrimSpace(t)); err == nil {
				return parsed, nil
			}
		}
	}
	return nil, &CoercionError{Value: v, Target: schema.DestTimestamp}
}
