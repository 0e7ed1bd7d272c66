// package transform
//
// applies the column coercion rules across raw rows, dropping rows that
// fail and reporting why so the orchestrator can count them
package transform

import (
	"fmt"

	"github.com/baderkha/list-migrate/pkg/migrate/schema"
	"github.com/baderkha/list-migrate/pkg/migrate/schema/colmap"
)

// RowError : one rejected row, the column that broke it and the cause
type RowError struct {
	RowIndex int
	Column   string
	Err      error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d column %s : %v", e.RowIndex, e.Column, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// Transformer : holds the per column coercers for one table, built once up
// front so an unsupported type fails the table before any row is processed
type Transformer struct {
	columns  []schema.Column
	destCols []schema.DestinationColumn
	coercers []colmap.Coercer
}

// New : builds the transformer for a table's declared columns, errors out
// with UnsupportedTypeError if any column has no list store mapping
func New(columns []schema.Column) (*Transformer, error) {
	t := &Transformer{
		columns:  columns,
		destCols: make([]schema.DestinationColumn, 0, len(columns)),
		coercers: make([]colmap.Coercer, 0, len(columns)),
	}
	for _, col := range columns {
		dest, coerce, err := colmap.Convert(col)
		if err != nil {
			return nil, fmt.Errorf("column %s : %w", col.Name, err)
		}
		t.destCols = append(t.destCols, dest)
		t.coercers = append(t.coercers, coerce)
	}
	return t, nil
}

// DestinationColumns : the target list declaration derived from the source
// columns, same order
func (t *Transformer) DestinationColumns() []schema.DestinationColumn {
	return t.destCols
}

// Apply : coerces every raw row independently. Rows that fail any column
// are excluded from the output and reported in the returned error list,
// never as a fatal error. Output preserves input order. Raw keys that are
// not declared columns are ignored.
func (t *Transformer) Apply(rows []schema.RawRow) ([]schema.TransformedRow, []*RowError) {
	var (
		out      = make([]schema.TransformedRow, 0, len(rows))
		rejected []*RowError
	)
	for i, raw := range rows {
		row := make(schema.TransformedRow, len(t.columns))
		var rowErr *RowError
		for c, col := range t.columns {
			// absent is treated the same as an explicit null
			coerced, err := t.coercers[c](raw[col.Name])
			if err != nil {
				rowErr = &RowError{RowIndex: i, Column: col.Name, Err: err}
				break
			}
			row[col.Name] = coerced
		}
		if rowErr != nil {
			rejected = append(rejected, rowErr)
			continue
		}
		out = append(out, row)
	}
	return out, rejected
}
