// package batch
//
// splits transformed rows into fixed size chunks that get delivered to the
// list store as one unit each
package batch

import (
	"fmt"

	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// Chunk : deterministic partition of rows into batches of at most size
// rows, order preserved with no overlap and no gaps. Zero rows yields
// zero batches.
func Chunk(rows []schema.TransformedRow, size int) ([][]schema.TransformedRow, error) {
	if size < 1 {
		return nil, fmt.Errorf("batch size must be >= 1 got %d", size)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	batches := make([][]schema.TransformedRow, 0, (len(rows)+size-1)/size)
	for start := 0; start < len(rows); start += size {
		end := start + size
		if end > len(rows) {
			end = len(rows)
		}
		batches = append(batches, rows[start:end])
	}
	return batches, nil
}
