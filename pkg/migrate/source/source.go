// package source
//
// capability set for anything that can act as the relational side of a
// migration, implementations live in the subpackages
package source

import (
	"context"

	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// Source : reads schemas and rows out of the original data store
type Source interface {
	// Connect : opens the source, fatal to the whole run if it fails
	Connect(ctx context.Context) error
	// Tables : extracts every table schema, in a stable order
	Tables(ctx context.Context) ([]schema.Table, error)
	// Rows : pulls all raw rows for one table
	Rows(ctx context.Context, tableName string) ([]schema.RawRow, error)
	Close() error
}
