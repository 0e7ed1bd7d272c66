// package destination
//
// capability set for the list oriented store rows get migrated into
package destination

import (
	"context"

	"github.com/baderkha/list-migrate/pkg/migrate/schema"
)

// Destination : accepts list declarations and row batches
type Destination interface {
	// Authenticate : proves access to the store, fatal to the whole run
	// if it fails
	Authenticate(ctx context.Context) error
	// CreateList : declares a list with the given columns. Creating a
	// list that already exists is not an error when the implementation
	// is configured to skip existing lists.
	CreateList(ctx context.Context, name string, columns []schema.DestinationColumn) error
	// InsertItems : appends one batch of rows to a list as a single
	// delivery unit
	InsertItems(ctx context.Context, listName string, rows []schema.TransformedRow) error
	Close() error
}
