// package schema
//
// data model shared by the whole pipeline : source table shapes,
// raw rows as they come off the reader and rows after coercion
package schema

import "fmt"

// SourceType : column type as declared by the relational source
type SourceType string

const (
	Integer  SourceType = "INTEGER"
	Text     SourceType = "TEXT"
	Boolean  SourceType = "BOOLEAN"
	Datetime SourceType = "DATETIME"
)

// DestinationType : column type understood by the list store
type DestinationType string

const (
	DestInteger   DestinationType = "integer"
	DestString    DestinationType = "string"
	DestBoolean   DestinationType = "boolean"
	DestTimestamp DestinationType = "timestamp"
)

// Column : a single source column, immutable once extracted
type Column struct {
	Name       string     `json:"name"`
	SourceType SourceType `json:"type"`
	Nullable   bool       `json:"nullable"`
}

// DestinationColumn : a column as it will be declared on the target list
type DestinationColumn struct {
	Name     string          `json:"name"`
	Type     DestinationType `json:"type"`
	Nullable bool            `json:"nullable"`
}

// Table : one source table with its ordered columns and primary key set
type Table struct {
	Name        string   `json:"name"`
	Columns     []Column `json:"columns"`
	PrimaryKeys []string `json:"primary_keys"`
}

// RawRow : untyped values keyed by column name, keys are a subset of the
// owning table's declared columns
type RawRow map[string]any

// TransformedRow : values already coerced to their destination type
type TransformedRow map[string]any

// Validate : checks the primary key invariant, every key column must be
// declared and must be non nullable
func (t *Table) Validate() error {
	byName := make(map[string]*Column, len(t.Columns))
	for i := range t.Columns {
		byName[t.Columns[i].Name] = &t.Columns[i]
	}
	for _, pk := range t.PrimaryKeys {
		col, ok := byName[pk]
		if !ok {
			return fmt.Errorf("table %s : primary key column %s is not declared", t.Name, pk)
		}
		if col.Nullable {
			return fmt.Errorf("table %s : primary key column %s cannot be nullable", t.Name, pk)
		}
	}
	return nil
}

// Column : looks up a declared column by name
func (t *Table) Column(name string) (*Column, bool) {
	for i := range t.Columns {
		if t.Columns[i].Name == name {
			return &t.Columns[i], true
		}
	}
	return nil, false
}
