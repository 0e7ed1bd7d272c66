package connection

import (
	"database/sql"
	"fmt"

	_ "modernc.org/sqlite"
)

// DialSqlite : opens the sqlite database file read only, caller still has
// to ping
func DialSqlite(dsn string, qlog bool) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("SQLITE_SOURCE : Could not open database file due to : %w", err)
	}
	if qlog {
		db = AddLogger(db, dsn, "sqlite")
	}
	// the file is one reader, keep a single connection to it
	db.SetMaxOpenConns(1)
	return db, nil
}
