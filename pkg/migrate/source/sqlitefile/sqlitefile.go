// package sqlitefile
//
// reads schemas and rows out of a sqlite database file, the file backed
// relational source this pipeline was built for
package sqlitefile

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/baderkha/list-migrate/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/list-migrate/pkg/migrate/connection"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
	"github.com/baderkha/list-migrate/pkg/migrate/source"
)

type Source struct {
	cfg sourcecfg.SQLite
	db  *sql.DB
}

var _ source.Source = (*Source)(nil)

func New(cfg sourcecfg.SQLite) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Connect(ctx context.Context) error {
	db, err := connection.DialSqlite(s.cfg.GetDSN(), s.cfg.QueryLogging)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("SQLITE_SOURCE : Could not open %s due to : %w", s.cfg.FilePath, err)
	}
	s.db = db
	return nil
}

func (s *Source) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Source) Tables(ctx context.Context) ([]schema.Table, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT name
	FROM sqlite_master
	WHERE type = 'table'
		AND name NOT LIKE 'sqlite_%'
	ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		if s.wantTable(name) {
			names = append(names, name)
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var res []schema.Table
	for _, name := range names {
		tbl, err := s.tableSchema(ctx, name)
		if err != nil {
			return nil, err
		}
		res = append(res, tbl)
	}
	return res, nil
}

func (s *Source) tableSchema(ctx context.Context, name string) (schema.Table, error) {
	tbl := schema.Table{Name: name}
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, WrapQ(name)))
	if err != nil {
		return tbl, err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			cid      int
			colName  string
			declType string
			notNull  int
			dflt     sql.NullString
			pk       int
		)
		if err := rows.Scan(&cid, &colName, &declType, &notNull, &dflt, &pk); err != nil {
			return tbl, err
		}
		tbl.Columns = append(tbl.Columns, schema.Column{
			Name:       colName,
			SourceType: TypeFromDecl(declType),
			Nullable:   notNull == 0 && pk == 0,
		})
		if pk > 0 {
			tbl.PrimaryKeys = append(tbl.PrimaryKeys, colName)
		}
	}
	return tbl, rows.Err()
}

func (s *Source) Rows(ctx context.Context, tableName string) ([]schema.RawRow, error) {
	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(`SELECT * FROM %s`, WrapQ(tableName)))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	cols, err := rows.Columns()
	if err != nil {
		return nil, err
	}
	var res []schema.RawRow
	for rows.Next() {
		scan := make([]any, len(cols))
		for i := range scan {
			var v any
			scan[i] = &v
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, err
		}
		raw := make(schema.RawRow, len(cols))
		for i, col := range cols {
			v := *scan[i].(*any)
			if b, ok := v.([]byte); ok {
				v = string(b)
			}
			raw[col] = v
		}
		res = append(res, raw)
	}
	return res, rows.Err()
}

func (s *Source) wantTable(name string) bool {
	if len(s.cfg.TableList) == 0 {
		return true
	}
	for _, t := range s.cfg.TableList {
		if t == name {
			return true
		}
	}
	return false
}

// WrapQ : quotes an identifier for sqlite
func WrapQ(ident string) string {
	return `"` + strings.ReplaceAll(ident, `"`, `""`) + `"`
}

// TypeFromDecl : maps a sqlite declared column type onto the pipeline's
// source types following sqlite's own affinity rules, unknown declarations
// pass through so the type mapper can reject them per table
func TypeFromDecl(decl string) schema.SourceType {
	d := strings.ToUpper(strings.Split(strings.TrimSpace(decl), "(")[0])
	switch {
	case strings.Contains(d, "BOOL"):
		return schema.Boolean
	case strings.Contains(d, "DATE"), strings.Contains(d, "TIME"):
		return schema.Datetime
	case strings.Contains(d, "INT"):
		return schema.Integer
	case strings.Contains(d, "CHAR"), strings.Contains(d, "CLOB"), strings.Contains(d, "TEXT"):
		return schema.Text
	}
	return schema.SourceType(d)
}
