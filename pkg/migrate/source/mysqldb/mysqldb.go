// package mysqldb
//
// information_schema backed source implementation for mysql databases
package mysqldb

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/baderkha/list-migrate/pkg/migrate/config/sourcecfg"
	"github.com/baderkha/list-migrate/pkg/migrate/connection"
	"github.com/baderkha/list-migrate/pkg/migrate/schema"
	"github.com/baderkha/list-migrate/pkg/migrate/source"
)

type Source struct {
	cfg sourcecfg.MYSQL
	db  *sql.DB
}

var _ source.Source = (*Source)(nil)

func New(cfg sourcecfg.MYSQL) *Source {
	return &Source{cfg: cfg}
}

func (s *Source) Connect(ctx context.Context) error {
	db, err := connection.DialMysql(s.cfg.GetDSN(), 2, s.cfg.QueryLogging)
	if err != nil {
		return err
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("MYSQL_SOURCE : Could not reach %s:%d due to : %w", s.cfg.Host, s.cfg.Port, err)
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
	SELECT TABLE_NAME
	FROM information_schema.TABLES
	WHERE TABLE_TYPE = 'BASE TABLE'
		AND TABLE_SCHEMA = ?
	ORDER BY TABLE_NAME`, s.cfg.DB)
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

	res := make([]schema.Table, len(names))
	for i, name := range names {
		var (
			wg   errgroup.Group
			cols []schema.Column
			pks  []string
		)
		i, name := i, name
		wg.Go(func() error {
			var err error
			cols, err = s.tableColumns(ctx, name)
			return err
		})
		wg.Go(func() error {
			var err error
			pks, err = s.primaryKeys(ctx, name)
			return err
		})
		if err := wg.Wait(); err != nil {
			return nil, err
		}
		res[i] = schema.Table{Name: name, Columns: cols, PrimaryKeys: pks}
	}
	return res, nil
}

func (s *Source) tableColumns(ctx context.Context, table string) ([]schema.Column, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, IS_NULLABLE
	FROM information_schema.COLUMNS
	WHERE TABLE_SCHEMA = ? AND TABLE_NAME = ?
	ORDER BY ORDINAL_POSITION`, s.cfg.DB, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cols []schema.Column
	for rows.Next() {
		var colName, dataType, colType, isNullable string
		if err := rows.Scan(&colName, &dataType, &colType, &isNullable); err != nil {
			return nil, err
		}
		cols = append(cols, schema.Column{
			Name:       colName,
			SourceType: TypeFromMysql(dataType, colType),
			Nullable:   strings.EqualFold(isNullable, "YES"),
		})
	}
	return cols, rows.Err()
}

func (s *Source) primaryKeys(ctx context.Context, table string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
	SELECT COLUMN_NAME
	FROM information_schema.STATISTICS
	WHERE TABLE_SCHEMA = ?
		AND TABLE_NAME = ?
		AND lower(INDEX_NAME) = 'primary'
	ORDER BY SEQ_IN_INDEX`, s.cfg.DB, table)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pks []string
	for rows.Next() {
		var col string
		if err := rows.Scan(&col); err != nil {
			return nil, err
		}
		pks = append(pks, col)
	}
	return pks, rows.Err()
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

// WrapQ : quotes an identifier for mysql
func WrapQ(ident string) string {
	return "`" + strings.ReplaceAll(ident, "`", "``") + "`"
}

// TypeFromMysql : maps a mysql data type onto the pipeline's source
// types. tinyint(1) is the mysql idiom for a boolean column.
func TypeFromMysql(dataType string, columnType string) schema.SourceType {
	d := strings.ToUpper(dataType)
	switch d {
	case "TINYINT":
		if strings.HasPrefix(strings.ToLower(columnType), "tinyint(1)") {
			return schema.Boolean
		}
		return schema.Integer
	case "SMALLINT", "MEDIUMINT", "INT", "BIGINT", "YEAR":
		return schema.Integer
	case "BOOLEAN", "BOOL", "BIT":
		return schema.Boolean
	case "DATE", "DATETIME", "TIMESTAMP":
		return schema.Datetime
	case "CHAR", "VARCHAR", "TEXT", "TINYTEXT", "MEDIUMTEXT", "LONGTEXT", "ENUM", "SET":
		return schema.Text
	}
	return schema.SourceType(d)
}
