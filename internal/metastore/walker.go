// Package metastore discovers table and column definitions by querying the
// relational database behind a Hive metastore directly, instead of going
// through the query engine.
package metastore

import (
	"context"
	"fmt"

	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/logger"
	"github.com/koustreak/hiverunner/internal/result"
)

// MsgSchemaFailed is reported for every discovery failure.
const MsgSchemaFailed = "Failed getting schema."

// OpenFunc opens a fresh session on the metastore database.
type OpenFunc func(ctx context.Context) (database.Session, error)

// Walker enumerates tables and columns of one database from the catalog
// tables DBS, TBLS, SDS, COLUMNS_V2 and PARTITION_KEYS.
//
// Each catalog query runs on its own session, opened through Open and
// closed by the executor; queries run one after another.
type Walker struct {
	Open    OpenFunc
	Dialect Dialect
}

// Discover returns the schema of dbName keyed by table name. Any failure
// aborts the whole walk: the result is either complete or nil.
func (w *Walker) Discover(ctx context.Context, dbName string) (map[string]*Entry, error) {
	log := logger.FromContext(ctx)

	tables, err := w.tableNames(ctx, dbName)
	if err != nil {
		log.ErrorWith("metastore table listing failed", err, map[string]interface{}{"database": dbName})
		return nil, errs.Wrap(errs.ErrKindSchemaFailed, MsgSchemaFailed, err)
	}

	b := NewBuilder()
	for _, table := range tables {
		res, err := w.query(ctx, w.Dialect.ColumnsQuery, w.Dialect.ColumnArgs(dbName, table)...)
		if err != nil {
			log.ErrorWith("metastore column listing failed", err, map[string]interface{}{
				"database": dbName,
				"table":    table,
			})
			return nil, errs.Wrap(errs.ErrKindSchemaFailed, MsgSchemaFailed, err)
		}
		for _, row := range res.Rows {
			b.Add(table, Column{
				Name:    field(res, row, 0),
				Type:    field(res, row, 1),
				Comment: field(res, row, 2),
			})
		}
	}

	log.Debugf("discovered %d tables in %s", len(b.Schema()), dbName)
	return b.Schema(), nil
}

// Tables is Discover with the entries ordered by table name.
func (w *Walker) Tables(ctx context.Context, dbName string) ([]*Entry, error) {
	schema, err := w.Discover(ctx, dbName)
	if err != nil {
		return nil, err
	}
	return Sorted(schema), nil
}

func (w *Walker) tableNames(ctx context.Context, dbName string) ([]string, error) {
	res, err := w.query(ctx, w.Dialect.TablesQuery, dbName)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(res.Rows))
	for _, row := range res.Rows {
		names = append(names, field(res, row, 0))
	}
	return names, nil
}

func (w *Walker) query(ctx context.Context, stmt string, args ...any) (*result.Result, error) {
	sess, err := w.Open(ctx)
	if err != nil {
		return nil, err
	}
	return database.Execute(ctx, sess, stmt, database.ExecOptions{
		Args:     args,
		Classify: w.Dialect.Classify,
	})
}

// field reads column i of row as text. NULL reads as "".
func field(res *result.Result, row result.Row, i int) string {
	if i >= len(res.Columns) {
		return ""
	}
	switch v := row[res.Columns[i].Name].(type) {
	case nil:
		return ""
	case string:
		return v
	case []byte:
		return string(v)
	default:
		return fmt.Sprint(v)
	}
}
