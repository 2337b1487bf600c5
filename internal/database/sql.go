package database

import (
	"context"
	"database/sql"
	"errors"
)

// SQLSession adapts a database/sql connection to Session. It checks out a
// single *sql.Conn so every statement of the session runs on the same
// server-side connection.
type SQLSession struct {
	db   *sql.DB
	conn *sql.Conn
}

// NewSQLSession checks a connection out of db and takes ownership of both.
// On failure db is closed and the driver error is returned unchanged for
// the caller to map.
func NewSQLSession(ctx context.Context, db *sql.DB) (*SQLSession, error) {
	conn, err := db.Conn(ctx)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	return &SQLSession{db: db, conn: conn}, nil
}

// Conn returns the checked-out connection, for session setup statements.
func (s *SQLSession) Conn() *sql.Conn {
	return s.conn
}

func (s *SQLSession) Cursor(_ context.Context) (Cursor, error) {
	return &sqlCursor{conn: s.conn}, nil
}

// Close returns the connection and closes the pool behind it.
func (s *SQLSession) Close() error {
	return errors.Join(s.conn.Close(), s.db.Close())
}

// --- sqlCursor wraps *sql.Rows ---

type sqlCursor struct {
	conn *sql.Conn
	rows *sql.Rows
	cols int
}

func (c *sqlCursor) Execute(ctx context.Context, stmt string, args ...any) error {
	rows, err := c.conn.QueryContext(ctx, stmt, args...)
	if err != nil {
		return err
	}
	c.rows = rows
	return nil
}

func (c *sqlCursor) Columns() ([]ColumnDesc, error) {
	if c.rows == nil {
		return nil, nil
	}
	types, err := c.rows.ColumnTypes()
	if err != nil {
		return nil, err
	}
	desc := make([]ColumnDesc, len(types))
	for i, t := range types {
		desc[i] = ColumnDesc{Name: t.Name(), Type: t.DatabaseTypeName()}
	}
	c.cols = len(desc)
	return desc, nil
}

func (c *sqlCursor) Next(_ context.Context) bool {
	return c.rows != nil && c.rows.Next()
}

// Values scans the current row. Text the driver hands back as []byte is
// converted to string so results serialize as text rather than base64.
func (c *sqlCursor) Values() ([]any, error) {
	dest := make([]any, c.cols)
	ptrs := make([]any, c.cols)
	for i := range dest {
		ptrs[i] = &dest[i]
	}
	if err := c.rows.Scan(ptrs...); err != nil {
		return nil, err
	}
	for i, v := range dest {
		if b, ok := v.([]byte); ok {
			dest[i] = string(b)
		}
	}
	return dest, nil
}

func (c *sqlCursor) Err() error {
	if c.rows == nil {
		return nil
	}
	return c.rows.Err()
}

// Cancel has no server-side primitive in database/sql; closing the rows is
// the fallback, and cancelling the statement's context aborts the query in
// drivers that watch it.
func (c *sqlCursor) Cancel() error {
	if c.rows != nil {
		_ = c.rows.Close()
	}
	return ErrCancelUnsupported
}

func (c *sqlCursor) Close() error {
	if c.rows == nil {
		return nil
	}
	return c.rows.Close()
}
