// Package hive opens HiveServer2 sessions, over the native binary thrift
// transport or over HTTP(S), and adapts gohive cursors to database.Cursor.
package hive

import (
	"context"
	"fmt"

	"github.com/beltran/gohive"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
)

const (
	defaultPort     = 10000
	defaultDatabase = "default"

	// authNone is SASL PLAIN with the configured username and no password
	// check: the trusted-network mode.
	authNone = "NONE"
)

// rawCursor is the subset of *gohive.Cursor the session uses. The HTTP
// transport supplies its own implementation.
type rawCursor interface {
	Exec(ctx context.Context, query string)
	Description() [][]string
	HasMore(ctx context.Context) bool
	FetchOne(ctx context.Context, dests ...interface{})
	Error() error
	Cancel()
	Close()
}

var _ rawCursor = (*gohive.Cursor)(nil)

// rawConn is the subset of *gohive.Connection the session uses.
type rawConn interface {
	Cursor() rawCursor
	Close() error
}

// dialFunc opens a HiveServer2 connection. Replaced in tests.
type dialFunc func(host string, port int, auth string, conf *gohive.ConnectConfiguration) (rawConn, error)

var dial dialFunc = func(host string, port int, auth string, conf *gohive.ConnectConfiguration) (rawConn, error) {
	conn, err := gohive.Connect(host, port, auth, conf)
	if err != nil {
		return nil, err
	}
	return gohiveConn{conn}, nil
}

// Connect is the native-protocol Factory: host, port, database and
// username, no password handshake.
func Connect(_ context.Context, settings config.Settings) (database.Session, error) {
	host := settings.String("host", "")
	if host == "" {
		return nil, errs.New(errs.ErrKindConnectionFailed, "hive host is not configured")
	}
	port, err := settings.Int("port", defaultPort)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid hive port", err)
	}

	conf := gohive.NewConnectConfiguration()
	conf.Database = settings.String("database", defaultDatabase)
	conf.Username = settings.String("username", "")

	conn, err := dial(host, port, authNone, conf)
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed,
			fmt.Sprintf("could not connect to hive at %s:%d", host, port), err)
	}
	return &session{conn: conn}, nil
}

// --- gohive wrappers ---

type gohiveConn struct{ conn *gohive.Connection }

func (c gohiveConn) Cursor() rawCursor { return c.conn.Cursor() }
func (c gohiveConn) Close() error      { return c.conn.Close() }

// --- database.Session implementation ---

type session struct {
	conn rawConn
}

func (s *session) Cursor(_ context.Context) (database.Cursor, error) {
	return &cursor{raw: s.conn.Cursor()}, nil
}

func (s *session) Close() error {
	return s.conn.Close()
}

type cursor struct {
	raw   rawCursor
	width int
	row   []any
	err   error
}

// Execute runs stmt. HiveServer2 has no bound parameters, so args must be
// empty.
func (c *cursor) Execute(ctx context.Context, stmt string, args ...any) error {
	if len(args) > 0 {
		return errs.New(errs.ErrKindInvalidInput, "hive does not support bound parameters")
	}
	c.raw.Exec(ctx, stmt)
	return c.raw.Error()
}

// Columns reads the cursor description: one [name, type tag] pair per column.
func (c *cursor) Columns() ([]database.ColumnDesc, error) {
	raw := c.raw.Description()
	if err := c.raw.Error(); err != nil {
		return nil, err
	}
	c.width = len(raw)
	desc := make([]database.ColumnDesc, 0, len(raw))
	for _, d := range raw {
		if len(d) == 0 {
			continue
		}
		col := database.ColumnDesc{Name: d[0]}
		if len(d) > 1 {
			col.Type = d[1]
		}
		desc = append(desc, col)
	}
	return desc, nil
}

func (c *cursor) Next(ctx context.Context) bool {
	if c.err != nil || !c.raw.HasMore(ctx) {
		return false
	}
	if c.width == 0 {
		c.width = len(c.raw.Description())
	}
	// Nil destinations make FetchOne store each value as is. gohive
	// reports NULL as the column type's zero value.
	row := make([]interface{}, c.width)
	c.raw.FetchOne(ctx, row...)
	if err := c.raw.Error(); err != nil {
		c.err = err
		return false
	}
	c.row = row
	return true
}

func (c *cursor) Values() ([]any, error) {
	return c.row, nil
}

func (c *cursor) Err() error {
	if c.err != nil {
		return c.err
	}
	return c.raw.Error()
}

func (c *cursor) Cancel() error {
	c.raw.Cancel()
	return nil
}

func (c *cursor) Close() error {
	c.raw.Close()
	return nil
}
