package database

import (
	"context"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
)

// Session is an open connection to one engine, bound to one configuration.
// A Session is owned by the single Execute call it is handed to; Execute
// closes it exactly once.
type Session interface {
	// Cursor opens a cursor on the session.
	Cursor(ctx context.Context) (Cursor, error)

	// Close releases the connection.
	Close() error
}

// ColumnDesc is a column as the engine describes it: its name and the
// engine's native type tag.
type ColumnDesc struct {
	Name string
	Type string
}

// Cursor runs one statement and streams its rows.
type Cursor interface {
	// Execute runs stmt. Args are bound parameters where the engine
	// supports them.
	Execute(ctx context.Context, stmt string, args ...any) error

	// Columns describes the result set. It returns no columns when the
	// statement produced no result set.
	Columns() ([]ColumnDesc, error)

	// Next advances to the next row.
	// Returns false when no more rows exist or on error.
	Next(ctx context.Context) bool

	// Values returns the current row, one value per column.
	Values() ([]any, error)

	// Err returns any error encountered during iteration.
	Err() error

	// Cancel asks the engine to abort the in-flight operation. Drivers
	// without a cancel primitive return ErrCancelUnsupported.
	Cancel() error

	// Close releases the cursor.
	Close() error
}

// Factory opens a Session from a runner configuration. Factories never
// retry; every failure is returned as a connection_failed error.
type Factory func(ctx context.Context, settings config.Settings) (Session, error)

// Classifier translates a driver error raised while executing or fetching
// into an *errs.Error. It returns nil for errors it does not recognise.
type Classifier func(err error) *errs.Error

// ErrCancelUnsupported is returned by Cursor.Cancel when the driver offers
// no way to abort a running statement.
var ErrCancelUnsupported = errs.New(errs.ErrKindUnknown, "cancel not supported by driver")
