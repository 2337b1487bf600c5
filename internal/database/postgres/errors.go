package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/koustreak/hiverunner/internal/errs"
)

// Classify maps errors raised while a metastore statement runs.
// SQLSTATE class 08 (connection exception) and 28 (invalid authorization)
// are connection failures; everything else the server reports is a query
// failure carrying the server's message.
func Classify(err error) *errs.Error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return nil
	}
	kind := errs.ErrKindQueryFailed
	if len(pgErr.Code) >= 2 {
		switch pgErr.Code[:2] {
		case "08", "28":
			kind = errs.ErrKindConnectionFailed
		}
	}
	return errs.Wrap(kind, pgErr.Message, err)
}

// mapError translates connection-time failures into *errs.Error.
func mapError(err error, msg string) *errs.Error {
	if errors.Is(err, context.DeadlineExceeded) {
		return errs.Wrap(errs.ErrKindTimeout, msg, err)
	}
	if errors.Is(err, context.Canceled) {
		return errs.Wrap(errs.ErrKindCancelled, msg, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return errs.Wrap(errs.ErrKindConnectionFailed, msg+": "+pgErr.Message, err)
	}
	return errs.Wrap(errs.ErrKindConnectionFailed, msg, err)
}
