// Package postgres opens sessions on a PostgreSQL-backed Hive metastore.
package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"

	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
)

// Open connects to the metastore database described by cfg and returns a
// single-connection session. The caller owns the session.
func Open(ctx context.Context, cfg *database.Config) (*database.SQLSession, error) {
	if cfg.Host == "" {
		return nil, errs.New(errs.ErrKindConnectionFailed, "metastore host is not configured")
	}

	connCfg, err := pgx.ParseConfig(buildDSN(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid metastore DSN", err)
	}

	db := stdlib.OpenDB(*connCfg)
	db.SetMaxOpenConns(1)

	sess, err := database.NewSQLSession(ctx, db)
	if err != nil {
		return nil, mapError(err, "could not connect to metastore")
	}
	return sess, nil
}
