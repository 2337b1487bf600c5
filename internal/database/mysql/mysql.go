// Package mysql opens sessions on a MySQL-backed Hive metastore.
package mysql

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql" // register "mysql" driver

	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
)

// Open connects to the metastore database described by cfg and returns a
// single-connection session. The caller owns the session.
func Open(ctx context.Context, cfg *database.Config) (*database.SQLSession, error) {
	if cfg.Host == "" {
		return nil, errs.New(errs.ErrKindConnectionFailed, "metastore host is not configured")
	}

	db, err := sql.Open("mysql", buildDSN(cfg))
	if err != nil {
		return nil, errs.Wrap(errs.ErrKindConnectionFailed, "invalid metastore DSN", err)
	}
	db.SetMaxOpenConns(1)

	connectCtx := ctx
	if cfg.ConnectTimeout > 0 {
		var cancel context.CancelFunc
		connectCtx, cancel = context.WithTimeout(ctx, cfg.ConnectTimeout)
		defer cancel()
	}

	sess, err := database.NewSQLSession(connectCtx, db)
	if err != nil {
		return nil, mapError(err, "could not connect to metastore")
	}
	return sess, nil
}
