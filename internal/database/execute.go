package database

import (
	"context"

	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/result"
)

// ExecOptions tunes a single Execute call.
type ExecOptions struct {
	// Args are bound to the statement's placeholders.
	Args []any

	// Types maps the engine's column type tags to canonical types.
	Types result.Mapper

	// Classify recognises engine-specific errors.
	Classify Classifier

	// MaxRows stops fetching after this many rows. Zero means unlimited.
	MaxRows int
}

// Execute runs stmt on sess and assembles the canonical result.
//
// Execute owns sess: it is closed exactly once before Execute returns, on
// success, failure and cancellation alike. Cancelling ctx is the user
// interrupt; it is checked between row fetches and triggers a best-effort
// Cursor.Cancel before the session is closed.
func Execute(ctx context.Context, sess Session, stmt string, opts ExecOptions) (*result.Result, error) {
	defer func() {
		_ = sess.Close()
	}()

	cur, err := sess.Cursor(ctx)
	if err != nil {
		return nil, classify(ctx, err, opts.Classify)
	}
	defer func() {
		_ = cur.Close()
	}()

	if err := cur.Execute(ctx, stmt, opts.Args...); err != nil {
		if interrupted(ctx) != nil {
			_ = cur.Cancel()
		}
		return nil, classify(ctx, err, opts.Classify)
	}

	desc, err := cur.Columns()
	if err != nil {
		return nil, classify(ctx, err, opts.Classify)
	}
	if len(desc) == 0 {
		return nil, errs.New(errs.ErrKindNoData, MsgNoData)
	}

	columns := make([]result.Column, len(desc))
	for i, d := range desc {
		columns[i] = result.Column{
			Name:         d.Name,
			FriendlyName: d.Name,
			Type:         opts.Types.Map(d.Type),
		}
	}
	res := result.New(columns)

	for {
		if ie := interrupted(ctx); ie != nil {
			_ = cur.Cancel()
			return nil, ie
		}
		if !cur.Next(ctx) {
			break
		}
		values, err := cur.Values()
		if err != nil {
			return nil, classify(ctx, err, opts.Classify)
		}
		if err := res.AppendValues(values); err != nil {
			return nil, errs.Wrap(errs.ErrKindQueryFailed, "malformed row", err)
		}
		if opts.MaxRows > 0 && len(res.Rows) >= opts.MaxRows {
			break
		}
	}

	if err := cur.Err(); err != nil {
		if interrupted(ctx) != nil {
			_ = cur.Cancel()
		}
		return nil, classify(ctx, err, opts.Classify)
	}
	return res, nil
}
