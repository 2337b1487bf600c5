package database

import (
	"context"
	"errors"

	"github.com/koustreak/hiverunner/internal/errs"
)

// Messages reported to the host verbatim.
const (
	MsgCancelled = "Query cancelled by user."
	MsgTimeout   = "Query timed out."
	MsgNoData    = "No data was returned."
)

// interrupted returns the cancellation error for ctx, or nil when ctx is
// still live.
func interrupted(ctx context.Context) *errs.Error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return errs.Wrap(errs.ErrKindTimeout, MsgTimeout, err)
	default:
		return errs.Wrap(errs.ErrKindCancelled, MsgCancelled, err)
	}
}

// classify maps an execution failure: cancellation first, then the
// engine-specific classifier, then a plain query error carrying the
// driver's message.
func classify(ctx context.Context, err error, c Classifier) *errs.Error {
	if ie := interrupted(ctx); ie != nil {
		return ie
	}
	var e *errs.Error
	if errors.As(err, &e) {
		return e
	}
	if c != nil {
		if e := c(err); e != nil {
			return e
		}
	}
	return errs.Wrap(errs.ErrKindQueryFailed, err.Error(), err)
}
