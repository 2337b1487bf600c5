package hive

import (
	"errors"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive"
	"github.com/beltran/gohive/hiveserver"

	"github.com/koustreak/hiverunner/internal/errs"
)

// statusError is a non-success HiveServer2 status returned over the HTTP
// transport.
type statusError struct {
	op     string
	status *hiveserver.TStatus
}

func (e *statusError) Error() string {
	return fmt.Sprintf("%s: %s", e.op, e.status.String())
}

// Classify maps errors raised while a Hive statement runs. The status
// record's message is preferred over the error's string form; transport
// failures mean the session is gone.
func Classify(err error) *errs.Error {
	var he gohive.HiveError
	if errors.As(err, &he) && he.Message != "" {
		return errs.Wrap(errs.ErrKindQueryFailed, he.Message, err)
	}

	var se *statusError
	if errors.As(err, &se) && se.status != nil && se.status.GetErrorMessage() != "" {
		return errs.Wrap(errs.ErrKindQueryFailed, se.status.GetErrorMessage(), err)
	}

	var te thrift.TTransportException
	if errors.As(err, &te) {
		return errs.Wrap(errs.ErrKindConnectionFailed, "hive session lost: "+te.Error(), err)
	}

	return errs.Wrap(errs.ErrKindQueryFailed, err.Error(), err)
}
