package impala

import (
	"errors"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"

	"github.com/koustreak/hiverunner/internal/errs"
)

// Classify maps errors raised while an Impala statement runs. Failures of
// the RPC layer (thrift exceptions) are reported as metastore errors so the
// host can tell them apart from a rejected statement; everything else is a
// query error carrying the driver's message.
func Classify(err error) *errs.Error {
	var te thrift.TException
	if errors.As(err, &te) {
		return errs.Wrap(errs.ErrKindMetastoreFailed, fmt.Sprintf("Metastore Error [%s]", te.Error()), err)
	}
	return errs.Wrap(errs.ErrKindQueryFailed, err.Error(), err)
}
