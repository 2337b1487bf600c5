package hive

import (
	"context"
	"errors"
	"fmt"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive/hiveserver"
)

// fetchSize is the number of rows requested per FetchResults call.
const fetchSize = 1000

// hs2Conn is a HiveServer2 session driven directly through the generated
// TCLIService client. It backs the HTTP transport, where the session must
// control its own request headers.
type hs2Conn struct {
	client  *hiveserver.TCLIServiceClient
	trans   thrift.TTransport
	session *hiveserver.TSessionHandle
}

func (c *hs2Conn) Cursor() rawCursor {
	return &hs2Cursor{conn: c}
}

func (c *hs2Conn) Close() error {
	req := hiveserver.NewTCloseSessionReq()
	req.SessionHandle = c.session
	resp, err := c.client.CloseSession(context.Background(), req)

	if terr := c.trans.Close(); terr != nil && err == nil {
		err = terr
	}
	if err != nil {
		return err
	}
	if !succeeded(resp.GetStatus()) {
		return &statusError{op: "closing session", status: resp.GetStatus()}
	}
	return nil
}

// hs2Cursor implements rawCursor with the same contract as gohive's
// cursor: calls record their failure in Error instead of returning it.
type hs2Cursor struct {
	conn *hs2Conn
	op   *hiveserver.TOperationHandle
	desc [][]string

	// current fetched batch, column-major
	batch []*hiveserver.TColumn
	rows  int
	pos   int
	done  bool

	err error
}

func (c *hs2Cursor) Exec(ctx context.Context, query string) {
	c.Close()

	req := hiveserver.NewTExecuteStatementReq()
	req.SessionHandle = c.conn.session
	req.Statement = query
	resp, err := c.conn.client.ExecuteStatement(ctx, req)
	if err != nil {
		c.err = err
		return
	}
	if !succeeded(resp.GetStatus()) {
		c.err = &statusError{op: "executing statement", status: resp.GetStatus()}
		return
	}
	c.op = resp.GetOperationHandle()
	c.done = c.op == nil || !c.op.HasResultSet
}

// Description lists [name, type tag] per column. A statement without a
// result set has none.
func (c *hs2Cursor) Description() [][]string {
	if c.desc != nil || c.err != nil {
		return c.desc
	}
	if c.op == nil || !c.op.HasResultSet {
		c.desc = [][]string{}
		return c.desc
	}

	req := hiveserver.NewTGetResultSetMetadataReq()
	req.OperationHandle = c.op
	resp, err := c.conn.client.GetResultSetMetadata(context.Background(), req)
	if err != nil {
		c.err = err
		return nil
	}
	if !succeeded(resp.GetStatus()) {
		c.err = &statusError{op: "reading result metadata", status: resp.GetStatus()}
		return nil
	}

	var columns []*hiveserver.TColumnDesc
	if schema := resp.GetSchema(); schema != nil {
		columns = schema.GetColumns()
	}
	desc := make([][]string, len(columns))
	for i, col := range columns {
		desc[i] = []string{col.GetColumnName(), typeTag(col.GetTypeDesc())}
	}
	c.desc = desc
	return desc
}

// HasMore reports whether FetchOne has a row to return, fetching the next
// batch when the current one is used up. HiveServer2 does not reliably
// set hasMoreRows, so an empty batch marks the end.
func (c *hs2Cursor) HasMore(ctx context.Context) bool {
	if c.err != nil {
		return false
	}
	if c.pos < c.rows {
		return true
	}
	if c.done {
		return false
	}

	req := hiveserver.NewTFetchResultsReq()
	req.OperationHandle = c.op
	req.Orientation = hiveserver.TFetchOrientation_FETCH_NEXT
	req.MaxRows = fetchSize
	resp, err := c.conn.client.FetchResults(ctx, req)
	if err != nil {
		c.err = err
		return false
	}
	if !succeeded(resp.GetStatus()) {
		c.err = &statusError{op: "fetching results", status: resp.GetStatus()}
		return false
	}

	c.batch, c.rows, c.pos = nil, 0, 0
	if rs := resp.GetResults(); rs != nil {
		c.batch = rs.GetColumns()
	}
	if len(c.batch) > 0 {
		c.rows = columnLen(c.batch[0])
	}
	if c.rows == 0 {
		c.done = true
		return false
	}
	return true
}

// FetchOne stores the next row into dests, which must all be nil. NULL is
// stored as nil.
func (c *hs2Cursor) FetchOne(ctx context.Context, dests ...interface{}) {
	if !c.HasMore(ctx) {
		if c.err == nil {
			c.err = errors.New("no more rows are left")
		}
		return
	}
	if len(dests) != len(c.batch) {
		c.err = fmt.Errorf("%d arguments were passed for filling but the number of columns is %d", len(dests), len(c.batch))
		return
	}
	for i, col := range c.batch {
		if dests[i] != nil {
			c.err = fmt.Errorf("destination %d must be nil", i)
			return
		}
		dests[i] = columnValue(col, c.pos)
	}
	c.pos++
}

func (c *hs2Cursor) Error() error {
	return c.err
}

func (c *hs2Cursor) Cancel() {
	if c.op == nil {
		return
	}
	req := hiveserver.NewTCancelOperationReq()
	req.OperationHandle = c.op
	resp, err := c.conn.client.CancelOperation(context.Background(), req)
	switch {
	case err != nil:
		c.err = err
	case !succeeded(resp.GetStatus()):
		c.err = &statusError{op: "cancelling operation", status: resp.GetStatus()}
	}
}

// Close releases the server-side operation and resets the cursor.
func (c *hs2Cursor) Close() {
	if c.op != nil {
		req := hiveserver.NewTCloseOperationReq()
		req.OperationHandle = c.op
		_, _ = c.conn.client.CloseOperation(context.Background(), req)
	}
	*c = hs2Cursor{conn: c.conn}
}

func succeeded(status *hiveserver.TStatus) bool {
	if status == nil {
		return false
	}
	code := status.GetStatusCode()
	return code == hiveserver.TStatusCode_SUCCESS_STATUS || code == hiveserver.TStatusCode_SUCCESS_WITH_INFO_STATUS
}

// typeTag renders a column type the way gohive's Description does, e.g.
// INT_TYPE.
func typeTag(td *hiveserver.TTypeDesc) string {
	if td == nil {
		return ""
	}
	for _, entry := range td.GetTypes() {
		if entry.IsSetPrimitiveEntry() {
			return entry.GetPrimitiveEntry().GetType().String()
		}
	}
	return ""
}

func columnLen(col *hiveserver.TColumn) int {
	switch {
	case col.IsSetBoolVal():
		return len(col.BoolVal.Values)
	case col.IsSetByteVal():
		return len(col.ByteVal.Values)
	case col.IsSetI16Val():
		return len(col.I16Val.Values)
	case col.IsSetI32Val():
		return len(col.I32Val.Values)
	case col.IsSetI64Val():
		return len(col.I64Val.Values)
	case col.IsSetDoubleVal():
		return len(col.DoubleVal.Values)
	case col.IsSetStringVal():
		return len(col.StringVal.Values)
	case col.IsSetBinaryVal():
		return len(col.BinaryVal.Values)
	default:
		return 0
	}
}

func columnValue(col *hiveserver.TColumn, row int) interface{} {
	switch {
	case col.IsSetBoolVal():
		return pick(col.BoolVal.Values, col.BoolVal.Nulls, row)
	case col.IsSetByteVal():
		return pick(col.ByteVal.Values, col.ByteVal.Nulls, row)
	case col.IsSetI16Val():
		return pick(col.I16Val.Values, col.I16Val.Nulls, row)
	case col.IsSetI32Val():
		return pick(col.I32Val.Values, col.I32Val.Nulls, row)
	case col.IsSetI64Val():
		return pick(col.I64Val.Values, col.I64Val.Nulls, row)
	case col.IsSetDoubleVal():
		return pick(col.DoubleVal.Values, col.DoubleVal.Nulls, row)
	case col.IsSetStringVal():
		return pick(col.StringVal.Values, col.StringVal.Nulls, row)
	case col.IsSetBinaryVal():
		return pick(col.BinaryVal.Values, col.BinaryVal.Nulls, row)
	default:
		return nil
	}
}

// pick returns values[row], or nil when the row's bit is set in the nulls
// bitmap.
func pick[T any](values []T, nulls []byte, row int) interface{} {
	if row >= len(values) {
		return nil
	}
	if i := row / 8; i < len(nulls) && nulls[i]&(1<<uint(row%8)) != 0 {
		return nil
	}
	return values[row]
}
