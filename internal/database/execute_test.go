package database

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/result"
)

// --- in-memory session ---

type fakeSession struct {
	cursor    *fakeCursor
	cursorErr error
	closed    int
}

func (s *fakeSession) Cursor(context.Context) (Cursor, error) {
	if s.cursorErr != nil {
		return nil, s.cursorErr
	}
	return s.cursor, nil
}

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeCursor struct {
	desc    []ColumnDesc
	rows    [][]any
	execErr error
	iterErr error

	// onFetch runs before row i is returned.
	onFetch func(i int)

	pos       int
	stmt      string
	args      []any
	cancelled int
	closed    int
}

func (c *fakeCursor) Execute(_ context.Context, stmt string, args ...any) error {
	c.stmt, c.args = stmt, args
	return c.execErr
}

func (c *fakeCursor) Columns() ([]ColumnDesc, error) { return c.desc, nil }

func (c *fakeCursor) Next(context.Context) bool {
	if c.pos >= len(c.rows) {
		return false
	}
	if c.onFetch != nil {
		c.onFetch(c.pos)
	}
	c.pos++
	return true
}

func (c *fakeCursor) Values() ([]any, error) { return c.rows[c.pos-1], nil }
func (c *fakeCursor) Err() error             { return c.iterErr }
func (c *fakeCursor) Cancel() error          { c.cancelled++; return nil }
func (c *fakeCursor) Close() error           { c.closed++; return nil }

var testTypes = result.Mapper{"BIGINT_TYPE": result.TypeInteger, "STRING_TYPE": result.TypeString}

func TestExecute_Success(t *testing.T) {
	cur := &fakeCursor{
		desc: []ColumnDesc{{"id", "BIGINT_TYPE"}, {"name", "STRING_TYPE"}, {"tags", "ARRAY_TYPE"}},
		rows: [][]any{{int64(2), "b", "[]"}, {int64(1), "a", nil}},
	}
	sess := &fakeSession{cursor: cur}

	res, err := Execute(context.Background(), sess, "SELECT * FROM t", ExecOptions{Types: testTypes})
	require.NoError(t, err)

	assert.Equal(t, []result.Column{
		{Name: "id", FriendlyName: "id", Type: result.TypeInteger},
		{Name: "name", FriendlyName: "name", Type: result.TypeString},
		{Name: "tags", FriendlyName: "tags", Type: result.TypeUnknown},
	}, res.Columns)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, result.Row{"id": int64(2), "name": "b", "tags": "[]"}, res.Rows[0])
	assert.Equal(t, result.Row{"id": int64(1), "name": "a", "tags": nil}, res.Rows[1])
	for _, row := range res.Rows {
		assert.ElementsMatch(t, res.ColumnNames(), keys(row))
	}

	assert.Equal(t, "SELECT * FROM t", cur.stmt)
	assert.Equal(t, 1, sess.closed)
	assert.Equal(t, 1, cur.closed)
	assert.Zero(t, cur.cancelled)
}

func TestExecute_NoData(t *testing.T) {
	sess := &fakeSession{cursor: &fakeCursor{}}

	res, err := Execute(context.Background(), sess, "SET x=1", ExecOptions{})
	assert.Nil(t, res)
	assert.True(t, errs.IsNoData(err))
	assert.Equal(t, MsgNoData, errs.Message(err))
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_EngineError(t *testing.T) {
	engineErr := errors.New("ParseException line 1:7 cannot recognize input")

	t.Run("default classification", func(t *testing.T) {
		sess := &fakeSession{cursor: &fakeCursor{execErr: engineErr}}
		_, err := Execute(context.Background(), sess, "SELEC", ExecOptions{})

		assert.True(t, errs.IsQueryFailed(err))
		assert.Equal(t, engineErr.Error(), errs.Message(err))
		assert.ErrorIs(t, err, engineErr)
		assert.Equal(t, 1, sess.closed)
	})

	t.Run("engine classifier", func(t *testing.T) {
		sess := &fakeSession{cursor: &fakeCursor{execErr: engineErr}}
		classify := func(err error) *errs.Error {
			return errs.Wrap(errs.ErrKindMetastoreFailed, "Metastore Error [x]", err)
		}
		_, err := Execute(context.Background(), sess, "SELEC", ExecOptions{Classify: classify})

		assert.True(t, errs.IsMetastoreFailed(err))
		assert.Equal(t, 1, sess.closed)
	})

	t.Run("classifier declines", func(t *testing.T) {
		sess := &fakeSession{cursor: &fakeCursor{execErr: engineErr}}
		_, err := Execute(context.Background(), sess, "SELEC", ExecOptions{
			Classify: func(error) *errs.Error { return nil },
		})
		assert.True(t, errs.IsQueryFailed(err))
	})
}

func TestExecute_CursorError(t *testing.T) {
	sess := &fakeSession{cursorErr: errs.New(errs.ErrKindConnectionFailed, "session gone")}

	_, err := Execute(context.Background(), sess, "SELECT 1", ExecOptions{})
	assert.True(t, errs.IsConnectionFailed(err))
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_IterationError(t *testing.T) {
	cur := &fakeCursor{
		desc:    []ColumnDesc{{"a", "INT_TYPE"}},
		rows:    [][]any{{1}},
		iterErr: errors.New("fetch failed"),
	}
	sess := &fakeSession{cursor: cur}

	res, err := Execute(context.Background(), sess, "SELECT a FROM t", ExecOptions{})
	assert.Nil(t, res)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_CancelDuringFetch(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cur := &fakeCursor{
		desc: []ColumnDesc{{"a", "INT_TYPE"}},
		rows: [][]any{{1}, {2}, {3}},
		onFetch: func(i int) {
			if i == 1 {
				cancel()
			}
		},
	}
	sess := &fakeSession{cursor: cur}

	res, err := Execute(ctx, sess, "SELECT a FROM t", ExecOptions{})
	assert.Nil(t, res, "partial results are discarded")
	assert.True(t, errs.IsCancelled(err))
	assert.False(t, errs.IsQueryFailed(err))
	assert.Equal(t, MsgCancelled, errs.Message(err))
	assert.Equal(t, 1, cur.cancelled)
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_CancelledExecuteIsNotQueryError(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	cur := &fakeCursor{execErr: context.Canceled}
	sess := &fakeSession{cursor: cur}

	_, err := Execute(ctx, sess, "SELECT 1", ExecOptions{})
	assert.True(t, errs.IsCancelled(err))
	assert.Equal(t, 1, cur.cancelled)
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_Deadline(t *testing.T) {
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	cur := &fakeCursor{desc: []ColumnDesc{{"a", "INT_TYPE"}}, rows: [][]any{{1}}}
	sess := &fakeSession{cursor: cur}

	_, err := Execute(ctx, sess, "SELECT 1", ExecOptions{})
	assert.True(t, errs.IsTimeout(err))
	assert.Equal(t, 1, sess.closed)
}

func TestExecute_MaxRows(t *testing.T) {
	cur := &fakeCursor{
		desc: []ColumnDesc{{"a", "INT_TYPE"}},
		rows: [][]any{{1}, {2}, {3}},
	}
	sess := &fakeSession{cursor: cur}

	res, err := Execute(context.Background(), sess, "SELECT a FROM t", ExecOptions{MaxRows: 2})
	require.NoError(t, err)
	assert.Len(t, res.Rows, 2)
}

func TestExecute_SQLSession(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, name FROM t WHERE name = ?")).
		WithArgs("a").
		WillReturnRows(mock.NewRowsWithColumnDefinition(
			sqlmock.NewColumn("id").OfType("BIGINT", int64(0)),
			sqlmock.NewColumn("name").OfType("VARCHAR", ""),
		).AddRow(int64(1), []byte("a")).AddRow(int64(2), []byte("a")))
	mock.ExpectClose()

	sess, err := NewSQLSession(context.Background(), db)
	require.NoError(t, err)

	res, err := Execute(context.Background(), sess, "SELECT id, name FROM t WHERE name = ?", ExecOptions{
		Args:  []any{"a"},
		Types: result.ImpalaTypes,
	})
	require.NoError(t, err)

	assert.Equal(t, []string{"id", "name"}, res.ColumnNames())
	assert.Equal(t, result.TypeInteger, res.Columns[0].Type)
	assert.Equal(t, result.TypeString, res.Columns[1].Type)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "a", res.Rows[0]["name"], "[]byte is converted to string")
	assert.Equal(t, int64(2), res.Rows[1]["id"])

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestExecute_SQLSessionQueryError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)

	mock.ExpectQuery("SELECT").WillReturnError(errors.New("Table 'x' doesn't exist"))
	mock.ExpectClose()

	sess, err := NewSQLSession(context.Background(), db)
	require.NoError(t, err)

	_, err = Execute(context.Background(), sess, "SELECT * FROM x", ExecOptions{})
	assert.True(t, errs.IsQueryFailed(err))
	assert.Equal(t, "Table 'x' doesn't exist", errs.Message(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func keys(row result.Row) []string {
	out := make([]string, 0, len(row))
	for k := range row {
		out = append(out, k)
	}
	return out
}
