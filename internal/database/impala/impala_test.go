package impala

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/apache/thrift/lib/go/thrift"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/errs"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Settings
		want     string
	}{
		{
			name:     "host only uses default port",
			settings: config.Settings{"host": "impalad"},
			want:     "impala://impalad:21050/",
		},
		{
			name:     "password selects ldap",
			settings: config.Settings{"host": "impalad", "port": float64(21051), "user": "etl", "password": "pw"},
			want:     "impala://etl:pw@impalad:21051/?auth=ldap",
		},
		{
			name:     "user without password",
			settings: config.Settings{"host": "impalad", "user": "etl"},
			want:     "impala://etl@impalad:21050/",
		},
		{
			name: "timeout and metastore keys",
			settings: config.Settings{
				"host": "impalad", "timeout": 30,
				"mysql_host": "ms", "mysql_passwd": "secret",
			},
			want: "impala://impalad:21050/?query-timeout=30",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := BuildDSN(tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBuildDSN_Invalid(t *testing.T) {
	for name, s := range map[string]config.Settings{
		"missing host": {"port": 21050},
		"bad port":     {"host": "h", "port": "x"},
		"bad timeout":  {"host": "h", "timeout": "soon"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := BuildDSN(s)
			assert.True(t, errs.IsConnectionFailed(err))
		})
	}
}

func TestQuoteIdent(t *testing.T) {
	assert.Equal(t, "`sales`", QuoteIdent("sales"))
	assert.Equal(t, "`a``b`", QuoteIdent("a`b"))
}

func stubOpen(t *testing.T) sqlmock.Sqlmock {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)

	orig := openDB
	openDB = func(string) (*sql.DB, error) { return db, nil }
	t.Cleanup(func() { openDB = orig })
	return mock
}

func TestConnect_UsesDatabase(t *testing.T) {
	mock := stubOpen(t)
	mock.ExpectExec("USE `sales`").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectClose()

	sess, err := Connect(context.Background(), config.Settings{"host": "impalad", "database": "sales"})
	require.NoError(t, err)
	require.NoError(t, sess.Close())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_UseFails(t *testing.T) {
	mock := stubOpen(t)
	mock.ExpectExec("USE `missing`").WillReturnError(errors.New("AnalysisException: Database does not exist: missing"))
	mock.ExpectClose()

	_, err := Connect(context.Background(), config.Settings{"host": "impalad", "database": "missing"})
	assert.True(t, errs.IsConnectionFailed(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestConnect_MissingHost(t *testing.T) {
	_, err := Connect(context.Background(), config.Settings{"database": "sales"})
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestClassify(t *testing.T) {
	rpc := thrift.NewTApplicationException(thrift.INTERNAL_ERROR, "catalog unavailable")
	e := Classify(rpc)
	assert.Equal(t, errs.ErrKindMetastoreFailed, e.Kind)
	assert.Equal(t, "Metastore Error [catalog unavailable]", e.Message)

	e = Classify(errors.New("AnalysisException: Could not resolve table reference: 't'"))
	assert.Equal(t, errs.ErrKindQueryFailed, e.Kind)
	assert.Equal(t, "AnalysisException: Could not resolve table reference: 't'", e.Message)
}
