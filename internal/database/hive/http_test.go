package hive

import (
	"context"
	"encoding/base64"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"sync"
	"testing"

	"github.com/apache/thrift/lib/go/thrift"
	"github.com/beltran/gohive/hiveserver"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/errs"
	"github.com/koustreak/hiverunner/internal/result"
)

func TestHTTPEndpoint_URI(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Settings
		want     string
	}{
		{
			name:     "defaults to https, path gets leading slash",
			settings: config.Settings{"host": "hive.example.com", "http_path": "foo"},
			want:     "https://hive.example.com/foo",
		},
		{
			name:     "port adds colon segment",
			settings: config.Settings{"host": "hive.example.com", "port": float64(10000), "http_path": "/cliservice"},
			want:     "https://hive.example.com:10000/cliservice",
		},
		{
			name:     "explicit http scheme",
			settings: config.Settings{"host": "h", "http_scheme": "http", "port": 10001, "http_path": "cliservice"},
			want:     "http://h:10001/cliservice",
		},
		{
			name:     "no path",
			settings: config.Settings{"host": "h"},
			want:     "https://h",
		},
		{
			name:     "empty port is absent",
			settings: config.Settings{"host": "h", "port": "", "http_path": "p"},
			want:     "https://h/p",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := HTTPEndpoint(tt.settings)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ep.URI())
		})
	}
}

func TestHTTPEndpoint_Authorization(t *testing.T) {
	tests := []struct {
		name     string
		settings config.Settings
		want     string
	}{
		{"user and password", config.Settings{"host": "h", "username": "alice", "http_password": "s3cret"}, "alice:s3cret"},
		{"user only", config.Settings{"host": "h", "username": "alice"}, "alice:"},
		{"password only", config.Settings{"host": "h", "http_password": "tok"}, ":tok"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ep, err := HTTPEndpoint(tt.settings)
			require.NoError(t, err)
			want := "Basic " + base64.StdEncoding.EncodeToString([]byte(tt.want))
			assert.Equal(t, want, ep.Header.Get("Authorization"))
		})
	}

	ep, err := HTTPEndpoint(config.Settings{"host": "h"})
	require.NoError(t, err)
	assert.Empty(t, ep.Header.Get("Authorization"), "no credentials, no header")
}

func TestHTTPEndpoint_Invalid(t *testing.T) {
	for name, s := range map[string]config.Settings{
		"missing host": {"http_path": "p"},
		"bad scheme":   {"host": "h", "http_scheme": "ftp"},
		"bad port":     {"host": "h", "port": "x"},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := HTTPEndpoint(s)
			assert.True(t, errs.IsConnectionFailed(err))
		})
	}
}

// fakeHiveServer answers the TCLIService calls a query makes. Other calls
// hit the nil embedded interface.
type fakeHiveServer struct {
	hiveserver.TCLIService

	mu         sync.Mutex
	auth       []string
	paths      []string
	open       *hiveserver.TOpenSessionReq
	statement  string
	execErr    string
	batches    [][]*hiveserver.TColumn
	closedOps  int
	closedSess int
}

func handle(id string) *hiveserver.THandleIdentifier {
	return &hiveserver.THandleIdentifier{GUID: []byte(id), Secret: []byte(id)}
}

func okStatus() *hiveserver.TStatus {
	return &hiveserver.TStatus{StatusCode: hiveserver.TStatusCode_SUCCESS_STATUS}
}

func (f *fakeHiveServer) OpenSession(_ context.Context, req *hiveserver.TOpenSessionReq) (*hiveserver.TOpenSessionResp, error) {
	f.open = req
	return &hiveserver.TOpenSessionResp{
		Status:                okStatus(),
		ServerProtocolVersion: req.ClientProtocol,
		SessionHandle:         &hiveserver.TSessionHandle{SessionId: handle("session")},
	}, nil
}

func (f *fakeHiveServer) ExecuteStatement(_ context.Context, req *hiveserver.TExecuteStatementReq) (*hiveserver.TExecuteStatementResp, error) {
	f.statement = req.Statement
	if f.execErr != "" {
		msg := f.execErr
		return &hiveserver.TExecuteStatementResp{
			Status: &hiveserver.TStatus{StatusCode: hiveserver.TStatusCode_ERROR_STATUS, ErrorMessage: &msg},
		}, nil
	}
	return &hiveserver.TExecuteStatementResp{
		Status: okStatus(),
		OperationHandle: &hiveserver.TOperationHandle{
			OperationId:   handle("op"),
			OperationType: hiveserver.TOperationType_EXECUTE_STATEMENT,
			HasResultSet:  true,
		},
	}, nil
}

func primitive(name string, typ hiveserver.TTypeId) *hiveserver.TColumnDesc {
	return &hiveserver.TColumnDesc{
		ColumnName: name,
		TypeDesc: &hiveserver.TTypeDesc{Types: []*hiveserver.TTypeEntry{
			{PrimitiveEntry: &hiveserver.TPrimitiveTypeEntry{Type: typ}},
		}},
	}
}

func (f *fakeHiveServer) GetResultSetMetadata(context.Context, *hiveserver.TGetResultSetMetadataReq) (*hiveserver.TGetResultSetMetadataResp, error) {
	return &hiveserver.TGetResultSetMetadataResp{
		Status: okStatus(),
		Schema: &hiveserver.TTableSchema{Columns: []*hiveserver.TColumnDesc{
			primitive("t.id", hiveserver.TTypeId_INT_TYPE),
			primitive("t.name", hiveserver.TTypeId_STRING_TYPE),
		}},
	}, nil
}

func (f *fakeHiveServer) FetchResults(context.Context, *hiveserver.TFetchResultsReq) (*hiveserver.TFetchResultsResp, error) {
	rs := &hiveserver.TRowSet{}
	if len(f.batches) > 0 {
		rs.Columns, f.batches = f.batches[0], f.batches[1:]
	}
	return &hiveserver.TFetchResultsResp{Status: okStatus(), Results: rs}, nil
}

func (f *fakeHiveServer) CloseOperation(context.Context, *hiveserver.TCloseOperationReq) (*hiveserver.TCloseOperationResp, error) {
	f.closedOps++
	return &hiveserver.TCloseOperationResp{Status: okStatus()}, nil
}

func (f *fakeHiveServer) CloseSession(context.Context, *hiveserver.TCloseSessionReq) (*hiveserver.TCloseSessionResp, error) {
	f.closedSess++
	return &hiveserver.TCloseSessionResp{Status: okStatus()}, nil
}

// serve runs f behind a thrift HTTP endpoint and returns settings
// pointing at it.
func serve(t *testing.T, f *fakeHiveServer) config.Settings {
	t.Helper()
	pf := thrift.NewTBinaryProtocolFactoryConf(nil)
	thriftHandler := thrift.NewThriftHandlerFunc(hiveserver.NewTCLIServiceProcessor(f), pf, pf)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.auth = append(f.auth, r.Header.Get("Authorization"))
		f.paths = append(f.paths, r.URL.Path)
		f.mu.Unlock()
		thriftHandler(w, r)
	}))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	port, err := strconv.Atoi(u.Port())
	require.NoError(t, err)
	return config.Settings{"host": u.Hostname(), "port": port, "http_scheme": "http", "http_path": "cliservice"}
}

func rowBatch() []*hiveserver.TColumn {
	return []*hiveserver.TColumn{
		{I32Val: &hiveserver.TI32Column{Values: []int32{1, 2}, Nulls: []byte{}}},
		{StringVal: &hiveserver.TStringColumn{Values: []string{"a", ""}, Nulls: []byte{0x02}}},
	}
}

func TestConnectHTTP_Query(t *testing.T) {
	f := &fakeHiveServer{batches: [][]*hiveserver.TColumn{rowBatch()}}
	settings := serve(t, f)
	settings["database"] = "sales"

	sess, err := ConnectHTTP(context.Background(), settings)
	require.NoError(t, err)

	res, err := database.Execute(context.Background(), sess, "SELECT * FROM t", database.ExecOptions{
		Types:    result.HiveTypes,
		Classify: Classify,
	})
	require.NoError(t, err)

	assert.Equal(t, "SELECT * FROM t", f.statement)
	assert.Equal(t, "sales", f.open.Configuration["use:database"])
	assert.Equal(t, []string{"t.id", "t.name"}, res.ColumnNames())
	assert.Equal(t, result.TypeInteger, res.Columns[0].Type)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, result.Row{"t.id": int32(1), "t.name": "a"}, res.Rows[0])
	assert.Equal(t, result.Row{"t.id": int32(2), "t.name": nil}, res.Rows[1])

	assert.Equal(t, 1, f.closedOps)
	assert.Equal(t, 1, f.closedSess)
	for _, p := range f.paths {
		assert.Equal(t, "/cliservice", p)
	}
}

func TestConnectHTTP_WireAuthorization(t *testing.T) {
	tests := []struct {
		name  string
		creds config.Settings
		want  string
	}{
		{"no credentials", config.Settings{}, ""},
		{"user only", config.Settings{"username": "alice"}, "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:"))},
		{"user and password", config.Settings{"username": "alice", "http_password": "s3cret"}, "Basic " + base64.StdEncoding.EncodeToString([]byte("alice:s3cret"))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &fakeHiveServer{}
			settings := serve(t, f)
			for k, v := range tt.creds {
				settings[k] = v
			}

			sess, err := ConnectHTTP(context.Background(), settings)
			require.NoError(t, err)
			require.NoError(t, sess.Close())

			require.Len(t, f.auth, 2, "open and close session")
			for _, got := range f.auth {
				assert.Equal(t, tt.want, got)
			}
			if name, ok := tt.creds["username"]; ok {
				require.NotNil(t, f.open.Username)
				assert.Equal(t, name, *f.open.Username)
			} else {
				assert.Nil(t, f.open.Username)
			}
		})
	}
}

func TestConnectHTTP_StatementError(t *testing.T) {
	f := &fakeHiveServer{execErr: "FAILED: SemanticException Table not found t"}
	sess, err := ConnectHTTP(context.Background(), serve(t, f))
	require.NoError(t, err)

	res, err := database.Execute(context.Background(), sess, "SELECT * FROM t", database.ExecOptions{Classify: Classify})
	assert.Nil(t, res)
	assert.True(t, errs.IsQueryFailed(err))
	assert.Equal(t, "FAILED: SemanticException Table not found t", errs.Message(err))
	assert.Equal(t, 1, f.closedSess)
}

func TestConnectHTTP_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	settings := config.Settings{"host": "127.0.0.1", "http_scheme": "http"}
	u, err := url.Parse(srv.URL)
	require.NoError(t, err)
	settings["port"], err = strconv.Atoi(u.Port())
	require.NoError(t, err)
	srv.Close()

	_, err = ConnectHTTP(context.Background(), settings)
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestConnectHTTP_MissingHost(t *testing.T) {
	_, err := ConnectHTTP(context.Background(), config.Settings{"http_path": "p"})
	assert.True(t, errs.IsConnectionFailed(err))
}

func TestColumnValue_Nulls(t *testing.T) {
	col := &hiveserver.TColumn{I64Val: &hiveserver.TI64Column{Values: []int64{7, 0, 9}, Nulls: []byte{0x02}}}
	assert.Equal(t, int64(7), columnValue(col, 0))
	assert.Nil(t, columnValue(col, 1))
	assert.Equal(t, int64(9), columnValue(col, 2))
	assert.Equal(t, 3, columnLen(col))
	assert.Nil(t, columnValue(&hiveserver.TColumn{}, 0))
}
