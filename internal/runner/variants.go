package runner

import (
	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database/hive"
	"github.com/koustreak/hiverunner/internal/database/impala"
	"github.com/koustreak/hiverunner/internal/result"
)

var metastoreFields = []config.Field{
	{Name: "mysql_host", Type: config.TypeString},
	{Name: "mysql_port", Type: config.TypeNumber, Default: 3306},
	{Name: "mysql_database", Type: config.TypeString, Default: "hive_test"},
	{Name: "mysql_username", Type: config.TypeString, Default: "root"},
	{Name: "metastore_driver", Type: config.TypeString, Title: "Metastore Driver (mysql or postgres)"},
	{Name: "mysql_sslmode", Type: config.TypeString, Title: "Metastore SSL Mode (postgres)"},
}

func withMetastore(fields []config.Field, password config.Field) []config.Field {
	out := make([]config.Field, 0, len(fields)+len(metastoreFields)+1)
	out = append(out, fields...)
	out = append(out, metastoreFields...)
	return append(out, password)
}

// Hive talks to HiveServer2 over the binary transport.
var Hive = Variant{
	Type: "hive",
	Name: "Hive",
	Schema: config.Schema{
		Fields: withMetastore([]config.Field{
			{Name: "host", Type: config.TypeString},
			{Name: "port", Type: config.TypeNumber},
			{Name: "database", Type: config.TypeString},
			{Name: "username", Type: config.TypeString},
		}, config.Field{Name: "passwd", Type: config.TypeString, Title: "Mysql Password"}),
		Order:    []string{"host", "port", "database", "username", "mysql_host", "mysql_port", "mysql_database", "mysql_username", "passwd"},
		Required: []string{"host", "mysql_host", "mysql_port", "mysql_database", "mysql_username", "passwd"},
		Secret:   []string{"passwd"},
	},
	Connect:           hive.Connect,
	Types:             result.HiveTypes,
	Classify:          hive.Classify,
	NoopQuery:         "SELECT 1",
	MetastorePassword: "passwd",
}

// HiveHTTP talks to HiveServer2 over HTTP(S). The metastore settings are
// optional; without them GetTables fails.
var HiveHTTP = Variant{
	Type: "hive_http",
	Name: "Hive (HTTP)",
	Schema: config.Schema{
		Fields: withMetastore([]config.Field{
			{Name: "host", Type: config.TypeString},
			{Name: "port", Type: config.TypeNumber},
			{Name: "database", Type: config.TypeString},
			{Name: "username", Type: config.TypeString},
			{Name: "http_scheme", Type: config.TypeString, Title: "HTTP Scheme (http or https)", Default: "https"},
			{Name: "http_path", Type: config.TypeString, Title: "HTTP Path"},
			{Name: "http_password", Type: config.TypeString, Title: "Password"},
		}, config.Field{Name: "passwd", Type: config.TypeString, Title: "Mysql Password"}),
		Order:    []string{"host", "port", "http_path", "username", "http_password", "database", "http_scheme", "mysql_host", "mysql_port", "mysql_database", "mysql_username", "passwd"},
		Required: []string{"host", "http_path"},
		Secret:   []string{"http_password", "passwd"},
	},
	Connect:           hive.ConnectHTTP,
	Types:             result.HiveTypes,
	Classify:          hive.Classify,
	NoopQuery:         "SELECT 1",
	MetastorePassword: "passwd",
}

// Impala talks to impalad over the HiveServer2 protocol.
var Impala = Variant{
	Type: "impala",
	Name: "Impala",
	Schema: config.Schema{
		Fields: withMetastore([]config.Field{
			{Name: "host", Type: config.TypeString, Title: "Host"},
			{Name: "port", Type: config.TypeNumber, Title: "Port"},
			{Name: "database", Type: config.TypeString, Title: "Database"},
			{Name: "user", Type: config.TypeString, Title: "User"},
			{Name: "password", Type: config.TypeString, Title: "Password"},
			{Name: "timeout", Type: config.TypeNumber, Title: "timeout"},
		}, config.Field{Name: "mysql_passwd", Type: config.TypeString, Title: "Mysql Password"}),
		Order:    []string{"host", "port", "database", "user", "password", "timeout", "mysql_host", "mysql_port", "mysql_database", "mysql_username", "mysql_passwd"},
		Required: []string{"host", "port", "database", "user", "password", "timeout", "mysql_host", "mysql_port", "mysql_database", "mysql_username", "mysql_passwd"},
		Secret:   []string{"password", "mysql_passwd"},
	},
	Connect:           impala.Connect,
	Types:             result.ImpalaTypes,
	Classify:          impala.Classify,
	NoopQuery:         "show schemas",
	MetastorePassword: "mysql_passwd",
}
