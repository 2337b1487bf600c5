package mysql

import (
	"net"
	"strconv"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/koustreak/hiverunner/internal/database"
)

const defaultPort = 3306

// buildDSN constructs the go-sql-driver DSN for a metastore connection:
// user:pass@tcp(host:port)/dbname?charset=utf8&parseTime=true
func buildDSN(cfg *database.Config) string {
	port := cfg.Port
	if port == 0 {
		port = defaultPort
	}

	c := gomysql.NewConfig()
	c.User = cfg.User
	c.Passwd = cfg.Password
	c.Net = "tcp"
	c.Addr = net.JoinHostPort(cfg.Host, strconv.Itoa(port))
	c.DBName = cfg.Database
	c.ParseTime = true
	c.Timeout = cfg.ConnectTimeout
	c.Params = map[string]string{"charset": "utf8"}
	return c.FormatDSN()
}
