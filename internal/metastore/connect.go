package metastore

import (
	"context"

	"github.com/koustreak/hiverunner/internal/config"
	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/database/mysql"
	"github.com/koustreak/hiverunner/internal/database/postgres"
	"github.com/koustreak/hiverunner/internal/errs"
)

// Setting names of the metastore connection, shared by every runner.
const (
	KeyDriver   = "metastore_driver"
	KeyHost     = "mysql_host"
	KeyPort     = "mysql_port"
	KeyDatabase = "mysql_database"
	KeyUsername = "mysql_username"
	KeySSLMode  = "mysql_sslmode"
)

// Defaults of the metastore connection settings.
const (
	DefaultPort     = 3306
	DefaultDatabase = "hive_test"
	DefaultUsername = "root"
)

// ConfigFromSettings reads the metastore connection out of a runner's
// settings. The password key differs per runner.
func ConfigFromSettings(s config.Settings, passwordKey string) (*database.Config, error) {
	port, err := s.Int(KeyPort, DefaultPort)
	if err != nil {
		return nil, err
	}
	return &database.Config{
		Driver:         database.Driver(s.String(KeyDriver, string(database.DriverMySQL))),
		Host:           s.String(KeyHost, ""),
		Port:           port,
		User:           s.String(KeyUsername, DefaultUsername),
		Password:       s.String(passwordKey, ""),
		Database:       s.String(KeyDatabase, DefaultDatabase),
		SSLMode:        s.String(KeySSLMode, ""),
		ConnectTimeout: database.DefaultConnectTimeout,
	}, nil
}

// Opener returns an OpenFunc dialling cfg with the matching driver.
func Opener(cfg *database.Config) OpenFunc {
	return func(ctx context.Context) (database.Session, error) {
		var (
			sess *database.SQLSession
			err  error
		)
		switch cfg.Driver {
		case database.DriverPostgres:
			sess, err = postgres.Open(ctx, cfg)
		case database.DriverMySQL, "":
			sess, err = mysql.Open(ctx, cfg)
		default:
			return nil, errs.New(errs.ErrKindInvalidInput, "unsupported metastore driver "+string(cfg.Driver))
		}
		if err != nil {
			return nil, err
		}
		return sess, nil
	}
}

// NewWalker builds a Walker for the metastore described by a runner's
// settings.
func NewWalker(s config.Settings, passwordKey string) (*Walker, error) {
	cfg, err := ConfigFromSettings(s, passwordKey)
	if err != nil {
		return nil, err
	}
	dialect, err := DialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	return &Walker{Open: Opener(cfg), Dialect: dialect}, nil
}
