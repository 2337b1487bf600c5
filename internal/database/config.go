package database

import "time"

// Driver identifies the relational engine behind a metastore.
type Driver string

const (
	DriverMySQL    Driver = "mysql"
	DriverPostgres Driver = "postgres"
)

// Config holds the settings needed to open a single relational connection
// (the metastore's backing database).
type Config struct {
	Driver   Driver
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string // postgres only, "disable" when empty

	// ConnectTimeout bounds connection establishment. Zero means no limit.
	ConnectTimeout time.Duration
}

// DefaultConnectTimeout matches the metastore connect timeout hosts expect.
const DefaultConnectTimeout = 60 * time.Second
