package metastore

import (
	"fmt"

	"github.com/koustreak/hiverunner/internal/database"
	"github.com/koustreak/hiverunner/internal/database/mysql"
	"github.com/koustreak/hiverunner/internal/database/postgres"
	"github.com/koustreak/hiverunner/internal/errs"
)

// Dialect holds the catalog queries for one metastore backing database.
// Both queries take bound parameters; names are never spliced into the text.
type Dialect struct {
	Driver database.Driver

	// TablesQuery lists the tables of one database. One parameter: the
	// database name.
	TablesQuery string

	// ColumnsQuery lists the regular columns of one table followed by its
	// partition keys, as (column_name, column_type, column_comment).
	ColumnsQuery string

	// ColumnArgs binds ColumnsQuery for a database and table.
	ColumnArgs func(db, table string) []any

	// Classify recognises the backing driver's errors.
	Classify database.Classifier
}

// MySQL is the catalog dialect of a MySQL-backed metastore.
var MySQL = Dialect{
	Driver:      database.DriverMySQL,
	TablesQuery: "select tbl_name as table_name from DBS as db inner join TBLS as tbl on db.db_id = tbl.db_id where db.name = ?",
	ColumnsQuery: "SELECT * FROM (" +
		" SELECT col.column_name as column_name, col.type_name AS column_type, col.COMMENT AS column_comment" +
		" FROM DBS AS db" +
		" INNER JOIN TBLS AS tbl ON db.db_id = tbl.db_id" +
		" INNER JOIN SDS AS sds ON tbl.sd_id = sds.sd_id" +
		" INNER JOIN COLUMNS_V2 AS col ON sds.cd_id = col.cd_id" +
		" WHERE db.name = ? AND tbl_name = ?" +
		" UNION ALL" +
		" SELECT pt.PKEY_NAME AS column_name, pt.PKEY_TYPE AS column_type, pt.PKEY_COMMENT as column_comment" +
		" FROM DBS AS db" +
		" INNER JOIN TBLS AS tbl ON db.db_id = tbl.db_id" +
		" LEFT JOIN PARTITION_KEYS AS pt ON tbl.tbl_id = pt.tbl_id" +
		" WHERE db.name = ? AND tbl_name = ?" +
		" ) AS t WHERE t.COLUMN_NAME IS NOT NULL",
	ColumnArgs: func(db, table string) []any {
		return []any{db, table, db, table}
	},
	Classify: mysql.Classify,
}

// Postgres is the catalog dialect of a PostgreSQL-backed metastore, where
// the schema tool creates quoted upper-case identifiers.
var Postgres = Dialect{
	Driver:      database.DriverPostgres,
	TablesQuery: `select tbl."TBL_NAME" as table_name from "DBS" as db inner join "TBLS" as tbl on db."DB_ID" = tbl."DB_ID" where db."NAME" = $1`,
	ColumnsQuery: `SELECT * FROM (` +
		` SELECT col."COLUMN_NAME" AS column_name, col."TYPE_NAME" AS column_type, col."COMMENT" AS column_comment` +
		` FROM "DBS" AS db` +
		` INNER JOIN "TBLS" AS tbl ON db."DB_ID" = tbl."DB_ID"` +
		` INNER JOIN "SDS" AS sds ON tbl."SD_ID" = sds."SD_ID"` +
		` INNER JOIN "COLUMNS_V2" AS col ON sds."CD_ID" = col."CD_ID"` +
		` WHERE db."NAME" = $1 AND tbl."TBL_NAME" = $2` +
		` UNION ALL` +
		` SELECT pt."PKEY_NAME" AS column_name, pt."PKEY_TYPE" AS column_type, pt."PKEY_COMMENT" AS column_comment` +
		` FROM "DBS" AS db` +
		` INNER JOIN "TBLS" AS tbl ON db."DB_ID" = tbl."DB_ID"` +
		` LEFT JOIN "PARTITION_KEYS" AS pt ON tbl."TBL_ID" = pt."TBL_ID"` +
		` WHERE db."NAME" = $1 AND tbl."TBL_NAME" = $2` +
		` ) AS t WHERE t.column_name IS NOT NULL`,
	ColumnArgs: func(db, table string) []any {
		return []any{db, table}
	},
	Classify: postgres.Classify,
}

// DialectFor returns the dialect of driver.
func DialectFor(driver database.Driver) (Dialect, error) {
	switch driver {
	case database.DriverMySQL, "":
		return MySQL, nil
	case database.DriverPostgres:
		return Postgres, nil
	default:
		return Dialect{}, errs.New(errs.ErrKindInvalidInput,
			fmt.Sprintf("unsupported metastore driver %q", driver))
	}
}
