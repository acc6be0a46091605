package database

import (
	"context"

	_ "github.com/go-sql-driver/mysql"
)

// MySQLDriver needs a DSN in go-sql-driver form, e.g.
// "user:pass@tcp(localhost:3306)/socialkv".
type MySQLDriver struct {
	sqlKV
}

func (md *MySQLDriver) Connect(ctx context.Context, dsn string) error {
	md.dialect = sqlDialect{
		driverName:   "mysql",
		schema:       GetMySQLSchema(),
		selectValue:  "SELECT value FROM kv_values WHERE `key` = ?",
		upsertValue:  "INSERT INTO kv_values (`key`, value) VALUES (?, ?) ON DUPLICATE KEY UPDATE value = VALUES(value)",
		deleteValue:  "DELETE FROM kv_values WHERE `key` = ?",
		insertMember: "INSERT IGNORE INTO kv_members (set_key, member) VALUES (?, ?)",
		deleteMember: "DELETE FROM kv_members WHERE set_key = ? AND member = ?",
		deleteSet:    "DELETE FROM kv_members WHERE set_key = ?",
		listMembers:  "SELECT member FROM kv_members WHERE set_key = ?",
		reset:        []string{"TRUNCATE TABLE kv_values", "TRUNCATE TABLE kv_members"},
	}
	return md.open(ctx, trimDSN(dsn))
}

var _ Driver = (*MySQLDriver)(nil)
