package database

import (
	"context"
	"fmt"

	_ "modernc.org/sqlite"
)

// SQLiteDriver is an embedded backend. The DSN is a file path (query
// parameters allowed) or ":memory:".
type SQLiteDriver struct {
	sqlKV
}

func (sd *SQLiteDriver) Connect(ctx context.Context, dsn string) error {
	dsn = trimDSN(dsn)
	if dsn == "" {
		return fmt.Errorf("sqlite path is required")
	}
	sd.dialect = sqlDialect{
		driverName:   "sqlite",
		schema:       GetSQLiteSchema(),
		selectValue:  "SELECT value FROM kv_values WHERE key = ?",
		upsertValue:  "INSERT INTO kv_values (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		deleteValue:  "DELETE FROM kv_values WHERE key = ?",
		insertMember: "INSERT OR IGNORE INTO kv_members (set_key, member) VALUES (?, ?)",
		deleteMember: "DELETE FROM kv_members WHERE set_key = ? AND member = ?",
		deleteSet:    "DELETE FROM kv_members WHERE set_key = ?",
		listMembers:  "SELECT member FROM kv_members WHERE set_key = ?",
		reset:        []string{"DELETE FROM kv_values", "DELETE FROM kv_members"},
		// One connection serializes writers and keeps ":memory:" databases
		// shared across calls.
		maxOpenConns: 1,
	}
	return sd.open(ctx, dsn)
}

var _ Driver = (*SQLiteDriver)(nil)
