package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

// sqlDialect holds the statements that differ between database/sql backends.
type sqlDialect struct {
	driverName   string
	schema       []string
	selectValue  string
	upsertValue  string
	deleteValue  string
	insertMember string
	deleteMember string
	deleteSet    string
	listMembers  string
	reset        []string
	maxOpenConns int
}

// sqlKV implements the primitive on top of database/sql. All placeholders
// are "?" so MySQL and SQLite share it.
type sqlKV struct {
	db      *sql.DB
	dialect sqlDialect
}

func (s *sqlKV) open(ctx context.Context, dsn string) error {
	db, err := sql.Open(s.dialect.driverName, dsn)
	if err != nil {
		return fmt.Errorf("open %s db: %w", s.dialect.driverName, err)
	}
	if s.dialect.maxOpenConns > 0 {
		db.SetMaxOpenConns(s.dialect.maxOpenConns)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return fmt.Errorf("ping %s db: %w", s.dialect.driverName, err)
	}
	for _, stmt := range s.dialect.schema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return fmt.Errorf("create %s schema: %w", s.dialect.driverName, err)
		}
	}
	s.db = db
	return nil
}

func (s *sqlKV) Ping(ctx context.Context) error {
	return fault("ping", "", s.db.PingContext(ctx))
}

func (s *sqlKV) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *sqlKV) Reset(ctx context.Context) error {
	for _, stmt := range s.dialect.reset {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fault("reset", "", err)
		}
	}
	return nil
}

func (s *sqlKV) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := s.db.QueryRowContext(ctx, s.dialect.selectValue, key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get", key, err)
	}
	return value, true, nil
}

func (s *sqlKV) Set(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, s.dialect.upsertValue, key, value)
	return fault("set", key, err)
}

func (s *sqlKV) Del(ctx context.Context, key string) error {
	return fault("del", key, s.executeTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, s.dialect.deleteValue, key); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, s.dialect.deleteSet, key)
		return err
	}))
}

func (s *sqlKV) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return fault("sadd", key, s.executeTx(ctx, func(tx *sql.Tx) error {
		for _, m := range dedupe(members) {
			if _, err := tx.ExecContext(ctx, s.dialect.insertMember, key, m); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *sqlKV) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return fault("srem", key, s.executeTx(ctx, func(tx *sql.Tx) error {
		for _, m := range members {
			if _, err := tx.ExecContext(ctx, s.dialect.deleteMember, key, m); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (s *sqlKV) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, s.dialect.listMembers, key)
	if err != nil {
		return nil, fault("smembers", key, err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fault("smembers", key, err)
		}
		members = append(members, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fault("smembers", key, err)
	}
	return members, nil
}

func (s *sqlKV) executeTx(ctx context.Context, txFunc func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	if err := txFunc(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Join(err, rbErr)
		}
		return err
	}

	return tx.Commit()
}

func trimDSN(dsn string) string { return strings.TrimSpace(dsn) }
