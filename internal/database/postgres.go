package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresDriver struct {
	pool *pgxpool.Pool
}

func (pd *PostgresDriver) Connect(ctx context.Context, dsn string) error {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	for _, stmt := range GetPostgresSchema() {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			pool.Close()
			return fmt.Errorf("create postgres schema: %w", err)
		}
	}
	pd.pool = pool
	return nil
}

func (pd *PostgresDriver) Ping(ctx context.Context) error {
	return fault("ping", "", pd.pool.Ping(ctx))
}

func (pd *PostgresDriver) Close() error {
	if pd.pool != nil {
		pd.pool.Close()
	}
	return nil
}

func (pd *PostgresDriver) Reset(ctx context.Context) error {
	_, err := pd.pool.Exec(ctx, "TRUNCATE kv_values, kv_members")
	return fault("reset", "", err)
}

func (pd *PostgresDriver) Get(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := pd.pool.QueryRow(ctx, "SELECT value FROM kv_values WHERE key = $1", key).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get", key, err)
	}
	return value, true, nil
}

func (pd *PostgresDriver) Set(ctx context.Context, key, value string) error {
	_, err := pd.pool.Exec(ctx,
		`INSERT INTO kv_values (key, value) VALUES ($1, $2)
		 ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`,
		key, value)
	return fault("set", key, err)
}

func (pd *PostgresDriver) Del(ctx context.Context, key string) error {
	return fault("del", key, pd.executeTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, "DELETE FROM kv_values WHERE key = $1", key); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, "DELETE FROM kv_members WHERE set_key = $1", key)
		return err
	}))
}

func (pd *PostgresDriver) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return fault("sadd", key, pd.executeTx(ctx, func(tx pgx.Tx) error {
		for _, m := range dedupe(members) {
			if _, err := tx.Exec(ctx,
				"INSERT INTO kv_members (set_key, member) VALUES ($1, $2) ON CONFLICT DO NOTHING",
				key, m); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (pd *PostgresDriver) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := pd.pool.Exec(ctx,
		"DELETE FROM kv_members WHERE set_key = $1 AND member = ANY($2)",
		key, members)
	return fault("srem", key, err)
}

func (pd *PostgresDriver) SMembers(ctx context.Context, key string) ([]string, error) {
	rows, err := pd.pool.Query(ctx, "SELECT member FROM kv_members WHERE set_key = $1", key)
	if err != nil {
		return nil, fault("smembers", key, err)
	}
	members, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fault("smembers", key, err)
	}
	return members, nil
}

func (pd *PostgresDriver) executeTx(ctx context.Context, txFunc func(pgx.Tx) error) (err error) {
	tx, err := pd.pool.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback(ctx)
			panic(p) // re-panic after rollback
		} else if err != nil {
			tx.Rollback(ctx) // err is non-nil; don't change it
		} else {
			err = tx.Commit(ctx) // err is nil; if Commit returns error, update err
		}
	}()

	err = txFunc(tx)
	return err
}

var _ Driver = (*PostgresDriver)(nil)
