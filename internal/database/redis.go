package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisDriver maps the primitive one-to-one onto Redis commands.
type RedisDriver struct {
	client *redis.Client
}

// Connect accepts either a redis:// URL or a bare host:port address.
func (rd *RedisDriver) Connect(ctx context.Context, dsn string) error {
	opts, err := redis.ParseURL(dsn)
	if err != nil {
		opts = &redis.Options{Addr: dsn}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return fmt.Errorf("ping redis: %w", err)
	}
	rd.client = client
	return nil
}

func (rd *RedisDriver) Ping(ctx context.Context) error {
	return fault("ping", "", rd.client.Ping(ctx).Err())
}

func (rd *RedisDriver) Close() error {
	if rd.client == nil {
		return nil
	}
	return rd.client.Close()
}

func (rd *RedisDriver) Reset(ctx context.Context) error {
	return fault("flushdb", "", rd.client.FlushDB(ctx).Err())
}

func (rd *RedisDriver) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := rd.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get", key, err)
	}
	return v, true, nil
}

func (rd *RedisDriver) Set(ctx context.Context, key, value string) error {
	return fault("set", key, rd.client.Set(ctx, key, value, 0).Err())
}

func (rd *RedisDriver) Del(ctx context.Context, key string) error {
	return fault("del", key, rd.client.Del(ctx, key).Err())
}

func (rd *RedisDriver) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return fault("sadd", key, rd.client.SAdd(ctx, key, toArgs(members)...).Err())
}

func (rd *RedisDriver) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	return fault("srem", key, rd.client.SRem(ctx, key, toArgs(members)...).Err())
}

func (rd *RedisDriver) SMembers(ctx context.Context, key string) ([]string, error) {
	members, err := rd.client.SMembers(ctx, key).Result()
	if err != nil {
		return nil, fault("smembers", key, err)
	}
	return members, nil
}

func toArgs(members []string) []interface{} {
	args := make([]interface{}, len(members))
	for i, m := range members {
		args[i] = m
	}
	return args
}

var _ Driver = (*RedisDriver)(nil)
