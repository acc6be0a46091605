package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

// LevelDB has a single flat keyspace, so scalars and set members live
// under different prefixes:
//
//	v/<key>                 -> value
//	m/<set key>\x00<member> -> empty
const (
	levelValuePrefix  = "v/"
	levelMemberPrefix = "m/"
	levelSeparator    = "\x00"
)

type LevelDBDriver struct {
	db *leveldb.DB
}

// Connect opens (or creates) the database directory at dsn.
func (ld *LevelDBDriver) Connect(ctx context.Context, dsn string) error {
	if dsn == "" {
		return fmt.Errorf("leveldb path is required")
	}
	db, err := leveldb.OpenFile(dsn, nil)
	if err != nil {
		return fmt.Errorf("open leveldb: %w", err)
	}
	ld.db = db
	return nil
}

func (ld *LevelDBDriver) Ping(ctx context.Context) error {
	_, err := ld.db.GetProperty("leveldb.stats")
	return fault("ping", "", err)
}

func (ld *LevelDBDriver) Close() error {
	if ld.db == nil {
		return nil
	}
	return ld.db.Close()
}

func (ld *LevelDBDriver) Reset(ctx context.Context) error {
	batch := new(leveldb.Batch)
	iter := ld.db.NewIterator(nil, nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fault("reset", "", err)
	}
	return fault("reset", "", ld.db.Write(batch, nil))
}

func (ld *LevelDBDriver) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, fault("get", key, err)
	}
	v, err := ld.db.Get([]byte(levelValuePrefix+key), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get", key, err)
	}
	return string(v), true, nil
}

func (ld *LevelDBDriver) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return fault("set", key, err)
	}
	return fault("set", key, ld.db.Put([]byte(levelValuePrefix+key), []byte(value), nil))
}

func (ld *LevelDBDriver) Del(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return fault("del", key, err)
	}
	batch := new(leveldb.Batch)
	batch.Delete([]byte(levelValuePrefix + key))
	iter := ld.db.NewIterator(util.BytesPrefix(memberPrefix(key)), nil)
	for iter.Next() {
		batch.Delete(append([]byte(nil), iter.Key()...))
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return fault("del", key, err)
	}
	return fault("del", key, ld.db.Write(batch, nil))
}

func (ld *LevelDBDriver) SAdd(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return fault("sadd", key, err)
	}
	if len(members) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, m := range members {
		batch.Put(memberKey(key, m), nil)
	}
	return fault("sadd", key, ld.db.Write(batch, nil))
}

func (ld *LevelDBDriver) SRem(ctx context.Context, key string, members ...string) error {
	if err := ctx.Err(); err != nil {
		return fault("srem", key, err)
	}
	if len(members) == 0 {
		return nil
	}
	batch := new(leveldb.Batch)
	for _, m := range members {
		batch.Delete(memberKey(key, m))
	}
	return fault("srem", key, ld.db.Write(batch, nil))
}

func (ld *LevelDBDriver) SMembers(ctx context.Context, key string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, fault("smembers", key, err)
	}
	prefix := memberPrefix(key)
	iter := ld.db.NewIterator(util.BytesPrefix(prefix), nil)
	defer iter.Release()

	var members []string
	for iter.Next() {
		members = append(members, string(iter.Key()[len(prefix):]))
	}
	if err := iter.Error(); err != nil {
		return nil, fault("smembers", key, err)
	}
	return members, nil
}

func memberPrefix(key string) []byte {
	return []byte(levelMemberPrefix + key + levelSeparator)
}

func memberKey(key, member string) []byte {
	return append(memberPrefix(key), member...)
}

var _ Driver = (*LevelDBDriver)(nil)
