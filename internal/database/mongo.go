package database

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	mongoDatabase   = "socialkv"
	mongoCollection = "kv"
)

type MongoDriver struct {
	client *mongo.Client
	kv     *mongo.Collection
}

type mongoScalar struct {
	Value *string `bson:"value"`
}

type mongoSet struct {
	Members []string `bson:"members"`
}

func (md *MongoDriver) Connect(ctx context.Context, dsn string) error {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(dsn))
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return fmt.Errorf("ping mongo: %w", err)
	}
	md.client = client
	md.kv = client.Database(mongoDatabase).Collection(mongoCollection)
	return nil
}

func (md *MongoDriver) Ping(ctx context.Context) error {
	return fault("ping", "", md.client.Ping(ctx, nil))
}

func (md *MongoDriver) Close() error {
	if md.client == nil {
		return nil
	}
	return md.client.Disconnect(context.Background())
}

func (md *MongoDriver) Reset(ctx context.Context) error {
	_, err := md.kv.DeleteMany(ctx, bson.M{})
	return fault("reset", "", err)
}

func (md *MongoDriver) Get(ctx context.Context, key string) (string, bool, error) {
	var doc mongoScalar
	err := md.kv.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fault("get", key, err)
	}
	if doc.Value == nil {
		return "", false, nil
	}
	return *doc.Value, true, nil
}

func (md *MongoDriver) Set(ctx context.Context, key, value string) error {
	_, err := md.kv.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$set": bson.M{"value": value}},
		options.Update().SetUpsert(true))
	return fault("set", key, err)
}

func (md *MongoDriver) Del(ctx context.Context, key string) error {
	_, err := md.kv.DeleteOne(ctx, bson.M{"_id": key})
	return fault("del", key, err)
}

func (md *MongoDriver) SAdd(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := md.kv.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$addToSet": bson.M{"members": bson.M{"$each": members}}},
		options.Update().SetUpsert(true))
	return fault("sadd", key, err)
}

func (md *MongoDriver) SRem(ctx context.Context, key string, members ...string) error {
	if len(members) == 0 {
		return nil
	}
	_, err := md.kv.UpdateOne(ctx,
		bson.M{"_id": key},
		bson.M{"$pull": bson.M{"members": bson.M{"$in": members}}})
	return fault("srem", key, err)
}

func (md *MongoDriver) SMembers(ctx context.Context, key string) ([]string, error) {
	var doc mongoSet
	err := md.kv.FindOne(ctx, bson.M{"_id": key}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fault("smembers", key, err)
	}
	return doc.Members, nil
}

var _ Driver = (*MongoDriver)(nil)
