package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// MongoStoreOptions MongoDB 缓存配置选项
type MongoStoreOptions struct {
	Uri        string
	Database   string
	Collection string
	Username   string
	Password   string
	Timeout    time.Duration
}

// NewDefaultMongoOptions 创建默认配置
func NewDefaultMongoOptions(uri string) *MongoStoreOptions {
	return &MongoStoreOptions{
		Uri:        uri,
		Database:   "poet",
		Collection: "cache_entries",
		Timeout:    10 * time.Second,
	}
}

// Validate 验证配置
func (o *MongoStoreOptions) Validate() error {
	if o.Uri == "" {
		return fmt.Errorf("mongo uri is required")
	}
	if o.Database == "" {
		return fmt.Errorf("mongo database is required")
	}
	if o.Collection == "" {
		return fmt.Errorf("mongo collection is required")
	}
	return nil
}

// mongoEntry 缓存文档
type mongoEntry struct {
	Fingerprint string    `bson:"_id"`
	Value       []byte    `bson:"value"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

// MongoStore 基于 MongoDB 的指纹缓存
//
// 适合多台爬取节点共享同一份 Provider 结果缓存。
type MongoStore struct {
	client *mongo.Client
	coll   *mongo.Collection
	opts   MongoStoreOptions
}

// NewMongoStore 创建 MongoDB 缓存
func NewMongoStore(opts *MongoStoreOptions) (*MongoStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid mongo configuration: %w", err)
	}

	clientOpts := options.Client().ApplyURI(opts.Uri)
	if opts.Username != "" || opts.Password != "" {
		clientOpts.SetAuth(options.Credential{
			Username: opts.Username,
			Password: opts.Password,
		})
	}
	if opts.Timeout > 0 {
		clientOpts.SetConnectTimeout(opts.Timeout)
	}

	client, err := mongo.Connect(clientOpts)
	if err != nil {
		return nil, fmt.Errorf("cache: failed to create mongo client: %w", err)
	}

	return &MongoStore{
		client: client,
		coll:   client.Database(opts.Database).Collection(opts.Collection),
		opts:   *opts,
	}, nil
}

// Get 读取指纹对应的值
func (s *MongoStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	var entry mongoEntry
	err := s.coll.FindOne(ctx, bson.M{"_id": fingerprint}).Decode(&entry)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: mongo get failed: %w", err)
	}
	return entry.Value, nil
}

// Put 写入指纹对应的值（upsert）
func (s *MongoStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	entry := mongoEntry{
		Fingerprint: fingerprint,
		Value:       value,
		UpdatedAt:   time.Now(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": fingerprint}, entry,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("cache: mongo put failed: %w", err)
	}
	return nil
}

// Close 断开客户端连接
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), s.opts.Timeout)
	defer cancel()
	return s.client.Disconnect(ctx)
}

// Purge 删除 olderThan 之前写入的条目
func (s *MongoStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	result, err := s.coll.DeleteMany(ctx, bson.M{"updated_at": bson.M{"$lt": olderThan}})
	if err != nil {
		return 0, fmt.Errorf("cache: mongo purge failed: %w", err)
	}
	return int(result.DeletedCount), nil
}
