package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisStoreOptions Redis 缓存配置选项
type RedisStoreOptions struct {
	Addr         string        // Redis 服务器地址 (host:port)
	Password     string        // 密码（可选）
	DB           int           // 数据库编号
	KeyPrefix    string        // 键前缀，区分多个爬取项目
	TTL          time.Duration // 条目过期时间，0 表示不过期
	DialTimeout  time.Duration // 连接超时时间
	ReadTimeout  time.Duration // 读取超时时间
	WriteTimeout time.Duration // 写入超时时间
}

// NewDefaultRedisOptions 创建默认配置
func NewDefaultRedisOptions(addr string) *RedisStoreOptions {
	return &RedisStoreOptions{
		Addr:         addr,
		KeyPrefix:    "poet-cache",
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

// Validate 验证配置
func (o *RedisStoreOptions) Validate() error {
	if o.Addr == "" {
		return fmt.Errorf("redis address is required")
	}
	if o.DB < 0 {
		return fmt.Errorf("redis database number must be non-negative")
	}
	if o.TTL < 0 {
		return fmt.Errorf("redis TTL must be non-negative")
	}
	return nil
}

// RedisStore Redis 指纹缓存
//
// 过期由 Redis 的 TTL 负责，因此不实现 Purger。
type RedisStore struct {
	client *redis.Client
	opts   RedisStoreOptions
}

// NewRedisStore 创建 Redis 缓存
func NewRedisStore(opts *RedisStoreOptions) (*RedisStore, error) {
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid redis configuration: %w", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})
	return &RedisStore{client: client, opts: *opts}, nil
}

func (s *RedisStore) key(fingerprint string) string {
	return s.opts.KeyPrefix + ":" + fingerprint
}

// Get 读取指纹对应的值
func (s *RedisStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	data, err := s.client.Get(ctx, s.key(fingerprint)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: redis get failed: %w", err)
	}
	return data, nil
}

// Put 写入指纹对应的值
func (s *RedisStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	if err := s.client.Set(ctx, s.key(fingerprint), value, s.opts.TTL).Err(); err != nil {
		return fmt.Errorf("cache: redis set failed: %w", err)
	}
	return nil
}

// Close 关闭客户端连接
func (s *RedisStore) Close() error {
	return s.client.Close()
}
