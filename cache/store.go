// Package cache 提供 Provider 结果的持久化指纹缓存。
//
// Store 是核心唯一的跨请求状态：以指纹为键的字节存储。值的字节
// 布局由各 Provider 自行定义，对存储不透明。并发读写不同指纹互不
// 干扰；同一指纹的写入以最后一次为准。
package cache

import (
	"context"
	"errors"
	"time"
)

// ErrKeyNotFound 指纹不存在
var ErrKeyNotFound = errors.New("cache: key not found")

// Store 指纹缓存存储接口
type Store interface {
	// Get 读取指纹对应的值，不存在时返回 ErrKeyNotFound
	Get(ctx context.Context, fingerprint string) ([]byte, error)
	// Put 写入指纹对应的值
	Put(ctx context.Context, fingerprint string, value []byte) error
	// Close 释放存储资源
	Close() error
}

// Purger 支持过期清理的存储
//
// 由 Janitor 周期性调用；不支持过期概念的存储（如带 TTL 的 Redis）
// 不需要实现。
type Purger interface {
	// Purge 删除 olderThan 之前写入的条目，返回删除数量
	Purge(ctx context.Context, olderThan time.Time) (int, error)
}

// NullStore 丢弃一切写入的空存储（禁用缓存时使用）
type NullStore struct{}

func (NullStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	return nil, ErrKeyNotFound
}

func (NullStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	return nil
}

func (NullStore) Close() error { return nil }
