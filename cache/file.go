package cache

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// FileStore 基于目录的指纹缓存
//
// 每个指纹对应一个文件，按指纹前两个字符分桶，避免单目录文件
// 过多。文件修改时间即写入时间，Purge 以此判断过期。
type FileStore struct {
	dir string
}

// NewFileStore 创建文件缓存，目录不存在时自动创建
func NewFileStore(dir string) (*FileStore, error) {
	if dir == "" {
		return nil, fmt.Errorf("cache: directory is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cache: failed to create directory %s: %w", dir, err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(fingerprint string) string {
	// 指纹中可能带有 "prefix:hash" 形式的冒号，替换为文件名安全字符
	name := strings.ReplaceAll(fingerprint, ":", "_")
	bucket := "00"
	if len(name) >= 2 {
		bucket = name[len(name)-2:]
	}
	return filepath.Join(s.dir, bucket, name)
}

// Get 读取指纹对应的值
func (s *FileStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	data, err := os.ReadFile(s.path(fingerprint))
	if os.IsNotExist(err) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: failed to read entry: %w", err)
	}
	return data, nil
}

// Put 写入指纹对应的值
//
// 先写临时文件再重命名，崩溃时不会留下半写的条目。
func (s *FileStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	path := s.path(fingerprint)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("cache: failed to create bucket: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".tmp-*")
	if err != nil {
		return fmt.Errorf("cache: failed to create temp file: %w", err)
	}
	if _, err := tmp.Write(value); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: failed to write entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("cache: failed to close temp file: %w", err)
	}
	return os.Rename(tmp.Name(), path)
}

// Close 实现 Store 接口，文件存储无需释放
func (s *FileStore) Close() error { return nil }

// Purge 删除 olderThan 之前写入的条目
func (s *FileStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	removed := 0
	err := filepath.Walk(s.dir, func(path string, info os.FileInfo, err error) error {
		if err != nil || info.IsDir() {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if info.ModTime().Before(olderThan) {
			if err := os.Remove(path); err == nil {
				removed++
			}
		}
		return nil
	})
	return removed, err
}
