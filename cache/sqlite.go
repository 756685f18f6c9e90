package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// sqliteEntry 缓存表模型
type sqliteEntry struct {
	Fingerprint string `gorm:"primaryKey;size:128"`
	Value       []byte
	UpdatedAt   time.Time `gorm:"index"`
}

func (sqliteEntry) TableName() string { return "cache_entries" }

// SqliteStore 基于 SQLite 的指纹缓存
//
// 单文件存储，适合单机爬取作业在多次运行之间复用 Provider 结果。
type SqliteStore struct {
	db *gorm.DB
}

// NewSqliteStore 创建 SQLite 缓存，数据库文件不存在时自动创建
func NewSqliteStore(path string) (*SqliteStore, error) {
	if path == "" {
		return nil, fmt.Errorf("cache: database path is required")
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("cache: failed to open sqlite database %s: %w", path, err)
	}
	if err := db.AutoMigrate(&sqliteEntry{}); err != nil {
		return nil, fmt.Errorf("cache: failed to migrate cache table: %w", err)
	}
	return &SqliteStore{db: db}, nil
}

// Get 读取指纹对应的值
func (s *SqliteStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	var entry sqliteEntry
	err := s.db.WithContext(ctx).First(&entry, "fingerprint = ?", fingerprint).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrKeyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("cache: sqlite get failed: %w", err)
	}
	return entry.Value, nil
}

// Put 写入指纹对应的值（存在时覆盖）
func (s *SqliteStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	entry := sqliteEntry{
		Fingerprint: fingerprint,
		Value:       value,
		UpdatedAt:   time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(&entry).Error; err != nil {
		return fmt.Errorf("cache: sqlite put failed: %w", err)
	}
	return nil
}

// Close 关闭底层连接
func (s *SqliteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Purge 删除 olderThan 之前写入的条目
func (s *SqliteStore) Purge(ctx context.Context, olderThan time.Time) (int, error) {
	result := s.db.WithContext(ctx).Where("updated_at < ?", olderThan).Delete(&sqliteEntry{})
	if result.Error != nil {
		return 0, fmt.Errorf("cache: sqlite purge failed: %w", result.Error)
	}
	return int(result.RowsAffected), nil
}
