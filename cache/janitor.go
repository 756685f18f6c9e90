package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/scrapinghub/scrapy-poet-sub000/logging"
)

// JanitorOptions 缓存清理任务配置选项
type JanitorOptions struct {
	// Schedule cron 表达式，如 "0 3 * * *"（每天凌晨3点）
	Schedule string
	// MaxAge 条目的最大保留时长
	MaxAge time.Duration
	// Timeout 单次清理的超时时间
	Timeout time.Duration
}

// NewDefaultJanitorOptions 创建默认配置：每天凌晨3点清理7天前的条目
func NewDefaultJanitorOptions() *JanitorOptions {
	return &JanitorOptions{
		Schedule: "0 3 * * *",
		MaxAge:   7 * 24 * time.Hour,
		Timeout:  5 * time.Minute,
	}
}

// Validate 验证配置
func (o *JanitorOptions) Validate() error {
	if o.Schedule == "" {
		return fmt.Errorf("janitor schedule is required")
	}
	if o.MaxAge <= 0 {
		return fmt.Errorf("janitor max age must be positive")
	}
	return nil
}

// Janitor 周期性清理过期缓存条目
//
// 只对实现了 Purger 的存储生效。
type Janitor struct {
	store  Purger
	opts   JanitorOptions
	cron   *cron.Cron
	logger logging.Logger
}

// NewJanitor 创建清理任务
func NewJanitor(store Purger, opts *JanitorOptions, logger logging.Logger) (*Janitor, error) {
	if store == nil {
		return nil, fmt.Errorf("cache: a purgeable store is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, fmt.Errorf("cache: invalid janitor configuration: %w", err)
	}
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	return &Janitor{
		store:  store,
		opts:   *opts,
		cron:   cron.New(),
		logger: logger.WithCategory("cache-janitor"),
	}, nil
}

// Start 启动调度
func (j *Janitor) Start() error {
	_, err := j.cron.AddFunc(j.opts.Schedule, j.run)
	if err != nil {
		return fmt.Errorf("cache: invalid janitor schedule %q: %w", j.opts.Schedule, err)
	}
	j.cron.Start()
	j.logger.Info("cache janitor started",
		logging.Field{Key: "schedule", Value: j.opts.Schedule},
		logging.Field{Key: "max_age", Value: j.opts.MaxAge})
	return nil
}

// Stop 停止调度，等待进行中的清理完成
func (j *Janitor) Stop() {
	ctx := j.cron.Stop()
	<-ctx.Done()
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.opts.Timeout)
	defer cancel()

	removed, err := j.store.Purge(ctx, time.Now().Add(-j.opts.MaxAge))
	if err != nil {
		j.logger.Error("cache purge failed", logging.Field{Key: "error", Value: err})
		return
	}
	j.logger.Info("cache purge completed", logging.Field{Key: "removed", Value: removed})
}
