// Package stats 提供抓取统计计数器。
package stats

import "sync"

// Sink 统计接收器接口
//
// 它是注入上下文中的框架单例之一，核心组件用它统计缓存命中、
// Provider 调用次数、跳过的下载等。
type Sink interface {
	// Inc 将计数器 key 增加 delta
	Inc(key string, delta int64)
	// Get 返回计数器当前值
	Get(key string) int64
	// Snapshot 返回所有计数器的副本
	Snapshot() map[string]int64
}

// memorySink 进程内统计实现
type memorySink struct {
	mu       sync.RWMutex
	counters map[string]int64
}

// NewMemorySink 创建进程内统计接收器
func NewMemorySink() Sink {
	return &memorySink{counters: make(map[string]int64)}
}

func (s *memorySink) Inc(key string, delta int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counters[key] += delta
}

func (s *memorySink) Get(key string) int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters[key]
}

func (s *memorySink) Snapshot() map[string]int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make(map[string]int64, len(s.counters))
	for k, v := range s.counters {
		result[k] = v
	}
	return result
}
