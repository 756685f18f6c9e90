package injection

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/gob"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"

	"github.com/scrapinghub/scrapy-poet-sub000/cache"
	"github.com/scrapinghub/scrapy-poet-sub000/logging"
	"github.com/scrapinghub/scrapy-poet-sub000/stats"
	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

// Fingerprinter 自定义指纹的 Provider 可实现此接口
type Fingerprinter interface {
	Fingerprint(url string, requested []reflect.Type) string
}

// Fingerprint 计算默认缓存指纹
//
// 由 Provider 名称、目标 URL 和请求类型集（排序后）哈希得出。
func Fingerprint(name, url string, requested []reflect.Type) string {
	names := make([]string, len(requested))
	for i, t := range requested {
		names[i] = t.String()
	}
	sort.Strings(names)

	data, _ := json.Marshal([]any{name, url, names})
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", name, hex.EncodeToString(hash[:]))
}

// CachedError 从缓存重放的 Provider 失败
type CachedError struct {
	Message string
}

func (e *CachedError) Error() string { return e.Message }

// cachedItem 单个结果的序列化形式
type cachedItem struct {
	TypeName string
	Blob     []byte
}

// cachedEntry 一次 Provider 调用的序列化结果
type cachedEntry struct {
	Failed  bool
	Message string
	Items   []cachedItem
}

// CachedProviderOptions 缓存包装配置选项
type CachedProviderOptions struct {
	// CacheErrors 为 true 时，Provider 的失败也会被持久化，
	// 缓存命中时原样重放
	CacheErrors bool
	Stats       stats.Sink
	Logger      logging.Logger
}

// CachedProvider 带持久化缓存的 Provider 包装
//
// 调用前先以指纹查询缓存：命中时反序列化结果直接返回，不再调用
// 被包装的 Provider；未命中时执行真实调用并把结果（或启用错误缓存
// 时的失败）以指纹为键持久化。
type CachedProvider struct {
	inner    Provider
	store    cache.Store
	opts     CachedProviderOptions
	requires []reflect.Type
	logger   logging.Logger
}

// NewCachedProvider 创建缓存包装
func NewCachedProvider(inner Provider, store cache.Store, opts *CachedProviderOptions) (*CachedProvider, error) {
	if inner == nil {
		return nil, fmt.Errorf("injection: inner provider is required")
	}
	if store == nil {
		return nil, fmt.Errorf("injection: cache store is required")
	}
	if opts == nil {
		opts = &CachedProviderOptions{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	// 指纹需要目标 URL：内层未声明请求依赖时由包装层补上
	requires := inner.Requires()
	hasRequest := false
	for _, t := range requires {
		if t == requestType {
			hasRequest = true
			break
		}
	}
	if !hasRequest {
		requires = append(append([]reflect.Type{}, requires...), requestType)
	}

	return &CachedProvider{
		inner:    inner,
		store:    store,
		opts:     *opts,
		requires: requires,
		logger:   logger.WithCategory("cached-provider"),
	}, nil
}

// Name 返回被包装 Provider 的名称
func (c *CachedProvider) Name() string { return c.inner.Name() }

// Provides 委托被包装的 Provider
func (c *CachedProvider) Provides() any { return c.inner.Provides() }

// Requires 返回内层依赖加上指纹所需的当前请求
func (c *CachedProvider) Requires() []reflect.Type { return c.requires }

// Provide 先查缓存，未命中时调用内层 Provider 并持久化结果
func (c *CachedProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	innerDeps := deps[:len(c.inner.Requires())]
	url := c.depsURL(deps)

	fp := c.fingerprint(url, requested)

	if blob, err := c.store.Get(ctx, fp); err == nil {
		if results, rerr, ok := c.decode(blob, requested); ok {
			c.count("poet/cache_hits")
			if rerr != nil {
				return nil, rerr
			}
			return results, nil
		}
		// 条目损坏或无法重放：当作未命中
		c.logger.Warn("discarding unreadable cache entry", logging.Field{Key: "fingerprint", Value: fp})
	} else if !errors.Is(err, cache.ErrKeyNotFound) {
		return nil, fmt.Errorf("injection: cache lookup failed: %w", err)
	}

	c.count("poet/cache_misses")

	results, err := c.inner.Provide(ctx, requested, innerDeps)
	if err != nil {
		if c.opts.CacheErrors && ctx.Err() == nil {
			c.persist(ctx, fp, &cachedEntry{Failed: true, Message: err.Error()})
		}
		return nil, err
	}

	if entry, ok := c.encode(results); ok {
		c.persist(ctx, fp, entry)
	}
	return results, nil
}

func (c *CachedProvider) fingerprint(url string, requested []reflect.Type) string {
	if f, ok := c.inner.(Fingerprinter); ok {
		return f.Fingerprint(url, requested)
	}
	return Fingerprint(c.inner.Name(), url, requested)
}

// depsURL 从依赖实例中提取目标 URL
func (c *CachedProvider) depsURL(deps []any) string {
	for _, dep := range deps {
		switch v := dep.(type) {
		case *web.Request:
			return v.URL
		case *web.Response:
			return v.URL()
		case *web.DummyResponse:
			return v.URL()
		}
	}
	return ""
}

func (c *CachedProvider) persist(ctx context.Context, fp string, entry *cachedEntry) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(entry); err != nil {
		c.logger.Warn("failed to serialize cache entry", logging.Field{Key: "error", Value: err})
		return
	}
	if err := c.store.Put(ctx, fp, buf.Bytes()); err != nil {
		c.logger.Warn("failed to persist cache entry", logging.Field{Key: "error", Value: err})
	}
}

// encode 序列化一次调用的全部结果
//
// 含接口类型等无法用 gob 表达的结果时放弃缓存，调用照常返回。
func (c *CachedProvider) encode(results []any) (*cachedEntry, bool) {
	entry := &cachedEntry{Items: make([]cachedItem, 0, len(results))}
	for _, inst := range results {
		var buf bytes.Buffer
		if err := gob.NewEncoder(&buf).Encode(inst); err != nil {
			c.logger.Warn("result is not cacheable", logging.Field{Key: "type", Value: fmt.Sprintf("%T", inst)})
			return nil, false
		}
		entry.Items = append(entry.Items, cachedItem{
			TypeName: reflect.TypeOf(inst).String(),
			Blob:     buf.Bytes(),
		})
	}
	return entry, true
}

// decode 反序列化缓存条目，按类型名匹配回请求的类型
func (c *CachedProvider) decode(blob []byte, requested []reflect.Type) ([]any, error, bool) {
	var entry cachedEntry
	if err := gob.NewDecoder(bytes.NewReader(blob)).Decode(&entry); err != nil {
		return nil, nil, false
	}

	if entry.Failed {
		return nil, &CachedError{Message: entry.Message}, true
	}

	byName := make(map[string]reflect.Type, len(requested))
	for _, t := range requested {
		byName[t.String()] = t
	}

	results := make([]any, 0, len(entry.Items))
	for _, item := range entry.Items {
		t, ok := byName[item.TypeName]
		if !ok || t.Kind() == reflect.Interface {
			return nil, nil, false
		}

		var v reflect.Value
		if t.Kind() == reflect.Ptr {
			v = reflect.New(t.Elem())
		} else {
			v = reflect.New(t)
		}
		if err := gob.NewDecoder(bytes.NewReader(item.Blob)).Decode(v.Interface()); err != nil {
			return nil, nil, false
		}

		if t.Kind() == reflect.Ptr {
			results = append(results, v.Interface())
		} else {
			results = append(results, v.Elem().Interface())
		}
	}
	return results, nil, true
}

func (c *CachedProvider) count(key string) {
	if c.opts.Stats != nil {
		c.opts.Stats.Inc(key, 1)
	}
}
