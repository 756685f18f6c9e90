package injection

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/scrapinghub/scrapy-poet-sub000/cache"
	"github.com/scrapinghub/scrapy-poet-sub000/stats"
	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

// memStore 测试用的进程内指纹存储
type memStore struct {
	mu      sync.Mutex
	entries map[string][]byte
}

func newMemStore() *memStore {
	return &memStore{entries: make(map[string][]byte)}
}

func (s *memStore) Get(ctx context.Context, fingerprint string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.entries[fingerprint]
	if !ok {
		return nil, cache.ErrKeyNotFound
	}
	return v, nil
}

func (s *memStore) Put(ctx context.Context, fingerprint string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[fingerprint] = value
	return nil
}

func (s *memStore) Close() error { return nil }

func (s *memStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// TestCachedProviderRoundTrip 测试缓存命中时跳过真实调用且结果一致
func TestCachedProviderRoundTrip(t *testing.T) {
	inner := priceProvider()
	store := newMemStore()

	cached, err := NewCachedProvider(inner, store, nil)
	if err != nil {
		t.Fatalf("NewCachedProvider failed: %v", err)
	}

	req := web.NewRequest("http://books.example.com/1")
	requested := []reflect.Type{priceType}

	first, err := cached.Provide(context.Background(), requested, []any{req})
	if err != nil {
		t.Fatalf("First Provide failed: %v", err)
	}
	if store.len() != 1 {
		t.Fatalf("Expected the result to be persisted, store has %d entries", store.len())
	}

	second, err := cached.Provide(context.Background(), requested, []any{req})
	if err != nil {
		t.Fatalf("Second Provide failed: %v", err)
	}

	if inner.callCount() != 1 {
		t.Errorf("Expected exactly 1 real call, got %d", inner.callCount())
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Cached result differs from the original: %v vs %v", first, second)
	}
}

// TestCachedProviderErrorCaching 测试启用错误缓存时失败被重放
func TestCachedProviderErrorCaching(t *testing.T) {
	inner := &testProvider{
		name:     "failing",
		provides: []reflect.Type{priceType},
		requires: []reflect.Type{testRequestType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return nil, fmt.Errorf("upstream said no")
		},
	}
	store := newMemStore()

	cached, err := NewCachedProvider(inner, store, &CachedProviderOptions{CacheErrors: true})
	if err != nil {
		t.Fatalf("NewCachedProvider failed: %v", err)
	}

	req := web.NewRequest("http://books.example.com/1")
	requested := []reflect.Type{priceType}

	if _, err := cached.Provide(context.Background(), requested, []any{req}); err == nil {
		t.Fatal("Expected the first call to fail")
	}

	_, err = cached.Provide(context.Background(), requested, []any{req})
	var replayed *CachedError
	if !errors.As(err, &replayed) {
		t.Fatalf("Expected CachedError on replay, got %T: %v", err, err)
	}
	if replayed.Message != "upstream said no" {
		t.Errorf("Unexpected replayed message: %q", replayed.Message)
	}
	if inner.callCount() != 1 {
		t.Errorf("Expected the failure to be replayed without a real call, got %d calls", inner.callCount())
	}
}

// TestCachedProviderErrorsNotCachedByDefault 测试默认不缓存失败
func TestCachedProviderErrorsNotCachedByDefault(t *testing.T) {
	inner := &testProvider{
		name:     "failing",
		provides: []reflect.Type{priceType},
		requires: []reflect.Type{testRequestType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return nil, fmt.Errorf("upstream said no")
		},
	}
	store := newMemStore()

	cached, _ := NewCachedProvider(inner, store, nil)
	req := web.NewRequest("http://books.example.com/1")
	requested := []reflect.Type{priceType}

	cached.Provide(context.Background(), requested, []any{req})
	cached.Provide(context.Background(), requested, []any{req})

	if inner.callCount() != 2 {
		t.Errorf("Expected a real call per attempt when errors are not cached, got %d", inner.callCount())
	}
	if store.len() != 0 {
		t.Errorf("Failures must not be persisted by default, store has %d entries", store.len())
	}
}

// TestCachedProviderAppendsRequestDependency 测试包装层补上请求依赖
func TestCachedProviderAppendsRequestDependency(t *testing.T) {
	inner := &testProvider{
		name:     "no-deps",
		provides: []reflect.Type{priceType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			if len(deps) != 0 {
				return nil, fmt.Errorf("inner provider received %d unexpected deps", len(deps))
			}
			return []any{&Price{Value: "9.99"}}, nil
		},
	}

	cached, err := NewCachedProvider(inner, newMemStore(), nil)
	if err != nil {
		t.Fatalf("NewCachedProvider failed: %v", err)
	}

	requires := cached.Requires()
	if len(requires) != 1 || requires[0] != testRequestType {
		t.Fatalf("Expected the wrapper to require the current request, got %v", requires)
	}

	// 补上的请求依赖不会传给内层 Provider
	req := web.NewRequest("http://books.example.com/1")
	if _, err := cached.Provide(context.Background(), []reflect.Type{priceType}, []any{req}); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
}

// TestCachedProviderStats 测试命中与未命中计数
func TestCachedProviderStats(t *testing.T) {
	sink := stats.NewMemorySink()
	cached, _ := NewCachedProvider(priceProvider(), newMemStore(), &CachedProviderOptions{Stats: sink})

	req := web.NewRequest("http://books.example.com/1")
	requested := []reflect.Type{priceType}

	cached.Provide(context.Background(), requested, []any{req})
	cached.Provide(context.Background(), requested, []any{req})
	cached.Provide(context.Background(), requested, []any{req})

	if got := sink.Get("poet/cache_misses"); got != 1 {
		t.Errorf("Expected 1 miss, got %d", got)
	}
	if got := sink.Get("poet/cache_hits"); got != 2 {
		t.Errorf("Expected 2 hits, got %d", got)
	}
}

// TestCachedProviderUnencodableResult 测试无法序列化的结果放弃缓存
func TestCachedProviderUnencodableResult(t *testing.T) {
	inner := &testProvider{
		name:     "funcs",
		provides: func(typ reflect.Type) bool { return typ.Kind() == reflect.Func },
		requires: []reflect.Type{testRequestType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return []any{func() {}}, nil
		},
	}
	store := newMemStore()
	cached, _ := NewCachedProvider(inner, store, nil)

	req := web.NewRequest("http://books.example.com/1")
	requested := []reflect.Type{reflect.TypeOf(func() {})}

	if _, err := cached.Provide(context.Background(), requested, []any{req}); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}
	if store.len() != 0 {
		t.Errorf("Unencodable results must not be persisted, store has %d entries", store.len())
	}
}

// TestFingerprintStability 测试默认指纹的稳定性
func TestFingerprintStability(t *testing.T) {
	a := Fingerprint("price", "http://example.com/1", []reflect.Type{priceType, nameType})
	b := Fingerprint("price", "http://example.com/1", []reflect.Type{nameType, priceType})
	if a != b {
		t.Error("Fingerprint must not depend on the order of requested types")
	}

	c := Fingerprint("price", "http://example.com/2", []reflect.Type{priceType, nameType})
	if a == c {
		t.Error("Fingerprint must depend on the URL")
	}

	d := Fingerprint("other", "http://example.com/1", []reflect.Type{priceType, nameType})
	if a == d {
		t.Error("Fingerprint must depend on the provider name")
	}
}

// customFingerprintProvider 自定义指纹的测试 Provider
type customFingerprintProvider struct {
	*testProvider
}

func (p *customFingerprintProvider) Fingerprint(url string, requested []reflect.Type) string {
	return "custom:" + url
}

// TestCachedProviderCustomFingerprinter 测试自定义指纹优先于默认指纹
func TestCachedProviderCustomFingerprinter(t *testing.T) {
	inner := &customFingerprintProvider{testProvider: priceProvider()}
	store := newMemStore()
	cached, _ := NewCachedProvider(inner, store, nil)

	req := web.NewRequest("http://books.example.com/1")
	if _, err := cached.Provide(context.Background(), []reflect.Type{priceType}, []any{req}); err != nil {
		t.Fatalf("Provide failed: %v", err)
	}

	if _, err := store.Get(context.Background(), "custom:http://books.example.com/1"); err != nil {
		t.Errorf("Expected the entry under the custom fingerprint: %v", err)
	}
}
