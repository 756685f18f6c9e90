package injection

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Provider 外部类型的提供者
//
// Provider 负责产出无法从图内其他类型构造的实例（HTTP 响应体、
// 第三方 API 载荷等）。
type Provider interface {
	// Name 返回 Provider 名称，用于日志与错误信息
	Name() string

	// Provides 返回产出类型声明：[]reflect.Type 集合，或
	// func(reflect.Type) bool 判定函数。其他形式视为声明畸形。
	Provides() any

	// Requires 返回 Provider 自身的依赖类型。这些依赖由解析上下文
	// 中的框架单例满足（当前请求、响应、设置、统计等）。
	Requires() []reflect.Type

	// Provide 构造 requested 中各类型的实例。deps 按 Requires 的
	// 声明顺序给出。返回实例的类型必须落在 requested 子集内。
	Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error)
}

// registeredProvider 已注册的 Provider 及其归一化的产出判定
type registeredProvider struct {
	Provider
	priority int
	seq      int // 注册顺序，同优先级时先注册者先被识别

	produces  func(reflect.Type) bool
	typeSet   []reflect.Type // 集合声明时保留，用于监控输出
	predicate bool
}

// ProviderRegistry 按优先级排序的 Provider 注册表
//
// 进程启动时注册一次，FreezeAfter 构建注入器后只读，可在并发解析
// 之间安全共享。
type ProviderRegistry struct {
	mu       sync.RWMutex
	frozen   atomic.Bool
	seq      int
	registry []*registeredProvider
	ordered  []*registeredProvider // 按 (priority, seq) 排序的缓存
}

// NewProviderRegistry 创建 Provider 注册表
func NewProviderRegistry() *ProviderRegistry {
	return &ProviderRegistry{}
}

// Register 注册 Provider
//
// priority 数值越小越先被识别；同一类型被多个 Provider 声明时，
// 最先被识别者获得该类型。同名 Provider 的重复注册以最后一次为准。
func (r *ProviderRegistry) Register(p Provider, priority int) error {
	if p == nil || reflect.ValueOf(p).Kind() == reflect.Ptr && reflect.ValueOf(p).IsNil() {
		return &NonCallableProviderError{Value: p}
	}

	produces, typeSet, isPredicate, err := normalizeDeclaration(p)
	if err != nil {
		return err
	}

	if r.frozen.Load() {
		return fmt.Errorf("injection: cannot register provider %q after the registry is frozen", p.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entry := &registeredProvider{
		Provider:  p,
		priority:  priority,
		produces:  produces,
		typeSet:   typeSet,
		predicate: isPredicate,
	}

	// 同名重复注册：最后一次生效，保留原注册顺序
	for i, existing := range r.registry {
		if existing.Name() == p.Name() {
			entry.seq = existing.seq
			r.registry[i] = entry
			r.ordered = nil
			return nil
		}
	}

	entry.seq = r.seq
	r.seq++
	r.registry = append(r.registry, entry)
	r.ordered = nil
	return nil
}

// RegisterAny 注册任意值为 Provider
//
// 值必须实现 Provider 接口，否则返回 NonCallableProviderError。
// 供配置加载等不持有静态类型的调用方使用。
func (r *ProviderRegistry) RegisterAny(v any, priority int) error {
	p, ok := v.(Provider)
	if !ok {
		return &NonCallableProviderError{Value: v}
	}
	return r.Register(p, priority)
}

// Freeze 冻结注册表，此后 Register 返回错误
func (r *ProviderRegistry) Freeze() {
	r.mu.Lock()
	r.sortLocked()
	r.mu.Unlock()
	r.frozen.Store(true)
}

// IsProvided 判断是否有 Provider 声明支持该类型
func (r *ProviderRegistry) IsProvided(t reflect.Type) bool {
	_, ok := r.providerFor(t)
	return ok
}

// providerFor 返回支持该类型的最先被识别的 Provider
func (r *ProviderRegistry) providerFor(t reflect.Type) (*registeredProvider, bool) {
	for _, p := range r.orderedProviders() {
		if p.produces(t) {
			return p, true
		}
	}
	return nil, false
}

// Assignment 一次解析中对单个 Provider 的调用安排
type Assignment struct {
	Provider *registeredProvider
	Types    []reflect.Type // 分派给该 Provider 的类型，保持传入顺序
}

// ProvidersFor 将请求类型集按优先级分派给各 Provider
//
// 每个类型恰好归属最先声明支持它的 Provider；无人支持的类型被
// 省略（它必须是自构建类型，否则解析失败）。返回值按 Provider
// 优先级排序。
func (r *ProviderRegistry) ProvidersFor(types []reflect.Type) []Assignment {
	byProvider := make(map[*registeredProvider][]reflect.Type)
	var order []*registeredProvider

	for _, t := range types {
		p, ok := r.providerFor(t)
		if !ok {
			continue
		}
		if _, seen := byProvider[p]; !seen {
			order = append(order, p)
		}
		byProvider[p] = append(byProvider[p], t)
	}

	// 按 (priority, seq) 排序，保证调用顺序确定
	sort.SliceStable(order, func(i, j int) bool {
		if order[i].priority != order[j].priority {
			return order[i].priority < order[j].priority
		}
		return order[i].seq < order[j].seq
	})

	assignments := make([]Assignment, 0, len(order))
	for _, p := range order {
		assignments = append(assignments, Assignment{Provider: p, Types: byProvider[p]})
	}
	return assignments
}

// Providers 返回按优先级排序的 Provider 快照（用于监控输出）
func (r *ProviderRegistry) Providers() []ProviderInfo {
	infos := make([]ProviderInfo, 0)
	for _, p := range r.orderedProviders() {
		info := ProviderInfo{
			Name:      p.Name(),
			Priority:  p.priority,
			Predicate: p.predicate,
		}
		for _, t := range p.typeSet {
			info.Provides = append(info.Provides, t.String())
		}
		for _, t := range p.Requires() {
			info.Requires = append(info.Requires, t.String())
		}
		infos = append(infos, info)
	}
	return infos
}

// ProviderInfo Provider 的只读描述
type ProviderInfo struct {
	Name      string   `json:"name"`
	Priority  int      `json:"priority"`
	Provides  []string `json:"provides,omitempty"`
	Predicate bool     `json:"predicate,omitempty"`
	Requires  []string `json:"requires,omitempty"`
}

func (r *ProviderRegistry) orderedProviders() []*registeredProvider {
	r.mu.RLock()
	if r.ordered != nil {
		defer r.mu.RUnlock()
		return r.ordered
	}
	r.mu.RUnlock()

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sortLocked()
	return r.ordered
}

func (r *ProviderRegistry) sortLocked() {
	ordered := make([]*registeredProvider, len(r.registry))
	copy(ordered, r.registry)
	sort.SliceStable(ordered, func(i, j int) bool {
		if ordered[i].priority != ordered[j].priority {
			return ordered[i].priority < ordered[j].priority
		}
		return ordered[i].seq < ordered[j].seq
	})
	r.ordered = ordered
}

// normalizeDeclaration 将产出类型声明归一化为判定函数
func normalizeDeclaration(p Provider) (func(reflect.Type) bool, []reflect.Type, bool, error) {
	decl := p.Provides()
	switch d := decl.(type) {
	case []reflect.Type:
		set := make(map[reflect.Type]bool, len(d))
		for _, t := range d {
			set[t] = true
		}
		return func(t reflect.Type) bool { return set[t] }, d, false, nil
	case map[reflect.Type]bool:
		types := make([]reflect.Type, 0, len(d))
		for t, ok := range d {
			if ok {
				types = append(types, t)
			}
		}
		sort.Slice(types, func(i, j int) bool { return types[i].String() < types[j].String() })
		return func(t reflect.Type) bool { return d[t] }, types, false, nil
	case func(reflect.Type) bool:
		if d == nil {
			return nil, nil, false, &MalformedProviderError{Provider: p.Name(), Reason: "nil predicate"}
		}
		return d, nil, true, nil
	default:
		return nil, nil, false, &MalformedProviderError{
			Provider: p.Name(),
			Reason:   fmt.Sprintf("expected a type set or a predicate, got %T", decl),
		}
	}
}
