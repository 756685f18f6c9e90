// Package page 提供页面对象（page object）注册表。
//
// 页面对象是可以仅凭自身声明的依赖构造出来的提取单元，不需要外部
// Provider。构造函数在注册时被反射分析一次，依赖类型被缓存下来，
// 之后的能力判定（IsSelfBuildable）只是一次查表。
package page

import (
	"context"
	"fmt"
	"reflect"
	"sync"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

// ItemPage 产出条目的页面对象接口
//
// 实现了 ItemPage 的页面对象可以通过 to_return 覆写规则被选中，
// 用来满足回调直接声明的条目类型。
type ItemPage interface {
	ToItem(ctx context.Context) (any, error)
}

// Constructor 已注册页面对象的构造元数据
//
// 注册后只读。
type Constructor struct {
	Type reflect.Type   // 页面对象类型（构造函数的第一个返回值）
	Deps []reflect.Type // 构造函数参数类型
	Item reflect.Type   // 绑定的条目类型，可为 nil

	fn reflect.Value
}

// New 使用已解析的依赖实例调用构造函数
func (c *Constructor) New(deps []any) (any, error) {
	if len(deps) != len(c.Deps) {
		return nil, fmt.Errorf("page: constructor for %v expects %d dependencies, got %d",
			c.Type, len(c.Deps), len(deps))
	}

	args := make([]reflect.Value, len(deps))
	for i, dep := range deps {
		if dep == nil {
			// Optional 依赖未解析时传入零值
			args[i] = reflect.Zero(c.Deps[i])
			continue
		}
		args[i] = reflect.ValueOf(dep)
	}

	results := c.fn.Call(args)

	// 检查末尾的 error 返回值
	if len(results) > 1 {
		last := results[len(results)-1]
		if last.Type().Implements(errType) && !last.IsNil() {
			return nil, last.Interface().(error)
		}
	}
	return results[0].Interface(), nil
}

// Registry 页面对象注册表
//
// 进程启动时注册一次，之后只读，可在并发解析之间安全共享。
type Registry struct {
	mu    sync.RWMutex
	ctors map[reflect.Type]*Constructor
	items map[reflect.Type]reflect.Type // 条目类型 -> 默认页面对象类型
}

// NewRegistry 创建页面对象注册表
func NewRegistry() *Registry {
	return &Registry{
		ctors: make(map[reflect.Type]*Constructor),
		items: make(map[reflect.Type]reflect.Type),
	}
}

// Register 注册页面对象构造函数
//
// ctor 必须是形如 func(deps...) *T 或 func(deps...) (*T, error) 的
// 函数，页面对象类型取第一个返回值。重复注册同一类型时，后注册者
// 覆盖先注册者。
func (r *Registry) Register(ctor any) (reflect.Type, error) {
	return r.register(ctor, nil)
}

// RegisterWithItem 注册页面对象构造函数并绑定其产出的条目类型
func (r *Registry) RegisterWithItem(ctor any, item reflect.Type) (reflect.Type, error) {
	if item == nil {
		return nil, fmt.Errorf("page: item type is required")
	}
	return r.register(ctor, item)
}

func (r *Registry) register(ctor any, item reflect.Type) (reflect.Type, error) {
	if ctor == nil {
		return nil, fmt.Errorf("page: constructor is required")
	}

	fnVal := reflect.ValueOf(ctor)
	fnType := fnVal.Type()
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("page: constructor must be a function, got %T", ctor)
	}
	if fnType.NumOut() == 0 {
		return nil, fmt.Errorf("page: constructor must return at least one value")
	}
	if fnType.IsVariadic() {
		return nil, fmt.Errorf("page: variadic constructors are not supported")
	}

	// 页面对象类型为第一个返回值
	pageType := fnType.Out(0)

	deps := make([]reflect.Type, fnType.NumIn())
	for i := 0; i < fnType.NumIn(); i++ {
		deps[i] = fnType.In(i)
	}

	c := &Constructor{
		Type: pageType,
		Deps: deps,
		Item: item,
		fn:   fnVal,
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.ctors[pageType] = c
	if item != nil {
		r.items[item] = pageType
	}
	return pageType, nil
}

// IsSelfBuildable 判断类型是否为已注册的页面对象
func (r *Registry) IsSelfBuildable(t reflect.Type) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.ctors[t]
	return ok
}

// Constructor 返回类型的构造元数据
func (r *Registry) Constructor(t reflect.Type) (*Constructor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.ctors[t]
	return c, ok
}

// PageForItem 返回产出指定条目类型的默认页面对象类型
//
// URL 范围内的 to_return 覆写优先于这里的默认绑定。
func (r *Registry) PageForItem(item reflect.Type) (reflect.Type, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.items[item]
	return t, ok
}

// Types 返回所有已注册的页面对象类型
func (r *Registry) Types() []reflect.Type {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]reflect.Type, 0, len(r.ctors))
	for t := range r.ctors {
		types = append(types, t)
	}
	return types
}

// MustRegister 注册页面对象构造函数，失败时 panic
//
// 注册发生在进程启动阶段，失败属于配置错误。
func MustRegister(r *Registry, ctor any) reflect.Type {
	t, err := r.Register(ctor)
	if err != nil {
		panic(fmt.Sprintf("page: failed to register constructor: %v", err))
	}
	return t
}

// MustRegisterWithItem 注册页面对象构造函数并绑定条目类型，失败时 panic
func MustRegisterWithItem[Item any](r *Registry, ctor any) reflect.Type {
	item := reflect.TypeOf((*Item)(nil)).Elem()
	t, err := r.RegisterWithItem(ctor, item)
	if err != nil {
		panic(fmt.Sprintf("page: failed to register constructor: %v", err))
	}
	return t
}
