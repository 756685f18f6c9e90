package injection

import (
	"context"
	"fmt"
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/logging"
	"github.com/scrapinghub/scrapy-poet-sub000/page"
)

// Resolver 计划执行器
//
// 按优先级调用 Provider（每个 Provider 每次解析至多一次，只请求
// 尚未满足的类型并集），再按计划顺序构造页面对象，最终把根参数名
// 映射到解析出的实例。
type Resolver struct {
	logger logging.Logger
}

// NewResolver 创建 Resolver
func NewResolver(logger logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	return &Resolver{logger: logger.WithCategory("resolver")}
}

// Resolve 执行计划，返回参数名到实例的映射
//
// 解析失败只影响当前请求；部分结果被丢弃，不写入缓存。
func (r *Resolver) Resolve(ctx context.Context, plan *Plan, rctx *Context) (map[string]any, error) {
	if plan == nil {
		return nil, fmt.Errorf("injection: plan is required")
	}
	if rctx == nil {
		rctx = NewContext()
	}

	instances := make(map[Key]any, len(plan.Entries))
	byType := make(map[reflect.Type]any)

	// 请求级缓存命中的节点不再重建
	if rctx.cache != nil {
		for _, e := range plan.Entries {
			if v, ok := rctx.cache.Get(e.Key); ok {
				instances[e.Key] = v
				if e.kind == entryProvided {
					byType[e.Key.Type] = v
				}
			}
		}
	}

	// 阶段 1：按优先级调用 Provider
	for _, assignment := range plan.assignments {
		subset := make([]reflect.Type, 0, len(assignment.Types))
		for _, t := range assignment.Types {
			if _, ok := byType[t]; !ok {
				subset = append(subset, t)
			}
		}
		if len(subset) == 0 {
			continue
		}

		deps, err := r.providerDeps(assignment.Provider, rctx)
		if err != nil {
			return nil, err
		}

		results, err := invokeProvider(ctx, assignment.Provider, subset, deps)
		if err != nil {
			return nil, fmt.Errorf("injection: provider %q failed: %w", assignment.Provider.Name(), err)
		}
		if sink := rctx.Stats(); sink != nil {
			sink.Inc("poet/provider_calls", 1)
		}

		for _, inst := range results {
			matched, err := matchRequested(assignment.Provider, inst, subset)
			if err != nil {
				return nil, err
			}
			byType[matched] = inst
		}
	}

	// 阶段 2：按计划顺序物化各节点
	for _, e := range plan.Entries {
		if _, done := instances[e.Key]; done {
			continue
		}

		switch e.kind {
		case entryProvided:
			// 注解节点与无注解节点共享同一个 Provider 产出
			if v, ok := byType[e.Key.Type]; ok {
				instances[e.Key] = v
			}

		case entryContext:
			if v, ok := rctx.Lookup(e.Key.Type); ok {
				instances[e.Key] = v
			}

		case entryConstructed:
			v, err := r.construct(e, instances)
			if err != nil {
				return nil, err
			}
			instances[e.Key] = v

		case entryItem:
			v, err := r.extractItem(ctx, e, instances)
			if err != nil {
				return nil, err
			}
			instances[e.Key] = v
		}
	}

	// 解析成功后才写入请求级缓存
	if rctx.cache != nil {
		for k, v := range instances {
			rctx.cache.Put(k, v)
		}
	}

	// 阶段 3：绑定根参数
	kwargs := make(map[string]any, len(plan.Bindings))
	for _, binding := range plan.Bindings {
		if binding.Nil {
			kwargs[binding.Name] = nil
			continue
		}
		v, ok := instances[binding.Key]
		if !ok {
			return nil, &InjectionError{
				Param:   binding.Name,
				Key:     binding.Key,
				Message: "no instance was resolved for this parameter",
			}
		}
		kwargs[binding.Name] = v
	}
	return kwargs, nil
}

// providerDeps 从解析上下文解析 Provider 自身的依赖
func (r *Resolver) providerDeps(prov *registeredProvider, rctx *Context) ([]any, error) {
	required := prov.Requires()
	deps := make([]any, len(required))
	for i, t := range required {
		v, ok := rctx.Lookup(t)
		if !ok {
			return nil, &InjectionError{
				Key:     KeyOf(t),
				Message: fmt.Sprintf("provider %q requires a context object that is not available", prov.Name()),
			}
		}
		deps[i] = v
	}
	return deps, nil
}

// construct 从已解析依赖构造页面对象
func (r *Resolver) construct(e Entry, instances map[Key]any) (any, error) {
	deps := make([]any, len(e.deps))
	for i, depKey := range e.deps {
		v, ok := instances[depKey]
		if !ok {
			return nil, &InjectionError{
				Key:     e.Key,
				Message: fmt.Sprintf("dependency %s was not resolved", depKey),
			}
		}
		deps[i] = v
	}

	v, err := e.ctor.New(deps)
	if err != nil {
		return nil, &InjectionError{Key: e.Key, Message: "constructor failed", Cause: err}
	}
	return v, nil
}

// extractItem 通过页面对象的 ToItem 产出条目
func (r *Resolver) extractItem(ctx context.Context, e Entry, instances map[Key]any) (any, error) {
	pv, ok := instances[e.pageKey]
	if !ok {
		return nil, &InjectionError{
			Key:     e.Key,
			Message: fmt.Sprintf("page object %s was not resolved", e.pageKey),
		}
	}

	itemPage, ok := pv.(page.ItemPage)
	if !ok {
		return nil, &InjectionError{
			Key:     e.Key,
			Message: fmt.Sprintf("page object %s does not implement ItemPage", e.pageKey),
		}
	}

	item, err := itemPage.ToItem(ctx)
	if err != nil {
		return nil, &InjectionError{Key: e.Key, Message: "ToItem failed", Cause: err}
	}

	got := reflect.TypeOf(item)
	if got != e.Key.Type && (got == nil || !got.AssignableTo(e.Key.Type)) {
		return nil, &InjectionError{
			Key:     e.Key,
			Message: fmt.Sprintf("page object %s returned item of type %v", e.pageKey, got),
		}
	}
	return item, nil
}

// providerResult Provider 调用的结果
type providerResult struct {
	values []any
	err    error
}

// invokeProvider 以统一的异步路径调用 Provider
//
// 同步 Provider 立即完成；阻塞的 Provider 在任务被取消时被协作
// 放弃，部分结果丢弃。
func invokeProvider(ctx context.Context, prov Provider, subset []reflect.Type, deps []any) ([]any, error) {
	ch := make(chan providerResult, 1)
	go func() {
		values, err := prov.Provide(ctx, subset, deps)
		ch <- providerResult{values: values, err: err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.values, res.err
	}
}

// matchRequested 校验返回实例的类型落在请求子集内
func matchRequested(prov *registeredProvider, inst any, subset []reflect.Type) (reflect.Type, error) {
	got := reflect.TypeOf(inst)
	for _, t := range subset {
		if got == t {
			return t, nil
		}
	}
	// 接口类型的请求按可赋值匹配
	for _, t := range subset {
		if t.Kind() == reflect.Interface && got != nil && got.Implements(t) {
			return t, nil
		}
	}
	return nil, &UndeclaredTypeError{Provider: prov.Name(), Got: got, Requested: subset}
}
