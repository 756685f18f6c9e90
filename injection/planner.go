package injection

import (
	"errors"
	"fmt"
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/page"
)

// Planner 依赖计划构建器
//
// 给定回调签名与当前 URL，产出依赖先行的拓扑有序计划。对固定的
// 注册表配置，同一签名与 URL 总是产出相同的计划。
type Planner struct {
	pages     *page.Registry
	providers *ProviderRegistry
	overrides *OverrideRegistry
}

// NewPlanner 创建 Planner
func NewPlanner(pages *page.Registry, providers *ProviderRegistry, overrides *OverrideRegistry) *Planner {
	return &Planner{
		pages:     pages,
		providers: providers,
		overrides: overrides,
	}
}

// BuildPlan 为回调签名构建依赖计划
//
// 每个参数依声明顺序尝试其备选类型，取第一个可规划的备选；
// Optional 参数所有备选都失败时绑定 nil。检测到自构建类型之间的
// 真循环时返回 CycleError。
func (p *Planner) BuildPlan(sig *Signature, url string) (*Plan, error) {
	if sig == nil {
		return nil, fmt.Errorf("injection: callback signature is required")
	}

	b := &planBuild{
		planner: p,
		url:     url,
		planned: make(map[Key]int),
		stack:   make(map[Key]bool),
	}

	plan := &Plan{URL: url}

	for _, param := range sig.Params() {
		var bound bool
		var lastErr error

		for _, k := range param.keys() {
			mark := len(b.entries)
			eff, err := b.visit(k, param.Name)
			if err == nil {
				plan.Bindings = append(plan.Bindings, ParamBinding{Name: param.Name, Key: eff})
				bound = true
				break
			}

			// 循环依赖属于配置错误，直接使整个计划失败
			var cycleErr *CycleError
			if errors.As(err, &cycleErr) {
				return nil, err
			}

			// 回滚该备选遗留的节点，避免计划触及无关的 Provider
			b.rollback(mark)
			lastErr = err
		}

		if bound {
			continue
		}
		if param.Optional {
			plan.Bindings = append(plan.Bindings, ParamBinding{Name: param.Name, Nil: true})
			continue
		}
		return nil, &InjectionError{
			Param:   param.Name,
			Message: "no alternative is resolvable",
			Cause:   lastErr,
		}
	}

	plan.Entries = b.entries

	// 计算 Provider 调用安排与触及集合
	plan.assignments = p.providers.ProvidersFor(plan.ProvidedTypes())
	for _, a := range plan.assignments {
		plan.touched = append(plan.touched, a.Provider)
	}
	return plan, nil
}

// planBuild 单次计划构建的可变状态
type planBuild struct {
	planner *Planner
	url     string
	entries []Entry
	planned map[Key]int  // 已规划描述符 -> 节点下标
	stack   map[Key]bool // DFS 递归栈，用于循环检测
	path    []Key
}

// visit 规划一个描述符，返回覆写替换后的有效描述符
//
// 覆写替换对每个节点只应用一次：替换类型按自己的依赖展开，
// 其中每个子依赖在各自的节点上应用子依赖级别的覆写，但替换
// 类型本身不会被再次替换（覆写不传递复合）。
func (b *planBuild) visit(k Key, param string) (Key, error) {
	t := k.Type
	if repl, ok := b.planner.overrides.RuleFor(b.url, t); ok {
		t = repl
	}
	eff := Key{Type: t, Annotation: k.Annotation}

	if _, ok := b.planned[eff]; ok {
		return eff, nil
	}
	if b.stack[eff] {
		from := eff
		if len(b.path) > 0 {
			from = b.path[len(b.path)-1]
		}
		return Key{}, &CycleError{From: from, To: eff}
	}

	// 外部提供且非自构建：终端叶子，内部构造由 Provider 负责
	if prov, ok := b.planner.providers.providerFor(t); ok && !b.planner.pages.IsSelfBuildable(t) {
		b.append(Entry{Key: eff, kind: entryProvided, provider: prov})
		return eff, nil
	}

	// 自构建：递归展开构造函数的依赖
	if ctor, ok := b.planner.pages.Constructor(t); ok {
		b.stack[eff] = true
		b.path = append(b.path, eff)

		deps := make([]Key, len(ctor.Deps))
		for i, depType := range ctor.Deps {
			depKey, err := b.visit(Key{Type: depType}, param)
			if err != nil {
				b.leave(eff)
				return Key{}, err
			}
			deps[i] = depKey
		}

		b.leave(eff)
		b.append(Entry{Key: eff, kind: entryConstructed, ctor: ctor, deps: deps})
		return eff, nil
	}

	// 框架单例：由解析上下文直接满足
	if isContextType(t) {
		b.append(Entry{Key: eff, kind: entryContext})
		return eff, nil
	}

	// 条目类型：选出产出它的页面对象（URL 覆写优先于默认绑定）
	if pageType, ok := b.itemPageFor(t); ok {
		pageKey, err := b.visit(Key{Type: pageType}, param)
		if err != nil {
			return Key{}, err
		}
		b.append(Entry{Key: eff, kind: entryItem, pageKey: pageKey})
		return eff, nil
	}

	return Key{}, &InjectionError{
		Param:   param,
		Key:     eff,
		Message: "no provider declares this type and it is not a registered page object",
	}
}

func (b *planBuild) itemPageFor(t reflect.Type) (reflect.Type, bool) {
	if pageType, ok := b.planner.overrides.ItemPageFor(b.url, t); ok {
		return pageType, true
	}
	return b.planner.pages.PageForItem(t)
}

func (b *planBuild) append(e Entry) {
	b.planned[e.Key] = len(b.entries)
	b.entries = append(b.entries, e)
}

func (b *planBuild) leave(k Key) {
	delete(b.stack, k)
	b.path = b.path[:len(b.path)-1]
}

// rollback 丢弃 mark 之后追加的节点（联合类型备选失败时）
func (b *planBuild) rollback(mark int) {
	for _, e := range b.entries[mark:] {
		delete(b.planned, e.Key)
	}
	b.entries = b.entries[:mark]
}
