package injection

import (
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/page"
)

// entryKind 计划节点的种类
type entryKind int

const (
	// entryProvided 由 Provider 产出的叶子节点
	entryProvided entryKind = iota
	// entryContext 由解析上下文中的框架单例满足的叶子节点
	entryContext
	// entryConstructed 由构造函数从已解析依赖构造的页面对象节点
	entryConstructed
	// entryItem 由页面对象的 ToItem 产出的条目节点
	entryItem
)

// Entry 计划中的一个 (描述符, 构造方式) 节点
type Entry struct {
	Key  Key
	kind entryKind

	provider *registeredProvider // entryProvided
	ctor     *page.Constructor   // entryConstructed
	deps     []Key               // entryConstructed：构造参数的描述符，与 ctor.Deps 对齐
	pageKey  Key                 // entryItem：产出该条目的页面对象节点
}

// ParamBinding 回调参数到计划节点的绑定
type ParamBinding struct {
	Name string
	Key  Key
	Nil  bool // Optional 参数无可解析备选时绑定 nil
}

// Plan 一次解析的依赖计划
//
// Entries 按依赖先行（拓扑）顺序排列且无重复描述符；Bindings 保持
// 回调参数的声明顺序。计划对固定的注册表与 URL 是确定的，可重复
// 解析。
type Plan struct {
	URL      string
	Entries  []Entry
	Bindings []ParamBinding

	assignments []Assignment          // Provider 的调用安排，按优先级排序
	touched     []*registeredProvider // 计划触及的 Provider
}

// Keys 返回计划节点的描述符序列（拓扑顺序）
func (p *Plan) Keys() []Key {
	keys := make([]Key, len(p.Entries))
	for i, e := range p.Entries {
		keys[i] = e.Key
	}
	return keys
}

// ProvidedTypes 返回计划中由 Provider 产出的类型集合（计划顺序）
func (p *Plan) ProvidedTypes() []reflect.Type {
	seen := make(map[reflect.Type]bool)
	var types []reflect.Type
	for _, e := range p.Entries {
		if e.kind != entryProvided || seen[e.Key.Type] {
			continue
		}
		seen[e.Key.Type] = true
		types = append(types, e.Key.Type)
	}
	return types
}

// TouchedProviders 返回解析该计划时会被调用的 Provider 名称
func (p *Plan) TouchedProviders() []string {
	names := make([]string, len(p.touched))
	for i, prov := range p.touched {
		names[i] = prov.Name()
	}
	return names
}

// requiresRealResponse 判断计划触及的 Provider 是否依赖真实响应
func (p *Plan) requiresRealResponse() bool {
	for _, prov := range p.touched {
		for _, dep := range prov.Requires() {
			if dep == rawResponseType {
				return true
			}
		}
	}
	return false
}
