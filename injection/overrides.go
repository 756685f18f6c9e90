package injection

import (
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"

	"github.com/scrapinghub/scrapy-poet-sub000/logging"
	"github.com/scrapinghub/scrapy-poet-sub000/urlmatch"
)

// Rule URL 范围内的类型替换规则
//
// InsteadOf 规则指示 Planner 在匹配的 URL 上用 Use 替换 InsteadOf；
// ToReturn 规则指示在匹配的 URL 上用页面对象 Use 产出条目类型
// ToReturn。两者至少声明其一。Priority 数值越大越优先。
type Rule struct {
	Pattern   string
	InsteadOf reflect.Type
	Use       reflect.Type
	ToReturn  reflect.Type
	Priority  int
}

// String 返回规则的字符串表示
func (r Rule) String() string {
	if r.InsteadOf != nil {
		return fmt.Sprintf("Rule(%q use %v instead of %v, priority=%d)", r.Pattern, r.Use, r.InsteadOf, r.Priority)
	}
	return fmt.Sprintf("Rule(%q use %v to return %v, priority=%d)", r.Pattern, r.Use, r.ToReturn, r.Priority)
}

// ruleIndex 单个目标类型的规则索引
//
// 每个目标类型维护自己的模式匹配器，查询成本由计划触及的类型数
// 决定，而不是规则总数。
type ruleIndex struct {
	matcher  urlmatch.Matcher
	rules    []Rule
	patterns map[string]int // 已注册模式 -> 规则下标，用于冲突告警
}

// OverrideRegistry 覆写规则注册表
//
// 进程启动时从静态声明构建一次，查询时是 (URL) -> 规则集 的纯函数。
type OverrideRegistry struct {
	mu         sync.RWMutex
	frozen     atomic.Bool
	newMatcher func() urlmatch.Matcher
	bySource   map[reflect.Type]*ruleIndex
	byItem     map[reflect.Type]*ruleIndex
	all        []Rule
	logger     logging.Logger
}

// NewOverrideRegistry 创建覆写规则注册表
//
// newMatcher 为 nil 时使用 urlmatch 包的默认实现。
func NewOverrideRegistry(logger logging.Logger, newMatcher func() urlmatch.Matcher) *OverrideRegistry {
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	if newMatcher == nil {
		newMatcher = urlmatch.New
	}
	return &OverrideRegistry{
		newMatcher: newMatcher,
		bySource:   make(map[reflect.Type]*ruleIndex),
		byItem:     make(map[reflect.Type]*ruleIndex),
		logger:     logger.WithCategory("overrides"),
	}
}

// Register 注册覆写规则
func (r *OverrideRegistry) Register(rule Rule) error {
	if rule.Use == nil {
		return fmt.Errorf("injection: override rule requires a replacement type (use)")
	}
	if rule.InsteadOf == nil && rule.ToReturn == nil {
		return fmt.Errorf("injection: override rule requires instead_of or to_return")
	}
	if r.frozen.Load() {
		return fmt.Errorf("injection: cannot register override rule after the registry is frozen")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if rule.InsteadOf != nil {
		if err := r.addLocked(r.bySource, rule.InsteadOf, rule); err != nil {
			return err
		}
	}
	if rule.ToReturn != nil {
		if err := r.addLocked(r.byItem, rule.ToReturn, rule); err != nil {
			return err
		}
	}
	r.all = append(r.all, rule)
	return nil
}

func (r *OverrideRegistry) addLocked(index map[reflect.Type]*ruleIndex, target reflect.Type, rule Rule) error {
	idx, ok := index[target]
	if !ok {
		idx = &ruleIndex{
			matcher:  r.newMatcher(),
			patterns: make(map[string]int),
		}
		index[target] = idx
	}

	// 同一目标类型下完全相同的模式属于配置疑点：发出告警，
	// 解析退回到优先级、再到注册顺序（后注册者胜）
	if prev, dup := idx.patterns[rule.Pattern]; dup {
		r.logger.Warn("conflicting override rules for identical URL pattern",
			logging.Field{Key: "target", Value: target.String()},
			logging.Field{Key: "existing", Value: idx.rules[prev].String()},
			logging.Field{Key: "new", Value: rule.String()})
	}

	id := len(idx.rules)
	if err := idx.matcher.Add(id, rule.Pattern, rule.Priority); err != nil {
		return fmt.Errorf("injection: invalid override pattern %q: %w", rule.Pattern, err)
	}
	idx.rules = append(idx.rules, rule)
	idx.patterns[rule.Pattern] = id
	return nil
}

// Freeze 冻结注册表
func (r *OverrideRegistry) Freeze() {
	r.frozen.Store(true)
}

// RuleFor 返回在该 URL 上替换 source 的类型
//
// 对单个目标类型执行一次匹配器查询，优先级最高的规则胜出。
func (r *OverrideRegistry) RuleFor(url string, source reflect.Type) (reflect.Type, bool) {
	r.mu.RLock()
	idx, ok := r.bySource[source]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	id, matched := idx.matcher.Match(url)
	if !matched {
		return nil, false
	}
	return idx.rules[id].Use, true
}

// ItemPageFor 返回在该 URL 上产出条目类型 item 的页面对象类型
func (r *OverrideRegistry) ItemPageFor(url string, item reflect.Type) (reflect.Type, bool) {
	r.mu.RLock()
	idx, ok := r.byItem[item]
	r.mu.RUnlock()
	if !ok {
		return nil, false
	}

	id, matched := idx.matcher.Match(url)
	if !matched {
		return nil, false
	}
	return idx.rules[id].Use, true
}

// Rules 返回所有已注册规则的快照（用于监控输出）
func (r *OverrideRegistry) Rules() []RuleInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]RuleInfo, 0, len(r.all))
	for _, rule := range r.all {
		info := RuleInfo{
			Pattern:  rule.Pattern,
			Use:      rule.Use.String(),
			Priority: rule.Priority,
		}
		if rule.InsteadOf != nil {
			info.InsteadOf = rule.InsteadOf.String()
		}
		if rule.ToReturn != nil {
			info.ToReturn = rule.ToReturn.String()
		}
		infos = append(infos, info)
	}
	return infos
}

// RuleInfo 覆写规则的只读描述
type RuleInfo struct {
	Pattern   string `json:"pattern"`
	InsteadOf string `json:"instead_of,omitempty"`
	Use       string `json:"use"`
	ToReturn  string `json:"to_return,omitempty"`
	Priority  int    `json:"priority"`
}
