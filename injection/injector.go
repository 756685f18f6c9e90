package injection

import (
	"context"
	"fmt"

	"github.com/scrapinghub/scrapy-poet-sub000/logging"
	"github.com/scrapinghub/scrapy-poet-sub000/page"
)

// Injector 注入层门面
//
// 抓取引擎与核心交互的唯一入口：每个请求先通过 IsResponseRequired
// 决定是否下载，再 BuildPlan + Resolve 得到回调的关键字参数。
// 构建后各注册表被冻结，Injector 可在并发抓取周期之间安全共享。
type Injector struct {
	pages     *page.Registry
	providers *ProviderRegistry
	overrides *OverrideRegistry
	planner   *Planner
	resolver  *Resolver
	logger    logging.Logger
}

// InjectorOptions Injector 配置选项
type InjectorOptions struct {
	Logger logging.Logger
}

// NewInjector 组装注入层并冻结注册表
func NewInjector(pages *page.Registry, providers *ProviderRegistry, overrides *OverrideRegistry, opts *InjectorOptions) (*Injector, error) {
	if pages == nil {
		return nil, fmt.Errorf("injection: page registry is required")
	}
	if providers == nil {
		return nil, fmt.Errorf("injection: provider registry is required")
	}
	if overrides == nil {
		return nil, fmt.Errorf("injection: override registry is required")
	}

	var logger logging.Logger
	if opts != nil && opts.Logger != nil {
		logger = opts.Logger
	} else {
		logger = logging.NewNopLogger()
	}

	providers.Freeze()
	overrides.Freeze()

	return &Injector{
		pages:     pages,
		providers: providers,
		overrides: overrides,
		planner:   NewPlanner(pages, providers, overrides),
		resolver:  NewResolver(logger),
		logger:    logger.WithCategory("injector"),
	}, nil
}

// BuildPlan 为回调签名与当前 URL 构建依赖计划
func (inj *Injector) BuildPlan(sig *Signature, url string) (*Plan, error) {
	return inj.planner.BuildPlan(sig, url)
}

// Resolve 执行计划，返回参数名到实例的映射
func (inj *Injector) Resolve(ctx context.Context, plan *Plan, rctx *Context) (map[string]any, error) {
	return inj.resolver.Resolve(ctx, plan, rctx)
}

// ResolveCallback 为一次请求构建计划并立即解析
func (inj *Injector) ResolveCallback(ctx context.Context, sig *Signature, url string, rctx *Context) (map[string]any, error) {
	plan, err := inj.BuildPlan(sig, url)
	if err != nil {
		return nil, err
	}
	return inj.Resolve(ctx, plan, rctx)
}

// IsResponseRequired 判定执行回调前是否必须进行真实下载
//
// 引擎在任何网络决策之前调用；返回 false 时可用 DummyResponse
// 代替下载。
func (inj *Injector) IsResponseRequired(sig *Signature, url string) (bool, error) {
	plan, err := inj.BuildPlan(sig, url)
	if err != nil {
		return true, err
	}
	required := IsResponseRequired(sig, plan)
	if !required {
		inj.logger.Debug("download can be skipped", logging.Field{Key: "url", Value: url})
	}
	return required, nil
}

// Providers 返回 Provider 注册表（用于监控输出）
func (inj *Injector) Providers() *ProviderRegistry { return inj.providers }

// Overrides 返回覆写规则注册表（用于监控输出）
func (inj *Injector) Overrides() *OverrideRegistry { return inj.overrides }
