// Package providers 提供内置的 Provider 实现。
//
// 内置 Provider 覆盖注入层的基础外部类型：真实 HTTP 响应、请求与
// 响应 URL、页面参数。优先级编号从 500 开始，留出空间让使用方的
// 自定义 Provider 插到内置 Provider 之前。
package providers

import (
	"context"
	"fmt"
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/injection"
	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

var (
	requestType  = reflect.TypeOf((*web.Request)(nil))
	responseType = reflect.TypeOf((*web.Response)(nil))
)

// HTTPResponseProvider 提供当前请求的真实 HTTP 响应
//
// 它依赖真实 *web.Response，因此任何计划触及它时，下载判定都会
// 要求执行网络请求。
type HTTPResponseProvider struct{}

func (HTTPResponseProvider) Name() string { return "HTTPResponseProvider" }

func (HTTPResponseProvider) Provides() any {
	return []reflect.Type{responseType}
}

func (HTTPResponseProvider) Requires() []reflect.Type {
	return []reflect.Type{responseType}
}

func (HTTPResponseProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	resp, ok := deps[0].(*web.Response)
	if !ok {
		return nil, fmt.Errorf("providers: real response is not available")
	}
	return []any{resp}, nil
}

// RequestURLProvider 提供当前请求的 URL
type RequestURLProvider struct{}

func (RequestURLProvider) Name() string { return "RequestURLProvider" }

func (RequestURLProvider) Provides() any {
	return []reflect.Type{injection.TypeOf[web.RequestURL]()}
}

func (RequestURLProvider) Requires() []reflect.Type {
	return []reflect.Type{requestType}
}

func (RequestURLProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	req := deps[0].(*web.Request)
	return []any{web.RequestURL(req.URL)}, nil
}

// ResponseURLProvider 提供响应对应的 URL
//
// 从请求侧取值，跳过下载时同样可用。
type ResponseURLProvider struct{}

func (ResponseURLProvider) Name() string { return "ResponseURLProvider" }

func (ResponseURLProvider) Provides() any {
	return []reflect.Type{injection.TypeOf[web.ResponseURL]()}
}

func (ResponseURLProvider) Requires() []reflect.Type {
	return []reflect.Type{requestType}
}

func (ResponseURLProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	req := deps[0].(*web.Request)
	return []any{web.ResponseURL(req.URL)}, nil
}

// PageParamsProvider 提供随请求传递的页面参数
type PageParamsProvider struct{}

func (PageParamsProvider) Name() string { return "PageParamsProvider" }

func (PageParamsProvider) Provides() any {
	return []reflect.Type{injection.TypeOf[web.PageParams]()}
}

func (PageParamsProvider) Requires() []reflect.Type {
	return []reflect.Type{requestType}
}

func (PageParamsProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	req := deps[0].(*web.Request)
	return []any{web.PageParamsFrom(req)}, nil
}

// RegisterDefaults 以标准优先级注册全部内置 Provider
func RegisterDefaults(registry *injection.ProviderRegistry) error {
	defaults := []struct {
		provider injection.Provider
		priority int
	}{
		{HTTPResponseProvider{}, 500},
		{RequestURLProvider{}, 600},
		{ResponseURLProvider{}, 600},
		{PageParamsProvider{}, 700},
	}
	for _, d := range defaults {
		if err := registry.Register(d.provider, d.priority); err != nil {
			return err
		}
	}
	return nil
}
