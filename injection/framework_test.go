package injection

import (
	"context"
	"reflect"
	"sync/atomic"

	"github.com/scrapinghub/scrapy-poet-sub000/page"
	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

// ---------------- 测试领域类型 ----------------

// Book 条目类型
type Book struct {
	Title string
}

// Price 由 Provider 产出的外部类型
type Price struct {
	Value string
}

// Name 由 Provider 产出的外部类型
type Name struct {
	Value string
}

// BookPage 依赖真实响应的页面对象
type BookPage struct {
	Resp *web.Response
}

func NewBookPage(resp *web.Response) *BookPage {
	return &BookPage{Resp: resp}
}

func (p *BookPage) ToItem(ctx context.Context) (any, error) {
	return &Book{Title: p.Resp.Text()}, nil
}

// OtherBookPage 用于覆写测试的替换页面对象
type OtherBookPage struct {
	Resp *web.Response
}

func NewOtherBookPage(resp *web.Response) *OtherBookPage {
	return &OtherBookPage{Resp: resp}
}

func (p *OtherBookPage) ToItem(ctx context.Context) (any, error) {
	return &Book{Title: "other:" + p.Resp.Text()}, nil
}

// ApiBookPage 从第三方数据源提取的页面对象，不需要响应体
type ApiBookPage struct {
	Price *Price
}

func NewApiBookPage(price *Price) *ApiBookPage {
	return &ApiBookPage{Price: price}
}

func (p *ApiBookPage) ToItem(ctx context.Context) (any, error) {
	return &Book{Title: p.Price.Value}, nil
}

// LeftPage / RightPage 相互依赖，用于循环检测测试
type LeftPage struct {
	Right *RightPage
}

type RightPage struct {
	Left *LeftPage
}

func NewLeftPage(r *RightPage) *LeftPage  { return &LeftPage{Right: r} }
func NewRightPage(l *LeftPage) *RightPage { return &RightPage{Left: l} }

var (
	testResponseType = reflect.TypeOf((*web.Response)(nil))
	testRequestType  = reflect.TypeOf((*web.Request)(nil))
	priceType        = reflect.TypeOf((*Price)(nil))
	nameType         = reflect.TypeOf((*Name)(nil))
	bookType         = reflect.TypeOf((*Book)(nil))
	bookPageType     = reflect.TypeOf((*BookPage)(nil))
)

// ---------------- 测试 Provider ----------------

// testProvider 按配置产出实例并记录调用次数
type testProvider struct {
	name     string
	provides any
	requires []reflect.Type
	fn       func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error)

	calls int32
}

func (p *testProvider) Name() string             { return p.name }
func (p *testProvider) Provides() any            { return p.provides }
func (p *testProvider) Requires() []reflect.Type { return p.requires }

func (p *testProvider) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	atomic.AddInt32(&p.calls, 1)
	return p.fn(ctx, requested, deps)
}

func (p *testProvider) callCount() int {
	return int(atomic.LoadInt32(&p.calls))
}

// responseProvider 透传上下文中的真实响应
func responseProvider() *testProvider {
	return &testProvider{
		name:     "response",
		provides: []reflect.Type{testResponseType},
		requires: []reflect.Type{testResponseType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return []any{deps[0]}, nil
		},
	}
}

// priceProvider 不依赖响应体的 Provider
func priceProvider() *testProvider {
	return &testProvider{
		name:     "price",
		provides: []reflect.Type{priceType},
		requires: []reflect.Type{testRequestType},
		fn: func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
			return []any{&Price{Value: "9.99"}}, nil
		},
	}
}

// ---------------- 测试辅助 ----------------

// newBookRegistries 构建注册了 BookPage 和响应 Provider 的基础配置
func newBookRegistries() (*page.Registry, *ProviderRegistry, *OverrideRegistry) {
	pages := page.NewRegistry()
	page.MustRegisterWithItem[*Book](pages, NewBookPage)

	providers := NewProviderRegistry()
	providers.Register(responseProvider(), 500)

	overrides := NewOverrideRegistry(nil, nil)
	return pages, providers, overrides
}

// newRequestContext 构建携带请求与真实响应的解析上下文
func newRequestContext(url, body string) *Context {
	req := web.NewRequest(url)
	resp := web.NewResponse(req, 200, []byte(body))
	return NewRequestContext(req, resp, nil, nil)
}
