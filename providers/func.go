package providers

import (
	"context"
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/injection"
)

// Func 从函数构造的 Provider
//
// 便于配置加载和测试中声明简单 Provider，无需定义新类型。
type Func struct {
	ProviderName string
	ProvideTypes []reflect.Type
	RequireTypes []reflect.Type
	Fn           func(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error)
}

var _ injection.Provider = (*Func)(nil)

func (f *Func) Name() string { return f.ProviderName }

func (f *Func) Provides() any { return f.ProvideTypes }

func (f *Func) Requires() []reflect.Type { return f.RequireTypes }

func (f *Func) Provide(ctx context.Context, requested []reflect.Type, deps []any) ([]any, error) {
	return f.Fn(ctx, requested, deps)
}
