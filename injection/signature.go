package injection

import (
	"context"
	"fmt"
	"reflect"

	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

// rawResponseType 回调首参数未声明类型时的默认注入类型
var rawResponseType = reflect.TypeOf((*web.Response)(nil))

// dummyResponseType 跳过下载的替身类型
var dummyResponseType = reflect.TypeOf((*web.DummyResponse)(nil))

// Param 回调的一个参数
//
// Types 是按声明顺序排列的备选类型（联合类型）。规划时依次尝试，
// 取第一个可解析的备选；Types 为空表示参数未声明类型，默认注入
// 原始网络响应。Optional 为 true 时，所有备选都不可解析则绑定 nil
// 而不是使整个计划失败。
type Param struct {
	Name       string
	Types      []reflect.Type
	Annotation string
	Optional   bool
}

// Signature 回调的有序参数列表
//
// 由抓取引擎为每个任务提供，是单次解析的依赖图根。
type Signature struct {
	params []Param
}

// NewSignature 创建空签名
func NewSignature() *Signature {
	return &Signature{}
}

// Param 追加一个参数
func (s *Signature) Param(name string, types ...reflect.Type) *Signature {
	s.params = append(s.params, Param{Name: name, Types: types})
	return s
}

// OptionalParam 追加一个可选参数
func (s *Signature) OptionalParam(name string, types ...reflect.Type) *Signature {
	s.params = append(s.params, Param{Name: name, Types: types, Optional: true})
	return s
}

// AnnotatedParam 追加一个带注解的参数
func (s *Signature) AnnotatedParam(name, annotation string, types ...reflect.Type) *Signature {
	s.params = append(s.params, Param{Name: name, Types: types, Annotation: annotation})
	return s
}

// Params 返回参数列表
func (s *Signature) Params() []Param {
	return s.params
}

// First 返回首个参数，不存在时返回零值
func (s *Signature) First() (Param, bool) {
	if len(s.params) == 0 {
		return Param{}, false
	}
	return s.params[0], true
}

// keys 返回参数的描述符备选（规划入口）
//
// 未声明类型的参数默认为原始响应类型。
func (p Param) keys() []Key {
	types := p.Types
	if len(types) == 0 {
		types = []reflect.Type{rawResponseType}
	}
	keys := make([]Key, len(types))
	for i, t := range types {
		keys[i] = Key{Type: t, Annotation: p.Annotation}
	}
	return keys
}

// SignatureOf 从函数类型反射出签名
//
// Go 的反射拿不到参数名，因此参数名由调用方按顺序提供；names 数量
// 必须与函数参数数量一致。首个 context.Context 参数会被跳过（它由
// 引擎传入，不参与注入）。
func SignatureOf(fn any, names ...string) (*Signature, error) {
	if fn == nil {
		return nil, fmt.Errorf("injection: callback function is required")
	}
	fnType := reflect.TypeOf(fn)
	if fnType.Kind() != reflect.Func {
		return nil, fmt.Errorf("injection: callback must be a function, got %T", fn)
	}

	start := 0
	if fnType.NumIn() > 0 && fnType.In(0) == contextType {
		start = 1
	}

	if fnType.NumIn()-start != len(names) {
		return nil, fmt.Errorf("injection: callback has %d injectable parameters, got %d names",
			fnType.NumIn()-start, len(names))
	}

	sig := NewSignature()
	for i := start; i < fnType.NumIn(); i++ {
		sig.Param(names[i-start], fnType.In(i))
	}
	return sig, nil
}

// contextType 用于识别并跳过 context.Context 参数
var contextType = reflect.TypeOf((*context.Context)(nil)).Elem()
