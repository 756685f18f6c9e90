package injection

import (
	"fmt"
	"reflect"
)

// MalformedProviderError 表示 Provider 的产出类型声明既不是类型集合
// 也不是判定函数。启动校验阶段的致命错误。
type MalformedProviderError struct {
	Provider string
	Reason   string
}

var _ error = &MalformedProviderError{}

func (e *MalformedProviderError) Error() string {
	return fmt.Sprintf("injection: provider %q has a malformed produced-type declaration: %s", e.Provider, e.Reason)
}

// NonCallableProviderError 表示注册的值不是可调用的 Provider。
// 启动校验阶段的致命错误。
type NonCallableProviderError struct {
	Value any
}

var _ error = &NonCallableProviderError{}

func (e *NonCallableProviderError) Error() string {
	return fmt.Sprintf("injection: registered value of type %T is not a callable provider", e.Value)
}

// UndeclaredTypeError 表示 Provider 返回了请求子集之外的类型。
// 中止当前解析，丢弃部分结果。
type UndeclaredTypeError struct {
	Provider  string
	Got       reflect.Type
	Requested []reflect.Type
}

var _ error = &UndeclaredTypeError{}

func (e *UndeclaredTypeError) Error() string {
	return fmt.Sprintf("injection: provider %q returned an instance of undeclared type %v (requested subset: %v)",
		e.Provider, e.Got, e.Requested)
}

// CycleError 表示两个自构建类型直接或传递地相互依赖，且中间没有
// 外部 Provider 打断。规划阶段检测到后中止当前计划的构建。
type CycleError struct {
	From Key
	To   Key
}

var _ error = &CycleError{}

func (e *CycleError) Error() string {
	return fmt.Sprintf("injection: dependency cycle detected: %s -> %s", e.From, e.To)
}

// InjectionError 其他无法解析的依赖条件（如必需参数既没有 Provider
// 也不是自构建类型）。中止当前解析。
type InjectionError struct {
	Param   string // 涉及的回调参数名，可为空
	Key     Key
	Message string
	Cause   error
}

var _ error = &InjectionError{}

func (e *InjectionError) Error() string {
	msg := e.Message
	if e.Param != "" {
		msg = fmt.Sprintf("parameter %q (%s): %s", e.Param, e.Key, msg)
	} else if e.Key.Type != nil {
		msg = fmt.Sprintf("%s: %s", e.Key, msg)
	}
	if e.Cause != nil {
		return fmt.Sprintf("injection: %s: %v", msg, e.Cause)
	}
	return "injection: " + msg
}

func (e *InjectionError) Unwrap() error { return e.Cause }
