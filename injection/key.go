// Package injection 实现回调参数的依赖注入规划与解析。
//
// 给定一个回调的参数签名，Planner 结合页面对象注册表、Provider
// 注册表和 URL 覆写规则，构建出依赖先行的拓扑有序计划；Resolver
// 按计划调用 Provider（每个 Provider 每次解析至多调用一次）并构造
// 页面对象，最终产出参数名到实例的映射。
package injection

import (
	"fmt"
	"reflect"
)

// Key 依赖类型描述符
//
// 由底层类型和一个可选的注解标签组成。注解用于区分同一类型的
// 多个实例（例如两个不同配置的翻译结果）。两个 Key 相等当且仅当
// 类型与注解都相同。
type Key struct {
	Type       reflect.Type
	Annotation string
}

// KeyOf 创建无注解的描述符
func KeyOf(t reflect.Type) Key {
	return Key{Type: t}
}

// AnnotatedKeyOf 创建带注解的描述符
func AnnotatedKeyOf(t reflect.Type, annotation string) Key {
	return Key{Type: t, Annotation: annotation}
}

// String 返回描述符的字符串表示
func (k Key) String() string {
	if k.Type == nil {
		return "<nil>"
	}
	if k.Annotation == "" {
		return k.Type.String()
	}
	return fmt.Sprintf("%s@%s", k.Type, k.Annotation)
}

// TypeOf 获取类型 T 的 reflect.Type（泛型辅助函数）
func TypeOf[T any]() reflect.Type {
	return reflect.TypeOf((*T)(nil)).Elem()
}
