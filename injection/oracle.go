package injection

// IsResponseRequired 判定执行该计划前是否必须进行真实的网络下载
//
// 规则依次为：
//  1. 回调首个参数未声明类型，或声明了原始响应类型，返回 true。
//  2. 首个参数声明为下载替身（DummyResponse）时不立即返回，
//     继续检查 Provider。
//  3. 计划触及的任何 Provider 的一级依赖包含真实响应类型时，
//     返回 true。
//  4. 否则返回 false，调用方可以用零成本替身代替下载。
//
// 这使得回调把提取委托给第三方数据源（而不是页面自身的 HTML）时，
// 引擎可以完全跳过网络下载。
func IsResponseRequired(sig *Signature, plan *Plan) bool {
	if sig == nil {
		return true
	}

	first, ok := sig.First()
	if ok {
		if len(first.Types) == 0 {
			// 未声明类型默认注入原始响应
			return true
		}
		for _, t := range first.Types {
			if t == rawResponseType {
				return true
			}
		}
	}

	if plan != nil && plan.requiresRealResponse() {
		return true
	}
	return false
}
