package web

// RequestURL 当前请求的 URL，可作为独立依赖注入
type RequestURL string

// ResponseURL 响应对应的最终 URL
type ResponseURL string

// PageParams 引擎随请求传递给页面对象的参数
//
// 取自请求元数据的 "page_params" 键。
type PageParams map[string]any

// PageParamsFrom 从请求元数据提取页面参数
func PageParamsFrom(req *Request) PageParams {
	if req == nil || req.Meta == nil {
		return PageParams{}
	}
	if params, ok := req.Meta["page_params"].(map[string]any); ok {
		return PageParams(params)
	}
	return PageParams{}
}
