package web

import "fmt"

// Response 表示一次真实的网络下载结果
//
// 回调的首个参数未声明类型时，默认注入 *Response；Provider 声明依赖
// *Response 时，表示它需要真实的响应体（参见 injection 包的下载判定）。
type Response struct {
	Request *Request
	Status  int
	Headers map[string][]string
	Body    []byte
}

// NewResponse 基于请求创建响应
func NewResponse(req *Request, status int, body []byte) *Response {
	return &Response{
		Request: req,
		Status:  status,
		Headers: make(map[string][]string),
		Body:    body,
	}
}

// URL 返回响应对应的请求 URL
func (r *Response) URL() string {
	if r.Request == nil {
		return ""
	}
	return r.Request.URL
}

// Text 将响应体作为字符串返回
func (r *Response) Text() string {
	return string(r.Body)
}

func (r *Response) String() string {
	return fmt.Sprintf("Response(%d %s)", r.Status, r.URL())
}

// DummyResponse 是跳过下载时的零成本替身
//
// 它只携带 URL，没有响应体。当回调把首个参数声明为 *DummyResponse，
// 且计划中没有任何 Provider 依赖真实 *Response 时，引擎可以完全跳过
// 网络下载，用 DummyResponse 代替。
type DummyResponse struct {
	Request *Request
}

// NewDummyResponse 创建下载替身
func NewDummyResponse(req *Request) *DummyResponse {
	return &DummyResponse{Request: req}
}

// URL 返回替身对应的请求 URL
func (r *DummyResponse) URL() string {
	if r.Request == nil {
		return ""
	}
	return r.Request.URL
}

func (r *DummyResponse) String() string {
	return fmt.Sprintf("DummyResponse(%s)", r.URL())
}
