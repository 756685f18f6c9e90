package web

import (
	"fmt"
	"net/url"
)

// Request 表示一次抓取请求
//
// 它是注入上下文中的框架单例之一：Provider 可以在自己的依赖列表中
// 声明 *Request，以便根据当前请求构造产出。
type Request struct {
	URL     string
	Method  string
	Headers map[string][]string
	Body    []byte

	// Meta 携带引擎层附加的请求元数据（回调名、重试次数等）
	Meta map[string]any
}

// NewRequest 创建一个 GET 请求
func NewRequest(rawURL string) *Request {
	return &Request{
		URL:     rawURL,
		Method:  "GET",
		Headers: make(map[string][]string),
		Meta:    make(map[string]any),
	}
}

// Validate 验证请求
func (r *Request) Validate() error {
	if r.URL == "" {
		return fmt.Errorf("request URL is required")
	}
	if _, err := url.Parse(r.URL); err != nil {
		return fmt.Errorf("invalid request URL %q: %w", r.URL, err)
	}
	return nil
}

// Header 返回第一个匹配的请求头，不存在时返回空字符串
func (r *Request) Header(key string) string {
	if vs, ok := r.Headers[key]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}
