package injection

import (
	"reflect"
	"sync"

	"github.com/scrapinghub/scrapy-poet-sub000/settings"
	"github.com/scrapinghub/scrapy-poet-sub000/stats"
	"github.com/scrapinghub/scrapy-poet-sub000/web"
)

// 解析上下文可直接满足的框架单例类型
var (
	requestType   = reflect.TypeOf((*web.Request)(nil))
	settingsType  = reflect.TypeOf((*settings.Settings)(nil))
	statsSinkType = reflect.TypeOf((*stats.Sink)(nil)).Elem()
)

func isContextType(t reflect.Type) bool {
	switch t {
	case requestType, rawResponseType, dummyResponseType, settingsType, statsSinkType:
		return true
	}
	return false
}

// Context 单次解析的上下文
//
// 携带抓取引擎提供的框架级单例（当前请求、响应或其替身、设置、
// 统计接收器），以及可选的请求级实例缓存。每次解析由其调用方独占，
// 不在并发解析之间共享。
type Context struct {
	objects map[reflect.Type]any
	stats   stats.Sink
	cache   *RequestCache
}

// NewContext 创建空的解析上下文
func NewContext() *Context {
	return &Context{objects: make(map[reflect.Type]any)}
}

// NewRequestContext 为一次请求/响应周期创建解析上下文
//
// response 为 *web.Response 或 *web.DummyResponse（跳过下载时）。
func NewRequestContext(req *web.Request, response any, s *settings.Settings, sink stats.Sink) *Context {
	c := NewContext()
	if req != nil {
		c.Put(req)
	}
	if response != nil {
		c.Put(response)
	}
	if s != nil {
		c.Put(s)
	}
	if sink != nil {
		c.PutAs(statsSinkType, sink)
		c.stats = sink
	}
	return c
}

// Put 按值的具体类型放入单例
func (c *Context) Put(v any) *Context {
	c.objects[reflect.TypeOf(v)] = v
	return c
}

// PutAs 按指定类型放入单例（用于接口类型）
func (c *Context) PutAs(t reflect.Type, v any) *Context {
	c.objects[t] = v
	return c
}

// WithCache 附加请求级实例缓存
func (c *Context) WithCache(cache *RequestCache) *Context {
	c.cache = cache
	return c
}

// Lookup 按类型查找单例
//
// 精确匹配优先；接口类型找不到精确项时，退回到可赋值扫描。
func (c *Context) Lookup(t reflect.Type) (any, bool) {
	if v, ok := c.objects[t]; ok {
		return v, true
	}
	if t.Kind() == reflect.Interface {
		for vt, v := range c.objects {
			if vt.Implements(t) {
				return v, true
			}
		}
	}
	return nil, false
}

// Stats 返回统计接收器，可能为 nil
func (c *Context) Stats() stats.Sink {
	return c.stats
}

// RequestCache 请求级实例缓存
//
// 由调用方显式创建并在同一请求的多次解析之间传递，随请求作用域
// 一起丢弃。相比以请求身份为键的全局弱引用表，生命周期是显式的。
type RequestCache struct {
	mu        sync.RWMutex
	instances map[Key]any
}

// NewRequestCache 创建请求级实例缓存
func NewRequestCache() *RequestCache {
	return &RequestCache{instances: make(map[Key]any)}
}

// Get 查找缓存实例
func (c *RequestCache) Get(k Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.instances[k]
	return v, ok
}

// Put 存入实例
func (c *RequestCache) Put(k Key, v any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instances[k] = v
}

// Len 返回缓存的实例数
func (c *RequestCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.instances)
}
