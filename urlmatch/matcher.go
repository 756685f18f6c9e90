// Package urlmatch 提供 URL 模式匹配器。
//
// 覆写注册表（injection 包）只依赖 Matcher 接口，本包同时提供一个
// 默认实现，支持以下模式：
//
//	"example.com"        匹配该域名及其任意路径
//	"*.example.com"      匹配任意子域名
//	"example.com/path"   匹配域名下的路径前缀
//	""                   匹配所有 URL
package urlmatch

import (
	"fmt"
	"net/url"
	"strings"
	"sync"
)

// Matcher URL 模式匹配器接口
//
// Add 注册一个模式并关联调用方提供的 id；Match 返回当前 URL 命中的
// 最优 id。同一 Matcher 内的优先级规则由实现定义。
type Matcher interface {
	Add(id int, pattern string, priority int) error
	Match(rawURL string) (id int, ok bool)
}

// pattern 已解析的模式
type pattern struct {
	id       int
	host     string // 小写域名，可为空（匹配所有）
	anySub   bool   // "*.host" 形式
	path     string // 路径前缀，可为空
	priority int
	seq      int // 注册顺序，平局时后注册者优先
}

// matcher 默认实现
//
// 注册完成后只读，可在并发解析之间安全共享。
type matcher struct {
	mu       sync.RWMutex
	patterns []pattern
	seq      int
}

// New 创建默认匹配器
func New() Matcher {
	return &matcher{}
}

// Add 注册模式
func (m *matcher) Add(id int, raw string, priority int) error {
	p, err := parse(raw)
	if err != nil {
		return err
	}
	p.id = id
	p.priority = priority

	m.mu.Lock()
	defer m.mu.Unlock()
	p.seq = m.seq
	m.seq++
	m.patterns = append(m.patterns, p)
	return nil
}

// Match 返回命中 URL 的最优模式的 id
//
// 优先级高者胜；同优先级下更具体（域名+路径更长）的模式胜；
// 仍然平局时后注册者胜。
func (m *matcher) Match(rawURL string) (int, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return 0, false
	}
	host := strings.ToLower(u.Hostname())
	path := u.Path
	if path == "" {
		path = "/"
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	best := -1
	for i, p := range m.patterns {
		if !p.matches(host, path) {
			continue
		}
		if best < 0 || better(p, m.patterns[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0, false
	}
	return m.patterns[best].id, true
}

func (p pattern) matches(host, path string) bool {
	if p.host != "" {
		if p.anySub {
			if host != p.host && !strings.HasSuffix(host, "."+p.host) {
				return false
			}
		} else if host != p.host && !strings.HasSuffix(host, "."+p.host) {
			// 裸域名模式同时覆盖其子域名（www.example.com 命中 example.com）
			return false
		}
	}
	if p.path != "" && !strings.HasPrefix(path, p.path) {
		return false
	}
	return true
}

// better 判断 a 是否应胜过 b
func better(a, b pattern) bool {
	if a.priority != b.priority {
		return a.priority > b.priority
	}
	la, lb := len(a.host)+len(a.path), len(b.host)+len(b.path)
	if la != lb {
		return la > lb
	}
	return a.seq > b.seq
}

// parse 解析模式字符串
func parse(raw string) (pattern, error) {
	var p pattern
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return p, nil // 匹配所有
	}
	if strings.Contains(raw, "://") {
		return p, fmt.Errorf("urlmatch: pattern %q must not contain a scheme", raw)
	}

	hostPart := raw
	if idx := strings.Index(raw, "/"); idx >= 0 {
		hostPart = raw[:idx]
		p.path = raw[idx:]
	}

	hostPart = strings.ToLower(hostPart)
	if strings.HasPrefix(hostPart, "*.") {
		p.anySub = true
		hostPart = hostPart[2:]
	}
	if strings.Contains(hostPart, "*") {
		return p, fmt.Errorf("urlmatch: unsupported wildcard in pattern %q", raw)
	}
	p.host = hostPart
	return p, nil
}
