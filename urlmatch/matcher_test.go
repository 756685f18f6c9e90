package urlmatch

import "testing"

// TestMatchExactDomain 测试域名模式匹配该域名及其子域名
func TestMatchExactDomain(t *testing.T) {
	m := New()
	m.Add(1, "example.com", 0)

	cases := []struct {
		url  string
		want bool
	}{
		{"http://example.com/", true},
		{"http://example.com/books/1", true},
		{"https://www.example.com/", true},
		{"http://EXAMPLE.com/", true},
		{"http://other.net/", false},
		{"http://notexample.com/", false},
	}
	for _, c := range cases {
		_, ok := m.Match(c.url)
		if ok != c.want {
			t.Errorf("Match(%q) = %v, want %v", c.url, ok, c.want)
		}
	}
}

// TestMatchSubdomainWildcard 测试 *.host 模式
func TestMatchSubdomainWildcard(t *testing.T) {
	m := New()
	m.Add(1, "*.example.com", 0)

	if _, ok := m.Match("http://shop.example.com/"); !ok {
		t.Error("Expected a subdomain match")
	}
	if _, ok := m.Match("http://deep.shop.example.com/"); !ok {
		t.Error("Expected a nested subdomain match")
	}
}

// TestMatchPathPrefix 测试路径前缀模式
func TestMatchPathPrefix(t *testing.T) {
	m := New()
	m.Add(1, "example.com/books", 0)

	if _, ok := m.Match("http://example.com/books/1"); !ok {
		t.Error("Expected a path prefix match")
	}
	if _, ok := m.Match("http://example.com/about"); ok {
		t.Error("Expected no match outside the path prefix")
	}
}

// TestMatchEmptyPattern 测试空模式匹配所有 URL
func TestMatchEmptyPattern(t *testing.T) {
	m := New()
	m.Add(1, "", 0)

	if _, ok := m.Match("http://anything.anywhere/whatever"); !ok {
		t.Error("Expected the empty pattern to match everything")
	}
}

// TestMatchPriority 测试优先级高的模式胜出
func TestMatchPriority(t *testing.T) {
	m := New()
	m.Add(1, "example.com", 500)
	m.Add(2, "example.com/books", 600)

	id, ok := m.Match("http://example.com/books/1")
	if !ok || id != 2 {
		t.Errorf("Expected the priority-600 pattern (id 2), got id=%d ok=%v", id, ok)
	}

	id, ok = m.Match("http://example.com/about")
	if !ok || id != 1 {
		t.Errorf("Expected the broad pattern (id 1), got id=%d ok=%v", id, ok)
	}
}

// TestMatchSpecificity 测试同优先级下更具体的模式胜出
func TestMatchSpecificity(t *testing.T) {
	m := New()
	m.Add(1, "example.com", 0)
	m.Add(2, "example.com/books", 0)

	id, ok := m.Match("http://example.com/books/1")
	if !ok || id != 2 {
		t.Errorf("Expected the more specific pattern (id 2), got id=%d ok=%v", id, ok)
	}
}

// TestMatchRegistrationTieBreak 测试完全平局时后注册者胜出
func TestMatchRegistrationTieBreak(t *testing.T) {
	m := New()
	m.Add(1, "example.com", 0)
	m.Add(2, "example.com", 0)

	id, ok := m.Match("http://example.com/")
	if !ok || id != 2 {
		t.Errorf("Expected the later registration (id 2), got id=%d ok=%v", id, ok)
	}
}

// TestAddInvalidPattern 测试非法模式被拒绝
func TestAddInvalidPattern(t *testing.T) {
	m := New()

	if err := m.Add(1, "http://example.com", 0); err == nil {
		t.Error("Expected an error for a pattern with a scheme")
	}
	if err := m.Add(2, "ex*mple.com", 0); err == nil {
		t.Error("Expected an error for a mid-host wildcard")
	}
}

// TestMatchInvalidURL 测试不可解析的 URL 不命中
func TestMatchInvalidURL(t *testing.T) {
	m := New()
	m.Add(1, "", 0)

	if _, ok := m.Match("http://%zz-invalid"); ok {
		t.Error("Expected no match for an unparsable URL")
	}
}
