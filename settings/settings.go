// Package settings 提供抓取全局设置存储。
//
// Settings 是注入上下文中的框架单例之一：Provider 可以声明依赖
// *Settings 来读取 API key、超时等配置。设置在进程启动时从各配置源
// 加载一次，之后只读。
package settings

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Settings 设置存储
//
// 键使用 ":" 作为层级分隔符，如 "extract:api_key"。
type Settings struct {
	data map[string]any
}

// Source 设置源接口
type Source interface {
	Load() (map[string]any, error)
	Name() string
}

// Builder 设置构建器
//
// 按顺序加载所有配置源，后加入的源覆盖先加入的源。
type Builder struct {
	sources []Source
}

// NewBuilder 创建设置构建器
func NewBuilder() *Builder {
	return &Builder{}
}

// Add 添加设置源
func (b *Builder) Add(source Source) *Builder {
	b.sources = append(b.sources, source)
	return b
}

// AddMap 添加内存设置源
func (b *Builder) AddMap(data map[string]any) *Builder {
	return b.Add(&MapSource{Data: data})
}

// AddYamlFile 添加 YAML 文件设置源
func (b *Builder) AddYamlFile(path string, optional ...bool) *Builder {
	isOptional := len(optional) > 0 && optional[0]
	return b.Add(&YamlFileSource{Path: path, Optional: isOptional})
}

// AddEnvironmentVariables 添加环境变量设置源
func (b *Builder) AddEnvironmentVariables(prefix string) *Builder {
	return b.Add(&EnvSource{Prefix: prefix})
}

// AddEtcd 添加 etcd 设置源
func (b *Builder) AddEtcd(opts EtcdOptions) *Builder {
	return b.Add(NewEtcdSource(opts))
}

// Build 加载所有源并构建设置
func (b *Builder) Build() (*Settings, error) {
	s := &Settings{data: make(map[string]any)}
	for _, source := range b.sources {
		data, err := source.Load()
		if err != nil {
			return nil, fmt.Errorf("settings: failed to load source %s: %w", source.Name(), err)
		}
		mergeMaps(s.data, data)
	}
	return s, nil
}

// New 直接从内存数据创建设置（便于测试使用）
func New(data map[string]any) *Settings {
	s := &Settings{data: make(map[string]any)}
	mergeMaps(s.data, data)
	return s
}

// Get 获取设置值
func (s *Settings) Get(key string) string {
	value := s.getByPath(key)
	if value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// GetWithDefault 获取设置值，不存在时返回默认值
func (s *Settings) GetWithDefault(key, defaultValue string) string {
	value := s.Get(key)
	if value == "" {
		return defaultValue
	}
	return value
}

// GetInt 获取整数设置值
func (s *Settings) GetInt(key string) (int, error) {
	value := s.getByPath(key)
	if value == nil {
		return 0, fmt.Errorf("settings: key %s not found", key)
	}

	switch v := value.(type) {
	case int:
		return v, nil
	case int64:
		return int(v), nil
	case float64:
		return int(v), nil
	case string:
		return strconv.Atoi(v)
	default:
		return 0, fmt.Errorf("settings: cannot convert %v to int", value)
	}
}

// GetBool 获取布尔设置值
func (s *Settings) GetBool(key string) (bool, error) {
	value := s.getByPath(key)
	if value == nil {
		return false, fmt.Errorf("settings: key %s not found", key)
	}

	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		return strconv.ParseBool(v)
	default:
		return false, fmt.Errorf("settings: cannot convert %v to bool", value)
	}
}

// Section 获取设置子节
func (s *Settings) Section(key string) *Settings {
	value := s.getByPath(key)
	if m, ok := value.(map[string]any); ok {
		return &Settings{data: m}
	}
	return &Settings{data: make(map[string]any)}
}

// Bind 将设置节绑定到结构体
func (s *Settings) Bind(key string, target any) error {
	var data any
	if key == "" {
		data = s.data
	} else {
		data = s.getByPath(key)
	}
	if data == nil {
		return fmt.Errorf("settings: key %s not found", key)
	}

	// 使用 JSON 序列化/反序列化进行绑定
	jsonData, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("settings: failed to marshal data: %w", err)
	}
	if err := json.Unmarshal(jsonData, target); err != nil {
		return fmt.Errorf("settings: failed to unmarshal data: %w", err)
	}
	return nil
}

// All 返回所有设置的副本
func (s *Settings) All() map[string]any {
	result := make(map[string]any)
	mergeMaps(result, s.data)
	return result
}

// getByPath 按 ":" 分隔的路径取值
func (s *Settings) getByPath(key string) any {
	if key == "" {
		return nil
	}
	parts := strings.Split(key, ":")
	var current any = s.data
	for _, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current, ok = m[part]
		if !ok {
			return nil
		}
	}
	return current
}

// mergeMaps 深合并 src 到 dst
func mergeMaps(dst, src map[string]any) {
	for k, v := range src {
		if srcMap, ok := v.(map[string]any); ok {
			if dstMap, ok := dst[k].(map[string]any); ok {
				mergeMaps(dstMap, srcMap)
				continue
			}
			copied := make(map[string]any)
			mergeMaps(copied, srcMap)
			dst[k] = copied
			continue
		}
		dst[k] = v
	}
}
