package settings

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// MapSource 内存设置源
type MapSource struct {
	Data map[string]any
}

func (s *MapSource) Name() string {
	return "Map"
}

func (s *MapSource) Load() (map[string]any, error) {
	result := make(map[string]any)
	mergeMaps(result, s.Data)
	return result, nil
}

// YamlFileSource YAML 文件设置源
type YamlFileSource struct {
	Path     string
	Optional bool
}

func (s *YamlFileSource) Name() string {
	return fmt.Sprintf("YamlFile(%s)", s.Path)
}

func (s *YamlFileSource) Load() (map[string]any, error) {
	data, err := os.ReadFile(s.Path)
	if err != nil {
		if s.Optional && os.IsNotExist(err) {
			return make(map[string]any), nil
		}
		return nil, err
	}

	var result map[string]any
	if err := yaml.Unmarshal(data, &result); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	return result, nil
}

// EnvSource 环境变量设置源
type EnvSource struct {
	Prefix string
}

func (s *EnvSource) Name() string {
	return fmt.Sprintf("Env(%s)", s.Prefix)
}

func (s *EnvSource) Load() (map[string]any, error) {
	result := make(map[string]any)

	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		key, value := parts[0], parts[1]

		if s.Prefix != "" {
			if !strings.HasPrefix(key, s.Prefix) {
				continue
			}
			key = strings.TrimPrefix(key, s.Prefix)
		}

		// 小写并将 _ 转换为层级分隔符
		key = strings.ToLower(key)
		key = strings.ReplaceAll(key, "_", ":")
		setNestedValue(result, key, value)
	}
	return result, nil
}

// setNestedValue 按 ":" 路径设置嵌套值
func setNestedValue(data map[string]any, path string, value any) {
	parts := strings.Split(path, ":")
	current := data

	for i := 0; i < len(parts)-1; i++ {
		part := parts[i]
		if _, exists := current[part]; !exists {
			current[part] = make(map[string]any)
		}
		if m, ok := current[part].(map[string]any); ok {
			current = m
		} else {
			return
		}
	}

	// 尝试将字符串值转换为合适的类型
	if strValue, ok := value.(string); ok {
		if intValue, err := strconv.Atoi(strValue); err == nil {
			value = intValue
		} else if floatValue, err := strconv.ParseFloat(strValue, 64); err == nil {
			value = floatValue
		} else if boolValue, err := strconv.ParseBool(strValue); err == nil {
			value = boolValue
		}
	}

	current[parts[len(parts)-1]] = value
}
