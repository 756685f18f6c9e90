package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	clientv3 "go.etcd.io/etcd/client/v3"
	"gopkg.in/yaml.v3"
)

// EtcdOptions etcd 设置源选项
type EtcdOptions struct {
	Endpoints   []string      // etcd 服务器地址列表
	Username    string        // 用户名（可选）
	Password    string        // 密码（可选）
	Prefix      string        // 键前缀（可选）
	Timeout     time.Duration // 读取超时时间（默认 5 秒）
	DialTimeout time.Duration // 拨号超时时间（默认 5 秒）
}

// EtcdSource etcd 设置源
//
// 键的路径分隔符 "/" 被映射为设置层级分隔符 ":"，值按 JSON、YAML、
// 纯文本的顺序尝试解析。
type EtcdSource struct {
	Options EtcdOptions
}

// NewEtcdSource 创建 etcd 设置源
func NewEtcdSource(opts EtcdOptions) *EtcdSource {
	if opts.Timeout == 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.DialTimeout == 0 {
		opts.DialTimeout = 5 * time.Second
	}
	return &EtcdSource{Options: opts}
}

func (s *EtcdSource) Name() string {
	return fmt.Sprintf("Etcd(%v)", s.Options.Endpoints)
}

func (s *EtcdSource) Load() (map[string]any, error) {
	cli, err := clientv3.New(clientv3.Config{
		Endpoints:   s.Options.Endpoints,
		Username:    s.Options.Username,
		Password:    s.Options.Password,
		DialTimeout: s.Options.DialTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create etcd client: %w", err)
	}
	defer cli.Close()

	ctx, cancel := context.WithTimeout(context.Background(), s.Options.Timeout)
	defer cancel()

	prefix := s.Options.Prefix
	if prefix == "" {
		prefix = "/"
	}

	resp, err := cli.Get(ctx, prefix, clientv3.WithPrefix())
	if err != nil {
		return nil, fmt.Errorf("failed to get settings from etcd: %w", err)
	}

	result := make(map[string]any)
	for _, kv := range resp.Kvs {
		key := string(kv.Key)
		value := string(kv.Value)

		if s.Options.Prefix != "" {
			key = strings.TrimPrefix(key, s.Options.Prefix)
		}
		key = strings.TrimPrefix(key, "/")
		if key == "" {
			continue
		}
		key = strings.ReplaceAll(key, "/", ":")

		setNestedValue(result, key, parseValue(value))
	}
	return result, nil
}

// parseValue 按 JSON、YAML、纯文本的顺序解析值
func parseValue(value string) any {
	var jsonValue any
	if err := json.Unmarshal([]byte(value), &jsonValue); err == nil {
		return jsonValue
	}
	var yamlValue any
	if err := yaml.Unmarshal([]byte(value), &yamlValue); err == nil {
		return yamlValue
	}
	return value
}
