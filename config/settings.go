package config

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/store"
)

// Settings 是 CLI 与 API 服务共用的配置文件结构（YAML 或 JSON）。
//
//	snapshot:
//	  source: file            # file / redis
//	  path: details.json
//	  redis: {addr: "127.0.0.1:6379", db: 0, key: details.json}
//	thresholds:
//	  fast_exit: {bandwidth_rate: 12160000, ports: [80, 443]}
//	  max_per_network: 2
//	defaults: {top: 10, sort: cw, sort_reverse: true}
//	server: {listen_addr: ":8080"}
//	link_base: https://atlas.torproject.org/#details/
type Settings struct {
	Snapshot   SnapshotSettings `yaml:"snapshot" json:"snapshot"`
	Thresholds core.Thresholds  `yaml:"thresholds" json:"thresholds"`
	Defaults   DefaultsSettings `yaml:"defaults" json:"defaults"`
	Server     ServerSettings   `yaml:"server" json:"server"`
	LinkBase   string           `yaml:"link_base" json:"link_base"`

	// MaxConcurrent 是批量查询的最大并发数
	MaxConcurrent int `yaml:"max_concurrent" json:"max_concurrent"`
}

// SnapshotSettings 指定快照来源。
type SnapshotSettings struct {
	Source string        `yaml:"source" json:"source"` // file / redis
	Path   string        `yaml:"path" json:"path"`
	Redis  RedisSettings `yaml:"redis" json:"redis"`
}

type RedisSettings struct {
	Addr string `yaml:"addr" json:"addr"`
	DB   int    `yaml:"db" json:"db"`
	Key  string `yaml:"key" json:"key"`
}

// DefaultsSettings 覆盖查询默认值，未填写的字段保持 core.DefaultOptions()。
type DefaultsSettings struct {
	Top         *int   `yaml:"top" json:"top"`
	Sort        string `yaml:"sort" json:"sort"`
	SortReverse *bool  `yaml:"sort_reverse" json:"sort_reverse"`
	Links       bool   `yaml:"links" json:"links"`
}

type ServerSettings struct {
	ListenAddr string `yaml:"listen_addr" json:"listen_addr"`

	// DisableMetrics 为 true 时不暴露 /metrics
	DisableMetrics bool `yaml:"disable_metrics" json:"disable_metrics"`
}

// DefaultSettings 返回默认配置：读取当前目录下的 details.json。
func DefaultSettings() *Settings {
	return &Settings{
		Snapshot: SnapshotSettings{
			Source: "file",
			Path:   "details.json",
		},
		Thresholds: core.DefaultThresholds(),
		Server: ServerSettings{
			ListenAddr: ":8080",
		},
	}
}

// LoadSettings 读取配置文件，按扩展名选择 JSON 或 YAML 解析；
// 门槛只覆盖文件中给出的字段。
func LoadSettings(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	return ParseSettings(data, isJSON(path))
}

// ParseSettings 解析配置内容。
func ParseSettings(data []byte, asJSON bool) (*Settings, error) {
	var fileCfg Settings
	if asJSON {
		if err := json.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse json: %w", err)
		}
	} else {
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
	}

	cfg := DefaultSettings()
	cfg.Thresholds = cfg.Thresholds.Merge(fileCfg.Thresholds)
	if fileCfg.Snapshot.Source != "" {
		cfg.Snapshot.Source = fileCfg.Snapshot.Source
	}
	if fileCfg.Snapshot.Path != "" {
		cfg.Snapshot.Path = fileCfg.Snapshot.Path
	}
	cfg.Snapshot.Redis = fileCfg.Snapshot.Redis
	cfg.Defaults = fileCfg.Defaults
	if fileCfg.Server.ListenAddr != "" {
		cfg.Server.ListenAddr = fileCfg.Server.ListenAddr
	}
	cfg.Server.DisableMetrics = fileCfg.Server.DisableMetrics
	cfg.LinkBase = fileCfg.LinkBase
	cfg.MaxConcurrent = fileCfg.MaxConcurrent

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 检查配置取值。
func (s *Settings) Validate() error {
	switch s.Snapshot.Source {
	case "file":
	case "redis":
		if s.Snapshot.Redis.Addr == "" {
			return core.ConfigError("snapshot.redis.addr is required for redis source")
		}
	default:
		return core.ConfigError("unknown snapshot source %q (supported: file, redis)", s.Snapshot.Source)
	}
	if s.Thresholds.MaxPerNetwork < 1 {
		return core.ConfigError("thresholds.max_per_network must be >= 1")
	}
	return nil
}

// Options 返回应用了 Defaults 的查询默认值。
func (s *Settings) Options() core.Options {
	opts := core.DefaultOptions()
	if s.Defaults.Top != nil {
		opts.Top = *s.Defaults.Top
	}
	if s.Defaults.Sort != "" {
		opts.SortField = s.Defaults.Sort
	}
	if s.Defaults.SortReverse != nil {
		opts.SortReverse = *s.Defaults.SortReverse
	}
	opts.Links = s.Defaults.Links
	return opts
}

// OpenStore 按 Snapshot 配置打开快照来源，返回 Store 与快照 key。
func (s *Settings) OpenStore(ctx context.Context) (core.Store, string, error) {
	switch s.Snapshot.Source {
	case "redis":
		rs, err := store.NewRedisStore(ctx, s.Snapshot.Redis.Addr, s.Snapshot.Redis.DB)
		if err != nil {
			return nil, "", fmt.Errorf("connect redis %s: %w", s.Snapshot.Redis.Addr, err)
		}
		key := s.Snapshot.Redis.Key
		if key == "" {
			key = filepath.Base(s.Snapshot.Path)
		}
		return rs, key, nil
	default:
		path := s.Snapshot.Path
		return store.NewFileStore(filepath.Dir(path)), filepath.Base(path), nil
	}
}

func isJSON(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".json")
}
