package config

import (
	"fmt"
	"sort"
	"sync"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
)

// 使用配置驱动时，需在 main 或入口处 import _ "github.com/rushteam/relaykit/config/builders"
// 以触发内置 Node（filter.running、filter.country、filter.same_network 等）的 init 注册。

// NodeBuilder 与 pipeline.NodeBuilder 一致：根据 config 构建 Node。
// 各组件在 init 中调用 Register(typeName, builder) 即可被配置驱动。
type NodeBuilder = pipeline.NodeBuilder

var (
	defaultBuilders   = make(map[string]NodeBuilder)
	defaultBuildersMu sync.RWMutex
)

// Register 注册一种 Node 的构建逻辑，供 DefaultFactory 与配置驱动使用。
// 建议在各组件的 init 中调用，例如：func init() { config.Register("filter.running", BuildRunningNode) }
func Register(typeName string, builder NodeBuilder) {
	if typeName == "" || builder == nil {
		return
	}
	defaultBuildersMu.Lock()
	defer defaultBuildersMu.Unlock()
	defaultBuilders[typeName] = builder
}

// SupportedTypes 返回当前已注册的 Node 类型列表（排序），用于错误提示与校验。
func SupportedTypes() []string {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	types := make([]string, 0, len(defaultBuilders))
	for t := range defaultBuilders {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Build 用注册表构建单个 Node，供嵌套 Node（inverse / same_network）递归使用。
func Build(typeName string, cfg map[string]interface{}) (pipeline.Node, error) {
	defaultBuildersMu.RLock()
	builder, ok := defaultBuilders[typeName]
	defaultBuildersMu.RUnlock()
	if !ok {
		return nil, core.ConfigError("unsupported node type %q (supported: %v)", typeName, SupportedTypes())
	}
	return builder(cfg)
}

// DefaultFactory 返回基于当前注册表构建的 NodeFactory，包含所有通过 Register 注册的 Node 类型。
func DefaultFactory() *pipeline.NodeFactory {
	defaultBuildersMu.RLock()
	defer defaultBuildersMu.RUnlock()
	f := pipeline.NewNodeFactory()
	for typeName, builder := range defaultBuilders {
		f.Register(typeName, builder)
	}
	return f
}

// ValidatePipelineConfig 校验 pipeline 配置中所有 node 类型均已注册；若有未支持类型则返回包含已支持列表的错误。
func ValidatePipelineConfig(cfg *pipeline.Config) error {
	if cfg == nil {
		return nil
	}
	supported := SupportedTypes()
	for _, nc := range cfg.Pipeline.Nodes {
		if nc.Type == "" {
			return core.ConfigError("pipeline %q: node without type", cfg.Pipeline.Name)
		}
		defaultBuildersMu.RLock()
		_, ok := defaultBuilders[nc.Type]
		defaultBuildersMu.RUnlock()
		if !ok {
			return core.ConfigError("unsupported node type %q (supported: %v)", nc.Type, supported)
		}
	}
	return nil
}

// LoadPipeline 读取 YAML / JSON 管道文件、校验并构建 Pipeline。
func LoadPipeline(path string) (*pipeline.Pipeline, error) {
	cfg, err := loadPipelineConfig(path)
	if err != nil {
		return nil, err
	}
	if err := ValidatePipelineConfig(cfg); err != nil {
		return nil, err
	}
	p, err := cfg.BuildPipeline(DefaultFactory())
	if err != nil {
		return nil, fmt.Errorf("pipeline %s: %w", path, err)
	}
	return p, nil
}

func loadPipelineConfig(path string) (*pipeline.Config, error) {
	if isJSON(path) {
		return pipeline.LoadFromJSON(path)
	}
	return pipeline.LoadFromYAML(path)
}
