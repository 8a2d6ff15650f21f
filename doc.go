// Package relaykit 是一个中继目录分析工具包（Relay Kit）。
//
// 设计要点：
// - Pipeline-first: 所有选择逻辑通过 Node 串联（Filter → Group → Aggregate → Select）
// - Snapshot 只读：快照加载后不再修改，可被多个并发查询共享
// - Labels-first: 查询级诊断（family 锚点缺失、多 IPv4 地址）以 Label 透传
// - Node 可扩展: 自定义 Node 即可插拔扩展，或通过 YAML 配置驱动
package relaykit

import "github.com/rushteam/relaykit/pipeline"

// 轻量 facade：便于用户直接 import "relaykit" 使用核心抽象。
type Pipeline = pipeline.Pipeline
type Node = pipeline.Node
type Kind = pipeline.Kind

const (
	KindFilter    = pipeline.KindFilter
	KindTransform = pipeline.KindTransform
)
