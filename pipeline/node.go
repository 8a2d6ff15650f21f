package pipeline

import (
	"context"

	"github.com/rushteam/relaykit/core"
)

// Kind 用于标记 Node 类型，方便观测/编排（例如按阶段打点）。
type Kind string

const (
	KindFilter    Kind = "filter"    // 谓词过滤：逐个 relay 判断保留与否，串联即 AND
	KindTransform Kind = "transform" // 集合变换：某个 relay 是否保留取决于整个集合
)

// Node 是 Pipeline 的最小可扩展单元。
// 统一采用“输入 relays -> 输出 relays”的形态：谓词过滤与集合变换共用同一组合契约。
//
// Node 不得修改传入的 *core.Relay，只能挑选、重排。
type Node interface {
	Name() string
	Kind() Kind

	Process(
		ctx context.Context,
		qctx *core.QueryContext,
		relays []*core.Relay,
	) ([]*core.Relay, error)
}

// NodeBuilder 根据配置构建 Node。
type NodeBuilder func(map[string]interface{}) (Node, error)
