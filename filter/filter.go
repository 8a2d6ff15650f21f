package filter

import (
	"github.com/rushteam/relaykit/core"
)

// Filter 是谓词过滤器的抽象接口，用于判断一个 relay 是否保留。
// 返回 true 表示保留，false 表示剔除。
//
// 谓词过滤器通过 FilterNode 接入 Pipeline；需要看到整个集合才能判断的
// 过滤（SameNetwork / Inverse）直接实现 pipeline.Node。
type Filter interface {
	// Name 返回过滤器名称
	Name() string

	// Accept 判断 relay 是否保留
	Accept(relay *core.Relay) bool
}

// Load 对每个 relay 独立应用谓词，保留通过的 relay（保持输入顺序）。
func Load(f Filter, relays []*core.Relay) []*core.Relay {
	out := make([]*core.Relay, 0, len(relays))
	for _, r := range relays {
		if r == nil {
			continue
		}
		if f.Accept(r) {
			out = append(out, r)
		}
	}
	return out
}
