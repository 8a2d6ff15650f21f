package pipeline

import (
	"context"
	"fmt"

	"github.com/rushteam/relaykit/core"
)

// Pipeline 是过滤阶段的核心抽象：把 relay 选择逻辑拆成可组合的 Node 链。
// Node 按顺序执行，每个 Node 的输出是下一个 Node 的输入。
type Pipeline struct {
	Nodes []Node
}

func (p *Pipeline) Run(
	ctx context.Context,
	qctx *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	cur := relays
	for _, node := range p.Nodes {
		next, err := node.Process(ctx, qctx, cur)
		if err != nil {
			return nil, fmt.Errorf("node %s: %w", node.Name(), err)
		}
		qctx.Log().Debug("node done",
			"node", node.Name(),
			"kind", string(node.Kind()),
			"in", len(cur),
			"out", len(next),
		)
		cur = next
	}
	return cur, nil
}

// Names 返回 Node 名称列表，用于日志与 explain。
func (p *Pipeline) Names() []string {
	names := make([]string, 0, len(p.Nodes))
	for _, n := range p.Nodes {
		names = append(names, n.Name())
	}
	return names
}
