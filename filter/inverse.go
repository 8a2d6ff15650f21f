package filter

import (
	"context"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
)

// Inverse 返回 Inner 在当前集合上的补集（按 relay 身份，保持输入顺序）。
type Inverse struct {
	Inner pipeline.Node
}

func NewInverse(inner pipeline.Node) *Inverse {
	return &Inverse{Inner: inner}
}

func (n *Inverse) Name() string { return "filter.inverse(" + n.Inner.Name() + ")" }

func (n *Inverse) Kind() pipeline.Kind { return pipeline.KindTransform }

func (n *Inverse) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	matching, err := n.Inner.Process(ctx, qctx, relays)
	if err != nil {
		return nil, err
	}
	excluded := make(map[*core.Relay]struct{}, len(matching))
	for _, r := range matching {
		excluded[r] = struct{}{}
	}

	out := make([]*core.Relay, 0, len(relays))
	for _, r := range relays {
		if _, ok := excluded[r]; ok {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
