package filter

import (
	"context"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
)

// ExitQuality 按出口质量模式构建对应的 Node 序列：
//   - all_relays：无
//   - fast_exits_only：SameNetwork(FastExit(严格门槛))
//   - almost_fast_exits_only：FastExit(宽松门槛)，再取 SameNetwork(FastExit(严格门槛)) 的补集
//   - fast_exits_only_any_network：FastExit(严格门槛)，不限网段
func ExitQuality(mode core.ExitFilterMode, th core.Thresholds) ([]pipeline.Node, error) {
	strict := func() pipeline.Node { return Of(NewFastExit(th.FastExit)) }

	switch mode {
	case core.ExitAllRelays, "":
		return nil, nil
	case core.ExitFastOnly:
		return []pipeline.Node{NewSameNetwork(strict(), th.MaxPerNetwork)}, nil
	case core.ExitAlmostFastOnly:
		return []pipeline.Node{
			Of(NewFastExit(th.AlmostFastExit)),
			NewInverse(NewSameNetwork(strict(), th.MaxPerNetwork)),
		}, nil
	case core.ExitFastOnlyAnyNetwork:
		return []pipeline.Node{strict()}, nil
	default:
		return nil, core.ConfigError("unknown exit filter mode %q (supported: %v)", mode, core.ExitFilterModes())
	}
}

// ExitQualityNode 在执行时按 qctx.Thresholds 构建出口质量 Node 序列并依次执行，
// 用于配置驱动的 Pipeline。
type ExitQualityNode struct {
	Mode core.ExitFilterMode
}

func (n *ExitQualityNode) Name() string { return "filter.exit_quality(" + string(n.Mode) + ")" }

func (n *ExitQualityNode) Kind() pipeline.Kind { return pipeline.KindTransform }

func (n *ExitQualityNode) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	th := core.DefaultThresholds()
	if qctx != nil {
		th = qctx.Thresholds
	}
	nodes, err := ExitQuality(n.Mode, th)
	if err != nil {
		return nil, err
	}
	p := &pipeline.Pipeline{Nodes: nodes}
	return p.Run(ctx, qctx, relays)
}
