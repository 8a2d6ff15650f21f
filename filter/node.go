package filter

import (
	"context"
	"strings"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
)

// FilterNode 是过滤 Node，可以组合多个谓词过滤器。
// 只有全部过滤器都接受的 relay 才会保留（AND 语义）。
type FilterNode struct {
	Filters []Filter
}

// Of 把若干谓词过滤器包装成一个 Node。
func Of(filters ...Filter) *FilterNode {
	return &FilterNode{Filters: filters}
}

func (n *FilterNode) Name() string {
	if len(n.Filters) == 0 {
		return "filter.node"
	}
	names := make([]string, 0, len(n.Filters))
	for _, f := range n.Filters {
		names = append(names, f.Name())
	}
	return strings.Join(names, "+")
}

func (n *FilterNode) Kind() pipeline.Kind {
	return pipeline.KindFilter
}

func (n *FilterNode) Accept(relay *core.Relay) bool {
	for _, f := range n.Filters {
		if !f.Accept(relay) {
			return false
		}
	}
	return true
}

func (n *FilterNode) Process(
	_ context.Context,
	_ *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	if len(n.Filters) == 0 {
		return relays, nil
	}
	return Load(n, relays), nil
}

var _ Filter = (*FilterNode)(nil)
