package filter

import (
	"context"
	"net/netip"
	"slices"
	"strings"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
	"github.com/rushteam/relaykit/pkg/utils"
)

// DefaultMaxPerNetwork 是 SameNetwork 未指定上限时使用的默认值。
const DefaultMaxPerNetwork = 2

// SameNetwork 是一个集合变换 Node：先执行 Inner，再按 /24 网段限量。
//
// 分桶键为 or_addresses 中第一个 IPv4 地址的 /24 前缀，IPv6 地址直接跳过；
// 没有 IPv4 地址的 relay 不进入任何桶，因此不会出现在输出中。
// 一个 relay 有多个 IPv4 地址时记录诊断并仍使用第一个。
//
// 按输入顺序处理：桶已满时，无条件剔除桶内 exit_probability 最小的成员，
// 再追加当前 relay。即使当前 relay 的 exit_probability 比被剔除者更小也是如此，
// 所以桶内成员依赖输入顺序，不是按 exit_probability 的 top-k。
// 输出按桶首次出现的顺序展开。
type SameNetwork struct {
	Inner         pipeline.Node
	MaxPerNetwork int
}

func NewSameNetwork(inner pipeline.Node, maxPerNetwork int) *SameNetwork {
	return &SameNetwork{Inner: inner, MaxPerNetwork: maxPerNetwork}
}

func (n *SameNetwork) Name() string {
	if n.Inner == nil {
		return "filter.same_network"
	}
	return "filter.same_network(" + n.Inner.Name() + ")"
}

func (n *SameNetwork) Kind() pipeline.Kind { return pipeline.KindTransform }

func (n *SameNetwork) Process(
	ctx context.Context,
	qctx *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	matching := relays
	if n.Inner != nil {
		var err error
		matching, err = n.Inner.Process(ctx, qctx, relays)
		if err != nil {
			return nil, err
		}
	}

	limit := n.MaxPerNetwork
	if limit <= 0 {
		limit = DefaultMaxPerNetwork
	}

	buckets := make(map[netip.Prefix][]*core.Relay)
	order := make([]netip.Prefix, 0)

	for _, r := range matching {
		if r == nil {
			continue
		}
		network, count := IPv4Network(r.ORAddresses)
		if count > 1 {
			qctx.Log().Warn("relay has more than one IPv4 OR address",
				"fingerprint", r.Fingerprint,
				"or_addresses", r.ORAddresses,
			)
			qctx.PutLabel("multiple_ipv4", utils.Label{Value: r.Fingerprint, Source: "filter.same_network"})
		}
		if !network.IsValid() {
			continue
		}

		bucket, seen := buckets[network]
		if !seen {
			order = append(order, network)
		}
		if len(bucket) >= limit {
			minIdx := 0
			for i, member := range bucket {
				if member.ExitProbability < bucket[minIdx].ExitProbability {
					minIdx = i
				}
			}
			bucket = slices.Delete(bucket, minIdx, minIdx+1)
		}
		buckets[network] = append(bucket, r)
	}

	out := make([]*core.Relay, 0, len(matching))
	for _, network := range order {
		out = append(out, buckets[network]...)
	}
	return out, nil
}

// IPv4Network 返回第一个 IPv4 OR 地址所在的 /24 网段，以及 IPv4 地址的个数。
// 没有 IPv4 地址时返回零值 Prefix。
func IPv4Network(orAddresses []string) (netip.Prefix, int) {
	var (
		first netip.Prefix
		count int
	)
	for _, addr := range orAddresses {
		host := addr
		if i := strings.LastIndex(addr, ":"); i >= 0 {
			host = addr[:i]
		}
		// IPv6（含 [..] 形式）跳过
		if strings.Contains(host, ":") || strings.HasPrefix(host, "[") {
			continue
		}
		ip, err := netip.ParseAddr(host)
		if err != nil || !ip.Is4() {
			continue
		}
		count++
		if count == 1 {
			first = netip.PrefixFrom(ip, 24).Masked()
		}
	}
	return first, count
}
