package filter

import (
	"github.com/rushteam/relaykit/core"
)

// FastExit 按带宽与出口端口判断一个 relay 是否为“快速出口”。
//
// 条件：bandwidth_rate 与 advertised_bandwidth 都不低于门槛，且出口策略
// 放行全部 Ports。accept 列表须覆盖所有端口；reject 列表须与端口不相交；
// 两者都没有时不通过。
type FastExit struct {
	BandwidthRate       int64
	AdvertisedBandwidth int64
	Ports               []int
}

func NewFastExit(th core.ExitThresholds) *FastExit {
	return &FastExit{
		BandwidthRate:       th.BandwidthRate,
		AdvertisedBandwidth: th.AdvertisedBandwidth,
		Ports:               th.Ports,
	}
}

func (f *FastExit) Name() string { return "filter.fast_exit" }

func (f *FastExit) Accept(relay *core.Relay) bool {
	if relay.BandwidthRate < f.BandwidthRate {
		return false
	}
	if relay.AdvertisedBandwidth < f.AdvertisedBandwidth {
		return false
	}
	return PolicyServes(relay.ExitPolicySummary, f.Ports)
}

// PolicyServes 判断出口策略摘要是否放行全部 ports。
// 无法解析的端口项视为策略不可用。
func PolicyServes(summary core.ExitPolicySummary, ports []int) bool {
	switch {
	case len(summary.Accept) > 0:
		ranges, ok := core.ParsePortRanges(summary.Accept)
		if !ok {
			return false
		}
		for _, p := range ports {
			if !ranges.Contains(p) {
				return false
			}
		}
		return true
	case len(summary.Reject) > 0:
		ranges, ok := core.ParsePortRanges(summary.Reject)
		if !ok {
			return false
		}
		for _, p := range ports {
			if ranges.Contains(p) {
				return false
			}
		}
		return true
	default:
		return false
	}
}
