package core

// ExitThresholds 描述一档出口质量门槛。
type ExitThresholds struct {
	// BandwidthRate 是 bandwidth_rate 下限（bytes/s）
	BandwidthRate int64 `yaml:"bandwidth_rate" json:"bandwidth_rate"`

	// AdvertisedBandwidth 是 advertised_bandwidth 下限（bytes/s）
	AdvertisedBandwidth int64 `yaml:"advertised_bandwidth" json:"advertised_bandwidth"`

	// Ports 是出口策略必须全部放行的端口
	Ports []int `yaml:"ports" json:"ports"`
}

// Thresholds 是出口质量过滤的全部常量。
// 作为显式配置传入过滤器构造函数，不同查询可以使用不同门槛而互不干扰。
type Thresholds struct {
	FastExit       ExitThresholds `yaml:"fast_exit" json:"fast_exit"`
	AlmostFastExit ExitThresholds `yaml:"almost_fast_exit" json:"almost_fast_exit"`

	// MaxPerNetwork 是 fast exit 在同一 /24 网段内最多保留的数量
	MaxPerNetwork int `yaml:"max_per_network" json:"max_per_network"`
}

// DefaultThresholds 返回默认门槛：
//   - fast exit：95 Mbit/s、5000 KB/s、80/443/554/1755，每个 /24 至多 2 个
//   - almost fast exit：80 Mbit/s、2000 KB/s、80/443
func DefaultThresholds() Thresholds {
	return Thresholds{
		FastExit: ExitThresholds{
			BandwidthRate:       95 * 125 * 1024,
			AdvertisedBandwidth: 5000 * 1024,
			Ports:               []int{80, 443, 554, 1755},
		},
		AlmostFastExit: ExitThresholds{
			BandwidthRate:       80 * 125 * 1024,
			AdvertisedBandwidth: 2000 * 1024,
			Ports:               []int{80, 443},
		},
		MaxPerNetwork: 2,
	}
}

// Merge 用 o 中的非零字段覆盖 t，用于配置文件只写部分门槛的场景。
func (t Thresholds) Merge(o Thresholds) Thresholds {
	out := t
	out.FastExit = t.FastExit.merge(o.FastExit)
	out.AlmostFastExit = t.AlmostFastExit.merge(o.AlmostFastExit)
	if o.MaxPerNetwork > 0 {
		out.MaxPerNetwork = o.MaxPerNetwork
	}
	return out
}

func (e ExitThresholds) merge(o ExitThresholds) ExitThresholds {
	out := e
	if o.BandwidthRate > 0 {
		out.BandwidthRate = o.BandwidthRate
	}
	if o.AdvertisedBandwidth > 0 {
		out.AdvertisedBandwidth = o.AdvertisedBandwidth
	}
	if len(o.Ports) > 0 {
		out.Ports = o.Ports
	}
	return out
}
