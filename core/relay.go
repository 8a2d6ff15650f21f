package core

import (
	"math"
	"strings"
)

// 常用 relay flag。
const (
	FlagExit    = "Exit"
	FlagBadExit = "BadExit"
	FlagGuard   = "Guard"
	FlagNamed   = "Named"
	FlagRunning = "Running"
)

// Relay 是目录快照中的一条中继记录（RelayRecord）。
//
// Relay 在加载之后只读：所有 Node 只能挑选/重排 *Relay，不允许修改字段，
// 因此同一份快照可以被多个并发查询无锁共享。
//
// 可选字段（Country / ASNumber / ASName）缺失时为空字符串。
type Relay struct {
	Fingerprint string   `json:"fingerprint"`
	Nickname    string   `json:"nickname"`
	Running     bool     `json:"running"`
	Flags       []string `json:"flags,omitempty"`

	Country  string `json:"country,omitempty"`
	ASNumber string `json:"as_number,omitempty"`
	ASName   string `json:"as_name,omitempty"`

	// ORAddresses 形如 "1.2.3.4:9001" / "[2001:db8::1]:9001"，IPv4 与 IPv6 混排
	ORAddresses []string `json:"or_addresses,omitempty"`

	BandwidthRate       int64 `json:"bandwidth_rate"`
	AdvertisedBandwidth int64 `json:"advertised_bandwidth"`

	ExitPolicySummary ExitPolicySummary `json:"exit_policy_summary"`

	// 权重字段：占全网容量的比例，取值 [0,1]
	ConsensusWeightFraction     float64 `json:"consensus_weight_fraction"`
	AdvertisedBandwidthFraction float64 `json:"advertised_bandwidth_fraction"`
	GuardProbability            float64 `json:"guard_probability"`
	MiddleProbability           float64 `json:"middle_probability"`
	ExitProbability             float64 `json:"exit_probability"`

	// Family 每项为 "$"+fingerprint 或裸 nickname
	Family []string `json:"family,omitempty"`
}

// ExitPolicySummary 是出口策略摘要，Accept 与 Reject 至多填一个。
// 端口项为 "80" 或 "1000-2000"。
type ExitPolicySummary struct {
	Accept []string `json:"accept,omitempty"`
	Reject []string `json:"reject,omitempty"`
}

// HasFlag 判断 relay 是否携带某个 flag。
func (r *Relay) HasFlag(flag string) bool {
	for _, f := range r.Flags {
		if f == flag {
			return true
		}
	}
	return false
}

// IsNamed 表示 nickname 已在目录中注册，可以作为身份引用。
func (r *Relay) IsNamed() bool { return r.HasFlag(FlagNamed) }

// IsExit 有 Exit flag 且没有 BadExit。
func (r *Relay) IsExit() bool { return r.HasFlag(FlagExit) && !r.HasFlag(FlagBadExit) }

// IsGuard 有 Guard flag。
func (r *Relay) IsGuard() bool { return r.HasFlag(FlagGuard) }

// FamilyRef 返回 family 列表中引用该 relay 所用的 "$"+fingerprint 形式。
func (r *Relay) FamilyRef() string { return "$" + r.Fingerprint }

// CountryCode 返回小写国家代码，便于大小写无关的比较。
func (r *Relay) CountryCode() string { return strings.ToLower(r.Country) }

// Weights 返回该 relay 的五个权重字段（比例值，未乘 100）。
func (r *Relay) Weights() Weights {
	return Weights{
		CW:      r.ConsensusWeightFraction,
		AdvBW:   r.AdvertisedBandwidthFraction,
		PGuard:  r.GuardProbability,
		PMiddle: r.MiddleProbability,
		PExit:   r.ExitProbability,
	}
}

// Weights 是五个权重字段的组合，用于分组求和与残余汇总。
type Weights struct {
	CW      float64 `json:"cw"`
	AdvBW   float64 `json:"adv_bw"`
	PGuard  float64 `json:"p_guard"`
	PMiddle float64 `json:"p_middle"`
	PExit   float64 `json:"p_exit"`
}

// Add 逐字段累加。
func (w Weights) Add(o Weights) Weights {
	return Weights{
		CW:      w.CW + o.CW,
		AdvBW:   w.AdvBW + o.AdvBW,
		PGuard:  w.PGuard + o.PGuard,
		PMiddle: w.PMiddle + o.PMiddle,
		PExit:   w.PExit + o.PExit,
	}
}

// Scale 逐字段乘以 k（比例 → 百分比时 k=100）。
func (w Weights) Scale(k float64) Weights {
	return Weights{
		CW:      w.CW * k,
		AdvBW:   w.AdvBW * k,
		PGuard:  w.PGuard * k,
		PMiddle: w.PMiddle * k,
		PExit:   w.PExit * k,
	}
}

// Validate 检查必填字段与不变量。失败时返回 MALFORMED_INPUT 错误，
// 查询应直接失败，而不是产出不完整的聚合结果。
func (r *Relay) Validate() error {
	if r == nil {
		return MalformedInputError("nil relay record")
	}
	if r.Fingerprint == "" {
		return MalformedInputError("relay %q: missing fingerprint", r.Nickname)
	}
	if !IsFingerprint(r.Fingerprint) {
		return MalformedInputError("relay %q: fingerprint %q is not 40 hex characters", r.Nickname, r.Fingerprint)
	}
	if r.Nickname == "" {
		return MalformedInputError("relay %s: missing nickname", r.Fingerprint)
	}
	if r.BandwidthRate < 0 || r.AdvertisedBandwidth < 0 {
		return MalformedInputError("relay %s: negative bandwidth", r.Fingerprint)
	}
	w := r.Weights()
	for name, v := range map[string]float64{
		"consensus_weight_fraction":     w.CW,
		"advertised_bandwidth_fraction": w.AdvBW,
		"guard_probability":             w.PGuard,
		"middle_probability":            w.PMiddle,
		"exit_probability":              w.PExit,
	} {
		if v < 0 || math.IsNaN(v) {
			return MalformedInputError("relay %s: invalid %s %v", r.Fingerprint, name, v)
		}
	}
	if len(r.ExitPolicySummary.Accept) > 0 && len(r.ExitPolicySummary.Reject) > 0 {
		return MalformedInputError("relay %s: exit policy summary has both accept and reject", r.Fingerprint)
	}
	return nil
}
