package core

import (
	"regexp"
	"strings"
)

// ExitFilterMode 是出口质量模式，同一查询只能启用一种。
type ExitFilterMode string

const (
	ExitAllRelays           ExitFilterMode = "all_relays"                  // 不做出口质量过滤
	ExitFastOnly            ExitFilterMode = "fast_exits_only"             // fast exit，且每个 /24 限量
	ExitAlmostFastOnly      ExitFilterMode = "almost_fast_exits_only"      // 达到宽松门槛但不在 fast exit 集合中
	ExitFastOnlyAnyNetwork  ExitFilterMode = "fast_exits_only_any_network" // fast exit，不限网段
)

// ExitFilterModes 返回全部合法模式，用于错误提示。
func ExitFilterModes() []ExitFilterMode {
	return []ExitFilterMode{ExitAllRelays, ExitFastOnly, ExitAlmostFastOnly, ExitFastOnlyAnyNetwork}
}

// GroupMode 是分组方式。
type GroupMode int

const (
	GroupNone      GroupMode = iota // 每个 relay 自成一组
	GroupCountry                    // 按国家
	GroupAS                         // 按 AS
	GroupCountryAS                  // 按 (国家, AS)
)

// Grouping 表示是否实际做了聚合分组。
func (m GroupMode) Grouping() bool { return m != GroupNone }

// Plural 是 excluded 行标签中使用的分组名词。
func (m GroupMode) Plural() string {
	switch m {
	case GroupCountry:
		return "countries"
	case GroupAS:
		return "ASes"
	case GroupCountryAS:
		return "countries and ASes"
	default:
		return "relays"
	}
}

func (m GroupMode) String() string {
	switch m {
	case GroupCountry:
		return "country"
	case GroupAS:
		return "as"
	case GroupCountryAS:
		return "country_as"
	default:
		return "none"
	}
}

// Options 是一次查询的全部配置。
//
// 由外部协作方（CLI 参数、HTTP query string、YAML）填充，
// 执行前必须经过 Normalize 校验；校验失败时不会运行任何 Node。
type Options struct {
	Inactive   bool     `yaml:"inactive" json:"inactive"`       // 包含未运行的 relay
	Family     string   `yaml:"family" json:"family"`           // fingerprint 或已注册 nickname
	Country    []string `yaml:"country" json:"country"`         // 国家代码，大小写无关
	ASes       []string `yaml:"ases" json:"ases"`               // "AS1234" 或 "1234"
	ExitsOnly  bool     `yaml:"exits_only" json:"exits_only"`   // exit_probability > 0
	GuardsOnly bool     `yaml:"guards_only" json:"guards_only"` // guard_probability > 0

	ExitFilterMode ExitFilterMode `yaml:"exit_filter" json:"exit_filter"`

	// 旧式出口模式开关，仅在 ExitFilterMode 为 all_relays 时折算为对应模式
	FastExitsOnly           bool `yaml:"fast_exits_only" json:"fast_exits_only"`
	AlmostFastExitsOnly     bool `yaml:"almost_fast_exits_only" json:"almost_fast_exits_only"`
	FastExitsOnlyAnyNetwork bool `yaml:"fast_exits_only_any_network" json:"fast_exits_only_any_network"`

	ByCountry bool   `yaml:"by_country" json:"by_country"`
	ByAS      bool   `yaml:"by_as" json:"by_as"`
	GroupBy   string `yaml:"group_by" json:"group_by"` // "" / country / as / country_as

	SortField   string `yaml:"sort" json:"sort"`
	SortReverse bool   `yaml:"sort_reverse" json:"sort_reverse"`
	Top         int    `yaml:"top" json:"top"` // 负数表示不限
	Links       bool   `yaml:"links" json:"links"`

	// Expr 是可选的 CEL 表达式过滤，见 filter.Expr
	Expr string `yaml:"expr" json:"expr"`
}

// DefaultOptions 返回默认查询：top 10，按 cw 降序，不做出口质量过滤。
func DefaultOptions() Options {
	return Options{
		ExitFilterMode: ExitAllRelays,
		SortField:      "cw",
		SortReverse:    true,
		Top:            10,
	}
}

var (
	fingerprintPattern = regexp.MustCompile(`^[A-Fa-f0-9]{40}$`)
	nicknamePattern    = regexp.MustCompile(`^[A-Za-z0-9]{1,19}$`)
)

// IsFingerprint 判断 s 是否为 40 位十六进制 fingerprint。
func IsFingerprint(s string) bool { return fingerprintPattern.MatchString(s) }

// GroupMode 返回由 ByCountry / ByAS 决定的分组方式。
func (o Options) GroupMode() GroupMode {
	switch {
	case o.ByCountry && o.ByAS:
		return GroupCountryAS
	case o.ByCountry:
		return GroupCountry
	case o.ByAS:
		return GroupAS
	default:
		return GroupNone
	}
}

// Normalize 校验配置并返回规范化后的副本：
//   - 折算旧式出口模式开关，请求多于一种出口模式时报错
//   - 展开 GroupBy，与 ByCountry / ByAS 矛盾时报错
//   - 校验 family 格式
//
// 排序字段的校验由 selector.ParseSortField 完成。
func (o Options) Normalize() (Options, error) {
	out := o
	if out.ExitFilterMode == "" {
		out.ExitFilterMode = ExitAllRelays
	}
	if !validExitMode(out.ExitFilterMode) {
		return out, ConfigError("unknown exit filter mode %q (supported: %v)", out.ExitFilterMode, ExitFilterModes())
	}

	requested := map[ExitFilterMode]bool{}
	if out.ExitFilterMode != ExitAllRelays {
		requested[out.ExitFilterMode] = true
	}
	if out.FastExitsOnly {
		requested[ExitFastOnly] = true
	}
	if out.AlmostFastExitsOnly {
		requested[ExitAlmostFastOnly] = true
	}
	if out.FastExitsOnlyAnyNetwork {
		requested[ExitFastOnlyAnyNetwork] = true
	}
	if len(requested) > 1 {
		return out, ConfigError("can only filter by one fast-exit option")
	}
	for mode := range requested {
		out.ExitFilterMode = mode
	}
	out.FastExitsOnly, out.AlmostFastExitsOnly, out.FastExitsOnlyAnyNetwork = false, false, false

	if out.GroupBy != "" {
		byCountry, byAS, ok := parseGroupBy(out.GroupBy)
		if !ok {
			return out, ConfigError("invalid group-by %q (supported: country, as, country_as)", out.GroupBy)
		}
		if (out.ByCountry && !byCountry) || (out.ByAS && !byAS) {
			return out, ConfigError("group-by %q conflicts with by_country=%t by_as=%t", out.GroupBy, out.ByCountry, out.ByAS)
		}
		out.ByCountry, out.ByAS = byCountry, byAS
		out.GroupBy = ""
	}

	if out.Family != "" && !IsFingerprint(out.Family) && !nicknamePattern.MatchString(out.Family) {
		return out, ConfigError("not a valid fingerprint or nickname: %s", out.Family)
	}
	for _, cc := range out.Country {
		if strings.TrimSpace(cc) == "" {
			return out, ConfigError("empty country code")
		}
	}
	for _, as := range out.ASes {
		if strings.TrimSpace(as) == "" {
			return out, ConfigError("empty AS number")
		}
	}

	return out, nil
}

func validExitMode(m ExitFilterMode) bool {
	for _, v := range ExitFilterModes() {
		if v == m {
			return true
		}
	}
	return false
}

func parseGroupBy(s string) (byCountry, byAS, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none":
		return false, false, true
	case "country":
		return true, false, true
	case "as":
		return false, true, true
	case "country_as", "country,as", "as_country", "as,country":
		return true, true, true
	default:
		return false, false, false
	}
}
