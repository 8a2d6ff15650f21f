package selector

import (
	"cmp"
	"strings"

	"github.com/rushteam/relaykit/core"
)

// SortField 是可排序字段。用显式枚举代替按名称的动态字段访问。
type SortField int

const (
	SortCW SortField = iota
	SortAdvBW
	SortPGuard
	SortPMiddle
	SortPExit
	SortNick
	SortFP
)

var sortFieldNames = map[SortField]string{
	SortCW:      "cw",
	SortAdvBW:   "adv_bw",
	SortPGuard:  "p_guard",
	SortPMiddle: "p_middle",
	SortPExit:   "p_exit",
	SortNick:    "nick",
	SortFP:      "fp",
}

// 快照字段名作为别名，便于 HTTP / YAML 调用方直接使用
var sortFieldAliases = map[string]SortField{
	"consensus_weight_fraction":     SortCW,
	"advertised_bandwidth_fraction": SortAdvBW,
	"guard_probability":             SortPGuard,
	"middle_probability":            SortPMiddle,
	"exit_probability":              SortPExit,
	"nickname":                      SortNick,
	"fingerprint":                   SortFP,
}

func (f SortField) String() string { return sortFieldNames[f] }

// SortFields 返回全部字段名，用于错误提示与 CLI 帮助。
func SortFields() []string {
	return []string{"cw", "adv_bw", "p_guard", "p_middle", "p_exit", "nick", "fp"}
}

// ParseSortField 解析排序字段；空字符串为默认的 cw。未知字段属于配置错误。
func ParseSortField(s string) (SortField, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return SortCW, nil
	}
	for f, name := range sortFieldNames {
		if name == s {
			return f, nil
		}
	}
	if f, ok := sortFieldAliases[s]; ok {
		return f, nil
	}
	return 0, core.ConfigError("unknown sort field %q (supported: %v)", s, SortFields())
}

// Compare 按字段比较两行，返回值语义同 cmp.Compare。
func (f SortField) Compare(a, b *core.Row) int {
	switch f {
	case SortAdvBW:
		return cmp.Compare(a.AdvBW, b.AdvBW)
	case SortPGuard:
		return cmp.Compare(a.PGuard, b.PGuard)
	case SortPMiddle:
		return cmp.Compare(a.PMiddle, b.PMiddle)
	case SortPExit:
		return cmp.Compare(a.PExit, b.PExit)
	case SortNick:
		return strings.Compare(a.Nick, b.Nick)
	case SortFP:
		return strings.Compare(a.FP, b.FP)
	default:
		return cmp.Compare(a.CW, b.CW)
	}
}
