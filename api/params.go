package api

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/rushteam/relaykit/core"
)

// ParseQuery 把 query string 映射为查询配置，未出现的参数保持 defaults。
//
//   - top 无法解析时为 -1（不限）
//   - country / ases 可重复出现，也可逗号分隔；空值忽略
//   - exits 为旧式出口模式名（all_relays / fast_exits_only / ...）
//   - 布尔参数出现但值为空时视为 true
//
// 值本身的合法性（排序字段、分组组合、出口模式冲突）由 engine 校验。
func ParseQuery(q url.Values, defaults core.Options) (core.Options, error) {
	opts := defaults

	if v, ok := first(q, "top"); ok {
		top, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			top = -1
		}
		opts.Top = top
	}
	if v, ok := first(q, "sort"); ok && v != "" {
		opts.SortField = v
	}
	if v, ok := first(q, "family"); ok {
		opts.Family = strings.TrimSpace(v)
	}
	if v, ok := first(q, "group_by"); ok {
		opts.GroupBy = v
	}
	if v, ok := first(q, "expr"); ok {
		opts.Expr = v
	}
	if vs := list(q, "country"); vs != nil {
		opts.Country = vs
	}
	if vs := list(q, "ases"); vs != nil {
		opts.ASes = vs
	}
	if v, ok := first(q, "exit_filter"); ok && v != "" {
		opts.ExitFilterMode = core.ExitFilterMode(v)
	}
	if v, ok := first(q, "exits"); ok && v != "" {
		if err := applyLegacyExits(&opts, v); err != nil {
			return opts, err
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"sort_reverse", &opts.SortReverse},
		{"by_country", &opts.ByCountry},
		{"by_as", &opts.ByAS},
		{"inactive", &opts.Inactive},
		{"exits_only", &opts.ExitsOnly},
		{"guards_only", &opts.GuardsOnly},
		{"links", &opts.Links},
		{"fast_exits_only", &opts.FastExitsOnly},
		{"almost_fast_exits_only", &opts.AlmostFastExitsOnly},
		{"fast_exits_only_any_network", &opts.FastExitsOnlyAnyNetwork},
	}
	for _, b := range bools {
		v, ok := first(q, b.key)
		if !ok {
			continue
		}
		parsed, err := parseBool(v)
		if err != nil {
			return opts, core.ConfigError("invalid value %q for %s", v, b.key)
		}
		*b.dst = parsed
	}
	return opts, nil
}

func applyLegacyExits(opts *core.Options, v string) error {
	switch core.ExitFilterMode(v) {
	case core.ExitAllRelays:
	case core.ExitFastOnly:
		opts.FastExitsOnly = true
	case core.ExitAlmostFastOnly:
		opts.AlmostFastExitsOnly = true
	case core.ExitFastOnlyAnyNetwork:
		opts.FastExitsOnlyAnyNetwork = true
	default:
		return core.ConfigError("unknown exits value %q (supported: %v)", v, core.ExitFilterModes())
	}
	return nil
}

func first(q url.Values, key string) (string, bool) {
	vs, ok := q[key]
	if !ok || len(vs) == 0 {
		return "", false
	}
	return vs[0], true
}

func list(q url.Values, key string) []string {
	vs, ok := q[key]
	if !ok {
		return nil
	}
	out := make([]string, 0, len(vs))
	for _, v := range vs {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(v)
}
