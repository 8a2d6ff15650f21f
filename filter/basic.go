package filter

import (
	"strings"
	"unicode"

	"github.com/rushteam/relaykit/core"
)

// Running 只保留当前在线的 relay。
type Running struct{}

func (Running) Name() string                  { return "filter.running" }
func (Running) Accept(relay *core.Relay) bool { return relay.Running }

// Country 按国家代码过滤，大小写无关。
type Country struct {
	countries map[string]struct{}
}

func NewCountry(countries []string) *Country {
	set := make(map[string]struct{}, len(countries))
	for _, c := range countries {
		set[strings.ToLower(strings.TrimSpace(c))] = struct{}{}
	}
	return &Country{countries: set}
}

func (f *Country) Name() string { return "filter.country" }

func (f *Country) Accept(relay *core.Relay) bool {
	if relay.Country == "" {
		return false
	}
	_, ok := f.countries[relay.CountryCode()]
	return ok
}

// AS 按自治系统编号过滤。纯数字的条目会补上 "AS" 前缀。
type AS struct {
	ases map[string]struct{}
}

func NewAS(ases []string) *AS {
	set := make(map[string]struct{}, len(ases))
	for _, a := range ases {
		set[NormalizeAS(a)] = struct{}{}
	}
	return &AS{ases: set}
}

// NormalizeAS 把 "7922" 规范为 "AS7922"，其他形式原样返回。
func NormalizeAS(as string) string {
	as = strings.TrimSpace(as)
	if as == "" {
		return as
	}
	for _, r := range as {
		if !unicode.IsDigit(r) {
			return as
		}
	}
	return "AS" + as
}

func (f *AS) Name() string { return "filter.as" }

func (f *AS) Accept(relay *core.Relay) bool {
	if relay.ASNumber == "" {
		return false
	}
	_, ok := f.ases[relay.ASNumber]
	return ok
}

// Exit 只保留可以处于出口位置的 relay（exit_probability > 0）。
type Exit struct{}

func (Exit) Name() string                  { return "filter.exit" }
func (Exit) Accept(relay *core.Relay) bool { return relay.ExitProbability > 0 }

// Guard 只保留可以处于入口位置的 relay（guard_probability > 0）。
type Guard struct{}

func (Guard) Name() string                  { return "filter.guard" }
func (Guard) Accept(relay *core.Relay) bool { return relay.GuardProbability > 0 }
