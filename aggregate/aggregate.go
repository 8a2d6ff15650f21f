// Package aggregate 把每个分组归约为一行输出。
package aggregate

import (
	"fmt"
	"strings"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/group"
)

// Unknown 是缺失国家 / AS 信息时的占位。
const Unknown = "??"

// Aggregate 对每个分组生成一行：
//   - 五个权重字段求和后 × 100（已是全网占比，直接相加即为分组占比）
//   - 分组时身份字段换成描述性占位："*"、"(<n> relays)"、"(<exit 数>)"、
//     "(<guard 数>)"；未按 AS 分组且未按 AS 过滤时 as_info 为 "(<不同 AS 数>)"
//   - 未分组时携带该 relay 自身的 nickname、fingerprint、国家、AS 与 flag
func Aggregate(groups []group.Group, opts core.Options) []*core.Row {
	mode := opts.GroupMode()
	rows := make([]*core.Row, 0, len(groups))
	for _, g := range groups {
		if len(g.Relays) == 0 {
			continue
		}
		rows = append(rows, aggregateGroup(g, mode, opts))
	}
	return rows
}

func aggregateGroup(g group.Group, mode core.GroupMode, opts core.Options) *core.Row {
	var (
		sum     core.Weights
		exits   int
		guards  int
		ases    = make(map[string]struct{})
		row     = &core.Row{}
		members = len(g.Relays)
	)

	for _, r := range g.Relays {
		sum = sum.Add(r.Weights())

		// 身份字段取最后一个成员；未分组时组内只有一个 relay
		row.Nick = r.Nickname
		row.FP = r.Fingerprint
		row.Link = opts.Links
		row.Exit = "-"
		if r.IsExit() {
			row.Exit = core.FlagExit
			exits++
		}
		row.Guard = "-"
		if r.IsGuard() {
			row.Guard = core.FlagGuard
			guards++
		}
		row.CC = orUnknown(strings.ToUpper(r.Country))
		row.ASNo = orUnknown(r.ASNumber)
		row.ASName = orUnknown(r.ASName)
		row.ASInfo = row.ASNo + " " + row.ASName
		ases[row.ASInfo] = struct{}{}
	}

	if mode.Grouping() {
		row.Nick = "*"
		row.FP = fmt.Sprintf("(%d relays)", members)
		row.Link = false
		row.Exit = fmt.Sprintf("(%d)", exits)
		row.Guard = fmt.Sprintf("(%d)", guards)
		if mode != core.GroupAS && mode != core.GroupCountryAS && len(opts.ASes) == 0 {
			row.ASInfo = fmt.Sprintf("(%d)", len(ases))
		}
	}

	row.Weights = sum.Scale(100)
	return row
}

func orUnknown(s string) string {
	if s == "" {
		return Unknown
	}
	return s
}
