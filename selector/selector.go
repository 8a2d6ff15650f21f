// Package selector 对聚合行排序、截断，并汇总截断部分与整体。
package selector

import (
	"fmt"
	"slices"

	"github.com/rushteam/relaykit/core"
)

// TotalCoverageLimit 是 total 行的显示上限（百分比）。
// 选择集覆盖了几乎全部网络容量时 total 行没有信息量，不输出。
const TotalCoverageLimit = 99.9

// TotalLabel 是 total 行的标签。
const TotalLabel = "(total in selection)"

// Select 对 rows 做稳定排序，取前 Top 个作为 results 并赋 1 起始的 Index。
//
//   - Top 为负数时视为全部
//   - 被截掉的行求和为 excluded，标签 "(<n> other relays|countries|ASes|countries and ASes)"；
//     没有被截掉的行时 excluded 为 nil
//   - 全部行求和为 total；cw 合计超过 99.9% 时 total 为 nil
func Select(rows []*core.Row, opts core.Options) (*core.Selection, error) {
	field, err := ParseSortField(opts.SortField)
	if err != nil {
		return nil, err
	}

	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b *core.Row) int {
		if opts.SortReverse {
			return field.Compare(b, a)
		}
		return field.Compare(a, b)
	})

	top := opts.Top
	if top < 0 || top > len(sorted) {
		top = len(sorted)
	}

	var excluded, total core.Weights
	results := make([]*core.Row, 0, top)
	for i, row := range sorted {
		if i < top {
			row.Index = i + 1
			results = append(results, row)
		} else {
			excluded = excluded.Add(row.Weights)
		}
		total = total.Add(row.Weights)
	}

	sel := &core.Selection{Results: results}
	if len(sorted) > top {
		sel.Excluded = &core.Row{
			Weights: excluded,
			Nick:    fmt.Sprintf("(%d other %s)", len(sorted)-top, opts.GroupMode().Plural()),
		}
	}
	if total.CW <= TotalCoverageLimit {
		sel.Total = &core.Row{
			Weights: total,
			Nick:    TotalLabel,
		}
	}
	return sel, nil
}
