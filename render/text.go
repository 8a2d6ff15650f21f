// Package render 把 core.Selection 渲染为定宽文本或 JSON。
package render

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/rushteam/relaykit/core"
)

// DefaultLinkBase 是 fingerprint 链接的默认前缀。
const DefaultLinkBase = "https://atlas.torproject.org/#details/"

// ShortLineLength 是 CLI -s 选项使用的截断长度。
const ShortLineLength = 70

// TextOptions 控制文本输出。
type TextOptions struct {
	// Links 为 true 时第 7 列输出目录服务链接（列宽 80），否则输出 fingerprint（列宽 42）
	Links bool

	// Short > 0 时每行截断为 Short 个字符
	Short int

	// LinkBase 为空时使用 DefaultLinkBase
	LinkBase string
}

func (o TextOptions) widths() []int {
	fpWidth := 42
	if o.Links {
		fpWidth = 80
	}
	return []int{9, 10, 10, 10, 10, 21, fpWidth, 7, 7, 4, 11}
}

func (o TextOptions) headings() []string {
	fp := "Fingerprint"
	if o.Links {
		fp = "Link"
	}
	return []string{"CW", "adv_bw", "P_guard", "P_middle", "P_exit", "Nickname",
		fp, "Exit", "Guard", "CC", "Autonomous System"}
}

// Text 输出表头、results，以及存在时的 excluded 与 total 行。
func Text(w io.Writer, sel *core.Selection, opts TextOptions) error {
	bw := bufio.NewWriter(w)
	widths := opts.widths()

	linkBase := ""
	if opts.Links {
		linkBase = opts.linkBase()
	}

	writeLine(bw, opts.headings(), widths, opts.Short)
	for _, row := range sel.Results {
		writeLine(bw, Fields(row, linkBase), widths, opts.Short)
	}
	if sel.Excluded != nil {
		writeLine(bw, Fields(sel.Excluded, ""), widths, opts.Short)
	}
	if sel.Total != nil {
		writeLine(bw, Fields(sel.Total, ""), widths, opts.Short)
	}
	return bw.Flush()
}

func (o TextOptions) linkBase() string {
	if o.LinkBase == "" {
		return DefaultLinkBase
	}
	return o.LinkBase
}

// Fields 返回一行的可打印字段。row.Link 为 true 且 linkBase 非空时，
// fingerprint 列输出 linkBase+fp。
func Fields(row *core.Row, linkBase string) []string {
	fp := row.FP
	if row.Link && linkBase != "" {
		fp = linkBase + row.FP
	}
	return []string{
		percent(row.CW),
		percent(row.AdvBW),
		percent(row.PGuard),
		percent(row.PMiddle),
		percent(row.PExit),
		row.Nick,
		fp,
		row.Exit,
		row.Guard,
		row.CC,
		row.ASInfo,
	}
}

func percent(v float64) string {
	return fmt.Sprintf("%.4f%%", v)
}

func writeLine(w *bufio.Writer, fields []string, widths []int, short int) {
	var sb strings.Builder
	for i, f := range fields {
		width := 0
		if i < len(widths) {
			width = widths[i]
		}
		sb.WriteString(f)
		if pad := width - len([]rune(f)); pad > 0 {
			sb.WriteString(strings.Repeat(" ", pad))
		}
	}
	line := sb.String()
	if short > 0 {
		if runes := []rune(line); len(runes) > short {
			line = string(runes[:short])
		}
	}
	w.WriteString(line)
	w.WriteByte('\n')
}
