package render

import (
	"encoding/json"
	"io"

	"github.com/rushteam/relaykit/core"
)

// JSON 把 Selection 编码为 {"results": [...], "excluded": ..., "total": ...}。
// 不存在的 excluded / total 输出为 null，results 至少为 []。
func JSON(w io.Writer, sel *core.Selection) error {
	out := *sel
	if out.Results == nil {
		out.Results = []*core.Row{}
	}
	return json.NewEncoder(w).Encode(&out)
}
