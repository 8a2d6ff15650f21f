package core

// Row 是一次查询的输出行（AggregateRow）：一个分组的权重合计与描述信息。
//
// Weights 中为百分比（比例之和 × 100）。Index 从 1 开始，仅保留在 results
// 中的行才会被赋值；excluded / total 两个特殊行复用该结构，Nick 为合成标签。
type Row struct {
	Index int `json:"index,omitempty"`

	Weights

	Nick   string `json:"nick"`
	FP     string `json:"fp"`
	Link   bool   `json:"link"`
	Exit   string `json:"exit"`
	Guard  string `json:"guard"`
	CC     string `json:"cc"`
	ASNo   string `json:"as_no"`
	ASName string `json:"as_name"`
	ASInfo string `json:"as_info"`
}

// Selection 是 Selector 的输出：排序并截断后的 results，以及可选的
// excluded（被截掉部分的合计）与 total（整个选择集的合计）。
type Selection struct {
	Results  []*Row `json:"results"`
	Excluded *Row   `json:"excluded"`
	Total    *Row   `json:"total"`
}
