package core

import (
	"log/slog"
	"sync"

	"github.com/rushteam/relaykit/pkg/utils"
)

// QueryContext 承载一次查询的配置与快照，贯穿整个 Pipeline 透传。
//
// Snapshot 是完整的只读 relay 列表：FamilyFilter 需要在全集中定位锚点，
// 而不是在已被前序 Node 收窄的集合中定位。
type QueryContext struct {
	Options    Options
	Thresholds Thresholds

	// Snapshot 是本次查询可见的全部 relay（只读）
	Snapshot []*Relay

	// Logger 为空时使用 slog.Default()
	Logger *slog.Logger

	// Labels 记录查询级诊断信息，例如 family 锚点缺失、多 IPv4 地址
	mu     sync.Mutex
	Labels map[string]utils.Label
}

// NewQueryContext 创建查询上下文。
func NewQueryContext(opts Options, th Thresholds, snapshot []*Relay) *QueryContext {
	return &QueryContext{
		Options:    opts,
		Thresholds: th,
		Snapshot:   snapshot,
	}
}

// Log 返回查询使用的 logger。
func (qctx *QueryContext) Log() *slog.Logger {
	if qctx == nil || qctx.Logger == nil {
		return slog.Default()
	}
	return qctx.Logger
}

// PutLabel 写入查询级 Label；若已存在同名 key，则按默认 Merge 规则累积。
func (qctx *QueryContext) PutLabel(key string, lbl utils.Label) {
	if qctx == nil {
		return
	}
	qctx.mu.Lock()
	defer qctx.mu.Unlock()
	if qctx.Labels == nil {
		qctx.Labels = make(map[string]utils.Label)
	}
	if old, ok := qctx.Labels[key]; ok {
		qctx.Labels[key] = utils.MergeLabel(old, lbl)
		return
	}
	qctx.Labels[key] = lbl
}

// GetLabel 获取查询级 Label。
func (qctx *QueryContext) GetLabel(key string) (utils.Label, bool) {
	if qctx == nil {
		return utils.Label{}, false
	}
	qctx.mu.Lock()
	defer qctx.mu.Unlock()
	lbl, ok := qctx.Labels[key]
	return lbl, ok
}
