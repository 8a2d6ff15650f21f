// Package engine 把过滤、分组、聚合、选择串成一次完整查询。
//
// 数据流：relays → Pipeline（Running → Family → Country → AS → Exit → Guard →
// 出口质量 → Expr）→ group → aggregate → selector。
//
// 引擎同步执行且不做 I/O；快照在查询期间只读，可被多个并发查询共享。
package engine

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/rushteam/relaykit/aggregate"
	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/filter"
	"github.com/rushteam/relaykit/group"
	"github.com/rushteam/relaykit/pipeline"
	"github.com/rushteam/relaykit/pkg/utils"
	"github.com/rushteam/relaykit/selector"
)

// Engine 是查询入口。零值可用：使用默认门槛与 slog.Default()。
type Engine struct {
	Thresholds core.Thresholds
	Logger     *slog.Logger

	// MaxConcurrent 是 RunBatch 的最大并发数（0 表示无限制）
	MaxConcurrent int
}

// Option 配置 Engine。
type Option func(*Engine)

// WithThresholds 覆盖出口质量门槛。
func WithThresholds(th core.Thresholds) Option {
	return func(e *Engine) { e.Thresholds = th }
}

// WithLogger 设置 logger。
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.Logger = l }
}

// WithMaxConcurrent 限制 RunBatch 的并发数。
func WithMaxConcurrent(n int) Option {
	return func(e *Engine) { e.MaxConcurrent = n }
}

func New(opts ...Option) *Engine {
	e := &Engine{Thresholds: core.DefaultThresholds()}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) logger() *slog.Logger {
	if e.Logger == nil {
		return slog.Default().With("component", "relaykit.engine")
	}
	return e.Logger
}

func (e *Engine) thresholds() core.Thresholds {
	if e.Thresholds.MaxPerNetwork == 0 && len(e.Thresholds.FastExit.Ports) == 0 {
		return core.DefaultThresholds()
	}
	return e.Thresholds
}

// Prepare 校验查询配置并返回规范化后的 Options。
// 所有配置错误都在这里暴露，不会运行任何 Node。
func (e *Engine) Prepare(opts core.Options) (core.Options, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return opts, err
	}
	if _, err := selector.ParseSortField(norm.SortField); err != nil {
		return opts, err
	}
	if norm.Expr != "" {
		if _, err := filter.NewExpr(norm.Expr); err != nil {
			return opts, err
		}
	}
	return norm, nil
}

// NewQueryContext 为一次查询创建上下文（opts 须已经过 Prepare）。
func (e *Engine) NewQueryContext(opts core.Options, snapshot []*core.Relay) *core.QueryContext {
	qctx := core.NewQueryContext(opts, e.thresholds(), snapshot)
	qctx.Logger = e.logger()
	return qctx
}

// BuildPipeline 按固定顺序构建过滤链：
// Running → Family → Country → AS → Exit → Guard → 出口质量 → Expr。
func (e *Engine) BuildPipeline(qctx *core.QueryContext) (*pipeline.Pipeline, error) {
	opts := qctx.Options
	var predicates []filter.Filter
	nodes := make([]pipeline.Node, 0, 4)

	if !opts.Inactive {
		predicates = append(predicates, filter.Running{})
	}
	if opts.Family != "" {
		family := filter.NewFamily(opts.Family, qctx.Snapshot)
		if family.Anchor() == nil {
			qctx.Log().Info("family anchor not found", "family", opts.Family)
			qctx.PutLabel("family_anchor", utils.Label{Value: "not_found", Source: family.Name()})
		}
		predicates = append(predicates, family)
	}
	if len(opts.Country) > 0 {
		predicates = append(predicates, filter.NewCountry(opts.Country))
	}
	if len(opts.ASes) > 0 {
		predicates = append(predicates, filter.NewAS(opts.ASes))
	}
	if opts.ExitsOnly {
		predicates = append(predicates, filter.Exit{})
	}
	if opts.GuardsOnly {
		predicates = append(predicates, filter.Guard{})
	}
	if len(predicates) > 0 {
		nodes = append(nodes, filter.Of(predicates...))
	}

	exitNodes, err := filter.ExitQuality(opts.ExitFilterMode, qctx.Thresholds)
	if err != nil {
		return nil, err
	}
	nodes = append(nodes, exitNodes...)

	if opts.Expr != "" {
		expr, err := filter.NewExpr(opts.Expr)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, filter.Of(expr))
	}

	return &pipeline.Pipeline{Nodes: nodes}, nil
}

// Run 执行一次完整查询。
func (e *Engine) Run(ctx context.Context, relays []*core.Relay, opts core.Options) (*core.Selection, error) {
	sel, _, err := e.Query(ctx, relays, opts)
	return sel, err
}

// Query 与 Run 相同，额外返回查询上下文（包含诊断 Labels）。
func (e *Engine) Query(ctx context.Context, relays []*core.Relay, opts core.Options) (*core.Selection, *core.QueryContext, error) {
	norm, err := e.Prepare(opts)
	if err != nil {
		return nil, nil, err
	}
	if err := ValidateSnapshot(relays); err != nil {
		return nil, nil, err
	}
	qctx := e.NewQueryContext(norm, relays)
	p, err := e.BuildPipeline(qctx)
	if err != nil {
		return nil, nil, err
	}
	sel, err := e.Execute(ctx, qctx, p)
	if err != nil {
		return nil, nil, err
	}
	return sel, qctx, nil
}

// Execute 用给定的 Pipeline（例如从 YAML 构建）执行查询。
// 分组与选择仍由 qctx.Options 决定。
func (e *Engine) Execute(ctx context.Context, qctx *core.QueryContext, p *pipeline.Pipeline) (*core.Selection, error) {
	relays, err := p.Run(ctx, qctx, qctx.Snapshot)
	if err != nil {
		return nil, fmt.Errorf("run pipeline: %w", err)
	}

	groups := group.New(qctx.Options.GroupMode()).Group(relays)
	rows := aggregate.Aggregate(groups, qctx.Options)
	sel, err := selector.Select(rows, qctx.Options)
	if err != nil {
		return nil, err
	}

	qctx.Log().Debug("query done",
		"snapshot", len(qctx.Snapshot),
		"selected", len(relays),
		"groups", len(groups),
		"results", len(sel.Results),
	)
	return sel, nil
}

// ValidateSnapshot 检查每条记录的必填字段与 fingerprint 唯一性。
func ValidateSnapshot(relays []*core.Relay) error {
	seen := make(map[string]struct{}, len(relays))
	for i, r := range relays {
		if err := r.Validate(); err != nil {
			return fmt.Errorf("relay #%d: %w", i, err)
		}
		if _, dup := seen[r.Fingerprint]; dup {
			return fmt.Errorf("relay #%d: %w", i, core.MalformedInputError("duplicate fingerprint %s", r.Fingerprint))
		}
		seen[r.Fingerprint] = struct{}{}
	}
	return nil
}
