package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/rushteam/relaykit/core"
)

// RunBatch 在同一份只读快照上并发执行多条互相独立的查询，
// 结果与 queries 一一对应。任一查询失败即返回该错误。
//
// 快照只校验一次；各查询拥有独立的 QueryContext 与输出行，互不共享可变状态。
func (e *Engine) RunBatch(ctx context.Context, relays []*core.Relay, queries []core.Options) ([]*core.Selection, error) {
	if len(queries) == 0 {
		return nil, nil
	}
	if err := ValidateSnapshot(relays); err != nil {
		return nil, err
	}

	prepared := make([]core.Options, len(queries))
	for i, q := range queries {
		norm, err := e.Prepare(q)
		if err != nil {
			return nil, fmt.Errorf("query #%d: %w", i, err)
		}
		prepared[i] = norm
	}

	out := make([]*core.Selection, len(queries))
	eg, egCtx := errgroup.WithContext(ctx)
	if e.MaxConcurrent > 0 {
		eg.SetLimit(e.MaxConcurrent)
	}

	for i, opts := range prepared {
		i, opts := i, opts
		eg.Go(func() error {
			qctx := e.NewQueryContext(opts, relays)
			p, err := e.BuildPipeline(qctx)
			if err != nil {
				return fmt.Errorf("query #%d: %w", i, err)
			}
			sel, err := e.Execute(egCtx, qctx, p)
			if err != nil {
				return fmt.Errorf("query #%d: %w", i, err)
			}
			// 每个 goroutine 只写自己的下标
			out[i] = sel
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
