package filter

import (
	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pkg/dsl"
)

// Expr 是 CEL 表达式过滤器，用于 Options 之外的临时条件，例如
// `relay.bandwidth_rate > 1e7 && "Exit" in relay.flags`。
// 表达式执行出错（类型不符等）的 relay 视为不通过。
type Expr struct {
	prg *dsl.Program
}

// NewExpr 编译表达式；编译失败属于配置错误。
func NewExpr(expr string) (*Expr, error) {
	prg, err := dsl.Compile(expr)
	if err != nil {
		return nil, core.ConfigError("invalid expression %q: %v", expr, err)
	}
	return &Expr{prg: prg}, nil
}

func (f *Expr) Name() string { return "filter.expr" }

func (f *Expr) Accept(relay *core.Relay) bool {
	ok, err := f.prg.Evaluate(relay)
	return err == nil && ok
}
