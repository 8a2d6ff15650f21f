package dsl

import (
	"fmt"
	"sync"

	"github.com/google/cel-go/cel"

	"github.com/rushteam/relaykit/core"
)

var (
	// celEnv 是全局的 CEL 环境，线程安全，可复用
	celEnv     *cel.Env
	celEnvErr  error
	celEnvOnce sync.Once
)

// initCELEnv 初始化 CEL 环境，定义变量
func initCELEnv() (*cel.Env, error) {
	return cel.NewEnv(
		cel.Variable("relay", cel.MapType(cel.StringType, cel.DynType)),
		cel.CrossTypeNumericComparisons(true),
	)
}

// getCELEnv 获取或创建 CEL 环境
func getCELEnv() (*cel.Env, error) {
	celEnvOnce.Do(func() {
		celEnv, celEnvErr = initCELEnv()
	})
	return celEnv, celEnvErr
}

// Program 是编译好的 relay 谓词表达式，使用 CEL (Common Expression Language)。
// 编译一次，可在多个 goroutine 中并发 Evaluate。
//
// 表达式语法（CEL 标准语法），变量 relay 的字段名与快照 JSON 一致：
//   - 数值：relay.bandwidth_rate >= 12160000 / relay.exit_probability > 0.001
//   - 字符串：relay.country == "de" / relay.nickname.startsWith("tor")
//   - 列表："Exit" in relay.flags / size(relay.family) > 2
//   - 逻辑：relay.as_number == "AS7922" && relay.running
type Program struct {
	expr string
	prg  cel.Program
}

// Compile 编译表达式，表达式必须返回布尔值。
func Compile(expr string) (*Program, error) {
	env, err := getCELEnv()
	if err != nil {
		return nil, fmt.Errorf("cel env: %w", err)
	}

	ast, issues := env.Compile(expr)
	if issues != nil && issues.Err() != nil {
		return nil, fmt.Errorf("compile error: %v", issues.Err())
	}
	prg, err := env.Program(ast)
	if err != nil {
		return nil, fmt.Errorf("program error: %v", err)
	}
	return &Program{expr: expr, prg: prg}, nil
}

// String 返回原始表达式。
func (p *Program) String() string { return p.expr }

// Evaluate 对单个 relay 执行表达式。
func (p *Program) Evaluate(relay *core.Relay) (bool, error) {
	out, _, err := p.prg.Eval(map[string]any{"relay": RelayInput(relay)})
	if err != nil {
		return false, fmt.Errorf("eval error: %v", err)
	}
	result, ok := out.Value().(bool)
	if !ok {
		return false, fmt.Errorf("expression must return boolean, got %T", out.Value())
	}
	return result, nil
}

// RelayInput 构建 CEL 表达式的输入数据。
// 所有字段都会出现（缺失时为零值），避免 CEL 访问不存在的 key 报错。
func RelayInput(r *core.Relay) map[string]any {
	flags := r.Flags
	if flags == nil {
		flags = []string{}
	}
	family := r.Family
	if family == nil {
		family = []string{}
	}
	orAddresses := r.ORAddresses
	if orAddresses == nil {
		orAddresses = []string{}
	}
	return map[string]any{
		"fingerprint":                   r.Fingerprint,
		"nickname":                      r.Nickname,
		"running":                       r.Running,
		"flags":                         flags,
		"country":                       r.CountryCode(),
		"as_number":                     r.ASNumber,
		"as_name":                       r.ASName,
		"or_addresses":                  orAddresses,
		"bandwidth_rate":                r.BandwidthRate,
		"advertised_bandwidth":          r.AdvertisedBandwidth,
		"consensus_weight_fraction":     r.ConsensusWeightFraction,
		"advertised_bandwidth_fraction": r.AdvertisedBandwidthFraction,
		"guard_probability":             r.GuardProbability,
		"middle_probability":            r.MiddleProbability,
		"exit_probability":              r.ExitProbability,
		"family":                        family,
	}
}
