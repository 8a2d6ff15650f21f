package builders

import (
	"fmt"

	"github.com/rushteam/relaykit/config"
	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/filter"
	"github.com/rushteam/relaykit/pipeline"
	"github.com/rushteam/relaykit/pkg/conv"
)

func init() {
	config.Register("filter.running", BuildRunningNode)
	config.Register("filter.family", BuildFamilyNode)
	config.Register("filter.country", BuildCountryNode)
	config.Register("filter.as", BuildASNode)
	config.Register("filter.exit", BuildExitNode)
	config.Register("filter.guard", BuildGuardNode)
	config.Register("filter.fast_exit", BuildFastExitNode)
	config.Register("filter.same_network", BuildSameNetworkNode)
	config.Register("filter.inverse", BuildInverseNode)
	config.Register("filter.exit_quality", BuildExitQualityNode)
	config.Register("filter.expr", BuildExprNode)
}

func BuildRunningNode(_ map[string]interface{}) (pipeline.Node, error) {
	return filter.Of(filter.Running{}), nil
}

func BuildFamilyNode(cfg map[string]interface{}) (pipeline.Node, error) {
	spec := conv.ConfigGet(cfg, "family", "")
	if spec == "" {
		return nil, fmt.Errorf("family not found")
	}
	return &filter.FamilyNode{Spec: spec}, nil
}

func BuildCountryNode(cfg map[string]interface{}) (pipeline.Node, error) {
	countries := conv.SliceAnyToString(cfg["countries"])
	if len(countries) == 0 {
		return nil, fmt.Errorf("countries not found or invalid")
	}
	return filter.Of(filter.NewCountry(countries)), nil
}

func BuildASNode(cfg map[string]interface{}) (pipeline.Node, error) {
	ases := conv.SliceAnyToString(cfg["ases"])
	if len(ases) == 0 {
		return nil, fmt.Errorf("ases not found or invalid")
	}
	return filter.Of(filter.NewAS(ases)), nil
}

func BuildExitNode(_ map[string]interface{}) (pipeline.Node, error) {
	return filter.Of(filter.Exit{}), nil
}

func BuildGuardNode(_ map[string]interface{}) (pipeline.Node, error) {
	return filter.Of(filter.Guard{}), nil
}

// BuildFastExitNode 支持 preset: fast / almost_fast，显式字段覆盖 preset。
func BuildFastExitNode(cfg map[string]interface{}) (pipeline.Node, error) {
	th, err := exitThresholds(cfg)
	if err != nil {
		return nil, err
	}
	return filter.Of(filter.NewFastExit(th)), nil
}

func exitThresholds(cfg map[string]interface{}) (core.ExitThresholds, error) {
	defaults := core.DefaultThresholds()
	var th core.ExitThresholds
	switch preset := conv.ConfigGet(cfg, "preset", "fast"); preset {
	case "fast", "":
		th = defaults.FastExit
	case "almost_fast":
		th = defaults.AlmostFastExit
	default:
		return th, fmt.Errorf("unknown fast exit preset: %s", preset)
	}
	if v := conv.ConfigGetInt64(cfg, "bandwidth_rate", 0); v > 0 {
		th.BandwidthRate = v
	}
	if v := conv.ConfigGetInt64(cfg, "advertised_bandwidth", 0); v > 0 {
		th.AdvertisedBandwidth = v
	}
	if ports := conv.SliceAnyToInt(cfg["ports"]); len(ports) > 0 {
		th.Ports = ports
	}
	return th, nil
}

// BuildSameNetworkNode 的 inner 为嵌套 Node 配置 {type, config}，缺省为 fast exit。
func BuildSameNetworkNode(cfg map[string]interface{}) (pipeline.Node, error) {
	inner, err := nestedNode(cfg)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		inner = filter.Of(filter.NewFastExit(core.DefaultThresholds().FastExit))
	}
	maxPerNetwork := int(conv.ConfigGetInt64(cfg, "max_per_network", filter.DefaultMaxPerNetwork))
	return filter.NewSameNetwork(inner, maxPerNetwork), nil
}

func BuildInverseNode(cfg map[string]interface{}) (pipeline.Node, error) {
	inner, err := nestedNode(cfg)
	if err != nil {
		return nil, err
	}
	if inner == nil {
		return nil, fmt.Errorf("inner not found")
	}
	return filter.NewInverse(inner), nil
}

func nestedNode(cfg map[string]interface{}) (pipeline.Node, error) {
	innerCfg, ok := conv.ConfigGetMap(cfg, "inner")
	if !ok {
		return nil, nil
	}
	typeName := conv.ConfigGet(innerCfg, "type", "")
	if typeName == "" {
		return nil, fmt.Errorf("inner type not found")
	}
	nodeCfg, _ := conv.ConfigGetMap(innerCfg, "config")
	return config.Build(typeName, nodeCfg)
}

func BuildExitQualityNode(cfg map[string]interface{}) (pipeline.Node, error) {
	mode := core.ExitFilterMode(conv.ConfigGet(cfg, "mode", string(core.ExitAllRelays)))
	// 借用 Options 的校验，未知模式直接报错
	if _, err := (core.Options{ExitFilterMode: mode}).Normalize(); err != nil {
		return nil, err
	}
	return &filter.ExitQualityNode{Mode: mode}, nil
}

func BuildExprNode(cfg map[string]interface{}) (pipeline.Node, error) {
	expr := conv.ConfigGet(cfg, "expr", "")
	if expr == "" {
		return nil, fmt.Errorf("expr not found")
	}
	f, err := filter.NewExpr(expr)
	if err != nil {
		return nil, err
	}
	return filter.Of(f), nil
}
