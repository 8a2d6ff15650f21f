package filter

import (
	"context"
	"strings"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
	"github.com/rushteam/relaykit/pkg/utils"
)

// Family 选出与锚点 relay 互相声明为 family 的 relay。
//
// 锚点定位：spec 为 40 位十六进制时按 fingerprint 精确匹配，否则按 nickname
// 匹配且仅限带 Named flag 的 relay。找不到锚点时不接受任何 relay。
//
// 候选 relay 需同时满足：
//   - listed：候选的 "$"+fingerprint（或 Named 时的 nickname）出现在锚点的 family 集合中
//   - mentioned：锚点的 "$"+fingerprint（或锚点 Named 时的 nickname）出现在候选自己的
//     family 列表中（候选自身的 "$"+fingerprint 也算在内，因此锚点本身会被选中）
type Family struct {
	anchor     *core.Relay
	anchorRef  string
	anchorNick string
	members    map[string]struct{}
}

// NewFamily 在 all（完整快照）中定位锚点并构建 family 集合。
func NewFamily(spec string, all []*core.Relay) *Family {
	f := &Family{}
	anchor := findAnchor(spec, all)
	if anchor == nil {
		return f
	}
	f.anchor = anchor
	f.anchorRef = anchor.FamilyRef()
	if anchor.IsNamed() {
		f.anchorNick = anchor.Nickname
	}
	f.members = make(map[string]struct{}, len(anchor.Family)+1)
	f.members[f.anchorRef] = struct{}{}
	for _, ref := range anchor.Family {
		f.members[ref] = struct{}{}
	}
	return f
}

func findAnchor(spec string, all []*core.Relay) *core.Relay {
	spec = strings.TrimSpace(spec)
	if spec == "" {
		return nil
	}
	byFingerprint := core.IsFingerprint(spec)
	for _, r := range all {
		if r == nil {
			continue
		}
		if byFingerprint {
			if strings.EqualFold(r.Fingerprint, spec) {
				return r
			}
			continue
		}
		if len(spec) < 20 && r.IsNamed() && r.Nickname == spec {
			return r
		}
	}
	return nil
}

// Anchor 返回锚点 relay，未找到时为 nil。
func (f *Family) Anchor() *core.Relay { return f.anchor }

func (f *Family) Name() string { return "filter.family" }

func (f *Family) Accept(relay *core.Relay) bool {
	if f.anchor == nil {
		return false
	}

	_, listed := f.members[relay.FamilyRef()]
	if !listed && relay.IsNamed() {
		_, listed = f.members[relay.Nickname]
	}
	if !listed {
		return false
	}

	if relay.FamilyRef() == f.anchorRef {
		return true
	}
	for _, ref := range relay.Family {
		if ref == f.anchorRef || (f.anchorNick != "" && ref == f.anchorNick) {
			return true
		}
	}
	return false
}

// FamilyNode 在执行时才从 qctx.Snapshot 中定位锚点，用于配置驱动的 Pipeline
// （构建 Node 时还拿不到快照）。
type FamilyNode struct {
	Spec string
}

func (n *FamilyNode) Name() string { return "filter.family" }

func (n *FamilyNode) Kind() pipeline.Kind { return pipeline.KindFilter }

func (n *FamilyNode) Process(
	_ context.Context,
	qctx *core.QueryContext,
	relays []*core.Relay,
) ([]*core.Relay, error) {
	var all []*core.Relay
	if qctx != nil {
		all = qctx.Snapshot
	}
	f := NewFamily(n.Spec, all)
	if f.Anchor() == nil {
		qctx.Log().Info("family anchor not found", "family", n.Spec)
		qctx.PutLabel("family_anchor", utils.Label{Value: "not_found", Source: n.Name()})
	}
	return Load(f, relays), nil
}
