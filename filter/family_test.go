package filter

import (
	"context"
	"slices"
	"strings"
	"testing"

	"github.com/rushteam/relaykit/core"
)

func TestFamily(t *testing.T) {
	// A 声明 B、C、E；B、E 回指 A；C 不回指；D 单方面回指 A
	a := newRelay(1, func(r *core.Relay) {
		r.Nickname = "anchor"
		r.Flags = []string{core.FlagNamed}
		r.Family = []string{"$" + fp(2), "$" + fp(3), "eve"}
	})
	b := newRelay(2, func(r *core.Relay) { r.Family = []string{"$" + fp(1)} })
	c := newRelay(3, func(r *core.Relay) { r.Family = []string{"$" + fp(9)} })
	d := newRelay(4, func(r *core.Relay) { r.Family = []string{"$" + fp(1)} })
	e := newRelay(5, func(r *core.Relay) {
		r.Nickname = "eve"
		r.Flags = []string{core.FlagNamed}
		r.Family = []string{"anchor"}
	})
	all := []*core.Relay{a, b, c, d, e}

	tests := []struct {
		name string
		spec string
		want []string
	}{
		{name: "by fingerprint", spec: fp(1), want: []string{"anchor", "relay2", "eve"}},
		{name: "by named nickname", spec: "anchor", want: []string{"anchor", "relay2", "eve"}},
		{name: "unnamed nickname is not an anchor", spec: "relay2", want: []string{}},
		{name: "unknown anchor", spec: fp(42), want: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewFamily(tt.spec, all)
			got := nicks(Load(f, all))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Family(%s) = %v, want %v", tt.spec, got, tt.want)
			}
		})
	}
}

func TestFamily_MutualOnly(t *testing.T) {
	a := newRelay(1, func(r *core.Relay) { r.Family = []string{"$" + fp(2), "$" + fp(3)} })
	b := newRelay(2, func(r *core.Relay) { r.Family = []string{"$" + fp(1)} })
	c := newRelay(3)
	all := []*core.Relay{a, b, c}

	for _, r := range Load(NewFamily(fp(1), all), all) {
		if r == a {
			continue
		}
		mentions := slices.Contains(r.Family, a.FamilyRef())
		listed := slices.Contains(a.Family, r.FamilyRef())
		if !mentions || !listed {
			t.Errorf("%s selected without mutual declaration", r.Nickname)
		}
	}
}

func TestFamilyNode_MissingAnchor(t *testing.T) {
	all := []*core.Relay{newRelay(1), newRelay(2)}
	qctx := core.NewQueryContext(core.DefaultOptions(), core.DefaultThresholds(), all)

	n := &FamilyNode{Spec: fp(99)}
	got, err := n.Process(context.Background(), qctx, all)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("Process() = %v, want empty", nicks(got))
	}
	if lbl, ok := qctx.GetLabel("family_anchor"); !ok || lbl.Value != "not_found" {
		t.Errorf("family_anchor label = %+v, %v", lbl, ok)
	}
}

func TestFamilyNode_UsesFullSnapshot(t *testing.T) {
	// 锚点已被前序 Node 剔除时，仍然在完整快照中定位
	a := newRelay(1, func(r *core.Relay) { r.Running = false; r.Family = []string{"$" + fp(2)} })
	b := newRelay(2, func(r *core.Relay) { r.Family = []string{"$" + fp(1)} })
	all := []*core.Relay{a, b}
	qctx := core.NewQueryContext(core.DefaultOptions(), core.DefaultThresholds(), all)

	got, err := (&FamilyNode{Spec: fp(1)}).Process(context.Background(), qctx, []*core.Relay{b})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if want := []string{"relay2"}; !slices.Equal(nicks(got), want) {
		t.Errorf("Process() = %v, want %v", nicks(got), want)
	}
}

func TestFamily_FingerprintCaseInsensitive(t *testing.T) {
	a := newRelay(0xABCDEF, func(r *core.Relay) { r.Family = []string{"$" + fp(1)} })
	b := newRelay(1, func(r *core.Relay) { r.Family = []string{a.FamilyRef()} })
	all := []*core.Relay{a, b}

	f := NewFamily(strings.ToLower(a.Fingerprint), all)
	if f.Anchor() != a {
		t.Fatalf("Anchor() = %v, want %s", f.Anchor(), a.Nickname)
	}
	if got := Load(f, all); len(got) != 2 {
		t.Errorf("Load() = %v, want both relays", nicks(got))
	}
}
