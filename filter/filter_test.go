package filter

import (
	"context"
	"fmt"
	"slices"
	"testing"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/pipeline"
)

func fp(i int) string { return fmt.Sprintf("%040X", i) }

func newRelay(i int, mutate ...func(r *core.Relay)) *core.Relay {
	r := &core.Relay{
		Fingerprint: fp(i),
		Nickname:    fmt.Sprintf("relay%d", i),
		Running:     true,
	}
	for _, m := range mutate {
		m(r)
	}
	return r
}

func nicks(relays []*core.Relay) []string {
	out := make([]string, 0, len(relays))
	for _, r := range relays {
		out = append(out, r.Nickname)
	}
	return out
}

func run(t *testing.T, n pipeline.Node, relays []*core.Relay) []*core.Relay {
	t.Helper()
	qctx := core.NewQueryContext(core.DefaultOptions(), core.DefaultThresholds(), relays)
	out, err := n.Process(context.Background(), qctx, relays)
	if err != nil {
		t.Fatalf("%s.Process() error = %v", n.Name(), err)
	}
	return out
}

func TestBasicFilters(t *testing.T) {
	relays := []*core.Relay{
		newRelay(1, func(r *core.Relay) { r.Country = "DE"; r.ASNumber = "AS7922"; r.ExitProbability = 0.1 }),
		newRelay(2, func(r *core.Relay) { r.Country = "de"; r.ASNumber = "AS3320"; r.GuardProbability = 0.2 }),
		newRelay(3, func(r *core.Relay) { r.Country = "fr"; r.ASNumber = "AS7922"; r.Running = false }),
		newRelay(4),
	}

	tests := []struct {
		name   string
		filter Filter
		want   []string
	}{
		{name: "running", filter: Running{}, want: []string{"relay1", "relay2", "relay4"}},
		{name: "country is case insensitive", filter: NewCountry([]string{"De"}), want: []string{"relay1", "relay2"}},
		{name: "country missing never matches", filter: NewCountry([]string{""}), want: []string{}},
		{name: "as with prefix", filter: NewAS([]string{"AS7922"}), want: []string{"relay1", "relay3"}},
		{name: "as digits only", filter: NewAS([]string{"3320"}), want: []string{"relay2"}},
		{name: "exit", filter: Exit{}, want: []string{"relay1"}},
		{name: "guard", filter: Guard{}, want: []string{"relay2"}},
		{name: "and", filter: Of(Running{}, NewAS([]string{"7922"})), want: []string{"relay1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := nicks(Load(tt.filter, relays))
			if !slices.Equal(got, tt.want) {
				t.Errorf("Load() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCountryAS_Commute(t *testing.T) {
	var relays []*core.Relay
	countries := []string{"de", "fr", "us", ""}
	ases := []string{"AS1", "AS2", ""}
	i := 0
	for _, cc := range countries {
		for _, as := range ases {
			i++
			relays = append(relays, newRelay(i, func(r *core.Relay) { r.Country = cc; r.ASNumber = as }))
		}
	}

	country := Of(NewCountry([]string{"de", "us"}))
	as := Of(NewAS([]string{"1"}))

	a := run(t, as, run(t, country, relays))
	b := run(t, country, run(t, as, relays))
	if !slices.Equal(nicks(a), nicks(b)) {
		t.Errorf("country∘as = %v, as∘country = %v", nicks(a), nicks(b))
	}
	if len(a) != 2 {
		t.Errorf("len = %d, want 2", len(a))
	}
}

func TestFilterNode_Empty(t *testing.T) {
	relays := []*core.Relay{newRelay(1), newRelay(2)}
	if got := run(t, Of(), relays); len(got) != 2 {
		t.Errorf("empty FilterNode kept %d relays, want 2", len(got))
	}
}
