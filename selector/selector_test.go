package selector

import (
	"fmt"
	"math"
	"slices"
	"testing"

	"github.com/rushteam/relaykit/core"
)

func rows(cws ...float64) []*core.Row {
	out := make([]*core.Row, 0, len(cws))
	for i, cw := range cws {
		out = append(out, &core.Row{
			Weights: core.Weights{CW: cw, AdvBW: cw / 2, PGuard: cw / 3, PMiddle: cw / 4, PExit: cw / 5},
			Nick:    fmt.Sprintf("r%d", i),
		})
	}
	return out
}

func nicksOf(rs []*core.Row) []string {
	out := make([]string, 0, len(rs))
	for _, r := range rs {
		out = append(out, r.Nick)
	}
	return out
}

func TestSelect(t *testing.T) {
	tests := []struct {
		name         string
		cws          []float64
		opts         core.Options
		want         []string
		wantExcluded string
		wantTotal    bool
	}{
		{
			name:         "top 2 descending",
			cws:          []float64{1, 3, 2, 4},
			opts:         core.Options{Top: 2, SortField: "cw", SortReverse: true},
			want:         []string{"r3", "r1"},
			wantExcluded: "(2 other relays)",
			wantTotal:    true,
		},
		{
			name:      "ascending",
			cws:       []float64{1, 3, 2},
			opts:      core.Options{Top: 10, SortField: "cw"},
			want:      []string{"r0", "r2", "r1"},
			wantTotal: true,
		},
		{
			name:      "top -1 keeps everything",
			cws:       []float64{1, 3, 2},
			opts:      core.Options{Top: -1, SortReverse: true},
			want:      []string{"r1", "r2", "r0"},
			wantTotal: true,
		},
		{
			name:         "top 0 excludes everything",
			cws:          []float64{1, 3, 2},
			opts:         core.Options{Top: 0},
			want:         []string{},
			wantExcluded: "(3 other relays)",
			wantTotal:    true,
		},
		{
			name:         "grouped label",
			cws:          []float64{1, 3, 2},
			opts:         core.Options{Top: 1, ByCountry: true, ByAS: true, SortReverse: true},
			want:         []string{"r1"},
			wantExcluded: "(2 other countries and ASes)",
			wantTotal:    true,
		},
		{
			name:      "total omitted above coverage limit",
			cws:       []float64{60, 39.95},
			opts:      core.Options{Top: 10, SortReverse: true},
			want:      []string{"r0", "r1"},
			wantTotal: false,
		},
		{
			name:      "total kept below coverage limit",
			cws:       []float64{60, 39.5},
			opts:      core.Options{Top: 10, SortReverse: true},
			want:      []string{"r0", "r1"},
			wantTotal: true,
		},
		{
			name:      "stable on ties",
			cws:       []float64{1, 1, 1},
			opts:      core.Options{Top: 10, SortReverse: true},
			want:      []string{"r0", "r1", "r2"},
			wantTotal: true,
		},
		{
			name:      "empty selection still has total",
			cws:       nil,
			opts:      core.Options{Top: 10},
			want:      []string{},
			wantTotal: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sel, err := Select(rows(tt.cws...), tt.opts)
			if err != nil {
				t.Fatalf("Select() error = %v", err)
			}
			if got := nicksOf(sel.Results); !slices.Equal(got, tt.want) {
				t.Errorf("results = %v, want %v", got, tt.want)
			}
			for i, r := range sel.Results {
				if r.Index != i+1 {
					t.Errorf("results[%d].Index = %d, want %d", i, r.Index, i+1)
				}
			}
			switch {
			case tt.wantExcluded == "" && sel.Excluded != nil:
				t.Errorf("excluded = %+v, want nil", sel.Excluded)
			case tt.wantExcluded != "" && (sel.Excluded == nil || sel.Excluded.Nick != tt.wantExcluded):
				t.Errorf("excluded = %+v, want %q", sel.Excluded, tt.wantExcluded)
			}
			if (sel.Total != nil) != tt.wantTotal {
				t.Errorf("total = %+v, want present=%v", sel.Total, tt.wantTotal)
			}
			if sel.Total != nil && sel.Total.Nick != TotalLabel {
				t.Errorf("total label = %q", sel.Total.Nick)
			}
		})
	}
}

func TestSelect_Conservation(t *testing.T) {
	in := rows(0.5, 1.25, 3.125, 7, 0.001, 2.2, 9.9)
	sel, err := Select(in, core.Options{Top: 3, SortField: "p_exit", SortReverse: true})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}

	var sum core.Weights
	for _, r := range sel.Results {
		sum = sum.Add(r.Weights)
	}
	sum = sum.Add(sel.Excluded.Weights)

	for _, c := range []struct {
		name       string
		got, total float64
	}{
		{"cw", sum.CW, sel.Total.CW},
		{"adv_bw", sum.AdvBW, sel.Total.AdvBW},
		{"p_guard", sum.PGuard, sel.Total.PGuard},
		{"p_middle", sum.PMiddle, sel.Total.PMiddle},
		{"p_exit", sum.PExit, sel.Total.PExit},
	} {
		if math.Abs(c.got-c.total) > 1e-9 {
			t.Errorf("%s: results+excluded = %v, total = %v", c.name, c.got, c.total)
		}
	}
}

func TestSelect_DoesNotReorderInput(t *testing.T) {
	in := rows(1, 3, 2)
	if _, err := Select(in, core.Options{Top: 1, SortReverse: true}); err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := nicksOf(in); !slices.Equal(got, []string{"r0", "r1", "r2"}) {
		t.Errorf("input reordered: %v", got)
	}
}

func TestParseSortField(t *testing.T) {
	tests := []struct {
		in      string
		want    SortField
		wantErr bool
	}{
		{in: "", want: SortCW},
		{in: "cw", want: SortCW},
		{in: "ADV_BW", want: SortAdvBW},
		{in: "p_guard", want: SortPGuard},
		{in: "p_middle", want: SortPMiddle},
		{in: "p_exit", want: SortPExit},
		{in: "nick", want: SortNick},
		{in: "fp", want: SortFP},
		{in: "exit_probability", want: SortPExit},
		{in: "speed", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSortField(tt.in)
			if tt.wantErr {
				if !core.IsConfigError(err) {
					t.Errorf("ParseSortField(%q) error = %v, want INVALID_CONFIG", tt.in, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Errorf("ParseSortField(%q) = %v, %v, want %v", tt.in, got, err, tt.want)
			}
		})
	}
}

func TestSelect_SortByNick(t *testing.T) {
	in := []*core.Row{{Nick: "charlie"}, {Nick: "alpha"}, {Nick: "bravo"}}
	sel, err := Select(in, core.Options{Top: -1, SortField: "nick"})
	if err != nil {
		t.Fatalf("Select() error = %v", err)
	}
	if got := nicksOf(sel.Results); !slices.Equal(got, []string{"alpha", "bravo", "charlie"}) {
		t.Errorf("results = %v", got)
	}
}
