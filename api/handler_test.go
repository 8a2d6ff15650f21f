package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/engine"
	"github.com/rushteam/relaykit/snapshot"
)

func testSnapshot() *snapshot.Snapshot {
	var relays []*core.Relay
	for i, cc := range []string{"de", "de", "us", "fr"} {
		relays = append(relays, &core.Relay{
			Fingerprint:             fmt.Sprintf("%040X", i+1),
			Nickname:                fmt.Sprintf("relay%d", i+1),
			Running:                 true,
			Country:                 cc,
			ASNumber:                "AS7922",
			ConsensusWeightFraction: 0.01 * float64(i+1),
			ExitProbability:         0.001,
			Flags:                   []string{core.FlagExit},
		})
	}
	return &snapshot.Snapshot{Relays: relays}
}

func newServer(t *testing.T) (*httptest.Server, *Handler) {
	t.Helper()
	h := NewHandler(engine.New(), testSnapshot(), WithMetrics(NewMetrics()))
	srv := httptest.NewServer(h.Router())
	t.Cleanup(srv.Close)
	return srv, h
}

func getJSON(t *testing.T, url string) (int, map[string]any) {
	t.Helper()
	resp, err := http.Get(url)
	if err != nil {
		t.Fatalf("GET %s: %v", url, err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return resp.StatusCode, nil
	}
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode %s: %v", body, err)
	}
	return resp.StatusCode, out
}

func TestHandler_Result(t *testing.T) {
	srv, _ := newServer(t)

	tests := []struct {
		name         string
		query        string
		wantResults  int
		wantFirst    string
		wantExcluded bool
	}{
		{name: "defaults", query: "", wantResults: 4, wantFirst: "relay4"},
		{name: "top", query: "top=2", wantResults: 2, wantFirst: "relay4", wantExcluded: true},
		{name: "unparseable top means all", query: "top=all", wantResults: 4, wantFirst: "relay4"},
		{name: "country", query: "country=DE", wantResults: 2, wantFirst: "relay2"},
		{name: "country list", query: "country=de,us", wantResults: 3, wantFirst: "relay3"},
		{name: "ascending", query: "sort=cw&sort_reverse=false", wantResults: 4, wantFirst: "relay1"},
		{name: "group by country", query: "by_country=1", wantResults: 3, wantFirst: "*"},
		{name: "group_by string", query: "group_by=country", wantResults: 3, wantFirst: "*"},
		{name: "legacy exits", query: "exits=fast_exits_only", wantResults: 0},
		{name: "expr", query: "expr=" + url.QueryEscape(`relay.country == "us"`), wantResults: 1, wantFirst: "relay3"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := getJSON(t, srv.URL+"/result.json?"+tt.query)
			if status != http.StatusOK {
				t.Fatalf("status = %d, want 200", status)
			}
			results := out["results"].([]any)
			if len(results) != tt.wantResults {
				t.Fatalf("len(results) = %d, want %d", len(results), tt.wantResults)
			}
			if tt.wantResults > 0 {
				if got := results[0].(map[string]any)["nick"]; got != tt.wantFirst {
					t.Errorf("results[0].nick = %v, want %s", got, tt.wantFirst)
				}
			}
			if got := out["excluded"] != nil; got != tt.wantExcluded {
				t.Errorf("excluded present = %v, want %v", got, tt.wantExcluded)
			}
		})
	}
}

func TestHandler_BadRequest(t *testing.T) {
	srv, _ := newServer(t)
	for _, q := range []string{
		"sort=speed",
		"exits=turbo",
		"exit_filter=fast_exits_only&fast_exits_only_any_network=true",
		"group_by=continent",
		"by_as=maybe",
		"family=" + url.QueryEscape("not a relay"),
		"expr=" + url.QueryEscape("relay.running &&"),
	} {
		t.Run(q, func(t *testing.T) {
			status, _ := getJSON(t, srv.URL+"/result?"+q)
			if status != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", status)
			}
		})
	}
}

func TestHandler_Batch(t *testing.T) {
	srv, _ := newServer(t)

	body := `{"queries":[{"country":["de"]},{"country":["us"],"top":0},{}]}`
	resp, err := http.Post(srv.URL+"/batch.json", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var out BatchResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	wantResults := []int{2, 0, 4}
	if len(out.Selections) != len(wantResults) {
		t.Fatalf("len(selections) = %d, want %d", len(out.Selections), len(wantResults))
	}
	for i, sel := range out.Selections {
		if len(sel.Results) != wantResults[i] {
			t.Errorf("selection %d: %d results, want %d", i, len(sel.Results), wantResults[i])
		}
	}

	resp, err = http.Post(srv.URL+"/batch.json", "application/json", strings.NewReader(`{"queries":[{"sort":"speed"}]}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestHandler_SetSnapshotAndMetrics(t *testing.T) {
	srv, h := newServer(t)

	h.SetSnapshot(&snapshot.Snapshot{Relays: testSnapshot().Relays[:1]})
	_, out := getJSON(t, srv.URL+"/result.json")
	if n := len(out["results"].([]any)); n != 1 {
		t.Errorf("len(results) after SetSnapshot = %d, want 1", n)
	}

	resp, err := http.Get(srv.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	for _, want := range []string{
		`relaykit_queries_total{result="ok"} 1`,
		"relaykit_snapshot_relays 1",
		"relaykit_query_duration_seconds_count 1",
	} {
		if !strings.Contains(string(body), want) {
			t.Errorf("/metrics missing %q", want)
		}
	}
}

func TestParseQuery(t *testing.T) {
	q, _ := url.ParseQuery("top=5&country=de&country=fr,&ases=7922&exits=almost_fast_exits_only&links&inactive=false")
	opts, err := ParseQuery(q, core.DefaultOptions())
	if err != nil {
		t.Fatalf("ParseQuery() error = %v", err)
	}
	if opts.Top != 5 {
		t.Errorf("Top = %d, want 5", opts.Top)
	}
	if strings.Join(opts.Country, ",") != "de,fr" {
		t.Errorf("Country = %v", opts.Country)
	}
	if strings.Join(opts.ASes, ",") != "7922" {
		t.Errorf("ASes = %v", opts.ASes)
	}
	if !opts.AlmostFastExitsOnly || !opts.Links || opts.Inactive {
		t.Errorf("opts = %+v", opts)
	}
	if !opts.SortReverse || opts.SortField != "cw" {
		t.Errorf("defaults lost: %+v", opts)
	}
}
