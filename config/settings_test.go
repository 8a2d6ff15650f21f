package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/relaykit/core"
	"github.com/rushteam/relaykit/store"
)

func TestParseSettings_YAML(t *testing.T) {
	data := []byte(`
snapshot:
  path: /var/lib/relaykit/details.json
thresholds:
  fast_exit:
    ports: [80, 443]
  max_per_network: 3
defaults:
  top: -1
  sort: p_exit
  sort_reverse: false
server:
  listen_addr: ":9090"
  disable_metrics: true
link_base: https://metrics.example.org/rs.html#details/
max_concurrent: 4
`)
	cfg, err := ParseSettings(data, false)
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}

	def := core.DefaultThresholds()
	if got := cfg.Thresholds.FastExit.Ports; len(got) != 2 {
		t.Errorf("fast_exit.ports = %v, want [80 443]", got)
	}
	if cfg.Thresholds.FastExit.BandwidthRate != def.FastExit.BandwidthRate {
		t.Errorf("fast_exit.bandwidth_rate = %d, want default %d", cfg.Thresholds.FastExit.BandwidthRate, def.FastExit.BandwidthRate)
	}
	if cfg.Thresholds.MaxPerNetwork != 3 {
		t.Errorf("max_per_network = %d, want 3", cfg.Thresholds.MaxPerNetwork)
	}
	if cfg.Snapshot.Source != "file" || cfg.Snapshot.Path != "/var/lib/relaykit/details.json" {
		t.Errorf("snapshot = %+v", cfg.Snapshot)
	}
	if cfg.Server.ListenAddr != ":9090" || !cfg.Server.DisableMetrics {
		t.Errorf("server = %+v", cfg.Server)
	}
	if cfg.MaxConcurrent != 4 {
		t.Errorf("max_concurrent = %d, want 4", cfg.MaxConcurrent)
	}

	opts := cfg.Options()
	if opts.Top != -1 || opts.SortField != "p_exit" || opts.SortReverse {
		t.Errorf("Options() = %+v", opts)
	}
}

func TestParseSettings_JSONDefaults(t *testing.T) {
	cfg, err := ParseSettings([]byte(`{}`), true)
	if err != nil {
		t.Fatalf("ParseSettings() error = %v", err)
	}
	if cfg.Server.ListenAddr != ":8080" || cfg.Snapshot.Path != "details.json" {
		t.Errorf("defaults not applied: %+v", cfg)
	}
	opts := cfg.Options()
	want := core.DefaultOptions()
	if opts.Top != want.Top || opts.SortField != want.SortField || opts.SortReverse != want.SortReverse {
		t.Errorf("Options() = %+v, want %+v", opts, want)
	}
}

func TestParseSettings_Invalid(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{name: "unknown source", data: "snapshot: {source: s3}"},
		{name: "redis without addr", data: "snapshot: {source: redis}"},
		{name: "bad yaml", data: "snapshot: ["},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseSettings([]byte(tt.data), false); err == nil {
				t.Error("ParseSettings() error = nil")
			}
		})
	}
}

func TestLoadSettings_OpenStore(t *testing.T) {
	dir := t.TempDir()
	details := filepath.Join(dir, "details.json")
	if err := os.WriteFile(details, []byte(`{"relays":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}
	cfgPath := filepath.Join(dir, "relaykit.json")
	if err := os.WriteFile(cfgPath, []byte(`{"snapshot":{"path":"`+details+`"}}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	cfg, err := LoadSettings(cfgPath)
	if err != nil {
		t.Fatalf("LoadSettings() error = %v", err)
	}
	s, key, err := cfg.OpenStore(context.Background())
	if err != nil {
		t.Fatalf("OpenStore() error = %v", err)
	}
	defer s.Close()
	if _, ok := s.(*store.FileStore); !ok || key != "details.json" {
		t.Errorf("OpenStore() = %T, %q", s, key)
	}
	if _, err := s.Get(context.Background(), key); err != nil {
		t.Errorf("Get() error = %v", err)
	}
}
