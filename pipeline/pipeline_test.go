package pipeline

import (
	"context"
	"errors"
	"testing"

	"github.com/rushteam/relaykit/core"
)

type dropFirst struct{}

func (dropFirst) Name() string { return "test.drop_first" }
func (dropFirst) Kind() Kind   { return KindTransform }
func (dropFirst) Process(_ context.Context, _ *core.QueryContext, relays []*core.Relay) ([]*core.Relay, error) {
	if len(relays) == 0 {
		return relays, nil
	}
	return relays[1:], nil
}

type failing struct{}

func (failing) Name() string { return "test.failing" }
func (failing) Kind() Kind   { return KindFilter }
func (failing) Process(context.Context, *core.QueryContext, []*core.Relay) ([]*core.Relay, error) {
	return nil, errors.New("boom")
}

func TestPipeline_Run(t *testing.T) {
	relays := []*core.Relay{{Nickname: "a"}, {Nickname: "b"}, {Nickname: "c"}}
	p := &Pipeline{Nodes: []Node{dropFirst{}, dropFirst{}}}

	out, err := p.Run(context.Background(), nil, relays)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(out) != 1 || out[0].Nickname != "c" {
		t.Errorf("Run() = %v, want [c]", out)
	}

	p.Nodes = append(p.Nodes, failing{})
	if _, err := p.Run(context.Background(), nil, relays); err == nil || err.Error() != "node test.failing: boom" {
		t.Errorf("Run() error = %v", err)
	}
}

func TestNodeFactory(t *testing.T) {
	f := NewNodeFactory()
	f.Register("test.drop_first", func(map[string]interface{}) (Node, error) { return dropFirst{}, nil })

	cfg, err := ParseYAML([]byte(`
pipeline:
  name: test
  nodes:
    - type: test.drop_first
    - type: test.drop_first
`))
	if err != nil {
		t.Fatalf("ParseYAML() error = %v", err)
	}
	p, err := cfg.BuildPipeline(f)
	if err != nil {
		t.Fatalf("BuildPipeline() error = %v", err)
	}
	if len(p.Nodes) != 2 || cfg.Pipeline.Name != "test" {
		t.Errorf("pipeline = %+v", p)
	}

	if _, err := f.Build("test.unknown", nil); !core.IsConfigError(err) {
		t.Errorf("Build(unknown) error = %v, want INVALID_CONFIG", err)
	}
}
