// Package snapshot 把目录服务的 details 文档（{"relays": [...]}）解码为只读的 relay 列表。
package snapshot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rushteam/relaykit/core"
)

// DefaultKey 是快照在 Store 中的默认 key。
const DefaultKey = "details.json"

// Snapshot 是解码后的快照。
type Snapshot struct {
	RelaysPublished string        `json:"relays_published,omitempty"`
	Relays          []*core.Relay `json:"relays"`
}

// rawRelay 用指针区分“缺失”与“零值”，以检查必填字段。
type rawRelay struct {
	core.Relay
	Fingerprint *string `json:"fingerprint"`
	Nickname    *string `json:"nickname"`
	Running     *bool   `json:"running"`
}

type rawDocument struct {
	RelaysPublished string            `json:"relays_published"`
	Relays          []json.RawMessage `json:"relays"`
}

// Decode 解析快照文档。任一记录缺少 fingerprint / nickname / running，
// 或违反 core.Relay.Validate 的不变量时返回 MALFORMED_INPUT 错误。
func Decode(r io.Reader) (*Snapshot, error) {
	var doc rawDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, core.MalformedInputError("decode document: %v", err)
	}
	if doc.Relays == nil {
		return nil, core.MalformedInputError(`document has no "relays" array`)
	}

	snap := &Snapshot{
		RelaysPublished: doc.RelaysPublished,
		Relays:          make([]*core.Relay, 0, len(doc.Relays)),
	}
	seen := make(map[string]struct{}, len(doc.Relays))
	for i, msg := range doc.Relays {
		relay, err := decodeRelay(msg)
		if err != nil {
			return nil, fmt.Errorf("relay #%d: %w", i, err)
		}
		if _, dup := seen[relay.Fingerprint]; dup {
			return nil, fmt.Errorf("relay #%d: %w", i, core.MalformedInputError("duplicate fingerprint %s", relay.Fingerprint))
		}
		seen[relay.Fingerprint] = struct{}{}
		snap.Relays = append(snap.Relays, relay)
	}
	return snap, nil
}

func decodeRelay(msg json.RawMessage) (*core.Relay, error) {
	var raw rawRelay
	if err := json.Unmarshal(msg, &raw); err != nil {
		return nil, core.MalformedInputError("decode relay: %v", err)
	}
	switch {
	case raw.Fingerprint == nil:
		return nil, core.MalformedInputError("missing fingerprint")
	case raw.Nickname == nil:
		return nil, core.MalformedInputError("relay %s: missing nickname", *raw.Fingerprint)
	case raw.Running == nil:
		return nil, core.MalformedInputError("relay %s: missing running", *raw.Fingerprint)
	}

	relay := raw.Relay
	relay.Fingerprint = *raw.Fingerprint
	relay.Nickname = *raw.Nickname
	relay.Running = *raw.Running
	if err := relay.Validate(); err != nil {
		return nil, err
	}
	return &relay, nil
}

// Load 从 Store 读取并解码快照。
func Load(ctx context.Context, s core.Store, key string) (*Snapshot, error) {
	if key == "" {
		key = DefaultKey
	}
	data, err := s.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("load snapshot %q from %s: %w", key, s.Name(), err)
	}
	return Decode(bytes.NewReader(data))
}
