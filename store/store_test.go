package store

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rushteam/relaykit/core"
)

func TestFileStore_Get(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "details.json"), []byte(`{"relays":[]}`), 0o644); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	s := NewFileStore(dir)
	defer s.Close()
	ctx := context.Background()

	data, err := s.Get(ctx, "details.json")
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if string(data) != `{"relays":[]}` {
		t.Errorf("Get() = %s", data)
	}

	abs, err := s.Get(ctx, filepath.Join(dir, "details.json"))
	if err != nil || string(abs) != string(data) {
		t.Errorf("Get(absolute) = %s, %v", abs, err)
	}

	if _, err := s.Get(ctx, "missing.json"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want store not found", err)
	}
}

func TestMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	if _, err := s.Get(ctx, "k"); !core.IsStoreNotFound(err) {
		t.Errorf("Get() error = %v, want store not found", err)
	}
	s.Set(ctx, "k", []byte("v"))
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v" {
		t.Errorf("Get() = %s, %v", got, err)
	}
	if s.Name() != "memory" {
		t.Errorf("Name() = %q", s.Name())
	}
}

// TestRedisStore_Get 需要本地 Redis 才能运行
func TestRedisStore_Get(t *testing.T) {
	addr := os.Getenv("RELAYKIT_REDIS_ADDR")
	if addr == "" {
		t.Skip("需要设置 RELAYKIT_REDIS_ADDR 才能运行")
	}
	ctx := context.Background()
	s, err := NewRedisStore(ctx, addr, 0)
	if err != nil {
		t.Fatalf("连接 Redis 失败: %v", err)
	}
	defer s.Close()

	if _, err := s.Get(ctx, "relaykit:test:missing"); !core.IsStoreNotFound(err) {
		t.Errorf("Get(missing) error = %v, want store not found", err)
	}
}
