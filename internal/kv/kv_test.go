package kv_test

import (
	"context"
	"testing"

	"agrichain/internal/db"
	"agrichain/internal/kv"
	"agrichain/internal/migrate"
)

func newTestKV(t *testing.T) *kv.Store {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return kv.New(conn)
}

func TestSetGetRoundTrip(t *testing.T) {
	s := newTestKV(t)
	ctx := context.Background()

	if _, ok, err := s.GetItem(ctx, "missing"); err != nil || ok {
		t.Fatalf("expected absent key, ok=%v err=%v", ok, err)
	}
	if err := s.SetItem(ctx, "k", "v1"); err != nil {
		t.Fatalf("set: %v", err)
	}
	if err := s.SetItem(ctx, "k", "v2"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, ok, err := s.GetItem(ctx, "k")
	if err != nil || !ok || got != "v2" {
		t.Fatalf("get: got=%q ok=%v err=%v", got, ok, err)
	}
}
