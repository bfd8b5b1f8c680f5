package storage

import (
	"context"
	"path/filepath"
	"testing"
)

func TestSQLiteRepositoryRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "ledger.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer repo.Close()

	if err := repo.Ping(ctx); err != nil {
		t.Fatalf("ping: %v", err)
	}
	if v := repo.SchemaVersion(); v != 1 {
		t.Fatalf("expected schema version 1, got %d", v)
	}

	got, err := repo.Get(ctx, "missing")
	if err != nil || got != nil {
		t.Fatalf("expected nil for missing key, got %q (err=%v)", got, err)
	}

	if err := repo.Put(ctx, "k", []byte(`[1]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := repo.Put(ctx, "k", []byte(`[1,2]`)); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err = repo.Get(ctx, "k")
	if err != nil || string(got) != `[1,2]` {
		t.Fatalf("expected overwritten value, got %q (err=%v)", got, err)
	}
}

func TestSQLiteRepositoryReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ledger.db")

	repo, err := NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := repo.Put(ctx, "anwarfarm_transactions_v1", []byte(`[]`)); err != nil {
		t.Fatalf("put: %v", err)
	}
	repo.Close()

	// Second open re-runs migrations, which must be a no-op.
	repo, err = NewSQLiteRepository(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer repo.Close()
	got, err := repo.Get(ctx, "anwarfarm_transactions_v1")
	if err != nil || string(got) != `[]` {
		t.Fatalf("expected persisted value, got %q (err=%v)", got, err)
	}
}

func TestBlobOverMemoryKV(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	b := NewBlob(kv, "ledger")

	got, err := b.Load(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected empty blob, got %q (err=%v)", got, err)
	}

	payload := []byte(`[{"id":"a"}]`)
	if err := b.Save(ctx, payload); err != nil {
		t.Fatalf("save: %v", err)
	}
	payload[0] = 'X'

	got, _ = b.Load(ctx)
	if string(got) != `[{"id":"a"}]` {
		t.Fatalf("stored value aliased caller buffer: %q", got)
	}
	if other, _ := kv.Get(ctx, "other"); other != nil {
		t.Fatalf("unexpected value under other key")
	}
}
