package backend

import (
	"context"
	"path/filepath"
	"testing"

	"anwarfarm/internal/config"
	"anwarfarm/internal/remote"
)

func TestFromAppConfig(t *testing.T) {
	app := config.Config{
		LocalBackend:  "sqlite",
		SQLiteDBPath:  "./data/anwarfarm.db",
		LedgerKey:     "anwarfarm_transactions_v1",
		RemoteBackend: "s3",
		S3Bucket:      "farm",
		S3Key:         "ledger.json",
		S3Region:      "auto",
	}
	cfg, err := FromAppConfig(&app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Local != LocalSQLite || cfg.Remote != RemoteS3 || cfg.S3.Bucket != "farm" {
		t.Errorf("unexpected config: %+v", cfg)
	}

	app.RemoteBackend = "dropbox"
	if _, err := FromAppConfig(&app); err == nil {
		t.Error("expected error for unknown remote backend")
	}
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}
}

func TestCreateLocal(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	t.Run("memory", func(t *testing.T) {
		res, err := f.CreateLocal(ctx, Config{Local: LocalMemory, LedgerKey: "k"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if res.Pinger != nil {
			t.Error("memory storage should not expose a pinger")
		}
		if err := res.Persister.Save(ctx, []byte("[]")); err != nil {
			t.Fatalf("save: %v", err)
		}
		if err := res.Close(); err != nil {
			t.Fatalf("close: %v", err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "ledger.db")
		res, err := f.CreateLocal(ctx, Config{Local: LocalSQLite, SQLiteDBPath: path, LedgerKey: "k"})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		defer res.Close()
		if err := res.Pinger.Ping(ctx); err != nil {
			t.Fatalf("ping: %v", err)
		}
		if err := res.Persister.Save(ctx, []byte(`[{"id":"a"}]`)); err != nil {
			t.Fatalf("save: %v", err)
		}
		got, err := res.Persister.Load(ctx)
		if err != nil || string(got) != `[{"id":"a"}]` {
			t.Fatalf("load = %q, %v", got, err)
		}
	})

	t.Run("unknown", func(t *testing.T) {
		if _, err := f.CreateLocal(ctx, Config{Local: "redis"}); err == nil {
			t.Fatal("expected error")
		}
	})
}

func TestCreateRemote(t *testing.T) {
	f := NewFactory(nil)
	ctx := context.Background()

	res, err := f.CreateRemote(ctx, Config{Remote: RemoteNone})
	if err != nil || res.Store != nil {
		t.Fatalf("none: store=%v err=%v", res.Store, err)
	}

	res, err = f.CreateRemote(ctx, Config{Remote: RemoteMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if remote.NameOf(res.Store) != "memory" {
		t.Errorf("unexpected store name %q", remote.NameOf(res.Store))
	}

	res, err = f.CreateRemote(ctx, Config{Remote: RemoteHTTP, RemoteURL: "https://example.com/ledger.json"})
	if err != nil || res.Store == nil {
		t.Fatalf("http: store=%v err=%v", res.Store, err)
	}

	if _, err := f.CreateRemote(ctx, Config{Remote: RemoteSheets}); err == nil {
		t.Error("sheets without spreadsheet id should fail")
	}
	if _, err := f.CreateRemote(ctx, Config{Remote: RemoteS3}); err == nil {
		t.Error("s3 without bucket should fail")
	}
}
