package backend

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"tally/internal/config"
	"tally/internal/core"
)

func TestBackendType_IsValid(t *testing.T) {
	for _, bt := range []BackendType{MemoryBackend, SQLiteBackend, PostgresBackend} {
		if !bt.IsValid() {
			t.Errorf("%s should be valid", bt)
		}
	}
	if BackendType("sheets").IsValid() {
		t.Error("sheets should not be valid")
	}
}

func TestFromAppConfig(t *testing.T) {
	if _, err := FromAppConfig(nil); err == nil {
		t.Error("expected error for nil config")
	}

	cfg := &config.Config{DataBackend: "nope"}
	if _, err := FromAppConfig(cfg); err == nil {
		t.Error("expected error for invalid backend")
	}

	cfg = &config.Config{
		DataBackend:      "postgres",
		PostgresHost:     "db",
		PostgresUser:     "tally",
		PostgresPassword: "secret",
		PostgresDB:       "ledger",
	}
	got, err := FromAppConfig(cfg)
	if err != nil {
		t.Fatalf("FromAppConfig() error = %v", err)
	}
	if want := "user=tally password=secret host=db dbname=ledger sslmode=disable"; got.PostgresDSN != want {
		t.Errorf("PostgresDSN = %q, want %q", got.PostgresDSN, want)
	}

	cfg.DatabaseURL = "postgres://x@y/z"
	got, _ = FromAppConfig(cfg)
	if got.PostgresDSN != cfg.DatabaseURL {
		t.Errorf("DATABASE_URL should take precedence, got %q", got.PostgresDSN)
	}
}

func TestFactory_CreateBackend(t *testing.T) {
	ctx := context.Background()
	f := NewFactory(nil)

	t.Run("memory", func(t *testing.T) {
		b, err := f.CreateBackend(ctx, Config{Type: MemoryBackend})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer b.Close()
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("memory with seed", func(t *testing.T) {
		seed := filepath.Join(t.TempDir(), "seed.json")
		body := `[{"id":"r1","user_id":"u1","amount":"12.5","date":"2025-11-14","is_income":false,"category":"Groceries","comment":null}]`
		if err := os.WriteFile(seed, []byte(body), 0644); err != nil {
			t.Fatal(err)
		}
		b, err := f.CreateBackend(ctx, Config{Type: MemoryBackend, SeedFile: seed})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		list, err := b.ListRecords(ctx, "u1", core.Filter{})
		if err != nil || len(list) != 1 {
			t.Fatalf("expected seeded record, got %v (err=%v)", list, err)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "nested", "tally.db")
		b, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend, SQLiteDBPath: path})
		if err != nil {
			t.Fatalf("CreateBackend() error = %v", err)
		}
		defer b.Close()
		if err := b.Ping(ctx); err != nil {
			t.Errorf("Ping() error = %v", err)
		}
	})

	t.Run("sqlite without path", func(t *testing.T) {
		_, err := f.CreateBackend(ctx, Config{Type: SQLiteBackend})
		if err == nil || !strings.Contains(err.Error(), "path is required") {
			t.Errorf("expected path error, got %v", err)
		}
	})

	t.Run("invalid type", func(t *testing.T) {
		if _, err := f.CreateBackend(ctx, Config{Type: "sheets"}); err == nil {
			t.Error("expected error for invalid type")
		}
	})
}
