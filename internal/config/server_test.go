package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("POSTGRES_DSN", "postgres://localhost:5432/signarena?sslmode=disable")
	t.Setenv("AUTH_SECRET", "test-secret")
	t.Setenv("CLASSIFIER_BASE_URL", "http://localhost:5000")
}

func TestLoadServerDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q, want :8080", cfg.HTTPAddr)
	}
	if cfg.ItemSeconds != 20 {
		t.Fatalf("ItemSeconds = %d, want 20", cfg.ItemSeconds)
	}
	if cfg.PollInterval != time.Second {
		t.Fatalf("PollInterval = %v, want 1s", cfg.PollInterval)
	}
	if len(cfg.VectorLengths) != 2 || cfg.VectorLengths[0] != 63 || cfg.VectorLengths[1] != 126 {
		t.Fatalf("VectorLengths = %v, want [63 126]", cfg.VectorLengths)
	}
	if len(cfg.Alphabet) != 3 {
		t.Fatalf("Alphabet = %v, want 3 letters", cfg.Alphabet)
	}
}

func TestLoadServerRequiresPostgresDSN(t *testing.T) {
	setRequired(t)
	t.Setenv("POSTGRES_DSN", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerRequiresAuthSecret(t *testing.T) {
	setRequired(t)
	t.Setenv("AUTH_SECRET", "")

	_, err := LoadServer()
	if err == nil {
		t.Fatal("LoadServer() expected error, got nil")
	}
}

func TestLoadServerParseTypes(t *testing.T) {
	setRequired(t)
	t.Setenv("ITEM_SECONDS", "30")
	t.Setenv("POLL_INTERVAL", "250ms")
	t.Setenv("VECTOR_LENGTHS", "42")
	t.Setenv("ALPHABET", "A,B,C,D,E")

	cfg, err := LoadServer()
	if err != nil {
		t.Fatalf("LoadServer() error = %v", err)
	}
	if cfg.ItemSeconds != 30 {
		t.Fatalf("ItemSeconds = %d, want 30", cfg.ItemSeconds)
	}
	if cfg.PollInterval != 250*time.Millisecond {
		t.Fatalf("PollInterval = %v, want 250ms", cfg.PollInterval)
	}
	if len(cfg.VectorLengths) != 1 || cfg.VectorLengths[0] != 42 {
		t.Fatalf("VectorLengths = %v, want [42]", cfg.VectorLengths)
	}
	if len(cfg.Alphabet) != 5 {
		t.Fatalf("Alphabet = %v, want 5 letters", cfg.Alphabet)
	}
}
