package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFileAppliesDefaultsAndFileValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yml")
	content := []byte("client:\n  base_url: http://cart.example.test\n  debounce_ms: 250\ncart:\n  max_quantity: 12\n")
	if err := os.WriteFile(path, content, 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Client.BaseURL != "http://cart.example.test" {
		t.Fatalf("unexpected base url: %s", cfg.Client.BaseURL)
	}
	if cfg.Client.Debounce() != 250*time.Millisecond {
		t.Fatalf("unexpected debounce: %s", cfg.Client.Debounce())
	}
	if cfg.Cart.MaxQuantity != 12 {
		t.Fatalf("unexpected max quantity: %d", cfg.Cart.MaxQuantity)
	}
	if cfg.Client.Retry.Attempts != 3 || cfg.Client.Retry.InitialDelay() != time.Second {
		t.Fatalf("unexpected retry defaults: %+v", cfg.Client.Retry)
	}
	if cfg.Client.Cache.TTL() != 5*time.Minute || cfg.Client.Cache.Driver != "file" {
		t.Fatalf("unexpected cache defaults: %+v", cfg.Client.Cache)
	}
}

func TestLoadFileEnvOverridesDefaults(t *testing.T) {
	t.Setenv("CLIENT_RETRY_ATTEMPTS", "5")
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte("server:\n  port: \"9090\"\n"), 0o644); err != nil {
		t.Fatalf("write config failed: %v", err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load config failed: %v", err)
	}
	if cfg.Client.Retry.Attempts != 5 {
		t.Fatalf("env override not applied: %d", cfg.Client.Retry.Attempts)
	}
	if cfg.Server.Port != "9090" {
		t.Fatalf("unexpected port: %s", cfg.Server.Port)
	}
}
