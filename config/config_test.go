package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestPathRespectsXDGConfigHome(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	want := filepath.Join(dir, "dumptriage", "config.json")
	if got := Path(); got != want {
		t.Fatalf("Path() = %q, want %q", got, want)
	}
}

func TestLoadReturnsDefaultsWhenFileMissing(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	got := Load()
	want := Default()
	if got != want {
		t.Fatalf("Load() = %+v, want defaults %+v", got, want)
	}
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())

	cfg := Default()
	cfg.MaxStringsToCapture = 1234
	cfg.HistoryDB = "/tmp/history.db"
	cfg.MaskIPs = true

	if err := Save(cfg); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got := Load()
	if got != cfg {
		t.Fatalf("Load() after Save() = %+v, want %+v", got, cfg)
	}
}

func TestLoadToleratesCorruptFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	path := filepath.Join(dir, "dumptriage", "config.json")
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("{not json"), 0600); err != nil {
		t.Fatalf("write corrupt config: %v", err)
	}

	got := Load()
	if got != Default() {
		t.Fatalf("Load() with corrupt file = %+v, want defaults", got)
	}
}
