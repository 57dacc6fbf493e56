package config

import (
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "guestvm.toml")
	cfg := Default()
	cfg.Cache.Dir = "/var/cache/guestvm"
	cfg.Jit.RegionSize = 128 << 20
	if err := cfg.Save(path); err != nil {
		t.Fatal(err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *cfg {
		t.Fatalf("round trip mismatch: %+v != %+v", loaded, cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.toml")); err == nil {
		t.Fatal("load of a missing file succeeded")
	}
}

func TestDefaults(t *testing.T) {
	cfg := Default()
	if !cfg.Process.Use64Bit {
		t.Fatal("64-bit default off")
	}
	if !cfg.Cache.Enabled {
		t.Fatal("cache default off")
	}
	if cfg.Jit.RegionSize == 0 {
		t.Fatal("jit region default zero")
	}
}
