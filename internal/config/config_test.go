package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.Profile != ProfileFixed {
		t.Fatalf("profile = %q, want %q", c.Profile, ProfileFixed)
	}
	if c.Warehouse.Driver != "snowflake" {
		t.Fatalf("driver = %q", c.Warehouse.Driver)
	}
	if c.CacheTTLSec != 600 {
		t.Fatalf("cache ttl = %d, want 600", c.CacheTTLSec)
	}
	if c.SessionIdleSec != 1800 {
		t.Fatalf("session idle = %d, want 1800", c.SessionIdleSec)
	}
	if c.AIProvider != "cortex" {
		t.Fatalf("ai provider = %q", c.AIProvider)
	}
	if c.Interactive() {
		t.Fatalf("fixed profile reported as interactive")
	}
}

func TestLoadEnvOverridesNestedKeys(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	t.Setenv("SHIPSIGHT_PROFILE", "Interactive")
	t.Setenv("SHIPSIGHT_WAREHOUSE_DRIVER", "MySQL")
	t.Setenv("SHIPSIGHT_CACHE_TTL_SEC", "30")
	c, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !c.Interactive() {
		t.Fatalf("expected interactive profile, got %q", c.Profile)
	}
	if c.Warehouse.Driver != "mysql" {
		t.Fatalf("driver = %q, want mysql", c.Warehouse.Driver)
	}
	if c.CacheTTLSec != 30 {
		t.Fatalf("cache ttl = %d, want 30", c.CacheTTLSec)
	}
}

func TestSaveAndReload(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load missing file: %v", err)
	}
	c.Warehouse.Driver = "sqlite"
	c.Warehouse.DSN = "file:demo.db"
	c.AIModel = "mistral-large"
	if err := Save(c, path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("stat: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("config perms = %v, want 0600", info.Mode().Perm())
	}
	got, err := Load(path)
	if err != nil {
		t.Fatalf("reload: %v", err)
	}
	if got.Warehouse.Driver != "sqlite" || got.Warehouse.DSN != "file:demo.db" || got.AIModel != "mistral-large" {
		t.Fatalf("round trip lost values: %+v", got)
	}
}

func TestLoadRejectsBadProfile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profile: sometimes\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("profile: [unclosed\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestLoadRejectsNegativeSessionIdle(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("session_idle_sec: -5\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected validation error")
	}
}
