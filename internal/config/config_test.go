package config

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestManager_ReadWrite_RoundTrip(t *testing.T) {
	original := &Config{
		BaseDir:    "/home/user/.config/hardcpy",
		LogDir:     "/var/log/hardcpy",
		Catalog:    CatalogConfig{Type: CatalogDocument, DataDir: "/srv/catalog"},
		Engine:     EngineConfig{Default: EngineParallel, Workers: 12},
		Hash:       HashConfig{MemoryCeiling: 1 << 30, ChunkSize: 4 << 20},
		Filesystem: FilesystemConfig{Ignore: []string{"*.tmp", ".git"}},
	}

	var buf bytes.Buffer
	m := &Manager{}
	if err := m.Write(&buf, original); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	got, err := m.Read(&buf, "/elsewhere")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}

	if got.BaseDir != original.BaseDir {
		t.Errorf("BaseDir = %q, want %q", got.BaseDir, original.BaseDir)
	}
	if got.LogDir != original.LogDir {
		t.Errorf("LogDir = %q, want %q", got.LogDir, original.LogDir)
	}
	if got.Catalog != original.Catalog {
		t.Errorf("Catalog = %+v, want %+v", got.Catalog, original.Catalog)
	}
	if got.Engine != original.Engine {
		t.Errorf("Engine = %+v, want %+v", got.Engine, original.Engine)
	}
	if got.Hash != original.Hash {
		t.Errorf("Hash = %+v, want %+v", got.Hash, original.Hash)
	}
	if len(got.Filesystem.Ignore) != 2 {
		t.Fatalf("len(Filesystem.Ignore) = %d, want 2", len(got.Filesystem.Ignore))
	}
}

func TestManager_Read_PartialKeepsDefaults(t *testing.T) {
	m := &Manager{}
	got, err := m.Read(strings.NewReader("[engine]\ndefault = \"parallel\"\n"), "/data/hardcpy")
	if err != nil {
		t.Fatalf("Read() error = %v", err)
	}
	if got.Engine.Default != EngineParallel {
		t.Errorf("Engine.Default = %q, want %q", got.Engine.Default, EngineParallel)
	}
	if got.Catalog.Type != CatalogSQLite || got.Catalog.DataDir != "/data/hardcpy" {
		t.Errorf("Catalog = %+v, want sqlite in /data/hardcpy", got.Catalog)
	}
	if got.Hash.ChunkSize != DefaultChunkSize {
		t.Errorf("Hash.ChunkSize = %d, want %d", got.Hash.ChunkSize, DefaultChunkSize)
	}
}

func TestNewConfig(t *testing.T) {
	cfg := NewConfig("/data/hardcpy")

	if cfg.BaseDir != "/data/hardcpy" {
		t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, "/data/hardcpy")
	}
	if want := filepath.Join("/data/hardcpy", "log"); cfg.LogDir != want {
		t.Errorf("LogDir = %q, want %q", cfg.LogDir, want)
	}
	if cfg.Catalog.Type != CatalogSQLite {
		t.Errorf("Catalog.Type = %q, want %q", cfg.Catalog.Type, CatalogSQLite)
	}
	if cfg.Engine.Default != EngineSequential {
		t.Errorf("Engine.Default = %q, want %q", cfg.Engine.Default, EngineSequential)
	}
	if cfg.Hash.MemoryCeiling != DefaultMemoryCeiling {
		t.Errorf("Hash.MemoryCeiling = %d, want %d", cfg.Hash.MemoryCeiling, DefaultMemoryCeiling)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"unknown catalog", func(c *Config) { c.Catalog.Type = "postgres" }},
		{"sqlite without data dir", func(c *Config) { c.Catalog.DataDir = "" }},
		{"unknown engine", func(c *Config) { c.Engine.Default = "threads" }},
		{"negative workers", func(c *Config) { c.Engine.Workers = -1 }},
		{"negative chunk", func(c *Config) { c.Hash.ChunkSize = -1 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewConfig("/data")
			tt.modify(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("Validate() expected error")
			}
		})
	}

	t.Run("memory needs no data dir", func(t *testing.T) {
		cfg := NewConfig("/data")
		cfg.Catalog = CatalogConfig{Type: CatalogMemory}
		if err := cfg.Validate(); err != nil {
			t.Errorf("Validate() error = %v", err)
		}
	})
}

func TestInit(t *testing.T) {
	t.Run("creates config file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("Init() error = %v", err)
		}
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("config file not created: %v", err)
		}
	})

	t.Run("fails if file already exists", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		if err := Init(path, NewConfig(dir)); err != nil {
			t.Fatalf("first Init() error = %v", err)
		}
		if err := Init(path, NewConfig(dir)); err == nil {
			t.Fatal("second Init() expected error")
		}
	})

	t.Run("rejects invalid config", func(t *testing.T) {
		dir := t.TempDir()
		cfg := NewConfig(dir)
		cfg.Engine.Default = "bogus"
		if err := Init(filepath.Join(dir, "config.toml"), cfg); err == nil {
			t.Fatal("Init() expected error for invalid config")
		}
	})
}

func TestLoad(t *testing.T) {
	t.Run("defaults when file is missing", func(t *testing.T) {
		dir := t.TempDir()
		cfg, err := Load(filepath.Join(dir, "config.toml"), dir)
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if cfg.BaseDir != dir {
			t.Errorf("BaseDir = %q, want %q", cfg.BaseDir, dir)
		}
	})

	t.Run("reads existing file", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "config.toml")
		cfg := NewConfig(dir)
		cfg.Catalog = CatalogConfig{Type: CatalogMemory}
		if err := Init(path, cfg); err != nil {
			t.Fatalf("Init() error = %v", err)
		}

		got, err := Load(path, "/ignored")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if got.Catalog.Type != CatalogMemory {
			t.Errorf("Catalog.Type = %q, want %q", got.Catalog.Type, CatalogMemory)
		}
	})

	t.Run("rejects invalid file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[catalog]\ntype = \"nope\"\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, "/x"); err == nil {
			t.Fatal("Load() expected error for invalid catalog type")
		}
	})

	t.Run("rejects malformed toml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(path, []byte("[catalog\n"), 0644); err != nil {
			t.Fatal(err)
		}
		if _, err := Load(path, "/x"); err == nil {
			t.Fatal("Load() expected error for malformed file")
		}
	})
}
