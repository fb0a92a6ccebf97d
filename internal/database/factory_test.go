package database

import (
	"os"
	"path/filepath"
	"testing"

	"hardcpy/internal/config"
)

func TestNewCatalogFromConfig(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.CatalogConfig
		wantErr bool
	}{
		{name: "memory catalog", cfg: config.CatalogConfig{Type: config.CatalogMemory}},
		{name: "sqlite catalog", cfg: config.CatalogConfig{Type: config.CatalogSQLite, DataDir: "TEMP"}},
		{name: "document catalog", cfg: config.CatalogConfig{Type: config.CatalogDocument, DataDir: "TEMP"}},
		{name: "sqlite without data_dir", cfg: config.CatalogConfig{Type: config.CatalogSQLite}, wantErr: true},
		{name: "document without data_dir", cfg: config.CatalogConfig{Type: config.CatalogDocument}, wantErr: true},
		{name: "unknown type", cfg: config.CatalogConfig{Type: "postgres"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := tt.cfg
			if cfg.DataDir == "TEMP" {
				cfg.DataDir = t.TempDir()
			}
			got, err := NewCatalogFromConfig(cfg)
			if tt.wantErr {
				if err == nil {
					t.Error("NewCatalogFromConfig() expected error, got nil")
				}
				if got != nil {
					t.Error("NewCatalogFromConfig() should return nil on error")
					got.Close()
				}
				return
			}
			if err != nil {
				t.Fatalf("NewCatalogFromConfig() unexpected error: %v", err)
			}
			if got == nil {
				t.Fatal("NewCatalogFromConfig() returned nil")
			}
			got.Close()
		})
	}
}

func TestNewCatalogFromConfig_CreatesDataDir(t *testing.T) {
	dataDir := filepath.Join(t.TempDir(), "nested", "catalog")

	got, err := NewCatalogFromConfig(config.CatalogConfig{Type: config.CatalogSQLite, DataDir: dataDir})
	if err != nil {
		t.Fatalf("NewCatalogFromConfig() error = %v", err)
	}
	defer got.Close()

	cat, ok := got.(*SQLiteCatalog)
	if !ok {
		t.Fatalf("NewCatalogFromConfig() returned %T, want *SQLiteCatalog", got)
	}
	if want := filepath.Join(dataDir, "catalog.db"); cat.Path() != want {
		t.Errorf("Path() = %q, want %q", cat.Path(), want)
	}
	if _, err := os.Stat(cat.Path()); err != nil {
		t.Errorf("catalog file not created: %v", err)
	}
}
