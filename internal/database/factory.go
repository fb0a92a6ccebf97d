package database

import (
	"fmt"
	"os"
	"path/filepath"

	"hardcpy/internal/config"
	"hardcpy/internal/hc"
)

const (
	sqliteFileName   = "catalog.db"
	documentFileName = "catalog.toml"
)

// NewCatalogFromConfig creates a Catalog implementation based on the catalog config type.
func NewCatalogFromConfig(cfg config.CatalogConfig) (hc.Catalog, error) {
	switch cfg.Type {
	case config.CatalogSQLite:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for sqlite catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		return openSQLite(filepath.Join(cfg.DataDir, sqliteFileName))
	case config.CatalogMemory:
		return openSQLite(":memory:")
	case config.CatalogDocument:
		if cfg.DataDir == "" {
			return nil, fmt.Errorf("data_dir required for document catalog")
		}
		if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
			return nil, fmt.Errorf("creating catalog directory: %w", err)
		}
		cat, err := NewDocumentCatalog(filepath.Join(cfg.DataDir, documentFileName))
		if err != nil {
			return nil, err
		}
		return cat, nil
	default:
		return nil, fmt.Errorf("unknown catalog type: %s", cfg.Type)
	}
}

func openSQLite(path string) (hc.Catalog, error) {
	cat, err := NewSQLiteCatalog(path)
	if err != nil {
		return nil, err
	}
	return cat, nil
}
