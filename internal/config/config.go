package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

const (
	CatalogSQLite   = "sqlite"
	CatalogMemory   = "memory"
	CatalogDocument = "document"

	EngineSequential = "sequential"
	EngineParallel   = "parallel"

	DefaultMemoryCeiling = 64 << 20
	DefaultChunkSize     = 1 << 20
)

// Config represents the main configuration for hardcpy.
type Config struct {
	BaseDir    string           `toml:"base_dir"`
	LogDir     string           `toml:"log_dir"`
	Catalog    CatalogConfig    `toml:"catalog"`
	Engine     EngineConfig     `toml:"engine"`
	Hash       HashConfig       `toml:"hash"`
	Filesystem FilesystemConfig `toml:"filesystem"`
}

// CatalogConfig selects where backups are recorded.
// This uses a tagged union pattern - the Type field determines which other fields are relevant.
type CatalogConfig struct {
	Type    string `toml:"type"`               // "sqlite", "memory" or "document"
	DataDir string `toml:"data_dir,omitempty"` // unused for type=memory
}

// EngineConfig controls discovery and copying.
type EngineConfig struct {
	Default string `toml:"default"` // strategy used without --multithread
	Workers int    `toml:"workers"` // parallel pool size, 0 = 4 * GOMAXPROCS
}

// HashConfig bounds the memory used while hashing.
type HashConfig struct {
	MemoryCeiling int64 `toml:"memory_ceiling"` // files up to this size are read in one piece
	ChunkSize     int   `toml:"chunk_size"`
}

// FilesystemConfig holds filesystem-related settings.
type FilesystemConfig struct {
	Ignore []string `toml:"ignore"`
}

// NewConfig returns the default configuration rooted at baseDir.
func NewConfig(baseDir string) *Config {
	return &Config{
		BaseDir: baseDir,
		LogDir:  filepath.Join(baseDir, "log"),
		Catalog: CatalogConfig{
			Type:    CatalogSQLite,
			DataDir: baseDir,
		},
		Engine: EngineConfig{
			Default: EngineSequential,
		},
		Hash: HashConfig{
			MemoryCeiling: DefaultMemoryCeiling,
			ChunkSize:     DefaultChunkSize,
		},
	}
}

// Validate reports the first invalid setting.
func (c *Config) Validate() error {
	switch c.Catalog.Type {
	case CatalogSQLite, CatalogDocument:
		if c.Catalog.DataDir == "" {
			return fmt.Errorf("catalog.data_dir required for catalog type %s", c.Catalog.Type)
		}
	case CatalogMemory:
	default:
		return fmt.Errorf("unknown catalog type: %s", c.Catalog.Type)
	}
	switch c.Engine.Default {
	case EngineSequential, EngineParallel:
	default:
		return fmt.Errorf("unknown engine: %s", c.Engine.Default)
	}
	if c.Engine.Workers < 0 {
		return fmt.Errorf("engine.workers must not be negative")
	}
	if c.Hash.MemoryCeiling < 0 || c.Hash.ChunkSize < 0 {
		return fmt.Errorf("hash sizes must not be negative")
	}
	return nil
}

// Manager handles reading and writing configuration.
type Manager struct{}

// Read decodes a Config from r. Settings missing from r keep the defaults
// for baseDir.
func (m *Manager) Read(r io.Reader, baseDir string) (*Config, error) {
	cfg := NewConfig(baseDir)
	if _, err := toml.NewDecoder(r).Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// Write encodes a Config to the provided writer.
func (m *Manager) Write(w io.Writer, cfg *Config) error {
	if err := toml.NewEncoder(w).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// ReadFromFile reads a Config from path. Settings missing from the file keep
// the defaults for the file's directory.
func ReadFromFile(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	cfg, err := m.Read(f, filepath.Dir(path))
	if err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}
	return cfg, nil
}

// Load reads the config at path, or returns the defaults for baseDir when no
// file exists there.
func Load(path, baseDir string) (*Config, error) {
	cfg, err := ReadFromFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return NewConfig(baseDir), nil
		}
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func writeToFile(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer f.Close()

	m := &Manager{}
	if err := m.Write(f, cfg); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// Init writes cfg to a new config file at path. It fails if the file exists.
func Init(path string, cfg *Config) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	if err := writeToFile(path, cfg); err != nil {
		return fmt.Errorf("initializing config: %w", err)
	}
	return nil
}
