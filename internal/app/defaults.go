package app

import (
	"os"
	"path/filepath"
)

// GetDefaults returns application default paths, checking environment variables first.
// Environment variables:
//   - HARDCPY_HOME: base directory for config, catalog and logs
//     (default: <user config dir>/hardcpy, or the working directory when there is none)
//   - HARDCPY_CONFIG_PATH: config file location (default: <base dir>/config.toml)
func GetDefaults() (map[string]string, error) {
	baseDir, err := getBaseDir()
	if err != nil {
		return nil, err
	}

	configPath := os.Getenv("HARDCPY_CONFIG_PATH")
	if configPath == "" {
		configPath = filepath.Join(baseDir, "config.toml")
	}

	return map[string]string{
		"config_path": configPath,
		"base_dir":    baseDir,
		"log_dir":     filepath.Join(baseDir, "log"),
	}, nil
}

func getBaseDir() (string, error) {
	if path := os.Getenv("HARDCPY_HOME"); path != "" {
		return path, nil
	}
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "hardcpy"), nil
	}
	return os.Getwd()
}
