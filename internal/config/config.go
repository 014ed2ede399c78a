package config

import (
	"path/filepath"

	"github.com/mvp-joe/predsrc/internal/extract"
	"github.com/mvp-joe/predsrc/internal/source"
	"github.com/mvp-joe/predsrc/internal/watcher"
)

// Dir is the per-project directory holding config.yml and the results database.
const Dir = ".predsrc"

// Config represents the complete predsrc configuration.
// It can be loaded from .predsrc/config.yml with environment variable overrides.
type Config struct {
	Contracts ContractsConfig `yaml:"contracts" mapstructure:"contracts"`
	Paths     PathsConfig     `yaml:"paths" mapstructure:"paths"`
	Cache     CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Watch     WatchConfig     `yaml:"watch" mapstructure:"watch"`
	Storage   StorageConfig   `yaml:"storage" mapstructure:"storage"`
}

// ContractsConfig defines which calls are contracts and how predicates render.
type ContractsConfig struct {
	Namespaces  []string `yaml:"namespaces" mapstructure:"namespaces"`   // e.g., ["deal"]
	Placeholder string   `yaml:"placeholder" mapstructure:"placeholder"` // removed from rendered text
}

// PathsConfig defines which files to scan and which to ignore.
type PathsConfig struct {
	Include []string `yaml:"include" mapstructure:"include"` // glob patterns for source files
	Ignore  []string `yaml:"ignore" mapstructure:"ignore"`   // glob patterns to ignore
}

// CacheConfig bounds the source file cache.
type CacheConfig struct {
	MaxFiles int `yaml:"max_files" mapstructure:"max_files"`
}

// WatchConfig tunes `scan --watch`.
type WatchConfig struct {
	DebounceMS int `yaml:"debounce_ms" mapstructure:"debounce_ms"`
}

// StorageConfig defines where scan results are kept.
type StorageConfig struct {
	DBPath    string `yaml:"db_path" mapstructure:"db_path"`       // relative to the project root unless absolute
	KeepScans int    `yaml:"keep_scans" mapstructure:"keep_scans"` // 0 keeps every scan
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Contracts: ContractsConfig{
			Namespaces:  []string{extract.DefaultNamespace},
			Placeholder: extract.DefaultPlaceholder,
		},
		Paths: PathsConfig{
			Include: []string{"**/*.py"},
			Ignore: []string{
				"__pycache__/**",
				".venv/**",
				"venv/**",
				".git/**",
				".tox/**",
				"build/**",
				"dist/**",
				"*.egg-info/**",
			},
		},
		Cache: CacheConfig{
			MaxFiles: source.DefaultMaxFiles,
		},
		Watch: WatchConfig{
			DebounceMS: int(watcher.DefaultDebounce.Milliseconds()),
		},
		Storage: StorageConfig{
			DBPath:    filepath.Join(Dir, "results.db"),
			KeepScans: 10,
		},
	}
}

// ResolveDBPath returns the results database path for a project rooted at rootDir.
func (c *Config) ResolveDBPath(rootDir string) string {
	if filepath.IsAbs(c.Storage.DBPath) {
		return c.Storage.DBPath
	}
	return filepath.Join(rootDir, c.Storage.DBPath)
}
