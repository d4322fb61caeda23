// Package config loads the tankobon TOML configuration.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Paths contains directory configuration.
type Paths struct {
	DownloadDir string `toml:"download_dir"`
	LibraryDB   string `toml:"library_db"`
}

// Download controls chapter acquisition.
type Download struct {
	Language        string `toml:"language"`
	PageConcurrency int    `toml:"page_concurrency"`
	BatchSize       int    `toml:"batch_size"`
	DataSaver       bool   `toml:"data_saver"`
}

// Enhancer configures the external upscaling engine.
type Enhancer struct {
	Binary         string `toml:"binary"`
	NoiseLevel     int    `toml:"noise_level"`
	Scale          int    `toml:"scale"`
	Model          string `toml:"model"`
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// Prepress configures optional image normalization before packaging.
type Prepress struct {
	Enabled   bool `toml:"enabled"`
	MaxWidth  int  `toml:"max_width"`
	MaxHeight int  `toml:"max_height"`
	Quality   int  `toml:"quality"`
	Grayscale bool `toml:"grayscale"`
}

// Output selects artifact formats.
type Output struct {
	Formats []string `toml:"formats"`
}

type Config struct {
	Paths    Paths    `toml:"paths"`
	Download Download `toml:"download"`
	Enhancer Enhancer `toml:"enhancer"`
	Prepress Prepress `toml:"prepress"`
	Output   Output   `toml:"output"`
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	homeDir, _ := os.UserHomeDir()
	base := filepath.Join(homeDir, ".tankobon")
	return &Config{
		Paths: Paths{
			DownloadDir: filepath.Join(base, "downloads"),
			LibraryDB:   filepath.Join(base, "library.db"),
		},
		Download: Download{
			Language:        "en",
			PageConcurrency: 3,
			BatchSize:       10,
		},
		Enhancer: Enhancer{
			Binary:         "waifu2x-ncnn-vulkan",
			NoiseLevel:     2,
			Scale:          2,
			Model:          "",
			TimeoutSeconds: 3600,
		},
		Prepress: Prepress{
			Enabled:   false,
			MaxWidth:  2048,
			MaxHeight: 3072,
			Quality:   90,
		},
		Output: Output{
			Formats: []string{"cbz"},
		},
	}
}

// DefaultPath returns the default config file location.
func DefaultPath() string {
	homeDir, _ := os.UserHomeDir()
	return filepath.Join(homeDir, ".config", "tankobon", "config.toml")
}

// Load reads the config file at path, falling back to defaults when the
// file does not exist. Unset fields keep their default values.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		path = DefaultPath()
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return cfg, nil
		}
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	if err := toml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Paths.DownloadDir == "" {
		return errors.New("paths.download_dir must be set")
	}
	if c.Download.PageConcurrency < 1 {
		return errors.New("download.page_concurrency must be at least 1")
	}
	if c.Download.BatchSize < 1 {
		return errors.New("download.batch_size must be at least 1")
	}
	if c.Enhancer.NoiseLevel < 0 || c.Enhancer.NoiseLevel > 3 {
		return errors.New("enhancer.noise_level must be between 0 and 3")
	}
	switch c.Enhancer.Scale {
	case 1, 2, 4, 8, 16, 32:
	default:
		return errors.New("enhancer.scale must be one of 1, 2, 4, 8, 16, 32")
	}
	if c.Prepress.Quality < 1 || c.Prepress.Quality > 100 {
		return errors.New("prepress.quality must be between 1 and 100")
	}
	if c.Prepress.Enabled && (c.Prepress.MaxWidth < 1 || c.Prepress.MaxHeight < 1) {
		return errors.New("prepress.max_width and prepress.max_height must be at least 1")
	}
	for _, format := range c.Output.Formats {
		switch format {
		case "cbz", "pdf", "epub":
		default:
			return fmt.Errorf("unknown output format %q", format)
		}
	}
	return nil
}
