// Package config loads craftkit.yaml, the toolbox configuration shared by the
// server and the command-line tools.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"craftkit.ai/internal/mctext/obfuscate"
	"craftkit.ai/internal/menu"
	"craftkit.ai/internal/persistence/archive"
)

// EnvPath names the config file used when no -config flag is given.
const EnvPath = "CRAFTKIT_CONFIG"

type Config struct {
	Addr string `yaml:"addr"`

	Preview Preview `yaml:"preview"`
	Batch   Batch   `yaml:"batch"`
	Menu    Menu    `yaml:"menu"`
	Skin    Skin    `yaml:"skin"`

	// IndexPath enables the job index when set. ":memory:" keeps it in process.
	IndexPath   string `yaml:"index_path"`
	PresetsPath string `yaml:"presets_path"`
}

type Preview struct {
	TickMs   int    `yaml:"tick_ms"`
	Glyphs   string `yaml:"glyphs"`
	PoolSize int    `yaml:"pool_size"`
	// MaxTextRunes bounds PREVIEW text accepted over the socket.
	MaxTextRunes int `yaml:"max_text_runes"`
}

func (p Preview) Interval() time.Duration {
	return time.Duration(p.TickMs) * time.Millisecond
}

func (p Preview) Animator() obfuscate.Config {
	return obfuscate.Config{Interval: p.Interval(), Glyphs: p.Glyphs, PoolSize: p.PoolSize}
}

type Batch struct {
	Workers      int    `yaml:"workers"`
	BundleFormat string `yaml:"bundle_format"`
	// MaxUploadMB caps multipart uploads to the convert endpoint.
	MaxUploadMB int `yaml:"max_upload_mb"`
}

func (b Batch) Format() archive.Format {
	f, _ := archive.ParseFormat(b.BundleFormat)
	return f
}

type Menu struct {
	DefaultStyle string `yaml:"default_style"`
}

type Skin struct {
	RequirePNG bool `yaml:"require_png"`
}

// Path resolves the config file from a flag value, falling back to $CRAFTKIT_CONFIG.
func Path(flagValue string) string {
	if strings.TrimSpace(flagValue) != "" {
		return flagValue
	}
	return os.Getenv(EnvPath)
}

func Load(path string) (Config, error) {
	cfg := defaults()
	if strings.TrimSpace(path) == "" {
		cfg.Normalize()
		return cfg, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return cfg, fmt.Errorf("craftkit.yaml: %w", err)
	}
	cfg.Normalize()
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("craftkit.yaml: %w", err)
	}
	return cfg, nil
}

func defaults() Config {
	return Config{
		Addr: ":8080",
		Preview: Preview{
			TickMs:       int(obfuscate.DefaultInterval / time.Millisecond),
			Glyphs:       obfuscate.DefaultGlyphs,
			PoolSize:     obfuscate.DefaultPoolSize,
			MaxTextRunes: 4096,
		},
		Batch: Batch{
			BundleFormat: string(archive.FormatZip),
			MaxUploadMB:  64,
		},
		Menu: Menu{DefaultStyle: menu.DefaultStyle},
		Skin: Skin{RequirePNG: true},
	}
}

// Normalize fills zero values left by a partial file.
func (c *Config) Normalize() {
	d := defaults()
	c.Addr = strings.TrimSpace(c.Addr)
	if c.Addr == "" {
		c.Addr = d.Addr
	}
	if c.Preview.TickMs <= 0 {
		c.Preview.TickMs = d.Preview.TickMs
	}
	if c.Preview.Glyphs == "" {
		c.Preview.Glyphs = d.Preview.Glyphs
	}
	if c.Preview.PoolSize <= 0 {
		c.Preview.PoolSize = d.Preview.PoolSize
	}
	if c.Preview.MaxTextRunes <= 0 {
		c.Preview.MaxTextRunes = d.Preview.MaxTextRunes
	}
	c.Batch.BundleFormat = strings.ToLower(strings.TrimSpace(c.Batch.BundleFormat))
	if c.Batch.BundleFormat == "" {
		c.Batch.BundleFormat = d.Batch.BundleFormat
	}
	if c.Batch.MaxUploadMB <= 0 {
		c.Batch.MaxUploadMB = d.Batch.MaxUploadMB
	}
	if c.Menu.DefaultStyle == "" {
		c.Menu.DefaultStyle = d.Menu.DefaultStyle
	}
}

func (c Config) Validate() error {
	if c.Batch.Workers < 0 {
		return errors.New("batch.workers must be >= 0")
	}
	if _, err := archive.ParseFormat(c.Batch.BundleFormat); err != nil {
		return fmt.Errorf("batch.bundle_format: %w", err)
	}
	if c.Preview.TickMs < 10 {
		return fmt.Errorf("preview.tick_ms must be >= 10, got %d", c.Preview.TickMs)
	}
	if c.Preview.PoolSize > 1<<16 {
		return fmt.Errorf("preview.pool_size too large: %d", c.Preview.PoolSize)
	}
	return nil
}
