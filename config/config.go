// Package config loads chunkdata settings from a YAML file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/klauspost/compress/zlib"
	"github.com/oriumgames/chunkdata"
	"github.com/oriumgames/chunkdata/store"
	"gopkg.in/yaml.v3"
)

// Config is the root of a chunkdata configuration file.
type Config struct {
	Layout LayoutConfig `yaml:"layout"`
	Packet PacketConfig `yaml:"packet"`
	Log    LogConfig    `yaml:"log"`
	Store  StoreConfig  `yaml:"store"`
}

// LayoutConfig configures the manager layout.
type LayoutConfig struct {
	// Order is "registration" or "canonical".
	Order string `yaml:"order"`
}

// PacketConfig configures chunk packet compression.
type PacketConfig struct {
	// CompressionLevel is the zlib level, from -2 (huffman only) to 9.
	// Nil keeps the default level.
	CompressionLevel *int `yaml:"compression_level"`
}

// LogConfig configures the registry logger.
type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level"`
}

// StoreConfig configures the column store.
type StoreConfig struct {
	// Path is the LevelDB directory. Empty keeps the store in memory.
	Path string `yaml:"path"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Layout: LayoutConfig{Order: chunkdata.OrderRegistration.String()},
		Log:    LogConfig{Level: "info"},
	}
}

// Load reads the YAML file at path on top of Default().
// If path is "", CHUNKDATA_CONFIG is used, and if that is unset too the
// defaults are returned.
func Load(path string) (*Config, error) {
	if path == "" {
		path = os.Getenv("CHUNKDATA_CONFIG")
		if path == "" {
			return Default(), nil
		}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(data)
}

// Parse decodes YAML config data on top of Default() and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks every field of the configuration.
func (c *Config) Validate() error {
	if _, err := chunkdata.ParseOrder(c.Layout.Order); err != nil {
		return fmt.Errorf("layout.order: %w", err)
	}
	if l := c.Packet.CompressionLevel; l != nil && (*l < zlib.HuffmanOnly || *l > zlib.BestCompression) {
		return fmt.Errorf("packet.compression_level: %d out of range [%d, %d]", *l, zlib.HuffmanOnly, zlib.BestCompression)
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return fmt.Errorf("log.level: %w", err)
	}
	return nil
}

// SlogLevel returns the slog level named by Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, err
	}
	return level, nil
}

// Options returns the registry options described by the configuration, using
// log as the registry logger. The configuration must be valid.
func (c *Config) Options(log *slog.Logger) []chunkdata.Option {
	order, _ := chunkdata.ParseOrder(c.Layout.Order)
	opts := []chunkdata.Option{chunkdata.WithLayoutOrder(order)}
	if log != nil {
		opts = append(opts, chunkdata.WithLogger(log))
	}
	if l := c.Packet.CompressionLevel; l != nil {
		opts = append(opts, chunkdata.WithCompressionLevel(*l))
	}
	return opts
}

// Logger returns a text logger writing to stderr at the configured level.
func (c *Config) Logger() *slog.Logger {
	level, err := c.Log.SlogLevel()
	if err != nil {
		level = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// OpenStore opens the store at Store.Path, or an in-memory store if no path is set.
func (c *Config) OpenStore(reg *chunkdata.Registry, log *slog.Logger) (*store.DB, error) {
	if c.Store.Path == "" {
		return store.OpenMemory(reg, log)
	}
	return store.Open(c.Store.Path, reg, log)
}
