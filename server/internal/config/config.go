package config

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Default values for the server configuration.
const (
	DefaultHTTPPort       = 6969
	DefaultSampleInterval = 200 * time.Millisecond
	DefaultLogLevel       = "info"
)

// Config holds the configuration parsed from the `server:` section of
// config.yaml.
type Config struct {
	Server ServerConfig `yaml:"server"`
}

// ServerConfig holds all server-side settings.
type ServerConfig struct {
	// HTTPPort is the port for the web UI, /sync, /ping and /metrics (default 6969).
	// The server binds all interfaces.
	HTTPPort int `yaml:"http_port"`

	// StaticDir is the directory index.html, index.css and index.mjs are read
	// from. Empty means the copies embedded in the binary.
	StaticDir string `yaml:"static_dir"`

	// SampleInterval is the pause between two host reads. Values below the
	// sampler's minimum are raised to it. Reloadable.
	SampleInterval time.Duration `yaml:"sample_interval"`

	// LogLevel is one of: debug | info | warn | error. Reloadable.
	LogLevel string `yaml:"log_level"`
}

// Level returns the slog level named by LogLevel.
func (s ServerConfig) Level() slog.Level {
	switch strings.ToLower(s.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Addr returns the listen address for HTTPPort on all interfaces.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf(":%d", s.HTTPPort)
}

// Default returns the configuration used when no config file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			HTTPPort:       DefaultHTTPPort,
			SampleInterval: DefaultSampleInterval,
			LogLevel:       DefaultLogLevel,
		},
	}
}

// Load reads and parses the config file at path. Missing fields keep their
// defaults; the result is validated before it is returned.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("server config: read %q: %w", path, err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("server config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("server config: %w", err)
	}

	return cfg, nil
}

// validate checks structural constraints on the parsed configuration.
func validate(cfg *Config) error {
	if cfg.Server.HTTPPort <= 0 || cfg.Server.HTTPPort > 65535 {
		return fmt.Errorf("server.http_port %d is out of range [1, 65535]", cfg.Server.HTTPPort)
	}
	if cfg.Server.SampleInterval < 0 {
		return fmt.Errorf("server.sample_interval must not be negative")
	}
	switch strings.ToLower(cfg.Server.LogLevel) {
	case "debug", "info", "warn", "error", "":
	default:
		return fmt.Errorf("server.log_level %q unknown: want debug|info|warn|error", cfg.Server.LogLevel)
	}
	if cfg.Server.StaticDir != "" {
		fi, err := os.Stat(cfg.Server.StaticDir)
		if err != nil {
			return fmt.Errorf("server.static_dir: %w", err)
		}
		if !fi.IsDir() {
			return fmt.Errorf("server.static_dir %q is not a directory", cfg.Server.StaticDir)
		}
	}
	return nil
}
