package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	"go.uber.org/zap/zapcore"
	"gopkg.in/yaml.v3"

	"github.com/eugenenazirov/config-server/internal/format"
)

const (
	defaultPort           = "8080"
	defaultRepoPath       = "config-git"
	defaultRateLimitRPS   = 25.0
	defaultRateLimitBurst = 50
)

// Config aggregates runtime configuration resolved from multiple sources.
// Precedence: CLI flags > Environment variables > YAML config > Defaults
type Config struct {
	Port                  string        `yaml:"port" env:"PORT"`
	RepoPath              string        `yaml:"repo_path" env:"CONFIG_REPO_PATH"`
	Format                string        `yaml:"format" env:"CONFIG_FORMAT"`
	SyncTimeout           time.Duration `yaml:"sync_timeout" env:"SYNC_TIMEOUT"`
	ShutdownGracePeriod   time.Duration `yaml:"shutdown_grace_period" env:"SHUTDOWN_GRACE_PERIOD"`
	ReadHeaderTimeout     time.Duration `yaml:"read_header_timeout" env:"READ_HEADER_TIMEOUT"`
	WriteTimeout          time.Duration `yaml:"write_timeout" env:"WRITE_TIMEOUT"`
	IdleTimeout           time.Duration `yaml:"idle_timeout" env:"IDLE_TIMEOUT"`
	DisableRequestLogging bool          `yaml:"disable_request_logging" env:"DISABLE_REQUEST_LOGGING"`
	LogLevel              string        `yaml:"log_level" env:"LOG_LEVEL"`
	RateLimit             RateLimit     `yaml:"rate_limit" envPrefix:"RATE_LIMIT_"`
}

// RateLimit configures the request rate limiter. Disabled turns it off.
type RateLimit struct {
	RPS      float64 `yaml:"rps" env:"RPS"`
	Burst    int     `yaml:"burst" env:"BURST"`
	Disabled bool    `yaml:"disabled" env:"DISABLED"`
}

// CLIOverrides holds command-line flag overrides.
type CLIOverrides struct {
	ConfigFile     string
	Port           *string
	RepoPath       *string
	Format         *string
	LogLevel       *string
	RateLimitRPS   *float64
	RateLimitBurst *int
}

// Load extracts configuration from multiple sources with precedence:
// CLI flags > Environment variables > YAML config > Defaults
func Load(overrides *CLIOverrides) (Config, error) {
	cfg := defaultConfig()

	// Load from YAML file if specified
	if overrides != nil && overrides.ConfigFile != "" {
		fileCfg, err := loadFromFile(overrides.ConfigFile)
		if err != nil {
			return Config{}, fmt.Errorf("load YAML config: %w", err)
		}
		if err := mergo.Merge(&cfg, fileCfg, mergo.WithOverride); err != nil {
			return Config{}, fmt.Errorf("merge YAML config: %w", err)
		}
	}

	// Apply environment variables (override YAML)
	envCfg, err := loadFromEnv()
	if err != nil {
		return Config{}, err
	}
	if err := mergo.Merge(&cfg, envCfg, mergo.WithOverride); err != nil {
		return Config{}, fmt.Errorf("merge env config: %w", err)
	}

	// Apply CLI overrides (highest precedence)
	if overrides != nil {
		applyCLIOverrides(&cfg, overrides)
	}

	if err := validateConfig(cfg); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// SourceFormat returns the parsed declared format of configuration files.
func (c Config) SourceFormat() format.Format {
	f, err := format.ParseFormat(c.Format)
	if err != nil {
		return format.YAML
	}
	return f
}

// RateLimitEnabled reports whether requests should be rate limited.
func (c Config) RateLimitEnabled() bool {
	return !c.RateLimit.Disabled && c.RateLimit.RPS > 0 && c.RateLimit.Burst > 0
}

// defaultConfig returns a Config with default values.
func defaultConfig() Config {
	return Config{
		Port:                defaultPort,
		RepoPath:            defaultRepoPath,
		Format:              string(format.YAML),
		SyncTimeout:         30 * time.Second,
		ShutdownGracePeriod: 10 * time.Second,
		ReadHeaderTimeout:   5 * time.Second,
		WriteTimeout:        45 * time.Second,
		IdleTimeout:         60 * time.Second,
		LogLevel:            "info",
		RateLimit: RateLimit{
			RPS:   defaultRateLimitRPS,
			Burst: defaultRateLimitBurst,
		},
	}
}

// loadFromFile loads configuration from a YAML file.
func loadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}

	var fileCfg Config
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return nil, fmt.Errorf("parse YAML: %w", err)
	}

	return &fileCfg, nil
}

// loadFromEnv reads the env-tagged fields of Config. Unset variables stay
// zero and do not override lower layers.
func loadFromEnv() (*Config, error) {
	var envCfg Config
	if err := env.Parse(&envCfg); err != nil {
		return nil, fmt.Errorf("error getting env configs: %w", err)
	}
	return &envCfg, nil
}

// applyCLIOverrides applies command-line flag overrides.
func applyCLIOverrides(cfg *Config, overrides *CLIOverrides) {
	if overrides.Port != nil && *overrides.Port != "" {
		cfg.Port = *overrides.Port
	}

	if overrides.RepoPath != nil && *overrides.RepoPath != "" {
		cfg.RepoPath = *overrides.RepoPath
	}

	if overrides.Format != nil && *overrides.Format != "" {
		cfg.Format = *overrides.Format
	}

	if overrides.LogLevel != nil && *overrides.LogLevel != "" {
		cfg.LogLevel = *overrides.LogLevel
	}

	if overrides.RateLimitRPS != nil && *overrides.RateLimitRPS >= 0 {
		cfg.RateLimit.RPS = *overrides.RateLimitRPS
		cfg.RateLimit.Disabled = *overrides.RateLimitRPS == 0
	}

	if overrides.RateLimitBurst != nil && *overrides.RateLimitBurst >= 0 {
		cfg.RateLimit.Burst = *overrides.RateLimitBurst
		cfg.RateLimit.Disabled = cfg.RateLimit.Disabled || *overrides.RateLimitBurst == 0
	}
}

// validateConfig validates the final configuration.
func validateConfig(cfg Config) error {
	var errs []error

	if strings.TrimSpace(cfg.Port) == "" {
		errs = append(errs, errors.New("port must not be empty"))
	}
	if strings.TrimSpace(cfg.RepoPath) == "" {
		errs = append(errs, errors.New("repo path must not be empty"))
	}
	if _, err := format.ParseFormat(cfg.Format); err != nil {
		errs = append(errs, fmt.Errorf("CONFIG_FORMAT: %w", err))
	}
	if _, err := zapcore.ParseLevel(cfg.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("LOG_LEVEL: %w", err))
	}
	if cfg.SyncTimeout <= 0 {
		errs = append(errs, errors.New("SYNC_TIMEOUT must be > 0"))
	}
	if cfg.RateLimit.RPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must be >= 0"))
	}
	if cfg.RateLimit.Burst < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_BURST must be >= 0"))
	}

	return errors.Join(errs...)
}
