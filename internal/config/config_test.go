package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/eugenenazirov/config-server/internal/format"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "CONFIG_REPO_PATH", "CONFIG_FORMAT", "SYNC_TIMEOUT", "LOG_LEVEL",
		"RATE_LIMIT_RPS", "RATE_LIMIT_BURST", "RATE_LIMIT_DISABLED", "DISABLE_REQUEST_LOGGING",
	} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}
}

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config file: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != defaultPort {
		t.Fatalf("expected default port %s, got %s", defaultPort, cfg.Port)
	}
	if cfg.RepoPath != defaultRepoPath {
		t.Fatalf("expected default repo path, got %s", cfg.RepoPath)
	}
	if cfg.SourceFormat() != format.YAML {
		t.Fatalf("expected yaml format, got %s", cfg.SourceFormat())
	}
	if cfg.ShutdownGracePeriod != 10*time.Second {
		t.Fatalf("unexpected shutdown grace period: %s", cfg.ShutdownGracePeriod)
	}
	if !cfg.RateLimitEnabled() {
		t.Fatalf("expected rate limiting to be enabled by default")
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9000")
	t.Setenv("CONFIG_REPO_PATH", "/srv/config")
	t.Setenv("SYNC_TIMEOUT", "5s")
	t.Setenv("RATE_LIMIT_DISABLED", "true")

	cfg, err := Load(nil)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "9000" {
		t.Fatalf("expected overridden port, got %s", cfg.Port)
	}
	if cfg.RepoPath != "/srv/config" {
		t.Fatalf("expected overridden repo path, got %s", cfg.RepoPath)
	}
	if cfg.SyncTimeout != 5*time.Second {
		t.Fatalf("expected 5s sync timeout, got %s", cfg.SyncTimeout)
	}
	if cfg.RateLimitEnabled() {
		t.Fatalf("expected rate limiting to be disabled")
	}
}

func TestLoadPrecedence(t *testing.T) {
	clearEnv(t)
	path := writeConfigFile(t, `
port: "7000"
repo_path: from-file
format: json
sync_timeout: 12s
log_level: debug
rate_limit:
  rps: 5
  burst: 10
`)
	t.Setenv("CONFIG_REPO_PATH", "from-env")
	t.Setenv("RATE_LIMIT_BURST", "20")
	port := "7100"

	cfg, err := Load(&CLIOverrides{ConfigFile: path, Port: &port})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	if cfg.Port != "7100" {
		t.Fatalf("expected CLI port to win, got %s", cfg.Port)
	}
	if cfg.RepoPath != "from-env" {
		t.Fatalf("expected env repo path to win over file, got %s", cfg.RepoPath)
	}
	if cfg.SourceFormat() != format.JSON {
		t.Fatalf("expected json format from file, got %s", cfg.Format)
	}
	if cfg.SyncTimeout != 12*time.Second {
		t.Fatalf("expected file sync timeout, got %s", cfg.SyncTimeout)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected debug log level, got %s", cfg.LogLevel)
	}
	if cfg.RateLimit.RPS != 5 || cfg.RateLimit.Burst != 20 {
		t.Fatalf("unexpected rate limit: %+v", cfg.RateLimit)
	}
	if cfg.WriteTimeout != 45*time.Second {
		t.Fatalf("expected default write timeout to survive, got %s", cfg.WriteTimeout)
	}
}

func TestLoadCLIRateLimitZeroDisables(t *testing.T) {
	clearEnv(t)
	zero := 0.0

	cfg, err := Load(&CLIOverrides{RateLimitRPS: &zero})
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.RateLimitEnabled() {
		t.Fatalf("expected --rate-limit-rps=0 to disable rate limiting")
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	t.Run("unknown format", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("CONFIG_FORMAT", "toml")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for unknown format")
		}
	})

	t.Run("bad log level", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("LOG_LEVEL", "loud")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for unknown log level")
		}
	})

	t.Run("negative burst", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("RATE_LIMIT_BURST", "-1")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for negative burst")
		}
	})

	t.Run("malformed duration", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("SYNC_TIMEOUT", "soon")
		if _, err := Load(nil); err == nil {
			t.Fatalf("expected error for malformed duration")
		}
	})

	t.Run("missing file", func(t *testing.T) {
		clearEnv(t)
		if _, err := Load(&CLIOverrides{ConfigFile: filepath.Join(t.TempDir(), "nope.yaml")}); err == nil {
			t.Fatalf("expected error for missing config file")
		}
	})

	t.Run("malformed file", func(t *testing.T) {
		clearEnv(t)
		path := writeConfigFile(t, "port: [\n")
		if _, err := Load(&CLIOverrides{ConfigFile: path}); err == nil {
			t.Fatalf("expected error for malformed config file")
		}
	})
}
