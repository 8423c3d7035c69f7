package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/config-server/internal/application"
	"github.com/eugenenazirov/config-server/internal/config"
	"github.com/eugenenazirov/config-server/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("config-server", "Config Server - serves layered application configuration from a git repository")
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	port := kingpinApp.Flag("port", "HTTP port exposed by the service").String()
	repoPath := kingpinApp.Flag("repo-path", "Local path of the configuration repository clone").String()
	sourceFormat := kingpinApp.Flag("format", "Format of configuration files (yaml or json)").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	rateLimitRPSFlag := kingpinApp.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := kingpinApp.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	cfg, err := config.Load(buildOverrides(*configFile, *port, *repoPath, *sourceFormat, *logLevel, *rateLimitRPSFlag, *rateLimitBurstFlag))
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

// buildOverrides turns raw flag values into CLI overrides. Empty strings and
// negative numbers mean the flag was not given.
func buildOverrides(configFile, port, repoPath, sourceFormat, logLevel string, rps float64, burst int) *config.CLIOverrides {
	overrides := &config.CLIOverrides{
		ConfigFile: configFile,
	}

	if port != "" {
		overrides.Port = &port
	}
	if repoPath != "" {
		overrides.RepoPath = &repoPath
	}
	if sourceFormat != "" {
		overrides.Format = &sourceFormat
	}
	if logLevel != "" {
		overrides.LogLevel = &logLevel
	}
	if rps >= 0 {
		overrides.RateLimitRPS = &rps
	}
	if burst >= 0 {
		overrides.RateLimitBurst = &burst
	}
	return overrides
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
