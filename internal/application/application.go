package application

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/eugenenazirov/config-server/internal/api"
	"github.com/eugenenazirov/config-server/internal/config"
	"github.com/eugenenazirov/config-server/internal/resolver"
	"github.com/eugenenazirov/config-server/internal/source"
)

// App encapsulates the application dependencies and HTTP server.
type App struct {
	cfg     config.Config
	service *resolver.Service
	handler *api.Handler
	router  http.Handler
	logger  *zap.Logger
	server  *http.Server
}

// Option customises New.
type Option func(*options)

type options struct {
	materializer source.Materializer
	environ      map[string]string
}

// WithMaterializer replaces the git backend (primarily for tests). The
// materializer is still wrapped for per-path serialization.
func WithMaterializer(m source.Materializer) Option {
	return func(o *options) {
		o.materializer = m
	}
}

// WithEnvironment supplies the GIT_* variables instead of the process
// environment.
func WithEnvironment(environ map[string]string) Option {
	return func(o *options) {
		o.environ = environ
	}
}

// New initializes the application with all dependencies from the provided configuration.
// A malformed GIT_* environment is logged and replaced by defaults.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) (*App, error) {
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}
	if o.materializer == nil {
		o.materializer = source.NewGitMaterializer(logger)
	}

	remote, err := resolver.ResolveBootstrap(o.environ, cfg.RepoPath)
	if err != nil {
		logger.Error("failed to read remote repository settings, using defaults", zap.Error(err))
	}

	materializer := source.NewSerialized(o.materializer, cfg.SyncTimeout)
	service := resolver.New(materializer, remote, cfg.SourceFormat(), logger)

	handler, err := api.NewHandler(service, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to build handler: %w", err)
	}

	routerOpts := []api.RouterOption{api.WithLogging(!cfg.DisableRequestLogging)}
	if cfg.RateLimitEnabled() {
		routerOpts = append(routerOpts, api.WithRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	} else {
		routerOpts = append(routerOpts, api.WithRateLimit(0, 0))
	}
	apiRouter := api.NewRouter(handler, logger, routerOpts...)

	return &App{
		cfg:     cfg,
		service: service,
		handler: handler,
		router:  apiRouter,
		logger:  logger,
		server:  NewServer(cfg, apiRouter),
	}, nil
}

// NewServer creates and configures an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	addr := cfg.Port
	if !strings.Contains(addr, ":") {
		addr = ":" + addr
	}

	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Start loads the remote configuration once in the background and starts
// the HTTP server in a goroutine. A failed initial load does not stop the
// server.
func (a *App) Start() error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.cfg.SyncTimeout)
		defer cancel()
		_, _ = a.Bootstrap(ctx)
	}()

	go func() {
		a.logger.Info("server listening", zap.String("addr", a.server.Addr))
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Fatal("server error", zap.Error(err))
		}
	}()
	return nil
}

// Bootstrap performs the startup load of the remote tree. Errors are
// logged by the service and returned for callers that want them.
func (a *App) Bootstrap(ctx context.Context) (int, error) {
	resolved, err := a.service.Bootstrap(ctx)
	if err != nil {
		return 0, err
	}
	return len(resolved), nil
}

// Server returns the HTTP server instance for shutdown handling.
func (a *App) Server() *http.Server {
	return a.server
}

// Handler returns the root HTTP handler.
func (a *App) Handler() http.Handler {
	return a.router
}
