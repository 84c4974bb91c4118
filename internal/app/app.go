package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/simp-lee/logger"

	"github.com/simp-lee/assetsrv/internal/config"
	"github.com/simp-lee/assetsrv/internal/metrics"
	"github.com/simp-lee/assetsrv/internal/middleware"
	"github.com/simp-lee/assetsrv/internal/module/staticfiles"
)

const (
	defaultServerTimeout = 30 * time.Second
	shutdownTimeout      = 5 * time.Second
)

// App holds the core application dependencies and the HTTP server.
type App struct {
	engine *gin.Engine
	assets *staticfiles.StaticModule
	logger *logger.Logger
	cfg    *config.Config
}

// Option customizes New.
type Option func(*options)

type options struct {
	loginCheck staticfiles.LoginCheckFunc
}

// WithLoginCheck supplies the login check exposed through Assets().LoginCheck.
func WithLoginCheck(fn staticfiles.LoginCheckFunc) Option {
	return func(o *options) { o.loginCheck = fn }
}

type httpServer interface {
	ListenAndServe() error
	Shutdown(ctx context.Context) error
}

var newHTTPServer = func(addr string, handler http.Handler, timeout time.Duration) httpServer {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      2 * timeout,
		IdleTimeout:       120 * time.Second,
	}
}

var notifyContext = func(parent context.Context, signals ...os.Signal) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, signals...)
}

// New creates and wires a fully configured App from the given Config.
//
// It sets up logging, the asset routing table, the static files module,
// middleware, and routes. cfg is expected to have passed Validate.
func New(cfg *config.Config, opts ...Option) (*App, error) {
	if cfg == nil {
		return nil, errors.New("config is nil")
	}

	var o options
	for _, opt := range opts {
		opt(&o)
	}

	success := false

	log, err := config.SetupLogger(&cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("setup logger: %w", err)
	}
	defer func() {
		if success {
			return
		}
		if err := log.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}()

	if cfg.Server.Mode == gin.DebugMode && cfg.Server.Host == "0.0.0.0" {
		log.Warn("insecure server config: debug mode on 0.0.0.0 exposes permissive CORS")
	}

	routing, err := staticfiles.NewRouting(cfg.Static.BaseDir, cfg.Static.Modules)
	if err != nil {
		return nil, fmt.Errorf("build asset routing: %w", err)
	}
	roots := routing.Roots()
	for _, name := range routing.Modules() {
		if info, err := os.Stat(roots[name]); err != nil || !info.IsDir() {
			log.Warn("asset root missing", slog.String("module", name), slog.String("root", roots[name]))
		}
	}

	handler := staticfiles.NewHandler(staticfiles.HandlerConfig{
		Routing:   routing,
		Favicon:   staticfiles.NewFixedFile(cfg.Static.BaseDir, cfg.Static.Favicon),
		About:     staticfiles.NewFixedFile(cfg.Static.BaseDir, cfg.Static.About),
		Backdrops: resolveFile(cfg.Static.BaseDir, cfg.Static.Backdrops),
		Logger:    log.Logger,
	})
	assets := staticfiles.NewModule(handler, o.loginCheck)

	if err := validateGinMode(cfg.Server.Mode); err != nil {
		return nil, err
	}
	gin.SetMode(cfg.Server.Mode)
	engine := gin.New()

	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
		if metricsPath == "" {
			metricsPath = config.DefaultMetricsPath
		}
	}

	corsConfig, err := resolveCORSConfig(cfg.Server.Mode, cfg.Server.CORS)
	if err != nil {
		return nil, err
	}

	engine.Use(
		middleware.Recovery(log.Logger),
		middleware.RequestIDWithConfig(middleware.RequestIDConfig{
			TrustUpstream: cfg.Server.TrustRequestID,
		}),
		middleware.LoggerWithConfig(log.Logger, middleware.LoggerConfig{
			SkipPaths: skipLogPaths(metricsPath),
		}),
		middleware.CORSWithConfig(corsConfig),
	)
	if metricsPath != "" {
		engine.Use(metrics.Middleware(metricsPath))
	}

	if err := RegisterRoutes(engine, &RouteDeps{
		Modules:     []Module{assets},
		AssetRoots:  roots,
		MetricsPath: metricsPath,
	}); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	success = true
	return &App{
		engine: engine,
		assets: assets,
		logger: log,
		cfg:    cfg,
	}, nil
}

// Handler returns the configured HTTP handler.
func (a *App) Handler() http.Handler {
	return a.engine
}

// Assets returns the static files module, which also carries the login
// check hook for collaborators.
func (a *App) Assets() *staticfiles.StaticModule {
	return a.assets
}

func resolveFile(baseDir, p string) string {
	f := staticfiles.NewFixedFile(baseDir, p)
	return filepath.Join(f.Root, f.Name)
}

func skipLogPaths(metricsPath string) []string {
	paths := []string{"/health"}
	if metricsPath != "" {
		paths = append(paths, metricsPath)
	}
	return paths
}

// resolveCORSConfig builds the CORS settings. Without an allowlist, debug
// mode allows any origin and release mode allows none.
func resolveCORSConfig(mode string, cors config.CORSConfig) (middleware.CORSConfig, error) {
	corsConfig := middleware.DefaultCORSConfig()

	switch {
	case len(cors.AllowOrigins) > 0:
		corsConfig.AllowOrigins = cors.AllowOrigins
	case mode == gin.ReleaseMode:
		corsConfig.AllowOrigins = []string{}
	}

	if cors.MaxAge != "" {
		d, err := time.ParseDuration(cors.MaxAge)
		if err != nil {
			return middleware.CORSConfig{}, fmt.Errorf("invalid server.cors.max_age %q: %w", cors.MaxAge, err)
		}
		corsConfig.MaxAge = d
	}

	return corsConfig, nil
}

func validateGinMode(mode string) error {
	switch mode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
		return nil
	default:
		return fmt.Errorf("invalid server.mode %q: must be one of %q, %q, %q", mode, gin.DebugMode, gin.ReleaseMode, gin.TestMode)
	}
}

func serverTimeout(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return defaultServerTimeout
	}
	return d
}

// Run starts the HTTP server and blocks until a shutdown signal is received
// or the server fails. Shutdown waits up to five seconds for in-flight
// transfers.
func (a *App) Run() error {
	if a == nil {
		return errors.New("app is nil")
	}
	if a.cfg == nil {
		return errors.New("app config is nil")
	}
	if a.engine == nil {
		return errors.New("app engine is nil")
	}

	log := slog.Default()
	if a.logger != nil {
		log = a.logger.Logger
	}

	addr := fmt.Sprintf("%s:%d", a.cfg.Server.Host, a.cfg.Server.Port)
	srv := newHTTPServer(addr, a.engine, serverTimeout(a.cfg.Server.Timeout))

	ctx, stop := notifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		log.Info("server started", slog.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		log.Info("shutdown signal received")
	case err := <-errCh:
		runErr = fmt.Errorf("server error: %w", err)
	}

	if runErr == nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown error", slog.Any("error", err))
		}
	}

	log.Info("server stopped")
	if a.logger != nil {
		if err := a.logger.Close(); err != nil {
			slog.Error("logger close error", slog.Any("error", err))
		}
	}

	return runErr
}
