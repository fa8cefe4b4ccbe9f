package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"golang.org/x/net/netutil"

	"github.com/ageagekun/docqueue/config"
	httpx "github.com/ageagekun/docqueue/internal/http"
	"github.com/ageagekun/docqueue/internal/realtime"
)

// HTTPServerConfig contains configuration for HTTP server.
type HTTPServerConfig struct {
	Config   *config.AppConfig
	Services *ServiceContainer
	Logger   *slog.Logger
}

// NewHTTPServer builds the API server. The caller starts it with ServeHTTP.
func NewHTTPServer(cfg *HTTPServerConfig) (*http.Server, error) {
	if cfg == nil || cfg.Services == nil || cfg.Config == nil {
		return nil, errors.New("http server config, services, and app config are required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	svc := cfg.Services
	httpCfg := cfg.Config.HTTP

	routes := httpx.RouterServices{
		Queue:      svc.Queue,
		BatchPrint: svc.BatchPrint,
		Files:      svc.Files,
		MergeQueue: svc.MergeQueue,
		Readiness:  svc.readinessChecks(),
		CORSOrigin: httpCfg.CORSOrigin,
		Logger:     logger,
	}
	if svc.Hub != nil {
		routes.Realtime = realtime.NewHandler(svc.Hub, httpCfg.CORSOrigin, logger)
	}

	addr := httpCfg.Addr
	// Guard against empty addr to avoid listening on Go default
	if addr == "" {
		addr = ":8080"
	}
	return &http.Server{
		Addr:              addr,
		Handler:           httpx.NewRouter(routes),
		ReadHeaderTimeout: httpCfg.ReadHeaderTimeout,
		WriteTimeout:      httpCfg.WriteTimeout,
		IdleTimeout:       httpCfg.IdleTimeout,
		ErrorLog:          slog.NewLogLogger(logger.Handler(), slog.LevelWarn),
	}, nil
}

// ServeHTTP listens until ctx ends, then shuts the live socket hub down
// before draining the server: hijacked sockets are not tracked by
// http.Server.Shutdown and would otherwise be cut without an announcement.
func ServeHTTP(ctx context.Context, server *http.Server, hub *realtime.Hub, cfg config.HTTPConfig, logger *slog.Logger) error {
	ln, err := listen(server.Addr, cfg.MaxConnections)
	if err != nil {
		return err
	}
	logger.InfoContext(ctx, "starting HTTP server", "addr", ln.Addr().String(), "max_connections", cfg.MaxConnections)

	serveErr := make(chan error, 1)
	go func() {
		if err := server.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
			return
		}
		serveErr <- nil
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	return ShutdownHTTPServer(ShutdownConfig{
		Context: context.WithoutCancel(ctx),
		Server:  server,
		Hub:     hub,
		Timeout: cfg.ShutdownTimeout,
		Logger:  logger,
	})
}

func listen(addr string, maxConns int) (net.Listener, error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	if maxConns > 0 {
		ln = netutil.LimitListener(ln, maxConns)
	}
	return ln, nil
}

// ShutdownConfig contains dependencies for HTTP server shutdown.
type ShutdownConfig struct {
	Context context.Context
	Server  *http.Server
	Hub     *realtime.Hub
	Timeout time.Duration
	Logger  *slog.Logger
}

// ShutdownHTTPServer gracefully shuts down the HTTP server.
func ShutdownHTTPServer(cfg ShutdownConfig) error {
	if cfg.Server == nil {
		return nil
	}
	if cfg.Logger != nil {
		cfg.Logger.Info("shutting down HTTP server")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = shutdownWaitTimeout
	}
	shutdownCtx, cancel := context.WithTimeout(cfg.Context, timeout)
	defer cancel()

	// Announce shutdown to live clients and release their notification subscriptions first.
	if cfg.Hub != nil {
		cfg.Hub.Shutdown(shutdownCtx)
	}

	if err := cfg.Server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown http server: %w", err)
	}

	if cfg.Logger != nil {
		cfg.Logger.Info("HTTP server stopped")
	}
	return nil
}
