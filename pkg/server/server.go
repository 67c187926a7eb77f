package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"net/url"
	"sync"

	"ucraft/trafficlogger/pkg/config"
	"ucraft/trafficlogger/pkg/middleware"
	"ucraft/trafficlogger/pkg/telemetry/health"
	"ucraft/trafficlogger/pkg/telemetry/metrics"
	"ucraft/trafficlogger/pkg/telemetry/tracing"
	"ucraft/trafficlogger/pkg/traffic/manager"
)

// Options carries the collaborators the server wires into its handlers.
type Options struct {
	// Manager records proxied exchanges. Required.
	Manager *manager.Manager

	// Checker backs /health and /ready on the admin server. Defaults to a
	// checker with no registered checks.
	Checker *health.Checker

	// Metrics is served on MetricsPath when non-nil.
	Metrics     *metrics.Collector
	MetricsPath string

	// Version is served on /version.
	Version health.VersionInfo

	// UserIDHeader is a trusted request header recorded as user_id.
	UserIDHeader string

	// Logger defaults to slog.Default.
	Logger *slog.Logger
}

// Server runs the logging reverse proxy and the admin endpoints.
type Server struct {
	config   *config.ServerConfig
	opts     Options
	upstream *url.URL
	logger   *slog.Logger

	proxyServer *http.Server
	adminServer *http.Server
	proxyAddr   net.Addr
	adminAddr   net.Addr

	ready        chan struct{}
	shutdownOnce sync.Once
	mu           sync.RWMutex
	isRunning    bool
}

// New creates a server forwarding to cfg.UpstreamURL.
func New(cfg *config.ServerConfig, opts Options) (*Server, error) {
	if opts.Manager == nil {
		return nil, errors.New("traffic manager is required")
	}
	upstream, err := url.Parse(cfg.UpstreamURL)
	if err != nil {
		return nil, fmt.Errorf("invalid upstream url: %w", err)
	}
	if upstream.Scheme == "" || upstream.Host == "" {
		return nil, fmt.Errorf("invalid upstream url %q: scheme and host are required", cfg.UpstreamURL)
	}
	if opts.Checker == nil {
		opts.Checker = health.New(0)
	}
	if opts.MetricsPath == "" {
		opts.MetricsPath = config.DefaultPrometheusPath
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		config:   cfg,
		opts:     opts,
		upstream: upstream,
		logger:   logger.With("component", "server"),
		ready:    make(chan struct{}),
	}, nil
}

// Handler returns the proxy handler with the middleware chain applied.
func (s *Server) Handler() http.Handler {
	return middleware.Chain(s.newReverseProxy(),
		tracing.HTTPMiddleware,
		middleware.RequestID,
		middleware.AccessLog(s.logger),
		middleware.UserFromHeader(s.opts.UserIDHeader),
		middleware.TrafficLogger(s.opts.Manager),
		middleware.Recovery,
	)
}

// AdminHandler serves /health, /ready, /version and, when metrics are
// enabled, the Prometheus endpoint.
func (s *Server) AdminHandler() http.Handler {
	mux := http.NewServeMux()
	health.Mount(mux, s.opts.Checker, s.opts.Version)
	if s.opts.Metrics != nil {
		mux.Handle(s.opts.MetricsPath, s.opts.Metrics.Handler())
	}
	return mux
}

func (s *Server) newReverseProxy() *httputil.ReverseProxy {
	return &httputil.ReverseProxy{
		Rewrite: func(pr *httputil.ProxyRequest) {
			pr.SetURL(s.upstream)
			pr.SetXForwarded()
			tracing.Inject(pr.Out.Context(), pr.Out.Header)
		},
		ErrorHandler: func(w http.ResponseWriter, r *http.Request, err error) {
			s.logger.ErrorContext(r.Context(), "upstream request failed",
				"upstream", s.upstream.Host,
				"method", r.Method,
				"path", r.URL.Path,
				"error", err,
			)
			w.WriteHeader(http.StatusBadGateway)
		},
	}
}

// Start listens on the proxy and admin addresses and serves until ctx is
// cancelled or a listener fails, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}

	proxyLn, err := net.Listen("tcp", s.config.ListenAddress)
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.ListenAddress, err)
	}
	adminLn, err := net.Listen("tcp", s.config.AdminAddress)
	if err != nil {
		proxyLn.Close()
		s.mu.Unlock()
		return fmt.Errorf("failed to listen on %s: %w", s.config.AdminAddress, err)
	}

	var reloader *certReloader
	if s.config.TLS.Enabled {
		proxyLn, reloader, err = s.wrapTLS(proxyLn)
		if err != nil {
			proxyLn.Close()
			adminLn.Close()
			s.mu.Unlock()
			return fmt.Errorf("failed to configure TLS: %w", err)
		}
	}

	s.proxyServer = &http.Server{
		Handler:        s.Handler(),
		ReadTimeout:    s.config.ReadTimeout,
		WriteTimeout:   s.config.WriteTimeout,
		IdleTimeout:    s.config.IdleTimeout,
		MaxHeaderBytes: s.config.MaxHeaderBytes,
	}
	s.adminServer = &http.Server{
		Handler:     s.AdminHandler(),
		ReadTimeout: s.config.ReadTimeout,
		IdleTimeout: s.config.IdleTimeout,
	}
	s.proxyAddr = proxyLn.Addr()
	s.adminAddr = adminLn.Addr()
	s.isRunning = true
	s.mu.Unlock()

	errChan := make(chan error, 2)
	serve := func(name string, srv *http.Server, ln net.Listener) {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- fmt.Errorf("%s server error: %w", name, err)
		}
	}
	go serve("proxy", s.proxyServer, proxyLn)
	go serve("admin", s.adminServer, adminLn)
	if reloader != nil {
		go reloader.run(ctx)
	}

	s.logger.Info("logging proxy started",
		"address", s.proxyAddr.String(),
		"admin_address", s.adminAddr.String(),
		"upstream", s.upstream.String(),
		"tls", s.config.TLS.Enabled,
	)
	close(s.ready)

	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, initiating shutdown")
		return s.Shutdown(context.WithoutCancel(ctx))
	case err := <-errChan:
		_ = s.Shutdown(context.WithoutCancel(ctx))
		return err
	}
}

// wrapTLS terminates TLS on ln with a reloading certificate.
func (s *Server) wrapTLS(ln net.Listener) (net.Listener, *certReloader, error) {
	reloader, err := newCertReloader(&s.config.TLS, s.logger)
	if err != nil {
		return ln, nil, err
	}
	tlsConfig, err := newTLSConfig(&s.config.TLS, reloader)
	if err != nil {
		return ln, nil, err
	}
	return tls.NewListener(ln, tlsConfig), reloader, nil
}

// Ready is closed once both listeners accept connections.
func (s *Server) Ready() <-chan struct{} {
	return s.ready
}

// Addr returns the proxy listener address, or nil before Start.
func (s *Server) Addr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.proxyAddr
}

// AdminAddr returns the admin listener address, or nil before Start.
func (s *Server) AdminAddr() net.Addr {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.adminAddr
}

// Shutdown stops accepting connections and waits for in-flight requests,
// bounded by ShutdownTimeout. Queued traffic records are drained by the
// caller closing the manager afterwards.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error

	s.shutdownOnce.Do(func() {
		s.mu.Lock()
		if !s.isRunning {
			s.mu.Unlock()
			return
		}
		s.mu.Unlock()

		s.logger.Info("initiating graceful shutdown", "timeout", s.config.ShutdownTimeout.String())

		shutdownCtx := ctx
		if s.config.ShutdownTimeout > 0 {
			var cancel context.CancelFunc
			shutdownCtx, cancel = context.WithTimeout(ctx, s.config.ShutdownTimeout)
			defer cancel()
		}

		var errs []error
		if err := s.proxyServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("proxy server shutdown error: %w", err))
		}
		if err := s.adminServer.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("admin server shutdown error: %w", err))
		}
		shutdownErr = errors.Join(errs...)
		if shutdownErr != nil {
			s.logger.Error("error during server shutdown", "error", shutdownErr)
		}

		s.mu.Lock()
		s.isRunning = false
		s.mu.Unlock()

		s.logger.Info("logging proxy stopped")
	})

	return shutdownErr
}

// IsRunning returns true if the server is running.
func (s *Server) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}
