package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	api "github.com/GriffinCanCode/nebula/internal/api/http"
	"github.com/GriffinCanCode/nebula/internal/api/middleware"
	"github.com/GriffinCanCode/nebula/internal/api/ws"
	"github.com/GriffinCanCode/nebula/internal/domain/session"
	"github.com/GriffinCanCode/nebula/internal/domain/tabs"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/config"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/logging"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/storage"
	"github.com/GriffinCanCode/nebula/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/nebula/internal/providers/browser"
)

const (
	loadTimeout     = 10 * time.Second
	shutdownTimeout = 15 * time.Second
)

// Server wraps the HTTP server and dependencies
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	pipeline   *browser.Provider
	tabs       *tabs.Manager
	session    *session.Manager
	store      storage.Store
	tracer     *tracing.Tracer
	logger     *logging.Logger
	config     *config.Config
	metrics    *monitoring.Metrics
}

// NewServer creates a new server instance
func NewServer(cfg *config.Config) (*Server, error) {
	logger := logging.FromSettings(cfg.Logging.Level, cfg.Logging.Development)

	logger.Info("Initializing Nebula server",
		zap.String("addr", cfg.Server.Addr()),
		zap.String("storage", cfg.Storage.Driver),
		zap.String("policy", cfg.Policy.File),
	)

	// Metrics first; everything below reports into them
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := monitoring.NewMetrics(registry)

	tracer := tracing.New("nebula", logger.Logger)

	policy, err := config.LoadPolicy(cfg.Policy.File)
	if err != nil {
		tracer.Close()
		return nil, err
	}

	store, err := storage.Open(cfg.Storage.Driver, cfg.Storage.Path)
	if err != nil {
		tracer.Close()
		return nil, fmt.Errorf("failed to open storage: %w", err)
	}

	sessionManager := session.NewManager(session.Options{
		Store:            store,
		Logger:           logger.Named("session"),
		Metrics:          metrics,
		HistoryLimit:     cfg.History.Limit,
		DefaultShortcuts: policy.Shortcuts,
	})
	loadCtx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	err = sessionManager.Load(loadCtx)
	cancel()
	if err != nil {
		_ = store.Close()
		tracer.Close()
		return nil, fmt.Errorf("failed to load browsing state: %w", err)
	}

	pipeline, err := browser.New(browser.Options{
		Policy:  policy,
		Proxy:   cfg.Proxy,
		Logger:  logger.Named("browser"),
		Metrics: metrics,
		Tracer:  tracer,
	})
	if err != nil {
		_ = store.Close()
		tracer.Close()
		return nil, err
	}
	logger.Info("Compatibility pipeline ready", zap.Strings("backends", pipeline.Backends()))

	tabManager := tabs.NewManager(tabs.Options{
		Pipeline: pipeline,
		Recorder: sessionManager,
		Logger:   logger.Named("tabs"),
		Metrics:  metrics,
	})
	tabManager.Restore(sessionManager.Tabs(), sessionManager.ActiveTab())

	// Create router
	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()

	// Add middleware
	router.Use(middleware.Recovery(logger.Logger))
	router.Use(middleware.RequestID())
	router.Use(tracing.HTTPMiddleware(tracer))
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.Logger(logger.Named("http")))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig(cfg.Server.AllowedOrigins...)))
	if cfg.RateLimit.Enabled {
		logger.Info("Rate limiting enabled",
			zap.Int("rps", cfg.RateLimit.RequestsPerSecond),
			zap.Int("burst", cfg.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = cfg.RateLimit.RequestsPerSecond
		rl.Burst = cfg.RateLimit.Burst
		rl.Skip = []string{"/bridge", "/metrics", "/health"}
		router.Use(middleware.RateLimit(rl))
	}
	if cfg.Server.Compress {
		router.Use(middleware.Compress(middleware.DefaultCompressConfig()))
	}

	limits := api.DefaultLimits()
	limits.RewriteBytes = cfg.Proxy.MaxBodyBytes
	handlers := api.NewHandlers(api.Options{
		Pipeline: pipeline,
		Tabs:     tabManager,
		Session:  sessionManager,
		Metrics:  metrics,
		Logger:   logger.Logger,
		Limits:   limits,
	})
	wsHandler := ws.NewHandler(ws.Options{
		Bridges: pipeline,
		Tabs:    tabManager,
		Metrics: metrics,
		Logger:  logger.Named("ws"),
		Origins: cfg.Server.AllowedOrigins,
	})

	// Register routes
	handlers.Register(router)
	router.GET("/bridge", wsHandler.HandleConnection)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	logger.Info("Server initialized successfully")

	return &Server{
		router: router,
		httpServer: &http.Server{
			Addr:              cfg.Server.Addr(),
			Handler:           router,
			ReadTimeout:       cfg.Server.ReadTimeout,
			ReadHeaderTimeout: cfg.Server.ReadTimeout,
			WriteTimeout:      cfg.Server.WriteTimeout,
		},
		pipeline: pipeline,
		tabs:     tabManager,
		session:  sessionManager,
		store:    store,
		tracer:   tracer,
		logger:   logger,
		config:   cfg,
		metrics:  metrics,
	}, nil
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves HTTP until ctx is cancelled, then drains connections.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", s.httpServer.Addr))
		errCh <- s.httpServer.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

// Close gracefully shuts down the server
func (s *Server) Close() error {
	s.logger.Info("Shutting down server...")

	// Stop fetches first so no commit races the final tab save
	s.tabs.Shutdown()

	var errs []error
	if err := s.pipeline.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close pipeline: %w", err))
	}
	if err := s.store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("failed to close storage: %w", err))
	}
	s.tracer.Close()

	for _, err := range errs {
		s.logger.Error("Shutdown error", zap.Error(err))
	}

	// Sync logger before exit
	s.logger.Sync()

	return errors.Join(errs...)
}
