// Package server assembles the HTTP service: configuration, logging,
// metrics, storage, the preview pipeline, and route registration.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"path/filepath"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/penlabhq/penlab/internal/ai"
	apihttp "github.com/penlabhq/penlab/internal/api/http"
	"github.com/penlabhq/penlab/internal/api/middleware"
	"github.com/penlabhq/penlab/internal/api/ws"
	"github.com/penlabhq/penlab/internal/domain/session"
	"github.com/penlabhq/penlab/internal/domain/snippet"
	"github.com/penlabhq/penlab/internal/infrastructure/config"
	"github.com/penlabhq/penlab/internal/infrastructure/logging"
	"github.com/penlabhq/penlab/internal/infrastructure/monitoring"
	"github.com/penlabhq/penlab/internal/preview"
	"github.com/penlabhq/penlab/internal/preview/relay"
)

// Server is the assembled service.
type Server struct {
	cfg    *config.Config
	logger *logging.Logger
	router *gin.Engine
	http   *http.Server
}

// New builds the full service from configuration.
func New(cfg *config.Config) (*Server, error) {
	logger, err := logging.New(logging.Config{
		Level:       cfg.Logging.Level,
		Development: cfg.Logging.Development,
		OutputPaths: []string{"stdout"},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	metrics := monitoring.NewMetrics()

	store := relay.NewStore(cfg.Preview.MaxLogBuffer)
	pm := preview.NewManager(cfg.Preview, store, logger).WithMetrics(metrics)

	snippets, err := snippet.NewStore(filepath.Join(cfg.Storage.DataDir, "snippets"))
	if err != nil {
		return nil, fmt.Errorf("failed to open snippet store: %w", err)
	}
	sessions, err := session.NewManager(filepath.Join(cfg.Storage.DataDir, "sessions"))
	if err != nil {
		return nil, fmt.Errorf("failed to open session store: %w", err)
	}

	// The assistant is optional. Everything else works without a key.
	var aiClient ai.Provider
	if client, err := ai.NewClient(cfg.AI); err == nil {
		aiClient = client
		logger.Info("ai assistant configured", zap.String("model", cfg.AI.Model))
	} else if !errors.Is(err, ai.ErrNoAPIKey) {
		return nil, fmt.Errorf("failed to create ai client: %w", err)
	}

	if !cfg.Logging.Development {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(monitoring.Middleware(metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if cfg.RateLimit.Enabled {
		router.Use(middleware.RateLimit(middleware.RateLimitConfig{
			RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
			Burst:             cfg.RateLimit.Burst,
		}))
	}

	rest := apihttp.NewHandler(pm, snippets, sessions, aiClient, logger).WithMetrics(metrics)
	stream := ws.NewHandler(pm, aiClient, logger, metrics, cfg.AI.Timeout)
	registerRoutes(router, rest, stream, metrics)

	addr := cfg.Server.Host + ":" + cfg.Server.Port
	return &Server{
		cfg:    cfg,
		logger: logger,
		router: router,
		http: &http.Server{
			Addr:         addr,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 0, // streaming endpoints hold the connection open
			IdleTimeout:  120 * time.Second,
		},
	}, nil
}

func registerRoutes(r *gin.Engine, rest *apihttp.Handler, stream *ws.Handler, metrics *monitoring.Metrics) {
	r.GET("/", rest.Root)
	r.GET("/health", rest.Health)
	r.GET("/metrics", monitoring.Handler(metrics))

	r.POST("/render", rest.Render)
	r.POST("/export", rest.Export)
	r.GET("/logs", rest.Logs)
	r.DELETE("/logs", rest.ClearLogs)

	r.POST("/snippets", rest.CreateSnippet)
	r.GET("/snippets", rest.ListSnippets)
	r.GET("/snippets/:id", rest.GetSnippet)
	r.PUT("/snippets/:id", rest.UpdateSnippet)
	r.DELETE("/snippets/:id", rest.DeleteSnippet)

	r.POST("/sessions", rest.SaveSession)
	r.GET("/sessions", rest.ListSessions)
	r.GET("/sessions/:id", rest.GetSession)
	r.POST("/sessions/:id/restore", rest.RestoreSession)
	r.DELETE("/sessions/:id", rest.DeleteSession)

	r.POST("/ai/complete", rest.AIComplete)
	r.GET("/ai/models", rest.AIModels)

	r.GET("/stream", stream.HandleConnection)
}

// Logger exposes the server's logger for lifecycle logging in main.
func (s *Server) Logger() *logging.Logger {
	return s.logger
}

// Addr returns the listen address.
func (s *Server) Addr() string {
	return s.http.Addr
}

// Run starts serving and blocks until the listener fails or is shut down.
func (s *Server) Run() error {
	s.logger.Info("server starting",
		zap.String("addr", s.http.Addr),
		zap.String("log_level", s.cfg.Logging.Level),
	)
	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests and stops the listener.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server shutting down")
	defer s.logger.Sync()
	return s.http.Shutdown(ctx)
}
