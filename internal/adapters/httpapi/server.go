// Package httpapi is the JSON transport in front of the analysis service.
package httpapi

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/mikey/invoice-analyzer/internal/config"
	"github.com/mikey/invoice-analyzer/internal/core"
	"go.uber.org/zap"
)

// Analyzer is the part of core.AnalysisService the transport needs
type Analyzer interface {
	Analyze(ctx context.Context, emailID string, email *core.Email) (*core.Analysis, bool, error)
}

// RequestObserver records served requests
type RequestObserver interface {
	ObserveHTTPRequest(method, route string, status int, duration time.Duration)
}

// Server serves the analysis API, the dashboard and the operational endpoints
type Server struct {
	analyzer       Analyzer
	logger         *zap.Logger
	cfg            config.ServerConfig
	observer       RequestObserver
	metricsHandler http.Handler
	engine         *gin.Engine
	httpServer     *http.Server
}

// NewServer creates the HTTP server. metricsHandler and observer may be nil.
func NewServer(
	analyzer Analyzer,
	cfg config.ServerConfig,
	logger *zap.Logger,
	observer RequestObserver,
	metricsHandler http.Handler,
) *Server {
	if cfg.Mode != "" {
		gin.SetMode(cfg.Mode)
	}

	s := &Server{
		analyzer:       analyzer,
		logger:         logger,
		cfg:            cfg,
		observer:       observer,
		metricsHandler: metricsHandler,
	}
	s.engine = s.routes()
	return s
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() *gin.Engine {
	r := gin.New()
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(s.logger))
	r.Use(RecoveryMiddleware(s.logger))
	if s.observer != nil {
		r.Use(MetricsMiddleware(s.observer))
	}
	r.Use(CORSMiddleware())

	r.GET("/", s.handleDashboard)
	r.GET("/health", s.handleHealth)
	r.POST("/api/analyze", s.handleAnalyze)
	if s.metricsHandler != nil {
		r.GET("/metrics", gin.WrapH(s.metricsHandler))
	}

	r.NoRoute(func(c *gin.Context) {
		c.String(http.StatusNotFound, "Not Found")
	})

	return r
}

// Start starts listening in the background
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.cfg.ListenAddress,
		Handler:      s.engine,
		ReadTimeout:  s.cfg.ReadTimeout,
		WriteTimeout: s.cfg.WriteTimeout,
	}

	s.logger.Info("HTTP API starting", zap.String("address", s.cfg.ListenAddress))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	timeout := s.cfg.ShutdownTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	return s.httpServer.Shutdown(ctx)
}

// ProcessEmail analyzes an email under a generated id
func (s *Server) ProcessEmail(ctx context.Context, email *core.Email) (*core.Analysis, error) {
	analysis, _, err := s.analyzer.Analyze(ctx, uuid.NewString(), email)
	return analysis, err
}
