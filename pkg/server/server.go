// Package server exposes a remediation session over HTTP.
//
// One server owns one session. Reads take the session's read lock and writes
// (upload, apply) take the write lock, so a reader sees either the state
// before a batch or the state after it, never a partial batch.
package server

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/David-Botos/tag-remediation/pkg/cleaner"
	"github.com/David-Botos/tag-remediation/pkg/model"
	"github.com/David-Botos/tag-remediation/pkg/remediation"
	"github.com/David-Botos/tag-remediation/pkg/telemetry"
)

// DefaultMaxUploadBytes caps the size of an uploaded export
const DefaultMaxUploadBytes int64 = 32 << 20

// Server serves one remediation session
type Server struct {
	mu      sync.RWMutex
	session *remediation.Session

	logger         *zap.Logger
	cleaner        *cleaner.DataCleaner
	metrics        *telemetry.Metrics
	gatherer       prometheus.Gatherer
	maxUploadBytes int64
}

// Option configures a Server
type Option func(*Server)

// WithMetrics records load metrics and serves gatherer at /metrics
func WithMetrics(m *telemetry.Metrics, gatherer prometheus.Gatherer) Option {
	return func(s *Server) {
		s.metrics = m
		s.gatherer = gatherer
	}
}

// WithMaxUploadBytes overrides DefaultMaxUploadBytes
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// New creates a server around a session
func New(logger *zap.Logger, dataCleaner *cleaner.DataCleaner, session *remediation.Session, opts ...Option) (*Server, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if dataCleaner == nil {
		return nil, errors.New("data cleaner cannot be nil")
	}
	if session == nil {
		return nil, errors.New("session cannot be nil")
	}

	if err := registerValidations(); err != nil {
		return nil, err
	}

	s := &Server{
		session:        session,
		logger:         logger,
		cleaner:        dataCleaner,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(s.logger))

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	if s.gatherer != nil {
		router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}

	v1 := router.Group("/v1")
	{
		v1.POST("/upload", s.handleUpload)
		v1.GET("/session", s.handleSession)
		v1.GET("/resources", s.handleResources)
		v1.GET("/filters/:column", s.handleFilterOptions)

		reports := v1.Group("/reports")
		reports.GET("", s.handleReport)
		reports.GET("/overview", s.handleOverview)
		reports.GET("/missing", s.handleMissing)
		reports.GET("/completeness", s.handleCompleteness)
		reports.GET("/cost-by-tag", s.handleCostByTag)
		reports.GET("/cost-by/:column", s.handleCostBy)
		reports.GET("/crosstab", s.handleCrosstab)

		remediate := v1.Group("/remediation")
		remediate.GET("/untagged", s.handleUntagged)
		remediate.POST("/apply", s.handleApply)
		remediate.GET("/compare", s.handleCompare)

		v1.GET("/export/:kind", s.handleExport)
	}

	return router
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting HTTP server", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		s.logger.Info("Shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}

// statusFor maps a core error onto an HTTP status
func statusFor(err error) int {
	switch {
	case errors.Is(err, model.ErrNoSession):
		return http.StatusConflict
	case errors.Is(err, model.ErrUnknownColumn):
		return http.StatusBadRequest
	}

	switch category := model.Categorize(err); {
	case category == model.ErrorCategorySchema:
		return http.StatusUnprocessableEntity
	case category.Fatal():
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// abortWithError writes the error body and stops the handler chain
func abortWithError(c *gin.Context, err error) {
	status := statusFor(err)
	c.AbortWithStatusJSON(status, gin.H{
		"error":    err.Error(),
		"category": model.Categorize(err).String(),
	})
}

// abortBadRequest reports a malformed request
func abortBadRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
