// Package server exposes indexing, search and chat over HTTP.
package server

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalograg/config"
	"catalograg/internal/adapter/spreadsheet"
	"catalograg/internal/port"
	"catalograg/internal/usecase"
)

// Deps are the collaborators the handlers call into. Chat may be nil when
// no answer generator is configured; the chat route then reports 503.
type Deps struct {
	Store     port.VectorStore
	Indexer   *usecase.Indexer
	Retriever *usecase.Retriever
	Chat      *usecase.ChatUseCase
	Reader    *spreadsheet.Reader

	Config      config.ServerConfig
	DefaultTopK int
	DefaultMode string
	Logger      *slog.Logger
}

// Server is the HTTP API.
type Server struct {
	deps    Deps
	engine  *gin.Engine
	metrics *Metrics
	logger  *slog.Logger
}

// New builds the router. It does not start listening.
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Reader == nil {
		deps.Reader = spreadsheet.NewReader("")
	}

	s := &Server{
		deps:    deps,
		engine:  gin.New(),
		metrics: NewMetrics(),
		logger:  deps.Logger,
	}
	if deps.Config.MaxUploadMB > 0 {
		s.engine.MaxMultipartMemory = int64(deps.Config.MaxUploadMB) << 20
	}

	s.engine.Use(gin.Recovery(), s.requestLogger(), s.metrics.Middleware())
	s.routes()
	return s
}

func (s *Server) routes() {
	s.engine.GET("/healthz", s.health)
	s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))

	v1 := s.engine.Group("/v1")
	v1.GET("/collections", s.listCollections)
	v1.POST("/collections/:name/documents", s.indexDocuments)
	v1.POST("/collections/:name/upload", s.uploadWorkbook)
	v1.POST("/collections/:name/search", s.search)
	v1.POST("/chat", s.chat)
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	if s.deps.Config.ReadTimeoutSec > 0 {
		srv.ReadTimeout = time.Duration(s.deps.Config.ReadTimeoutSec) * time.Second
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return <-errCh
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info("request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(start),
		)
	}
}
