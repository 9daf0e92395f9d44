// Package server exposes ingestion and chat over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aqua777/docquery/chatengine"
	"github.com/aqua777/docquery/ingestion"
	"github.com/aqua777/docquery/rag/reader"
	"github.com/gin-gonic/gin"
)

const (
	// DefaultMaxUploadBytes is the in-memory multipart limit.
	DefaultMaxUploadBytes = 64 << 20
	// DefaultRequestTimeout bounds the work of one request.
	DefaultRequestTimeout = 5 * time.Minute
)

// Ingester rebuilds a collection from uploaded files.
type Ingester interface {
	Ingest(ctx context.Context, collection string, files []reader.File) (ingestion.Result, error)
}

// ChatService answers questions against a collection.
type ChatService interface {
	Chat(ctx context.Context, collection, question string) (*chatengine.ChatResponse, error)
	Reset(ctx context.Context, collection string) error
}

// Server holds the state for the REST API server.
type Server struct {
	ingester       Ingester
	chat           ChatService
	catalog        Catalog
	router         *gin.Engine
	maxUploadBytes int64
	requestTimeout time.Duration
	debug          bool
	logger         *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithCatalog enables the collection listing routes.
func WithCatalog(catalog Catalog) Option {
	return func(s *Server) {
		s.catalog = catalog
	}
}

// WithMaxUploadBytes sets the in-memory multipart limit.
func WithMaxUploadBytes(n int64) Option {
	return func(s *Server) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// WithRequestTimeout bounds the work of one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.requestTimeout = d
		}
	}
}

// WithDebug runs gin in debug mode.
func WithDebug(debug bool) Option {
	return func(s *Server) {
		s.debug = debug
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// NewServer creates a new Server instance.
func NewServer(ingester Ingester, chat ChatService, opts ...Option) *Server {
	s := &Server{
		ingester:       ingester,
		chat:           chat,
		maxUploadBytes: DefaultMaxUploadBytes,
		requestTimeout: DefaultRequestTimeout,
		logger:         slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(slog.String("module", "server"))

	if s.debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(recovery(s.logger), requestLogger(s.logger))
	r.MaxMultipartMemory = s.maxUploadBytes
	s.router = r
	s.setupRoutes()
	return s
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errs := make(chan error, 1)
	go func() {
		s.logger.Info("Listening", "addr", addr)
		errs <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown failed: %w", err)
		}
		return nil
	case err := <-errs:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)
	s.router.POST("/ingest/:collection", s.handleIngest)
	s.router.POST("/chat/:collection", s.handleChat)
	s.router.DELETE("/chat/:collection/history", s.handleResetChat)
	if s.catalog != nil {
		s.router.GET("/collections", s.handleCollections)
		s.router.GET("/collections/:collection", s.handleCollection)
	}
}

func handleError(c *gin.Context, err error) {
	appErr := MapError(err)
	_ = c.Error(err)
	c.AbortWithStatusJSON(appErr.Code, gin.H{"detail": appErr.Message})
}

func (s *Server) requestContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), s.requestTimeout)
}
