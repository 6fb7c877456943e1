// Package server exposes cards, labels, uploads and exports over HTTP.
package server

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/joseph-ayodele/cardscan/internal/common"
	"github.com/joseph-ayodele/cardscan/internal/export"
	"github.com/joseph-ayodele/cardscan/internal/ingest"
	"github.com/joseph-ayodele/cardscan/internal/services/cards"
	"github.com/joseph-ayodele/cardscan/internal/services/labels"
)

// Deps are the services the HTTP layer delegates to.
type Deps struct {
	Cards    *cards.Service
	Labels   *labels.Service
	Pipeline *ingest.Pipeline
	Exports  *export.Service
	// Health reports store reachability for /healthz.
	Health func(ctx context.Context) error
}

// Server holds the state for the REST API server.
type Server struct {
	deps           Deps
	logger         *slog.Logger
	router         *gin.Engine
	maxUploadBytes int64
}

// NewServer creates a new Server instance.
func NewServer(deps Deps, maxUploadBytes int64, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if maxUploadBytes <= 0 {
		maxUploadBytes = 64 << 20
	}
	r := gin.New()
	r.MaxMultipartMemory = maxUploadBytes
	s := &Server{
		deps:           deps,
		logger:         logger,
		router:         r,
		maxUploadBytes: maxUploadBytes,
	}
	r.Use(gin.Recovery(), s.requestLogger())
	s.setupRoutes()
	return s
}

// Handler returns the router for use with an http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.healthCheck)

	api := s.router.Group("/api")
	api.GET("/progress", s.handleProgress)
	api.POST("/upload", s.handleUpload)

	api.GET("/cards", s.handleListCards)
	api.POST("/cards", s.handleCreateCard)
	api.GET("/cards/recent", s.handleRecentCards)
	api.GET("/cards/unsorted", s.handleUnsortedCards)
	api.POST("/cards/duplicates", s.handleCheckDuplicate)
	api.GET("/cards/:id", s.handleGetCard)
	api.PATCH("/cards/:id", s.handleUpdateCard)
	api.DELETE("/cards/:id", s.handleDeleteCard)
	api.GET("/cards/:id/image", s.handleCardImage)
	api.POST("/cards/:id/label", s.handleAssignLabel)
	api.DELETE("/cards/:id/label", s.handleRemoveLabel)

	api.GET("/labels", s.handleListLabels)
	api.POST("/labels", s.handleCreateLabel)
	api.GET("/labels/:id", s.handleGetLabel)
	api.PUT("/labels/:id", s.handleUpdateLabel)
	api.DELETE("/labels/:id", s.handleDeleteLabel)
	api.GET("/labels/:id/cards", s.handleCardsByLabel)

	api.GET("/countries", s.handleCountries)
	api.POST("/countries/backfill", s.handleBackfill)

	api.GET("/analytics", s.handleAnalytics)
	api.GET("/export", s.handleExportAll)
	api.GET("/export/analytics", s.handleExportAnalytics)
	api.POST("/export/labels", s.handleExportLabels)
	api.POST("/export/countries", s.handleExportCountries)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		c.Header("X-Request-ID", id)
		c.Request = c.Request.WithContext(common.WithRequestID(c.Request.Context(), id))
		c.Next()
		s.logger.Info("http.request",
			"request_id", id,
			"method", c.Request.Method,
			"path", c.FullPath(),
			"status", c.Writer.Status(),
			"elapsed_ms", time.Since(start).Milliseconds(),
		)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	if s.deps.Health != nil {
		if err := s.deps.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleProgress always reports a finished batch; uploads are synchronous.
func (s *Server) handleProgress(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"progress": 100, "status": "complete"})
}

func handleError(c *gin.Context, err error) {
	c.JSON(common.HTTPStatus(err), gin.H{"error": err.Error()})
}
