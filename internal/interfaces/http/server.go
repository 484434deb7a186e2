// Package http provides HTTP server adapter for the application layer.
// This is a thin adapter layer that translates HTTP requests to application service calls.
package http

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/garyjia/draftflow/internal/application/service"
)

// Logger interface for logging operations
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// HistoryExporter renders a draft and its audit trail as a downloadable document
type HistoryExporter interface {
	ContentType() string
	FileName(draftID int64) string
	Export(w io.Writer, snap *service.DraftSnapshot, history []service.HistoryView) error
}

// HealthFunc reports readiness and a per-component breakdown
type HealthFunc func(ctx context.Context) (healthy bool, details interface{})

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	MaxUploadBytes  int64
	MetricsPath     string
	Debug           bool
}

// DefaultServerConfig returns default server configuration
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:            "0.0.0.0",
		Port:            8080,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		MaxUploadBytes:  10 << 20,
		MetricsPath:     "/metrics",
	}
}

// Dependencies are the services the HTTP layer translates requests to.
// Exporter, Health and Metrics are optional.
type Dependencies struct {
	Drafts    service.DraftService
	Templates service.TemplateService
	Groups    service.GroupService
	Exporter  HistoryExporter
	Health    HealthFunc
	Metrics   http.Handler
	Logger    Logger
}

// Server is the HTTP server adapter
type Server struct {
	config     ServerConfig
	httpServer *http.Server
	router     *gin.Engine
	deps       Dependencies
	logger     Logger
}

// NewServer creates a new HTTP server with the given services
func NewServer(config ServerConfig, deps Dependencies) *Server {
	if config.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	if config.MaxUploadBytes <= 0 {
		config.MaxUploadBytes = DefaultServerConfig().MaxUploadBytes
	}
	if config.MetricsPath == "" {
		config.MetricsPath = DefaultServerConfig().MetricsPath
	}

	router := gin.New()
	router.MaxMultipartMemory = config.MaxUploadBytes

	server := &Server{
		config: config,
		router: router,
		deps:   deps,
		logger: deps.Logger,
	}

	server.setupMiddleware()
	server.setupRoutes()

	return server
}

// setupMiddleware configures middleware for the router
func (s *Server) setupMiddleware() {
	s.router.Use(gin.Recovery())
	s.router.Use(loggingMiddleware(s.logger))
	s.router.Use(corsMiddleware())
	s.router.Use(errorMiddleware(s.logger))
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	h := NewHandlers(s.deps, s.config.MaxUploadBytes)

	s.router.GET("/health", h.HealthCheck)
	if s.deps.Metrics != nil {
		s.router.GET(s.config.MetricsPath, gin.WrapH(s.deps.Metrics))
	}

	api := s.router.Group("/api", callerMiddleware())
	{
		drafts := api.Group("/drafts")
		drafts.POST("", h.CreateDraft)
		drafts.GET("", h.ListDrafts)
		drafts.GET("/:id", h.GetDraft)
		drafts.POST("/:id/submit", h.SubmitDraft)
		drafts.POST("/:id/cancel", h.CancelDraft)
		drafts.POST("/:id/withdraw", h.WithdrawDraft)
		drafts.POST("/:id/resubmit", h.ResubmitDraft)
		drafts.POST("/:id/steps/:stepId/approve", h.ApproveStep)
		drafts.POST("/:id/steps/:stepId/reject", h.RejectStep)
		drafts.POST("/:id/steps/:stepId/defer", h.DeferStep)
		drafts.POST("/:id/steps/:stepId/approve-deferred", h.ApproveDeferredStep)
		drafts.POST("/:id/steps/:stepId/delegate", h.DelegateStep)
		drafts.GET("/:id/history", h.ListHistory)
		drafts.GET("/:id/history/export", h.ExportHistory)
		drafts.GET("/:id/references", h.ListReferences)
		drafts.POST("/:id/attachments", h.UploadAttachment)
		drafts.GET("/:id/attachments/:attachmentId", h.DownloadAttachment)

		templates := api.Group("/templates")
		templates.POST("", h.CreateTemplate)
		templates.GET("", h.ListTemplates)
		templates.GET("/:id", h.GetTemplate)
		templates.PUT("/:id/steps", h.ReplaceTemplateSteps)
		templates.POST("/:id/deactivate", h.DeactivateTemplate)

		groups := api.Group("/approval-groups")
		groups.GET("/:code/members", h.ListGroupMembers)
		groups.PUT("/:code/members/:userId", h.SetGroupMember)
	}
}

// Start starts the HTTP server and blocks until ctx is cancelled or the listener fails
func (s *Server) Start(ctx context.Context) error {
	addr := s.Address()

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	s.logger.Info("Starting HTTP server", "address", addr)

	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("HTTP server shutdown requested")
		return s.Stop()
	case err := <-errCh:
		s.logger.Error("HTTP server error", "error", err)
		return err
	}
}

// Stop gracefully stops the HTTP server
func (s *Server) Stop() error {
	if s.httpServer == nil {
		return nil
	}

	s.logger.Info("Stopping HTTP server")

	timeout := s.config.ShutdownTimeout
	if timeout <= 0 {
		timeout = DefaultServerConfig().ShutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := s.httpServer.Shutdown(ctx); err != nil {
		s.logger.Error("HTTP server shutdown error", "error", err)
		return err
	}

	s.logger.Info("HTTP server stopped")
	return nil
}

// Router returns the underlying gin router (for testing)
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Address returns the server address
func (s *Server) Address() string {
	return fmt.Sprintf("%s:%d", s.config.Host, s.config.Port)
}
