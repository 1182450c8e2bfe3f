package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/amaumene/gowatch/internal/api/handlers"
	"github.com/amaumene/gowatch/internal/api/middleware"
	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/metrics"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/sirupsen/logrus"
)

// Deps are the collaborators the HTTP routes are served from
type Deps struct {
	Store    *store.Store
	Form     *controllers.FormController
	Sync     *controllers.SyncController
	Transfer *controllers.TransferController
	Metrics  *metrics.Metrics
}

// Server represents the HTTP server
type Server struct {
	server *http.Server
	deps   Deps
	logger *logrus.Logger
}

// NewServer creates a new HTTP server listening on port
func NewServer(port string, deps Deps, logger *logrus.Logger) *Server {
	s := &Server{
		deps:   deps,
		logger: logger,
	}

	s.server = &http.Server{
		Addr:         ":" + port,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	return s
}

// Handler returns the routed handler wrapped in the middleware chain
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.setupRoutes(mux)

	var observer middleware.RequestObserver
	if s.deps.Metrics != nil {
		observer = s.deps.Metrics
	}
	return middleware.Logging(mux, observer, s.logger)
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(mux *http.ServeMux) {
	// Health check
	healthHandler := handlers.NewHealthHandler(s.deps.Store, s.logger)
	mux.Handle("GET /health", healthHandler)

	if s.deps.Metrics != nil {
		mux.Handle("GET /metrics", s.deps.Metrics.Handler())
	}

	// Statistics
	statsHandler := handlers.NewStatsHandler(s.deps.Store, s.logger)
	mux.Handle("GET /api/stats", statsHandler)

	// Records
	records := handlers.NewRecordsHandler(s.deps.Store, s.deps.Form, s.logger)
	mux.HandleFunc("GET /api/records", records.List)
	mux.HandleFunc("POST /api/records", records.Create)
	mux.HandleFunc("GET /api/records/{id}", records.Get)
	mux.HandleFunc("PUT /api/records/{id}", records.Update)
	mux.HandleFunc("DELETE /api/records/{id}", records.Delete)
	mux.HandleFunc("PATCH /api/records/{id}/rating", records.Rate)
	mux.HandleFunc("GET /api/shows/{id}/hierarchy", records.Hierarchy)

	// Export / import
	transfer := handlers.NewTransferHandler(s.deps.Transfer, s.logger)
	mux.HandleFunc("GET /api/export", transfer.Export)
	mux.HandleFunc("POST /api/import", transfer.Import)

	// Remote sync
	if s.deps.Sync != nil {
		syncHandler := handlers.NewSyncHandler(s.deps.Sync, s.logger)
		mux.HandleFunc("POST /api/sync/pull", syncHandler.Pull)
		mux.HandleFunc("POST /api/sync/push", syncHandler.Push)
		mux.HandleFunc("GET /api/sync/status", syncHandler.Status)
		mux.HandleFunc("POST /api/config/import", syncHandler.ImportConfig)
	}
}

// Start starts the HTTP server
func (s *Server) Start(ctx context.Context) error {
	s.logger.WithField("port", s.server.Addr).Info("Starting HTTP server")

	errChan := make(chan error, 1)
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	select {
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		return s.Shutdown(context.Background())
	}
}

// Shutdown gracefully shuts down the HTTP server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	return s.server.Shutdown(shutdownCtx)
}
