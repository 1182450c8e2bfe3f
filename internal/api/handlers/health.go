package handlers

import (
	"net/http"

	"github.com/amaumene/gowatch/internal/store"
	"github.com/sirupsen/logrus"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(st *store.Store, logger *logrus.Logger) *HealthHandler {
	return &HealthHandler{store: st, logger: logger}
}

// HealthResponse represents the health response
type HealthResponse struct {
	Status  string `json:"status"`
	Records int    `json:"records"`
	Version uint64 `json:"version"`
}

// ServeHTTP handles the health check endpoint
func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Records: h.store.Len(),
		Version: h.store.Version(),
	})
}
