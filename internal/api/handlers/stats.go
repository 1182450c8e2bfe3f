package handlers

import (
	"net/http"

	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/sirupsen/logrus"
)

// StatsHandler handles statistics requests
type StatsHandler struct {
	store  *store.Store
	logger *logrus.Logger
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(st *store.Store, logger *logrus.Logger) *StatsHandler {
	return &StatsHandler{
		store:  st,
		logger: logger,
	}
}

// ServeHTTP handles the stats endpoint. Statistics always cover the full
// store, regardless of any table filter.
func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, controllers.ComputeStatistics(h.store.Snapshot()))
}
