package handlers

import (
	"net/http"

	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/sirupsen/logrus"
)

// SyncHandler exposes remote pull/push and config file import
type SyncHandler struct {
	syncCtrl *controllers.SyncController
	logger   *logrus.Logger
}

// NewSyncHandler creates a new sync handler
func NewSyncHandler(syncCtrl *controllers.SyncController, logger *logrus.Logger) *SyncHandler {
	return &SyncHandler{
		syncCtrl: syncCtrl,
		logger:   logger,
	}
}

// Pull handles POST /api/sync/pull
func (h *SyncHandler) Pull(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.syncCtrl.Pull(r.Context()))
}

// Push handles POST /api/sync/push
func (h *SyncHandler) Push(w http.ResponseWriter, r *http.Request) {
	h.respond(w)(h.syncCtrl.Push(r.Context()))
}

// ImportConfig handles POST /api/config/import with a remote config file body
func (h *SyncHandler) ImportConfig(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	h.respond(w)(h.syncCtrl.ImportRemoteConfig(r.Context(), data))
}

// Status handles GET /api/sync/status
func (h *SyncHandler) Status(w http.ResponseWriter, r *http.Request) {
	status := h.syncCtrl.LastStatus()
	if status == nil {
		writeJSON(w, http.StatusOK, controllers.SyncStatus{Message: "No sync yet"})
		return
	}
	writeJSON(w, http.StatusOK, status)
}

// respond writes the sync status, with the error's status code on failure
func (h *SyncHandler) respond(w http.ResponseWriter) func(*controllers.SyncStatus, error) {
	return func(status *controllers.SyncStatus, err error) {
		if err != nil && status == nil {
			writeError(w, h.logger, err)
			return
		}
		code := http.StatusOK
		if err != nil {
			code = StatusFor(err)
		}
		writeJSON(w, code, status)
	}
}
