package handlers

import (
	"bytes"
	"net/http"

	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/sirupsen/logrus"
)

// TransferHandler serves JSON export and import
type TransferHandler struct {
	transferCtrl *controllers.TransferController
	logger       *logrus.Logger
}

// NewTransferHandler creates a new transfer handler
func NewTransferHandler(transferCtrl *controllers.TransferController, logger *logrus.Logger) *TransferHandler {
	return &TransferHandler{
		transferCtrl: transferCtrl,
		logger:       logger,
	}
}

// Export handles GET /api/export
func (h *TransferHandler) Export(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.transferCtrl.Export(&buf); err != nil {
		writeError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", `attachment; filename="watchlist.json"`)
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// Import handles POST /api/import with an exported JSON array as body
func (h *TransferHandler) Import(w http.ResponseWriter, r *http.Request) {
	data, err := readBody(w, r)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	result, err := h.transferCtrl.Import(r.Context(), data)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
