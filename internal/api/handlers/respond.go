package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/sirupsen/logrus"
)

// maxBodyBytes bounds request bodies, import files included
const maxBodyBytes = 10 << 20

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError maps the error taxonomy onto HTTP status codes
func writeError(w http.ResponseWriter, logger *logrus.Logger, err error) {
	status := StatusFor(err)
	resp := ErrorResponse{Error: err.Error()}

	var vErr *models.ValidationError
	if errors.As(err, &vErr) {
		resp.Field = vErr.Field
	}

	entry := logger.WithError(err).WithField("status", status)
	if status >= http.StatusInternalServerError {
		entry.Error("Request failed")
	} else {
		entry.Debug("Request rejected")
	}

	writeJSON(w, status, resp)
}

// StatusFor returns the HTTP status code for err
func StatusFor(err error) int {
	switch {
	case models.IsValidation(err):
		return http.StatusUnprocessableEntity
	case models.IsParse(err):
		return http.StatusBadRequest
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrDuplicateID):
		return http.StatusConflict
	case models.IsRemote(err):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// decodeJSON reads a JSON request body into v
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return &models.ParseError{Source: "request body", Err: err}
	}
	return nil
}

// readBody reads the whole request body, up to maxBodyBytes
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, &models.ParseError{Source: "request body", Err: fmt.Errorf("failed to read body: %w", err)}
	}
	return data, nil
}
