package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/amaumene/gowatch/internal/controllers"
	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/amaumene/gowatch/internal/utils"
	"github.com/sirupsen/logrus"
)

// RecordsHandler serves the record table and the add/edit/rate/delete forms
type RecordsHandler struct {
	store  *store.Store
	form   *controllers.FormController
	logger *logrus.Logger
}

// NewRecordsHandler creates a new records handler
func NewRecordsHandler(st *store.Store, form *controllers.FormController, logger *logrus.Logger) *RecordsHandler {
	return &RecordsHandler{
		store:  st,
		form:   form,
		logger: logger,
	}
}

// ListResponse is one rendered table view
type ListResponse struct {
	Records []models.Record `json:"records"`
	Count   int             `json:"count"`
	Total   int             `json:"total"`
	Query   string          `json:"query,omitempty"`
	Sort    utils.SortState `json:"sort"`
}

// DeleteResponse lists every id removed by a cascading delete
type DeleteResponse struct {
	Removed []string `json:"removed"`
}

// List handles GET /api/records?q=&sort=&dir=&toggle=
//
// toggle applies a column click to the sort state given by sort and dir.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	state := utils.SortState{
		Field:     params.Get("sort"),
		Direction: models.SortDirection(strings.ToLower(params.Get("dir"))),
	}
	if state.Field != "" && state.Direction == "" {
		state.Direction = models.SortAsc
	}
	if toggle := params.Get("toggle"); toggle != "" {
		state.Toggle(toggle)
	}

	if state.Field != "" && !utils.IsSortField(state.Field) {
		writeError(w, h.logger, &models.ValidationError{Field: "sort", Message: "unknown sort field " + state.Field})
		return
	}
	switch state.Direction {
	case "", models.SortAsc, models.SortDesc:
	default:
		writeError(w, h.logger, &models.ValidationError{Field: "dir", Message: "must be asc or desc"})
		return
	}

	all := h.store.Snapshot()
	view := utils.BuildView(all, utils.ViewQuery{Query: params.Get("q"), Sort: state})
	if view == nil {
		view = []models.Record{}
	}

	writeJSON(w, http.StatusOK, ListResponse{
		Records: view,
		Count:   len(view),
		Total:   len(all),
		Query:   params.Get("q"),
		Sort:    state,
	})
}

// Get handles GET /api/records/{id}
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	rec, ok := h.store.Get(id)
	if !ok {
		writeError(w, h.logger, notFound(id))
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Create handles POST /api/records
func (h *RecordsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var sub controllers.Submission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.form.Save(r.Context(), sub, "")
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// Update handles PUT /api/records/{id}
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var sub controllers.Submission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, h.logger, err)
		return
	}

	rec, err := h.form.Save(r.Context(), sub, r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Rate handles PATCH /api/records/{id}/rating
func (h *RecordsHandler) Rate(w http.ResponseWriter, r *http.Request) {
	var sub controllers.RateSubmission
	if err := decodeJSON(r, &sub); err != nil {
		writeError(w, h.logger, err)
		return
	}
	sub.ID = r.PathValue("id")

	rec, err := h.form.Rate(r.Context(), sub)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /api/records/{id}
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	removed, err := h.form.Delete(r.Context(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, DeleteResponse{Removed: removed})
}

// Hierarchy handles GET /api/shows/{id}/hierarchy
func (h *RecordsHandler) Hierarchy(w http.ResponseWriter, r *http.Request) {
	tree, err := controllers.ResolveHierarchy(h.store.Snapshot(), r.PathValue("id"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, tree)
}

func notFound(id string) error {
	return fmt.Errorf("%w: %s", models.ErrNotFound, id)
}
