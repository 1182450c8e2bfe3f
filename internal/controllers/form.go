package controllers

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Submission is an add/edit form as the user typed it. Numeric fields are
// text and fall back to 0 when they do not parse.
type Submission struct {
	Kind          string            `json:"kind"`
	Title         string            `json:"title"`
	Year          models.FlexString `json:"year"`
	Director      string            `json:"director"`
	Genre         string            `json:"genre"`
	ShowRef       string            `json:"showRef"`
	SeasonNumber  models.FlexString `json:"seasonNumber"`
	EpisodeNumber models.FlexString `json:"episodeNumber"`
	Duration      models.FlexString `json:"duration"`
	TotalSeasons  models.FlexString `json:"totalSeasons"`
	TotalEpisodes models.FlexString `json:"totalEpisodes"`
	DateAdded     string            `json:"dateAdded"` // YYYY-MM-DD, empty = today
}

// RateSubmission is the rating form: watch date and both ratings
type RateSubmission struct {
	ID          string `json:"id"`
	DateWatched string `json:"dateWatched"` // YYYY-MM-DD, empty = not watched
	XRating     *int   `json:"xRating"`
	YRating     *int   `json:"yRating"`
}

// FormController validates user input and turns it into persisted records
type FormController struct {
	store  *store.Store
	logger *logrus.Logger
	now    func() time.Time
	newID  func(models.Kind) string
}

// NewFormController creates a new form controller
func NewFormController(st *store.Store, logger *logrus.Logger) *FormController {
	return &FormController{
		store:  st,
		logger: logger,
		now:    time.Now,
		newID: func(kind models.Kind) string {
			return strings.ToLower(string(kind)) + "-" + uuid.NewString()
		},
	}
}

// Validate checks sub and builds the record it describes. editID is the id of
// the record being edited, or "" for a new one. The store is not modified.
func (c *FormController) Validate(sub Submission, editID string) (models.Record, error) {
	kind, ok := models.ParseKind(sub.Kind)
	if !ok {
		return models.Record{}, &models.ValidationError{Field: "kind", Message: fmt.Sprintf("unknown kind %q", sub.Kind)}
	}

	var existing *models.Record
	if editID != "" {
		rec, found := c.store.Get(editID)
		if !found {
			return models.Record{}, fmt.Errorf("%w: %s", models.ErrNotFound, editID)
		}
		if rec.Kind != kind {
			return models.Record{}, &models.ValidationError{Field: "kind", Message: "cannot change the kind of an existing record"}
		}
		existing = &rec
	}

	title := strings.TrimSpace(sub.Title)
	if title == "" && kind != models.KindSeason {
		return models.Record{}, &models.ValidationError{Field: "title", Message: "is required"}
	}

	rec := models.Record{
		Kind:     kind,
		Title:    title,
		Year:     strings.TrimSpace(string(sub.Year)),
		Director: strings.TrimSpace(sub.Director),
		Genre:    strings.TrimSpace(sub.Genre),
	}

	if existing != nil {
		rec.ID = existing.ID
		rec.DateAdded = existing.DateAdded
		rec.DateWatched = existing.DateWatched
		rec.XRating = existing.XRating
		rec.YRating = existing.YRating
	} else if kind == models.KindMovie || kind == models.KindShow {
		// Seasons and episodes get their id once their parent is known
		rec.ID = c.newID(kind)
	}

	switch strings.TrimSpace(sub.DateAdded) {
	case "":
		if rec.DateAdded.IsZero() {
			rec.DateAdded = models.NewDate(c.now())
		}
	default:
		d, err := models.ParsePickerDate(sub.DateAdded)
		if err != nil {
			return models.Record{}, &models.ValidationError{Field: "dateAdded", Message: err.Error()}
		}
		rec.DateAdded = d
	}

	switch kind {
	case models.KindMovie:
		rec.Movie = &models.MovieDetails{Duration: parseFloat(sub.Duration)}
	case models.KindShow:
		rec.Show = &models.ShowDetails{
			TotalSeasons:  parseInt(sub.TotalSeasons),
			TotalEpisodes: parseInt(sub.TotalEpisodes),
		}
	case models.KindSeason:
		season, err := c.seasonDetails(sub, rec.ID)
		if err != nil {
			return models.Record{}, err
		}
		rec.Season = season
		if rec.Title == "" {
			rec.Title = models.SeasonTitle(season.SeasonNumber)
		}
	case models.KindEpisode:
		episode, err := c.episodeDetails(sub, rec.ID)
		if err != nil {
			return models.Record{}, err
		}
		rec.Episode = episode
	}

	if kind == models.KindSeason || kind == models.KindEpisode {
		id := c.hierarchyID(rec)
		switch {
		case existing == nil:
			rec.ID = id
		case id != c.hierarchyID(*existing):
			field := "seasonNumber"
			if kind == models.KindEpisode {
				field = "episodeNumber"
			}
			return models.Record{}, &models.ValidationError{
				Field:   field,
				Message: fmt.Sprintf("cannot move an existing %s to another show or number, delete it and add it again", strings.ToLower(string(kind))),
			}
		}
	}

	return rec, nil
}

// hierarchyID is the id a season or episode takes from its place under its
// show, the same id the remote sheet derives for the row.
func (c *FormController) hierarchyID(rec models.Record) string {
	showID := rec.ShowRef()
	if parent, ok := c.store.Get(showID); ok && parent.Kind == models.KindSeason {
		showID = parent.ShowRef()
	}
	if rec.Kind == models.KindSeason {
		return models.SeasonID(showID, rec.SeasonNumber())
	}
	return models.EpisodeID(showID, rec.SeasonNumber(), rec.EpisodeNumber())
}

func (c *FormController) seasonDetails(sub Submission, selfID string) (*models.SeasonDetails, error) {
	showRef := strings.TrimSpace(sub.ShowRef)
	show, found := c.store.Get(showRef)
	if showRef == "" || !found || show.Kind != models.KindShow {
		return nil, &models.ValidationError{Field: "showRef", Message: "must reference an existing show"}
	}

	number := parseInt(sub.SeasonNumber)
	for _, r := range c.store.Snapshot() {
		if r.Kind == models.KindSeason && r.ID != selfID && r.ShowRef() == showRef && r.SeasonNumber() == number {
			return nil, &models.ValidationError{
				Field:   "seasonNumber",
				Message: fmt.Sprintf("season %d already exists for this show", number),
			}
		}
	}

	return &models.SeasonDetails{
		ShowRef:       showRef,
		SeasonNumber:  number,
		TotalEpisodes: parseInt(sub.TotalEpisodes),
	}, nil
}

func (c *FormController) episodeDetails(sub Submission, selfID string) (*models.EpisodeDetails, error) {
	showRef := strings.TrimSpace(sub.ShowRef)
	parent, found := c.store.Get(showRef)
	if showRef == "" || !found || (parent.Kind != models.KindShow && parent.Kind != models.KindSeason) {
		return nil, &models.ValidationError{Field: "showRef", Message: "must reference an existing show or season"}
	}

	showID := showRef
	seasonNumber := parseInt(sub.SeasonNumber)
	if parent.Kind == models.KindSeason {
		showID = parent.ShowRef()
		seasonNumber = parent.SeasonNumber()
	}
	number := parseInt(sub.EpisodeNumber)

	records := c.store.Snapshot()
	seasonShow := make(map[string]string)
	for _, r := range records {
		if r.Kind == models.KindSeason {
			seasonShow[r.ID] = r.ShowRef()
		}
	}
	for _, r := range records {
		if r.Kind != models.KindEpisode || r.ID == selfID {
			continue
		}
		owner := r.ShowRef()
		if show, ok := seasonShow[owner]; ok {
			owner = show
		}
		if owner == showID && r.SeasonNumber() == seasonNumber && r.EpisodeNumber() == number {
			return nil, &models.ValidationError{
				Field:   "episodeNumber",
				Message: fmt.Sprintf("episode %d of season %d already exists for this show", number, seasonNumber),
			}
		}
	}

	return &models.EpisodeDetails{
		ShowRef:       showRef,
		SeasonNumber:  seasonNumber,
		EpisodeNumber: number,
		Duration:      parseFloat(sub.Duration),
	}, nil
}

// Save validates sub and persists the resulting record in one form session.
// editID selects the record to replace, or "" to add a new one.
func (c *FormController) Save(ctx context.Context, sub Submission, editID string) (*models.Record, error) {
	session := c.NewSession()
	if err := session.Open(editID); err != nil {
		return nil, err
	}
	rec, err := session.Submit(ctx, sub)
	if err != nil && models.IsValidation(err) {
		c.logger.WithError(err).WithField("kind", sub.Kind).Debug("Submission rejected")
	}
	return rec, err
}

// Rate sets the watch date and ratings of a record
func (c *FormController) Rate(ctx context.Context, sub RateSubmission) (*models.Record, error) {
	if err := models.CheckRating("xRating", sub.XRating); err != nil {
		return nil, err
	}
	if err := models.CheckRating("yRating", sub.YRating); err != nil {
		return nil, err
	}

	var watched *models.Date
	if strings.TrimSpace(sub.DateWatched) != "" {
		d, err := models.ParsePickerDate(sub.DateWatched)
		if err != nil {
			return nil, &models.ValidationError{Field: "dateWatched", Message: err.Error()}
		}
		watched = &d
	}

	var updated models.Record
	err := c.store.Update(ctx, sub.ID, func(r *models.Record) error {
		r.DateWatched = watched
		r.XRating = sub.XRating
		r.YRating = sub.YRating
		updated = r.Clone()
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.logger.WithFields(logrus.Fields{
		"id":      sub.ID,
		"watched": watched != nil,
	}).Info("Record rated")
	return &updated, nil
}

// Delete removes a record and everything below it in the hierarchy
func (c *FormController) Delete(ctx context.Context, id string) ([]string, error) {
	removed, err := c.store.Remove(ctx, id)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"id":      id,
		"removed": len(removed),
	}).Info("Record deleted")
	return removed, nil
}

// FormState is the state of an add/edit form
type FormState int

const (
	FormIdle FormState = iota
	FormEditing
	FormValidating
	FormPersisting
	FormRejected
)

func (s FormState) String() string {
	switch s {
	case FormIdle:
		return "idle"
	case FormEditing:
		return "editing"
	case FormValidating:
		return "validating"
	case FormPersisting:
		return "persisting"
	case FormRejected:
		return "rejected"
	}
	return "unknown"
}

// ErrFormNotOpen is returned when submitting a form that is not being edited
var ErrFormNotOpen = errors.New("form is not open")

// FormSession walks one add/edit operation through
// Idle -> Editing -> Validating -> (Persisting -> Idle | Rejected -> Editing).
// The id being edited travels with the session.
type FormSession struct {
	ctrl    *FormController
	state   FormState
	editID  string
	trail   []FormState
	lastErr error
}

// NewSession starts an idle form session
func (c *FormController) NewSession() *FormSession {
	return &FormSession{ctrl: c, state: FormIdle, trail: []FormState{FormIdle}}
}

// Open moves the session to Editing. editID is "" for a new record.
func (s *FormSession) Open(editID string) error {
	if s.state != FormIdle {
		return fmt.Errorf("cannot open form in state %s", s.state)
	}
	if editID != "" {
		if _, ok := s.ctrl.store.Get(editID); !ok {
			return fmt.Errorf("%w: %s", models.ErrNotFound, editID)
		}
	}
	s.editID = editID
	s.lastErr = nil
	s.set(FormEditing)
	return nil
}

// Submit validates and persists sub. A validation failure leaves the session
// in Editing for correction and does not touch the store.
func (s *FormSession) Submit(ctx context.Context, sub Submission) (*models.Record, error) {
	if s.state != FormEditing {
		return nil, ErrFormNotOpen
	}

	s.set(FormValidating)
	rec, err := s.ctrl.Validate(sub, s.editID)
	if err != nil {
		s.lastErr = err
		s.set(FormRejected)
		s.set(FormEditing)
		return nil, err
	}

	s.set(FormPersisting)
	if s.editID == "" {
		err = s.ctrl.store.Insert(ctx, rec)
	} else {
		err = s.ctrl.store.Upsert(ctx, rec)
	}
	s.lastErr = err
	s.editID = ""
	s.set(FormIdle)
	if err != nil {
		return nil, err
	}

	s.ctrl.logger.WithFields(logrus.Fields{
		"id":   rec.ID,
		"kind": rec.Kind,
	}).Info("Record saved")
	return &rec, nil
}

// Cancel abandons the form
func (s *FormSession) Cancel() {
	s.editID = ""
	s.set(FormIdle)
}

// State returns the current state
func (s *FormSession) State() FormState { return s.state }

// EditID returns the id being edited, "" when adding
func (s *FormSession) EditID() string { return s.editID }

// LastError returns the error of the last submit, if any
func (s *FormSession) LastError() error { return s.lastErr }

// Trail returns every state the session has passed through
func (s *FormSession) Trail() []FormState {
	out := make([]FormState, len(s.trail))
	copy(out, s.trail)
	return out
}

func (s *FormSession) set(state FormState) {
	s.state = state
	s.trail = append(s.trail, state)
}

func parseInt(v models.FlexString) int {
	s := strings.TrimSpace(string(v))
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// "2.0" from a number input
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

func parseFloat(v models.FlexString) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(string(v)), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
