package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// recordJSON is the flat document form used by export, import and the HTTP API
type recordJSON struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	Title         string     `json:"title"`
	Year          FlexString `json:"year,omitempty"`
	Director      string     `json:"director,omitempty"`
	Genre         string     `json:"genre,omitempty"`
	DateAdded     string     `json:"dateAdded"`
	DateWatched   string     `json:"dateWatched,omitempty"`
	XRating       *int       `json:"xRating,omitempty"`
	YRating       *int       `json:"yRating,omitempty"`
	Duration      *float64   `json:"duration,omitempty"`
	TotalSeasons  *int       `json:"totalSeasons,omitempty"`
	TotalEpisodes *int       `json:"totalEpisodes,omitempty"`
	ShowRef       string     `json:"showRef,omitempty"`
	SeasonNumber  *int       `json:"seasonNumber,omitempty"`
	EpisodeNumber *int       `json:"episodeNumber,omitempty"`

	// Accepted on input only, for files written by older exports
	Name string `json:"name,omitempty"`
	Type string `json:"type,omitempty"`
}

// FlexString accepts a JSON string or number, as form values arrive either way
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*f = ""
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number, got %s", string(data))
	}
	*f = FlexString(n.String())
	return nil
}

// MarshalJSON writes the flat document form
func (r Record) MarshalJSON() ([]byte, error) {
	doc := recordJSON{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Title:     r.Title,
		Year:      FlexString(r.Year),
		Director:  r.Director,
		Genre:     r.Genre,
		DateAdded: r.DateAdded.Stored(),
		XRating:   r.XRating,
		YRating:   r.YRating,
	}
	if r.Watched() {
		doc.DateWatched = r.DateWatched.Stored()
	}

	switch r.Kind {
	case KindMovie:
		if r.Movie != nil {
			doc.Duration = &r.Movie.Duration
		}
	case KindShow:
		if r.Show != nil {
			doc.TotalSeasons = &r.Show.TotalSeasons
			doc.TotalEpisodes = &r.Show.TotalEpisodes
		}
	case KindSeason:
		if r.Season != nil {
			doc.ShowRef = r.Season.ShowRef
			doc.SeasonNumber = &r.Season.SeasonNumber
			doc.TotalEpisodes = &r.Season.TotalEpisodes
		}
	case KindEpisode:
		if r.Episode != nil {
			doc.ShowRef = r.Episode.ShowRef
			doc.SeasonNumber = &r.Episode.SeasonNumber
			doc.EpisodeNumber = &r.Episode.EpisodeNumber
			doc.Duration = &r.Episode.Duration
		}
	}

	return json.Marshal(doc)
}

// UnmarshalJSON reads the flat document form. Missing dates decode to the
// zero Date; callers decide whether that is acceptable.
func (r *Record) UnmarshalJSON(data []byte) error {
	var doc recordJSON
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}

	kindName := doc.Kind
	if kindName == "" {
		kindName = doc.Type
	}
	kind, ok := ParseKind(kindName)
	if !ok {
		return fmt.Errorf("unknown kind %q", kindName)
	}

	title := doc.Title
	if title == "" {
		title = doc.Name
	}

	rec := Record{
		ID:       strings.TrimSpace(doc.ID),
		Kind:     kind,
		Title:    title,
		Year:     string(doc.Year),
		Director: doc.Director,
		Genre:    doc.Genre,
		XRating:  doc.XRating,
		YRating:  doc.YRating,
	}

	if doc.DateAdded != "" {
		d, err := ParseStoredDate(doc.DateAdded)
		if err != nil {
			return fmt.Errorf("dateAdded: %w", err)
		}
		rec.DateAdded = d
	}
	if doc.DateWatched != "" {
		d, err := ParseStoredDate(doc.DateWatched)
		if err != nil {
			return fmt.Errorf("dateWatched: %w", err)
		}
		rec.DateWatched = &d
	}
	if err := CheckRating("xRating", rec.XRating); err != nil {
		return err
	}
	if err := CheckRating("yRating", rec.YRating); err != nil {
		return err
	}

	switch kind {
	case KindMovie:
		rec.Movie = &MovieDetails{Duration: derefFloat(doc.Duration)}
	case KindShow:
		rec.Show = &ShowDetails{
			TotalSeasons:  derefInt(doc.TotalSeasons),
			TotalEpisodes: derefInt(doc.TotalEpisodes),
		}
	case KindSeason:
		rec.Season = &SeasonDetails{
			ShowRef:       doc.ShowRef,
			SeasonNumber:  derefInt(doc.SeasonNumber),
			TotalEpisodes: derefInt(doc.TotalEpisodes),
		}
		if rec.Title == "" {
			rec.Title = SeasonTitle(rec.Season.SeasonNumber)
		}
	case KindEpisode:
		rec.Episode = &EpisodeDetails{
			ShowRef:       doc.ShowRef,
			SeasonNumber:  derefInt(doc.SeasonNumber),
			EpisodeNumber: derefInt(doc.EpisodeNumber),
			Duration:      derefFloat(doc.Duration),
		}
	}

	*r = rec
	return nil
}

// CheckRating returns a *ValidationError when a present rating is outside [0,5]
func CheckRating(field string, rating *int) error {
	if rating == nil {
		return nil
	}
	if *rating < MinRating || *rating > MaxRating {
		return &ValidationError{
			Field:   field,
			Message: "must be between " + strconv.Itoa(MinRating) + " and " + strconv.Itoa(MaxRating),
		}
	}
	return nil
}

// SeasonTitle is the display title of a season with no explicit title
func SeasonTitle(number int) string {
	return "Season " + strconv.Itoa(number)
}

func derefInt(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

func derefFloat(p *float64) float64 {
	if p == nil {
		return 0
	}
	return *p
}
