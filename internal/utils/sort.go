package utils

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/amaumene/gowatch/internal/models"
)

// Sortable fields
const (
	FieldTitle       = "title"
	FieldYear        = "year"
	FieldDirector    = "director"
	FieldKind        = "kind"
	FieldGenre       = "genre"
	FieldDateAdded   = "dateAdded"
	FieldDateWatched = "dateWatched"
	FieldXRating     = "xRating"
	FieldYRating     = "yRating"
)

// SortFields lists the fields a view can be sorted on
var SortFields = []string{
	FieldTitle, FieldYear, FieldDirector, FieldKind, FieldGenre,
	FieldDateAdded, FieldDateWatched, FieldXRating, FieldYRating,
}

// IsSortField reports whether field is a known sort field
func IsSortField(field string) bool {
	for _, f := range SortFields {
		if f == field {
			return true
		}
	}
	return false
}

// SortState is the column/direction pair of a table view
type SortState struct {
	Field     string               `json:"field"`
	Direction models.SortDirection `json:"direction"`
}

// Toggle selects field. Selecting the current field flips the direction,
// selecting another one resets it to ascending.
func (s *SortState) Toggle(field string) {
	if s.Field == field {
		if s.Direction == models.SortAsc {
			s.Direction = models.SortDesc
		} else {
			s.Direction = models.SortAsc
		}
		return
	}
	s.Field = field
	s.Direction = models.SortAsc
}

// SortRecords returns a stably sorted copy of records.
//
// Ratings and year compare as numbers (missing or unparseable = 0), dates as
// calendar dates (missing = earliest), everything else as case-sensitive
// strings (missing = "").
func SortRecords(records []models.Record, field string, dir models.SortDirection) []models.Record {
	sorted := make([]models.Record, len(records))
	copy(sorted, records)

	sort.SliceStable(sorted, func(i, j int) bool {
		c := CompareRecords(sorted[i], sorted[j], field)
		if dir == models.SortDesc {
			return c > 0
		}
		return c < 0
	})

	return sorted
}

// CompareRecords orders a and b on field, returning -1, 0 or 1
func CompareRecords(a, b models.Record, field string) int {
	switch field {
	case FieldXRating:
		return compareFloat(ratingValue(a.XRating), ratingValue(b.XRating))
	case FieldYRating:
		return compareFloat(ratingValue(a.YRating), ratingValue(b.YRating))
	case FieldYear:
		return compareFloat(LeadingNumber(a.Year), LeadingNumber(b.Year))
	case FieldDateAdded:
		return a.DateAdded.Compare(b.DateAdded)
	case FieldDateWatched:
		return watchedDate(a).Compare(watchedDate(b))
	default:
		return strings.Compare(stringField(a, field), stringField(b, field))
	}
}

func stringField(r models.Record, field string) string {
	switch field {
	case FieldTitle:
		return r.Title
	case FieldDirector:
		return r.Director
	case FieldKind:
		return string(r.Kind)
	case FieldGenre:
		return r.Genre
	}
	return ""
}

func ratingValue(p *int) float64 {
	if p == nil {
		return 0
	}
	return float64(*p)
}

func watchedDate(r models.Record) models.Date {
	if r.DateWatched == nil {
		return models.Date{}
	}
	return *r.DateWatched
}

func compareFloat(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

var leadingNumberRegex = regexp.MustCompile(`^\s*[-+]?(\d+(\.\d*)?|\.\d+)`)

// LeadingNumber parses the numeric prefix of s ("2008-2013" -> 2008).
// Returns 0 if s does not start with a number.
func LeadingNumber(s string) float64 {
	match := leadingNumberRegex.FindString(s)
	if match == "" {
		return 0
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(match), 64)
	if err != nil {
		return 0
	}
	return v
}
