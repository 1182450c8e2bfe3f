package utils

import (
	"strings"

	"github.com/amaumene/gowatch/internal/models"
	"golang.org/x/text/cases"
)

// FilterRecords keeps the records whose title, director, genre, kind or year
// contain query, ignoring case. An empty query returns every record in the
// original order.
func FilterRecords(records []models.Record, query string) []models.Record {
	out := make([]models.Record, 0, len(records))
	if strings.TrimSpace(query) == "" {
		return append(out, records...)
	}

	folder := cases.Fold()
	needle := folder.String(query)

	for _, r := range records {
		if matches(folder, r, needle) {
			out = append(out, r)
		}
	}
	return out
}

func matches(folder cases.Caser, r models.Record, needle string) bool {
	for _, field := range []string{r.Title, r.Director, r.Genre, string(r.Kind), r.Year} {
		if field == "" {
			continue
		}
		if strings.Contains(folder.String(field), needle) {
			return true
		}
	}
	return false
}
