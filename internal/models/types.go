package models

import "strings"

// Kind represents the variant of a watchlist record
type Kind string

const (
	KindMovie   Kind = "Movie"
	KindShow    Kind = "Show"
	KindSeason  Kind = "Season"
	KindEpisode Kind = "Episode"
)

// Kinds lists every record kind in display order
var Kinds = []Kind{KindMovie, KindShow, KindSeason, KindEpisode}

// ParseKind resolves a kind name case-insensitively ("movie", "Movie", "MOVIE")
func ParseKind(s string) (Kind, bool) {
	for _, k := range Kinds {
		if strings.EqualFold(strings.TrimSpace(s), string(k)) {
			return k, true
		}
	}
	return "", false
}

// Valid reports whether k is one of the four known kinds
func (k Kind) Valid() bool {
	switch k {
	case KindMovie, KindShow, KindSeason, KindEpisode:
		return true
	}
	return false
}

// Rating bounds
const (
	MinRating = 0
	MaxRating = 5
)

// SortDirection is the ordering applied to a view
type SortDirection string

const (
	SortAsc  SortDirection = "asc"
	SortDesc SortDirection = "desc"
)
