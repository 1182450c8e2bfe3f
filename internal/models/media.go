package models

import (
	"strconv"
	"strings"
)

// Record is one watchlist entry. Exactly one of Movie, Show, Season or
// Episode is set, matching Kind.
type Record struct {
	ID    string
	Kind  Kind
	Title string
	Year  string // free-form: "1999" or "2008-2013"

	Director string
	Genre    string

	DateAdded   Date
	DateWatched *Date // nil = not watched

	// nil = unrated, which is different from a rating of 0
	XRating *int
	YRating *int

	Movie   *MovieDetails
	Show    *ShowDetails
	Season  *SeasonDetails
	Episode *EpisodeDetails
}

// MovieDetails holds the movie-only fields
type MovieDetails struct {
	Duration float64 // hours
}

// ShowDetails holds the show-only fields
type ShowDetails struct {
	TotalSeasons  int
	TotalEpisodes int
}

// SeasonDetails holds the season-only fields
type SeasonDetails struct {
	ShowRef       string // id of the parent Show
	SeasonNumber  int
	TotalEpisodes int
}

// EpisodeDetails holds the episode-only fields
type EpisodeDetails struct {
	ShowRef       string // id of the parent Show or Season
	SeasonNumber  int
	EpisodeNumber int
	Duration      float64 // hours
}

// Watched reports whether a watch date is set
func (r *Record) Watched() bool {
	return r.DateWatched != nil && !r.DateWatched.IsZero()
}

// ShowRef returns the parent reference of a Season or Episode, "" otherwise
func (r *Record) ShowRef() string {
	switch r.Kind {
	case KindSeason:
		if r.Season != nil {
			return r.Season.ShowRef
		}
	case KindEpisode:
		if r.Episode != nil {
			return r.Episode.ShowRef
		}
	}
	return ""
}

// SeasonNumber returns the season number of a Season or Episode, 0 otherwise
func (r *Record) SeasonNumber() int {
	switch r.Kind {
	case KindSeason:
		if r.Season != nil {
			return r.Season.SeasonNumber
		}
	case KindEpisode:
		if r.Episode != nil {
			return r.Episode.SeasonNumber
		}
	}
	return 0
}

// EpisodeNumber returns the episode number of an Episode, 0 otherwise
func (r *Record) EpisodeNumber() int {
	if r.Kind == KindEpisode && r.Episode != nil {
		return r.Episode.EpisodeNumber
	}
	return 0
}

// Duration returns the runtime in hours of a Movie or Episode, 0 otherwise
func (r *Record) Duration() float64 {
	switch r.Kind {
	case KindMovie:
		if r.Movie != nil {
			return r.Movie.Duration
		}
	case KindEpisode:
		if r.Episode != nil {
			return r.Episode.Duration
		}
	}
	return 0
}

// Normalize clears every kind payload that does not belong to Kind and
// allocates the one that does.
func (r *Record) Normalize() {
	movie, show, season, episode := r.Movie, r.Show, r.Season, r.Episode
	r.Movie, r.Show, r.Season, r.Episode = nil, nil, nil, nil

	switch r.Kind {
	case KindMovie:
		r.Movie = movie
		if r.Movie == nil {
			r.Movie = &MovieDetails{}
		}
	case KindShow:
		r.Show = show
		if r.Show == nil {
			r.Show = &ShowDetails{}
		}
	case KindSeason:
		r.Season = season
		if r.Season == nil {
			r.Season = &SeasonDetails{}
		}
	case KindEpisode:
		r.Episode = episode
		if r.Episode == nil {
			r.Episode = &EpisodeDetails{}
		}
	}
}

// Clone returns a deep copy of the record
func (r Record) Clone() Record {
	c := r
	if r.DateWatched != nil {
		d := *r.DateWatched
		c.DateWatched = &d
	}
	c.XRating = cloneInt(r.XRating)
	c.YRating = cloneInt(r.YRating)
	if r.Movie != nil {
		m := *r.Movie
		c.Movie = &m
	}
	if r.Show != nil {
		s := *r.Show
		c.Show = &s
	}
	if r.Season != nil {
		s := *r.Season
		c.Season = &s
	}
	if r.Episode != nil {
		e := *r.Episode
		c.Episode = &e
	}
	return c
}

// CloneRecords deep-copies a record list
func CloneRecords(records []Record) []Record {
	out := make([]Record, len(records))
	for i := range records {
		out[i] = records[i].Clone()
	}
	return out
}

func cloneInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// IntPtr returns a pointer to v
func IntPtr(v int) *int {
	return &v
}

// DatePtr returns a pointer to d
func DatePtr(d Date) *Date {
	return &d
}

// Id prefixes of each kind
const (
	MoviePrefix   = "movie-"
	ShowPrefix    = "show-"
	SeasonPrefix  = "season-"
	EpisodePrefix = "episode-"
)

// ShowKey is the show id without its prefix, as stored in the ShowId column
func ShowKey(showID string) string {
	return strings.TrimPrefix(showID, ShowPrefix)
}

// SeasonID is the id of season number of the show showID. Seasons are
// identified by their position in the hierarchy so the id survives a round
// trip through the sheet, which has no id column for them.
func SeasonID(showID string, number int) string {
	return SeasonPrefix + ShowKey(showID) + "-" + strconv.Itoa(number)
}

// EpisodeID is the id of episode number of season of the show showID
func EpisodeID(showID string, season, number int) string {
	return EpisodePrefix + ShowKey(showID) + "-" + strconv.Itoa(season) + "-" + strconv.Itoa(number)
}
