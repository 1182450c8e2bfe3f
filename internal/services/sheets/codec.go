package sheets

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/amaumene/gowatch/internal/models"
)

// Row is one spreadsheet row keyed by column header
type Row map[string]any

// Envelope is the body of both the getAllData response and the push request
type Envelope struct {
	Movies   []Row `json:"movies"`
	Shows    []Row `json:"shows"`
	Seasons  []Row `json:"seasons"`
	Episodes []Row `json:"episodes"`
	Error    any   `json:"error,omitempty"`
}

// ErrorMessage returns the application error carried by the envelope, or ""
func (e *Envelope) ErrorMessage() string {
	switch v := e.Error.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		if v {
			return "unknown error"
		}
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// Column headers used by the sheet
const (
	colMovieID       = "MovieId"
	colShowID        = "ShowId"
	colTitle         = "Title"
	colYear          = "Year"
	colYearRange     = "Year Range"
	colDirector      = "Director"
	colGenre         = "Genre"
	colType          = "Type"
	colDateAdded     = "Date Added"
	colDateWatched   = "Date Watched"
	colDateFinished  = "Date Finished"
	colDuration      = "Duration"
	colTotalSeasons  = "Total Seasons"
	colTotalEpisodes = "Total Episodes"
	colSeasonNumber  = "Season #"
	colEpisodeNumber = "Episode #"
	colXRating       = "X Rating"
	colYRating       = "Y Rating"
)

// DecodeEnvelope turns sheet rows into records. Rows that cannot be placed
// (no id, unknown show, duplicate id) are skipped and reported as warnings.
func DecodeEnvelope(env *Envelope, today models.Date) ([]models.Record, []string) {
	d := &decoder{
		today: today,
		shows: make(map[string]models.Record),
		seen:  make(map[string]bool),
	}

	// Shows first so seasons and episodes can inherit from them
	for i, row := range env.Shows {
		d.show(i, row)
	}
	for i, row := range env.Movies {
		d.movie(i, row)
	}
	for i, row := range env.Seasons {
		d.season(i, row)
	}
	for i, row := range env.Episodes {
		d.episode(i, row)
	}

	return d.records, d.warnings
}

type decoder struct {
	today    models.Date
	shows    map[string]models.Record // keyed by ShowId cell
	seen     map[string]bool
	records  []models.Record
	warnings []string
}

func (d *decoder) warn(format string, args ...any) {
	d.warnings = append(d.warnings, fmt.Sprintf(format, args...))
}

func (d *decoder) add(rec models.Record) {
	if d.seen[rec.ID] {
		d.warn("duplicate id %s skipped", rec.ID)
		return
	}
	d.seen[rec.ID] = true
	d.records = append(d.records, rec)
}

func (d *decoder) common(rec *models.Record, row Row, watchedCol string) {
	rec.Director = cellString(row[colDirector])
	rec.Genre = cellString(row[colGenre])
	rec.DateAdded = d.dateAdded(rec.ID, row)
	rec.DateWatched = d.dateWatched(rec.ID, row, watchedCol)
	rec.XRating = d.rating(rec.ID, row, colXRating)
	rec.YRating = d.rating(rec.ID, row, colYRating)
}

func (d *decoder) show(i int, row Row) {
	showID := cellString(row[colShowID])
	if showID == "" {
		d.warn("shows row %d: missing %s", i+1, colShowID)
		return
	}

	rec := models.Record{
		ID:    models.ShowPrefix + showID,
		Kind:  models.KindShow,
		Title: cellString(row[colTitle]),
		Year:  cellString(row[colYearRange]),
		Show: &models.ShowDetails{
			TotalSeasons:  cellInt(row[colTotalSeasons]),
			TotalEpisodes: cellInt(row[colTotalEpisodes]),
		},
	}
	d.common(&rec, row, colDateFinished)

	d.shows[showID] = rec
	d.add(rec)
}

func (d *decoder) movie(i int, row Row) {
	movieID := cellString(row[colMovieID])
	if movieID == "" {
		d.warn("movies row %d: missing %s", i+1, colMovieID)
		return
	}

	rec := models.Record{
		ID:    models.MoviePrefix + movieID,
		Kind:  models.KindMovie,
		Title: cellString(row[colTitle]),
		Year:  cellString(row[colYear]),
		Movie: &models.MovieDetails{Duration: cellFloat(row[colDuration])},
	}
	d.common(&rec, row, colDateWatched)
	d.add(rec)
}

func (d *decoder) season(i int, row Row) {
	showID := cellString(row[colShowID])
	show, ok := d.shows[showID]
	if !ok {
		d.warn("seasons row %d: unknown show %q", i+1, showID)
		return
	}

	number := cellInt(row[colSeasonNumber])
	rec := models.Record{
		ID:    models.SeasonID(show.ID, number),
		Kind:  models.KindSeason,
		Title: cellString(row[colTitle]),
		Year:  cellString(row[colYearRange]),
		Season: &models.SeasonDetails{
			ShowRef:       show.ID,
			SeasonNumber:  number,
			TotalEpisodes: cellInt(row[colTotalEpisodes]),
		},
	}
	d.common(&rec, row, colDateFinished)
	if rec.Title == "" {
		rec.Title = models.SeasonTitle(number)
	}
	inherit(&rec, show)
	d.add(rec)
}

func (d *decoder) episode(i int, row Row) {
	showID := cellString(row[colShowID])
	show, ok := d.shows[showID]
	if !ok {
		d.warn("episodes row %d: unknown show %q", i+1, showID)
		return
	}

	season := cellInt(row[colSeasonNumber])
	number := cellInt(row[colEpisodeNumber])
	rec := models.Record{
		ID:    models.EpisodeID(show.ID, season, number),
		Kind:  models.KindEpisode,
		Title: cellString(row[colTitle]),
		Episode: &models.EpisodeDetails{
			// Episodes link to the show; the resolver matches them to a
			// season by number.
			ShowRef:       show.ID,
			SeasonNumber:  season,
			EpisodeNumber: number,
			Duration:      cellFloat(row[colDuration]),
		},
	}
	d.common(&rec, row, colDateWatched)
	inherit(&rec, show)
	d.add(rec)
}

// inherit fills the descriptive fields a season or episode row leaves empty
func inherit(rec *models.Record, show models.Record) {
	if rec.Year == "" {
		rec.Year = show.Year
	}
	if rec.Director == "" {
		rec.Director = show.Director
	}
	if rec.Genre == "" {
		rec.Genre = show.Genre
	}
}

func (d *decoder) dateAdded(id string, row Row) models.Date {
	raw := cellString(row[colDateAdded])
	if raw == "" {
		d.warn("%s: missing %s, using today", id, colDateAdded)
		return d.today
	}
	date, err := models.ParseStoredDate(raw)
	if err != nil {
		d.warn("%s: %v, using today", id, err)
		return d.today
	}
	return date
}

func (d *decoder) dateWatched(id string, row Row, col string) *models.Date {
	raw := cellString(row[col])
	if raw == "" {
		return nil
	}
	date, err := models.ParseStoredDate(raw)
	if err != nil {
		d.warn("%s: %v, treating as unwatched", id, err)
		return nil
	}
	return &date
}

func (d *decoder) rating(id string, row Row, col string) *int {
	raw := cellString(row[col])
	if raw == "" {
		return nil
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || f != math.Trunc(f) || f < models.MinRating || f > models.MaxRating {
		d.warn("%s: invalid %s %q ignored", id, col, raw)
		return nil
	}
	return models.IntPtr(int(f))
}

// EncodeEnvelope turns records into sheet rows. Seasons and episodes whose
// show cannot be found are skipped and reported as warnings.
func EncodeEnvelope(records []models.Record) (*Envelope, []string) {
	env := &Envelope{
		Movies:   []Row{},
		Shows:    []Row{},
		Seasons:  []Row{},
		Episodes: []Row{},
	}
	var warnings []string

	byID := make(map[string]*models.Record, len(records))
	for i := range records {
		byID[records[i].ID] = &records[i]
	}

	// showKey returns the ShowId cell of the show above ref
	showKey := func(ref string) (any, bool) {
		parent, ok := byID[ref]
		if ok && parent.Kind == models.KindSeason {
			parent, ok = byID[parent.ShowRef()]
		}
		if !ok || parent.Kind != models.KindShow {
			return nil, false
		}
		return idCell(parent.ID, models.ShowPrefix), true
	}

	for i := range records {
		r := &records[i]
		switch r.Kind {
		case models.KindMovie:
			row := Row{
				colMovieID:     idCell(r.ID, models.MoviePrefix),
				colTitle:       r.Title,
				colYear:        r.Year,
				colDirector:    r.Director,
				colType:        string(models.KindMovie),
				colGenre:       r.Genre,
				colDateAdded:   r.DateAdded.Stored(),
				colDateWatched: watchedCell(r),
				colDuration:    r.Duration(),
			}
			ratingCells(row, r)
			env.Movies = append(env.Movies, row)

		case models.KindShow:
			row := Row{
				colShowID:       idCell(r.ID, models.ShowPrefix),
				colTitle:        r.Title,
				colYearRange:    r.Year,
				colDirector:     r.Director,
				colType:         string(models.KindShow),
				colGenre:        r.Genre,
				colDateAdded:    r.DateAdded.Stored(),
				colDateFinished: watchedCell(r),
			}
			if r.Show != nil {
				row[colTotalSeasons] = r.Show.TotalSeasons
				row[colTotalEpisodes] = r.Show.TotalEpisodes
			}
			ratingCells(row, r)
			env.Shows = append(env.Shows, row)

		case models.KindSeason:
			key, ok := showKey(r.ShowRef())
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%s: parent show %q not found, not pushed", r.ID, r.ShowRef()))
				continue
			}
			row := Row{
				colShowID:       key,
				colSeasonNumber: r.SeasonNumber(),
				colYearRange:    r.Year,
				colDirector:     r.Director,
				colDateAdded:    r.DateAdded.Stored(),
				colDateFinished: watchedCell(r),
			}
			if r.Season != nil {
				row[colTotalEpisodes] = r.Season.TotalEpisodes
			}
			if r.Title != models.SeasonTitle(r.SeasonNumber()) {
				row[colTitle] = r.Title
			}
			ratingCells(row, r)
			env.Seasons = append(env.Seasons, row)

		case models.KindEpisode:
			key, ok := showKey(r.ShowRef())
			if !ok {
				warnings = append(warnings, fmt.Sprintf("%s: parent %q not found, not pushed", r.ID, r.ShowRef()))
				continue
			}
			row := Row{
				colShowID:       key,
				colSeasonNumber: r.SeasonNumber(),
				colTitle:        r.Title,
				colDirector:     r.Director,
				colDateAdded:    r.DateAdded.Stored(),
				colDateWatched:  watchedCell(r),
				colDuration:     r.Duration(),
			}
			if r.Episode != nil {
				row[colEpisodeNumber] = r.Episode.EpisodeNumber
			}
			ratingCells(row, r)
			env.Episodes = append(env.Episodes, row)
		}
	}

	return env, warnings
}

func watchedCell(r *models.Record) string {
	if !r.Watched() {
		return ""
	}
	return r.DateWatched.Stored()
}

// ratingCells writes both ratings; unrated is an empty cell, not 0
func ratingCells(row Row, r *models.Record) {
	row[colXRating] = ""
	row[colYRating] = ""
	if r.XRating != nil {
		row[colXRating] = *r.XRating
	}
	if r.YRating != nil {
		row[colYRating] = *r.YRating
	}
}

// idCell strips the record prefix; numeric keys go back as numbers
func idCell(id, prefix string) any {
	key := strings.TrimPrefix(id, prefix)
	if n, err := strconv.Atoi(key); err == nil {
		return n
	}
	return key
}

func cellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	default:
		return strings.TrimSpace(fmt.Sprint(t))
	}
}

func cellInt(v any) int {
	s := cellString(v)
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return int(f)
	}
	return 0
}

func cellFloat(v any) float64 {
	f, err := strconv.ParseFloat(cellString(v), 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
