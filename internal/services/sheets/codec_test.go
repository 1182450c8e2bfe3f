package sheets

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleEnvelope = `{
  "movies": [
    {"MovieId": 1, "Title": "Alien", "Year": 1979, "Director": "Ridley Scott", "Genre": "Sci-Fi",
     "Date Added": "01/02/2024", "Date Watched": "03/02/2024", "Duration": 1.95, "X Rating": 5, "Y Rating": ""},
    {"MovieId": "", "Title": "No id"}
  ],
  "shows": [
    {"ShowId": 7, "Title": "Dark", "Year Range": "2017-2020", "Director": "Baran bo Odar", "Genre": "Drama",
     "Date Added": "5/1/2024", "Date Finished": "", "Total Seasons": 3, "Total Episodes": 26}
  ],
  "seasons": [
    {"ShowId": 7, "Season #": 1, "Date Added": "05/01/2024", "Total Episodes": 10, "X Rating": 4},
    {"ShowId": 99, "Season #": 1, "Date Added": "05/01/2024"}
  ],
  "episodes": [
    {"ShowId": 7, "Season #": 1, "Episode #": 2, "Title": "Lies", "Date Added": "06/01/2024",
     "Date Watched": "07/01/2024", "Duration": 0.9, "Y Rating": 9}
  ]
}`

func decodeSample(t *testing.T) ([]models.Record, []string) {
	t.Helper()
	var env Envelope
	require.NoError(t, json.Unmarshal([]byte(sampleEnvelope), &env))
	return DecodeEnvelope(&env, models.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)))
}

func TestDecodeEnvelope(t *testing.T) {
	records, warnings := decodeSample(t)

	ids := make([]string, len(records))
	for i, r := range records {
		ids[i] = r.ID
	}
	assert.Equal(t, []string{"show-7", "movie-1", "season-7-1", "episode-7-1-2"}, ids)
	assert.Len(t, warnings, 3, "missing movie id, unknown show, out of range rating")

	show := records[0]
	assert.Equal(t, models.KindShow, show.Kind)
	assert.Equal(t, "2017-2020", show.Year)
	assert.Equal(t, "05/01/2024", show.DateAdded.Stored())
	assert.False(t, show.Watched())
	require.NotNil(t, show.Show)
	assert.Equal(t, 3, show.Show.TotalSeasons)

	movie := records[1]
	assert.Equal(t, "1979", movie.Year)
	assert.Equal(t, 1.95, movie.Duration())
	require.NotNil(t, movie.XRating)
	assert.Equal(t, 5, *movie.XRating)
	assert.Nil(t, movie.YRating, "empty cell is unrated, not zero")
	require.True(t, movie.Watched())
	assert.Equal(t, "03/02/2024", movie.DateWatched.Stored())

	season := records[2]
	assert.Equal(t, "Season 1", season.Title)
	assert.Equal(t, "show-7", season.ShowRef())
	assert.Equal(t, "Drama", season.Genre, "inherited from the show")
	assert.Equal(t, "2017-2020", season.Year)

	episode := records[3]
	assert.Equal(t, "Lies", episode.Title)
	assert.Equal(t, "show-7", episode.ShowRef())
	assert.Equal(t, 1, episode.SeasonNumber())
	assert.Nil(t, episode.YRating)
}

func TestDecodeEnvelopeMissingDateAdded(t *testing.T) {
	env := &Envelope{Movies: []Row{{"MovieId": "m1", "Title": "Heat"}}}
	today := models.NewDate(time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC))

	records, warnings := DecodeEnvelope(env, today)

	require.Len(t, records, 1)
	assert.Equal(t, today, records[0].DateAdded)
	assert.Len(t, warnings, 1)
}

func TestEncodeEnvelope(t *testing.T) {
	records, _ := decodeSample(t)

	// A season-linked episode still resolves to its show
	records = append(records, models.Record{
		ID:        "episode-local",
		Kind:      models.KindEpisode,
		Title:     "Secrets",
		DateAdded: models.NewDate(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)),
		Episode:   &models.EpisodeDetails{ShowRef: "season-7-1", SeasonNumber: 1, EpisodeNumber: 1},
	}, models.Record{
		ID:        "season-orphan",
		Kind:      models.KindSeason,
		Title:     "Season 2",
		DateAdded: models.NewDate(time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)),
		Season:    &models.SeasonDetails{ShowRef: "show-missing", SeasonNumber: 2},
	})

	env, warnings := EncodeEnvelope(records)

	assert.Len(t, warnings, 1)
	require.Len(t, env.Movies, 1)
	require.Len(t, env.Shows, 1)
	require.Len(t, env.Seasons, 1)
	require.Len(t, env.Episodes, 2)

	movie := env.Movies[0]
	assert.Equal(t, 1, movie[colMovieID])
	assert.Equal(t, "Movie", movie[colType])
	assert.Equal(t, "01/02/2024", movie[colDateAdded])
	assert.Equal(t, 5, movie[colXRating])
	assert.Equal(t, "", movie[colYRating])

	show := env.Shows[0]
	assert.Equal(t, 7, show[colShowID])
	assert.Equal(t, "", show[colDateFinished])

	_, hasTitle := env.Seasons[0][colTitle]
	assert.False(t, hasTitle, "default season title is not written back")

	assert.Equal(t, 7, env.Episodes[1][colShowID])
	assert.Equal(t, 1, env.Episodes[1][colEpisodeNumber])
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	records, _ := decodeSample(t)

	env, warnings := EncodeEnvelope(records)
	require.Empty(t, warnings)

	// Go through JSON, as the remote would
	data, err := json.Marshal(env)
	require.NoError(t, err)
	var decoded Envelope
	require.NoError(t, json.Unmarshal(data, &decoded))

	again, warnings := DecodeEnvelope(&decoded, models.Today())
	require.Empty(t, warnings)
	assert.Equal(t, records, again)
}

func TestEnvelopeErrorMessage(t *testing.T) {
	assert.Equal(t, "", (&Envelope{}).ErrorMessage())
	assert.Equal(t, "sheet locked", (&Envelope{Error: "sheet locked"}).ErrorMessage())
	assert.Equal(t, "unknown error", (&Envelope{Error: true}).ErrorMessage())
}
