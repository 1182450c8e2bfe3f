package controllers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/amaumene/gowatch/internal/utils"
	"github.com/stretchr/testify/require"
)

type memBackend struct {
	mu      sync.Mutex
	records []models.Record
	failErr error
}

func (b *memBackend) Load(ctx context.Context) ([]models.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return nil, b.failErr
	}
	return models.CloneRecords(b.records), nil
}

func (b *memBackend) Save(ctx context.Context, records []models.Record) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.records = models.CloneRecords(records)
	return nil
}

func (b *memBackend) setFail(err error) {
	b.mu.Lock()
	b.failErr = err
	b.mu.Unlock()
}

func newStore(t *testing.T, records ...models.Record) (*store.Store, *memBackend) {
	t.Helper()
	backend := &memBackend{records: records}
	st := store.New(backend, utils.NewDiscardLogger())
	require.NoError(t, st.Load(context.Background()))
	return st, backend
}

var jan1 = models.Date{Year: 2024, Month: time.January, Day: 1}

func movieRec(id string) models.Record {
	return models.Record{ID: id, Kind: models.KindMovie, Title: id, DateAdded: jan1, Movie: &models.MovieDetails{}}
}

func showRec(id string) models.Record {
	return models.Record{ID: id, Kind: models.KindShow, Title: id, DateAdded: jan1, Show: &models.ShowDetails{}}
}

func seasonRec(id, showRef string, n int) models.Record {
	return models.Record{ID: id, Kind: models.KindSeason, Title: models.SeasonTitle(n), DateAdded: jan1,
		Season: &models.SeasonDetails{ShowRef: showRef, SeasonNumber: n}}
}

func episodeRec(id, ref string, s, e int) models.Record {
	return models.Record{ID: id, Kind: models.KindEpisode, Title: id, DateAdded: jan1,
		Episode: &models.EpisodeDetails{ShowRef: ref, SeasonNumber: s, EpisodeNumber: e}}
}

func recordIDs(records []models.Record) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}
