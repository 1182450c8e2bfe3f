package models

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := NewDatabase(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestDatabaseSaveLoadKeepsOrder(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	added := Date{Year: 2024, Month: time.May, Day: 1}
	records := []Record{
		{ID: "z", Kind: KindMovie, Title: "Zodiac", DateAdded: added, Movie: &MovieDetails{Duration: 2.6}},
		{ID: "a", Kind: KindShow, Title: "Atlanta", DateAdded: added, Show: &ShowDetails{TotalSeasons: 4}},
		{ID: "m", Kind: KindEpisode, Title: "Pilot", DateAdded: added, XRating: IntPtr(0),
			Episode: &EpisodeDetails{ShowRef: "a", SeasonNumber: 1, EpisodeNumber: 1}},
	}
	require.NoError(t, db.Save(ctx, records))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, records, loaded)
	require.NotNil(t, loaded[2].XRating, "a 0 rating survives a reload")
	assert.Equal(t, 0, *loaded[2].XRating)
}

func TestDatabaseSaveReplaces(t *testing.T) {
	db := openTestDatabase(t)
	ctx := context.Background()

	added := Date{Year: 2024, Month: time.May, Day: 1}
	require.NoError(t, db.Save(ctx, []Record{
		{ID: "a", Kind: KindMovie, Title: "A", DateAdded: added, Movie: &MovieDetails{}},
		{ID: "b", Kind: KindMovie, Title: "B", DateAdded: added, Movie: &MovieDetails{}},
	}))
	require.NoError(t, db.Save(ctx, []Record{
		{ID: "b", Kind: KindMovie, Title: "B", DateAdded: added, Movie: &MovieDetails{}},
	}))

	loaded, err := db.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded, 1)
	assert.Equal(t, "b", loaded[0].ID)
}

func TestDatabaseEmpty(t *testing.T) {
	db := openTestDatabase(t)

	loaded, err := db.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, loaded)
}
