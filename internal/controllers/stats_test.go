package controllers

import (
	"testing"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/stretchr/testify/assert"
)

func watched(r models.Record) models.Record {
	r.DateWatched = models.DatePtr(models.Date{Year: 2024, Month: time.February, Day: 1})
	return r
}

func TestComputeStatisticsEmpty(t *testing.T) {
	stats := ComputeStatistics(nil)

	assert.Equal(t, 0, stats.TotalMovies)
	assert.Equal(t, "0.0", stats.WatchHours)
	assert.Equal(t, "0.0", stats.AvgXRating)
	assert.Equal(t, "0.0", stats.AvgYRating)
}

func TestComputeStatisticsRatingAverage(t *testing.T) {
	m1 := watched(movieRec("m1"))
	m1.XRating = models.IntPtr(5)
	m2 := watched(movieRec("m2"))
	m2.XRating = models.IntPtr(3)
	m3 := movieRec("m3") // rated but not watched
	m3.XRating = models.IntPtr(1)

	stats := ComputeStatistics([]models.Record{m1, m2, m3})

	assert.Equal(t, "4.0", stats.AvgXRating)
	assert.Equal(t, "0.0", stats.AvgYRating)
	assert.Equal(t, 3, stats.TotalMovies)
	assert.Equal(t, 2, stats.WatchedMovies)
}

func TestComputeStatisticsZeroRatingCounts(t *testing.T) {
	m1 := watched(movieRec("m1"))
	m1.YRating = models.IntPtr(0)
	m2 := watched(movieRec("m2"))
	m2.YRating = models.IntPtr(3)

	stats := ComputeStatistics([]models.Record{m1, m2})
	assert.Equal(t, "1.5", stats.AvgYRating)
}

func TestComputeStatisticsWatchHours(t *testing.T) {
	m := watched(movieRec("m"))
	m.Movie.Duration = 2
	ep := watched(episodeRec("ep", "show", 1, 1))
	ep.Episode.Duration = 0.5
	unwatched := episodeRec("ep2", "show", 1, 2)
	unwatched.Episode.Duration = 10
	s := watched(showRec("show"))

	stats := ComputeStatistics([]models.Record{m, ep, unwatched, s})

	assert.Equal(t, "2.5", stats.WatchHours)
	assert.Equal(t, 1, stats.TotalShows)
	assert.Equal(t, 1, stats.WatchedShows)
	assert.Equal(t, map[string]int{"Movie": 1, "Episode": 2, "Show": 1}, stats.RecordsByKind)
}
