package controllers

import (
	"strconv"

	"github.com/amaumene/gowatch/internal/models"
)

// Statistics summarizes the whole store
type Statistics struct {
	TotalMovies   int            `json:"total_movies"`
	TotalShows    int            `json:"total_shows"`
	WatchedMovies int            `json:"watched_movies"`
	WatchedShows  int            `json:"watched_shows"`
	WatchHours    string         `json:"watch_hours"`  // one decimal
	AvgXRating    string         `json:"avg_x_rating"` // one decimal, "0.0" when nothing is rated
	AvgYRating    string         `json:"avg_y_rating"`
	RecordsByKind map[string]int `json:"records_by_kind"`
}

// ComputeStatistics aggregates counts, watch time and rating averages.
//
// Watch time sums the duration of watched movies and episodes. Each rating
// average only counts watched records that carry that rating.
func ComputeStatistics(records []models.Record) Statistics {
	stats := Statistics{
		RecordsByKind: make(map[string]int),
	}

	var hours float64
	var xSum, ySum float64
	var xCount, yCount int

	for i := range records {
		r := &records[i]
		stats.RecordsByKind[string(r.Kind)]++

		switch r.Kind {
		case models.KindMovie:
			stats.TotalMovies++
			if r.Watched() {
				stats.WatchedMovies++
			}
		case models.KindShow:
			stats.TotalShows++
			if r.Watched() {
				stats.WatchedShows++
			}
		}

		if !r.Watched() {
			continue
		}
		if r.Kind == models.KindMovie || r.Kind == models.KindEpisode {
			hours += r.Duration()
		}
		if r.XRating != nil {
			xSum += float64(*r.XRating)
			xCount++
		}
		if r.YRating != nil {
			ySum += float64(*r.YRating)
			yCount++
		}
	}

	stats.WatchHours = oneDecimal(hours)
	stats.AvgXRating = average(xSum, xCount)
	stats.AvgYRating = average(ySum, yCount)
	return stats
}

func average(sum float64, count int) string {
	if count == 0 {
		return "0.0"
	}
	return oneDecimal(sum / float64(count))
}

func oneDecimal(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}
