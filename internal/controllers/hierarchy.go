package controllers

import (
	"fmt"
	"sort"

	"github.com/amaumene/gowatch/internal/models"
)

// ShowHierarchy is a show with its seasons and episodes resolved
type ShowHierarchy struct {
	Show    models.Record   `json:"show"`
	Seasons []SeasonNode    `json:"seasons"`
	Orphans []models.Record `json:"orphans"` // episodes of the show with no matching season
}

// SeasonNode is a season with its episodes ordered by episode number
type SeasonNode struct {
	Season   models.Record   `json:"season"`
	Episodes []models.Record `json:"episodes"`
}

// ResolveHierarchy rebuilds the season/episode tree of a show from foreign keys.
//
// An episode belongs to a season when its showRef is the season id, or when
// its showRef is the show id and its season number matches. The direct
// season link wins when both would apply.
func ResolveHierarchy(records []models.Record, showID string) (*ShowHierarchy, error) {
	var show *models.Record
	for i := range records {
		if records[i].ID == showID && records[i].Kind == models.KindShow {
			show = &records[i]
			break
		}
	}
	if show == nil {
		return nil, fmt.Errorf("%w: show %s", models.ErrNotFound, showID)
	}

	result := &ShowHierarchy{
		Show:    show.Clone(),
		Seasons: []SeasonNode{},
		Orphans: []models.Record{},
	}

	for _, r := range records {
		if r.Kind == models.KindSeason && r.ShowRef() == showID {
			result.Seasons = append(result.Seasons, SeasonNode{
				Season:   r.Clone(),
				Episodes: []models.Record{},
			})
		}
	}
	sort.SliceStable(result.Seasons, func(i, j int) bool {
		return result.Seasons[i].Season.SeasonNumber() < result.Seasons[j].Season.SeasonNumber()
	})

	byID := make(map[string]int, len(result.Seasons))
	byNumber := make(map[int]int, len(result.Seasons))
	for i, node := range result.Seasons {
		byID[node.Season.ID] = i
		// First season in order keeps a duplicated number
		if _, taken := byNumber[node.Season.SeasonNumber()]; !taken {
			byNumber[node.Season.SeasonNumber()] = i
		}
	}

	for _, r := range records {
		if r.Kind != models.KindEpisode {
			continue
		}
		ref := r.ShowRef()

		if idx, ok := byID[ref]; ok {
			result.Seasons[idx].Episodes = append(result.Seasons[idx].Episodes, r.Clone())
			continue
		}
		if ref != showID {
			continue
		}
		if idx, ok := byNumber[r.SeasonNumber()]; ok {
			result.Seasons[idx].Episodes = append(result.Seasons[idx].Episodes, r.Clone())
			continue
		}
		result.Orphans = append(result.Orphans, r.Clone())
	}

	for i := range result.Seasons {
		sortEpisodes(result.Seasons[i].Episodes)
	}
	sortEpisodes(result.Orphans)

	return result, nil
}

func sortEpisodes(episodes []models.Record) {
	sort.SliceStable(episodes, func(i, j int) bool {
		return episodes[i].EpisodeNumber() < episodes[j].EpisodeNumber()
	})
}
