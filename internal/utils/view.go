package utils

import "github.com/amaumene/gowatch/internal/models"

// ViewQuery describes a table view: a search string and an optional sort
type ViewQuery struct {
	Query string
	Sort  SortState
}

// BuildView filters then sorts records. Views are disposable and rebuilt from
// the canonical list on every call.
func BuildView(records []models.Record, q ViewQuery) []models.Record {
	view := FilterRecords(records, q.Query)
	if q.Sort.Field == "" {
		return view
	}
	dir := q.Sort.Direction
	if dir == "" {
		dir = models.SortAsc
	}
	return SortRecords(view, q.Sort.Field, dir)
}
