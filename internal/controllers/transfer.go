package controllers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/amaumene/gowatch/internal/store"
	"github.com/sirupsen/logrus"
)

// ImportResult reports what an import kept and what it skipped
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Warnings []string `json:"warnings,omitempty"`
}

// TransferController exports the store as JSON and imports such files back
type TransferController struct {
	store  *store.Store
	logger *logrus.Logger
	now    func() time.Time
}

// NewTransferController creates a new transfer controller
func NewTransferController(st *store.Store, logger *logrus.Logger) *TransferController {
	return &TransferController{
		store:  st,
		logger: logger,
		now:    time.Now,
	}
}

// Export writes every record as an indented JSON array
func (c *TransferController) Export(w io.Writer) error {
	if err := c.store.Ready(); err != nil {
		return err
	}

	records := c.store.Snapshot()
	if records == nil {
		records = []models.Record{}
	}

	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(records); err != nil {
		return fmt.Errorf("failed to encode records: %w", err)
	}

	c.logger.WithField("count", len(records)).Debug("Records exported")
	return nil
}

// ExportFile writes an export to path, replacing it atomically
func (c *TransferController) ExportFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".export-*.json")
	if err != nil {
		return fmt.Errorf("failed to create export file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := c.Export(tmp); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to write export file: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("failed to move export file: %w", err)
	}
	return nil
}

// Import replaces the store with the records in data, a JSON array as written
// by Export. Entries without an id, a title or a kind are skipped with a
// warning, as are seasons and episodes whose parent is not in the file. A
// document that is not a JSON array aborts the whole import.
func (c *TransferController) Import(ctx context.Context, data []byte) (*ImportResult, error) {
	var entries []json.RawMessage
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, &models.ParseError{Source: "import file", Err: err}
	}
	if entries == nil {
		return nil, &models.ParseError{Source: "import file", Err: errors.New("expected a JSON array of records")}
	}

	result := &ImportResult{}
	records := make([]models.Record, 0, len(entries))
	positions := make([]int, 0, len(entries))
	seen := make(map[string]bool, len(entries))
	today := models.NewDate(c.now())

	skip := func(i int, format string, args ...any) {
		msg := fmt.Sprintf("entry %d: ", i+1) + fmt.Sprintf(format, args...)
		result.Warnings = append(result.Warnings, msg)
		result.Skipped++
		c.logger.WithField("warning", msg).Warn("Skipping invalid item")
	}

	for i, raw := range entries {
		if missing := missingFields(raw); len(missing) > 0 {
			skip(i, "missing %s", strings.Join(missing, ", "))
			continue
		}

		var rec models.Record
		if err := json.Unmarshal(raw, &rec); err != nil {
			skip(i, "%v", err)
			continue
		}
		if seen[rec.ID] {
			skip(i, "duplicate id %s", rec.ID)
			continue
		}
		if rec.DateAdded.IsZero() {
			rec.DateAdded = today
		}

		seen[rec.ID] = true
		records = append(records, rec)
		positions = append(positions, i)
	}

	// Parents are checked among the kept entries: seasons need a show, then
	// episodes need a show or a kept season.
	kinds := make(map[string]models.Kind, len(records))
	for _, rec := range records {
		kinds[rec.ID] = rec.Kind
	}
	keep := func(want models.Kind, parents ...models.Kind) {
		kept := records[:0]
		keptPos := positions[:0]
		for j, rec := range records {
			if rec.Kind == want && !hasKind(kinds[rec.ShowRef()], parents) {
				skip(positions[j], "unknown %s %q", parentLabel(want), rec.ShowRef())
				delete(kinds, rec.ID)
				continue
			}
			kept = append(kept, rec)
			keptPos = append(keptPos, positions[j])
		}
		records, positions = kept, keptPos
	}
	keep(models.KindSeason, models.KindShow)
	keep(models.KindEpisode, models.KindShow, models.KindSeason)

	if err := c.store.Replace(ctx, records); err != nil {
		return nil, err
	}

	result.Imported = len(records)
	c.logger.WithFields(logrus.Fields{
		"imported": result.Imported,
		"skipped":  result.Skipped,
	}).Info("Import completed")
	return result, nil
}

func hasKind(k models.Kind, kinds []models.Kind) bool {
	for _, want := range kinds {
		if k == want {
			return true
		}
	}
	return false
}

func parentLabel(k models.Kind) string {
	if k == models.KindEpisode {
		return "show or season"
	}
	return "show"
}

// missingFields lists which of id, title/name and kind/type an entry lacks
func missingFields(raw json.RawMessage) []string {
	var probe struct {
		ID    any `json:"id"`
		Title any `json:"title"`
		Name  any `json:"name"`
		Kind  any `json:"kind"`
		Type  any `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return []string{"id", "title", "kind"}
	}

	var missing []string
	if blank(probe.ID) {
		missing = append(missing, "id")
	}
	if blank(probe.Title) && blank(probe.Name) {
		missing = append(missing, "title")
	}
	if blank(probe.Kind) && blank(probe.Type) {
		missing = append(missing, "kind")
	}
	return missing
}

func blank(v any) bool {
	s, ok := v.(string)
	return !ok || strings.TrimSpace(s) == ""
}
