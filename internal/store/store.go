// Package store owns the canonical in-memory list of watchlist records and
// keeps it in step with a persistence backend.
package store

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/amaumene/gowatch/internal/models"
	"github.com/sirupsen/logrus"
)

// Backend persists the full record list
type Backend interface {
	Load(ctx context.Context) ([]models.Record, error)
	Save(ctx context.Context, records []models.Record) error
}

// ErrNotLoaded is returned for writes before the list was ever loaded
var ErrNotLoaded = errors.New("records have not been loaded from the backend")

// Store is the single owner of the canonical record list.
//
// Writers are serialized by writeMu, which is held across backend I/O.
// A mutation is applied to a copy, persisted, and only then swapped in
// under mu, so readers always see the last fully-saved list.
type Store struct {
	backend Backend
	logger  *logrus.Logger

	writeMu  sync.Mutex
	mu       sync.RWMutex
	records  []models.Record
	version  uint64
	loaded   bool
	onCommit func([]models.Record)
}

// New creates an empty store on top of backend
func New(backend Backend, logger *logrus.Logger) *Store {
	return &Store{
		backend: backend,
		logger:  logger,
	}
}

// Load replaces the in-memory list with the backend contents. On failure the
// previous list is kept.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	records, err := s.backend.Load(ctx)
	if err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}
	if err := checkUniqueIDs(records); err != nil {
		return fmt.Errorf("failed to load records: %w", err)
	}

	s.commit(records)
	s.logger.WithField("count", len(records)).Info("Records loaded")
	return nil
}

// Save writes the current list to the backend without changing it
func (s *Store) Save(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.Ready(); err != nil {
		return err
	}

	current := s.Snapshot()
	if err := s.backend.Save(ctx, current); err != nil {
		return fmt.Errorf("failed to save records: %w", err)
	}
	s.logger.WithField("count", len(current)).Debug("Records saved")
	return nil
}

// Upsert inserts rec at the end of the list, or replaces the record with the
// same id in place.
func (s *Store) Upsert(ctx context.Context, rec models.Record) error {
	if rec.ID == "" {
		return &models.ValidationError{Field: "id", Message: "is required"}
	}

	return s.mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		for i := range records {
			if records[i].ID == rec.ID {
				records[i] = rec.Clone()
				return records, nil
			}
		}
		return append(records, rec.Clone()), nil
	})
}

// Insert adds rec, failing with ErrDuplicateID if the id is taken
func (s *Store) Insert(ctx context.Context, rec models.Record) error {
	if rec.ID == "" {
		return &models.ValidationError{Field: "id", Message: "is required"}
	}

	return s.mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		for i := range records {
			if records[i].ID == rec.ID {
				return nil, fmt.Errorf("%w: %s", models.ErrDuplicateID, rec.ID)
			}
		}
		return append(records, rec.Clone()), nil
	})
}

// Update applies fn to the record with the given id and persists the result
func (s *Store) Update(ctx context.Context, id string, fn func(*models.Record) error) error {
	return s.mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		for i := range records {
			if records[i].ID == id {
				if err := fn(&records[i]); err != nil {
					return nil, err
				}
				records[i].ID = id
				return records, nil
			}
		}
		return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
	})
}

// Remove deletes the record with the given id. Removing a Show also removes
// its seasons and episodes; removing a Season removes the episodes linked to
// it directly. It returns the ids that were removed.
func (s *Store) Remove(ctx context.Context, id string) ([]string, error) {
	var removed []string
	err := s.mutate(ctx, func(records []models.Record) ([]models.Record, error) {
		target := -1
		for i := range records {
			if records[i].ID == id {
				target = i
				break
			}
		}
		if target < 0 {
			return nil, fmt.Errorf("%w: %s", models.ErrNotFound, id)
		}

		doomed := map[string]bool{id: true}
		switch records[target].Kind {
		case models.KindShow:
			// Seasons first, so episodes linked to a season go too
			for _, r := range records {
				if r.Kind == models.KindSeason && r.ShowRef() == id {
					doomed[r.ID] = true
				}
			}
			for _, r := range records {
				if r.Kind == models.KindEpisode && doomed[r.ShowRef()] {
					doomed[r.ID] = true
				}
			}
		case models.KindSeason:
			for _, r := range records {
				if r.Kind == models.KindEpisode && r.ShowRef() == id {
					doomed[r.ID] = true
				}
			}
		}

		kept := records[:0]
		for _, r := range records {
			if doomed[r.ID] {
				removed = append(removed, r.ID)
				continue
			}
			kept = append(kept, r)
		}
		return kept, nil
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// Replace swaps the whole list, as an import does
func (s *Store) Replace(ctx context.Context, records []models.Record) error {
	if err := checkUniqueIDs(records); err != nil {
		return err
	}
	return s.write(ctx, false, func([]models.Record) ([]models.Record, error) {
		return models.CloneRecords(records), nil
	})
}

// Ready returns a *models.TransportError until a Load or Replace has
// succeeded. Until then the in-memory list is not the backend's, and saving
// it would overwrite the backend with a partial list.
func (s *Store) Ready() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.loaded {
		return &models.TransportError{Op: "store", Err: ErrNotLoaded}
	}
	return nil
}

// OnCommit registers fn to be called with every committed list. fn must not
// modify the list or call back into the store's write methods.
func (s *Store) OnCommit(fn func(records []models.Record)) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	s.onCommit = fn
}

// Snapshot returns a deep copy of the committed list in insertion order
func (s *Store) Snapshot() []models.Record {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return models.CloneRecords(s.records)
}

// Get returns a copy of the record with the given id
func (s *Store) Get(id string) (models.Record, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r.Clone(), true
		}
	}
	return models.Record{}, false
}

// Len returns the number of committed records
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Version increments on every committed change. Multi-client setups would
// compare it before writing.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// mutate runs fn on a private copy, persists the result and commits it
func (s *Store) mutate(ctx context.Context, fn func([]models.Record) ([]models.Record, error)) error {
	return s.write(ctx, true, fn)
}

func (s *Store) write(ctx context.Context, requireLoaded bool, fn func([]models.Record) ([]models.Record, error)) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if requireLoaded {
		if err := s.Ready(); err != nil {
			return err
		}
	}

	next, err := fn(s.Snapshot())
	if err != nil {
		return err
	}

	if err := s.backend.Save(ctx, next); err != nil {
		s.logger.WithError(err).Error("Failed to persist change, keeping previous state")
		return fmt.Errorf("failed to save records: %w", err)
	}

	s.commit(next)
	return nil
}

// commit must be called with writeMu held
func (s *Store) commit(records []models.Record) {
	s.mu.Lock()
	s.records = records
	s.version++
	s.loaded = true
	s.mu.Unlock()

	if s.onCommit != nil {
		s.onCommit(models.CloneRecords(records))
	}
}

func checkUniqueIDs(records []models.Record) error {
	seen := make(map[string]bool, len(records))
	for _, r := range records {
		if seen[r.ID] {
			return fmt.Errorf("%w: %s", models.ErrDuplicateID, r.ID)
		}
		seen[r.ID] = true
	}
	return nil
}
