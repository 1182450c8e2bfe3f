package models

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/timshannon/bolthold"
	"go.etcd.io/bbolt"
)

// Database wraps the bolthold store used as the local backend
type Database struct {
	store *bolthold.Store
}

// storedRecord is the persisted row. Position keeps the list order across
// reloads since bolthold iterates by key.
type storedRecord struct {
	ID       string `boltholdKey:"ID"`
	Position int
	Record   Record
}

// NewDatabase opens (or creates) the database file
func NewDatabase(path string) (*Database, error) {
	// JSON rather than gob: gob flattens pointers and would read a 0 rating
	// back as unrated.
	store, err := bolthold.Open(path, 0600, &bolthold.Options{
		Encoder: json.Marshal,
		Decoder: json.Unmarshal,
		Options: &bbolt.Options{
			Timeout: 1 * time.Second,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	return &Database{store: store}, nil
}

// Close closes the database connection
func (db *Database) Close() error {
	return db.store.Close()
}

// Load returns every stored record in saved order
func (db *Database) Load(ctx context.Context) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var rows []storedRecord
	if err := db.store.Find(&rows, nil); err != nil {
		return nil, fmt.Errorf("failed to read records: %w", err)
	}

	sort.Slice(rows, func(i, j int) bool {
		return rows[i].Position < rows[j].Position
	})

	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec := row.Record
		rec.Normalize()
		records = append(records, rec)
	}
	return records, nil
}

// Save replaces the stored set with records in a single transaction, so a
// failed write leaves the previous contents in place.
func (db *Database) Save(ctx context.Context, records []Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	return db.store.Bolt().Update(func(tx *bbolt.Tx) error {
		if err := db.store.TxDeleteMatching(tx, &storedRecord{}, nil); err != nil {
			return fmt.Errorf("failed to clear records: %w", err)
		}

		for i, rec := range records {
			row := &storedRecord{
				ID:       rec.ID,
				Position: i,
				Record:   rec,
			}
			if err := db.store.TxInsert(tx, rec.ID, row); err != nil {
				return fmt.Errorf("failed to write record %s: %w", rec.ID, err)
			}
		}
		return nil
	})
}
