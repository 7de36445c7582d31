package store

import (
	"context"
	"encoding/json/v2"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

// Tombstone records a deleted entity so incremental pulls can tell
// clients about deletions that happened after their watermark.
type Tombstone struct {
	EntityType string    `json:"entity_type"`
	EntityID   string    `json:"entity_id"`
	DeletedAt  time.Time `json:"deleted_at"`
}

func tombstoneKey(entityType, id string) []byte {
	return []byte(tombPrefix + entityType + ":" + id)
}

// WriteTombstone records a deletion. Writing the same tombstone twice
// keeps the earlier deletion time.
func (s *Store) WriteTombstone(_ context.Context, entityType, id string) error {
	key := tombstoneKey(entityType, id)

	return s.db.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(key); err == nil {
			return nil
		}
		raw, err := json.Marshal(Tombstone{
			EntityType: entityType,
			EntityID:   id,
			DeletedAt:  time.Now(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal tombstone: %w", err)
		}
		return txn.Set(key, raw)
	})
}

// ClearTombstone removes a tombstone, used when a deleted entity id is
// recreated by a later push.
func (s *Store) ClearTombstone(_ context.Context, entityType, id string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(tombstoneKey(entityType, id))
	})
}

// TombstonesSince returns the tombstones written after since. A nil since
// returns none: a full-snapshot pull carries deletions by absence, not by
// record.
func (s *Store) TombstonesSince(_ context.Context, since *time.Time) ([]Tombstone, error) {
	if since == nil {
		return nil, nil
	}

	var tombs []Tombstone
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(tombPrefix)
		opts.PrefetchValues = true

		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Rewind(); it.Valid(); it.Next() {
			var tomb Tombstone
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &tomb)
			})
			if err != nil {
				return err
			}
			if tomb.DeletedAt.After(*since) {
				tombs = append(tombs, tomb)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	return tombs, nil
}
