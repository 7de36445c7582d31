// Package local persists the client's library snapshot and sync bookkeeping
// in a Badger database. Reads are forgiving: a missing or corrupt record
// yields zero-value defaults instead of an error, so a damaged store never
// blocks startup - the library simply begins empty and the next sync runs
// from scratch.
package local

import (
	"encoding/json/v2"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/emperorapp/emperor/internal/domain"
)

// Storage record keys. The names match the browser original's storage
// slots so an exported library reads the same either way.
const (
	libraryKey    = "emperor_library"
	lastSyncAtKey = "emperor_last_sync_at"
	syncedIDsKey  = "emperor_synced_ids"
)

// SyncedIDs records which entity ids existed at the last acknowledged
// sync, split by type. Comparing a fresh pull against this set is how
// remote deletions are detected.
type SyncedIDs struct {
	Books []string `json:"books"`
	Pages []string `json:"pages"`
}

// Store is the on-disk persistence adapter for a single client.
type Store struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (creating if needed) the Badger database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger db: %w", err)
	}
	logger.Debug("opened local store", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadSnapshot returns the persisted library snapshot. A missing or
// unreadable record returns an empty snapshot and no error.
func (s *Store) LoadSnapshot() *domain.Snapshot {
	raw, ok := s.get(libraryKey)
	if !ok {
		return domain.NewSnapshot()
	}

	var snap domain.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		s.logger.Warn("discarding corrupt library snapshot", "error", err)
		return domain.NewSnapshot()
	}
	if snap.Bookmarks == nil {
		snap.Bookmarks = []*domain.Page{}
	}
	if snap.Books == nil {
		snap.Books = []*domain.Book{}
	}
	if snap.RootOrder == nil {
		snap.RootOrder = []string{}
	}
	if snap.PinnedOrder == nil {
		snap.PinnedOrder = []string{}
	}
	return &snap
}

// SaveSnapshot persists the library snapshot.
func (s *Store) SaveSnapshot(snap *domain.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.set(libraryKey, raw)
}

// LastSyncAt returns the sync watermark, or nil when no sync has
// completed (or the record is unreadable).
func (s *Store) LastSyncAt() *time.Time {
	raw, ok := s.get(lastSyncAtKey)
	if !ok {
		return nil
	}

	var at time.Time
	if err := json.Unmarshal(raw, &at); err != nil {
		s.logger.Warn("discarding corrupt sync watermark", "error", err)
		return nil
	}
	if at.IsZero() {
		return nil
	}
	return &at
}

// SetLastSyncAt persists the sync watermark.
func (s *Store) SetLastSyncAt(at time.Time) error {
	raw, err := json.Marshal(at)
	if err != nil {
		return fmt.Errorf("marshal watermark: %w", err)
	}
	return s.set(lastSyncAtKey, raw)
}

// LoadSyncedIDs returns the id sets from the last acknowledged sync.
// A missing or unreadable record returns empty sets.
func (s *Store) LoadSyncedIDs() SyncedIDs {
	raw, ok := s.get(syncedIDsKey)
	if !ok {
		return SyncedIDs{}
	}

	var ids SyncedIDs
	if err := json.Unmarshal(raw, &ids); err != nil {
		s.logger.Warn("discarding corrupt synced id sets", "error", err)
		return SyncedIDs{}
	}
	return ids
}

// SaveSyncState writes the merged snapshot, the new watermark and the
// synced id sets in a single transaction. All three records describe the
// same sync; persisting them together means a crash can never leave a new
// snapshot paired with an old id set, which would misread the next pull's
// absences as deletions.
func (s *Store) SaveSyncState(snap *domain.Snapshot, at time.Time, ids SyncedIDs) error {
	rawSnap, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	rawAt, err := json.Marshal(at)
	if err != nil {
		return fmt.Errorf("marshal watermark: %w", err)
	}
	rawIDs, err := json.Marshal(ids)
	if err != nil {
		return fmt.Errorf("marshal synced ids: %w", err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(libraryKey), rawSnap); err != nil {
			return err
		}
		if err := txn.Set([]byte(lastSyncAtKey), rawAt); err != nil {
			return err
		}
		return txn.Set([]byte(syncedIDsKey), rawIDs)
	})
	if err != nil {
		return fmt.Errorf("persist sync state: %w", err)
	}
	return nil
}

func (s *Store) get(key string) ([]byte, bool) {
	var raw []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		if err != badger.ErrKeyNotFound {
			s.logger.Warn("failed to read record", "key", key, "error", err)
		}
		return nil, false
	}
	return raw, true
}

func (s *Store) set(key string, raw []byte) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), raw)
	})
	if err != nil {
		return fmt.Errorf("persist %s: %w", key, err)
	}
	return nil
}
