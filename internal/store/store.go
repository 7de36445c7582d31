// Package store is the server's Badger-backed entity store: books and
// pages under generic typed prefixes, a secondary index from book to its
// pages, and tombstone records so deletions survive for pull responses.
package store

import (
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"

	"github.com/emperorapp/emperor/internal/domain"
)

// Key prefixes.
const (
	bookPrefix = "book:"
	pagePrefix = "page:"
	tombPrefix = "tomb:"
)

// SearchIndexer is the interface for updating the search index.
// Store uses this to keep search in sync without depending on search
// implementation details.
type SearchIndexer interface {
	IndexPage(page *domain.Page) error
	DeletePage(pageID string) error
}

// NoopSearchIndexer is a no-op implementation for testing.
type NoopSearchIndexer struct{}

// IndexPage is a no-op.
func (NoopSearchIndexer) IndexPage(*domain.Page) error { return nil }

// DeletePage is a no-op.
func (NoopSearchIndexer) DeletePage(string) error { return nil }

// Store wraps a Badger database instance.
type Store struct {
	db     *badger.DB
	logger *slog.Logger

	// Search indexer, set via SetSearchIndexer after store creation to
	// avoid circular dependencies during wiring.
	searchIndexer SearchIndexer

	Books *Entity[domain.Book]
	Pages *Entity[domain.Page]
}

// New creates a new Store instance with the given database path.
func New(path string, logger *slog.Logger) (*Store, error) {
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

	store := &Store{
		db:            db,
		logger:        logger,
		searchIndexer: NoopSearchIndexer{},
	}

	store.Books = NewEntity[domain.Book](store, bookPrefix)
	store.Pages = NewEntity[domain.Page](store, pagePrefix).
		WithMultiIndex("book", func(p *domain.Page) []string {
			if p.BookID == "" {
				return nil
			}
			return []string{p.BookID}
		})

	logger.Info("badger database opened", "path", path)
	return store, nil
}

// SetSearchIndexer wires the search indexer after construction.
func (s *Store) SetSearchIndexer(indexer SearchIndexer) {
	if indexer == nil {
		indexer = NoopSearchIndexer{}
	}
	s.searchIndexer = indexer
}

// Search returns the wired search indexer.
func (s *Store) Search() SearchIndexer {
	return s.searchIndexer
}

// Close closes the underlying database.
func (s *Store) Close() error {
	s.logger.Debug("closing badger database")
	return s.db.Close()
}
