// Package library holds the in-memory entity store for a client's bookmark
// collection: books and pages by id plus the derived root and pinned
// orderings. All mutations go through Library methods so the ordering
// invariants hold after every operation, and the whole state can be
// swapped atomically after a merge.
package library

import (
	"log/slog"
	"sync"
	"time"

	"github.com/emperorapp/emperor/internal/domain"
)

// Library is an explicitly constructed, owned state container. It is
// created at startup (usually from a persisted snapshot) and passed by
// reference to the orchestrator and front-end; there are no ambient
// singletons.
//
// A single mutex serializes mutations. The web original runs on one event
// loop; in Go the front-end and the sync orchestrator are separate
// goroutines, so the container locks instead.
type Library struct {
	mu     sync.Mutex
	logger *slog.Logger

	books       map[string]*domain.Book
	pages       map[string]*domain.Page
	rootOrder   []string
	pinnedOrder []string
}

// New creates an empty library.
func New(logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lib := &Library{logger: logger}
	lib.reset(domain.NewSnapshot())
	return lib
}

// FromSnapshot creates a library populated from a persisted snapshot.
func FromSnapshot(snap *domain.Snapshot, logger *slog.Logger) *Library {
	lib := New(logger)
	lib.Replace(snap)
	return lib
}

// Snapshot returns a deep copy of the current state, safe to persist or
// merge without holding the library lock.
func (l *Library) Snapshot() *domain.Snapshot {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.snapshotLocked()
}

// snapshotLocked builds the deep copy. Caller holds the lock.
func (l *Library) snapshotLocked() *domain.Snapshot {
	snap := domain.NewSnapshot()
	for _, id := range l.rootOrder {
		snap.RootOrder = append(snap.RootOrder, id)
	}
	for _, id := range l.pinnedOrder {
		snap.PinnedOrder = append(snap.PinnedOrder, id)
	}
	for _, b := range l.books {
		snap.Books = append(snap.Books, b.Clone())
	}
	for _, p := range l.pages {
		snap.Bookmarks = append(snap.Bookmarks, p.Clone())
	}
	return snap
}

// Replace swaps the entire library state for the given snapshot in one
// step. Used to apply a merged state: readers never observe a partially
// merged library.
func (l *Library) Replace(snap *domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset(snap.Clone())
}

// ApplyMerge snapshots the current state, runs merge over it and swaps the
// result in, all under the library lock. A mutation racing the merge
// blocks until the swap completes instead of landing in a snapshot that is
// about to be overwritten, so it is never lost - it is simply picked up by
// the next sync.
func (l *Library) ApplyMerge(merge func(*domain.Snapshot) *domain.Snapshot) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.reset(merge(l.snapshotLocked()).Clone())
}

// reset rebuilds the internal maps from a snapshot. Caller holds the lock
// (or is the constructor).
func (l *Library) reset(snap *domain.Snapshot) {
	l.books = make(map[string]*domain.Book, len(snap.Books))
	l.pages = make(map[string]*domain.Page, len(snap.Bookmarks))
	for _, b := range snap.Books {
		l.books[b.ID] = b
	}
	for _, p := range snap.Bookmarks {
		l.pages[p.ID] = p
	}
	l.rootOrder = snap.RootOrder
	l.pinnedOrder = snap.PinnedOrder
}

// ApplyIDMap rewrites provisional client ids to server-issued ids after a
// push acknowledgment. The rewrite covers the entity maps, every book's
// page ordering, page BookID and book ParentID references, and the root
// and pinned orderings, all in one step - no orphaned reference survives.
func (l *Library) ApplyIDMap(idMap map[string]string) {
	if len(idMap) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	remap := func(id string) string {
		if newID, ok := idMap[id]; ok {
			return newID
		}
		return id
	}

	books := make(map[string]*domain.Book, len(l.books))
	for oldID, b := range l.books {
		b.ID = remap(oldID)
		b.ParentID = remap(b.ParentID)
		for i, pid := range b.PageIDs {
			b.PageIDs[i] = remap(pid)
		}
		books[b.ID] = b
	}
	l.books = books

	pages := make(map[string]*domain.Page, len(l.pages))
	for oldID, p := range l.pages {
		p.ID = remap(oldID)
		p.BookID = remap(p.BookID)
		pages[p.ID] = p
	}
	l.pages = pages

	for i, id := range l.rootOrder {
		l.rootOrder[i] = remap(id)
	}
	for i, id := range l.pinnedOrder {
		l.pinnedOrder[i] = remap(id)
	}

	l.logger.Debug("applied server id map", "count", len(idMap))
}

// MarkSynced clears the dirty flags for entities acknowledged by the
// server, but only when the entity's UpdatedAt still equals the version
// that was pushed. An entity edited while the push was in flight keeps its
// LocalChanges flag and is picked up by the next sync.
func (l *Library) MarkSynced(bookVersions, pageVersions map[string]time.Time) {
	l.mu.Lock()
	defer l.mu.Unlock()

	for id, pushedAt := range bookVersions {
		if b, ok := l.books[id]; ok && b.UpdatedAt.Equal(pushedAt) {
			b.MarkSynced()
		}
	}
	for id, pushedAt := range pageVersions {
		if p, ok := l.pages[id]; ok && p.UpdatedAt.Equal(pushedAt) {
			p.MarkSynced()
		}
	}
}
