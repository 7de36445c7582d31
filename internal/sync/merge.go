package sync

import (
	"log/slog"

	"github.com/emperorapp/emperor/internal/domain"
)

// Reconciler applies a pull payload to a local snapshot with the
// offline-first, local-wins-on-conflict policy. Merge is a pure function
// over its inputs: the caller swaps the result in atomically, so a reader
// never observes a partially merged state.
type Reconciler struct {
	logger *slog.Logger
}

// NewReconciler creates a reconciler.
func NewReconciler(logger *slog.Logger) *Reconciler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Reconciler{logger: logger}
}

// Merge merges remote entities into the local snapshot. Per remote entity:
// insert when unknown locally, replace verbatim when the local copy is
// clean, field-merge when the local copy carries pending edits.
//
// fullSnapshot marks a pull with no watermark: the payload is the server's
// complete state, so a clean, previously synced local entity absent from
// it was deleted remotely and is dropped. Incremental pulls never infer
// deletion from absence; they delete only what the payload's tombstone
// change records name.
func (r *Reconciler) Merge(local *domain.Snapshot, pull *PullResponse, fullSnapshot bool) *domain.Snapshot {
	books := make(map[string]*domain.Book, len(local.Books))
	for _, b := range local.Books {
		if _, ok := books[b.ID]; ok {
			continue // drop duplicate ids, first record wins
		}
		books[b.ID] = b.Clone()
	}
	pages := make(map[string]*domain.Page, len(local.Bookmarks))
	for _, p := range local.Bookmarks {
		if _, ok := pages[p.ID]; ok {
			continue
		}
		pages[p.ID] = p.Clone()
	}

	remoteBookIDs := make(map[string]bool, len(pull.Books))
	for _, remote := range pull.Books {
		remoteBookIDs[remote.ID] = true
		existing, ok := books[remote.ID]
		switch {
		case !ok:
			books[remote.ID] = remote.Clone()
		case !existing.LocalChanges:
			books[remote.ID] = remote.Clone()
		default:
			books[remote.ID] = mergeDirtyBook(existing, remote)
		}
	}

	remotePageIDs := make(map[string]bool, len(pull.Pages))
	for _, remote := range pull.Pages {
		remotePageIDs[remote.ID] = true
		existing, ok := pages[remote.ID]
		switch {
		case !ok:
			pages[remote.ID] = remote.Clone()
		case !existing.LocalChanges:
			pages[remote.ID] = remote.Clone()
		default:
			pages[remote.ID] = mergeDirtyPage(existing, remote)
		}
	}

	// Incremental pulls carry no absence information; deletions arrive as
	// explicit tombstone records instead. A deletion applies only to a
	// clean local copy - a dirty one survives and the next push
	// resurrects it on the server.
	for _, change := range pull.Changes {
		if !change.Deleted {
			continue
		}
		switch change.EntityType {
		case "book":
			if b, ok := books[change.EntityID]; ok && !b.IsDirty() {
				r.logger.Debug("dropping remotely deleted book", "book_id", change.EntityID)
				delete(books, change.EntityID)
			}
		case "page":
			if p, ok := pages[change.EntityID]; ok && !p.IsDirty() {
				r.logger.Debug("dropping remotely deleted page", "page_id", change.EntityID)
				delete(pages, change.EntityID)
			}
		}
	}

	if fullSnapshot {
		for id, b := range books {
			if !remoteBookIDs[id] && !b.IsDirty() {
				r.logger.Debug("dropping remotely deleted book", "book_id", id)
				delete(books, id)
			}
		}
		for id, p := range pages {
			if !remotePageIDs[id] && !p.IsDirty() {
				r.logger.Debug("dropping remotely deleted page", "page_id", id)
				delete(pages, id)
			}
		}
	}

	// A page whose book vanished in the merge moves to the root rather
	// than dangle.
	for _, p := range pages {
		if p.BookID != "" {
			if _, ok := books[p.BookID]; !ok {
				p.BookID = ""
			}
		}
	}
	for _, b := range books {
		if b.ParentID != "" {
			if _, ok := books[b.ParentID]; !ok {
				b.ParentID = ""
			}
		}
		kept := b.PageIDs[:0]
		for _, pid := range b.PageIDs {
			if p, ok := pages[pid]; ok && p.BookID == b.ID {
				kept = append(kept, pid)
			}
		}
		b.PageIDs = kept
	}

	merged := domain.NewSnapshot()
	for _, b := range books {
		merged.Books = append(merged.Books, b)
	}
	for _, p := range pages {
		merged.Bookmarks = append(merged.Bookmarks, p)
	}

	// Derived orderings: keep the local order for surviving ids, append
	// newly arrived remote ids, drop ids of entities no longer present.
	merged.RootOrder = mergeOrder(local.RootOrder, pull.Pages, func(p *domain.Page) bool {
		got, ok := pages[p.ID]
		return ok && got.BookID == ""
	})
	merged.PinnedOrder = mergeOrder(local.PinnedOrder, pull.Pages, func(p *domain.Page) bool {
		got, ok := pages[p.ID]
		return ok && got.Pinned
	})

	// Local pages can qualify for an ordering without appearing in either
	// the old list or the payload (a dirty page whose book was dropped).
	// The library's lazy pruning picks those up on first read; here only
	// the dead ids must go.
	merged.RootOrder = filterOrder(merged.RootOrder, func(id string) bool {
		p, ok := pages[id]
		return ok && p.BookID == ""
	})
	merged.PinnedOrder = filterOrder(merged.PinnedOrder, func(id string) bool {
		p, ok := pages[id]
		return ok && p.Pinned
	})

	return merged
}

// mergeOrder keeps the existing order, then appends remote pages that
// qualify and are not yet listed, in payload order.
func mergeOrder(existing []string, remote []*domain.Page, qualifies func(*domain.Page) bool) []string {
	out := make([]string, 0, len(existing))
	seen := make(map[string]bool, len(existing))
	for _, id := range existing {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	for _, p := range remote {
		if !seen[p.ID] && qualifies(p) {
			seen[p.ID] = true
			out = append(out, p.ID)
		}
	}
	return out
}

func filterOrder(ids []string, keep func(string) bool) []string {
	out := ids[:0]
	for _, id := range ids {
		if keep(id) {
			out = append(out, id)
		}
	}
	return out
}
