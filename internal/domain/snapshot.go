package domain

import "slices"

// Snapshot is the full serialized state of a library: both entity
// collections plus the derived root and pinned orderings. It is the unit
// of local persistence and the input/output of merge.
//
// The JSON keys match the persisted browser-storage format shared with the
// other Emperor front-ends (bookmarks/books/rootOrder/pinnedOrder).
type Snapshot struct {
	Bookmarks   []*Page  `json:"bookmarks"`
	Books       []*Book  `json:"books"`
	RootOrder   []string `json:"rootOrder"`
	PinnedOrder []string `json:"pinnedOrder"`
}

// NewSnapshot returns an empty snapshot with non-nil slices, the
// well-defined default used when no persisted state exists.
func NewSnapshot() *Snapshot {
	return &Snapshot{
		Bookmarks:   []*Page{},
		Books:       []*Book{},
		RootOrder:   []string{},
		PinnedOrder: []string{},
	}
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	dup := &Snapshot{
		Bookmarks:   make([]*Page, len(s.Bookmarks)),
		Books:       make([]*Book, len(s.Books)),
		RootOrder:   slices.Clone(s.RootOrder),
		PinnedOrder: slices.Clone(s.PinnedOrder),
	}
	for i, p := range s.Bookmarks {
		dup.Bookmarks[i] = p.Clone()
	}
	for i, b := range s.Books {
		dup.Books[i] = b.Clone()
	}
	return dup
}

// PageByID returns the page with the given id, or nil.
func (s *Snapshot) PageByID(id string) *Page {
	for _, p := range s.Bookmarks {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// BookByID returns the book with the given id, or nil.
func (s *Snapshot) BookByID(id string) *Book {
	for _, b := range s.Books {
		if b.ID == id {
			return b
		}
	}
	return nil
}
