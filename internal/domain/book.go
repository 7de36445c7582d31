package domain

import "slices"

// Book is a folder-like grouping of bookmarks. Books nest via ParentID
// (empty means top level) and carry an explicit ordered list of their
// pages' ids for display sequencing.
type Book struct {
	Syncable
	Name     string   `json:"name"`
	ParentID string   `json:"parent_id,omitempty"`
	Order    float64  `json:"order"`
	Icon     string   `json:"icon,omitempty"`
	PageIDs  []string `json:"page_ids"`
}

// AddPage appends a page ID to the book's ordering.
// If the page is already present, this is a no-op.
func (b *Book) AddPage(pageID string) bool {
	if slices.Contains(b.PageIDs, pageID) {
		return false
	}
	b.PageIDs = append(b.PageIDs, pageID)
	return true
}

// RemovePage removes a page ID from the book's ordering.
// Returns false if the page was not present.
func (b *Book) RemovePage(pageID string) bool {
	for i, pid := range b.PageIDs {
		if pid == pageID {
			b.PageIDs = append(b.PageIDs[:i], b.PageIDs[i+1:]...)
			return true
		}
	}
	return false
}

// ContainsPage checks if a page ID is in this book's ordering.
func (b *Book) ContainsPage(pageID string) bool {
	return slices.Contains(b.PageIDs, pageID)
}

// Clone returns a deep copy of the book.
func (b *Book) Clone() *Book {
	dup := *b
	dup.PageIDs = slices.Clone(b.PageIDs)
	return &dup
}
