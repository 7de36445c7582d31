package library

import (
	"sort"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/normalize"
)

// Book returns a copy of the book with the given id.
func (l *Library) Book(bookID string) (*domain.Book, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[bookID]
	if !ok {
		return nil, errors.NotFoundf("book %s not found", bookID)
	}
	return book.Clone(), nil
}

// Page returns a copy of the page with the given id.
func (l *Library) Page(pageID string) (*domain.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return nil, errors.NotFoundf("page %s not found", pageID)
	}
	return page.Clone(), nil
}

// Books returns copies of all books sorted by name.
func (l *Library) Books() []*domain.Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	books := make([]*domain.Book, 0, len(l.books))
	for _, book := range l.books {
		books = append(books, book.Clone())
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return books
}

// BooksByParent returns copies of the books under parentID (empty for top
// level), sorted by their fractional order.
func (l *Library) BooksByParent(parentID string) []*domain.Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	var books []*domain.Book
	for _, book := range l.books {
		if book.ParentID == parentID {
			books = append(books, book.Clone())
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Order < books[j].Order })
	return books
}

// PagesByBook returns the book's pages in its PageIDs order. Pages whose
// BookID points at the book but which are missing from PageIDs are
// appended at the end; ids in PageIDs with no matching page are pruned.
func (l *Library) PagesByBook(bookID string) ([]*domain.Page, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[bookID]
	if !ok {
		return nil, errors.NotFoundf("book %s not found", bookID)
	}

	seen := make(map[string]bool, len(book.PageIDs))
	pages := make([]*domain.Page, 0, len(book.PageIDs))
	kept := book.PageIDs[:0]
	for _, pageID := range book.PageIDs {
		page, ok := l.pages[pageID]
		if !ok || page.BookID != bookID {
			continue
		}
		kept = append(kept, pageID)
		seen[pageID] = true
		pages = append(pages, page.Clone())
	}
	book.PageIDs = kept

	var unlisted []*domain.Page
	for _, page := range l.pages {
		if page.BookID == bookID && !seen[page.ID] {
			book.PageIDs = append(book.PageIDs, page.ID)
			unlisted = append(unlisted, page.Clone())
		}
	}
	sort.Slice(unlisted, func(i, j int) bool {
		return unlisted[i].CreatedAt.Before(unlisted[j].CreatedAt)
	})
	return append(pages, unlisted...), nil
}

// RootPages returns pages filed under no book, in root order. Stale ids
// are pruned and unlisted root pages appended, mirroring PagesByBook.
func (l *Library) RootPages() []*domain.Page {
	l.mu.Lock()
	defer l.mu.Unlock()

	seen := make(map[string]bool, len(l.rootOrder))
	pages := make([]*domain.Page, 0, len(l.rootOrder))
	kept := l.rootOrder[:0]
	for _, pageID := range l.rootOrder {
		page, ok := l.pages[pageID]
		if !ok || page.BookID != "" {
			continue
		}
		kept = append(kept, pageID)
		seen[pageID] = true
		pages = append(pages, page.Clone())
	}
	l.rootOrder = kept

	var unlisted []*domain.Page
	for _, page := range l.pages {
		if page.BookID == "" && !seen[page.ID] {
			l.rootOrder = append(l.rootOrder, page.ID)
			unlisted = append(unlisted, page.Clone())
		}
	}
	sort.Slice(unlisted, func(i, j int) bool {
		return unlisted[i].CreatedAt.Before(unlisted[j].CreatedAt)
	})
	return append(pages, unlisted...)
}

// PinnedPages returns pinned pages in pinned order, pruning ids that no
// longer resolve to a pinned page.
func (l *Library) PinnedPages() []*domain.Page {
	l.mu.Lock()
	defer l.mu.Unlock()

	pages := make([]*domain.Page, 0, len(l.pinnedOrder))
	kept := l.pinnedOrder[:0]
	for _, pageID := range l.pinnedOrder {
		page, ok := l.pages[pageID]
		if !ok || !page.Pinned {
			continue
		}
		kept = append(kept, pageID)
		pages = append(pages, page.Clone())
	}
	l.pinnedOrder = kept
	return pages
}

// PagesByTag returns copies of all pages carrying the given tag label,
// sorted by most recently updated first. The label is canonicalized, so
// callers may pass raw user input.
func (l *Library) PagesByTag(label string) []*domain.Page {
	label = normalize.TagLabel(label)

	l.mu.Lock()
	defer l.mu.Unlock()

	var pages []*domain.Page
	for _, page := range l.pages {
		if page.HasTag(label) {
			pages = append(pages, page.Clone())
		}
	}
	sort.Slice(pages, func(i, j int) bool {
		return pages[i].UpdatedAt.After(pages[j].UpdatedAt)
	})
	return pages
}

// DirtyBooks returns copies of books with unsynced local changes.
func (l *Library) DirtyBooks() []*domain.Book {
	l.mu.Lock()
	defer l.mu.Unlock()

	var books []*domain.Book
	for _, book := range l.books {
		if book.IsDirty() {
			books = append(books, book.Clone())
		}
	}
	sort.Slice(books, func(i, j int) bool { return books[i].ID < books[j].ID })
	return books
}

// DirtyPages returns copies of pages with unsynced local changes.
func (l *Library) DirtyPages() []*domain.Page {
	l.mu.Lock()
	defer l.mu.Unlock()

	var pages []*domain.Page
	for _, page := range l.pages {
		if page.IsDirty() {
			pages = append(pages, page.Clone())
		}
	}
	sort.Slice(pages, func(i, j int) bool { return pages[i].ID < pages[j].ID })
	return pages
}

// IDs returns the ids of every book and page currently in the library.
func (l *Library) IDs() (bookIDs, pageIDs []string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	bookIDs = make([]string, 0, len(l.books))
	for id := range l.books {
		bookIDs = append(bookIDs, id)
	}
	pageIDs = make([]string, 0, len(l.pages))
	for id := range l.pages {
		pageIDs = append(pageIDs, id)
	}
	sort.Strings(bookIDs)
	sort.Strings(pageIDs)
	return bookIDs, pageIDs
}

// Counts returns the number of books and pages in the library.
func (l *Library) Counts() (books, pages int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.books), len(l.pages)
}
