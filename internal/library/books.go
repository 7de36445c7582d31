package library

import (
	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
)

// CreateBook creates a book under the given parent (empty for top level)
// with a provisional client id. The book is appended after its last
// sibling.
func (l *Library) CreateBook(name, parentID string) (*domain.Book, error) {
	if name == "" {
		return nil, errors.Validation("book name is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if parentID != "" {
		if _, ok := l.books[parentID]; !ok {
			return nil, errors.NotFoundf("parent book %s not found", parentID)
		}
	}

	book := &domain.Book{
		Name:     name,
		ParentID: parentID,
		Order:    domain.OrderBetween(l.maxSiblingOrder(parentID), 0),
		PageIDs:  []string{},
	}
	book.ID = id.MustGenerateLocal("book")
	book.InitTimestamps()
	book.LocalOnly = true
	book.LocalChanges = true

	l.books[book.ID] = book
	return book.Clone(), nil
}

// UpdateBook applies fn to the book's user-editable fields and marks it
// dirty. fn must not change ID or ParentID; moves go through MoveBook so
// the cycle check runs.
func (l *Library) UpdateBook(bookID string, fn func(*domain.Book)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[bookID]
	if !ok {
		return errors.NotFoundf("book %s not found", bookID)
	}

	fn(book)
	book.Touch()
	return nil
}

// MoveBook reparents a book. The move is rejected, leaving the library
// unchanged, when the new parent does not exist or when the move would
// make the book its own ancestor.
func (l *Library) MoveBook(bookID, newParentID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[bookID]
	if !ok {
		return errors.NotFoundf("book %s not found", bookID)
	}
	if newParentID != "" {
		if _, ok := l.books[newParentID]; !ok {
			return errors.NotFoundf("parent book %s not found", newParentID)
		}
	}

	parents := make(map[string]string, len(l.books))
	for bid, b := range l.books {
		parents[bid] = b.ParentID
	}
	if domain.WouldCycle(parents, bookID, newParentID) {
		return errors.Validationf("cannot move book %s under its own descendant", bookID)
	}

	book.ParentID = newParentID
	book.Order = domain.OrderBetween(l.maxSiblingOrder(newParentID), 0)
	book.Touch()
	return nil
}

// DeleteBook removes a book. Its pages are reassigned to the root
// (BookID cleared, ids appended to the root ordering) and its child books
// are reparented to the deleted book's parent, all in the same operation.
func (l *Library) DeleteBook(bookID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	book, ok := l.books[bookID]
	if !ok {
		return errors.NotFoundf("book %s not found", bookID)
	}

	for _, p := range l.pages {
		if p.BookID == bookID {
			p.BookID = ""
			p.Touch()
			l.rootOrder = appendUnique(l.rootOrder, p.ID)
		}
	}
	for _, b := range l.books {
		if b.ParentID == bookID {
			b.ParentID = book.ParentID
			b.Touch()
		}
	}

	delete(l.books, bookID)
	l.logger.Debug("deleted book", "book_id", bookID)
	return nil
}

// maxSiblingOrder returns the highest Order among books under parentID,
// or 0 when there are none. Caller holds the lock.
func (l *Library) maxSiblingOrder(parentID string) float64 {
	var max float64
	for _, b := range l.books {
		if b.ParentID == parentID && b.Order > max {
			max = b.Order
		}
	}
	return max
}

// appendUnique appends id to list unless it is already present.
func appendUnique(list []string, id string) []string {
	for _, existing := range list {
		if existing == id {
			return list
		}
	}
	return append(list, id)
}
