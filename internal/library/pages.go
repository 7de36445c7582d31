package library

import (
	"slices"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
	"github.com/emperorapp/emperor/internal/normalize"
)

// PageDraft carries the caller-supplied fields for a new page. URL is
// required; everything else is optional.
type PageDraft struct {
	Title       string
	URL         string
	Description string
	Content     string
	BookID      string
	Tags        []domain.Tag
}

// CreatePage creates a page with a provisional client id, filed under the
// draft's book (or the root when BookID is empty) and appended to that
// container's ordering.
func (l *Library) CreatePage(draft PageDraft) (*domain.Page, error) {
	if draft.URL == "" {
		return nil, errors.Validation("page url is required")
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if draft.BookID != "" {
		if _, ok := l.books[draft.BookID]; !ok {
			return nil, errors.NotFoundf("book %s not found", draft.BookID)
		}
	}

	title := draft.Title
	if title == "" {
		title = draft.URL
	}

	page := &domain.Page{
		BookID:      draft.BookID,
		Title:       title,
		URL:         normalize.URL(draft.URL),
		Description: draft.Description,
		Content:     draft.Content,
		Status:      domain.StatusActive,
	}
	page.ID = id.MustGenerateLocal("page")
	page.InitTimestamps()
	page.LocalOnly = true
	page.LocalChanges = true
	for _, tag := range draft.Tags {
		if tag.Label != "" {
			page.AddTag(tag)
		}
	}

	l.pages[page.ID] = page
	if draft.BookID != "" {
		l.books[draft.BookID].AddPage(page.ID)
	} else {
		l.rootOrder = appendUnique(l.rootOrder, page.ID)
	}
	return page.Clone(), nil
}

// UpdatePage applies fn to the page's user-editable fields and marks it
// dirty. fn must not change ID or BookID; refiling goes through MovePage
// so both books' orderings stay consistent. An invalid status set by fn
// rejects the whole update.
func (l *Library) UpdatePage(pageID string, fn func(*domain.Page)) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return errors.NotFoundf("page %s not found", pageID)
	}

	next := page.Clone()
	fn(next)
	if !next.Status.Valid() {
		return errors.Validationf("invalid page status %q", next.Status)
	}
	next.ID = page.ID
	next.BookID = page.BookID
	next.Touch()

	l.pages[pageID] = next
	if next.Pinned {
		l.pinnedOrder = appendUnique(l.pinnedOrder, pageID)
	} else {
		l.pinnedOrder = remove(l.pinnedOrder, pageID)
	}
	return nil
}

// MovePage refiles a page into another book (or the root when newBookID is
// empty). The source ordering, destination ordering and the page's BookID
// change in one step.
func (l *Library) MovePage(pageID, newBookID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return errors.NotFoundf("page %s not found", pageID)
	}
	if newBookID != "" {
		if _, ok := l.books[newBookID]; !ok {
			return errors.NotFoundf("book %s not found", newBookID)
		}
	}
	if page.BookID == newBookID {
		return nil
	}

	// Detach from the current container.
	if page.BookID != "" {
		if src, ok := l.books[page.BookID]; ok {
			src.RemovePage(pageID)
		}
	} else {
		l.rootOrder = remove(l.rootOrder, pageID)
	}

	// Attach to the new one.
	if newBookID != "" {
		l.books[newBookID].AddPage(pageID)
	} else {
		l.rootOrder = appendUnique(l.rootOrder, pageID)
	}

	page.BookID = newBookID
	page.Touch()
	return nil
}

// ReorderPage moves a page to the given index within its container's
// ordering (its book's page list, or the root ordering for unfiled pages).
// The index is clamped to the list bounds.
func (l *Library) ReorderPage(pageID string, index int) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return errors.NotFoundf("page %s not found", pageID)
	}

	if page.BookID != "" {
		book, ok := l.books[page.BookID]
		if !ok {
			return errors.NotFoundf("book %s not found", page.BookID)
		}
		book.PageIDs = moveTo(book.PageIDs, pageID, index)
		book.Touch()
	} else {
		l.rootOrder = moveTo(l.rootOrder, pageID, index)
	}
	page.Touch()
	return nil
}

// SetPinned pins or unpins a page, keeping the pinned ordering in step:
// every id in pinnedOrder is a pinned page.
func (l *Library) SetPinned(pageID string, pinned bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return errors.NotFoundf("page %s not found", pageID)
	}
	if page.Pinned == pinned {
		return nil
	}

	page.Pinned = pinned
	page.Touch()
	if pinned {
		l.pinnedOrder = appendUnique(l.pinnedOrder, pageID)
	} else {
		l.pinnedOrder = remove(l.pinnedOrder, pageID)
	}
	return nil
}

// DeletePage removes a page and its id from every ordering it appears in.
func (l *Library) DeletePage(pageID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	page, ok := l.pages[pageID]
	if !ok {
		return errors.NotFoundf("page %s not found", pageID)
	}

	if page.BookID != "" {
		if book, ok := l.books[page.BookID]; ok {
			book.RemovePage(pageID)
		}
	}
	l.rootOrder = remove(l.rootOrder, pageID)
	l.pinnedOrder = remove(l.pinnedOrder, pageID)
	delete(l.pages, pageID)
	l.logger.Debug("deleted page", "page_id", pageID)
	return nil
}

// remove returns list without id.
func remove(list []string, id string) []string {
	for i, existing := range list {
		if existing == id {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}

// moveTo returns list with id moved to index, clamped to bounds. If id is
// not present it is inserted.
func moveTo(list []string, id string, index int) []string {
	list = remove(list, id)
	if index < 0 {
		index = 0
	}
	if index > len(list) {
		index = len(list)
	}
	return slices.Insert(list, index, id)
}
