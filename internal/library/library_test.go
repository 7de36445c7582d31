package library

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
)

func setupLibrary(t *testing.T) *Library {
	t.Helper()
	return New(nil)
}

func TestCreateBook(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	assert.True(t, id.IsLocal(book.ID))
	assert.True(t, book.LocalOnly)
	assert.True(t, book.LocalChanges)
	assert.Greater(t, book.Order, 0.0)

	_, err = lib.CreateBook("", "")
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = lib.CreateBook("Orphan", "book-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreateBookSiblingOrder(t *testing.T) {
	lib := setupLibrary(t)

	first, err := lib.CreateBook("A", "")
	require.NoError(t, err)
	second, err := lib.CreateBook("B", "")
	require.NoError(t, err)

	assert.Greater(t, second.Order, first.Order)
}

func TestMoveBookRejectsCycles(t *testing.T) {
	lib := setupLibrary(t)

	parent, err := lib.CreateBook("parent", "")
	require.NoError(t, err)
	child, err := lib.CreateBook("child", parent.ID)
	require.NoError(t, err)
	grandchild, err := lib.CreateBook("grandchild", child.ID)
	require.NoError(t, err)

	err = lib.MoveBook(parent.ID, grandchild.ID)
	assert.ErrorIs(t, err, errors.ErrValidation)

	// The failed move left the tree untouched.
	got, err := lib.Book(parent.ID)
	require.NoError(t, err)
	assert.Empty(t, got.ParentID)

	err = lib.MoveBook(parent.ID, parent.ID)
	assert.ErrorIs(t, err, errors.ErrValidation)

	require.NoError(t, lib.MoveBook(grandchild.ID, parent.ID))
	got, err = lib.Book(grandchild.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, got.ParentID)
}

func TestDeleteBookReassignsContents(t *testing.T) {
	lib := setupLibrary(t)

	parent, err := lib.CreateBook("parent", "")
	require.NoError(t, err)
	middle, err := lib.CreateBook("middle", parent.ID)
	require.NoError(t, err)
	child, err := lib.CreateBook("child", middle.ID)
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://example.com", BookID: middle.ID})
	require.NoError(t, err)

	require.NoError(t, lib.DeleteBook(middle.ID))

	// The orphaned child moves up to the deleted book's parent.
	gotChild, err := lib.Book(child.ID)
	require.NoError(t, err)
	assert.Equal(t, parent.ID, gotChild.ParentID)

	// The page lands in the root ordering with its book reference cleared.
	gotPage, err := lib.Page(page.ID)
	require.NoError(t, err)
	assert.Empty(t, gotPage.BookID)
	roots := lib.RootPages()
	require.Len(t, roots, 1)
	assert.Equal(t, page.ID, roots[0].ID)
}

func TestCreatePage(t *testing.T) {
	lib := setupLibrary(t)

	page, err := lib.CreatePage(PageDraft{URL: "https://example.com/post/"})
	require.NoError(t, err)
	assert.True(t, id.IsLocal(page.ID))
	assert.Equal(t, "https://example.com/post", page.URL)
	assert.Equal(t, "https://example.com/post", page.Title) // falls back to the URL
	assert.Equal(t, domain.StatusActive, page.Status)

	roots := lib.RootPages()
	require.Len(t, roots, 1)

	_, err = lib.CreatePage(PageDraft{})
	assert.ErrorIs(t, err, errors.ErrValidation)

	_, err = lib.CreatePage(PageDraft{URL: "https://x.dev", BookID: "book-missing"})
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestCreatePageInBook(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://example.com", BookID: book.ID})
	require.NoError(t, err)

	pages, err := lib.PagesByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, page.ID, pages[0].ID)
	assert.Empty(t, lib.RootPages())
}

func TestUpdatePage(t *testing.T) {
	lib := setupLibrary(t)

	page, err := lib.CreatePage(PageDraft{URL: "https://example.com"})
	require.NoError(t, err)
	before, err := lib.Page(page.ID)
	require.NoError(t, err)

	err = lib.UpdatePage(page.ID, func(p *domain.Page) {
		p.Title = "Renamed"
		p.Status = domain.StatusFavorite
	})
	require.NoError(t, err)

	got, err := lib.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Title)
	assert.Equal(t, domain.StatusFavorite, got.Status)
	assert.True(t, got.LocalChanges)
	assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))

	err = lib.UpdatePage(page.ID, func(p *domain.Page) {
		p.Status = "bogus"
	})
	assert.ErrorIs(t, err, errors.ErrValidation)
	got, err = lib.Page(page.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusFavorite, got.Status) // rejected update changed nothing
}

func TestMovePage(t *testing.T) {
	lib := setupLibrary(t)

	src, err := lib.CreateBook("src", "")
	require.NoError(t, err)
	dst, err := lib.CreateBook("dst", "")
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://example.com", BookID: src.ID})
	require.NoError(t, err)

	require.NoError(t, lib.MovePage(page.ID, dst.ID))

	srcPages, err := lib.PagesByBook(src.ID)
	require.NoError(t, err)
	assert.Empty(t, srcPages)
	dstPages, err := lib.PagesByBook(dst.ID)
	require.NoError(t, err)
	require.Len(t, dstPages, 1)
	assert.Equal(t, dst.ID, dstPages[0].BookID)

	// Book to root and back.
	require.NoError(t, lib.MovePage(page.ID, ""))
	require.Len(t, lib.RootPages(), 1)
	require.NoError(t, lib.MovePage(page.ID, src.ID))
	assert.Empty(t, lib.RootPages())

	err = lib.MovePage(page.ID, "book-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestReorderPage(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	var ids []string
	for _, url := range []string{"https://a.dev", "https://b.dev", "https://c.dev"} {
		p, err := lib.CreatePage(PageDraft{URL: url, BookID: book.ID})
		require.NoError(t, err)
		ids = append(ids, p.ID)
	}

	require.NoError(t, lib.ReorderPage(ids[2], 0))

	pages, err := lib.PagesByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, pages, 3)
	assert.Equal(t, ids[2], pages[0].ID)
	assert.Equal(t, ids[0], pages[1].ID)

	// Out-of-range index clamps to the end.
	require.NoError(t, lib.ReorderPage(ids[2], 99))
	pages, err = lib.PagesByBook(book.ID)
	require.NoError(t, err)
	assert.Equal(t, ids[2], pages[2].ID)
}

func TestSetPinned(t *testing.T) {
	lib := setupLibrary(t)

	first, err := lib.CreatePage(PageDraft{URL: "https://a.dev"})
	require.NoError(t, err)
	second, err := lib.CreatePage(PageDraft{URL: "https://b.dev"})
	require.NoError(t, err)

	require.NoError(t, lib.SetPinned(first.ID, true))
	require.NoError(t, lib.SetPinned(second.ID, true))
	require.NoError(t, lib.SetPinned(second.ID, true)) // idempotent

	pinned := lib.PinnedPages()
	require.Len(t, pinned, 2)
	assert.Equal(t, first.ID, pinned[0].ID)

	require.NoError(t, lib.SetPinned(first.ID, false))
	pinned = lib.PinnedPages()
	require.Len(t, pinned, 1)
	assert.Equal(t, second.ID, pinned[0].ID)
}

func TestDeletePageRemovesFromOrderings(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://example.com", BookID: book.ID})
	require.NoError(t, err)
	require.NoError(t, lib.SetPinned(page.ID, true))

	require.NoError(t, lib.DeletePage(page.ID))

	_, err = lib.Page(page.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
	pages, err := lib.PagesByBook(book.ID)
	require.NoError(t, err)
	assert.Empty(t, pages)
	assert.Empty(t, lib.PinnedPages())
	assert.Empty(t, lib.RootPages())
}

func TestPagesByBookAppendsUnlisted(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	listed, err := lib.CreatePage(PageDraft{URL: "https://a.dev", BookID: book.ID})
	require.NoError(t, err)

	// A page referencing the book without an ordering entry, as a merge
	// can produce.
	snap := lib.Snapshot()
	stray := &domain.Page{BookID: book.ID, Title: "stray", URL: "https://b.dev", Status: domain.StatusActive}
	stray.ID = "page-stray"
	stray.InitTimestamps()
	snap.Bookmarks = append(snap.Bookmarks, stray)
	lib.Replace(snap)

	pages, err := lib.PagesByBook(book.ID)
	require.NoError(t, err)
	require.Len(t, pages, 2)
	assert.Equal(t, listed.ID, pages[0].ID)
	assert.Equal(t, "page-stray", pages[1].ID)
}

func TestPinnedPagesPrunesStaleIDs(t *testing.T) {
	lib := setupLibrary(t)

	page, err := lib.CreatePage(PageDraft{URL: "https://a.dev"})
	require.NoError(t, err)
	require.NoError(t, lib.SetPinned(page.ID, true))

	// A merge can leave the pinned ordering pointing at pages that no
	// longer exist or are no longer pinned.
	snap := lib.Snapshot()
	snap.PinnedOrder = append(snap.PinnedOrder, "page-gone")
	lib.Replace(snap)

	pinned := lib.PinnedPages()
	require.Len(t, pinned, 1)
	assert.Equal(t, page.ID, pinned[0].ID)

	// Pruned for good, not just filtered from the result.
	snap = lib.Snapshot()
	assert.Equal(t, []string{page.ID}, snap.PinnedOrder)
}

func TestSnapshotIsDeepCopy(t *testing.T) {
	lib := setupLibrary(t)

	page, err := lib.CreatePage(PageDraft{URL: "https://a.dev"})
	require.NoError(t, err)

	snap := lib.Snapshot()
	snap.Bookmarks[0].Title = "mutated"
	snap.RootOrder[0] = "page-clobbered"

	got, err := lib.Page(page.ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.Title)
	require.Len(t, lib.RootPages(), 1)
}

func TestApplyMergeSwapsState(t *testing.T) {
	lib := setupLibrary(t)
	_, err := lib.CreatePage(PageDraft{URL: "https://example.com/old"})
	require.NoError(t, err)

	replacement := domain.NewSnapshot()
	page := &domain.Page{Title: "merged", URL: "https://example.com/merged", Status: domain.StatusActive}
	page.ID = "page-merged"
	replacement.Bookmarks = append(replacement.Bookmarks, page)
	replacement.RootOrder = []string{"page-merged"}

	lib.ApplyMerge(func(snap *domain.Snapshot) *domain.Snapshot {
		require.Len(t, snap.Bookmarks, 1, "merge sees the current state")
		return replacement
	})

	books, pages := lib.Counts()
	assert.Equal(t, 0, books)
	assert.Equal(t, 1, pages)
	got, err := lib.Page("page-merged")
	require.NoError(t, err)
	assert.Equal(t, "merged", got.Title)
}

func TestApplyMergeMutationDuringMergeNotLost(t *testing.T) {
	lib := setupLibrary(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	mergeDone := make(chan struct{})
	type createResult struct {
		page *domain.Page
		err  error
	}
	created := make(chan createResult, 1)

	go func() {
		lib.ApplyMerge(func(snap *domain.Snapshot) *domain.Snapshot {
			close(entered)
			<-release
			return snap
		})
		close(mergeDone)
	}()

	// Fire a front-end mutation while the merge holds the lock. It must
	// block until the swap completes and then land on the merged state.
	<-entered
	go func() {
		page, err := lib.CreatePage(PageDraft{URL: "https://example.com/raced"})
		created <- createResult{page, err}
	}()
	time.Sleep(20 * time.Millisecond)
	close(release)
	<-mergeDone

	result := <-created
	require.NoError(t, result.err)
	got, err := lib.Page(result.page.ID)
	require.NoError(t, err)
	assert.True(t, got.LocalOnly, "racing creation survives the merge and syncs next time")
	var rootIDs []string
	for _, p := range lib.RootPages() {
		rootIDs = append(rootIDs, p.ID)
	}
	assert.Contains(t, rootIDs, got.ID)
}

func TestApplyIDMapRewritesAllReferences(t *testing.T) {
	lib := setupLibrary(t)

	parent, err := lib.CreateBook("parent", "")
	require.NoError(t, err)
	child, err := lib.CreateBook("child", parent.ID)
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://a.dev", BookID: child.ID})
	require.NoError(t, err)
	require.NoError(t, lib.SetPinned(page.ID, true))
	rootPage, err := lib.CreatePage(PageDraft{URL: "https://b.dev"})
	require.NoError(t, err)

	lib.ApplyIDMap(map[string]string{
		parent.ID:   "book-srv1",
		child.ID:    "book-srv2",
		page.ID:     "page-srv1",
		rootPage.ID: "page-srv2",
	})

	gotChild, err := lib.Book("book-srv2")
	require.NoError(t, err)
	assert.Equal(t, "book-srv1", gotChild.ParentID)
	assert.Equal(t, []string{"page-srv1"}, gotChild.PageIDs)

	gotPage, err := lib.Page("page-srv1")
	require.NoError(t, err)
	assert.Equal(t, "book-srv2", gotPage.BookID)

	pinned := lib.PinnedPages()
	require.Len(t, pinned, 1)
	assert.Equal(t, "page-srv1", pinned[0].ID)
	roots := lib.RootPages()
	require.Len(t, roots, 1)
	assert.Equal(t, "page-srv2", roots[0].ID)

	_, err = lib.Book(parent.ID)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestMarkSyncedSkipsEditedEntities(t *testing.T) {
	lib := setupLibrary(t)

	page, err := lib.CreatePage(PageDraft{URL: "https://a.dev"})
	require.NoError(t, err)
	pushed, err := lib.Page(page.ID)
	require.NoError(t, err)

	// Edit lands while the push is in flight.
	time.Sleep(2 * time.Millisecond)
	require.NoError(t, lib.UpdatePage(page.ID, func(p *domain.Page) { p.Title = "edited" }))

	lib.MarkSynced(nil, map[string]time.Time{page.ID: pushed.UpdatedAt})

	got, err := lib.Page(page.ID)
	require.NoError(t, err)
	assert.True(t, got.IsDirty(), "in-flight edit must stay dirty")

	// Acknowledging the current version clears the flags.
	lib.MarkSynced(nil, map[string]time.Time{page.ID: got.UpdatedAt})
	got, err = lib.Page(page.ID)
	require.NoError(t, err)
	assert.False(t, got.IsDirty())
	assert.False(t, got.LocalOnly)
}

func TestDirtySets(t *testing.T) {
	lib := setupLibrary(t)

	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	page, err := lib.CreatePage(PageDraft{URL: "https://a.dev"})
	require.NoError(t, err)

	assert.Len(t, lib.DirtyBooks(), 1)
	assert.Len(t, lib.DirtyPages(), 1)

	gotBook, err := lib.Book(book.ID)
	require.NoError(t, err)
	gotPage, err := lib.Page(page.ID)
	require.NoError(t, err)
	lib.MarkSynced(
		map[string]time.Time{book.ID: gotBook.UpdatedAt},
		map[string]time.Time{page.ID: gotPage.UpdatedAt},
	)

	assert.Empty(t, lib.DirtyBooks())
	assert.Empty(t, lib.DirtyPages())
}
