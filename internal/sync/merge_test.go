package sync

import (
	"encoding/json/v2"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorapp/emperor/internal/domain"
)

func makeBook(id, name string) *domain.Book {
	b := &domain.Book{Name: name, PageIDs: []string{}}
	b.ID = id
	b.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b.UpdatedAt = b.CreatedAt
	return b
}

func makePage(id, bookID, title string) *domain.Page {
	p := &domain.Page{BookID: bookID, Title: title, URL: "https://example.com/" + id, Status: domain.StatusActive}
	p.ID = id
	p.CreatedAt = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	p.UpdatedAt = p.CreatedAt
	return p
}

func snapshotWith(books []*domain.Book, pages []*domain.Page) *domain.Snapshot {
	snap := domain.NewSnapshot()
	snap.Books = append(snap.Books, books...)
	snap.Bookmarks = append(snap.Bookmarks, pages...)
	for _, p := range pages {
		if p.BookID == "" {
			snap.RootOrder = append(snap.RootOrder, p.ID)
		}
		if p.Pinned {
			snap.PinnedOrder = append(snap.PinnedOrder, p.ID)
		}
	}
	for _, b := range books {
		for _, p := range pages {
			if p.BookID == b.ID {
				b.PageIDs = append(b.PageIDs, p.ID)
			}
		}
	}
	return snap
}

func TestMerge_InsertsNewRemoteEntities(t *testing.T) {
	rec := NewReconciler(nil)
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "mine")})
	pull := &PullResponse{
		Books: []*domain.Book{makeBook("book-r", "remote book")},
		Pages: []*domain.Page{makePage("page-r", "", "remote page")},
	}

	merged := rec.Merge(local, pull, false)

	require.NotNil(t, merged.BookByID("book-r"))
	require.NotNil(t, merged.PageByID("page-r"))
	require.NotNil(t, merged.PageByID("page-1"))
	// New root page appended after the known local order.
	assert.Equal(t, []string{"page-1", "page-r"}, merged.RootOrder)
}

func TestMerge_ReplacesCleanLocalVerbatim(t *testing.T) {
	rec := NewReconciler(nil)
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "old title")})
	remote := makePage("page-1", "", "edited elsewhere")
	remote.UpdatedAt = remote.UpdatedAt.Add(time.Hour)
	pull := &PullResponse{Pages: []*domain.Page{remote}}

	merged := rec.Merge(local, pull, false)

	got := merged.PageByID("page-1")
	require.NotNil(t, got)
	assert.Equal(t, "edited elsewhere", got.Title)
	assert.True(t, got.UpdatedAt.Equal(remote.UpdatedAt))
}

func TestMerge_LocalWinsOnConflict(t *testing.T) {
	rec := NewReconciler(nil)
	localPage := makePage("page-1", "", "local edit")
	localPage.Notes = "my notes"
	localPage.Pinned = true
	localPage.Status = domain.StatusFavorite
	localPage.Tags = []domain.Tag{domain.NewUserTag("golang")}
	localPage.LocalChanges = true
	local := snapshotWith(nil, []*domain.Page{localPage})

	remote := makePage("page-1", "", "remote edit")
	remote.Notes = "their notes"
	remote.CreatedAt = remote.CreatedAt.Add(-time.Hour)
	remote.UpdatedAt = remote.UpdatedAt.Add(time.Hour)
	pull := &PullResponse{Pages: []*domain.Page{remote}}

	merged := rec.Merge(local, pull, false)

	got := merged.PageByID("page-1")
	require.NotNil(t, got)
	// User-editable fields keep the local values.
	assert.Equal(t, "local edit", got.Title)
	assert.Equal(t, "my notes", got.Notes)
	assert.True(t, got.Pinned)
	assert.Equal(t, domain.StatusFavorite, got.Status)
	assert.True(t, got.HasTag("golang"))
	// Server-controlled timestamps adopt the remote values.
	assert.True(t, got.CreatedAt.Equal(remote.CreatedAt))
	assert.True(t, got.UpdatedAt.Equal(remote.UpdatedAt))
	// The pending edit still goes out on the next push.
	assert.True(t, got.LocalChanges)
}

func TestMerge_LocalWinsOnConflict_Book(t *testing.T) {
	rec := NewReconciler(nil)
	localBook := makeBook("book-1", "renamed locally")
	localBook.Order = 2048
	localBook.LocalChanges = true
	local := snapshotWith([]*domain.Book{localBook}, nil)

	remote := makeBook("book-1", "renamed remotely")
	remote.Order = 512
	remote.UpdatedAt = remote.UpdatedAt.Add(time.Hour)
	pull := &PullResponse{Books: []*domain.Book{remote}}

	merged := rec.Merge(local, pull, false)

	got := merged.BookByID("book-1")
	require.NotNil(t, got)
	assert.Equal(t, "renamed locally", got.Name)
	assert.Equal(t, 2048.0, got.Order)
	assert.True(t, got.UpdatedAt.Equal(remote.UpdatedAt))
	assert.True(t, got.LocalChanges)
}

func TestMerge_Idempotent(t *testing.T) {
	rec := NewReconciler(nil)
	dirty := makePage("page-d", "", "dirty")
	dirty.LocalChanges = true
	local := snapshotWith(
		[]*domain.Book{makeBook("book-1", "reading")},
		[]*domain.Page{makePage("page-1", "book-1", "filed"), dirty},
	)
	pull := &PullResponse{
		Books: []*domain.Book{makeBook("book-1", "reading renamed"), makeBook("book-r", "new")},
		Pages: []*domain.Page{makePage("page-1", "book-1", "filed v2"), makePage("page-r", "", "new")},
	}

	once := rec.Merge(local, pull, false)
	twice := rec.Merge(once, pull, false)

	assert.ElementsMatch(t, entityIDs(once), entityIDs(twice))
	assert.Equal(t, once.RootOrder, twice.RootOrder)
	assert.Equal(t, once.PinnedOrder, twice.PinnedOrder)
	for _, p := range once.Bookmarks {
		again := twice.PageByID(p.ID)
		require.NotNil(t, again)
		assert.Equal(t, p.Title, again.Title)
		assert.Equal(t, p.BookID, again.BookID)
	}
}

func TestMerge_NoDuplicateIDs(t *testing.T) {
	rec := NewReconciler(nil)
	// A corrupt input with a duplicated record must not survive the merge.
	dup := makePage("page-1", "", "dup")
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "orig"), dup})
	pull := &PullResponse{Pages: []*domain.Page{makePage("page-1", "", "remote")}}

	merged := rec.Merge(local, pull, false)

	seen := map[string]int{}
	for _, p := range merged.Bookmarks {
		seen[p.ID]++
	}
	for id, n := range seen {
		assert.Equal(t, 1, n, "page %s duplicated", id)
	}
}

func TestMerge_FullSnapshotDropsRemotelyDeleted(t *testing.T) {
	rec := NewReconciler(nil)
	synced := makePage("page-gone", "", "deleted on other device")
	dirty := makePage("page-keep", "", "edited here")
	dirty.LocalChanges = true
	localOnly := makePage("page-local", "", "never pushed")
	localOnly.LocalOnly = true
	local := snapshotWith(nil, []*domain.Page{synced, dirty, localOnly})

	pull := &PullResponse{Pages: []*domain.Page{}}

	merged := rec.Merge(local, pull, true)

	assert.Nil(t, merged.PageByID("page-gone"))
	assert.NotNil(t, merged.PageByID("page-keep"), "dirty entity survives absence")
	assert.NotNil(t, merged.PageByID("page-local"), "unpushed entity survives absence")
	assert.NotContains(t, merged.RootOrder, "page-gone")
}

func TestMerge_IncrementalPullAbsenceNeverDeletes(t *testing.T) {
	rec := NewReconciler(nil)
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "still here")})
	pull := &PullResponse{Pages: []*domain.Page{}}

	merged := rec.Merge(local, pull, false)

	assert.NotNil(t, merged.PageByID("page-1"))
}

func TestMerge_IncrementalTombstoneDeletesCleanEntities(t *testing.T) {
	rec := NewReconciler(nil)
	clean := makePage("page-gone", "", "deleted on other device")
	dirty := makePage("page-keep", "", "edited here")
	dirty.LocalChanges = true
	book := makeBook("book-gone", "deleted book")
	local := snapshotWith([]*domain.Book{book}, []*domain.Page{clean, dirty})

	// The wire payload an incremental pull carries for deletions.
	raw := `{
		"changes": [
			{"entityType": "page", "entityId": "page-gone", "version": 0, "updatedAt": "2026-02-01T00:00:00Z", "deleted": true},
			{"entityType": "page", "entityId": "page-keep", "version": 0, "updatedAt": "2026-02-01T00:00:00Z", "deleted": true},
			{"entityType": "book", "entityId": "book-gone", "version": 0, "updatedAt": "2026-02-01T00:00:00Z", "deleted": true}
		],
		"books": [], "pages": [], "tags": []
	}`
	var pull PullResponse
	require.NoError(t, json.Unmarshal([]byte(raw), &pull))

	merged := rec.Merge(local, &pull, false)

	assert.Nil(t, merged.PageByID("page-gone"), "clean entity named by a tombstone record is dropped")
	assert.NotNil(t, merged.PageByID("page-keep"), "dirty entity survives a tombstone, local wins")
	assert.Nil(t, merged.BookByID("book-gone"))
	assert.NotContains(t, merged.RootOrder, "page-gone")
}

func TestMerge_TombstoneForUnknownEntityIsNoop(t *testing.T) {
	rec := NewReconciler(nil)
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "untouched")})
	pull := &PullResponse{Changes: []ChangeRecord{
		{EntityType: "page", EntityID: "page-never-seen", Deleted: true},
	}}

	merged := rec.Merge(local, pull, false)

	assert.NotNil(t, merged.PageByID("page-1"))
	assert.Len(t, merged.Bookmarks, 1)
}

func TestMerge_NoDanglingBookID(t *testing.T) {
	rec := NewReconciler(nil)
	book := makeBook("book-1", "doomed")
	page := makePage("page-1", "book-1", "filed")
	local := snapshotWith([]*domain.Book{book}, []*domain.Page{page})

	// Full snapshot in which the book was deleted remotely but the page
	// survived.
	pull := &PullResponse{Pages: []*domain.Page{makePage("page-1", "book-1", "filed")}}

	merged := rec.Merge(local, pull, true)

	assert.Nil(t, merged.BookByID("book-1"))
	got := merged.PageByID("page-1")
	require.NotNil(t, got)
	assert.Empty(t, got.BookID, "page must not reference a deleted book")
}

func TestMerge_OrderingsDropAbsentAndDedupe(t *testing.T) {
	rec := NewReconciler(nil)
	pinned := makePage("page-p", "", "pinned")
	pinned.Pinned = true
	local := snapshotWith(nil, []*domain.Page{makePage("page-1", "", "a"), pinned})
	local.RootOrder = append(local.RootOrder, "page-ghost", "page-1")

	remotePinned := makePage("page-rp", "", "remote pinned")
	remotePinned.Pinned = true
	pull := &PullResponse{Pages: []*domain.Page{remotePinned}}

	merged := rec.Merge(local, pull, false)

	assert.Equal(t, []string{"page-1", "page-p", "page-rp"}, merged.RootOrder)
	assert.Equal(t, []string{"page-p", "page-rp"}, merged.PinnedOrder)
}

func entityIDs(snap *domain.Snapshot) []string {
	var ids []string
	for _, b := range snap.Books {
		ids = append(ids, b.ID)
	}
	for _, p := range snap.Bookmarks {
		ids = append(ids, p.ID)
	}
	return ids
}
