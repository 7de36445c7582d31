package sync

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorapp/emperor/internal/library"
	"github.com/emperorapp/emperor/internal/local"
)

func TestTrackChanges_DirtyEntities(t *testing.T) {
	lib := library.New(nil)
	book, err := lib.CreateBook("Reading", "")
	require.NoError(t, err)
	page, err := lib.CreatePage(library.PageDraft{URL: "https://example.com"})
	require.NoError(t, err)

	changes := TrackChanges(lib, local.SyncedIDs{})

	require.Len(t, changes.DirtyBooks, 1)
	require.Len(t, changes.DirtyPages, 1)
	assert.Equal(t, book.ID, changes.DirtyBooks[0].ID)
	assert.Equal(t, page.ID, changes.DirtyPages[0].ID)
	assert.Empty(t, changes.DeletedBookIDs)
	assert.Empty(t, changes.DeletedPageIDs)
	assert.False(t, changes.Empty())
}

func TestTrackChanges_DetectsLocalDeletions(t *testing.T) {
	lib := library.New(nil)
	page, err := lib.CreatePage(library.PageDraft{URL: "https://example.com"})
	require.NoError(t, err)

	// Both ids were synced before; one of them is gone now.
	synced := local.SyncedIDs{
		Books: []string{"book-removed"},
		Pages: []string{page.ID, "page-removed"},
	}

	changes := TrackChanges(lib, synced)

	assert.Equal(t, []string{"book-removed"}, changes.DeletedBookIDs)
	assert.Equal(t, []string{"page-removed"}, changes.DeletedPageIDs)
}

func TestTrackChanges_CleanLibraryIsEmpty(t *testing.T) {
	lib := library.New(nil)
	changes := TrackChanges(lib, local.SyncedIDs{})
	assert.True(t, changes.Empty())
}

func TestEffectiveSince(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	nearFuture := time.Now().Add(10 * time.Minute)
	farFuture := time.Now().Add(2 * time.Hour)

	assert.Nil(t, EffectiveSince(nil, nil))
	assert.Equal(t, &past, EffectiveSince(&past, nil))
	// Small skew is tolerated, a watermark beyond the bound is garbage.
	assert.Equal(t, &nearFuture, EffectiveSince(&nearFuture, nil))
	assert.Nil(t, EffectiveSince(&farFuture, nil))
}
