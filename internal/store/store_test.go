package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/store"
)

func setupTestStore(t *testing.T) (*store.Store, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "test.db"), nil)
	require.NoError(t, err)

	cleanup := func() {
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return s, cleanup
}

func testPage(id, bookID string) *domain.Page {
	p := &domain.Page{BookID: bookID, Title: "page " + id, URL: "https://example.com/" + id, Status: domain.StatusActive}
	p.ID = id
	p.InitTimestamps()
	return p
}

func testBook(id string) *domain.Book {
	b := &domain.Book{Name: "book " + id, PageIDs: []string{}}
	b.ID = id
	b.InitTimestamps()
	return b
}

func TestEntity_CreateGet(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	book := testBook("book-1")
	require.NoError(t, s.Books.Create(ctx, book.ID, book))

	got, err := s.Books.Get(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, book.Name, got.Name)

	err = s.Books.Create(ctx, book.ID, book)
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)

	_, err = s.Books.Get(ctx, "book-missing")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEntity_Update(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	book := testBook("book-1")
	require.NoError(t, s.Books.Create(ctx, book.ID, book))

	book.Name = "renamed"
	require.NoError(t, s.Books.Update(ctx, book.ID, book))

	got, err := s.Books.Get(ctx, "book-1")
	require.NoError(t, err)
	assert.Equal(t, "renamed", got.Name)

	err = s.Books.Update(ctx, "book-missing", book)
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEntity_DeleteIsIdempotent(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	page := testPage("page-1", "")
	require.NoError(t, s.Pages.Create(ctx, page.ID, page))
	require.NoError(t, s.Pages.Delete(ctx, "page-1"))
	require.NoError(t, s.Pages.Delete(ctx, "page-1"))

	_, err := s.Pages.Get(ctx, "page-1")
	assert.ErrorIs(t, err, errors.ErrNotFound)
}

func TestEntity_Upsert(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	page := testPage("page-1", "book-1")
	require.NoError(t, s.Pages.Upsert(ctx, page.ID, page))
	page.Title = "v2"
	require.NoError(t, s.Pages.Upsert(ctx, page.ID, page))

	got, err := s.Pages.Get(ctx, "page-1")
	require.NoError(t, err)
	assert.Equal(t, "v2", got.Title)
}

func TestEntity_ListByBookIndex(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Pages.Create(ctx, "page-1", testPage("page-1", "book-a")))
	require.NoError(t, s.Pages.Create(ctx, "page-2", testPage("page-2", "book-a")))
	require.NoError(t, s.Pages.Create(ctx, "page-3", testPage("page-3", "book-b")))
	require.NoError(t, s.Pages.Create(ctx, "page-4", testPage("page-4", "")))

	var got []string
	for page, err := range s.Pages.ListByIndex(ctx, "book", "book-a") {
		require.NoError(t, err)
		got = append(got, page.ID)
	}
	assert.ElementsMatch(t, []string{"page-1", "page-2"}, got)

	// Moving a page to another book must update the index.
	moved := testPage("page-1", "book-b")
	require.NoError(t, s.Pages.Update(ctx, "page-1", moved))

	got = nil
	for page, err := range s.Pages.ListByIndex(ctx, "book", "book-a") {
		require.NoError(t, err)
		got = append(got, page.ID)
	}
	assert.Equal(t, []string{"page-2"}, got)

	// Deleting removes the index record too.
	require.NoError(t, s.Pages.Delete(ctx, "page-2"))
	count := 0
	for _, err := range s.Pages.ListByIndex(ctx, "book", "book-a") {
		require.NoError(t, err)
		count++
	}
	assert.Zero(t, count)
}

func TestEntity_ListSkipsIndexKeys(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	require.NoError(t, s.Pages.Create(ctx, "page-1", testPage("page-1", "book-a")))
	require.NoError(t, s.Pages.Create(ctx, "page-2", testPage("page-2", "book-b")))

	var got []string
	for page, err := range s.Pages.List(ctx) {
		require.NoError(t, err)
		got = append(got, page.ID)
	}
	assert.ElementsMatch(t, []string{"page-1", "page-2"}, got)
}

func TestTombstones(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	before := time.Now().Add(-time.Minute)
	require.NoError(t, s.WriteTombstone(ctx, "page", "page-1"))
	require.NoError(t, s.WriteTombstone(ctx, "book", "book-1"))
	// Duplicate write keeps the original deletion time.
	require.NoError(t, s.WriteTombstone(ctx, "page", "page-1"))

	tombs, err := s.TombstonesSince(ctx, &before)
	require.NoError(t, err)
	require.Len(t, tombs, 2)

	after := time.Now()
	tombs, err = s.TombstonesSince(ctx, &after)
	require.NoError(t, err)
	assert.Empty(t, tombs)

	// Full-snapshot pulls carry no tombstones.
	tombs, err = s.TombstonesSince(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, tombs)

	require.NoError(t, s.ClearTombstone(ctx, "page", "page-1"))
	tombs, err = s.TombstonesSince(ctx, &before)
	require.NoError(t, err)
	require.Len(t, tombs, 1)
	assert.Equal(t, "book-1", tombs[0].EntityID)
}

func TestCheckpoint(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	got, err := s.Checkpoint(ctx)
	require.NoError(t, err)
	assert.True(t, got.IsZero())

	book := testBook("book-1")
	book.UpdatedAt = time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Books.Create(ctx, book.ID, book))
	page := testPage("page-1", "book-1")
	page.UpdatedAt = time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.Pages.Create(ctx, page.ID, page))

	got, err = s.Checkpoint(ctx)
	require.NoError(t, err)
	assert.True(t, got.Equal(page.UpdatedAt))
}

func TestInstance(t *testing.T) {
	s, cleanup := setupTestStore(t)
	defer cleanup()
	ctx := context.Background()

	_, err := s.GetInstance(ctx)
	assert.ErrorIs(t, err, errors.ErrSetupRequired)

	created, err := s.CreateInstance(ctx, "argon2-hash")
	require.NoError(t, err)
	assert.True(t, created.SetupComplete())

	got, err := s.GetInstance(ctx)
	require.NoError(t, err)
	assert.Equal(t, "argon2-hash", got.PasswordHash)

	_, err = s.CreateInstance(ctx, "other-hash")
	assert.ErrorIs(t, err, errors.ErrAlreadyExists)
}
