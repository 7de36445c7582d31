package service

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/emperorapp/emperor/internal/auth"
	"github.com/emperorapp/emperor/internal/search"
	"github.com/emperorapp/emperor/internal/store"
	"github.com/emperorapp/emperor/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// testServices bundles the service layer over temporary storage.
type testServices struct {
	store  *store.Store
	books  *BookService
	pages  *PageService
	sync   *SyncService
	search *SearchService
	auth   *AuthService
}

// setupServices wires the full service layer against a temp badger
// store and a temp bleve index.
func setupServices(t *testing.T) (*testServices, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "emperor-service-test-*")
	require.NoError(t, err)

	s, err := store.New(filepath.Join(tmpDir, "store"), nil)
	require.NoError(t, err)

	idx, err := search.NewSearchIndex(search.Options{DataPath: tmpDir})
	require.NoError(t, err)

	searchSvc := NewSearchService(idx, s, testLogger())
	s.SetSearchIndexer(searchSvc)

	validator := validation.New()

	key, err := auth.LoadOrGenerateKey(tmpDir)
	require.NoError(t, err)
	tokenSvc, err := auth.NewTokenService(key, time.Hour)
	require.NoError(t, err)

	svcs := &testServices{
		store:  s,
		books:  NewBookService(s, validator, testLogger()),
		pages:  NewPageService(s, validator, testLogger()),
		sync:   NewSyncService(s, testLogger()),
		search: searchSvc,
		auth:   NewAuthService(s, tokenSvc, validator, testLogger()),
	}

	cleanup := func() {
		_ = idx.Close()
		_ = s.Close()
		_ = os.RemoveAll(tmpDir)
	}
	return svcs, cleanup
}
