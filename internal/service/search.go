package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/search"
	"github.com/emperorapp/emperor/internal/store"
)

// SearchService bridges the search index with the entity store. It
// satisfies store.SearchIndexer so the store and sync paths can keep
// the index current without importing the search package.
type SearchService struct {
	index  *search.SearchIndex
	store  *store.Store
	logger *slog.Logger
}

// NewSearchService creates a new search service.
func NewSearchService(index *search.SearchIndex, store *store.Store, logger *slog.Logger) *SearchService {
	return &SearchService{
		index:  index,
		store:  store,
		logger: logger,
	}
}

// Search runs a query against the page index.
func (s *SearchService) Search(ctx context.Context, params search.SearchParams) (*search.SearchResult, error) {
	return s.index.Search(ctx, params)
}

// IndexPage adds or updates a page in the index.
func (s *SearchService) IndexPage(page *domain.Page) error {
	if err := s.index.IndexPage(page); err != nil {
		return fmt.Errorf("index page: %w", err)
	}
	s.logger.Debug("indexed page", "id", page.ID, "title", page.Title)
	return nil
}

// DeletePage removes a page from the index.
func (s *SearchService) DeletePage(pageID string) error {
	return s.index.DeletePage(pageID)
}

// Rebuild reindexes every page in the store. Run on startup after the
// index was recreated, or when the index has drifted from the store.
func (s *SearchService) Rebuild(ctx context.Context) error {
	var pages []*domain.Page
	for page, err := range s.store.Pages.List(ctx) {
		if err != nil {
			return fmt.Errorf("list pages: %w", err)
		}
		pages = append(pages, page)
	}

	if err := s.index.IndexPages(pages); err != nil {
		return fmt.Errorf("rebuild index: %w", err)
	}

	s.logger.Info("search index rebuilt", "pages", len(pages))
	return nil
}
