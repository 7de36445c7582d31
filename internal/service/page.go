package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
	"github.com/emperorapp/emperor/internal/normalize"
	"github.com/emperorapp/emperor/internal/store"
	"github.com/emperorapp/emperor/internal/validation"
)

// PageService manages server-side bookmark CRUD and keeps the search
// index in step with the store.
type PageService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewPageService creates a new page service.
func NewPageService(store *store.Store, validator *validation.Validator, logger *slog.Logger) *PageService {
	return &PageService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreatePageRequest contains the fields for creating a page.
type CreatePageRequest struct {
	URL         string   `json:"url" validate:"required,url"`
	Title       string   `json:"title,omitempty" validate:"max=512"`
	Description string   `json:"description,omitempty" validate:"max=2048"`
	Content     string   `json:"content,omitempty"`
	BookID      string   `json:"book_id,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// UpdatePageRequest contains the optional fields of a page PATCH.
// Nil pointers leave the existing value untouched.
type UpdatePageRequest struct {
	Title       *string   `json:"title,omitempty" validate:"omitempty,max=512"`
	URL         *string   `json:"url,omitempty" validate:"omitempty,url"`
	Description *string   `json:"description,omitempty" validate:"omitempty,max=2048"`
	Content     *string   `json:"content,omitempty"`
	Notes       *string   `json:"notes,omitempty"`
	BookID      *string   `json:"book_id,omitempty"`
	Pinned      *bool     `json:"pinned,omitempty"`
	Status      *string   `json:"status,omitempty"`
	Tags        *[]string `json:"tags,omitempty"`
}

// ListPagesParams filters a page listing.
type ListPagesParams struct {
	BookID string
	Tag    string
	Status string
}

// CreatePage creates a new page. The title falls back to the URL when
// absent, matching offline client behavior.
func (s *PageService) CreatePage(ctx context.Context, req CreatePageRequest) (*domain.Page, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.BookID != "" {
		if _, err := s.store.Books.Get(ctx, req.BookID); err != nil {
			return nil, fmt.Errorf("lookup book: %w", err)
		}
	}

	pageID, err := id.Generate("page")
	if err != nil {
		return nil, fmt.Errorf("generate page ID: %w", err)
	}

	title := req.Title
	if title == "" {
		title = req.URL
	}

	page := &domain.Page{
		Syncable:    domain.Syncable{ID: pageID},
		URL:         normalize.URL(req.URL),
		Title:       title,
		Description: req.Description,
		Content:     req.Content,
		BookID:      req.BookID,
		Status:      domain.StatusActive,
	}
	for _, label := range req.Tags {
		page.AddTag(domain.NewUserTag(label))
	}
	page.InitTimestamps()

	if err := s.store.Pages.Create(ctx, pageID, page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	if err := s.store.Search().IndexPage(page); err != nil {
		s.logger.Warn("failed to index page", "page_id", pageID, "error", err)
	}

	s.logger.Info("page created", "page_id", pageID, "url", page.URL)
	return page, nil
}

// GetPage returns a page by id.
func (s *PageService) GetPage(ctx context.Context, pageID string) (*domain.Page, error) {
	return s.store.Pages.Get(ctx, pageID)
}

// ListPages returns pages matching the filter, newest first. An empty
// filter returns everything.
func (s *PageService) ListPages(ctx context.Context, params ListPagesParams) ([]*domain.Page, error) {
	pages := []*domain.Page{}

	source := s.store.Pages.List(ctx)
	if params.BookID != "" {
		source = s.store.Pages.ListByIndex(ctx, "book", params.BookID)
	}

	for page, err := range source {
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if params.Tag != "" && !page.HasTag(normalize.TagLabel(params.Tag)) {
			continue
		}
		if params.Status != "" && string(page.Status) != params.Status {
			continue
		}
		pages = append(pages, page)
	}

	sort.Slice(pages, func(i, j int) bool {
		return pages[i].CreatedAt.After(pages[j].CreatedAt)
	})
	return pages, nil
}

// UpdatePage applies a partial update to a page.
func (s *PageService) UpdatePage(ctx context.Context, pageID string, req UpdatePageRequest) (*domain.Page, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	page, err := s.store.Pages.Get(ctx, pageID)
	if err != nil {
		return nil, err
	}

	if req.Status != nil && !domain.PageStatus(*req.Status).Valid() {
		return nil, errors.Validationf("invalid status: %s", *req.Status)
	}
	if req.BookID != nil && *req.BookID != "" {
		if _, err := s.store.Books.Get(ctx, *req.BookID); err != nil {
			return nil, fmt.Errorf("lookup book: %w", err)
		}
	}

	if req.Title != nil {
		page.Title = *req.Title
	}
	if req.URL != nil {
		page.URL = normalize.URL(*req.URL)
	}
	if req.Description != nil {
		page.Description = *req.Description
	}
	if req.Content != nil {
		page.Content = *req.Content
	}
	if req.Notes != nil {
		page.Notes = *req.Notes
	}
	if req.BookID != nil {
		page.BookID = *req.BookID
	}
	if req.Pinned != nil {
		page.Pinned = *req.Pinned
	}
	if req.Status != nil {
		page.Status = domain.PageStatus(*req.Status)
	}
	if req.Tags != nil {
		page.Tags = nil
		for _, label := range *req.Tags {
			page.AddTag(domain.NewUserTag(label))
		}
	}
	page.Touch()

	if err := s.store.Pages.Update(ctx, pageID, page); err != nil {
		return nil, fmt.Errorf("update page: %w", err)
	}
	if err := s.store.Search().IndexPage(page); err != nil {
		s.logger.Warn("failed to reindex page", "page_id", pageID, "error", err)
	}

	s.logger.Info("page updated", "page_id", pageID)
	return page, nil
}

// DeletePage removes a page, deindexes it and writes a tombstone.
func (s *PageService) DeletePage(ctx context.Context, pageID string) error {
	if err := s.store.Pages.Delete(ctx, pageID); err != nil {
		return fmt.Errorf("delete page: %w", err)
	}
	if err := s.store.Search().DeletePage(pageID); err != nil {
		s.logger.Warn("failed to deindex page", "page_id", pageID, "error", err)
	}
	if err := s.store.WriteTombstone(ctx, EntityTypePage, pageID); err != nil {
		return fmt.Errorf("write tombstone: %w", err)
	}

	s.logger.Info("page deleted", "page_id", pageID)
	return nil
}
