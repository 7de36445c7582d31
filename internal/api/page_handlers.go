package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/search"
	"github.com/emperorapp/emperor/internal/service"
)

func (s *Server) registerPageRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listPages",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages",
		Summary:     "List pages",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListPages)

	huma.Register(s.api, huma.Operation{
		OperationID: "createPage",
		Method:      http.MethodPost,
		Path:        "/api/v1/pages",
		Summary:     "Create page",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreatePage)

	huma.Register(s.api, huma.Operation{
		OperationID: "searchPages",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/search",
		Summary:     "Search pages",
		Description: "Full-text search across titles, descriptions, content and notes.",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleSearchPages)

	huma.Register(s.api, huma.Operation{
		OperationID: "getPage",
		Method:      http.MethodGet,
		Path:        "/api/v1/pages/{id}",
		Summary:     "Get page",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetPage)

	huma.Register(s.api, huma.Operation{
		OperationID: "updatePage",
		Method:      http.MethodPatch,
		Path:        "/api/v1/pages/{id}",
		Summary:     "Update page",
		Description: "Applies a partial update; absent fields are left unchanged.",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdatePage)

	huma.Register(s.api, huma.Operation{
		OperationID: "deletePage",
		Method:      http.MethodDelete,
		Path:        "/api/v1/pages/{id}",
		Summary:     "Delete page",
		Tags:        []string{"Pages"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeletePage)
}

// === DTOs ===

// ListPagesInput filters the page listing.
type ListPagesInput struct {
	BookID string `query:"book_id" doc:"Restrict to one book"`
	Tag    string `query:"tag" doc:"Restrict to one tag label"`
	Status string `query:"status" doc:"Restrict to one status"`
}

// ListPagesOutput wraps the page listing for Huma.
type ListPagesOutput struct {
	Body struct {
		Pages []*domain.Page `json:"pages"`
	}
}

// CreatePageInput wraps the create request for Huma.
type CreatePageInput struct {
	Body service.CreatePageRequest
}

// PageOutput wraps a single page for Huma.
type PageOutput struct {
	Body *domain.Page
}

// GetPageInput identifies a page by path parameter.
type GetPageInput struct {
	ID string `path:"id" doc:"Page ID"`
}

// UpdatePageInput wraps the patch request for Huma.
type UpdatePageInput struct {
	ID   string `path:"id" doc:"Page ID"`
	Body service.UpdatePageRequest
}

// DeletePageInput identifies the page to delete.
type DeletePageInput struct {
	ID string `path:"id" doc:"Page ID"`
}

// SearchPagesInput contains the search query and filters.
type SearchPagesInput struct {
	Query  string `query:"q" doc:"Search query"`
	BookID string `query:"book_id" doc:"Restrict to one book"`
	Tag    string `query:"tag" doc:"Restrict to one tag label"`
	Status string `query:"status" doc:"Restrict to one status"`
	Limit  int    `query:"limit" default:"20" minimum:"1" maximum:"100" doc:"Max results"`
	Offset int    `query:"offset" minimum:"0" doc:"Result offset"`
}

// SearchPagesOutput wraps the search result for Huma.
type SearchPagesOutput struct {
	Body search.SearchResult
}

func (s *Server) handleListPages(ctx context.Context, input *ListPagesInput) (*ListPagesOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	pages, err := s.services.Pages.ListPages(ctx, service.ListPagesParams{
		BookID: input.BookID,
		Tag:    input.Tag,
		Status: input.Status,
	})
	if err != nil {
		return nil, err
	}

	out := &ListPagesOutput{}
	out.Body.Pages = pages
	return out, nil
}

func (s *Server) handleCreatePage(ctx context.Context, input *CreatePageInput) (*PageOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.CreatePage(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}

func (s *Server) handleGetPage(ctx context.Context, input *GetPageInput) (*PageOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.GetPage(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}

func (s *Server) handleUpdatePage(ctx context.Context, input *UpdatePageInput) (*PageOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	page, err := s.services.Pages.UpdatePage(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &PageOutput{Body: page}, nil
}

func (s *Server) handleDeletePage(ctx context.Context, input *DeletePageInput) (*DeleteOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Pages.DeletePage(ctx, input.ID); err != nil {
		return nil, err
	}
	out := &DeleteOutput{}
	out.Body.Status = "ok"
	return out, nil
}

func (s *Server) handleSearchPages(ctx context.Context, input *SearchPagesInput) (*SearchPagesOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	result, err := s.services.Search.Search(ctx, search.SearchParams{
		Query:  input.Query,
		BookID: input.BookID,
		Tag:    input.Tag,
		Status: input.Status,
		Limit:  input.Limit,
		Offset: input.Offset,
	})
	if err != nil {
		return nil, err
	}
	return &SearchPagesOutput{Body: *result}, nil
}
