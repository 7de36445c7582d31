package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/service"
)

func (s *Server) registerBookRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "listBooks",
		Method:      http.MethodGet,
		Path:        "/api/v1/books",
		Summary:     "List books",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleListBooks)

	huma.Register(s.api, huma.Operation{
		OperationID: "createBook",
		Method:      http.MethodPost,
		Path:        "/api/v1/books",
		Summary:     "Create book",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleCreateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "getBook",
		Method:      http.MethodGet,
		Path:        "/api/v1/books/{id}",
		Summary:     "Get book",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleGetBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "updateBook",
		Method:      http.MethodPatch,
		Path:        "/api/v1/books/{id}",
		Summary:     "Update book",
		Description: "Applies a partial update; absent fields are left unchanged.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleUpdateBook)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteBook",
		Method:      http.MethodDelete,
		Path:        "/api/v1/books/{id}",
		Summary:     "Delete book",
		Description: "Deletes a book; its pages are moved to the root and child books are reparented.",
		Tags:        []string{"Books"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteBook)
}

// === DTOs ===

// ListBooksOutput wraps the book listing for Huma.
type ListBooksOutput struct {
	Body struct {
		Books []*domain.Book `json:"books"`
	}
}

// CreateBookInput wraps the create request for Huma.
type CreateBookInput struct {
	Body service.CreateBookRequest
}

// BookOutput wraps a single book for Huma.
type BookOutput struct {
	Body *domain.Book
}

// GetBookInput identifies a book by path parameter.
type GetBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// UpdateBookInput wraps the patch request for Huma.
type UpdateBookInput struct {
	ID   string `path:"id" doc:"Book ID"`
	Body service.UpdateBookRequest
}

// DeleteBookInput identifies the book to delete.
type DeleteBookInput struct {
	ID string `path:"id" doc:"Book ID"`
}

// DeleteOutput acknowledges a deletion.
type DeleteOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

func (s *Server) handleListBooks(ctx context.Context, _ *struct{}) (*ListBooksOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	books, err := s.services.Books.ListBooks(ctx)
	if err != nil {
		return nil, err
	}

	out := &ListBooksOutput{}
	out.Body.Books = books
	return out, nil
}

func (s *Server) handleCreateBook(ctx context.Context, input *CreateBookInput) (*BookOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Books.CreateBook(ctx, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleGetBook(ctx context.Context, input *GetBookInput) (*BookOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Books.GetBook(ctx, input.ID)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleUpdateBook(ctx context.Context, input *UpdateBookInput) (*BookOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	book, err := s.services.Books.UpdateBook(ctx, input.ID, input.Body)
	if err != nil {
		return nil, err
	}
	return &BookOutput{Body: book}, nil
}

func (s *Server) handleDeleteBook(ctx context.Context, input *DeleteBookInput) (*DeleteOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Books.DeleteBook(ctx, input.ID); err != nil {
		return nil, err
	}
	out := &DeleteOutput{}
	out.Body.Status = "ok"
	return out, nil
}
