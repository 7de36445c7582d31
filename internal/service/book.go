package service

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
	"github.com/emperorapp/emperor/internal/store"
	"github.com/emperorapp/emperor/internal/validation"
)

// BookService manages server-side book (folder) CRUD.
type BookService struct {
	store     *store.Store
	validator *validation.Validator
	logger    *slog.Logger
}

// NewBookService creates a new book service.
func NewBookService(store *store.Store, validator *validation.Validator, logger *slog.Logger) *BookService {
	return &BookService{
		store:     store,
		validator: validator,
		logger:    logger,
	}
}

// CreateBookRequest contains the fields for creating a book.
type CreateBookRequest struct {
	Name     string  `json:"name" validate:"required,max=256"`
	ParentID string  `json:"parent_id,omitempty"`
	Icon     string  `json:"icon,omitempty" validate:"max=64"`
	Order    float64 `json:"order,omitempty"`
}

// UpdateBookRequest contains the optional fields of a book PATCH.
// Nil pointers leave the existing value untouched.
type UpdateBookRequest struct {
	Name     *string  `json:"name,omitempty" validate:"omitempty,max=256"`
	ParentID *string  `json:"parent_id,omitempty"`
	Icon     *string  `json:"icon,omitempty" validate:"omitempty,max=64"`
	Order    *float64 `json:"order,omitempty"`
}

// CreateBook creates a new book.
func (s *BookService) CreateBook(ctx context.Context, req CreateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}
	if req.ParentID != "" {
		if _, err := s.store.Books.Get(ctx, req.ParentID); err != nil {
			return nil, fmt.Errorf("lookup parent: %w", err)
		}
	}

	bookID, err := id.Generate("book")
	if err != nil {
		return nil, fmt.Errorf("generate book ID: %w", err)
	}

	book := &domain.Book{
		Syncable: domain.Syncable{ID: bookID},
		Name:     req.Name,
		ParentID: req.ParentID,
		Icon:     req.Icon,
		Order:    req.Order,
		PageIDs:  []string{},
	}
	book.InitTimestamps()

	if err := s.store.Books.Create(ctx, bookID, book); err != nil {
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created", "book_id", bookID, "name", book.Name)
	return book, nil
}

// GetBook returns a book by id.
func (s *BookService) GetBook(ctx context.Context, bookID string) (*domain.Book, error) {
	return s.store.Books.Get(ctx, bookID)
}

// ListBooks returns all books sorted by name.
func (s *BookService) ListBooks(ctx context.Context) ([]*domain.Book, error) {
	books := []*domain.Book{}
	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		books = append(books, book)
	}
	sort.Slice(books, func(i, j int) bool { return books[i].Name < books[j].Name })
	return books, nil
}

// UpdateBook applies a partial update to a book.
func (s *BookService) UpdateBook(ctx context.Context, bookID string, req UpdateBookRequest) (*domain.Book, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		book.Name = *req.Name
	}
	if req.ParentID != nil {
		if err := s.checkReparent(ctx, book, *req.ParentID); err != nil {
			return nil, err
		}
		book.ParentID = *req.ParentID
	}
	if req.Icon != nil {
		book.Icon = *req.Icon
	}
	if req.Order != nil {
		book.Order = *req.Order
	}
	book.Touch()

	if err := s.store.Books.Update(ctx, bookID, book); err != nil {
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.Info("book updated", "book_id", bookID)
	return book, nil
}

// DeleteBook removes a book. Its pages are reassigned to the root
// (unfiled), child books are reparented to the deleted book's parent,
// and a tombstone is written so syncing clients learn of the deletion.
func (s *BookService) DeleteBook(ctx context.Context, bookID string) error {
	book, err := s.store.Books.Get(ctx, bookID)
	if err != nil {
		return err
	}

	for page, err := range s.store.Pages.ListByIndex(ctx, "book", bookID) {
		if err != nil {
			return fmt.Errorf("list pages in book: %w", err)
		}
		page.BookID = ""
		page.Touch()
		if err := s.store.Pages.Update(ctx, page.ID, page); err != nil {
			return fmt.Errorf("unfile page %s: %w", page.ID, err)
		}
	}

	for child, err := range s.store.Books.List(ctx) {
		if err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		if child.ParentID != bookID {
			continue
		}
		child.ParentID = book.ParentID
		child.Touch()
		if err := s.store.Books.Update(ctx, child.ID, child); err != nil {
			return fmt.Errorf("reparent book %s: %w", child.ID, err)
		}
	}

	if err := s.store.Books.Delete(ctx, bookID); err != nil {
		return fmt.Errorf("delete book: %w", err)
	}
	if err := s.store.WriteTombstone(ctx, EntityTypeBook, bookID); err != nil {
		return fmt.Errorf("write tombstone: %w", err)
	}

	s.logger.Info("book deleted", "book_id", bookID, "name", book.Name)
	return nil
}

// checkReparent rejects a ParentID change that would make the book an
// ancestor of itself.
func (s *BookService) checkReparent(ctx context.Context, book *domain.Book, newParentID string) error {
	if newParentID == "" {
		return nil
	}

	parents := make(map[string]string)
	for b, err := range s.store.Books.List(ctx) {
		if err != nil {
			return fmt.Errorf("list books: %w", err)
		}
		parents[b.ID] = b.ParentID
	}
	if _, ok := parents[newParentID]; !ok {
		return errors.NotFoundf("%s not found", newParentID)
	}
	if domain.WouldCycle(parents, book.ID, newParentID) {
		return errors.Validationf("moving book under %s would create a cycle", newParentID)
	}
	return nil
}
