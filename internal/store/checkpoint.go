package store

import (
	"context"
	"fmt"
	"time"
)

// Checkpoint returns the most recent UpdatedAt across all books and
// pages: when the library last changed. Zero when the store is empty.
func (s *Store) Checkpoint(ctx context.Context) (time.Time, error) {
	var latest time.Time

	for book, err := range s.Books.List(ctx) {
		if err != nil {
			return time.Time{}, fmt.Errorf("get checkpoint: %w", err)
		}
		if book.UpdatedAt.After(latest) {
			latest = book.UpdatedAt
		}
	}
	for page, err := range s.Pages.List(ctx) {
		if err != nil {
			return time.Time{}, fmt.Errorf("get checkpoint: %w", err)
		}
		if page.UpdatedAt.After(latest) {
			latest = page.UpdatedAt
		}
	}
	return latest, nil
}
