package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/emperorapp/emperor/internal/domain"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/id"
	"github.com/emperorapp/emperor/internal/store"
)

// Entity types accepted by the sync endpoints.
const (
	EntityTypeBook = "book"
	EntityTypePage = "page"
)

// ChangeRecord describes one entity change since a client's watermark.
// Deletions are reported as changes with Deleted set; upserted entities
// ride along in the pull payload itself.
type ChangeRecord struct {
	EntityType string    `json:"entityType"`
	EntityID   string    `json:"entityId"`
	Version    int64     `json:"version"`
	UpdatedAt  time.Time `json:"updatedAt"`
	Deleted    bool      `json:"deleted,omitempty"`
}

// PullResponse is the payload for GET /sync. ServerTime is the server
// clock when the pull was served; clients persist it as their next
// watermark so clock skew cannot make an incremental pull skip changes.
type PullResponse struct {
	Changes    []ChangeRecord `json:"changes"`
	Books      []*domain.Book `json:"books"`
	Pages      []*domain.Page `json:"pages"`
	Tags       []domain.Tag   `json:"tags"`
	ServerTime time.Time      `json:"serverTime"`
}

// PushRequest carries a client's locally modified entities.
type PushRequest struct {
	Books []*domain.Book `json:"books"`
	Pages []*domain.Page `json:"pages"`
	Tags  []domain.Tag   `json:"tags"`
}

// PushResponse acknowledges a push. IDMap maps provisional client ids to
// the canonical ids the server assigned.
type PushResponse struct {
	Status string            `json:"status"`
	IDMap  map[string]string `json:"id_map,omitzero"`
}

// SyncService implements the server side of the sync protocol: delta
// pulls, bulk pushes with provisional-id assignment, and tombstoned
// deletes.
type SyncService struct {
	store  *store.Store
	logger *slog.Logger
}

// NewSyncService creates a new sync service.
func NewSyncService(store *store.Store, logger *slog.Logger) *SyncService {
	return &SyncService{
		store:  store,
		logger: logger,
	}
}

// Pull builds the pull payload for a client. A nil since means the
// client wants a full snapshot: every book and page, no deletion
// records (a full snapshot carries deletions by absence). With a
// watermark, only entities updated strictly after it are returned,
// plus deletion records from tombstones.
func (s *SyncService) Pull(ctx context.Context, since *time.Time) (*PullResponse, error) {
	resp := &PullResponse{
		Changes:    []ChangeRecord{},
		Books:      []*domain.Book{},
		Pages:      []*domain.Page{},
		Tags:       []domain.Tag{},
		ServerTime: time.Now().UTC(),
	}

	tagSet := make(map[string]domain.Tag)

	for book, err := range s.store.Books.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list books: %w", err)
		}
		if since != nil && !book.UpdatedAt.After(*since) {
			continue
		}
		resp.Books = append(resp.Books, book)
		resp.Changes = append(resp.Changes, ChangeRecord{
			EntityType: EntityTypeBook,
			EntityID:   book.ID,
			Version:    book.UpdatedAt.UnixMilli(),
			UpdatedAt:  book.UpdatedAt,
		})
	}

	for page, err := range s.store.Pages.List(ctx) {
		if err != nil {
			return nil, fmt.Errorf("list pages: %w", err)
		}
		if since != nil && !page.UpdatedAt.After(*since) {
			continue
		}
		resp.Pages = append(resp.Pages, page)
		resp.Changes = append(resp.Changes, ChangeRecord{
			EntityType: EntityTypePage,
			EntityID:   page.ID,
			Version:    page.UpdatedAt.UnixMilli(),
			UpdatedAt:  page.UpdatedAt,
		})
		for _, tag := range page.Tags {
			tagSet[tag.Label] = tag
		}
	}

	for _, tag := range tagSet {
		resp.Tags = append(resp.Tags, tag)
	}

	tombstones, err := s.store.TombstonesSince(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list tombstones: %w", err)
	}
	for _, tomb := range tombstones {
		resp.Changes = append(resp.Changes, ChangeRecord{
			EntityType: tomb.EntityType,
			EntityID:   tomb.EntityID,
			Version:    tomb.DeletedAt.UnixMilli(),
			UpdatedAt:  tomb.DeletedAt,
			Deleted:    true,
		})
	}

	s.logger.Debug("pull served",
		"full_snapshot", since == nil,
		"books", len(resp.Books),
		"pages", len(resp.Pages),
		"deletions", len(tombstones),
	)

	return resp, nil
}

// ApplyPush upserts every pushed entity. Entities carrying a
// provisional client-generated id are assigned a canonical id; the
// returned id map tells the client how to rewrite its references.
// References between pushed entities (a page filed under a book that
// was itself just pushed) are remapped before persisting.
func (s *SyncService) ApplyPush(ctx context.Context, req *PushRequest) (*PushResponse, error) {
	idMap := make(map[string]string)

	canonical := func(prefix, provisional string) (string, error) {
		if !id.IsLocal(provisional) {
			return provisional, nil
		}
		assigned, err := id.Generate(prefix)
		if err != nil {
			return "", fmt.Errorf("assign canonical id: %w", err)
		}
		idMap[provisional] = assigned
		return assigned, nil
	}

	for _, book := range req.Books {
		newID, err := canonical("book", book.ID)
		if err != nil {
			return nil, err
		}
		book.ID = newID
		book.LocalOnly = false
		book.LocalChanges = false
	}

	for _, page := range req.Pages {
		newID, err := canonical("page", page.ID)
		if err != nil {
			return nil, err
		}
		page.ID = newID
		page.LocalOnly = false
		page.LocalChanges = false
		if mapped, ok := idMap[page.BookID]; ok {
			page.BookID = mapped
		}
	}

	for _, book := range req.Books {
		if mapped, ok := idMap[book.ParentID]; ok {
			book.ParentID = mapped
		}
		for i, pageID := range book.PageIDs {
			if mapped, ok := idMap[pageID]; ok {
				book.PageIDs[i] = mapped
			}
		}
	}

	for _, book := range req.Books {
		if err := s.store.Books.Upsert(ctx, book.ID, book); err != nil {
			return nil, fmt.Errorf("upsert book %s: %w", book.ID, err)
		}
		// A pushed entity supersedes any earlier deletion of the same id.
		if err := s.store.ClearTombstone(ctx, EntityTypeBook, book.ID); err != nil {
			return nil, fmt.Errorf("clear tombstone: %w", err)
		}
	}

	for _, page := range req.Pages {
		if err := s.store.Pages.Upsert(ctx, page.ID, page); err != nil {
			return nil, fmt.Errorf("upsert page %s: %w", page.ID, err)
		}
		if err := s.store.ClearTombstone(ctx, EntityTypePage, page.ID); err != nil {
			return nil, fmt.Errorf("clear tombstone: %w", err)
		}
		if err := s.store.Search().IndexPage(page); err != nil {
			s.logger.Warn("failed to index pushed page", "page_id", page.ID, "error", err)
		}
	}

	s.logger.Info("push applied",
		"books", len(req.Books),
		"pages", len(req.Pages),
		"assigned_ids", len(idMap),
	)

	return &PushResponse{Status: "ok", IDMap: idMap}, nil
}

// DeleteEntity removes an entity and records a tombstone so other
// clients learn about the deletion on their next delta pull. Deleting
// an entity that is already gone is not an error.
func (s *SyncService) DeleteEntity(ctx context.Context, entityType, entityID string) error {
	entityType = strings.ToLower(entityType)

	switch entityType {
	case EntityTypeBook:
		if err := s.store.Books.Delete(ctx, entityID); err != nil {
			return fmt.Errorf("delete book: %w", err)
		}
	case EntityTypePage:
		if err := s.store.Pages.Delete(ctx, entityID); err != nil {
			return fmt.Errorf("delete page: %w", err)
		}
		if err := s.store.Search().DeletePage(entityID); err != nil {
			s.logger.Warn("failed to deindex deleted page", "page_id", entityID, "error", err)
		}
	default:
		return errors.Validationf("unknown entity type: %s", entityType)
	}

	if err := s.store.WriteTombstone(ctx, entityType, entityID); err != nil {
		return fmt.Errorf("write tombstone: %w", err)
	}

	s.logger.Info("entity deleted", "entity_type", entityType, "entity_id", entityID)
	return nil
}
