package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emperorapp/emperor/internal/service"
)

func (s *Server) registerSyncRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "pullChanges",
		Method:      http.MethodGet,
		Path:        "/api/v1/sync",
		Summary:     "Pull changes",
		Description: "Returns entities changed since the given watermark, or a full snapshot when no watermark is given.",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePull)

	huma.Register(s.api, huma.Operation{
		OperationID: "pushChanges",
		Method:      http.MethodPost,
		Path:        "/api/v1/sync",
		Summary:     "Push changes",
		Description: "Upserts the client's locally modified entities and returns an id map for provisional ids.",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handlePush)

	huma.Register(s.api, huma.Operation{
		OperationID: "deleteEntity",
		Method:      http.MethodDelete,
		Path:        "/api/v1/sync/entity/{entityType}/{id}",
		Summary:     "Delete entity",
		Description: "Deletes an entity and records a tombstone. Idempotent.",
		Tags:        []string{"Sync"},
		Security:    []map[string][]string{{"bearer": {}}},
	}, s.handleDeleteEntity)
}

// === DTOs ===

// PullInput contains the optional sync watermark.
type PullInput struct {
	Since string `query:"since" doc:"Only return entities updated after this time (RFC3339); omit for a full snapshot"`
}

// PullOutput wraps the pull payload for Huma.
type PullOutput struct {
	Body service.PullResponse
}

// PushInput wraps the push payload for Huma.
type PushInput struct {
	Body service.PushRequest
}

// PushOutput wraps the push acknowledgement for Huma.
type PushOutput struct {
	Body service.PushResponse
}

// DeleteEntityInput identifies the entity to delete.
type DeleteEntityInput struct {
	EntityType string `path:"entityType" doc:"Entity type (book or page)"`
	ID         string `path:"id" doc:"Entity ID"`
}

func (s *Server) handlePull(ctx context.Context, input *PullInput) (*PullOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	var since *time.Time
	if input.Since != "" {
		parsed, err := time.Parse(time.RFC3339, input.Since)
		if err != nil {
			return nil, huma.Error400BadRequest("since must be RFC3339", err)
		}
		since = &parsed
	}

	resp, err := s.services.Sync.Pull(ctx, since)
	if err != nil {
		return nil, err
	}
	return &PullOutput{Body: *resp}, nil
}

func (s *Server) handlePush(ctx context.Context, input *PushInput) (*PushOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	resp, err := s.services.Sync.ApplyPush(ctx, &input.Body)
	if err != nil {
		return nil, err
	}
	return &PushOutput{Body: *resp}, nil
}

func (s *Server) handleDeleteEntity(ctx context.Context, input *DeleteEntityInput) (*DeleteOutput, error) {
	if _, err := GetDevice(ctx); err != nil {
		return nil, err
	}

	if err := s.services.Sync.DeleteEntity(ctx, input.EntityType, input.ID); err != nil {
		return nil, err
	}
	out := &DeleteOutput{}
	out.Body.Status = "ok"
	return out, nil
}
