package api

import (
	"context"
	"net/http"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// HealthOutput wraps the health response for Huma.
type HealthOutput struct {
	Body struct {
		Status     string    `json:"status" doc:"Server health status"`
		Checkpoint time.Time `json:"checkpoint,omitzero" doc:"Most recent library change, zero when empty"`
	}
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	out := &HealthOutput{}
	out.Body.Status = "healthy"

	checkpoint, err := s.store.Checkpoint(ctx)
	if err != nil {
		s.logger.Warn("failed to read store checkpoint", "error", err)
	} else {
		out.Body.Checkpoint = checkpoint
	}
	return out, nil
}
