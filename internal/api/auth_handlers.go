package api

import (
	"context"
	"net/http"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emperorapp/emperor/internal/service"
)

func (s *Server) registerAuthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "getAuthStatus",
		Method:      http.MethodGet,
		Path:        "/api/v1/auth/status",
		Summary:     "Setup status",
		Description: "Reports whether first-run setup is still required.",
		Tags:        []string{"Authentication"},
	}, s.handleAuthStatus)

	huma.Register(s.api, huma.Operation{
		OperationID: "setup",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/setup",
		Summary:     "Initial server setup",
		Description: "Sets the owner password. Can only be called once.",
		Tags:        []string{"Authentication"},
	}, s.handleSetup)

	huma.Register(s.api, huma.Operation{
		OperationID: "login",
		Method:      http.MethodPost,
		Path:        "/api/v1/auth/login",
		Summary:     "Device login",
		Description: "Verifies the owner password and issues an access token for the device.",
		Tags:        []string{"Authentication"},
	}, s.handleLogin)
}

// === DTOs ===

// AuthStatusOutput wraps the setup status for Huma.
type AuthStatusOutput struct {
	Body struct {
		SetupRequired bool `json:"setup_required" doc:"Whether first-run setup is still required"`
	}
}

// SetupRequest is the request body for initial server setup.
type SetupRequest struct {
	Password string `json:"password" doc:"Owner password"`
}

// SetupInput wraps the setup request for Huma.
type SetupInput struct {
	Body SetupRequest
}

// SetupOutput wraps the setup response for Huma.
type SetupOutput struct {
	Body struct {
		Status string `json:"status"`
	}
}

// LoginRequest is the request body for device login.
type LoginRequest struct {
	Password string `json:"password" doc:"Owner password"`
	Device   string `json:"device" doc:"Device label the token is issued for"`
}

// LoginInput wraps the login request for Huma.
type LoginInput struct {
	Body LoginRequest
}

// LoginOutput wraps the login response for Huma.
type LoginOutput struct {
	Body service.AuthResponse
}

func (s *Server) handleAuthStatus(ctx context.Context, _ *struct{}) (*AuthStatusOutput, error) {
	required, err := s.services.Auth.IsSetupRequired(ctx)
	if err != nil {
		return nil, err
	}
	out := &AuthStatusOutput{}
	out.Body.SetupRequired = required
	return out, nil
}

func (s *Server) handleSetup(ctx context.Context, input *SetupInput) (*SetupOutput, error) {
	if err := s.services.Auth.Setup(ctx, service.SetupRequest(input.Body)); err != nil {
		return nil, err
	}
	out := &SetupOutput{}
	out.Body.Status = "ok"
	return out, nil
}

func (s *Server) handleLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	resp, err := s.services.Auth.Login(ctx, service.LoginRequest(input.Body))
	if err != nil {
		return nil, err
	}
	return &LoginOutput{Body: *resp}, nil
}
