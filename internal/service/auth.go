package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/emperorapp/emperor/internal/auth"
	"github.com/emperorapp/emperor/internal/errors"
	"github.com/emperorapp/emperor/internal/store"
	"github.com/emperorapp/emperor/internal/validation"
)

// AuthService handles first-run setup and owner login. Emperor is a
// single-owner server: setup runs exactly once, and every device logs
// in with the same owner password.
type AuthService struct {
	store        *store.Store
	tokenService *auth.TokenService
	validator    *validation.Validator
	logger       *slog.Logger
}

// NewAuthService creates a new authentication service.
func NewAuthService(store *store.Store, tokenService *auth.TokenService, validator *validation.Validator, logger *slog.Logger) *AuthService {
	return &AuthService{
		store:        store,
		tokenService: tokenService,
		validator:    validator,
		logger:       logger,
	}
}

// SetupRequest contains the owner password for first-run setup.
type SetupRequest struct {
	Password string `json:"password" validate:"required,min=8,max=1024"`
}

// LoginRequest contains the owner credentials and a device label the
// issued token is tied to.
type LoginRequest struct {
	Password string `json:"password" validate:"required"`
	Device   string `json:"device" validate:"required,max=128"`
}

// AuthResponse carries the issued access token.
type AuthResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

// IsSetupRequired reports whether first-run setup has not happened yet.
func (s *AuthService) IsSetupRequired(ctx context.Context) (bool, error) {
	_, err := s.store.GetInstance(ctx)
	if errors.Is(err, errors.ErrSetupRequired) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("get instance: %w", err)
	}
	return false, nil
}

// Setup creates the server instance with the owner's password. It can
// only run once; a configured server rejects further setup attempts.
func (s *AuthService) Setup(ctx context.Context, req SetupRequest) error {
	if err := s.validator.Validate(req); err != nil {
		return err
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	instance, err := s.store.CreateInstance(ctx, passwordHash)
	if err != nil {
		return err
	}

	s.logger.Info("server setup complete", "instance_id", instance.ID)
	return nil
}

// Login verifies the owner password and issues an access token for the
// device.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := s.validator.Validate(req); err != nil {
		return nil, err
	}

	instance, err := s.store.GetInstance(ctx)
	if err != nil {
		return nil, err
	}

	if !auth.VerifyPassword(instance.PasswordHash, req.Password) {
		return nil, errors.Unauthorized("invalid password")
	}

	token, err := s.tokenService.GenerateAccessToken(req.Device)
	if err != nil {
		return nil, fmt.Errorf("generate access token: %w", err)
	}

	s.logger.Info("device logged in", "device", req.Device)

	return &AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int(s.tokenService.AccessTokenDuration().Seconds()),
	}, nil
}

// VerifyAccessToken validates a bearer token. Used by the API
// authentication middleware.
func (s *AuthService) VerifyAccessToken(_ context.Context, tokenString string) (*auth.AccessClaims, error) {
	claims, err := s.tokenService.VerifyAccessToken(tokenString)
	if err != nil {
		return nil, errors.Unauthorized("invalid or expired token").WithCause(err)
	}
	return claims, nil
}
