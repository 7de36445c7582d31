package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"

	"github.com/emperorapp/emperor/internal/service"
)

// ctxKey is the type for context keys to avoid collisions.
type ctxKey string

// deviceKey is the context key for the authenticated device label.
const deviceKey ctxKey = "device"

// GetDevice returns the authenticated device label from context.
// Returns a 401 error if the request is not authenticated.
func GetDevice(ctx context.Context) (string, error) {
	device, ok := ctx.Value(deviceKey).(string)
	if !ok || device == "" {
		return "", huma.Error401Unauthorized("Authentication required")
	}
	return device, nil
}

// setDevice stores the device label in context.
func setDevice(ctx context.Context, device string) context.Context {
	return context.WithValue(ctx, deviceKey, device)
}

// authMiddleware validates Bearer tokens and stores the device label in
// context. An absent or invalid token continues without it; handlers
// use GetDevice to reject unauthenticated requests.
func authMiddleware(auth *service.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" || !strings.HasPrefix(authHeader, "Bearer ") {
				next.ServeHTTP(w, r)
				return
			}

			token := authHeader[7:]
			claims, err := auth.VerifyAccessToken(r.Context(), token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}

			ctx := setDevice(r.Context(), claims.Device)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
