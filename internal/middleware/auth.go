package middleware

import (
	"context"
	"net/http"
	"strings"

	"farmfi-backend/internal/auth"
	"farmfi-backend/internal/models"
	"farmfi-backend/pkg/utils"
)

type contextKey string

const identityKey contextKey = "identity"

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
}

func NewAuthMiddleware(jwtManager *auth.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the bearer token and stores the caller's identity
// in the request context.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			utils.Error(w, http.StatusUnauthorized, "Authorization header required", nil)
			return
		}

		// Extract token from "Bearer <token>"
		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			utils.Error(w, http.StatusUnauthorized, "Invalid authorization format", nil)
			return
		}

		id, err := m.Identify(parts[1])
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, "Invalid or expired token", nil)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
	})
}

// Identify validates a raw token. The websocket endpoint uses it directly
// because browsers cannot set headers on the upgrade request.
func (m *AuthMiddleware) Identify(token string) (models.Identity, error) {
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return models.Identity{}, err
	}
	return claims.Identity(), nil
}

// RequireRole rejects authenticated callers outside allowedRoles. It must
// run after Authenticate.
func RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, ok := IdentityFrom(r.Context())
			if !ok {
				utils.Error(w, http.StatusUnauthorized, "Authentication required", nil)
				return
			}
			for _, role := range allowedRoles {
				if id.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, http.StatusForbidden, "Forbidden: Insufficient permissions", nil)
		})
	}
}

func WithIdentity(ctx context.Context, id models.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFrom extracts the authenticated caller from request context
func IdentityFrom(ctx context.Context) (models.Identity, bool) {
	id, ok := ctx.Value(identityKey).(models.Identity)
	return id, ok
}
