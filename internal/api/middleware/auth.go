package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/quochai/cookflow/internal/api/response"
	"github.com/quochai/cookflow/internal/domain"
	"github.com/quochai/cookflow/internal/security"
)

type contextKey string

const (
	UserIDKey       contextKey = "userID"
	UserEmailKey    contextKey = "userEmail"
	UserUsernameKey contextKey = "userUsername"
)

// AuthMiddleware handles JWT authentication
type AuthMiddleware struct {
	jwtManager *security.JWTManager
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(jwtManager *security.JWTManager) *AuthMiddleware {
	return &AuthMiddleware{jwtManager: jwtManager}
}

// Authenticate validates the JWT token
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			response.Error(w, http.StatusUnauthorized, "missing authorization header")
			return
		}

		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
			response.Error(w, http.StatusUnauthorized, "invalid authorization header format")
			return
		}

		claims, err := m.jwtManager.ValidateAccessToken(parts[1])
		if err != nil {
			response.Unauthorized(w, "invalid or expired token: "+err.Error())
			return
		}

		// Add user info to context
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, UserEmailKey, claims.Email)
		ctx = context.WithValue(ctx, UserUsernameKey, claims.Username)

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetUserID gets the user ID from context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetRequester builds the requester identity from context
func GetRequester(ctx context.Context) (domain.Requester, bool) {
	userID, ok := GetUserID(ctx)
	if !ok {
		return domain.Requester{}, false
	}

	email, _ := ctx.Value(UserEmailKey).(string)
	username, _ := ctx.Value(UserUsernameKey).(string)

	return domain.Requester{
		UserID:   userID,
		Email:    email,
		Username: username,
	}, true
}
