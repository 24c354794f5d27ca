package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"birthday-mate-backend/internal/models"
	"birthday-mate-backend/internal/services"

	"github.com/rs/zerolog/log"
)

type contextKey string

const (
	userKey     contextKey = "user"
	identityKey contextKey = "identity"
)

// Authenticator resolves bearer tokens to identities and registered users
type Authenticator interface {
	VerifyToken(ctx context.Context, token string) (*services.Identity, error)
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware requires a valid bearer token that belongs to an active,
// onboarded user
func AuthMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := BearerToken(r)
			if msg != "" {
				respondError(w, msg, http.StatusUnauthorized)
				return
			}

			user, err := auth.Authenticate(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, services.ErrInvalidToken):
					respondError(w, "Invalid token", http.StatusUnauthorized)
				case errors.Is(err, services.ErrNotOnboarded):
					respondError(w, services.ErrNotOnboarded.Error(), http.StatusNotFound)
				case errors.Is(err, services.ErrUserInactive):
					respondError(w, "User account is inactive", http.StatusForbidden)
				default:
					log.Error().Err(err).Msg("Failed to authenticate request")
					respondError(w, "Failed to authenticate", http.StatusInternalServerError)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

// IdentityMiddleware requires a valid bearer token but not a registered user.
// It guards onboarding.
func IdentityMiddleware(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := BearerToken(r)
			if msg != "" {
				respondError(w, msg, http.StatusUnauthorized)
				return
			}

			ident, err := auth.VerifyToken(r.Context(), token)
			if err != nil {
				respondError(w, "Invalid token", http.StatusUnauthorized)
				return
			}

			ctx := context.WithValue(r.Context(), identityKey, ident)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// OptionalUser attaches the user when the request carries a valid token and
// passes the request through unchanged otherwise
func OptionalUser(auth Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := BearerToken(r)
			if msg == "" {
				if user, err := auth.Authenticate(r.Context(), token); err == nil {
					r = r.WithContext(WithUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireAdmin rejects users without the admin flag. It must run after AuthMiddleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user := UserFromContext(r.Context())
		if user == nil || !user.IsAdmin {
			respondError(w, "Admin access required", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// BearerToken extracts the token from the Authorization header. On failure
// it returns the message to send back instead.
func BearerToken(r *http.Request) (token, msg string) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		return "", "Authorization header required"
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", "Invalid authorization header format"
	}
	return parts[1], ""
}

// WithUser returns a context carrying user
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user, or nil
func UserFromContext(ctx context.Context) *models.User {
	user, _ := ctx.Value(userKey).(*models.User)
	return user
}

// IdentityFromContext returns the verified token identity, or nil
func IdentityFromContext(ctx context.Context) *services.Identity {
	ident, _ := ctx.Value(identityKey).(*services.Identity)
	return ident
}

// GetUserID extracts the authenticated user's ID from context
func GetUserID(ctx context.Context) string {
	if user := UserFromContext(ctx); user != nil {
		return user.ID
	}
	return ""
}

// respondError sends an error response
func respondError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": message})
}
