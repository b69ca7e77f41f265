package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/LUCIFER14144/email-marketing-platform/internal/model"
)

// TokenCookieName is the cookie carrying the access token for browser clients
const TokenCookieName = "bulkmail_token"

// Context keys for authenticated user data
const (
	UserIDKey   contextKey = "user_id"
	UsernameKey contextKey = "username"
)

// Authenticator resolves an access token to a user
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// Auth rejects requests without a valid access token
func (m *Middleware) Auth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString := extractToken(r)
			if tokenString == "" {
				writeError(w, http.StatusUnauthorized, "Not authenticated")
				return
			}

			user, err := authn.Authenticate(r.Context(), tokenString)
			if err != nil {
				m.log.Debug().Err(err).Msg("token validation failed")
				writeError(w, http.StatusUnauthorized, "Session expired or invalid")
				return
			}

			next.ServeHTTP(w, r.WithContext(withUser(r.Context(), user)))
		})
	}
}

// OptionalAuth attaches the user when a valid token is present and never rejects
func (m *Middleware) OptionalAuth(authn Authenticator) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if tokenString := extractToken(r); tokenString != "" {
				if user, err := authn.Authenticate(r.Context(), tokenString); err == nil {
					r = r.WithContext(withUser(r.Context(), user))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

func extractToken(r *http.Request) string {
	// 1. Try Authorization header first
	if authHeader := r.Header.Get("Authorization"); authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	// 2. Fall back to cookie
	if cookie, err := r.Cookie(TokenCookieName); err == nil {
		return cookie.Value
	}
	return ""
}

func withUser(ctx context.Context, user *model.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, user.ID)
	return context.WithValue(ctx, UsernameKey, user.Username)
}

// GetUserID returns the authenticated user's id, or "" when anonymous
func GetUserID(ctx context.Context) string {
	id, _ := ctx.Value(UserIDKey).(string)
	return id
}

// GetUsername returns the authenticated user's username, or "" when anonymous
func GetUsername(ctx context.Context) string {
	name, _ := ctx.Value(UsernameKey).(string)
	return name
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"success":false,"error":"` + message + `"}`))
}
