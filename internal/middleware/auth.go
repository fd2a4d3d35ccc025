package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/tasklist/tasklist-go/internal/crypto"
	"github.com/tasklist/tasklist-go/internal/model"
	"github.com/tasklist/tasklist-go/internal/repository"
	"github.com/tasklist/tasklist-go/internal/service"
)

type contextKey string

const identityKey contextKey = "identity"

// TokenVerifier checks a bearer token and returns its subject.
type TokenVerifier interface {
	Verify(token string) (crypto.Subject, error)
}

// UserResolver loads the account a token refers to.
type UserResolver interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
}

// Authenticate returns middleware that turns a Bearer token into a request
// Identity. The token must verify and its subject must still exist; the
// stored role is authoritative. A store failure answers 503, never 401. The
// subject lookup runs under the request context and its deadline.
func Authenticate(tokens TokenVerifier, users UserResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.DebugContext(r.Context(), "authentication failed", "reason", "missing_token")
				writeJSONError(w, http.StatusUnauthorized, "missing or malformed authorization header")
				return
			}

			sub, err := tokens.Verify(token)
			if err != nil {
				reason := "invalid"
				if errors.Is(err, crypto.ErrTokenExpired) {
					reason = "expired"
				}
				logger.InfoContext(r.Context(), "authentication failed", "reason", reason)
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			user, err := users.GetByID(r.Context(), sub.UserID)
			if err != nil {
				if errors.Is(err, repository.ErrUserNotFound) {
					logger.InfoContext(r.Context(), "authentication failed", "reason", "unknown_subject", "user_id", sub.UserID)
					writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
					return
				}
				logger.ErrorContext(r.Context(), "resolving token subject", "user_id", sub.UserID, "error", err)
				writeJSONError(w, http.StatusServiceUnavailable, "service temporarily unavailable")
				return
			}

			id := model.Identity{User: user.Public(), Role: user.Role}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

// RequireAdmin rejects requests whose identity is not an admin. It must run
// after Authenticate.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, _ := IdentityFromContext(r.Context())
		switch err := service.RequireAdmin(id); {
		case errors.Is(err, service.ErrUnauthenticated):
			writeJSONError(w, http.StatusUnauthorized, "not authenticated")
			return
		case err != nil:
			writeJSONError(w, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// WithIdentity attaches an authenticated identity to ctx.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// IdentityFromContext extracts the authenticated identity from the request context.
func IdentityFromContext(ctx context.Context) (model.Identity, bool) {
	id, ok := ctx.Value(identityKey).(model.Identity)
	return id, ok && id.User.ID != ""
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"message": msg})
}
