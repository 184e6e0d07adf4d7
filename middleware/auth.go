package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"keep-notes/auth"
	"keep-notes/db"
	"keep-notes/logger"
	"keep-notes/models"
	"keep-notes/response"
)

type ctxKey string

const userIDKey ctxKey = "userID"

const bearerPrefix = "Bearer "

// TokenValidator resolves a session token to its subject.
type TokenValidator interface {
	Validate(token string) (string, error)
}

// UserGetter loads the stored user behind a subject.
type UserGetter interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// Guard proves who is calling (Authenticate) and, separately, what they may
// do (AuthorizeRole).
type Guard struct {
	tokens TokenValidator
	users  UserGetter
	log    *slog.Logger
}

func NewGuard(tokens TokenValidator, users UserGetter, log *slog.Logger) *Guard {
	return &Guard{tokens: tokens, users: users, log: log}
}

// Authenticate takes the raw Authorization header value and returns the
// subject id. Any failure is auth.ErrUnauthorized.
func (g *Guard) Authenticate(header string) (string, error) {
	token, found := strings.CutPrefix(header, bearerPrefix)
	if !found || token == "" {
		return "", auth.ErrUnauthorized
	}
	return g.tokens.Validate(token)
}

// AuthorizeRole returns db.ErrNotFound if the subject no longer exists and
// auth.ErrForbidden if its role is not required.
func (g *Guard) AuthorizeRole(ctx context.Context, subject string, required models.Role) error {
	user, err := g.users.GetUserByID(ctx, subject)
	if err != nil {
		return err
	}
	if user.Role != required {
		return auth.ErrForbidden
	}
	return nil
}

// RequireAuth rejects requests without a valid bearer token and stores the
// subject id in the request context.
func (g *Guard) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		if header == "" {
			response.Write(w, r, http.StatusUnauthorized, response.Error("authorization header missing"))
			return
		}

		userID, err := g.Authenticate(header)
		if err != nil {
			g.log.Info("rejected token",
				slog.String("path", r.URL.Path),
				slog.String("remote", r.RemoteAddr),
			)
			response.Write(w, r, http.StatusUnauthorized, response.Error("invalid token"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUserID(r.Context(), userID)))
	})
}

// RequireRole must run after RequireAuth.
func (g *Guard) RequireRole(role models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			userID, ok := UserIDFromContext(r.Context())
			if !ok {
				response.Write(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
				return
			}

			err := g.AuthorizeRole(r.Context(), userID, role)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, auth.ErrForbidden):
				g.log.Warn("role check failed",
					slog.String("user_id", userID),
					slog.String("required", string(role)),
				)
				response.Write(w, r, http.StatusForbidden, response.Error("access denied"))
			case errors.Is(err, db.ErrNotFound):
				response.Write(w, r, http.StatusNotFound, response.Error("user not found"))
			default:
				g.log.Error("failed to load user", logger.Err(err))
				response.Write(w, r, http.StatusInternalServerError, response.Error("internal error"))
			}
		})
	}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

func UserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(userIDKey).(string)
	return userID, ok && userID != ""
}
