package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"keep-notes/auth"
	"keep-notes/db"
	"keep-notes/logger"
	"keep-notes/response"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
)

type Store interface {
	db.UserStore
	db.NoteStore
	Ping(ctx context.Context) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) bool
}

type TokenIssuer interface {
	Issue(userID string) (string, error)
}

type Options struct {
	// AllowSelfAssignedRole lets /register accept role "admin" from the
	// client. Off by default.
	AllowSelfAssignedRole bool
}

// Handler serves every endpoint. All dependencies are fixed at construction.
type Handler struct {
	log      *slog.Logger
	store    Store
	hasher   PasswordHasher
	tokens   TokenIssuer
	validate *validator.Validate
	opts     Options
	// dummyHash stands in for the stored hash when a login email is unknown.
	dummyHash string
}

func New(log *slog.Logger, store Store, hasher PasswordHasher, tokens TokenIssuer, opts Options) *Handler {
	h := &Handler{
		log:      log,
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		opts:     opts,
	}
	if hash, err := hasher.Hash("keep-notes-dummy-password"); err == nil {
		h.dummyHash = hash
	} else {
		log.Error("failed to prepare dummy password hash", logger.Err(err))
	}
	return h
}

func (h *Handler) logger(r *http.Request, op string) *slog.Logger {
	return h.log.With(
		slog.String("op", op),
		slog.String("request_id", chimw.GetReqID(r.Context())),
	)
}

// decode reads and validates a JSON body. It writes the 400 response itself
// and reports whether the handler may continue.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, log *slog.Logger, dst any) bool {
	if err := render.DecodeJSON(r.Body, dst); err != nil {
		log.Info("failed to decode request body", logger.Err(err))
		response.Write(w, r, http.StatusBadRequest, response.Error("failed to decode request"))
		return false
	}
	if err := h.validate.Struct(dst); err != nil {
		var validateErr validator.ValidationErrors
		if errors.As(err, &validateErr) {
			log.Info("invalid request", logger.Err(err))
			response.Write(w, r, http.StatusBadRequest, response.ValidationError(validateErr))
			return false
		}
		log.Error("failed to validate request", logger.Err(err))
		response.Write(w, r, http.StatusInternalServerError, response.Error("internal error"))
		return false
	}
	return true
}

// writeError maps core errors onto HTTP statuses. Anything unrecognised is a
// 500 with no detail.
func writeError(w http.ResponseWriter, r *http.Request, log *slog.Logger, err error, notFoundMsg string) {
	switch {
	case errors.Is(err, auth.ErrUnauthorized):
		response.Write(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
	case errors.Is(err, auth.ErrForbidden):
		response.Write(w, r, http.StatusForbidden, response.Error("access denied"))
	case errors.Is(err, db.ErrNotFound):
		response.Write(w, r, http.StatusNotFound, response.Error(notFoundMsg))
	case errors.Is(err, auth.ErrPasswordTooLong):
		response.Write(w, r, http.StatusBadRequest, response.Error("password is too long"))
	case errors.Is(err, db.ErrUserExists):
		response.Write(w, r, http.StatusBadRequest, response.Error("User exists"))
	default:
		log.Error("request failed", logger.Err(err))
		response.Write(w, r, http.StatusInternalServerError, response.Error("internal error"))
	}
}

func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	response.Write(w, r, http.StatusOK, response.OK("keep-notes backend running"))
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		h.logger(r, "handlers.Health").Error("store ping failed", logger.Err(err))
		response.Write(w, r, http.StatusServiceUnavailable, response.Error("store unavailable"))
		return
	}
	response.Write(w, r, http.StatusOK, response.OK("ok"))
}
