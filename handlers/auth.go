package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"keep-notes/auth"
	"keep-notes/db"
	"keep-notes/models"
	"keep-notes/response"
)

type registerRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
	Role     string `json:"role" validate:"omitempty,oneof=user admin"`
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.Register")

	var req registerRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	if len(req.Password) > auth.MaxPasswordBytes {
		response.Write(w, r, http.StatusBadRequest, response.Error("password is too long"))
		return
	}
	role, err := models.ParseRole(req.Role)
	if err != nil {
		response.Write(w, r, http.StatusBadRequest, response.Error("invalid role"))
		return
	}
	if role != models.RoleUser && !h.opts.AllowSelfAssignedRole {
		log.Warn("self-assigned role refused", slog.String("role", string(role)))
		response.Write(w, r, http.StatusForbidden, response.Error("role cannot be self-assigned"))
		return
	}

	hash, err := h.hasher.Hash(req.Password)
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}
	email := normalizeEmail(req.Email)
	_, err = h.store.CreateUser(r.Context(), models.User{
		Email:        email,
		PasswordHash: hash,
		Role:         role,
	})
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}

	log.Info("new user registered", slog.String("email", email), slog.String("role", string(role)))
	response.Write(w, r, http.StatusOK, response.OK("Registered successfully"))
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.Login")

	var req loginRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	email := normalizeEmail(req.Email)

	user, err := h.store.GetUserByEmail(r.Context(), email)
	if err != nil && !errors.Is(err, db.ErrNotFound) {
		writeError(w, r, log, err, "")
		return
	}
	// An unknown email is still checked against a hash so both failures
	// take the same time.
	hash := user.PasswordHash
	if err != nil {
		hash = h.dummyHash
	}
	if !h.hasher.Verify(req.Password, hash) || err != nil {
		log.Info("failed login", slog.String("email", email))
		response.Write(w, r, http.StatusUnauthorized, response.Error("Invalid credentials"))
		return
	}

	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}

	log.Info("user logged in", slog.String("user_id", user.ID))
	response.Write(w, r, http.StatusOK, loginResponse{AccessToken: token})
}
