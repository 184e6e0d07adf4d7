package handlers

import (
	"log/slog"
	"net/http"

	"keep-notes/middleware"
	"keep-notes/models"
	"keep-notes/response"

	"github.com/go-chi/chi/v5"
)

// noteRequest is the full note body. PATCH takes the same body as POST;
// omitted fields are reset to their defaults.
type noteRequest struct {
	Title   string                 `json:"title" validate:"required,max=255"`
	Content *string                `json:"content"`
	Items   []models.ChecklistItem `json:"items" validate:"dive"`
	Color   string                 `json:"color" validate:"omitempty,max=32"`
	Pinned  bool                   `json:"pinned"`
}

func (req noteRequest) fields() models.NoteFields {
	return models.NoteFields{
		Title:   req.Title,
		Content: req.Content,
		Items:   req.Items,
		Color:   req.Color,
		Pinned:  req.Pinned,
	}
}

// ownerID reads the subject put in the context by RequireAuth.
func ownerID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		response.Write(w, r, http.StatusUnauthorized, response.Error("unauthorized"))
	}
	return userID, ok
}

func (h *Handler) CreateNote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.CreateNote")
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	var req noteRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	id, err := h.store.CreateNote(r.Context(), userID, req.fields())
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}

	log.Info("note created", slog.String("user_id", userID), slog.String("note_id", id))
	response.Write(w, r, http.StatusOK, response.Response{Message: "Note created", ID: id})
}

func (h *Handler) GetNotes(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.GetNotes")
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}

	notes, err := h.store.ListNotesByOwner(r.Context(), userID)
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}
	response.Write(w, r, http.StatusOK, notes)
}

func (h *Handler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.UpdateNote")
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	noteID := chi.URLParam(r, "note_id")

	var req noteRequest
	if !h.decode(w, r, log, &req) {
		return
	}
	// A note owned by someone else is reported exactly like a missing one.
	if err := h.store.UpdateNote(r.Context(), noteID, userID, req.fields()); err != nil {
		writeError(w, r, log, err, "Note not found or you do not have permission to edit it")
		return
	}

	log.Info("note updated", slog.String("user_id", userID), slog.String("note_id", noteID))
	response.Write(w, r, http.StatusOK, response.OK("Updated successfully"))
}

func (h *Handler) DeleteNote(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.DeleteNote")
	userID, ok := ownerID(w, r)
	if !ok {
		return
	}
	noteID := chi.URLParam(r, "note_id")

	if err := h.store.DeleteNote(r.Context(), noteID, userID); err != nil {
		writeError(w, r, log, err, "Not found")
		return
	}

	log.Info("note deleted", slog.String("user_id", userID), slog.String("note_id", noteID))
	response.Write(w, r, http.StatusOK, response.OK("Deleted"))
}

// AllNotes lists every note of every user as {id, title}. The route must be
// guarded by RequireRole(models.RoleAdmin).
func (h *Handler) AllNotes(w http.ResponseWriter, r *http.Request) {
	log := h.logger(r, "handlers.AllNotes")

	notes, err := h.store.ListAllNotes(r.Context())
	if err != nil {
		writeError(w, r, log, err, "")
		return
	}
	userID, _ := middleware.UserIDFromContext(r.Context())
	log.Info("admin listed all notes", slog.String("user_id", userID), slog.Int("count", len(notes)))
	response.Write(w, r, http.StatusOK, notes)
}
