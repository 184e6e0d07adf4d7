package main

import (
	"net/http"

	"keep-notes/handlers"
	appmw "keep-notes/middleware"
	"keep-notes/models"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
)

func newRouter(h *handlers.Handler, guard *appmw.Guard, corsOrigins []string) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(appmw.CORS(corsOrigins))

	r.Get("/", h.Root)
	r.Get("/healthz", h.Health)

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/register", h.Register)
		r.Post("/login", h.Login)

		r.Group(func(r chi.Router) {
			r.Use(guard.RequireAuth)
			r.Get("/notes", h.GetNotes)
			r.Post("/notes", h.CreateNote)
			r.Patch("/notes/{note_id}", h.UpdateNote)
			r.Delete("/notes/{note_id}", h.DeleteNote)

			r.With(guard.RequireRole(models.RoleAdmin)).Get("/admin/all-notes", h.AllNotes)
		})
	})

	return r
}
