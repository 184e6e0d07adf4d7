// Package db holds the user and note stores. Every note query made on behalf
// of a user filters by owner id inside the store; a note owned by someone
// else is reported as ErrNotFound, exactly like a missing one.
package db

import (
	"context"
	"errors"

	"keep-notes/models"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrUserExists = errors.New("user already exists")
)

type UserStore interface {
	// CreateUser stores u and returns its new id. The email must already be
	// normalized by the caller.
	CreateUser(ctx context.Context, u models.User) (string, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

type NoteStore interface {
	CreateNote(ctx context.Context, ownerID string, f models.NoteFields) (string, error)
	// ListNotesByOwner returns pinned notes before unpinned ones, newest
	// first within each group.
	ListNotesByOwner(ctx context.Context, ownerID string) ([]models.Note, error)
	UpdateNote(ctx context.Context, noteID, ownerID string, f models.NoteFields) error
	DeleteNote(ctx context.Context, noteID, ownerID string) error
	// ListAllNotes ignores ownership. Only the admin listing may call it.
	ListAllNotes(ctx context.Context) ([]models.NoteSummary, error)
}

// Store is a complete backend.
type Store interface {
	UserStore
	NoteStore
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
