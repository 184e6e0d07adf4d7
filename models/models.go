package models

import (
	"fmt"
	"time"
)

// DefaultColor is applied to notes created or updated without a colour.
const DefaultColor = "#fff8b5"

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// ParseRole accepts only the known roles. An empty string means RoleUser.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case "", RoleUser:
		return RoleUser, nil
	case RoleAdmin:
		return RoleAdmin, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

type ChecklistItem struct {
	Text string `json:"text" bson:"text" validate:"required"`
	Done bool   `json:"done" bson:"done"`
}

// NoteFields is the full set of mutable note fields. Updates always replace
// all of them.
type NoteFields struct {
	Title   string
	Content *string
	Items   []ChecklistItem
	Color   string
	Pinned  bool
}

type Note struct {
	ID        string          `json:"id"`
	OwnerID   string          `json:"-"`
	Title     string          `json:"title"`
	Content   *string         `json:"content"`
	Items     []ChecklistItem `json:"items"`
	Color     string          `json:"color"`
	Pinned    bool            `json:"pinned"`
	CreatedAt time.Time       `json:"created_at"`
}

// NoteSummary is the admin-facing projection of a note.
type NoteSummary struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}
