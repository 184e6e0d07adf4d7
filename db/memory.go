package db

import (
	"context"
	"sort"
	"sync"
	"time"

	"keep-notes/models"

	"github.com/google/uuid"
)

type memoryNote struct {
	note models.Note
	seq  int
}

// MemoryStore keeps everything in process memory. It backs STORE=memory and
// the handler tests.
type MemoryStore struct {
	mu      sync.RWMutex
	users   map[string]models.User
	byEmail map[string]string
	notes   map[string]memoryNote
	seq     int
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:   make(map[string]models.User),
		byEmail: make(map[string]string),
		notes:   make(map[string]memoryNote),
		now:     time.Now,
	}
}

func (s *MemoryStore) CreateUser(_ context.Context, u models.User) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byEmail[u.Email]; ok {
		return "", ErrUserExists
	}
	u.ID = uuid.NewString()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return u.ID, nil
}

func (s *MemoryStore) GetUserByEmail(_ context.Context, email string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return s.users[id], nil
}

func (s *MemoryStore) GetUserByID(_ context.Context, id string) (models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) CreateNote(_ context.Context, ownerID string, f models.NoteFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	n := models.Note{
		ID:        uuid.NewString(),
		OwnerID:   ownerID,
		CreatedAt: s.now().UTC(),
	}
	applyFields(&n, f)
	s.notes[n.ID] = memoryNote{note: n, seq: s.seq}
	return n.ID, nil
}

func (s *MemoryStore) ListNotesByOwner(_ context.Context, ownerID string) ([]models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var owned []memoryNote
	for _, mn := range s.notes {
		if mn.note.OwnerID == ownerID {
			owned = append(owned, mn)
		}
	}
	sort.Slice(owned, func(i, j int) bool {
		if owned[i].note.Pinned != owned[j].note.Pinned {
			return owned[i].note.Pinned
		}
		return owned[i].seq > owned[j].seq
	})

	notes := make([]models.Note, 0, len(owned))
	for _, mn := range owned {
		notes = append(notes, cloneNote(mn.note))
	}
	return notes, nil
}

func (s *MemoryStore) UpdateNote(_ context.Context, noteID, ownerID string, f models.NoteFields) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mn, ok := s.notes[noteID]
	if !ok || mn.note.OwnerID != ownerID {
		return ErrNotFound
	}
	applyFields(&mn.note, f)
	s.notes[noteID] = mn
	return nil
}

func (s *MemoryStore) DeleteNote(_ context.Context, noteID, ownerID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	mn, ok := s.notes[noteID]
	if !ok || mn.note.OwnerID != ownerID {
		return ErrNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func (s *MemoryStore) ListAllNotes(_ context.Context) ([]models.NoteSummary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	all := make([]memoryNote, 0, len(s.notes))
	for _, mn := range s.notes {
		all = append(all, mn)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].seq < all[j].seq })

	summaries := make([]models.NoteSummary, 0, len(all))
	for _, mn := range all {
		summaries = append(summaries, models.NoteSummary{ID: mn.note.ID, Title: mn.note.Title})
	}
	return summaries, nil
}

func (s *MemoryStore) Ping(context.Context) error  { return nil }
func (s *MemoryStore) Close(context.Context) error { return nil }

func applyFields(n *models.Note, f models.NoteFields) {
	n.Title = f.Title
	n.Content = f.Content
	n.Items = append([]models.ChecklistItem{}, f.Items...)
	n.Color = f.Color
	if n.Color == "" {
		n.Color = models.DefaultColor
	}
	n.Pinned = f.Pinned
}

func cloneNote(n models.Note) models.Note {
	n.Items = append([]models.ChecklistItem{}, n.Items...)
	if n.Content != nil {
		c := *n.Content
		n.Content = &c
	}
	return n
}
