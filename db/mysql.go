package db

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"keep-notes/models"

	"github.com/go-sql-driver/mysql"
	"github.com/pressly/goose/v3"
)

//go:embed migrations/*.sql
var migrations embed.FS

const mysqlDuplicateEntry = 1062

// MySQLStore is the relational backend. Ids are auto-increment integers
// exposed as decimal strings.
type MySQLStore struct {
	db *sql.DB
}

// ConnectMySQL opens dsn and applies the embedded migrations.
func ConnectMySQL(ctx context.Context, dsn string) (*MySQLStore, error) {
	const op = "db.ConnectMySQL"

	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	cfg.ParseTime = true
	// UPDATE must report matched rows, not changed rows, or an update that
	// rewrites identical values would look like a missing note.
	cfg.ClientFoundRows = true

	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if err := migrate(ctx, conn); err != nil {
		conn.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return &MySQLStore{db: conn}, nil
}

func migrate(ctx context.Context, conn *sql.DB) error {
	goose.SetBaseFS(migrations)
	if err := goose.SetDialect("mysql"); err != nil {
		return err
	}
	return goose.UpContext(ctx, conn, "migrations")
}

func (s *MySQLStore) CreateUser(ctx context.Context, u models.User) (string, error) {
	res, err := s.db.ExecContext(ctx,
		"INSERT INTO users (email, password_hash, role) VALUES (?, ?, ?)",
		u.Email, u.PasswordHash, string(u.Role))
	if err != nil {
		var myErr *mysql.MySQLError
		if errors.As(err, &myErr) && myErr.Number == mysqlDuplicateEntry {
			return "", ErrUserExists
		}
		return "", fmt.Errorf("db.CreateUser: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("db.CreateUser: %w", err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *MySQLStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE email = ?", email))
}

func (s *MySQLStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	uid, err := strconv.ParseInt(id, 10, 64)
	if err != nil {
		return models.User{}, ErrNotFound
	}
	return s.scanUser(s.db.QueryRowContext(ctx,
		"SELECT id, email, password_hash, role, created_at FROM users WHERE id = ?", uid))
}

func (s *MySQLStore) scanUser(row *sql.Row) (models.User, error) {
	var (
		u    models.User
		id   int64
		role string
	)
	err := row.Scan(&id, &u.Email, &u.PasswordHash, &role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return models.User{}, ErrNotFound
	}
	if err != nil {
		return models.User{}, fmt.Errorf("db.scanUser: %w", err)
	}
	if u.Role, err = models.ParseRole(role); err != nil {
		return models.User{}, fmt.Errorf("db.scanUser: %w", err)
	}
	u.ID = strconv.FormatInt(id, 10)
	return u, nil
}

func (s *MySQLStore) CreateNote(ctx context.Context, ownerID string, f models.NoteFields) (string, error) {
	const op = "db.CreateNote"

	oid, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return "", fmt.Errorf("%s: invalid owner id %q", op, ownerID)
	}
	var n models.Note
	applyFields(&n, f)
	items, err := json.Marshal(n.Items)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		"INSERT INTO notes (owner_id, title, content, items, color, pinned, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)",
		oid, n.Title, n.Content, items, n.Color, n.Pinned, time.Now().UTC())
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return strconv.FormatInt(id, 10), nil
}

func (s *MySQLStore) ListNotesByOwner(ctx context.Context, ownerID string) ([]models.Note, error) {
	const op = "db.ListNotesByOwner"

	oid, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return []models.Note{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, title, content, items, color, pinned, created_at FROM notes
		WHERE owner_id = ? ORDER BY pinned DESC, created_at DESC, id DESC`, oid)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		var (
			n       models.Note
			id      int64
			content sql.NullString
			items   []byte
		)
		if err := rows.Scan(&id, &n.Title, &content, &items, &n.Color, &n.Pinned, &n.CreatedAt); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if err := json.Unmarshal(items, &n.Items); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if n.Items == nil {
			n.Items = []models.ChecklistItem{}
		}
		if content.Valid {
			n.Content = &content.String
		}
		n.ID = strconv.FormatInt(id, 10)
		n.OwnerID = ownerID
		notes = append(notes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return notes, nil
}

func (s *MySQLStore) UpdateNote(ctx context.Context, noteID, ownerID string, f models.NoteFields) error {
	const op = "db.UpdateNote"

	nid, oid, ok := parseIDs(noteID, ownerID)
	if !ok {
		return ErrNotFound
	}
	var n models.Note
	applyFields(&n, f)
	items, err := json.Marshal(n.Items)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE notes SET title = ?, content = ?, items = ?, color = ?, pinned = ? WHERE id = ? AND owner_id = ?",
		n.Title, n.Content, items, n.Color, n.Pinned, nid, oid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOrNotFound(op, res)
}

func (s *MySQLStore) DeleteNote(ctx context.Context, noteID, ownerID string) error {
	const op = "db.DeleteNote"

	nid, oid, ok := parseIDs(noteID, ownerID)
	if !ok {
		return ErrNotFound
	}
	res, err := s.db.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND owner_id = ?", nid, oid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return affectedOrNotFound(op, res)
}

func (s *MySQLStore) ListAllNotes(ctx context.Context) ([]models.NoteSummary, error) {
	const op = "db.ListAllNotes"

	rows, err := s.db.QueryContext(ctx, "SELECT id, title FROM notes ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()

	summaries := []models.NoteSummary{}
	for rows.Next() {
		var (
			id    int64
			title string
		)
		if err := rows.Scan(&id, &title); err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		summaries = append(summaries, models.NoteSummary{ID: strconv.FormatInt(id, 10), Title: title})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return summaries, nil
}

func (s *MySQLStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *MySQLStore) Close(context.Context) error {
	return s.db.Close()
}

func parseIDs(noteID, ownerID string) (int64, int64, bool) {
	nid, err := strconv.ParseInt(noteID, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	oid, err := strconv.ParseInt(ownerID, 10, 64)
	if err != nil {
		return 0, 0, false
	}
	return nid, oid, true
}

func affectedOrNotFound(op string, res sql.Result) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
