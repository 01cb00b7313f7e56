// Package store persists users, the dictionary and friendships in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/playperu/wordrace/internal/wordrace"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")
)

// Profile is the public view of a user.
type Profile struct {
	ID       int64  `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
}

// Request is a pending friendship seen from one side: Requester is set for
// incoming requests, Receiver for outgoing ones.
type Request struct {
	ID        int64                     `json:"id"`
	Requester *Profile                  `json:"requester,omitempty"`
	Receiver  *Profile                  `json:"receiver,omitempty"`
	Status    wordrace.FriendshipStatus `json:"status"`
}

type SQLiteStore struct {
	db *sql.DB
}

func New(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func (s *SQLiteStore) DB() *sql.DB { return s.db }

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE")
}

func parseTime(v string) time.Time {
	t, err := time.Parse(time.RFC3339Nano, v)
	if err != nil {
		return time.Time{}
	}
	return t
}

func scanProfiles(rows *sql.Rows) ([]Profile, error) {
	defer rows.Close()
	out := []Profile{}
	for rows.Next() {
		var p Profile
		if err := rows.Scan(&p.ID, &p.Username, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Users

const userColumns = `id, username, name, password_hash, completed_unit, created_at`

func scanUser(row *sql.Row) (wordrace.User, error) {
	var u wordrace.User
	var created string
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.PasswordHash, &u.CompletedUnit, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return u, ErrNotFound
	}
	if err != nil {
		return u, err
	}
	u.CreatedAt = parseTime(created)
	return u, nil
}

func (s *SQLiteStore) CreateUser(ctx context.Context, username, name, passwordHash string) (wordrace.User, error) {
	row := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, name, password_hash)
		VALUES (?, ?, ?)
		RETURNING `+userColumns,
		username, name, passwordHash)
	u, err := scanUser(row)
	if isUniqueViolation(err) {
		return u, ErrConflict
	}
	return u, err
}

func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (wordrace.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username))
}

func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (wordrace.User, error) {
	return scanUser(s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id))
}

func (s *SQLiteStore) updateUser(ctx context.Context, query string, args ...any) error {
	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	return s.updateUser(ctx, `UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
}

func (s *SQLiteStore) SetCompletedUnit(ctx context.Context, userID int64, unit int) error {
	return s.updateUser(ctx, `UPDATE users SET completed_unit = ? WHERE id = ?`, unit, userID)
}

// SearchUsers finds users whose username contains query, leaving out the
// caller and everyone the caller already has a friendship row with.
func (s *SQLiteStore) SearchUsers(ctx context.Context, userID int64, query string, limit int) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name
		FROM users u
		WHERE instr(lower(u.username), lower(?)) > 0
		  AND u.id <> ?
		  AND NOT EXISTS (
			SELECT 1 FROM friendships f
			WHERE (f.requester_id = ? AND f.receiver_id = u.id)
			   OR (f.receiver_id = ? AND f.requester_id = u.id)
		  )
		ORDER BY u.username
		LIMIT ?
	`, query, userID, userID, userID, limit)
	if err != nil {
		return nil, err
	}
	return scanProfiles(rows)
}

// Words

func (s *SQLiteStore) Words(ctx context.Context, offset, limit int) ([]wordrace.Word, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, json(data) FROM words ORDER BY id LIMIT ? OFFSET ?`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	words := []wordrace.Word{}
	for rows.Next() {
		var (
			id   int64
			data string
		)
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		w, err := decodeWord(data)
		if err != nil {
			return nil, fmt.Errorf("word %d: %w", id, err)
		}
		w.ID = id
		words = append(words, w)
	}
	return words, rows.Err()
}

// InsertWords appends words to the dictionary in one transaction.
func (s *SQLiteStore) InsertWords(ctx context.Context, words []wordrace.Word) (int, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{})
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for i, w := range words {
		data, err := encodeWord(w)
		if err != nil {
			return 0, fmt.Errorf("word %d: %w", i, err)
		}
		if _, err := tx.ExecContext(ctx, `INSERT INTO words (data) VALUES (json(?))`, data); err != nil {
			return 0, fmt.Errorf("inserting word %d: %w", i, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return len(words), nil
}

func (s *SQLiteStore) CountWords(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM words`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) CountUsers(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM users`).Scan(&n)
	return n, err
}
