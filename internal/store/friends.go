package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/playperu/wordrace/internal/wordrace"
)

// Friends lists everyone with an accepted friendship with userID.
func (s *SQLiteStore) Friends(ctx context.Context, userID int64) ([]Profile, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.name
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.requester_id = ? THEN f.receiver_id ELSE f.requester_id END
		WHERE (f.requester_id = ? OR f.receiver_id = ?) AND f.status = 'accepted'
		ORDER BY u.username
	`, userID, userID, userID)
	if err != nil {
		return nil, err
	}
	return scanProfiles(rows)
}

func (s *SQLiteStore) requests(ctx context.Context, query string, userID int64, incoming bool) ([]Request, error) {
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Request{}
	for rows.Next() {
		var r Request
		var p Profile
		if err := rows.Scan(&r.ID, &r.Status, &p.ID, &p.Username, &p.Name); err != nil {
			return nil, err
		}
		if incoming {
			r.Requester = &p
		} else {
			r.Receiver = &p
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// IncomingRequests lists pending requests sent to userID.
func (s *SQLiteStore) IncomingRequests(ctx context.Context, userID int64) ([]Request, error) {
	return s.requests(ctx, `
		SELECT f.id, f.status, u.id, u.username, u.name
		FROM friendships f
		JOIN users u ON u.id = f.requester_id
		WHERE f.receiver_id = ? AND f.status = 'pending'
		ORDER BY f.id
	`, userID, true)
}

// OutgoingRequests lists pending requests userID has sent.
func (s *SQLiteStore) OutgoingRequests(ctx context.Context, userID int64) ([]Request, error) {
	return s.requests(ctx, `
		SELECT f.id, f.status, u.id, u.username, u.name
		FROM friendships f
		JOIN users u ON u.id = f.receiver_id
		WHERE f.requester_id = ? AND f.status = 'pending'
		ORDER BY f.id
	`, userID, false)
}

const friendshipColumns = `id, requester_id, receiver_id, status, created_at`

func scanFriendship(row *sql.Row) (wordrace.Friendship, error) {
	var f wordrace.Friendship
	var created string
	err := row.Scan(&f.ID, &f.RequesterID, &f.ReceiverID, &f.Status, &created)
	if errors.Is(err, sql.ErrNoRows) {
		return f, ErrNotFound
	}
	if err != nil {
		return f, err
	}
	f.CreatedAt = parseTime(created)
	return f, nil
}

// FriendshipBetween returns the friendship row between a and b in either
// direction, whatever its status.
func (s *SQLiteStore) FriendshipBetween(ctx context.Context, a, b int64) (wordrace.Friendship, error) {
	return scanFriendship(s.db.QueryRowContext(ctx, `
		SELECT `+friendshipColumns+`
		FROM friendships
		WHERE (requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)
		LIMIT 1
	`, a, b, b, a))
}

// CreateFriendRequest inserts a pending request. It fails with ErrConflict
// when any friendship row already links the two users.
func (s *SQLiteStore) CreateFriendRequest(ctx context.Context, requesterID, receiverID int64) (wordrace.Friendship, error) {
	f, err := scanFriendship(s.db.QueryRowContext(ctx, `
		INSERT INTO friendships (requester_id, receiver_id, status)
		SELECT ?, ?, 'pending'
		WHERE NOT EXISTS (
			SELECT 1 FROM friendships
			WHERE (requester_id = ? AND receiver_id = ?) OR (requester_id = ? AND receiver_id = ?)
		)
		RETURNING `+friendshipColumns,
		requesterID, receiverID, requesterID, receiverID, receiverID, requesterID))
	if errors.Is(err, ErrNotFound) || isUniqueViolation(err) {
		return f, ErrConflict
	}
	return f, err
}

// PendingRequest loads a pending request by ID.
func (s *SQLiteStore) PendingRequest(ctx context.Context, id int64) (wordrace.Friendship, error) {
	return scanFriendship(s.db.QueryRowContext(ctx,
		`SELECT `+friendshipColumns+` FROM friendships WHERE id = ? AND status = 'pending'`, id))
}

// AcceptRequest marks the pending request id as accepted, provided it was
// sent to receiverID.
func (s *SQLiteStore) AcceptRequest(ctx context.Context, id, receiverID int64) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE friendships SET status = 'accepted'
		WHERE id = ? AND receiver_id = ? AND status = 'pending'
	`, id, receiverID)
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

func (s *SQLiteStore) DeleteFriendship(ctx context.Context, id int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM friendships WHERE id = ?`, id)
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

// AreFriends reports whether the two usernames share an accepted
// friendship.
func (s *SQLiteStore) AreFriends(ctx context.Context, a, b string) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1
			FROM friendships f
			JOIN users r ON r.id = f.requester_id
			JOIN users v ON v.id = f.receiver_id
			WHERE f.status = 'accepted'
			  AND ((r.username = ? AND v.username = ?) OR (r.username = ? AND v.username = ?))
		)
	`, a, b, b, a).Scan(&ok)
	return ok, err
}
