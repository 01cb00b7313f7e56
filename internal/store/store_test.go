package store

import (
	"context"
	"errors"
	"testing"

	"github.com/playperu/wordrace/internal/database"
	"github.com/playperu/wordrace/internal/migrations"
	"github.com/playperu/wordrace/internal/wordrace"
)

func setupStore(t *testing.T) *SQLiteStore {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return New(db)
}

func mustUser(t *testing.T, s *SQLiteStore, username string) wordrace.User {
	t.Helper()
	u, err := s.CreateUser(context.Background(), username, "Name "+username, "hash")
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	return u
}

func TestUsers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	alice := mustUser(t, s, "alice")
	if alice.ID == 0 || alice.CompletedUnit != 0 || alice.CreatedAt.IsZero() {
		t.Errorf("created user = %+v", alice)
	}

	if _, err := s.CreateUser(ctx, "alice", "Other", "hash"); !errors.Is(err, ErrConflict) {
		t.Errorf("duplicate username = %v, want ErrConflict", err)
	}

	got, err := s.UserByUsername(ctx, "alice")
	if err != nil || got.ID != alice.ID {
		t.Fatalf("by username = %+v, %v", got, err)
	}
	if _, err := s.UserByUsername(ctx, "nobody"); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing user = %v, want ErrNotFound", err)
	}
	if _, err := s.UserByID(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing id = %v, want ErrNotFound", err)
	}

	if err := s.UpdatePassword(ctx, alice.ID, "newhash"); err != nil {
		t.Fatalf("update password: %v", err)
	}
	if err := s.SetCompletedUnit(ctx, alice.ID, 31); err != nil {
		t.Fatalf("set unit: %v", err)
	}
	got, _ = s.UserByID(ctx, alice.ID)
	if got.PasswordHash != "newhash" || got.CompletedUnit != 31 {
		t.Errorf("after update = %+v", got)
	}
	if err := s.SetCompletedUnit(ctx, 999, 1); !errors.Is(err, ErrNotFound) {
		t.Errorf("update missing user = %v, want ErrNotFound", err)
	}
}

func TestWords(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	words := []wordrace.Word{
		{En: []string{"apple"}, Uz: []string{"olma"}},
		{En: []string{"book"}, Uz: []string{"kitob"}},
		{En: []string{"house", "home"}, Uz: []string{"uy"}},
	}
	n, err := s.InsertWords(ctx, words)
	if err != nil || n != 3 {
		t.Fatalf("insert = %d, %v", n, err)
	}

	if _, err := s.InsertWords(ctx, []wordrace.Word{{En: []string{"x"}}}); err == nil {
		t.Error("word without uz form should be rejected")
	}
	if c, _ := s.CountWords(ctx); c != 3 {
		t.Errorf("count = %d, want 3 (failed batch must roll back)", c)
	}

	got, err := s.Words(ctx, 1, 5)
	if err != nil {
		t.Fatalf("words: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("got %d words, want 2", len(got))
	}
	if got[0].En[0] != "book" || got[1].En[1] != "home" || got[1].Uz[0] != "uy" {
		t.Errorf("words = %+v", got)
	}
	if got[0].ID == 0 {
		t.Error("word id should be populated")
	}
}

func TestFriendRequestLifecycle(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bobby := mustUser(t, s, "bobby")

	req, err := s.CreateFriendRequest(ctx, alice.ID, bobby.ID)
	if err != nil {
		t.Fatalf("send request: %v", err)
	}
	if req.Status != wordrace.FriendshipPending {
		t.Errorf("status = %s, want pending", req.Status)
	}

	if _, err := s.CreateFriendRequest(ctx, alice.ID, bobby.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("repeat request = %v, want ErrConflict", err)
	}
	if _, err := s.CreateFriendRequest(ctx, bobby.ID, alice.ID); !errors.Is(err, ErrConflict) {
		t.Errorf("reverse request = %v, want ErrConflict", err)
	}

	in, _ := s.IncomingRequests(ctx, bobby.ID)
	if len(in) != 1 || in[0].Requester == nil || in[0].Requester.Username != "alice" {
		t.Fatalf("incoming = %+v", in)
	}
	out, _ := s.OutgoingRequests(ctx, alice.ID)
	if len(out) != 1 || out[0].Receiver == nil || out[0].Receiver.Username != "bobby" {
		t.Fatalf("outgoing = %+v", out)
	}

	if ok, _ := s.AreFriends(ctx, "alice", "bobby"); ok {
		t.Error("pending request is not a friendship")
	}

	if err := s.AcceptRequest(ctx, req.ID, alice.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("requester accepting own request = %v, want ErrNotFound", err)
	}
	if err := s.AcceptRequest(ctx, req.ID, bobby.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
	if _, err := s.PendingRequest(ctx, req.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("accepted request still pending: %v", err)
	}

	for _, pair := range [][2]string{{"alice", "bobby"}, {"bobby", "alice"}} {
		ok, err := s.AreFriends(ctx, pair[0], pair[1])
		if err != nil || !ok {
			t.Errorf("AreFriends(%s, %s) = %v, %v", pair[0], pair[1], ok, err)
		}
	}

	friends, _ := s.Friends(ctx, bobby.ID)
	if len(friends) != 1 || friends[0].Username != "alice" {
		t.Errorf("friends of bobby = %+v", friends)
	}

	f, err := s.FriendshipBetween(ctx, bobby.ID, alice.ID)
	if err != nil || f.Status != wordrace.FriendshipAccepted {
		t.Fatalf("between = %+v, %v", f, err)
	}
	if err := s.DeleteFriendship(ctx, f.ID); err != nil {
		t.Fatalf("unfriend: %v", err)
	}
	if err := s.DeleteFriendship(ctx, f.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("second delete = %v, want ErrNotFound", err)
	}
	if friends, _ := s.Friends(ctx, alice.ID); len(friends) != 0 {
		t.Errorf("friends after unfriend = %+v", friends)
	}
}

func TestSearchUsers(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	alice := mustUser(t, s, "alice")
	bobby := mustUser(t, s, "bobby")
	mustUser(t, s, "bobcat")
	mustUser(t, s, "carol")

	if _, err := s.CreateFriendRequest(ctx, bobby.ID, alice.ID); err != nil {
		t.Fatalf("request: %v", err)
	}

	tests := []struct {
		query string
		want  []string
	}{
		{"BOB", []string{"bobcat"}},
		{"a", []string{"bobcat", "carol"}},
		{"alice", nil},
		{"zzz", nil},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got, err := s.SearchUsers(ctx, alice.ID, tt.query, 10)
			if err != nil {
				t.Fatalf("search: %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("got %+v, want %v", got, tt.want)
			}
			for i, name := range tt.want {
				if got[i].Username != name {
					t.Errorf("result %d = %s, want %s", i, got[i].Username, name)
				}
			}
		})
	}
}
