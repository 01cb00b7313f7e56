package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/playperu/wordrace/internal/auth"
	"github.com/playperu/wordrace/internal/database"
	"github.com/playperu/wordrace/internal/game"
	"github.com/playperu/wordrace/internal/migrations"
	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/wordrace"
	"github.com/playperu/wordrace/internal/words"
)

type testEnv struct {
	store    *store.SQLiteStore
	tokens   *auth.Tokens
	presence *presence.Registry
	games    *game.Service
	router   chi.Router
}

var testLayout = words.Layout{WordsInUnit: 4, UnitsInBook: 2, Books: 1}

func setupServer(t *testing.T) *testEnv {
	t.Helper()
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if _, err := migrations.Run(ctx, db); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	st := store.New(db)
	dict := make([]wordrace.Word, testLayout.WordsCount())
	for i := range dict {
		dict[i] = wordrace.Word{En: []string{fmt.Sprintf("en%d", i)}, Uz: []string{fmt.Sprintf("uz%d", i)}}
	}
	if _, err := st.InsertWords(ctx, dict); err != nil {
		t.Fatalf("seed words: %v", err)
	}

	conns := presence.NewRegistry(logger, presence.ConnOptions{})
	catalog := words.NewCatalog(testLayout, st, nil, time.Minute, logger)
	games := game.NewService(game.NewRegistry(), conns, catalog, st, game.Config{
		Session: game.SessionConfig{RoundDuration: 300 * time.Millisecond, StartDelay: 5 * time.Millisecond},
		Rounds:  1,
	}, logger)

	env := &testEnv{
		store:    st,
		tokens:   auth.NewTokens("test-secret", time.Hour),
		presence: conns,
		games:    games,
	}
	env.router = NewRouter(logger, Deps{
		Store:     st,
		Tokens:    env.tokens,
		Presence:  conns,
		Games:     games,
		Catalog:   catalog,
		PublicURL: "https://wordrace.example",
	}, nil)
	return env
}

// user creates an account directly in the store and returns its token.
func (e *testEnv) user(t *testing.T, username string) (wordrace.User, string) {
	t.Helper()
	hash, err := auth.HashPassword("password1")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	u, err := e.store.CreateUser(context.Background(), username, "Name "+username, hash)
	if err != nil {
		t.Fatalf("create user %s: %v", username, err)
	}
	token, err := e.tokens.Issue(username)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return u, token
}

func (e *testEnv) befriend(t *testing.T, a, b wordrace.User) {
	t.Helper()
	ctx := context.Background()
	f, err := e.store.CreateFriendRequest(ctx, a.ID, b.ID)
	if err != nil {
		t.Fatalf("friend request: %v", err)
	}
	if err := e.store.AcceptRequest(ctx, f.ID, b.ID); err != nil {
		t.Fatalf("accept: %v", err)
	}
}

func (e *testEnv) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("encode body: %v", err)
		}
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.NewDecoder(rec.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

// recordingConn stands in for a connected client.
type recordingConn struct {
	mu   sync.Mutex
	msgs []presence.Message
}

func (c *recordingConn) Send(msg presence.Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return nil
}

func (c *recordingConn) ofType(msgType string) []presence.Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []presence.Message
	for _, m := range c.msgs {
		if m.Type == msgType {
			out = append(out, m)
		}
	}
	return out
}

func (e *testEnv) online(identity string) *recordingConn {
	c := &recordingConn{}
	e.presence.Register(identity, c)
	return c
}
