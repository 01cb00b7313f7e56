package server

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/playperu/wordrace/internal/auth"
	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/wordrace"
)

type ctxKey int

const ctxKeyUser ctxKey = iota

type userLookup interface {
	UserByUsername(ctx context.Context, username string) (wordrace.User, error)
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	if len(h) > 7 && strings.EqualFold(h[:7], "bearer ") {
		return strings.TrimSpace(h[7:])
	}
	return ""
}

// authenticate resolves a token to its user and the status to reply with
// when that fails.
func authenticate(ctx context.Context, tokens *auth.Tokens, users userLookup, token string) (wordrace.User, int, error) {
	username, err := tokens.Parse(token)
	switch {
	case errors.Is(err, auth.ErrInvalidToken):
		return wordrace.User{}, http.StatusForbidden, err
	case err != nil:
		return wordrace.User{}, http.StatusUnauthorized, err
	}

	user, err := users.UserByUsername(ctx, username)
	if errors.Is(err, store.ErrNotFound) {
		return wordrace.User{}, http.StatusNotFound, errors.New("user not found")
	}
	if err != nil {
		return wordrace.User{}, http.StatusInternalServerError, errors.New("internal error")
	}
	return user, http.StatusOK, nil
}

func authMiddleware(tokens *auth.Tokens, users userLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			user, status, err := authenticate(r.Context(), tokens, users, bearerToken(r))
			if err != nil {
				writeError(w, status, err.Error())
				return
			}
			ctx := context.WithValue(r.Context(), ctxKeyUser, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func currentUser(r *http.Request) wordrace.User {
	return r.Context().Value(ctxKeyUser).(wordrace.User)
}
