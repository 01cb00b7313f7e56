package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/playperu/wordrace/internal/auth"
	"github.com/playperu/wordrace/internal/store"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type ChangePasswordRequest struct {
	NewPassword string `json:"new_password"`
}

type TokenResponse struct {
	Message string `json:"message"`
	Token   string `json:"token"`
}

type MeResponse struct {
	Username      string `json:"username"`
	Name          string `json:"name"`
	CompletedUnit int    `json:"completed_unit"`
}

func normalizeUsername(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func lengthBetween(s string, lo, hi int) bool {
	n := utf8.RuneCountInString(s)
	return n >= lo && n <= hi
}

func (req *RegisterRequest) validate() string {
	req.Username = normalizeUsername(req.Username)
	req.Name = strings.TrimSpace(req.Name)
	switch {
	case !lengthBetween(req.Username, 5, 50):
		return "username must be 5 to 50 characters"
	case !lengthBetween(req.Password, 6, 100):
		return "password must be 6 to 100 characters"
	case !lengthBetween(req.Name, 3, 50):
		return "name must be 3 to 50 characters"
	}
	return ""
}

func handleRegister(logger *slog.Logger, users *store.SQLiteStore, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req RegisterRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if msg := req.validate(); msg != "" {
			writeError(w, http.StatusBadRequest, msg)
			return
		}

		hash, err := auth.HashPassword(req.Password)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if _, err := users.CreateUser(r.Context(), req.Username, req.Name, hash); err != nil {
			if errors.Is(err, store.ErrConflict) {
				writeError(w, http.StatusNotAcceptable, "user already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := tokens.Issue(req.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		logger.Info("user registered", "user", req.Username)
		writeJSON(w, http.StatusCreated, TokenResponse{Message: "user created successfully", Token: token})
	}
}

func handleLogin(users *store.SQLiteStore, tokens *auth.Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req LoginRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		user, err := users.UserByUsername(r.Context(), normalizeUsername(req.Username))
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !auth.CheckPassword(user.PasswordHash, req.Password) {
			writeError(w, http.StatusUnauthorized, "invalid username or password")
			return
		}

		token, err := tokens.Issue(user.Username)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, TokenResponse{Message: "login successful", Token: token})
	}
}

func handleMe() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		writeJSON(w, http.StatusOK, MeResponse{
			Username:      user.Username,
			Name:          user.Name,
			CompletedUnit: user.CompletedUnit,
		})
	}
}

func handleChangePassword(users *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChangePasswordRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !lengthBetween(req.NewPassword, 6, 100) {
			writeError(w, http.StatusBadRequest, "password must be 6 to 100 characters")
			return
		}

		hash, err := auth.HashPassword(req.NewPassword)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := users.UpdatePassword(r.Context(), currentUser(r).ID, hash); err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeMessage(w, http.StatusOK, "successfully changed")
	}
}
