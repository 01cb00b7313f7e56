package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/skip2/go-qrcode"

	"github.com/playperu/wordrace/internal/game"
	"github.com/playperu/wordrace/internal/words"
)

const qrSize = 320

type CreateGameRequest struct {
	Book     int      `json:"book"`
	Unit     int      `json:"unit"`
	Invitees []string `json:"invitees"`
}

type StartGameResponse struct {
	Started bool `json:"started"`
}

// CreateGameError is returned when no invitation could be delivered, so the
// client still learns who was unreachable.
type CreateGameError struct {
	Error   string          `json:"error"`
	Invites map[string]bool `json:"invites"`
}

// writeGameError maps game engine errors onto HTTP statuses.
func writeGameError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, game.ErrGameNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, game.ErrDuplicateGame),
		errors.Is(err, game.ErrGameAlreadyStarted),
		errors.Is(err, game.ErrAlreadyJoined):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, game.ErrNoReachableInvitees),
		errors.Is(err, game.ErrNoWords),
		errors.Is(err, words.ErrInvalidUnit):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func handleCreateGame(games *game.Service, layout words.Layout) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateGameRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if !layout.Valid(req.Book, req.Unit) {
			writeError(w, http.StatusBadRequest, words.ErrInvalidUnit.Error())
			return
		}
		invitees := make([]string, 0, len(req.Invitees))
		for _, inv := range req.Invitees {
			invitees = append(invitees, normalizeUsername(inv))
		}

		res, err := games.Create(r.Context(), game.CreateRequest{
			Owner:    currentUser(r).Username,
			Invitees: invitees,
			Book:     req.Book,
			Unit:     req.Unit,
		})
		if errors.Is(err, game.ErrNoReachableInvitees) && len(res.Invites) > 0 {
			writeJSON(w, http.StatusBadRequest, CreateGameError{Error: err.Error(), Invites: res.Invites})
			return
		}
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func handleJoinGame(games *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := normalizeUsername(r.URL.Query().Get("game_id"))
		if owner == "" {
			writeError(w, http.StatusBadRequest, "game_id is required")
			return
		}
		res, err := games.Join(owner, currentUser(r).Username)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func handleStartGame(games *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		started, err := games.Start(currentUser(r).Username)
		if err != nil {
			writeGameError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, StartGameResponse{Started: started})
	}
}

// handleCurrentGame reports the game named by game_id, defaulting to the
// caller's own.
func handleCurrentGame(games *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		owner := normalizeUsername(r.URL.Query().Get("game_id"))
		if owner == "" {
			owner = currentUser(r).Username
		}
		sess, ok := games.Games().Lookup(owner)
		if !ok {
			writeGameError(w, game.ErrGameNotFound)
			return
		}
		writeJSON(w, http.StatusOK, sess.Summary())
	}
}

// handleGameQR renders a PNG QR code linking to the join endpoint of an
// open game.
func handleGameQR(games *game.Service, publicURL string) http.HandlerFunc {
	base := strings.TrimSuffix(publicURL, "/")
	return func(w http.ResponseWriter, r *http.Request) {
		owner := chi.URLParam(r, "owner")
		if _, ok := games.Games().Lookup(owner); !ok {
			writeGameError(w, game.ErrGameNotFound)
			return
		}

		link := base + "/game/join?game_id=" + url.QueryEscape(owner)
		png, err := qrcode.Encode(link, qrcode.Medium, qrSize)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "qr generation failed")
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(png)
	}
}
