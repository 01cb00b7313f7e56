package server

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/playperu/wordrace/internal/auth"
	"github.com/playperu/wordrace/internal/game"
	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/wordrace"
)

type inboundMessage struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

type sendAnswerData struct {
	GameUsername string `json:"game_username"`
	Answer       string `json:"answer"`
}

// handleWS upgrades an authenticated client and serves its inbound
// messages one at a time until the connection drops.
func handleWS(logger *slog.Logger, tokens *auth.Tokens, users userLookup, conns *presence.Registry, games *game.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user, status, err := authenticate(r.Context(), tokens, users, r.URL.Query().Get("token"))
		if err != nil {
			writeError(w, status, err.Error())
			return
		}

		conn, err := conns.Accept(w, r, user.Username)
		if err != nil {
			logger.Warn("websocket upgrade failed", "user", user.Username, "error", err)
			return
		}
		defer func() {
			conns.Release(user.Username, conn)
			conn.Close("")
		}()

		log := logger.With("user", user.Username)
		for {
			data, err := conn.Read(r.Context())
			if err != nil {
				log.Debug("websocket read ended", "error", err)
				return
			}

			var msg inboundMessage
			if err := json.Unmarshal(data, &msg); err != nil {
				log.Debug("dropping malformed message", "error", err)
				continue
			}

			switch msg.Type {
			case wordrace.MessageSendAnswer:
				var d sendAnswerData
				if err := json.Unmarshal(msg.Data, &d); err != nil || d.GameUsername == "" {
					log.Debug("dropping malformed answer", "error", err)
					continue
				}
				games.HandleAnswer(conn, user.Username, d.GameUsername, d.Answer)
			default:
				log.Debug("dropping unknown message", "type", msg.Type)
			}
		}
	}
}
