package server

import (
	"log/slog"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/swaggest/swgui/v5emb"
)

func addRoutes(r chi.Router, logger *slog.Logger, deps Deps) {
	r.Get("/openapi.json", handleOpenAPI())
	r.Mount("/docs", v5emb.New("WordRace API", "/openapi.json", "/docs"))

	// WebSocket auth happens on the query token, before the upgrade.
	r.Get("/ws", handleWS(logger, deps.Tokens, deps.Store, deps.Presence, deps.Games))

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", handleRegister(logger, deps.Store, deps.Tokens))
		r.Post("/login", handleLogin(deps.Store, deps.Tokens))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Tokens, deps.Store))
			r.Get("/me", handleMe())
			r.Post("/change-password", handleChangePassword(deps.Store))
		})
	})

	r.Route("/dict", func(r chi.Router) {
		r.Get("/", handleDictionary(deps.Catalog.Layout()))

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Tokens, deps.Store))
			r.Get("/words", handleUnitWords(deps.Catalog))
			r.Post("/complete-unit", handleCompleteUnit(deps.Store, deps.Catalog.Layout()))
		})
	})

	r.Route("/friends", func(r chi.Router) {
		r.Use(authMiddleware(deps.Tokens, deps.Store))
		r.Get("/all", handleFriends(deps.Store))
		r.Get("/requests", handleIncomingRequests(deps.Store))
		r.Get("/my-requests", handleOutgoingRequests(deps.Store))
		r.Get("/search", handleSearchUsers(deps.Store))
		r.Post("/send-request", handleSendRequest(logger, deps.Store, deps.Presence))
		r.Post("/cancel-request", handleCancelRequest(logger, deps.Store, deps.Presence))
		r.Post("/accept-request", handleAcceptRequest(logger, deps.Store, deps.Presence))
		r.Post("/reject-request", handleRejectRequest(logger, deps.Store, deps.Presence))
		r.Post("/unfriend", handleUnfriend(deps.Store))
	})

	r.Route("/game", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware(deps.Tokens, deps.Store))
			r.Get("/{owner}/qr", handleGameQR(deps.Games, deps.PublicURL))
			r.Post("/create", handleCreateGame(deps.Games, deps.Catalog.Layout()))
			r.Post("/join", handleJoinGame(deps.Games))
			r.Post("/start", handleStartGame(deps.Games))
			r.Get("/current", handleCurrentGame(deps.Games))
		})
	})

	if deps.SPADir != "" {
		if info, err := os.Stat(deps.SPADir); err == nil && info.IsDir() {
			logger.Info("serving SPA", "dir", deps.SPADir)
			r.NotFound(handleSPA(deps.SPADir))
		}
	}
}
