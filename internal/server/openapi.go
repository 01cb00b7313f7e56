package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"

	"github.com/playperu/wordrace/internal/game"
	"github.com/playperu/wordrace/internal/store"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type HealthResponse map[string]struct {
	Status string `json:"status"`
	Value  *int   `json:"value,omitempty"`
}

type operation struct {
	method, path, summary, description string
	req                                any
	resp                               any
	status                             int
	errors                             []int
}

var operations = []operation{
	{http.MethodGet, "/healthz", "Health check", "Reports backend dependencies and live player and game counts.",
		nil, HealthResponse{}, http.StatusOK, []int{http.StatusServiceUnavailable}},

	{http.MethodPost, "/auth/register", "Register", "Creates an account and returns a bearer token.",
		RegisterRequest{}, TokenResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusNotAcceptable}},
	{http.MethodPost, "/auth/login", "Log in", "Exchanges credentials for a bearer token.",
		LoginRequest{}, TokenResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusNotFound}},
	{http.MethodGet, "/auth/me", "Current user", "Returns the authenticated user's profile.",
		nil, MeResponse{}, http.StatusOK, []int{http.StatusUnauthorized, http.StatusForbidden}},
	{http.MethodPost, "/auth/change-password", "Change password", "Replaces the authenticated user's password.",
		ChangePasswordRequest{}, MessageResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},

	{http.MethodGet, "/dict/", "Dictionary layout", "Returns how the dictionary splits into books and units.",
		nil, DictionaryResponse{}, http.StatusOK, nil},
	{http.MethodGet, "/dict/words", "Unit words", "Returns the words of one unit. Query: book, unit.",
		nil, UnitWordsResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{http.MethodPost, "/dict/complete-unit", "Complete unit", "Marks a unit as completed. Query: book, unit.",
		nil, MeResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},

	{http.MethodGet, "/friends/all", "List friends", "Returns accepted friends.",
		nil, []store.Profile{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/friends/requests", "Incoming requests", "Returns pending requests sent to the caller.",
		nil, []store.Request{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/friends/my-requests", "Outgoing requests", "Returns pending requests the caller sent.",
		nil, []store.Request{}, http.StatusOK, []int{http.StatusUnauthorized}},
	{http.MethodGet, "/friends/search", "Search users", "Finds users to befriend by username. Query: query.",
		nil, []store.Profile{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusUnauthorized}},
	{http.MethodPost, "/friends/send-request", "Send friend request", "Query: user_id.",
		nil, MessageResponse{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusNotFound}},
	{http.MethodPost, "/friends/cancel-request", "Cancel friend request", "Query: request_id.",
		nil, MessageResponse{}, http.StatusOK, []int{http.StatusNotFound}},
	{http.MethodPost, "/friends/accept-request", "Accept friend request", "Query: request_id.",
		nil, MessageResponse{}, http.StatusOK, []int{http.StatusNotFound}},
	{http.MethodPost, "/friends/reject-request", "Reject friend request", "Query: request_id.",
		nil, MessageResponse{}, http.StatusOK, []int{http.StatusNotFound}},
	{http.MethodPost, "/friends/unfriend", "Unfriend", "Query: user_id.",
		nil, MessageResponse{}, http.StatusOK, []int{http.StatusBadRequest, http.StatusNotFound}},

	{http.MethodPost, "/game/create", "Create game", "Opens a game on one unit and invites online friends.",
		CreateGameRequest{}, game.CreateResult{}, http.StatusCreated, []int{http.StatusBadRequest, http.StatusConflict}},
	{http.MethodPost, "/game/join", "Join game", "Joins the pending game owned by game_id.",
		nil, game.JoinResult{}, http.StatusOK, []int{http.StatusNotFound, http.StatusConflict}},
	{http.MethodPost, "/game/start", "Start game", "Starts the caller's game once two players are in.",
		nil, StartGameResponse{}, http.StatusOK, []int{http.StatusNotFound, http.StatusConflict}},
	{http.MethodGet, "/game/current", "Game summary", "Returns the game owned by game_id, or the caller's own.",
		nil, game.Summary{}, http.StatusOK, []int{http.StatusNotFound}},
	{http.MethodGet, "/game/{owner}/qr", "Invite QR code", "PNG QR code linking to the join endpoint.",
		nil, nil, http.StatusOK, []int{http.StatusNotFound, http.StatusUnauthorized}},

	{http.MethodGet, "/ws", "Realtime channel", "Upgrades to a WebSocket. Pass the bearer token as the token query parameter.",
		nil, nil, http.StatusSwitchingProtocols, []int{http.StatusUnauthorized, http.StatusForbidden}},
}

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "WordRace API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Vocabulary practice with friends and timed multiplayer word races.")

	for _, op := range operations {
		oc, err := r.NewOperationContext(op.method, op.path)
		if err != nil {
			continue
		}
		oc.SetSummary(op.summary)
		oc.SetDescription(op.description)
		if op.req != nil {
			oc.AddReqStructure(op.req)
		}
		switch {
		case op.status == http.StatusSwitchingProtocols:
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status), openapi.WithContentType("text/plain"))
		case op.resp == nil:
			oc.AddRespStructure(nil, openapi.WithHTTPStatus(op.status), openapi.WithContentType("image/png"))
		default:
			oc.AddRespStructure(op.resp, openapi.WithHTTPStatus(op.status))
		}
		for _, status := range op.errors {
			oc.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(status))
		}
		_ = r.AddOperation(oc)
	}

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}
