package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/wordrace/internal/store"
	"github.com/playperu/wordrace/internal/wordrace"
)

const searchLimit = 10

// notifier is the subset of the connection registry friend handlers use.
type notifier interface {
	Deliver(identity, msgType string, data any) bool
}

type eventUser struct {
	Name string `json:"name"`
}

type friendEvent struct {
	User eventUser `json:"user"`
}

func handleFriends(friends *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := friends.Friends(r.Context(), currentUser(r).ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleIncomingRequests(friends *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := friends.IncomingRequests(r.Context(), currentUser(r).ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleOutgoingRequests(friends *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		list, err := friends.OutgoingRequests(r.Context(), currentUser(r).ID)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSearchUsers(users *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := strings.TrimSpace(r.URL.Query().Get("query"))
		if query == "" {
			writeError(w, http.StatusBadRequest, "query is required")
			return
		}
		list, err := users.SearchUsers(r.Context(), currentUser(r).ID, query, searchLimit)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeJSON(w, http.StatusOK, list)
	}
}

func handleSendRequest(logger *slog.Logger, db *store.SQLiteStore, notify notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		receiverID, ok := queryID(r, "user_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		user := currentUser(r)
		if receiverID == user.ID {
			writeError(w, http.StatusBadRequest, "you cannot send a friend request to yourself")
			return
		}

		receiver, err := db.UserByID(r.Context(), receiverID)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if _, err := db.CreateFriendRequest(r.Context(), user.ID, receiver.ID); err != nil {
			if errors.Is(err, store.ErrConflict) {
				writeError(w, http.StatusBadRequest, "friend request already exists")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		notify.Deliver(receiver.Username, wordrace.EventReceiveFriendRequest, nil)
		logger.Info("friend request sent", "from", user.Username, "to", receiver.Username)
		writeMessage(w, http.StatusCreated, "OK")
	}
}

// pendingRequest loads the request named by the request_id parameter and
// checks that belongs(request) holds for the caller.
func pendingRequest(w http.ResponseWriter, r *http.Request, db *store.SQLiteStore, belongs func(wordrace.Friendship) bool) (wordrace.Friendship, bool) {
	id, ok := queryID(r, "request_id")
	if !ok {
		writeError(w, http.StatusBadRequest, "request_id is required")
		return wordrace.Friendship{}, false
	}
	req, err := db.PendingRequest(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) || (err == nil && !belongs(req)) {
		writeError(w, http.StatusNotFound, "friend request not found")
		return wordrace.Friendship{}, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "internal error")
		return wordrace.Friendship{}, false
	}
	return req, true
}

// notifyUser pushes to the user behind id, if that user still exists.
func notifyUser(r *http.Request, logger *slog.Logger, db *store.SQLiteStore, notify notifier, id int64, msgType string, data any) {
	u, err := db.UserByID(r.Context(), id)
	if err != nil {
		logger.Warn("friend event target lookup failed", "user_id", id, "type", msgType, "error", err)
		return
	}
	notify.Deliver(u.Username, msgType, data)
}

func handleCancelRequest(logger *slog.Logger, db *store.SQLiteStore, notify notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		req, ok := pendingRequest(w, r, db, func(f wordrace.Friendship) bool { return f.RequesterID == user.ID })
		if !ok {
			return
		}
		if err := db.DeleteFriendship(r.Context(), req.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		notifyUser(r, logger, db, notify, req.ReceiverID, wordrace.EventUserCancelRequest, nil)
		writeMessage(w, http.StatusOK, "OK")
	}
}

func handleAcceptRequest(logger *slog.Logger, db *store.SQLiteStore, notify notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		req, ok := pendingRequest(w, r, db, func(f wordrace.Friendship) bool { return f.ReceiverID == user.ID })
		if !ok {
			return
		}
		if err := db.AcceptRequest(r.Context(), req.ID, user.ID); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusNotFound, "friend request not found")
				return
			}
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		notifyUser(r, logger, db, notify, req.RequesterID, wordrace.EventAcceptRequest,
			friendEvent{User: eventUser{Name: user.Name}})
		writeMessage(w, http.StatusOK, "OK")
	}
}

func handleRejectRequest(logger *slog.Logger, db *store.SQLiteStore, notify notifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := currentUser(r)
		req, ok := pendingRequest(w, r, db, func(f wordrace.Friendship) bool { return f.ReceiverID == user.ID })
		if !ok {
			return
		}
		if err := db.DeleteFriendship(r.Context(), req.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		notifyUser(r, logger, db, notify, req.RequesterID, wordrace.EventRejectRequest,
			friendEvent{User: eventUser{Name: user.Name}})
		writeMessage(w, http.StatusOK, "OK")
	}
}

func handleUnfriend(db *store.SQLiteStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		otherID, ok := queryID(r, "user_id")
		if !ok {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}
		user := currentUser(r)
		if otherID == user.ID {
			writeError(w, http.StatusBadRequest, "you cannot unfriend yourself")
			return
		}

		f, err := db.FriendshipBetween(r.Context(), user.ID, otherID)
		if errors.Is(err, store.ErrNotFound) || (err == nil && f.Status != wordrace.FriendshipAccepted) {
			writeError(w, http.StatusNotFound, "friendship not found")
			return
		}
		if err != nil {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if err := db.DeleteFriendship(r.Context(), f.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		writeMessage(w, http.StatusOK, "OK")
	}
}
