// Package wordrace defines the core domain types shared by the store, the
// game engine and the HTTP layer. It has zero external dependencies.
package wordrace

import (
	"strings"
	"time"
)

type User struct {
	ID            int64
	Username      string
	Name          string
	PasswordHash  string
	CompletedUnit int
	CreatedAt     time.Time
}

// Word is one dictionary entry. En holds the accepted English answers, Uz
// the Uzbek prompt shown to players.
type Word struct {
	ID int64    `json:"-"`
	En []string `json:"en"`
	Uz []string `json:"uz"`
}

// Accepts reports whether answer matches one of the word's English forms,
// ignoring case and surrounding whitespace.
func (w Word) Accepts(answer string) bool {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return false
	}
	for _, en := range w.En {
		if strings.EqualFold(answer, strings.TrimSpace(en)) {
			return true
		}
	}
	return false
}

type FriendshipStatus string

const (
	FriendshipPending  FriendshipStatus = "pending"
	FriendshipAccepted FriendshipStatus = "accepted"
)

type Friendship struct {
	ID          int64
	RequesterID int64
	ReceiverID  int64
	Status      FriendshipStatus
	CreatedAt   time.Time
}

type GameStatus string

const (
	GameStatusPending  GameStatus = "pending"
	GameStatusActive   GameStatus = "active"
	GameStatusFinished GameStatus = "finished"
)

// Push message types delivered over a player's WebSocket.
const (
	EventReceiveFriendRequest = "receive_friendship_request"
	EventUserCancelRequest    = "user_cancel_request"
	EventAcceptRequest        = "accept_request"
	EventRejectRequest        = "reject_request"
	EventRequestJoinGame      = "request_join_game"

	EventGameStarted     = "game_started"
	EventNextWord        = "next_word"
	EventAlreadyAnswered = "already_answered"
	EventCorrectAnswer   = "correct_answer"
	EventIncorrectAnswer = "incorrect_answer"
	EventJoinPlayer      = "join_player"
	EventEndGame         = "end_game"
)

// Inbound message types sent by clients.
const (
	MessageSendAnswer = "send_answer"
)
