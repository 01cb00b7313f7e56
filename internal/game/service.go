package game

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/wordrace"
)

// WordSource supplies the fixed word list for a new game.
type WordSource interface {
	Pick(ctx context.Context, book, unit, n int) ([]wordrace.Word, error)
}

// FriendChecker decides who an owner may invite.
type FriendChecker interface {
	AreFriends(ctx context.Context, a, b string) (bool, error)
}

type Config struct {
	Session SessionConfig
	Rounds  int
}

type CreateRequest struct {
	Owner    string
	Invitees []string
	Book     int
	Unit     int
}

type CreateResult struct {
	Game    Summary         `json:"game"`
	Invites map[string]bool `json:"invites"`
}

type JoinResult struct {
	Game      Summary         `json:"game"`
	Delivered map[string]bool `json:"delivered"`
}

type inviteEvent struct {
	GameID    string `json:"game_id"`
	Owner     string `json:"owner"`
	SessionID string `json:"session_id"`
	Rounds    int    `json:"rounds"`
}

// Service is the entry point the HTTP and WebSocket layers use to drive
// games.
type Service struct {
	games   *Registry
	notify  Notifier
	words   WordSource
	friends FriendChecker
	cfg     Config
	logger  *slog.Logger
}

func NewService(games *Registry, notify Notifier, words WordSource, friends FriendChecker, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		games:   games,
		notify:  notify,
		words:   words,
		friends: friends,
		cfg:     cfg,
		logger:  logger,
	}
}

func (s *Service) Games() *Registry { return s.games }

// Create opens a pending game for req.Owner and invites the owner's
// friends among req.Invitees. It fails with ErrNoReachableInvitees, and
// discards the game, when no invitation reached a live connection.
func (s *Service) Create(ctx context.Context, req CreateRequest) (CreateResult, error) {
	if _, ok := s.games.Lookup(req.Owner); ok {
		return CreateResult{}, ErrDuplicateGame
	}

	invitees := uniqueInvitees(req.Owner, req.Invitees)
	if len(invitees) == 0 {
		return CreateResult{}, ErrNoReachableInvitees
	}

	allowed := make(map[string]bool, len(invitees))
	for _, inv := range invitees {
		ok := true
		if s.friends != nil {
			var err error
			ok, err = s.friends.AreFriends(ctx, req.Owner, inv)
			if err != nil {
				return CreateResult{}, fmt.Errorf("checking friendship with %s: %w", inv, err)
			}
		}
		allowed[inv] = ok
	}

	words, err := s.words.Pick(ctx, req.Book, req.Unit, s.cfg.Rounds)
	if err != nil {
		return CreateResult{}, fmt.Errorf("picking words: %w", err)
	}
	if len(words) == 0 {
		return CreateResult{}, ErrNoWords
	}

	sess, err := s.games.TryCreate(req.Owner, func() *Session {
		return NewSession(req.Owner, words, s.cfg.Session, s.notify, s.logger)
	})
	if err != nil {
		return CreateResult{}, err
	}

	invite := inviteEvent{
		GameID:    req.Owner,
		Owner:     req.Owner,
		SessionID: sess.ID(),
		Rounds:    len(words),
	}
	invites := make(map[string]bool, len(invitees))
	reached := 0
	for _, inv := range invitees {
		if !allowed[inv] {
			invites[inv] = false
			continue
		}
		invites[inv] = s.notify.Deliver(inv, wordrace.EventRequestJoinGame, invite)
		if invites[inv] {
			reached++
		}
	}

	if reached == 0 {
		s.games.release(req.Owner, sess)
		return CreateResult{Invites: invites}, ErrNoReachableInvitees
	}

	s.logger.Info("game created", "owner", req.Owner, "game", sess.ID(), "invited", len(invitees), "reached", reached)
	return CreateResult{Game: sess.Summary(), Invites: invites}, nil
}

// Join adds joiner to owner's pending game and tells every player about it.
func (s *Service) Join(owner, joiner string) (JoinResult, error) {
	sess, ok := s.games.Lookup(owner)
	if !ok {
		return JoinResult{}, ErrGameNotFound
	}
	roster, err := sess.AddPlayer(joiner)
	if err != nil {
		return JoinResult{}, err
	}

	delivered := sess.broadcastTo(roster, wordrace.EventJoinPlayer, joinEvent{
		Username:   joiner,
		UsersCount: len(roster),
	})
	return JoinResult{Game: sess.Summary(), Delivered: delivered}, nil
}

// Start begins owner's game. It reports false when fewer than two players
// have joined.
func (s *Service) Start(owner string) (bool, error) {
	sess, ok := s.games.Lookup(owner)
	if !ok {
		return false, ErrGameNotFound
	}
	return sess.Start()
}

// HandleAnswer routes an answer to owner's game; answers for unknown games
// are ignored.
func (s *Service) HandleAnswer(conn presence.Conn, identity, owner, answer string) {
	sess, ok := s.games.Lookup(owner)
	if !ok {
		return
	}
	sess.SubmitAnswer(conn, identity, answer)
}

func uniqueInvitees(owner string, invitees []string) []string {
	seen := make(map[string]bool, len(invitees))
	out := make([]string, 0, len(invitees))
	for _, inv := range invitees {
		if inv == "" || inv == owner || seen[inv] {
			continue
		}
		seen[inv] = true
		out = append(out, inv)
	}
	return out
}
