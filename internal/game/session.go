package game

import (
	"context"
	"log/slog"
	"math"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/playperu/wordrace/internal/presence"
	"github.com/playperu/wordrace/internal/wordrace"
)

// Notifier pushes a message to a player by identity and reports whether it
// was handed to a live connection.
type Notifier interface {
	Deliver(identity, msgType string, data any) bool
}

type SessionConfig struct {
	RoundDuration time.Duration
	StartDelay    time.Duration
}

type player struct {
	identity string
	points   int
	penalty  time.Duration
}

// Result is one row of the final ranking.
type Result struct {
	Username string  `json:"username"`
	Points   int     `json:"points"`
	Seconds  float64 `json:"seconds"`

	penalty time.Duration
}

// Summary is a point-in-time view of a session.
type Summary struct {
	ID           string              `json:"id"`
	Owner        string              `json:"owner"`
	Status       wordrace.GameStatus `json:"status"`
	Players      []string            `json:"players"`
	Rounds       int                 `json:"rounds"`
	RoundSeconds float64             `json:"round_seconds"`
	Round        int                 `json:"round"`
	Deadline     *time.Time          `json:"deadline,omitempty"`
}

type startedEvent struct {
	UsersCount int `json:"users_count"`
}

type nextWordEvent struct {
	Index int      `json:"index"`
	Word  []string `json:"word"`
}

type answerEvent struct {
	Index int `json:"index"`
}

type joinEvent struct {
	Username   string `json:"username"`
	UsersCount int    `json:"users_count"`
}

type endEvent struct {
	Result []Result `json:"result"`
}

// Session is one multiplayer game: a roster, a fixed word list and the
// round loop that walks through it.
type Session struct {
	id     string
	owner  string
	words  []wordrace.Word
	cfg    SessionConfig
	notify Notifier
	logger *slog.Logger
	now    func() time.Time

	// release is set by the Registry before the session is published.
	release func()
	done    chan struct{}

	mu         sync.Mutex
	status     wordrace.GameStatus
	players    []*player
	index      int
	roundOpen  bool
	roundStart time.Time
	deadline   time.Time
	answered   map[string]struct{}
	cancel     context.CancelFunc
}

func NewSession(owner string, words []wordrace.Word, cfg SessionConfig, notify Notifier, logger *slog.Logger) *Session {
	id := uuid.NewString()
	return &Session{
		id:       id,
		owner:    owner,
		words:    slices.Clone(words),
		cfg:      cfg,
		notify:   notify,
		logger:   logger.With("game", id, "owner", owner),
		now:      time.Now,
		done:     make(chan struct{}),
		status:   wordrace.GameStatusPending,
		players:  []*player{{identity: owner}},
		index:    -1,
		answered: make(map[string]struct{}),
	}
}

func (s *Session) ID() string    { return s.id }
func (s *Session) Owner() string { return s.owner }

// Done is closed when the round loop returns. It never closes for a
// session that was not started.
func (s *Session) Done() <-chan struct{} { return s.done }

func (s *Session) Status() wordrace.GameStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := Summary{
		ID:           s.id,
		Owner:        s.owner,
		Status:       s.status,
		Players:      s.rosterLocked(),
		Rounds:       len(s.words),
		RoundSeconds: s.cfg.RoundDuration.Seconds(),
		Round:        s.index,
	}
	if s.roundOpen {
		d := s.deadline
		sum.Deadline = &d
	}
	return sum
}

// Results returns the current standings in ranking order.
func (s *Session) Results() []Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return rank(s.players)
}

// AddPlayer appends identity to the roster and returns the new roster.
func (s *Session) AddPlayer(identity string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status != wordrace.GameStatusPending {
		return nil, ErrGameAlreadyStarted
	}
	if s.playerLocked(identity) != nil {
		return nil, ErrAlreadyJoined
	}
	s.players = append(s.players, &player{identity: identity})
	s.logger.Info("player joined", "user", identity, "players", len(s.players))
	return s.rosterLocked(), nil
}

// Start launches the round loop. It reports false without side effects
// when fewer than two players have joined.
func (s *Session) Start() (bool, error) {
	s.mu.Lock()
	if s.status != wordrace.GameStatusPending {
		s.mu.Unlock()
		return false, ErrGameAlreadyStarted
	}
	if len(s.players) < 2 {
		s.mu.Unlock()
		return false, nil
	}
	s.status = wordrace.GameStatusActive
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.mu.Unlock()

	go s.run(ctx)
	return true, nil
}

func (s *Session) run(ctx context.Context) {
	defer close(s.done)

	roster := s.roster()
	s.logger.Info("game started", "players", len(roster), "rounds", len(s.words))
	s.broadcastTo(roster, wordrace.EventGameStarted, startedEvent{UsersCount: len(roster)})

	if !sleep(ctx, s.cfg.StartDelay) {
		return
	}

	for i, w := range s.words {
		s.openRound(i)
		s.broadcastTo(roster, wordrace.EventNextWord, nextWordEvent{Index: i, Word: w.Uz})

		// Rounds always last the full duration, even if everyone answered.
		if !sleep(ctx, s.cfg.RoundDuration) {
			return
		}
		s.closeRound()
	}

	s.end()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Session) openRound(i int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.index = i
	s.answered = make(map[string]struct{}, len(s.players))
	s.roundStart = now
	s.deadline = now.Add(s.cfg.RoundDuration)
	s.roundOpen = true
}

// closeRound charges every player who stayed silent the full round.
func (s *Session) closeRound() {
	s.mu.Lock()
	defer s.mu.Unlock()

	missed := 0
	for _, p := range s.players {
		if _, ok := s.answered[p.identity]; !ok {
			p.penalty += s.cfg.RoundDuration
			missed++
		}
	}
	s.roundOpen = false
	s.logger.Debug("round expired", "index", s.index, "missed", missed)
}

func (s *Session) end() {
	s.mu.Lock()
	s.status = wordrace.GameStatusFinished
	results := rank(s.players)
	roster := s.rosterLocked()
	cancel := s.cancel
	s.mu.Unlock()

	s.broadcastTo(roster, wordrace.EventEndGame, endEvent{Result: results})
	s.logger.Info("game ended", "winner", results[0].Username, "points", results[0].Points)

	if s.release != nil {
		s.release()
	}
	if cancel != nil {
		cancel()
	}
}

// SubmitAnswer records identity's answer for the open round and replies on
// conn. It never fails: answers outside an open round or from players not
// in the roster are dropped.
func (s *Session) SubmitAnswer(conn presence.Conn, identity, answer string) {
	reply, index := s.record(identity, answer)
	if reply == "" || conn == nil {
		return
	}
	if err := conn.Send(presence.Message{Type: reply, Data: answerEvent{Index: index}}); err != nil {
		s.logger.Debug("answer reply failed", "user", identity, "error", err)
	}
}

func (s *Session) record(identity, answer string) (string, int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.roundOpen {
		return "", 0
	}
	if _, ok := s.answered[identity]; ok {
		return wordrace.EventAlreadyAnswered, s.index
	}
	p := s.playerLocked(identity)
	if p == nil {
		return "", 0
	}

	// Penalty is the time taken to answer, capped at the round length.
	now := s.now()
	if now.After(s.deadline) {
		now = s.deadline
	}
	if elapsed := now.Sub(s.roundStart); elapsed > 0 {
		p.penalty += elapsed
	}
	s.answered[identity] = struct{}{}

	if s.words[s.index].Accepts(answer) {
		p.points++
		return wordrace.EventCorrectAnswer, s.index
	}
	return wordrace.EventIncorrectAnswer, s.index
}

// broadcastTo pushes to each identity independently; one unreachable
// player never affects the others.
func (s *Session) broadcastTo(identities []string, msgType string, data any) map[string]bool {
	delivered := make(map[string]bool, len(identities))
	for _, id := range identities {
		delivered[id] = s.notify.Deliver(id, msgType, data)
	}
	return delivered
}

func (s *Session) roster() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rosterLocked()
}

func (s *Session) rosterLocked() []string {
	ids := make([]string, len(s.players))
	for i, p := range s.players {
		ids[i] = p.identity
	}
	return ids
}

func (s *Session) playerLocked(identity string) *player {
	for _, p := range s.players {
		if p.identity == identity {
			return p
		}
	}
	return nil
}

// rank orders players by points, then by lower penalty. Remaining ties
// keep join order.
func rank(players []*player) []Result {
	results := make([]Result, len(players))
	for i, p := range players {
		results[i] = Result{
			Username: p.identity,
			Points:   p.points,
			Seconds:  math.Round(p.penalty.Seconds()*1000) / 1000,
			penalty:  p.penalty,
		}
	}
	slices.SortStableFunc(results, func(a, b Result) int {
		if a.Points != b.Points {
			return b.Points - a.Points
		}
		switch {
		case a.penalty < b.penalty:
			return -1
		case a.penalty > b.penalty:
			return 1
		}
		return 0
	})
	return results
}
