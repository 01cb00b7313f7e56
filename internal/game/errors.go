package game

import "errors"

var (
	ErrDuplicateGame       = errors.New("you already have a game")
	ErrGameNotFound        = errors.New("game not found")
	ErrGameAlreadyStarted  = errors.New("game already started")
	ErrAlreadyJoined       = errors.New("player already in game")
	ErrNoReachableInvitees = errors.New("none of the invited players could be notified")
	ErrNoWords             = errors.New("no words available for this unit")
)
