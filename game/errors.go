package game

import "errors"

var (
	ErrLobbyFull     = errors.New("Lobby is full")
	ErrNotHost       = errors.New("only the host may do that")
	ErrInvalidPhase  = errors.New("action not allowed in current phase")
	ErrNotReady      = errors.New("need at least two players, all ready")
	ErrUnknownPlayer = errors.New("unknown player")
)
