package game

import "errors"

var (
	ErrInvalidPhase      = errors.New("invalid_phase")
	ErrNotAuthorized     = errors.New("not_authorized")
	ErrPotionUsed        = errors.New("potion_used")
	ErrInvalidTarget     = errors.New("invalid_target")
	ErrRoomNotFound      = errors.New("room_not_found")
	ErrRoomFull          = errors.New("room_full")
	ErrGameStarted       = errors.New("game_started")
	ErrNotCandidate      = errors.New("not_a_candidate")
	ErrAlreadyRegistered = errors.New("already_registered")
	ErrInvalidSeatCount  = errors.New("invalid_seat_count")
	ErrPlayerNotFound    = errors.New("player_not_found")
	ErrServerFull        = errors.New("server_full")
	ErrGamePaused        = errors.New("game_paused")
)
