package room

import (
	"context"
	"time"
)

// GamePlayerRecord is one seat's final line in a finished game.
type GamePlayerRecord struct {
	PlayerID    string `json:"player_id"`
	Name        string `json:"name"`
	Position    int    `json:"position"`
	Role        string `json:"role"`
	Controller  string `json:"controller"`
	Survived    bool   `json:"survived"`
	DeathReason string `json:"death_reason,omitempty"`
}

// GameRecord summarizes a finished game for persistence.
type GameRecord struct {
	RoomID    string
	RoomName  string
	Winner    string
	Rounds    int
	StartedAt time.Time
	EndedAt   time.Time
	Players   []GamePlayerRecord
}

// Recorder persists finished games. A nil Recorder disables persistence.
type Recorder interface {
	RecordGame(ctx context.Context, rec GameRecord) error
}
