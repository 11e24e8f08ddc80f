package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("not found")

// Store wraps DB access. Persistence is optional: the server runs without a
// Store when no DSN is configured.
type Store struct {
	Pool *pgxpool.Pool
}

func New(dsn string) (*Store, error) {
	pool, err := pgxpool.New(context.Background(), dsn)
	if err != nil {
		return nil, err
	}
	return &Store{Pool: pool}, nil
}

func (s *Store) Close() {
	if s.Pool != nil {
		s.Pool.Close()
	}
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return s.Pool.Ping(ctx)
}

const schemaSQL = `
CREATE TABLE IF NOT EXISTS games (
    id          TEXT PRIMARY KEY,
    room_id     TEXT NOT NULL,
    room_name   TEXT NOT NULL,
    winner      TEXT NOT NULL,
    rounds      INT NOT NULL,
    started_at  TIMESTAMPTZ NOT NULL,
    ended_at    TIMESTAMPTZ NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS game_players (
    game_id      TEXT NOT NULL REFERENCES games(id) ON DELETE CASCADE,
    player_id    TEXT NOT NULL,
    name         TEXT NOT NULL,
    position     INT NOT NULL,
    role         TEXT NOT NULL,
    controller   TEXT NOT NULL,
    survived     BOOLEAN NOT NULL,
    death_reason TEXT NOT NULL DEFAULT '',
    PRIMARY KEY (game_id, position)
);

CREATE INDEX IF NOT EXISTS idx_games_ended_at ON games (ended_at DESC);
CREATE INDEX IF NOT EXISTS idx_game_players_name ON game_players (name);

CREATE TABLE IF NOT EXISTS role_presets (
    seats  INT PRIMARY KEY,
    preset JSONB NOT NULL
);

CREATE TABLE IF NOT EXISTS personas (
    name     TEXT PRIMARY KEY,
    style    TEXT NOT NULL,
    strategy TEXT NOT NULL,
    weights  JSONB NOT NULL,
    special  TEXT NOT NULL DEFAULT ''
);
`

// EnsureSchema creates the tables if they are missing. Idempotent, run at
// startup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	_, err := s.Pool.Exec(ctx, schemaSQL)
	return err
}
