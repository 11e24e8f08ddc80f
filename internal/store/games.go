package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"midnight-village/internal/room"
)

// GameSummary is one finished game in history listings.
type GameSummary struct {
	ID       string    `json:"id"`
	RoomName string    `json:"room_name"`
	Winner   string    `json:"winner"`
	Rounds   int       `json:"rounds"`
	EndedAt  time.Time `json:"ended_at"`
	Players  int       `json:"players"`
}

// LeaderboardRow aggregates one human player's record across games.
type LeaderboardRow struct {
	Name  string `json:"name"`
	Games int    `json:"games"`
	Wins  int    `json:"wins"`
}

// RecordGame persists a finished game and its seats in one transaction.
// Implements room.Recorder.
func (s *Store) RecordGame(ctx context.Context, rec room.GameRecord) error {
	return pgx.BeginFunc(ctx, s.Pool, func(tx pgx.Tx) error {
		gameID := NewID()
		_, err := tx.Exec(ctx,
			`INSERT INTO games (id, room_id, room_name, winner, rounds, started_at, ended_at)
			 VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			gameID, rec.RoomID, rec.RoomName, rec.Winner, rec.Rounds, rec.StartedAt, rec.EndedAt)
		if err != nil {
			return err
		}
		for _, p := range rec.Players {
			_, err := tx.Exec(ctx,
				`INSERT INTO game_players (game_id, player_id, name, position, role, controller, survived, death_reason)
				 VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`,
				gameID, p.PlayerID, p.Name, p.Position, p.Role, p.Controller, p.Survived, p.DeathReason)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// RecentGames lists the latest finished games, newest first.
func (s *Store) RecentGames(ctx context.Context, limit int) ([]GameSummary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT g.id, g.room_name, g.winner, g.rounds, g.ended_at,
		        (SELECT count(*) FROM game_players p WHERE p.game_id = g.id)
		 FROM games g ORDER BY g.ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []GameSummary{}
	for rows.Next() {
		var g GameSummary
		if err := rows.Scan(&g.ID, &g.RoomName, &g.Winner, &g.Rounds, &g.EndedAt, &g.Players); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// GamePlayers returns the final seat lines of one game.
func (s *Store) GamePlayers(ctx context.Context, gameID string) ([]room.GamePlayerRecord, error) {
	rows, err := s.Pool.Query(ctx,
		`SELECT player_id, name, position, role, controller, survived, death_reason
		 FROM game_players WHERE game_id = $1 ORDER BY position`, gameID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []room.GamePlayerRecord{}
	for rows.Next() {
		var p room.GamePlayerRecord
		if err := rows.Scan(&p.PlayerID, &p.Name, &p.Position, &p.Role, &p.Controller, &p.Survived, &p.DeathReason); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out, nil
}

// Leaderboard ranks human players by wins. A seat wins when its camp matches
// the game's winner; every non-wolf role counts as the village camp.
func (s *Store) Leaderboard(ctx context.Context, limit int) ([]LeaderboardRow, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.Pool.Query(ctx,
		`SELECT p.name,
		        count(*) AS games,
		        count(*) FILTER (WHERE
		            (g.winner = 'werewolf' AND p.role = 'werewolf') OR
		            (g.winner = 'villager' AND p.role <> 'werewolf')) AS wins
		 FROM game_players p
		 JOIN games g ON g.id = p.game_id
		 WHERE p.controller = 'human'
		 GROUP BY p.name
		 ORDER BY wins DESC, games ASC, p.name
		 LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []LeaderboardRow{}
	for rows.Next() {
		var r LeaderboardRow
		if err := rows.Scan(&r.Name, &r.Games, &r.Wins); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
