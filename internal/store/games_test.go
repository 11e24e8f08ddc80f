package store

import (
	"testing"
	"time"

	"midnight-village/internal/ai"
	"midnight-village/internal/game"
	"midnight-village/internal/room"
)

func sampleRecord(roomName, winner string, humans map[string]string) room.GameRecord {
	started := time.Now().Add(-10 * time.Minute).UTC().Truncate(time.Second)
	rec := room.GameRecord{
		RoomID:    NewID(),
		RoomName:  roomName,
		Winner:    winner,
		Rounds:    3,
		StartedAt: started,
		EndedAt:   started.Add(9 * time.Minute),
	}
	pos := 1
	for name, role := range humans {
		rec.Players = append(rec.Players, room.GamePlayerRecord{
			PlayerID:   NewID(),
			Name:       name,
			Position:   pos,
			Role:       role,
			Controller: "human",
			Survived:   role != "werewolf",
		})
		pos++
	}
	for ; pos <= 6; pos++ {
		rec.Players = append(rec.Players, room.GamePlayerRecord{
			PlayerID:    NewID(),
			Name:        "bot",
			Position:    pos,
			Role:        "villager",
			Controller:  "ai",
			Survived:    false,
			DeathReason: "killed",
		})
	}
	return rec
}

func TestRecordAndQueryGames(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	if err := st.RecordGame(ctx, sampleRecord("first", "villager", map[string]string{"ann": "seer", "ben": "werewolf"})); err != nil {
		t.Fatalf("record game: %v", err)
	}
	if err := st.RecordGame(ctx, sampleRecord("second", "werewolf", map[string]string{"ann": "villager", "ben": "werewolf"})); err != nil {
		t.Fatalf("record game: %v", err)
	}

	recent, err := st.RecentGames(ctx, 10)
	if err != nil {
		t.Fatalf("recent games: %v", err)
	}
	if len(recent) != 2 {
		t.Fatalf("expected 2 games, got %d", len(recent))
	}
	for _, g := range recent {
		if g.Players != 6 {
			t.Fatalf("game %s expected 6 seats, got %d", g.ID, g.Players)
		}
	}

	players, err := st.GamePlayers(ctx, recent[0].ID)
	if err != nil {
		t.Fatalf("game players: %v", err)
	}
	if len(players) != 6 || players[0].Position != 1 {
		t.Fatalf("unexpected seat lines: %+v", players)
	}
	if _, err := st.GamePlayers(ctx, "missing"); err != ErrNotFound {
		t.Fatalf("expected not found, got %v", err)
	}

	// ann won as seer and lost as villager; ben won as wolf and lost as wolf.
	board, err := st.Leaderboard(ctx, 10)
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board) != 2 {
		t.Fatalf("expected 2 human rows, got %d", len(board))
	}
	for _, row := range board {
		if row.Games != 2 || row.Wins != 1 {
			t.Fatalf("expected 1 win in 2 games for %s, got %+v", row.Name, row)
		}
	}
}

func TestRolePresetRoundTrip(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	presets, err := st.LoadRolePresets(ctx)
	if err != nil {
		t.Fatalf("load presets: %v", err)
	}
	if len(presets) != 0 {
		t.Fatalf("fresh table must be empty, got %v", presets)
	}

	custom := game.RolePreset{
		game.RoleWerewolf: 2, game.RoleVillager: 3, game.RoleSeer: 1,
		game.RoleWitch: 1, game.RoleGuard: 1,
	}
	if err := st.SaveRolePreset(ctx, 8, custom); err != nil {
		t.Fatalf("save preset: %v", err)
	}
	// A row whose counts do not add up to its seat count is ignored.
	if err := st.SaveRolePreset(ctx, 10, game.RolePreset{game.RoleWerewolf: 1}); err != nil {
		t.Fatalf("save bad preset: %v", err)
	}

	presets, err = st.LoadRolePresets(ctx)
	if err != nil {
		t.Fatalf("reload presets: %v", err)
	}
	if len(presets) != 1 || presets[8][game.RoleGuard] != 1 {
		t.Fatalf("unexpected presets: %v", presets)
	}
}

func TestPersonaRoundTrip(t *testing.T) {
	st, ctx, cleanup := openStore(t)
	defer cleanup()

	personas, err := st.ListPersonas(ctx)
	if err != nil {
		t.Fatalf("list personas: %v", err)
	}
	if len(personas) != 0 {
		t.Fatalf("fresh table must be empty, got %v", personas)
	}

	custom := ai.Persona{
		Name:     "gambler",
		Style:    "loud, theatrical",
		Strategy: "bluff hard, accuse early",
		Weights:  ai.Weights{Logic: 0.8, Tone: 1.4, SelfDefense: 1.0, Stickiness: 0.5, Chaos: 0.4},
		Special:  ai.SpecialRookieChaos,
	}
	if err := st.SavePersona(ctx, custom); err != nil {
		t.Fatalf("save persona: %v", err)
	}
	custom.Style = "loud, theatrical, sore loser"
	if err := st.SavePersona(ctx, custom); err != nil {
		t.Fatalf("update persona: %v", err)
	}

	personas, err = st.ListPersonas(ctx)
	if err != nil {
		t.Fatalf("reload personas: %v", err)
	}
	if len(personas) != 1 || personas[0] != custom {
		t.Fatalf("unexpected personas: %+v", personas)
	}
}
