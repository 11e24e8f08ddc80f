package ai

import (
	"math/rand"
	"testing"
	"time"

	"midnight-village/internal/game"
)

// aiTestRoom builds a six seat room with a fixed role layout: seat 1 is the
// human villager, seats 2-3 wolves, then seer, witch, guard.
func aiTestRoom(t *testing.T) *game.Room {
	t.Helper()
	room, host := game.NewRoom("t", "host", 6)
	host.Role = game.RoleVillager
	roles := []game.Role{game.RoleWerewolf, game.RoleWerewolf, game.RoleSeer, game.RoleWitch, game.RoleGuard}
	for i, role := range roles {
		room.Players = append(room.Players, &game.Player{
			ID:         game.NewID("p"),
			Name:       "ai",
			Position:   i + 2,
			Controller: game.ControllerAI,
			Role:       role,
			Alive:      true,
			Online:     true,
		})
	}
	return room
}

func say(room *game.Room, p *game.Player, content string) {
	p.SpeechHistory = append(p.SpeechHistory, game.Speech{
		Position: p.Position,
		Round:    room.CurrentRound,
		Phase:    room.Phase,
		Content:  content,
		At:       time.Now(),
	})
}

func TestUnjustifiedAttackOnPowerRoleFloorsAtEighty(t *testing.T) {
	room := aiTestRoom(t)
	observer := room.PlayerAt(1)
	attacker := room.PlayerAt(6)
	say(room, attacker, "The seer is lying, vote out seat 4 right now.")

	mem := NewMemory()
	updates := ComputeUpdates(observer, room, PersonaFor(1), mem, rand.New(rand.NewSource(1)))
	for _, u := range updates {
		if u.PlayerID == attacker.ID && u.Suspicion < 80 {
			t.Fatalf("attacking a power role with no evidence must floor at 80, got %.1f", u.Suspicion)
		}
	}
}

func TestJustifiedAttackKeepsNormalScoring(t *testing.T) {
	room := aiTestRoom(t)
	observer := room.PlayerAt(1)
	attacker := room.PlayerAt(6)
	say(room, attacker, "Vote out seat 4 because the vote showed they flipped on the seer claim.")

	mem := NewMemory()
	updates := ComputeUpdates(observer, room, PersonaFor(2), mem, rand.New(rand.NewSource(1)))
	for _, u := range updates {
		if u.PlayerID == attacker.ID && u.Suspicion >= 80 {
			t.Fatalf("evidence-backed attack must not hit the floor, got %.1f", u.Suspicion)
		}
	}
}

func TestWolfObserverZeroesPackmates(t *testing.T) {
	room := aiTestRoom(t)
	wolf := room.PlayerAt(2)
	packmate := room.PlayerAt(3)
	say(room, packmate, "I swear seat 5 is definitely the wolf, no doubt about it.")

	mem := NewMemory()
	persona := PersonaFor(1) // tunnel_lock, no double_agent masking
	updates := ComputeUpdates(wolf, room, persona, mem, rand.New(rand.NewSource(1)))
	for _, u := range updates {
		if u.PlayerID == packmate.ID && u.Suspicion != 0 {
			t.Fatalf("a wolf must not suspect its packmate, got %.1f", u.Suspicion)
		}
	}
}

func TestWolfObserverTreatsClaimAsThreat(t *testing.T) {
	room := aiTestRoom(t)
	wolf := room.PlayerAt(2)
	seer := room.PlayerAt(4)
	say(room, seer, "I am the seer and I checked seat 2 last night.")

	mem := NewMemory()
	updates := ComputeUpdates(wolf, room, PersonaFor(2), mem, rand.New(rand.NewSource(1)))
	found := false
	for _, u := range updates {
		if u.PlayerID == seer.ID {
			found = true
			if u.Suspicion < 85 {
				t.Fatalf("seer claim must score near the top of the threat scale, got %.1f", u.Suspicion)
			}
		}
	}
	if !found {
		t.Fatal("seer missing from updates")
	}
}

func TestPeacemakerDilutesDeltas(t *testing.T) {
	room := aiTestRoom(t)
	observer := room.PlayerAt(1)
	loud := room.PlayerAt(6)
	say(room, loud, "Obviously it's simple logic, seat 3 must be the wolf, no doubt.")

	base := Persona{Weights: Weights{Logic: 1.0, Stickiness: 1.0}}
	diluted := base
	diluted.Special = SpecialPeacemakerDilute

	full := ComputeUpdates(observer, room, base, NewMemory(), rand.New(rand.NewSource(1)))
	half := ComputeUpdates(observer, room, diluted, NewMemory(), rand.New(rand.NewSource(1)))

	var fullScore, halfScore float64
	for _, u := range full {
		if u.PlayerID == loud.ID {
			fullScore = u.Suspicion
		}
	}
	for _, u := range half {
		if u.PlayerID == loud.ID {
			halfScore = u.Suspicion
		}
	}
	if halfScore >= fullScore {
		t.Fatalf("peacemaker must react less: %.1f vs %.1f", halfScore, fullScore)
	}
}

func TestTargetedObserverRecordsGrudge(t *testing.T) {
	room := aiTestRoom(t)
	observer := room.PlayerAt(1)
	aggressor := room.PlayerAt(5)
	say(room, aggressor, "Seat 1 is definitely the wolf, vote out seat 1.")

	mem := NewMemory()
	ComputeUpdates(observer, room, PersonaFor(1), mem, rand.New(rand.NewSource(1)))
	if !mem.HoldsGrudge(aggressor.ID) {
		t.Fatal("being attacked by name must record a grudge")
	}
}

func TestConfirmedCheckPinsScore(t *testing.T) {
	room := aiTestRoom(t)
	seer := room.PlayerAt(4)
	wolf := room.PlayerAt(2)
	mem := NewMemory()
	mem.LearnCheck(1, wolf, true)

	// A charming speech must not talk the seer out of a hard fact.
	say(room, wolf, "I trust everyone here, let's stay calm and reason together.")
	updates := ComputeUpdates(seer, room, PersonaFor(2), mem, rand.New(rand.NewSource(1)))
	for _, u := range updates {
		if u.PlayerID == wolf.ID && u.Suspicion != 100 {
			t.Fatalf("a confirmed wolf stays at 100, got %.1f", u.Suspicion)
		}
	}
}

func TestUpdatesSortedMostSuspiciousFirst(t *testing.T) {
	room := aiTestRoom(t)
	observer := room.PlayerAt(1)
	say(room, room.PlayerAt(6), "You idiot, shut up, I swear seat 3 is definitely the wolf.")

	updates := ComputeUpdates(observer, room, PersonaFor(1), NewMemory(), rand.New(rand.NewSource(1)))
	for i := 1; i < len(updates); i++ {
		if updates[i].Suspicion > updates[i-1].Suspicion {
			t.Fatalf("updates must be sorted descending, broke at %d", i)
		}
	}
}

func TestTrendKeepsLastEight(t *testing.T) {
	mem := NewMemory()
	for i := 0; i < 12; i++ {
		mem.SetSuspicion("x", float64(i), "r")
	}
	trend := mem.Trend("x")
	if len(trend) != 8 {
		t.Fatalf("trend window must cap at 8, got %d", len(trend))
	}
	if trend[7] != 11 {
		t.Fatalf("trend must keep the newest entries, got %v", trend)
	}
}
