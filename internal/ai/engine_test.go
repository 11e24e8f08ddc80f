package ai

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"midnight-village/internal/game"
)

// scriptedGenerator returns a fixed line and counts invocations.
type scriptedGenerator struct {
	text  string
	err   error
	calls atomic.Int32
	delay time.Duration
}

func (g *scriptedGenerator) Generate(ctx context.Context, sys, user string) (string, error) {
	g.calls.Add(1)
	if g.delay > 0 {
		select {
		case <-time.After(g.delay):
		case <-ctx.Done():
			return "", ErrGenerationTimeout
		}
	}
	return g.text, g.err
}

func newTestEngine(room *game.Room, position int, gen Generator, seed int64) *Engine {
	p := room.PlayerAt(position)
	return NewEngine(p.ID, PersonaFor(position), gen, 50*time.Millisecond, rand.New(rand.NewSource(seed)))
}

func TestWolfKillRoundOneTargetsOnlyAISeats(t *testing.T) {
	room := aiTestRoom(t)

	for seed := int64(0); seed < 20; seed++ {
		e2 := newTestEngine(room, 2, nil, seed)
		act, ok := e2.NightAction(room)
		if !ok || act.Kind != game.ActionKill {
			t.Fatalf("wolf must propose a kill, got %+v ok=%v", act, ok)
		}
		target := room.Player(act.TargetID)
		if !target.IsAI() {
			t.Fatalf("round 1 must never target the human seat, got seat %d", target.Position)
		}
		if target.Role == game.RoleWerewolf {
			t.Fatalf("wolves never target wolves, got seat %d", target.Position)
		}
	}
}

func TestWolfKillLaterRoundsHuntTopSuspicion(t *testing.T) {
	room := aiTestRoom(t)
	room.CurrentRound = 2
	e := newTestEngine(room, 2, nil, 1)
	loud := room.PlayerAt(4)
	e.LearnCheck(1, loud, true) // pins loud at 100 in this wolf's memory

	act, ok := e.NightAction(room)
	if !ok || act.TargetID != loud.ID {
		t.Fatalf("established wolf must hunt the hottest read, got %+v", act)
	}
}

func TestSeerChecksHighestUncheckedSuspect(t *testing.T) {
	room := aiTestRoom(t)
	seer := room.PlayerAt(4)
	// Fixed temperament so the chaos-free scoring makes the wolf the top read.
	e := NewEngine(seer.ID, Presets[1], nil, 50*time.Millisecond, rand.New(rand.NewSource(1)))
	wolf := room.PlayerAt(2)
	say(room, wolf, "You idiot, shut up, seat 5 is definitely the wolf.")
	ComputeUpdates(seer, room, e.Persona(), e.mem, rand.New(rand.NewSource(1)))

	act, ok := e.NightAction(room)
	if !ok || act.Kind != game.ActionCheck {
		t.Fatalf("seer must check, got %+v ok=%v", act, ok)
	}
	if act.TargetID != wolf.ID {
		t.Fatalf("seer must check the hottest read, got %s want %s", act.TargetID, wolf.ID)
	}

	// Once checked, the seer moves on to someone new.
	e.LearnCheck(1, wolf, true)
	act2, ok := e.NightAction(room)
	if !ok || act2.TargetID == wolf.ID {
		t.Fatalf("seer must not re-check a known seat, got %+v", act2)
	}
}

func TestWitchAlwaysSavesSelf(t *testing.T) {
	room := aiTestRoom(t)
	witch := room.PlayerAt(5)
	room.PutNightAction(game.NightAction{ActorID: game.WerewolfTeamActor, Kind: game.ActionKill, TargetID: witch.ID})

	e := newTestEngine(room, 5, nil, 1)
	act, ok := e.NightAction(room)
	if !ok || act.Kind != game.ActionSave || act.TargetID != witch.ID {
		t.Fatalf("witch must save herself, got %+v ok=%v", act, ok)
	}
}

func TestWitchPoisonRequiresThreshold(t *testing.T) {
	room := aiTestRoom(t)
	room.CurrentRound = 2
	e := newTestEngine(room, 5, nil, 1)

	// Neutral reads everywhere: no kill to save, nobody above threshold.
	if act, ok := e.NightAction(room); ok {
		t.Fatalf("witch with nothing actionable must pass, got %+v", act)
	}

	e.LearnCheck(1, room.PlayerAt(2), true)
	act, ok := e.NightAction(room)
	if !ok || act.Kind != game.ActionPoison || act.TargetID != room.PlayerAt(2).ID {
		t.Fatalf("witch must poison a read at or above threshold, got %+v ok=%v", act, ok)
	}
}

func TestWitchSkipsSaveWhenAntidoteGone(t *testing.T) {
	room := aiTestRoom(t)
	room.WitchPotions.Antidote = false
	victim := room.PlayerAt(6)
	room.PutNightAction(game.NightAction{ActorID: game.WerewolfTeamActor, Kind: game.ActionKill, TargetID: victim.ID})

	e := newTestEngine(room, 5, nil, 1)
	if act, ok := e.NightAction(room); ok && act.Kind == game.ActionSave {
		t.Fatalf("no antidote means no save, got %+v", act)
	}
}

func TestGuardProtectsLowestSuspicion(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 6, nil, 1)
	e.LearnCheck(1, room.PlayerAt(2), false) // pins seat 2 at 5

	act, ok := e.NightAction(room)
	if !ok || act.Kind != game.ActionProtect {
		t.Fatalf("guard must protect, got %+v ok=%v", act, ok)
	}
	if act.TargetID != room.PlayerAt(2).ID {
		t.Fatalf("guard must shield the cleanest read, got %s", act.TargetID)
	}
}

func TestVoteNeverTargetsPackmate(t *testing.T) {
	room := aiTestRoom(t)
	room.CurrentRound = 2
	e := newTestEngine(room, 2, nil, 1)
	// Make the packmate the hottest read; the wolf must still look away.
	e.mem.SetSuspicion(room.PlayerAt(3).ID, 100, "test")

	for seed := int64(0); seed < 10; seed++ {
		e.rnd = rand.New(rand.NewSource(seed))
		if got := e.DecideVote(room); got == room.PlayerAt(3).ID {
			t.Fatal("a wolf ballot must never land on a packmate")
		}
	}
}

func TestVoteRoundOneAbstainsWithoutConviction(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 1, nil, 1)
	if got := e.DecideVote(room); got != "" {
		t.Fatalf("neutral reads on round 1 must abstain, got %s", got)
	}

	e.LearnCheck(1, room.PlayerAt(2), true)
	if got := e.DecideVote(room); got != room.PlayerAt(2).ID {
		t.Fatalf("a hard fact overrides round-1 caution, got %q", got)
	}
}

func TestHunterShotPicksTopSuspect(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 1, nil, 1)
	e.LearnCheck(1, room.PlayerAt(3), true)

	target, ok := e.HunterShot(room)
	if !ok || target != room.PlayerAt(3).ID {
		t.Fatalf("hunter must shoot the hottest read, got %q ok=%v", target, ok)
	}
}

func TestSpeakFallsBackWithoutGenerator(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 1, nil, 1)

	res := e.Speak(context.Background(), room)
	if !res.Fallback {
		t.Fatal("nil generator must degrade to the canned line")
	}
	if res.Text == "" {
		t.Fatal("fallback text must not be empty")
	}
	if len(res.Updates) == 0 {
		t.Fatal("the suspicion pass must run even when generation fails")
	}
}

func TestSpeakFallsBackOnGeneratorError(t *testing.T) {
	room := aiTestRoom(t)
	gen := &scriptedGenerator{err: errors.New("boom")}
	e := newTestEngine(room, 1, gen, 1)

	res := e.Speak(context.Background(), room)
	if !res.Fallback {
		t.Fatal("generator error must degrade to the canned line")
	}
}

func TestSpeakFallsBackOnTimeout(t *testing.T) {
	room := aiTestRoom(t)
	gen := &scriptedGenerator{text: "way too slow", delay: time.Second}
	e := newTestEngine(room, 1, gen, 1)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	start := time.Now()
	res := e.Speak(ctx, room)
	if !res.Fallback {
		t.Fatal("deadline overrun must degrade to the canned line")
	}
	if time.Since(start) > 500*time.Millisecond {
		t.Fatal("fallback must come promptly after the deadline")
	}
}

func TestSpeakEnforcesTopSuspectMention(t *testing.T) {
	room := aiTestRoom(t)
	say(room, room.PlayerAt(2), "You idiot, shut up, seat 5 is definitely the wolf.")
	gen := &scriptedGenerator{text: "Lovely weather for a village meeting, is it not?"}
	e := newTestEngine(room, 1, gen, 1)

	res := e.Speak(context.Background(), room)
	if !res.Fallback {
		t.Fatal("an utterance that ignores the top suspect must be replaced")
	}
	top := res.Updates[0]
	if !strings.Contains(res.Text, fmt.Sprintf("seat %d", top.Position)) {
		t.Fatalf("fallback must still reference seat %d, got %q", top.Position, res.Text)
	}
}

func TestSpeakUsesGeneratedTextWhenValid(t *testing.T) {
	room := aiTestRoom(t)
	say(room, room.PlayerAt(2), "You idiot, shut up, seat 5 is definitely the wolf.")
	e := newTestEngine(room, 1, nil, 1)
	pos := room.PlayerAt(2).Position
	gen := &scriptedGenerator{text: fmt.Sprintf("I keep coming back to seat %d, their whole story is off.", pos)}
	e.gen = gen

	res := e.Speak(context.Background(), room)
	if res.Fallback {
		t.Fatalf("a compliant utterance must be used verbatim, got fallback %q", res.Text)
	}
	if res.Text != gen.text {
		t.Fatalf("expected generated text, got %q", res.Text)
	}
}

func TestPrefetchIsConsumedBySpeak(t *testing.T) {
	room := aiTestRoom(t)
	say(room, room.PlayerAt(2), "You idiot, shut up, seat 5 is definitely the wolf.")
	e := newTestEngine(room, 1, nil, 1)
	gen := &scriptedGenerator{text: "I keep staring at seat 2 and I do not like what I see."}
	e.gen = gen

	e.Prefetch(room)
	if got := e.State(); got != SeatSpeculating {
		t.Fatalf("prefetch must mark the seat speculating, got %s", got)
	}
	e.Speak(context.Background(), room)
	if n := gen.calls.Load(); n != 1 {
		t.Fatalf("speak must consume the prefetched result, got %d generator calls", n)
	}
	if got := e.State(); got != SeatIdle {
		t.Fatalf("seat must return to idle after speaking, got %s", got)
	}
}

func TestInvalidateDiscardsPrefetch(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 1, nil, 1)
	gen := &scriptedGenerator{text: "I still think seat 2 is hiding something."}
	e.gen = gen

	e.Prefetch(room)
	discarded := pendingOf(e)
	e.Invalidate()
	if got := e.State(); got != SeatIdle {
		t.Fatalf("invalidate must clear the speculating state, got %s", got)
	}
	e.Speak(context.Background(), room)
	<-discarded.done
	if n := gen.calls.Load(); n != 2 {
		t.Fatalf("invalidated cache must force a fresh generation, got %d calls", n)
	}
}

// pendingOf grabs the in-flight speculative generation so a test can wait for
// its goroutine before counting generator calls.
func pendingOf(e *Engine) *pendingSpeech {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.cache
}

func TestStaleCacheIgnoredAcrossPhases(t *testing.T) {
	room := aiTestRoom(t)
	e := newTestEngine(room, 1, nil, 1)
	gen := &scriptedGenerator{text: "Seat 2 again, same as yesterday."}
	e.gen = gen

	room.Phase = game.PhaseDayDiscuss
	e.Prefetch(room)
	stale := pendingOf(e)
	room.Phase = game.PhaseDayVote
	e.Speak(context.Background(), room)
	<-stale.done
	if n := gen.calls.Load(); n != 2 {
		t.Fatalf("a cache from another phase must not be consumed, got %d calls", n)
	}
}
