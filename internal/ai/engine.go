package ai

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"midnight-village/internal/game"
)

// SeatState is the externally visible lifecycle of one AI seat.
type SeatState string

const (
	SeatIdle        SeatState = "idle"
	SeatThinking    SeatState = "thinking"
	SeatSpeculating SeatState = "speculating"
	SeatSpeaking    SeatState = "speaking"
)

const (
	poisonThreshold    = 75.0
	round1AbstainBelow = 65.0
	voteSuspicionBlend = 0.6
	voteAnalysisBlend  = 0.4
)

// Round-1 witch save odds by victim role. A human victim gets a sympathy
// bump so the opening night rarely knocks out the person at the keyboard.
var round1SaveOdds = map[game.Role]float64{
	game.RoleSeer:     0.90,
	game.RoleGuard:    0.80,
	game.RoleHunter:   0.75,
	game.RoleVillager: 0.50,
	game.RoleWitch:    0.95,
	game.RoleWerewolf: 0.05,
}

const (
	humanSaveBump = 0.15
	saveOddsCap   = 0.98
)

// Engine drives one AI seat: night actions, votes, and table talk. All entry
// points take a room snapshot, never the live room.
type Engine struct {
	playerID string
	persona  Persona
	gen      Generator
	timeout  time.Duration

	mu    sync.Mutex
	rnd   *rand.Rand
	mem   *Memory
	state SeatState
	cache *pendingSpeech
}

// pendingSpeech is one speculative generation in flight or completed. The
// done channel closes when text and err are final.
type pendingSpeech struct {
	round   int
	phase   game.Phase
	updates []Update
	done    chan struct{}
	text    string
	err     error
}

// SpeechResult is a finished utterance plus the suspicion pass behind it.
type SpeechResult struct {
	Text     string
	Updates  []Update
	Fallback bool
}

func NewEngine(playerID string, persona Persona, gen Generator, timeout time.Duration, rnd *rand.Rand) *Engine {
	return &Engine{
		playerID: playerID,
		persona:  persona,
		gen:      gen,
		timeout:  timeout,
		rnd:      rnd,
		mem:      NewMemory(),
		state:    SeatIdle,
	}
}

func (e *Engine) PlayerID() string { return e.playerID }

func (e *Engine) Persona() Persona { return e.persona }

func (e *Engine) State() SeatState {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// LearnCheck feeds a resolved seer check back into the agent's memory.
func (e *Engine) LearnCheck(round int, target *game.Player, isWerewolf bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mem.LearnCheck(round, target, isWerewolf)
}

// Learn records any other private night fact.
func (e *Engine) Learn(round int, phase game.Phase, kind, target, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mem.Learn(round, phase, kind, target, text)
}

// Forget drops bookkeeping for a dead player.
func (e *Engine) Forget(playerID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.mem.Forget(playerID)
}

// NightAction decides this seat's nocturnal move. The second return is false
// when the role has nothing to do tonight.
func (e *Engine) NightAction(room *game.Room) (game.NightAction, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := room.Player(e.playerID)
	if me == nil || !me.Alive {
		return game.NightAction{}, false
	}

	switch me.Role {
	case game.RoleWerewolf:
		return e.wolfKill(room, me)
	case game.RoleSeer:
		return e.seerCheck(room, me)
	case game.RoleWitch:
		return e.witchMove(room, me)
	case game.RoleGuard:
		return e.guardProtect(room, me)
	default:
		return game.NightAction{}, false
	}
}

func (e *Engine) wolfKill(room *game.Room, me *game.Player) (game.NightAction, bool) {
	var candidates []*game.Player
	for _, p := range room.Alive() {
		if p.ID == me.ID || p.Role == game.RoleWerewolf {
			continue
		}
		if room.CurrentRound == 1 && !p.IsAI() {
			continue
		}
		candidates = append(candidates, p)
	}
	if len(candidates) == 0 {
		for _, p := range room.Alive() {
			if p.Role != game.RoleWerewolf {
				candidates = append(candidates, p)
			}
		}
	}
	if len(candidates) == 0 {
		return game.NightAction{}, false
	}

	target := candidates[e.rnd.Intn(len(candidates))]
	if room.CurrentRound > 1 {
		// Established games hunt the loudest threat instead of at random.
		best := -1.0
		for _, c := range candidates {
			if s := e.mem.SuspicionOf(c.ID); s > best {
				best, target = s, c
			}
		}
	}
	return game.NightAction{ActorID: me.ID, Kind: game.ActionKill, TargetID: target.ID}, true
}

func (e *Engine) seerCheck(room *game.Room, me *game.Player) (game.NightAction, bool) {
	checked := map[string]bool{}
	for _, k := range e.mem.Knowledge() {
		if k.Kind == "seer_check" {
			checked[k.Target] = true
		}
	}

	var target *game.Player
	best := -1.0
	for _, p := range room.Alive() {
		if p.ID == me.ID || checked[p.ID] {
			continue
		}
		if s := e.mem.SuspicionOf(p.ID); s > best {
			best, target = s, p
		}
	}
	if target == nil {
		return game.NightAction{}, false
	}
	return game.NightAction{ActorID: me.ID, Kind: game.ActionCheck, TargetID: target.ID}, true
}

func (e *Engine) witchMove(room *game.Room, me *game.Player) (game.NightAction, bool) {
	victimID := room.NightKillTarget()
	if victimID != "" && room.WitchPotions.Antidote {
		victim := room.Player(victimID)
		if victim != nil && e.shouldSave(room, victim) {
			return game.NightAction{ActorID: me.ID, Kind: game.ActionSave, TargetID: victimID}, true
		}
	}
	if room.WitchPotions.Poison {
		var target *game.Player
		best := -1.0
		for _, p := range room.Alive() {
			if p.ID == me.ID {
				continue
			}
			if s := e.mem.SuspicionOf(p.ID); s > best {
				best, target = s, p
			}
		}
		if target != nil && best >= poisonThreshold {
			return game.NightAction{ActorID: me.ID, Kind: game.ActionPoison, TargetID: target.ID}, true
		}
	}
	return game.NightAction{}, false
}

// Round1SaveChance exposes the opening-night odds table for the case where a
// human witch never acted and the room falls back to an automatic decision.
func Round1SaveChance(role game.Role, human bool) float64 {
	odds := round1SaveOdds[role]
	if human {
		odds += humanSaveBump
	}
	if odds > saveOddsCap {
		odds = saveOddsCap
	}
	return odds
}

func (e *Engine) shouldSave(room *game.Room, victim *game.Player) bool {
	if victim.ID == e.playerID {
		return true
	}
	if room.CurrentRound == 1 {
		odds := round1SaveOdds[victim.Role]
		if !victim.IsAI() {
			odds += humanSaveBump
		}
		if odds > saveOddsCap {
			odds = saveOddsCap
		}
		return e.rnd.Float64() < odds
	}
	return e.mem.SuspicionOf(victim.ID) < 60
}

func (e *Engine) guardProtect(room *game.Room, me *game.Player) (game.NightAction, bool) {
	var target *game.Player
	best := suspicionCeiling + 1
	for _, p := range room.Alive() {
		if s := e.mem.SuspicionOf(p.ID); s < best {
			best, target = s, p
		}
	}
	if target == nil {
		return game.NightAction{}, false
	}
	return game.NightAction{ActorID: me.ID, Kind: game.ActionProtect, TargetID: target.ID}, true
}

// HunterShot picks a revenge target when the hunter dies to a gun-legal
// death. Highest suspicion wins; wolves shoot a non-wolf.
func (e *Engine) HunterShot(room *game.Room) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := room.Player(e.playerID)
	var target *game.Player
	best := -1.0
	for _, p := range room.Alive() {
		if p.ID == e.playerID {
			continue
		}
		if me != nil && me.Role == game.RoleWerewolf && p.Role == game.RoleWerewolf {
			continue
		}
		if s := e.mem.SuspicionOf(p.ID); s > best {
			best, target = s, p
		}
	}
	if target == nil {
		return "", false
	}
	return target.ID, true
}

// BadgeHeir picks who inherits the badge when this seat dies holding it.
// A surviving teammate gets it outright; otherwise the least suspected seat.
func (e *Engine) BadgeHeir(room *game.Room) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := room.Player(e.playerID)
	var target *game.Player
	best := 101.0
	for _, p := range room.Alive() {
		if p.ID == e.playerID {
			continue
		}
		if me != nil && me.Role == game.RoleWerewolf && p.Role == game.RoleWerewolf {
			return p.ID, true
		}
		if s := e.mem.SuspicionOf(p.ID); s < best {
			best, target = s, p
		}
	}
	if target == nil {
		return "", false
	}
	return target.ID, true
}

// Farewell produces a short dying declaration without a generation call.
func (e *Engine) Farewell(room *game.Room) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	var top *game.Player
	best := -1.0
	for _, p := range room.Alive() {
		if p.ID == e.playerID {
			continue
		}
		if s := e.mem.SuspicionOf(p.ID); s > best {
			best, top = s, p
		}
	}
	if top == nil || best < 55 {
		return "That's it for me. Don't let them divide you tomorrow."
	}
	return fmt.Sprintf("I'm out. If you trusted me at all, keep your eyes on seat %d.", top.Position)
}

// DecideVote returns the ballot target, empty for an abstention. The final
// score blends the standing suspicion with an independent per-seat heuristic
// so a single loud speech does not fully decide a vote.
func (e *Engine) DecideVote(room *game.Room) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := room.Player(e.playerID)
	if me == nil || !me.Alive {
		return ""
	}

	var target *game.Player
	best := -1.0
	for _, p := range room.Alive() {
		if p.ID == me.ID {
			continue
		}
		if me.Role == game.RoleWerewolf && p.Role == game.RoleWerewolf {
			continue
		}
		score := voteSuspicionBlend*e.mem.SuspicionOf(p.ID) + voteAnalysisBlend*heuristicRead(p.Position)
		score += (e.rnd.Float64()*2 - 1) * e.persona.Weights.Chaos * 10
		if score > best {
			best, target = score, p
		}
	}
	if target == nil {
		return ""
	}
	if room.CurrentRound == 1 && best < round1AbstainBelow {
		return ""
	}
	return target.ID
}

// SheriffVote is an unblended pick: the least suspicious living candidate,
// never self, wolves preferring a packmate when one is running.
func (e *Engine) SheriffVote(room *game.Room) string {
	e.mu.Lock()
	defer e.mu.Unlock()

	me := room.Player(e.playerID)
	if me == nil {
		return ""
	}
	var pick *game.Player
	best := suspicionCeiling + 1
	for _, id := range room.SheriffCandidates {
		c := room.Player(id)
		if c == nil || !c.Alive || c.ID == me.ID {
			continue
		}
		if me.Role == game.RoleWerewolf && c.Role == game.RoleWerewolf {
			return c.ID
		}
		if s := e.mem.SuspicionOf(c.ID); s < best {
			best, pick = s, c
		}
	}
	if pick == nil {
		return ""
	}
	return pick.ID
}

// heuristicRead is the deterministic secondary vote signal, a stand-in for a
// deeper per-speech analysis pass. Seat-derived so every agent diverges.
func heuristicRead(position int) float64 {
	return 40 + float64((position*7)%45)
}

// Speak produces this seat's utterance for the current speaking slot. It
// consumes a speculative result when one matches, otherwise generates inline.
// It never returns an error; generation failures degrade to a canned line.
func (e *Engine) Speak(ctx context.Context, room *game.Room) SpeechResult {
	e.mu.Lock()
	cached := e.cache
	if cached != nil && (cached.round != room.CurrentRound || cached.phase != room.Phase) {
		cached = nil
		e.cache = nil
	}
	if cached == nil {
		e.state = SeatThinking
		cached = e.beginGeneration(room)
	}
	e.cache = nil
	e.mu.Unlock()

	select {
	case <-cached.done:
	case <-ctx.Done():
		cached = &pendingSpeech{updates: cached.updates, err: ErrGenerationTimeout}
	}

	e.mu.Lock()
	e.state = SeatIdle
	e.mu.Unlock()

	top := topSuspect(cached.updates)
	if cached.err != nil || !mentionsSeat(cached.text, top) {
		pos, sus := 0, 0.0
		if top != nil {
			pos, sus = top.Position, top.Suspicion
		}
		return SpeechResult{
			Text:     fallbackSpeech(e.persona, pos, sus),
			Updates:  cached.updates,
			Fallback: true,
		}
	}
	return SpeechResult{Text: cached.text, Updates: cached.updates}
}

// Prefetch starts speculative generation for an upcoming speaking slot. It is
// a no-op when something usable is already in flight.
func (e *Engine) Prefetch(room *game.Room) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cache != nil && e.cache.round == room.CurrentRound && e.cache.phase == room.Phase {
		return
	}
	e.state = SeatSpeculating
	e.cache = e.beginGeneration(room)
}

// Invalidate discards any speculative result. Called on phase changes that
// make prefetched speech stale.
func (e *Engine) Invalidate() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cache = nil
	if e.state == SeatSpeculating {
		e.state = SeatIdle
	}
}

// beginGeneration runs the suspicion pass synchronously (it needs rnd, held
// under mu) and ships only the network call to a goroutine. Callers hold mu.
func (e *Engine) beginGeneration(room *game.Room) *pendingSpeech {
	me := room.Player(e.playerID)
	if me == nil {
		p := &pendingSpeech{round: room.CurrentRound, phase: room.Phase, done: make(chan struct{})}
		p.err = ErrEmptyCompletion
		close(p.done)
		return p
	}
	updates := ComputeUpdates(me, room, e.persona, e.mem, e.rnd)
	p := &pendingSpeech{
		round:   room.CurrentRound,
		phase:   room.Phase,
		updates: updates,
		done:    make(chan struct{}),
	}

	if e.gen == nil {
		p.err = ErrEmptyCompletion
		close(p.done)
		return p
	}

	sys, user := e.buildPrompts(room, me, updates)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), e.timeout)
		defer cancel()
		p.text, p.err = e.gen.Generate(ctx, sys, user)
		close(p.done)
	}()
	return p
}

func (e *Engine) buildPrompts(room *game.Room, me *game.Player, updates []Update) (string, string) {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are seat %d (%s) at a werewolf table. Persona: %s. Strategy: %s.\n",
		me.Position, me.Name, e.persona.Style, e.persona.Strategy)
	fmt.Fprintf(&sys, "Your secret role is %s. Never state your role outright unless claiming it wins you the day.\n", me.Role)
	sys.WriteString("Speak in first person, at most three sentences, plain table talk. ")
	if top := topSuspect(updates); top != nil {
		fmt.Fprintf(&sys, "You MUST mention seat %d by number and say how you read them.", top.Position)
	}

	var user strings.Builder
	fmt.Fprintf(&user, "Round %d, phase %s. Living seats:", room.CurrentRound, room.Phase)
	for _, p := range room.Alive() {
		fmt.Fprintf(&user, " %d", p.Position)
	}
	user.WriteString("\nRecent table talk:\n")
	for _, line := range recentTableTalk(room, 10) {
		user.WriteString(line)
		user.WriteByte('\n')
	}
	if kn := e.mem.Knowledge(); len(kn) > 0 {
		user.WriteString("Your private knowledge:\n")
		for _, k := range kn {
			fmt.Fprintf(&user, "- round %d: %s\n", k.Round, k.Text)
		}
	}
	user.WriteString("Your current reads (most suspicious first):\n")
	for i, u := range updates {
		if i >= 4 {
			break
		}
		fmt.Fprintf(&user, "- seat %d: %.0f/100 (%s)\n", u.Position, u.Suspicion, u.Reason.Logic)
	}
	return sys.String(), user.String()
}

// recentTableTalk flattens the last n public speeches across all players in
// chronological order.
func recentTableTalk(room *game.Room, n int) []string {
	type stamped struct {
		at   time.Time
		line string
	}
	var all []stamped
	for _, p := range room.Players {
		for _, sp := range p.SpeechHistory {
			all = append(all, stamped{sp.At, fmt.Sprintf("seat %d: %s", sp.Position, sp.Content)})
		}
	}
	if len(all) == 0 {
		return []string{"(nobody has spoken yet)"}
	}
	for i := 1; i < len(all); i++ {
		for j := i; j > 0 && all[j].at.Before(all[j-1].at); j-- {
			all[j], all[j-1] = all[j-1], all[j]
		}
	}
	if len(all) > n {
		all = all[len(all)-n:]
	}
	out := make([]string, len(all))
	for i, s := range all {
		out[i] = s.line
	}
	return out
}

func topSuspect(updates []Update) *Update {
	if len(updates) == 0 {
		return nil
	}
	return &updates[0]
}

// mentionsSeat enforces the hard speech constraint: the utterance must point
// at the top suspect by seat number.
func mentionsSeat(text string, top *Update) bool {
	if top == nil {
		return text != ""
	}
	lower := strings.ToLower(text)
	return strings.Contains(lower, fmt.Sprintf("seat %d", top.Position)) ||
		strings.Contains(lower, fmt.Sprintf("#%d", top.Position))
}
