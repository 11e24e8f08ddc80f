package room

import (
	"context"
	"math/rand"
	"time"

	"github.com/rs/zerolog/log"

	"midnight-village/internal/ai"
	"midnight-village/internal/game"
)

var aiNames = []string{
	"Aria", "Bram", "Cleo", "Dorian", "Eda", "Felix",
	"Greta", "Hugo", "Iris", "Jasper", "Kira", "Lars",
}

func (m *Machine) seatAI() *game.Player {
	pos := m.freePosition()
	p := &game.Player{
		ID:         game.NewID("p"),
		Name:       aiNames[(pos-1)%len(aiNames)],
		Position:   pos,
		Controller: game.ControllerAI,
		Alive:      true,
		Online:     true,
	}
	m.room.Players = append(m.room.Players, p)
	m.b.RoomEvent(m.id, EventPlayerJoined, map[string]any{
		"player_id": p.ID, "name": p.Name, "position": p.Position, "controller": "ai",
	})
	return p
}

func (m *Machine) startGame() error {
	for len(m.room.Players) < m.room.Seats {
		m.seatAI()
	}
	if err := game.AssignRoles(m.room.Players, game.Presets[m.room.Seats], m.rnd); err != nil {
		return err
	}
	m.startedAt = time.Now()

	for _, p := range m.room.Players {
		if p.IsAI() {
			m.engines[p.ID] = ai.NewEngine(
				p.ID, ai.PersonaFor(p.Position), m.gen, m.aiTimeout,
				rand.New(rand.NewSource(m.rnd.Int63())),
			)
		}
	}
	for _, p := range m.room.Players {
		if p.IsAI() {
			continue
		}
		payload := map[string]any{"role": p.Role, "position": p.Position}
		if p.Role == game.RoleWerewolf {
			teammates := []int{}
			for _, w := range m.room.AliveByRole(game.RoleWerewolf) {
				if w.ID != p.ID {
					teammates = append(teammates, w.Position)
				}
			}
			payload["teammates"] = teammates
		}
		m.b.PlayerEvent(m.id, p.ID, EventRoleAssigned, payload)
	}

	m.room.Log("game_started", map[string]any{"seats": m.room.Seats})
	log.Info().Str("room_id", m.id).Int("seats", m.room.Seats).Msg("game_started")
	m.enterNight(true)
	return nil
}

func (m *Machine) setPhase(p game.Phase) {
	m.room.Phase = p
	m.b.RoomEvent(m.id, EventPhaseChanged, map[string]any{
		"phase": p, "round": m.room.CurrentRound,
	})
}

func (m *Machine) invalidateSpeechCaches() {
	for _, e := range m.engines {
		e.Invalidate()
	}
}

// --- Night ---

func (m *Machine) enterNight(first bool) {
	if !first {
		m.room.CurrentRound++
	}
	m.discussedDay = false
	m.votedDay = false
	m.room.ResetNightActions()
	m.invalidateSpeechCaches()
	m.setPhase(game.PhaseNight)
	m.room.Log("night_falls", nil)
	m.nightStep = -1
	m.advanceNightStep()
}

func (m *Machine) advanceNightStep() {
	m.cancelTimer()
	m.nightStep++
	if m.nightStep >= len(nightOrder) {
		m.resolveNight()
		return
	}
	m.beginNightStep()
}

func (m *Machine) beginNightStep() {
	role := nightOrder[m.nightStep]
	actors := m.room.AliveByRole(role)
	if len(actors) == 0 {
		m.endNightStep()
		return
	}

	snap := m.room.Snapshot()
	humansWaiting := false
	for _, p := range actors {
		if p.IsAI() {
			if act, ok := m.engines[p.ID].NightAction(snap); ok {
				m.room.PutNightAction(act)
				if act.Kind == game.ActionCheck {
					m.deliverCheck(p, act.TargetID)
				}
			}
			p.HasActedNight = true
			continue
		}
		humansWaiting = true
		payload := map[string]any{
			"role":             role,
			"deadline_seconds": m.cfg.NightStepSeconds,
		}
		if role == game.RoleWitch {
			payload["kill_target"] = m.room.NightKillTarget()
			payload["potions"] = m.room.WitchPotions
		}
		m.b.PlayerEvent(m.id, p.ID, EventNightPrompt, payload)
	}

	if !humansWaiting {
		m.endNightStep()
		return
	}
	m.schedule(m.seconds(m.cfg.NightStepSeconds), m.endNightStep)
}

func (m *Machine) applyNightAction(playerID string, kind game.ActionKind, targetID string) error {
	p := m.room.Player(playerID)
	if p == nil || !p.Alive {
		return game.ErrPlayerNotFound
	}
	if m.nightStep < 0 || m.nightStep >= len(nightOrder) || p.Role != nightOrder[m.nightStep] {
		return game.ErrInvalidPhase
	}

	// An empty target passes the turn (witch holding her potions, guard
	// standing down).
	if targetID == "" {
		p.HasActedNight = true
		m.maybeEndNightStep()
		return nil
	}

	target := m.room.Player(targetID)
	if target == nil || !target.Alive {
		return game.ErrInvalidTarget
	}
	if game.NightActionRole[kind] != p.Role {
		return game.ErrInvalidTarget
	}

	switch kind {
	case game.ActionCheck:
		if targetID == playerID {
			return game.ErrInvalidTarget
		}
	case game.ActionSave:
		if !m.room.WitchPotions.Antidote {
			return game.ErrPotionUsed
		}
		if targetID != m.room.NightKillTarget() {
			return game.ErrInvalidTarget
		}
	case game.ActionPoison:
		if !m.room.WitchPotions.Poison {
			return game.ErrPotionUsed
		}
		if targetID == playerID {
			return game.ErrInvalidTarget
		}
	}

	m.room.PutNightAction(game.NightAction{ActorID: playerID, Kind: kind, TargetID: targetID})
	p.HasActedNight = true
	if p.Role == game.RoleSeer {
		m.deliverCheck(p, targetID)
	}
	m.maybeEndNightStep()
	return nil
}

func (m *Machine) maybeEndNightStep() {
	for _, p := range m.room.AliveByRole(nightOrder[m.nightStep]) {
		if !p.HasActedNight {
			return
		}
	}
	m.cancelTimer()
	m.endNightStep()
}

// deliverCheck resolves a seer check the moment it lands: AI seers commit it
// to memory, human seers get a private event.
func (m *Machine) deliverCheck(seer *game.Player, targetID string) {
	target := m.room.Player(targetID)
	if target == nil {
		return
	}
	isWolf := target.Role == game.RoleWerewolf
	if seer.IsAI() {
		m.engines[seer.ID].LearnCheck(m.room.CurrentRound, target, isWolf)
		return
	}
	m.b.PlayerEvent(m.id, seer.ID, EventCheckResult, map[string]any{
		"target_id":   target.ID,
		"position":    target.Position,
		"is_werewolf": isWolf,
	})
}

func (m *Machine) endNightStep() {
	switch nightOrder[m.nightStep] {
	case game.RoleWerewolf:
		target := game.ResolveWerewolfVote(m.room, m.cfg.FirstNightProtectHumans, m.rnd)
		// Collapse even on a dissolved kill: the raw per-wolf submissions
		// must never leak into resolution.
		m.room.CollapseWerewolfKill(target)
		if target != "" {
			for _, w := range m.room.AliveByRole(game.RoleWerewolf) {
				if !w.IsAI() {
					m.b.PlayerEvent(m.id, w.ID, EventWolfResult, map[string]any{"target_id": target})
				}
			}
		}
	case game.RoleSeer:
		m.autoSeerCheck()
	case game.RoleWitch:
		m.autoWitchSave()
	}
	m.advanceNightStep()
}

// autoSeerCheck covers a round-1 human seer who never acted: an idle first
// check wastes the role's whole night, so the room performs a random one.
func (m *Machine) autoSeerCheck() {
	if !m.cfg.FirstNightAutoActs || m.room.CurrentRound != 1 {
		return
	}
	for _, seer := range m.room.AliveByRole(game.RoleSeer) {
		if seer.IsAI() || m.hasAction(seer.ID) {
			continue
		}
		var pool []*game.Player
		for _, p := range m.room.Alive() {
			if p.ID != seer.ID {
				pool = append(pool, p)
			}
		}
		if len(pool) == 0 {
			return
		}
		target := pool[m.rnd.Intn(len(pool))]
		m.room.PutNightAction(game.NightAction{ActorID: seer.ID, Kind: game.ActionCheck, TargetID: target.ID})
		m.deliverCheck(seer, target.ID)
	}
}

func (m *Machine) autoWitchSave() {
	if !m.cfg.FirstNightAutoActs || m.room.CurrentRound != 1 {
		return
	}
	victimID := m.room.NightKillTarget()
	if victimID == "" || !m.room.WitchPotions.Antidote {
		return
	}
	victim := m.room.Player(victimID)
	if victim == nil {
		return
	}
	for _, witch := range m.room.AliveByRole(game.RoleWitch) {
		if witch.IsAI() || m.hasAction(witch.ID) {
			continue
		}
		chance := ai.Round1SaveChance(victim.Role, !victim.IsAI())
		if m.rnd.Float64() >= chance {
			continue
		}
		m.room.PutNightAction(game.NightAction{ActorID: witch.ID, Kind: game.ActionSave, TargetID: victimID})
		m.b.PlayerEvent(m.id, witch.ID, EventWitchContext, map[string]any{
			"auto_save": true, "target_id": victimID,
		})
	}
}

func (m *Machine) hasAction(actorID string) bool {
	for _, a := range m.room.NightActions {
		if a.ActorID == actorID {
			return true
		}
	}
	return false
}

func (m *Machine) resolveNight() {
	res := game.ResolveNight(m.room)
	res.Apply(m.room)

	for _, witch := range m.room.AliveByRole(game.RoleWitch) {
		if !witch.IsAI() && (res.AntidoteUsed || res.PoisonUsed) {
			m.b.PlayerEvent(m.id, witch.ID, EventWitchContext, map[string]any{
				"antidote_used": res.AntidoteUsed, "poison_used": res.PoisonUsed,
			})
		}
	}

	deaths := []map[string]any{}
	for _, d := range res.Deaths {
		p := m.room.Player(d.PlayerID)
		m.forgetAcrossEngines(d.PlayerID)
		deaths = append(deaths, map[string]any{
			"player_id": d.PlayerID, "position": p.Position, "name": p.Name,
		})
		if p.Role == game.RoleHunter && d.Reason == game.DeathKilled && !p.HasHunterShot {
			m.pendingHunter = p.ID
		}
	}
	if m.room.CurrentRound == 1 && len(res.Deaths) > 0 {
		m.room.PendingLastWordsID = res.Deaths[0].PlayerID
	}

	m.setPhase(game.PhaseDayMorningResult)
	// Public cause of death stays hidden; the table only learns who is gone.
	m.b.RoomEvent(m.id, EventMorningResult, map[string]any{
		"round": m.room.CurrentRound, "deaths": deaths, "peaceful": len(deaths) == 0,
	})
	m.schedule(m.seconds(m.cfg.MorningSeconds), m.nextDayStage)
}

func (m *Machine) forgetAcrossEngines(playerID string) {
	for id, e := range m.engines {
		if id != playerID {
			e.Forget(playerID)
		}
	}
}

// nextDayStage is the single funnel between day phases. It consults pending
// interludes in priority order, so every path back here stays consistent.
func (m *Machine) nextDayStage() {
	m.cancelTimer()
	if w := m.room.CheckWinner(); w != game.WinnerNone {
		m.gameOver(w)
		return
	}
	if m.pendingHunter != "" {
		m.enterHunterShoot()
		return
	}
	if s := m.room.Player(m.room.SheriffID); s != nil && !s.Alive {
		m.enterBadgeTransfer(s)
		return
	}
	if m.room.PendingLastWordsID != "" {
		m.enterLastWords()
		return
	}
	if m.room.CurrentRound == 1 && m.cfg.SheriffEnabled && !m.room.SheriffElectionDone {
		m.enterSheriffSpeech()
		return
	}
	if !m.discussedDay {
		m.enterDayDiscuss()
		return
	}
	if !m.votedDay {
		m.enterDayVote()
		return
	}
	m.enterNight(false)
}

// --- Hunter ---

func (m *Machine) enterHunterShoot() {
	hunter := m.room.Player(m.pendingHunter)
	if hunter == nil {
		m.pendingHunter = ""
		m.nextDayStage()
		return
	}
	m.setPhase(game.PhaseHunterShoot)

	if hunter.IsAI() {
		target, ok := m.engines[hunter.ID].HunterShot(m.room.Snapshot())
		if ok {
			m.applyHunterShot(hunter.ID, target)
			return
		}
		m.pendingHunter = ""
		m.nextDayStage()
		return
	}
	m.b.PlayerEvent(m.id, hunter.ID, EventHunterPrompt, map[string]any{
		"deadline_seconds": m.cfg.HunterSeconds,
	})
	m.schedule(m.seconds(m.cfg.HunterSeconds), func() {
		m.pendingHunter = ""
		hunter.HasHunterShot = true
		m.nextDayStage()
	})
}

func (m *Machine) applyHunterShot(hunterID, targetID string) {
	m.cancelTimer()
	hunter := m.room.Player(hunterID)
	victim := m.room.Player(targetID)
	victim.Kill(game.DeathKilled)
	hunter.HasHunterShot = true
	m.forgetAcrossEngines(victim.ID)
	m.pendingHunter = ""
	m.room.Log("hunter_shot", map[string]any{"hunter": hunter.Position, "victim": victim.Position})
	m.b.RoomEvent(m.id, EventHunterShot, map[string]any{
		"hunter_position": hunter.Position,
		"victim_id":       victim.ID,
		"victim_position": victim.Position,
	})
	m.nextDayStage()
}

// --- Badge ---

// enterBadgeTransfer runs when the sheriff dies with the badge: it either
// moves to a living seat or is torn.
func (m *Machine) enterBadgeTransfer(sheriff *game.Player) {
	m.setPhase(game.PhaseBadgeTransfer)
	m.pendingBadge = sheriff.ID

	if sheriff.IsAI() || !sheriff.Online {
		heir := ""
		if e := m.engines[sheriff.ID]; e != nil {
			if id, ok := e.BadgeHeir(m.room.Snapshot()); ok {
				heir = id
			}
		}
		m.applyBadgeTransfer(heir)
		return
	}
	m.b.PlayerEvent(m.id, sheriff.ID, EventBadgePrompt, map[string]any{
		"deadline_seconds": m.cfg.HunterSeconds,
	})
	m.schedule(m.seconds(m.cfg.HunterSeconds), func() { m.applyBadgeTransfer("") })
}

func (m *Machine) applyBadgeTransfer(heirID string) {
	m.cancelTimer()
	m.pendingBadge = ""
	m.room.SheriffID = heirID
	if heirID == "" {
		m.room.Log("badge_torn", nil)
		m.b.RoomEvent(m.id, EventBadgeMoved, map[string]any{"torn": true})
	} else {
		heir := m.room.Player(heirID)
		m.room.Log("badge_transfer", map[string]any{"to": heir.Position})
		m.b.RoomEvent(m.id, EventBadgeMoved, map[string]any{
			"sheriff_id": heir.ID, "position": heir.Position,
		})
	}
	m.nextDayStage()
}

// --- Last words ---

func (m *Machine) enterLastWords() {
	p := m.room.Player(m.room.PendingLastWordsID)
	if p == nil {
		m.room.PendingLastWordsID = ""
		m.nextDayStage()
		return
	}
	m.setPhase(game.PhaseDayDeathLastWords)
	m.room.SpeakerID = p.ID
	m.b.RoomEvent(m.id, EventSpeakerChange, map[string]any{
		"player_id": p.ID, "position": p.Position, "last_words": true,
	})

	if p.IsAI() {
		m.recordSpeech(p, m.engines[p.ID].Farewell(m.room.Snapshot()))
		m.finishLastWords()
		return
	}
	m.room.SpeakerDeadline = time.Now().Add(m.seconds(m.cfg.LastWordsSeconds))
	m.schedule(m.seconds(m.cfg.LastWordsSeconds), m.finishLastWords)
}

func (m *Machine) finishLastWords() {
	m.cancelTimer()
	m.room.PendingLastWordsID = ""
	m.room.ClearSpeaker()
	m.nextDayStage()
}

// --- Sheriff election ---

func (m *Machine) enterSheriffSpeech() {
	m.setPhase(game.PhaseSheriffElectionSpeech)
	m.room.SheriffCandidates = nil

	for _, p := range m.room.Alive() {
		if p.IsAI() && m.rnd.Float64() < 0.3 {
			m.room.SheriffCandidates = append(m.room.SheriffCandidates, p.ID)
			m.b.RoomEvent(m.id, EventSheriffPhase, map[string]any{
				"event": "candidate", "player_id": p.ID, "position": p.Position,
			})
		}
	}
	// Nomination window first; candidate speeches follow on the speaker
	// cursor once it closes.
	m.schedule(m.seconds(m.cfg.SheriffSpeechSeconds), m.beginSheriffSpeeches)
}

// beginSheriffSpeeches hands the floor to each registered candidate in
// registration order. The cursor falling off the end opens the badge vote.
func (m *Machine) beginSheriffSpeeches() {
	m.cancelTimer()
	if len(m.room.SheriffCandidates) == 0 {
		m.enterSheriffVote()
		return
	}
	m.room.SpeakerOrder = append([]string(nil), m.room.SheriffCandidates...)
	m.room.SpeakerIndex = 0
	m.beginSpeakerTurn(0)
}

func (m *Machine) enterSheriffVote() {
	m.cancelTimer()
	if len(m.room.SheriffCandidates) == 0 {
		m.room.SheriffElectionDone = true
		m.b.RoomEvent(m.id, EventSheriffPhase, map[string]any{"event": "skipped"})
		m.nextDayStage()
		return
	}
	m.setPhase(game.PhaseSheriffElectionVote)
	m.room.ResetSheriffVotes()

	snap := m.room.Snapshot()
	for _, p := range m.room.Alive() {
		if !p.IsAI() {
			continue
		}
		target := m.engines[p.ID].SheriffVote(snap)
		if target != "" {
			m.room.PutVote(&m.room.SheriffVotes, game.Vote{VoterID: p.ID, TargetID: target})
		}
		p.HasVoted = true
		m.broadcastVoteCast(p, target, true)
	}
	if m.allHumansVoted() {
		m.resolveSheriffVote()
		return
	}
	m.schedule(m.seconds(m.cfg.SheriffVoteSeconds), m.resolveSheriffVote)
}

func (m *Machine) resolveSheriffVote() {
	m.cancelTimer()
	winner, count := game.ResolveSheriffElection(m.room.SheriffVotes, m.rnd)
	m.room.SheriffElectionDone = true
	if winner != "" {
		m.room.SheriffID = winner
		w := m.room.Player(winner)
		m.room.Log("sheriff_elected", map[string]any{"position": w.Position, "votes": count})
		m.b.RoomEvent(m.id, EventSheriffBadge, map[string]any{
			"player_id": winner, "position": w.Position, "votes": count,
		})
	}
	m.nextDayStage()
}

// --- Day discussion ---

func (m *Machine) enterDayDiscuss() {
	m.discussedDay = true
	m.setPhase(game.PhaseDayDiscuss)
	m.room.SpeakerOrder = game.SpeakerOrder(m.room)
	m.room.SpeakerIndex = 0
	m.beginSpeakerTurn(0)
}

func (m *Machine) beginSpeakerTurn(from int) {
	idx := game.NextSpeakerIndex(m.room, from)
	m.room.SpeakerIndex = idx
	if idx >= len(m.room.SpeakerOrder) {
		m.room.ClearSpeaker()
		if m.room.Phase == game.PhaseSheriffElectionSpeech {
			m.enterSheriffVote()
			return
		}
		m.nextDayStage()
		return
	}

	p := m.room.Player(m.room.SpeakerOrder[idx])
	m.room.SpeakerID = p.ID

	if p.IsAI() {
		// AI turns are completion-driven: no deadline, the result arrives
		// whenever generation (or its internal timeout) finishes.
		m.room.SpeakerDeadline = time.Time{}
		m.b.RoomEvent(m.id, EventSpeakerChange, map[string]any{
			"player_id": p.ID, "position": p.Position, "ai": true,
		})
		m.b.RoomEvent(m.id, EventSeatState, map[string]any{"player_id": p.ID, "state": ai.SeatThinking})
		m.prefetchUpcoming(idx)

		snap := m.room.Snapshot()
		eng := m.engines[p.ID]
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), m.aiTimeout+5*time.Second)
			defer cancel()
			res := eng.Speak(ctx, snap)
			m.post(func() { m.finishAISpeech(p.ID, res) })
		}()
		return
	}

	m.room.SpeakerDeadline = time.Now().Add(m.seconds(m.cfg.HumanSpeechSeconds))
	m.b.RoomEvent(m.id, EventSpeakerChange, map[string]any{
		"player_id": p.ID, "position": p.Position,
		"deadline_seconds": m.cfg.HumanSpeechSeconds,
	})
	m.schedule(m.seconds(m.cfg.HumanSpeechSeconds), func() {
		m.room.Log("speech_timeout", map[string]any{"position": p.Position})
		m.advanceSpeaker()
	})
}

// prefetchUpcoming warms speech generation for the next AI seats in the
// order. Humans in between are skipped without counting against the limit.
func (m *Machine) prefetchUpcoming(idx int) {
	if m.cfg.SpeechPrefetch <= 0 {
		return
	}
	snap := m.room.Snapshot()
	warmed := 0
	for i := idx + 1; i < len(m.room.SpeakerOrder) && warmed < m.cfg.SpeechPrefetch; i++ {
		p := m.room.Player(m.room.SpeakerOrder[i])
		if p == nil || !p.Alive || !p.IsAI() {
			continue
		}
		m.engines[p.ID].Prefetch(snap)
		m.b.RoomEvent(m.id, EventSeatState, map[string]any{"player_id": p.ID, "state": ai.SeatSpeculating})
		warmed++
	}
}

func (m *Machine) finishAISpeech(playerID string, res ai.SpeechResult) {
	if m.room.Paused {
		m.onResume = append(m.onResume, func() { m.finishAISpeech(playerID, res) })
		return
	}
	speaking := m.room.Phase == game.PhaseDayDiscuss || m.room.Phase == game.PhaseSheriffElectionSpeech
	if !speaking || m.room.SpeakerID != playerID {
		return
	}
	p := m.room.Player(playerID)
	if p == nil || !p.Alive {
		m.advanceSpeaker()
		return
	}
	m.b.RoomEvent(m.id, EventSeatState, map[string]any{"player_id": p.ID, "state": ai.SeatSpeaking})
	m.recordSpeech(p, res.Text)
	m.b.RoomEvent(m.id, EventSeatState, map[string]any{"player_id": p.ID, "state": ai.SeatIdle})
	if len(res.Updates) > 0 {
		m.b.RoomEvent(m.id, EventSuspicion, suspicionPayload(p, res.Updates))
	}
	m.advanceSpeaker()
}

func suspicionPayload(speaker *game.Player, updates []ai.Update) map[string]any {
	top := []map[string]any{}
	for i, u := range updates {
		if i >= 3 {
			break
		}
		top = append(top, map[string]any{
			"position":  u.Position,
			"suspicion": u.Suspicion,
			"logic":     u.Reason.Logic,
		})
	}
	return map[string]any{"speaker_position": speaker.Position, "reads": top}
}

func (m *Machine) advanceSpeaker() {
	m.cancelTimer()
	m.beginSpeakerTurn(m.room.SpeakerIndex + 1)
}

func (m *Machine) recordSpeech(p *game.Player, content string) {
	m.room.RecordSpeech(p, content)
	m.b.RoomEvent(m.id, EventSpeech, map[string]any{
		"player_id": p.ID,
		"position":  p.Position,
		"name":      p.Name,
		"content":   content,
		"phase":     m.room.Phase,
	})
}

// --- Day vote ---

func (m *Machine) enterDayVote() {
	m.votedDay = true
	m.room.ClearSpeaker()
	m.invalidateSpeechCaches()
	m.setPhase(game.PhaseDayVote)
	m.room.ResetVotes()

	snap := m.room.Snapshot()
	for _, p := range m.room.Alive() {
		if !p.IsAI() {
			m.b.PlayerEvent(m.id, p.ID, EventVotePrompt, map[string]any{
				"deadline_seconds": m.cfg.VoteSeconds,
			})
			continue
		}
		target := m.engines[p.ID].DecideVote(snap)
		if target != "" {
			m.room.PutVote(&m.room.Votes, game.Vote{VoterID: p.ID, TargetID: target})
		}
		p.HasVoted = true
		m.broadcastVoteCast(p, target, false)
	}
	if m.allHumansVoted() {
		m.resolveDayVote()
		return
	}
	m.schedule(m.seconds(m.cfg.VoteSeconds), m.resolveDayVote)
}

func (m *Machine) resolveDayVote() {
	m.cancelTimer()
	out := game.TallyVotes(m.room.Votes)

	counts := map[string]int{}
	for id, n := range out.Counts {
		if p := m.room.Player(id); p != nil {
			counts[p.Name] = n
		}
	}

	if out.Eliminated == "" {
		m.room.Log("vote_tied", map[string]any{"tied": len(out.Tied)})
		m.b.RoomEvent(m.id, EventVoteResult, map[string]any{
			"tied": true, "counts": counts,
		})
		m.nextDayStage()
		return
	}

	p := m.room.Player(out.Eliminated)
	p.Kill(game.DeathVoted)
	m.forgetAcrossEngines(p.ID)
	m.room.Log("vote_resolved", map[string]any{"eliminated": p.Position, "votes": out.MaxVotes})
	m.b.RoomEvent(m.id, EventVoteResult, map[string]any{
		"eliminated_id":       p.ID,
		"eliminated_position": p.Position,
		"votes":               out.MaxVotes,
		"counts":              counts,
	})
	m.room.PendingLastWordsID = p.ID
	if p.Role == game.RoleHunter && !p.HasHunterShot {
		m.pendingHunter = p.ID
	}
	m.nextDayStage()
}

// --- Game over ---

func (m *Machine) gameOver(w game.Winner) {
	m.cancelTimer()
	m.invalidateSpeechCaches()
	m.room.Winner = w
	m.setPhase(game.PhaseGameOver)

	roles := map[string]any{}
	for _, p := range m.room.Players {
		roles[p.Name] = map[string]any{"position": p.Position, "role": p.Role, "alive": p.Alive}
	}
	m.room.Log("game_over", map[string]any{"winner": w})
	log.Info().Str("room_id", m.id).Str("winner", string(w)).Int("rounds", m.room.CurrentRound).Msg("game_over")
	m.b.RoomEvent(m.id, EventGameOver, map[string]any{"winner": w, "roles": roles})

	if m.rec == nil {
		return
	}
	rec := m.buildRecord(w)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := m.rec.RecordGame(ctx, rec); err != nil {
			log.Error().Err(err).Str("room_id", rec.RoomID).Msg("record game failed")
		}
	}()
}

func (m *Machine) buildRecord(w game.Winner) GameRecord {
	rec := GameRecord{
		RoomID:    m.room.ID,
		RoomName:  m.room.Name,
		Winner:    string(w),
		Rounds:    m.room.CurrentRound,
		StartedAt: m.startedAt,
		EndedAt:   time.Now(),
	}
	for _, p := range m.room.Players {
		rec.Players = append(rec.Players, GamePlayerRecord{
			PlayerID:    p.ID,
			Name:        p.Name,
			Position:    p.Position,
			Role:        string(p.Role),
			Controller:  string(p.Controller),
			Survived:    p.Alive,
			DeathReason: string(p.DeathReason),
		})
	}
	return rec
}

// GameLog returns a copy of the public event log for the replay endpoint.
func (m *Machine) GameLog() ([]game.LogEntry, error) {
	var out []game.LogEntry
	err := m.do(func() error {
		out = append(out, m.room.GameLog...)
		return nil
	})
	return out, err
}
