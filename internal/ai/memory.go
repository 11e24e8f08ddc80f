package ai

import (
	"fmt"

	"midnight-village/internal/game"
)

const (
	trendWindow  = 8
	grudgeWindow = 8
)

// KnowledgeEntry is one private fact an agent learned at night (a check
// result, a potion it used, a kill it took part in). Never broadcast.
type KnowledgeEntry struct {
	Round  int        `json:"round"`
	Phase  game.Phase `json:"phase"`
	Kind   string     `json:"kind"`
	Target string     `json:"target,omitempty"`
	Text   string     `json:"text"`
}

// Memory is one agent's private state across the whole game. It is only ever
// touched from that agent's Engine, which serializes access itself.
type Memory struct {
	suspicion map[string]float64
	confirmed map[string]float64
	reasons   map[string]string
	trend     map[string][]float64
	grudges   map[string][]int
	knowledge []KnowledgeEntry
	hints     []string
}

func NewMemory() *Memory {
	return &Memory{
		suspicion: map[string]float64{},
		confirmed: map[string]float64{},
		reasons:   map[string]string{},
		trend:     map[string][]float64{},
		grudges:   map[string][]int{},
	}
}

// SuspicionOf returns the current read on a player, defaulting to neutral.
func (m *Memory) SuspicionOf(playerID string) float64 {
	if v, ok := m.suspicion[playerID]; ok {
		return v
	}
	return suspicionNeutral
}

func (m *Memory) SetSuspicion(playerID string, score float64, reason string) {
	m.suspicion[playerID] = score
	m.reasons[playerID] = reason
	t := append(m.trend[playerID], score)
	if len(t) > trendWindow {
		t = t[len(t)-trendWindow:]
	}
	m.trend[playerID] = t
}

func (m *Memory) ReasonFor(playerID string) string { return m.reasons[playerID] }

// Trend returns the recent score history, newest last.
func (m *Memory) Trend(playerID string) []float64 {
	return append([]float64(nil), m.trend[playerID]...)
}

func (m *Memory) RecordGrudge(playerID string, round int) {
	g := append(m.grudges[playerID], round)
	if g = dedupeTail(g); len(g) > grudgeWindow {
		g = g[len(g)-grudgeWindow:]
	}
	m.grudges[playerID] = g
}

func (m *Memory) HoldsGrudge(playerID string) bool { return len(m.grudges[playerID]) > 0 }

func dedupeTail(rounds []int) []int {
	if n := len(rounds); n >= 2 && rounds[n-1] == rounds[n-2] {
		return rounds[:n-1]
	}
	return rounds
}

// Learn records a private night fact for later prompt building.
func (m *Memory) Learn(round int, phase game.Phase, kind, target, text string) {
	m.knowledge = append(m.knowledge, KnowledgeEntry{
		Round: round, Phase: phase, Kind: kind, Target: target, Text: text,
	})
}

func (m *Memory) Knowledge() []KnowledgeEntry {
	return append([]KnowledgeEntry(nil), m.knowledge...)
}

// LearnCheck is the seer-specific shortcut; it also pins the suspicion score
// to a hard fact so later speech analysis cannot talk the agent out of it.
func (m *Memory) LearnCheck(round int, target *game.Player, isWerewolf bool) {
	verdict := "good"
	score := 5.0
	if isWerewolf {
		verdict = "werewolf"
		score = 100
	}
	m.Learn(round, game.PhaseNight, "seer_check", target.ID,
		fmt.Sprintf("checked seat %d: %s", target.Position, verdict))
	m.confirmed[target.ID] = score
	m.SetSuspicion(target.ID, score, "confirmed by my own check")
}

// Confirmed reports a score pinned by a hard fact. Speech analysis never
// moves a confirmed read.
func (m *Memory) Confirmed(playerID string) (float64, bool) {
	v, ok := m.confirmed[playerID]
	return v, ok
}

func (m *Memory) AddHint(hint string) { m.hints = append(m.hints, hint) }

func (m *Memory) Hints() []string { return append([]string(nil), m.hints...) }

// Forget drops a dead player's bookkeeping so ranking passes stay clean.
func (m *Memory) Forget(playerID string) {
	delete(m.suspicion, playerID)
	delete(m.confirmed, playerID)
	delete(m.reasons, playerID)
	delete(m.trend, playerID)
	delete(m.grudges, playerID)
}
