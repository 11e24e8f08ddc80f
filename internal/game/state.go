package game

import (
	"crypto/rand"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"
)

type Phase string

const (
	PhaseWaiting               Phase = "WAITING"
	PhaseNight                 Phase = "NIGHT"
	PhaseDayMorningResult      Phase = "DAY_MORNING_RESULT"
	PhaseDayDiscuss            Phase = "DAY_DISCUSS"
	PhaseDayVote               Phase = "DAY_VOTE"
	PhaseDayDeathLastWords     Phase = "DAY_DEATH_LAST_WORDS"
	PhaseSheriffElectionSpeech Phase = "SHERIFF_ELECTION_DISCUSS"
	PhaseSheriffElectionVote   Phase = "SHERIFF_ELECTION_VOTE"
	PhaseHunterShoot           Phase = "HUNTER_SHOOT"
	PhaseBadgeTransfer         Phase = "BADGE_TRANSFER"
	PhaseGameOver              Phase = "GAME_OVER"
)

type Controller string

const (
	ControllerHuman Controller = "human"
	ControllerAI    Controller = "ai"
)

type DeathReason string

const (
	DeathKilled   DeathReason = "killed"
	DeathPoisoned DeathReason = "poisoned"
	DeathVoted    DeathReason = "voted"
)

type Winner string

const (
	WinnerNone     Winner = ""
	WinnerWerewolf Winner = "werewolf"
	WinnerVillager Winner = "villager"
)

// Speech is one utterance kept in a player's history for AI reasoning.
type Speech struct {
	Position int       `json:"position"`
	Round    int       `json:"round"`
	Phase    Phase     `json:"phase"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

type Player struct {
	ID         string
	Name       string
	Position   int
	Controller Controller
	Role       Role

	Alive       bool
	DeathReason DeathReason

	HasActedNight      bool
	HasVoted           bool
	HasSpokenThisRound bool
	HasHunterShot      bool
	Online             bool

	SpeechHistory []Speech
}

func (p *Player) IsAI() bool { return p.Controller == ControllerAI }

// Kill marks the player dead with a reason. Death is irreversible; a second
// call only updates the reason when poison overwrites a kill.
func (p *Player) Kill(reason DeathReason) {
	p.Alive = false
	p.DeathReason = reason
}

// NightAction is one private nocturnal submission. Overwrite semantics per
// actor are enforced by Room.PutNightAction.
type NightAction struct {
	ActorID  string
	Kind     ActionKind
	TargetID string
}

// WerewolfTeamActor marks the collapsed kill decision after the wolf sub-vote.
const WerewolfTeamActor = "werewolf-team"

type Vote struct {
	VoterID  string
	TargetID string
}

type Potions struct {
	Antidote bool `json:"antidote"`
	Poison   bool `json:"poison"`
}

type LogEntry struct {
	Round   int            `json:"round"`
	Phase   Phase          `json:"phase"`
	At      time.Time      `json:"at"`
	Event   string         `json:"event"`
	Details map[string]any `json:"details,omitempty"`
}

// Room is the aggregate root, one per game instance. All mutation happens
// inside the owning room.Machine loop.
type Room struct {
	ID     string
	Name   string
	HostID string
	Seats  int

	Phase        Phase
	Players      []*Player
	CurrentRound int

	NightActions []NightAction
	Votes        []Vote
	WitchPotions Potions
	Winner       Winner
	GameLog      []LogEntry

	SheriffID           string
	SheriffCandidates   []string
	SheriffVotes        []Vote
	SheriffElectionDone bool

	SpeakerOrder    []string
	SpeakerIndex    int
	SpeakerID       string
	SpeakerDeadline time.Time

	PendingLastWordsID string
	Paused             bool
}

func NewRoom(name, hostName string, seats int) (*Room, *Player) {
	host := &Player{
		ID:         NewID("p"),
		Name:       hostName,
		Position:   1,
		Controller: ControllerHuman,
		Alive:      true,
		Online:     true,
	}
	room := &Room{
		ID:           NewID("room"),
		Name:         name,
		HostID:       host.ID,
		Seats:        seats,
		Phase:        PhaseWaiting,
		Players:      []*Player{host},
		CurrentRound: 1,
		WitchPotions: Potions{Antidote: true, Poison: true},
	}
	return room, host
}

// NewID returns a prefixed lowercase ULID.
func NewID(prefix string) string {
	return prefix + "_" + ulid.MustNew(ulid.Now(), rand.Reader).String()
}

func (r *Room) Player(id string) *Player {
	for _, p := range r.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) PlayerAt(position int) *Player {
	for _, p := range r.Players {
		if p.Position == position {
			return p
		}
	}
	return nil
}

// Alive returns living players sorted by seat position.
func (r *Room) Alive() []*Player {
	out := make([]*Player, 0, len(r.Players))
	for _, p := range r.Players {
		if p.Alive {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	return out
}

func (r *Room) AliveByRole(role Role) []*Player {
	out := []*Player{}
	for _, p := range r.Alive() {
		if p.Role == role {
			out = append(out, p)
		}
	}
	return out
}

// PutNightAction records an action with latest-submission-wins semantics.
func (r *Room) PutNightAction(a NightAction) {
	for i := range r.NightActions {
		if r.NightActions[i].ActorID == a.ActorID {
			r.NightActions[i] = a
			return
		}
	}
	r.NightActions = append(r.NightActions, a)
}

// PutVote records a vote with overwrite semantics per voter. An empty target
// is an abstention: the voter is marked as having voted without a tally entry.
func (r *Room) PutVote(votes *[]Vote, v Vote) {
	kept := (*votes)[:0]
	for _, old := range *votes {
		if old.VoterID != v.VoterID {
			kept = append(kept, old)
		}
	}
	*votes = kept
	if v.TargetID != "" {
		*votes = append(*votes, v)
	}
}

func (r *Room) ResetNightActions() {
	r.NightActions = r.NightActions[:0]
	for _, p := range r.Players {
		p.HasActedNight = false
	}
}

func (r *Room) ResetVotes() {
	r.Votes = r.Votes[:0]
	for _, p := range r.Players {
		p.HasVoted = false
	}
}

func (r *Room) ResetSheriffVotes() {
	r.SheriffVotes = r.SheriffVotes[:0]
	for _, p := range r.Players {
		p.HasVoted = false
	}
}

func (r *Room) Log(event string, details map[string]any) {
	r.GameLog = append(r.GameLog, LogEntry{
		Round:   r.CurrentRound,
		Phase:   r.Phase,
		At:      time.Now(),
		Event:   event,
		Details: details,
	})
}

// RecordSpeech appends to both the public log and the speaker's own history.
func (r *Room) RecordSpeech(p *Player, content string) {
	p.SpeechHistory = append(p.SpeechHistory, Speech{
		Position: p.Position,
		Round:    r.CurrentRound,
		Phase:    r.Phase,
		Content:  content,
		At:       time.Now(),
	})
	r.Log("speech", map[string]any{
		"sender_id":   p.ID,
		"sender_name": p.Name,
		"content":     content,
	})
}

// Snapshot returns a deep copy safe to hand to AI goroutines running outside
// the room loop. Mutating the snapshot never touches the live room.
func (r *Room) Snapshot() *Room {
	cp := *r
	cp.Players = make([]*Player, len(r.Players))
	for i, p := range r.Players {
		pc := *p
		pc.SpeechHistory = append([]Speech(nil), p.SpeechHistory...)
		cp.Players[i] = &pc
	}
	cp.NightActions = append([]NightAction(nil), r.NightActions...)
	cp.Votes = append([]Vote(nil), r.Votes...)
	cp.SheriffVotes = append([]Vote(nil), r.SheriffVotes...)
	cp.SheriffCandidates = append([]string(nil), r.SheriffCandidates...)
	cp.SpeakerOrder = append([]string(nil), r.SpeakerOrder...)
	cp.GameLog = append([]LogEntry(nil), r.GameLog...)
	return &cp
}

// CheckWinner evaluates the win condition. It does not mutate the room.
func (r *Room) CheckWinner() Winner {
	wolves, good := 0, 0
	for _, p := range r.Players {
		if !p.Alive {
			continue
		}
		if p.Role == RoleWerewolf {
			wolves++
		} else {
			good++
		}
	}
	switch {
	case wolves == 0:
		return WinnerVillager
	case wolves >= good:
		return WinnerWerewolf
	default:
		return WinnerNone
	}
}
