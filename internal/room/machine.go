package room

import (
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"midnight-village/internal/ai"
	"midnight-village/internal/config"
	"midnight-village/internal/game"
)

// Options wires a Machine's collaborators. Zero values are usable: no
// generation, no persistence, no broadcasting, time-seeded randomness.
type Options struct {
	Generator   ai.Generator
	AITimeout   time.Duration
	Broadcaster Broadcaster
	Recorder    Recorder
	Seed        int64
}

type command struct {
	fn    func() error
	reply chan error
}

// Machine owns one room. Every read and write of room state goes through the
// single loop goroutine; public methods are synchronous requests into it.
type Machine struct {
	id  string
	cfg config.GameConfig

	gen       ai.Generator
	aiTimeout time.Duration
	b         Broadcaster
	rec       Recorder

	cmds chan command
	done chan struct{}
	stop sync.Once

	// Everything below is loop-owned.
	room      *game.Room
	engines   map[string]*ai.Engine
	rnd       *rand.Rand
	startedAt time.Time

	timer    *time.Timer
	timerSeq int
	deadline time.Time
	expire   func()
	frozen   time.Duration

	nightStep     int
	pendingHunter string
	pendingBadge  string
	discussedDay  bool
	votedDay      bool
	onResume      []func()
}

var nightOrder = []game.Role{game.RoleGuard, game.RoleWerewolf, game.RoleSeer, game.RoleWitch}

// NewMachine creates a room in the waiting phase with the host seated and
// starts its loop. The returned id is the host's player id.
func NewMachine(name, hostName string, seats int, cfg config.GameConfig, opts Options) (*Machine, string, error) {
	if _, ok := game.Presets[seats]; !ok {
		return nil, "", game.ErrInvalidSeatCount
	}
	r, host := game.NewRoom(name, hostName, seats)

	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	b := opts.Broadcaster
	if b == nil {
		b = NopBroadcaster{}
	}
	aiTimeout := opts.AITimeout
	if aiTimeout <= 0 {
		aiTimeout = 8 * time.Second
	}

	m := &Machine{
		id:        r.ID,
		cfg:       cfg,
		gen:       opts.Generator,
		aiTimeout: aiTimeout,
		b:         b,
		rec:       opts.Recorder,
		cmds:      make(chan command, 32),
		done:      make(chan struct{}),
		room:      r,
		engines:   map[string]*ai.Engine{},
		rnd:       rand.New(rand.NewSource(seed)),
	}
	go m.run()
	return m, host.ID, nil
}

func (m *Machine) ID() string { return m.id }

func (m *Machine) run() {
	for {
		select {
		case <-m.done:
			m.cancelTimer()
			return
		case cmd := <-m.cmds:
			err := cmd.fn()
			if cmd.reply != nil {
				cmd.reply <- err
			}
		}
	}
}

// Stop tears the loop down. Pending do() callers get room_not_found.
func (m *Machine) Stop() {
	m.stop.Do(func() { close(m.done) })
}

func (m *Machine) do(fn func() error) error {
	reply := make(chan error, 1)
	select {
	case m.cmds <- command{fn: fn, reply: reply}:
	case <-m.done:
		return game.ErrRoomNotFound
	}
	select {
	case err := <-reply:
		return err
	case <-m.done:
		return game.ErrRoomNotFound
	}
}

// post enqueues loop work from AI goroutines and timers without waiting.
func (m *Machine) post(fn func()) {
	select {
	case m.cmds <- command{fn: func() error { fn(); return nil }}:
	case <-m.done:
	}
}

// schedule arms the single phase timer. Any previously armed deadline is
// dead: the sequence guard drops late fires.
func (m *Machine) schedule(d time.Duration, fn func()) {
	m.cancelTimer()
	m.timerSeq++
	seq := m.timerSeq
	m.deadline = time.Now().Add(d)
	m.expire = fn
	m.timer = time.AfterFunc(d, func() {
		m.post(func() {
			if m.timerSeq != seq || m.timer == nil || m.room.Paused {
				return
			}
			m.timer = nil
			fn()
		})
	})
}

func (m *Machine) cancelTimer() {
	if m.timer != nil {
		m.timer.Stop()
		m.timer = nil
	}
	m.expire = nil
}

func (m *Machine) seconds(n int) time.Duration { return time.Duration(n) * time.Second }

// View renders the room for one viewer.
func (m *Machine) View(viewerID string) (RoomView, error) {
	var v RoomView
	err := m.do(func() error {
		v = BuildView(m.room, viewerID)
		return nil
	})
	return v, err
}

// Join seats a human player while the room is waiting.
func (m *Machine) Join(name string) (string, error) {
	var playerID string
	err := m.do(func() error {
		if m.room.Phase != game.PhaseWaiting {
			return game.ErrGameStarted
		}
		if len(m.room.Players) >= m.room.Seats {
			return game.ErrRoomFull
		}
		p := &game.Player{
			ID:         game.NewID("p"),
			Name:       name,
			Position:   m.freePosition(),
			Controller: game.ControllerHuman,
			Alive:      true,
			Online:     true,
		}
		m.room.Players = append(m.room.Players, p)
		playerID = p.ID
		m.b.RoomEvent(m.id, EventPlayerJoined, map[string]any{
			"player_id": p.ID, "name": p.Name, "position": p.Position,
		})
		return nil
	})
	return playerID, err
}

// AddAIPlayer seats an AI companion. Host only, waiting phase only.
func (m *Machine) AddAIPlayer(callerID string) error {
	return m.do(func() error {
		if callerID != m.room.HostID {
			return game.ErrNotAuthorized
		}
		if m.room.Phase != game.PhaseWaiting {
			return game.ErrGameStarted
		}
		if len(m.room.Players) >= m.room.Seats {
			return game.ErrRoomFull
		}
		m.seatAI()
		return nil
	})
}

// Leave removes a waiting player, or marks a seated one offline mid-game.
func (m *Machine) Leave(playerID string) error {
	return m.do(func() error {
		p := m.room.Player(playerID)
		if p == nil {
			return game.ErrPlayerNotFound
		}
		if m.room.Phase == game.PhaseWaiting {
			m.removeWaiting(p)
			return nil
		}
		p.Online = false
		m.b.RoomEvent(m.id, EventPlayerLeft, map[string]any{"player_id": p.ID, "mid_game": true})
		return nil
	})
}

// Reconnect marks a seat online again and replays the viewer's private state.
func (m *Machine) Reconnect(playerID string) (RoomView, error) {
	var v RoomView
	err := m.do(func() error {
		p := m.room.Player(playerID)
		if p == nil {
			return game.ErrPlayerNotFound
		}
		p.Online = true
		v = BuildView(m.room, playerID)
		return nil
	})
	return v, err
}

// Start fills empty seats with AI, deals roles, and enters the first night.
func (m *Machine) Start(callerID string) error {
	return m.do(func() error {
		if callerID != m.room.HostID {
			return game.ErrNotAuthorized
		}
		if m.room.Phase != game.PhaseWaiting {
			return game.ErrGameStarted
		}
		return m.startGame()
	})
}

// SubmitNightAction accepts a human's nocturnal move for the current step.
func (m *Machine) SubmitNightAction(playerID string, kind game.ActionKind, targetID string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		if m.room.Phase != game.PhaseNight {
			return game.ErrInvalidPhase
		}
		return m.applyNightAction(playerID, kind, targetID)
	})
}

// SubmitSpeech records the current speaker's utterance and advances the turn.
// During last words it is the dying player's final statement.
func (m *Machine) SubmitSpeech(playerID, content string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		switch m.room.Phase {
		case game.PhaseDayDiscuss, game.PhaseSheriffElectionSpeech:
			if m.room.SpeakerID != playerID {
				return game.ErrNotAuthorized
			}
			p := m.room.Player(playerID)
			if p == nil || !p.Alive {
				return game.ErrPlayerNotFound
			}
			m.recordSpeech(p, content)
			m.advanceSpeaker()
			return nil
		case game.PhaseDayDeathLastWords:
			if m.room.PendingLastWordsID != playerID {
				return game.ErrNotAuthorized
			}
			p := m.room.Player(playerID)
			if p == nil {
				return game.ErrPlayerNotFound
			}
			m.recordSpeech(p, content)
			m.finishLastWords()
			return nil
		default:
			return game.ErrInvalidPhase
		}
	})
}

// SubmitVote accepts a day-vote ballot; empty target abstains.
func (m *Machine) SubmitVote(playerID, targetID string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		if m.room.Phase != game.PhaseDayVote {
			return game.ErrInvalidPhase
		}
		voter := m.room.Player(playerID)
		if voter == nil || !voter.Alive {
			return game.ErrPlayerNotFound
		}
		if targetID != "" {
			t := m.room.Player(targetID)
			if t == nil || !t.Alive || t.ID == playerID {
				return game.ErrInvalidTarget
			}
		}
		m.room.PutVote(&m.room.Votes, game.Vote{VoterID: playerID, TargetID: targetID})
		voter.HasVoted = true
		m.broadcastVoteCast(voter, targetID, false)
		if m.allHumansVoted() {
			m.resolveDayVote()
		}
		return nil
	})
}

// broadcastVoteCast announces a ballot. Ballots are public knowledge at this
// table, abstentions included.
func (m *Machine) broadcastVoteCast(voter *game.Player, targetID string, election bool) {
	payload := map[string]any{
		"voter_id":       voter.ID,
		"voter_position": voter.Position,
		"abstain":        targetID == "",
	}
	if election {
		payload["election"] = true
	}
	if t := m.room.Player(targetID); t != nil {
		payload["target_id"] = t.ID
		payload["target_position"] = t.Position
	}
	m.b.RoomEvent(m.id, EventVoteCast, payload)
}

// RunForSheriff registers a candidacy during the election speeches.
func (m *Machine) RunForSheriff(playerID string) error {
	return m.do(func() error {
		if m.room.Phase != game.PhaseSheriffElectionSpeech {
			return game.ErrInvalidPhase
		}
		p := m.room.Player(playerID)
		if p == nil || !p.Alive {
			return game.ErrPlayerNotFound
		}
		for _, id := range m.room.SheriffCandidates {
			if id == playerID {
				return game.ErrAlreadyRegistered
			}
		}
		m.room.SheriffCandidates = append(m.room.SheriffCandidates, playerID)
		if m.room.SpeakerID != "" {
			// Speeches already started; the late candidate speaks last.
			m.room.SpeakerOrder = append(m.room.SpeakerOrder, playerID)
		}
		m.b.RoomEvent(m.id, EventSheriffPhase, map[string]any{
			"event": "candidate", "player_id": playerID, "position": p.Position,
		})
		return nil
	})
}

// SubmitSheriffVote accepts a badge ballot for a registered candidate.
func (m *Machine) SubmitSheriffVote(playerID, targetID string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		if m.room.Phase != game.PhaseSheriffElectionVote {
			return game.ErrInvalidPhase
		}
		voter := m.room.Player(playerID)
		if voter == nil || !voter.Alive {
			return game.ErrPlayerNotFound
		}
		if targetID != "" && !m.isCandidate(targetID) {
			return game.ErrNotCandidate
		}
		m.room.PutVote(&m.room.SheriffVotes, game.Vote{VoterID: playerID, TargetID: targetID})
		voter.HasVoted = true
		m.broadcastVoteCast(voter, targetID, true)
		if m.allHumansVoted() {
			m.resolveSheriffVote()
		}
		return nil
	})
}

// SubmitHunterShot fires the dying hunter's revenge shot.
func (m *Machine) SubmitHunterShot(playerID, targetID string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		if m.room.Phase != game.PhaseHunterShoot || m.pendingHunter != playerID {
			return game.ErrInvalidPhase
		}
		t := m.room.Player(targetID)
		if t == nil || !t.Alive || t.ID == playerID {
			return game.ErrInvalidTarget
		}
		m.applyHunterShot(playerID, targetID)
		return nil
	})
}

// SubmitBadgeTransfer hands the dead sheriff's badge to a living seat. An
// empty target tears the badge instead.
func (m *Machine) SubmitBadgeTransfer(playerID, targetID string) error {
	return m.do(func() error {
		if m.room.Paused {
			return game.ErrGamePaused
		}
		if m.room.Phase != game.PhaseBadgeTransfer || m.pendingBadge != playerID {
			return game.ErrInvalidPhase
		}
		if targetID != "" {
			t := m.room.Player(targetID)
			if t == nil || !t.Alive || t.ID == playerID {
				return game.ErrInvalidTarget
			}
		}
		m.applyBadgeTransfer(targetID)
		return nil
	})
}

// ForceSkip fires the current phase deadline immediately. Host only. Covers a
// stalled table: an absent speaker, a vote nobody finishes, a silent hunter.
func (m *Machine) ForceSkip(callerID string) error {
	return m.do(func() error {
		if callerID != m.room.HostID {
			return game.ErrNotAuthorized
		}
		if m.room.Paused {
			return game.ErrGamePaused
		}
		fn := m.expire
		if fn == nil {
			return game.ErrInvalidPhase
		}
		m.cancelTimer()
		m.b.RoomEvent(m.id, EventTurnSkipped, map[string]any{"phase": m.room.Phase})
		fn()
		return nil
	})
}

// Pause freezes the phase clock. Host only.
func (m *Machine) Pause(callerID string) error {
	return m.do(func() error {
		if callerID != m.room.HostID {
			return game.ErrNotAuthorized
		}
		if m.room.Paused || m.room.Phase == game.PhaseWaiting || m.room.Phase == game.PhaseGameOver {
			return game.ErrInvalidPhase
		}
		m.room.Paused = true
		if m.timer != nil {
			m.timer.Stop()
			m.timer = nil
			// The remaining budget freezes here; wall time spent paused
			// never counts against the phase.
			m.frozen = time.Until(m.deadline)
		}
		m.b.RoomEvent(m.id, EventGamePaused, nil)
		log.Info().Str("room_id", m.id).Msg("game_paused")
		return nil
	})
}

// Resume restarts the clock with the budget frozen at pause time.
func (m *Machine) Resume(callerID string) error {
	return m.do(func() error {
		if callerID != m.room.HostID {
			return game.ErrNotAuthorized
		}
		if !m.room.Paused {
			return game.ErrInvalidPhase
		}
		m.room.Paused = false
		m.b.RoomEvent(m.id, EventGameResumed, nil)
		log.Info().Str("room_id", m.id).Msg("game_resumed")

		queued := m.onResume
		m.onResume = nil
		for _, fn := range queued {
			fn()
		}
		if fn := m.expire; fn != nil && m.timer == nil {
			remaining := m.frozen
			if remaining < time.Second {
				remaining = time.Second
			}
			m.schedule(remaining, fn)
		}
		m.frozen = 0
		return nil
	})
}

func (m *Machine) freePosition() int {
	taken := map[int]bool{}
	for _, p := range m.room.Players {
		taken[p.Position] = true
	}
	for pos := 1; pos <= m.room.Seats; pos++ {
		if !taken[pos] {
			return pos
		}
	}
	return len(m.room.Players) + 1
}

func (m *Machine) removeWaiting(p *game.Player) {
	kept := m.room.Players[:0]
	for _, other := range m.room.Players {
		if other.ID != p.ID {
			kept = append(kept, other)
		}
	}
	m.room.Players = kept
	if p.ID == m.room.HostID {
		m.reassignHost()
	}
	m.b.RoomEvent(m.id, EventPlayerLeft, map[string]any{"player_id": p.ID})
}

// reassignHost hands the room to the lowest-seated human, if any remain.
func (m *Machine) reassignHost() {
	m.room.HostID = ""
	for _, p := range m.room.Players {
		if !p.IsAI() && (m.room.HostID == "" || p.Position < m.room.Player(m.room.HostID).Position) {
			m.room.HostID = p.ID
		}
	}
}

func (m *Machine) isCandidate(id string) bool {
	for _, c := range m.room.SheriffCandidates {
		if c == id {
			return true
		}
	}
	return false
}

// allHumansVoted is the early-resolution gate: AI ballots land at phase
// entry, so only living human seats can still be outstanding.
func (m *Machine) allHumansVoted() bool {
	for _, p := range m.room.Alive() {
		if !p.IsAI() && !p.HasVoted {
			return false
		}
	}
	return true
}
