package room

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"midnight-village/internal/config"
	"midnight-village/internal/game"
)

// Summary is the lobby listing line for one room.
type Summary struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Seats   int        `json:"seats"`
	Players int        `json:"players"`
	Phase   game.Phase `json:"phase"`
}

// Manager owns every live room Machine. It only guards the registry; all
// game state lives behind each machine's own loop.
type Manager struct {
	cfg      config.GameConfig
	opts     Options
	maxRooms int

	mu    sync.Mutex
	rooms map[string]*Machine
}

func NewManager(cfg config.GameConfig, maxRooms int, opts Options) *Manager {
	if maxRooms <= 0 {
		maxRooms = 64
	}
	return &Manager{
		cfg:      cfg,
		opts:     opts,
		maxRooms: maxRooms,
		rooms:    map[string]*Machine{},
	}
}

// Create opens a new room with the host seated and returns it with the
// host's player id.
func (mgr *Manager) Create(name, hostName string, seats int) (*Machine, string, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	if len(mgr.rooms) >= mgr.maxRooms {
		return nil, "", game.ErrServerFull
	}
	m, hostID, err := NewMachine(name, hostName, seats, mgr.cfg, mgr.opts)
	if err != nil {
		return nil, "", err
	}
	mgr.rooms[m.ID()] = m
	log.Info().Str("room_id", m.ID()).Str("name", name).Int("seats", seats).Msg("room_created")
	return m, hostID, nil
}

func (mgr *Manager) Get(id string) (*Machine, error) {
	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	m, ok := mgr.rooms[id]
	if !ok {
		return nil, game.ErrRoomNotFound
	}
	return m, nil
}

// List renders lobby summaries, stable by room name then id.
func (mgr *Manager) List() []Summary {
	mgr.mu.Lock()
	machines := make([]*Machine, 0, len(mgr.rooms))
	for _, m := range mgr.rooms {
		machines = append(machines, m)
	}
	mgr.mu.Unlock()

	out := make([]Summary, 0, len(machines))
	for _, m := range machines {
		v, err := m.View("")
		if err != nil {
			continue
		}
		out = append(out, Summary{
			ID:      v.ID,
			Name:    v.Name,
			Seats:   v.Seats,
			Players: len(v.Players),
			Phase:   v.Phase,
		})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Remove stops a machine and drops it from the registry.
func (mgr *Manager) Remove(id string) {
	mgr.mu.Lock()
	m, ok := mgr.rooms[id]
	delete(mgr.rooms, id)
	mgr.mu.Unlock()
	if ok {
		m.b.RoomEvent(id, EventRoomClosed, nil)
		m.Stop()
		log.Info().Str("room_id", id).Msg("room_removed")
	}
}

// StartJanitor sweeps finished rooms in the background. A room lingers for
// idleAfter once its game is over so players can review the reveal, then it
// is removed.
func (mgr *Manager) StartJanitor(ctx context.Context, interval, idleAfter time.Duration) {
	go func() {
		finishedAt := map[string]time.Time{}
		t := time.NewTicker(interval)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-t.C:
				mgr.sweep(finishedAt, now, idleAfter)
			}
		}
	}()
}

func (mgr *Manager) sweep(finishedAt map[string]time.Time, now time.Time, idleAfter time.Duration) {
	live := map[string]bool{}
	for _, s := range mgr.List() {
		live[s.ID] = true
		if s.Phase != game.PhaseGameOver {
			delete(finishedAt, s.ID)
			continue
		}
		since, ok := finishedAt[s.ID]
		if !ok {
			finishedAt[s.ID] = now
			continue
		}
		if now.Sub(since) >= idleAfter {
			mgr.Remove(s.ID)
			delete(finishedAt, s.ID)
		}
	}
	for id := range finishedAt {
		if !live[id] {
			delete(finishedAt, id)
		}
	}
}

// Shutdown stops every machine. Used on server exit.
func (mgr *Manager) Shutdown() {
	mgr.mu.Lock()
	machines := make([]*Machine, 0, len(mgr.rooms))
	for _, m := range mgr.rooms {
		machines = append(machines, m)
	}
	mgr.rooms = map[string]*Machine{}
	mgr.mu.Unlock()
	for _, m := range machines {
		m.Stop()
	}
}
