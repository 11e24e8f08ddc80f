package room

import (
	"time"

	"midnight-village/internal/game"
)

// PlayerView is one seat as a given viewer may see it. Role is filled only
// when the viewer is entitled to it.
type PlayerView struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Position    int              `json:"position"`
	Controller  game.Controller  `json:"controller"`
	Alive       bool             `json:"alive"`
	Online      bool             `json:"online"`
	DeathReason game.DeathReason `json:"death_reason,omitempty"`
	Role        game.Role        `json:"role,omitempty"`
	IsSheriff   bool             `json:"is_sheriff,omitempty"`
	HasVoted    bool             `json:"has_voted,omitempty"`
}

// RoomView is the sanitized state pushed to one viewer.
type RoomView struct {
	ID      string       `json:"id"`
	Name    string       `json:"name"`
	HostID  string       `json:"host_id"`
	Seats   int          `json:"seats"`
	Phase   game.Phase   `json:"phase"`
	Round   int          `json:"round"`
	Paused  bool         `json:"paused"`
	Winner  game.Winner  `json:"winner,omitempty"`
	Players []PlayerView `json:"players"`

	YourID   string    `json:"your_id,omitempty"`
	YourRole game.Role `json:"your_role,omitempty"`

	SpeakerID       string    `json:"speaker_id,omitempty"`
	SpeakerDeadline time.Time `json:"speaker_deadline,omitempty"`

	SheriffID         string   `json:"sheriff_id,omitempty"`
	SheriffCandidates []string `json:"sheriff_candidates,omitempty"`
}

// BuildView sanitizes room state for one viewer. Roles leak only to the seat
// itself, to fellow wolves, and to everyone once the game is over.
func BuildView(r *game.Room, viewerID string) RoomView {
	viewer := r.Player(viewerID)
	over := r.Phase == game.PhaseGameOver

	view := RoomView{
		ID:                r.ID,
		Name:              r.Name,
		HostID:            r.HostID,
		Seats:             r.Seats,
		Phase:             r.Phase,
		Round:             r.CurrentRound,
		Paused:            r.Paused,
		Winner:            r.Winner,
		SpeakerID:         r.SpeakerID,
		SpeakerDeadline:   r.SpeakerDeadline,
		SheriffID:         r.SheriffID,
		SheriffCandidates: append([]string(nil), r.SheriffCandidates...),
	}
	if viewer != nil {
		view.YourID = viewer.ID
		view.YourRole = viewer.Role
	}

	for _, p := range r.Players {
		pv := PlayerView{
			ID:         p.ID,
			Name:       p.Name,
			Position:   p.Position,
			Controller: p.Controller,
			Alive:      p.Alive,
			Online:     p.Online,
			IsSheriff:  p.ID == r.SheriffID,
			HasVoted:   p.HasVoted,
		}
		// Poison and a wolf kill look the same from the outside; the cause
		// surfaces only to the dead seat, on a public vote, or at game over.
		if !p.Alive && (over || p.DeathReason == game.DeathVoted || (viewer != nil && viewer.ID == p.ID)) {
			pv.DeathReason = p.DeathReason
		}
		if over || revealsRoleTo(p, viewer) {
			pv.Role = p.Role
		}
		view.Players = append(view.Players, pv)
	}
	return view
}

func revealsRoleTo(p, viewer *game.Player) bool {
	if viewer == nil {
		return false
	}
	if p.ID == viewer.ID {
		return true
	}
	return viewer.Role == game.RoleWerewolf && p.Role == game.RoleWerewolf
}
