package game

import "time"

// SpeakerOrder computes the discussion order: every living seat exactly once,
// starting from the lowest surviving position and proceeding upward.
func SpeakerOrder(r *Room) []string {
	alive := r.Alive()
	order := make([]string, 0, len(alive))
	for _, p := range alive {
		order = append(order, p.ID)
	}
	return order
}

// NextSpeakerIndex returns the next index in the order holding a player who is
// still alive, skipping seats that died after the order was computed. A return
// of len(order) means the order is exhausted.
func NextSpeakerIndex(r *Room, from int) int {
	for i := from; i < len(r.SpeakerOrder); i++ {
		if p := r.Player(r.SpeakerOrder[i]); p != nil && p.Alive {
			return i
		}
	}
	return len(r.SpeakerOrder)
}

func (r *Room) ClearSpeaker() {
	r.SpeakerOrder = nil
	r.SpeakerIndex = 0
	r.SpeakerID = ""
	r.SpeakerDeadline = time.Time{}
}
