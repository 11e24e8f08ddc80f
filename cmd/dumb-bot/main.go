package main

import (
	"encoding/json"
	"log"
	"math/rand"
	"time"

	"github.com/gorilla/websocket"

	"midnight-village/internal/config"
)

// dumb-bot joins a room over the socket and plays legally but mindlessly.
// Useful for filling seats during manual testing.

type frame struct {
	Type     string          `json:"type"`
	Event    string          `json:"event"`
	Ok       bool            `json:"ok"`
	Error    string          `json:"error"`
	PlayerID string          `json:"player_id"`
	Payload  json.RawMessage `json:"payload"`
}

type seat struct {
	ID    string `json:"id"`
	Alive bool   `json:"alive"`
}

type bot struct {
	conn     *websocket.Conn
	rnd      *rand.Rand
	playerID string
	role     string
	seats    []seat
}

func main() {
	cfg, err := config.LoadBot()
	if err != nil {
		log.Fatal(err)
	}
	if cfg.RoomID == "" {
		log.Fatal("ROOM_ID is required")
	}

	conn, _, err := websocket.DefaultDialer.Dial(cfg.WSURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	defer conn.Close()

	b := &bot{conn: conn, rnd: rand.New(rand.NewSource(time.Now().UnixNano()))}
	b.write(map[string]any{"type": "join", "room_id": cfg.RoomID, "name": cfg.PlayerName})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var f frame
		if err := json.Unmarshal(data, &f); err != nil {
			continue
		}
		b.handle(f)
	}
}

func (b *bot) handle(f frame) {
	switch f.Type {
	case "join_result":
		if !f.Ok {
			log.Fatalf("join rejected: %s", f.Error)
		}
		b.playerID = f.PlayerID
		log.Printf("seated as %s", b.playerID)
	case "event":
		b.handleEvent(f)
	}
}

func (b *bot) handleEvent(f frame) {
	switch f.Event {
	case "room_state":
		var state struct {
			Players []seat `json:"players"`
			Phase   string `json:"phase"`
		}
		if err := json.Unmarshal(f.Payload, &state); err == nil {
			b.seats = state.Players
		}
	case "role_assigned":
		var p struct {
			Role string `json:"role"`
		}
		if err := json.Unmarshal(f.Payload, &p); err == nil {
			b.role = p.Role
			log.Printf("dealt role %s", b.role)
		}
	case "phase_changed", "morning_result", "vote_result", "hunter_shot":
		// Refresh the seat map whenever the table changes.
		b.write(map[string]any{"type": "get_state"})
	case "night_action_request":
		b.nightAction(f.Payload)
	case "speaker_changed":
		var p struct {
			PlayerID  string `json:"player_id"`
			LastWords bool   `json:"last_words"`
		}
		if err := json.Unmarshal(f.Payload, &p); err == nil && p.PlayerID == b.playerID {
			b.write(map[string]any{"type": "speech", "content": "I have nothing to add."})
		}
	case "vote_request":
		b.write(map[string]any{"type": "vote", "target_id": b.randomTarget()})
	case "hunter_shoot_request":
		b.write(map[string]any{"type": "hunter_shoot", "target_id": b.randomTarget()})
	case "badge_transfer_request":
		b.write(map[string]any{"type": "badge_transfer", "target_id": b.randomTarget()})
	case "game_over":
		log.Print("game over")
	}
}

func (b *bot) nightAction(payload json.RawMessage) {
	var p struct {
		Role       string `json:"role"`
		KillTarget string `json:"kill_target"`
	}
	_ = json.Unmarshal(payload, &p)

	msg := map[string]any{"type": "night_action"}
	switch p.Role {
	case "werewolf":
		msg["kind"] = "kill"
		msg["target_id"] = b.randomTarget()
	case "seer":
		msg["kind"] = "check"
		msg["target_id"] = b.randomTarget()
	case "guard":
		msg["kind"] = "protect"
		msg["target_id"] = b.randomTarget()
	case "witch":
		// Half the time the bot spends the antidote on whoever is down.
		if p.KillTarget != "" && b.rnd.Intn(2) == 0 {
			msg["kind"] = "save"
			msg["target_id"] = p.KillTarget
		} else {
			msg["target_id"] = ""
		}
	default:
		msg["target_id"] = ""
	}
	b.write(msg)
}

// randomTarget picks a living seat other than the bot's own; empty when the
// seat map is unknown.
func (b *bot) randomTarget() string {
	alive := []string{}
	for _, s := range b.seats {
		if s.Alive && s.ID != b.playerID {
			alive = append(alive, s.ID)
		}
	}
	if len(alive) == 0 {
		return ""
	}
	return alive[b.rnd.Intn(len(alive))]
}

func (b *bot) write(v any) {
	msg, _ := json.Marshal(v)
	_ = b.conn.WriteMessage(websocket.TextMessage, msg)
}
