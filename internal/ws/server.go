package ws

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"midnight-village/internal/game"
	"midnight-village/internal/room"
)

type Client struct {
	conn     *websocket.Conn
	send     chan []byte
	role     string
	roomID   string
	playerID string
}

// Server is the WebSocket gateway. It also implements room.Broadcaster, so
// room machines push events straight to connected sockets.
type Server struct {
	mgr      *room.Manager
	upgrader websocket.Upgrader

	mu       sync.Mutex
	rooms    map[string]map[*Client]bool
	byPlayer map[string]*Client
}

func NewServer() *Server {
	return &Server{
		upgrader: websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		rooms:    map[string]map[*Client]bool{},
		byPlayer: map[string]*Client{},
	}
}

// Bind attaches the room manager. The manager needs this server as its
// broadcaster, so the two are wired after construction.
func (s *Server) Bind(mgr *room.Manager) { s.mgr = mgr }

func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	client := &Client{conn: conn, send: make(chan []byte, 32)}

	go s.writeLoop(client)
	s.readLoop(client)
}

func (s *Server) readLoop(c *Client) {
	defer func() {
		s.unregister(c)
		_ = c.conn.Close()
	}()

	for {
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		var base struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(msg, &base); err != nil {
			continue
		}
		switch base.Type {
		case "join":
			var join JoinMessage
			if err := json.Unmarshal(msg, &join); err != nil {
				continue
			}
			s.handleJoin(c, join)
		case "spectate":
			var spec SpectateMessage
			if err := json.Unmarshal(msg, &spec); err != nil {
				continue
			}
			s.handleSpectate(c, spec)
		default:
			var cmd CommandMessage
			if err := json.Unmarshal(msg, &cmd); err != nil {
				continue
			}
			s.handleCommand(c, base.Type, cmd)
		}
	}
}

func (s *Server) writeLoop(c *Client) {
	for msg := range c.send {
		_ = c.conn.WriteMessage(websocket.TextMessage, msg)
	}
}

func (s *Server) handleJoin(c *Client, join JoinMessage) {
	if c.role != "" {
		s.sendJoinResult(c, false, "already_joined", "", "")
		return
	}
	m, err := s.mgr.Get(join.RoomID)
	if err != nil {
		s.sendJoinResult(c, false, mapError(err), "", "")
		return
	}

	var view room.RoomView
	playerID := join.PlayerID
	if playerID != "" {
		view, err = m.Reconnect(playerID)
	} else {
		playerID, err = m.Join(join.Name)
		if err == nil {
			view, err = m.View(playerID)
		}
	}
	if err != nil {
		s.sendJoinResult(c, false, mapError(err), "", "")
		return
	}

	c.role = "player"
	c.roomID = m.ID()
	c.playerID = playerID
	s.register(c)

	s.sendJoinResult(c, true, "", m.ID(), playerID)
	safeSend(c.send, s.marshalEvent(m.ID(), room.EventRoomState, view))
	log.Info().Str("room_id", m.ID()).Str("player_id", playerID).Msg("ws_player_joined")
}

func (s *Server) handleSpectate(c *Client, spec SpectateMessage) {
	if c.role != "" {
		return
	}
	m, err := s.mgr.Get(spec.RoomID)
	if err != nil {
		s.sendJoinResult(c, false, mapError(err), "", "")
		return
	}
	view, err := m.View("")
	if err != nil {
		s.sendJoinResult(c, false, mapError(err), "", "")
		return
	}

	c.role = "spectator"
	c.roomID = m.ID()
	s.register(c)

	s.sendJoinResult(c, true, "", m.ID(), "")
	safeSend(c.send, s.marshalEvent(m.ID(), room.EventRoomState, view))
}

func (s *Server) handleCommand(c *Client, typ string, cmd CommandMessage) {
	if c.role != "player" {
		s.sendCommandResult(c, typ, game.ErrNotAuthorized)
		return
	}
	m, err := s.mgr.Get(c.roomID)
	if err != nil {
		s.sendCommandResult(c, typ, err)
		return
	}

	switch typ {
	case "start_game":
		err = m.Start(c.playerID)
	case "add_ai":
		err = m.AddAIPlayer(c.playerID)
	case "night_action":
		err = m.SubmitNightAction(c.playerID, game.ActionKind(cmd.Kind), cmd.TargetID)
	case "speech":
		err = m.SubmitSpeech(c.playerID, cmd.Content)
	case "chat":
		// Free table talk outside the speech turn. Never touches game state.
		s.RoomEvent(c.roomID, room.EventChat, map[string]any{
			"player_id": c.playerID, "content": cmd.Content,
		})
	case "vote":
		err = m.SubmitVote(c.playerID, cmd.TargetID)
	case "run_for_sheriff":
		err = m.RunForSheriff(c.playerID)
	case "sheriff_vote":
		err = m.SubmitSheriffVote(c.playerID, cmd.TargetID)
	case "hunter_shoot":
		err = m.SubmitHunterShot(c.playerID, cmd.TargetID)
	case "badge_transfer":
		err = m.SubmitBadgeTransfer(c.playerID, cmd.TargetID)
	case "force_skip":
		err = m.ForceSkip(c.playerID)
	case "pause":
		err = m.Pause(c.playerID)
	case "resume":
		err = m.Resume(c.playerID)
	case "leave":
		err = m.Leave(c.playerID)
	case "get_state":
		var view room.RoomView
		if view, err = m.View(c.playerID); err == nil {
			safeSend(c.send, s.marshalEvent(m.ID(), room.EventRoomState, view))
		}
	default:
		s.sendCommandResult(c, typ, errUnknownCommand)
		return
	}
	s.sendCommandResult(c, typ, err)
}

func (s *Server) register(c *Client) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rooms[c.roomID] == nil {
		s.rooms[c.roomID] = map[*Client]bool{}
	}
	s.rooms[c.roomID][c] = true
	if c.playerID == "" {
		return
	}
	if old := s.byPlayer[c.playerID]; old != nil && old != c {
		delete(s.rooms[old.roomID], old)
		safeClose(old.send)
		_ = old.conn.Close()
	}
	s.byPlayer[c.playerID] = c
}

func (s *Server) unregister(c *Client) {
	s.mu.Lock()
	if clients := s.rooms[c.roomID]; clients != nil {
		delete(clients, c)
		if len(clients) == 0 {
			delete(s.rooms, c.roomID)
		}
	}
	if c.playerID != "" && s.byPlayer[c.playerID] == c {
		delete(s.byPlayer, c.playerID)
	}
	s.mu.Unlock()

	if c.role == "player" {
		// Mid-game this marks the seat offline; in the lobby it frees it.
		if m, err := s.mgr.Get(c.roomID); err == nil {
			_ = m.Leave(c.playerID)
		}
	}
	safeClose(c.send)
}

// RoomEvent fans a room-wide event out to every socket attached to the room.
func (s *Server) RoomEvent(roomID, event string, payload any) {
	msg := s.marshalEvent(roomID, event, payload)
	s.mu.Lock()
	for c := range s.rooms[roomID] {
		safeSend(c.send, msg)
	}
	s.mu.Unlock()
}

// PlayerEvent delivers a private event to one player's socket, if connected.
func (s *Server) PlayerEvent(roomID, playerID, event string, payload any) {
	s.mu.Lock()
	c := s.byPlayer[playerID]
	s.mu.Unlock()
	if c == nil || c.roomID != roomID {
		return
	}
	safeSend(c.send, s.marshalEvent(roomID, event, payload))
}

func (s *Server) marshalEvent(roomID, event string, payload any) []byte {
	msg, _ := json.Marshal(Event{
		Type:            "event",
		ProtocolVersion: ProtocolVersion,
		Event:           event,
		RoomID:          roomID,
		TimestampMS:     time.Now().UnixMilli(),
		Payload:         payload,
	})
	return msg
}

func (s *Server) sendJoinResult(c *Client, ok bool, errCode, roomID, playerID string) {
	msg, _ := json.Marshal(JoinResult{
		Type:            "join_result",
		ProtocolVersion: ProtocolVersion,
		Ok:              ok,
		Error:           errCode,
		RoomID:          roomID,
		PlayerID:        playerID,
	})
	safeSend(c.send, msg)
}

func (s *Server) sendCommandResult(c *Client, cmd string, err error) {
	msg, _ := json.Marshal(CommandResult{
		Type:            "command_result",
		ProtocolVersion: ProtocolVersion,
		Cmd:             cmd,
		Ok:              err == nil,
		Error:           mapError(err),
	})
	safeSend(c.send, msg)
}

func safeClose(ch chan []byte) {
	defer func() {
		_ = recover()
	}()
	close(ch)
}

func safeSend(ch chan []byte, msg []byte) {
	defer func() {
		_ = recover()
	}()
	select {
	case ch <- msg:
	default:
	}
}

var errUnknownCommand = &protocolError{"unknown_command"}

type protocolError struct{ code string }

func (e *protocolError) Error() string { return e.code }

// mapError exposes known sentinel codes over the wire and hides the rest.
func mapError(err error) string {
	switch err {
	case nil:
		return ""
	case game.ErrInvalidPhase, game.ErrNotAuthorized, game.ErrPotionUsed,
		game.ErrInvalidTarget, game.ErrRoomNotFound, game.ErrRoomFull,
		game.ErrGameStarted, game.ErrNotCandidate, game.ErrAlreadyRegistered,
		game.ErrInvalidSeatCount, game.ErrPlayerNotFound, game.ErrServerFull,
		game.ErrGamePaused, errUnknownCommand:
		return err.Error()
	default:
		return "internal_error"
	}
}
