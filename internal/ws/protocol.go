package ws

// ProtocolVersion is stamped on every server-to-client frame so clients can
// detect incompatible upgrades.
const ProtocolVersion = "1"

// JoinMessage seats the connection as a player. A non-empty PlayerID
// reattaches an existing seat after a disconnect.
type JoinMessage struct {
	Type     string `json:"type"`
	RoomID   string `json:"room_id"`
	Name     string `json:"name,omitempty"`
	PlayerID string `json:"player_id,omitempty"`
}

// SpectateMessage attaches the connection to a room's public event stream.
type SpectateMessage struct {
	Type   string `json:"type"`
	RoomID string `json:"room_id"`
}

// CommandMessage carries every in-game command; unused fields stay empty.
type CommandMessage struct {
	Type     string `json:"type"`
	Kind     string `json:"kind,omitempty"`
	TargetID string `json:"target_id,omitempty"`
	Content  string `json:"content,omitempty"`
}

type JoinResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
	RoomID          string `json:"room_id,omitempty"`
	PlayerID        string `json:"player_id,omitempty"`
}

type CommandResult struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Cmd             string `json:"cmd"`
	Ok              bool   `json:"ok"`
	Error           string `json:"error,omitempty"`
}

// Event is the envelope for every pushed game event, room-wide or private.
type Event struct {
	Type            string `json:"type"`
	ProtocolVersion string `json:"protocol_version"`
	Event           string `json:"event"`
	RoomID          string `json:"room_id"`
	TimestampMS     int64  `json:"timestamp_ms"`
	Payload         any    `json:"payload,omitempty"`
}
