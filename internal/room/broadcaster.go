package room

// Event names pushed over the wire. Room events go to every connection in
// the room; player events are private.
const (
	EventRoomState     = "room_state"
	EventPlayerJoined  = "player_joined"
	EventPlayerLeft    = "player_left"
	EventPhaseChanged  = "phase_changed"
	EventRoleAssigned  = "role_assigned"
	EventNightPrompt   = "night_action_request"
	EventWolfResult    = "wolf_vote_result"
	EventCheckResult   = "check_result"
	EventWitchContext  = "witch_context"
	EventMorningResult = "morning_result"
	EventSpeakerChange = "speaker_changed"
	EventSpeech        = "speech"
	EventSeatState     = "seat_state"
	EventSuspicion     = "suspicion_update"
	EventVotePrompt    = "vote_request"
	EventVoteCast      = "vote_cast"
	EventVoteResult    = "vote_result"
	EventChat          = "chat"
	EventTurnSkipped   = "turn_skipped"
	EventRoomClosed    = "room_destroyed"
	EventSheriffPhase  = "sheriff_election"
	EventSheriffBadge  = "sheriff_elected"
	EventHunterPrompt  = "hunter_shoot_request"
	EventHunterShot    = "hunter_shot"
	EventBadgePrompt   = "badge_transfer_request"
	EventBadgeMoved    = "badge_transferred"
	EventGamePaused    = "game_paused"
	EventGameResumed   = "game_resumed"
	EventGameOver      = "game_over"
)

// Broadcaster delivers events to connected clients. The ws server implements
// it; tests plug in a recording fake.
type Broadcaster interface {
	RoomEvent(roomID, event string, payload any)
	PlayerEvent(roomID, playerID, event string, payload any)
}

// NopBroadcaster drops everything. Useful default when nothing is attached.
type NopBroadcaster struct{}

func (NopBroadcaster) RoomEvent(string, string, any)           {}
func (NopBroadcaster) PlayerEvent(string, string, string, any) {}
