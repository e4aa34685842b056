package ws

import "github.com/voltclass/presenterd/internal/domain"

// Event types pushed to attached UIs. The bridge is one-way: commands
// go through the REST surface, this channel only mirrors daemon state.
const (
	TypeRoster        = "roster"         // full roster snapshot
	TypePeerJoined    = "peer_joined"    // participant appeared
	TypePeerLeft      = "peer_left"      // participant vanished
	TypePresenceState = "presence_state" // stream connecting/connected/disconnected
	TypeBatch         = "new_batch"      // recommendation batch appended
	TypeSlideChanged  = "slide_changed"  // live navigation moved
)

type Message struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
}

type RosterPayload struct {
	SessionID    string               `json:"session_id"`
	Participants []domain.Participant `json:"participants"`
}

type PeerEventPayload struct {
	SessionID   string             `json:"session_id"`
	Participant domain.Participant `json:"participant"`
}

type PresenceStatePayload struct {
	SessionID string `json:"session_id"`
	State     string `json:"state"`
}

type BatchPayload struct {
	Label  string          `json:"label"`
	Slides []*domain.Slide `json:"slides"`
}

type SlideChangedPayload struct {
	SlideOrder int `json:"slide_order"`
}
