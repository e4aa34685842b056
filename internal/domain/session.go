package domain

import "time"

// SessionDetails is created once per "start live" and discarded when the
// session finishes or the presenter exits.
type SessionDetails struct {
	SessionID      string    `json:"session_id"`
	InviteCode     string    `json:"invite_code"`
	PresentationID string    `json:"presentation_id,omitempty"`
	StartedAt      time.Time `json:"started_at"`
}

// Placement directs where a quick question lands during a live session.
type Placement string

const (
	// PlaceNext inserts immediately after the currently displayed slide.
	PlaceNext Placement = "next"
	// PlaceEnd appends after the last slide.
	PlaceEnd Placement = "end"
)
