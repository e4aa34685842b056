package domain

import "time"

type ParticipantStatus string

const (
	ParticipantActive ParticipantStatus = "ACTIVE"
	ParticipantIdle   ParticipantStatus = "IDLE"
	ParticipantLeft   ParticipantStatus = "LEFT"
)

// Participant is one entry of the live-session roster. Rosters are replaced
// wholesale on every snapshot; nothing here is patched incrementally.
type Participant struct {
	Username     string            `json:"username"`
	UserID       string            `json:"user_id,omitempty"`
	Name         string            `json:"name,omitempty"`
	Email        string            `json:"email,omitempty"`
	Status       ParticipantStatus `json:"status"`
	JoinedAt     *time.Time        `json:"joined_at,omitempty"`
	LastActiveAt *time.Time        `json:"last_active_at,omitempty"`
}

// Key is the stable identity of a participant across snapshots:
// user_id when the backend issued one, username otherwise.
func (p Participant) Key() string {
	if p.UserID != "" {
		return p.UserID
	}
	return p.Username
}
