package http

import (
	"time"

	"github.com/voltclass/presenterd/internal/domain"
)

type CreateSlideRequest struct {
	Type    string              `json:"type"`
	Text    string              `json:"text,omitempty"`
	Options []CreateSlideOption `json:"options,omitempty"`
	Answer  string              `json:"answer,omitempty"`
	At      *int                `json:"at,omitempty"` // insertion index, append when absent
}

type CreateSlideOption struct {
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

type MoveSlideRequest struct {
	To int `json:"to"`
}

type LoadDeckRequest struct {
	PresentationID string `json:"presentation_id"`
}

type LoadDeckResponse struct {
	Title  string          `json:"title"`
	Slides []*domain.Slide `json:"slides"`
}

type SaveDeckRequest struct {
	PresentationID string `json:"presentation_id,omitempty"`
	Title          string `json:"title,omitempty"`
}

type SaveDeckResponse struct {
	PresentationID string `json:"presentation_id"`
}

type RegenerateRequest struct {
	Instruction string `json:"instruction"`
}

type GenerateDeckRequest struct {
	Text string `json:"text"`
}

type StartLiveRequest struct {
	PresentationID string `json:"presentation_id"`
	Record         bool   `json:"record"`
}

type MoveLiveRequest struct {
	SlideOrder int `json:"slide_order"`
}

type FinishLiveRequest struct {
	Background bool `json:"background"`
}

type QuickQuestionRequest struct {
	Batch     int    `json:"batch"`
	SlideID   string `json:"slide_id"`
	Placement string `json:"placement"` // next|end

	// content of a freshly authored question; used when slide_id is empty
	Text    string              `json:"text"`
	Options []CreateSlideOption `json:"options"`
	Answer  string              `json:"answer"`
}

type RosterResponse struct {
	State        string               `json:"state"`
	Participants []domain.Participant `json:"participants"`
}

type BatchItem struct {
	Index  int             `json:"index"`
	Label  string          `json:"label"`
	Slides []*domain.Slide `json:"slides"`
}

type DraftSaveRequest struct {
	PresentationID string `json:"presentation_id"`
	Title          string `json:"title"`
}

type DraftItem struct {
	PresentationID string    `json:"presentation_id"`
	Title          string    `json:"title"`
	UpdatedAt      time.Time `json:"updated_at"`
}
