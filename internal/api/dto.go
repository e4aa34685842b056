package api

import "encoding/json"

// SlidePayload is one slide of a save or insert request. ID is a pointer so
// new slides serialize an explicit null and the backend issues identifiers.
type SlidePayload struct {
	ID         *string          `json:"id"`
	SlideOrder int              `json:"slide_order"`
	Type       string           `json:"type"`
	FileID     string           `json:"file_id,omitempty"`
	Question   *QuestionPayload `json:"question,omitempty"`
}

type QuestionPayload struct {
	ID      *string         `json:"id,omitempty"`
	Text    string          `json:"text"`
	Options []OptionPayload `json:"options,omitempty"`
	Answer  string          `json:"answer,omitempty"`
}

type OptionPayload struct {
	ID      *string `json:"id,omitempty"`
	Text    string  `json:"text"`
	Correct bool    `json:"is_correct"`
}

type SlideRef struct {
	ID string `json:"id"`
}

type SavePresentationRequest struct {
	Title         string         `json:"title,omitempty"`
	AddedSlides   []SlidePayload `json:"added_slides"`
	UpdatedSlides []SlidePayload `json:"updated_slides"`
	DeletedSlides []SlideRef     `json:"deleted_slides"`
}

// SlideItem is the backend's view of one persisted slide; authoritative for
// id and slide_order after every mutating call.
type SlideItem struct {
	ID         string        `json:"id"`
	SlideOrder int           `json:"slide_order"`
	Type       string        `json:"type"`
	FileID     string        `json:"file_id,omitempty"`
	Question   *QuestionItem `json:"question,omitempty"`
}

type QuestionItem struct {
	ID      string       `json:"id"`
	Text    string       `json:"text"`
	Options []OptionItem `json:"options,omitempty"`
	Answer  string       `json:"answer,omitempty"`
}

type OptionItem struct {
	ID      string `json:"id"`
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

type PresentationResponse struct {
	ID     string      `json:"id"`
	Title  string      `json:"title"`
	Slides []SlideItem `json:"slides"`
}

type SessionResponse struct {
	SessionID  string `json:"session_id"`
	InviteCode string `json:"invite_code"`
}

type InsertSlideRequest struct {
	InsertAfterIndex int          `json:"insert_after_index"`
	Slide            SlidePayload `json:"slide"`
}

type InsertSlideResponse struct {
	Slides []SlideItem `json:"slides"`
}

type TranscriptionResponse struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

// GenerateRequest feeds a transcript (or an import) to the slide generator.
// InitialData is only set for single-slide regeneration.
type GenerateRequest struct {
	Language    string          `json:"language"`
	Text        string          `json:"text"`
	InitialData json.RawMessage `json:"initial_data,omitempty"`
}

type GeneratedSlide struct {
	Title    string            `json:"title,omitempty"`
	Elements []json.RawMessage `json:"elements"`
	AppState json.RawMessage   `json:"appState"`
}

type GeneratedQuestion struct {
	Type    string   `json:"type,omitempty"` // quiz (default) or feedback
	Text    string   `json:"question"`
	Options []string `json:"options,omitempty"`
	Answer  string   `json:"answer,omitempty"`
}

type GeneratedAssessment struct {
	Questions []GeneratedQuestion `json:"questions"`
}

type GenerateResponse struct {
	Slides     []GeneratedSlide    `json:"slides"`
	Assessment GeneratedAssessment `json:"assessment"`
}

type RegenerateResponse struct {
	Elements []json.RawMessage `json:"elements"`
	AppState json.RawMessage   `json:"appState"`
}
