package domain

import (
	"strings"

	"github.com/google/uuid"
)

type SlideType string

const (
	SlideCanvas   SlideType = "canvas"
	SlideQuiz     SlideType = "quiz"
	SlideFeedback SlideType = "feedback"
)

// Slide is a tagged union: exactly one of Canvas or Question is set,
// selected by Type. Order is the zero-based presentation sequence and must
// stay equal to the slide's index in the deck after every mutation.
type Slide struct {
	ID    string    `json:"id"`
	Order int       `json:"slide_order"`
	Type  SlideType `json:"type"`

	// FileID is the storage key of a canvas slide's JSON blob; empty until
	// the slide's content is first uploaded.
	FileID string `json:"file_id,omitempty"`

	Canvas   *CanvasContent `json:"canvas,omitempty"`
	Question *Question      `json:"question,omitempty"`
}

type Question struct {
	ID      string   `json:"id,omitempty"`
	Text    string   `json:"text"`
	Options []Option `json:"options,omitempty"`
	// Answer holds the free-text response area of a feedback slide.
	Answer string `json:"answer,omitempty"`
}

type Option struct {
	ID      string `json:"id,omitempty"`
	Text    string `json:"text"`
	Correct bool   `json:"is_correct"`
}

// IsQuestion reports whether the slide carries quiz or feedback content.
func (s *Slide) IsQuestion() bool {
	return s.Type == SlideQuiz || s.Type == SlideFeedback
}

// TempID issues a local identifier for a slide that has not been persisted
// yet. The backend replaces it with its own id on the first save.
func TempID() string {
	return "local-" + uuid.NewString()
}

// IsTempID reports whether id was issued by TempID.
func IsTempID(id string) bool {
	return strings.HasPrefix(id, "local-")
}

// NewCanvasSlide returns an empty canvas slide at the given order.
func NewCanvasSlide(order int) *Slide {
	return &Slide{
		ID:     TempID(),
		Order:  order,
		Type:   SlideCanvas,
		Canvas: EmptyCanvas(),
	}
}

// NewQuizSlide returns a quiz slide with the given prompt and options.
func NewQuizSlide(order int, text string, opts []Option) *Slide {
	return &Slide{
		ID:       TempID(),
		Order:    order,
		Type:     SlideQuiz,
		Question: &Question{Text: text, Options: opts},
	}
}

// NewFeedbackSlide returns a free-text feedback slide.
func NewFeedbackSlide(order int, text string, opts []Option) *Slide {
	return &Slide{
		ID:       TempID(),
		Order:    order,
		Type:     SlideFeedback,
		Question: &Question{Text: text, Options: opts},
	}
}

// Clone returns a deep copy of the slide.
func (s *Slide) Clone() *Slide {
	cp := *s
	if s.Canvas != nil {
		cp.Canvas = s.Canvas.Clone()
	}
	if s.Question != nil {
		q := *s.Question
		q.Options = append([]Option(nil), s.Question.Options...)
		cp.Question = &q
	}
	return &cp
}
