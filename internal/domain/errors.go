package domain

import "errors"

var (
	ErrSlideNotFound = errors.New("slide not found")
	ErrBatchNotFound = errors.New("recommendation batch not found")

	// ErrNotCanvasSlide rejects regeneration of quiz/feedback slides
	// before any network call is made.
	ErrNotCanvasSlide   = errors.New("slide is not a canvas slide")
	ErrNotQuestionSlide = errors.New("slide is not a question slide")

	ErrNoActiveSession = errors.New("no active live session")
	ErrSessionActive   = errors.New("live session already active")

	ErrSaveInProgress = errors.New("save already in progress")

	// ErrTranscriptEmpty marks an audio window whose transcription produced
	// no usable text; the window is skipped silently.
	ErrTranscriptEmpty = errors.New("transcript empty")

	ErrMicUnavailable = errors.New("microphone unavailable")
)
