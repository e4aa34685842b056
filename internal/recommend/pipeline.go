package recommend

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/deck"
	"github.com/voltclass/presenterd/internal/domain"
)

// WindowRecorder finalizes the current audio window and starts the next one.
type WindowRecorder interface {
	FlushWindow(ctx context.Context) (string, error)
}

// Transcriber converts a finalized clip into text.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Generator produces deck suggestions from a transcript.
type Generator interface {
	GenerateSlides(ctx context.Context, language, text string) (api.GenerateResponse, error)
}

// Sink receives finished recommendation batches.
type Sink interface {
	AppendBatch(domain.RecommendationBatch)
}

const (
	// quickPollText is the fixed comprehension poll prepended to every batch.
	quickPollText = "Are you able to understand the lecture?"

	DefaultInterval = 2 * time.Minute
)

func quickPollOptions() []domain.Option {
	return []domain.Option{
		{Text: "Yes"},
		{Text: "Partially"},
		{Text: "No"},
	}
}

// Pipeline turns periodic audio windows into recommendation batches:
// flush the window recorder, transcribe the clip, generate suggestions,
// materialize them and append one batch per window. Each batch stands on
// its own; a failed window is logged and skipped, never merged into a
// neighbour and never fatal to the ticker.
type Pipeline struct {
	recorder    WindowRecorder
	transcriber Transcriber
	generator   Generator
	sink        Sink

	language string
	interval time.Duration

	windows int
}

type Options struct {
	Recorder    WindowRecorder
	Transcriber Transcriber
	Generator   Generator
	Sink        Sink
	Language    string
	Interval    time.Duration
}

func New(opts Options) *Pipeline {
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	if opts.Language == "" {
		opts.Language = "en"
	}
	return &Pipeline{
		recorder:    opts.Recorder,
		transcriber: opts.Transcriber,
		generator:   opts.Generator,
		sink:        opts.Sink,
		language:    opts.Language,
		interval:    opts.Interval,
	}
}

// Run fires a window every interval until ctx is cancelled. The window
// counter starts from zero on every Run, so batch labels restart with
// each live session.
func (p *Pipeline) Run(ctx context.Context) {
	p.windows = 0

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.RunWindow(ctx)
		}
	}
}

// RunWindow processes one audio window end to end. Every failure path
// only abandons this window's batch.
func (p *Pipeline) RunWindow(ctx context.Context) {
	p.windows++
	label := p.label(p.windows)

	clip, err := p.recorder.FlushWindow(ctx)
	if err != nil {
		slog.Warn("recommendation window lost: flush recorder", "window", label, "err", err)
		return
	}

	text, err := p.transcriber.Transcribe(ctx, clip)
	if err != nil {
		if errors.Is(err, domain.ErrTranscriptEmpty) {
			slog.Info("recommendation window skipped: no speech", "window", label)
		} else {
			slog.Warn("recommendation window lost: transcription", "window", label, "err", err)
		}
		return
	}

	resp, err := p.generator.GenerateSlides(ctx, p.language, text)
	if err != nil {
		slog.Warn("recommendation window lost: generation", "window", label, "err", err)
		return
	}

	poll := domain.NewFeedbackSlide(0, quickPollText, quickPollOptions())
	slides := append([]*domain.Slide{poll}, deck.Materialize(resp, 1)...)

	p.sink.AppendBatch(domain.RecommendationBatch{Label: label, Slides: slides})
	slog.Info("recommendation batch ready", "window", label, "slides", len(slides))
}

// label renders the elapsed-time range a window covers, e.g. "2-4 mins"
// for the second two-minute window.
func (p *Pipeline) label(window int) string {
	mins := int(p.interval / time.Minute)
	if mins <= 0 {
		mins = 1
	}
	return fmt.Sprintf("%d-%d mins", (window-1)*mins, window*mins)
}
