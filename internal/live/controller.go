package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/store"
)

// SessionAPI is the backend surface the controller drives.
type SessionAPI interface {
	CreateSession(ctx context.Context, presentationID string) (api.SessionResponse, error)
	StartSession(ctx context.Context, sessionID string) error
	MoveToSlide(ctx context.Context, sessionID string, order int) error
	FinishSession(ctx context.Context, sessionID string) error
	FinishWithNotification(ctx context.Context, sessionID, transcript string) error
}

// Recorder is the paired session+window capture (audio.Dual).
type Recorder interface {
	Start() error
	Pause() error
	Resume() error
	Stop() (string, error)
}

type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Recommender runs the windowed suggestion loop until its context ends.
type Recommender interface {
	Run(ctx context.Context)
}

// PresenceTracker follows the active session id (presence.Tracker).
type PresenceTracker interface {
	SetSession(sessionID string)
}

// Controller owns the live-session lifecycle: it opens and drives the
// backend session, points the presence tracker at it, and runs the
// recording pair plus the recommendation loop while the session lasts.
// Teardown is synchronous for everything except the background finish's
// transcript handover.
type Controller struct {
	backend     SessionAPI
	store       *store.SlideStore
	tracker     PresenceTracker
	recorder    Recorder
	pipeline    Recommender
	transcriber Transcriber

	finishTimeout time.Duration

	mu             sync.Mutex
	session        *domain.SessionDetails
	finishing      bool
	recording      bool
	clip           string // session-long clip path, set on media stop
	cancelPipeline context.CancelFunc
	pipelineDone   chan struct{}
}

type Options struct {
	Backend     SessionAPI
	Store       *store.SlideStore
	Tracker     PresenceTracker
	Recorder    Recorder // nil disables recording entirely
	Pipeline    Recommender
	Transcriber Transcriber

	// FinishTimeout bounds the background finish's transcription and
	// notification calls, which outlive the originating request.
	FinishTimeout time.Duration
}

func NewController(opts Options) *Controller {
	if opts.FinishTimeout <= 0 {
		opts.FinishTimeout = 5 * time.Minute
	}
	return &Controller{
		backend:       opts.Backend,
		store:         opts.Store,
		tracker:       opts.Tracker,
		recorder:      opts.Recorder,
		pipeline:      opts.Pipeline,
		transcriber:   opts.Transcriber,
		finishTimeout: opts.FinishTimeout,
	}
}

// Start opens a live session for the presentation. With record set the
// capture pair and the recommendation loop are started too; a failing
// microphone only disables recording, the session itself proceeds.
func (c *Controller) Start(ctx context.Context, presentationID string, record bool) (domain.SessionDetails, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return domain.SessionDetails{}, domain.ErrSessionActive
	}

	resp, err := c.backend.CreateSession(ctx, presentationID)
	if err != nil {
		return domain.SessionDetails{}, fmt.Errorf("create session: %w", err)
	}
	if err := c.backend.StartSession(ctx, resp.SessionID); err != nil {
		return domain.SessionDetails{}, fmt.Errorf("start session: %w", err)
	}

	details := domain.SessionDetails{
		SessionID:      resp.SessionID,
		InviteCode:     resp.InviteCode,
		PresentationID: presentationID,
		StartedAt:      time.Now(),
	}
	c.session = &details
	c.clip = ""

	c.store.ClearBatches()
	if slides := c.store.Slides(); len(slides) > 0 {
		_ = c.store.Select(slides[0].ID)
	}
	c.tracker.SetSession(resp.SessionID)

	if record && c.recorder != nil {
		if err := c.recorder.Start(); err != nil {
			slog.Warn("recording unavailable, session continues without audio", "session_id", resp.SessionID, "err", err)
		} else {
			c.recording = true
			c.startPipelineLocked()
		}
	}

	slog.Info("live session started",
		"session_id", details.SessionID,
		"invite_code", details.InviteCode,
		"recording", c.recording,
	)
	return details, nil
}

func (c *Controller) startPipelineLocked() {
	if c.pipeline == nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	c.cancelPipeline = cancel
	c.pipelineDone = done
	go func() {
		defer close(done)
		c.pipeline.Run(ctx)
	}()
}

// Session returns the active session details, if any.
func (c *Controller) Session() (domain.SessionDetails, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.session == nil {
		return domain.SessionDetails{}, false
	}
	return *c.session, true
}

// Recording reports whether the capture pair is running for this session.
func (c *Controller) Recording() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.recording
}

// MoveTo navigates the running session to the slide at the given order
// and moves the local selection with it.
func (c *Controller) MoveTo(ctx context.Context, order int) error {
	c.mu.Lock()
	session := c.session
	c.mu.Unlock()
	if session == nil {
		return domain.ErrNoActiveSession
	}

	if err := c.backend.MoveToSlide(ctx, session.SessionID, order); err != nil {
		return err
	}
	for _, sl := range c.store.Slides() {
		if sl.Order == order {
			return c.store.Select(sl.ID)
		}
	}
	return domain.ErrSlideNotFound
}

// Pause suspends both recorders; a paused stretch produces no audio in
// either the session clip or the active window.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return nil
	}
	return c.recorder.Pause()
}

func (c *Controller) Resume() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.recording {
		return nil
	}
	return c.recorder.Resume()
}

// Finish closes the live session. Foreground blocks until the session
// transcript (when one was recorded) has been handed to the backend for
// the participant summary. Background stops all media and the presence
// stream synchronously but returns immediately, clearing the live state
// only once the detached transcript handover finishes, so there is
// exactly one cleanup. A finish that overlaps one already underway
// reports ErrNoActiveSession.
func (c *Controller) Finish(ctx context.Context, background bool) error {
	c.mu.Lock()
	if c.session == nil || c.finishing {
		c.mu.Unlock()
		return domain.ErrNoActiveSession
	}
	c.finishing = true
	session := *c.session
	c.stopMediaLocked()
	clip := c.clip
	c.mu.Unlock()

	c.tracker.SetSession("")

	if !background {
		c.notifyFinish(ctx, session.SessionID, clip)
		c.clearSession()
		return nil
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), c.finishTimeout)
		defer cancel()
		c.notifyFinish(ctx, session.SessionID, clip)
		c.clearSession()
		slog.Info("background finish completed", "session_id", session.SessionID)
	}()
	return nil
}

// notifyFinish transcribes the session clip and closes the session with
// the transcript attached; without a usable transcript the session is
// closed plainly.
func (c *Controller) notifyFinish(ctx context.Context, sessionID, clip string) {
	transcript := ""
	if clip != "" && c.transcriber != nil {
		text, err := c.transcriber.Transcribe(ctx, clip)
		if err != nil {
			slog.Warn("session transcript unavailable", "session_id", sessionID, "err", err)
		} else {
			transcript = text
		}
	}

	var err error
	if transcript != "" {
		err = c.backend.FinishWithNotification(ctx, sessionID, transcript)
	} else {
		err = c.backend.FinishSession(ctx, sessionID)
	}
	if err != nil {
		slog.Error("finish session", "session_id", sessionID, "err", err)
	}
}

// SessionClip returns the path of the recorded session audio, available
// after media has been stopped.
func (c *Controller) SessionClip() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clip, c.clip != ""
}

// stopMediaLocked halts the recommendation loop and both recorders.
// State is claimed under the lock first so a concurrent finish cannot
// stop the same media twice; the lock is released while waiting on the
// pipeline goroutine and the recorder processes.
func (c *Controller) stopMediaLocked() {
	recording := c.recording
	c.recording = false
	cancel := c.cancelPipeline
	done := c.pipelineDone
	c.cancelPipeline = nil
	c.pipelineDone = nil

	c.mu.Unlock()
	if cancel != nil {
		cancel()
		<-done
	}
	var path string
	if recording {
		var err error
		path, err = c.recorder.Stop()
		if err != nil {
			slog.Warn("stop recorders", "err", err)
		}
	}
	c.mu.Lock()
	if recording {
		c.clip = path
	}
}

func (c *Controller) clearSession() {
	c.mu.Lock()
	c.session = nil
	c.finishing = false
	c.mu.Unlock()
}

// Close tears down any active session locally without waiting for the
// backend: media and presence stop synchronously. Safe to call twice.
func (c *Controller) Close() {
	c.mu.Lock()
	if c.session == nil || c.finishing {
		c.mu.Unlock()
		return
	}
	c.finishing = true
	sessionID := c.session.SessionID
	c.stopMediaLocked()
	c.session = nil
	c.finishing = false
	c.mu.Unlock()

	c.tracker.SetSession("")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.backend.FinishSession(ctx, sessionID); err != nil {
		slog.Warn("finish session on close", "session_id", sessionID, "err", err)
	}
}
