package live

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/voltclass/presenterd/internal/api"
	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/store"
)

type fakeSessionAPI struct {
	mu          sync.Mutex
	createErr   error
	finished    []string
	notified    map[string]string // session id -> transcript
	moves       []int
	starts      int
	unblockNote chan struct{} // when set, FinishWithNotification blocks on it
}

func (f *fakeSessionAPI) CreateSession(_ context.Context, presentationID string) (api.SessionResponse, error) {
	if f.createErr != nil {
		return api.SessionResponse{}, f.createErr
	}
	return api.SessionResponse{SessionID: "sess-1", InviteCode: "482913"}, nil
}

func (f *fakeSessionAPI) StartSession(context.Context, string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.starts++
	return nil
}

func (f *fakeSessionAPI) MoveToSlide(_ context.Context, _ string, order int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.moves = append(f.moves, order)
	return nil
}

func (f *fakeSessionAPI) FinishSession(_ context.Context, sessionID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.finished = append(f.finished, sessionID)
	return nil
}

func (f *fakeSessionAPI) FinishWithNotification(_ context.Context, sessionID, transcript string) error {
	if f.unblockNote != nil {
		<-f.unblockNote
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.notified == nil {
		f.notified = make(map[string]string)
	}
	f.notified[sessionID] = transcript
	return nil
}

type fakeDual struct {
	mu       sync.Mutex
	startErr error
	running  bool
	pauses   int
	resumes  int
	stops    int
}

func (f *fakeDual) Start() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.startErr != nil {
		return f.startErr
	}
	f.running = true
	return nil
}

func (f *fakeDual) Pause() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pauses++
	return nil
}

func (f *fakeDual) Resume() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.resumes++
	return nil
}

func (f *fakeDual) Stop() (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stops++
	if !f.running {
		return "", nil
	}
	f.running = false
	return "/tmp/session-001.ogg", nil
}

type fakeRecommender struct {
	mu   sync.Mutex
	runs int
}

func (f *fakeRecommender) Run(ctx context.Context) {
	f.mu.Lock()
	f.runs++
	f.mu.Unlock()
	<-ctx.Done()
}

func (f *fakeRecommender) runCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.runs
}

type fakeLiveTranscriber struct {
	text string
	err  error
}

func (f *fakeLiveTranscriber) Transcribe(context.Context, string) (string, error) {
	return f.text, f.err
}

type fakePresence struct {
	mu       sync.Mutex
	sessions []string
}

func (f *fakePresence) SetSession(sessionID string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sessions = append(f.sessions, sessionID)
}

func (f *fakePresence) last() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.sessions) == 0 {
		return ""
	}
	return f.sessions[len(f.sessions)-1]
}

func seededStore(t *testing.T) *store.SlideStore {
	t.Helper()
	st := store.NewSlideStore()
	st.Load([]*domain.Slide{
		{ID: "a", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas()},
		{ID: "b", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas()},
		{ID: "c", Type: domain.SlideCanvas, Canvas: domain.EmptyCanvas()},
	})
	return st
}

func newTestController(backend *fakeSessionAPI, st *store.SlideStore, rec *fakeDual) (*Controller, *fakePresence, *fakeRecommender) {
	tracker := &fakePresence{}
	pipe := &fakeRecommender{}
	c := NewController(Options{
		Backend:     backend,
		Store:       st,
		Tracker:     tracker,
		Recorder:    rec,
		Pipeline:    pipe,
		Transcriber: &fakeLiveTranscriber{text: "full lecture"},
	})
	return c, tracker, pipe
}

func TestStartOpensSessionAndPointsPresence(t *testing.T) {
	backend := &fakeSessionAPI{}
	st := seededStore(t)
	st.AppendBatch(domain.RecommendationBatch{Label: "stale"})
	c, tracker, pipe := newTestController(backend, st, &fakeDual{})

	details, err := c.Start(context.Background(), "pres-1", true)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if details.SessionID != "sess-1" || details.InviteCode != "482913" {
		t.Errorf("details = %+v", details)
	}
	if tracker.last() != "sess-1" {
		t.Errorf("presence session = %q, want sess-1", tracker.last())
	}
	if len(st.Batches()) != 0 {
		t.Error("stale recommendation batches survived session start")
	}
	cur, ok := st.Current()
	if !ok || cur.ID != "a" {
		t.Errorf("selection = %+v, want first slide", cur)
	}
	if !c.Recording() {
		t.Error("recording should be active")
	}

	deadline := time.After(time.Second)
	for pipe.runCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("recommendation loop never started")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestStartSurvivesMicFailure(t *testing.T) {
	backend := &fakeSessionAPI{}
	rec := &fakeDual{startErr: domain.ErrMicUnavailable}
	c, _, pipe := newTestController(backend, seededStore(t), rec)

	if _, err := c.Start(context.Background(), "pres-1", true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if c.Recording() {
		t.Error("recording should be disabled when the microphone fails")
	}
	if pipe.runCount() != 0 {
		t.Error("recommendation loop must not run without audio")
	}
	if _, ok := c.Session(); !ok {
		t.Error("session should still be active")
	}
}

func TestStartRejectsSecondSession(t *testing.T) {
	c, _, _ := newTestController(&fakeSessionAPI{}, seededStore(t), &fakeDual{})
	if _, err := c.Start(context.Background(), "pres-1", false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if _, err := c.Start(context.Background(), "pres-1", false); !errors.Is(err, domain.ErrSessionActive) {
		t.Fatalf("want ErrSessionActive, got %v", err)
	}
}

func TestMoveToNavigatesBackendAndSelection(t *testing.T) {
	backend := &fakeSessionAPI{}
	st := seededStore(t)
	c, _, _ := newTestController(backend, st, &fakeDual{})

	if err := c.MoveTo(context.Background(), 1); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("want ErrNoActiveSession, got %v", err)
	}

	if _, err := c.Start(context.Background(), "pres-1", false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if err := c.MoveTo(context.Background(), 2); err != nil {
		t.Fatalf("MoveTo: %v", err)
	}
	if len(backend.moves) != 1 || backend.moves[0] != 2 {
		t.Errorf("backend moves = %v", backend.moves)
	}
	cur, _ := st.Current()
	if cur.ID != "c" {
		t.Errorf("selection = %q, want c", cur.ID)
	}
}

func TestPauseResumeOnlyWhileRecording(t *testing.T) {
	rec := &fakeDual{}
	c, _, _ := newTestController(&fakeSessionAPI{}, seededStore(t), rec)

	if _, err := c.Start(context.Background(), "pres-1", false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer c.Close()

	if err := c.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if rec.pauses != 0 {
		t.Error("pause reached the recorder while not recording")
	}
}

func TestFinishForegroundHandsOverTranscript(t *testing.T) {
	backend := &fakeSessionAPI{}
	rec := &fakeDual{}
	c, tracker, _ := newTestController(backend, seededStore(t), rec)

	if _, err := c.Start(context.Background(), "pres-1", true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Finish(context.Background(), false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if got := backend.notified["sess-1"]; got != "full lecture" {
		t.Errorf("transcript = %q, want %q", got, "full lecture")
	}
	if _, ok := c.Session(); ok {
		t.Error("session should be cleared")
	}
	if tracker.last() != "" {
		t.Error("presence should be detached")
	}
	if rec.stops == 0 {
		t.Error("recorders were never stopped")
	}
	clip, ok := c.SessionClip()
	if !ok || clip != "/tmp/session-001.ogg" {
		t.Errorf("session clip = %q, %v", clip, ok)
	}
}

func TestFinishFallsBackWithoutTranscript(t *testing.T) {
	backend := &fakeSessionAPI{}
	c := NewController(Options{
		Backend:     backend,
		Store:       seededStore(t),
		Tracker:     &fakePresence{},
		Recorder:    &fakeDual{},
		Pipeline:    &fakeRecommender{},
		Transcriber: &fakeLiveTranscriber{err: domain.ErrTranscriptEmpty},
	})

	if _, err := c.Start(context.Background(), "pres-1", true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Finish(context.Background(), false); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	if len(backend.finished) != 1 {
		t.Fatalf("plain finish calls = %d, want 1", len(backend.finished))
	}
	if len(backend.notified) != 0 {
		t.Error("notification must not fire without a transcript")
	}
}

func TestFinishBackgroundClearsStateOnlyWhenDone(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeSessionAPI{unblockNote: release}
	rec := &fakeDual{}
	c, _, _ := newTestController(backend, seededStore(t), rec)

	if _, err := c.Start(context.Background(), "pres-1", true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Finish(context.Background(), true); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// Media stops synchronously even on the background path.
	rec.mu.Lock()
	stopped := rec.stops > 0
	rec.mu.Unlock()
	if !stopped {
		t.Fatal("recorders still running after background finish")
	}
	if _, ok := c.Session(); !ok {
		t.Fatal("live state cleared before the background handover completed")
	}

	close(release)
	deadline := time.After(time.Second)
	for {
		if _, ok := c.Session(); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("live state never cleared")
		case <-time.After(5 * time.Millisecond):
		}
	}
	backend.mu.Lock()
	defer backend.mu.Unlock()
	if backend.notified["sess-1"] != "full lecture" {
		t.Errorf("transcript = %q", backend.notified["sess-1"])
	}
}

func TestFinishRejectsOverlappingFinish(t *testing.T) {
	release := make(chan struct{})
	backend := &fakeSessionAPI{unblockNote: release}
	c, _, _ := newTestController(backend, seededStore(t), &fakeDual{})

	if _, err := c.Start(context.Background(), "pres-1", true); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := c.Finish(context.Background(), true); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	// The handover is still in flight; a second finish must not reach
	// the backend again.
	if err := c.Finish(context.Background(), false); !errors.Is(err, domain.ErrNoActiveSession) {
		t.Fatalf("overlapping Finish: %v, want ErrNoActiveSession", err)
	}
	c.Close()

	close(release)
	deadline := time.After(time.Second)
	for {
		if _, ok := c.Session(); !ok {
			break
		}
		select {
		case <-deadline:
			t.Fatal("live state never cleared")
		case <-time.After(5 * time.Millisecond):
		}
	}

	backend.mu.Lock()
	defer backend.mu.Unlock()
	if len(backend.notified) != 1 {
		t.Errorf("notified finishes = %d, want 1", len(backend.notified))
	}
	if len(backend.finished) != 0 {
		t.Errorf("plain finishes = %d, want 0", len(backend.finished))
	}
}

func TestCloseIsIdempotent(t *testing.T) {
	backend := &fakeSessionAPI{}
	c, _, _ := newTestController(backend, seededStore(t), &fakeDual{})

	if _, err := c.Start(context.Background(), "pres-1", false); err != nil {
		t.Fatalf("Start: %v", err)
	}
	c.Close()
	c.Close()

	if len(backend.finished) != 1 {
		t.Fatalf("finish calls = %d, want 1", len(backend.finished))
	}
}
