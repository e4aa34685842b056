package presence

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/samber/lo"

	"github.com/voltclass/presenterd/internal/domain"
)

type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// Notification is one derived presence update: the authoritative roster
// plus who appeared and who vanished since the previous snapshot.
type Notification struct {
	Roster []domain.Participant
	Joined []domain.Participant
	Left   []domain.Participant
}

// Tracker maintains the live roster of a session from snapshot messages
// and derives join/leave events by diffing successive snapshots on the
// user_id-falling-back-to-username identity key. It re-enters connecting
// whenever a new session id is adopted.
type Tracker struct {
	factory     Factory
	notify      func(Notification)
	notifyState func(sessionID string, s State)

	mu        sync.Mutex
	state     State
	sessionID string
	roster    []domain.Participant
	prev      map[string]domain.Participant // nil = no baseline, first snapshot is quiet
	cancel    context.CancelFunc
	done      chan struct{}
}

func NewTracker(factory Factory, notify func(Notification)) *Tracker {
	return &Tracker{factory: factory, notify: notify}
}

// OnStateChange registers a listener fired whenever the stream moves
// between disconnected, connecting and connected. Register it before the
// first SetSession.
func (t *Tracker) OnStateChange(fn func(sessionID string, s State)) {
	t.mu.Lock()
	t.notifyState = fn
	t.mu.Unlock()
}

// setStateLocked records a transition and returns the listener call to
// fire once t.mu is released; nil when the state did not change.
func (t *Tracker) setStateLocked(s State) func() {
	if t.state == s {
		return nil
	}
	t.state = s
	fn, sessionID := t.notifyState, t.sessionID
	if fn == nil {
		return nil
	}
	return func() { fn(sessionID, s) }
}

// SetSession switches the tracker to a new session id: the previous
// subscription is torn down deterministically, the roster and diff
// baseline are cleared, and a fresh stream is opened.
func (t *Tracker) SetSession(sessionID string) {
	t.teardown()

	t.mu.Lock()
	t.sessionID = sessionID
	t.roster = nil
	t.prev = nil
	if sessionID == "" {
		fire := t.setStateLocked(StateDisconnected)
		t.mu.Unlock()
		if fire != nil {
			fire()
		}
		return
	}
	fire := t.setStateLocked(StateConnecting)

	ctx, cancel := context.WithCancel(context.Background())
	t.cancel = cancel
	done := make(chan struct{})
	t.done = done
	t.mu.Unlock()
	if fire != nil {
		fire()
	}

	stream := t.factory(sessionID)
	go func() {
		defer close(done)
		stream.Run(ctx, Callbacks{
			OnOpen:   t.handleOpen,
			OnRoster: t.handleRoster,
			OnError:  t.handleError,
		})
	}()
}

// Close shuts the subscription down. Safe to call repeatedly.
func (t *Tracker) Close() {
	t.teardown()

	t.mu.Lock()
	t.sessionID = ""
	t.roster = nil
	t.prev = nil
	fire := t.setStateLocked(StateDisconnected)
	t.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (t *Tracker) teardown() {
	t.mu.Lock()
	cancel, done := t.cancel, t.done
	t.cancel, t.done = nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Roster returns a copy of the last snapshot.
func (t *Tracker) Roster() []domain.Participant {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]domain.Participant(nil), t.roster...)
}

func (t *Tracker) handleOpen() {
	t.mu.Lock()
	fire := t.setStateLocked(StateConnected)
	t.mu.Unlock()
	if fire != nil {
		fire()
	}
}

func (t *Tracker) handleRoster(roster []domain.Participant) {
	t.mu.Lock()
	byKey := lo.KeyBy(roster, func(p domain.Participant) string { return p.Key() })

	var joined, left []domain.Participant
	if t.prev != nil {
		for key, p := range byKey {
			if _, ok := t.prev[key]; !ok {
				joined = append(joined, p)
			}
		}
		for key, p := range t.prev {
			if _, ok := byKey[key]; !ok {
				left = append(left, p)
			}
		}
	}
	sortByKey(joined)
	sortByKey(left)

	t.roster = append([]domain.Participant(nil), roster...)
	t.prev = byKey
	notify := t.notify
	t.mu.Unlock()

	if notify != nil {
		notify(Notification{Roster: roster, Joined: joined, Left: left})
	}
}

// handleError clears the diff baseline so a reconnect does not replay the
// whole roster as joins against stale state.
func (t *Tracker) handleError(err error) {
	t.mu.Lock()
	t.prev = nil
	sessionID := t.sessionID
	fire := t.setStateLocked(StateDisconnected)
	t.mu.Unlock()
	if fire != nil {
		fire()
	}

	slog.Warn("presence stream dropped", "session_id", sessionID, "err", err)
}

func sortByKey(ps []domain.Participant) {
	sort.Slice(ps, func(i, j int) bool { return ps[i].Key() < ps[j].Key() })
}
