package presence

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/voltclass/presenterd/internal/domain"
)

// Callbacks receive the lifecycle of one subscription. All of them are
// invoked from the stream's goroutine, strictly in arrival order.
type Callbacks struct {
	OnOpen   func()
	OnRoster func([]domain.Participant)
	OnError  func(error)
}

// Stream is a one-way server-push subscription scoped to a session. Run
// blocks until ctx is cancelled and owns its own reconnection policy, so
// the tracker's diffing logic stays transport-agnostic.
type Stream interface {
	Run(ctx context.Context, cb Callbacks)
}

// Factory builds a stream for a session id.
type Factory func(sessionID string) Stream

// SSEStream subscribes to the backend's text/event-stream channel. The
// browser original leaned on EventSource's built-in retry; here the policy
// is explicit: doubling delay from 1s capped at 30s, reset after a
// successful connect.
type SSEStream struct {
	url        string
	authHeader string
	http       *http.Client

	retryMin time.Duration
	retryMax time.Duration
}

func NewSSEStream(url, authHeader string) *SSEStream {
	return &SSEStream{
		url:        url,
		authHeader: authHeader,
		http:       &http.Client{},
		retryMin:   time.Second,
		retryMax:   30 * time.Second,
	}
}

func (s *SSEStream) Run(ctx context.Context, cb Callbacks) {
	backoff := s.retryMin
	for {
		connected, err := s.connect(ctx, cb)
		if ctx.Err() != nil {
			return
		}
		if cb.OnError != nil {
			cb.OnError(err)
		}
		if connected {
			backoff = s.retryMin
		}

		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		backoff *= 2
		if backoff > s.retryMax {
			backoff = s.retryMax
		}
	}
}

// connect holds one SSE connection until it drops. The bool reports
// whether the connection was ever established.
func (s *SSEStream) connect(ctx context.Context, cb Callbacks) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.url, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	if s.authHeader != "" {
		req.Header.Set("Authorization", s.authHeader)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("presence stream: status %d", resp.StatusCode)
	}

	if cb.OnOpen != nil {
		cb.OnOpen()
	}

	var event string
	var data strings.Builder
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case line == "":
			s.dispatch(event, data.String(), cb)
			event = ""
			data.Reset()
		case strings.HasPrefix(line, "event:"):
			event = strings.TrimSpace(strings.TrimPrefix(line, "event:"))
		case strings.HasPrefix(line, "data:"):
			if data.Len() > 0 {
				data.WriteByte('\n')
			}
			data.WriteString(strings.TrimSpace(strings.TrimPrefix(line, "data:")))
		}
		// comment lines (":keepalive") and unknown fields are skipped
	}
	return true, scanner.Err()
}

func (s *SSEStream) dispatch(event, data string, cb Callbacks) {
	if data == "" {
		return
	}
	roster, ok := ParseRoster(event, []byte(data))
	if !ok {
		return
	}
	if cb.OnRoster != nil {
		cb.OnRoster(roster)
	}
}

// ParseRoster extracts a roster snapshot from a stream message. Two topics
// carry rosters and both are equally authoritative: the bare "participants"
// array, and the composite "session_state" object embedding one.
func ParseRoster(event string, data []byte) ([]domain.Participant, bool) {
	switch event {
	case "participants", "":
		var roster []domain.Participant
		if err := json.Unmarshal(data, &roster); err != nil {
			return nil, false
		}
		return roster, true
	case "session_state":
		var state struct {
			Participants []domain.Participant `json:"participants"`
		}
		if err := json.Unmarshal(data, &state); err != nil || state.Participants == nil {
			return nil, false
		}
		return state.Participants, true
	default:
		return nil, false
	}
}
