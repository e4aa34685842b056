package ws

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/voltclass/presenterd/internal/domain"
	"github.com/voltclass/presenterd/internal/presence"
)

// SnapshotFunc produces the messages a UI needs to catch up right after
// attaching: current roster, presence state and accumulated batches.
type SnapshotFunc func() []Message

type Server struct {
	upgrader websocket.Upgrader
	hub      *Hub
	snapshot SnapshotFunc

	pingEvery time.Duration
}

func NewServer(hub *Hub, snapshot SnapshotFunc) *Server {
	return &Server{
		hub:      hub,
		snapshot: snapshot,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		pingEvery: 15 * time.Second,
	}
}

// WS endpoint: GET /ws/events
func (s *Server) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("ws upgrade failed", "err", err)
		return
	}

	c := newWsConn(conn)
	s.hub.Add(c)

	if s.snapshot != nil {
		for _, msg := range s.snapshot() {
			if err := c.Send(msg); err != nil {
				slog.Warn("ws send initial state failed", "err", err)
				break
			}
		}
	}

	go s.writeLoop(c)
	s.readLoop(c)

	s.hub.Remove(c)
	if err := c.Close(); err != nil {
		slog.Debug("ws close failed", "err", err)
	}
}

// PublishPresence mirrors one tracker notification to the UIs: the
// snapshot first, then an individual event per join and leave.
func (s *Server) PublishPresence(sessionID string, n presence.Notification) {
	s.hub.Broadcast(Message{
		Type:    TypeRoster,
		Payload: RosterPayload{SessionID: sessionID, Participants: n.Roster},
	})
	for _, p := range n.Joined {
		s.hub.Broadcast(Message{
			Type:    TypePeerJoined,
			Payload: PeerEventPayload{SessionID: sessionID, Participant: p},
		})
	}
	for _, p := range n.Left {
		s.hub.Broadcast(Message{
			Type:    TypePeerLeft,
			Payload: PeerEventPayload{SessionID: sessionID, Participant: p},
		})
	}
}

func (s *Server) PublishPresenceState(sessionID string, state presence.State) {
	s.hub.Broadcast(Message{
		Type:    TypePresenceState,
		Payload: PresenceStatePayload{SessionID: sessionID, State: state.String()},
	})
}

func (s *Server) PublishBatch(b domain.RecommendationBatch) {
	s.hub.Broadcast(Message{
		Type:    TypeBatch,
		Payload: BatchPayload{Label: b.Label, Slides: b.Slides},
	})
}

func (s *Server) PublishSlideChanged(order int) {
	s.hub.Broadcast(Message{
		Type:    TypeSlideChanged,
		Payload: SlideChangedPayload{SlideOrder: order},
	})
}

// readLoop drains the connection so pings/pongs work; inbound payloads
// are ignored, commands go through the HTTP surface.
func (s *Server) readLoop(c *wsConn) {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(1 << 20)
	c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(2 * s.pingEvery))
		return nil
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Server) writeLoop(c *wsConn) {
	ticker := time.NewTicker(s.pingEvery)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			_ = c.conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
		case <-c.closed:
			return
		}
	}
}

type wsConn struct {
	conn   *websocket.Conn
	sendMu chan struct{}
	closed chan struct{}
}

func newWsConn(c *websocket.Conn) *wsConn {
	return &wsConn{
		conn:   c,
		sendMu: make(chan struct{}, 1),
		closed: make(chan struct{}),
	}
}

func (c *wsConn) Send(msg Message) error {
	c.sendMu <- struct{}{}
	defer func() { <-c.sendMu }()
	c.conn.SetWriteDeadline(time.Now().Add(5 * time.Second))

	return c.conn.WriteJSON(msg)
}

func (c *wsConn) Close() error {
	select {
	case <-c.closed:
	default:
		close(c.closed)
	}

	return c.conn.Close()
}
