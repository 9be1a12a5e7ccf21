// Package websocket implements the Session Endpoint (C6): the
// wire-level duplex channel between a broadcast.Subscriber and a remote
// client, including heartbeats, idle timeout, and the client control
// frame protocol.
package websocket

import (
	"encoding/json"
	"time"

	"github.com/ajacobm/code-graph-mcp-sub002/domain/cdc"
	"github.com/ajacobm/code-graph-mcp-sub002/domain/graph"
	"github.com/ajacobm/code-graph-mcp-sub002/interfaces/broadcast"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// SessionState mirrors the per-session state machine from the design:
// handshaking -> catchup -> live -> draining -> closed.
type SessionState string

const (
	SessionHandshaking SessionState = "handshaking"
	SessionCatchup     SessionState = "catchup"
	SessionLive        SessionState = "live"
	SessionDraining    SessionState = "draining"
	SessionClosed      SessionState = "closed"
)

// ServerFrame is the JSON shape delivered for a CDC event, per the wire
// protocol in the external interfaces section.
type ServerFrame struct {
	EventID    int64       `json:"eventId"`
	Timestamp  string      `json:"timestamp"`
	Type       string      `json:"type"`
	EntityType string      `json:"entityType"`
	EntityID   string      `json:"entityId"`
	Data       interface{} `json:"data"`
}

// ControlFrame is the JSON shape for both server and client control
// messages.
type ControlFrame struct {
	Control    string          `json:"control,omitempty"`
	Types      []string        `json:"types,omitempty"`
	LastSeenID int64           `json:"lastSeenId,omitempty"`
	Raw        json.RawMessage `json:"-"`
}

const (
	writeWait       = 5 * time.Second
	maxMessageBytes = 256 * 1024
)

// Session is a single client's duplex connection. It owns the
// websocket.Conn and the broadcast.Subscriber it was handed at
// handshake time.
type Session struct {
	id     string
	conn   *websocket.Conn
	sub    *broadcast.Subscriber
	hub    *broadcast.Hub
	logger *zap.Logger

	heartbeat   time.Duration
	idleTimeout time.Duration

	lastClientFrame time.Time
	state           SessionState
}

// NewSession wires a websocket connection to a freshly created
// broadcast subscription.
func NewSession(conn *websocket.Conn, hub *broadcast.Hub, journal cdc.Journal, filter broadcast.Filter, lastSeenID int64, heartbeatSeconds, idleTimeoutSeconds int, logger *zap.Logger) *Session {
	id := uuid.New().String()
	return &Session{
		id:              id,
		conn:            conn,
		sub:             hub.Subscribe(id, filter, lastSeenID, journal),
		hub:             hub,
		logger:          logger,
		heartbeat:       time.Duration(heartbeatSeconds) * time.Second,
		idleTimeout:     time.Duration(idleTimeoutSeconds) * time.Second,
		lastClientFrame: time.Now(),
		state:           SessionHandshaking,
	}
}

// Run drives the session until the connection closes, the subscriber is
// disconnected, or the idle timeout elapses. It blocks the caller (meant
// to be invoked from its own goroutine per connection).
func (s *Session) Run() {
	s.state = SessionCatchup
	s.conn.SetReadLimit(maxMessageBytes)

	done := make(chan struct{})
	go s.readLoop(done)

	s.writeLoop(done)
}

func (s *Session) readLoop(done chan struct{}) {
	defer close(done)
	for {
		_, message, err := s.conn.ReadMessage()
		if err != nil {
			return
		}
		s.lastClientFrame = time.Now()
		s.handleClientFrame(message)
	}
}

func (s *Session) handleClientFrame(raw []byte) {
	var frame ControlFrame
	if err := json.Unmarshal(raw, &frame); err != nil {
		if s.logger != nil {
			s.logger.Debug("discarding malformed client frame", zap.Error(err))
		}
		return
	}

	switch frame.Control {
	case "ping":
		// lastClientFrame already updated by the caller; a heartbeat frame
		// is sent back on the next tick.
	case "ack":
		// Informational: client confirms processing up to LastSeenID.
	case "subscribe_filter":
		types := make([]cdc.EventType, 0, len(frame.Types))
		for _, t := range frame.Types {
			types = append(types, cdc.EventType(t))
		}
		s.hub.UpdateFilter(s.id, broadcast.NewFilter(types))
	}
}

func (s *Session) writeLoop(done chan struct{}) {
	ticker := time.NewTicker(s.idleCheckInterval())
	defer ticker.Stop()
	defer s.close()

	heartbeatTicker := time.NewTicker(s.heartbeatOrDefault())
	defer heartbeatTicker.Stop()

	for {
		select {
		case <-done:
			return

		case <-s.sub.Done():
			return

		case d, ok := <-s.sub.Events():
			if !ok {
				return
			}
			s.state = SessionLive
			if err := s.writeDelivery(d); err != nil {
				return
			}

		case <-heartbeatTicker.C:
			if err := s.writeControl("heartbeat"); err != nil {
				return
			}

		case <-ticker.C:
			if time.Since(s.lastClientFrame) > s.idleTimeoutOrDefault() {
				if s.logger != nil {
					s.logger.Info("session idle timeout, closing", zap.String("sessionId", s.id))
				}
				return
			}
		}
	}
}

func (s *Session) writeDelivery(d broadcast.Delivery) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if d.Control != "" {
		return s.writeControl(d.Control)
	}
	frame := ServerFrame{
		EventID:    d.Event.ID,
		Timestamp:  d.Event.Timestamp.UTC().Format(time.RFC3339Nano),
		Type:       string(d.Event.Type),
		EntityType: entityTypeOf(d.Event.Type),
		EntityID:   entityIDOf(d.Event),
		Data:       d.Event.Data,
	}
	return s.conn.WriteJSON(frame)
}

func (s *Session) writeControl(control string) error {
	s.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return s.conn.WriteJSON(ControlFrame{Control: control})
}

func (s *Session) close() {
	s.state = SessionClosed
	s.hub.Unsubscribe(s.id)
	s.conn.Close()
}

func (s *Session) idleCheckInterval() time.Duration {
	if s.idleTimeout <= 0 {
		return 30 * time.Second
	}
	return s.idleTimeout / 4
}

func (s *Session) idleTimeoutOrDefault() time.Duration {
	if s.idleTimeout <= 0 {
		return 60 * time.Second
	}
	return s.idleTimeout
}

func (s *Session) heartbeatOrDefault() time.Duration {
	if s.heartbeat <= 0 {
		return 30 * time.Second
	}
	return s.heartbeat
}

func entityTypeOf(t cdc.EventType) string {
	switch t {
	case cdc.EventNodeAdded, cdc.EventNodeUpdated, cdc.EventNodeRemoved:
		return "node"
	case cdc.EventRelationshipAdded, cdc.EventRelationshipRemoved:
		return "relationship"
	default:
		return "batch"
	}
}

func entityIDOf(ev *cdc.Event) string {
	switch data := ev.Data.(type) {
	case graph.Node:
		return data.ID
	case graph.Relationship:
		return data.SourceID + "->" + data.TargetID
	case cdc.NodeRemovedPayload:
		return data.NodeID
	case cdc.RelationshipRemovedPayload:
		return data.SourceID + "->" + data.TargetID
	default:
		return ev.BatchID
	}
}
