package ws

import (
	"encoding/json"
	"time"

	"trashtalk/internal/app"
	"trashtalk/internal/domain"
)

// ClientMessage represents a message from client to server
type ClientMessage struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// ServerMessage represents a message from server to client
type ServerMessage struct {
	Type      domain.EventType `json:"type"`
	RoomCode  string           `json:"roomCode,omitempty"`
	Payload   interface{}      `json:"payload,omitempty"`
	Timestamp string           `json:"timestamp"`
}

// NewServerMessage wraps an event for the wire
func NewServerMessage(ev *domain.Event) *ServerMessage {
	ts := ev.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return &ServerMessage{
		Type:      ev.Type,
		RoomCode:  ev.RoomCode,
		Payload:   ev.Payload,
		Timestamp: ts.UTC().Format(time.RFC3339),
	}
}

// decodeIntent parses one inbound frame
func decodeIntent(data []byte) (app.Intent, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return app.Intent{}, err
	}
	if msg.Type == "" {
		return app.Intent{}, domain.ErrInvalidMessage
	}
	return app.Intent{Type: msg.Type, Payload: msg.Payload}, nil
}
