package models

import (
	"encoding/json"
	"time"
)

// EventType identifies the kind of frame exchanged over the push channel.
type EventType string

const (
	EventMessage    EventType = "message"
	EventUpdate     EventType = "update"
	EventConnection EventType = "connection"
	EventFile       EventType = "file"
	EventError      EventType = "error"
)

// Event is the JSON envelope for every frame on the push channel. Payload is
// kept raw on the inbound path so each handler decodes only the shape it
// expects.
type Event struct {
	Type    EventType       `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

// NewEvent marshals payload into an Event envelope.
func NewEvent(t EventType, payload interface{}) (Event, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: t, Payload: raw}, nil
}

// ConnectionPayload carries liveness and announce information on
// "connection" events. All fields are optional; a ping frame sets Ping plus
// Time, the pong reply sets Pong plus Time, and the client announce sets
// Status plus Client.
type ConnectionPayload struct {
	Status string     `json:"status,omitempty"`
	Client string     `json:"client,omitempty"`
	Ping   bool       `json:"ping,omitempty"`
	Pong   bool       `json:"pong,omitempty"`
	Time   *time.Time `json:"time,omitempty"`
}

// ErrorPayload carries a user-facing failure on "error" events. Cooldown
// marks rate-limit advisories, which clients present non-destructively.
type ErrorPayload struct {
	Message  string `json:"message"`
	Cooldown bool   `json:"cooldown,omitempty"`
	Details  string `json:"details,omitempty"`
}
