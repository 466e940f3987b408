package session

import "github.com/google/uuid"

// EventType discriminates the wire messages a Session broadcasts over
// WebSocket, named after the public actions from the engine's Event union
// the way the teacher names its GameEventType constants.
type EventType string

const (
	EventCallResolved    EventType = "call_resolved"
	EventDoubleRevealed  EventType = "double_revealed"
	EventSwapped         EventType = "swapped"
	EventSignalBroadcast EventType = "signal_broadcast"
	EventSyncState       EventType = "sync_state"
	EventSessionEnded    EventType = "session_ended"
	EventContradiction   EventType = "contradiction"
	EventBudgetExceeded  EventType = "budget_exceeded"
)

// WireUser identifies a seated player within a broadcast payload.
type WireUser struct {
	PlayerID uuid.UUID `json:"playerId"`
	Seat     int       `json:"seat"`
}

// SessionEvent is the envelope every broadcast message uses.
type SessionEvent struct {
	Type    EventType   `json:"type"`
	Seq     int         `json:"seq,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
	State   *ObfState   `json:"state,omitempty"`
}
