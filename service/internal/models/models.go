// Package models holds the persistence and wire-transfer shapes shared
// across the service layer: accounts, game sessions, and logged events.
package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/ettoremodina/bombbuster/engine"
)

// Player is a registered account. PasswordHash is bcrypt output and is
// never serialized to JSON.
type Player struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// SessionStatus is the lifecycle phase of a GameSession.
type SessionStatus string

const (
	SessionPending  SessionStatus = "pending"
	SessionActive   SessionStatus = "active"
	SessionWon      SessionStatus = "won"
	SessionLost     SessionStatus = "lost"
	SessionAbandoned SessionStatus = "abandoned"
)

// GameSession is the persisted record of one play of the inference game.
// Deck and Wires are the two pieces of own-hand/config state spec.md
// §4.10 requires alongside the EventLog for a restart to reconstruct a
// session exactly: Deck rebuilds the immutable engine.Config, Wires
// rebuilds each seat's own-hand Orchestrator seed.
type GameSession struct {
	ID        uuid.UUID            `json:"id"`
	HostID    uuid.UUID            `json:"hostId"`
	Status    SessionStatus        `json:"status"`
	NPlayers  int                  `json:"nPlayers"`
	HandSize  int                  `json:"handSize"`
	Strikes   int                  `json:"strikes"`
	LMax      int                  `json:"lMax"`
	Mode      string               `json:"mode"`
	Deck      map[engine.Value]int `json:"deck"`
	Wires     [][]engine.Value     `json:"wires"`
	CreatedAt time.Time            `json:"createdAt"`
	EndedAt   *time.Time           `json:"endedAt,omitempty"`
}

// PlayerSeat binds a registered Player to a seat index within a session.
type PlayerSeat struct {
	SessionID uuid.UUID `json:"sessionId"`
	PlayerID  uuid.UUID `json:"playerId"`
	Seat      int       `json:"seat"`
}

// StoredEvent is the persisted row shape for one EventLog entry, keyed by
// session and sequence number so session.Reconstruct can rebuild state
// after a restart.
type StoredEvent struct {
	SessionID uuid.UUID `json:"sessionId"`
	Seq       int       `json:"seq"`
	Payload   []byte    `json:"payload"` // JSON-encoded engine.Event
	LoggedAt  time.Time `json:"loggedAt"`
}
