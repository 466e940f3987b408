// Package session wires one running BombBuster game to its N per-player
// engine.Orchestrator instances, persistence, and WebSocket broadcast —
// the service-layer analogue of the teacher's internal/game package,
// generalized from one shared CambiaGame to one Orchestrator per seat
// (spec.md §3's per-player belief perspective).
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/ettoremodina/bombbuster/engine"
	"github.com/ettoremodina/bombbuster/service/internal/database"
)

// BroadcastFunc sends an event to every connected seat.
type BroadcastFunc func(ev SessionEvent)

// BroadcastToSeatFunc sends an event to a single seat only, used for
// per-player sync_state payloads which differ by perspective.
type BroadcastToSeatFunc func(seat int, ev SessionEvent)

// Session is one live instance of the inference game: ground-truth wires
// known only to the server, plus one Orchestrator per seat maintaining
// that seat's belief state.
type Session struct {
	ID     uuid.UUID
	HostID uuid.UUID

	cfg   *engine.Config
	wires [][]engine.Value // seat -> true wire, never sent to clients directly

	orchestrators []*engine.Orchestrator

	store *database.Store

	mu      sync.Mutex
	Started bool
	Over    bool

	CreatedAt time.Time

	BroadcastFn       BroadcastFunc
	BroadcastToSeatFn BroadcastToSeatFunc
}

// New builds a Session for hostID with the given config and true wires
// (one per seat, len == cfg.N); each seat gets its own Orchestrator seeded
// with only that seat's wire, matching spec.md's per-player lifecycle.
func New(id, hostID uuid.UUID, cfg *engine.Config, wires [][]engine.Value) (*Session, error) {
	if len(wires) != cfg.N {
		return nil, fmt.Errorf("session: expected %d wires, got %d", cfg.N, len(wires))
	}
	orchestrators := make([]*engine.Orchestrator, cfg.N)
	for seat := 0; seat < cfg.N; seat++ {
		orch, err := engine.NewOrchestrator(cfg, seat, wires[seat])
		if err != nil {
			return nil, fmt.Errorf("session: seat %d: %w", seat, err)
		}
		orchestrators[seat] = orch
	}
	return &Session{
		ID:            id,
		HostID:        hostID,
		cfg:           cfg,
		wires:         wires,
		orchestrators: orchestrators,
		CreatedAt:     time.Now(),
	}, nil
}

// SetStore attaches a persistence backend: every event Apply commits from
// here on is appended to store's session_events table, so a Reconstruct
// call after a restart can replay this session from where it left off.
func (s *Session) SetStore(store *database.Store) { s.store = store }

// Reconstruct rebuilds a Session from its persisted Config, seat wires,
// and ordered EventLog, replaying every stored event through fresh
// Orchestrators without re-persisting them — the service-restart
// counterpart to New, grounded on spec.md §4.10's "durable EventLog +
// own-hand + config snapshot" persistence requirement.
func Reconstruct(ctx context.Context, store *database.Store, id, hostID uuid.UUID, cfg *engine.Config, wires [][]engine.Value) (*Session, error) {
	s, err := New(id, hostID, cfg, wires)
	if err != nil {
		return nil, fmt.Errorf("session: reconstructing %s: %w", id, err)
	}
	s.store = store

	stored, err := store.LoadEvents(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("session: loading events for %s: %w", id, err)
	}
	for _, rec := range stored {
		var e engine.Event
		if err := json.Unmarshal(rec.Payload, &e); err != nil {
			return nil, fmt.Errorf("session: decoding stored event seq %d: %w", rec.Seq, err)
		}
		if err := s.applyInternal(e, false); err != nil {
			return nil, fmt.Errorf("session: replaying stored event seq %d: %w", rec.Seq, err)
		}
	}
	return s, nil
}

// Config returns the session's immutable game configuration.
func (s *Session) Config() *engine.Config { return s.cfg }

// Orchestrator returns the seat's belief-state machine, primarily for
// tests and for the server layer's query handlers.
func (s *Session) Orchestrator(seat int) *engine.Orchestrator { return s.orchestrators[seat] }

// Apply feeds one public event to every seat's Orchestrator (each seat
// reacts to the same public information, from its own perspective) and
// broadcasts the outcome. It holds the session lock for the duration,
// matching the teacher's CambiaGame.Mu convention for serializing
// concurrent action submissions.
func (s *Session) Apply(e engine.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.applyInternal(e, true)
}

// applyInternal runs the shared Apply pipeline. persist controls whether
// the event is appended to the store: Apply persists live events, while
// Reconstruct replays previously-persisted ones and must not append them
// a second time (their seq numbers already exist in session_events).
func (s *Session) applyInternal(e engine.Event, persist bool) error {
	if s.Over {
		return fmt.Errorf("session: game already ended")
	}

	var lastSeq int
	var timeoutErr *engine.BudgetExceededError
	for seat := 0; seat < s.cfg.N; seat++ {
		result, err := s.orchestrators[seat].Apply(e)
		if err != nil {
			if s.BroadcastFn != nil {
				s.BroadcastFn(SessionEvent{Type: EventContradiction, Payload: err.Error()})
			}
			return err
		}
		lastSeq = result.Seq
		if result.GlobalTimeout {
			timeoutErr = result.GlobalTimeoutErr
		}
	}

	if persist && s.store != nil {
		if err := s.store.AppendEvent(context.Background(), s.ID, lastSeq, e); err != nil {
			return fmt.Errorf("session: persisting event seq %d: %w", lastSeq, err)
		}
	}

	s.broadcastEventOutcome(e, lastSeq)
	if timeoutErr != nil && s.BroadcastFn != nil {
		s.BroadcastFn(SessionEvent{Type: EventBudgetExceeded, Seq: lastSeq, Payload: timeoutErr.Error()})
	}

	if s.checkTerminal() {
		return nil
	}

	s.broadcastSyncStates(lastSeq)
	return nil
}

func (s *Session) broadcastEventOutcome(e engine.Event, seq int) {
	if s.BroadcastFn == nil {
		return
	}
	var evType EventType
	switch e.Kind {
	case engine.EventCall:
		evType = EventCallResolved
	case engine.EventDoubleReveal:
		evType = EventDoubleRevealed
	case engine.EventSwap:
		evType = EventSwapped
	default:
		evType = EventSignalBroadcast
	}
	s.BroadcastFn(SessionEvent{Type: evType, Seq: seq})
}

// checkTerminal reports (and, if true, broadcasts) whether the session
// has reached a win or loss state from seat 0's perspective only. Strikes
// are public and equal across seats, but each seat also knows its own
// wire, so other seats can reach all-singleton domains at a different
// event than seat 0.
func (s *Session) checkTerminal() bool {
	orch := s.orchestrators[0]
	switch {
	case orch.IsWin():
		s.Over = true
		if s.BroadcastFn != nil {
			s.BroadcastFn(SessionEvent{Type: EventSessionEnded, Payload: "won"})
		}
		return true
	case orch.IsLost():
		s.Over = true
		if s.BroadcastFn != nil {
			s.BroadcastFn(SessionEvent{Type: EventSessionEnded, Payload: "lost"})
		}
		return true
	default:
		return false
	}
}

func (s *Session) broadcastSyncStates(seq int) {
	if s.BroadcastToSeatFn == nil {
		return
	}
	for seat := 0; seat < s.cfg.N; seat++ {
		state := s.ObfuscatedState(seat)
		s.BroadcastToSeatFn(seat, SessionEvent{Type: EventSyncState, Seq: seq, State: &state})
	}
}

// Strikes returns the current strike count (identical across seats).
func (s *Session) Strikes() int { return s.orchestrators[0].Strikes() }
