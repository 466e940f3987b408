package engine

// EventLog is the append-only ordered record of public actions described
// in spec.md §4.7. Replaying it from an empty BeliefStore/ValueTracker
// (with own-hand singletons restored) must reproduce current state
// bit-exactly — except that Swap events carry the realized values each
// wire held at execution time, since that information is not deducible
// post-hoc from later state (spec.md's Markovian-break note).
type EventLog struct {
	entries []LoggedEvent
}

// NewEventLog returns an empty log.
func NewEventLog() *EventLog { return &EventLog{} }

// Append records e as the next entry and returns its assigned sequence
// number. Swap events must already have SwapValue1/SwapValue2 populated
// by the caller before being appended — Append does not infer them.
func (l *EventLog) Append(e Event) int {
	seq := len(l.entries)
	l.entries = append(l.entries, LoggedEvent{Seq: seq, Event: e})
	return seq
}

// Len returns the number of entries.
func (l *EventLog) Len() int { return len(l.entries) }

// At returns the entry at seq.
func (l *EventLog) At(seq int) LoggedEvent { return l.entries[seq] }

// All returns every entry, oldest first. The returned slice must not be
// mutated.
func (l *EventLog) All() []LoggedEvent { return l.entries }

// Replay applies every logged event, in order, to a fresh Orchestrator
// built from cfg for the given owner/ownWire perspective. It is the
// executable form of Testable Property 5 (replay determinism) and of
// Scenario F (swap Markov break): because Swap entries carry their
// realized values, this reproduces domains bit-exactly even though a
// swap's outcome cannot be recovered from later state alone.
func (l *EventLog) Replay(cfg *Config, owner int, ownWire []Value) (*Orchestrator, error) {
	orch, err := NewOrchestrator(cfg, owner, ownWire)
	if err != nil {
		return nil, err
	}
	for _, entry := range l.entries {
		if _, err := orch.Apply(entry.Event); err != nil {
			return orch, err
		}
	}
	return orch, nil
}
