package session

import "github.com/ettoremodina/bombbuster/engine"

// Call applies a Call event: caller claims target's position holds value.
// success must be supplied by the caller — the session layer does not
// referee the real wire value itself (that judgment belongs to whatever
// process owns ground truth for the IRL table, or to the Orchestrator's
// SIMULATION-mode validation for an automated opponent).
func (s *Session) Call(caller, target, position int, value engine.Value, success bool) error {
	return s.Apply(engine.Event{
		Kind:     engine.EventCall,
		Caller:   caller,
		Target:   target,
		Position: position,
		Value:    value,
		Success:  success,
	})
}

// DoubleReveal applies a DoubleReveal event: player voluntarily reveals
// two of their own positions.
func (s *Session) DoubleReveal(player, pos1, pos2 int, value1, value2 engine.Value) error {
	return s.Apply(engine.Event{
		Kind:   engine.EventDoubleReveal,
		Player: player,
		Pos1:   pos1,
		Pos2:   pos2,
		Value:  value1,
		Value2: value2,
	})
}

// Swap applies a Swap event exchanging the wires at (p1, initPos1) and
// (p2, initPos2), landing at finalPos1/finalPos2 with their realized
// values logged for Markov-safe replay.
func (s *Session) Swap(p1, p2, initPos1, initPos2, finalPos1, finalPos2 int, value1, value2 engine.Value) error {
	return s.Apply(engine.Event{
		Kind:       engine.EventSwap,
		P1:         p1,
		P2:         p2,
		InitPos1:   initPos1,
		InitPos2:   initPos2,
		FinalPos1:  finalPos1,
		FinalPos2:  finalPos2,
		SwapValue1: value1,
		SwapValue2: value2,
	})
}

// SignalCertain applies a Signal-Certain event for a voluntarily disclosed
// position.
func (s *Session) SignalCertain(player, position int, value engine.Value) error {
	return s.Apply(engine.Event{Kind: engine.EventSignalCertain, Player: player, Position: position, Value: value})
}

// SignalAbsent applies a Signal-Absent event declaring a value absent from
// player's hand entirely.
func (s *Session) SignalAbsent(player int, value engine.Value) error {
	return s.Apply(engine.Event{Kind: engine.EventSignalAbsent, Player: player, Value: value})
}

// SignalCopyCount applies a Signal-CopyCount event declaring the
// multiplicity class of the value at player's position.
func (s *Session) SignalCopyCount(player, position int, class engine.CopyClass) error {
	return s.Apply(engine.Event{Kind: engine.EventSignalCopyCount, Player: player, Position: position, Class: class})
}

// SignalAdjacency applies a Signal-Adjacency event declaring the ordering
// relation between player's position and position+1.
func (s *Session) SignalAdjacency(player, position int, relation engine.AdjRelation) error {
	return s.Apply(engine.Event{Kind: engine.EventSignalAdjacency, Player: player, Position: position, Relation: relation})
}
