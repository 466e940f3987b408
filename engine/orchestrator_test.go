package engine

import "testing"

// TestOrchestratorApplyCallSuccessScenarioA exercises spec's Scenario A:
// a successful call both reveals the target's slot and upgrades the
// caller's own matching card from certain to publicly revealed.
func TestOrchestratorApplyCallSuccessScenarioA(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 3, 3: 3, 4: 3, 5: 1}, 3, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 0, []Value{1, 2, 3, 4})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	res, err := orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 2, Position: 0, Value: 2, Success: true})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if res.Seq != 0 || res.GlobalRan {
		t.Errorf("ApplyResult = %+v, want Seq=0, GlobalRan=false", res)
	}
	if got := orch.GetDomain(2, 0); !containsValue(got, 2) || len(got) != 1 {
		t.Errorf("GetDomain(2,0) = %v, want {2}", got)
	}
	if got := orch.GetDomain(0, 1); !containsValue(got, 2) || len(got) != 1 {
		t.Errorf("GetDomain(0,1) = %v, want {2}", got)
	}
	if rev, _, _, _ := orch.GetValueCounts(2); rev != 2 {
		t.Errorf("GetValueCounts(2) revealed = %d, want 2 (target's reveal + caller's own upgraded card)", rev)
	}
}

// TestOrchestratorApplyCallFailureRemovesValueAndBumpsStrikes covers a
// failed call: the target's slot loses the guessed value, the caller
// picks up a floating called_v, and F6 immediately pins the caller's own
// single remaining slot to it since it is the only candidate left.
func TestOrchestratorApplyCallFailureRemovesValueAndBumpsStrikes(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 1, 2: 1}, 2, 3, ModeIRL)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventCall, Caller: 1, Target: 0, Position: 0, Value: 1, Success: false}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if orch.Strikes() != 1 {
		t.Errorf("Strikes() = %d, want 1", orch.Strikes())
	}
	if got := orch.GetDomain(0, 0); !containsValue(got, 2) || len(got) != 1 {
		t.Errorf("GetDomain(0,0) = %v, want {2} (value 1 ruled out)", got)
	}
	if got := orch.GetDomain(1, 0); !containsValue(got, 1) || len(got) != 1 {
		t.Errorf("GetDomain(1,0) = %v, want {1} (only remaining slot for the called value)", got)
	}
	_, _, called, uncertain := orch.GetValueCounts(1)
	if called != 1 || uncertain != 0 {
		t.Errorf("GetValueCounts(1) = (called=%d, uncertain=%d), want (1, 0)", called, uncertain)
	}
}

// TestOrchestratorApplyCallFailureAlreadyOwningSkipsCalledBump checks the
// Open Question resolution in applyCall: a failed call still costs a
// strike, but does not register a floating called_v when the caller
// already has a certain or revealed copy of the value.
func TestOrchestratorApplyCallFailureAlreadyOwningSkipsCalledBump(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeIRL)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 0, []Value{1, 1})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 1, Position: 0, Value: 1, Success: false}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if orch.Strikes() != 1 {
		t.Errorf("Strikes() = %d, want 1 (a failed call always costs a strike)", orch.Strikes())
	}
	_, cert, called, _ := orch.GetValueCounts(1)
	if called != 0 {
		t.Errorf("GetValueCounts(1) called = %d, want 0 (caller already owns value 1)", called)
	}
	if cert != 2 {
		t.Errorf("GetValueCounts(1) certain = %d, want 2 (unchanged)", cert)
	}
}

// TestOrchestratorApplyDoubleReveal covers the DoubleReveal event and the
// ordering propagation it triggers for an as-yet-unconstrained slot.
func TestOrchestratorApplyDoubleReveal(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 3, 2: 3, 3: 3}, 3, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 1, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventDoubleReveal, Player: 0, Pos1: 0, Value: 1, Pos2: 1, Value2: 2}); err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if got := orch.GetDomain(0, 0); !containsValue(got, 1) || len(got) != 1 {
		t.Errorf("GetDomain(0,0) = %v, want {1}", got)
	}
	if got := orch.GetDomain(0, 1); !containsValue(got, 2) || len(got) != 1 {
		t.Errorf("GetDomain(0,1) = %v, want {2}", got)
	}
	got := orch.GetDomain(0, 2)
	if containsValue(got, 1) {
		t.Errorf("GetDomain(0,2) = %v, value 1 should be ruled out by ordering (pos2 >= pos1's value)", got)
	}
	if !containsValue(got, 2) || !containsValue(got, 3) {
		t.Errorf("GetDomain(0,2) = %v, want {2,3}", got)
	}
	if rev, _, _, _ := orch.GetValueCounts(1); rev != 1 {
		t.Errorf("GetValueCounts(1) revealed = %d, want 1", rev)
	}
	if rev, _, _, _ := orch.GetValueCounts(2); rev != 1 {
		t.Errorf("GetValueCounts(2) revealed = %d, want 1", rev)
	}
}

// TestOrchestratorApplySwapObserverPerspectiveRelocatesOpaqueDomains
// covers applySwap's non-participant branch: a third party sees the two
// old domains exchanged wholesale, losing any certainty either side had,
// per "observers swap the two old domains."
func TestOrchestratorApplySwapObserverPerspectiveRelocatesOpaqueDomains(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 3, 2: 3}, 3, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 2, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventSignalCertain, Player: 0, Position: 0, Value: 1}); err != nil {
		t.Fatalf("Apply(signal-certain) returned error: %v", err)
	}
	if got := orch.GetDomain(0, 0); !containsValue(got, 1) || len(got) != 1 {
		t.Fatalf("precondition failed: GetDomain(0,0) = %v, want {1}", got)
	}

	swap := Event{
		Kind: EventSwap, P1: 0, P2: 1,
		InitPos1: 0, InitPos2: 0, FinalPos1: 0, FinalPos2: 0,
		SwapValue1: 1, SwapValue2: 2,
	}
	if _, err := orch.Apply(swap); err != nil {
		t.Fatalf("Apply(swap) returned error: %v", err)
	}

	if got := orch.GetDomain(0, 0); containsValue(got, 1) && len(got) == 1 {
		t.Errorf("GetDomain(0,0) = %v, expected the certainty to be lost (opaque relocation to an observer)", got)
	}
	if got := orch.GetDomain(1, 0); !containsValue(got, 1) || len(got) != 1 {
		t.Errorf("GetDomain(1,0) = %v, want {1} (the old domain from (0,0) relocated here)", got)
	}
}

func TestOrchestratorSignalEventsUpdateBeliefStore(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2, 3: 2}, 3, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventSignalCopyCount, Player: 1, Position: 0, Class: CopyClassTwo}); err != nil {
		t.Fatalf("Apply(signal-copycount) returned error: %v", err)
	}
	if _, err := orch.Apply(Event{Kind: EventSignalAdjacency, Player: 1, Position: 0, Relation: AdjNEQ}); err != nil {
		t.Fatalf("Apply(signal-adjacency) returned error: %v", err)
	}
	if _, err := orch.Apply(Event{Kind: EventSignalAbsent, Player: 2, Value: 3}); err != nil {
		t.Fatalf("Apply(signal-absent) returned error: %v", err)
	}
	if containsValue(orch.GetDomain(2, 0), 3) || containsValue(orch.GetDomain(2, 1), 3) {
		t.Errorf("expected value 3 removed from every slot of player 2 after signal-absent")
	}
}

// TestOrchestratorApplyContradictionAnnotatesEventSeq checks that a
// ContradictionError raised deep inside applyCall carries the sequence
// number of the event that caused it, not the event that merely exposed
// the preexisting certainty.
func TestOrchestratorApplyContradictionAnnotatesEventSeq(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 1, 2: 1}, 2, 3, ModeIRL)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	orch, err := NewOrchestrator(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	if _, err := orch.Apply(Event{Kind: EventSignalCertain, Player: 1, Position: 0, Value: 1}); err != nil {
		t.Fatalf("Apply(signal-certain) returned error: %v", err)
	}

	_, err = orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 1, Position: 0, Value: 1, Success: false})
	if err == nil {
		t.Fatalf("expected the failed call to contradict the already-certain slot")
	}
	ce, ok := err.(*ContradictionError)
	if !ok {
		t.Fatalf("expected a *ContradictionError, got %T: %v", err, err)
	}
	if ce.EventSeq != 1 {
		t.Errorf("ContradictionError.EventSeq = %d, want 1 (the failed call's sequence number)", ce.EventSeq)
	}
	if ce.Player != 1 || ce.Position != 0 {
		t.Errorf("ContradictionError = {Player:%d Position:%d}, want {1,0}", ce.Player, ce.Position)
	}
}

func TestOrchestratorIsLostAfterEnoughStrikes(t *testing.T) {
	// Generous copy counts keep every failed call's domain narrowing well
	// short of saturating F4's subset-cardinality trigger, so repeated
	// wrong calls never cascade into an unrelated contradiction.
	cfg, err := NewConfig(map[Value]int{1: 6, 2: 6}, 2, 3, ModeIRL)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	cfg.GlobalSolverEnabled = false
	orch, err := NewOrchestrator(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}
	if orch.IsLost() {
		t.Fatalf("a fresh orchestrator must not report IsLost")
	}

	for i := 0; i < cfg.LMax; i++ {
		if _, err := orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 1, Position: i % cfg.L, Value: 2, Success: false}); err != nil {
			t.Fatalf("Apply(%d) returned error: %v", i, err)
		}
	}
	if !orch.IsLost() {
		t.Errorf("expected IsLost once Strikes() reaches LMax=%d, got Strikes()=%d", cfg.LMax, orch.Strikes())
	}
}

func TestOrchestratorGlobalSolverRunsWhenEnabled(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	orch, err := NewOrchestrator(cfg, 0, []Value{1, 2})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}

	res, err := orch.Apply(Event{Kind: EventSignalCertain, Player: 1, Position: 0, Value: 1})
	if err != nil {
		t.Fatalf("Apply returned error: %v", err)
	}
	if !res.GlobalRan {
		t.Errorf("expected GlobalRan=true with GlobalSolverEnabled left at its default")
	}
	if res.GlobalTimeout {
		t.Errorf("did not expect a timeout on such a small configuration")
	}
}

func TestNewOrchestratorRejectsOutOfRangeOwner(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if _, err := NewOrchestrator(cfg, 5, nil); err == nil {
		t.Fatalf("expected an error for an out-of-range owner")
	}
}

func TestNewOrchestratorRejectsMismatchedOwnWireLength(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if _, err := NewOrchestrator(cfg, 0, []Value{1, 1}); err == nil {
		t.Fatalf("expected an error when ownWire length does not match L")
	}
}

func TestOrchestratorApplyRejectsOutOfRangePosition(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	orch, err := NewOrchestrator(cfg, 0, nil)
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}
	_, err = orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 1, Position: 99, Value: 1, Success: true})
	if err == nil {
		t.Fatalf("expected an error for an out-of-range position")
	}
	if _, ok := err.(*InvalidEventError); !ok {
		t.Errorf("expected a *InvalidEventError, got %T: %v", err, err)
	}
}

func TestOrchestratorApplyRejectsCallerWithoutValueInSimulationMode(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	orch, err := NewOrchestrator(cfg, 0, []Value{1, 1})
	if err != nil {
		t.Fatalf("NewOrchestrator returned error: %v", err)
	}
	_, err = orch.Apply(Event{Kind: EventCall, Caller: 0, Target: 1, Position: 0, Value: 2, Success: true})
	if err == nil {
		t.Fatalf("expected SIMULATION mode to reject a call for a value the caller does not hold")
	}
	if _, ok := err.(*InvalidEventError); !ok {
		t.Errorf("expected a *InvalidEventError, got %T: %v", err, err)
	}
}
