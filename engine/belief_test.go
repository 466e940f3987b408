package engine

import "testing"

func newTestBeliefStore(t *testing.T) (*Config, *BeliefStore) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2, 3: 2}, 3, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	return cfg, NewBeliefStore(cfg)
}

func TestBeliefStoreInitialDomainsAreFull(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	full := FullDomain(cfg.K())
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			if bs.GetDomain(p, j) != full {
				t.Errorf("GetDomain(%d,%d) = %v, want FullDomain", p, j, bs.GetDomain(p, j))
			}
		}
	}
}

func TestBeliefStoreSetDomainMarksDirty(t *testing.T) {
	_, bs := newTestBeliefStore(t)
	if bs.Dirty(0, 0) {
		t.Fatalf("slot should not start dirty")
	}
	bs.SetDomain(0, 0, SingletonDomain(0))
	if !bs.Dirty(0, 0) {
		t.Errorf("expected SetDomain to mark slot dirty")
	}
	bs.ClearDirty()
	if bs.Dirty(0, 0) || bs.AnyDirty() {
		t.Errorf("expected ClearDirty to reset every dirty bit")
	}
}

func TestBeliefStoreIntersectDomainReportsChange(t *testing.T) {
	_, bs := newTestBeliefStore(t)
	changed := bs.IntersectDomain(0, 0, SingletonDomain(0))
	if !changed {
		t.Fatalf("expected first intersection to narrow the domain")
	}
	changed = bs.IntersectDomain(0, 0, SingletonDomain(0))
	if changed {
		t.Errorf("expected repeated intersection with the same domain to report no change")
	}
}

func TestBeliefStoreRemoveValueRefusesNoOp(t *testing.T) {
	_, bs := newTestBeliefStore(t)
	bs.SetDomain(0, 0, EmptyDomain.With(0).With(1))
	if !bs.RemoveValue(0, 0, 0) {
		t.Fatalf("expected RemoveValue to report a change when the index is present")
	}
	if bs.RemoveValue(0, 0, 0) {
		t.Errorf("expected RemoveValue to report no change on an absent index")
	}
	if bs.GetDomain(0, 0) != SingletonDomain(1) {
		t.Errorf("GetDomain(0,0) = %v, want {1}", bs.GetDomain(0, 0))
	}
}

func TestBeliefStoreMarkRevealedAndMarkCertain(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	if err := bs.MarkRevealed(cfg, 0, 0, 1); err != nil {
		t.Fatalf("MarkRevealed returned error: %v", err)
	}
	if !bs.IsRevealed(0, 0) {
		t.Errorf("expected (0,0) to be flagged revealed")
	}
	if !bs.IsCertain(0, 0) {
		t.Errorf("expected a revealed slot to also be certain")
	}

	if err := bs.MarkCertain(cfg, 1, 0, 2); err != nil {
		t.Fatalf("MarkCertain returned error: %v", err)
	}
	if bs.IsRevealed(1, 0) {
		t.Errorf("MarkCertain must not flag a public reveal")
	}
	if !bs.IsCertain(1, 0) {
		t.Errorf("expected (1,0) to be certain after MarkCertain")
	}
}

func TestBeliefStoreMarkRevealedRejectsUnknownValue(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	if err := bs.MarkRevealed(cfg, 0, 0, 99); err == nil {
		t.Fatalf("expected an error for an unknown value")
	}
}

func TestBeliefStoreRecordAbsentNarrowsDomains(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	if err := bs.RecordAbsent(cfg, 0, 1); err != nil {
		t.Fatalf("RecordAbsent returned error: %v", err)
	}
	i, _ := cfg.IndexOf(1)
	for j := 0; j < cfg.L; j++ {
		if bs.GetDomain(0, j).Has(i) {
			t.Errorf("RecordAbsent left value 1 in D[0][%d]", j)
		}
	}
	if !bs.Absent(0).Has(i) {
		t.Errorf("expected Absent(0) to record value 1")
	}
}

func TestBeliefStoreRecordAbsentContradictsEstablishedCertainty(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	if err := bs.MarkCertain(cfg, 0, 0, 1); err != nil {
		t.Fatalf("MarkCertain returned error: %v", err)
	}
	// slot 0 is certain of 1, so declaring 1 absent for player 0 empties
	// slot 0 (the first slot RecordAbsent visits) and must contradict the
	// MarkCertain deduction there.
	err := bs.RecordAbsent(cfg, 0, 1)
	if err == nil {
		t.Fatalf("expected RecordAbsent to surface a contradiction")
	}
	if _, ok := err.(*ContradictionError); !ok {
		t.Errorf("expected a *ContradictionError, got %T: %v", err, err)
	}
}

func TestBeliefStoreReplaceRowMarksEverySlotDirty(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	bs.ClearDirty()
	domains := make([]Domain, cfg.L)
	states := make([]slotState, cfg.L)
	for j := range domains {
		domains[j] = SingletonDomain(0)
		states[j] = slotRevealed
	}
	bs.ReplaceRow(1, domains, states)
	for j := 0; j < cfg.L; j++ {
		if !bs.Dirty(1, j) {
			t.Errorf("expected ReplaceRow to mark slot %d dirty", j)
		}
		if bs.GetDomain(1, j) != SingletonDomain(0) {
			t.Errorf("GetDomain(1,%d) = %v, want {0}", j, bs.GetDomain(1, j))
		}
	}
}

func TestBeliefStoreRecordAdjacencyAndCopyCount(t *testing.T) {
	_, bs := newTestBeliefStore(t)
	bs.RecordAdjacency(0, 1, AdjNEQ)
	sigs := bs.AdjacencySignals(0)
	if len(sigs) != 1 || sigs[0].pos != 1 || sigs[0].relation != AdjNEQ {
		t.Errorf("AdjacencySignals(0) = %v, want one {pos:1, relation:AdjNEQ}", sigs)
	}

	bs.RecordCopyCount(0, 2, CopyClassTwo)
	ccs := bs.CopyCountSignals(0)
	if len(ccs) != 1 || ccs[0].pos != 2 || ccs[0].class != CopyClassTwo {
		t.Errorf("CopyCountSignals(0) = %v, want one {pos:2, class:CopyClassTwo}", ccs)
	}
}

func TestBeliefStoreGetCertainSlotsAndIsWin(t *testing.T) {
	cfg, bs := newTestBeliefStore(t)
	if bs.IsWin() {
		t.Fatalf("a freshly built store with full domains must not report IsWin")
	}
	if len(bs.GetCertainSlots(cfg)) != 0 {
		t.Fatalf("expected no certain slots before any deduction")
	}

	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			if err := bs.MarkCertain(cfg, p, j, cfg.ValueAt((p+j)%cfg.K())); err != nil {
				t.Fatalf("MarkCertain(%d,%d) returned error: %v", p, j, err)
			}
		}
	}
	if !bs.IsWin() {
		t.Errorf("expected IsWin once every slot is a singleton")
	}
	slots := bs.GetCertainSlots(cfg)
	if len(slots) != cfg.N*cfg.L {
		t.Errorf("GetCertainSlots returned %d rows, want %d", len(slots), cfg.N*cfg.L)
	}
}

func TestBeliefStoreSnapshotIsIndependentCopy(t *testing.T) {
	_, bs := newTestBeliefStore(t)
	snap := bs.Snapshot()
	snap[0][0] = SingletonDomain(0)
	if bs.GetDomain(0, 0) == SingletonDomain(0) {
		t.Errorf("Snapshot must return an independent copy, mutation leaked back into the store")
	}
}
