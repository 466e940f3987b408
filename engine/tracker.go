package engine

// counters holds three of the four disjoint per-value counters from
// spec.md §3; uncertain is derived as r_v - revealed - certain - called.
type counters struct {
	revealed int
	certain  int
	called   int
}

// ValueTracker maintains, for every value in the universe, the global
// inventory split described in spec.md §4.2. It is owned exclusively by
// the Orchestrator (spec.md §5) and never touched by GlobalSolver workers.
type ValueTracker struct {
	cfg      *Config
	counts   []counters // indexed by canonical value index
	// perPlayerCalled[p] is the set of values (by canonical index) that
	// player p has called (floating), used by F6 and by SignatureGenerator.
	perPlayerCalled []Domain
	// perPlayerOwned[p] counts, per value, how many of p's own slots are
	// certain/revealed for that value — needed by F2 and perPlayerCap.
	perPlayerOwned [][]int
}

// NewValueTracker builds a tracker with every copy of every value
// uncertain.
func NewValueTracker(cfg *Config) *ValueTracker {
	vt := &ValueTracker{
		cfg:             cfg,
		counts:          make([]counters, cfg.K()),
		perPlayerCalled: make([]Domain, cfg.N),
		perPlayerOwned:  make([][]int, cfg.N),
	}
	for p := range vt.perPlayerOwned {
		vt.perPlayerOwned[p] = make([]int, cfg.K())
	}
	return vt
}

// Revealed, Certain, Called, Uncertain return the four counters for v.
func (vt *ValueTracker) Revealed(v Value) int { return vt.at(v).revealed }
func (vt *ValueTracker) Certain(v Value) int  { return vt.at(v).certain }
func (vt *ValueTracker) Called(v Value) int   { return vt.at(v).called }
func (vt *ValueTracker) Uncertain(v Value) int {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return 0
	}
	c := vt.counts[i]
	return vt.cfg.CopiesAt(i) - c.revealed - c.certain - c.called
}

func (vt *ValueTracker) at(v Value) counters {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return counters{}
	}
	return vt.counts[i]
}

// GetValueCounts implements the §6.3 query get_value_counts.
func (vt *ValueTracker) GetValueCounts(v Value) (revealed, certain, called, uncertain int) {
	return vt.Revealed(v), vt.Certain(v), vt.Called(v), vt.Uncertain(v)
}

// Reveal upgrades v to publicly confirmed for player p at position j.
// If v was already certain or called for p, the matching bucket is
// decremented first so the four counters stay disjoint.
func (vt *ValueTracker) Reveal(p, j int, v Value) error {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return invalidEvent("reveal of unknown value %v", v)
	}
	if vt.perPlayerOwned[p][i] > 0 && vt.counts[i].certain > 0 {
		// This copy was already certain for p; move it from certain to revealed.
		vt.counts[i].certain--
		vt.perPlayerOwned[p][i]--
	} else if vt.perPlayerCalled[p].Has(i) {
		vt.counts[i].called--
		vt.perPlayerCalled[p] = vt.perPlayerCalled[p].Without(i)
	} else if vt.counts[i].called-vt.calledElsewhere(p, i) > 0 {
		vt.counts[i].called--
	}
	vt.counts[i].revealed++
	vt.perPlayerOwned[p][i]++
	return vt.checkNonNegative(i, v)
}

func (vt *ValueTracker) calledElsewhere(p, i int) int {
	n := 0
	for q := 0; q < vt.cfg.N; q++ {
		if q != p && vt.perPlayerCalled[q].Has(i) {
			n++
		}
	}
	return n
}

// DeduceCertain records that D[p][j] collapsed to {v} by deduction, not
// by a public reveal.
func (vt *ValueTracker) DeduceCertain(p, j int, v Value) error {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return invalidEvent("certain deduction of unknown value %v", v)
	}
	vt.counts[i].certain++
	vt.perPlayerOwned[p][i]++
	return vt.checkNonNegative(i, v)
}

// FailCall registers a floating copy of v for caller, per spec.md's Open
// Question resolution: a call is evidence of possession at call time, so
// this must NOT be invoked if caller already has a revealed/certain copy
// of v (the orchestrator checks that before calling this).
func (vt *ValueTracker) FailCall(caller int, v Value) error {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return invalidEvent("failed call of unknown value %v", v)
	}
	if !vt.perPlayerCalled[caller].Has(i) {
		vt.counts[i].called++
		vt.perPlayerCalled[caller] = vt.perPlayerCalled[caller].With(i)
	}
	return vt.checkNonNegative(i, v)
}

// AlreadyOwns reports whether player p already has a revealed or certain
// copy of v, per the called-values Open Question in spec.md §9.
func (vt *ValueTracker) AlreadyOwns(p int, v Value) bool {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return false
	}
	return vt.perPlayerOwned[p][i] > 0
}

// HasCalled reports whether player p has an outstanding floating call on v.
func (vt *ValueTracker) HasCalled(p int, v Value) bool {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return false
	}
	return vt.perPlayerCalled[p].Has(i)
}

// CalledDomain returns the set of values (as a Domain) player p has
// called and not yet resolved.
func (vt *ValueTracker) CalledDomain(p int) Domain { return vt.perPlayerCalled[p] }

// SuccessCall upgrades a successful call to two reveals: the caller's own
// slot (already known, now publicly confirmed) and the target's slot.
func (vt *ValueTracker) SuccessCall(caller, callerPos, target, targetPos int, v Value) error {
	if err := vt.Reveal(target, targetPos, v); err != nil {
		return err
	}
	return vt.Reveal(caller, callerPos, v)
}

// Retract undoes a prior Reveal/DeduceCertain attribution for player p on
// value v — used by Swap handling when a wire that was known at its
// origin position leaves the player's hand.
func (vt *ValueTracker) Retract(p int, v Value, wasRevealed bool) {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return
	}
	if wasRevealed {
		if vt.counts[i].revealed > 0 {
			vt.counts[i].revealed--
		}
	} else if vt.counts[i].certain > 0 {
		vt.counts[i].certain--
	}
	if vt.perPlayerOwned[p][i] > 0 {
		vt.perPlayerOwned[p][i]--
	}
}

// checkNonNegative enforces Testable Property 4 (counter conservation):
// every counter ≥ 0 and their sum equals r_v.
func (vt *ValueTracker) checkNonNegative(i int, v Value) error {
	c := vt.counts[i]
	r := vt.cfg.CopiesAt(i)
	if c.revealed < 0 || c.certain < 0 || c.called < 0 {
		return &ContradictionError{EventSeq: -1, Player: -1, Position: -1,
			Reason: "value tracker counter went negative for value"}
	}
	if c.revealed+c.certain+c.called > r {
		return &ContradictionError{EventSeq: -1, Player: -1, Position: -1,
			Reason: "value tracker counters exceed copy count for value"}
	}
	return nil
}

// PlayerOwnedCount returns how many of player p's slots are certain or
// revealed to value v — the "certain+revealed in p" term used by F2 and
// perPlayerCap.
func (vt *ValueTracker) PlayerOwnedCount(p int, v Value) int {
	i, ok := vt.cfg.IndexOf(v)
	if !ok {
		return 0
	}
	return vt.perPlayerOwned[p][i]
}
