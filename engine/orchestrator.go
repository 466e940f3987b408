package engine

import "context"

// Orchestrator applies public Events to a BeliefStore/ValueTracker pair
// from one player's perspective (Owner), running the pipeline described
// in spec.md §4.6: mutate per event semantics, run LocalFilters to a
// fixed point, optionally run GlobalSolver, run LocalFilters again.
//
// Owner is not part of Config because Config is shared game-wide state
// while the belief perspective is per player (spec.md §3's Lifecycle:
// "for a player's own hand, domains are singletons from the outset" only
// holds for the owning player — every other player's hand starts fully
// unknown). A driver runs one Orchestrator per player who needs a live
// deduction view; they share nothing mutable.
type Orchestrator struct {
	cfg       *Config
	owner     int
	ownWire   []Value
	bs        *BeliefStore
	vt        *ValueTracker
	log       *EventLog
	cache     *SignatureCache
	backing   SignatureBackingStore
	filterCfg FilterConfig
	strikes   int
}

// ApplyResult reports the outcome of one successful Apply call.
type ApplyResult struct {
	Seq              int
	GlobalRan        bool
	GlobalTimeout    bool
	GlobalTimeoutErr *BudgetExceededError
}

// NewOrchestrator builds an Orchestrator for the given player, seeding
// their own hand as known from the outset. ownWire may be nil for a
// third-party spectator perspective that knows nothing a priori.
func NewOrchestrator(cfg *Config, owner int, ownWire []Value) (*Orchestrator, error) {
	if owner < 0 || owner >= cfg.N {
		return nil, invalidEvent("owner %d out of range [0,%d)", owner, cfg.N)
	}
	if ownWire != nil && len(ownWire) != cfg.L {
		return nil, invalidEvent("own wire length %d does not match hand size %d", len(ownWire), cfg.L)
	}

	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	if ownWire != nil {
		for j, v := range ownWire {
			i, ok := cfg.IndexOf(v)
			if !ok {
				return nil, invalidEvent("own wire position %d has unknown value %v", j, v)
			}
			bs.SetDomain(owner, j, SingletonDomain(i))
			if err := vt.DeduceCertain(owner, j, v); err != nil {
				return nil, err
			}
		}
	}

	return &Orchestrator{
		cfg:       cfg,
		owner:     owner,
		ownWire:   ownWire,
		bs:        bs,
		vt:        vt,
		log:       NewEventLog(),
		cache:     NewSignatureCache(),
		filterCfg: DefaultFilterConfig(),
	}, nil
}

// SetFilterConfig overrides which local filters run (e.g. to gate F5).
func (o *Orchestrator) SetFilterConfig(fc FilterConfig) { o.filterCfg = fc }

// SetBackingStore attaches a second-tier signature cache consulted on a
// local SignatureCache miss, for deployments running several service
// replicas against the same session.
func (o *Orchestrator) SetBackingStore(backing SignatureBackingStore) { o.backing = backing }

// Config returns the immutable game configuration.
func (o *Orchestrator) Config() *Config { return o.cfg }

// Owner returns the player id this Orchestrator's belief perspective belongs to.
func (o *Orchestrator) Owner() int { return o.owner }

// EventLog returns the underlying append-only log.
func (o *Orchestrator) EventLog() *EventLog { return o.log }

// Strikes returns the number of wrong calls recorded so far.
func (o *Orchestrator) Strikes() int { return o.strikes }

// IsLost implements §6.3 is_lost(): strikes >= L_max.
func (o *Orchestrator) IsLost() bool { return o.strikes >= o.cfg.LMax }

// IsWin implements §6.3 is_win(): every slot in every hand is a singleton.
func (o *Orchestrator) IsWin() bool { return o.bs.IsWin() }

// GetDomain implements §6.3 get_domain(p, j).
func (o *Orchestrator) GetDomain(p, j int) []Value { return o.bs.GetDomain(p, j).Values(o.cfg) }

// GetCertainSlots implements §6.3 get_certain_slots().
func (o *Orchestrator) GetCertainSlots() []CertainSlot { return o.bs.GetCertainSlots(o.cfg) }

// GetValueCounts implements §6.3 get_value_counts(v).
func (o *Orchestrator) GetValueCounts(v Value) (revealed, certain, called, uncertain int) {
	return o.vt.GetValueCounts(v)
}

// Apply validates, mutates, and propagates one public Event through the
// full pipeline. It does not roll back on ContradictionError: on error,
// state remains exactly as the failing step left it, per spec.md §7 — the
// caller decides whether to abort or restore from EventLog.Replay.
func (o *Orchestrator) Apply(e Event) (*ApplyResult, error) {
	if err := o.validate(e); err != nil {
		return nil, err
	}

	seq := o.log.Append(e)

	if err := o.mutate(seq, e); err != nil {
		return nil, err
	}

	if err := RunLocalFilters(o.cfg, o.bs, o.vt, o.filterCfg); err != nil {
		return nil, annotate(err, seq)
	}

	result := &ApplyResult{Seq: seq}
	if o.cfg.GlobalSolverEnabled {
		keys := make([]SignatureCacheKey, o.cfg.N)
		sigSets := make(map[int]*SignatureSet, o.cfg.N)
		ctx := context.Background()
		for p := 0; p < o.cfg.N; p++ {
			keys[p] = signatureCacheKey(o.cfg, o.bs, o.vt, p)
			if set, ok := o.cache.Get(keys[p]); ok {
				sigSets[p] = set
				continue
			}
			if o.backing != nil {
				if set, ok := o.backing.Get(ctx, keys[p]); ok {
					sigSets[p] = set
				}
			}
		}

		globalRes, err := SolveGlobal(ctx, o.cfg, o.bs, o.vt, o.cfg.GlobalSolverBudgetMS, sigSets)
		if err != nil {
			return nil, annotate(err, seq)
		}
		for p, set := range sigSets {
			o.cache.Put(keys[p], set)
			if o.backing != nil {
				o.backing.Put(ctx, keys[p], set)
			}
		}
		result.GlobalRan = true
		if globalRes.TimedOut {
			result.GlobalTimeout = true
			result.GlobalTimeoutErr = globalRes.TimeoutErr
		} else {
			for p := 0; p < o.cfg.N; p++ {
				if globalRes.PerPlayer[p] == nil {
					continue
				}
				for j := 0; j < o.cfg.L; j++ {
					if o.bs.IntersectDomain(p, j, globalRes.PerPlayer[p][j]) {
						if o.bs.GetDomain(p, j) == EmptyDomain {
							return nil, annotate(contradiction(seq, p, j, "global projection emptied domain"), seq)
						}
					}
				}
			}
		}

		if err := RunLocalFilters(o.cfg, o.bs, o.vt, o.filterCfg); err != nil {
			return nil, annotate(err, seq)
		}
	}

	o.bs.ClearDirty()
	return result, nil
}

// annotate stamps a fresh EventSeq onto a *ContradictionError, or passes
// other error kinds through unchanged.
func annotate(err error, seq int) error {
	if ce, ok := err.(*ContradictionError); ok {
		ce.EventSeq = seq
		return ce
	}
	return err
}

func (o *Orchestrator) validate(e Event) error {
	inRangePlayer := func(p int) bool { return p >= 0 && p < o.cfg.N }
	inRangePos := func(j int) bool { return j >= 0 && j < o.cfg.L }

	switch e.Kind {
	case EventCall:
		if !inRangePlayer(e.Caller) || !inRangePlayer(e.Target) {
			return invalidEvent("call references unknown player (caller=%d target=%d)", e.Caller, e.Target)
		}
		if !inRangePos(e.Position) {
			return invalidEvent("call references unknown position %d", e.Position)
		}
		if o.cfg.Mode == ModeSimulation && o.owner == e.Caller && o.ownWire != nil {
			if !containsValue(o.ownWire, e.Value) {
				return invalidEvent("caller %d does not hold called value %v in SIMULATION mode", e.Caller, e.Value)
			}
		}
	case EventDoubleReveal:
		if !inRangePlayer(e.Player) {
			return invalidEvent("double reveal references unknown player %d", e.Player)
		}
		if !inRangePos(e.Pos1) || !inRangePos(e.Pos2) {
			return invalidEvent("double reveal references unknown position (pos1=%d pos2=%d)", e.Pos1, e.Pos2)
		}
	case EventSwap:
		if !inRangePlayer(e.P1) || !inRangePlayer(e.P2) {
			return invalidEvent("swap references unknown player (p1=%d p2=%d)", e.P1, e.P2)
		}
		for _, pos := range []int{e.InitPos1, e.InitPos2, e.FinalPos1, e.FinalPos2} {
			if !inRangePos(pos) {
				return invalidEvent("swap references unknown position %d", pos)
			}
		}
	case EventSignalCertain:
		if !inRangePlayer(e.Player) || !inRangePos(e.Position) {
			return invalidEvent("signal-certain references unknown player/position")
		}
	case EventSignalAbsent:
		if !inRangePlayer(e.Player) {
			return invalidEvent("signal-absent references unknown player %d", e.Player)
		}
	case EventSignalCopyCount:
		if !inRangePlayer(e.Player) || !inRangePos(e.Position) {
			return invalidEvent("signal-copycount references unknown player/position")
		}
		if e.Class < CopyClassOne || e.Class > CopyClassThree {
			return invalidEvent("signal-copycount has invalid class %d", e.Class)
		}
	case EventSignalAdjacency:
		if !inRangePlayer(e.Player) || !inRangePos(e.Position) {
			return invalidEvent("signal-adjacency references unknown player/position")
		}
		if e.Position+1 >= o.cfg.L {
			return invalidEvent("signal-adjacency position %d has no successor", e.Position)
		}
	default:
		return invalidEvent("unknown event kind %d", e.Kind)
	}
	return nil
}

func containsValue(wire []Value, v Value) bool {
	for _, w := range wire {
		if w == v {
			return true
		}
	}
	return false
}

func (o *Orchestrator) mutate(seq int, e Event) error {
	switch e.Kind {
	case EventCall:
		return o.applyCall(seq, e)
	case EventDoubleReveal:
		return o.applyDoubleReveal(seq, e)
	case EventSwap:
		return o.applySwap(seq, e)
	case EventSignalCertain:
		return o.bs.MarkCertain(o.cfg, e.Player, e.Position, e.Value)
	case EventSignalAbsent:
		return o.bs.RecordAbsent(o.cfg, e.Player, e.Value)
	case EventSignalCopyCount:
		o.bs.RecordCopyCount(e.Player, e.Position, e.Class)
		return nil
	case EventSignalAdjacency:
		o.bs.RecordAdjacency(e.Player, e.Position, e.Relation)
		return nil
	}
	return invalidEvent("unhandled event kind %d", e.Kind)
}

func (o *Orchestrator) applyCall(seq int, e Event) error {
	if e.Success {
		if err := o.bs.MarkRevealed(o.cfg, e.Target, e.Position, e.Value); err != nil {
			return err
		}
		if err := o.vt.SuccessCall(e.Caller, -1, e.Target, e.Position, e.Value); err != nil {
			return annotate(err, seq)
		}
		return nil
	}

	// Failed call: value removed from D[target][position]; caller's
	// called_v bumped unless caller already owns v (spec.md §9 Open
	// Question resolution: a call is evidence of possession at call time).
	i, ok := o.cfg.IndexOf(e.Value)
	if !ok {
		return invalidEvent("call references unknown value %v", e.Value)
	}
	if o.bs.RemoveValue(e.Target, e.Position, i) && o.bs.GetDomain(e.Target, e.Position) == EmptyDomain {
		return contradiction(seq, e.Target, e.Position, "failed call emptied target domain for value %v", e.Value)
	}
	if !o.vt.AlreadyOwns(e.Caller, e.Value) {
		if err := o.vt.FailCall(e.Caller, e.Value); err != nil {
			return annotate(err, seq)
		}
	}
	o.strikes++
	return nil
}

func (o *Orchestrator) applyDoubleReveal(seq int, e Event) error {
	if err := o.bs.MarkRevealed(o.cfg, e.Player, e.Pos1, e.Value); err != nil {
		return err
	}
	if err := o.bs.MarkRevealed(o.cfg, e.Player, e.Pos2, e.Value2); err != nil {
		return err
	}
	if err := o.vt.Reveal(e.Player, e.Pos1, e.Value); err != nil {
		return annotate(err, seq)
	}
	if err := o.vt.Reveal(e.Player, e.Pos2, e.Value2); err != nil {
		return annotate(err, seq)
	}
	return nil
}

// applySwap implements spec.md §6.2's Swap row. Whether a given
// Orchestrator's owner learns the swapped values depends on whether Owner
// is one of the two swapping players: participants get a singleton for
// the value they received; every other perspective just relocates the
// old (still uncertain) domain to the new position, per "observers swap
// the two old domains."
func (o *Orchestrator) applySwap(seq int, e Event) error {
	oldD1 := o.bs.GetDomain(e.P1, e.InitPos1)
	oldD2 := o.bs.GetDomain(e.P2, e.InitPos2)
	wasRevealed1 := o.bs.IsRevealed(e.P1, e.InitPos1)
	wasRevealed2 := o.bs.IsRevealed(e.P2, e.InitPos2)
	hadKnown1 := oldD1.IsSingleton()
	hadKnown2 := oldD2.IsSingleton()

	if hadKnown1 {
		o.vt.Retract(e.P1, e.SwapValue1, wasRevealed1)
	}
	if hadKnown2 {
		o.vt.Retract(e.P2, e.SwapValue2, wasRevealed2)
	}

	var newD1, newD2 Domain
	var state1, state2 slotState
	if o.owner == e.P1 || o.owner == e.P2 {
		i2, ok := o.cfg.IndexOf(e.SwapValue2)
		if !ok {
			return invalidEvent("swap references unknown value %v", e.SwapValue2)
		}
		i1, ok := o.cfg.IndexOf(e.SwapValue1)
		if !ok {
			return invalidEvent("swap references unknown value %v", e.SwapValue1)
		}
		newD1 = SingletonDomain(i2) // p1 receives the wire that held value2
		newD2 = SingletonDomain(i1) // p2 receives the wire that held value1
		state1, state2 = slotRevealed, slotRevealed
	} else {
		newD1 = oldD2
		newD2 = oldD1
		state1, state2 = slotHidden, slotHidden
	}

	d1, s1 := o.swapRow(e.P1, e.InitPos1, e.FinalPos1, newD1, state1)
	o.bs.ReplaceRow(e.P1, d1, s1)
	d2, s2 := o.swapRow(e.P2, e.InitPos2, e.FinalPos2, newD2, state2)
	o.bs.ReplaceRow(e.P2, d2, s2)

	if o.bs.GetDomain(e.P1, e.FinalPos1) == EmptyDomain {
		return contradiction(seq, e.P1, e.FinalPos1, "swap produced empty domain")
	}
	if o.bs.GetDomain(e.P2, e.FinalPos2) == EmptyDomain {
		return contradiction(seq, e.P2, e.FinalPos2, "swap produced empty domain")
	}

	if state1 == slotRevealed {
		if err := o.vt.Reveal(e.P1, e.FinalPos1, e.SwapValue2); err != nil {
			return annotate(err, seq)
		}
	}
	if state2 == slotRevealed {
		if err := o.vt.Reveal(e.P2, e.FinalPos2, e.SwapValue1); err != nil {
			return annotate(err, seq)
		}
	}
	return nil
}

// swapRow removes the domain at removePos and reinserts newDomain at
// insertPos, returning the resulting L-length arrays.
func (o *Orchestrator) swapRow(p, removePos, insertPos int, newDomain Domain, newState slotState) ([]Domain, []slotState) {
	L := o.cfg.L
	domains := make([]Domain, 0, L)
	states := make([]slotState, 0, L)
	for j := 0; j < L; j++ {
		if j == removePos {
			continue
		}
		domains = append(domains, o.bs.GetDomain(p, j))
		if o.bs.IsRevealed(p, j) {
			states = append(states, slotRevealed)
		} else if o.bs.IsCertain(p, j) {
			states = append(states, slotCertain)
		} else {
			states = append(states, slotHidden)
		}
	}
	if insertPos > len(domains) {
		insertPos = len(domains)
	}
	outD := make([]Domain, 0, L)
	outS := make([]slotState, 0, L)
	outD = append(outD, domains[:insertPos]...)
	outD = append(outD, newDomain)
	outD = append(outD, domains[insertPos:]...)
	outS = append(outS, states[:insertPos]...)
	outS = append(outS, newState)
	outS = append(outS, states[insertPos:]...)
	return outD, outS
}
