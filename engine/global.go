package engine

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
)

// resourceSet is a hash set of length-K resource vectors (the α/β sets of
// spec.md §4.5), keyed by the same packed encoding as Signature.Key.
type resourceSet map[string]Signature

func newResourceSet() resourceSet { return make(resourceSet) }

func (r resourceSet) add(v Signature) { r[v.Key()] = v }

func (r resourceSet) has(v Signature) bool { _, ok := r[v.Key()]; return ok }

// GlobalSolverResult is the outcome of one global-consistency pass.
type GlobalSolverResult struct {
	// PerPlayer[p] holds, for every slot, the domain the global pass
	// would project onto it (before intersection with the prior domain).
	PerPlayer [][]Domain
	// TimedOut is set when the budget elapsed before every player's
	// signature generation completed; PerPlayer is then nil and no
	// projection is made for any player.
	TimedOut bool
	// TimeoutErr carries the budget that was exceeded when TimedOut is
	// set, for callers that want to log or surface it; it is not returned
	// as SolveGlobal's error because a timeout is a warning, not a fatal
	// contradiction — the caller falls back to the local-filter-only
	// result.
	TimeoutErr *BudgetExceededError
}

// SolveGlobal implements spec.md §4.5 end to end: per-player signature
// generation (fanned out across goroutines per §5), forward/backward DP
// over resource vectors, and domain projection. sigSets, if non-nil, is
// used as a cache of already-computed per-player SignatureSets (keyed by
// player) to skip regeneration; newly computed sets are stored back into
// it after every worker has finished.
func SolveGlobal(ctx context.Context, cfg *Config, bs *BeliefStore, vt *ValueTracker, budgetMS int, sigSets map[int]*SignatureSet) (*GlobalSolverResult, error) {
	if budgetMS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(budgetMS)*time.Millisecond)
		defer cancel()
	}

	N := cfg.N
	V := make([]*SignatureSet, N)

	g, gctx := errgroup.WithContext(ctx)
	for p := 0; p < N; p++ {
		p := p
		g.Go(func() error {
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}
			if cached, ok := sigSets[p]; ok {
				V[p] = cached
				return nil
			}
			domains := make([]Domain, cfg.L)
			for j := 0; j < cfg.L; j++ {
				domains[j] = bs.GetDomain(p, j)
			}
			cap := perPlayerCap(cfg, vt, p)
			set := GenerateSignatures(cfg, domains, bs.Absent(p), bs.AdjacencySignals(p), bs.CopyCountSignals(p), vt.CalledDomain(p), cap)
			if set.Len() == 0 {
				return contradiction(-1, p, -1, "no locally valid hand signatures for player %d", p)
			}
			V[p] = set
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		if err == context.DeadlineExceeded {
			return &GlobalSolverResult{TimedOut: true, TimeoutErr: &BudgetExceededError{BudgetMS: budgetMS}}, nil
		}
		return nil, err
	}
	if sigSets != nil {
		for p, set := range V {
			sigSets[p] = set
		}
	}

	deck := cfg.DeckVector()
	deckSig := Signature(deck)

	// Forward pass.
	alpha := make([]resourceSet, N+1)
	alpha[0] = newResourceSet()
	zero := make(Signature, cfg.K())
	alpha[0].add(zero)
	for i := 0; i < N; i++ {
		alpha[i+1] = newResourceSet()
		if len(alpha[i]) == 0 {
			return nil, contradiction(-1, -1, -1, "forward pass: alpha[%d] is empty", i)
		}
		for _, a := range alpha[i] {
			for _, sig := range V[i].Signatures() {
				next := a.Add(sig)
				if next.LessEq(deckSig) {
					alpha[i+1].add(next)
				}
			}
		}
	}
	if !alpha[N].has(deckSig) {
		return nil, contradiction(-1, -1, -1, "deck vector unreachable in forward pass: global resource constraint violated")
	}

	// Backward pass.
	beta := make([]resourceSet, N+1)
	beta[N] = newResourceSet()
	beta[N].add(zero)
	for i := N - 1; i >= 0; i-- {
		beta[i] = newResourceSet()
		for _, b := range beta[i+1] {
			for _, sig := range V[i].Signatures() {
				next := sig.Add(b)
				if next.LessEq(deckSig) {
					beta[i].add(next)
				}
			}
		}
	}

	// Projection.
	result := &GlobalSolverResult{PerPlayer: make([][]Domain, N)}
	for p := 0; p < N; p++ {
		full := FullDomain(cfg.K())
		starDomains := make([]Domain, cfg.L)

		for _, sig := range V[p].Signatures() {
			r := make(Signature, cfg.K())
			for i := range r {
				r[i] = deck[i] - sig[i]
			}
			valid := false
			// Iterate the smaller of alpha[p], beta[p+1]; lookup in the other.
			if len(alpha[p]) <= len(beta[p+1]) {
				for _, a := range alpha[p] {
					need := make(Signature, cfg.K())
					for i := range need {
						need[i] = r[i] - a[i]
					}
					if allNonNeg(need) && beta[p+1].has(need) {
						valid = true
						break
					}
				}
			} else {
				for _, b := range beta[p+1] {
					need := make(Signature, cfg.K())
					for i := range need {
						need[i] = r[i] - b[i]
					}
					if allNonNeg(need) && alpha[p].has(need) {
						valid = true
						break
					}
				}
			}
			if !valid {
				continue
			}
			for _, hand := range V[p].HandsFor(sig.Key()) {
				for j, idx := range hand {
					starDomains[j] = starDomains[j].With(idx)
				}
			}
		}

		for j := 0; j < cfg.L; j++ {
			if starDomains[j] == EmptyDomain {
				starDomains[j] = full // no globally valid signature reached this slot; leave domain unconstrained by this pass
			}
		}
		result.PerPlayer[p] = starDomains
	}

	return result, nil
}

func allNonNeg(s Signature) bool {
	for _, c := range s {
		if c < 0 {
			return false
		}
	}
	return true
}

// perPlayerCap computes the global per-player cap on each value: the
// number of copies player p could still hold, bounded by uncertain_v plus
// whatever p already has certain/revealed/called.
func perPlayerCap(cfg *Config, vt *ValueTracker, p int) []int {
	cap := make([]int, cfg.K())
	for i := 0; i < cfg.K(); i++ {
		v := cfg.ValueAt(i)
		owned := vt.PlayerOwnedCount(p, v)
		calledHere := 0
		if vt.HasCalled(p, v) {
			calledHere = 1
		}
		cap[i] = vt.Uncertain(v) + owned + calledHere
		if cap[i] > cfg.CopiesAt(i) {
			cap[i] = cfg.CopiesAt(i)
		}
	}
	return cap
}
