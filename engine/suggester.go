package engine

import (
	"math"
	"sort"
)

// CallCandidate is one (target, position, value) triple worth ranking, per
// spec.md §2's "thin Suggester" component.
type CallCandidate struct {
	Target          int
	Position        int
	Value           Value
	PossibilityCount int
}

// CandidateScore pairs a CallCandidate with its expected-information-gain
// ranking.
type CandidateScore struct {
	Candidate       CallCandidate
	PSuccess        float64
	ExpectedEntropy float64
	InformationGain float64
}

// PositionEntropy returns the Shannon entropy, in bits, of one (p, j) slot
// under a uniform-over-candidates assumption: H = log2(|D[p][j]|).
func PositionEntropy(bs *BeliefStore, p, j int) float64 {
	n := bs.GetDomain(p, j).Len()
	if n <= 1 {
		return 0
	}
	return math.Log2(float64(n))
}

// PlayerEntropy sums PositionEntropy across one player's hand.
func PlayerEntropy(cfg *Config, bs *BeliefStore, p int) float64 {
	total := 0.0
	for j := 0; j < cfg.L; j++ {
		total += PositionEntropy(bs, p, j)
	}
	return total
}

// SystemEntropy sums PlayerEntropy across every player, the scalar
// uncertainty measure the Suggester tries to minimize.
func SystemEntropy(cfg *Config, bs *BeliefStore) float64 {
	total := 0.0
	for p := 0; p < cfg.N; p++ {
		total += PlayerEntropy(cfg, bs, p)
	}
	return total
}

// CandidateCalls enumerates every (target, position, value) a caller could
// make whose position has at most maxUncertainty remaining candidates —
// the same pre-filter the original entropy suggester applies before the
// expensive simulate-success/simulate-failure step.
func CandidateCalls(cfg *Config, bs *BeliefStore, caller, maxUncertainty int) []CallCandidate {
	var out []CallCandidate
	for p := 0; p < cfg.N; p++ {
		if p == caller {
			continue
		}
		for j := 0; j < cfg.L; j++ {
			d := bs.GetDomain(p, j)
			n := d.Len()
			if n < 1 || n > maxUncertainty {
				continue
			}
			for _, i := range d.Indices() {
				out = append(out, CallCandidate{Target: p, Position: j, Value: cfg.ValueAt(i), PossibilityCount: n})
			}
		}
	}
	return out
}

// RankByExpectedInformationGain scores every candidate by simulating its
// two outcomes (success collapses the slot to the called value; failure
// removes it) on a throwaway clone of bs/vt, then re-running local filters
// and measuring the resulting system entropy. It returns candidates sorted
// by descending information gain, grounded on entropy_suggester.py's
// expected-entropy formula E[H] = P(success)*H_success + P(failure)*H_failure.
func RankByExpectedInformationGain(cfg *Config, bs *BeliefStore, vt *ValueTracker, candidates []CallCandidate, fc FilterConfig) []CandidateScore {
	currentEntropy := SystemEntropy(cfg, bs)
	scores := make([]CandidateScore, 0, len(candidates))

	for _, c := range candidates {
		i, ok := cfg.IndexOf(c.Value)
		if !ok || c.PossibilityCount == 0 {
			continue
		}
		pSuccess := 1.0 / float64(c.PossibilityCount)
		pFailure := 1.0 - pSuccess

		hSuccess := simulateEntropy(cfg, bs, vt, fc, c.Target, c.Position, i, true)
		hFailure := simulateEntropy(cfg, bs, vt, fc, c.Target, c.Position, i, false)

		expected := pSuccess*hSuccess + pFailure*hFailure
		scores = append(scores, CandidateScore{
			Candidate:       c,
			PSuccess:        pSuccess,
			ExpectedEntropy: expected,
			InformationGain: currentEntropy - expected,
		})
	}

	sort.Slice(scores, func(a, b int) bool { return scores[a].InformationGain > scores[b].InformationGain })
	return scores
}

// simulateEntropy clones bs/vt, applies a hypothetical success or failure
// at (p, j, i), re-runs local filters, and returns the resulting system
// entropy. A contradiction during the hypothetical simply yields zero
// entropy (a provably impossible branch carries no remaining uncertainty).
func simulateEntropy(cfg *Config, bs *BeliefStore, vt *ValueTracker, fc FilterConfig, p, j, i int, success bool) float64 {
	cloneBS, cloneVT := cloneBeliefState(cfg, bs, vt)

	if success {
		cloneBS.SetDomain(p, j, SingletonDomain(i))
	} else {
		cloneBS.RemoveValue(p, j, i)
	}

	if err := RunLocalFilters(cfg, cloneBS, cloneVT, fc); err != nil {
		return 0
	}
	return SystemEntropy(cfg, cloneBS)
}

// cloneBeliefState deep-copies a BeliefStore and ValueTracker's domain and
// counter state for what-if simulation, without touching the originals.
func cloneBeliefState(cfg *Config, bs *BeliefStore, vt *ValueTracker) (*BeliefStore, *ValueTracker) {
	newBS := NewBeliefStore(cfg)
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			newBS.SetDomain(p, j, bs.GetDomain(p, j))
		}
		newBS.players[p].absent = bs.players[p].absent
		newBS.players[p].adjacency = append([]adjacencySignal(nil), bs.players[p].adjacency...)
		newBS.players[p].copyCount = append([]copyCountSignal(nil), bs.players[p].copyCount...)
		newBS.players[p].states = append([]slotState(nil), bs.players[p].states...)
	}
	newBS.ClearDirty()

	newVT := NewValueTracker(cfg)
	for i := range vt.counts {
		newVT.counts[i] = vt.counts[i]
	}
	for p := 0; p < cfg.N; p++ {
		newVT.perPlayerCalled[p] = vt.perPlayerCalled[p]
		copy(newVT.perPlayerOwned[p], vt.perPlayerOwned[p])
	}

	return newBS, newVT
}

// DoubleChanceCandidate pairs two candidates on the same target whose
// slots have identical multi-value domains, so a single failed call
// still narrows both — the "double chance" heuristic from the original
// suggester's broader candidate ranking.
type DoubleChanceCandidate struct {
	First, Second CallCandidate
}

// FindDoubleChanceCandidates pairs same-player candidates whose domains are
// identical (a forced failure on one immediately narrows the other, since
// both slots share the same remaining possibility set).
func FindDoubleChanceCandidates(cfg *Config, bs *BeliefStore, candidates []CallCandidate) []DoubleChanceCandidate {
	byTarget := make(map[int][]CallCandidate)
	for _, c := range candidates {
		byTarget[c.Target] = append(byTarget[c.Target], c)
	}

	var out []DoubleChanceCandidate
	for _, cs := range byTarget {
		for a := 0; a < len(cs); a++ {
			for b := a + 1; b < len(cs); b++ {
				if cs[a].Position == cs[b].Position {
					continue
				}
				da := bs.GetDomain(cs[a].Target, cs[a].Position)
				db := bs.GetDomain(cs[b].Target, cs[b].Position)
				if da == db && da.Len() > 1 {
					out = append(out, DoubleChanceCandidate{First: cs[a], Second: cs[b]})
				}
			}
		}
	}
	return out
}
