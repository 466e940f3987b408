package engine

// FilterConfig toggles which local filters run, letting callers gate F5
// behind the "possibly subsumed by F3" Open Question from spec.md §9.
type FilterConfig struct {
	EnableF5ChainForcing bool
}

// DefaultFilterConfig runs every filter, including F5.
func DefaultFilterConfig() FilterConfig { return FilterConfig{EnableF5ChainForcing: true} }

// RunLocalFilters applies F1–F6 in fixed order, round-robin, until a full
// pass produces no change (spec.md §4.3's fixed-point termination). It
// returns the first ContradictionError encountered, if any; on success it
// returns nil and every invariant in §4.3 holds.
func RunLocalFilters(cfg *Config, bs *BeliefStore, vt *ValueTracker, fc FilterConfig) error {
	for {
		changed := false

		for p := 0; p < cfg.N; p++ {
			c, err := filterOrdering(cfg, bs, p)
			if err != nil {
				return err
			}
			changed = changed || c
		}

		for p := 0; p < cfg.N; p++ {
			c, err := filterSlidingWindow(cfg, bs, vt, p)
			if err != nil {
				return err
			}
			changed = changed || c
		}

		for p := 0; p < cfg.N; p++ {
			c, err := filterUncertainPositionValue(cfg, bs, vt, p)
			if err != nil {
				return err
			}
			changed = changed || c
		}

		c, err := filterSubsetCardinality(cfg, bs, vt)
		if err != nil {
			return err
		}
		changed = changed || c

		if fc.EnableF5ChainForcing {
			for p := 0; p < cfg.N; p++ {
				c, err := filterChainForcing(cfg, bs, vt, p)
				if err != nil {
					return err
				}
				changed = changed || c
			}
		}

		for p := 0; p < cfg.N; p++ {
			c, err := filterCalledValues(cfg, bs, vt, p)
			if err != nil {
				return err
			}
			changed = changed || c
		}

		if !changed {
			return nil
		}
	}
}

// filterOrdering is F1: enforce min(D[p][j]) >= min(D[p][j-1]) and
// max(D[p][j]) <= max(D[p][j+1]), left-to-right then right-to-left,
// repeated within the player until stable.
func filterOrdering(cfg *Config, bs *BeliefStore, p int) (bool, error) {
	changed := false
	for {
		pass := false
		for j := 1; j < cfg.L; j++ {
			lo := bs.GetDomain(p, j-1).Min()
			if lo < 0 {
				continue
			}
			if bs.IntersectDomain(p, j, RangeDomain(lo, cfg.K()-1, cfg.K())) {
				pass = true
				if bs.GetDomain(p, j) == EmptyDomain {
					return changed, contradiction(-1, p, j, "ordering filter emptied domain")
				}
			}
		}
		for j := cfg.L - 2; j >= 0; j-- {
			hi := bs.GetDomain(p, j+1).Max()
			if hi < 0 {
				continue
			}
			if bs.IntersectDomain(p, j, RangeDomain(0, hi, cfg.K())) {
				pass = true
				if bs.GetDomain(p, j) == EmptyDomain {
					return changed, contradiction(-1, p, j, "ordering filter emptied domain")
				}
			}
		}
		if !pass {
			return changed, nil
		}
		changed = true
	}
}

// filterSlidingWindow is F2: for each value v, restrict D[p][*] to the
// union of width-w windows that contain every position already certain
// or revealed to v in p's hand, where w is the maximum number of copies
// of v player p could still hold.
func filterSlidingWindow(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) (bool, error) {
	changed := false
	for i := 0; i < cfg.K(); i++ {
		v := cfg.ValueAt(i)
		w := windowWidth(cfg, vt, p, v)
		if w <= 0 {
			continue
		}

		var fixedPositions []int
		for j := 0; j < cfg.L; j++ {
			d := bs.GetDomain(p, j)
			if d.IsSingleton() && d.Single() == i {
				fixedPositions = append(fixedPositions, j)
			}
		}

		if w >= cfg.L {
			continue // window spans the whole hand: no restriction possible
		}

		allowedPositions := make(map[int]bool)
		for start := 0; start+w <= cfg.L; start++ {
			ok := true
			for _, fp := range fixedPositions {
				if fp < start || fp >= start+w {
					ok = false
					break
				}
			}
			if !ok {
				continue
			}
			for j := start; j < start+w; j++ {
				allowedPositions[j] = true
			}
		}
		if len(allowedPositions) == 0 {
			continue // no window fits every fixed position: F3/global will surface the contradiction
		}

		for j := 0; j < cfg.L; j++ {
			if allowedPositions[j] {
				continue
			}
			if bs.RemoveValue(p, j, i) {
				changed = true
				if bs.GetDomain(p, j) == EmptyDomain {
					return changed, contradiction(-1, p, j, "sliding-window filter emptied domain for value %v", v)
				}
			}
		}
	}
	return changed, nil
}

// windowWidth computes w for (p, v): certain+revealed+uncertain copies of
// v attributable to p's hand, plus one if p has an outstanding call on v.
func windowWidth(cfg *Config, vt *ValueTracker, p int, v Value) int {
	w := vt.PlayerOwnedCount(p, v) + vt.Uncertain(v)
	if vt.HasCalled(p, v) {
		w++
	}
	return w
}

// filterUncertainPositionValue is F3: compute, for each (p, v), the
// interval [lo, hi] of positions where v could appear given the maximum
// copies p could hold, combined with ordering; remove v outside it.
func filterUncertainPositionValue(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) (bool, error) {
	changed := false
	for i := 0; i < cfg.K(); i++ {
		v := cfg.ValueAt(i)
		maxCopies := windowWidth(cfg, vt, p, v)
		if maxCopies <= 0 {
			for j := 0; j < cfg.L; j++ {
				if bs.RemoveValue(p, j, i) {
					changed = true
					if bs.GetDomain(p, j) == EmptyDomain {
						return changed, contradiction(-1, p, j, "uncertain-position-value filter emptied domain for value %v", v)
					}
				}
			}
			continue
		}

		lo, hi := -1, -1
		for j := 0; j < cfg.L; j++ {
			if bs.GetDomain(p, j).Has(i) {
				if lo == -1 {
					lo = j
				}
				hi = j
			}
		}
		if lo == -1 {
			continue
		}
		if hi-lo+1 > maxCopies {
			// The span of positions where v is still possible is wider
			// than p could ever hold copies of v; ordering keeps p's copies
			// of v contiguous, so every copy lies within maxCopies positions
			// of each already-fixed one. With no fixed copy nothing is
			// removed here.
			var fixed []int
			for j := lo; j <= hi; j++ {
				d := bs.GetDomain(p, j)
				if d.IsSingleton() && d.Single() == i {
					fixed = append(fixed, j)
				}
			}
			newLo, newHi := lo, hi
			if len(fixed) > 0 {
				flo, fhi := fixed[0], fixed[len(fixed)-1]
				if fhi-maxCopies+1 > newLo {
					newLo = fhi - maxCopies + 1
				}
				if flo+maxCopies-1 < newHi {
					newHi = flo + maxCopies - 1
				}
			}
			for j := lo; j <= hi; j++ {
				if j < newLo || j > newHi {
					if bs.RemoveValue(p, j, i) {
						changed = true
						if bs.GetDomain(p, j) == EmptyDomain {
							return changed, contradiction(-1, p, j, "uncertain-position-value filter emptied domain for value %v", v)
						}
					}
				}
			}
		}
	}
	return changed, nil
}

// filterSubsetCardinality is F4: for subsets S of size 1..MaxSubsetH,
// if the slots whose domain is a subset of S (revealed slots included)
// exactly saturate every copy of S's values, those slots' domains are
// already correct and every OTHER slot whose domain intersects S has S
// removed from it.
func filterSubsetCardinality(cfg *Config, bs *BeliefStore, vt *ValueTracker) (bool, error) {
	changed := false
	h := cfg.MaxSubsetH
	if h <= 0 {
		h = MaxSubsetH
	}
	if h > cfg.K() {
		h = cfg.K()
	}

	type slotRef struct{ p, j int }
	var allSlots []slotRef
	for p := 0; p < cfg.N; p++ {
		for j := 0; j < cfg.L; j++ {
			allSlots = append(allSlots, slotRef{p, j})
		}
	}

	var subsets [][]int
	forEachSubset(cfg.K(), h, func(s []int) { subsets = append(subsets, append([]int(nil), s...)) })

	for _, s := range subsets {
		var mask Domain
		copies := 0
		for _, i := range s {
			mask = mask.With(i)
			copies += cfg.CopiesAt(i)
		}
		if copies == 0 {
			continue
		}

		var inSubset, intersecting []slotRef
		for _, sl := range allSlots {
			d := bs.GetDomain(sl.p, sl.j)
			if d == EmptyDomain {
				continue
			}
			if d.Intersect(mask) == d {
				inSubset = append(inSubset, sl)
			} else if d.Intersect(mask) != EmptyDomain {
				intersecting = append(intersecting, sl)
			}
		}

		if len(inSubset) == copies && len(inSubset) > 0 {
			for _, sl := range intersecting {
				if bs.IntersectDomain(sl.p, sl.j, ^mask&FullDomain(cfg.K())) {
					changed = true
					if bs.GetDomain(sl.p, sl.j) == EmptyDomain {
						return changed, contradiction(-1, sl.p, sl.j, "subset-cardinality filter emptied domain")
					}
				}
			}
		}
	}
	return changed, nil
}

// remainingCopies returns r'_v, the number of non-revealed copies of v.
func remainingCopies(cfg *Config, vt *ValueTracker, v Value) int {
	return cfg.Copies(v) - vt.Revealed(v)
}

// forEachSubset calls fn once per subset of {0,...,k-1} with size 1..h.
func forEachSubset(k, h int, fn func([]int)) {
	var cur []int
	var rec func(start int)
	rec = func(start int) {
		if len(cur) > 0 {
			fn(cur)
		}
		if len(cur) == h {
			return
		}
		for i := start; i < k; i++ {
			cur = append(cur, i)
			rec(i + 1)
			cur = cur[:len(cur)-1]
		}
	}
	rec(0)
}

// filterChainForcing is F5: for each ambiguous (p, j, v), hypothesize v
// at j and walk outward while ordering forces neighbors to v too; if the
// forced chain is longer than the copies of v available to p, v cannot
// be at j.
func filterChainForcing(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) (bool, error) {
	changed := false
	for j := 0; j < cfg.L; j++ {
		d := bs.GetDomain(p, j)
		if d.IsSingleton() {
			continue
		}
		for _, i := range d.Indices() {
			v := cfg.ValueAt(i)
			required, contradictory := chainLength(cfg, bs, p, j, i)
			if contradictory {
				if bs.RemoveValue(p, j, i) {
					changed = true
				}
				continue
			}
			if required <= 1 {
				continue
			}
			available := vt.Uncertain(v) + chainOwnedOverlap(cfg, bs, vt, p, j, i, required)
			if required > available {
				if bs.RemoveValue(p, j, i) {
					changed = true
					if bs.GetDomain(p, j) == EmptyDomain {
						return changed, contradiction(-1, p, j, "chain-forcing filter emptied domain for value %v", v)
					}
				}
			}
		}
	}
	return changed, nil
}

// chainLength walks left and right from (p, j) hypothesizing value index
// i, returning the length of slots whose min/max bound forces them to i,
// and whether the hypothesis is immediately contradictory (a forced
// neighbor's min exceeds i).
func chainLength(cfg *Config, bs *BeliefStore, p, j, i int) (length int, contradictory bool) {
	length = 1
	for k := j - 1; k >= 0; k-- {
		d := bs.GetDomain(p, k)
		m := d.Min()
		if m == i {
			length++
			continue
		}
		if m > i {
			return length, true
		}
		break
	}
	for k := j + 1; k < cfg.L; k++ {
		d := bs.GetDomain(p, k)
		m := d.Max()
		if m == i {
			length++
			continue
		}
		if m < i {
			return length, true
		}
		break
	}
	return length, false
}

// chainOwnedOverlap counts revealed/certain/called copies of the value at
// canonical index i that p already has within the chain window, so they
// count toward `available` rather than `required`.
func chainOwnedOverlap(cfg *Config, bs *BeliefStore, vt *ValueTracker, p, j, i, required int) int {
	v := cfg.ValueAt(i)
	n := 0
	for k := j - required; k <= j+required; k++ {
		if k < 0 || k >= cfg.L || k == j {
			continue
		}
		d := bs.GetDomain(p, k)
		if d.IsSingleton() && d.Single() == i {
			n++
		}
	}
	if vt.HasCalled(p, v) {
		n++
	}
	return n
}

// filterCalledValues is F6: every value p has called must appear in at
// least one of p's slots; every value p announced absent must appear in
// none (already enforced at signal time by RecordAbsent, re-asserted here
// for idempotence after later domain changes).
func filterCalledValues(cfg *Config, bs *BeliefStore, vt *ValueTracker, p int) (bool, error) {
	changed := false

	absent := bs.Absent(p)
	for j := 0; j < cfg.L; j++ {
		if bs.IntersectDomain(p, j, ^absent&FullDomain(cfg.K())) {
			changed = true
			if bs.GetDomain(p, j) == EmptyDomain {
				return changed, contradiction(-1, p, j, "called-values filter emptied domain (absent conflict)")
			}
		}
	}

	called := vt.CalledDomain(p)
	for _, i := range called.Indices() {
		count, onlySlot := 0, -1
		for j := 0; j < cfg.L; j++ {
			if bs.GetDomain(p, j).Has(i) {
				count++
				onlySlot = j
			}
		}
		if count == 0 {
			return changed, contradiction(-1, p, -1, "called value %v has no remaining candidate slot for player %d", cfg.ValueAt(i), p)
		}
		if count == 1 {
			if bs.IntersectDomain(p, onlySlot, SingletonDomain(i)) {
				changed = true
			}
		}
	}
	return changed, nil
}
