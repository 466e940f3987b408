package engine

import "math/bits"

// Domain is a candidate set D[p][j] packed into a single uint64 bitset,
// one bit per canonical value index. This mirrors the teacher's packed
// uint8 Card representation, generalized from a fixed 4-suit/13-rank
// space to an arbitrary K ≤ MaxValues value space.
//
// A Domain is a value type: callers pass it by value and assignment
// copies it, matching the engine's zero-allocation style.
type Domain uint64

// EmptyDomain has no candidates. A slot domain must never observably
// reach this state; the code that empties one returns a
// *ContradictionError.
const EmptyDomain Domain = 0

// FullDomain returns the domain containing every one of the first k
// canonical indices.
func FullDomain(k int) Domain {
	if k >= 64 {
		return ^Domain(0)
	}
	return Domain(uint64(1)<<uint(k) - 1)
}

// SingletonDomain returns a domain containing only canonical index i.
func SingletonDomain(i int) Domain { return Domain(1) << uint(i) }

// Has reports whether canonical index i is in d.
func (d Domain) Has(i int) bool { return d&(Domain(1)<<uint(i)) != 0 }

// With returns d with canonical index i added.
func (d Domain) With(i int) Domain { return d | (Domain(1) << uint(i)) }

// Without returns d with canonical index i removed.
func (d Domain) Without(i int) Domain { return d &^ (Domain(1) << uint(i)) }

// Intersect returns d ∩ other.
func (d Domain) Intersect(other Domain) Domain { return d & other }

// Union returns d ∪ other.
func (d Domain) Union(other Domain) Domain { return d | other }

// Len returns |d|, the number of candidate values.
func (d Domain) Len() int { return bits.OnesCount64(uint64(d)) }

// IsEmpty reports whether d has no candidates.
func (d Domain) IsEmpty() bool { return d == EmptyDomain }

// IsSingleton reports whether |d| == 1.
func (d Domain) IsSingleton() bool { return d != 0 && d&(d-1) == 0 }

// Single returns the sole canonical index in d. The caller must ensure
// IsSingleton() first; behavior is undefined otherwise.
func (d Domain) Single() int { return bits.TrailingZeros64(uint64(d)) }

// Min returns the smallest canonical index present in d, or -1 if empty.
func (d Domain) Min() int {
	if d == 0 {
		return -1
	}
	return bits.TrailingZeros64(uint64(d))
}

// Max returns the largest canonical index present in d, or -1 if empty.
func (d Domain) Max() int {
	if d == 0 {
		return -1
	}
	return 63 - bits.LeadingZeros64(uint64(d))
}

// Indices returns the canonical indices present in d, ascending.
func (d Domain) Indices() []int {
	out := make([]int, 0, d.Len())
	for x := uint64(d); x != 0; x &= x - 1 {
		out = append(out, bits.TrailingZeros64(x))
	}
	return out
}

// RangeDomain returns the domain of canonical indices in [lo, hi]
// (inclusive), clipped to [0, k).
func RangeDomain(lo, hi, k int) Domain {
	if lo < 0 {
		lo = 0
	}
	if hi >= k {
		hi = k - 1
	}
	if lo > hi {
		return EmptyDomain
	}
	width := hi - lo + 1
	var d Domain
	if width >= 64 {
		d = ^Domain(0)
	} else {
		d = Domain(uint64(1)<<uint(width) - 1)
	}
	return d << uint(lo)
}

// Values resolves d's canonical indices to Values via cfg.
func (d Domain) Values(cfg *Config) []Value {
	idx := d.Indices()
	out := make([]Value, len(idx))
	for i, x := range idx {
		out[i] = cfg.ValueAt(x)
	}
	return out
}

// DomainOf builds a Domain from a set of Values, ignoring any value not
// present in cfg's universe.
func DomainOf(cfg *Config, vs ...Value) Domain {
	var d Domain
	for _, v := range vs {
		if i, ok := cfg.IndexOf(v); ok {
			d = d.With(i)
		}
	}
	return d
}
