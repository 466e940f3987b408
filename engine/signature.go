package engine

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Signature is a Parikh vector: Signature[i] is the number of times the
// value at canonical index i appears in a hand. len(Signature) == cfg.K().
type Signature []int

// Key returns a canonical hashable key for σ, playing the role of the
// base-(M+1) integer encoding from spec.md §4.5: each count is packed as
// a fixed-width field so that equal vectors produce equal keys and O(1)
// set membership is a plain map lookup.
func (s Signature) Key() string {
	var b strings.Builder
	for _, c := range s {
		fmt.Fprintf(&b, "%04x", c)
	}
	return b.String()
}

// Add returns s + other, element-wise.
func (s Signature) Add(other Signature) Signature {
	out := make(Signature, len(s))
	for i := range s {
		out[i] = s[i] + other[i]
	}
	return out
}

// LessEq reports whether s[i] <= other[i] for every i.
func (s Signature) LessEq(other Signature) bool {
	for i := range s {
		if s[i] > other[i] {
			return false
		}
	}
	return true
}

// sigHands records, for one generated signature, every concrete sorted
// hand (as canonical-index sequences) that realizes it — needed for
// domain projection (spec.md §4.4's "signature → list of concrete sorted
// hands" output).
type sigHands struct {
	counts Signature
	hands  [][]int // each hand is a length-L sequence of canonical indices, non-decreasing
}

// SignatureSet is the per-player SignatureGenerator output V_p: a set of
// distinct signatures plus their realizing hands.
type SignatureSet struct {
	byKey map[string]*sigHands
}

// Signatures returns the distinct Parikh vectors in V_p.
func (s *SignatureSet) Signatures() []Signature {
	out := make([]Signature, 0, len(s.byKey))
	for _, e := range s.byKey {
		out = append(out, e.counts)
	}
	return out
}

// HandsFor returns the concrete hands realizing σ (by its Key()), or nil.
func (s *SignatureSet) HandsFor(key string) [][]int {
	e, ok := s.byKey[key]
	if !ok {
		return nil
	}
	return e.hands
}

// Len reports how many distinct signatures V_p contains.
func (s *SignatureSet) Len() int { return len(s.byKey) }

// signatureSetDTO is the wire shape for SignatureSet, needed because
// byKey's value type carries unexported fields: a distributed backing
// store (service/internal/cache) only ever sees this shape.
type signatureSetDTO struct {
	Counts []Signature `json:"counts"`
	Hands  [][][]int   `json:"hands"`
}

// MarshalJSON encodes the signature/hands pairs positionally, dropping
// byKey's redundant string keys (recomputed on decode via Signature.Key).
func (s *SignatureSet) MarshalJSON() ([]byte, error) {
	dto := signatureSetDTO{Counts: make([]Signature, 0, len(s.byKey)), Hands: make([][][]int, 0, len(s.byKey))}
	for _, e := range s.byKey {
		dto.Counts = append(dto.Counts, e.counts)
		dto.Hands = append(dto.Hands, e.hands)
	}
	return json.Marshal(dto)
}

// UnmarshalJSON rebuilds byKey from the positional counts/hands pairs.
func (s *SignatureSet) UnmarshalJSON(data []byte) error {
	var dto signatureSetDTO
	if err := json.Unmarshal(data, &dto); err != nil {
		return err
	}
	byKey := make(map[string]*sigHands, len(dto.Counts))
	for i, counts := range dto.Counts {
		byKey[counts.Key()] = &sigHands{counts: counts, hands: dto.Hands[i]}
	}
	s.byKey = byKey
	return nil
}

// generatorState is the per-call mutable state threaded through the
// backtracking search, kept out of Config/BeliefStore per the "pure
// function over input data" design in spec.md §9.
type generatorState struct {
	cfg       *Config
	domains   []Domain // D[p][0..L-1] for the player being generated
	absent    Domain
	adjacency []adjacencySignal
	copyCount map[int]CopyClass // position -> declared class
	called    Domain            // values this player has called, must each appear >=1
	cap       []int             // per-value remaining cap (r_v - revealed/certain elsewhere)

	hand    []int // current partial hand (canonical indices), length == current depth
	counts  []int // running per-value count vector
	results map[string]*sigHands
}

// GenerateSignatures implements SignatureGenerator (spec.md §4.4): depth
// first backtracking over position index, enumerating every sorted hand
// compatible with domains, signals, called/absent values, and per-value
// caps.
func GenerateSignatures(cfg *Config, domains []Domain, absent Domain, adjacency []adjacencySignal, copyCountSignals []copyCountSignal, called Domain, cap []int) *SignatureSet {
	gs := &generatorState{
		cfg:       cfg,
		domains:   domains,
		absent:    absent,
		adjacency: adjacency,
		copyCount: make(map[int]CopyClass, len(copyCountSignals)),
		called:    called,
		cap:       cap,
		hand:      make([]int, 0, len(domains)),
		counts:    make([]int, cfg.K()),
		results:   make(map[string]*sigHands),
	}
	for _, s := range copyCountSignals {
		gs.copyCount[s.pos] = s.class
	}
	gs.search(0)
	return &SignatureSet{byKey: gs.results}
}

func (gs *generatorState) adjRelationAt(pos int) (AdjRelation, bool) {
	// relation applies between pos-1 and pos, recorded against position pos-1.
	for _, a := range gs.adjacency {
		if a.pos == pos-1 {
			return a.relation, true
		}
	}
	return 0, false
}

func (gs *generatorState) search(pos int) {
	L := len(gs.domains)
	if pos == L {
		present := domainFromCounts(gs.counts)
		if gs.called.Intersect(present) != gs.called {
			return
		}
		sig := make(Signature, len(gs.counts))
		copy(sig, gs.counts)
		key := sig.Key()
		entry, ok := gs.results[key]
		if !ok {
			entry = &sigHands{counts: sig}
			gs.results[key] = entry
		}
		handCopy := make([]int, len(gs.hand))
		copy(handCopy, gs.hand)
		entry.hands = append(entry.hands, handCopy)
		return
	}

	lowerBound := 0
	if pos > 0 {
		lowerBound = gs.hand[pos-1]
	}

	candidates := gs.domains[pos]
	if class, ok := gs.copyCount[pos]; ok {
		candidates = candidates.Intersect(gs.classMask(class))
	}
	if rel, ok := gs.adjRelationAt(pos); ok && pos > 0 {
		prev := gs.hand[pos-1]
		switch rel {
		case AdjEQ:
			candidates = candidates.Intersect(SingletonDomain(prev))
		case AdjNEQ:
			candidates = candidates.Without(prev)
		}
	}
	candidates = candidates.Intersect(^gs.absent & FullDomain(gs.cfg.K()))

	for _, i := range candidates.Indices() {
		if i < lowerBound {
			continue
		}
		if gs.counts[i]+1 > gs.cap[i] {
			continue
		}
		gs.hand = append(gs.hand, i)
		gs.counts[i]++
		gs.search(pos + 1)
		gs.counts[i]--
		gs.hand = gs.hand[:len(gs.hand)-1]
	}
}

// classMask returns the set of canonical indices whose global copy count
// r_v matches the declared multiplicity class.
func (gs *generatorState) classMask(class CopyClass) Domain {
	var d Domain
	for i := 0; i < gs.cfg.K(); i++ {
		if gs.cfg.CopiesAt(i) == int(class) {
			d = d.With(i)
		}
	}
	return d
}

// domainFromCounts returns the set of canonical indices with a non-zero
// count, used to check "every called value appears >= 1 time".
func domainFromCounts(counts []int) Domain {
	var d Domain
	for i, c := range counts {
		if c > 0 {
			d = d.With(i)
		}
	}
	return d
}
