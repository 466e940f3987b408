package engine

import "testing"

func TestSignatureCacheGetPutLen(t *testing.T) {
	c := NewSignatureCache()
	if _, ok := c.Get("missing"); ok {
		t.Fatalf("expected Get on an empty cache to report a miss")
	}
	if c.Len() != 0 {
		t.Fatalf("Len() = %d, want 0", c.Len())
	}

	set := &SignatureSet{byKey: map[string]*sigHands{}}
	c.Put("k1", set)
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1 after Put", c.Len())
	}
	got, ok := c.Get("k1")
	if !ok || got != set {
		t.Errorf("Get(%q) = (%v,%v), want the stored set", "k1", got, ok)
	}
}

func TestSignatureCacheKeyStableWhenNothingChanges(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	k1 := signatureCacheKey(cfg, bs, vt, 0)
	k2 := signatureCacheKey(cfg, bs, vt, 0)
	if k1 != k2 {
		t.Errorf("key changed with no mutation between calls: %q != %q", k1, k2)
	}
}

func TestSignatureCacheKeyChangesWithPlayer(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	if signatureCacheKey(cfg, bs, vt, 0) == signatureCacheKey(cfg, bs, vt, 1) {
		t.Errorf("expected different players to produce different keys even with identical state")
	}
}

func TestSignatureCacheKeyChangesWithDomainMutation(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	before := signatureCacheKey(cfg, bs, vt, 0)
	bs.SetDomain(0, 0, SingletonDomain(0))
	after := signatureCacheKey(cfg, bs, vt, 0)
	if before == after {
		t.Errorf("expected a domain change to change the cache key")
	}
}

func TestSignatureCacheKeyChangesWithAbsentSet(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	before := signatureCacheKey(cfg, bs, vt, 0)
	if err := bs.RecordAbsent(cfg, 0, 1); err != nil {
		t.Fatalf("RecordAbsent returned error: %v", err)
	}
	after := signatureCacheKey(cfg, bs, vt, 0)
	if before == after {
		t.Errorf("expected recording an absent value to change the cache key")
	}
}

func TestSignatureCacheKeyChangesWithCalledDomain(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	before := signatureCacheKey(cfg, bs, vt, 0)
	if err := vt.FailCall(0, 1); err != nil {
		t.Fatalf("FailCall returned error: %v", err)
	}
	after := signatureCacheKey(cfg, bs, vt, 0)
	if before == after {
		t.Errorf("expected a newly-called value to change the cache key")
	}
}

func TestSignatureCacheKeyChangesWithCopyCountAndAdjacencySignals(t *testing.T) {
	cfg, err := NewConfig(map[Value]int{1: 2, 2: 2}, 2, 3, ModeSimulation)
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	bs := NewBeliefStore(cfg)
	vt := NewValueTracker(cfg)

	base := signatureCacheKey(cfg, bs, vt, 0)
	bs.RecordCopyCount(0, 1, CopyClassTwo)
	withCopyCount := signatureCacheKey(cfg, bs, vt, 0)
	if base == withCopyCount {
		t.Errorf("expected a copy-count signal to change the cache key")
	}

	bs.RecordAdjacency(0, 0, AdjNEQ)
	withAdjacency := signatureCacheKey(cfg, bs, vt, 0)
	if withCopyCount == withAdjacency {
		t.Errorf("expected an adjacency signal to change the cache key")
	}
}
