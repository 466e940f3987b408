package engine

import "testing"

func TestFullDomainContainsEveryIndex(t *testing.T) {
	d := FullDomain(5)
	for i := 0; i < 5; i++ {
		if !d.Has(i) {
			t.Errorf("FullDomain(5).Has(%d) = false, want true", i)
		}
	}
	if d.Has(5) {
		t.Errorf("FullDomain(5).Has(5) = true, want false")
	}
	if d.Len() != 5 {
		t.Errorf("FullDomain(5).Len() = %d, want 5", d.Len())
	}
}

func TestSingletonDomain(t *testing.T) {
	d := SingletonDomain(3)
	if !d.IsSingleton() {
		t.Fatalf("SingletonDomain(3).IsSingleton() = false, want true")
	}
	if d.Single() != 3 {
		t.Errorf("SingletonDomain(3).Single() = %d, want 3", d.Single())
	}
}

func TestDomainWithWithout(t *testing.T) {
	d := EmptyDomain.With(1).With(2).With(3)
	if d.Len() != 3 {
		t.Fatalf("expected 3 elements, got %d", d.Len())
	}
	d = d.Without(2)
	if d.Has(2) {
		t.Errorf("expected index 2 removed")
	}
	if !d.Has(1) || !d.Has(3) {
		t.Errorf("expected indices 1 and 3 to remain")
	}
}

func TestDomainIntersectUnion(t *testing.T) {
	a := FullDomain(3)
	b := SingletonDomain(1)
	if got := a.Intersect(b); got != b {
		t.Errorf("FullDomain(3).Intersect(SingletonDomain(1)) = %v, want %v", got, b)
	}
	if got := b.Union(SingletonDomain(2)).Len(); got != 2 {
		t.Errorf("union length = %d, want 2", got)
	}
}

func TestRangeDomain(t *testing.T) {
	d := RangeDomain(1, 3, 5)
	for i := 0; i < 5; i++ {
		want := i >= 1 && i <= 3
		if d.Has(i) != want {
			t.Errorf("RangeDomain(1,3,5).Has(%d) = %v, want %v", i, d.Has(i), want)
		}
	}
}

func TestDomainMinMaxIndices(t *testing.T) {
	d := EmptyDomain.With(1).With(4).With(2)
	if d.Min() != 1 {
		t.Errorf("Min() = %d, want 1", d.Min())
	}
	if d.Max() != 4 {
		t.Errorf("Max() = %d, want 4", d.Max())
	}
	idx := d.Indices()
	want := []int{1, 2, 4}
	if len(idx) != len(want) {
		t.Fatalf("Indices() = %v, want %v", idx, want)
	}
	for i := range want {
		if idx[i] != want[i] {
			t.Errorf("Indices()[%d] = %d, want %d", i, idx[i], want[i])
		}
	}
}

func TestEmptyDomainMinMax(t *testing.T) {
	if EmptyDomain.Min() != -1 || EmptyDomain.Max() != -1 {
		t.Errorf("EmptyDomain Min/Max should both be -1")
	}
}
