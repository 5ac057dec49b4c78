package program

import (
	"math/rand"
	"testing"
)

func TestPool_RetainRelease(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(1))
	pl := NewPool()

	a := NewRandomSize(cfg, 1, 0, rng)
	b := NewRandomSize(cfg, 2, 0, rng)
	pl.Retain(a)
	pl.Retain(a)
	pl.Retain(b)

	if pl.Len() != 2 || a.Refs() != 2 || b.Refs() != 1 {
		t.Fatalf("len %d, refs a=%d b=%d", pl.Len(), a.Refs(), b.Refs())
	}
	if err := pl.Check(map[uint64]int{1: 2, 2: 1}); err != nil {
		t.Fatal(err)
	}

	purged, err := pl.Release(a)
	if err != nil || purged {
		t.Fatalf("first release: purged=%v err=%v", purged, err)
	}
	purged, err = pl.Release(a)
	if err != nil || !purged {
		t.Fatalf("second release: purged=%v err=%v", purged, err)
	}
	if _, ok := pl.Get(1); ok {
		t.Error("program 1 should be purged at refcount 0")
	}
	if a.Refs() != 0 {
		t.Errorf("purged refcount = %d", a.Refs())
	}
	if _, err := pl.Release(a); err == nil {
		t.Error("releasing a purged program should fail")
	}

	got, ok := pl.Sample(rng)
	if !ok || got != b {
		t.Errorf("Sample = %v, %v; want program 2", got, ok)
	}
}

func TestPool_SampleEmpty(t *testing.T) {
	if _, ok := NewPool().Sample(rand.New(rand.NewSource(1))); ok {
		t.Error("Sample on empty pool should report false")
	}
}

func TestPool_RemoveKeepsIndex(t *testing.T) {
	cfg := testConfig()
	rng := rand.New(rand.NewSource(2))
	pl := NewPool()
	progs := make([]*Program, 6)
	for i := range progs {
		progs[i] = NewRandomSize(cfg, uint64(i), 0, rng)
		pl.Retain(progs[i])
	}
	for _, i := range []int{0, 3, 5} {
		if _, err := pl.Release(progs[i]); err != nil {
			t.Fatal(err)
		}
	}
	for _, i := range []int{1, 2, 4} {
		p, ok := pl.Get(uint64(i))
		if !ok || p != progs[i] {
			t.Errorf("Get(%d) = %v, %v", i, p, ok)
		}
	}
	if err := pl.Check(map[uint64]int{1: 1, 2: 1, 4: 1}); err != nil {
		t.Error(err)
	}
}
