package randx_test

import (
	"testing"

	"github.com/sw965/bandit/mathx/randx"
)

func TestSameSeedSameStream(t *testing.T) {
	rng1 := randx.NewMt19937(42)
	rng2 := randx.NewMt19937(42)
	for i := 0; i < 100; i++ {
		if rng1.Uint64() != rng2.Uint64() {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}

func TestDifferentSeedsDiverge(t *testing.T) {
	rng1 := randx.NewMt19937(1)
	rng2 := randx.NewMt19937(2)
	same := true
	for i := 0; i < 10; i++ {
		if rng1.Uint64() != rng2.Uint64() {
			same = false
		}
	}
	if same {
		t.Fatal("different seeds produced identical streams")
	}
}

func TestNewMt19937s(t *testing.T) {
	rngs := randx.NewMt19937s(5, 3)
	if len(rngs) != 3 {
		t.Fatalf("len = %d, want 3", len(rngs))
	}
	// The streams are seeded seed, seed+1, ... so rngs[1] must match a
	// fresh generator seeded one above the base.
	want := randx.NewMt19937(6)
	for i := 0; i < 10; i++ {
		if rngs[1].Uint64() != want.Uint64() {
			t.Fatalf("stream 1 diverged from seed+1 at draw %d", i)
		}
	}
}
