// Package randx provides seeded random number generators for reproducible
// simulations.
//
// Package randx は再現可能なシミュレーションの為の、シード付き乱数生成器を提供します。
package randx

import (
	"math/rand/v2"

	"github.com/seehuhn/mt19937"
)

// NewMt19937 returns a generator driven by the 64bit Mersenne Twister.
// The same seed always yields the same stream.
func NewMt19937(seed int64) *rand.Rand {
	src := mt19937.New()
	src.Seed(seed)
	return rand.New(src)
}

// NewMt19937s returns n independent generators with seeds seed, seed+1, ...
func NewMt19937s(seed int64, n int) []*rand.Rand {
	rngs := make([]*rand.Rand, n)
	for i := 0; i < n; i++ {
		rngs[i] = NewMt19937(seed + int64(i))
	}
	return rngs
}
