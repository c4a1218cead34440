// Package mab provides multi-armed bandit problem instances: a static
// environment, a dynamic one redrawn per repetition, and a Markovian
// one whose arms evolve between steps.
//
// Package mab は多腕バンディット問題のインスタンスを提供します。
package mab

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"sort"

	"github.com/sw965/bandit/arm"
	"github.com/sw965/bandit/kl"
	"github.com/sw965/bandit/mathx"
)

var (
	ErrNoArms        = errors.New("mabエラー: 腕が1本もありません")
	ErrArmOutOfRange = errors.New("mabエラー: 腕のインデックスが範囲外です")
)

// meanTolerance decides when two arm means tie for the optimum.
const meanTolerance = 1e-9

// Environment is one bandit problem instance. The arm order is fixed:
// the index is the action identifier.
type Environment interface {
	NumArms() int
	Means() []float64
	BestMean() float64
	// BestArms returns every index whose mean ties with the maximum.
	BestArms() []int
	Draw(armIdx, t int, rng *rand.Rand) (float64, error)
}

// Redrawable environments produce an independent snapshot once per
// repetition. The driver never redraws mid-repetition.
type Redrawable interface {
	NewRepetition(rng *rand.Rand) (Environment, error)
}

// Evolving environments transition between steps as a function of the
// realized action. The state lives in the environment only.
type Evolving interface {
	Advance(chosen, t int, rng *rand.Rand)
}

// MAB is a static environment: an ordered, immutable collection of arms.
type MAB struct {
	arms  arm.Arms
	means []float64
}

func New(arms arm.Arms) (*MAB, error) {
	if len(arms) == 0 {
		return nil, ErrNoArms
	}
	return &MAB{arms: arms, means: arms.Means()}, nil
}

func (m *MAB) Arms() arm.Arms {
	return m.arms
}

func (m *MAB) NumArms() int {
	return len(m.arms)
}

func (m *MAB) Means() []float64 {
	means := make([]float64, len(m.means))
	copy(means, m.means)
	return means
}

func (m *MAB) BestMean() float64 {
	return mathx.Max(m.means...)
}

func (m *MAB) BestArms() []int {
	best := m.BestMean()
	idxs := make([]int, 0, len(m.means))
	for i, mean := range m.means {
		if best-mean <= meanTolerance {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func (m *MAB) Draw(armIdx, _ int, rng *rand.Rand) (float64, error) {
	if armIdx < 0 || armIdx >= len(m.arms) {
		return 0.0, fmt.Errorf("%w: %d (腕の数 = %d)", ErrArmOutOfRange, armIdx, len(m.arms))
	}
	return m.arms[armIdx].Draw(rng), nil
}

// BestMeansSum is the oracle per-step reward of m coordinated players.
// With more players than arms the unavoidable collisions are all packed
// on the worst arm, so its mean is discounted once.
func (m *MAB) BestMeansSum(players int) float64 {
	return OracleMeanSum(m.means, players)
}

// OracleMeanSum computes BestMeansSum from raw means, for environments
// that are not static MABs.
func OracleMeanSum(means []float64, players int) float64 {
	sorted := make([]float64, len(means))
	copy(sorted, means)
	sort.Float64s(sorted)

	k := len(sorted)
	if players < k {
		return mathx.Sum(sorted[k-players:]...)
	}
	total := mathx.Sum(sorted...)
	if players > k {
		total -= sorted[0]
	}
	return total
}

// LowerBound is the Lai & Robbins constant: regret grows at least as
// LowerBound * log(T) for any uniformly efficient policy, assuming
// Bernoulli-like rewards.
func (m *MAB) LowerBound() float64 {
	best := m.BestMean()
	total := 0.0
	for _, mean := range m.means {
		if best-mean > meanTolerance {
			total += (best - mean) / kl.Bern(mean, best)
		}
	}
	return total
}

// LowerBoundCentralized extends the bound to players coordinated
// centrally: only the arms outside the players-best set contribute,
// measured against the players-th best mean.
func (m *MAB) LowerBoundCentralized(players int) float64 {
	sorted := m.Means()
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))

	if players > len(sorted) {
		players = len(sorted)
	}
	ref := sorted[players-1]

	total := 0.0
	for _, mean := range sorted[players:] {
		if ref-mean > meanTolerance {
			total += (ref - mean) / kl.Bern(mean, ref)
		}
	}
	return total
}
