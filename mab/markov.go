package mab

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/bandit/mathx"
	"gonum.org/v1/gonum/floats"
)

var (
	ErrBadChain      = errors.New("mabエラー: 遷移行列が不正です")
	ErrBadStateMeans = errors.New("mabエラー: 状態毎の平均が不正です")
)

// Markov is an environment whose arms are finite Bernoulli Markov
// chains. A rested arm transitions only when pulled; a restless one
// transitions at every step. The chain state is owned by the
// environment and never leaks into policies or the driver.
type Markov struct {
	meansByState [][]float64
	transitions  [][][]float64
	restless     bool
	states       []int
	longRun      []float64
}

func NewMarkov(meansByState [][]float64, transitions [][][]float64, restless bool) (*Markov, error) {
	k := len(meansByState)
	if k == 0 {
		return nil, ErrNoArms
	}
	if len(transitions) != k {
		return nil, fmt.Errorf("%w: 遷移行列の本数 %d != 腕の数 %d", ErrBadChain, len(transitions), k)
	}

	for armIdx, means := range meansByState {
		n := len(means)
		if n == 0 {
			return nil, fmt.Errorf("%w: 腕 %d に状態がありません", ErrBadStateMeans, armIdx)
		}
		for _, mean := range means {
			if mean < 0.0 || mean > 1.0 || math.IsNaN(mean) {
				return nil, fmt.Errorf("%w: 腕 %d の平均 %v は [0, 1] でなければならない", ErrBadStateMeans, armIdx, mean)
			}
		}

		rows := transitions[armIdx]
		if len(rows) != n {
			return nil, fmt.Errorf("%w: 腕 %d の遷移行列は %d 行でなければならない", ErrBadChain, armIdx, n)
		}
		for si, row := range rows {
			if len(row) != n {
				return nil, fmt.Errorf("%w: 腕 %d 状態 %d の行の長さが %d (期待 %d)", ErrBadChain, armIdx, si, len(row), n)
			}
			total := mathx.Sum(row...)
			if math.Abs(total-1.0) > 1e-9 {
				return nil, fmt.Errorf("%w: 腕 %d 状態 %d の行の和 = %v", ErrBadChain, armIdx, si, total)
			}
			for _, p := range row {
				if p < 0.0 {
					return nil, fmt.Errorf("%w: 腕 %d 状態 %d に負の確率", ErrBadChain, armIdx, si)
				}
			}
		}
	}

	m := &Markov{
		meansByState: meansByState,
		transitions:  transitions,
		restless:     restless,
		states:       make([]int, k),
	}
	m.longRun = m.stationaryMeans()
	return m, nil
}

// stationaryMeans approximates each chain's long-run average reward by
// power iteration from the uniform distribution.
func (m *Markov) stationaryMeans() []float64 {
	k := len(m.meansByState)
	out := make([]float64, k)
	for armIdx := 0; armIdx < k; armIdx++ {
		n := len(m.meansByState[armIdx])
		pi := make([]float64, n)
		next := make([]float64, n)
		for i := range pi {
			pi[i] = 1.0 / float64(n)
		}
		for iter := 0; iter < 256; iter++ {
			for j := range next {
				next[j] = 0.0
			}
			for i, p := range pi {
				for j, q := range m.transitions[armIdx][i] {
					next[j] += p * q
				}
			}
			if floats.Distance(pi, next, 1) < 1e-12 {
				copy(pi, next)
				break
			}
			copy(pi, next)
		}
		out[armIdx] = floats.Dot(pi, m.meansByState[armIdx])
	}
	return out
}

func (m *Markov) NumArms() int {
	return len(m.meansByState)
}

// Means returns the long-run (stationary) mean of each arm, the
// quantity regret is measured against.
func (m *Markov) Means() []float64 {
	means := make([]float64, len(m.longRun))
	copy(means, m.longRun)
	return means
}

func (m *Markov) BestMean() float64 {
	return mathx.Max(m.longRun...)
}

func (m *Markov) BestArms() []int {
	best := m.BestMean()
	idxs := make([]int, 0, len(m.longRun))
	for i, mean := range m.longRun {
		if best-mean <= meanTolerance {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// State returns the current chain state of one arm.
func (m *Markov) State(armIdx int) int {
	return m.states[armIdx]
}

func (m *Markov) Draw(armIdx, _ int, rng *rand.Rand) (float64, error) {
	if armIdx < 0 || armIdx >= len(m.meansByState) {
		return 0.0, fmt.Errorf("%w: %d (腕の数 = %d)", ErrArmOutOfRange, armIdx, len(m.meansByState))
	}
	mean := m.meansByState[armIdx][m.states[armIdx]]
	if rng.Float64() < mean {
		return 1.0, nil
	}
	return 0.0, nil
}

// Advance transitions the chains: the chosen arm when rested, every arm
// when restless. It is called by the driver between steps.
func (m *Markov) Advance(chosen, _ int, rng *rand.Rand) {
	if m.restless {
		for armIdx := range m.states {
			m.step(armIdx, rng)
		}
		return
	}
	m.step(chosen, rng)
}

func (m *Markov) step(armIdx int, rng *rand.Rand) {
	row := m.transitions[armIdx][m.states[armIdx]]
	u := rng.Float64()
	acc := 0.0
	for next, p := range row {
		acc += p
		if u < acc {
			m.states[armIdx] = next
			return
		}
	}
	m.states[armIdx] = len(row) - 1
}

// NewRepetition returns a copy with every chain back in its initial
// state, so repetitions stay independent.
func (m *Markov) NewRepetition(_ *rand.Rand) (Environment, error) {
	clone := &Markov{
		meansByState: m.meansByState,
		transitions:  m.transitions,
		restless:     m.restless,
		states:       make([]int, len(m.states)),
		longRun:      m.longRun,
	}
	return clone, nil
}
