// Package aggregate implements online model selection over bandit
// policies: a bandit over bandits. The aggregator keeps one trust
// weight per child policy, lets the children vote for an arm, and
// sharpens the trusts with an Exp4-style exponential update on the
// observed reward.
//
// Package aggregate はバンディット方策のオンラインモデル選択（バンディットの上のバンディット）を実装します。
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/bandit/mathx"
	"github.com/sw965/bandit/policy"
	"github.com/sw965/omw/mathx/randx"
)

var (
	ErrNoChildren          = errors.New("aggregateエラー: 子方策が1つもありません")
	ErrInvalidLearningRate = errors.New("aggregateエラー: 学習率は (0, 1] でなければならない")
)

// Aggregator selects by weighted majority vote over its children's
// proposals and, once the reward is observed, updates EVERY child as
// full information: children learn from the played arm even when they
// proposed another one. Only the trust update is partial-information:
// children that proposed the played arm are boosted by
// exp(rate * normalized reward).
type Aggregator struct {
	policy.Base
	children     []policy.Policy
	trusts       []float64
	learningRate float64
	unbiased     bool
	proposals    []int
	voted        bool
}

func New(numArms int, children []policy.Policy, learningRate float64) (*Aggregator, error) {
	return newAggregator(numArms, children, learningRate, false)
}

// NewUnbiased divides the reward by the trust mass of the played arm
// before the exponential update, the importance-weighted estimator of
// Exp4.
func NewUnbiased(numArms int, children []policy.Policy, learningRate float64) (*Aggregator, error) {
	return newAggregator(numArms, children, learningRate, true)
}

func newAggregator(numArms int, children []policy.Policy, learningRate float64, unbiased bool) (*Aggregator, error) {
	if len(children) == 0 {
		return nil, ErrNoChildren
	}
	if learningRate <= 0.0 || learningRate > 1.0 || math.IsNaN(learningRate) {
		return nil, fmt.Errorf("%w: learningRate = %v", ErrInvalidLearningRate, learningRate)
	}
	base, err := policy.NewBase(numArms)
	if err != nil {
		return nil, err
	}

	a := &Aggregator{
		Base:         base,
		children:     children,
		trusts:       make([]float64, len(children)),
		learningRate: learningRate,
		unbiased:     unbiased,
		proposals:    make([]int, len(children)),
	}
	a.resetTrusts()
	return a, nil
}

func (a *Aggregator) resetTrusts() {
	uniform := 1.0 / float64(len(a.children))
	for i := range a.trusts {
		a.trusts[i] = uniform
	}
}

// Trusts returns a copy of the current weight vector. It always sums
// to 1 within floating point tolerance.
func (a *Aggregator) Trusts() []float64 {
	trusts := make([]float64, len(a.trusts))
	copy(trusts, a.trusts)
	return trusts
}

func (a *Aggregator) NumChildren() int {
	return len(a.children)
}

func (a *Aggregator) StartGame() {
	a.Base.StartGame()
	a.resetTrusts()
	a.voted = false
	for _, child := range a.children {
		child.StartGame()
	}
}

func (a *Aggregator) Choice(rng *rand.Rand) (int, error) {
	votes := make([]float64, a.NumArms())
	for i, child := range a.children {
		proposal, err := child.Choice(rng)
		if err != nil {
			return -1, err
		}
		a.proposals[i] = proposal
		votes[proposal] += a.trusts[i]
	}
	a.voted = true

	armIdx, err := randx.Choice(mathx.MaxIndices(votes), rng)
	if err != nil {
		return -1, err
	}
	if err := a.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (a *Aggregator) GetReward(armIdx int, reward float64) error {
	if err := a.Base.GetReward(armIdx, reward); err != nil {
		return err
	}
	a.update(armIdx, reward)
	return nil
}

func (a *Aggregator) Observe(armIdx int, reward float64) {
	a.Base.Observe(armIdx, reward)
	a.update(armIdx, reward)
}

func (a *Aggregator) update(armIdx int, reward float64) {
	r := a.NormalizeReward(reward)
	if a.unbiased {
		if mass := a.trustMass(armIdx); mass > 0.0 {
			r /= mass
		}
	}

	boost := math.Exp(a.learningRate * r)
	for i, child := range a.children {
		child.Observe(armIdx, reward)
		if a.voted && a.proposals[i] == armIdx {
			a.trusts[i] *= boost
		}
	}

	total := mathx.Sum(a.trusts...)
	if total <= 0.0 || math.IsNaN(total) || math.IsInf(total, 0) {
		a.resetTrusts()
		return
	}
	for i := range a.trusts {
		a.trusts[i] /= total
	}
}

// trustMass is the total trust of children proposing armIdx, the vote
// probability mass of that arm.
func (a *Aggregator) trustMass(armIdx int) float64 {
	mass := 0.0
	for i, proposal := range a.proposals {
		if a.voted && proposal == armIdx {
			mass += a.trusts[i]
		}
	}
	return mass
}

func (a *Aggregator) String() string {
	return fmt.Sprintf("Aggregator(%d children, rate = %g)", len(a.children), a.learningRate)
}
