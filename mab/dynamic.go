package mab

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/sw965/bandit/arm"
)

var (
	ErrNilGenerator      = errors.New("mabエラー: Generatorがnilです")
	ErrGeneratorMismatch = errors.New("mabエラー: Generatorが生成した腕の数が一致しません")
)

// Generator draws one fresh set of arms from a meta-distribution.
type Generator func(rng *rand.Rand) (arm.Arms, error)

// BernoulliGenerator draws k Bernoulli arms with means uniform in
// [minMean, maxMean].
func BernoulliGenerator(k int, minMean, maxMean float64) Generator {
	return func(rng *rand.Rand) (arm.Arms, error) {
		arms := make(arm.Arms, k)
		for i := 0; i < k; i++ {
			mean := minMean + (maxMean-minMean)*rng.Float64()
			a, err := arm.NewBernoulli(mean)
			if err != nil {
				return nil, err
			}
			arms[i] = a
		}
		return arms, nil
	}
}

// Dynamic is a Bayesian environment: the arm parameters are redrawn
// once per repetition from a meta-distribution. The redraw never
// mutates a previous snapshot.
type Dynamic struct {
	k       int
	gen     Generator
	current *MAB
}

func NewDynamic(k int, gen Generator, rng *rand.Rand) (*Dynamic, error) {
	if gen == nil {
		return nil, ErrNilGenerator
	}
	if k <= 0 {
		return nil, fmt.Errorf("%w: k = %d", ErrNoArms, k)
	}

	d := &Dynamic{k: k, gen: gen}
	env, err := d.NewRepetition(rng)
	if err != nil {
		return nil, err
	}
	d.current = env.(*MAB)
	return d, nil
}

// NewRepetition draws an independent, freshly parameterized snapshot.
func (d *Dynamic) NewRepetition(rng *rand.Rand) (Environment, error) {
	arms, err := d.gen(rng)
	if err != nil {
		return nil, err
	}
	if len(arms) != d.k {
		return nil, fmt.Errorf("%w: %d本生成された (k = %d)", ErrGeneratorMismatch, len(arms), d.k)
	}
	return New(arms)
}

func (d *Dynamic) NumArms() int {
	return d.k
}

func (d *Dynamic) Means() []float64 {
	return d.current.Means()
}

func (d *Dynamic) BestMean() float64 {
	return d.current.BestMean()
}

func (d *Dynamic) BestArms() []int {
	return d.current.BestArms()
}

func (d *Dynamic) Draw(armIdx, t int, rng *rand.Rand) (float64, error) {
	return d.current.Draw(armIdx, t, rng)
}
