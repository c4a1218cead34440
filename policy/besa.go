package policy

import (
	"fmt"
	"math/rand/v2"

	"github.com/sw965/omw/mathx/randx"
)

// besaTolerance decides when two sub-sampled means tie.
const besaTolerance = 1e-5

// BESA is the Best Empirical Sampled Average policy
// (Baransi et al., 2014). Two arms duel by comparing their empirical
// means over sub-samples of equal size; K arms run a randomized binary
// tournament of such duels. No confidence bonus, no parameter to tune,
// but the full reward history is kept over the horizon.
type BESA struct {
	Base
	horizon         int
	randomSubsample bool
	history         [][]float64
}

func NewBESA(numArms, horizon int) (*BESA, error) {
	return newBESA(numArms, horizon, true)
}

// NewDeterministicBESA sub-samples the first min(Na, Nb) observations
// instead of a uniform subset. Only useful as a comparison baseline:
// the algorithm works well only with random sub-sampling.
func NewDeterministicBESA(numArms, horizon int) (*BESA, error) {
	return newBESA(numArms, horizon, false)
}

func newBESA(numArms, horizon int, randomSubsample bool) (*BESA, error) {
	if numArms < 2 {
		return nil, fmt.Errorf("%w: BESAは2本以上の腕が必要 (numArms = %d)", ErrInvalidParameter, numArms)
	}
	if horizon <= 0 {
		return nil, fmt.Errorf("%w: horizon = %d は正でなければならない", ErrInvalidParameter, horizon)
	}
	base, err := NewBase(numArms)
	if err != nil {
		return nil, err
	}

	history := make([][]float64, numArms)
	for i := range history {
		history[i] = make([]float64, 0, horizon)
	}
	return &BESA{
		Base:            base,
		horizon:         horizon,
		randomSubsample: randomSubsample,
		history:         history,
	}, nil
}

func (b *BESA) StartGame() {
	b.Base.StartGame()
	for i := range b.history {
		b.history[i] = b.history[i][:0]
	}
}

func (b *BESA) Choice(rng *rand.Rand) (int, error) {
	var armIdx int
	if unpulled := b.UnpulledArms(); len(unpulled) > 0 {
		idx, err := randx.Choice(unpulled, rng)
		if err != nil {
			return -1, err
		}
		armIdx = idx
	} else {
		actions := rng.Perm(b.NumArms())
		idx, err := b.tournament(actions, rng)
		if err != nil {
			return -1, err
		}
		armIdx = idx
	}
	if err := b.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

// tournament runs the randomized divide-and-conquer over an already
// shuffled action set.
func (b *BESA) tournament(actions []int, rng *rand.Rand) (int, error) {
	switch len(actions) {
	case 1:
		return actions[0], nil
	case 2:
		return b.duel(actions[0], actions[1], rng)
	}
	left, err := b.tournament(actions[:len(actions)/2], rng)
	if err != nil {
		return -1, err
	}
	right, err := b.tournament(actions[len(actions)/2:], rng)
	if err != nil {
		return -1, err
	}
	return b.duel(left, right, rng)
}

// duel compares arms a and c on sub-samples of size min(Na, Nc). Ties
// go to the less pulled arm, then uniformly at random.
func (b *BESA) duel(a, c int, rng *rand.Rand) (int, error) {
	na, nc := b.PullCount(a), b.PullCount(c)
	n := min(na, nc)

	meanA := b.subsampleMean(a, n, rng)
	meanC := b.subsampleMean(c, n, rng)

	if meanA > meanC+besaTolerance {
		return a, nil
	}
	if meanC > meanA+besaTolerance {
		return c, nil
	}
	if na < nc {
		return a, nil
	}
	if nc < na {
		return c, nil
	}
	return randx.Choice([]int{a, c}, rng)
}

func (b *BESA) subsampleMean(armIdx, n int, rng *rand.Rand) float64 {
	rewards := b.history[armIdx]
	total := 0.0
	if b.randomSubsample {
		for _, i := range rng.Perm(len(rewards))[:n] {
			total += rewards[i]
		}
	} else {
		for _, r := range rewards[:n] {
			total += r
		}
	}
	return total / float64(n)
}

func (b *BESA) GetReward(armIdx int, reward float64) error {
	if err := b.Base.GetReward(armIdx, reward); err != nil {
		return err
	}
	b.history[armIdx] = append(b.history[armIdx], reward)
	return nil
}

func (b *BESA) Observe(armIdx int, reward float64) {
	b.Base.Observe(armIdx, reward)
	b.history[armIdx] = append(b.history[armIdx], reward)
}

func (b *BESA) String() string {
	if !b.randomSubsample {
		return "BESA(non-random subsample)"
	}
	return "BESA"
}
