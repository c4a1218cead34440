package policy

import (
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/bandit/mathx"
	"github.com/sw965/omw/mathx/randx"
	"gonum.org/v1/gonum/stat/distuv"
)

// Uniform plays a random arm at every step. The weakest baseline.
type Uniform struct {
	Base
}

func NewUniform(numArms int) (*Uniform, error) {
	base, err := NewBase(numArms)
	if err != nil {
		return nil, err
	}
	return &Uniform{Base: base}, nil
}

func (u *Uniform) Choice(rng *rand.Rand) (int, error) {
	armIdx := rng.IntN(u.NumArms())
	if err := u.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (u *Uniform) String() string {
	return "Uniform"
}

// EpsilonGreedy explores a random arm with probability epsilon and
// exploits the best empirical mean otherwise. Unpulled arms are forced
// first.
type EpsilonGreedy struct {
	Base
	epsilon float64
}

func NewEpsilonGreedy(numArms int, epsilon float64) (*EpsilonGreedy, error) {
	if epsilon < 0.0 || epsilon > 1.0 || math.IsNaN(epsilon) {
		return nil, fmt.Errorf("%w: epsilon = %v は [0, 1] でなければならない", ErrInvalidParameter, epsilon)
	}
	base, err := NewBase(numArms)
	if err != nil {
		return nil, err
	}
	return &EpsilonGreedy{Base: base, epsilon: epsilon}, nil
}

func (e *EpsilonGreedy) Choice(rng *rand.Rand) (int, error) {
	var armIdx int
	if rng.Float64() < e.epsilon {
		armIdx = rng.IntN(e.NumArms())
	} else {
		idx, err := randx.Choice(mathx.MaxIndices(e.EmpiricalMeans()), rng)
		if err != nil {
			return -1, err
		}
		armIdx = idx
	}
	if err := e.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (e *EpsilonGreedy) String() string {
	return fmt.Sprintf("EpsilonGreedy(%g)", e.epsilon)
}

// UCB plays the arm maximizing the upper confidence index
// mean + sqrt(alpha * log(t) / (2 * pulls)). alpha = 4 is the classical
// UCB1 tuning.
type UCB struct {
	Base
	alpha float64
}

func NewUCB(numArms int, alpha float64) (*UCB, error) {
	if alpha <= 0.0 || math.IsNaN(alpha) {
		return nil, fmt.Errorf("%w: alpha = %v は正でなければならない", ErrInvalidParameter, alpha)
	}
	base, err := NewBase(numArms)
	if err != nil {
		return nil, err
	}
	return &UCB{Base: base, alpha: alpha}, nil
}

func (u *UCB) Choice(rng *rand.Rand) (int, error) {
	k := u.NumArms()
	t := float64(u.T() + 1)
	idxs := make([]float64, k)
	for armIdx := 0; armIdx < k; armIdx++ {
		n := u.PullCount(armIdx)
		if n == 0 {
			idxs[armIdx] = math.Inf(1)
			continue
		}
		mean := u.CumReward(armIdx) / float64(n)
		idxs[armIdx] = mean + math.Sqrt(u.alpha*math.Log(t)/(2.0*float64(n)))
	}

	armIdx, err := randx.Choice(mathx.MaxIndices(idxs), rng)
	if err != nil {
		return -1, err
	}
	if err := u.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (u *UCB) String() string {
	return fmt.Sprintf("UCB(%g)", u.alpha)
}

// Thompson samples each arm's mean from its Beta posterior and plays
// the argmax. Rewards are normalized into [0, 1] before updating the
// posterior, so non-Bernoulli rewards behave like fractional successes.
type Thompson struct {
	Base
	successes []float64
}

func NewThompson(numArms int) (*Thompson, error) {
	base, err := NewBase(numArms)
	if err != nil {
		return nil, err
	}
	return &Thompson{
		Base:      base,
		successes: make([]float64, numArms),
	}, nil
}

func (th *Thompson) StartGame() {
	th.Base.StartGame()
	for i := range th.successes {
		th.successes[i] = 0.0
	}
}

func (th *Thompson) Choice(rng *rand.Rand) (int, error) {
	k := th.NumArms()
	samples := make([]float64, k)
	for armIdx := 0; armIdx < k; armIdx++ {
		n := float64(th.PullCount(armIdx))
		s := th.successes[armIdx]
		beta := distuv.Beta{Alpha: 1.0 + s, Beta: 1.0 + n - s, Src: rng}
		samples[armIdx] = beta.Rand()
	}

	armIdx, err := randx.Choice(mathx.MaxIndices(samples), rng)
	if err != nil {
		return -1, err
	}
	if err := th.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (th *Thompson) GetReward(armIdx int, reward float64) error {
	if err := th.Base.GetReward(armIdx, reward); err != nil {
		return err
	}
	th.successes[armIdx] += th.NormalizeReward(reward)
	return nil
}

func (th *Thompson) Observe(armIdx int, reward float64) {
	th.Base.Observe(armIdx, reward)
	th.successes[armIdx] += th.NormalizeReward(reward)
}

func (th *Thompson) String() string {
	return "Thompson"
}
