// Package sim drives repeated bandit games and aggregates their
// outcomes: R independent repetitions of T steps each, run in parallel
// across repetitions with per-repetition random streams so results are
// reproducible for a given seed regardless of the parallelism.
//
// Package sim はバンディットゲームの反復実験を駆動し、結果を集計します。
package sim

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sw965/omw/parallel"

	"github.com/sw965/bandit/mab"
	"github.com/sw965/bandit/mathx"
	"github.com/sw965/bandit/mathx/randx"
	"github.com/sw965/bandit/policy"
)

var (
	ErrInvalidHorizon     = errors.New("simエラー: ホライゾンは正の値でなければなりません")
	ErrInvalidRepetitions = errors.New("simエラー: 反復回数は正の値でなければなりません")
	ErrNilEnv             = errors.New("simエラー: 環境がnilです")
	ErrNilPolicyFunc      = errors.New("simエラー: 方策の生成関数がnilです")
)

// NewPolicyFunc builds a fresh, unshared policy instance. The driver
// calls it once per repetition so that parallel repetitions never
// share mutable learner state.
type NewPolicyFunc func() (policy.Policy, error)

// Config fixes the shape of an experiment.
type Config struct {
	Horizon     int `json:"horizon"`
	Repetitions int `json:"repetitions"`
	// Parallelism is the number of worker goroutines. Zero or negative
	// means one repetition at a time.
	Parallelism int   `json:"parallelism,omitempty"`
	Seed        int64 `json:"seed"`
}

func (c *Config) Validate() error {
	if c.Horizon <= 0 {
		return ErrInvalidHorizon
	}
	if c.Repetitions <= 0 {
		return ErrInvalidRepetitions
	}
	return nil
}

func (c *Config) workers() int {
	if c.Parallelism <= 0 {
		return 1
	}
	return c.Parallelism
}

// Evaluator runs one policy against one environment.
type Evaluator struct {
	env       mab.Environment
	newPolicy NewPolicyFunc
	config    Config
	logger    zerolog.Logger
}

func NewEvaluator(env mab.Environment, newPolicy NewPolicyFunc, config Config) (*Evaluator, error) {
	if env == nil {
		return nil, ErrNilEnv
	}
	if newPolicy == nil {
		return nil, ErrNilPolicyFunc
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Evaluator{env: env, newPolicy: newPolicy, config: config, logger: zerolog.Nop()}, nil
}

func (e *Evaluator) SetLogger(logger zerolog.Logger) {
	e.logger = logger
}

// Result holds the raw trajectories of every repetition. Aggregation
// happens lazily in the getter methods.
type Result struct {
	Horizon  int
	NumArms  int
	Choices  [][]int     // [repetition][step]
	Rewards  [][]float64 // [repetition][step]
	ArmMeans [][]float64 // [repetition][arm], per-repetition environment snapshot
}

func newResult(horizon, numArms, repetitions int) *Result {
	r := &Result{
		Horizon:  horizon,
		NumArms:  numArms,
		Choices:  make([][]int, repetitions),
		Rewards:  make([][]float64, repetitions),
		ArmMeans: make([][]float64, repetitions),
	}
	for rep := 0; rep < repetitions; rep++ {
		r.Choices[rep] = make([]int, horizon)
		r.Rewards[rep] = make([]float64, horizon)
	}
	return r
}

// Run executes every repetition. A repetition with index rep always
// consumes the stream seeded with Seed+rep, so the outcome is
// byte-for-byte identical for any Parallelism.
func (e *Evaluator) Run() (*Result, error) {
	cfg := e.config
	result := newResult(cfg.Horizon, e.env.NumArms(), cfg.Repetitions)

	err := parallel.For(cfg.Repetitions, cfg.workers(), func(workerId, rep int) error {
		rng := randx.NewMt19937(cfg.Seed + int64(rep))

		env := e.env
		if redraw, ok := env.(mab.Redrawable); ok {
			fresh, err := redraw.NewRepetition(rng)
			if err != nil {
				return err
			}
			env = fresh
		}
		result.ArmMeans[rep] = env.Means()

		p, err := e.newPolicy()
		if err != nil {
			return err
		}
		p.StartGame()

		for t := 0; t < cfg.Horizon; t++ {
			armIdx, err := p.Choice(rng)
			if err != nil {
				return err
			}
			reward, err := env.Draw(armIdx, t, rng)
			if err != nil {
				return err
			}
			if err := p.GetReward(armIdx, reward); err != nil {
				return err
			}
			if evolving, ok := env.(mab.Evolving); ok {
				evolving.Advance(armIdx, t, rng)
			}
			result.Choices[rep][t] = armIdx
			result.Rewards[rep][t] = reward
		}

		e.logger.Debug().
			Int("repetition", rep).
			Int("worker", workerId).
			Float64("cumReward", mathx.Sum(result.Rewards[rep]...)).
			Msg("repetition finished")
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("repetitions", cfg.Repetitions).
		Int("horizon", cfg.Horizon).
		Msg("evaluation finished")
	return result, nil
}

func (r *Result) Repetitions() int {
	return len(r.Choices)
}

// MeanRewards averages the realized reward at each step over the
// repetitions.
func (r *Result) MeanRewards() []float64 {
	means := make([]float64, r.Horizon)
	for rep := range r.Rewards {
		for t, x := range r.Rewards[rep] {
			means[t] += x
		}
	}
	n := float64(r.Repetitions())
	for t := range means {
		means[t] /= n
	}
	return means
}

// CumulativeRegret is the expected regret curve: at each step the gap
// between the best mean and the mean of the chosen arm, accumulated
// and averaged over repetitions. Using arm means rather than realized
// rewards removes the drawing noise from the curve.
func (r *Result) CumulativeRegret() []float64 {
	regret := make([]float64, r.Horizon)
	for rep := range r.Choices {
		best := mathx.Max(r.ArmMeans[rep]...)
		cum := 0.0
		for t, armIdx := range r.Choices[rep] {
			cum += best - r.ArmMeans[rep][armIdx]
			regret[t] += cum
		}
	}
	n := float64(r.Repetitions())
	for t := range regret {
		regret[t] /= n
	}
	return regret
}

// Pulls counts how many times each arm was chosen in one repetition.
func (r *Result) Pulls(rep int) []int {
	pulls := make([]int, r.NumArms)
	for _, armIdx := range r.Choices[rep] {
		pulls[armIdx]++
	}
	return pulls
}

// MeanPulls averages the pull counts over repetitions.
func (r *Result) MeanPulls() []float64 {
	pulls := make([]float64, r.NumArms)
	for rep := range r.Choices {
		for _, armIdx := range r.Choices[rep] {
			pulls[armIdx]++
		}
	}
	n := float64(r.Repetitions())
	for i := range pulls {
		pulls[i] /= n
	}
	return pulls
}

// SwitchCounts reports, per repetition, how many steps changed arm
// relative to the previous step. A measure of how restless the policy
// is once it has converged.
func (r *Result) SwitchCounts() []int {
	counts := make([]int, r.Repetitions())
	for rep, choices := range r.Choices {
		for t := 1; t < len(choices); t++ {
			if choices[t] != choices[t-1] {
				counts[rep]++
			}
		}
	}
	return counts
}

// BestArmPullFraction is the fraction of choices landing on an optimal
// arm over the final window of each repetition, averaged. window is a
// fraction of the horizon in (0, 1]; a converging policy approaches
// 1.0 here as the horizon grows.
func (r *Result) BestArmPullFraction(window float64) float64 {
	window = mathx.Clamp(window, 0.0, 1.0)
	start := r.Horizon - int(float64(r.Horizon)*window)
	if start >= r.Horizon {
		start = r.Horizon - 1
	}

	total := 0
	hits := 0
	for rep, choices := range r.Choices {
		best := mathx.Max(r.ArmMeans[rep]...)
		for _, armIdx := range choices[start:] {
			if best-r.ArmMeans[rep][armIdx] <= 1e-9 {
				hits++
			}
			total++
		}
	}
	return float64(hits) / float64(total)
}

// FinalRanking orders the arms by mean pull count, most pulled first.
// For a sound policy on a static environment this recovers the true
// ordering of the arm means.
func (r *Result) FinalRanking() []int {
	pulls := r.MeanPulls()
	idxs := make([]int, r.NumArms)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return pulls[idxs[a]] > pulls[idxs[b]]
	})
	return idxs
}
