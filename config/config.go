// Package config declares experiments as data: arm lists, policy
// specs and driver settings in one JSON document, with factories that
// build the runnable objects from it.
//
// Package config は実験をJSONデータとして宣言し、実行可能なオブジェクトを組み立てます。
package config

import (
	"errors"
	"fmt"
	"strings"

	omwjson "github.com/sw965/omw/encoding/jsonx"

	"github.com/sw965/bandit/aggregate"
	"github.com/sw965/bandit/arm"
	"github.com/sw965/bandit/mab"
	"github.com/sw965/bandit/mathx/randx"
	"github.com/sw965/bandit/multiplayer"
	"github.com/sw965/bandit/policy"
	"github.com/sw965/bandit/sim"
)

var (
	ErrUnknownArm       = errors.New("configエラー: 未知の腕の種類です")
	ErrUnknownPolicy    = errors.New("configエラー: 未知の方策の種類です")
	ErrUnknownCollision = errors.New("configエラー: 未知の衝突モデルです")
	ErrUnknownEnvMode   = errors.New("configエラー: 未知の環境モードです")
	ErrNoPolicies       = errors.New("configエラー: 方策が1つも指定されていません")
)

// ArmSpec names one arm distribution. Params not used by the named
// kind are ignored.
type ArmSpec struct {
	Kind   string  `json:"kind"`
	Mean   float64 `json:"mean,omitempty"`
	Sigma  float64 `json:"sigma,omitempty"`
	Rate   float64 `json:"rate,omitempty"`
	Shape  float64 `json:"shape,omitempty"`
	Lambda float64 `json:"lambda,omitempty"`
	Min    float64 `json:"min,omitempty"`
	Max    float64 `json:"max,omitempty"`
	Value  float64 `json:"value,omitempty"`
}

// Build constructs the arm. The kind is matched case-insensitively.
func (s *ArmSpec) Build() (arm.Arm, error) {
	switch strings.ToLower(s.Kind) {
	case "bernoulli":
		return arm.NewBernoulli(s.Mean)
	case "gaussian":
		return arm.NewGaussian(s.Mean, s.Sigma)
	case "truncatedgaussian":
		return arm.NewTruncatedGaussian(s.Mean, s.Sigma, s.Min, s.Max)
	case "exponential":
		return arm.NewExponential(s.Rate)
	case "gamma":
		return arm.NewGamma(s.Shape, s.Rate)
	case "poisson":
		return arm.NewPoisson(s.Lambda)
	case "uniform":
		return arm.NewUniform(s.Min, s.Max)
	case "constant":
		return arm.NewConstant(s.Value), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownArm, s.Kind)
	}
}

// PolicySpec names one learner. Aggregate composes the Children specs
// into a boosting aggregator over them.
type PolicySpec struct {
	Kind         string       `json:"kind"`
	Epsilon      float64      `json:"epsilon,omitempty"`
	Alpha        float64      `json:"alpha,omitempty"`
	Horizon      int          `json:"horizon,omitempty"`
	LearningRate float64      `json:"learningRate,omitempty"`
	Unbiased     bool         `json:"unbiased,omitempty"`
	Time0        int          `json:"time0,omitempty"`
	KnownUsers   int          `json:"knownUsers,omitempty"`
	Children     []PolicySpec `json:"children,omitempty"`
}

func (s *PolicySpec) Build(numArms int) (policy.Policy, error) {
	switch strings.ToLower(s.Kind) {
	case "uniform":
		return policy.NewUniform(numArms)
	case "epsilongreedy":
		return policy.NewEpsilonGreedy(numArms, s.Epsilon)
	case "ucb":
		return policy.NewUCB(numArms, s.Alpha)
	case "thompson":
		return policy.NewThompson(numArms)
	case "besa":
		return policy.NewBESA(numArms, s.Horizon)
	case "musicalchair":
		return multiplayer.NewMusicalChair(numArms, s.Time0, s.KnownUsers)
	case "aggregate":
		children := make([]policy.Policy, len(s.Children))
		for i := range s.Children {
			child, err := s.Children[i].Build(numArms)
			if err != nil {
				return nil, err
			}
			children[i] = child
		}
		if s.Unbiased {
			return aggregate.NewUnbiased(numArms, children, s.LearningRate)
		}
		return aggregate.New(numArms, children, s.LearningRate)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownPolicy, s.Kind)
	}
}

// EnvSpec selects the environment mode. An empty mode means static
// (arms declared in Experiment.Arms). Dynamic redraws NumArms Bernoulli
// arms per repetition with means uniform in [MinMean, MaxMean]; markov
// builds per-arm state chains from MeansByState and Transitions.
type EnvSpec struct {
	Mode         string        `json:"mode,omitempty"`
	NumArms      int           `json:"numArms,omitempty"`
	MinMean      float64       `json:"minMean,omitempty"`
	MaxMean      float64       `json:"maxMean,omitempty"`
	MeansByState [][]float64   `json:"meansByState,omitempty"`
	Transitions  [][][]float64 `json:"transitions,omitempty"`
	Restless     bool          `json:"restless,omitempty"`
}

// Experiment is the full declaration of one run: the environment, the
// contenders and the driver settings. Policies holds one spec per
// contender in single-player mode, or one spec per player in
// multi-player mode.
type Experiment struct {
	Arms        []ArmSpec    `json:"arms,omitempty"`
	Environment EnvSpec      `json:"environment,omitempty"`
	Policies    []PolicySpec `json:"policies"`
	Collision   string       `json:"collision,omitempty"`
	Driver      sim.Config   `json:"driver"`
}

func (e *Experiment) Validate() error {
	switch strings.ToLower(e.Environment.Mode) {
	case "", "static":
		if len(e.Arms) == 0 {
			return mab.ErrNoArms
		}
	case "dynamic":
		if e.Environment.NumArms <= 0 {
			return mab.ErrNoArms
		}
		spec := e.Environment
		if spec.MinMean < 0.0 || spec.MaxMean > 1.0 || spec.MinMean > spec.MaxMean {
			return fmt.Errorf("%w: 動的環境の平均区間 [%v, %v]", arm.ErrInvalidParameter, spec.MinMean, spec.MaxMean)
		}
	case "markov":
		if len(e.Environment.MeansByState) == 0 {
			return mab.ErrNoArms
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEnvMode, e.Environment.Mode)
	}
	if len(e.Policies) == 0 {
		return ErrNoPolicies
	}
	return e.Driver.Validate()
}

// BuildEnv assembles the declared environment. The dynamic mode seeds
// its initial snapshot from the driver seed; the driver redraws it per
// repetition anyway.
func (e *Experiment) BuildEnv() (mab.Environment, error) {
	switch strings.ToLower(e.Environment.Mode) {
	case "", "static":
		arms := make(arm.Arms, len(e.Arms))
		for i := range e.Arms {
			a, err := e.Arms[i].Build()
			if err != nil {
				return nil, err
			}
			arms[i] = a
		}
		return mab.New(arms)
	case "dynamic":
		spec := e.Environment
		gen := mab.BernoulliGenerator(spec.NumArms, spec.MinMean, spec.MaxMean)
		return mab.NewDynamic(spec.NumArms, gen, randx.NewMt19937(e.Driver.Seed))
	case "markov":
		spec := e.Environment
		return mab.NewMarkov(spec.MeansByState, spec.Transitions, spec.Restless)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownEnvMode, e.Environment.Mode)
	}
}

// BuildCollision resolves the named collision model. Multi-player
// experiments must name one explicitly; there is no default.
func (e *Experiment) BuildCollision() (multiplayer.Model, error) {
	switch strings.ToLower(e.Collision) {
	case "nocollision":
		return multiplayer.NoCollision(), nil
	case "zerooncollision":
		return multiplayer.ZeroOnCollision(), nil
	case "splitoncollision":
		return multiplayer.SplitOnCollision(), nil
	case "randomwinner":
		return multiplayer.RandomWinner(), nil
	case "prioritywinner":
		return multiplayer.PriorityWinner(), nil
	default:
		return multiplayer.Model{}, fmt.Errorf("%w: %q", ErrUnknownCollision, e.Collision)
	}
}

// BuildEvaluator wires the i-th policy spec into a single-player
// evaluator over the declared environment.
func (e *Experiment) BuildEvaluator(policyIdx int) (*sim.Evaluator, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	env, err := e.BuildEnv()
	if err != nil {
		return nil, err
	}
	spec := e.Policies[policyIdx]
	newPolicy := func() (policy.Policy, error) {
		return spec.Build(env.NumArms())
	}
	// Fail fast on a bad spec instead of erroring inside the run.
	if _, err := newPolicy(); err != nil {
		return nil, err
	}
	return sim.NewEvaluator(env, newPolicy, e.Driver)
}

// BuildEvaluatorMultiPlayers wires every policy spec into one player
// of a shared game under the declared collision model.
func (e *Experiment) BuildEvaluatorMultiPlayers() (*sim.EvaluatorMultiPlayers, error) {
	if err := e.Validate(); err != nil {
		return nil, err
	}
	env, err := e.BuildEnv()
	if err != nil {
		return nil, err
	}
	model, err := e.BuildCollision()
	if err != nil {
		return nil, err
	}
	newPlayers := func() ([]policy.Policy, error) {
		players := make([]policy.Policy, len(e.Policies))
		for i := range e.Policies {
			p, err := e.Policies[i].Build(env.NumArms())
			if err != nil {
				return nil, err
			}
			players[i] = p
		}
		return players, nil
	}
	if _, err := newPlayers(); err != nil {
		return nil, err
	}
	return sim.NewEvaluatorMultiPlayers(env, newPlayers, model, e.Driver)
}

// Load reads an experiment declaration from a JSON file.
func Load(path string) (Experiment, error) {
	return omwjson.Load[Experiment](path)
}

// Save writes the experiment declaration to a JSON file.
func Save(e *Experiment, path string) error {
	return omwjson.Save[Experiment](*e, path)
}
