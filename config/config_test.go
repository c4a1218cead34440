package config_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sw965/bandit/config"
	"github.com/sw965/bandit/mab"
	"github.com/sw965/bandit/sim"
)

func testExperiment() config.Experiment {
	return config.Experiment{
		Arms: []config.ArmSpec{
			{Kind: "bernoulli", Mean: 0.1},
			{Kind: "bernoulli", Mean: 0.9},
			{Kind: "gaussian", Mean: 0.5, Sigma: 0.2},
		},
		Policies: []config.PolicySpec{
			{Kind: "ucb", Alpha: 4.0},
			{Kind: "thompson"},
		},
		Collision: "zeroOnCollision",
		Driver: sim.Config{
			Horizon:     200,
			Repetitions: 4,
			Parallelism: 2,
			Seed:        1,
		},
	}
}

func TestBuildEnv(t *testing.T) {
	e := testExperiment()
	env, err := e.BuildEnv()
	require.NoError(t, err)
	assert.Equal(t, 3, env.NumArms())
	assert.InDelta(t, 0.9, env.BestMean(), 1e-12)
}

func TestBuildUnknownKinds(t *testing.T) {
	e := testExperiment()
	e.Arms[0].Kind = "cauchy"
	_, err := e.BuildEnv()
	assert.ErrorIs(t, err, config.ErrUnknownArm)

	e = testExperiment()
	e.Policies[0].Kind = "oracle"
	_, err = e.BuildEvaluator(0)
	assert.ErrorIs(t, err, config.ErrUnknownPolicy)

	e = testExperiment()
	e.Collision = "teleport"
	_, err = e.BuildCollision()
	assert.ErrorIs(t, err, config.ErrUnknownCollision)
}

func TestBuildDynamicEnv(t *testing.T) {
	e := testExperiment()
	e.Arms = nil
	e.Environment = config.EnvSpec{Mode: "dynamic", NumArms: 4, MinMean: 0.1, MaxMean: 0.9}
	require.NoError(t, e.Validate())

	env, err := e.BuildEnv()
	require.NoError(t, err)
	assert.Equal(t, 4, env.NumArms())

	// The declared environment must be the per-repetition redrawing one.
	evaluator, err := e.BuildEvaluator(0)
	require.NoError(t, err)
	result, err := evaluator.Run()
	require.NoError(t, err)

	distinct := false
	for rep := 1; rep < result.Repetitions(); rep++ {
		for i, mean := range result.ArmMeans[rep] {
			if mean != result.ArmMeans[0][i] {
				distinct = true
			}
		}
	}
	assert.True(t, distinct, "dynamic mode should redraw arm means per repetition")
}

func TestBuildMarkovEnv(t *testing.T) {
	toggle := [][]float64{{0.0, 1.0}, {1.0, 0.0}}
	e := testExperiment()
	e.Arms = nil
	e.Environment = config.EnvSpec{
		Mode:         "markov",
		MeansByState: [][]float64{{0.0, 1.0}, {0.2, 0.6}},
		Transitions:  [][][]float64{toggle, toggle},
	}
	require.NoError(t, e.Validate())

	env, err := e.BuildEnv()
	require.NoError(t, err)
	assert.Equal(t, 2, env.NumArms())
	assert.InDelta(t, 0.5, env.Means()[0], 1e-9)

	evaluator, err := e.BuildEvaluator(0)
	require.NoError(t, err)
	result, err := evaluator.Run()
	require.NoError(t, err)
	assert.Equal(t, e.Driver.Repetitions, result.Repetitions())
}

func TestEnvModeValidation(t *testing.T) {
	e := testExperiment()
	e.Environment.Mode = "quantum"
	assert.ErrorIs(t, e.Validate(), config.ErrUnknownEnvMode)

	e = testExperiment()
	e.Arms = nil
	e.Environment = config.EnvSpec{Mode: "dynamic", NumArms: 3, MinMean: 0.9, MaxMean: 0.1}
	assert.Error(t, e.Validate())

	e = testExperiment()
	e.Arms = nil
	e.Environment = config.EnvSpec{Mode: "markov"}
	assert.ErrorIs(t, e.Validate(), mab.ErrNoArms)
}

func TestValidate(t *testing.T) {
	e := testExperiment()
	require.NoError(t, e.Validate())

	e.Policies = nil
	assert.ErrorIs(t, e.Validate(), config.ErrNoPolicies)

	e = testExperiment()
	e.Driver.Horizon = 0
	assert.ErrorIs(t, e.Validate(), sim.ErrInvalidHorizon)
}

func TestBuildEvaluatorRuns(t *testing.T) {
	e := testExperiment()
	evaluator, err := e.BuildEvaluator(0)
	require.NoError(t, err)

	result, err := evaluator.Run()
	require.NoError(t, err)
	assert.Equal(t, e.Driver.Repetitions, result.Repetitions())
	assert.Equal(t, 1, result.FinalRanking()[0])
}

func TestBuildAggregatePolicy(t *testing.T) {
	e := testExperiment()
	e.Policies = []config.PolicySpec{{
		Kind:         "aggregate",
		LearningRate: 0.5,
		Children: []config.PolicySpec{
			{Kind: "ucb", Alpha: 4.0},
			{Kind: "uniform"},
		},
	}}
	evaluator, err := e.BuildEvaluator(0)
	require.NoError(t, err)

	result, err := evaluator.Run()
	require.NoError(t, err)
	assert.Len(t, result.Choices, e.Driver.Repetitions)
}

func TestBuildEvaluatorMultiPlayers(t *testing.T) {
	e := testExperiment()
	e.Policies = []config.PolicySpec{
		{Kind: "musicalChair", Time0: 50},
		{Kind: "musicalChair", Time0: 50},
	}
	evaluator, err := e.BuildEvaluatorMultiPlayers()
	require.NoError(t, err)

	result, err := evaluator.Run()
	require.NoError(t, err)
	assert.Equal(t, 2, result.NumPlayers)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	e := testExperiment()
	path := filepath.Join(t.TempDir(), "experiment.json")
	require.NoError(t, config.Save(&e, path))

	loaded, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, e, loaded)
}
