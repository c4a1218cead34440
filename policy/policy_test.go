package policy_test

import (
	"errors"
	"testing"

	"github.com/sw965/bandit/arm"
	"github.com/sw965/bandit/mathx"
	"github.com/sw965/bandit/mathx/randx"
	"github.com/sw965/bandit/policy"
)

func TestConstructionErrors(t *testing.T) {
	if _, err := policy.NewUniform(0); !errors.Is(err, policy.ErrNoArms) {
		t.Errorf("NewUniform(0) err = %v, want ErrNoArms", err)
	}
	if _, err := policy.NewEpsilonGreedy(2, 1.5); !errors.Is(err, policy.ErrInvalidParameter) {
		t.Errorf("NewEpsilonGreedy(2, 1.5) err = %v, want ErrInvalidParameter", err)
	}
	if _, err := policy.NewUCB(2, 0.0); !errors.Is(err, policy.ErrInvalidParameter) {
		t.Errorf("NewUCB(2, 0) err = %v, want ErrInvalidParameter", err)
	}
	if _, err := policy.NewBESA(1, 100); !errors.Is(err, policy.ErrInvalidParameter) {
		t.Errorf("NewBESA(1, 100) err = %v, want ErrInvalidParameter", err)
	}
	if _, err := policy.NewBESA(2, 0); !errors.Is(err, policy.ErrInvalidParameter) {
		t.Errorf("NewBESA(2, 0) err = %v, want ErrInvalidParameter", err)
	}
}

func TestChoiceRewardContract(t *testing.T) {
	p, err := policy.NewUniform(3)
	if err != nil {
		t.Fatal(err)
	}
	p.StartGame()
	rng := randx.NewMt19937(1)

	if err := p.GetReward(0, 1.0); !errors.Is(err, policy.ErrNoPendingChoice) {
		t.Errorf("GetReward before Choice err = %v, want ErrNoPendingChoice", err)
	}

	armIdx, err := p.Choice(rng)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := p.Choice(rng); !errors.Is(err, policy.ErrPendingChoice) {
		t.Errorf("double Choice err = %v, want ErrPendingChoice", err)
	}

	wrong := (armIdx + 1) % 3
	if err := p.GetReward(wrong, 1.0); !errors.Is(err, policy.ErrArmMismatch) {
		t.Errorf("GetReward on wrong arm err = %v, want ErrArmMismatch", err)
	}

	if err := p.GetReward(armIdx, 1.0); err != nil {
		t.Errorf("GetReward on chosen arm err = %v, want nil", err)
	}
}

// Pull counts must always sum to the elapsed time step.
func TestPullConservation(t *testing.T) {
	bern, err := arm.NewBernoulli(0.5)
	if err != nil {
		t.Fatal(err)
	}
	good, err := arm.NewBernoulli(0.8)
	if err != nil {
		t.Fatal(err)
	}
	arms := arm.Arms{bern, good}

	ucb, err := policy.NewUCB(2, 4.0)
	if err != nil {
		t.Fatal(err)
	}
	ucb.StartGame()

	rng := randx.NewMt19937(2024)
	const horizon = 500
	for step := 0; step < horizon; step++ {
		armIdx, err := ucb.Choice(rng)
		if err != nil {
			t.Fatal(err)
		}
		if err := ucb.GetReward(armIdx, arms[armIdx].Draw(rng)); err != nil {
			t.Fatal(err)
		}
		if got := mathx.Sum(ucb.Pulls()...); got != step+1 {
			t.Fatalf("step %d: pulls sum = %d, want %d", step, got, step+1)
		}
	}
	if got := ucb.T(); got != horizon {
		t.Errorf("T = %d, want %d", got, horizon)
	}
}

// The initialization phase must pull every arm before the model is
// trusted.
func TestForcedInitialization(t *testing.T) {
	for name, build := range map[string]func() (policy.Policy, error){
		"EpsilonGreedy": func() (policy.Policy, error) { return policy.NewEpsilonGreedy(4, 0.0) },
		"UCB":           func() (policy.Policy, error) { return policy.NewUCB(4, 4.0) },
		"BESA":          func() (policy.Policy, error) { return policy.NewBESA(4, 100) },
	} {
		p, err := build()
		if err != nil {
			t.Fatal(err)
		}
		p.StartGame()
		rng := randx.NewMt19937(3)

		seen := map[int]bool{}
		for step := 0; step < 4; step++ {
			armIdx, err := p.Choice(rng)
			if err != nil {
				t.Fatal(err)
			}
			if seen[armIdx] {
				t.Errorf("%s: arm %d pulled twice during initialization", name, armIdx)
			}
			seen[armIdx] = true
			if err := p.GetReward(armIdx, 0.0); err != nil {
				t.Fatal(err)
			}
		}
	}
}

func TestStartGameResets(t *testing.T) {
	th, err := policy.NewThompson(2)
	if err != nil {
		t.Fatal(err)
	}
	th.StartGame()
	rng := randx.NewMt19937(4)

	for step := 0; step < 50; step++ {
		armIdx, err := th.Choice(rng)
		if err != nil {
			t.Fatal(err)
		}
		if err := th.GetReward(armIdx, 1.0); err != nil {
			t.Fatal(err)
		}
	}

	th.StartGame()
	if got := th.T(); got != 0 {
		t.Errorf("T after StartGame = %d, want 0", got)
	}
	if got := mathx.Sum(th.Pulls()...); got != 0 {
		t.Errorf("pulls after StartGame sum = %d, want 0", got)
	}
}

// With full history BESA must prefer the arm whose every observation
// dominates.
func TestBESAPrefersDominantArm(t *testing.T) {
	b, err := policy.NewBESA(2, 100)
	if err != nil {
		t.Fatal(err)
	}
	b.StartGame()
	rng := randx.NewMt19937(5)

	// Feed 20 rewards per arm: arm 1 always 1.0, arm 0 always 0.0.
	for i := 0; i < 20; i++ {
		for armIdx := 0; armIdx < 2; armIdx++ {
			got, err := b.Choice(rng)
			if err != nil {
				t.Fatal(err)
			}
			reward := 0.0
			if got == 1 {
				reward = 1.0
			}
			if err := b.GetReward(got, reward); err != nil {
				t.Fatal(err)
			}
		}
	}

	wins := 0
	const trials = 50
	for i := 0; i < trials; i++ {
		armIdx, err := b.Choice(rng)
		if err != nil {
			t.Fatal(err)
		}
		if armIdx == 1 {
			wins++
		}
		if err := b.GetReward(armIdx, float64(armIdx)); err != nil {
			t.Fatal(err)
		}
	}
	if wins != trials {
		t.Errorf("BESA picked the dominant arm %d/%d times, want every time", wins, trials)
	}
}
