// Package policy provides the decision-maker interface of the bandit
// engine and its single-player instances. A policy runs a two-beat
// state machine per step: Choice proposes an arm, GetReward settles it.
// Calling one without the other is a contract violation and fails fast.
//
// Package policy はバンディットエンジンの意思決定インターフェースを提供します。
package policy

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"github.com/sw965/bandit/mathx"
)

var (
	ErrNoArms           = errors.New("policyエラー: 腕が1本もありません")
	ErrPendingChoice    = errors.New("policyエラー: GetRewardを呼ばずにChoiceを2回呼び出しました")
	ErrNoPendingChoice  = errors.New("policyエラー: Choiceを呼ばずにGetRewardを呼び出しました")
	ErrArmMismatch      = errors.New("policyエラー: 直前のChoiceと異なる腕に報酬が渡されました")
	ErrInvalidParameter = errors.New("policyエラー: パラメーターが不正です")
)

type Policy interface {
	// StartGame resets all counters to the initial state without
	// touching the policy's identity parameters. Called once per
	// repetition.
	StartGame()
	// Choice proposes the next arm. Calling it again before GetReward
	// is an error.
	Choice(rng *rand.Rand) (int, error)
	// GetReward settles the pending choice. The arm must be the one
	// returned by the most recent Choice.
	GetReward(armIdx int, reward float64) error
	// Observe is the full-information update: it records the outcome
	// without the pending-choice contract. Aggregators use it to teach
	// children about arms they did not propose.
	Observe(armIdx int, reward float64)
}

// Base carries the per-trial mutable statistics shared by every
// policy: pull counts, cumulative rewards, the elapsed step and the
// pending-choice contract state.
type Base struct {
	numArms   int
	lower     float64
	amplitude float64
	t         int
	pulls     []int
	rewards   []float64
	pending   int
}

func NewBase(numArms int) (Base, error) {
	if numArms <= 0 {
		return Base{}, fmt.Errorf("%w: numArms = %d", ErrNoArms, numArms)
	}
	return Base{
		numArms:   numArms,
		lower:     0.0,
		amplitude: 1.0,
		pulls:     make([]int, numArms),
		rewards:   make([]float64, numArms),
		pending:   -1,
	}, nil
}

// SetRewardSupport tells the policy the reward support
// [lower, lower+amplitude] so normalized updates can rescale
// consistently. An infinite amplitude means rewards are clamped raw.
func (b *Base) SetRewardSupport(lower, amplitude float64) {
	b.lower = lower
	b.amplitude = amplitude
}

func (b *Base) StartGame() {
	b.t = 0
	b.pending = -1
	for i := range b.pulls {
		b.pulls[i] = 0
		b.rewards[i] = 0.0
	}
}

func (b *Base) NumArms() int {
	return b.numArms
}

func (b *Base) T() int {
	return b.t
}

func (b *Base) Pulls() []int {
	pulls := make([]int, len(b.pulls))
	copy(pulls, b.pulls)
	return pulls
}

func (b *Base) PullCount(armIdx int) int {
	return b.pulls[armIdx]
}

func (b *Base) CumReward(armIdx int) float64 {
	return b.rewards[armIdx]
}

// MarkChoice registers the proposed arm and enforces the one-choice-
// per-step contract.
func (b *Base) MarkChoice(armIdx int) error {
	if b.pending != -1 {
		return fmt.Errorf("%w: 未処理の腕 = %d", ErrPendingChoice, b.pending)
	}
	b.pending = armIdx
	return nil
}

func (b *Base) GetReward(armIdx int, reward float64) error {
	if b.pending == -1 {
		return ErrNoPendingChoice
	}
	if armIdx != b.pending {
		return fmt.Errorf("%w: 選択 = %d, 報酬 = %d", ErrArmMismatch, b.pending, armIdx)
	}
	b.Observe(armIdx, reward)
	return nil
}

func (b *Base) Observe(armIdx int, reward float64) {
	b.pending = -1
	b.t += 1
	b.pulls[armIdx] += 1
	b.rewards[armIdx] += reward
}

// ResetPending discards the pending choice without rewarding it. The
// multi-player collision hook uses it when a colliding player receives
// no feedback at all.
func (b *Base) ResetPending() {
	b.pending = -1
}

// EmpiricalMeans returns the per-arm average reward. Unpulled arms get
// +Inf so that greedy selection forces the initialization phase.
func (b *Base) EmpiricalMeans() []float64 {
	means := make([]float64, b.numArms)
	for i, n := range b.pulls {
		if n == 0 {
			means[i] = math.Inf(1)
		} else {
			means[i] = b.rewards[i] / float64(n)
		}
	}
	return means
}

func (b *Base) UnpulledArms() []int {
	idxs := make([]int, 0, b.numArms)
	for i, n := range b.pulls {
		if n == 0 {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

// NormalizeReward rescales a reward into [0, 1] using the declared
// support, clamping whatever falls outside.
func (b *Base) NormalizeReward(reward float64) float64 {
	if math.IsInf(b.amplitude, 1) {
		return mathx.Clamp(reward, 0.0, 1.0)
	}
	r := mathx.ConvertScale(reward, b.lower, b.lower+b.amplitude, 0.0, 1.0)
	return mathx.Clamp(r, 0.0, 1.0)
}
