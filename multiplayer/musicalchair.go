package multiplayer

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/sw965/bandit/policy"
)

type chairState int

const (
	// notStarted lasts until the first Choice after StartGame.
	notStarted chairState = iota
	// initialPhase explores uniformly at random and counts collisions.
	initialPhase
	// musicalChairPhase hops uniformly over the estimated best arms.
	musicalChairPhase
	// sittedPhase repeats one reserved arm until a collision evicts it.
	sittedPhase
)

var ErrInvalidTime0 = errors.New("multiplayerエラー: MusicalChairの初期探索期間は正の値でなければなりません")

// MusicalChair is the decentralized orthogonalization policy of Shamir
// et al.: explore uniformly for time0 steps while counting collisions,
// estimate the number of competing players from the collision rate,
// then hop over the estimated top arms until settling on a free one.
type MusicalChair struct {
	policy.Base
	time0      int
	knownUsers int

	state        chairState
	step         int
	chair        int
	nbCollisions int
	nbUsers      int
	bestArms     []int
}

// NewMusicalChair builds the policy for a numArms-armed game with an
// initial exploration phase of time0 steps. knownUsers fixes the
// number of players when it is positive; zero means unknown, to be
// estimated from the observed collision frequency.
func NewMusicalChair(numArms, time0, knownUsers int) (*MusicalChair, error) {
	base, err := policy.NewBase(numArms)
	if err != nil {
		return nil, err
	}
	if time0 <= 0 {
		return nil, ErrInvalidTime0
	}
	mc := &MusicalChair{Base: base, time0: time0, knownUsers: knownUsers}
	mc.StartGame()
	return mc, nil
}

// OptimalTime0 is the phase length T₀(ε, δ) guaranteeing, with
// probability 1-δ, both an ε-accurate ranking of the arm means and a
// correct player-count estimate.
func OptimalTime0(numArms int, epsilon, delta float64) int {
	k := float64(numArms)
	byRank := (k / 2.0) * math.Log(2.0*k*k/delta) / (epsilon * epsilon)
	byCount := 2.0 * k * math.Log(4.0*k*k/delta)
	return int(math.Ceil(math.Max(byRank, byCount)))
}

// BoundOnFinalRegret is the constant regret bound of Shamir et al.,
// Theorem 1: time0*players + 2*e^2*players.
func BoundOnFinalRegret(time0, players int) float64 {
	return float64(time0*players) + 2.0*math.Exp(2.0)*float64(players)
}

func (mc *MusicalChair) StartGame() {
	mc.Base.StartGame()
	mc.state = notStarted
	mc.step = -1
	mc.chair = -1
	mc.nbCollisions = 0
	mc.nbUsers = mc.knownUsers
	mc.bestArms = nil
}

func (mc *MusicalChair) Choice(rng *rand.Rand) (int, error) {
	mc.step++
	if mc.state == notStarted {
		if mc.knownUsers > 0 {
			// Player count known in advance: skip estimation and hop
			// over a random subset of the right size straight away.
			mc.state = musicalChairPhase
			perm := rng.Perm(mc.NumArms())
			mc.bestArms = perm[:mc.nbUsers]
		} else {
			mc.state = initialPhase
		}
	}

	var armIdx int
	switch mc.state {
	case initialPhase:
		armIdx = rng.IntN(mc.NumArms())
	case musicalChairPhase:
		armIdx = mc.bestArms[rng.IntN(len(mc.bestArms))]
		mc.chair = armIdx
		mc.state = sittedPhase
	default:
		armIdx = mc.chair
	}
	if err := mc.MarkChoice(armIdx); err != nil {
		return -1, err
	}
	return armIdx, nil
}

func (mc *MusicalChair) GetReward(armIdx int, reward float64) error {
	if err := mc.Base.GetReward(armIdx, reward); err != nil {
		return err
	}
	mc.afterFeedback()
	return nil
}

func (mc *MusicalChair) Observe(armIdx int, reward float64) {
	mc.Base.Observe(armIdx, reward)
	mc.afterFeedback()
}

func (mc *MusicalChair) afterFeedback() {
	if mc.state == initialPhase && mc.step >= mc.time0 {
		mc.endInitialPhase()
	}
}

// HandleCollision counts collisions during the initial phase and
// evicts the player from its chair afterwards.
func (mc *MusicalChair) HandleCollision(armIdx int) {
	mc.ResetPending()
	switch mc.state {
	case initialPhase:
		mc.nbCollisions++
	case sittedPhase:
		mc.chair = -1
		mc.state = musicalChairPhase
	}
}

func (mc *MusicalChair) endInitialPhase() {
	mc.state = musicalChairPhase

	if mc.nbUsers == 0 {
		mc.nbUsers = mc.estimateUsers()
	}

	k := mc.NumArms()
	means := make([]float64, k)
	for armIdx := 0; armIdx < k; armIdx++ {
		n := mc.PullCount(armIdx)
		if n == 0 {
			means[armIdx] = math.Inf(-1)
		} else {
			means[armIdx] = mc.CumReward(armIdx) / float64(n)
		}
	}
	idxs := make([]int, k)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return means[idxs[a]] > means[idxs[b]]
	})
	mc.bestArms = idxs[:mc.nbUsers]
}

// estimateUsers inverts the collision probability of uniform random
// hopping: after t0 steps with C collisions among M players on K arms,
// C/t0 ≈ 1 - (1 - 1/K)^(M-1).
func (mc *MusicalChair) estimateUsers() int {
	t0 := float64(mc.step + 1)
	c := float64(mc.nbCollisions)
	k := mc.NumArms()
	if c >= t0 {
		// Collided at every single step: saturated, assume a full house.
		return k
	}
	est := math.Round(1.0 + math.Log((t0-c)/t0)/math.Log(1.0-1.0/float64(k)))
	if est < 1.0 {
		return 1
	}
	if est > float64(k) {
		return k
	}
	return int(est)
}

func (mc *MusicalChair) String() string {
	if mc.knownUsers > 0 {
		return fmt.Sprintf("MusicalChair(T0=%d, M=%d)", mc.time0, mc.knownUsers)
	}
	return fmt.Sprintf("MusicalChair(T0=%d)", mc.time0)
}
