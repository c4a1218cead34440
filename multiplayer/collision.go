// Package multiplayer coordinates several independent policies playing
// one shared environment, detects simultaneous selections of the same
// arm, and applies a configurable collision-resolution model.
//
// Package multiplayer は同一環境を共有する複数の独立方策を協調させ、衝突を解決します。
package multiplayer

import (
	"errors"
	"math/rand/v2"
	"sort"

	"github.com/sw965/omw/mathx/randx"
)

var ErrNilResolver = errors.New("multiplayerエラー: 衝突モデルのResolverがnilです")

// DrawFunc samples one reward from the environment for the given arm.
// It closes over the environment, the time step and the rng, so the
// models stay pure over reward realization.
type DrawFunc func(armIdx int) (float64, error)

// Resolver assigns the realized rewards for one time step.
// byArm maps each arm to the players that chose it. rewards[i] is the
// feedback of player i; fed[i] reports whether player i receives that
// feedback through GetReward. A colliding player with fed[i] false is
// notified through the HandleCollision hook instead.
type Resolver func(choices []int, byArm map[int][]int, draw DrawFunc, rng *rand.Rand, rewards []float64, fed []bool) error

// Model is a named collision-resolution rule. There is deliberately no
// default: the caller's configuration must pick one explicitly.
type Model struct {
	name    string
	resolve Resolver
}

func (m Model) Name() string {
	return m.name
}

func (m Model) Validate() error {
	if m.resolve == nil {
		return ErrNilResolver
	}
	return nil
}

// armsInOrder returns the chosen arms in ascending index order. Map
// iteration order is randomized, so every resolver must walk the arms
// through this to keep rng consumption reproducible for a given seed.
func armsInOrder(byArm map[int][]int) []int {
	idxs := make([]int, 0, len(byArm))
	for armIdx := range byArm {
		idxs = append(idxs, armIdx)
	}
	sort.Ints(idxs)
	return idxs
}

// NoCollision lets every player sense its arm independently, as if the
// players were on separate environments. The baseline against which
// collision costs are measured.
func NoCollision() Model {
	return Model{
		name: "noCollision",
		resolve: func(choices []int, _ map[int][]int, draw DrawFunc, _ *rand.Rand, rewards []float64, fed []bool) error {
			for i, armIdx := range choices {
				x, err := draw(armIdx)
				if err != nil {
					return err
				}
				rewards[i] = x
				fed[i] = true
			}
			return nil
		},
	}
}

// ZeroOnCollision gives colliding players nothing at all: no reward
// and no observation, only the collision notification.
func ZeroOnCollision() Model {
	return Model{
		name: "zeroOnCollision",
		resolve: func(choices []int, byArm map[int][]int, draw DrawFunc, _ *rand.Rand, rewards []float64, fed []bool) error {
			for _, armIdx := range armsInOrder(byArm) {
				players := byArm[armIdx]
				if len(players) == 1 {
					x, err := draw(armIdx)
					if err != nil {
						return err
					}
					rewards[players[0]] = x
					fed[players[0]] = true
				}
			}
			return nil
		},
	}
}

// SplitOnCollision divides one draw of the arm evenly among its
// colliders. Everyone still observes the degraded reward.
func SplitOnCollision() Model {
	return Model{
		name: "splitOnCollision",
		resolve: func(choices []int, byArm map[int][]int, draw DrawFunc, _ *rand.Rand, rewards []float64, fed []bool) error {
			for _, armIdx := range armsInOrder(byArm) {
				players := byArm[armIdx]
				x, err := draw(armIdx)
				if err != nil {
					return err
				}
				share := x / float64(len(players))
				for _, i := range players {
					rewards[i] = share
					fed[i] = true
				}
			}
			return nil
		},
	}
}

// RandomWinner delivers the full reward to one collider chosen
// uniformly at random; the losers get only the collision notification.
func RandomWinner() Model {
	return Model{
		name: "randomWinner",
		resolve: func(choices []int, byArm map[int][]int, draw DrawFunc, rng *rand.Rand, rewards []float64, fed []bool) error {
			for _, armIdx := range armsInOrder(byArm) {
				players := byArm[armIdx]
				winner := players[0]
				if len(players) > 1 {
					w, err := randx.Choice(players, rng)
					if err != nil {
						return err
					}
					winner = w
				}
				x, err := draw(armIdx)
				if err != nil {
					return err
				}
				rewards[winner] = x
				fed[winner] = true
			}
			return nil
		},
	}
}

// PriorityWinner delivers the full reward to the collider with the
// lowest player index, a fixed centralized ranking.
func PriorityWinner() Model {
	return Model{
		name: "priorityWinner",
		resolve: func(choices []int, byArm map[int][]int, draw DrawFunc, _ *rand.Rand, rewards []float64, fed []bool) error {
			for _, armIdx := range armsInOrder(byArm) {
				players := byArm[armIdx]
				winner := players[0]
				for _, i := range players[1:] {
					if i < winner {
						winner = i
					}
				}
				x, err := draw(armIdx)
				if err != nil {
					return err
				}
				rewards[winner] = x
				fed[winner] = true
			}
			return nil
		},
	}
}
