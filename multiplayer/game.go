package multiplayer

import (
	"errors"
	"math/rand/v2"

	"github.com/sw965/bandit/mab"
	"github.com/sw965/bandit/policy"
)

var (
	ErrNoPlayers   = errors.New("multiplayerエラー: プレイヤーが存在しません")
	ErrRngMismatch = errors.New("multiplayerエラー: 乱数生成器の数がプレイヤー数と一致しません")
	ErrNilEnv      = errors.New("multiplayerエラー: 環境がnilです")
)

// CollisionHandler is implemented by policies that react to losing an
// arm to a collision. The hook replaces the reward feedback entirely,
// so the implementation must clear its own pending choice.
type CollisionHandler interface {
	HandleCollision(armIdx int)
}

// Game runs M decentralized players against one shared environment.
// Players never communicate; their only coupling is the collision
// model.
type Game struct {
	env     mab.Environment
	players []policy.Policy
	model   Model
}

func NewGame(env mab.Environment, players []policy.Policy, model Model) (*Game, error) {
	if env == nil {
		return nil, ErrNilEnv
	}
	if len(players) == 0 {
		return nil, ErrNoPlayers
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	return &Game{env: env, players: players, model: model}, nil
}

func (g *Game) NumPlayers() int {
	return len(g.players)
}

func (g *Game) Env() mab.Environment {
	return g.env
}

// MorePlayersThanArms reports the overloaded regime in which at least
// one collision is unavoidable at every step.
func (g *Game) MorePlayersThanArms() bool {
	return len(g.players) > g.env.NumArms()
}

func (g *Game) StartGame() {
	for _, p := range g.players {
		p.StartGame()
	}
}

// Step is the record of a single synchronized time step.
type Step struct {
	Choices  []int
	Rewards  []float64
	Collided []bool
}

func NewStep(players int) Step {
	return Step{
		Choices:  make([]int, players),
		Rewards:  make([]float64, players),
		Collided: make([]bool, players),
	}
}

func (s *Step) reset() {
	for i := range s.Rewards {
		s.Rewards[i] = 0.0
		s.Collided[i] = false
	}
}

// Play executes one step: every player chooses, collisions are
// detected, the model assigns rewards, and feedback is dispatched. A
// colliding player whose feedback was suppressed by the model gets
// HandleCollision when it implements the hook, and GetReward with a
// zero reward otherwise. playerRngs supplies each player its private
// stream; envRng drives the reward draws and model tie-breaking.
func (g *Game) Play(t int, playerRngs []*rand.Rand, envRng *rand.Rand, out *Step) error {
	if len(playerRngs) != len(g.players) {
		return ErrRngMismatch
	}
	out.reset()

	for i, p := range g.players {
		armIdx, err := p.Choice(playerRngs[i])
		if err != nil {
			return err
		}
		out.Choices[i] = armIdx
	}

	byArm := make(map[int][]int, len(g.players))
	for i, armIdx := range out.Choices {
		byArm[armIdx] = append(byArm[armIdx], i)
	}
	for i, armIdx := range out.Choices {
		out.Collided[i] = len(byArm[armIdx]) > 1
	}

	draw := func(armIdx int) (float64, error) {
		return g.env.Draw(armIdx, t, envRng)
	}
	fed := make([]bool, len(g.players))
	if err := g.model.resolve(out.Choices, byArm, draw, envRng, out.Rewards, fed); err != nil {
		return err
	}

	for i, p := range g.players {
		if fed[i] {
			if err := p.GetReward(out.Choices[i], out.Rewards[i]); err != nil {
				return err
			}
			continue
		}
		if h, ok := p.(CollisionHandler); ok {
			h.HandleCollision(out.Choices[i])
			continue
		}
		if err := p.GetReward(out.Choices[i], 0.0); err != nil {
			return err
		}
	}
	return nil
}
