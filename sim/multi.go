package sim

import (
	"errors"
	"sort"

	"github.com/rs/zerolog"
	"github.com/sw965/omw/parallel"

	"github.com/sw965/bandit/mab"
	"github.com/sw965/bandit/mathx"
	"github.com/sw965/bandit/mathx/randx"
	"github.com/sw965/bandit/multiplayer"
	"github.com/sw965/bandit/policy"
)

var ErrNilPlayersFunc = errors.New("simエラー: プレイヤー群の生成関数がnilです")

// NewPlayersFunc builds a fresh set of players for one repetition. The
// driver never reuses learner state across repetitions.
type NewPlayersFunc func() ([]policy.Policy, error)

// EvaluatorMultiPlayers runs M decentralized players against one
// shared environment under a collision model.
type EvaluatorMultiPlayers struct {
	env        mab.Environment
	newPlayers NewPlayersFunc
	model      multiplayer.Model
	config     Config
	logger     zerolog.Logger
}

func NewEvaluatorMultiPlayers(env mab.Environment, newPlayers NewPlayersFunc, model multiplayer.Model, config Config) (*EvaluatorMultiPlayers, error) {
	if env == nil {
		return nil, ErrNilEnv
	}
	if newPlayers == nil {
		return nil, ErrNilPlayersFunc
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &EvaluatorMultiPlayers{
		env:        env,
		newPlayers: newPlayers,
		model:      model,
		config:     config,
		logger:     zerolog.Nop(),
	}, nil
}

func (e *EvaluatorMultiPlayers) SetLogger(logger zerolog.Logger) {
	e.logger = logger
}

// ResultMultiPlayers holds the raw trajectories of every repetition of
// a multi-player game.
type ResultMultiPlayers struct {
	Horizon    int
	NumArms    int
	NumPlayers int
	Choices    [][][]int     // [repetition][player][step]
	Rewards    [][][]float64 // [repetition][player][step]
	Collisions [][]int       // [repetition][step], players in collision
	ArmMeans   [][]float64   // [repetition][arm]
}

func newResultMultiPlayers(horizon, numArms, players, repetitions int) *ResultMultiPlayers {
	r := &ResultMultiPlayers{
		Horizon:    horizon,
		NumArms:    numArms,
		NumPlayers: players,
		Choices:    make([][][]int, repetitions),
		Rewards:    make([][][]float64, repetitions),
		Collisions: make([][]int, repetitions),
		ArmMeans:   make([][]float64, repetitions),
	}
	for rep := 0; rep < repetitions; rep++ {
		r.Choices[rep] = make([][]int, players)
		r.Rewards[rep] = make([][]float64, players)
		for i := 0; i < players; i++ {
			r.Choices[rep][i] = make([]int, horizon)
			r.Rewards[rep][i] = make([]float64, horizon)
		}
		r.Collisions[rep] = make([]int, horizon)
	}
	return r
}

// Run executes every repetition. Each player owns a private stream and
// the environment a further one, all derived from Seed and the
// repetition index, so the outcome is independent of Parallelism.
func (e *EvaluatorMultiPlayers) Run() (*ResultMultiPlayers, error) {
	cfg := e.config

	players, err := e.newPlayers()
	if err != nil {
		return nil, err
	}
	if len(players) == 0 {
		return nil, multiplayer.ErrNoPlayers
	}
	numPlayers := len(players)
	result := newResultMultiPlayers(cfg.Horizon, e.env.NumArms(), numPlayers, cfg.Repetitions)

	if numPlayers > e.env.NumArms() {
		e.logger.Warn().
			Int("players", numPlayers).
			Int("arms", e.env.NumArms()).
			Msg("more players than arms: collisions are unavoidable")
	}

	err = parallel.For(cfg.Repetitions, cfg.workers(), func(workerId, rep int) error {
		streams := int64(numPlayers + 1)
		playerRngs := randx.NewMt19937s(cfg.Seed+int64(rep)*streams, numPlayers)
		envRng := randx.NewMt19937(cfg.Seed + int64(rep)*streams + int64(numPlayers))

		env := e.env
		if redraw, ok := env.(mab.Redrawable); ok {
			fresh, err := redraw.NewRepetition(envRng)
			if err != nil {
				return err
			}
			env = fresh
		}
		result.ArmMeans[rep] = env.Means()

		repPlayers := players
		if rep > 0 {
			fresh, err := e.newPlayers()
			if err != nil {
				return err
			}
			repPlayers = fresh
		}

		game, err := multiplayer.NewGame(env, repPlayers, e.model)
		if err != nil {
			return err
		}
		game.StartGame()

		step := multiplayer.NewStep(numPlayers)
		for t := 0; t < cfg.Horizon; t++ {
			if err := game.Play(t, playerRngs, envRng, &step); err != nil {
				return err
			}
			for i := 0; i < numPlayers; i++ {
				result.Choices[rep][i][t] = step.Choices[i]
				result.Rewards[rep][i][t] = step.Rewards[i]
				if step.Collided[i] {
					result.Collisions[rep][t]++
				}
			}
		}

		e.logger.Debug().
			Int("repetition", rep).
			Int("worker", workerId).
			Msg("repetition finished")
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info().
		Int("repetitions", cfg.Repetitions).
		Int("horizon", cfg.Horizon).
		Int("players", numPlayers).
		Msg("multi-player evaluation finished")
	return result, nil
}

func (r *ResultMultiPlayers) Repetitions() int {
	return len(r.Choices)
}

// CentralizedRegret is the regret of the whole system: the oracle
// per-step reward of coordinated players minus the means of the arms
// the players actually occupied, accumulated and averaged over
// repetitions. Colliding players occupy one arm together, so its mean
// is counted once.
func (r *ResultMultiPlayers) CentralizedRegret() []float64 {
	regret := make([]float64, r.Horizon)
	for rep := 0; rep < r.Repetitions(); rep++ {
		oracle := mab.OracleMeanSum(r.ArmMeans[rep], r.NumPlayers)
		cum := 0.0
		for t := 0; t < r.Horizon; t++ {
			occupied := make(map[int]bool, r.NumPlayers)
			for i := 0; i < r.NumPlayers; i++ {
				occupied[r.Choices[rep][i][t]] = true
			}
			got := 0.0
			for armIdx := range occupied {
				got += r.ArmMeans[rep][armIdx]
			}
			cum += oracle - got
			regret[t] += cum
		}
	}
	n := float64(r.Repetitions())
	for t := range regret {
		regret[t] /= n
	}
	return regret
}

// CollisionCounts sums, per repetition, the number of player-steps
// spent in collision.
func (r *ResultMultiPlayers) CollisionCounts() []int {
	counts := make([]int, r.Repetitions())
	for rep, perStep := range r.Collisions {
		counts[rep] = mathx.Sum(perStep...)
	}
	return counts
}

// MeanCollisionsPerStep averages the collision count at each step over
// repetitions.
func (r *ResultMultiPlayers) MeanCollisionsPerStep() []float64 {
	means := make([]float64, r.Horizon)
	for _, perStep := range r.Collisions {
		for t, c := range perStep {
			means[t] += float64(c)
		}
	}
	n := float64(r.Repetitions())
	for t := range means {
		means[t] /= n
	}
	return means
}

// Pulls counts the choices of one player in one repetition.
func (r *ResultMultiPlayers) Pulls(rep, player int) []int {
	pulls := make([]int, r.NumArms)
	for _, armIdx := range r.Choices[rep][player] {
		pulls[armIdx]++
	}
	return pulls
}

// MeanCumRewards is the cumulative realized reward of each player,
// averaged over repetitions.
func (r *ResultMultiPlayers) MeanCumRewards() []float64 {
	totals := make([]float64, r.NumPlayers)
	for rep := 0; rep < r.Repetitions(); rep++ {
		for i := 0; i < r.NumPlayers; i++ {
			totals[i] += mathx.Sum(r.Rewards[rep][i]...)
		}
	}
	n := float64(r.Repetitions())
	for i := range totals {
		totals[i] /= n
	}
	return totals
}

// FairnessGap measures how unevenly the total reward is shared: the
// spread between the best and worst player's mean cumulative reward.
func (r *ResultMultiPlayers) FairnessGap() float64 {
	totals := r.MeanCumRewards()
	sort.Float64s(totals)
	return totals[len(totals)-1] - totals[0]
}

// SwitchCounts reports, per player, how many steps changed arm
// relative to the previous step, averaged over repetitions. Settled
// players (musical chair style) drive this toward zero.
func (r *ResultMultiPlayers) SwitchCounts() []float64 {
	counts := make([]float64, r.NumPlayers)
	for rep := 0; rep < r.Repetitions(); rep++ {
		for i, choices := range r.Choices[rep] {
			for t := 1; t < len(choices); t++ {
				if choices[t] != choices[t-1] {
					counts[i]++
				}
			}
		}
	}
	n := float64(r.Repetitions())
	for i := range counts {
		counts[i] /= n
	}
	return counts
}

// BestArmPulls counts, per player, the choices landing in the top-M
// arms of the per-repetition environment, averaged over repetitions.
// M is the number of players: in an orthogonalized system every player
// camps inside that set.
func (r *ResultMultiPlayers) BestArmPulls() []float64 {
	pulls := make([]float64, r.NumPlayers)
	for rep := 0; rep < r.Repetitions(); rep++ {
		means := r.ArmMeans[rep]
		order := make([]int, len(means))
		for i := range order {
			order[i] = i
		}
		sort.SliceStable(order, func(a, b int) bool {
			return means[order[a]] > means[order[b]]
		})
		m := r.NumPlayers
		if m > len(order) {
			m = len(order)
		}
		top := make(map[int]bool, m)
		for _, armIdx := range order[:m] {
			top[armIdx] = true
		}

		for i, choices := range r.Choices[rep] {
			for _, armIdx := range choices {
				if top[armIdx] {
					pulls[i]++
				}
			}
		}
	}
	n := float64(r.Repetitions())
	for i := range pulls {
		pulls[i] /= n
	}
	return pulls
}

// FinalRanking orders the players by mean cumulative reward, best
// first.
func (r *ResultMultiPlayers) FinalRanking() []int {
	totals := r.MeanCumRewards()
	idxs := make([]int, r.NumPlayers)
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return totals[idxs[a]] > totals[idxs[b]]
	})
	return idxs
}
