// Package arm provides the stochastic reward sources of a multi-armed
// bandit problem. Every arm exposes its expectation, a draw that
// consumes a caller-supplied generator, and the support of its rewards.
//
// Package arm は多腕バンディット問題の確率的報酬源を提供します。
package arm

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

var ErrInvalidParameter = errors.New("armエラー: パラメーターが不正です")

type Arm interface {
	// Mean is the deterministic expectation of one draw.
	Mean() float64
	// Draw samples one reward. All randomness comes from rng so that
	// repetitions stay reproducible and independent.
	Draw(rng *rand.Rand) float64
	// Lower and Amplitude describe the reward support
	// [lower, lower+amplitude], used to rescale rewards into [0, 1].
	Lower() float64
	Amplitude() float64
}

type Arms []Arm

func (as Arms) Means() []float64 {
	means := make([]float64, len(as))
	for i, a := range as {
		means[i] = a.Mean()
	}
	return means
}

// Bernoulli rewards are 1 with probability p, else 0.
type Bernoulli struct {
	p float64
}

func NewBernoulli(p float64) (Bernoulli, error) {
	if p < 0.0 || p > 1.0 || math.IsNaN(p) {
		return Bernoulli{}, fmt.Errorf("%w: Bernoulli平均 p = %v は [0, 1] でなければならない", ErrInvalidParameter, p)
	}
	return Bernoulli{p: p}, nil
}

func (b Bernoulli) Mean() float64 {
	return b.p
}

func (b Bernoulli) Draw(rng *rand.Rand) float64 {
	return distuv.Bernoulli{P: b.p, Src: rng}.Rand()
}

func (b Bernoulli) Lower() float64 {
	return 0.0
}

func (b Bernoulli) Amplitude() float64 {
	return 1.0
}

func (b Bernoulli) String() string {
	return fmt.Sprintf("B(%g)", b.p)
}

// Gaussian rewards follow N(mu, sigma^2) truncated into
// [min, min+amplitude] so that the support stays bounded.
type Gaussian struct {
	mu    float64
	sigma float64
	min   float64
	max   float64
}

func NewGaussian(mu, sigma float64) (Gaussian, error) {
	return NewTruncatedGaussian(mu, sigma, 0.0, 1.0)
}

func NewTruncatedGaussian(mu, sigma, min, max float64) (Gaussian, error) {
	if sigma <= 0.0 || math.IsNaN(sigma) {
		return Gaussian{}, fmt.Errorf("%w: Gaussian標準偏差 sigma = %v は正でなければならない", ErrInvalidParameter, sigma)
	}
	if min >= max {
		return Gaussian{}, fmt.Errorf("%w: Gaussianの切断区間 [%v, %v] が不正", ErrInvalidParameter, min, max)
	}
	if mu < min || mu > max {
		return Gaussian{}, fmt.Errorf("%w: Gaussian平均 mu = %v は [%v, %v] でなければならない", ErrInvalidParameter, mu, min, max)
	}
	return Gaussian{mu: mu, sigma: sigma, min: min, max: max}, nil
}

func (g Gaussian) Mean() float64 {
	return g.mu
}

func (g Gaussian) Draw(rng *rand.Rand) float64 {
	x := distuv.Normal{Mu: g.mu, Sigma: g.sigma, Src: rng}.Rand()
	if x < g.min {
		return g.min
	}
	if x > g.max {
		return g.max
	}
	return x
}

func (g Gaussian) Lower() float64 {
	return g.min
}

func (g Gaussian) Amplitude() float64 {
	return g.max - g.min
}

func (g Gaussian) String() string {
	return fmt.Sprintf("N(%g, %g)", g.mu, g.sigma)
}

// Exponential rewards follow Exp(rate) with mean 1/rate. The support is
// unbounded above, so the amplitude is +Inf and normalized rewards are
// clamped by the consumer.
type Exponential struct {
	rate float64
}

func NewExponential(rate float64) (Exponential, error) {
	if rate <= 0.0 || math.IsNaN(rate) {
		return Exponential{}, fmt.Errorf("%w: Exponentialレート rate = %v は正でなければならない", ErrInvalidParameter, rate)
	}
	return Exponential{rate: rate}, nil
}

func NewExponentialFromMean(mean float64) (Exponential, error) {
	if mean <= 0.0 || math.IsNaN(mean) {
		return Exponential{}, fmt.Errorf("%w: Exponential平均 mean = %v は正でなければならない", ErrInvalidParameter, mean)
	}
	return Exponential{rate: 1.0 / mean}, nil
}

func (e Exponential) Mean() float64 {
	return 1.0 / e.rate
}

func (e Exponential) Draw(rng *rand.Rand) float64 {
	return distuv.Exponential{Rate: e.rate, Src: rng}.Rand()
}

func (e Exponential) Lower() float64 {
	return 0.0
}

func (e Exponential) Amplitude() float64 {
	return math.Inf(1)
}

func (e Exponential) String() string {
	return fmt.Sprintf("Exp(%g)", e.rate)
}

// Gamma rewards follow Gamma(shape, rate) with mean shape/rate.
type Gamma struct {
	shape float64
	rate  float64
}

func NewGamma(shape, rate float64) (Gamma, error) {
	if shape <= 0.0 || rate <= 0.0 || math.IsNaN(shape) || math.IsNaN(rate) {
		return Gamma{}, fmt.Errorf("%w: Gammaパラメーター (shape = %v, rate = %v) は正でなければならない", ErrInvalidParameter, shape, rate)
	}
	return Gamma{shape: shape, rate: rate}, nil
}

func (g Gamma) Mean() float64 {
	return g.shape / g.rate
}

func (g Gamma) Draw(rng *rand.Rand) float64 {
	return distuv.Gamma{Alpha: g.shape, Beta: g.rate, Src: rng}.Rand()
}

func (g Gamma) Lower() float64 {
	return 0.0
}

func (g Gamma) Amplitude() float64 {
	return math.Inf(1)
}

func (g Gamma) String() string {
	return fmt.Sprintf("Gamma(%g, %g)", g.shape, g.rate)
}

// Poisson rewards are counts with rate lambda.
type Poisson struct {
	lambda float64
}

func NewPoisson(lambda float64) (Poisson, error) {
	if lambda <= 0.0 || math.IsNaN(lambda) {
		return Poisson{}, fmt.Errorf("%w: Poissonレート lambda = %v は正でなければならない", ErrInvalidParameter, lambda)
	}
	return Poisson{lambda: lambda}, nil
}

func (p Poisson) Mean() float64 {
	return p.lambda
}

func (p Poisson) Draw(rng *rand.Rand) float64 {
	return distuv.Poisson{Lambda: p.lambda, Src: rng}.Rand()
}

func (p Poisson) Lower() float64 {
	return 0.0
}

func (p Poisson) Amplitude() float64 {
	return math.Inf(1)
}

func (p Poisson) String() string {
	return fmt.Sprintf("P(%g)", p.lambda)
}

// Uniform rewards are drawn uniformly from [min, max].
type Uniform struct {
	min float64
	max float64
}

func NewUniform(min, max float64) (Uniform, error) {
	if min >= max || math.IsNaN(min) || math.IsNaN(max) {
		return Uniform{}, fmt.Errorf("%w: Uniform区間 [%v, %v] が不正", ErrInvalidParameter, min, max)
	}
	return Uniform{min: min, max: max}, nil
}

func (u Uniform) Mean() float64 {
	return (u.min + u.max) / 2.0
}

func (u Uniform) Draw(rng *rand.Rand) float64 {
	return distuv.Uniform{Min: u.min, Max: u.max, Src: rng}.Rand()
}

func (u Uniform) Lower() float64 {
	return u.min
}

func (u Uniform) Amplitude() float64 {
	return u.max - u.min
}

func (u Uniform) String() string {
	return fmt.Sprintf("U(%g, %g)", u.min, u.max)
}

// Constant always rewards the same value. Mostly useful in tests and as
// the per-state reward of Markovian environments.
type Constant struct {
	v float64
}

func NewConstant(v float64) Constant {
	return Constant{v: v}
}

func (c Constant) Mean() float64 {
	return c.v
}

func (c Constant) Draw(_ *rand.Rand) float64 {
	return c.v
}

func (c Constant) Lower() float64 {
	return c.v
}

func (c Constant) Amplitude() float64 {
	return 0.0
}

func (c Constant) String() string {
	return fmt.Sprintf("Const(%g)", c.v)
}
