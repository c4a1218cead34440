// Package kl implements the Kullback-Leibler divergences used by the
// regret lower bounds of classical bandit problems.
package kl

import (
	"math"
)

// eps keeps probabilities strictly inside (0, 1) so the divergences
// stay finite.
const eps = 1e-15

func clampProb(p float64) float64 {
	if p < eps {
		return eps
	}
	if p > 1.0-eps {
		return 1.0 - eps
	}
	return p
}

// Bern is the KL divergence between two Bernoulli distributions of
// means x and y.
func Bern(x, y float64) float64 {
	x = clampProb(x)
	y = clampProb(y)
	return x*math.Log(x/y) + (1.0-x)*math.Log((1.0-x)/(1.0-y))
}

// Gauss is the KL divergence between two Gaussian distributions of
// means x and y sharing the variance sig2.
func Gauss(x, y, sig2 float64) float64 {
	return (x - y) * (x - y) / (2.0 * sig2)
}

// Poisson is the KL divergence between two Poisson distributions of
// rates x and y.
func Poisson(x, y float64) float64 {
	x = math.Max(x, eps)
	y = math.Max(y, eps)
	return y - x + x*math.Log(x/y)
}

// Exp is the KL divergence between two exponential distributions of
// means x and y.
func Exp(x, y float64) float64 {
	x = math.Max(x, eps)
	y = math.Max(y, eps)
	return x/y - 1.0 - math.Log(x/y)
}
