package kl_test

import (
	"math"
	"testing"

	"github.com/sw965/bandit/kl"
)

func TestBern(t *testing.T) {
	if got := kl.Bern(0.5, 0.5); got != 0.0 {
		t.Errorf("Bern(0.5, 0.5) = %v, want 0", got)
	}

	// klBern(0.1, 0.9) = 0.1*log(1/9) + 0.9*log(9)
	want := 0.1*math.Log(0.1/0.9) + 0.9*math.Log(0.9/0.1)
	if got := kl.Bern(0.1, 0.9); math.Abs(got-want) > 1e-12 {
		t.Errorf("Bern(0.1, 0.9) = %v, want %v", got, want)
	}

	if got := kl.Bern(0.0, 1.0); math.IsInf(got, 0) || math.IsNaN(got) {
		t.Errorf("Bern(0, 1) should stay finite, got %v", got)
	}
}

func TestGauss(t *testing.T) {
	want := 0.5
	if got := kl.Gauss(0.0, 1.0, 1.0); math.Abs(got-want) > 1e-12 {
		t.Errorf("Gauss(0, 1, 1) = %v, want %v", got, want)
	}
}

func TestPoissonAndExp(t *testing.T) {
	if got := kl.Poisson(2.0, 2.0); math.Abs(got) > 1e-12 {
		t.Errorf("Poisson(2, 2) = %v, want 0", got)
	}
	if got := kl.Exp(3.0, 3.0); math.Abs(got) > 1e-12 {
		t.Errorf("Exp(3, 3) = %v, want 0", got)
	}
	if got := kl.Poisson(1.0, 3.0); got <= 0.0 {
		t.Errorf("Poisson(1, 3) = %v, want > 0", got)
	}
	if got := kl.Exp(1.0, 3.0); got <= 0.0 {
		t.Errorf("Exp(1, 3) = %v, want > 0", got)
	}
}
