package mathx_test

import (
	"testing"

	"github.com/sw965/bandit/mathx"
)

func TestMaxIndices(t *testing.T) {
	got := mathx.MaxIndices([]float64{0.1, 0.9, 0.9, 0.5})
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("MaxIndices = %v, want [1 2]", got)
	}

	got = mathx.MaxIndices([]int{7})
	if len(got) != 1 || got[0] != 0 {
		t.Errorf("MaxIndices = %v, want [0]", got)
	}
}

func TestClamp(t *testing.T) {
	if got := mathx.Clamp(1.5, 0.0, 1.0); got != 1.0 {
		t.Errorf("Clamp(1.5, 0, 1) = %v, want 1", got)
	}
	if got := mathx.Clamp(-0.5, 0.0, 1.0); got != 0.0 {
		t.Errorf("Clamp(-0.5, 0, 1) = %v, want 0", got)
	}
	if got := mathx.Clamp(0.25, 0.0, 1.0); got != 0.25 {
		t.Errorf("Clamp(0.25, 0, 1) = %v, want 0.25", got)
	}
}

func TestConvertScale(t *testing.T) {
	if got := mathx.ConvertScale(5.0, 0.0, 10.0, 0.0, 1.0); got != 0.5 {
		t.Errorf("ConvertScale = %v, want 0.5", got)
	}
	if got := mathx.ConvertScale(-1.0, -1.0, 1.0, 0.0, 1.0); got != 0.0 {
		t.Errorf("ConvertScale = %v, want 0", got)
	}
}

func TestSum(t *testing.T) {
	if got := mathx.Sum(1, 2, 3); got != 6 {
		t.Errorf("Sum = %v, want 6", got)
	}
	if got := mathx.Sum[float64](); got != 0.0 {
		t.Errorf("Sum() = %v, want 0", got)
	}
}
