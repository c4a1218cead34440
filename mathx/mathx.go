package mathx

import (
	"golang.org/x/exp/constraints"
)

func Sum[X constraints.Float | constraints.Integer](xs ...X) X {
	var total X
	for _, x := range xs {
		total += x
	}
	return total
}

func Max[X constraints.Ordered](xs ...X) X {
	max := xs[0]
	for _, x := range xs[1:] {
		if x > max {
			max = x
		}
	}
	return max
}

// MaxIndices returns every index whose value equals the maximum.
// 最大値を持つ全てのインデックスを返す。
func MaxIndices[S ~[]X, X constraints.Ordered](xs S) []int {
	max := Max(xs...)
	idxs := make([]int, 0, len(xs))
	for i, x := range xs {
		if x == max {
			idxs = append(idxs, i)
		}
	}
	return idxs
}

func Clamp[X constraints.Float](x, min, max X) X {
	if x < min {
		return min
	}
	if x > max {
		return max
	}
	return x
}

func ConvertScale(x, xMin, xMax, yMin, yMax float64) float64 {
	return yMin + (yMax-yMin)*(x-xMin)/(xMax-xMin)
}
