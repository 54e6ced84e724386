package stats

import (
	"sort"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Quantiles returns the values at each fraction in ps (0 <= p <= 1) using
// linear interpolation between closest ranks, the method pandas uses in
// describe(). x is copied and sorted once.
func Quantiles(x []float64, ps ...float64) []float64 {
	out := make([]float64, len(ps))
	n := len(x)
	if n == 0 {
		return out
	}
	cp := append([]float64(nil), x...)
	sort.Float64s(cp)
	for i, p := range ps {
		switch {
		case p <= 0:
			out[i] = cp[0]
		case p >= 1:
			out[i] = cp[n-1]
		default:
			rank := p * float64(n-1)
			lower := int(rank)
			weight := rank - float64(lower)
			if lower+1 >= n {
				out[i] = cp[lower]
			} else {
				out[i] = cp[lower]*(1-weight) + cp[lower+1]*weight
			}
		}
	}
	return out
}

// MinMax returns the minimum and maximum values in the slice.
func MinMax(x []float64) (float64, float64) {
	if len(x) == 0 {
		return 0, 0
	}
	return floats.Min(x), floats.Max(x)
}

// Correlation is the Pearson correlation of x and y, 0 when either is
// constant or the lengths differ.
func Correlation(x, y []float64) float64 {
	if len(x) < 2 || len(x) != len(y) {
		return 0
	}
	_, sx := stat.MeanStdDev(x, nil)
	_, sy := stat.MeanStdDev(y, nil)
	if sx == 0 || sy == 0 {
		return 0
	}
	return stat.Correlation(x, y, nil)
}
