package dataprep

import (
	"fmt"
	"math"

	"loanrisk/pkg/data"
)

// FeaturesAndTarget turns an all-numeric table into a row-major feature
// matrix (every column except target), an integer label vector and the
// feature names in column order.
func FeaturesAndTarget(t *data.Table, target string) (X [][]float64, y []int, names []string, err error) {
	ti := t.Index(target)
	if ti < 0 {
		return nil, nil, nil, fmt.Errorf("%w: %q", ErrUnknownColumn, target)
	}
	n := t.Len()
	for _, c := range t.Columns {
		if c.Kind != data.Numeric {
			return nil, nil, nil, fmt.Errorf("%w: %q must be encoded first", ErrNotCategorical, c.Name)
		}
	}

	y = make([]int, n)
	for i, v := range t.Columns[ti].Num {
		if v != math.Trunc(v) {
			return nil, nil, nil, fmt.Errorf("dataprep: target %q has non-integer value %v at row %d", target, v, i)
		}
		y[i] = int(v)
	}

	indices := make([]int, 0, len(t.Columns)-1)
	for j, c := range t.Columns {
		if j == ti {
			continue
		}
		indices = append(indices, j)
		names = append(names, c.Name)
	}

	X = make([][]float64, n)
	for i := range X {
		row := make([]float64, len(indices))
		for k, j := range indices {
			row[k] = t.Columns[j].Num[i]
		}
		X[i] = row
	}
	return X, y, names, nil
}
