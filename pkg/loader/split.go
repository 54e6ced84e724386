package loader

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
)

var (
	// ErrInvalidFraction is returned when the held-out fraction is outside (0,1).
	ErrInvalidFraction = errors.New("loader: test fraction must be in (0,1)")
	ErrInvalidSize     = errors.New("loader: invalid row count")
	ErrInvalidFolds    = errors.New("loader: invalid fold count")
)

// Partition holds row indices of the train and test sides of a split.
type Partition struct {
	Train []int
	Test  []int
}

// TrainTestSplit shuffles the row indices 0..n-1 with a source seeded by
// seed and holds out ceil(testRatio*n) of them as the test set. The same
// seed always yields the same partition.
func TrainTestSplit(n int, testRatio float64, seed int64) (Partition, error) {
	if math.IsNaN(testRatio) || testRatio <= 0 || testRatio >= 1 {
		return Partition{}, fmt.Errorf("%w: got %v", ErrInvalidFraction, testRatio)
	}
	if n < 0 {
		return Partition{}, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	nTest := int(math.Ceil(testRatio * float64(n)))
	return Partition{
		Test:  indices[:nTest],
		Train: indices[nTest:],
	}, nil
}

// Take gathers the rows of X and y at idx. Row vectors are shared with X.
func Take(X [][]float64, y []int, idx []int) ([][]float64, []int) {
	xs := make([][]float64, len(idx))
	ys := make([]int, len(idx))
	for i, j := range idx {
		xs[i] = X[j]
		ys[i] = y[j]
	}
	return xs, ys
}

// KFoldSplit deals a seeded permutation of 0..n-1 into k folds. k must be
// between 1 and n so that no fold is empty.
func KFoldSplit(n, k int, seed int64) ([][]int, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidSize, n)
	}
	if k < 1 || k > n {
		return nil, fmt.Errorf("%w: %d folds for %d rows", ErrInvalidFolds, k, n)
	}
	indices := rand.New(rand.NewSource(seed)).Perm(n)
	folds := make([][]int, k)
	for i := range n {
		folds[i%k] = append(folds[i%k], indices[i])
	}
	return folds, nil
}
