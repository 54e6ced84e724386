package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// RandomForest for classification
type RandomForest struct {
	// Hyperparameters / options
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	MinSamplesLeaf  int
	MaxFeatures     int // 0 => floor(sqrt(p))
	Criterion       string
	Bootstrap       bool
	RandomState     int64
	Workers         int // 0 => GOMAXPROCS

	// Internal state
	Trees     []*DecisionTreeClassifier
	classes   []int
	nFeatures int
}

// Option functional config for RandomForest
type RandomForestOption func(*RandomForest)

func WithNEstimators(n int) RandomForestOption { return func(rf *RandomForest) { rf.NEstimators = n } }
func WithBootstrap(b bool) RandomForestOption  { return func(rf *RandomForest) { rf.Bootstrap = b } }
func WithForestMaxDepth(d int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxDepth = d }
}
func WithForestMinSamplesSplit(n int) RandomForestOption {
	return func(rf *RandomForest) { rf.MinSamplesSplit = n }
}
func WithForestMaxFeatures(k int) RandomForestOption {
	return func(rf *RandomForest) { rf.MaxFeatures = k }
}
func WithForestCriterion(c string) RandomForestOption {
	return func(rf *RandomForest) { rf.Criterion = c }
}
func WithForestRandomState(seed int64) RandomForestOption {
	return func(rf *RandomForest) { rf.RandomState = seed }
}
func WithWorkers(n int) RandomForestOption { return func(rf *RandomForest) { rf.Workers = n } }

// DefaultEstimators is the forest size used when none is configured.
const DefaultEstimators = 600

// NewRandomForest initializes the forest with sensible defaults.
func NewRandomForest(opts ...RandomForestOption) *RandomForest {
	rf := &RandomForest{
		NEstimators:     DefaultEstimators,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     0,
		Criterion:       CriterionGini,
		Bootstrap:       true,
	}
	for _, o := range opts {
		o(rf)
	}
	return rf
}

// Fit trains the random forest.
func (rf *RandomForest) Fit(X [][]float64, y []int) error {
	return rf.FitContext(context.Background(), X, y)
}

// FitContext trains every member on its own bootstrap sample of row
// indices. Member i draws from a source seeded with RandomState+i and writes
// only its own slot, so the fitted forest does not depend on scheduling.
func (rf *RandomForest) FitContext(ctx context.Context, X [][]float64, y []int) error {
	if rf.NEstimators < 1 {
		return fmt.Errorf("randomforest: %w: got %d", ErrInvalidEstimators, rf.NEstimators)
	}
	if !ValidCriterion(rf.Criterion) {
		return fmt.Errorf("randomforest: unknown criterion %q", rf.Criterion)
	}
	classes, yc, err := prepareTraining(X, y)
	if err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}
	n := len(X)
	maxFeatures := rf.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = max(1, int(math.Sqrt(float64(len(X[0])))))
	}
	workers := rf.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*DecisionTreeClassifier, rf.NEstimators)
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := 0; i < rf.NEstimators; i++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			seed := rf.RandomState + int64(i)
			treeRand := rand.New(rand.NewSource(seed))

			// Bootstrap sampling: an index slice, not a copy of the data.
			sampleIndices := make([]int, n)
			for j := 0; j < n; j++ {
				if rf.Bootstrap {
					sampleIndices[j] = treeRand.Intn(n)
				} else {
					sampleIndices[j] = j
				}
			}

			tree := NewDecisionTreeClassifier(
				WithMaxDepth(rf.MaxDepth),
				WithMinSamplesSplit(rf.MinSamplesSplit),
				WithMinSamplesLeaf(rf.MinSamplesLeaf),
				WithMaxFeatures(maxFeatures),
				WithCriterion(rf.Criterion),
				WithRandomState(seed),
			)
			tree.fitEncoded(X, yc, classes, sampleIndices, treeRand)
			trees[i] = tree
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return fmt.Errorf("randomforest: %w", err)
	}

	rf.Trees = trees
	rf.classes = classes
	rf.nFeatures = len(X[0])
	return nil
}

// NFeatures returns the row width seen during Fit, 0 before Fit.
func (rf *RandomForest) NFeatures() int { return rf.nFeatures }

// Classes returns the sorted class labels seen during Fit.
func (rf *RandomForest) Classes() []int { return append([]int(nil), rf.classes...) }

// Predict returns the majority vote of all trees, ties going to the lowest
// class label.
func (rf *RandomForest) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if len(rf.Trees) == 0 {
		return out
	}
	votes := make([]int, len(rf.classes))
	for i, x := range X {
		clear(votes)
		for _, t := range rf.Trees {
			votes[t.leaf(x).predIndex]++
		}
		out[i] = rf.classes[argmax(votes)]
	}
	return out
}

// Votes returns, per row of X, how many trees voted for each class.
func (rf *RandomForest) Votes(X [][]float64) [][]int {
	out := make([][]int, len(X))
	for i, x := range X {
		v := make([]int, len(rf.classes))
		for _, t := range rf.Trees {
			v[t.leaf(x).predIndex]++
		}
		out[i] = v
	}
	return out
}
