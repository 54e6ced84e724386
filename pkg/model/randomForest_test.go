package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRandomForestDefaults(t *testing.T) {
	rf := NewRandomForest()
	assert.Equal(t, DefaultEstimators, rf.NEstimators)
	assert.True(t, rf.Bootstrap)
	assert.Equal(t, CriterionGini, rf.Criterion)
	assert.Equal(t, 0, rf.MaxFeatures)
}

func TestRandomForestLearns(t *testing.T) {
	X, y := makeLinear(600, 4, 11)
	Xtest, ytest := makeLinear(300, 4, 12)

	rf := NewRandomForest(WithNEstimators(40), WithForestRandomState(1))
	require.NoError(t, rf.Fit(X, y))
	require.Len(t, rf.Trees, 40)
	for _, tree := range rf.Trees {
		require.NotNil(t, tree)
		assert.Equal(t, []int{0, 1}, tree.Classes())
		assert.Equal(t, 2, tree.MaxFeatures, "floor(sqrt(4)) features per split")
	}
	assert.Greater(t, Accuracy(ytest, rf.Predict(Xtest)), 0.85)
	assert.Equal(t, []int{0, 1}, rf.Classes())
}

func TestRandomForestIndependentOfWorkers(t *testing.T) {
	X, y := makeLinear(300, 5, 21)
	Xtest, _ := makeLinear(200, 5, 22)

	serial := NewRandomForest(WithNEstimators(25), WithWorkers(1), WithForestRandomState(5))
	parallel := NewRandomForest(WithNEstimators(25), WithWorkers(8), WithForestRandomState(5))
	require.NoError(t, serial.Fit(X, y))
	require.NoError(t, parallel.Fit(X, y))

	assert.Equal(t, serial.Votes(Xtest), parallel.Votes(Xtest))
	assert.Equal(t, serial.Predict(Xtest), parallel.Predict(Xtest))

	other := NewRandomForest(WithNEstimators(25), WithForestRandomState(6))
	require.NoError(t, other.Fit(X, y))
	assert.NotEqual(t, serial.Votes(Xtest), other.Votes(Xtest))
}

func TestRandomForestWithoutBootstrapMatchesTree(t *testing.T) {
	X, y := makeLinear(200, 3, 31)
	Xtest, _ := makeLinear(100, 3, 32)

	rf := NewRandomForest(WithNEstimators(5), WithBootstrap(false), WithForestMaxFeatures(3))
	require.NoError(t, rf.Fit(X, y))

	tree := NewDecisionTreeClassifier()
	require.NoError(t, tree.Fit(X, y))
	assert.Equal(t, tree.Predict(Xtest), rf.Predict(Xtest))
}

func TestRandomForestVotesSumToEstimators(t *testing.T) {
	X, y := makeLinear(100, 2, 41)
	rf := NewRandomForest(WithNEstimators(9))
	require.NoError(t, rf.Fit(X, y))
	for _, v := range rf.Votes(X[:10]) {
		assert.Equal(t, 9, v[0]+v[1])
	}
}

func TestRandomForestTieGoesToLowestClass(t *testing.T) {
	leafFor := func(idx int) *DecisionTreeClassifier {
		return &DecisionTreeClassifier{
			root:    &dtNode{isLeaf: true, predIndex: idx, probas: []float64{0, 0}},
			classes: []int{0, 1},
		}
	}
	rf := &RandomForest{
		Trees:   []*DecisionTreeClassifier{leafFor(1), leafFor(0), leafFor(1), leafFor(0)},
		classes: []int{0, 1},
	}
	assert.Equal(t, []int{0}, rf.Predict([][]float64{{42}}))

	rf.Trees = append(rf.Trees, leafFor(1))
	assert.Equal(t, []int{1}, rf.Predict([][]float64{{42}}))
}

func TestRandomForestErrors(t *testing.T) {
	X, y := makeLinear(50, 2, 51)

	assert.ErrorIs(t, NewRandomForest(WithNEstimators(0)).Fit(X, y), ErrInvalidEstimators)
	assert.ErrorIs(t, NewRandomForest().Fit(nil, nil), ErrEmptyTrainingSet)

	allZero := make([]int, len(X))
	assert.ErrorIs(t, NewRandomForest(WithNEstimators(3)).Fit(X, allZero), ErrDegenerateLabelSet)
	assert.ErrorContains(t, NewRandomForest(WithForestCriterion("mse")).Fit(X, y), "unknown criterion")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := NewRandomForest(WithNEstimators(10)).FitContext(ctx, X, y)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestRandomForestUnfitted(t *testing.T) {
	assert.Equal(t, []int{0, 0}, NewRandomForest().Predict([][]float64{{1}, {2}}))
}
