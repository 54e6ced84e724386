package model

import (
	"errors"
	"fmt"
	"sort"
)

var (
	ErrEmptyTrainingSet   = errors.New("empty training set")
	ErrDegenerateLabelSet = errors.New("training labels contain a single class")
	ErrShapeMismatch      = errors.New("X and y shapes do not match")
	ErrInvalidEstimators  = errors.New("number of estimators must be at least 1")
)

// Classifier is a supervised model over integer class labels.
type Classifier interface {
	Fit(X [][]float64, y []int) error
	Predict(X [][]float64) []int
}

var (
	_ Classifier = (*DecisionTreeClassifier)(nil)
	_ Classifier = (*RandomForest)(nil)
)

// prepareTraining validates X and y and maps y to indices into the sorted
// class list.
func prepareTraining(X [][]float64, y []int) (classes []int, yc []int, err error) {
	if len(X) == 0 {
		return nil, nil, ErrEmptyTrainingSet
	}
	if len(y) != len(X) {
		return nil, nil, fmt.Errorf("%w: %d rows, %d labels", ErrShapeMismatch, len(X), len(y))
	}
	p := len(X[0])
	if p == 0 {
		return nil, nil, fmt.Errorf("%w: no features", ErrShapeMismatch)
	}
	for i := range X {
		if len(X[i]) != p {
			return nil, nil, fmt.Errorf("%w: row %d has %d features, expected %d", ErrShapeMismatch, i, len(X[i]), p)
		}
	}

	classMap := map[int]int{}
	for _, lab := range y {
		if _, ok := classMap[lab]; !ok {
			classMap[lab] = 0
			classes = append(classes, lab)
		}
	}
	if len(classes) < 2 {
		return nil, nil, fmt.Errorf("%w: only label %d present", ErrDegenerateLabelSet, classes[0])
	}
	sort.Ints(classes)
	for i, c := range classes {
		classMap[c] = i
	}
	yc = make([]int, len(y))
	for i, lab := range y {
		yc[i] = classMap[lab]
	}
	return classes, yc, nil
}
