package model

import (
	"fmt"
	"math"
	"math/rand"
	"sort"
	"sync"
)

// ---------------------------
// Types & options
// ---------------------------

// DecisionTreeClassifier is a CART-style classifier with binary threshold
// splits (x <= threshold goes left).
type DecisionTreeClassifier struct {
	// Hyperparameters / options
	MaxDepth            int     // maximum depth (root depth = 0). 0 => no limit
	MinSamplesSplit     int     // minimum samples to attempt a split
	MinSamplesLeaf      int     // minimum samples required in each leaf
	Criterion           string  // "gini" (default) or "entropy"
	MaxFeatures         int     // 0 => use all features, >0 => number of features to sample when looking for split
	MinImpurityDecrease float64 // minimal impurity decrease to accept a split
	RandomState         int64   // seed for feature subsampling

	// internals
	root      *dtNode
	classes   []int // sorted unique class labels (order used by probas)
	nFeatures int
}

// dtNode holds a node in the tree.
type dtNode struct {
	isLeaf    bool
	feature   int
	threshold float64
	left      *dtNode
	right     *dtNode

	// leaf data
	n         int
	probas    []float64 // aligned with tree.classes
	predIndex int       // index into classes of the majority class
}

// Option functional config
type Option func(*DecisionTreeClassifier)

func WithMaxDepth(d int) Option { return func(t *DecisionTreeClassifier) { t.MaxDepth = d } }
func WithMinSamplesSplit(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesSplit = n }
}
func WithMinSamplesLeaf(n int) Option {
	return func(t *DecisionTreeClassifier) { t.MinSamplesLeaf = n }
}
func WithCriterion(c string) Option { return func(t *DecisionTreeClassifier) { t.Criterion = c } }
func WithMaxFeatures(k int) Option  { return func(t *DecisionTreeClassifier) { t.MaxFeatures = k } }
func WithMinImpurityDecrease(v float64) Option {
	return func(t *DecisionTreeClassifier) { t.MinImpurityDecrease = v }
}
func WithRandomState(seed int64) Option {
	return func(t *DecisionTreeClassifier) { t.RandomState = seed }
}

// NewDecisionTreeClassifier returns a classifier with scikit-learn's defaults:
// gini, unbounded depth, min split 2, min leaf 1, all features.
func NewDecisionTreeClassifier(opts ...Option) *DecisionTreeClassifier {
	d := &DecisionTreeClassifier{
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		Criterion:       CriterionGini,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// Impurity criteria.
const (
	CriterionGini    = "gini"
	CriterionEntropy = "entropy"
)

// ValidCriterion reports whether c names a supported impurity criterion.
func ValidCriterion(c string) bool { return c == CriterionGini || c == CriterionEntropy }

// ---------------------------
// Public API
// ---------------------------

// Fit trains the tree on X (n x p) and labels y. It fails with
// ErrEmptyTrainingSet when X has no rows and ErrDegenerateLabelSet when y
// holds a single class.
func (t *DecisionTreeClassifier) Fit(X [][]float64, y []int) error {
	classes, yc, err := prepareTraining(X, y)
	if err != nil {
		return fmt.Errorf("dtree: %w", err)
	}
	if !ValidCriterion(t.Criterion) {
		return fmt.Errorf("dtree: unknown criterion %q", t.Criterion)
	}
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}
	t.fitEncoded(X, yc, classes, idx, rand.New(rand.NewSource(t.RandomState)))
	return nil
}

// Predict returns predicted class labels aligned with the rows of X.
func (t *DecisionTreeClassifier) Predict(X [][]float64) []int {
	out := make([]int, len(X))
	if t.root == nil {
		return out
	}
	for i := range X {
		out[i] = t.classes[t.leaf(X[i]).predIndex]
	}
	return out
}

// PredictProba returns the per-class probability vectors for rows in X,
// ordered as Classes.
func (t *DecisionTreeClassifier) PredictProba(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i := range X {
		if t.root == nil {
			out[i] = nil
			continue
		}
		out[i] = append([]float64(nil), t.leaf(X[i]).probas...)
	}
	return out
}

// Classes returns the sorted class labels seen during Fit.
func (t *DecisionTreeClassifier) Classes() []int { return append([]int(nil), t.classes...) }

// Depth returns the length of the longest root-to-leaf path.
func (t *DecisionTreeClassifier) Depth() int { return depthOf(t.root) }

// NFeatures returns the row width seen during Fit, 0 before Fit.
func (t *DecisionTreeClassifier) NFeatures() int { return t.nFeatures }

// Leaves returns the number of leaf nodes.
func (t *DecisionTreeClassifier) Leaves() int { return leavesOf(t.root) }

// ---------------------------
// Internal builders & helpers
// ---------------------------

// fitEncoded builds the tree over the rows listed in idx. yc holds class
// indices into classes. idx may repeat rows (bootstrap samples).
func (t *DecisionTreeClassifier) fitEncoded(X [][]float64, yc []int, classes []int, idx []int, rnd *rand.Rand) {
	if t.MinSamplesLeaf < 1 {
		t.MinSamplesLeaf = 1
	}
	t.classes = classes
	t.nFeatures = len(X[0])
	b := &builder{
		tree:     t,
		X:        X,
		y:        yc,
		nClasses: len(classes),
		rnd:      rnd,
		impurity: giniFromCounts,
	}
	if t.Criterion == CriterionEntropy {
		b.impurity = entropyFromCounts
	}
	t.root = b.build(idx, 0)
}

// builder carries the state shared by every node of one fit.
type builder struct {
	tree     *DecisionTreeClassifier
	X        [][]float64
	y        []int
	nClasses int
	rnd      *rand.Rand
	impurity func([]int) float64
}

// splitResult holds the best split found on a single feature.
type splitResult struct {
	found     bool
	gain      float64
	feature   int
	threshold float64
}

// pair is a feature value and its row index.
type pair struct {
	v float64
	i int
}

// gainEpsilon absorbs rounding in impurity sums.
const gainEpsilon = 1e-12

// parallelSplitMin is the node size from which features are scanned in
// separate goroutines.
const parallelSplitMin = 2048

func (b *builder) build(idx []int, depth int) *dtNode {
	t := b.tree
	node := &dtNode{n: len(idx)}

	counts := make([]int, b.nClasses)
	for _, ii := range idx {
		counts[b.y[ii]]++
	}
	leaf := func() *dtNode {
		node.isLeaf = true
		node.probas = countsToProbas(counts)
		node.predIndex = argmax(counts)
		return node
	}

	if isPure(counts) || len(idx) < t.MinSamplesSplit || len(idx) < 2*t.MinSamplesLeaf {
		return leaf()
	}
	if t.MaxDepth > 0 && depth >= t.MaxDepth {
		return leaf()
	}

	// determine features to try
	p := t.nFeatures
	featIndices := make([]int, p)
	for j := 0; j < p; j++ {
		featIndices[j] = j
	}
	if t.MaxFeatures > 0 && t.MaxFeatures < p {
		for i := 0; i < t.MaxFeatures; i++ {
			j := i + b.rnd.Intn(p-i)
			featIndices[i], featIndices[j] = featIndices[j], featIndices[i]
		}
		featIndices = featIndices[:t.MaxFeatures]
	}

	parentImpurity := b.impurity(counts)
	results := make([]splitResult, len(featIndices))
	if len(idx) >= parallelSplitMin && len(featIndices) > 1 {
		var wg sync.WaitGroup
		for k, f := range featIndices {
			wg.Add(1)
			go func() {
				defer wg.Done()
				results[k] = b.bestSplitForFeature(idx, f, counts, parentImpurity)
			}()
		}
		wg.Wait()
	} else {
		for k, f := range featIndices {
			results[k] = b.bestSplitForFeature(idx, f, counts, parentImpurity)
		}
	}

	// first strictly better result wins, so ties go to the earlier candidate
	var best splitResult
	for _, r := range results {
		if r.found && (!best.found || r.gain > best.gain) {
			best = r
		}
	}
	if !best.found || best.gain+gainEpsilon < t.MinImpurityDecrease {
		return leaf()
	}

	leftIdx := make([]int, 0, len(idx))
	rightIdx := make([]int, 0, len(idx))
	for _, ii := range idx {
		if b.X[ii][best.feature] <= best.threshold {
			leftIdx = append(leftIdx, ii)
		} else {
			rightIdx = append(rightIdx, ii)
		}
	}

	node.feature = best.feature
	node.threshold = best.threshold
	node.left = b.build(leftIdx, depth+1)
	node.right = b.build(rightIdx, depth+1)
	return node
}

// bestSplitForFeature sorts the node's rows by feature f and sweeps the
// candidate thresholds once, moving rows from the right counts to the left.
func (b *builder) bestSplitForFeature(idx []int, f int, counts []int, parentImpurity float64) splitResult {
	result := splitResult{feature: f}
	minLeaf := b.tree.MinSamplesLeaf

	valid := make([]pair, len(idx))
	for k, ii := range idx {
		valid[k] = pair{b.X[ii][f], ii}
	}
	sort.Slice(valid, func(a, c int) bool { return valid[a].v < valid[c].v })
	if valid[0].v == valid[len(valid)-1].v {
		return result
	}

	n := len(valid)
	left := make([]int, b.nClasses)
	right := append([]int(nil), counts...)
	for s := 1; s < n; s++ {
		ci := b.y[valid[s-1].i]
		left[ci]++
		right[ci]--
		if valid[s].v == valid[s-1].v {
			continue
		}
		if s < minLeaf || n-s < minLeaf {
			continue
		}
		wl := float64(s) / float64(n)
		weighted := wl*b.impurity(left) + (1-wl)*b.impurity(right)
		gain := parentImpurity - weighted
		if !result.found || gain > result.gain {
			thr := (valid[s-1].v + valid[s].v) / 2.0
			if thr >= valid[s].v {
				thr = valid[s-1].v
			}
			result.found = true
			result.gain = gain
			result.threshold = thr
		}
	}
	return result
}

// leaf walks x down to its leaf.
func (t *DecisionTreeClassifier) leaf(x []float64) *dtNode {
	node := t.root
	for !node.isLeaf {
		if x[node.feature] <= node.threshold {
			node = node.left
		} else {
			node = node.right
		}
	}
	return node
}

// ---------------------------
// Utilities: impurity & misc
// ---------------------------

func giniFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		p := float64(c) / n
		res += p * (1 - p)
	}
	return res
}

func entropyFromCounts(counts []int) float64 {
	n := 0.0
	for _, c := range counts {
		n += float64(c)
	}
	if n == 0 {
		return 0
	}
	res := 0.0
	for _, c := range counts {
		if c == 0 {
			continue
		}
		p := float64(c) / n
		res -= p * math.Log2(p)
	}
	return res
}

func isPure(counts []int) bool {
	nonZero := 0
	for _, c := range counts {
		if c > 0 {
			nonZero++
		}
	}
	return nonZero <= 1
}

func countsToProbas(counts []int) []float64 {
	n := 0
	for _, c := range counts {
		n += c
	}
	p := make([]float64, len(counts))
	if n == 0 {
		return p
	}
	for i := range counts {
		p[i] = float64(counts[i]) / float64(n)
	}
	return p
}

// argmax returns the index of the largest count, the lowest index on ties.
func argmax(counts []int) int {
	best := 0
	for i := 1; i < len(counts); i++ {
		if counts[i] > counts[best] {
			best = i
		}
	}
	return best
}

func depthOf(n *dtNode) int {
	if n == nil || n.isLeaf {
		return 0
	}
	return 1 + max(depthOf(n.left), depthOf(n.right))
}

func leavesOf(n *dtNode) int {
	if n == nil {
		return 0
	}
	if n.isLeaf {
		return 1
	}
	return leavesOf(n.left) + leavesOf(n.right)
}
