package model

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ErrEmptyEvaluationSet is returned when there is nothing to score.
var ErrEmptyEvaluationSet = errors.New("empty evaluation set")

func Accuracy(yTrue, yPred []int) float64 {
	if len(yTrue) == 0 {
		return 0
	}
	c := 0
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			c++
		}
	}
	return float64(c) / float64(len(yTrue))
}

// PrecisionRecallF1 scores the positive class (label 1) of a binary problem.
func PrecisionRecallF1(yTrue []int, yPred []int) (prec, rec, f1 float64) {
	tp, fp, fn := 0, 0, 0
	for i := range yTrue {
		if yPred[i] == 1 && yTrue[i] == 1 {
			tp++
		}
		if yPred[i] == 1 && yTrue[i] == 0 {
			fp++
		}
		if yPred[i] == 0 && yTrue[i] == 1 {
			fn++
		}
	}
	if tp+fp > 0 {
		prec = float64(tp) / float64(tp+fp)
	}
	if tp+fn > 0 {
		rec = float64(tp) / float64(tp+fn)
	}
	if prec+rec > 0 {
		f1 = 2 * prec * rec / (prec + rec)
	}
	return
}

// ConfusionMatrix counts (true, predicted) pairs. Row i is true class
// labels[i], column j predicted class labels[j]. Labels outside labels are
// ignored.
func ConfusionMatrix(yTrue, yPred []int, labels []int) [][]int {
	pos := make(map[int]int, len(labels))
	for i, l := range labels {
		pos[l] = i
	}
	cm := make([][]int, len(labels))
	for i := range cm {
		cm[i] = make([]int, len(labels))
	}
	for i := range yTrue {
		r, ok1 := pos[yTrue[i]]
		c, ok2 := pos[yPred[i]]
		if ok1 && ok2 {
			cm[r][c]++
		}
	}
	return cm
}

// ClassMetrics holds the scores of one class, or of an average row.
type ClassMetrics struct {
	Label     int
	Precision float64
	Recall    float64
	F1        float64
	Support   int
}

// Report is a classification report together with its confusion matrix.
type Report struct {
	Labels      []int
	Confusion   [][]int
	Classes     []ClassMetrics
	Accuracy    float64
	MacroAvg    ClassMetrics
	WeightedAvg ClassMetrics
	Total       int
	// Notes lists every metric that was ill-defined and reported as 0.
	Notes []string
}

// Evaluate predicts X with c and reports against y. When c reports the
// row width it was fitted on, every row of X must have that width.
func Evaluate(c Classifier, X [][]float64, y []int, labels []int) ([]int, *Report, error) {
	if len(X) != len(y) {
		return nil, nil, fmt.Errorf("evaluate: %w: %d rows, %d labels", ErrShapeMismatch, len(X), len(y))
	}
	if w, ok := c.(interface{ NFeatures() int }); ok && w.NFeatures() > 0 {
		p := w.NFeatures()
		for i, row := range X {
			if len(row) != p {
				return nil, nil, fmt.Errorf("evaluate: %w: row %d has %d features, model expects %d",
					ErrShapeMismatch, i, len(row), p)
			}
		}
	}
	pred := c.Predict(X)
	r, err := NewReport(y, pred, labels)
	if err != nil {
		return nil, nil, err
	}
	return pred, r, nil
}

// NewReport computes per-class precision, recall, F1 and support from the
// confusion matrix. When labels is nil the sorted union of yTrue and yPred
// is used. A zero denominator yields 0 and a note instead of an error.
func NewReport(yTrue, yPred []int, labels []int) (*Report, error) {
	if len(yTrue) != len(yPred) {
		return nil, fmt.Errorf("report: %w: %d true, %d predicted", ErrShapeMismatch, len(yTrue), len(yPred))
	}
	if len(yTrue) == 0 {
		return nil, fmt.Errorf("report: %w", ErrEmptyEvaluationSet)
	}
	if labels == nil {
		labels = unionLabels(yTrue, yPred)
	}

	cm := ConfusionMatrix(yTrue, yPred, labels)
	r := &Report{
		Labels:    append([]int(nil), labels...),
		Confusion: cm,
		Classes:   make([]ClassMetrics, len(labels)),
	}

	correct := 0
	for i := range labels {
		tp := cm[i][i]
		correct += tp
		predicted, actual := 0, 0
		for k := range labels {
			predicted += cm[k][i]
			actual += cm[i][k]
		}
		r.Total += actual

		m := ClassMetrics{Label: labels[i], Support: actual}
		m.Precision = r.ratio(tp, predicted, "precision", labels[i], "no predicted samples")
		m.Recall = r.ratio(tp, actual, "recall", labels[i], "no true samples")
		m.F1 = r.ratio(2*tp, predicted+actual, "f1-score", labels[i], "no true or predicted samples")
		r.Classes[i] = m

		r.MacroAvg.Precision += m.Precision
		r.MacroAvg.Recall += m.Recall
		r.MacroAvg.F1 += m.F1
		r.WeightedAvg.Precision += m.Precision * float64(actual)
		r.WeightedAvg.Recall += m.Recall * float64(actual)
		r.WeightedAvg.F1 += m.F1 * float64(actual)
	}

	if k := float64(len(labels)); k > 0 {
		r.MacroAvg.Precision /= k
		r.MacroAvg.Recall /= k
		r.MacroAvg.F1 /= k
	}
	if r.Total > 0 {
		tot := float64(r.Total)
		r.Accuracy = float64(correct) / tot
		r.WeightedAvg.Precision /= tot
		r.WeightedAvg.Recall /= tot
		r.WeightedAvg.F1 /= tot
	}
	r.MacroAvg.Support = r.Total
	r.WeightedAvg.Support = r.Total
	return r, nil
}

func (r *Report) ratio(num, den int, metric string, label int, why string) float64 {
	if den == 0 {
		r.Notes = append(r.Notes, fmt.Sprintf("%s is ill-defined for class %d (%s); reported as 0", metric, label, why))
		return 0
	}
	return float64(num) / float64(den)
}

// Class returns the metrics of the given label.
func (r *Report) Class(label int) (ClassMetrics, bool) {
	for _, m := range r.Classes {
		if m.Label == label {
			return m, true
		}
	}
	return ClassMetrics{}, false
}

// String renders the report in scikit-learn's classification_report layout
// followed by the confusion matrix.
func (r *Report) String() string {
	const width = len("weighted avg")
	var b strings.Builder

	fmt.Fprintf(&b, "%*s  %9s %9s %9s %9s\n\n", width, "", "precision", "recall", "f1-score", "support")
	for _, m := range r.Classes {
		fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, strconv.Itoa(m.Label), m.Precision, m.Recall, m.F1, m.Support)
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%*s  %9s %9s %9.2f %9d\n", width, "accuracy", "", "", r.Accuracy, r.Total)
	fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, "macro avg", r.MacroAvg.Precision, r.MacroAvg.Recall, r.MacroAvg.F1, r.Total)
	fmt.Fprintf(&b, "%*s  %9.2f %9.2f %9.2f %9d\n", width, "weighted avg", r.WeightedAvg.Precision, r.WeightedAvg.Recall, r.WeightedAvg.F1, r.Total)

	b.WriteString("\n")
	b.WriteString(FormatMatrix(r.Confusion))
	b.WriteString("\n")

	for _, n := range r.Notes {
		b.WriteString("note: ")
		b.WriteString(n)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatMatrix prints m the way numpy prints an integer array, one row per
// line with the cells padded to a common width.
func FormatMatrix(m [][]int) string {
	w := 1
	for _, row := range m {
		for _, v := range row {
			w = max(w, len(strconv.Itoa(v)))
		}
	}
	var b strings.Builder
	b.WriteString("[")
	for i, row := range m {
		if i > 0 {
			b.WriteString("\n ")
		}
		b.WriteString("[")
		for j, v := range row {
			if j > 0 {
				b.WriteString(" ")
			}
			fmt.Fprintf(&b, "%*d", w, v)
		}
		b.WriteString("]")
	}
	b.WriteString("]")
	return b.String()
}

func unionLabels(a, b []int) []int {
	seen := map[int]struct{}{}
	var out []int
	for _, s := range [][]int{a, b} {
		for _, v := range s {
			if _, ok := seen[v]; !ok {
				seen[v] = struct{}{}
				out = append(out, v)
			}
		}
	}
	sort.Ints(out)
	return out
}
