// Package pipeline runs the loan-default analysis end to end: load, summarize,
// encode, split, train, evaluate.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"loanrisk/pkg/data"
	"loanrisk/pkg/dataprep"
	"loanrisk/pkg/loader"
	"loanrisk/pkg/model"
	"loanrisk/pkg/plots"
	"loanrisk/pkg/stats"
)

// Config selects the input and the parameters of one run.
type Config struct {
	DataPath     string
	Target       string
	Categorical  []string
	TestFraction float64
	Seed         int64

	Tree   []model.Option
	Forest []model.RandomForestOption

	// Summary prints the table layout, describe() statistics, the purpose
	// by target cross tabulation and the fico/int.rate correlation before
	// the reports.
	Summary  bool
	PlotsDir string
	CVFolds  int

	Logger log.FieldLogger
}

// DefaultConfig mirrors the reference analysis: 30% held out with seed 101
// and a 600-tree forest.
func DefaultConfig() Config {
	return Config{
		DataPath:     "loan_data.csv",
		Target:       data.Target,
		Categorical:  []string{data.Purpose},
		TestFraction: 0.30,
		Seed:         101,
		Forest:       []model.RandomForestOption{model.WithNEstimators(model.DefaultEstimators)},
	}
}

// ModelResult is the outcome of one trained model on the test partition.
type ModelResult struct {
	Name        string
	Predictions []int
	Report      *model.Report
	Elapsed     time.Duration
}

type Result struct {
	RunID      string
	Rows       int
	TrainRows  int
	TestRows   int
	Schema     Schema
	Models     []ModelResult
	CVAccuracy []float64
	Plots      []string
}

// Model returns the result named name.
func (r *Result) Model(name string) (ModelResult, bool) {
	for _, m := range r.Models {
		if m.Name == name {
			return m, true
		}
	}
	return ModelResult{}, false
}

// Model names used in Result and in the printed report.
const (
	DecisionTree = "decision tree"
	RandomForest = "random forest"
)

// state is threaded through the stages of one run.
type state struct {
	cfg    Config
	out    io.Writer
	logger log.FieldLogger
	res    *Result

	raw    *data.Table
	X      [][]float64
	y      []int
	labels []int
	split  loader.Partition
}

type stage struct {
	name string
	run  func(ctx context.Context, s *state) error
}

var stages = []stage{
	{"load", load},
	{"summary", summarize},
	{"plots", renderPlots},
	{"encode", encode},
	{"split", split},
	{"tree", trainTree},
	{"forest", trainForest},
	{"cv", crossValidate},
}

// Run executes every stage in order and writes the reports to out. A zero
// cfg.Logger uses the standard logrus logger. The first failing stage aborts
// the run and its error is returned wrapped with the stage name.
func Run(ctx context.Context, cfg Config, out io.Writer) (*Result, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = log.StandardLogger()
	}
	runID := uuid.NewString()
	s := &state{
		cfg:    cfg,
		out:    out,
		logger: logger.WithField("run_id", runID),
		res:    &Result{RunID: runID},
	}

	start := time.Now()
	for _, st := range stages {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		t0 := time.Now()
		if err := st.run(ctx, s); err != nil {
			s.logger.WithField("stage", st.name).WithError(err).Error("stage failed")
			return nil, fmt.Errorf("%s: %w", st.name, err)
		}
		s.logger.WithFields(log.Fields{
			"stage":   st.name,
			"elapsed": time.Since(t0).Round(time.Millisecond).String(),
		}).Debug("stage done")
	}
	s.logger.WithField("elapsed", time.Since(start).Round(time.Millisecond).String()).Info("run complete")
	return s.res, nil
}

func load(_ context.Context, s *state) error {
	t, err := data.LoadLoans(s.cfg.DataPath)
	if err != nil {
		return err
	}
	s.raw = t
	s.res.Rows = t.Len()
	s.logger.WithFields(log.Fields{
		"stage":    "load",
		"rows":     t.Len(),
		"features": len(t.Columns),
	}).Info("loaded loans")
	return nil
}

func summarize(_ context.Context, s *state) error {
	if !s.cfg.Summary {
		return nil
	}
	if err := stats.WriteInfo(s.out, s.raw); err != nil {
		return err
	}
	fmt.Fprintln(s.out)
	if err := stats.WriteSummary(s.out, stats.Describe(s.raw)); err != nil {
		return err
	}
	purpose, ok := s.raw.Column(data.Purpose)
	target, ok2 := s.raw.Column(s.cfg.Target)
	if ok && ok2 && purpose.Kind == data.Categorical && target.Kind == data.Numeric {
		fmt.Fprintln(s.out)
		rows := stats.CrossTab(purpose.Cat, target.Num)
		if err := stats.WriteCrossTab(s.out, data.Purpose, rows, []int{0, 1}); err != nil {
			return err
		}
	}
	score, ok := s.raw.Column("fico")
	rate, ok2 := s.raw.Column("int.rate")
	if ok && ok2 && score.Kind == data.Numeric && rate.Kind == data.Numeric {
		fmt.Fprintf(s.out, "\npearson r(fico, int.rate) = %.4f\n", stats.Correlation(score.Num, rate.Num))
	}
	_, err := fmt.Fprintln(s.out)
	return err
}

func renderPlots(_ context.Context, s *state) error {
	if s.cfg.PlotsDir == "" {
		return nil
	}
	paths, err := plots.Render(s.cfg.PlotsDir, s.raw)
	if err != nil {
		return err
	}
	s.res.Plots = paths
	s.logger.WithFields(log.Fields{"stage": "plots", "files": len(paths), "dir": s.cfg.PlotsDir}).Info("rendered plots")
	return nil
}

func encode(_ context.Context, s *state) error {
	enc, err := dataprep.OneHotAll(s.raw, s.cfg.Categorical, true)
	if err != nil {
		return err
	}
	X, y, names, err := dataprep.FeaturesAndTarget(enc, s.cfg.Target)
	if err != nil {
		return err
	}
	s.X, s.y = X, y
	s.labels = distinct(y)
	s.res.Schema = SchemaOf(enc, s.cfg.Target)
	s.logger.WithFields(log.Fields{
		"stage":    "encode",
		"rows":     len(X),
		"features": len(names),
	}).Info("encoded categorical columns")

	if s.cfg.Summary {
		fmt.Fprintln(s.out, "encoded columns")
		if err := s.res.Schema.Write(s.out); err != nil {
			return err
		}
		fmt.Fprintln(s.out)
	}
	return nil
}

func split(_ context.Context, s *state) error {
	p, err := loader.TrainTestSplit(len(s.X), s.cfg.TestFraction, s.cfg.Seed)
	if err != nil {
		return err
	}
	s.split = p
	s.res.TrainRows, s.res.TestRows = len(p.Train), len(p.Test)
	s.logger.WithFields(log.Fields{
		"stage": "split",
		"train": len(p.Train),
		"test":  len(p.Test),
		"seed":  s.cfg.Seed,
	}).Info("partitioned rows")
	return nil
}

func trainTree(_ context.Context, s *state) error {
	tree := model.NewDecisionTreeClassifier(s.cfg.Tree...)
	return s.fitAndReport(DecisionTree, func(X [][]float64, y []int) error {
		if err := tree.Fit(X, y); err != nil {
			return err
		}
		s.logger.WithFields(log.Fields{"model": DecisionTree, "depth": tree.Depth(), "leaves": tree.Leaves()}).Debug("tree shape")
		return nil
	}, tree)
}

func trainForest(ctx context.Context, s *state) error {
	forest := model.NewRandomForest(s.cfg.Forest...)
	return s.fitAndReport(RandomForest, func(X [][]float64, y []int) error {
		return forest.FitContext(ctx, X, y)
	}, forest)
}

func (s *state) fitAndReport(name string, fit func([][]float64, []int) error, c model.Classifier) error {
	Xtr, ytr := loader.Take(s.X, s.y, s.split.Train)
	Xte, yte := loader.Take(s.X, s.y, s.split.Test)

	t0 := time.Now()
	if err := fit(Xtr, ytr); err != nil {
		return err
	}
	elapsed := time.Since(t0)

	pred, report, err := model.Evaluate(c, Xte, yte, s.labels)
	if err != nil {
		return err
	}
	s.res.Models = append(s.res.Models, ModelResult{Name: name, Predictions: pred, Report: report, Elapsed: elapsed})
	s.logger.WithFields(log.Fields{
		"model":    name,
		"rows":     len(Xtr),
		"accuracy": report.Accuracy,
		"elapsed":  elapsed.Round(time.Millisecond).String(),
	}).Info("model evaluated")

	fmt.Fprintf(s.out, "%s\n\n", name)
	_, err = fmt.Fprintln(s.out, report.String())
	return err
}

// crossValidate reports the k-fold accuracy of the decision tree over the
// whole encoded table.
func crossValidate(_ context.Context, s *state) error {
	k := s.cfg.CVFolds
	if k <= 0 {
		return nil
	}
	folds, err := loader.KFoldSplit(len(s.X), k, s.cfg.Seed)
	if err != nil {
		return err
	}
	scores := make([]float64, k)
	for i, test := range folds {
		var train []int
		for j, f := range folds {
			if j != i {
				train = append(train, f...)
			}
		}
		Xtr, ytr := loader.Take(s.X, s.y, train)
		Xte, yte := loader.Take(s.X, s.y, test)
		tree := model.NewDecisionTreeClassifier(s.cfg.Tree...)
		if err := tree.Fit(Xtr, ytr); err != nil {
			return fmt.Errorf("fold %d: %w", i+1, err)
		}
		scores[i] = model.Accuracy(yte, tree.Predict(Xte))
	}
	s.res.CVAccuracy = scores

	fmt.Fprintf(s.out, "%s %d-fold accuracy:", DecisionTree, k)
	for _, v := range scores {
		fmt.Fprintf(s.out, " %.4f", v)
	}
	mean := stat.Mean(scores, nil)
	_, err = fmt.Fprintf(s.out, "  mean %.4f\n", mean)
	s.logger.WithFields(log.Fields{"stage": "cv", "folds": k, "accuracy": mean}).Info("cross-validated")
	return err
}

func distinct(y []int) []int {
	seen := map[int]bool{}
	var out []int
	for _, v := range y {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	sort.Ints(out)
	return out
}
