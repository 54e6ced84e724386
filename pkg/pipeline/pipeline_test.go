package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loanrisk/pkg/data"
	"loanrisk/pkg/loader"
	"loanrisk/pkg/model"
)

// writeLoans writes n synthetic loans whose label is 1 exactly when fico is
// below 680. label overrides the rule when non-negative.
func writeLoans(t *testing.T, n int, label int) string {
	t.Helper()
	var b strings.Builder
	names := make([]string, len(data.LoanSchema))
	for i, f := range data.LoanSchema {
		names[i] = f.Name
	}
	b.WriteString(strings.Join(names, ",") + "\n")

	rng := rand.New(rand.NewSource(3))
	purposes := []string{"all_other", "credit_card", "debt_consolidation"}
	for i := 0; i < n; i++ {
		fico := 620 + rng.Intn(160)
		y := 0
		if fico < 680 {
			y = 1
		}
		if label >= 0 {
			y = label
		}
		fmt.Fprintf(&b, "%d,%s,%.4f,%.2f,%.4f,%.2f,%d,%.1f,%d,%.1f,%d,%d,%d,%d\n",
			rng.Intn(2), purposes[rng.Intn(len(purposes))],
			0.06+rng.Float64()*0.15, 50+rng.Float64()*800, 10+rng.Float64()*2, rng.Float64()*30,
			fico, 1000+rng.Float64()*9000, rng.Intn(50000), rng.Float64()*100,
			rng.Intn(5), rng.Intn(2), rng.Intn(2), y)
	}
	path := filepath.Join(t.TempDir(), "loans.csv")
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func quietConfig(path string) Config {
	cfg := DefaultConfig()
	cfg.DataPath = path
	cfg.Forest = []model.RandomForestOption{model.WithNEstimators(15), model.WithWorkers(4)}
	logger, _ := test.NewNullLogger()
	cfg.Logger = logger
	return cfg
}

func TestRun(t *testing.T) {
	cfg := quietConfig(writeLoans(t, 200, -1))

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	assert.Equal(t, 200, res.Rows)
	assert.Equal(t, 60, res.TestRows)
	assert.Equal(t, 140, res.TrainRows)
	assert.NotEmpty(t, res.RunID)
	assert.Contains(t, res.Schema.FeatureNames, "purpose_credit_card")
	assert.NotContains(t, res.Schema.FeatureNames, "purpose_all_other")
	assert.NotContains(t, res.Schema.FeatureNames, "purpose")
	assert.NotContains(t, res.Schema.FeatureNames, data.Target)
	assert.Len(t, res.Schema.FeatureNames, 14, "12 raw features plus 2 indicators")

	require.Len(t, res.Models, 2)
	for _, m := range res.Models {
		assert.Len(t, m.Predictions, res.TestRows)
		assert.Equal(t, []int{0, 1}, m.Report.Labels)
		assert.Equal(t, res.TestRows, m.Report.Total)
	}
	tree, ok := res.Model(DecisionTree)
	require.True(t, ok)
	assert.GreaterOrEqual(t, tree.Report.Accuracy, 0.9)

	text := out.String()
	assert.Contains(t, text, "decision tree\n\n")
	assert.Contains(t, text, "random forest\n\n")
	assert.Contains(t, text, "precision    recall  f1-score   support")
	assert.NotContains(t, text, "entries", "summary is off by default")
}

func TestRunIsReproducible(t *testing.T) {
	cfg := quietConfig(writeLoans(t, 150, -1))

	var first, second bytes.Buffer
	r1, err := Run(context.Background(), cfg, &first)
	require.NoError(t, err)
	r2, err := Run(context.Background(), cfg, &second)
	require.NoError(t, err)

	assert.Equal(t, first.String(), second.String())
	assert.NotEqual(t, r1.RunID, r2.RunID)
	for i := range r1.Models {
		assert.Equal(t, r1.Models[i].Predictions, r2.Models[i].Predictions)
	}
}

func TestRunSummaryAndCV(t *testing.T) {
	cfg := quietConfig(writeLoans(t, 120, -1))
	cfg.Summary = true
	cfg.CVFolds = 4
	cfg.PlotsDir = filepath.Join(t.TempDir(), "plots")

	var out bytes.Buffer
	res, err := Run(context.Background(), cfg, &out)
	require.NoError(t, err)

	text := out.String()
	assert.Contains(t, text, "120 entries, 14 columns")
	assert.Contains(t, text, "25%")
	assert.Contains(t, text, "encoded columns")
	assert.Contains(t, text, "pearson r(fico, int.rate) = ")
	assert.Contains(t, text, "decision tree 4-fold accuracy:")
	assert.Len(t, res.CVAccuracy, 4)
	assert.Len(t, res.Plots, 6)
	for _, p := range res.Plots {
		assert.FileExists(t, p)
	}
}

func TestRunErrors(t *testing.T) {
	t.Run("degenerate labels", func(t *testing.T) {
		cfg := quietConfig(writeLoans(t, 50, 0))
		_, err := Run(context.Background(), cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, model.ErrDegenerateLabelSet)
	})
	t.Run("invalid fraction", func(t *testing.T) {
		cfg := quietConfig(writeLoans(t, 50, -1))
		cfg.TestFraction = 1.5
		_, err := Run(context.Background(), cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, loader.ErrInvalidFraction)
	})
	t.Run("missing data", func(t *testing.T) {
		cfg := quietConfig(filepath.Join(t.TempDir(), "absent.csv"))
		_, err := Run(context.Background(), cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, data.ErrDataUnavailable)
	})
	t.Run("empty training set", func(t *testing.T) {
		cfg := quietConfig(writeLoans(t, 1, -1))
		_, err := Run(context.Background(), cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, model.ErrEmptyTrainingSet)
	})
	t.Run("cancelled", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		cfg := quietConfig(writeLoans(t, 50, -1))
		_, err := Run(ctx, cfg, &bytes.Buffer{})
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestRunLogsRunID(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(log.DebugLevel)
	cfg := quietConfig(writeLoans(t, 60, -1))
	cfg.Logger = logger

	res, err := Run(context.Background(), cfg, &bytes.Buffer{})
	require.NoError(t, err)

	require.NotEmpty(t, hook.AllEntries())
	for _, e := range hook.AllEntries() {
		assert.Equal(t, res.RunID, e.Data["run_id"])
	}
	assert.Equal(t, "run complete", hook.LastEntry().Message)
}

func TestSchemaOf(t *testing.T) {
	s := SchemaOf(&data.Table{Columns: []data.Column{
		{Name: "a", Kind: data.Numeric},
		{Name: "b", Kind: data.Categorical},
	}})
	assert.Equal(t, []string{"a", "b"}, s.FeatureNames)
	assert.Equal(t, []string{"float64", "object"}, s.Types)

	s2 := SchemaOf(&data.Table{Columns: []data.Column{
		{Name: "a", Kind: data.Numeric},
		{Name: data.Target, Kind: data.Numeric},
	}}, data.Target)
	assert.Equal(t, []string{"a"}, s2.FeatureNames)
	assert.Equal(t, []string{"float64"}, s2.Types)

	var buf bytes.Buffer
	require.NoError(t, s.Write(&buf))
	assert.Equal(t, "  0  a                            float64\n  1  b                            object\n", buf.String())
}
