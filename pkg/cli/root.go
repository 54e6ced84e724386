// Package cli wires the loanrisk command line to the pipeline.
package cli

import (
	"context"
	"io"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"loanrisk/pkg/config"
	"loanrisk/pkg/model"
	"loanrisk/pkg/pipeline"
)

func NewRootCmd(version string) *cobra.Command {
	var configFile string

	cmd := &cobra.Command{
		Use:   "loanrisk",
		Short: "Train and evaluate loan default classifiers",
		Long: "loanrisk loads the LendingClub loan table, one-hot encodes the purpose column,\n" +
			"holds out a seeded test partition and reports a decision tree and a random\n" +
			"forest against it. Reports go to stdout, logs to stderr.",
		Version:       version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cmd.Flags(), configFile)
			if err != nil {
				return err
			}
			logger := newLogger(cfg.Logger, cmd.ErrOrStderr())
			logger.WithFields(log.Fields{
				"data":  cfg.Data.Path,
				"trees": cfg.Forest.Trees,
				"seed":  cfg.Split.Seed,
			}).Debug("configuration resolved")

			_, err = pipeline.Run(cmd.Context(), pipelineConfig(cfg, logger), cmd.OutOrStdout())
			return err
		},
	}

	f := cmd.Flags()
	f.StringVar(&configFile, "config", "", "YAML configuration file")
	f.String("data", "loan_data.csv", "path to the loan CSV")
	f.Float64("test-fraction", 0.30, "fraction of rows held out for evaluation")
	f.Int64("seed", 101, "seed of the train/test shuffle")
	f.Int("trees", model.DefaultEstimators, "number of trees in the random forest")
	f.Int("max-depth", 0, "maximum tree depth (0 = unbounded)")
	f.String("criterion", model.CriterionGini, "split criterion: gini or entropy")
	f.Int("max-features", 0, "features considered per forest split (0 = sqrt of feature count)")
	f.Int("workers", 0, "forest training goroutines (0 = GOMAXPROCS)")
	f.String("plots-dir", "", "write exploratory PNG charts to this directory")
	f.Bool("summary", false, "print the table layout and summary statistics")
	f.Int("cv-folds", 0, "k-fold cross-validated tree accuracy (0 = off)")
	f.String("log-level", "info", "log level (debug, info, warn, error)")
	f.String("log-format", "text", "log format (text or json)")

	return cmd
}

// Execute runs the root command with args taken from os.Args.
func Execute(ctx context.Context, version string) error {
	return NewRootCmd(version).ExecuteContext(ctx)
}

// newLogger builds a logger per the configured level and format. Unknown
// levels fall back to info.
func newLogger(cfg config.LoggerConfig, w io.Writer) *log.Logger {
	logger := log.New()
	logger.SetOutput(w)

	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		level = log.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&log.JSONFormatter{})
	} else {
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	}
	return logger
}

func pipelineConfig(cfg *config.Config, logger log.FieldLogger) pipeline.Config {
	return pipeline.Config{
		DataPath:     cfg.Data.Path,
		Target:       cfg.Data.Target,
		Categorical:  cfg.Data.Categorical,
		TestFraction: cfg.Split.TestFraction,
		Seed:         cfg.Split.Seed,
		Tree: []model.Option{
			model.WithMaxDepth(cfg.Tree.MaxDepth),
			model.WithCriterion(cfg.Tree.Criterion),
		},
		Forest: []model.RandomForestOption{
			model.WithNEstimators(cfg.Forest.Trees),
			model.WithForestMaxDepth(cfg.Tree.MaxDepth),
			model.WithForestCriterion(cfg.Tree.Criterion),
			model.WithForestMaxFeatures(cfg.Forest.MaxFeatures),
			model.WithWorkers(cfg.Forest.Workers),
		},
		Summary:  cfg.Report.Summary,
		PlotsDir: cfg.Report.PlotsDir,
		CVFolds:  cfg.Report.CVFolds,
		Logger:   logger,
	}
}
