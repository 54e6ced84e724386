// Package config resolves run settings from defaults, an optional YAML
// file, LOANRISK_* environment variables and command-line flags, in
// increasing order of precedence.
package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"loanrisk/pkg/loader"
	"loanrisk/pkg/model"
)

// ErrInvalidConfig is returned when a resolved setting is out of range.
var ErrInvalidConfig = errors.New("config: invalid setting")

const envPrefix = "LOANRISK"

type Config struct {
	Data   DataConfig
	Split  SplitConfig
	Tree   TreeConfig
	Forest ForestConfig
	Report ReportConfig
	Logger LoggerConfig
}

type DataConfig struct {
	Path        string
	Target      string
	Categorical []string
}

type SplitConfig struct {
	TestFraction float64
	Seed         int64
}

type TreeConfig struct {
	MaxDepth  int
	Criterion string
}

type ForestConfig struct {
	Trees       int
	MaxFeatures int
	Workers     int
}

type ReportConfig struct {
	Summary  bool
	PlotsDir string
	CVFolds  int
}

type LoggerConfig struct {
	Level  string
	Format string
}

// flagKeys maps flag names to the configuration keys they override.
var flagKeys = map[string]string{
	"data":          "data.path",
	"test-fraction": "split.test_fraction",
	"seed":          "split.seed",
	"max-depth":     "tree.max_depth",
	"criterion":     "tree.criterion",
	"trees":         "forest.trees",
	"max-features":  "forest.max_features",
	"workers":       "forest.workers",
	"summary":       "report.summary",
	"plots-dir":     "report.plots_dir",
	"cv-folds":      "report.cv_folds",
	"log-level":     "logger.level",
	"log-format":    "logger.format",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data.path", "loan_data.csv")
	v.SetDefault("data.target", "not.fully.paid")
	v.SetDefault("data.categorical", []string{"purpose"})
	v.SetDefault("split.test_fraction", 0.30)
	v.SetDefault("split.seed", 101)
	v.SetDefault("tree.max_depth", 0)
	v.SetDefault("tree.criterion", model.CriterionGini)
	v.SetDefault("forest.trees", model.DefaultEstimators)
	v.SetDefault("forest.max_features", 0)
	v.SetDefault("forest.workers", 0)
	v.SetDefault("report.summary", false)
	v.SetDefault("report.plots_dir", "")
	v.SetDefault("report.cv_folds", 0)
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "text")
}

// Load resolves the configuration. file may be empty; flags may be nil.
// Only flags that were set on the command line override the lower layers.
func Load(flags *pflag.FlagSet, file string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("config: read %s: %w", file, err)
		}
	}

	if flags != nil {
		for name, key := range flagKeys {
			f := flags.Lookup(name)
			if f == nil {
				continue
			}
			if err := v.BindPFlag(key, f); err != nil {
				return nil, fmt.Errorf("config: bind --%s: %w", name, err)
			}
		}
	}

	cfg := &Config{
		Data: DataConfig{
			Path:        v.GetString("data.path"),
			Target:      v.GetString("data.target"),
			Categorical: v.GetStringSlice("data.categorical"),
		},
		Split: SplitConfig{
			TestFraction: v.GetFloat64("split.test_fraction"),
			Seed:         v.GetInt64("split.seed"),
		},
		Tree: TreeConfig{
			MaxDepth:  v.GetInt("tree.max_depth"),
			Criterion: v.GetString("tree.criterion"),
		},
		Forest: ForestConfig{
			Trees:       v.GetInt("forest.trees"),
			MaxFeatures: v.GetInt("forest.max_features"),
			Workers:     v.GetInt("forest.workers"),
		},
		Report: ReportConfig{
			Summary:  v.GetBool("report.summary"),
			PlotsDir: v.GetString("report.plots_dir"),
			CVFolds:  v.GetInt("report.cv_folds"),
		},
		Logger: LoggerConfig{
			Level:  v.GetString("logger.level"),
			Format: v.GetString("logger.format"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports the first out-of-range setting.
func (c *Config) Validate() error {
	switch {
	case c.Data.Path == "":
		return fmt.Errorf("%w: data path is empty", ErrInvalidConfig)
	case c.Data.Target == "":
		return fmt.Errorf("%w: target column is empty", ErrInvalidConfig)
	case !(c.Split.TestFraction > 0 && c.Split.TestFraction < 1):
		return fmt.Errorf("%w: %w: got %v", ErrInvalidConfig, loader.ErrInvalidFraction, c.Split.TestFraction)
	case c.Forest.Trees < 1:
		return fmt.Errorf("%w: trees %d < 1", ErrInvalidConfig, c.Forest.Trees)
	case !model.ValidCriterion(c.Tree.Criterion):
		return fmt.Errorf("%w: unknown criterion %q", ErrInvalidConfig, c.Tree.Criterion)
	case c.Tree.MaxDepth < 0:
		return fmt.Errorf("%w: max depth %d is negative", ErrInvalidConfig, c.Tree.MaxDepth)
	case c.Forest.MaxFeatures < 0:
		return fmt.Errorf("%w: max features %d is negative", ErrInvalidConfig, c.Forest.MaxFeatures)
	case c.Forest.Workers < 0:
		return fmt.Errorf("%w: workers %d is negative", ErrInvalidConfig, c.Forest.Workers)
	case c.Report.CVFolds < 0 || c.Report.CVFolds == 1:
		return fmt.Errorf("%w: cv folds must be 0 or at least 2, got %d", ErrInvalidConfig, c.Report.CVFolds)
	}
	return nil
}
