// Package config gathers run settings from defaults, an optional YAML file,
// KSTAIL_* environment variables and command-line flags, in increasing order
// of precedence.
package config

import (
	"errors"
	"flag"
	"fmt"
	"math"
	"os"
	"runtime"
	"strconv"
	"strings"

	"github.com/uyouii/kstail/aggregate"
	"github.com/uyouii/kstail/analysis"
	"github.com/uyouii/kstail/common"
	"github.com/uyouii/kstail/kstest"
	"github.com/uyouii/kstail/threshold"
	"gopkg.in/yaml.v2"
)

const envPrefix = "KSTAIL_"

// Config holds all settings of one run.
type Config struct {
	// Inputs, normally given as positional arguments.
	Label    string `yaml:"label,omitempty"`
	Observed string `yaml:"observed,omitempty"`
	Current  string `yaml:"current,omitempty"`
	Future   string `yaml:"future,omitempty"`
	Figure   string `yaml:"figure,omitempty"`
	Variable string `yaml:"variable,omitempty"`
	Table    string `yaml:"table,omitempty"`

	Percentile    float64 `yaml:"percentile,omitempty"`
	WetDayCutoff  float64 `yaml:"wet_day_cutoff,omitempty"`
	Seasons       string  `yaml:"seasons,omitempty"`
	Workers       int     `yaml:"workers,omitempty"`
	Method        string  `yaml:"method,omitempty"`
	HistogramBins int     `yaml:"histogram_bins,omitempty"`
	MetricsFile   string  `yaml:"metrics_file,omitempty"`
	Debug         bool    `yaml:"debug,omitempty"`
}

// Default returns the settings used when nothing overrides them.
func Default() *Config {
	return &Config{
		Percentile:    threshold.DefaultPercentile,
		WetDayCutoff:  threshold.DefaultWetDayCutoff,
		Seasons:       "all",
		Workers:       runtime.GOMAXPROCS(0),
		Method:        kstest.MethodAuto.String(),
		HistogramBins: aggregate.DefaultHistogramBins,
	}
}

// LoadFile merges a YAML file into cfg. Keys absent from the file keep their
// current value.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// ApplyEnv overrides cfg with the KSTAIL_* variables that are set.
func ApplyEnv(cfg *Config) error {
	var errs []error
	envFloat("PERCENTILE", &cfg.Percentile, &errs)
	envFloat("WET_DAY", &cfg.WetDayCutoff, &errs)
	envString("SEASONS", &cfg.Seasons)
	envInt("WORKERS", &cfg.Workers, &errs)
	envString("METHOD", &cfg.Method)
	envInt("HISTOGRAM_BINS", &cfg.HistogramBins, &errs)
	envString("METRICS_FILE", &cfg.MetricsFile)
	if v, ok := lookupEnv("DEBUG"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("invalid %sDEBUG %q", envPrefix, v))
		}
		cfg.Debug = b
	}
	return errors.Join(errs...)
}

func lookupEnv(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	v = strings.TrimSpace(v)
	return v, ok && v != ""
}

func envString(name string, dst *string) {
	if v, ok := lookupEnv(name); ok {
		*dst = v
	}
}

func envFloat(name string, dst *float64, errs *[]error) {
	if v, ok := lookupEnv(name); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s%s %q", envPrefix, name, v))
			return
		}
		*dst = f
	}
}

func envInt(name string, dst *int, errs *[]error) {
	if v, ok := lookupEnv(name); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			*errs = append(*errs, fmt.Errorf("invalid %s%s %q", envPrefix, name, v))
			return
		}
		*dst = n
	}
}

// ParseFlags builds the configuration from command-line arguments:
//
//	kstail [flags] label obs cur fut figure var table
//
// The positional arguments may be omitted when the config file names the
// inputs. A fut of "-" or "" skips the future comparison.
func ParseFlags(args []string) (*Config, error) {
	fs := flag.NewFlagSet("kstail", flag.ContinueOnError)

	var fv Config
	configPath := fs.String("config", "", "YAML config file (env KSTAIL_CONFIG)")
	fs.Float64Var(&fv.Percentile, "percentile", 0, "wet-day threshold percentile")
	fs.Float64Var(&fv.WetDayCutoff, "wet-day", 0, "minimum value counted as a wet day")
	fs.StringVar(&fv.Seasons, "seasons", "", "all, reduced or a list like JJA,DJF")
	fs.IntVar(&fv.Workers, "workers", 0, "comparison workers")
	fs.StringVar(&fv.Method, "method", "", "p-value method: auto, exact or asymptotic")
	fs.IntVar(&fv.HistogramBins, "bins", 0, "histogram bins of the plot payload")
	fs.StringVar(&fv.MetricsFile, "metrics-file", "", "write prometheus metrics to this file")
	fs.BoolVar(&fv.Debug, "debug", false, "development logging")

	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	cfg := Default()
	if *configPath == "" {
		*configPath, _ = lookupEnv("CONFIG")
	}
	if *configPath != "" {
		if err := LoadFile(cfg, *configPath); err != nil {
			return nil, err
		}
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}

	if set["percentile"] {
		cfg.Percentile = fv.Percentile
	}
	if set["wet-day"] {
		cfg.WetDayCutoff = fv.WetDayCutoff
	}
	if set["seasons"] {
		cfg.Seasons = fv.Seasons
	}
	if set["workers"] {
		cfg.Workers = fv.Workers
	}
	if set["method"] {
		cfg.Method = fv.Method
	}
	if set["bins"] {
		cfg.HistogramBins = fv.HistogramBins
	}
	if set["metrics-file"] {
		cfg.MetricsFile = fv.MetricsFile
	}
	if set["debug"] {
		cfg.Debug = fv.Debug
	}

	switch pos := fs.Args(); len(pos) {
	case 0:
	case 7:
		cfg.Label, cfg.Observed, cfg.Current, cfg.Future = pos[0], pos[1], pos[2], pos[3]
		cfg.Figure, cfg.Variable, cfg.Table = pos[4], pos[5], pos[6]
	default:
		return nil, fmt.Errorf("expected 7 positional arguments (label obs cur fut figure var table), got %d: %w",
			len(pos), common.ErrorInvalidValue)
	}
	if cfg.Future == "-" {
		cfg.Future = ""
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks required inputs and option ranges.
func (c *Config) Validate() error {
	var errs []error
	for _, req := range []struct{ name, value string }{
		{"observed", c.Observed},
		{"current", c.Current},
		{"variable", c.Variable},
		{"table", c.Table},
	} {
		if strings.TrimSpace(req.value) == "" {
			errs = append(errs, fmt.Errorf("%s is required", req.name))
		}
	}
	if math.IsNaN(c.Percentile) || c.Percentile < 0 || c.Percentile > 100 {
		errs = append(errs, fmt.Errorf("percentile %v must be within [0, 100]", c.Percentile))
	}
	if math.IsNaN(c.WetDayCutoff) || c.WetDayCutoff < 0 {
		errs = append(errs, fmt.Errorf("wet-day cutoff %v must not be negative", c.WetDayCutoff))
	}
	if c.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d must be positive", c.Workers))
	}
	if c.HistogramBins <= 0 {
		errs = append(errs, fmt.Errorf("histogram bins %d must be positive", c.HistogramBins))
	}
	if _, err := aggregate.ParseSeasons(c.Seasons); err != nil {
		errs = append(errs, fmt.Errorf("seasons %q: %v", c.Seasons, err))
	}
	if _, err := kstest.ParseMethod(c.Method); err != nil {
		errs = append(errs, fmt.Errorf("method %q: %v", c.Method, err))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("%w: %w", common.ErrorInvalidValue, err)
	}
	return nil
}

// Options converts the settings into analysis options.
func (c *Config) Options() (analysis.Options, error) {
	seasons, err := aggregate.ParseSeasons(c.Seasons)
	if err != nil {
		return analysis.Options{}, err
	}
	method, err := kstest.ParseMethod(c.Method)
	if err != nil {
		return analysis.Options{}, err
	}
	return analysis.Options{
		Percentile:    c.Percentile,
		WetDayCutoff:  c.WetDayCutoff,
		Seasons:       seasons,
		Workers:       c.Workers,
		Method:        method,
		HistogramBins: c.HistogramBins,
	}, nil
}
