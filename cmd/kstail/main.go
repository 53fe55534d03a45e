// Command kstail compares the upper tail of wet-day precipitation between
// observations, a historical model run and an optional future run, season by
// season, with two-sample Kolmogorov-Smirnov tests.
//
//	kstail [flags] label obs cur fut figure var table
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jonboulle/clockwork"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/uyouii/kstail/analysis"
	"github.com/uyouii/kstail/config"
	"github.com/uyouii/kstail/metrics"
	"github.com/uyouii/kstail/source"
	"github.com/uyouii/kstail/utils"
	"go.uber.org/zap"
)

func main() {
	// a missing .env is fine
	_ = godotenv.Load()

	cfg, err := config.ParseFlags(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "kstail: %v\n", err)
		os.Exit(2)
	}
	if err := utils.InitLogger(cfg.Debug); err != nil {
		fmt.Fprintf(os.Stderr, "kstail: %v\n", err)
		os.Exit(1)
	}
	defer zap.L().Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		zap.L().Error("kstail failed", zap.Error(err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	logger := utils.GetLogger(ctx)

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	reg := prometheus.NewRegistry()
	runner, err := analysis.NewRunner(opts, metrics.NewMetrics(reg), clockwork.NewRealClock())
	if err != nil {
		return err
	}

	set, err := source.LoadAll(ctx, cfg.Observed, cfg.Current, cfg.Future, cfg.Variable)
	if err != nil {
		return err
	}
	report, err := runner.Run(ctx, analysis.Inputs{
		Observed:   set.Observed,
		Historical: set.Historical,
		Future:     set.Future,
		Variable:   cfg.Variable,
	})
	if err != nil {
		return err
	}
	if err := report.WriteOutputs(ctx, cfg.Label, cfg.Table, cfg.Figure); err != nil {
		return err
	}

	if cfg.MetricsFile != "" {
		if err := prometheus.WriteToTextfile(cfg.MetricsFile, reg); err != nil {
			return fmt.Errorf("write metrics: %w", err)
		}
	}
	logger.Info("kstail finished", zap.String("run_id", report.RunID), zap.String("label", cfg.Label))
	return nil
}
