package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	wakeonwrite "github.com/joeycumines/go-wakeonwrite"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

type (
	scenarioConfig struct {
		Increments  int
		Target      int
		Timeout     time.Duration
		Interval    time.Duration
		ShowMetrics bool
	}

	scenarioResult struct {
		Value   int
		Elapsed time.Duration
	}
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the cross-task wake scenario",
	Long: `Run starts a scheduler with a single "checker" task, which waits for a shared
value to reach the target, registering its waker with the value's cell each
time it finds it has not. A separate goroutine increments the value, under a
mutex, the configured number of times.

The checker is only polled when woken, so it is polled at most once per
increment, plus once initially.

Example:
  wakeonwrite run
  wakeonwrite run --increments 100 --interval 10ms --metrics
  WAKEONWRITE_TIMEOUT=5s wakeonwrite run --log-level debug`,
	RunE: runScenarioCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().Int("increments", 10, "Number of times the value is incremented")
	runCmd.Flags().Int("target", 0, "Value the checker waits for (default is the number of increments)")
	runCmd.Flags().Duration("timeout", time.Second, "Maximum time to wait for the checker to complete")
	runCmd.Flags().Duration("interval", 0, "Delay between increments")
	runCmd.Flags().Bool("metrics", false, "Print scheduler metrics on completion")

	for key, flag := range map[string]string{
		"increments": "increments",
		"target":     "target",
		"timeout":    "timeout",
		"interval":   "interval",
		"metrics":    "metrics",
	} {
		_ = viper.BindPFlag(key, runCmd.Flags().Lookup(flag))
	}
}

func runScenarioCmd(cmd *cobra.Command, args []string) error {
	logger, err := newLogger()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	cfg := scenarioConfig{
		Increments:  viper.GetInt("increments"),
		Target:      viper.GetInt("target"),
		Timeout:     viper.GetDuration("timeout"),
		Interval:    viper.GetDuration("interval"),
		ShowMetrics: viper.GetBool("metrics"),
	}
	if cfg.Target == 0 {
		cfg.Target = cfg.Increments
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metricsOut io.Writer
	if cfg.ShowMetrics {
		metricsOut = cmd.OutOrStdout()
	}

	result, err := runScenario(ctx, cfg, logger, metricsOut)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "checker completed: value=%d elapsed=%s\n", result.Value, result.Elapsed)
	return nil
}

// runScenario runs the checker task against a concurrent incrementor,
// writing the scheduler metrics to metricsOut, if it is not nil.
func runScenario(ctx context.Context, cfg scenarioConfig, logger *zap.Logger, metricsOut io.Writer) (*scenarioResult, error) {
	if cfg.Increments < 0 {
		return nil, fmt.Errorf("increments must not be negative: %d", cfg.Increments)
	}
	if cfg.Target < 0 {
		return nil, fmt.Errorf("target must not be negative: %d", cfg.Target)
	}
	if cfg.Target > cfg.Increments {
		return nil, fmt.Errorf("target %d is unreachable with %d increments", cfg.Target, cfg.Increments)
	}
	if cfg.Timeout <= 0 {
		return nil, errors.New("timeout must be positive")
	}

	guard := wakeonwrite.NewGuard(0)
	reg := prometheus.NewRegistry()

	scheduler, err := wakeonwrite.NewScheduler(
		wakeonwrite.WithTask("checker", func(ctx context.Context, internal *wakeonwrite.Internal) (bool, error) {
			return wakeonwrite.WithGuard(guard, func(cell *wakeonwrite.Cell[int]) bool {
				if cell.Get() >= cfg.Target {
					return true
				}
				cell.SetWaker(internal.Waker())
				return false
			}), nil
		}),
		wakeonwrite.WithLogger(logger.Named("scheduler")),
		wakeonwrite.WithMetrics(reg),
	)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	start := time.Now()
	var elapsed time.Duration

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		if err := scheduler.Run(ctx); err != nil {
			return fmt.Errorf("checker: %w", err)
		}
		elapsed = time.Since(start)
		return nil
	})
	eg.Go(func() error {
		for i := 0; i < cfg.Increments; i++ {
			if cfg.Interval > 0 {
				select {
				case <-ctx.Done():
					return fmt.Errorf("incrementor: stopped after %d of %d increments: %w", i, cfg.Increments, ctx.Err())
				case <-time.After(cfg.Interval):
				}
			}
			guard.With(func(cell *wakeonwrite.Cell[int]) {
				*cell.Mut()++
			})
			logger.Debug("incremented", zap.Int("iteration", i+1))
		}
		return nil
	})

	if err := eg.Wait(); err != nil {
		return nil, err
	}

	if metricsOut != nil {
		if err := writeMetrics(metricsOut, reg); err != nil {
			return nil, err
		}
	}

	value := wakeonwrite.WithGuard(guard, (*wakeonwrite.Cell[int]).Get)
	logger.Info("scenario complete", zap.Int("value", value), zap.Duration("elapsed", elapsed))

	return &scenarioResult{Value: value, Elapsed: elapsed}, nil
}

func writeMetrics(w io.Writer, gatherer prometheus.Gatherer) error {
	families, err := gatherer.Gather()
	if err != nil {
		return err
	}
	encoder := expfmt.NewEncoder(w, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := encoder.Encode(family); err != nil {
			return err
		}
	}
	return nil
}
