package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/replay"
	"github.com/danielpatrickdp/strategy-verifier/internal/store"
	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
	"github.com/danielpatrickdp/strategy-verifier/internal/verification"
)

func newVerifyCmd(opts *globalOpts) *cobra.Command {
	var (
		seed        int64
		metricsFile string
	)

	cmd := &cobra.Command{
		Use:   "verify <input-file>",
		Short: "Verify one strategy and record the proof",
		Long: `Verify a strategy from a YAML or JSON input file.

The active threshold snapshot is loaded from the database (or the hardcoded
fallback when allowed), the verdict is computed, proof events are written,
and a backtested strategy with a READY verdict is moved to verified.

Arguments:
  input-file    strategyId, strategyVersion, tradeHistory (or tradeCount),
                backtestParameters, intermediateResults`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			in, err := replay.LoadInput(args[0])
			if err != nil {
				return err
			}

			st, s, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			var vopts verdict.Options
			if cmd.Flags().Changed("seed") {
				vopts.Seed = &seed
			}

			reg := prometheus.NewRegistry()
			svc := verification.NewService(
				config.NewLoader(st, s.AllowConfigFallback, log),
				st, st,
				verification.WithLogger(log),
				verification.WithMetrics(verification.NewMetrics(reg)),
			)
			out, err := svc.Run(context.Background(), in, vopts)
			if metricsFile != "" {
				// written for failed runs too so persist failures are visible
				if werr := prometheus.WriteToTextfile(metricsFile, reg); werr != nil {
					log.Warn("write metrics failed", "path", metricsFile, "error", werr)
					if err == nil {
						err = fmt.Errorf("write metrics: %w", werr)
					}
				}
			}
			if errors.Is(err, store.ErrStrategyNotFound) {
				return fmt.Errorf("%w (register it with 'verifier strategy register')", err)
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), out)
		},
	}

	cmd.Flags().Int64Var(&seed, "seed", 0, "Monte Carlo seed; without it the ruin check is skipped")
	cmd.Flags().StringVar(&metricsFile, "metrics-file", "", "Write the run's Prometheus metrics to this file (text exposition format)")

	return cmd
}
