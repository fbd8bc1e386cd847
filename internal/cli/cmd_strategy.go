package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/strategy-verifier/internal/lifecycle"
)

var knownStates = map[lifecycle.State]bool{
	lifecycle.StateDraft:      true,
	lifecycle.StateBacktested: true,
	lifecycle.StateVerified:   true,
	lifecycle.StateLive:       true,
	lifecycle.StateRetired:    true,
}

func newStrategyCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "strategy",
		Short: "Manage strategy lifecycle records",
	}
	cmd.AddCommand(newStrategyRegisterCmd(opts), newStrategyShowCmd(opts))
	return cmd
}

func newStrategyRegisterCmd(opts *globalOpts) *cobra.Command {
	var version int
	var state string

	cmd := &cobra.Command{
		Use:   "register <strategy-id>",
		Short: "Register a strategy or reset its lifecycle state",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !knownStates[lifecycle.State(state)] {
				return fmt.Errorf("unknown lifecycle state %q", state)
			}
			if version < 1 {
				return fmt.Errorf("--version must be >= 1, got %d", version)
			}

			st, _, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.RegisterStrategy(context.Background(), args[0], version, lifecycle.State(state)); err != nil {
				return err
			}
			log.Info("strategy registered", "strategy_id", args[0], "state", state)
			fmt.Fprintf(cmd.OutOrStdout(), "%s v%d %s\n", args[0], version, state)
			return nil
		},
	}

	cmd.Flags().IntVar(&version, "version", 1, "strategy version")
	cmd.Flags().StringVar(&state, "state", string(lifecycle.StateBacktested), "lifecycle state")

	return cmd
}

func newStrategyShowCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show <strategy-id>",
		Short: "Show a strategy and its applied transitions",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, _, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			s, err := st.GetStrategy(ctx, args[0])
			if err != nil {
				return err
			}
			trs, err := st.Transitions(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"strategy":    s,
				"transitions": trs,
			})
		},
	}
}
