package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newProofCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "proof",
		Short: "Inspect the proof log of a verification run",
	}
	cmd.AddCommand(newProofShowCmd(opts), newProofVerifyCmd(opts))
	return cmd
}

func newProofShowCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show <record-id>",
		Short: "Print a run's proof events in sequence order",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, _, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			events, err := st.ProofEvents(context.Background(), args[0])
			if err != nil {
				return err
			}
			if len(events) == 0 {
				return fmt.Errorf("no proof events for record %s", args[0])
			}
			return writeJSON(cmd.OutOrStdout(), events)
		},
	}
}

func newProofVerifyCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify <record-id>",
		Short: "Recompute a run's hash chain",
		Long: `Walk a run's proof events in sequence order and recompute every hash.
Exits non-zero at the first broken sequence.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, _, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			res, err := st.VerifyRecord(context.Background(), args[0])
			if err != nil {
				return err
			}
			if err := writeJSON(cmd.OutOrStdout(), res); err != nil {
				return err
			}
			if !res.Valid {
				return fmt.Errorf("proof chain broken at sequence %d: %s", res.BrokenAt, res.Reason)
			}
			return nil
		},
	}
}
