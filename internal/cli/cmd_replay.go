package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/strategy-verifier/internal/replay"
)

func newReplayCmd(_ *globalOpts) *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "replay <fixture>...",
		Short: "Replay fixture cases through the verdict engine",
		Long: `Replay recorded verification cases and compare each result to its
expected verdict, reason codes, warnings and ruin probability.
Nothing is written to the database.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				results, sum, err := replay.ReplayFile(path)
				if err != nil {
					return err
				}
				failed += sum.Failed

				if jsonOutput {
					if err := writeJSON(w, map[string]any{"fixture": path, "summary": sum, "cases": results}); err != nil {
						return err
					}
					continue
				}
				fmt.Fprintf(w, "%s (config %s)\n", path, sum.ConfigVersion)
				for _, r := range results {
					status := "PASS"
					if !r.Passed() {
						status = "FAIL"
					}
					fmt.Fprintf(w, "  %s  %s  %s %v\n", status, r.Name, r.Result.Verdict, r.Result.ReasonCodes)
					for _, m := range r.Mismatches {
						fmt.Fprintf(w, "        %s\n", m)
					}
				}
				fmt.Fprintf(w, "  %d/%d passed\n", sum.Passed, sum.Total)
			}
			if failed > 0 {
				return fmt.Errorf("%d replay case(s) failed", failed)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")

	return cmd
}
