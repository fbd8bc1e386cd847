package cli

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
)

func newConfigCmd(opts *globalOpts) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage threshold snapshots",
	}
	cmd.AddCommand(
		newConfigPublishCmd(opts),
		newConfigActivateCmd(opts),
		newConfigShowCmd(opts),
		newConfigVerifyCmd(opts),
		newConfigListCmd(opts),
	)
	return cmd
}

func newConfigPublishCmd(opts *globalOpts) *cobra.Command {
	var version, thresholdsFile, activatedBy string
	var activate bool

	cmd := &cobra.Command{
		Use:   "publish",
		Short: "Store a new threshold snapshot",
		Long: `Store a threshold snapshot as INACTIVE, hashed over its thresholds.
Without --thresholds the hardcoded defaults are published.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			th := config.DefaultThresholds()
			if thresholdsFile != "" {
				var err error
				if th, err = config.ReadThresholdsFile(thresholdsFile); err != nil {
					return err
				}
			}
			snap := config.NewSnapshot(version, th)

			st, _, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			ctx := context.Background()
			if err := st.SaveSnapshot(ctx, snap); err != nil {
				return err
			}
			log.Info("snapshot published", "config_version", snap.ConfigVersion, "thresholds_hash", snap.ThresholdsHash)
			if activate {
				if err := st.ActivateSnapshot(ctx, snap.ConfigVersion, activatedBy); err != nil {
					return err
				}
				log.Info("snapshot activated", "config_version", snap.ConfigVersion)
			}
			return writeJSON(cmd.OutOrStdout(), snap)
		},
	}

	cmd.Flags().StringVar(&version, "version", config.DefaultConfigVersion, "config version tag")
	cmd.Flags().StringVar(&thresholdsFile, "thresholds", "", "YAML or JSON thresholds file")
	cmd.Flags().BoolVar(&activate, "activate", false, "activate the snapshot after storing it")
	cmd.Flags().StringVar(&activatedBy, "by", "", "operator recorded as activatedBy")

	return cmd
}

func newConfigActivateCmd(opts *globalOpts) *cobra.Command {
	var activatedBy string

	cmd := &cobra.Command{
		Use:   "activate <version>",
		Short: "Make a stored snapshot the ACTIVE one",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.ActivateSnapshot(context.Background(), args[0], activatedBy); err != nil {
				return err
			}
			log.Info("snapshot activated", "config_version", args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "activated %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&activatedBy, "by", "", "operator recorded as activatedBy")

	return cmd
}

func newConfigShowCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the snapshot verification would use",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, s, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			loaded, err := config.NewLoader(st, s.AllowConfigFallback, log).LoadActiveConfigWithFallback(context.Background())
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), map[string]any{
				"source":   loaded.Source,
				"snapshot": loaded.Snapshot,
			})
		},
	}
}

func newConfigVerifyCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "verify",
		Short: "Re-hash the ACTIVE snapshot and compare to its stored hash",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, log, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			snap, err := config.NewLoader(st, false, log).LoadActiveConfig(context.Background())
			var integrity *config.ConfigIntegrityError
			if errors.As(err, &integrity) {
				_ = writeJSON(cmd.OutOrStdout(), config.VerifyResult{
					ExpectedHash: integrity.ExpectedHash,
					ActualHash:   integrity.ActualHash,
				})
				return err
			}
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), config.VerifyConfigSnapshot(snap))
		},
	}
}

func newConfigListCmd(opts *globalOpts) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List stored snapshots",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			st, _, _, err := opts.openStore(cmd)
			if err != nil {
				return err
			}
			defer st.Close()

			recs, err := st.ListSnapshots(context.Background())
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "VERSION\tSTATUS\tHASH\tACTIVATED")
			for _, r := range recs {
				activated := "-"
				if r.ActivatedAt != nil {
					activated = r.ActivatedAt.Format(time.RFC3339)
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ConfigVersion, r.Status, shortHash(r.ThresholdsHash), activated)
			}
			return tw.Flush()
		},
	}
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
