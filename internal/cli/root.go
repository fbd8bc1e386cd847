// Package cli provides the cobra command tree for the verifier binary.
package cli

import (
	"encoding/json"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/strategy-verifier/internal/logging"
	"github.com/danielpatrickdp/strategy-verifier/internal/settings"
	"github.com/danielpatrickdp/strategy-verifier/internal/store"
)

// globalOpts holds persistent flags; empty values defer to settings.
type globalOpts struct {
	settingsFile string
	dbPath       string
	logLevel     string
	logFormat    string
}

// NewRootCmd creates the root cobra command.
func NewRootCmd() *cobra.Command {
	opts := &globalOpts{}
	rootCmd := &cobra.Command{
		Use:   "verifier",
		Short: "Strategy verification gate",
		Long: `verifier - deployment gate for backtested trading strategies

Evaluates a strategy's backtest statistics against a versioned, hash-verified
threshold snapshot, records a tamper-evident proof of every run, and promotes
backtested strategies to verified only after that proof is stored.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.settingsFile, "settings", "", "YAML settings file")
	rootCmd.PersistentFlags().StringVar(&opts.dbPath, "db", "", "SQLite database path (overrides settings)")
	rootCmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "text or json")

	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.AddCommand(
		newVerifyCmd(opts),
		newReplayCmd(opts),
		newConfigCmd(opts),
		newProofCmd(opts),
		newStrategyCmd(opts),
	)

	return rootCmd
}

// Execute runs the root command with the given output writers.
func Execute(stdout, stderr io.Writer) error {
	rootCmd := NewRootCmd()
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

// #region runtime
func (o *globalOpts) settings() (settings.Settings, error) {
	s, err := settings.Load(o.settingsFile)
	if err != nil {
		return settings.Settings{}, err
	}
	if o.dbPath != "" {
		s.DBPath = o.dbPath
	}
	if o.logLevel != "" {
		s.LogLevel = o.logLevel
	}
	if o.logFormat != "" {
		s.LogFormat = o.logFormat
	}
	return s, s.Validate()
}

func (o *globalOpts) logger(cmd *cobra.Command, s settings.Settings) *slog.Logger {
	return logging.New(cmd.ErrOrStderr(), logging.Options{
		Level:  s.LogLevel,
		Format: logging.Format(s.LogFormat),
	})
}

// openStore resolves settings and opens the database. Callers close the store.
func (o *globalOpts) openStore(cmd *cobra.Command) (*store.Store, settings.Settings, *slog.Logger, error) {
	s, err := o.settings()
	if err != nil {
		return nil, settings.Settings{}, nil, err
	}
	log := o.logger(cmd, s)
	st, err := store.NewStore(s.DBPath)
	if err != nil {
		return nil, settings.Settings{}, nil, err
	}
	log.Debug("store opened", "db", s.DBPath)
	return st, s, log, nil
}

// #endregion runtime

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
