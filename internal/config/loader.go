package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// FallbackEnvVar is the opt-in toggle for the hardcoded fallback snapshot.
const FallbackEnvVar = "ALLOW_CONFIG_FALLBACK"

// FallbackAllowedFromEnv reports whether ALLOW_CONFIG_FALLBACK is exactly "true".
func FallbackAllowedFromEnv() bool {
	return os.Getenv(FallbackEnvVar) == "true"
}

// #region source
// RecordSource reads the single ACTIVE snapshot row. It returns (nil, nil)
// when no row is ACTIVE.
type RecordSource interface {
	ActiveSnapshot(ctx context.Context) (*Record, error)
}

// #endregion source

// #region loader
// Loader loads the active snapshot from a RecordSource.
type Loader struct {
	source        RecordSource
	allowFallback bool
	logger        *slog.Logger
}

// NewLoader creates a loader. allowFallback enables the hardcoded snapshot
// when no ACTIVE row exists; it never masks an integrity failure.
func NewLoader(source RecordSource, allowFallback bool, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{source: source, allowFallback: allowFallback, logger: logger}
}

// LoadActiveConfig is the strict path: it returns NoActiveConfigError when no
// row is ACTIVE and ConfigIntegrityError when the row does not verify.
// Storage errors are returned wrapped.
func (l *Loader) LoadActiveConfig(ctx context.Context) (Snapshot, error) {
	rec, err := l.source.ActiveSnapshot(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("load active snapshot: %w", err)
	}
	if rec == nil {
		return Snapshot{}, &NoActiveConfigError{}
	}
	return SnapshotFromRecord(*rec)
}

// LoadActiveConfigWithFallback wraps the strict loader. Only a missing ACTIVE
// row may fall back to BuildConfigSnapshot, and only when fallback is enabled.
func (l *Loader) LoadActiveConfigWithFallback(ctx context.Context) (Loaded, error) {
	snap, err := l.LoadActiveConfig(ctx)
	if err == nil {
		return Loaded{Snapshot: snap, Source: SourceDB}, nil
	}

	var integrity *ConfigIntegrityError
	if errors.As(err, &integrity) {
		return Loaded{}, err
	}

	var missing *NoActiveConfigError
	if errors.As(err, &missing) && l.allowFallback {
		fallback := BuildConfigSnapshot()
		l.logger.Warn("no active threshold snapshot, using hardcoded fallback",
			"config_version", fallback.ConfigVersion,
			"thresholds_hash", fallback.ThresholdsHash)
		return Loaded{Snapshot: fallback, Source: SourceFallback}, nil
	}

	return Loaded{}, err
}

// #endregion loader
