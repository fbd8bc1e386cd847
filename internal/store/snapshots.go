package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
)

// #region active-snapshot
// ActiveSnapshot returns the ACTIVE snapshot row, or nil when none is active.
// It satisfies config.RecordSource.
func (s *Store) ActiveSnapshot(ctx context.Context) (*config.Record, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT config_version, thresholds_hash, snapshot, status, activated_by, activated_at, deprecated_at
		 FROM threshold_snapshots WHERE status = ?`, string(config.StatusActive))
	rec, err := scanSnapshot(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active snapshot: %w", err)
	}
	return &rec, nil
}

// #endregion active-snapshot

// #region save-snapshot
// SaveSnapshot stores snap as an INACTIVE row. The stored thresholds are the
// canonical encoding of snap.Thresholds; the hash is stored as given.
func (s *Store) SaveSnapshot(ctx context.Context, snap config.Snapshot) error {
	raw, err := config.EncodeThresholds(snap.Thresholds)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO threshold_snapshots (config_version, thresholds_hash, snapshot, status, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		snap.ConfigVersion, snap.ThresholdsHash, raw, string(config.StatusInactive), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("insert snapshot %s: %w", snap.ConfigVersion, err)
	}
	return nil
}

// #endregion save-snapshot

// #region activate
// ActivateSnapshot deprecates the current ACTIVE row and activates version in
// one transaction.
func (s *Store) ActivateSnapshot(ctx context.Context, version, activatedBy string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM threshold_snapshots WHERE config_version = ?`, version,
	).Scan(&exists); err != nil {
		return fmt.Errorf("check snapshot: %w", err)
	}
	if exists == 0 {
		return fmt.Errorf("activate %s: %w", version, ErrSnapshotNotFound)
	}

	now := formatTime(s.now())
	if _, err := tx.ExecContext(ctx,
		`UPDATE threshold_snapshots SET status = ?, deprecated_at = ?
		 WHERE status = ? AND config_version <> ?`,
		string(config.StatusDeprecated), now, string(config.StatusActive), version,
	); err != nil {
		return fmt.Errorf("deprecate active: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE threshold_snapshots SET status = ?, activated_by = ?, activated_at = ?, deprecated_at = NULL
		 WHERE config_version = ?`,
		string(config.StatusActive), nullIfEmpty(activatedBy), now, version,
	); err != nil {
		return fmt.Errorf("activate %s: %w", version, err)
	}

	return tx.Commit()
}

// #endregion activate

// #region list-snapshots
// ListSnapshots returns every snapshot row, newest first.
func (s *Store) ListSnapshots(ctx context.Context) ([]config.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT config_version, thresholds_hash, snapshot, status, activated_by, activated_at, deprecated_at
		 FROM threshold_snapshots ORDER BY created_at DESC, config_version DESC`)
	if err != nil {
		return nil, fmt.Errorf("list snapshots: %w", err)
	}
	defer rows.Close()

	var out []config.Record
	for rows.Next() {
		rec, err := scanSnapshot(rows)
		if err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// #endregion list-snapshots

type scanner interface {
	Scan(dest ...any) error
}

func scanSnapshot(row scanner) (config.Record, error) {
	var rec config.Record
	var status string
	var by, activated, deprecated sql.NullString
	if err := row.Scan(&rec.ConfigVersion, &rec.ThresholdsHash, &rec.SnapshotJSON, &status,
		&by, &activated, &deprecated); err != nil {
		return config.Record{}, err
	}
	rec.Status = config.Status(status)
	rec.ActivatedBy = by.String
	rec.ActivatedAt = parseNullTime(activated)
	rec.DeprecatedAt = parseNullTime(deprecated)
	return rec, nil
}
