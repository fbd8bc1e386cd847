// Package config governs the threshold snapshot that drives verification:
// building it, hashing it, and loading it fail-closed from storage.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/danielpatrickdp/strategy-verifier/internal/canonical"
)

// #region hash
// HashThresholds hashes the canonical JSON of the threshold fields. The config
// version is not part of the preimage. t must hold finite floats; callers
// accepting outside values run ValidateThresholds first.
func HashThresholds(t Thresholds) string {
	h, err := hashThresholds(t)
	if err != nil {
		panic(err.Error())
	}
	return h
}

func hashThresholds(t Thresholds) (string, error) {
	raw, err := canonical.JSON(t)
	if err != nil {
		return "", fmt.Errorf("hash thresholds: %w", err)
	}
	return canonical.SHA256Hex(string(raw)), nil
}

// #endregion hash

// #region build
// BuildConfigSnapshot assembles the hardcoded thresholds into a hashed snapshot.
func BuildConfigSnapshot() Snapshot {
	return NewSnapshot(DefaultConfigVersion, DefaultThresholds())
}

// NewSnapshot hashes t and wraps it under version.
func NewSnapshot(version string, t Thresholds) Snapshot {
	return Snapshot{
		ConfigVersion:  version,
		Thresholds:     t,
		ThresholdsHash: HashThresholds(t),
	}
}

// #endregion build

// #region verify
// VerifyConfigSnapshot recomputes the hash of s.Thresholds and compares it to
// the hash the snapshot carries. Thresholds that cannot be encoded (NaN or
// infinite floats) never verify.
func VerifyConfigSnapshot(s Snapshot) VerifyResult {
	actual, err := hashThresholds(s.Thresholds)
	if err != nil {
		return VerifyResult{Valid: false, ExpectedHash: s.ThresholdsHash}
	}
	return VerifyResult{
		Valid:        actual == s.ThresholdsHash,
		ExpectedHash: s.ThresholdsHash,
		ActualHash:   actual,
	}
}

// #endregion verify

// #region decode
// DecodeThresholds parses a stored thresholds object. Unknown fields are
// rejected so a tampered row cannot smuggle extra keys past the hash.
func DecodeThresholds(raw string) (Thresholds, error) {
	var t Thresholds
	dec := json.NewDecoder(bytes.NewReader([]byte(raw)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&t); err != nil {
		return Thresholds{}, fmt.Errorf("decode thresholds: %w", err)
	}
	return t, nil
}

// EncodeThresholds renders t in the canonical form stored in snapshot rows.
func EncodeThresholds(t Thresholds) (string, error) {
	raw, err := canonical.JSON(t)
	if err != nil {
		return "", fmt.Errorf("encode thresholds: %w", err)
	}
	return string(raw), nil
}

// SnapshotFromRecord rebuilds a snapshot from a stored row and verifies it.
// Any mismatch or decode failure is a ConfigIntegrityError.
func SnapshotFromRecord(rec Record) (Snapshot, error) {
	t, err := DecodeThresholds(rec.SnapshotJSON)
	if err != nil {
		return Snapshot{}, &ConfigIntegrityError{
			ConfigVersion: rec.ConfigVersion,
			ExpectedHash:  rec.ThresholdsHash,
			ActualHash:    canonical.SHA256Hex(rec.SnapshotJSON),
			Cause:         err,
		}
	}
	snap := Snapshot{
		ConfigVersion:  rec.ConfigVersion,
		Thresholds:     t,
		ThresholdsHash: rec.ThresholdsHash,
	}
	res := VerifyConfigSnapshot(snap)
	if !res.Valid {
		return Snapshot{}, &ConfigIntegrityError{
			ConfigVersion: rec.ConfigVersion,
			ExpectedHash:  res.ExpectedHash,
			ActualHash:    res.ActualHash,
		}
	}
	return snap, nil
}

// #endregion decode
