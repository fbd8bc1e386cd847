package config

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region snapshot-tests
func TestBuildSnapshotVerifies(t *testing.T) {
	snap := BuildConfigSnapshot()
	require.Len(t, snap.ThresholdsHash, 64)
	assert.Equal(t, DefaultConfigVersion, snap.ConfigVersion)

	res := VerifyConfigSnapshot(snap)
	assert.True(t, res.Valid)
	assert.Equal(t, res.ExpectedHash, res.ActualHash)
}

func TestBuildSnapshotDeterministic(t *testing.T) {
	assert.Equal(t, BuildConfigSnapshot(), BuildConfigSnapshot())
}

func TestHashExcludesVersion(t *testing.T) {
	a := NewSnapshot("a", DefaultThresholds())
	b := NewSnapshot("b", DefaultThresholds())
	assert.Equal(t, a.ThresholdsHash, b.ThresholdsHash)
}

func TestMutatingAnyFieldInvalidates(t *testing.T) {
	mutations := map[string]func(*Thresholds){
		"minTradeCount":               func(th *Thresholds) { th.MinTradeCount++ },
		"readyConfidenceThreshold":    func(th *Thresholds) { th.ReadyConfidenceThreshold += 0.01 },
		"notDeployableThreshold":      func(th *Thresholds) { th.NotDeployableThreshold -= 0.01 },
		"maxSharpeDegradationPct":     func(th *Thresholds) { th.MaxSharpeDegradationPct++ },
		"extremeSharpeDegradationPct": func(th *Thresholds) { th.ExtremeSharpeDegradationPct++ },
		"minOosTradeCount":            func(th *Thresholds) { th.MinOosTradeCount-- },
		"ruinProbabilityCeiling":      func(th *Thresholds) { th.RuinProbabilityCeiling = 0.5 },
		"monteCarloIterations":        func(th *Thresholds) { th.MonteCarloIterations = 1 },
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			snap := BuildConfigSnapshot()
			mutate(&snap.Thresholds)
			res := VerifyConfigSnapshot(snap)
			assert.False(t, res.Valid)
			assert.NotEqual(t, res.ExpectedHash, res.ActualHash)
		})
	}
}

func TestUnencodableThresholdsNeverVerify(t *testing.T) {
	cases := map[string]func(*Thresholds){
		"nan":  func(th *Thresholds) { th.ReadyConfidenceThreshold = math.NaN() },
		"+inf": func(th *Thresholds) { th.MaxSharpeDegradationPct = math.Inf(1) },
		"-inf": func(th *Thresholds) { th.RuinProbabilityCeiling = math.Inf(-1) },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			snap := BuildConfigSnapshot()
			mutate(&snap.Thresholds)
			var res VerifyResult
			require.NotPanics(t, func() { res = VerifyConfigSnapshot(snap) })
			assert.False(t, res.Valid)
			assert.Equal(t, snap.ThresholdsHash, res.ExpectedHash)
			assert.Empty(t, res.ActualHash)
		})
	}
}

func TestMutatingStoredHashInvalidates(t *testing.T) {
	snap := BuildConfigSnapshot()
	snap.ThresholdsHash = strings.Repeat("0", 64)
	assert.False(t, VerifyConfigSnapshot(snap).Valid)
}

func TestHashIndependentOfFieldOrder(t *testing.T) {
	forward := `{"minTradeCount":30,"readyConfidenceThreshold":0.75,"notDeployableThreshold":0.4,` +
		`"maxSharpeDegradationPct":40,"extremeSharpeDegradationPct":80,"minOosTradeCount":30,` +
		`"ruinProbabilityCeiling":0.05,"monteCarloIterations":10000}`
	reversed := `{"monteCarloIterations":10000,"ruinProbabilityCeiling":0.05,"minOosTradeCount":30,` +
		`"extremeSharpeDegradationPct":80,"maxSharpeDegradationPct":40,"notDeployableThreshold":0.4,` +
		`"readyConfidenceThreshold":0.75,"minTradeCount":30}`

	a, err := DecodeThresholds(forward)
	require.NoError(t, err)
	b, err := DecodeThresholds(reversed)
	require.NoError(t, err)
	assert.Equal(t, HashThresholds(a), HashThresholds(b))
	assert.Equal(t, BuildConfigSnapshot().ThresholdsHash, HashThresholds(a))
}

func TestDecodeThresholdsRejectsUnknownFields(t *testing.T) {
	_, err := DecodeThresholds(`{"minTradeCount":30,"bonus":1}`)
	assert.Error(t, err)
}

func TestEncodeThresholdsSorted(t *testing.T) {
	raw, err := EncodeThresholds(DefaultThresholds())
	require.NoError(t, err)
	assert.Equal(t, `{"extremeSharpeDegradationPct":80,"maxSharpeDegradationPct":40,`+
		`"minOosTradeCount":30,"minTradeCount":30,"monteCarloIterations":10000,`+
		`"notDeployableThreshold":0.4,"readyConfidenceThreshold":0.75,"ruinProbabilityCeiling":0.05}`, raw)
}

// #endregion snapshot-tests

// #region loader-tests
type fakeSource struct {
	rec *Record
	err error
}

func (f fakeSource) ActiveSnapshot(context.Context) (*Record, error) {
	return f.rec, f.err
}

func activeRecord(t *testing.T) *Record {
	t.Helper()
	snap := BuildConfigSnapshot()
	raw, err := EncodeThresholds(snap.Thresholds)
	require.NoError(t, err)
	return &Record{
		ConfigVersion:  snap.ConfigVersion,
		ThresholdsHash: snap.ThresholdsHash,
		SnapshotJSON:   raw,
		Status:         StatusActive,
	}
}

func TestLoadActiveConfigStrict(t *testing.T) {
	l := NewLoader(fakeSource{rec: activeRecord(t)}, false, nil)
	snap, err := l.LoadActiveConfig(context.Background())
	require.NoError(t, err)
	assert.Equal(t, BuildConfigSnapshot(), snap)
}

func TestLoadActiveConfigNoRow(t *testing.T) {
	l := NewLoader(fakeSource{}, false, nil)
	_, err := l.LoadActiveConfig(context.Background())

	var missing *NoActiveConfigError
	require.ErrorAs(t, err, &missing)
	assert.ErrorIs(t, err, ErrNoActiveConfig)
}

func TestLoadActiveConfigTampered(t *testing.T) {
	rec := activeRecord(t)
	rec.SnapshotJSON = `{"minTradeCount":1,"readyConfidenceThreshold":0.75}`
	l := NewLoader(fakeSource{rec: rec}, true, nil)

	_, err := l.LoadActiveConfig(context.Background())
	var integrity *ConfigIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, rec.ThresholdsHash, integrity.ExpectedHash)
	assert.NotEqual(t, integrity.ExpectedHash, integrity.ActualHash)
}

func TestLoadActiveConfigUndecodable(t *testing.T) {
	rec := activeRecord(t)
	rec.SnapshotJSON = `not json`
	l := NewLoader(fakeSource{rec: rec}, false, nil)

	_, err := l.LoadActiveConfig(context.Background())
	var integrity *ConfigIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Error(t, integrity.Cause)
}

func TestFallbackFromDB(t *testing.T) {
	l := NewLoader(fakeSource{rec: activeRecord(t)}, true, nil)
	loaded, err := l.LoadActiveConfigWithFallback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceDB, loaded.Source)
}

func TestFallbackUsedWhenEnabled(t *testing.T) {
	l := NewLoader(fakeSource{}, true, nil)
	loaded, err := l.LoadActiveConfigWithFallback(context.Background())
	require.NoError(t, err)
	assert.Equal(t, SourceFallback, loaded.Source)
	assert.Equal(t, BuildConfigSnapshot(), loaded.Snapshot)
}

func TestFallbackDisabledRethrows(t *testing.T) {
	l := NewLoader(fakeSource{}, false, nil)
	_, err := l.LoadActiveConfigWithFallback(context.Background())
	assert.ErrorIs(t, err, ErrNoActiveConfig)
}

func TestFallbackNeverMasksIntegrityError(t *testing.T) {
	rec := activeRecord(t)
	rec.ThresholdsHash = "deadbeef"
	l := NewLoader(fakeSource{rec: rec}, true, nil)

	_, err := l.LoadActiveConfigWithFallback(context.Background())
	var integrity *ConfigIntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "deadbeef", integrity.ExpectedHash)
}

func TestFallbackPropagatesStorageError(t *testing.T) {
	boom := errors.New("connection refused")
	l := NewLoader(fakeSource{err: boom}, true, nil)

	_, err := l.LoadActiveConfigWithFallback(context.Background())
	require.ErrorIs(t, err, boom)
	var missing *NoActiveConfigError
	assert.False(t, errors.As(err, &missing))
}

func TestFallbackAllowedFromEnv(t *testing.T) {
	t.Setenv(FallbackEnvVar, "true")
	assert.True(t, FallbackAllowedFromEnv())

	t.Setenv(FallbackEnvVar, "TRUE")
	assert.False(t, FallbackAllowedFromEnv())

	t.Setenv(FallbackEnvVar, "")
	assert.False(t, FallbackAllowedFromEnv())
}

// #endregion loader-tests
