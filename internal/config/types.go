package config

import "time"

// #region thresholds
// Thresholds are the numeric limits that drive a verdict.
type Thresholds struct {
	MinTradeCount               int     `json:"minTradeCount" yaml:"minTradeCount" validate:"min=1"`
	ReadyConfidenceThreshold    float64 `json:"readyConfidenceThreshold" yaml:"readyConfidenceThreshold" validate:"gte=0,lte=1"`
	NotDeployableThreshold      float64 `json:"notDeployableThreshold" yaml:"notDeployableThreshold" validate:"gte=0,lte=1,ltefield=ReadyConfidenceThreshold"`
	MaxSharpeDegradationPct     float64 `json:"maxSharpeDegradationPct" yaml:"maxSharpeDegradationPct" validate:"gte=0"`
	ExtremeSharpeDegradationPct float64 `json:"extremeSharpeDegradationPct" yaml:"extremeSharpeDegradationPct" validate:"gtefield=MaxSharpeDegradationPct"`
	MinOosTradeCount            int     `json:"minOosTradeCount" yaml:"minOosTradeCount" validate:"gte=0"`
	RuinProbabilityCeiling      float64 `json:"ruinProbabilityCeiling" yaml:"ruinProbabilityCeiling" validate:"gte=0,lte=1"`
	MonteCarloIterations        int     `json:"monteCarloIterations" yaml:"monteCarloIterations" validate:"min=1"`
}

// DefaultConfigVersion tags the hardcoded threshold set.
const DefaultConfigVersion = "2024.1"

// DefaultThresholds returns the hardcoded threshold constants.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinTradeCount:               30,
		ReadyConfidenceThreshold:    0.75,
		NotDeployableThreshold:      0.4,
		MaxSharpeDegradationPct:     40,
		ExtremeSharpeDegradationPct: 80,
		MinOosTradeCount:            30,
		RuinProbabilityCeiling:      0.05,
		MonteCarloIterations:        10000,
	}
}

// #endregion thresholds

// #region snapshot
// Snapshot is a versioned threshold set plus the hash computed over the
// thresholds alone. Callers carry the snapshot they verified.
type Snapshot struct {
	ConfigVersion  string     `json:"configVersion"`
	Thresholds     Thresholds `json:"thresholds"`
	ThresholdsHash string     `json:"thresholdsHash"`
}

// VerifyResult reports the outcome of re-hashing a snapshot.
type VerifyResult struct {
	Valid        bool   `json:"valid"`
	ExpectedHash string `json:"expectedHash"` // stored on the snapshot
	ActualHash   string `json:"actualHash"`   // recomputed from the thresholds
}

// #endregion snapshot

// #region record
// Status is the lifecycle of a persisted snapshot row.
type Status string

const (
	StatusActive     Status = "ACTIVE"
	StatusInactive   Status = "INACTIVE"
	StatusDeprecated Status = "DEPRECATED"
)

// Record is a persisted threshold snapshot row. SnapshotJSON holds the
// thresholds object exactly as stored.
type Record struct {
	ConfigVersion  string
	ThresholdsHash string
	SnapshotJSON   string
	Status         Status
	ActivatedBy    string
	ActivatedAt    *time.Time
	DeprecatedAt   *time.Time
}

// #endregion record

// #region loaded
// Source says where a loaded snapshot came from.
type Source string

const (
	SourceDB       Source = "db"
	SourceFallback Source = "fallback"
)

// Loaded is a successfully loaded snapshot tagged with its origin.
type Loaded struct {
	Snapshot Snapshot
	Source   Source
}

// #endregion loaded
