package proof

import (
	"strings"
	"time"
)

// #region event-type
// EventType tags the kind of proof event.
type EventType string

const (
	EventVerificationRunCompleted EventType = "VERIFICATION_RUN_COMPLETED"
	EventVerificationPassed       EventType = "VERIFICATION_PASSED"
)

// #endregion event-type

// GenesisHash is the prevEventHash of the first event in every scope.
var GenesisHash = strings.Repeat("0", 64)

// #region event
// Event is one persisted, append-only proof log entry. RecordID (stored as
// session_id) scopes the sequence and the hash chain.
type Event struct {
	Sequence      int64          `json:"sequence"`
	StrategyID    string         `json:"strategyId"`
	Type          EventType      `json:"type"`
	RecordID      string         `json:"sessionId"`
	EventHash     string         `json:"eventHash"`
	PrevEventHash string         `json:"prevEventHash"`
	Payload       map[string]any `json:"payload"`
	CreatedAt     time.Time      `json:"createdAt"`
}

// Draft is an event before it is placed in a chain.
type Draft struct {
	StrategyID string
	Type       EventType
	RecordID   string
	Payload    map[string]any
	CreatedAt  time.Time
}

// #endregion event

// #region verify-result
// VerifyResult reports the first break found in a chain.
type VerifyResult struct {
	Valid      bool   `json:"valid"`
	BrokenAt   int64  `json:"brokenAt,omitempty"` // sequence where verification stopped
	Reason     string `json:"reason,omitempty"`
	EventCount int    `json:"eventCount"`
}

// #endregion verify-result
