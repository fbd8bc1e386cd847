// Package rules holds the pure risk evaluators behind gates D1 (walk-forward
// degradation) and D2 (Monte Carlo ruin).
package rules

import "github.com/danielpatrickdp/strategy-verifier/internal/reason"

// #region walk-forward-types
// WalkForwardInput is the out-of-sample summary of a walk-forward run.
type WalkForwardInput struct {
	SharpeDegradationPct  float64
	OutOfSampleTradeCount int
}

// WalkForwardThresholds are the D1 limits.
type WalkForwardThresholds struct {
	MaxSharpeDegradationPct     float64
	ExtremeSharpeDegradationPct float64
	MinOosTradeCount            int
}

// Tier is the D1 outcome band.
type Tier string

const (
	TierPass Tier = "pass"
	TierD1a  Tier = "D1a" // moderate degradation, enough OOS trades to trust it
	TierD1b  Tier = "D1b" // moderate degradation, OOS sample too thin to conclude
	TierD1c  Tier = "D1c" // extreme degradation, sample size irrelevant
)

// WalkForwardResult is the D1 outcome. Code is empty on pass.
type WalkForwardResult struct {
	Tier Tier
	Code reason.Code
}

// #endregion walk-forward-types

// #region walk-forward
// EvaluateWalkForward classifies Sharpe degradation between in-sample and
// out-of-sample. All comparisons are strict, so a value sitting exactly on a
// threshold falls into the milder band.
func EvaluateWalkForward(in WalkForwardInput, th WalkForwardThresholds) WalkForwardResult {
	if in.SharpeDegradationPct > th.ExtremeSharpeDegradationPct {
		return WalkForwardResult{Tier: TierD1c, Code: reason.WalkForwardDegradationExtreme}
	}
	if in.SharpeDegradationPct > th.MaxSharpeDegradationPct {
		if in.OutOfSampleTradeCount >= th.MinOosTradeCount {
			return WalkForwardResult{Tier: TierD1a, Code: reason.WalkForwardDegradationExtreme}
		}
		return WalkForwardResult{Tier: TierD1b, Code: reason.WalkForwardFlaggedNotConclusive}
	}
	return WalkForwardResult{Tier: TierPass}
}

// #endregion walk-forward
