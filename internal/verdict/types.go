package verdict

import (
	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/reason"
)

// #region verdict
// Verdict is the terminal outcome of one verification run.
type Verdict string

const (
	Ready         Verdict = "READY"
	Uncertain     Verdict = "UNCERTAIN"
	NotDeployable Verdict = "NOT_DEPLOYABLE"
)

// #endregion verdict

// #region input
// Input is one strategy's backtest summary as handed over by the caller.
// Trade records and backtest parameters are opaque; only the trade count is read.
type Input struct {
	StrategyID          string               `json:"strategyId" yaml:"strategyId" validate:"required"`
	StrategyVersion     int                  `json:"strategyVersion" yaml:"strategyVersion" validate:"min=1"`
	TradeHistory        []any                `json:"tradeHistory" yaml:"tradeHistory"`
	BacktestParameters  map[string]any       `json:"backtestParameters,omitempty" yaml:"backtestParameters,omitempty"`
	IntermediateResults *IntermediateResults `json:"intermediateResults,omitempty" yaml:"intermediateResults,omitempty"`
}

// IntermediateResults are the pre-computed upstream analyses. Each part is
// optional; a missing part skips the gate that consumes it.
type IntermediateResults struct {
	RobustnessScores *RobustnessScores  `json:"robustnessScores,omitempty" yaml:"robustnessScores,omitempty"`
	WalkForward      *WalkForwardStats  `json:"walkForward,omitempty" yaml:"walkForward,omitempty"`
	MonteCarlo       *MonteCarloSession `json:"monteCarlo,omitempty" yaml:"monteCarlo,omitempty"`
}

// RobustnessScores carries the upstream composite confidence figure in [0, 1].
type RobustnessScores struct {
	Composite *float64 `json:"composite,omitempty" yaml:"composite,omitempty"`
}

// WalkForwardStats feeds gate D1.
type WalkForwardStats struct {
	SharpeDegradationPct  float64 `json:"sharpeDegradationPct" yaml:"sharpeDegradationPct"`
	OutOfSampleTradeCount int     `json:"outOfSampleTradeCount" yaml:"outOfSampleTradeCount"`
}

// MonteCarloSession feeds gate D2.
type MonteCarloSession struct {
	TradePnls      []float64 `json:"tradePnls" yaml:"tradePnls"`
	InitialBalance float64   `json:"initialBalance" yaml:"initialBalance"`
}

// Options are per-run knobs supplied by the caller. A nil Seed skips D2.
type Options struct {
	Seed *int64
}

// #endregion input

// #region result
// Scores are the per-stage figures. Nil means the stage did not run.
type Scores struct {
	Composite                 *float64 `json:"composite"`
	WalkForwardDegradationPct *float64 `json:"walkForwardDegradationPct"`
	WalkForwardOosSize        *int     `json:"walkForwardOosSize"`
	MonteCarloRuinProbability *float64 `json:"monteCarloRuinProbability"`
}

// ThresholdsUsed freezes the thresholds and their hash into a result.
type ThresholdsUsed struct {
	config.Thresholds
	ConfigVersion  string `json:"configVersion"`
	ThresholdsHash string `json:"thresholdsHash"`
}

// Result is the outcome of one run. It is not modified after Evaluate returns.
type Result struct {
	StrategyID      string         `json:"strategyId"`
	StrategyVersion int            `json:"strategyVersion"`
	Verdict         Verdict        `json:"verdict"`
	ReasonCodes     []reason.Code  `json:"reasonCodes"`
	Scores          Scores         `json:"scores"`
	ThresholdsUsed  ThresholdsUsed `json:"thresholdsUsed"`
	Warnings        []string       `json:"warnings"`
}

// #endregion result

// #region warnings
const (
	WarnSampleNearMinimum   = "Sample size near minimum threshold"
	WarnCompositeBelowFloor = "Composite below not-deployable threshold"
	WarnMonteCarloNoSeed    = "Monte Carlo ruin check skipped: no seed supplied"
)

// #endregion warnings
