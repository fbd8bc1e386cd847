package rules

import (
	"math"

	"github.com/danielpatrickdp/strategy-verifier/internal/reason"
)

// #region monte-carlo-types
// MonteCarloInput is the realized per-trade P&L and the account size it was
// traded against.
type MonteCarloInput struct {
	TradePnls      []float64
	InitialBalance float64
}

// MonteCarloThresholds are the D2 limits.
type MonteCarloThresholds struct {
	RuinProbabilityCeiling float64
	Iterations             int
}

// MonteCarloResult is the D2 outcome. Code is empty when the ceiling holds.
type MonteCarloResult struct {
	RuinProbability float64
	RuinCount       int
	Simulations     int
	Code            reason.Code
}

// #endregion monte-carlo-types

// #region monte-carlo
// EvaluateMonteCarlo bootstraps Iterations equity paths from the trade P&Ls
// and counts the paths whose running equity touches zero. Malformed input is
// reported as INVALID_SCORE with no simulations run.
func EvaluateMonteCarlo(in MonteCarloInput, th MonteCarloThresholds, seed int64) MonteCarloResult {
	if !validMonteCarlo(in, th) {
		return MonteCarloResult{Code: reason.InvalidScore}
	}

	rng := NewMulberry32(seed)
	n := len(in.TradePnls)
	ruins := 0

	for i := 0; i < th.Iterations; i++ {
		equity := in.InitialBalance
		for j := 0; j < n; j++ {
			equity += in.TradePnls[rng.Intn(n)]
			if equity <= 0 {
				ruins++
				break
			}
		}
	}

	res := MonteCarloResult{
		RuinProbability: float64(ruins) / float64(th.Iterations),
		RuinCount:       ruins,
		Simulations:     th.Iterations,
	}
	if res.RuinProbability > th.RuinProbabilityCeiling {
		res.Code = reason.RuinProbabilityExceeded
	}
	return res
}

func validMonteCarlo(in MonteCarloInput, th MonteCarloThresholds) bool {
	if !isFinite(in.InitialBalance) || in.InitialBalance <= 0 {
		return false
	}
	if len(in.TradePnls) == 0 || th.Iterations <= 0 {
		return false
	}
	for _, p := range in.TradePnls {
		if !isFinite(p) {
			return false
		}
	}
	return true
}

// #endregion monte-carlo

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
