// Package verdict sequences gates D0 through D4 over one strategy's backtest
// statistics and produces the READY / UNCERTAIN / NOT_DEPLOYABLE verdict.
package verdict

import (
	"math"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/reason"
	"github.com/danielpatrickdp/strategy-verifier/internal/rules"
)

// #region engine
// Engine evaluates inputs against one verified threshold snapshot.
// It holds no mutable state and is safe for concurrent use.
type Engine struct {
	snapshot config.Snapshot

	walkForward func(rules.WalkForwardInput, rules.WalkForwardThresholds) rules.WalkForwardResult
	monteCarlo  func(rules.MonteCarloInput, rules.MonteCarloThresholds, int64) rules.MonteCarloResult
}

// NewEngine creates an engine bound to snapshot.
func NewEngine(snapshot config.Snapshot) *Engine {
	return &Engine{
		snapshot:    snapshot,
		walkForward: rules.EvaluateWalkForward,
		monteCarlo:  rules.EvaluateMonteCarlo,
	}
}

// Snapshot returns the snapshot the engine evaluates against.
func (e *Engine) Snapshot() config.Snapshot {
	return e.snapshot
}

// #endregion engine

// #region evaluate
// Evaluate runs the gates in order. D0 short-circuits; D1 and D2 run when
// their inputs are present; D4 decides by the worst reason-code class.
func (e *Engine) Evaluate(in Input, opts Options) Result {
	th := e.snapshot.Thresholds
	res := Result{
		StrategyID:      in.StrategyID,
		StrategyVersion: in.StrategyVersion,
		ThresholdsUsed:  thresholdsUsed(e.snapshot),
		Warnings:        []string{},
	}

	// D0: hard sample-size gate
	sampleSize := len(in.TradeHistory)
	if sampleSize < th.MinTradeCount {
		res.Verdict = NotDeployable
		res.ReasonCodes = []reason.Code{reason.InsufficientData}
		return res
	}

	var codes reason.Set
	var ir IntermediateResults
	if in.IntermediateResults != nil {
		ir = *in.IntermediateResults
	}

	// D1: walk-forward degradation
	if wf := ir.WalkForward; wf != nil {
		if !isFinite(wf.SharpeDegradationPct) || wf.OutOfSampleTradeCount < 0 {
			codes.Add(reason.InvalidScore)
		} else {
			out, ok := contain(func() rules.WalkForwardResult {
				return e.walkForward(
					rules.WalkForwardInput{
						SharpeDegradationPct:  wf.SharpeDegradationPct,
						OutOfSampleTradeCount: wf.OutOfSampleTradeCount,
					},
					rules.WalkForwardThresholds{
						MaxSharpeDegradationPct:     th.MaxSharpeDegradationPct,
						ExtremeSharpeDegradationPct: th.ExtremeSharpeDegradationPct,
						MinOosTradeCount:            th.MinOosTradeCount,
					},
				)
			})
			if ok {
				deg, oos := wf.SharpeDegradationPct, wf.OutOfSampleTradeCount
				res.Scores.WalkForwardDegradationPct = &deg
				res.Scores.WalkForwardOosSize = &oos
				codes.Add(out.Code)
			} else {
				codes.Add(reason.ComputationFailed)
			}
		}
	}

	// D2: Monte Carlo ruin, only with an explicit seed
	if mc := ir.MonteCarlo; mc != nil {
		if opts.Seed == nil {
			res.Warnings = append(res.Warnings, WarnMonteCarloNoSeed)
		} else {
			seed := *opts.Seed
			out, ok := contain(func() rules.MonteCarloResult {
				return e.monteCarlo(
					rules.MonteCarloInput{TradePnls: mc.TradePnls, InitialBalance: mc.InitialBalance},
					rules.MonteCarloThresholds{
						RuinProbabilityCeiling: th.RuinProbabilityCeiling,
						Iterations:             th.MonteCarloIterations,
					},
					seed,
				)
			})
			if ok {
				p := out.RuinProbability
				res.Scores.MonteCarloRuinProbability = &p
				codes.Add(out.Code)
			} else {
				codes.Add(reason.ComputationFailed)
			}
		}
	}

	// Composite score
	composite, haveComposite := compositeOf(ir)
	switch {
	case !haveComposite:
		codes.Add(reason.IncompleteAnalysis)
	case !isFinite(composite) || composite < 0 || composite > 1:
		codes.Add(reason.InvalidScore)
		haveComposite = false
	default:
		c := composite
		res.Scores.Composite = &c
		if composite < th.NotDeployableThreshold {
			res.Warnings = append(res.Warnings, WarnCompositeBelowFloor)
		}
	}

	if sampleSize < 2*th.MinTradeCount {
		res.Warnings = append(res.Warnings, WarnSampleNearMinimum)
	}

	// D4: final classification
	switch codes.Worst() {
	case reason.ClassNotDeployable:
		res.Verdict = NotDeployable
	case reason.ClassUncertain:
		res.Verdict = Uncertain
	default:
		if haveComposite && composite >= th.ReadyConfidenceThreshold {
			res.Verdict = Ready
			codes.Add(reason.AllChecksPassed)
		} else {
			res.Verdict = Uncertain
			codes.Add(reason.CompositeInUncertainBand)
		}
	}

	res.ReasonCodes = codes.Codes()
	return res
}

// #endregion evaluate

// #region governance-failure
// GovernanceFailure builds the NOT_DEPLOYABLE result returned when the
// threshold snapshot is missing or fails its integrity check. Thresholds and
// scores are zeroed; no gate ran.
func GovernanceFailure(in Input, code reason.Code) Result {
	return Result{
		StrategyID:      in.StrategyID,
		StrategyVersion: in.StrategyVersion,
		Verdict:         NotDeployable,
		ReasonCodes:     []reason.Code{code},
		Warnings:        []string{},
	}
}

// #endregion governance-failure

// #region helpers
func thresholdsUsed(s config.Snapshot) ThresholdsUsed {
	return ThresholdsUsed{
		Thresholds:     s.Thresholds,
		ConfigVersion:  s.ConfigVersion,
		ThresholdsHash: s.ThresholdsHash,
	}
}

func compositeOf(ir IntermediateResults) (float64, bool) {
	if ir.RobustnessScores == nil || ir.RobustnessScores.Composite == nil {
		return 0, false
	}
	return *ir.RobustnessScores.Composite, true
}

// contain runs fn and reports false instead of propagating a panic.
func contain[T any](fn func() T) (out T, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			var zero T
			out, ok = zero, false
		}
	}()
	return fn(), true
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// #endregion helpers
