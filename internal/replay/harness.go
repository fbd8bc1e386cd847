// Package replay runs recorded verification cases through the verdict engine
// and reports where results diverge from expectations.
package replay

import (
	"fmt"
	"math"
	"slices"

	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
)

// #region types
// CaseResult is the outcome of replaying one case.
type CaseResult struct {
	Name       string         `json:"name"`
	Result     verdict.Result `json:"result"`
	Mismatches []string       `json:"mismatches,omitempty"`
}

// Passed reports whether the case matched every checked expectation.
func (r CaseResult) Passed() bool {
	return len(r.Mismatches) == 0
}

// Summary provides aggregate stats from a replay run.
type Summary struct {
	Total          int    `json:"total"`
	Passed         int    `json:"passed"`
	Failed         int    `json:"failed"`
	ConfigVersion  string `json:"configVersion"`
	ThresholdsHash string `json:"thresholdsHash"`
}

// #endregion types

// #region replay
// Replay evaluates every case against the fixture's snapshot. It is pure and
// deterministic: the same fixture always yields the same results.
func Replay(f *Fixture) ([]CaseResult, Summary) {
	snap := f.ToSnapshot()
	engine := verdict.NewEngine(snap)

	results := make([]CaseResult, 0, len(f.Cases))
	sum := Summary{ConfigVersion: snap.ConfigVersion, ThresholdsHash: snap.ThresholdsHash}
	for _, c := range f.Cases {
		res := engine.Evaluate(c.Input.ToInput(), verdict.Options{Seed: c.Seed})
		cr := CaseResult{Name: c.Name, Result: res, Mismatches: compare(c.Expected, res)}
		results = append(results, cr)

		sum.Total++
		if cr.Passed() {
			sum.Passed++
		} else {
			sum.Failed++
		}
	}
	return results, sum
}

// ReplayFile loads and replays a fixture file.
func ReplayFile(path string) ([]CaseResult, Summary, error) {
	f, err := LoadFixture(path)
	if err != nil {
		return nil, Summary{}, err
	}
	results, sum := Replay(f)
	return results, sum, nil
}

// #endregion replay

// #region compare
const ruinTolerance = 1e-12

func compare(want FixtureExpected, got verdict.Result) []string {
	var out []string
	if got.Verdict != want.Verdict {
		out = append(out, fmt.Sprintf("verdict: want %s, got %s", want.Verdict, got.Verdict))
	}
	if want.ReasonCodes != nil && !slices.Equal(want.ReasonCodes, got.ReasonCodes) {
		out = append(out, fmt.Sprintf("reasonCodes: want %v, got %v", want.ReasonCodes, got.ReasonCodes))
	}
	if want.Warnings != nil && !slices.Equal(want.Warnings, got.Warnings) {
		out = append(out, fmt.Sprintf("warnings: want %q, got %q", want.Warnings, got.Warnings))
	}
	if want.RuinProbability != nil {
		p := got.Scores.MonteCarloRuinProbability
		switch {
		case p == nil:
			out = append(out, "ruinProbability: want a value, Monte Carlo did not run")
		case math.Abs(*p-*want.RuinProbability) > ruinTolerance:
			out = append(out, fmt.Sprintf("ruinProbability: want %v, got %v", *want.RuinProbability, *p))
		}
	}
	return out
}

// #endregion compare
