package replay

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
)

func TestReplayFixtures(t *testing.T) {
	for _, name := range []string{"default_thresholds.yaml", "reduced_iterations.json"} {
		t.Run(name, func(t *testing.T) {
			results, sum, err := ReplayFile(filepath.Join("testdata", name))
			require.NoError(t, err)
			for _, r := range results {
				assert.True(t, r.Passed(), "%s: %v", r.Name, r.Mismatches)
			}
			assert.Equal(t, sum.Total, sum.Passed)
			assert.Zero(t, sum.Failed)
		})
	}
}

func TestFixtureSnapshot(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "default_thresholds.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.BuildConfigSnapshot(), f.ToSnapshot())

	f, err = LoadFixture(filepath.Join("testdata", "reduced_iterations.json"))
	require.NoError(t, err)
	snap := f.ToSnapshot()
	assert.Equal(t, "replay-1000", snap.ConfigVersion)
	assert.Equal(t, 1000, snap.Thresholds.MonteCarloIterations)
	assert.True(t, config.VerifyConfigSnapshot(snap).Valid)
}

func TestReplayReportsMismatch(t *testing.T) {
	f := &Fixture{Cases: []FixtureCase{{
		Name:  "wrong expectation",
		Input: FixtureInput{Input: verdict.Input{StrategyID: "s", StrategyVersion: 1}, TradeCount: 5},
		Expected: FixtureExpected{
			Verdict: verdict.Ready,
		},
	}}}
	results, sum := Replay(f)
	require.Len(t, results, 1)
	assert.False(t, results[0].Passed())
	assert.Contains(t, results[0].Mismatches[0], "verdict")
	assert.Equal(t, 1, sum.Failed)
}

func TestReplayDeterministic(t *testing.T) {
	f, err := LoadFixture(filepath.Join("testdata", "reduced_iterations.json"))
	require.NoError(t, err)
	a, _ := Replay(f)
	b, _ := Replay(f)
	assert.Equal(t, a, b)
}

func TestLoadFixtureValidation(t *testing.T) {
	dir := t.TempDir()
	tests := map[string]string{
		"no cases":       "description: empty\ncases: []\n",
		"missing id":     "cases:\n  - name: x\n    input: {strategyVersion: 1}\n    expected: {verdict: READY}\n",
		"bad version":    "cases:\n  - name: x\n    input: {strategyId: s, strategyVersion: 0}\n    expected: {verdict: READY}\n",
		"bad verdict":    "cases:\n  - name: x\n    input: {strategyId: s, strategyVersion: 1}\n    expected: {verdict: MAYBE}\n",
		"unnamed case":   "cases:\n  - input: {strategyId: s, strategyVersion: 1}\n    expected: {verdict: READY}\n",
		"malformed yaml": "cases: [\n",
		"infinite threshold": "thresholds: {minTradeCount: 30, readyConfidenceThreshold: 0.75, notDeployableThreshold: 0.4, " +
			"maxSharpeDegradationPct: .inf, extremeSharpeDegradationPct: .inf, minOosTradeCount: 30, " +
			"ruinProbabilityCeiling: 0.05, monteCarloIterations: 10}\n" +
			"cases:\n  - name: x\n    input: {strategyId: s, strategyVersion: 1}\n    expected: {verdict: READY}\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, name+".yaml")
			require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
			_, err := LoadFixture(path)
			assert.Error(t, err)
		})
	}
}

func TestLoadInput(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.json")
	body := `{"strategyId":"strat-9","strategyVersion":4,"tradeHistory":[{"pnl":1},{"pnl":-2}],"backtestParameters":{"window":20},"intermediateResults":{"robustnessScores":{"composite":0.7}}}`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	in, err := LoadInput(path)
	require.NoError(t, err)
	assert.Equal(t, "strat-9", in.StrategyID)
	assert.Equal(t, 4, in.StrategyVersion)
	assert.Len(t, in.TradeHistory, 2)
	require.NotNil(t, in.IntermediateResults)
	assert.InDelta(t, 0.7, *in.IntermediateResults.RobustnessScores.Composite, 1e-12)

	require.NoError(t, os.WriteFile(path, []byte(`{"strategyVersion":1}`), 0o644))
	_, err = LoadInput(path)
	assert.Error(t, err)
}

func TestTradeCountExpands(t *testing.T) {
	fi := FixtureInput{Input: verdict.Input{StrategyID: "s", StrategyVersion: 1}, TradeCount: 3}
	assert.Len(t, fi.ToInput().TradeHistory, 3)

	// explicit history wins
	fi.TradeHistory = []any{"a"}
	assert.Len(t, fi.ToInput().TradeHistory, 1)
}
