package replay

import (
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/reason"
	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
)

var validate = validator.New()

// #region fixture-types

// Fixture is the top-level structure of a replay fixture. Files may be YAML
// or JSON.
type Fixture struct {
	Description   string             `yaml:"description"`
	ConfigVersion string             `yaml:"configVersion"`
	Thresholds    *config.Thresholds `yaml:"thresholds"` // nil means the default snapshot
	Cases         []FixtureCase      `yaml:"cases" validate:"required,min=1,dive"`
}

// FixtureCase is one input and the outcome it must produce.
type FixtureCase struct {
	Name     string          `yaml:"name" validate:"required"`
	Input    FixtureInput    `yaml:"input"`
	Seed     *int64          `yaml:"seed"`
	Expected FixtureExpected `yaml:"expected"`
}

// FixtureInput is a verdict.Input whose trade history may be given as a
// bare count.
type FixtureInput struct {
	verdict.Input `yaml:",inline"`
	TradeCount    int `yaml:"tradeCount" validate:"min=0"`
}

// FixtureExpected captures the expected verdict. Nil fields are not checked.
type FixtureExpected struct {
	Verdict         verdict.Verdict `yaml:"verdict" validate:"required,oneof=READY UNCERTAIN NOT_DEPLOYABLE"`
	ReasonCodes     []reason.Code   `yaml:"reasonCodes"`
	Warnings        []string        `yaml:"warnings"`
	RuinProbability *float64        `yaml:"ruinProbability"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads, parses, and validates a fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if err := validate.Struct(&f); err != nil {
		return nil, fmt.Errorf("validate fixture %s: %w", path, err)
	}
	if f.Thresholds != nil {
		if err := config.ValidateThresholds(*f.Thresholds); err != nil {
			return nil, fmt.Errorf("fixture %s: %w", path, err)
		}
	}
	return &f, nil
}

// LoadInput reads one verification input file (YAML or JSON).
func LoadInput(path string) (verdict.Input, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return verdict.Input{}, fmt.Errorf("read input %s: %w", path, err)
	}
	var fi FixtureInput
	if err := yaml.Unmarshal(data, &fi); err != nil {
		return verdict.Input{}, fmt.Errorf("parse input %s: %w", path, err)
	}
	if err := validate.Struct(&fi); err != nil {
		return verdict.Input{}, fmt.Errorf("validate input %s: %w", path, err)
	}
	return fi.ToInput(), nil
}

// ToSnapshot returns the snapshot the fixture's cases run against.
func (f *Fixture) ToSnapshot() config.Snapshot {
	if f.Thresholds == nil {
		return config.BuildConfigSnapshot()
	}
	version := f.ConfigVersion
	if version == "" {
		version = "fixture"
	}
	return config.NewSnapshot(version, *f.Thresholds)
}

// ToInput converts a FixtureInput to a domain Input. A TradeCount with no
// explicit trade history becomes that many opaque trade records.
func (fi *FixtureInput) ToInput() verdict.Input {
	in := fi.Input
	if len(in.TradeHistory) == 0 && fi.TradeCount > 0 {
		in.TradeHistory = make([]any, fi.TradeCount)
		for i := range in.TradeHistory {
			in.TradeHistory[i] = map[string]any{"n": i + 1}
		}
	}
	return in
}

// #endregion fixture-loader
