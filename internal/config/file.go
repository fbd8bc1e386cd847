package config

import (
	"bytes"
	"fmt"
	"math"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

var validate = validator.New()

// ValidateThresholds rejects threshold sets that cannot be published. Every
// float must be finite, probabilities lie in [0, 1], the uncertain band must
// not be inverted, and the extreme degradation tier sits at or above the
// moderate one.
func ValidateThresholds(t Thresholds) error {
	for name, f := range map[string]float64{
		"readyConfidenceThreshold":    t.ReadyConfidenceThreshold,
		"notDeployableThreshold":      t.NotDeployableThreshold,
		"maxSharpeDegradationPct":     t.MaxSharpeDegradationPct,
		"extremeSharpeDegradationPct": t.ExtremeSharpeDegradationPct,
		"ruinProbabilityCeiling":      t.RuinProbabilityCeiling,
	} {
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return fmt.Errorf("invalid thresholds: %s is not finite", name)
		}
	}
	if err := validate.Struct(t); err != nil {
		return fmt.Errorf("invalid thresholds: %w", err)
	}
	return nil
}

// ReadThresholdsFile reads a YAML or JSON thresholds document. Fields left out
// keep their default value; unknown fields are rejected.
func ReadThresholdsFile(path string) (Thresholds, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Thresholds{}, fmt.Errorf("read thresholds: %w", err)
	}
	t := DefaultThresholds()
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	if err := dec.Decode(&t); err != nil {
		return Thresholds{}, fmt.Errorf("parse thresholds %s: %w", path, err)
	}
	if err := ValidateThresholds(t); err != nil {
		return Thresholds{}, err
	}
	return t, nil
}
