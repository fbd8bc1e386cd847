// Package reason defines the reason-code taxonomy attached to verification
// results and the severity class each code belongs to.
package reason

// #region code
// Code is a domain-level flag attached to a verification result. Codes are
// never returned as errors.
type Code string

const (
	InsufficientData                Code = "INSUFFICIENT_DATA"
	InvalidScore                    Code = "INVALID_SCORE"
	ComputationFailed               Code = "COMPUTATION_FAILED"
	RuinProbabilityExceeded         Code = "RUIN_PROBABILITY_EXCEEDED"
	WalkForwardDegradationExtreme   Code = "WALK_FORWARD_DEGRADATION_EXTREME"
	WalkForwardFlaggedNotConclusive Code = "WALK_FORWARD_FLAGGED_NOT_CONCLUSIVE"
	CompositeBelowMinimum           Code = "COMPOSITE_BELOW_MINIMUM"
	CompositeInUncertainBand        Code = "COMPOSITE_IN_UNCERTAIN_BAND"
	IncompleteAnalysis              Code = "INCOMPLETE_ANALYSIS"
	ConfigSnapshotMissing           Code = "CONFIG_SNAPSHOT_MISSING"
	ConfigHashMismatch              Code = "CONFIG_HASH_MISMATCH"
	AllChecksPassed                 Code = "ALL_CHECKS_PASSED"
)

// All lists every known code in taxonomy order.
var All = []Code{
	InsufficientData,
	InvalidScore,
	ComputationFailed,
	RuinProbabilityExceeded,
	WalkForwardDegradationExtreme,
	WalkForwardFlaggedNotConclusive,
	CompositeBelowMinimum,
	CompositeInUncertainBand,
	IncompleteAnalysis,
	ConfigSnapshotMissing,
	ConfigHashMismatch,
	AllChecksPassed,
}

// #endregion code

// #region severity
// Class is the verdict class a code forces when present.
type Class int

const (
	ClassPass Class = iota
	ClassUncertain
	ClassNotDeployable
)

func (c Class) String() string {
	switch c {
	case ClassNotDeployable:
		return "not_deployable"
	case ClassUncertain:
		return "uncertain"
	default:
		return "pass"
	}
}

// Severity classifies a code. Unknown codes are treated as not deployable so a
// code added without a class can never let a strategy through.
func Severity(c Code) Class {
	switch c {
	case InsufficientData,
		WalkForwardDegradationExtreme,
		RuinProbabilityExceeded,
		CompositeBelowMinimum,
		ComputationFailed,
		InvalidScore,
		ConfigSnapshotMissing,
		ConfigHashMismatch:
		return ClassNotDeployable
	case IncompleteAnalysis,
		CompositeInUncertainBand,
		WalkForwardFlaggedNotConclusive:
		return ClassUncertain
	case AllChecksPassed:
		return ClassPass
	default:
		return ClassNotDeployable
	}
}

// #endregion severity

// #region set
// Set accumulates codes in insertion order. Duplicates are kept; membership
// questions are answered by class, not by position.
type Set struct {
	codes []Code
}

// Add appends a code. The empty code is ignored.
func (s *Set) Add(c Code) {
	if c == "" {
		return
	}
	s.codes = append(s.codes, c)
}

// Worst returns the most severe class present, ClassPass when empty.
func (s *Set) Worst() Class {
	worst := ClassPass
	for _, c := range s.codes {
		if sev := Severity(c); sev > worst {
			worst = sev
		}
	}
	return worst
}

// Len returns the number of accumulated codes.
func (s *Set) Len() int {
	return len(s.codes)
}

// Codes returns a copy of the accumulated codes.
func (s *Set) Codes() []Code {
	out := make([]Code, len(s.codes))
	copy(out, s.codes)
	return out
}

// #endregion set
