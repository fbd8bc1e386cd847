// Package lifecycle decides whether a verdict moves a strategy between
// lifecycle states. Applying the move belongs to the Store collaborator.
package lifecycle

import (
	"context"

	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
)

// #region state
// State is a strategy lifecycle state.
type State string

const (
	StateDraft      State = "draft"
	StateBacktested State = "backtested"
	StateVerified   State = "verified"
	StateLive       State = "live"
	StateRetired    State = "retired"
)

// #endregion state

// #region decision
// Decision is the candidate transition for one verification run.
type Decision struct {
	Transition bool   `json:"transition"`
	From       State  `json:"from"`
	To         State  `json:"to,omitempty"`
	Reason     string `json:"reason,omitempty"` // set when Transition is false
}

const (
	ReasonVerdictUncertain     = "verdict_uncertain"
	ReasonVerdictNotDeployable = "verdict_not_deployable"
	reasonStateNotEligible     = "state_not_eligible:"
)

// Decide returns the transition for v given the current state. Only a READY
// verdict on a backtested strategy moves it, to verified.
func Decide(v verdict.Verdict, current State) Decision {
	switch v {
	case verdict.Uncertain:
		return Decision{From: current, Reason: ReasonVerdictUncertain}
	case verdict.NotDeployable:
		return Decision{From: current, Reason: ReasonVerdictNotDeployable}
	case verdict.Ready:
		if current != StateBacktested {
			return Decision{From: current, Reason: reasonStateNotEligible + string(current)}
		}
		return Decision{Transition: true, From: current, To: StateVerified}
	default:
		return Decision{From: current, Reason: ReasonVerdictNotDeployable}
	}
}

// #endregion decision

// #region store
// Store is the external lifecycle collaborator.
type Store interface {
	// CurrentState returns the strategy's lifecycle state.
	CurrentState(ctx context.Context, strategyID string) (State, error)
	// ApplyTransition moves the strategy from d.From to d.To, recording
	// recordID as the verification that justified it.
	ApplyTransition(ctx context.Context, strategyID string, d Decision, recordID string) error
}

// #endregion store
