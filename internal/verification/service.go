// Package verification runs the verification pipeline: load the threshold
// snapshot, evaluate, decide the lifecycle move, persist proof, and only then
// apply the move.
package verification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/lifecycle"
	"github.com/danielpatrickdp/strategy-verifier/internal/proof"
	"github.com/danielpatrickdp/strategy-verifier/internal/reason"
	"github.com/danielpatrickdp/strategy-verifier/internal/verdict"
)

// #region collaborators
// ConfigLoader loads the active threshold snapshot.
type ConfigLoader interface {
	LoadActiveConfigWithFallback(ctx context.Context) (config.Loaded, error)
}

// ProofAppender stores a batch of events for one record atomically.
type ProofAppender interface {
	AppendProofEvents(ctx context.Context, drafts []proof.Draft) ([]proof.Event, error)
}

// #endregion collaborators

// #region outcome
// Outcome is what a successful run exposes. LifecycleState reflects the
// transition only when it has been applied.
type Outcome struct {
	RecordID       string             `json:"recordId"`
	Result         verdict.Result     `json:"result"`
	ConfigSource   config.Source      `json:"configSource,omitempty"` // empty on governance failure
	Decision       lifecycle.Decision `json:"decision"`
	LifecycleState lifecycle.State    `json:"lifecycleState"`
	ProofEvents    []proof.Event      `json:"proofEvents"`
}

// #endregion outcome

// #region service
// Service is the sequential verification pipeline.
type Service struct {
	loader    ConfigLoader
	proofs    ProofAppender
	lifecycle lifecycle.Store
	metrics   *Metrics
	logger    *slog.Logger
	newID     func() string
	now       func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger. Default slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics sets the collectors. Default is an unregistered set.
func WithMetrics(m *Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithIDGenerator overrides record id generation.
func WithIDGenerator(newID func() string) Option {
	return func(s *Service) { s.newID = newID }
}

// NewService wires a service over its collaborators.
func NewService(loader ConfigLoader, proofs ProofAppender, lc lifecycle.Store, opts ...Option) *Service {
	s := &Service{
		loader:    loader,
		proofs:    proofs,
		lifecycle: lc,
		logger:    slog.Default(),
		newID:     uuid.NewString,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, o := range opts {
		o(s)
	}
	if s.metrics == nil {
		s.metrics = NewMetrics(nil)
	}
	return s
}

// #endregion service

// #region run
// Run verifies one strategy. Governance faults become a NOT_DEPLOYABLE
// result; every other collaborator error is returned and no Outcome is built.
// A transitioned Outcome exists only after its proof events are stored.
func (s *Service) Run(ctx context.Context, in verdict.Input, opts verdict.Options) (Outcome, error) {
	start := time.Now()
	defer func() { s.metrics.duration.Observe(time.Since(start).Seconds()) }()

	log := s.logger.With("strategy_id", in.StrategyID, "strategy_version", in.StrategyVersion)

	var res verdict.Result
	var source config.Source
	loaded, err := s.loader.LoadActiveConfigWithFallback(ctx)
	if err != nil {
		code, ok := governanceCode(err)
		if !ok {
			return Outcome{}, fmt.Errorf("load threshold snapshot: %w", err)
		}
		log.Warn("config governance failure", "reason", code, "error", err)
		s.metrics.governanceFailures.WithLabelValues(string(code)).Inc()
		res = verdict.GovernanceFailure(in, code)
	} else {
		source = loaded.Source
		log.Info("threshold snapshot loaded",
			"config_version", loaded.Snapshot.ConfigVersion,
			"source", source)
		res = verdict.NewEngine(loaded.Snapshot).Evaluate(in, opts)
	}

	current, err := s.lifecycle.CurrentState(ctx, in.StrategyID)
	if err != nil {
		return Outcome{}, fmt.Errorf("read lifecycle state: %w", err)
	}
	decision := lifecycle.Decide(res.Verdict, current)

	recordID := s.newID()
	events, err := s.proofs.AppendProofEvents(ctx, proofDrafts(recordID, s.now(), res, source, decision))
	if err != nil {
		s.metrics.persistFailures.Inc()
		log.Error("proof persistence failed", "record_id", recordID, "error", err)
		return Outcome{}, fmt.Errorf("persist proof events: %w", err)
	}

	state := current
	if decision.Transition {
		if err := s.lifecycle.ApplyTransition(ctx, in.StrategyID, decision, recordID); err != nil {
			return Outcome{}, fmt.Errorf("apply lifecycle transition: %w", err)
		}
		state = decision.To
		s.metrics.transitions.WithLabelValues(string(decision.From), string(decision.To)).Inc()
		log.Info("lifecycle transition applied", "record_id", recordID, "from", decision.From, "to", decision.To)
	}

	s.metrics.runs.WithLabelValues(string(res.Verdict), sourceLabel(source)).Inc()
	log.Info("verification complete", "record_id", recordID, "verdict", res.Verdict, "reason_codes", res.ReasonCodes)

	return Outcome{
		RecordID:       recordID,
		Result:         res,
		ConfigSource:   source,
		Decision:       decision,
		LifecycleState: state,
		ProofEvents:    events,
	}, nil
}

// #endregion run

// #region helpers
func governanceCode(err error) (reason.Code, bool) {
	var integrity *config.ConfigIntegrityError
	if errors.As(err, &integrity) {
		return reason.ConfigHashMismatch, true
	}
	if errors.Is(err, config.ErrNoActiveConfig) {
		return reason.ConfigSnapshotMissing, true
	}
	return "", false
}

func sourceLabel(src config.Source) string {
	if src == "" {
		return "none"
	}
	return string(src)
}

// proofDrafts builds RUN_COMPLETED and, for a transition, PASSED chained after
// it. Both share recordID and at.
func proofDrafts(recordID string, at time.Time, res verdict.Result, src config.Source, d lifecycle.Decision) []proof.Draft {
	drafts := []proof.Draft{{
		StrategyID: res.StrategyID,
		Type:       proof.EventVerificationRunCompleted,
		RecordID:   recordID,
		Payload: map[string]any{
			"strategyVersion": res.StrategyVersion,
			"verdict":         res.Verdict,
			"reasonCodes":     res.ReasonCodes,
			"scores":          res.Scores,
			"configVersion":   res.ThresholdsUsed.ConfigVersion,
			"thresholdsHash":  res.ThresholdsUsed.ThresholdsHash,
			"configSource":    sourceLabel(src),
			"warnings":        res.Warnings,
			"decision":        d,
		},
		CreatedAt: at,
	}}
	if d.Transition {
		drafts = append(drafts, proof.Draft{
			StrategyID: res.StrategyID,
			Type:       proof.EventVerificationPassed,
			RecordID:   recordID,
			Payload: map[string]any{
				"strategyVersion": res.StrategyVersion,
				"fromState":       d.From,
				"toState":         d.To,
				"configVersion":   res.ThresholdsUsed.ConfigVersion,
				"thresholdsHash":  res.ThresholdsUsed.ThresholdsHash,
			},
			CreatedAt: at,
		})
	}
	return drafts
}

// #endregion helpers
