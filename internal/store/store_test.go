package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/danielpatrickdp/strategy-verifier/internal/config"
	"github.com/danielpatrickdp/strategy-verifier/internal/lifecycle"
	"github.com/danielpatrickdp/strategy-verifier/internal/proof"
)

func tempDB(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	s, err := NewStore(filepath.Join(dir, "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// #region snapshot-tests
func TestActiveSnapshotEmpty(t *testing.T) {
	s := tempDB(t)
	rec, err := s.ActiveSnapshot(context.Background())
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if rec != nil {
		t.Fatalf("expected nil record, got %+v", rec)
	}
}

func TestSaveActivateLoad(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	th := config.DefaultThresholds()
	th.MinTradeCount = 50
	snap := config.NewSnapshot("2025.2", th)

	if err := s.SaveSnapshot(ctx, snap); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.ActivateSnapshot(ctx, "2025.2", "ops"); err != nil {
		t.Fatalf("ActivateSnapshot: %v", err)
	}

	got, err := config.NewLoader(s, false, nil).LoadActiveConfig(ctx)
	if err != nil {
		t.Fatalf("LoadActiveConfig: %v", err)
	}
	if got != snap {
		t.Fatalf("expected %+v, got %+v", snap, got)
	}

	rec, err := s.ActiveSnapshot(ctx)
	if err != nil {
		t.Fatalf("ActiveSnapshot: %v", err)
	}
	if rec.ActivatedBy != "ops" || rec.ActivatedAt == nil {
		t.Fatalf("activation metadata not stored: %+v", rec)
	}
}

func TestActivateDeprecatesPrevious(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	for _, v := range []string{"a", "b"} {
		if err := s.SaveSnapshot(ctx, config.NewSnapshot(v, config.DefaultThresholds())); err != nil {
			t.Fatalf("SaveSnapshot %s: %v", v, err)
		}
	}
	if err := s.ActivateSnapshot(ctx, "a", ""); err != nil {
		t.Fatalf("activate a: %v", err)
	}
	if err := s.ActivateSnapshot(ctx, "b", ""); err != nil {
		t.Fatalf("activate b: %v", err)
	}

	recs, err := s.ListSnapshots(ctx)
	if err != nil {
		t.Fatalf("ListSnapshots: %v", err)
	}
	status := map[string]config.Status{}
	for _, r := range recs {
		status[r.ConfigVersion] = r.Status
	}
	if status["a"] != config.StatusDeprecated || status["b"] != config.StatusActive {
		t.Fatalf("unexpected statuses: %v", status)
	}
}

func TestActivateMissing(t *testing.T) {
	s := tempDB(t)
	err := s.ActivateSnapshot(context.Background(), "nope", "")
	if !errors.Is(err, ErrSnapshotNotFound) {
		t.Fatalf("expected ErrSnapshotNotFound, got %v", err)
	}
}

func TestTamperedSnapshotFailsIntegrity(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.SaveSnapshot(ctx, config.BuildConfigSnapshot()); err != nil {
		t.Fatalf("SaveSnapshot: %v", err)
	}
	if err := s.ActivateSnapshot(ctx, config.DefaultConfigVersion, ""); err != nil {
		t.Fatalf("ActivateSnapshot: %v", err)
	}
	if _, err := s.DB().Exec(
		`UPDATE threshold_snapshots SET snapshot = REPLACE(snapshot, '"minTradeCount":30', '"minTradeCount":5')`,
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}

	// fallback must not mask the mismatch
	_, err := config.NewLoader(s, true, nil).LoadActiveConfigWithFallback(ctx)
	var integrity *config.ConfigIntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("expected ConfigIntegrityError, got %v", err)
	}
}

// #endregion snapshot-tests

// #region proof-tests
func drafts(recordID string, n int) []proof.Draft {
	out := make([]proof.Draft, n)
	for i := range out {
		out[i] = proof.Draft{
			StrategyID: "strat-1",
			Type:       proof.EventVerificationRunCompleted,
			RecordID:   recordID,
			Payload:    map[string]any{"i": i, "composite": 0.81, "codes": []string{"ALL_CHECKS_PASSED"}},
			CreatedAt:  time.Date(2026, 3, 1, 12, 0, i, 0, time.UTC),
		}
	}
	return out
}

func TestAppendAndVerify(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()

	if _, err := s.AppendProofEvents(ctx, drafts("rec-1", 2)); err != nil {
		t.Fatalf("AppendProofEvents: %v", err)
	}
	ev, err := s.AppendProofEvent(ctx, drafts("rec-1", 1)[0])
	if err != nil {
		t.Fatalf("AppendProofEvent: %v", err)
	}
	if ev.Sequence != 3 {
		t.Fatalf("expected sequence 3, got %d", ev.Sequence)
	}

	res, err := s.VerifyRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("VerifyRecord: %v", err)
	}
	if !res.Valid || res.EventCount != 3 {
		t.Fatalf("expected valid chain of 3, got %+v", res)
	}

	// other scopes start their own chain
	other, err := s.AppendProofEvent(ctx, drafts("rec-2", 1)[0])
	if err != nil {
		t.Fatalf("AppendProofEvent rec-2: %v", err)
	}
	if other.Sequence != 1 || other.PrevEventHash != proof.GenesisHash {
		t.Fatalf("expected genesis event, got %+v", other)
	}
}

func TestStoredEventsMatchReturned(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	appended, err := s.AppendProofEvents(ctx, drafts("rec-1", 2))
	if err != nil {
		t.Fatalf("AppendProofEvents: %v", err)
	}
	stored, err := s.ProofEvents(ctx, "rec-1")
	if err != nil {
		t.Fatalf("ProofEvents: %v", err)
	}
	if len(stored) != len(appended) {
		t.Fatalf("expected %d events, got %d", len(appended), len(stored))
	}
	for i := range stored {
		if stored[i].EventHash != appended[i].EventHash {
			t.Fatalf("event %d hash changed across storage", i+1)
		}
		if !stored[i].CreatedAt.Equal(appended[i].CreatedAt) {
			t.Fatalf("event %d createdAt changed: %v vs %v", i+1, stored[i].CreatedAt, appended[i].CreatedAt)
		}
	}
}

func TestTamperedPayloadDetected(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if _, err := s.AppendProofEvents(ctx, drafts("rec-1", 3)); err != nil {
		t.Fatalf("AppendProofEvents: %v", err)
	}
	if _, err := s.DB().Exec(
		`UPDATE proof_events SET payload = REPLACE(payload, '0.81', '0.99') WHERE sequence = 2`,
	); err != nil {
		t.Fatalf("tamper: %v", err)
	}
	res, err := s.VerifyRecord(ctx, "rec-1")
	if err != nil {
		t.Fatalf("VerifyRecord: %v", err)
	}
	if res.Valid || res.BrokenAt != 2 {
		t.Fatalf("expected break at 2, got %+v", res)
	}
}

func TestAppendMixedRecordIDs(t *testing.T) {
	s := tempDB(t)
	ds := append(drafts("rec-1", 1), drafts("rec-2", 1)...)
	if _, err := s.AppendProofEvents(context.Background(), ds); err == nil {
		t.Fatal("expected error for mixed record ids")
	}
	events, err := s.ProofEvents(context.Background(), "rec-1")
	if err != nil {
		t.Fatalf("ProofEvents: %v", err)
	}
	if len(events) != 0 {
		t.Fatalf("expected nothing stored, got %d", len(events))
	}
}

func TestUniqueSequencePerRecord(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	ev, err := s.AppendProofEvent(ctx, drafts("rec-1", 1)[0])
	if err != nil {
		t.Fatalf("AppendProofEvent: %v", err)
	}
	_, err = s.DB().Exec(
		`INSERT INTO proof_events (session_id, sequence, strategy_id, type, event_hash, prev_event_hash, payload, created_at)
		 VALUES (?, 1, 's', 'VERIFICATION_PASSED', ?, ?, '{}', '')`,
		ev.RecordID, strings.Repeat("a", 64), proof.GenesisHash,
	)
	if err == nil {
		t.Fatal("expected unique constraint violation")
	}
}

func TestConcurrentAppendsSameRecord(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	const writers = 20

	var wg sync.WaitGroup
	errs := make(chan error, writers)
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := s.AppendProofEvent(ctx, drafts("rec-c", 1)[0]); err != nil {
				errs <- err
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent AppendProofEvent: %v", err)
	}

	res, err := s.VerifyRecord(ctx, "rec-c")
	if err != nil {
		t.Fatalf("VerifyRecord: %v", err)
	}
	if !res.Valid || res.EventCount != writers {
		t.Fatalf("expected valid chain of %d, got %+v", writers, res)
	}
	events, err := s.ProofEvents(ctx, "rec-c")
	if err != nil {
		t.Fatalf("ProofEvents: %v", err)
	}
	for i, ev := range events {
		if ev.Sequence != int64(i+1) {
			t.Fatalf("event %d has sequence %d", i, ev.Sequence)
		}
	}
}

// #endregion proof-tests

// #region lifecycle-tests
func TestApplyTransition(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.RegisterStrategy(ctx, "strat-1", 3, lifecycle.StateBacktested); err != nil {
		t.Fatalf("RegisterStrategy: %v", err)
	}
	d := lifecycle.Decide("READY", lifecycle.StateBacktested)
	if err := s.ApplyTransition(ctx, "strat-1", d, "rec-1"); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	state, err := s.CurrentState(ctx, "strat-1")
	if err != nil {
		t.Fatalf("CurrentState: %v", err)
	}
	if state != lifecycle.StateVerified {
		t.Fatalf("expected verified, got %s", state)
	}

	trs, err := s.Transitions(ctx, "strat-1")
	if err != nil {
		t.Fatalf("Transitions: %v", err)
	}
	if len(trs) != 1 || trs[0].RecordID != "rec-1" || trs[0].From != lifecycle.StateBacktested {
		t.Fatalf("unexpected transitions: %+v", trs)
	}

	// the same decision again is stale
	err = s.ApplyTransition(ctx, "strat-1", d, "rec-2")
	if !errors.Is(err, ErrStaleLifecycleState) {
		t.Fatalf("expected ErrStaleLifecycleState, got %v", err)
	}
}

func TestApplyNoTransitionIsNoop(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if err := s.RegisterStrategy(ctx, "strat-1", 1, lifecycle.StateBacktested); err != nil {
		t.Fatalf("RegisterStrategy: %v", err)
	}
	d := lifecycle.Decide("UNCERTAIN", lifecycle.StateBacktested)
	if err := s.ApplyTransition(ctx, "strat-1", d, "rec-1"); err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}
	state, _ := s.CurrentState(ctx, "strat-1")
	if state != lifecycle.StateBacktested {
		t.Fatalf("expected backtested, got %s", state)
	}
}

func TestUnknownStrategy(t *testing.T) {
	s := tempDB(t)
	ctx := context.Background()
	if _, err := s.CurrentState(ctx, "ghost"); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
	d := lifecycle.Decision{Transition: true, From: lifecycle.StateBacktested, To: lifecycle.StateVerified}
	if err := s.ApplyTransition(ctx, "ghost", d, "rec"); !errors.Is(err, ErrStrategyNotFound) {
		t.Fatalf("expected ErrStrategyNotFound, got %v", err)
	}
}

// #endregion lifecycle-tests
