package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/danielpatrickdp/strategy-verifier/internal/proof"
)

// #region append
// AppendProofEvent appends one event to its record's chain.
func (s *Store) AppendProofEvent(ctx context.Context, d proof.Draft) (proof.Event, error) {
	events, err := s.AppendProofEvents(ctx, []proof.Draft{d})
	if err != nil {
		return proof.Event{}, err
	}
	return events[0], nil
}

// AppendProofEvents appends drafts to one record's chain in a single
// transaction: either every event is stored or none is. All drafts must share
// a RecordID. The chain head is read inside the transaction, and the
// (session_id, sequence) constraint rejects a concurrent writer that raced to
// the same sequence.
func (s *Store) AppendProofEvents(ctx context.Context, drafts []proof.Draft) ([]proof.Event, error) {
	if len(drafts) == 0 {
		return nil, nil
	}
	recordID := drafts[0].RecordID
	for _, d := range drafts[1:] {
		if d.RecordID != recordID {
			return nil, fmt.Errorf("append proof events: mixed record ids %q and %q", recordID, d.RecordID)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	head, err := chainHead(ctx, tx, recordID)
	if err != nil {
		return nil, err
	}
	events, err := proof.Build(head, drafts)
	if err != nil {
		return nil, fmt.Errorf("build proof events: %w", err)
	}

	for _, ev := range events {
		payload, err := json.Marshal(ev.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO proof_events (session_id, sequence, strategy_id, type, event_hash, prev_event_hash, payload, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			ev.RecordID, ev.Sequence, ev.StrategyID, string(ev.Type), ev.EventHash, ev.PrevEventHash,
			string(payload), formatTime(ev.CreatedAt),
		); err != nil {
			return nil, fmt.Errorf("insert proof event %s/%d: %w", ev.RecordID, ev.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit proof events: %w", err)
	}
	return events, nil
}

func chainHead(ctx context.Context, tx *sql.Tx, recordID string) (*proof.Event, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT sequence, strategy_id, type, session_id, event_hash, prev_event_hash, payload, created_at
		 FROM proof_events WHERE session_id = ? ORDER BY sequence DESC LIMIT 1`, recordID)
	ev, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read chain head: %w", err)
	}
	return &ev, nil
}

// #endregion append

// #region read
// ProofEvents returns a record's events in ascending sequence order.
func (s *Store) ProofEvents(ctx context.Context, recordID string) ([]proof.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT sequence, strategy_id, type, session_id, event_hash, prev_event_hash, payload, created_at
		 FROM proof_events WHERE session_id = ? ORDER BY sequence ASC`, recordID)
	if err != nil {
		return nil, fmt.Errorf("query proof events: %w", err)
	}
	defer rows.Close()

	var out []proof.Event
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan proof event: %w", err)
		}
		out = append(out, ev)
	}
	return out, rows.Err()
}

// VerifyRecord loads a record's events and verifies the chain.
func (s *Store) VerifyRecord(ctx context.Context, recordID string) (proof.VerifyResult, error) {
	events, err := s.ProofEvents(ctx, recordID)
	if err != nil {
		return proof.VerifyResult{}, err
	}
	return proof.VerifyProofChain(events, recordID), nil
}

// #endregion read

func scanEvent(row scanner) (proof.Event, error) {
	var ev proof.Event
	var typ, payload, created string
	if err := row.Scan(&ev.Sequence, &ev.StrategyID, &typ, &ev.RecordID, &ev.EventHash,
		&ev.PrevEventHash, &payload, &created); err != nil {
		return proof.Event{}, err
	}
	ev.Type = proof.EventType(typ)

	dec := json.NewDecoder(strings.NewReader(payload))
	dec.UseNumber()
	if err := dec.Decode(&ev.Payload); err != nil {
		return proof.Event{}, fmt.Errorf("decode payload: %w", err)
	}
	if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
		ev.CreatedAt = t
	}
	return ev, nil
}
