package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/danielpatrickdp/strategy-verifier/internal/lifecycle"
)

// #region strategy
// Strategy is a registered strategy row.
type Strategy struct {
	StrategyID     string          `json:"strategyId"`
	Version        int             `json:"strategyVersion"`
	LifecycleState lifecycle.State `json:"lifecycleState"`
	UpdatedAt      time.Time       `json:"updatedAt"`
}

// Transition is one applied lifecycle move.
type Transition struct {
	StrategyID string          `json:"strategyId"`
	From       lifecycle.State `json:"from"`
	To         lifecycle.State `json:"to"`
	RecordID   string          `json:"recordId"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// #endregion strategy

// #region register
// RegisterStrategy inserts or replaces a strategy with the given state.
func (s *Store) RegisterStrategy(ctx context.Context, strategyID string, version int, state lifecycle.State) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO strategies (strategy_id, strategy_version, lifecycle_state, updated_at)
		 VALUES (?, ?, ?, ?)
		 ON CONFLICT(strategy_id) DO UPDATE SET
		   strategy_version = excluded.strategy_version,
		   lifecycle_state = excluded.lifecycle_state,
		   updated_at = excluded.updated_at`,
		strategyID, version, string(state), formatTime(s.now()),
	)
	if err != nil {
		return fmt.Errorf("register strategy %s: %w", strategyID, err)
	}
	return nil
}

// GetStrategy returns a registered strategy.
func (s *Store) GetStrategy(ctx context.Context, strategyID string) (Strategy, error) {
	var st Strategy
	var state, updated string
	err := s.db.QueryRowContext(ctx,
		`SELECT strategy_id, strategy_version, lifecycle_state, updated_at FROM strategies WHERE strategy_id = ?`,
		strategyID,
	).Scan(&st.StrategyID, &st.Version, &state, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Strategy{}, fmt.Errorf("%s: %w", strategyID, ErrStrategyNotFound)
	}
	if err != nil {
		return Strategy{}, fmt.Errorf("get strategy: %w", err)
	}
	st.LifecycleState = lifecycle.State(state)
	if t, err := time.Parse(time.RFC3339Nano, updated); err == nil {
		st.UpdatedAt = t
	}
	return st, nil
}

// #endregion register

// #region lifecycle-store
// CurrentState returns the strategy's lifecycle state. It satisfies
// lifecycle.Store.
func (s *Store) CurrentState(ctx context.Context, strategyID string) (lifecycle.State, error) {
	st, err := s.GetStrategy(ctx, strategyID)
	if err != nil {
		return "", err
	}
	return st.LifecycleState, nil
}

// ApplyTransition moves the strategy from d.From to d.To only if it is still
// in d.From, and records the move. A decision without a transition is a no-op.
func (s *Store) ApplyTransition(ctx context.Context, strategyID string, d lifecycle.Decision, recordID string) error {
	if !d.Transition {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := formatTime(s.now())
	res, err := tx.ExecContext(ctx,
		`UPDATE strategies SET lifecycle_state = ?, updated_at = ?
		 WHERE strategy_id = ? AND lifecycle_state = ?`,
		string(d.To), now, strategyID, string(d.From),
	)
	if err != nil {
		return fmt.Errorf("update lifecycle state: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		var exists int
		if err := tx.QueryRowContext(ctx,
			`SELECT COUNT(*) FROM strategies WHERE strategy_id = ?`, strategyID,
		).Scan(&exists); err != nil {
			return fmt.Errorf("check strategy: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("%s: %w", strategyID, ErrStrategyNotFound)
		}
		return fmt.Errorf("%s expected %s: %w", strategyID, d.From, ErrStaleLifecycleState)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO lifecycle_transitions (strategy_id, from_state, to_state, record_id, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		strategyID, string(d.From), string(d.To), recordID, now,
	); err != nil {
		return fmt.Errorf("insert transition: %w", err)
	}

	return tx.Commit()
}

// #endregion lifecycle-store

// #region transitions
// Transitions returns the strategy's applied moves, oldest first.
func (s *Store) Transitions(ctx context.Context, strategyID string) ([]Transition, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT strategy_id, from_state, to_state, record_id, created_at
		 FROM lifecycle_transitions WHERE strategy_id = ? ORDER BY id ASC`, strategyID)
	if err != nil {
		return nil, fmt.Errorf("query transitions: %w", err)
	}
	defer rows.Close()

	var out []Transition
	for rows.Next() {
		var tr Transition
		var from, to, created string
		if err := rows.Scan(&tr.StrategyID, &from, &to, &tr.RecordID, &created); err != nil {
			return nil, fmt.Errorf("scan transition: %w", err)
		}
		tr.From = lifecycle.State(from)
		tr.To = lifecycle.State(to)
		if t, err := time.Parse(time.RFC3339Nano, created); err == nil {
			tr.CreatedAt = t
		}
		out = append(out, tr)
	}
	return out, rows.Err()
}

// #endregion transitions
