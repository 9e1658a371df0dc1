package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/fennward/factorytwin/internal/sim"
)

// execer abstracts the write target so the same statements run against the
// database directly or inside a transaction.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Tx is a single write transaction. Mutating engine operations append all
// of their records through one Tx, so a failure mid-operation leaves no
// partial history behind the reported outcome.
type Tx struct {
	tx *sql.Tx
}

// Begin starts a write transaction.
func (s *Store) Begin(ctx context.Context) (*Tx, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Commit makes the transaction's writes durable.
func (t *Tx) Commit() error {
	if err := t.tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Rollback discards the transaction's writes. Safe to call after Commit.
func (t *Tx) Rollback() error {
	if err := t.tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		return fmt.Errorf("rollback transaction: %w", err)
	}
	return nil
}

// AppendHistory inserts a history record within the transaction.
func (t *Tx) AppendHistory(ctx context.Context, rec sim.HistoryRecord) (int64, error) {
	return appendHistory(ctx, t.tx, rec)
}

// WriteSnapshot persists the full factory state within the transaction.
func (t *Tx) WriteSnapshot(ctx context.Context, state *sim.FactoryState, historySeq int64) (int64, error) {
	return writeSnapshot(ctx, t.tx, state, historySeq)
}

// AppendHistory inserts a history record and returns its append sequence.
func (s *Store) AppendHistory(ctx context.Context, rec sim.HistoryRecord) (int64, error) {
	return appendHistory(ctx, s.db, rec)
}

// WriteSnapshot persists the full factory state. historySeq is the last
// history sequence the snapshot covers; replay applies only records after
// it.
func (s *Store) WriteSnapshot(ctx context.Context, state *sim.FactoryState, historySeq int64) (int64, error) {
	return writeSnapshot(ctx, s.db, state, historySeq)
}

// appendHistory writes one record. The payload is serialized as canonical
// JSON so identical events persist as identical bytes.
func appendHistory(ctx context.Context, ex execer, rec sim.HistoryRecord) (int64, error) {
	payload, err := sim.MarshalCanonical(rec.Payload)
	if err != nil {
		return 0, fmt.Errorf("append history: encode payload: %w", err)
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO history (tick, run_token, kind, payload)
		VALUES (?, ?, ?, ?)
	`, int64(rec.Tick), rec.RunToken, string(rec.Kind), string(payload))
	if err != nil {
		return 0, fmt.Errorf("append history: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("append history: last insert id: %w", err)
	}
	return seq, nil
}

// writeSnapshot writes one full-state row. Machines and jobs serialize as
// JSON documents, mirroring the working in-memory representation.
func writeSnapshot(ctx context.Context, ex execer, state *sim.FactoryState, historySeq int64) (int64, error) {
	machinesJSON, err := json.Marshal(state.Machines)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: encode machines: %w", err)
	}
	jobsJSON, err := json.Marshal(state.Jobs)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: encode jobs: %w", err)
	}

	result, err := ex.ExecContext(ctx, `
		INSERT INTO factory_snapshots
		(tick, history_seq, cash_balance, raw_material_stock, finished_goods_stock, shift, next_job_id, machines_json, jobs_json)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		int64(state.SimTime),
		historySeq,
		state.CashBalance,
		state.RawMaterialStock,
		state.FinishedGoodsStock,
		string(state.Shift),
		int64(state.NextJobID),
		string(machinesJSON),
		string(jobsJSON),
	)
	if err != nil {
		return 0, fmt.Errorf("write snapshot: %w", err)
	}

	seq, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("write snapshot: last insert id: %w", err)
	}
	return seq, nil
}
