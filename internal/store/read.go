package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/fennward/factorytwin/internal/sim"
)

// HistoryFilter selects history records. Zero values mean "no constraint".
type HistoryFilter struct {
	FromTick *sim.Tick     // Inclusive lower bound on tick
	ToTick   *sim.Tick     // Inclusive upper bound on tick
	Kind     sim.EventKind // Exact event kind
	AfterSeq int64         // Only records with seq strictly greater
	Limit    int           // Max records returned, 0 = unlimited
}

// QueryHistory returns history records matching the filter.
// Results are ordered by seq ASC for deterministic reads.
func (s *Store) QueryHistory(ctx context.Context, f HistoryFilter) ([]sim.HistoryRecord, error) {
	if f.Kind != "" && !sim.ValidEventKinds[f.Kind] {
		return nil, sim.NewInvalidArgument(fmt.Sprintf("unknown event kind %q", f.Kind))
	}

	var (
		where []string
		args  []any
	)
	if f.FromTick != nil {
		where = append(where, "tick >= ?")
		args = append(args, int64(*f.FromTick))
	}
	if f.ToTick != nil {
		where = append(where, "tick <= ?")
		args = append(args, int64(*f.ToTick))
	}
	if f.Kind != "" {
		where = append(where, "kind = ?")
		args = append(args, string(f.Kind))
	}
	if f.AfterSeq > 0 {
		where = append(where, "seq > ?")
		args = append(args, f.AfterSeq)
	}

	query := "SELECT seq, tick, run_token, kind, payload FROM history"
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"
	if f.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var records []sim.HistoryRecord
	for rows.Next() {
		rec, err := scanHistory(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}
	if records == nil {
		records = []sim.HistoryRecord{}
	}
	return records, nil
}

func scanHistory(rows *sql.Rows) (sim.HistoryRecord, error) {
	var (
		rec     sim.HistoryRecord
		tick    int64
		kind    string
		payload string
	)
	if err := rows.Scan(&rec.Seq, &tick, &rec.RunToken, &kind, &payload); err != nil {
		return rec, fmt.Errorf("scan history: %w", err)
	}
	rec.Tick = sim.Tick(tick)
	rec.Kind = sim.EventKind(kind)
	if err := json.Unmarshal([]byte(payload), &rec.Payload); err != nil {
		return rec, fmt.Errorf("decode payload (seq %d): %w", rec.Seq, err)
	}
	return rec, nil
}

// Snapshot is a persisted full-state record.
type Snapshot struct {
	Seq        int64
	HistorySeq int64
	State      *sim.FactoryState
}

// LatestSnapshot returns the most recent snapshot, or ok=false when the
// database holds none (fresh run).
func (s *Store) LatestSnapshot(ctx context.Context) (Snapshot, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT seq, tick, history_seq, cash_balance, raw_material_stock, finished_goods_stock, shift, next_job_id, machines_json, jobs_json
		FROM factory_snapshots
		ORDER BY seq DESC
		LIMIT 1
	`)

	var (
		snap         Snapshot
		tick         int64
		shift        string
		nextJobID    int64
		machinesJSON string
		jobsJSON     string
	)
	state := &sim.FactoryState{}
	err := row.Scan(&snap.Seq, &tick, &snap.HistorySeq, &state.CashBalance,
		&state.RawMaterialStock, &state.FinishedGoodsStock, &shift, &nextJobID,
		&machinesJSON, &jobsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return Snapshot{}, false, nil
	}
	if err != nil {
		return Snapshot{}, false, fmt.Errorf("latest snapshot: %w", err)
	}

	state.SimTime = sim.Tick(tick)
	state.Shift = sim.Shift(shift)
	state.NextJobID = sim.JobID(nextJobID)
	if err := json.Unmarshal([]byte(machinesJSON), &state.Machines); err != nil {
		return Snapshot{}, false, fmt.Errorf("latest snapshot: decode machines: %w", err)
	}
	if err := json.Unmarshal([]byte(jobsJSON), &state.Jobs); err != nil {
		return Snapshot{}, false, fmt.Errorf("latest snapshot: decode jobs: %w", err)
	}
	if state.Jobs == nil {
		state.Jobs = make(map[sim.JobID]*sim.Job)
	}
	snap.State = state
	return snap, true, nil
}

// LastHistorySeq returns the highest history sequence, 0 when empty.
func (s *Store) LastHistorySeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM history`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("last history seq: %w", err)
	}
	return seq.Int64, nil
}
