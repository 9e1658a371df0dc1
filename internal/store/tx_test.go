package store

import (
	"context"
	"testing"

	"github.com/fennward/factorytwin/internal/sim"
)

func txRecord(tick sim.Tick) sim.HistoryRecord {
	return sim.HistoryRecord{
		Tick:     tick,
		RunToken: "run-tx",
		Kind:     sim.EventTickAdvanced,
		Payload:  sim.TickAdvancedPayload(1),
	}
}

func TestTx_CommitPersistsAllRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	for i := 1; i <= 3; i++ {
		seq, err := tx.AppendHistory(ctx, txRecord(sim.Tick(i)))
		if err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
		if seq != int64(i) {
			t.Errorf("seq = %d, want %d", seq, i)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}

	records, err := s.QueryHistory(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("got %d records after commit, want 3", len(records))
	}
}

func TestTx_RollbackDiscardsAllRecords(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	// Several appends succeed inside the transaction, then the whole
	// operation is abandoned; none of them may survive.
	for i := 1; i <= 3; i++ {
		if _, err := tx.AppendHistory(ctx, txRecord(sim.Tick(i))); err != nil {
			t.Fatalf("append %d: %v", i, err)
		}
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	records, err := s.QueryHistory(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 0 {
		t.Fatalf("got %d records after rollback, want 0", len(records))
	}
	seq, err := s.LastHistorySeq(ctx)
	if err != nil {
		t.Fatalf("last seq: %v", err)
	}
	if seq != 0 {
		t.Errorf("last seq = %d after rollback, want 0", seq)
	}
}

func TestTx_RollbackDiscardsSnapshot(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.AppendHistory(ctx, txRecord(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	state := sim.NewFactoryState(sim.DefaultConfig())
	state.SimTime = 1
	if _, err := tx.WriteSnapshot(ctx, state, 1); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	_, ok, err := s.LatestSnapshot(ctx)
	if err != nil {
		t.Fatalf("latest snapshot: %v", err)
	}
	if ok {
		t.Error("rolled-back snapshot is visible")
	}
}

func TestTx_RollbackAfterCommitIsNoOp(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.AppendHistory(ctx, txRecord(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Commit(); err != nil {
		t.Fatalf("commit: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Errorf("rollback after commit: %v", err)
	}

	records, err := s.QueryHistory(ctx, HistoryFilter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("got %d records, want 1", len(records))
	}
}

// Sequences restart cleanly after a rollback: the next committed record
// reuses the discarded seq, so the log stays gapless.
func TestTx_SequenceGaplessAfterRollback(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := tx.AppendHistory(ctx, txRecord(1)); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("rollback: %v", err)
	}

	seq, err := s.AppendHistory(ctx, txRecord(2))
	if err != nil {
		t.Fatalf("append after rollback: %v", err)
	}
	if seq != 1 {
		t.Errorf("seq = %d after rollback, want 1", seq)
	}
}
