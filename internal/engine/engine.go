package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/fennward/factorytwin/internal/jobs"
	"github.com/fennward/factorytwin/internal/ledger"
	"github.com/fennward/factorytwin/internal/machines"
	"github.com/fennward/factorytwin/internal/market"
	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// Engine is the state engine facade: the single entry point mutating or
// querying the factory twin.
//
// INVARIANTS:
//   - One mutation at a time, history written before success is reported
//   - Stock quantities never negative; cash may carry debt
//   - The clock only moves forward, driven by Tick
type Engine struct {
	mu sync.RWMutex

	cfg      sim.Config
	state    *sim.FactoryState
	store    *store.Store
	market   *market.Model
	ledger   *ledger.Ledger
	registry *machines.Registry
	jobs     *jobs.Manager
	clock    *Clock
	logger   *slog.Logger

	runToken string

	// lastHistorySeq is the append sequence of the newest record this run
	// wrote; snapshots link to it so replay knows where to resume.
	lastHistorySeq int64
	// lastSnapshotTick is when the last periodic snapshot was taken.
	lastSnapshotTick sim.Tick
}

// Option configures the engine.
type Option func(*Engine)

// WithRunTokenGenerator overrides the run token source (tests use
// FixedGenerator for deterministic traces).
func WithRunTokenGenerator(g RunTokenGenerator) Option {
	return func(e *Engine) { e.runToken = g.Generate() }
}

// WithLogger overrides the default slog logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New constructs an engine over an opened store.
//
// The current state is reconstructed from the store (latest snapshot plus
// history tail); an empty database starts a fresh plant from cfg. The
// caller keeps ownership of the store and closes it after the engine is
// done.
func New(ctx context.Context, st *store.Store, cfg sim.Config, opts ...Option) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, sim.NewInvalidArgument(err.Error())
	}

	state, err := st.Replay(ctx, cfg)
	if err != nil {
		return nil, sim.NewPersistenceFailure("restore state", err)
	}
	lastSeq, err := st.LastHistorySeq(ctx)
	if err != nil {
		return nil, sim.NewPersistenceFailure("read history position", err)
	}

	// The snapshot cadence is anchored to the last persisted snapshot, not
	// to the restored tick: a plant driven one tick per process still takes
	// its periodic snapshot once enough simulated time accumulates.
	var lastSnapshotTick sim.Tick
	if snap, ok, err := st.LatestSnapshot(ctx); err != nil {
		return nil, sim.NewPersistenceFailure("read snapshot position", err)
	} else if ok {
		lastSnapshotTick = snap.State.SimTime
	}

	e := &Engine{
		cfg:              cfg,
		state:            state,
		store:            st,
		market:           market.New(cfg),
		clock:            NewClockAt(int64(state.SimTime)),
		logger:           slog.Default(),
		lastHistorySeq:   lastSeq,
		lastSnapshotTick: lastSnapshotTick,
	}
	e.ledger = ledger.New(state)
	e.registry = machines.New(state, cfg)
	e.jobs = jobs.New(state, cfg, e.ledger, e.registry)

	for _, opt := range opts {
		opt(e)
	}
	if e.runToken == "" {
		e.runToken = UUIDv7Generator{}.Generate()
	}

	e.logger.Info("engine ready",
		"run_token", e.runToken,
		"tick", int64(state.SimTime),
		"cash", state.CashBalance,
		"raw_stock", state.RawMaterialStock,
		"machines", len(state.Machines))
	return e, nil
}

// RunToken returns the token identifying this run in the history log.
func (e *Engine) RunToken() string {
	return e.runToken
}

// Config returns the plant configuration the engine was built with.
func (e *Engine) Config() sim.Config {
	return e.cfg
}

// checkpoint captures everything a failed mutating operation must restore:
// the state and the persistence cursors tied to it.
type checkpoint struct {
	state            *sim.FactoryState
	lastHistorySeq   int64
	lastSnapshotTick sim.Tick
}

// save captures the current checkpoint. Must be called with the write lock
// held.
func (e *Engine) save() checkpoint {
	return checkpoint{
		state:            e.state.Clone(),
		lastHistorySeq:   e.lastHistorySeq,
		lastSnapshotTick: e.lastSnapshotTick,
	}
}

// restore rewinds to a checkpoint. The components all share the state
// pointer, so the restore copies into the existing allocation rather than
// swapping it.
func (e *Engine) restore(cp checkpoint) {
	*e.state = *cp.state
	e.lastHistorySeq = cp.lastHistorySeq
	e.lastSnapshotTick = cp.lastSnapshotTick
	e.clock = NewClockAt(int64(cp.state.SimTime))
}

// transact runs one mutating operation against a single store transaction.
// All of the operation's records commit together; on any failure both the
// transaction and the in-memory state are rolled back, so the durable log
// never carries a partial operation.
//
// Must be called with the write lock held.
func (e *Engine) transact(ctx context.Context, fn func(tx *store.Tx) error) error {
	cp := e.save()
	tx, err := e.store.Begin(ctx)
	if err != nil {
		return sim.NewPersistenceFailure("begin transaction", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		e.restore(cp)
		return err
	}
	if err := tx.Commit(); err != nil {
		e.restore(cp)
		return sim.NewPersistenceFailure("commit transaction", err)
	}
	return nil
}

// append writes one history record stamped with the current tick into the
// operation's transaction.
func (e *Engine) append(ctx context.Context, tx *store.Tx, kind sim.EventKind, payload map[string]any) error {
	seq, err := tx.AppendHistory(ctx, sim.HistoryRecord{
		Tick:     e.state.SimTime,
		RunToken: e.runToken,
		Kind:     kind,
		Payload:  payload,
	})
	if err != nil {
		return sim.NewPersistenceFailure("append history", err)
	}
	e.lastHistorySeq = seq
	return nil
}

// snapshotIfDue writes a periodic full snapshot when the interval has
// passed, within the tick's transaction, after its other records are
// appended.
func (e *Engine) snapshotIfDue(ctx context.Context, tx *store.Tx) error {
	if e.state.SimTime-e.lastSnapshotTick < sim.Tick(e.cfg.SnapshotIntervalTicks) {
		return nil
	}
	if err := e.append(ctx, tx, sim.EventSnapshotTaken, map[string]any{
		"tick": int64(e.state.SimTime),
	}); err != nil {
		return err
	}
	if _, err := tx.WriteSnapshot(ctx, e.state, e.lastHistorySeq); err != nil {
		return sim.NewPersistenceFailure("write snapshot", err)
	}
	e.lastSnapshotTick = e.state.SimTime
	e.logger.Debug("snapshot taken", "tick", int64(e.state.SimTime), "history_seq", e.lastHistorySeq)
	return nil
}
