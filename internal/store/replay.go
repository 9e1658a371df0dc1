package store

import (
	"context"
	"fmt"

	"github.com/fennward/factorytwin/internal/sim"
)

// Replay reconstructs the current factory state: latest snapshot plus every
// history record after it. When no snapshot exists, replay starts from the
// initial state for cfg and applies the whole log.
//
// Every mutating engine operation appends records carrying its full state
// delta, so the reconstruction is exact - the round trip through a restart
// yields the state at snapshot time plus everything recorded afterward.
func (s *Store) Replay(ctx context.Context, cfg sim.Config) (*sim.FactoryState, error) {
	var (
		state    *sim.FactoryState
		afterSeq int64
	)
	snap, ok, err := s.LatestSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	if ok {
		state = snap.State
		afterSeq = snap.HistorySeq
	} else {
		state = sim.NewFactoryState(cfg)
	}

	records, err := s.QueryHistory(ctx, HistoryFilter{AfterSeq: afterSeq})
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		if err := applyRecord(state, rec); err != nil {
			return nil, fmt.Errorf("replay seq %d (%s): %w", rec.Seq, rec.Kind, err)
		}
	}
	return state, nil
}

// applyRecord replays one history record's state delta.
func applyRecord(state *sim.FactoryState, rec sim.HistoryRecord) error {
	p := payload(rec.Payload)
	switch rec.Kind {
	case sim.EventTickAdvanced:
		state.SimTime += sim.Tick(p.intOr("elapsed", 0))

	case sim.EventJobCreated:
		id := sim.JobID(p.intOr("job_id", 0))
		reserved := p.intOr("reserved_units", 0)
		cost := p.floatOr("material_cost", 0)
		machineID := p.intOr("machine_id", 0)

		state.RawMaterialStock -= reserved
		state.CashBalance -= cost

		now := rec.Tick
		job := &sim.Job{
			ID:             id,
			RequestedUnits: p.intOr("requested_units", 0),
			Status:         sim.JobRunning,
			CreatedAt:      now,
			StartedAt:      &now,
			MaterialCost:   cost,
			ReservedUnits:  reserved,
		}
		if machineID != 0 {
			mid := machineID
			job.MachineID = &mid
			if m := state.Machine(machineID); m != nil {
				m.Status = sim.MachineBusy
				jid := id
				m.JobID = &jid
			}
		}
		state.Jobs[id] = job
		if id >= state.NextJobID {
			state.NextJobID = id + 1
		}

	case sim.EventJobAdvanced:
		job := state.Jobs[sim.JobID(p.intOr("job_id", 0))]
		if job == nil {
			return fmt.Errorf("advance for unknown job")
		}
		job.ProducedUnits += p.intOr("produced_units", 0)
		job.ReservedUnits -= p.intOr("consumed_units", 0)

	case sim.EventJobCompleted:
		job := state.Jobs[sim.JobID(p.intOr("job_id", 0))]
		if job == nil {
			return fmt.Errorf("completion for unknown job")
		}
		job.ProducedUnits += p.intOr("produced_units", 0)
		job.ReservedUnits -= p.intOr("consumed_units", 0)
		released := p.intOr("released_units", 0)
		job.ReservedUnits -= released

		state.FinishedGoodsStock += p.intOr("lot_units", 0)
		state.RawMaterialStock += released

		now := rec.Tick
		job.Status = sim.JobCompleted
		job.CompletedAt = &now
		releaseMachineFor(state, job)

	case sim.EventJobFailed:
		job := state.Jobs[sim.JobID(p.intOr("job_id", 0))]
		if job == nil {
			return fmt.Errorf("failure for unknown job")
		}
		released := p.intOr("released_units", 0)
		state.RawMaterialStock += released
		job.ReservedUnits -= released

		now := rec.Tick
		job.Status = sim.JobFailed
		job.CompletedAt = &now
		releaseMachineFor(state, job)

	case sim.EventJobCancelled:
		job := state.Jobs[sim.JobID(p.intOr("job_id", 0))]
		if job == nil {
			return fmt.Errorf("cancel for unknown job")
		}
		released := p.intOr("released_units", 0)
		state.RawMaterialStock += released
		job.ReservedUnits -= released

		now := rec.Tick
		job.Status = sim.JobCancelled
		job.CompletedAt = &now
		releaseMachineFor(state, job)

	case sim.EventSaleExecuted:
		qty := p.intOr("quantity", 0)
		state.FinishedGoodsStock -= qty
		if state.FinishedGoodsStock < 0 {
			state.FinishedGoodsStock = 0
		}
		state.CashBalance += p.floatOr("revenue", 0)

	case sim.EventMachineFault:
		if m := state.Machine(p.intOr("machine_id", 0)); m != nil {
			m.Status = sim.MachineBroken
		}

	case sim.EventMachineRepaired:
		state.CashBalance -= p.floatOr("cost", 0)
		if m := state.Machine(p.intOr("machine_id", 0)); m != nil {
			m.Status = sim.MachineIdle
			m.JobID = nil
		}

	case sim.EventShiftChanged:
		state.Shift = sim.Shift(p.stringOr("shift", string(sim.ShiftDay)))

	case sim.EventForecastQueried, sim.EventSnapshotTaken, sim.EventIssueLogged:
		// No state delta.

	default:
		return fmt.Errorf("unknown event kind %q", rec.Kind)
	}
	return nil
}

// releaseMachineFor unbinds the job's machine. A Busy machine returns to
// Idle; a Broken one stays Broken until a repair record arrives.
func releaseMachineFor(state *sim.FactoryState, job *sim.Job) {
	if job.MachineID == nil {
		return
	}
	if m := state.Machine(*job.MachineID); m != nil && m.JobID != nil && *m.JobID == job.ID {
		m.JobID = nil
		if m.Status == sim.MachineBusy {
			m.Status = sim.MachineIdle
		}
	}
}

// payload wraps decoded JSON payloads. encoding/json decodes numbers as
// float64, so the accessors coerce.
type payload map[string]any

func (p payload) intOr(key string, def int) int {
	switch v := p[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	case int64:
		return int(v)
	default:
		return def
	}
}

func (p payload) floatOr(key string, def float64) float64 {
	switch v := p[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return def
	}
}

func (p payload) stringOr(key, def string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return def
}
