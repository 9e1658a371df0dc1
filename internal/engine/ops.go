package engine

import (
	"context"
	"fmt"
	"sort"

	"github.com/fennward/factorytwin/internal/jobs"
	"github.com/fennward/factorytwin/internal/ledger"
	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// StartJob admits a production job for the requested units.
//
// Admission is atomic: raw material reservation, machine allocation and the
// material cost debit either all happen or none do, and the JOB_CREATED
// record is durable before the call returns. The returned job is a copy.
func (e *Engine) StartJob(ctx context.Context, units int) (*sim.Job, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if units <= 0 {
		// Validated before any state is touched.
		return nil, sim.NewInvalidArgument(fmt.Sprintf("requested units must be positive, got %d", units))
	}

	var job *sim.Job
	err := e.transact(ctx, func(tx *store.Tx) error {
		var err error
		job, err = e.jobs.Start(units)
		if err != nil {
			return err
		}
		return e.append(ctx, tx, sim.EventJobCreated, sim.JobCreatedPayload(job))
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("job started",
		"job_id", int64(job.ID),
		"units", units,
		"machine", *job.MachineID,
		"material_cost", job.MaterialCost)
	return job.Clone(), nil
}

// Tick advances the simulation by elapsed ticks: the clock moves, busy
// machines roll the fault die, and running jobs produce. One TICK_ADVANCED
// record plus one record per affected job is appended; a periodic snapshot
// is written when due. All of the tick's records commit in one transaction.
func (e *Engine) Tick(ctx context.Context, elapsed int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if elapsed <= 0 {
		return sim.NewInvalidArgument(fmt.Sprintf("elapsed ticks must be positive, got %d", elapsed))
	}

	return e.transact(ctx, func(tx *store.Tx) error {
		e.state.SimTime = sim.Tick(e.clock.Advance(int64(elapsed)))

		if err := e.append(ctx, tx, sim.EventTickAdvanced, sim.TickAdvancedPayload(elapsed)); err != nil {
			return err
		}

		// Fault injection precedes production: a machine that breaks this
		// tick produces nothing and fails its bound job.
		for _, id := range e.registry.FaultCheck(e.state.SimTime) {
			boundJob := e.registry.Fault(id)
			if err := e.append(ctx, tx, sim.EventMachineFault, sim.MachineFaultPayload(id)); err != nil {
				return err
			}
			e.logger.Warn("machine fault", "machine", id, "tick", int64(e.state.SimTime))

			if boundJob == nil {
				continue
			}
			res := e.jobs.FailForFault(*boundJob)
			if res.Outcome != jobs.OutcomeFailed {
				continue
			}
			if err := e.append(ctx, tx, sim.EventJobFailed,
				sim.JobFailedPayload(*boundJob, id, res.Released, res.Reason)); err != nil {
				return err
			}
			e.logger.Warn("job failed", "job_id", int64(*boundJob), "reason", res.Reason)
		}

		// Advance running jobs in ascending id order for determinism.
		for _, id := range e.activeJobIDs() {
			job := e.state.Jobs[id]
			res := e.jobs.Advance(job, elapsed)
			var err error
			switch res.Outcome {
			case jobs.OutcomeCompleted:
				err = e.append(ctx, tx, sim.EventJobCompleted,
					sim.JobCompletedPayload(id, res.Produced, res.Consumed, res.Released, job.RequestedUnits))
				if err == nil {
					e.logger.Info("job completed", "job_id", int64(id), "units", job.RequestedUnits)
				}
			case jobs.OutcomeFailed:
				mid := 0
				if job.MachineID != nil {
					mid = *job.MachineID
				}
				err = e.append(ctx, tx, sim.EventJobFailed,
					sim.JobFailedPayload(id, mid, res.Released, res.Reason))
			default:
				if res.Produced > 0 {
					err = e.append(ctx, tx, sim.EventJobAdvanced,
						sim.JobAdvancedPayload(id, res.Produced, res.Consumed))
				}
			}
			if err != nil {
				return err
			}
		}

		return e.snapshotIfDue(ctx, tx)
	})
}

// activeJobIDs returns non-terminal job ids in ascending order.
// Must be called with the lock held.
func (e *Engine) activeJobIDs() []sim.JobID {
	ids := make([]sim.JobID, 0, len(e.state.Jobs))
	for id, j := range e.state.Jobs {
		if !j.Status.Terminal() {
			ids = append(ids, id)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Sell moves finished goods at the current market conditions: quantity is
// min(stock, demand) and unsold goods stay for a later attempt. Selling
// with empty stock or zero demand is a no-op and appends nothing.
func (e *Engine) Sell(ctx context.Context) (jobs.SellResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	var res jobs.SellResult
	err := e.transact(ctx, func(tx *store.Tx) error {
		snapshot := e.market.Forecast(e.state.SimTime)
		res = e.jobs.Sell(snapshot)
		if res.Quantity == 0 {
			return nil
		}
		return e.append(ctx, tx, sim.EventSaleExecuted,
			sim.SalePayload(res.Quantity, res.UnitPrice, res.Revenue))
	})
	if err != nil {
		return jobs.SellResult{}, err
	}
	if res.Quantity > 0 {
		e.logger.Info("sale executed", "quantity", res.Quantity, "unit_price", res.UnitPrice, "revenue", res.Revenue)
	}
	return res, nil
}

// CancelJob stops a Queued or Running job. The machine and unconsumed
// reservation are released; spent material cost is not refunded.
func (e *Engine) CancelJob(ctx context.Context, id sim.JobID) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var released int
	err := e.transact(ctx, func(tx *store.Tx) error {
		job, rel, err := e.jobs.Cancel(id)
		if err != nil {
			return err
		}
		released = rel
		return e.append(ctx, tx, sim.EventJobCancelled, sim.JobCancelledPayload(job.ID, released))
	})
	if err != nil {
		return err
	}
	e.logger.Info("job cancelled", "job_id", int64(id), "released_units", released)
	return nil
}

// RepairMachine returns a Broken machine to Idle for the configured repair
// cost. The debit is strict: repairs are discretionary spend, so they are
// rejected rather than pushing the plant further into debt.
func (e *Engine) RepairMachine(ctx context.Context, machineID int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	err := e.transact(ctx, func(tx *store.Tx) error {
		if err := e.ledger.Debit(e.cfg.RepairCost, ledger.RejectShortfall); err != nil {
			return err
		}
		if err := e.registry.Repair(machineID); err != nil {
			return err
		}
		return e.append(ctx, tx, sim.EventMachineRepaired,
			sim.MachineRepairedPayload(machineID, e.cfg.RepairCost))
	})
	if err != nil {
		return err
	}
	e.logger.Info("machine repaired", "machine", machineID, "cost", e.cfg.RepairCost)
	return nil
}

// ChangeShift switches between the day and night crews. Night shift runs
// machines harder, doubling the fault probability.
func (e *Engine) ChangeShift(ctx context.Context, s sim.Shift) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !sim.ValidShifts[s] {
		return sim.NewInvalidArgument(fmt.Sprintf("invalid shift %q: use DAY or NIGHT", s))
	}
	if e.state.Shift == s {
		return nil
	}

	err := e.transact(ctx, func(tx *store.Tx) error {
		e.state.Shift = s
		return e.append(ctx, tx, sim.EventShiftChanged, sim.ShiftChangedPayload(s))
	})
	if err != nil {
		return err
	}
	e.logger.Info("shift changed", "shift", string(s))
	return nil
}

// LogIssue records an operator-reported issue in the history log.
// The twin's state is unaffected; the record exists for audit.
func (e *Engine) LogIssue(ctx context.Context, category, description string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if category == "" {
		return sim.NewInvalidArgument("issue category must not be empty")
	}
	err := e.transact(ctx, func(tx *store.Tx) error {
		return e.append(ctx, tx, sim.EventIssueLogged, sim.IssuePayload(category, description))
	})
	if err != nil {
		return err
	}
	e.logger.Warn("issue logged", "category", category, "description", description)
	return nil
}
