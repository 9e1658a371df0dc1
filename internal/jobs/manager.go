// Package jobs owns the production job lifecycle: admission, progress
// advancement, completion, failure, cancellation and settlement against the
// ledger.
//
// Lifecycle: Queued -> Running -> {Completed, Failed}; Cancelled is reachable
// from Queued or Running. Admission is atomic - if any resource acquisition
// fails, every prior acquisition is unwound and the job never exists.
// Terminal jobs are never mutated; advancing one is a no-op.
package jobs

import (
	"fmt"

	"github.com/fennward/factorytwin/internal/ledger"
	"github.com/fennward/factorytwin/internal/machines"
	"github.com/fennward/factorytwin/internal/sim"
)

// Manager drives job transitions over one factory state.
type Manager struct {
	state    *sim.FactoryState
	cfg      sim.Config
	ledger   *ledger.Ledger
	registry *machines.Registry
}

// New creates a job manager sharing the given state with its ledger and
// machine registry.
func New(state *sim.FactoryState, cfg sim.Config, l *ledger.Ledger, r *machines.Registry) *Manager {
	return &Manager{state: state, cfg: cfg, ledger: l, registry: r}
}

// Start admits a new job for the requested units.
//
// Admission reserves units*MaterialPerUnit raw material, allocates a machine
// and debits the material cost (debt allowed). The job is created directly
// in Running with StartedAt = now. On any failure nothing is retained.
func (m *Manager) Start(units int) (*sim.Job, error) {
	if units <= 0 {
		return nil, sim.NewInvalidArgument(fmt.Sprintf("requested units must be positive, got %d", units))
	}

	reserve := units * m.cfg.MaterialPerUnit
	res, err := m.ledger.ReserveMaterials(reserve)
	if err != nil {
		return nil, err
	}

	id := m.state.NextJobID
	machineID, err := m.registry.Allocate(id)
	if err != nil {
		// Unwind the reservation; admission is all-or-nothing.
		m.ledger.ReleaseMaterials(res.Units)
		return nil, err
	}

	cost := float64(units) * m.cfg.MaterialCostPerUnit
	// AllowDebt never fails for non-negative amounts.
	_ = m.ledger.Debit(cost, ledger.AllowDebt)

	now := m.state.SimTime
	job := &sim.Job{
		ID:             id,
		RequestedUnits: units,
		Status:         sim.JobRunning,
		MachineID:      &machineID,
		CreatedAt:      now,
		StartedAt:      &now,
		MaterialCost:   cost,
		ReservedUnits:  res.Units,
	}
	m.state.Jobs[id] = job
	m.state.NextJobID++
	return job, nil
}

// Outcome describes what an Advance step did to a job.
type Outcome int

const (
	// OutcomeNone - the job is still running (or was already terminal).
	OutcomeNone Outcome = iota
	// OutcomeCompleted - the job reached its full quantity this step.
	OutcomeCompleted
	// OutcomeFailed - the assigned machine was broken.
	OutcomeFailed
)

// AdvanceResult reports the state delta of one Advance step, in the units
// the history log records.
type AdvanceResult struct {
	Outcome  Outcome
	Produced int    // Units produced this step
	Consumed int    // Raw material consumed from the reservation this step
	Released int    // Raw material returned to stock (completion/failure)
	Reason   string // Failure reason, set when Outcome is OutcomeFailed
}

// Advance moves a running job forward by elapsed ticks.
//
// Producible units are machine capacity * elapsed, capped at the remaining
// quantity; the reservation is consumed in proportion. A Broken machine
// fails the job and releases the reservation covering the unproduced units.
// Reaching the full quantity completes the job: the whole lot enters
// finished goods stock, the machine and any leftover reservation are
// released. Advancing a terminal job changes nothing.
func (m *Manager) Advance(job *sim.Job, elapsed int) AdvanceResult {
	if job.Status.Terminal() || elapsed <= 0 {
		return AdvanceResult{}
	}
	if job.MachineID == nil {
		return AdvanceResult{}
	}
	machine := m.state.Machine(*job.MachineID)
	if machine == nil {
		return AdvanceResult{}
	}

	if machine.Status == sim.MachineBroken {
		return m.fail(job, "machine broken")
	}

	producible := machine.CapacityPerTick * elapsed
	if remaining := job.Remaining(); producible > remaining {
		producible = remaining
	}

	consumed := producible * m.cfg.MaterialPerUnit
	if consumed > job.ReservedUnits {
		consumed = job.ReservedUnits
	}
	job.ProducedUnits += producible
	job.ReservedUnits -= consumed

	res := AdvanceResult{Produced: producible, Consumed: consumed}
	if job.Remaining() == 0 {
		res.Outcome = OutcomeCompleted
		res.Released = job.ReservedUnits

		m.ledger.AddFinishedGoods(job.RequestedUnits)
		m.ledger.ReleaseMaterials(job.ReservedUnits)
		job.ReservedUnits = 0

		now := m.state.SimTime
		job.Status = sim.JobCompleted
		job.CompletedAt = &now
		m.registry.Release(machine.ID)
	}
	return res
}

// fail transitions a running job to Failed. Materials for unproduced units
// go back to stock; partial output is scrap and never reaches finished
// goods. The machine stays Broken until repaired.
func (m *Manager) fail(job *sim.Job, reason string) AdvanceResult {
	released := job.ReservedUnits
	m.ledger.ReleaseMaterials(released)
	job.ReservedUnits = 0

	now := m.state.SimTime
	job.Status = sim.JobFailed
	job.CompletedAt = &now
	if job.MachineID != nil {
		m.registry.Release(*job.MachineID)
	}
	return AdvanceResult{Outcome: OutcomeFailed, Released: released, Reason: reason}
}

// FailForFault fails the job bound to a faulted machine.
// Other jobs are unaffected; only the binding to the broken machine matters.
func (m *Manager) FailForFault(id sim.JobID) AdvanceResult {
	job, ok := m.state.Jobs[id]
	if !ok || job.Status.Terminal() {
		return AdvanceResult{}
	}
	return m.fail(job, "machine fault")
}

// Cancel stops a Queued or Running job. The machine and any unconsumed
// reservation are released; the material cost already paid is not refunded.
func (m *Manager) Cancel(id sim.JobID) (*sim.Job, int, error) {
	job, ok := m.state.Jobs[id]
	if !ok {
		return nil, 0, sim.NewInvalidArgument(fmt.Sprintf("unknown job id %d", id))
	}
	if job.Status.Terminal() {
		return nil, 0, sim.NewInvalidArgument(fmt.Sprintf("job %d is already %s", id, job.Status))
	}

	released := job.ReservedUnits
	m.ledger.ReleaseMaterials(released)
	job.ReservedUnits = 0

	if job.MachineID != nil {
		m.registry.Release(*job.MachineID)
	}
	now := m.state.SimTime
	job.Status = sim.JobCancelled
	job.CompletedAt = &now
	return job, released, nil
}

// SellResult reports a finished-goods sale.
type SellResult struct {
	Quantity  int
	UnitPrice float64
	Revenue   float64
}

// Sell moves finished goods against the given market snapshot: quantity is
// min(stock, demand), revenue is quantity * unit price, credited to cash.
// Unsold goods stay in stock for a later attempt; nothing spoils.
func (m *Manager) Sell(snapshot sim.MarketSnapshot) SellResult {
	qty := m.state.FinishedGoodsStock
	if snapshot.DemandUnits < qty {
		qty = snapshot.DemandUnits
	}
	if qty <= 0 {
		return SellResult{UnitPrice: snapshot.UnitPrice}
	}
	revenue := float64(qty) * snapshot.UnitPrice
	m.ledger.RemoveFinishedGoods(qty)
	m.ledger.Credit(revenue)
	return SellResult{Quantity: qty, UnitPrice: snapshot.UnitPrice, Revenue: revenue}
}
