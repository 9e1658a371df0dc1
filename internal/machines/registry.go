// Package machines implements the machine registry: allocation of idle
// machines to jobs, release, fault injection and repair.
//
// Allocation is deterministic: the first Idle machine by ascending id wins.
// Fault injection is driven by a seeded per-tick check so that the same seed
// produces the same fault schedule on every run.
package machines

import (
	"hash/fnv"
	"math/rand"

	"github.com/fennward/factorytwin/internal/sim"
)

// Registry manages the machines of one factory state.
type Registry struct {
	state *sim.FactoryState
	cfg   sim.Config
}

// New creates a registry over the given state.
func New(state *sim.FactoryState, cfg sim.Config) *Registry {
	return &Registry{state: state, cfg: cfg}
}

// Allocate picks the first Idle machine by ascending id, marks it Busy and
// binds it to the job. Fails with NO_MACHINE_AVAILABLE when none is free.
func (r *Registry) Allocate(job sim.JobID) (int, error) {
	for i := range r.state.Machines {
		m := &r.state.Machines[i]
		if m.Status == sim.MachineIdle {
			m.Status = sim.MachineBusy
			j := job
			m.JobID = &j
			return m.ID, nil
		}
	}
	return 0, sim.NewNoMachineAvailable()
}

// Release unbinds the machine from its job. A machine that faulted while
// busy stays Broken; otherwise it returns to Idle.
func (r *Registry) Release(id int) {
	m := r.state.Machine(id)
	if m == nil {
		return
	}
	m.JobID = nil
	if m.Status == sim.MachineBusy {
		m.Status = sim.MachineIdle
	}
}

// Fault transitions the machine to Broken. The job bound to it (if any) is
// returned so the job manager can fail it; the binding itself stays until
// the job manager releases the machine.
func (r *Registry) Fault(id int) (job *sim.JobID) {
	m := r.state.Machine(id)
	if m == nil {
		return nil
	}
	m.Status = sim.MachineBroken
	return m.JobID
}

// Repair returns a Broken or Maintenance machine to Idle.
// Repairing an operational machine is an INVALID_ARGUMENT.
func (r *Registry) Repair(id int) error {
	m := r.state.Machine(id)
	if m == nil {
		return sim.NewInvalidArgument("unknown machine id")
	}
	if m.Status != sim.MachineBroken && m.Status != sim.MachineMaintenance {
		return sim.NewInvalidArgument("machine is not down")
	}
	m.Status = sim.MachineIdle
	m.JobID = nil
	return nil
}

// FaultCheck rolls the seeded fault die for every Busy machine at the given
// tick and returns the ids that break, in ascending order. Night shift
// doubles the fault probability (machines run hotter with the night crew).
//
// Deterministic: the outcome is a pure function of (seed, tick, machine id,
// shift). Idle and already-broken machines never fault.
func (r *Registry) FaultCheck(tick sim.Tick) []int {
	p := r.cfg.FaultProbability
	if r.state.Shift == sim.ShiftNight {
		p *= 2
	}
	if p <= 0 {
		return nil
	}
	var faulted []int
	for i := range r.state.Machines {
		m := &r.state.Machines[i]
		if m.Status != sim.MachineBusy {
			continue
		}
		if faultRoll(r.cfg.NoiseSeed, tick, m.ID) < p {
			faulted = append(faulted, m.ID)
		}
	}
	return faulted
}

// faultRoll returns a uniform float in [0,1) derived from (seed, tick, id).
func faultRoll(seed int64, tick sim.Tick, id int) float64 {
	h := fnv.New64a()
	var buf [24]byte
	putInt64(buf[0:8], seed)
	putInt64(buf[8:16], int64(tick))
	putInt64(buf[16:24], int64(id))
	_, _ = h.Write(buf[:])
	return rand.New(rand.NewSource(int64(h.Sum64()))).Float64()
}

func putInt64(b []byte, v int64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
