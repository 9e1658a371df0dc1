package sim

// Tick is the simulation's logical clock value. One tick is roughly one hour
// of plant time. Ticks only move forward and are the sole ordering domain for
// state mutations and history records.
type Tick int64

// JobID uniquely identifies a production job within a run.
// IDs are assigned monotonically by the engine.
type JobID int64

// MachineStatus describes the operational state of a machine.
type MachineStatus string

const (
	MachineIdle        MachineStatus = "IDLE"
	MachineBusy        MachineStatus = "BUSY"
	MachineMaintenance MachineStatus = "MAINTENANCE"
	MachineBroken      MachineStatus = "BROKEN"
)

// Shift identifies the active work crew. Night shift runs machines harder,
// which raises the fault probability.
type Shift string

const (
	ShiftDay   Shift = "DAY"
	ShiftNight Shift = "NIGHT"
)

// ValidShifts defines the allowed shift values.
var ValidShifts = map[Shift]bool{
	ShiftDay:   true,
	ShiftNight: true,
}

// JobStatus describes where a job is in its lifecycle.
type JobStatus string

const (
	JobQueued    JobStatus = "QUEUED"
	JobRunning   JobStatus = "RUNNING"
	JobCompleted JobStatus = "COMPLETED"
	JobFailed    JobStatus = "FAILED"
	JobCancelled JobStatus = "CANCELLED"
)

// Terminal reports whether the status permits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed || s == JobCancelled
}

// MachineState is the registry entry for a single machine.
// A machine is assigned to at most one active job at a time.
type MachineState struct {
	ID              int           `json:"id"`
	Status          MachineStatus `json:"status"`
	CapacityPerTick int           `json:"capacity_per_tick"`
	JobID           *JobID        `json:"job_id,omitempty"` // Active assignment, nil when free
}

// Job is a production order moving through the lifecycle
// Queued -> Running -> {Completed, Failed}, with Cancelled reachable from
// Queued or Running. Terminal jobs are never mutated again.
type Job struct {
	ID             JobID     `json:"id"`
	RequestedUnits int       `json:"requested_units"`
	ProducedUnits  int       `json:"produced_units"`
	Status         JobStatus `json:"status"`
	MachineID      *int      `json:"machine_id,omitempty"`
	CreatedAt      Tick      `json:"created_at"`
	StartedAt      *Tick     `json:"started_at,omitempty"`
	CompletedAt    *Tick     `json:"completed_at,omitempty"`
	MaterialCost   float64   `json:"material_cost"`
	// ReservedUnits tracks raw material still held for this job. It shrinks
	// as units are produced and is released on completion, failure or cancel.
	ReservedUnits int `json:"reserved_units"`
}

// Remaining returns the units still to be produced.
func (j *Job) Remaining() int {
	r := j.RequestedUnits - j.ProducedUnits
	if r < 0 {
		return 0
	}
	return r
}

// Clone returns a deep copy of the job.
func (j *Job) Clone() *Job {
	c := *j
	c.MachineID = clonePtr(j.MachineID)
	c.StartedAt = clonePtr(j.StartedAt)
	c.CompletedAt = clonePtr(j.CompletedAt)
	return &c
}

// MarketSnapshot is the market condition at a simulated time.
// It is derived from the market model, never authoritative state, but is
// logged to history when queried.
type MarketSnapshot struct {
	Time        Tick    `json:"time"`
	DemandUnits int     `json:"demand_units"`
	UnitPrice   float64 `json:"unit_price"`
}

// FactoryState is the working copy of the plant: the single aggregate all
// operations read and mutate. The engine owns exactly one instance per run;
// the persistence store holds the durable shadow.
type FactoryState struct {
	SimTime            Tick            `json:"sim_time"`
	CashBalance        float64         `json:"cash_balance"`
	RawMaterialStock   int             `json:"raw_material_stock"`
	FinishedGoodsStock int             `json:"finished_goods_stock"`
	Shift              Shift           `json:"shift"`
	Machines           []MachineState  `json:"machines"`
	Jobs               map[JobID]*Job  `json:"jobs"`
	NextJobID          JobID           `json:"next_job_id"`
}

// NewFactoryState constructs the initial plant state from configuration.
func NewFactoryState(cfg Config) *FactoryState {
	machines := make([]MachineState, cfg.MachineCount)
	for i := range machines {
		machines[i] = MachineState{
			ID:              i + 1,
			Status:          MachineIdle,
			CapacityPerTick: cfg.MachineCapacityPerTick,
		}
	}
	return &FactoryState{
		CashBalance:      cfg.StartingCash,
		RawMaterialStock: cfg.StartingRawMaterial,
		Shift:            ShiftDay,
		Machines:         machines,
		Jobs:             make(map[JobID]*Job),
		NextJobID:        1,
	}
}

// InDebt reports whether the plant is carrying a negative cash balance.
// Debt is allowed (short-term liabilities) but surfaced as a warning state.
func (s *FactoryState) InDebt() bool {
	return s.CashBalance < 0
}

// ActiveJobs returns the number of jobs in a non-terminal state.
func (s *FactoryState) ActiveJobs() int {
	n := 0
	for _, j := range s.Jobs {
		if !j.Status.Terminal() {
			n++
		}
	}
	return n
}

// Machine returns a pointer to the machine with the given id, or nil.
func (s *FactoryState) Machine(id int) *MachineState {
	for i := range s.Machines {
		if s.Machines[i].ID == id {
			return &s.Machines[i]
		}
	}
	return nil
}

// Clone returns a deep copy of the state. Used for read snapshots and for
// rollback when a persistence write fails mid-operation.
func (s *FactoryState) Clone() *FactoryState {
	c := *s
	c.Machines = make([]MachineState, len(s.Machines))
	copy(c.Machines, s.Machines)
	for i := range c.Machines {
		c.Machines[i].JobID = clonePtr(s.Machines[i].JobID)
	}
	c.Jobs = make(map[JobID]*Job, len(s.Jobs))
	for id, j := range s.Jobs {
		c.Jobs[id] = j.Clone()
	}
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
