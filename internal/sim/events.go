package sim

// EventKind classifies a history record.
type EventKind string

const (
	EventTickAdvanced    EventKind = "TICK_ADVANCED"
	EventJobCreated      EventKind = "JOB_CREATED"
	EventJobAdvanced     EventKind = "JOB_ADVANCED"
	EventJobCompleted    EventKind = "JOB_COMPLETED"
	EventJobFailed       EventKind = "JOB_FAILED"
	EventJobCancelled    EventKind = "JOB_CANCELLED"
	EventSaleExecuted    EventKind = "SALE_EXECUTED"
	EventForecastQueried EventKind = "FORECAST_QUERIED"
	EventSnapshotTaken   EventKind = "SNAPSHOT_TAKEN"
	EventMachineFault    EventKind = "MACHINE_FAULT"
	EventMachineRepaired EventKind = "MACHINE_REPAIRED"
	EventShiftChanged    EventKind = "SHIFT_CHANGED"
	EventIssueLogged     EventKind = "ISSUE_LOGGED"
)

// ValidEventKinds defines the allowed event kinds, used to validate
// history query filters.
var ValidEventKinds = map[EventKind]bool{
	EventTickAdvanced:    true,
	EventJobCreated:      true,
	EventJobAdvanced:     true,
	EventJobCompleted:    true,
	EventJobFailed:       true,
	EventJobCancelled:    true,
	EventSaleExecuted:    true,
	EventForecastQueried: true,
	EventSnapshotTaken:   true,
	EventMachineFault:    true,
	EventMachineRepaired: true,
	EventShiftChanged:    true,
	EventIssueLogged:     true,
}

// HistoryRecord is one entry of the append-only event log.
//
// Payloads carry the full state delta of the event, so that the latest
// snapshot plus the subsequent records reconstruct the exact current state
// on restart. Payload values are restricted to what canonical JSON can
// serialize (strings, integers, floats, bools, nested maps/slices).
type HistoryRecord struct {
	// Seq is the store-assigned append sequence; 0 until persisted.
	Seq int64 `json:"seq"`

	// Tick is the simulation time at which the event occurred.
	Tick Tick `json:"tick"`

	// RunToken correlates the record with the simulation run that wrote it.
	RunToken string `json:"run_token"`

	Kind    EventKind      `json:"kind"`
	Payload map[string]any `json:"payload"`
}

// TickAdvancedPayload builds the payload for a TICK_ADVANCED record.
// Every Tick call appends exactly one, so replay recovers the clock even
// across ticks where no job moved.
func TickAdvancedPayload(elapsed int) map[string]any {
	return map[string]any{"elapsed": elapsed}
}

// JobCreatedPayload builds the payload for a JOB_CREATED record.
// Carries everything replay needs to re-admit the job.
func JobCreatedPayload(j *Job) map[string]any {
	p := map[string]any{
		"job_id":          int64(j.ID),
		"requested_units": j.RequestedUnits,
		"material_cost":   j.MaterialCost,
		"reserved_units":  j.ReservedUnits,
	}
	if j.MachineID != nil {
		p["machine_id"] = *j.MachineID
	}
	return p
}

// JobAdvancedPayload builds the payload for a JOB_ADVANCED record.
func JobAdvancedPayload(id JobID, produced, consumed int) map[string]any {
	return map[string]any{
		"job_id":         int64(id),
		"produced_units": produced,
		// Raw material consumed from the job's reservation this step.
		"consumed_units": consumed,
	}
}

// JobCompletedPayload builds the payload for a JOB_COMPLETED record.
// produced/consumed cover the final Advance step; lotUnits is the full lot
// moved into finished goods; releasedUnits is leftover reservation returned
// to raw stock.
func JobCompletedPayload(id JobID, produced, consumed, releasedUnits, lotUnits int) map[string]any {
	return map[string]any{
		"job_id":         int64(id),
		"produced_units": produced,
		"consumed_units": consumed,
		"released_units": releasedUnits,
		"lot_units":      lotUnits,
	}
}

// JobFailedPayload builds the payload for a JOB_FAILED record.
func JobFailedPayload(id JobID, machineID, releasedUnits int, reason string) map[string]any {
	return map[string]any{
		"job_id":         int64(id),
		"machine_id":     machineID,
		"released_units": releasedUnits,
		"reason":         reason,
	}
}

// JobCancelledPayload builds the payload for a JOB_CANCELLED record.
func JobCancelledPayload(id JobID, releasedUnits int) map[string]any {
	return map[string]any{
		"job_id":         int64(id),
		"released_units": releasedUnits,
	}
}

// SalePayload builds the payload for a SALE_EXECUTED record.
func SalePayload(qty int, unitPrice, revenue float64) map[string]any {
	return map[string]any{
		"quantity":   qty,
		"unit_price": unitPrice,
		"revenue":    revenue,
	}
}

// ForecastPayload builds the payload for a FORECAST_QUERIED record.
func ForecastPayload(horizon int) map[string]any {
	return map[string]any{"horizon": horizon}
}

// MachineFaultPayload builds the payload for a MACHINE_FAULT record.
func MachineFaultPayload(machineID int) map[string]any {
	return map[string]any{"machine_id": machineID}
}

// MachineRepairedPayload builds the payload for a MACHINE_REPAIRED record.
func MachineRepairedPayload(machineID int, cost float64) map[string]any {
	return map[string]any{"machine_id": machineID, "cost": cost}
}

// ShiftChangedPayload builds the payload for a SHIFT_CHANGED record.
func ShiftChangedPayload(s Shift) map[string]any {
	return map[string]any{"shift": string(s)}
}

// IssuePayload builds the payload for an ISSUE_LOGGED record.
func IssuePayload(category, description string) map[string]any {
	return map[string]any{"category": category, "description": description}
}
