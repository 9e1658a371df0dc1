package harness

import "github.com/fennward/factorytwin/internal/sim"

// StepOutcome records what a single flow step actually did.
type StepOutcome struct {
	// Op is the operation name from the scenario step.
	Op string `json:"op"`

	// ErrorCode is the domain error code when the operation failed,
	// empty on success.
	ErrorCode string `json:"error_code,omitempty"`

	// Result holds the operation's result fields (job_id, quantity, ...).
	Result map[string]interface{} `json:"result,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass indicates overall scenario success: every expect clause
	// matched and every assertion held.
	Pass bool `json:"pass"`

	// Steps holds the actual outcome of each flow step, in order.
	Steps []StepOutcome `json:"steps"`

	// History is the complete history log the scenario produced, in
	// append order. Trace assertions and golden comparison read this.
	History []sim.HistoryRecord `json:"history"`

	// Final is the plant state after the last step.
	Final *sim.FactoryState `json:"final"`

	// Errors contains expect and assertion failure messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepOutcome{},
		Errors: []string{},
	}
}

// AddError adds a failure message and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
