package harness

import (
	"bytes"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Scenario defines a conformance test scenario: a flow of operations
// against a fresh plant, with expected outcomes and assertions over the
// resulting history log and final state.
type Scenario struct {
	// Name uniquely identifies this scenario. It doubles as the golden
	// file name, so keep it filesystem-safe.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Config holds plant configuration overrides applied on top of the
	// deterministic test defaults. Omitted fields keep their defaults.
	Config *ConfigOverrides `yaml:"config,omitempty"`

	// Setup contains operations invoked before the main flow to establish
	// initial state. Setup operations must succeed.
	Setup []Step `yaml:"setup,omitempty"`

	// Flow contains the main test flow - operations with expected results.
	Flow []Step `yaml:"flow"`

	// Assertions validate the final history log and state.
	Assertions []Assertion `yaml:"assertions"`

	// RunToken is an optional fixed run token. If empty it defaults to
	// "test-run-default" so golden comparison stays deterministic.
	RunToken string `yaml:"run_token,omitempty"`
}

// ConfigOverrides is the subset of plant configuration a scenario may
// override. Pointer fields distinguish "not set" from an explicit zero.
type ConfigOverrides struct {
	NoiseSeed              *int64   `yaml:"noise_seed,omitempty"`
	BaseDemand             *float64 `yaml:"base_demand,omitempty"`
	DemandAmplitude        *float64 `yaml:"demand_amplitude,omitempty"`
	BasePrice              *float64 `yaml:"base_price,omitempty"`
	PriceAmplitude         *float64 `yaml:"price_amplitude,omitempty"`
	PeriodTicks            *int     `yaml:"period_ticks,omitempty"`
	MaterialCostPerUnit    *float64 `yaml:"material_cost_per_unit,omitempty"`
	MaterialPerUnit        *int     `yaml:"material_per_unit,omitempty"`
	MachineCount           *int     `yaml:"machine_count,omitempty"`
	MachineCapacityPerTick *int     `yaml:"machine_capacity_per_tick,omitempty"`
	FaultProbability       *float64 `yaml:"fault_probability,omitempty"`
	RepairCost             *float64 `yaml:"repair_cost,omitempty"`
	StartingCash           *float64 `yaml:"starting_cash,omitempty"`
	StartingRawMaterial    *int     `yaml:"starting_raw_material,omitempty"`
	SnapshotIntervalTicks  *int     `yaml:"snapshot_interval_ticks,omitempty"`
}

// Step is a single operation invocation.
type Step struct {
	// Op is the operation name: start_job, tick, sell, cancel_job,
	// repair_machine, change_shift, log_issue, get_forecast, get_status.
	Op string `yaml:"op"`

	// Args contains the operation arguments as a map.
	Args map[string]interface{} `yaml:"args,omitempty"`

	// Expect specifies the expected outcome. If nil, the operation must
	// simply succeed.
	Expect *ExpectClause `yaml:"expect,omitempty"`
}

// ExpectClause specifies the expected outcome of a step.
type ExpectClause struct {
	// Error is the expected domain error code (e.g. "INSUFFICIENT_STOCK").
	// When set, the step must fail with exactly this code.
	Error string `yaml:"error,omitempty"`

	// Result contains expected result field values. Subset match - only
	// specified fields are validated.
	Result map[string]interface{} `yaml:"result,omitempty"`
}

// Assertion validates the history log or final state.
type Assertion struct {
	// Type is one of the Assert* constants.
	Type string `yaml:"type"`

	// Kind is the event kind (history_contains, history_count).
	Kind string `yaml:"kind,omitempty"`

	// Payload holds expected payload fields (history_contains).
	// Subset match - only specified fields are validated.
	Payload map[string]interface{} `yaml:"payload,omitempty"`

	// Kinds is the expected relative order of event kinds (history_order).
	Kinds []string `yaml:"kinds,omitempty"`

	// Count is the expected number of occurrences (history_count).
	Count int `yaml:"count,omitempty"`

	// Entity selects what final_state inspects: "plant", "job" or
	// "machine". Defaults to "plant".
	Entity string `yaml:"entity,omitempty"`

	// ID selects the job or machine when Entity is "job" or "machine".
	ID int `yaml:"id,omitempty"`

	// Expect contains expected field values (final_state). Subset match.
	Expect map[string]interface{} `yaml:"expect,omitempty"`
}

// Assertion type constants.
const (
	AssertHistoryContains = "history_contains"
	AssertHistoryOrder    = "history_order"
	AssertHistoryCount    = "history_count"
	AssertFinalState      = "final_state"
)

// LoadScenario reads and parses a scenario YAML file.
// Unknown fields are rejected so typos fail loudly instead of silently
// weakening a scenario.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Flow) == 0 {
		return fmt.Errorf("flow list is required and must be non-empty")
	}
	if len(s.Assertions) == 0 {
		return fmt.Errorf("assertions list is required and must be non-empty")
	}

	for i, step := range s.Setup {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("setup[%d]: %w", i, err)
		}
		if step.Expect != nil && step.Expect.Error != "" {
			return fmt.Errorf("setup[%d]: setup steps must succeed, expected error %q", i, step.Expect.Error)
		}
	}
	for i, step := range s.Flow {
		if err := validateStep(&step); err != nil {
			return fmt.Errorf("flow[%d]: %w", i, err)
		}
	}
	for i, assertion := range s.Assertions {
		if err := validateAssertion(i, &assertion); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(step *Step) error {
	if step.Op == "" {
		return fmt.Errorf("op is required")
	}
	if !knownOps[step.Op] {
		return fmt.Errorf("unknown op %q", step.Op)
	}
	if step.Expect != nil && step.Expect.Error != "" && step.Expect.Result != nil {
		return fmt.Errorf("expect cannot carry both error and result")
	}
	return nil
}

// validateAssertion validates a single assertion based on its type.
func validateAssertion(index int, a *Assertion) error {
	switch a.Type {
	case AssertHistoryContains:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for history_contains", index)
		}
	case AssertHistoryOrder:
		if len(a.Kinds) == 0 {
			return fmt.Errorf("assertions[%d]: kinds list is required for history_order", index)
		}
	case AssertHistoryCount:
		if a.Kind == "" {
			return fmt.Errorf("assertions[%d]: kind is required for history_count", index)
		}
		if a.Count < 0 {
			return fmt.Errorf("assertions[%d]: count must be non-negative for history_count", index)
		}
	case AssertFinalState:
		if len(a.Expect) == 0 {
			return fmt.Errorf("assertions[%d]: expect is required for final_state", index)
		}
		switch a.Entity {
		case "", "plant":
		case "job", "machine":
			if a.ID <= 0 {
				return fmt.Errorf("assertions[%d]: id is required for %s final_state", index, a.Entity)
			}
		default:
			return fmt.Errorf("assertions[%d]: unknown entity %q", index, a.Entity)
		}
	case "":
		return fmt.Errorf("assertions[%d]: type is required", index)
	default:
		return fmt.Errorf("assertions[%d]: unknown assertion type %q", index, a.Type)
	}
	return nil
}
