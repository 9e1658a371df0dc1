package harness

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/fennward/factorytwin/internal/engine"
	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// knownOps lists the operations a scenario step may invoke.
var knownOps = map[string]bool{
	"start_job":      true,
	"tick":           true,
	"sell":           true,
	"cancel_job":     true,
	"repair_machine": true,
	"change_shift":   true,
	"log_issue":      true,
	"get_forecast":   true,
	"get_status":     true,
}

// Harness drives one scenario against a real engine.
type Harness struct {
	store  *store.Store
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation, with a
// fixed run token and the deterministic test configuration (zero fault
// probability unless the scenario overrides it). The same scenario always
// produces a byte-identical history log.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	cfg := scenarioConfig(scenario)
	runToken := scenario.RunToken
	if runToken == "" {
		runToken = "test-run-default"
	}

	ctx := context.Background()
	eng, err := engine.New(ctx, st, cfg,
		engine.WithRunTokenGenerator(engine.NewFixedGenerator(runToken)),
		engine.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	h := &Harness{
		store:  st,
		engine: eng,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}

	result := NewResult()
	for i, step := range scenario.Setup {
		outcome := h.invoke(ctx, step)
		if outcome.ErrorCode != "" {
			return nil, fmt.Errorf("setup step %d (%s) failed: %s", i, step.Op, outcome.ErrorCode)
		}
	}
	for i, step := range scenario.Flow {
		outcome := h.invoke(ctx, step)
		result.Steps = append(result.Steps, outcome)
		validateExpect(result, i, step, outcome)
	}

	history, err := st.QueryHistory(ctx, store.HistoryFilter{})
	if err != nil {
		return nil, fmt.Errorf("failed to read history: %w", err)
	}
	result.History = history
	result.Final = eng.GetStatus()

	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions) {
		result.AddError(errMsg)
	}
	return result, nil
}

// scenarioConfig builds the plant configuration: deterministic defaults
// with the scenario's overrides applied on top.
func scenarioConfig(scenario *Scenario) sim.Config {
	cfg := sim.DefaultConfig()
	cfg.NoiseSeed = 42
	cfg.FaultProbability = 0

	o := scenario.Config
	if o == nil {
		return cfg
	}
	if o.NoiseSeed != nil {
		cfg.NoiseSeed = *o.NoiseSeed
	}
	if o.BaseDemand != nil {
		cfg.BaseDemand = *o.BaseDemand
	}
	if o.DemandAmplitude != nil {
		cfg.DemandAmplitude = *o.DemandAmplitude
	}
	if o.BasePrice != nil {
		cfg.BasePrice = *o.BasePrice
	}
	if o.PriceAmplitude != nil {
		cfg.PriceAmplitude = *o.PriceAmplitude
	}
	if o.PeriodTicks != nil {
		cfg.PeriodTicks = *o.PeriodTicks
	}
	if o.MaterialCostPerUnit != nil {
		cfg.MaterialCostPerUnit = *o.MaterialCostPerUnit
	}
	if o.MaterialPerUnit != nil {
		cfg.MaterialPerUnit = *o.MaterialPerUnit
	}
	if o.MachineCount != nil {
		cfg.MachineCount = *o.MachineCount
	}
	if o.MachineCapacityPerTick != nil {
		cfg.MachineCapacityPerTick = *o.MachineCapacityPerTick
	}
	if o.FaultProbability != nil {
		cfg.FaultProbability = *o.FaultProbability
	}
	if o.RepairCost != nil {
		cfg.RepairCost = *o.RepairCost
	}
	if o.StartingCash != nil {
		cfg.StartingCash = *o.StartingCash
	}
	if o.StartingRawMaterial != nil {
		cfg.StartingRawMaterial = *o.StartingRawMaterial
	}
	if o.SnapshotIntervalTicks != nil {
		cfg.SnapshotIntervalTicks = *o.SnapshotIntervalTicks
	}
	return cfg
}

// invoke dispatches one step to the engine and captures the outcome.
func (h *Harness) invoke(ctx context.Context, step Step) StepOutcome {
	outcome := StepOutcome{Op: step.Op}

	switch step.Op {
	case "start_job":
		units, err := intArg(step.Args, "units")
		if err != nil {
			return outcomeErr(outcome, err)
		}
		job, err := h.engine.StartJob(ctx, units)
		if err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{
			"job_id":        int64(job.ID),
			"machine_id":    *job.MachineID,
			"material_cost": job.MaterialCost,
		}

	case "tick":
		elapsed := 1
		if _, ok := step.Args["elapsed"]; ok {
			var err error
			elapsed, err = intArg(step.Args, "elapsed")
			if err != nil {
				return outcomeErr(outcome, err)
			}
		}
		if err := h.engine.Tick(ctx, elapsed); err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"tick": int64(h.engine.GetStatus().SimTime)}

	case "sell":
		res, err := h.engine.Sell(ctx)
		if err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{
			"quantity":   res.Quantity,
			"unit_price": res.UnitPrice,
			"revenue":    res.Revenue,
		}

	case "cancel_job":
		id, err := intArg(step.Args, "job_id")
		if err != nil {
			return outcomeErr(outcome, err)
		}
		if err := h.engine.CancelJob(ctx, sim.JobID(id)); err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"job_id": int64(id)}

	case "repair_machine":
		id, err := intArg(step.Args, "machine_id")
		if err != nil {
			return outcomeErr(outcome, err)
		}
		if err := h.engine.RepairMachine(ctx, id); err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"machine_id": id}

	case "change_shift":
		shift, err := stringArg(step.Args, "shift")
		if err != nil {
			return outcomeErr(outcome, err)
		}
		if err := h.engine.ChangeShift(ctx, sim.Shift(shift)); err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"shift": shift}

	case "log_issue":
		category, err := stringArg(step.Args, "category")
		if err != nil {
			return outcomeErr(outcome, err)
		}
		description, _ := step.Args["description"].(string)
		if err := h.engine.LogIssue(ctx, category, description); err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"category": category}

	case "get_forecast":
		horizon := 5
		if _, ok := step.Args["horizon"]; ok {
			var err error
			horizon, err = intArg(step.Args, "horizon")
			if err != nil {
				return outcomeErr(outcome, err)
			}
		}
		snapshots, err := h.engine.GetForecast(ctx, horizon)
		if err != nil {
			return outcomeErr(outcome, err)
		}
		outcome.Result = map[string]interface{}{"horizon": horizon, "count": len(snapshots)}

	case "get_status":
		state := h.engine.GetStatus()
		outcome.Result = map[string]interface{}{
			"sim_time":             int64(state.SimTime),
			"cash_balance":         state.CashBalance,
			"raw_material_stock":   state.RawMaterialStock,
			"finished_goods_stock": state.FinishedGoodsStock,
			"shift":                string(state.Shift),
		}

	default:
		// validateScenario rejects unknown ops; reaching here is a bug.
		outcome.ErrorCode = string(sim.ErrCodeInvalidArgument)
	}
	return outcome
}

func outcomeErr(outcome StepOutcome, err error) StepOutcome {
	if code := sim.CodeOf(err); code != "" {
		outcome.ErrorCode = string(code)
	} else {
		outcome.ErrorCode = string(sim.ErrCodePersistenceFailure)
	}
	return outcome
}

// validateExpect checks a step's outcome against its expect clause.
func validateExpect(result *Result, index int, step Step, outcome StepOutcome) {
	if step.Expect == nil {
		if outcome.ErrorCode != "" {
			result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error %s", index, step.Op, outcome.ErrorCode))
		}
		return
	}
	if step.Expect.Error != "" {
		if outcome.ErrorCode != step.Expect.Error {
			result.AddError(fmt.Sprintf("flow[%d] %s: expected error %s, got %q",
				index, step.Op, step.Expect.Error, outcome.ErrorCode))
		}
		return
	}
	if outcome.ErrorCode != "" {
		result.AddError(fmt.Sprintf("flow[%d] %s: unexpected error %s", index, step.Op, outcome.ErrorCode))
		return
	}
	for key, expected := range step.Expect.Result {
		actual, exists := outcome.Result[key]
		if !exists {
			result.AddError(fmt.Sprintf("flow[%d] %s: result field %q not present", index, step.Op, key))
			continue
		}
		if !valuesMatch(expected, actual) {
			result.AddError(fmt.Sprintf("flow[%d] %s: result field %q = %v, expected %v",
				index, step.Op, key, actual, expected))
		}
	}
}

// intArg extracts an integer argument. YAML parses numbers as int or
// float64 depending on notation, so both are accepted.
func intArg(args map[string]interface{}, key string) (int, error) {
	v, ok := args[key]
	if !ok {
		return 0, sim.NewInvalidArgument(fmt.Sprintf("missing argument %q", key))
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int64(n)) {
			return int(n), nil
		}
		return 0, sim.NewInvalidArgument(fmt.Sprintf("argument %q must be an integer, got %v", key, n))
	default:
		return 0, sim.NewInvalidArgument(fmt.Sprintf("argument %q must be an integer, got %T", key, v))
	}
}

func stringArg(args map[string]interface{}, key string) (string, error) {
	v, ok := args[key]
	if !ok {
		return "", sim.NewInvalidArgument(fmt.Sprintf("missing argument %q", key))
	}
	s, ok := v.(string)
	if !ok {
		return "", sim.NewInvalidArgument(fmt.Sprintf("argument %q must be a string, got %T", key, v))
	}
	return s, nil
}
