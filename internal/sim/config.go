package sim

import "fmt"

// Config is the plant configuration surface: constants fixed for a run, not
// runtime-tunable state. Defaults mirror a small single-line plant; a CUE
// config file may override them (see internal/cli).
type Config struct {
	// Market model.
	BaseDemand      float64 `json:"base_demand"`
	DemandAmplitude float64 `json:"demand_amplitude"`
	BasePrice       float64 `json:"base_price"`
	PriceAmplitude  float64 `json:"price_amplitude"`
	PeriodTicks     int     `json:"period_ticks"`
	NoiseSeed       int64   `json:"noise_seed"`

	// Production economics.
	MaterialCostPerUnit float64 `json:"material_cost_per_unit"`
	MaterialPerUnit     int     `json:"material_per_unit"`

	// Plant floor.
	MachineCount           int     `json:"machine_count"`
	MachineCapacityPerTick int     `json:"machine_capacity_per_tick"`
	FaultProbability       float64 `json:"fault_probability"`
	RepairCost             float64 `json:"repair_cost"`

	// Opening balances.
	StartingCash        float64 `json:"starting_cash"`
	StartingRawMaterial int     `json:"starting_raw_material"`

	// Persistence. A full snapshot is written every SnapshotIntervalTicks;
	// between snapshots the history log alone carries durability.
	SnapshotIntervalTicks int `json:"snapshot_interval_ticks"`
}

// DefaultConfig returns the standard plant parameters.
//
// Market constants describe a daily cycle: demand 10±5 units and price
// 150±20 over a 24-tick period, with bounded noise of ±2 units / ±5 on top.
func DefaultConfig() Config {
	return Config{
		BaseDemand:      10,
		DemandAmplitude: 5,
		BasePrice:       150,
		PriceAmplitude:  20,
		PeriodTicks:     24,
		NoiseSeed:       1,

		MaterialCostPerUnit: 50,
		MaterialPerUnit:     2,

		MachineCount:           3,
		MachineCapacityPerTick: 2,
		FaultProbability:       0.02,
		RepairCost:             200,

		StartingCash:        1000,
		StartingRawMaterial: 100,

		SnapshotIntervalTicks: 10,
	}
}

// Validate checks that the configuration describes a runnable plant.
func (c Config) Validate() error {
	switch {
	case c.PeriodTicks <= 0:
		return fmt.Errorf("period_ticks must be positive, got %d", c.PeriodTicks)
	case c.MaterialPerUnit <= 0:
		return fmt.Errorf("material_per_unit must be positive, got %d", c.MaterialPerUnit)
	case c.MaterialCostPerUnit < 0:
		return fmt.Errorf("material_cost_per_unit must be non-negative, got %v", c.MaterialCostPerUnit)
	case c.MachineCount <= 0:
		return fmt.Errorf("machine_count must be positive, got %d", c.MachineCount)
	case c.MachineCapacityPerTick <= 0:
		return fmt.Errorf("machine_capacity_per_tick must be positive, got %d", c.MachineCapacityPerTick)
	case c.FaultProbability < 0 || c.FaultProbability >= 1:
		return fmt.Errorf("fault_probability must be in [0,1), got %v", c.FaultProbability)
	case c.StartingRawMaterial < 0:
		return fmt.Errorf("starting_raw_material must be non-negative, got %d", c.StartingRawMaterial)
	case c.SnapshotIntervalTicks <= 0:
		return fmt.Errorf("snapshot_interval_ticks must be positive, got %d", c.SnapshotIntervalTicks)
	}
	return nil
}
