package cli

import (
	"fmt"
	"os"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"

	"github.com/fennward/factorytwin/internal/sim"
)

// configSchema constrains plant configuration files. Every field has a
// default, so a config file only states what it overrides; the schema
// rejects values that would describe an unrunnable plant.
const configSchema = `
base_demand:               *10 | number & >=0
demand_amplitude:          *5 | number & >=0
base_price:                *150 | number & >0
price_amplitude:           *20 | number & >=0
period_ticks:              *24 | int & >0
noise_seed:                *1 | int
material_cost_per_unit:    *50 | number & >=0
material_per_unit:         *2 | int & >0
machine_count:             *3 | int & >0
machine_capacity_per_tick: *2 | int & >0
fault_probability:         *0.02 | number & >=0 & <1
repair_cost:               *200 | number & >=0
starting_cash:             *1000 | number
starting_raw_material:     *100 | int & >=0
snapshot_interval_ticks:   *10 | int & >0
`

// LoadConfig returns the plant configuration: the compiled defaults,
// overridden by the CUE file at path when one is given. The file is
// unified with the schema, so overrides are range-checked before they
// ever reach the engine.
func LoadConfig(path string) (sim.Config, error) {
	ctx := cuecontext.New()
	schema := ctx.CompileString(configSchema)
	if err := schema.Err(); err != nil {
		return sim.Config{}, fmt.Errorf("compile config schema: %w", err)
	}

	value := schema
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return sim.Config{}, fmt.Errorf("read config: %w", err)
		}
		user := ctx.CompileString(string(data), cue.Filename(path))
		if err := user.Err(); err != nil {
			return sim.Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
		value = schema.Unify(user)
		if err := value.Err(); err != nil {
			return sim.Config{}, fmt.Errorf("config %s conflicts with schema: %w", path, err)
		}
	}

	if err := value.Validate(cue.Concrete(true)); err != nil {
		return sim.Config{}, fmt.Errorf("validate config: %w", err)
	}

	var cfg sim.Config
	if err := value.Decode(&cfg); err != nil {
		return sim.Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return sim.Config{}, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
