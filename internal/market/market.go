// Package market implements the plant's market model: demand and unit price
// as periodic functions of simulated time plus bounded, seeded noise.
//
// The model is pure: Forecast(t) depends only on the configuration (including
// the noise seed) and t. Two calls with the same seed and tick return
// identical snapshots, which keeps runs reproducible and testable.
package market

import (
	"hash/fnv"
	"math"
	"math/rand"

	"github.com/fennward/factorytwin/internal/sim"
)

// Noise bounds, in absolute units around the periodic curve.
const (
	demandNoiseBound = 2 // +/- units
	priceNoiseBound  = 5 // +/- currency
)

// minUnitPrice is the positive clamp for the price curve.
const minUnitPrice = 1.0

// Model generates market snapshots for simulated times.
// Stateless apart from its configuration; safe for concurrent use.
type Model struct {
	cfg sim.Config
}

// New creates a market model from plant configuration.
func New(cfg sim.Config) *Model {
	return &Model{cfg: cfg}
}

// Forecast returns the market snapshot for tick t.
//
// demand(t) = base + amplitude*sin(2*pi*t/period) + noise, clamped to >= 0.
// price(t) follows the same form with its own amplitude, a quarter-period
// phase shift, and independent noise, clamped to a positive value.
func (m *Model) Forecast(t sim.Tick) sim.MarketSnapshot {
	cycle := math.Sin(2 * math.Pi * float64(t) / float64(m.cfg.PeriodTicks))
	// Price leads demand by a quarter period.
	priceCycle := math.Sin(2*math.Pi*float64(t)/float64(m.cfg.PeriodTicks) + math.Pi/2)

	rng := m.noiseSource(t)
	demandNoise := float64(rng.Intn(2*demandNoiseBound+1) - demandNoiseBound)
	priceNoise := rng.Float64()*2*priceNoiseBound - priceNoiseBound

	demand := m.cfg.BaseDemand + m.cfg.DemandAmplitude*cycle + demandNoise
	if demand < 0 {
		demand = 0
	}

	price := m.cfg.BasePrice + m.cfg.PriceAmplitude*priceCycle + priceNoise
	if price < minUnitPrice {
		price = minUnitPrice
	}
	// Two decimal places: prices are currency.
	price = math.Round(price*100) / 100

	return sim.MarketSnapshot{
		Time:        t,
		DemandUnits: int(demand),
		UnitPrice:   price,
	}
}

// ForecastHorizon returns snapshots for ticks from+1 .. from+horizon.
func (m *Model) ForecastHorizon(from sim.Tick, horizon int) []sim.MarketSnapshot {
	out := make([]sim.MarketSnapshot, 0, horizon)
	for i := 1; i <= horizon; i++ {
		out = append(out, m.Forecast(from+sim.Tick(i)))
	}
	return out
}

// noiseSource derives a deterministic RNG for tick t. The seed and tick are
// mixed through FNV-1a so neighbouring ticks get unrelated streams.
func (m *Model) noiseSource(t sim.Tick) *rand.Rand {
	h := fnv.New64a()
	var buf [16]byte
	putInt64(buf[:8], m.cfg.NoiseSeed)
	putInt64(buf[8:], int64(t))
	_, _ = h.Write(buf[:])
	return rand.New(rand.NewSource(int64(h.Sum64())))
}

func putInt64(b []byte, v int64) {
	for i := 0; i < 8; i++ {
		b[i] = byte(v >> (8 * i))
	}
}
