package engine

import (
	"context"
	"fmt"

	"github.com/fennward/factorytwin/internal/sim"
	"github.com/fennward/factorytwin/internal/store"
)

// GetStatus returns a read-only deep copy of the current factory state.
// Safe to call concurrently with mutations; the copy is consistent.
func (e *Engine) GetStatus() *sim.FactoryState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state.Clone()
}

// GetForecast returns market snapshots for the next horizon ticks.
//
// The forecast itself is pure, but the query is logged (FORECAST_QUERIED)
// so a run's history shows what the decision-maker looked at - this is the
// one read that appends to history, and why it takes the write lock.
func (e *Engine) GetForecast(ctx context.Context, horizon int) ([]sim.MarketSnapshot, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if horizon <= 0 {
		return nil, sim.NewInvalidArgument(fmt.Sprintf("horizon must be positive, got %d", horizon))
	}
	err := e.transact(ctx, func(tx *store.Tx) error {
		return e.append(ctx, tx, sim.EventForecastQueried, sim.ForecastPayload(horizon))
	})
	if err != nil {
		return nil, err
	}
	return e.market.ForecastHorizon(e.state.SimTime, horizon), nil
}

// FinancialSummary aggregates the plant's finances over a tick range.
type FinancialSummary struct {
	FromTick    sim.Tick `json:"from_tick"`
	ToTick      sim.Tick `json:"to_tick"`
	Revenue     float64  `json:"revenue"`
	Cost        float64  `json:"cost"`
	Net         float64  `json:"net"`
	CashBalance float64  `json:"cash_balance"`
	InDebt      bool     `json:"in_debt"`
}

// GetFinancialSummary aggregates revenue (sales) and cost (material spend
// and repairs) over the inclusive tick range [from, to], from the history
// log. CashBalance and InDebt reflect the current state, not the range.
func (e *Engine) GetFinancialSummary(ctx context.Context, from, to sim.Tick) (FinancialSummary, error) {
	if from < 0 || to < from {
		return FinancialSummary{}, sim.NewInvalidArgument(
			fmt.Sprintf("invalid tick range [%d, %d]", from, to))
	}

	records, err := e.store.QueryHistory(ctx, store.HistoryFilter{FromTick: &from, ToTick: &to})
	if err != nil {
		if sim.CodeOf(err) != "" {
			return FinancialSummary{}, err
		}
		return FinancialSummary{}, sim.NewPersistenceFailure("query history", err)
	}

	summary := FinancialSummary{FromTick: from, ToTick: to}
	for _, rec := range records {
		switch rec.Kind {
		case sim.EventSaleExecuted:
			summary.Revenue += floatField(rec.Payload, "revenue")
		case sim.EventJobCreated:
			summary.Cost += floatField(rec.Payload, "material_cost")
		case sim.EventMachineRepaired:
			summary.Cost += floatField(rec.Payload, "cost")
		}
	}
	summary.Net = summary.Revenue - summary.Cost

	e.mu.RLock()
	summary.CashBalance = e.state.CashBalance
	summary.InDebt = e.state.InDebt()
	e.mu.RUnlock()

	return summary, nil
}

// QueryHistory exposes filtered history reads through the facade.
func (e *Engine) QueryHistory(ctx context.Context, f store.HistoryFilter) ([]sim.HistoryRecord, error) {
	records, err := e.store.QueryHistory(ctx, f)
	if err != nil {
		if sim.CodeOf(err) != "" {
			return nil, err
		}
		return nil, sim.NewPersistenceFailure("query history", err)
	}
	return records, nil
}

func floatField(payload map[string]any, key string) float64 {
	switch v := payload[key].(type) {
	case float64:
		return v
	case int:
		return float64(v)
	case int64:
		return float64(v)
	default:
		return 0
	}
}
