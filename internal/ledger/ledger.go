// Package ledger tracks the plant's raw material stock, finished goods stock
// and cash balance, and applies debits, credits and stock deltas atomically.
//
// Atomicity here means all-or-nothing within a call: every method validates
// first and mutates only when the whole change is admissible. Serialization
// against concurrent callers is the engine's job (single-writer section);
// the ledger itself holds no lock.
package ledger

import "github.com/fennward/factorytwin/internal/sim"

// DebitPolicy controls whether a debit may overdraw the cash balance.
type DebitPolicy int

const (
	// AllowDebt permits the balance to go negative. Production costs use
	// this policy: a plant can carry short-term liabilities, and the debt
	// state is surfaced through FactoryState.InDebt rather than rejected.
	AllowDebt DebitPolicy = iota

	// RejectShortfall fails the debit with INSUFFICIENT_FUNDS if it would
	// overdraw the balance. Used for discretionary spend such as repairs.
	RejectShortfall
)

// Reservation is a claim on raw material stock held for one job.
type Reservation struct {
	Units int
}

// Ledger applies financial and stock mutations to the factory state.
type Ledger struct {
	state *sim.FactoryState
}

// New creates a ledger over the given state.
func New(state *sim.FactoryState) *Ledger {
	return &Ledger{state: state}
}

// ReserveMaterials removes units from raw material stock and returns the
// reservation. Fails with INSUFFICIENT_STOCK if stock cannot cover it; stock
// is untouched on failure.
func (l *Ledger) ReserveMaterials(units int) (Reservation, error) {
	if units < 0 {
		return Reservation{}, sim.NewInvalidArgument("reservation units must be non-negative")
	}
	if l.state.RawMaterialStock < units {
		return Reservation{}, sim.NewInsufficientStock(units, l.state.RawMaterialStock)
	}
	l.state.RawMaterialStock -= units
	return Reservation{Units: units}, nil
}

// ReleaseMaterials returns unconsumed reserved units to raw material stock.
func (l *Ledger) ReleaseMaterials(units int) {
	if units > 0 {
		l.state.RawMaterialStock += units
	}
}

// AddFinishedGoods moves produced units into finished goods stock.
func (l *Ledger) AddFinishedGoods(units int) {
	if units > 0 {
		l.state.FinishedGoodsStock += units
	}
}

// RemoveFinishedGoods takes sold units out of finished goods stock.
// The quantity must already be capped by the caller; going negative is a
// programming error, so it is clamped and never stored.
func (l *Ledger) RemoveFinishedGoods(units int) {
	l.state.FinishedGoodsStock -= units
	if l.state.FinishedGoodsStock < 0 {
		l.state.FinishedGoodsStock = 0
	}
}

// Credit adds amount to the cash balance.
func (l *Ledger) Credit(amount float64) {
	l.state.CashBalance += amount
}

// Debit removes amount from the cash balance under the given policy.
func (l *Ledger) Debit(amount float64, policy DebitPolicy) error {
	if amount < 0 {
		return sim.NewInvalidArgument("debit amount must be non-negative")
	}
	if policy == RejectShortfall && l.state.CashBalance < amount {
		return sim.NewInsufficientFunds(amount, l.state.CashBalance)
	}
	l.state.CashBalance -= amount
	return nil
}
