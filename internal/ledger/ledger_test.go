package ledger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fennward/factorytwin/internal/sim"
)

func newLedger(stock int, cash float64) (*Ledger, *sim.FactoryState) {
	state := &sim.FactoryState{RawMaterialStock: stock, CashBalance: cash}
	return New(state), state
}

func TestReserveMaterials(t *testing.T) {
	l, state := newLedger(10, 0)

	res, err := l.ReserveMaterials(6)
	require.NoError(t, err)
	assert.Equal(t, 6, res.Units)
	assert.Equal(t, 4, state.RawMaterialStock)
}

func TestReserveMaterials_InsufficientStock(t *testing.T) {
	l, state := newLedger(5, 0)

	_, err := l.ReserveMaterials(6)
	require.Error(t, err)
	assert.True(t, sim.IsInsufficientStock(err))
	// Stock untouched on failure.
	assert.Equal(t, 5, state.RawMaterialStock)
}

func TestReserveMaterials_ExactStock(t *testing.T) {
	l, state := newLedger(5, 0)

	_, err := l.ReserveMaterials(5)
	require.NoError(t, err)
	assert.Zero(t, state.RawMaterialStock)
}

func TestReserveMaterials_NegativeUnits(t *testing.T) {
	l, _ := newLedger(5, 0)
	_, err := l.ReserveMaterials(-1)
	assert.True(t, sim.IsInvalidArgument(err))
}

func TestReleaseMaterials(t *testing.T) {
	l, state := newLedger(4, 0)

	l.ReleaseMaterials(6)
	assert.Equal(t, 10, state.RawMaterialStock)

	// Zero and negative releases are no-ops.
	l.ReleaseMaterials(0)
	l.ReleaseMaterials(-3)
	assert.Equal(t, 10, state.RawMaterialStock)
}

func TestFinishedGoods(t *testing.T) {
	l, state := newLedger(0, 0)

	l.AddFinishedGoods(5)
	assert.Equal(t, 5, state.FinishedGoodsStock)

	l.RemoveFinishedGoods(3)
	assert.Equal(t, 2, state.FinishedGoodsStock)

	// Removing more than held clamps at zero.
	l.RemoveFinishedGoods(10)
	assert.Zero(t, state.FinishedGoodsStock)

	l.AddFinishedGoods(-1)
	assert.Zero(t, state.FinishedGoodsStock)
}

func TestCredit(t *testing.T) {
	l, state := newLedger(0, 100)
	l.Credit(161.5)
	assert.Equal(t, 261.5, state.CashBalance)
}

func TestDebit_AllowDebt(t *testing.T) {
	l, state := newLedger(0, 100)

	require.NoError(t, l.Debit(250, AllowDebt))
	assert.Equal(t, -150.0, state.CashBalance)
	assert.True(t, state.InDebt())
}

func TestDebit_RejectShortfall(t *testing.T) {
	l, state := newLedger(0, 100)

	err := l.Debit(250, RejectShortfall)
	require.Error(t, err)
	assert.True(t, sim.IsInsufficientFunds(err))
	// Balance untouched on rejection.
	assert.Equal(t, 100.0, state.CashBalance)

	require.NoError(t, l.Debit(100, RejectShortfall))
	assert.Zero(t, state.CashBalance)
}

func TestDebit_NegativeAmount(t *testing.T) {
	l, state := newLedger(0, 100)
	err := l.Debit(-5, AllowDebt)
	assert.True(t, sim.IsInvalidArgument(err))
	assert.Equal(t, 100.0, state.CashBalance)
}
