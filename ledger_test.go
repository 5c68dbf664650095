package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenAccount(t *testing.T) {
	ledger := NewLedger()

	id, err := ledger.OpenAccount(decimal.NewFromInt(10000), 50)
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	assert.True(t, ledger.AccountExists(id))

	snap, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "10000", snap.Cash.String())
	assert.Equal(t, int64(50), snap.Shares)
	assert.Equal(t, "0", snap.PendingCash.String())
	assert.Equal(t, int64(0), snap.PendingShares)
}

func TestOpenAccountRejectsNegativeBalances(t *testing.T) {
	ledger := NewLedger()

	_, err := ledger.OpenAccount(decimal.NewFromInt(-1), 0)
	assert.ErrorIs(t, err, ErrInvalidParam)

	_, err = ledger.OpenAccount(decimal.Zero, -1)
	assert.ErrorIs(t, err, ErrInvalidParam)

	// Zero balances are a valid, if poor, way to join the venue.
	_, err = ledger.OpenAccount(decimal.Zero, 0)
	assert.NoError(t, err)
}

func TestAccountExists(t *testing.T) {
	ledger := NewLedger()
	assert.False(t, ledger.AccountExists("nobody"))

	_, err := ledger.OwnerSnapshot("nobody")
	assert.ErrorIs(t, err, ErrUnknownOwner)
}

func TestCanSubmit(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.NewFromInt(100), 10)
	require.NoError(t, err)

	tests := []struct {
		name     string
		side     Side
		price    int64
		quantity int64
		want     bool
	}{
		{"bid within cash", Bid, 10, 10, true},
		{"bid exactly at cash", Bid, 25, 4, true},
		{"bid over cash", Bid, 101, 1, false},
		{"ask within shares", Ask, 1, 10, true},
		{"ask over shares", Ask, 1, 11, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			order := &Order{
				Side:     tt.side,
				Price:    decimal.NewFromInt(tt.price),
				Quantity: tt.quantity,
				OwnerID:  id,
			}
			assert.Equal(t, tt.want, ledger.CanSubmit(order))
		})
	}

	// Unknown owner never passes admission.
	assert.False(t, ledger.CanSubmit(&Order{Side: Bid, Price: decimal.NewFromInt(1), Quantity: 1, OwnerID: "nobody"}))
}

func TestCanSubmitIsReadOnly(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.NewFromInt(100), 10)
	require.NoError(t, err)

	order := &Order{Side: Bid, Price: decimal.NewFromInt(5), Quantity: 2, OwnerID: id}
	ledger.CanSubmit(order)

	snap, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "100", snap.Cash.String())
	assert.Equal(t, "0", snap.PendingCash.String())
}

func TestEscrowBid(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)

	ledger.Escrow(&Order{Side: Bid, Price: decimal.NewFromInt(55), Quantity: 4, OwnerID: id})

	snap, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "780", snap.Cash.String())
	assert.Equal(t, "220", snap.PendingCash.String())
}

func TestEscrowAsk(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.Zero, 50)
	require.NoError(t, err)

	ledger.Escrow(&Order{Side: Ask, Price: decimal.NewFromInt(50), Quantity: 10, OwnerID: id})

	snap, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, int64(40), snap.Shares)
	assert.Equal(t, int64(10), snap.PendingShares)
}

func TestRefund(t *testing.T) {
	ledger := NewLedger()
	bidOwner, err := ledger.OpenAccount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	askOwner, err := ledger.OpenAccount(decimal.Zero, 20)
	require.NoError(t, err)

	bid := &Order{Side: Bid, Price: decimal.NewFromInt(50), Quantity: 4, OwnerID: bidOwner}
	ask := &Order{Side: Ask, Price: decimal.NewFromInt(60), Quantity: 5, OwnerID: askOwner}
	ledger.Escrow(bid)
	ledger.Escrow(ask)

	ledger.Refund(bid)
	snap, err := ledger.OwnerSnapshot(bidOwner)
	require.NoError(t, err)
	assert.Equal(t, "1000", snap.Cash.String())
	assert.Equal(t, "0", snap.PendingCash.String())

	ledger.Refund(ask)
	snap, err = ledger.OwnerSnapshot(askOwner)
	require.NoError(t, err)
	assert.Equal(t, int64(20), snap.Shares)
	assert.Equal(t, int64(0), snap.PendingShares)
}

func TestRefundPartiallyFilledBid(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.NewFromInt(500), 0)
	require.NoError(t, err)

	bid := &Order{Side: Bid, Price: decimal.NewFromInt(50), Quantity: 4, OwnerID: id}
	ledger.Escrow(bid)

	// Simulate a partial fill of 1: the live order shrinks, the refund
	// covers only the remaining 3.
	bid.Quantity = 3
	snapBefore, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "200", snapBefore.PendingCash.String())

	ledger.Refund(bid)
	snap, err := ledger.OwnerSnapshot(id)
	require.NoError(t, err)
	assert.Equal(t, "450", snap.Cash.String())
	assert.Equal(t, "50", snap.PendingCash.String())
}

func TestSettleAtBidPrice(t *testing.T) {
	ledger := NewLedger()
	bidOwner, err := ledger.OpenAccount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	askOwner, err := ledger.OpenAccount(decimal.Zero, 10)
	require.NoError(t, err)

	bid := Order{Side: Bid, Price: decimal.NewFromInt(50), Quantity: 4, OwnerID: bidOwner}
	ask := Order{Side: Ask, Price: decimal.NewFromInt(45), Quantity: 4, OwnerID: askOwner}
	ledger.Escrow(&bid)
	ledger.Escrow(&ask)

	// Execution at the bid's own price: no refund owed.
	ledger.Settle(bid, ask, decimal.NewFromInt(50), 4)

	bidSnap, err := ledger.OwnerSnapshot(bidOwner)
	require.NoError(t, err)
	assert.Equal(t, "800", bidSnap.Cash.String())
	assert.Equal(t, "0", bidSnap.PendingCash.String())
	assert.Equal(t, int64(4), bidSnap.Shares)

	askSnap, err := ledger.OwnerSnapshot(askOwner)
	require.NoError(t, err)
	assert.Equal(t, "200", askSnap.Cash.String())
	assert.Equal(t, int64(6), askSnap.Shares)
	assert.Equal(t, int64(0), askSnap.PendingShares)
}

func TestSettlePriceImprovementRefund(t *testing.T) {
	ledger := NewLedger()
	bidOwner, err := ledger.OpenAccount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	askOwner, err := ledger.OpenAccount(decimal.Zero, 10)
	require.NoError(t, err)

	bid := Order{Side: Bid, Price: decimal.NewFromInt(55), Quantity: 4, OwnerID: bidOwner}
	ask := Order{Side: Ask, Price: decimal.NewFromInt(50), Quantity: 10, OwnerID: askOwner}
	ledger.Escrow(&bid)
	ledger.Escrow(&ask)

	// Executed at 50 against a 55 bid: the 4*(55-50)=20 savings go back
	// to spendable cash.
	ledger.Settle(bid, ask, decimal.NewFromInt(50), 4)

	bidSnap, err := ledger.OwnerSnapshot(bidOwner)
	require.NoError(t, err)
	assert.Equal(t, "800", bidSnap.Cash.String())
	assert.Equal(t, "0", bidSnap.PendingCash.String())
	assert.Equal(t, int64(4), bidSnap.Shares)

	askSnap, err := ledger.OwnerSnapshot(askOwner)
	require.NoError(t, err)
	assert.Equal(t, "200", askSnap.Cash.String())
	assert.Equal(t, int64(6), askSnap.PendingShares)
}

func TestSettleConservesTotals(t *testing.T) {
	ledger := NewLedger()
	bidOwner, err := ledger.OpenAccount(decimal.NewFromInt(1000), 5)
	require.NoError(t, err)
	askOwner, err := ledger.OpenAccount(decimal.NewFromInt(300), 10)
	require.NoError(t, err)

	startCash, startShares := ledger.Totals()

	bid := Order{Side: Bid, Price: decimal.NewFromInt(55), Quantity: 4, OwnerID: bidOwner}
	ask := Order{Side: Ask, Price: decimal.NewFromInt(50), Quantity: 4, OwnerID: askOwner}
	ledger.Escrow(&bid)
	ledger.Escrow(&ask)
	ledger.Settle(bid, ask, decimal.NewFromInt(50), 4)

	endCash, endShares := ledger.Totals()
	assert.True(t, startCash.Equal(endCash), "cash total changed: %s -> %s", startCash, endCash)
	assert.Equal(t, startShares, endShares)
}

func TestMutatingOperationsPanicOnUnknownOwner(t *testing.T) {
	ledger := NewLedger()

	order := &Order{Side: Bid, Price: decimal.NewFromInt(1), Quantity: 1, OwnerID: "nobody"}
	assert.Panics(t, func() { ledger.Escrow(order) })
	assert.Panics(t, func() { ledger.Refund(order) })
	assert.Panics(t, func() {
		ledger.Settle(*order, *order, decimal.NewFromInt(1), 1)
	})
}

func TestNegativeBalancePanics(t *testing.T) {
	ledger := NewLedger()
	id, err := ledger.OpenAccount(decimal.NewFromInt(10), 0)
	require.NoError(t, err)

	// Escrow without a passing admission check is a contract breach and
	// must blow up rather than leave a negative balance behind.
	assert.Panics(t, func() {
		ledger.Escrow(&Order{Side: Bid, Price: decimal.NewFromInt(100), Quantity: 1, OwnerID: id})
	})
}
