package market

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngineEndToEnd(t *testing.T) {
	publisher := NewMemoryPublisher()
	engine := NewEngine(publisher)

	ownerA, err := engine.OpenAccount(decimal.NewFromInt(10000), 50)
	require.NoError(t, err)
	ownerB, err := engine.OpenAccount(decimal.NewFromInt(10000), 50)
	require.NoError(t, err)
	assert.True(t, engine.AccountExists(ownerA))
	assert.False(t, engine.AccountExists("nobody"))

	_, err = engine.Submit(Ask, decimal.NewFromInt(50), 10, ownerB)
	require.NoError(t, err)
	_, err = engine.Submit(Bid, decimal.NewFromInt(55), 4, ownerA)
	require.NoError(t, err)

	trades := engine.RunMatching()
	require.Len(t, trades, 1)
	assert.Equal(t, "50", trades[0].Price.String())
	assert.Equal(t, int64(4), trades[0].Quantity)

	snapA, err := engine.OwnerSnapshot(ownerA)
	require.NoError(t, err)
	assert.Equal(t, "9800", snapA.Cash.String())
	assert.Equal(t, int64(54), snapA.Shares)

	asks := engine.BookSnapshot(Ask)
	require.Len(t, asks, 1)
	assert.Equal(t, int64(6), asks[0].Quantity)

	depth, err := engine.Depth(5)
	require.NoError(t, err)
	require.Len(t, depth.Asks, 1)
	assert.Equal(t, int64(6), depth.Asks[0].Quantity)

	stats := engine.Stats()
	assert.Equal(t, int64(1), stats.AskOrderCount)
	assert.Equal(t, int64(0), stats.BidOrderCount)

	totalCash, totalShares := engine.Totals()
	assert.Equal(t, "20000", totalCash.String())
	assert.Equal(t, int64(100), totalShares)
}

func TestEngineCancellationRefund(t *testing.T) {
	engine := NewEngine(NewDiscardPublisher())

	ownerA, err := engine.OpenAccount(decimal.NewFromInt(1000), 0)
	require.NoError(t, err)
	ownerB, err := engine.OpenAccount(decimal.NewFromInt(500), 0)
	require.NoError(t, err)

	orderID, err := engine.Submit(Bid, decimal.NewFromInt(50), 4, ownerA)
	require.NoError(t, err)

	cancelled, err := engine.Cancel(orderID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), cancelled.Quantity)

	// The refund restores A in full and leaves B untouched.
	snapA, err := engine.OwnerSnapshot(ownerA)
	require.NoError(t, err)
	assert.Equal(t, "1000", snapA.Cash.String())
	assert.Equal(t, "0", snapA.PendingCash.String())

	snapB, err := engine.OwnerSnapshot(ownerB)
	require.NoError(t, err)
	assert.Equal(t, "500", snapB.Cash.String())
	assert.Equal(t, "0", snapB.PendingCash.String())
}
