package market

import (
	"fmt"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// owner holds one participant's balances. cash and shares are spendable
// now; pendingCash and pendingShares are reserved against open orders.
// Mutated only by Ledger operations.
type owner struct {
	id            string
	cash          decimal.Decimal
	shares        int64
	pendingCash   decimal.Decimal
	pendingShares int64
}

// assertSolvent panics if any balance went negative. A negative balance
// can only come from a logic defect inside the engine, never from user
// input, so it is fatal rather than a recoverable error.
func (o *owner) assertSolvent() {
	if o.cash.IsNegative() || o.shares < 0 || o.pendingCash.IsNegative() || o.pendingShares < 0 {
		panic(fmt.Sprintf("ledger: owner %s has a negative balance: cash=%s shares=%d pending_cash=%s pending_shares=%d",
			o.id, o.cash, o.shares, o.pendingCash, o.pendingShares))
	}
}

// Ledger owns every participant balance: admission checks, escrow on
// submission, settlement on trade, refund on cancellation. It never
// initiates matching.
//
// The mutating operations trust their caller: Escrow assumes CanSubmit
// passed, Settle assumes a prior matching Escrow. Violating those
// contracts panics.
type Ledger struct {
	owners map[string]*owner
}

// NewLedger creates an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{
		owners: make(map[string]*owner),
	}
}

// OpenAccount creates an owner with the given balances and zero pending
// amounts, and returns its fresh id.
func (l *Ledger) OpenAccount(cash decimal.Decimal, shares int64) (string, error) {
	if cash.IsNegative() || shares < 0 {
		return "", ErrInvalidParam
	}

	id := xid.New().String()
	l.owners[id] = &owner{
		id:          id,
		cash:        cash,
		shares:      shares,
		pendingCash: decimal.Zero,
	}
	return id, nil
}

// AccountExists reports whether an owner with the given id exists.
func (l *Ledger) AccountExists(ownerID string) bool {
	_, ok := l.owners[ownerID]
	return ok
}

// CanSubmit reports whether the order's owner holds enough spendable
// balance to cover it: shares for an ask, price*quantity cash for a bid.
// Read-only, no side effects.
func (l *Ledger) CanSubmit(order *Order) bool {
	own, ok := l.owners[order.OwnerID]
	if !ok {
		return false
	}

	switch order.Side {
	case Ask:
		return own.shares >= order.Quantity
	case Bid:
		cost := order.Price.Mul(decimal.NewFromInt(order.Quantity))
		return own.cash.GreaterThanOrEqual(cost)
	}
	return false
}

// Escrow moves the order's cost from the spendable balance to the
// pending balance, preventing a double spend while the order rests in
// the book. The caller must have checked AccountExists and CanSubmit;
// Escrow does not re-check.
func (l *Ledger) Escrow(order *Order) {
	own := l.mustOwner(order.OwnerID)

	switch order.Side {
	case Ask:
		own.shares -= order.Quantity
		own.pendingShares += order.Quantity
	case Bid:
		cost := order.Price.Mul(decimal.NewFromInt(order.Quantity))
		own.cash = own.cash.Sub(cost)
		own.pendingCash = own.pendingCash.Add(cost)
	}

	own.assertSolvent()
}

// Settle moves cash and shares between the two owners of a matched pair.
// Called exactly once per trade. bid and ask must be value snapshots
// captured before the book mutated either live order, because the escrow
// release is computed from the original price and the bid's own limit.
//
// If the execution price improved on the bid's limit, the difference
// execQty*(bid.Price-execPrice) goes back to the bid owner's cash.
// Settlement cannot fail once escrow succeeded, so there is no admission
// check here.
func (l *Ledger) Settle(bid Order, ask Order, execPrice decimal.Decimal, execQty int64) {
	bidOwner := l.mustOwner(bid.OwnerID)
	askOwner := l.mustOwner(ask.OwnerID)
	qty := decimal.NewFromInt(execQty)

	// Release exactly the cash escrowed for this quantity at the bid's own price.
	bidOwner.pendingCash = bidOwner.pendingCash.Sub(bid.Price.Mul(qty))
	if execPrice.LessThan(bid.Price) {
		bidOwner.cash = bidOwner.cash.Add(bid.Price.Sub(execPrice).Mul(qty))
	}
	bidOwner.shares += execQty

	askOwner.cash = askOwner.cash.Add(execPrice.Mul(qty))
	askOwner.pendingShares -= execQty

	bidOwner.assertSolvent()
	askOwner.assertSolvent()
}

// Refund reverses the remaining escrow of a cancelled order back to the
// spendable balance, using the order's current (possibly partially
// filled) quantity.
func (l *Ledger) Refund(order *Order) {
	own := l.mustOwner(order.OwnerID)

	switch order.Side {
	case Ask:
		own.pendingShares -= order.Quantity
		own.shares += order.Quantity
	case Bid:
		cost := order.Price.Mul(decimal.NewFromInt(order.Quantity))
		own.pendingCash = own.pendingCash.Sub(cost)
		own.cash = own.cash.Add(cost)
	}

	own.assertSolvent()
}

// OwnerSnapshot returns a read-only view of one owner's balances.
func (l *Ledger) OwnerSnapshot(ownerID string) (OwnerSnapshot, error) {
	own, ok := l.owners[ownerID]
	if !ok {
		return OwnerSnapshot{}, ErrUnknownOwner
	}
	return OwnerSnapshot{
		Cash:          own.cash,
		Shares:        own.shares,
		PendingCash:   own.pendingCash,
		PendingShares: own.pendingShares,
	}, nil
}

// Totals sums cash+pendingCash and shares+pendingShares across all
// owners. Trades only move value between owners, so both sums are
// constant for the life of a session.
func (l *Ledger) Totals() (cash decimal.Decimal, shares int64) {
	cash = decimal.Zero
	for _, own := range l.owners {
		cash = cash.Add(own.cash).Add(own.pendingCash)
		shares += own.shares + own.pendingShares
	}
	return cash, shares
}

func (l *Ledger) mustOwner(id string) *owner {
	own, ok := l.owners[id]
	if !ok {
		panic(fmt.Sprintf("ledger: unknown owner %s in a mutating operation", id))
	}
	return own
}
