package market

import "github.com/shopspring/decimal"

// Engine is the embeddable venue: one ledger and one order book for a
// single instrument, exposed behind a synchronous surface.
//
// The engine is a single logical writer and provides no locking. A
// concurrent host must serialize every call against one instance, for
// example with a mutex around the engine or by driving it through a
// Dispatcher.
type Engine struct {
	ledger *Ledger
	book   *OrderBook
}

// NewEngine creates a venue engine. Book events go to publisher.
func NewEngine(publisher EventPublisher) *Engine {
	ledger := NewLedger()
	return &Engine{
		ledger: ledger,
		book:   NewOrderBook(ledger, publisher),
	}
}

// OpenAccount creates a participant with the given starting balances
// and returns its owner id.
func (e *Engine) OpenAccount(cash decimal.Decimal, shares int64) (string, error) {
	return e.ledger.OpenAccount(cash, shares)
}

// AccountExists reports whether the owner id is known to the ledger.
func (e *Engine) AccountExists(ownerID string) bool {
	return e.ledger.AccountExists(ownerID)
}

// Submit places a limit order. On acceptance the order's cost is
// escrowed and the returned id is the handle for Cancel.
func (e *Engine) Submit(side Side, price decimal.Decimal, quantity int64, ownerID string) (string, error) {
	return e.book.Submit(side, price, quantity, ownerID)
}

// Cancel removes an active order and refunds its remaining escrow,
// returning a snapshot of the removed order.
func (e *Engine) Cancel(orderID string) (Order, error) {
	return e.book.Cancel(orderID)
}

// MatchStep crosses the best bid and best ask once, or returns nil when
// no crossing interest exists.
func (e *Engine) MatchStep() *Trade {
	return e.book.MatchStep()
}

// RunMatching crosses orders until the book no longer crosses and
// returns the trades in execution order.
func (e *Engine) RunMatching() []*Trade {
	return e.book.RunMatching()
}

// OwnerSnapshot returns a read-only view of one participant's balances.
func (e *Engine) OwnerSnapshot(ownerID string) (OwnerSnapshot, error) {
	return e.ledger.OwnerSnapshot(ownerID)
}

// BookSnapshot returns the active orders of one side in priority order.
func (e *Engine) BookSnapshot(side Side) []Order {
	return e.book.Snapshot(side)
}

// Depth returns the aggregated top-of-book levels up to limit.
func (e *Engine) Depth(limit uint32) (*Depth, error) {
	return e.book.Depth(limit)
}

// Stats returns order book usage statistics.
func (e *Engine) Stats() *BookStats {
	return e.book.Stats()
}

// Totals sums all cash and shares held in the ledger, spendable plus
// pending. Both sums are invariant across submits, matches and cancels.
func (e *Engine) Totals() (decimal.Decimal, int64) {
	return e.ledger.Totals()
}
