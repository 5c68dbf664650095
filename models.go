package market

import (
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type Side int8

const (
	Bid Side = 1
	Ask Side = 2
)

func (s Side) String() string {
	switch s {
	case Bid:
		return "bid"
	case Ask:
		return "ask"
	}
	return "unknown"
}

// Order is a resting limit order in one side of the book.
// Quantity is reduced in place on partial fills; ID and Sequence never
// change for the life of the order.
type Order struct {
	ID       string          `json:"id"`
	Side     Side            `json:"side"`
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"` // Remaining unfilled quantity
	OwnerID  string          `json:"owner_id"`
	Sequence uint64          `json:"sequence"` // Acceptance order, sole time-priority tiebreak

	// Intrusive linked list pointers for the price level FIFO (ignored by JSON)
	next *Order
	prev *Order
}

// snapshot returns a detached value copy. Settlement arithmetic must see
// the pre-mutation price and quantity, so a snapshot is taken before the
// live order is reduced or removed.
func (o *Order) snapshot() Order {
	cpy := *o
	cpy.next = nil
	cpy.prev = nil
	return cpy
}

// Trade is the result of crossing one bid against one ask.
// Price is always the resting (smaller sequence) order's price.
type Trade struct {
	TradeID    uint64          `json:"trade_id"`
	BidOrderID string          `json:"bid_order_id"`
	AskOrderID string          `json:"ask_order_id"`
	Price      decimal.Decimal `json:"price"`
	Quantity   int64           `json:"quantity"`
	CreatedAt  time.Time       `json:"created_at"`
}

// OwnerSnapshot is a read-only view of one account's balances.
type OwnerSnapshot struct {
	Cash          decimal.Decimal `json:"cash"`
	Shares        int64           `json:"shares"`
	PendingCash   decimal.Decimal `json:"pending_cash"`
	PendingShares int64           `json:"pending_shares"`
}

type EventType string

const (
	EventTypeOpen   EventType = "open"
	EventTypeMatch  EventType = "match"
	EventTypeCancel EventType = "cancel"
)

// BookEvent describes one state transition of the book. SequenceID is a
// globally increasing ID for every event, used for ordering, deduplication,
// and depth rebuild in downstream consumers.
type BookEvent struct {
	SequenceID   uint64          `json:"seq_id"`
	TradeID      uint64          `json:"trade_id,omitempty"` // Only set for Match events
	Type         EventType       `json:"type"`
	Side         Side            `json:"side"`
	Price        decimal.Decimal `json:"price"`
	Quantity     int64           `json:"quantity"`
	OrderID      string          `json:"order_id"`
	OwnerID      string          `json:"owner_id"`
	MakerOrderID string          `json:"maker_order_id,omitempty"` // Only set for Match events
	MakerOwnerID string          `json:"maker_owner_id,omitempty"`
	TakerPrice   decimal.Decimal `json:"taker_price,omitempty"` // Taker's resting limit, may differ from the execution price
	CreatedAt    time.Time       `json:"created_at"`
}

var bookEventPool = sync.Pool{
	New: func() interface{} {
		return new(BookEvent)
	},
}

func acquireBookEvent() *BookEvent {
	return bookEventPool.Get().(*BookEvent)
}

func releaseBookEvent(ev *BookEvent) {
	// Reset to zero values. For decimal.Decimal the zero value represents 0, which is valid.
	*ev = BookEvent{}
	bookEventPool.Put(ev)
}

// DepthChange represents a change in the order book depth.
type DepthChange struct {
	Side    Side
	Price   decimal.Decimal
	QtyDiff int64
}

type DepthItem struct {
	Price    decimal.Decimal `json:"price"`
	Quantity int64           `json:"quantity"`
}

type Depth struct {
	UpdateID uint64       `json:"update_id"`
	Asks     []*DepthItem `json:"asks"`
	Bids     []*DepthItem `json:"bids"`
}
