package market

import (
	"fmt"
	"time"

	"github.com/rs/xid"
	"github.com/shopspring/decimal"
)

// BookStats contains usage statistics about the order book queues.
type BookStats struct {
	AskDepthCount int64
	AskOrderCount int64
	BidDepthCount int64
	BidOrderCount int64
}

// OrderBook owns the two priced queues and the crossing algorithm. It
// consults the Ledger for admission, escrow and refunds, and drives
// settlement; it never touches owner balances directly.
//
// The book is a single logical writer together with its Ledger: none of
// its methods lock, and a concurrent host must serialize all calls (see
// Dispatcher).
type OrderBook struct {
	ledger    *Ledger
	bidQueue  *queue
	askQueue  *queue
	sequence  uint64 // Next acceptance sequence, advances once per accepted order
	tradeID   uint64 // Sequential trade ID counter, only incremented for matches
	eventSeq  uint64 // Globally increasing sequence ID for BookEvent production
	publisher EventPublisher
}

// NewOrderBook creates an order book bound to the given ledger.
// Events go to publisher; pass a DiscardPublisher when no downstream
// consumer exists.
func NewOrderBook(ledger *Ledger, publisher EventPublisher) *OrderBook {
	return &OrderBook{
		ledger:    ledger,
		bidQueue:  newBidQueue(),
		askQueue:  newAskQueue(),
		publisher: publisher,
	}
}

// Submit runs the admission check, escrows the order's cost, assigns a
// fresh id and sequence, and rests the order in its side of the book.
// A rejection (ErrUnknownOwner, ErrInsufficientFunds,
// ErrInsufficientShares) leaves every piece of state untouched.
func (book *OrderBook) Submit(side Side, price decimal.Decimal, quantity int64, ownerID string) (string, error) {
	if side != Bid && side != Ask {
		return "", ErrInvalidParam
	}
	if !price.IsPositive() || quantity <= 0 {
		return "", ErrInvalidParam
	}

	if !book.ledger.AccountExists(ownerID) {
		return "", ErrUnknownOwner
	}

	order := &Order{
		Side:     side,
		Price:    price,
		Quantity: quantity,
		OwnerID:  ownerID,
	}

	if !book.ledger.CanSubmit(order) {
		if side == Bid {
			return "", ErrInsufficientFunds
		}
		return "", ErrInsufficientShares
	}

	book.ledger.Escrow(order)

	order.ID = xid.New().String()
	order.Sequence = book.sequence
	book.sequence++

	if side == Bid {
		book.bidQueue.insertOrder(order)
	} else {
		book.askQueue.insertOrder(order)
	}

	ev := acquireBookEvent()
	ev.SequenceID = book.nextEventSeq()
	ev.Type = EventTypeOpen
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = order.Quantity
	ev.OrderID = order.ID
	ev.OwnerID = order.OwnerID
	ev.CreatedAt = time.Now().UTC()
	book.publish(ev)

	return order.ID, nil
}

// Cancel removes an active order from the book and refunds the escrow
// still held for its remaining quantity. Returns ErrOrderNotFound with
// no mutation when the id is not active on either side.
func (book *OrderBook) Cancel(orderID string) (Order, error) {
	myQueue := book.askQueue
	order := myQueue.order(orderID)
	if order == nil {
		myQueue = book.bidQueue
		order = myQueue.order(orderID)
	}
	if order == nil {
		return Order{}, ErrOrderNotFound
	}

	myQueue.removeOrder(orderID)
	book.ledger.Refund(order)

	ev := acquireBookEvent()
	ev.SequenceID = book.nextEventSeq()
	ev.Type = EventTypeCancel
	ev.Side = order.Side
	ev.Price = order.Price
	ev.Quantity = order.Quantity
	ev.OrderID = order.ID
	ev.OwnerID = order.OwnerID
	ev.CreatedAt = time.Now().UTC()
	book.publish(ev)

	return order.snapshot(), nil
}

// MatchStep makes a single attempt to cross the best bid against the
// best ask. It returns nil, mutating nothing, when either side is empty
// or the best bid sits below the best ask.
//
// The execution price is the resting (smaller sequence) order's price,
// never a midpoint or the taker's price. The fully filled side leaves
// the book; a partially filled order shrinks in place and keeps its id,
// sequence and queue position. Settlement sees value snapshots captured
// before either live order was touched.
func (book *OrderBook) MatchStep() *Trade {
	bestBid := book.bidQueue.peekHeadOrder()
	bestAsk := book.askQueue.peekHeadOrder()
	if bestBid == nil || bestAsk == nil {
		return nil
	}

	if bestBid.Price.LessThan(bestAsk.Price) {
		return nil
	}

	// Sequences are engine-global and unique per accepted order, so a
	// tie across sides cannot happen in correct operation.
	if bestBid.Sequence == bestAsk.Sequence {
		panic(fmt.Sprintf("order book: bid %s and ask %s share sequence %d", bestBid.ID, bestAsk.ID, bestBid.Sequence))
	}

	maker, taker := bestBid, bestAsk
	if bestAsk.Sequence < bestBid.Sequence {
		maker, taker = bestAsk, bestBid
	}
	execPrice := maker.Price

	execQty := bestBid.Quantity
	if bestAsk.Quantity < execQty {
		execQty = bestAsk.Quantity
	}

	bidSnap := bestBid.snapshot()
	askSnap := bestAsk.snapshot()

	if bestBid.Quantity == execQty {
		book.bidQueue.removeOrder(bestBid.ID)
	} else {
		book.bidQueue.reduceOrderQuantity(bestBid.ID, execQty)
	}

	if bestAsk.Quantity == execQty {
		book.askQueue.removeOrder(bestAsk.ID)
	} else {
		book.askQueue.reduceOrderQuantity(bestAsk.ID, execQty)
	}

	book.ledger.Settle(bidSnap, askSnap, execPrice, execQty)

	book.tradeID++
	trade := &Trade{
		TradeID:    book.tradeID,
		BidOrderID: bidSnap.ID,
		AskOrderID: askSnap.ID,
		Price:      execPrice,
		Quantity:   execQty,
		CreatedAt:  time.Now().UTC(),
	}

	ev := acquireBookEvent()
	ev.SequenceID = book.nextEventSeq()
	ev.TradeID = trade.TradeID
	ev.Type = EventTypeMatch
	ev.Side = taker.Side
	ev.Price = execPrice
	ev.Quantity = execQty
	ev.OrderID = taker.ID
	ev.OwnerID = taker.OwnerID
	ev.MakerOrderID = maker.ID
	ev.MakerOwnerID = maker.OwnerID
	ev.TakerPrice = taker.Price
	ev.CreatedAt = trade.CreatedAt
	book.publish(ev)

	return trade
}

// RunMatching invokes MatchStep until no crossing interest remains and
// returns the trades in execution order. Calling it again after new
// submissions continues correctly.
func (book *OrderBook) RunMatching() []*Trade {
	var trades []*Trade
	for {
		trade := book.MatchStep()
		if trade == nil {
			return trades
		}
		trades = append(trades, trade)
	}
}

// Snapshot returns the active orders of one side in current priority
// order: best price first, oldest first within a price level.
func (book *OrderBook) Snapshot(side Side) []Order {
	if side == Bid {
		return book.bidQueue.toSnapshot()
	}
	return book.askQueue.toSnapshot()
}

// Depth returns the aggregated price levels of both sides up to the
// specified limit.
func (book *OrderBook) Depth(limit uint32) (*Depth, error) {
	if limit == 0 {
		return nil, ErrInvalidParam
	}

	return &Depth{
		UpdateID: book.eventSeq,
		Asks:     book.askQueue.depth(limit),
		Bids:     book.bidQueue.depth(limit),
	}, nil
}

// Stats returns usage statistics for the order book.
func (book *OrderBook) Stats() *BookStats {
	return &BookStats{
		AskDepthCount: book.askQueue.depthCount(),
		AskOrderCount: book.askQueue.orderCount(),
		BidDepthCount: book.bidQueue.depthCount(),
		BidOrderCount: book.bidQueue.orderCount(),
	}
}

func (book *OrderBook) nextEventSeq() uint64 {
	book.eventSeq++
	return book.eventSeq
}

func (book *OrderBook) publish(ev *BookEvent) {
	book.publisher.Publish(ev)
	releaseBookEvent(ev)
}
