package market

import (
	"github.com/igrmk/treemap/v2"
	"github.com/shopspring/decimal"
)

// AggregatedBook maintains a simplified view of the order book,
// tracking only price levels and their aggregated quantities (depth).
// It is designed for downstream consumers that rebuild book state from
// the BookEvent stream without access to the live queues.
type AggregatedBook struct {
	seqID uint64 // Last applied SequenceID for gap detection and deduplication
	ask   *treemap.TreeMap[decimal.Decimal, int64]
	bid   *treemap.TreeMap[decimal.Decimal, int64]
}

// NewAggregatedBook creates a new AggregatedBook instance with empty ask and bid sides.
func NewAggregatedBook() *AggregatedBook {
	return &AggregatedBook{
		ask: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
		bid: treemap.NewWithKeyCompare[decimal.Decimal, int64](func(a, b decimal.Decimal) bool {
			return a.LessThan(b)
		}),
	}
}

// SequenceID returns the last applied sequence ID.
// Used for synchronization and gap detection during rebuild.
func (ab *AggregatedBook) SequenceID() uint64 {
	return ab.seqID
}

// Apply updates the aggregated view from one book event. Events already
// applied are ignored; a sequence gap returns ErrSequenceGap and leaves
// the view untouched so the consumer can resync.
func (ab *AggregatedBook) Apply(ev *BookEvent) error {
	if ev.SequenceID <= ab.seqID {
		return nil
	}
	if ev.SequenceID != ab.seqID+1 {
		return ErrSequenceGap
	}

	for _, change := range CalculateDepthChanges(ev) {
		ab.applyChange(change)
	}

	ab.seqID = ev.SequenceID
	return nil
}

// Depth returns the aggregated quantity at a specific price level for
// the given side, or zero if the level does not exist.
func (ab *AggregatedBook) Depth(side Side, price decimal.Decimal) int64 {
	qty, _ := ab.tree(side).Get(price)
	return qty
}

// BestBid returns the highest bid level, or false if the bid side is empty.
func (ab *AggregatedBook) BestBid() (DepthItem, bool) {
	if ab.bid.Len() == 0 {
		return DepthItem{}, false
	}
	it := ab.bid.Reverse()
	return DepthItem{Price: it.Key(), Quantity: it.Value()}, true
}

// BestAsk returns the lowest ask level, or false if the ask side is empty.
func (ab *AggregatedBook) BestAsk() (DepthItem, bool) {
	if ab.ask.Len() == 0 {
		return DepthItem{}, false
	}
	it := ab.ask.Iterator()
	return DepthItem{Price: it.Key(), Quantity: it.Value()}, true
}

// Levels returns the number of price levels on the given side.
func (ab *AggregatedBook) Levels(side Side) int {
	return ab.tree(side).Len()
}

func (ab *AggregatedBook) tree(side Side) *treemap.TreeMap[decimal.Decimal, int64] {
	if side == Bid {
		return ab.bid
	}
	return ab.ask
}

func (ab *AggregatedBook) applyChange(change DepthChange) {
	tree := ab.tree(change.Side)

	qty, _ := tree.Get(change.Price)
	qty += change.QtyDiff
	if qty <= 0 {
		tree.Del(change.Price)
		return
	}
	tree.Set(change.Price, qty)
}
