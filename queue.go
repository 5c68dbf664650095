package market

import (
	"github.com/huandu/skiplist"
	"github.com/shopspring/decimal"
)

type priceUnit struct {
	totalQty int64
	head     *Order
	tail     *Order
	count    int64
}

// queue holds one side of the book: a skiplist of price levels in
// priority order, a FIFO linked list of orders per level, and an id
// index. Peek-best is O(1), insert and remove-by-id are O(log n).
// Orders within a level sit in acceptance order, so price-time priority
// falls out of the structure with no explicit sequence comparison and
// no sign tricks on bid prices.
type queue struct {
	side        Side
	totalOrders int64
	depths      int64
	depthList   *skiplist.SkipList
	priceList   map[string]*skiplist.Element
	orders      map[string]*Order
}

// newBidQueue creates the buy side. Levels are sorted by price in
// descending order (highest bid first).
func newBidQueue() *queue {
	return &queue{
		side: Bid,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.LessThan(d2) {
				return 1
			} else if d1.GreaterThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// newAskQueue creates the sell side. Levels are sorted by price in
// ascending order (lowest ask first).
func newAskQueue() *queue {
	return &queue{
		side: Ask,
		depthList: skiplist.New(skiplist.GreaterThanFunc(func(lhs, rhs any) int {
			d1, _ := lhs.(decimal.Decimal)
			d2, _ := rhs.(decimal.Decimal)

			if d1.GreaterThan(d2) {
				return 1
			} else if d1.LessThan(d2) {
				return -1
			}

			return 0
		})),
		priceList: make(map[string]*skiplist.Element),
		orders:    make(map[string]*Order),
	}
}

// order finds an order by its ID.
func (q *queue) order(id string) *Order {
	return q.orders[id]
}

// insertOrder appends an order to the back of its price level, creating
// the level if needed. Orders arrive in sequence order, so appending
// preserves time priority within the level.
func (q *queue) insertOrder(order *Order) {
	key := order.Price.String()
	el, ok := q.priceList[key]
	if ok {
		unit, _ := el.Value.(*priceUnit)

		order.prev = unit.tail
		order.next = nil
		if unit.tail != nil {
			unit.tail.next = order
		}
		unit.tail = order
		if unit.head == nil {
			unit.head = order
		}

		unit.totalQty += order.Quantity
		unit.count++
		q.orders[order.ID] = order
		q.totalOrders++
	} else {
		unit := &priceUnit{
			head:     order,
			tail:     order,
			totalQty: order.Quantity,
			count:    1,
		}
		order.next = nil
		order.prev = nil

		q.orders[order.ID] = order

		el := q.depthList.Set(order.Price, unit)
		q.priceList[key] = el

		q.totalOrders++
		q.depths++
	}
}

// removeOrder removes an order from the queue by ID.
// It also cleans up the price unit if it becomes empty.
func (q *queue) removeOrder(id string) *Order {
	order, ok := q.orders[id]
	if !ok {
		return nil
	}

	key := order.Price.String()
	skipElement, ok := q.priceList[key]
	if !ok {
		return nil
	}
	unit, _ := skipElement.Value.(*priceUnit)

	// Unlink from the level's FIFO
	if order.prev != nil {
		order.prev.next = order.next
	} else {
		unit.head = order.next
	}

	if order.next != nil {
		order.next.prev = order.prev
	} else {
		unit.tail = order.prev
	}

	order.next = nil
	order.prev = nil

	unit.totalQty -= order.Quantity
	unit.count--
	delete(q.orders, id)
	q.totalOrders--

	if unit.count == 0 {
		q.depthList.RemoveElement(skipElement)
		delete(q.priceList, key)
		q.depths--
	}

	return order
}

// reduceOrderQuantity shrinks an order in place after a partial fill.
// The order keeps its position in the level, so its time priority is
// untouched.
func (q *queue) reduceOrderQuantity(id string, fillQty int64) {
	order, ok := q.orders[id]
	if !ok {
		return
	}

	skipElement, ok := q.priceList[order.Price.String()]
	if ok {
		unit, _ := skipElement.Value.(*priceUnit)
		unit.totalQty -= fillQty
		order.Quantity -= fillQty
	}
}

// peekHeadOrder returns the highest-priority order without removing it:
// best price level, oldest order within it.
func (q *queue) peekHeadOrder() *Order {
	el := q.depthList.Front()
	if el == nil {
		return nil
	}

	unit, _ := el.Value.(*priceUnit)
	return unit.head
}

// orderCount returns the total number of orders in the queue.
func (q *queue) orderCount() int64 {
	return q.totalOrders
}

// depthCount returns the number of price levels in the queue.
func (q *queue) depthCount() int64 {
	return q.depths
}

// toSnapshot serializes the queue into a slice of Order values in
// current priority order: price levels first, acceptance order within
// each level.
func (q *queue) toSnapshot() []Order {
	snapshots := make([]Order, 0, q.totalOrders)

	elem := q.depthList.Front()
	for elem != nil {
		unit := elem.Value.(*priceUnit)

		order := unit.head
		for order != nil {
			snapshots = append(snapshots, order.snapshot())
			order = order.next
		}

		elem = elem.Next()
	}

	return snapshots
}

// depth returns the aggregated price levels up to the specified limit.
func (q *queue) depth(limit uint32) []*DepthItem {
	result := make([]*DepthItem, 0, limit)

	el := q.depthList.Front()

	var i uint32 = 0
	for i < limit && el != nil {
		unit, _ := el.Value.(*priceUnit)
		d := DepthItem{
			Price:    unit.head.Price,
			Quantity: unit.totalQty,
		}

		result = append(result, &d)

		el = el.Next()
		i++
	}

	return result
}
