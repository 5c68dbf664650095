package market

// CalculateDepthChanges converts a book event into the depth updates a
// downstream view must apply. An open adds the order's quantity to its
// side, a cancel removes the remaining quantity, and a match removes
// the executed quantity from both sides, since both orders of a matched
// pair were resting in the book.
//
// Depth is keyed by each order's resting price: the maker's level is the
// execution price, the taker's level is its own limit (TakerPrice).
func CalculateDepthChanges(ev *BookEvent) []DepthChange {
	switch ev.Type {
	case EventTypeOpen:
		return []DepthChange{{
			Side:    ev.Side,
			Price:   ev.Price,
			QtyDiff: ev.Quantity,
		}}
	case EventTypeCancel:
		return []DepthChange{{
			Side:    ev.Side,
			Price:   ev.Price,
			QtyDiff: -ev.Quantity,
		}}
	case EventTypeMatch:
		makerSide := Bid
		if ev.Side == Bid {
			makerSide = Ask
		}
		return []DepthChange{
			{Side: ev.Side, Price: ev.TakerPrice, QtyDiff: -ev.Quantity},
			{Side: makerSide, Price: ev.Price, QtyDiff: -ev.Quantity},
		}
	}

	return nil
}
