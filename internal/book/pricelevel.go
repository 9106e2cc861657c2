package book

import (
	"container/list"

	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// PriceLevel is a FIFO queue of resting order identifiers at one price,
// plus a cached aggregate remaining quantity (spec.md §3). The queue is
// backed by container/list so front-peek, front-pop and back-push are
// O(1); removal-by-identifier is O(1) too, given the *list.Element handle
// that OrderBook keeps alongside each indexed order — no example repo in
// the retrieval pack reaches for a third-party deque for this, so this is
// the one stdlib-only data structure in the core (see DESIGN.md).
type PriceLevel struct {
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal
	Orders        *list.List // elements are ids.ID
}

func newPriceLevel(price decimal.Decimal) *PriceLevel {
	return &PriceLevel{
		Price:  price,
		Orders: list.New(),
	}
}

// pushBack appends id to the tail of the queue (newest arrival).
func (pl *PriceLevel) pushBack(id ids.ID, qty decimal.Decimal) *list.Element {
	pl.TotalQuantity = decimal.Add(pl.TotalQuantity, qty)
	return pl.Orders.PushBack(id)
}

// front returns the identifier at the head of the queue (next to match).
func (pl *PriceLevel) front() (ids.ID, bool) {
	e := pl.Orders.Front()
	if e == nil {
		return ids.Nil, false
	}
	return e.Value.(ids.ID), true
}

// FrontID returns the identifier at the head of the queue — the next
// order to match, by FIFO priority.
func (pl *PriceLevel) FrontID() (ids.ID, bool) {
	return pl.front()
}

// OrderIDs returns every identifier resting at this level, front to back
// (insertion order).
func (pl *PriceLevel) OrderIDs() []ids.ID {
	out := make([]ids.ID, 0, pl.Orders.Len())
	for e := pl.Orders.Front(); e != nil; e = e.Next() {
		out = append(out, e.Value.(ids.ID))
	}
	return out
}

// removeElement removes the given element from the queue and decrements
// the cached total by delta (the order's remaining quantity at removal
// time).
func (pl *PriceLevel) removeElement(e *list.Element, delta decimal.Decimal) {
	pl.Orders.Remove(e)
	pl.TotalQuantity = decimal.Sub(pl.TotalQuantity, delta)
}

// reduce shrinks the cached total by delta without touching the queue,
// used when a resting order is partially filled but stays at the front.
func (pl *PriceLevel) reduce(delta decimal.Decimal) {
	pl.TotalQuantity = decimal.Sub(pl.TotalQuantity, delta)
}

// isEmpty reports whether the level has no resting orders.
func (pl *PriceLevel) isEmpty() bool {
	return pl.Orders.Len() == 0
}

// orderCount returns the number of resting orders in the level.
func (pl *PriceLevel) orderCount() int {
	return pl.Orders.Len()
}
