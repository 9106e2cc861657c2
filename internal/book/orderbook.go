// Package book implements the per-symbol order book: two sorted sides of
// price levels with FIFO queues, an order index, and derived top-of-book
// state (spec.md §4.1). It is the sole mutator of the bid/ask ladders, the
// order index and the trade history for one symbol.
package book

import (
	"container/list"
	"sync"

	"github.com/rs/zerolog/log"
	"github.com/tidwall/btree"

	"fenrir/internal/bookerr"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// SelfTradePolicy controls how the matching engine behaves when the head
// of the opposite book belongs to the same user as the incoming order
// (spec.md §9).
type SelfTradePolicy int

const (
	// CancelTaker (default): stop matching, cancel/partial-fill the
	// incoming order, leave the resting order untouched.
	CancelTaker SelfTradePolicy = iota
	// CancelResting removes the matching resting order and continues
	// matching against the next one; no trade is recorded for that pair.
	CancelResting
	// CancelBoth removes both orders; no trade; incoming treated as done.
	CancelBoth
	// Reject refuses the whole submission at admission time.
	Reject
)

// DefaultTradeHistoryCapacity is T, the bounded trade-ring size (spec.md §3).
const DefaultTradeHistoryCapacity = 1000

// orderHandle is the order index's entry: the order itself, plus enough
// back-references to remove it from its price level in O(1). level/elem
// are nil once the order has left the ladder (filled, cancelled); the
// handle itself is retained so Cancel/GetOrder can distinguish "never
// existed" (OrderNotFound) from "existed but is now terminal"
// (InvalidState) per spec.md §7 — a distinction the bid/ask ladders alone
// cannot make once an order is unlinked from them.
type orderHandle struct {
	order *Order
	level *PriceLevel
	elem  *list.Element
}

func (h *orderHandle) resting() bool { return h.level != nil }

// levelsTree is a sorted map of price -> *PriceLevel, ordered by the
// comparator supplied at construction (descending for bids, ascending
// for asks), exactly the teacher's btree.BTreeG[*PriceLevel] choice.
type levelsTree = btree.BTreeG[*PriceLevel]

// OrderBook is the per-symbol order book.
type OrderBook struct {
	mu sync.Mutex

	Symbol string

	bids *levelsTree // descending by price
	asks *levelsTree // ascending by price

	// orders holds every order this book has ever accepted (index entries
	// persist past terminal transitions, see orderHandle); activeCount
	// tracks the cardinality of the non-terminal subset in O(1).
	orders      map[ids.ID]*orderHandle
	activeCount int

	trades       []Trade
	tradeHead    int // next write slot in the ring
	tradeFilled  bool
	tradeHistCap int

	SelfTradePolicy SelfTradePolicy

	// onActiveDelta, if set, is invoked with +1/-1 whenever an order
	// starts or stops resting, while the book's own lock is held — the
	// hook the aggregator uses to keep its exchange-wide active_orders
	// atomic counter in lockstep with the book's mutation (spec.md §9:
	// "Aggregator counters: atomics under the book lock").
	onActiveDelta func(delta int)
}

// NewBook constructs an empty order book for symbol with the given trade
// history capacity and self-trade policy.
func NewBook(symbol string, tradeHistCap int, policy SelfTradePolicy) *OrderBook {
	if tradeHistCap <= 0 {
		tradeHistCap = DefaultTradeHistoryCapacity
	}
	bids := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return decimal.Cmp(a.Price, b.Price) > 0 // descending
	})
	asks := btree.NewBTreeG(func(a, b *PriceLevel) bool {
		return decimal.Cmp(a.Price, b.Price) < 0 // ascending
	})
	return &OrderBook{
		Symbol:          symbol,
		bids:            bids,
		asks:            asks,
		orders:          make(map[ids.ID]*orderHandle),
		trades:          make([]Trade, 0, tradeHistCap),
		tradeHistCap:    tradeHistCap,
		SelfTradePolicy: policy,
	}
}

// OnActiveDelta registers the callback invoked whenever the number of
// resting orders changes. Must be set before concurrent use begins.
func (b *OrderBook) OnActiveDelta(fn func(delta int)) {
	b.onActiveDelta = fn
}

func (b *OrderBook) bumpActive(delta int) {
	b.activeCount += delta
	if b.onActiveDelta != nil {
		b.onActiveDelta(delta)
	}
}

// Lock / Unlock expose the book's single exclusive lock (spec.md §5) so
// the matching engine and the aggregator can serialize a whole
// submit/cancel operation, including its reads, under one critical
// section.
func (b *OrderBook) Lock()   { b.mu.Lock() }
func (b *OrderBook) Unlock() { b.mu.Unlock() }

func (b *OrderBook) sideTree(side Side) *levelsTree {
	if side == Buy {
		return b.bids
	}
	return b.asks
}

func (b *OrderBook) ensureHandle(order *Order) *orderHandle {
	h, ok := b.orders[order.ID]
	if !ok {
		h = &orderHandle{order: order}
		b.orders[order.ID] = h
	}
	return h
}

// Index registers order in the book's order index without placing it on
// either ladder. Every order the matching engine accepts is indexed this
// way up front so that GetOrder/Cancel can find it by identifier
// regardless of whether it ever rests (Market orders never do; a fully
// filled Limit order only rests momentarily, if at all).
func (b *OrderBook) Index(order *Order) {
	b.ensureHandle(order)
}

// InsertResting inserts a Limit order with remaining > 0 into its side
// under its price, appending to the level's FIFO queue. Preconditions per
// spec.md §4.1: order.Type == Limit, order.Status in {New,
// PartiallyFilled}, order.Remaining() > 0, not already resting.
func (b *OrderBook) InsertResting(order *Order) error {
	if order.Type != Limit {
		log.Error().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Msg("internal inconsistency: InsertResting called on a non-limit order")
		return bookerr.New(bookerr.KindInternalInconsistency, "InsertResting on non-limit order %s", order.ID)
	}
	if order.Status != New && order.Status != PartiallyFilled {
		log.Error().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Str("status", order.Status.String()).Msg("internal inconsistency: InsertResting called on an order in the wrong status")
		return bookerr.New(bookerr.KindInternalInconsistency, "InsertResting on order %s in status %s", order.ID, order.Status)
	}
	remaining := order.Remaining()
	if !decimal.IsPositive(remaining) {
		log.Error().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Msg("internal inconsistency: InsertResting called with non-positive remaining quantity")
		return bookerr.New(bookerr.KindInternalInconsistency, "InsertResting on order %s with non-positive remaining", order.ID)
	}

	h := b.ensureHandle(order)
	if h.resting() {
		log.Error().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Msg("internal inconsistency: InsertResting called on an already-resting order")
		return bookerr.New(bookerr.KindInternalInconsistency, "InsertResting on already-resting order %s", order.ID)
	}

	tree := b.sideTree(order.Side)
	search := &PriceLevel{Price: *order.Price}
	level, ok := tree.GetMut(search)
	if !ok {
		level = newPriceLevel(*order.Price)
		tree.Set(level)
	}
	h.elem = level.pushBack(order.ID, remaining)
	h.level = level
	b.bumpActive(1)
	return nil
}

// Remove unlinks a resting order from its level queue, collapsing the
// level if its queue becomes empty, and returns it. The order's index
// entry is retained (see orderHandle) so later GetOrder/Cancel calls can
// still find it and report InvalidState rather than OrderNotFound.
func (b *OrderBook) Remove(id ids.ID) (*Order, bool) {
	h, ok := b.orders[id]
	if !ok || !h.resting() {
		return nil, false
	}
	h.level.removeElement(h.elem, h.order.Remaining())
	if h.level.isEmpty() {
		b.sideTree(h.order.Side).Delete(h.level)
	}
	h.level, h.elem = nil, nil
	b.bumpActive(-1)
	return h.order, true
}

// PeekBest returns the best price level of a side, if any.
func (b *OrderBook) PeekBest(side Side) (*PriceLevel, bool) {
	return b.sideTree(side).Min()
}

// ApplyFill increments the resting order's filled_quantity by qty,
// decreases the level's cached total, and updates status. If the order
// becomes Filled it is unlinked from the level; if the level becomes
// empty it is removed from its side.
func (b *OrderBook) ApplyFill(id ids.ID, qty decimal.Decimal) error {
	h, ok := b.orders[id]
	if !ok || !h.resting() {
		log.Error().Str("symbol", b.Symbol).Str("order_id", id.String()).
			Msg("internal inconsistency: ApplyFill target missing from the order index")
		return bookerr.New(bookerr.KindInternalInconsistency, "ApplyFill: order %s referenced by a level but missing from the index", id)
	}
	if err := h.order.ApplyFill(qty); err != nil {
		return err
	}
	if h.order.Status == Filled {
		h.level.removeElement(h.elem, qty) // qty was the order's whole remaining quantity
		if h.level.isEmpty() {
			b.sideTree(h.order.Side).Delete(h.level)
		}
		h.level, h.elem = nil, nil
		b.bumpActive(-1)
	} else {
		h.level.reduce(qty)
	}
	return nil
}

// GetOrder returns the order at id if this book has ever indexed it,
// regardless of whether it is still resting or has since reached a
// terminal status.
func (b *OrderBook) GetOrder(id ids.ID) (*Order, bool) {
	h, ok := b.orders[id]
	if !ok {
		return nil, false
	}
	return h.order, true
}

// IsResting reports whether id currently occupies a price level.
func (b *OrderBook) IsResting(id ids.ID) bool {
	h, ok := b.orders[id]
	return ok && h.resting()
}

// RecordTrade appends trade to the bounded trade history, evicting the
// oldest entry once full.
func (b *OrderBook) RecordTrade(t Trade) {
	if len(b.trades) < b.tradeHistCap {
		b.trades = append(b.trades, t)
		return
	}
	b.trades[b.tradeHead] = t
	b.tradeHead = (b.tradeHead + 1) % b.tradeHistCap
	b.tradeFilled = true
}

// RecentTrades returns up to n of the most recently recorded trades,
// oldest-to-newest within the returned slice.
func (b *OrderBook) RecentTrades(n int) []Trade {
	ordered := b.tradesOldestFirst()
	if n <= 0 || n >= len(ordered) {
		return ordered
	}
	return ordered[len(ordered)-n:]
}

// tradesOldestFirst linearizes the ring buffer into insertion order.
func (b *OrderBook) tradesOldestFirst() []Trade {
	if !b.tradeFilled {
		out := make([]Trade, len(b.trades))
		copy(out, b.trades)
		return out
	}
	out := make([]Trade, 0, len(b.trades))
	out = append(out, b.trades[b.tradeHead:]...)
	out = append(out, b.trades[:b.tradeHead]...)
	return out
}

// BestBid returns the best (highest) bid price level.
func (b *OrderBook) BestBid() (*PriceLevel, bool) { return b.bids.Min() }

// BestAsk returns the best (lowest) ask price level.
func (b *OrderBook) BestAsk() (*PriceLevel, bool) { return b.asks.Min() }

// Spread returns best_ask.price - best_bid.price, if both sides are
// non-empty.
func (b *OrderBook) Spread() (decimal.Decimal, bool) {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return decimal.Zero, false
	}
	return decimal.Sub(ask.Price, bid.Price), true
}

// MidPrice returns (best_bid + best_ask) / 2, if both sides are non-empty.
func (b *OrderBook) MidPrice() (decimal.Decimal, bool) {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return decimal.Zero, false
	}
	sum := decimal.Add(bid.Price, ask.Price)
	return decimal.Div(sum, decimal.NewFromInt(2)), true
}

// DepthLevel is a read-only snapshot of one price level for depth queries.
type DepthLevel struct {
	Price         decimal.Decimal
	TotalQuantity decimal.Decimal
	OrderCount    int
}

// Depth returns the top n price levels on each side, aggregated quantity
// and order count per level. n <= 0 means "all levels".
func (b *OrderBook) Depth(n int) (bids []DepthLevel, asks []DepthLevel) {
	collect := func(tree *levelsTree) []DepthLevel {
		items := tree.Items()
		if n > 0 && n < len(items) {
			items = items[:n]
		}
		out := make([]DepthLevel, len(items))
		for i, pl := range items {
			out[i] = DepthLevel{
				Price:         pl.Price,
				TotalQuantity: pl.TotalQuantity,
				OrderCount:    pl.orderCount(),
			}
		}
		return out
	}
	return collect(b.bids), collect(b.asks)
}

// WalkCrossing walks price levels on side, best first, while pricePred
// holds for the level's price, and within each level visits every
// resting order identifier front-to-back via visit. It stops as soon as
// pricePred returns false for a level or visit returns false. It performs
// no mutation and is safe to call without the book's matching loop
// assumptions (used for admission-time self-trade scans).
func (b *OrderBook) WalkCrossing(side Side, pricePred func(decimal.Decimal) bool, visit func(ids.ID) bool) {
	for _, level := range b.sideTree(side).Items() {
		if !pricePred(level.Price) {
			return
		}
		for _, id := range level.OrderIDs() {
			if !visit(id) {
				return
			}
		}
	}
}

// IsCrossed reports whether the book is in a crossed state: both sides
// non-empty and best_bid.price >= best_ask.price. This must never be
// observed outside an in-flight match (spec.md §3 invariant).
func (b *OrderBook) IsCrossed() bool {
	bid, bok := b.BestBid()
	ask, aok := b.BestAsk()
	if !bok || !aok {
		return false
	}
	return decimal.Cmp(bid.Price, ask.Price) >= 0
}

// ActiveOrderCount returns the number of orders currently resting on
// either ladder.
func (b *OrderBook) ActiveOrderCount() int {
	return b.activeCount
}
