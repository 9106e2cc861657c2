// Package matching implements the limit/market matching algorithm
// (spec.md §4.3): a stateless operator over one order book that advances
// its state and produces trades for an incoming order, and the order
// cancellation operation.
package matching

import (
	"time"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
	"fenrir/internal/clock"
	"fenrir/internal/decimal"
	"fenrir/internal/fees"
	"fenrir/internal/ids"
)

// Engine is a stateless matching operator: it carries only the fee
// calculator and clock needed to compute trades, never book state of its
// own. One Engine can safely drive many OrderBooks concurrently — the
// critical section lives in the book's own lock (spec.md §5).
type Engine struct {
	Fees  fees.Calculator
	Clock clock.Clock
}

// New builds a matching Engine.
func New(calc fees.Calculator, clk clock.Clock) *Engine {
	return &Engine{Fees: calc, Clock: clk}
}

// Submit advances book's state for the incoming order and returns its
// final status/filled_quantity plus every trade produced, in execution
// order (spec.md §4.3). order must already have passed request
// validation; Submit still rejects a handful of match-time conditions
// (self-trade under a Reject policy, a Market order that cannot obtain
// any fill).
func (e *Engine) Submit(b *book.OrderBook, order *book.Order) (*book.Order, []book.Trade, error) {
	b.Lock()
	defer b.Unlock()

	b.Index(order)

	if b.SelfTradePolicy == book.Reject && crossesSameUser(b, order) {
		order.MarkRejected()
		log.Warn().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Str("side", order.Side.String()).Msg("order rejected: self-trade at crossing price")
		return order, nil, bookerr.New(bookerr.KindSelfTradeRejected,
			"order %s: same-user resting order exists at a crossing price", order.ID)
	}

	opposite := order.Side.Opposite()
	var trades []book.Trade
	hadFills := false
	selfTradeStopped := false

matchLoop:
	for decimal.IsPositive(order.Remaining()) {
		level, ok := b.PeekBest(opposite)
		if !ok || !crosses(order, level.Price) {
			break
		}

		headID, ok := level.FrontID()
		if !ok {
			log.Error().Str("symbol", b.Symbol).Str("price", decimal.String(level.Price)).
				Str("side", opposite.String()).Msg("internal inconsistency: empty queue at a present ladder level")
			return order, trades, bookerr.New(bookerr.KindInternalInconsistency,
				"price level %s on %s side has an empty queue while present in the ladder", level.Price, opposite)
		}
		headOrder, ok := b.GetOrder(headID)
		if !ok {
			log.Error().Str("symbol", b.Symbol).Str("order_id", headID.String()).
				Msg("internal inconsistency: price level references an order missing from the index")
			return order, trades, bookerr.New(bookerr.KindInternalInconsistency,
				"order %s referenced by a price level is missing from the order index", headID)
		}

		if headOrder.UserID == order.UserID {
			switch b.SelfTradePolicy {
			case book.CancelTaker:
				selfTradeStopped = true
				log.Warn().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
					Str("user_id", order.UserID).Msg("self-trade prevented: taker order stopped")
				break matchLoop
			case book.CancelResting:
				if _, ok := b.Remove(headOrder.ID); ok {
					if err := headOrder.MarkCancelled(); err != nil {
						return order, trades, err
					}
					log.Warn().Str("symbol", b.Symbol).Str("order_id", headOrder.ID.String()).
						Str("user_id", headOrder.UserID).Msg("self-trade prevented: resting order cancelled")
				}
				continue matchLoop
			case book.CancelBoth:
				if _, ok := b.Remove(headOrder.ID); ok {
					if err := headOrder.MarkCancelled(); err != nil {
						return order, trades, err
					}
					log.Warn().Str("symbol", b.Symbol).Str("order_id", headOrder.ID.String()).
						Str("user_id", headOrder.UserID).Msg("self-trade prevented: resting order cancelled")
				}
				selfTradeStopped = true
				log.Warn().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
					Str("user_id", order.UserID).Msg("self-trade prevented: taker order stopped")
				break matchLoop
			}
		}

		matchQty := decimal.Min(order.Remaining(), headOrder.Remaining())
		tradePrice := *headOrder.Price
		notional := decimal.Mul(tradePrice, matchQty)
		makerFee, takerFee := e.Fees.Compute(notional)

		if err := b.ApplyFill(headOrder.ID, matchQty); err != nil {
			return order, trades, err
		}
		if err := order.ApplyFill(matchQty); err != nil {
			return order, trades, err
		}

		trade := buildTrade(b.Symbol, e.Clock.Now(), tradePrice, matchQty, order, headOrder, makerFee, takerFee)
		b.RecordTrade(trade)
		trades = append(trades, trade)
		hadFills = true
	}

	if err := disposeIncoming(b, order, hadFills, selfTradeStopped); err != nil {
		return order, trades, err
	}
	if order.Status == book.Rejected {
		log.Warn().Str("symbol", b.Symbol).Str("order_id", order.ID.String()).
			Str("side", order.Side.String()).Msg("order rejected: no liquidity on opposite side")
		return order, nil, bookerr.New(bookerr.KindMarketNoLiquidity,
			"market order %s: opposite side had no liquidity to fill against", order.ID)
	}
	return order, trades, nil
}

// disposeIncoming applies the post-match disposition rules of spec.md
// §4.3 step 3 to the incoming order, inserting it into the book when it
// is a Limit order that should rest.
func disposeIncoming(b *book.OrderBook, order *book.Order, hadFills, selfTradeStopped bool) error {
	if !decimal.IsPositive(order.Remaining()) {
		return nil // Filled already set by the last ApplyFill.
	}

	if selfTradeStopped {
		if !hadFills {
			return order.MarkCancelled()
		}
		return nil // already PartiallyFilled from the last ApplyFill.
	}

	switch order.Type {
	case book.Limit:
		if err := b.InsertResting(order); err != nil {
			return err
		}
		order.MarkRestingOutcome(hadFills)
		return nil
	case book.Market:
		if !hadFills {
			order.MarkRejected()
			return nil
		}
		// Market residual is not rested; it is simply dropped.
		return nil
	}
	return nil
}

// crosses reports whether order would cross against a resting price on
// the opposite side (spec.md §4.3 step 1).
func crosses(order *book.Order, restingPrice decimal.Decimal) bool {
	if order.Type == book.Market {
		return true
	}
	if order.Side == book.Buy {
		return decimal.Cmp(restingPrice, *order.Price) <= 0
	}
	return decimal.Cmp(restingPrice, *order.Price) >= 0
}

// crossesSameUser scans every crossing price level on the opposite side
// for a resting order from the same user, for the Reject self-trade
// policy's admission-time check (spec.md §9: "refuse the whole submission
// ... if any same-user order exists on the opposite side at a crossing
// price").
func crossesSameUser(b *book.OrderBook, order *book.Order) bool {
	opposite := order.Side.Opposite()
	found := false
	b.WalkCrossing(opposite, func(price decimal.Decimal) bool {
		return crosses(order, price)
	}, func(id ids.ID) bool {
		o, ok := b.GetOrder(id)
		if ok && o.UserID == order.UserID {
			found = true
			return false
		}
		return true
	})
	return found
}

// buildTrade assembles an immutable Trade record for one match between
// taker (the incoming order) and maker (the resting order), at the
// maker's price (spec.md §3, §4.3 step 2d).
func buildTrade(symbol string, ts time.Time, price, qty decimal.Decimal, taker, maker *book.Order, makerFee, takerFee decimal.Decimal) book.Trade {
	buyer, seller := maker, taker
	if taker.Side == book.Buy {
		buyer, seller = taker, maker
	}
	return book.Trade{
		ID:            ids.New(),
		Symbol:        symbol,
		Price:         price,
		Quantity:      qty,
		BuyerOrderID:  buyer.ID,
		SellerOrderID: seller.ID,
		BuyerUserID:   buyer.UserID,
		SellerUserID:  seller.UserID,
		MakerOrderID:  maker.ID,
		TakerOrderID:  taker.ID,
		MakerFee:      makerFee,
		TakerFee:      takerFee,
		Timestamp:     ts,
	}
}

// Cancel transitions a resting order to Cancelled and removes it from the
// book (spec.md §4.3 "Cancellation operation"). Partial fills accumulated
// before cancellation are retained in filled_quantity.
func (e *Engine) Cancel(b *book.OrderBook, orderID ids.ID) (*book.Order, error) {
	b.Lock()
	defer b.Unlock()

	order, ok := b.GetOrder(orderID)
	if !ok {
		return nil, bookerr.New(bookerr.KindOrderNotFound, "order %s not found", orderID)
	}
	if order.Status.IsTerminal() {
		return nil, bookerr.New(bookerr.KindInvalidState, "order %s already %s", orderID, order.Status)
	}

	if _, ok := b.Remove(orderID); !ok {
		// Indexed but not resting: a non-terminal, non-resting order
		// should not exist by construction (every non-terminal order is
		// either resting or mid-Submit under this same lock).
		log.Error().Str("symbol", b.Symbol).Str("order_id", orderID.String()).
			Msg("internal inconsistency: non-terminal order missing from resting index")
		return nil, bookerr.New(bookerr.KindInternalInconsistency,
			"order %s is non-terminal but not resting on its book", orderID)
	}
	if err := order.MarkCancelled(); err != nil {
		return nil, err
	}
	return order, nil
}
