// Package aggregator implements the book aggregator (spec.md §4.4): the
// lifecycle of books per symbol, the concurrency boundary, exchange-wide
// counters, and the read-query surface.
package aggregator

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog/log"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
	"fenrir/internal/clock"
	"fenrir/internal/config"
	"fenrir/internal/decimal"
	"fenrir/internal/fees"
	"fenrir/internal/ids"
	"fenrir/internal/matching"
)

// Config configures one aggregator instance (spec.md §6).
type Config struct {
	MakerFeeBps     int64
	TakerFeeBps     int64
	TradeHistoryCap int
	SelfTradePolicy book.SelfTradePolicy
	MaxDepthLevels  int // 0 means unbounded
}

// DefaultConfig returns the spec's documented defaults.
func DefaultConfig() Config {
	return Config{
		MakerFeeBps:     fees.DefaultMakerBps,
		TakerFeeBps:     fees.DefaultTakerBps,
		TradeHistoryCap: book.DefaultTradeHistoryCapacity,
		SelfTradePolicy: book.CancelTaker,
		MaxDepthLevels:  0,
	}
}

// FromFileConfig adapts a config.Config (as loaded by internal/config
// from YAML/env) into the aggregator's own Config shape.
func FromFileConfig(fc config.Config) Config {
	return Config{
		MakerFeeBps:     fc.MakerFeeBps,
		TakerFeeBps:     fc.TakerFeeBps,
		TradeHistoryCap: fc.TradeHistoryCapacity,
		SelfTradePolicy: fc.SelfTradePolicyValue(),
		MaxDepthLevels:  fc.MaxDepthLevels,
	}
}

// exchangeCounters holds the exchange-wide aggregates (spec.md §3),
// stored as atomics so a reader never observes a torn update.
// activeOrders rises and falls with resting orders; the others accumulate
// every trade. The trade counters are advanced by SubmitOrder after the
// matching engine has released the book's lock, so a concurrent reader
// can observe a book's new trades before these counters include them;
// the caller of SubmitOrder sees them advanced once it returns.
type exchangeCounters struct {
	totalTrades          atomic.Int64
	totalVolumeScaled    atomic.Int64 // scaled by 10^8
	totalNotionalScaled  atomic.Int64
	totalMakerFeesScaled atomic.Int64
	totalTakerFeesScaled atomic.Int64
	activeOrders         atomic.Int64
}

const counterScale = 100_000_000 // 10^8

func toScaled(d decimal.Decimal) int64 {
	return d.Mul(decimal.NewFromInt(counterScale)).IntPart()
}

func fromScaled(v int64) decimal.Decimal {
	return decimal.NewFromInt(v).DivRound(decimal.NewFromInt(counterScale), decimal.Scale)
}

// BookEngine is the aggregator: a concurrent symbol -> book map, a
// matching engine shared across all books, and exchange-wide counters.
type BookEngine struct {
	cfg    Config
	engine *matching.Engine
	clock  clock.Clock

	mu    sync.RWMutex // guards books: insert-if-absent + read, per spec.md §5
	books map[string]*book.OrderBook

	// orderSymbols is a global order_id -> symbol registry, populated as
	// each order is admitted. The per-symbol books alone cannot tell a
	// cancel request for an unknown order apart from one naming the wrong
	// symbol for a real order (spec.md §7: OrderNotFound vs SymbolMismatch),
	// since looking a book up by the caller's (possibly wrong) symbol and
	// then missing in its index looks the same either way.
	symbolsMu    sync.RWMutex
	orderSymbols map[ids.ID]string

	counters exchangeCounters
}

// New constructs a BookEngine with the given configuration and clock.
func New(cfg Config, clk clock.Clock) *BookEngine {
	if clk == nil {
		clk = clock.Real
	}
	calc := fees.NewCalculator(cfg.MakerFeeBps, cfg.TakerFeeBps)
	return &BookEngine{
		cfg:          cfg,
		engine:       matching.New(calc, clk),
		clock:        clk,
		books:        make(map[string]*book.OrderBook),
		orderSymbols: make(map[ids.ID]string),
	}
}

// registerOrder records which symbol orderID belongs to.
func (a *BookEngine) registerOrder(orderID ids.ID, symbol string) {
	a.symbolsMu.Lock()
	a.orderSymbols[orderID] = symbol
	a.symbolsMu.Unlock()
}

// symbolOf returns the symbol orderID was submitted under, if known.
func (a *BookEngine) symbolOf(orderID ids.ID) (string, bool) {
	a.symbolsMu.RLock()
	defer a.symbolsMu.RUnlock()
	s, ok := a.orderSymbols[orderID]
	return s, ok
}

// bookFor returns the book for symbol, creating an empty one on first
// reference (spec.md §4.4 "Book creation on demand"). Books are never
// reclaimed.
func (a *BookEngine) bookFor(symbol string) *book.OrderBook {
	a.mu.RLock()
	b, ok := a.books[symbol]
	a.mu.RUnlock()
	if ok {
		return b
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if b, ok = a.books[symbol]; ok {
		return b
	}
	b = book.NewBook(symbol, a.cfg.TradeHistoryCap, a.cfg.SelfTradePolicy)
	b.OnActiveDelta(func(delta int) {
		a.counters.activeOrders.Add(int64(delta))
	})
	a.books[symbol] = b
	log.Info().Str("symbol", symbol).Msg("order book created")
	return b
}

// lookupBook returns the book for symbol without creating one.
func (a *BookEngine) lookupBook(symbol string) (*book.OrderBook, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	b, ok := a.books[symbol]
	return b, ok
}

// SubmitRequest is the in-process shape of spec.md §6's SubmitOrderRequest,
// already past field-level validation (internal/validate).
type SubmitRequest struct {
	ID       ids.ID
	Symbol   string
	Side     book.Side
	Type     book.Type
	Price    *decimal.Decimal
	Quantity decimal.Decimal
	UserID   string
}

// SubmitOutcome is spec.md §6's SubmitOutcome.
type SubmitOutcome struct {
	OrderID        ids.ID
	Status         book.Status
	FilledQuantity decimal.Decimal
	Trades         []book.Trade
	Timestamp      time.Time
}

// SubmitOrder routes req to the symbol's book, delegates to the matching
// engine (which holds the book's exclusive lock for the match), and
// advances exchange-wide counters (spec.md §4.4). It performs no field
// validation of its own: req is taken as already checked by
// internal/validate (see SubmitRequest).
func (a *BookEngine) SubmitOrder(req SubmitRequest) (SubmitOutcome, error) {
	order := &book.Order{
		ID:        req.ID,
		Symbol:    req.Symbol,
		Side:      req.Side,
		Type:      req.Type,
		Price:     req.Price,
		Quantity:  req.Quantity,
		Status:    book.New,
		UserID:    req.UserID,
		CreatedAt: a.clock.Now(),
	}

	b := a.bookFor(req.Symbol)
	a.registerOrder(req.ID, req.Symbol)
	final, trades, err := a.engine.Submit(b, order)
	a.advanceCounters(trades)

	outcome := SubmitOutcome{
		OrderID:        final.ID,
		Status:         final.Status,
		FilledQuantity: final.FilledQuantity,
		Trades:         trades,
		Timestamp:      a.clock.Now(),
	}
	if err != nil {
		return outcome, err
	}
	return outcome, nil
}

// advanceCounters folds a batch of trades into the exchange-wide
// aggregates. The active-order counter is not advanced here: it is kept
// in lockstep by the per-book OnActiveDelta hook installed in bookFor,
// which fires under the same book lock that produced these trades. This
// runs after Submit returns, once the book's lock has been released, so
// these counters are not updated atomically with the book's trade
// history.
func (a *BookEngine) advanceCounters(trades []book.Trade) {
	for _, t := range trades {
		a.counters.totalTrades.Add(1)
		a.counters.totalVolumeScaled.Add(toScaled(t.Quantity))
		a.counters.totalNotionalScaled.Add(toScaled(t.Notional()))
		a.counters.totalMakerFeesScaled.Add(toScaled(t.MakerFee))
		a.counters.totalTakerFeesScaled.Add(toScaled(t.TakerFee))
	}
}

// CancelOrder cancels orderID on symbol's book. The order_id -> symbol
// registry is consulted first so a request naming the wrong symbol for a
// real order is reported as SymbolMismatch rather than OrderNotFound: the
// per-symbol book index alone can't tell the two apart, since a lookup
// under the wrong symbol just misses that book's index either way.
func (a *BookEngine) CancelOrder(symbol string, orderID ids.ID) (*book.Order, error) {
	actual, known := a.symbolOf(orderID)
	if !known {
		return nil, bookerr.New(bookerr.KindOrderNotFound, "unknown order %s", orderID)
	}
	if actual != symbol {
		return nil, bookerr.New(bookerr.KindSymbolMismatch, "order %s belongs to symbol %q, not %q", orderID, actual, symbol)
	}

	b, ok := a.lookupBook(symbol)
	if !ok {
		return nil, bookerr.New(bookerr.KindOrderNotFound, "unknown symbol %q", symbol)
	}
	return a.engine.Cancel(b, orderID)
}

// GetOrder returns the order for symbol/orderID, if this aggregator has
// ever seen it.
func (a *BookEngine) GetOrder(symbol string, orderID ids.ID) (*book.Order, bool) {
	b, ok := a.lookupBook(symbol)
	if !ok {
		return nil, false
	}
	b.Lock()
	defer b.Unlock()
	return b.GetOrder(orderID)
}
