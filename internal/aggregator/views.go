package aggregator

import (
	"time"

	"fenrir/internal/book"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// OrderView is the read-facing projection of book.Order (spec.md §4.4
// get_order).
type OrderView struct {
	ID             ids.ID
	Symbol         string
	Side           book.Side
	Type           book.Type
	Price          *decimal.Decimal
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Status         book.Status
	UserID         string
	CreatedAt      time.Time
}

func newOrderView(o *book.Order) OrderView {
	return OrderView{
		ID:             o.ID,
		Symbol:         o.Symbol,
		Side:           o.Side,
		Type:           o.Type,
		Price:          o.Price,
		Quantity:       o.Quantity,
		FilledQuantity: o.FilledQuantity,
		Status:         o.Status,
		UserID:         o.UserID,
		CreatedAt:      o.CreatedAt,
	}
}

// GetOrderView returns the OrderView for symbol/orderID, if known.
func (a *BookEngine) GetOrderView(symbol string, orderID ids.ID) (OrderView, bool) {
	o, ok := a.GetOrder(symbol, orderID)
	if !ok {
		return OrderView{}, false
	}
	return newOrderView(o), true
}

// DepthLevelView is one row of a DepthView side (spec.md §6 DepthView).
type DepthLevelView struct {
	Price    decimal.Decimal
	Quantity decimal.Decimal
	Orders   int
}

// DepthView is spec.md §6's DepthView / §4.4 get_depth output.
type DepthView struct {
	Symbol    string
	Bids      []DepthLevelView
	Asks      []DepthLevelView
	BestBid   *decimal.Decimal
	BestAsk   *decimal.Decimal
	Spread    *decimal.Decimal
	SpreadBps *decimal.Decimal
	MidPrice  *decimal.Decimal
	Timestamp time.Time
}

// GetDepth returns the top n levels of each side of symbol's book, plus
// derived top-of-book fields (spec.md §4.4 get_depth). n <= 0 means all
// levels, subject to the aggregator's configured MaxDepthLevels cap.
func (a *BookEngine) GetDepth(symbol string, n int) DepthView {
	n = a.clampDepth(n)
	view := DepthView{Symbol: symbol, Timestamp: a.clock.Now()}

	b, ok := a.lookupBook(symbol)
	if !ok {
		return view
	}

	b.Lock()
	defer b.Unlock()

	bidLevels, askLevels := b.Depth(n)
	view.Bids = toDepthLevelViews(bidLevels)
	view.Asks = toDepthLevelViews(askLevels)

	if bid, bok := b.BestBid(); bok {
		p := bid.Price
		view.BestBid = &p
	}
	if ask, aok := b.BestAsk(); aok {
		p := ask.Price
		view.BestAsk = &p
	}
	if spread, sok := b.Spread(); sok {
		view.Spread = &spread
		if mid, mok := b.MidPrice(); mok && decimal.IsPositive(mid) {
			bps := decimal.Mul(decimal.Div(spread, mid), decimal.NewFromInt(10000))
			view.SpreadBps = &bps
		}
	}
	if mid, mok := b.MidPrice(); mok {
		view.MidPrice = &mid
	}
	return view
}

func (a *BookEngine) clampDepth(n int) int {
	if a.cfg.MaxDepthLevels <= 0 {
		return n
	}
	if n <= 0 || n > a.cfg.MaxDepthLevels {
		return a.cfg.MaxDepthLevels
	}
	return n
}

func toDepthLevelViews(levels []book.DepthLevel) []DepthLevelView {
	out := make([]DepthLevelView, len(levels))
	for i, l := range levels {
		out[i] = DepthLevelView{Price: l.Price, Quantity: l.TotalQuantity, Orders: l.OrderCount}
	}
	return out
}

// SpreadView is spec.md §4.4's get_spread_metrics output.
type SpreadView struct {
	Symbol        string
	BestBid       *decimal.Decimal
	BestAsk       *decimal.Decimal
	SpreadAbs     *decimal.Decimal
	SpreadBps     *decimal.Decimal
	MidPrice      *decimal.Decimal
	BidDepthTotal decimal.Decimal
	AskDepthTotal decimal.Decimal
}

// GetSpreadMetrics computes top-of-book spread statistics for symbol
// (spec.md §4.4 get_spread_metrics). Depth totals sum every level on each
// side (K = all, the documented default).
func (a *BookEngine) GetSpreadMetrics(symbol string) SpreadView {
	view := SpreadView{Symbol: symbol}

	b, ok := a.lookupBook(symbol)
	if !ok {
		return view
	}

	b.Lock()
	defer b.Unlock()

	if bid, bok := b.BestBid(); bok {
		p := bid.Price
		view.BestBid = &p
	}
	if ask, aok := b.BestAsk(); aok {
		p := ask.Price
		view.BestAsk = &p
	}
	if spread, sok := b.Spread(); sok {
		view.SpreadAbs = &spread
		if mid, mok := b.MidPrice(); mok && decimal.IsPositive(mid) {
			bps := decimal.Mul(decimal.Div(spread, mid), decimal.NewFromInt(10000))
			view.SpreadBps = &bps
		}
	}
	if mid, mok := b.MidPrice(); mok {
		view.MidPrice = &mid
	}

	bids, asks := b.Depth(0)
	for _, l := range bids {
		view.BidDepthTotal = decimal.Add(view.BidDepthTotal, l.TotalQuantity)
	}
	for _, l := range asks {
		view.AskDepthTotal = decimal.Add(view.AskDepthTotal, l.TotalQuantity)
	}
	return view
}

// TradeView is spec.md §6's TradeView.
type TradeView struct {
	TradeID      ids.ID
	Price        decimal.Decimal
	Quantity     decimal.Decimal
	MakerFee     decimal.Decimal
	TakerFee     decimal.Decimal
	BuyerUserID  string
	SellerUserID string
	Timestamp    time.Time
}

func newTradeView(t book.Trade) TradeView {
	return TradeView{
		TradeID:      t.ID,
		Price:        t.Price,
		Quantity:     t.Quantity,
		MakerFee:     t.MakerFee,
		TakerFee:     t.TakerFee,
		BuyerUserID:  t.BuyerUserID,
		SellerUserID: t.SellerUserID,
		Timestamp:    t.Timestamp,
	}
}

// GetRecentTrades returns up to limit of symbol's most recent trades,
// newest first (spec.md §4.4 get_recent_trades). limit <= 0 means every
// trade still held in the bounded history.
func (a *BookEngine) GetRecentTrades(symbol string, limit int) []TradeView {
	b, ok := a.lookupBook(symbol)
	if !ok {
		return nil
	}

	b.Lock()
	trades := b.RecentTrades(limit)
	b.Unlock()

	out := make([]TradeView, len(trades))
	for i, t := range trades {
		// RecentTrades returns oldest-to-newest; the view is newest-first.
		out[len(trades)-1-i] = newTradeView(t)
	}
	return out
}

// ExchangeMetrics is spec.md §4.4's get_exchange_metrics output.
type ExchangeMetrics struct {
	TotalTrades    int64
	TotalVolume    decimal.Decimal
	TotalNotional  decimal.Decimal
	TotalMakerFees decimal.Decimal
	TotalTakerFees decimal.Decimal
	ActiveOrders   int64
	Symbols        []string
}

// GetExchangeMetrics returns the exchange-wide aggregates accumulated
// across every symbol this aggregator has ever served.
func (a *BookEngine) GetExchangeMetrics() ExchangeMetrics {
	a.mu.RLock()
	symbols := make([]string, 0, len(a.books))
	for s := range a.books {
		symbols = append(symbols, s)
	}
	a.mu.RUnlock()

	return ExchangeMetrics{
		TotalTrades:    a.counters.totalTrades.Load(),
		TotalVolume:    fromScaled(a.counters.totalVolumeScaled.Load()),
		TotalNotional:  fromScaled(a.counters.totalNotionalScaled.Load()),
		TotalMakerFees: fromScaled(a.counters.totalMakerFeesScaled.Load()),
		TotalTakerFees: fromScaled(a.counters.totalTakerFeesScaled.Load()),
		ActiveOrders:   a.counters.activeOrders.Load(),
		Symbols:        symbols,
	}
}
