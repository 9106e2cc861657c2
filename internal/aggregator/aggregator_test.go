package aggregator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
	"fenrir/internal/clock"
	"fenrir/internal/config"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

func newEngine() *BookEngine {
	return New(DefaultConfig(), clock.NewSequence(time.Unix(1700000000, 0).UTC()))
}

func limitReq(symbol string, side book.Side, price, qty, user string) SubmitRequest {
	p := decimal.MustParse(price)
	return SubmitRequest{
		ID:       ids.New(),
		Symbol:   symbol,
		Side:     side,
		Type:     book.Limit,
		Price:    &p,
		Quantity: decimal.MustParse(qty),
		UserID:   user,
	}
}

func TestSubmitOrder_CreatesBookOnDemand(t *testing.T) {
	a := newEngine()
	outcome, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "99.00", "10", "alice"))
	require.NoError(t, err)
	assert.Equal(t, book.New, outcome.Status)
	assert.Empty(t, outcome.Trades)

	metrics := a.GetExchangeMetrics()
	assert.Equal(t, []string{"AAPL"}, metrics.Symbols)
	assert.Equal(t, int64(1), metrics.ActiveOrders)
}

func TestSubmitOrder_MatchAdvancesExchangeCounters(t *testing.T) {
	a := newEngine()
	_, err := a.SubmitOrder(limitReq("AAPL", book.Sell, "100.00", "10", "alice"))
	require.NoError(t, err)

	outcome, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "100.00", "10", "bob"))
	require.NoError(t, err)
	require.Len(t, outcome.Trades, 1)

	metrics := a.GetExchangeMetrics()
	assert.Equal(t, int64(1), metrics.TotalTrades)
	assert.Equal(t, "10.0", decimal.String(metrics.TotalVolume))
	assert.Equal(t, int64(0), metrics.ActiveOrders)
}

func TestCancelOrder_RoundTrip(t *testing.T) {
	a := newEngine()
	req := limitReq("AAPL", book.Buy, "99.00", "10", "alice")
	outcome, err := a.SubmitOrder(req)
	require.NoError(t, err)

	order, err := a.CancelOrder("AAPL", outcome.OrderID)
	require.NoError(t, err)
	assert.Equal(t, book.Cancelled, order.Status)
}

func TestCancelOrder_UnknownSymbolReturnsOrderNotFound(t *testing.T) {
	a := newEngine()
	_, err := a.CancelOrder("MSFT", ids.New())
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindOrderNotFound))
}

func TestCancelOrder_WrongSymbolForKnownOrderReturnsSymbolMismatch(t *testing.T) {
	a := newEngine()
	outcome, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "99.00", "10", "alice"))
	require.NoError(t, err)

	_, err = a.CancelOrder("MSFT", outcome.OrderID)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindSymbolMismatch))

	// The order itself is untouched by the rejected cancel attempt.
	order, ok := a.GetOrder("AAPL", outcome.OrderID)
	require.True(t, ok)
	assert.Equal(t, book.New, order.Status)
}

func TestGetOrder_FindsIndexedOrder(t *testing.T) {
	a := newEngine()
	outcome, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "99.00", "10", "alice"))
	require.NoError(t, err)

	order, ok := a.GetOrder("AAPL", outcome.OrderID)
	require.True(t, ok)
	assert.Equal(t, outcome.OrderID, order.ID)
}

func TestGetDepth_ReportsTopOfBookAndSpreadBps(t *testing.T) {
	a := newEngine()
	_, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "99.00", "10", "alice"))
	require.NoError(t, err)
	_, err = a.SubmitOrder(limitReq("AAPL", book.Sell, "101.00", "10", "bob"))
	require.NoError(t, err)

	view := a.GetDepth("AAPL", 0)
	require.Len(t, view.Bids, 1)
	require.Len(t, view.Asks, 1)
	require.NotNil(t, view.BestBid)
	require.NotNil(t, view.BestAsk)
	require.NotNil(t, view.MidPrice)
	require.NotNil(t, view.Spread)
	require.NotNil(t, view.SpreadBps)

	assert.Equal(t, "99.0", decimal.String(*view.BestBid))
	assert.Equal(t, "101.0", decimal.String(*view.BestAsk))
	assert.Equal(t, "100.0", decimal.String(*view.MidPrice))
	assert.Equal(t, "2.0", decimal.String(*view.Spread))
	// spread_bps = spread / mid_price * 10000 = 2/100 * 10000 = 200.
	assert.Equal(t, "200.0", decimal.String(*view.SpreadBps))
}

func TestGetDepth_UnknownSymbolReturnsEmptyView(t *testing.T) {
	a := newEngine()
	view := a.GetDepth("MSFT", 0)
	assert.Empty(t, view.Bids)
	assert.Empty(t, view.Asks)
	assert.Nil(t, view.BestBid)
}

func TestGetSpreadMetrics_ReportsSpreadBpsAndDepthTotals(t *testing.T) {
	a := newEngine()
	_, err := a.SubmitOrder(limitReq("AAPL", book.Buy, "99.00", "10", "alice"))
	require.NoError(t, err)
	_, err = a.SubmitOrder(limitReq("AAPL", book.Sell, "101.00", "15", "bob"))
	require.NoError(t, err)

	view := a.GetSpreadMetrics("AAPL")
	require.NotNil(t, view.SpreadBps)
	assert.Equal(t, "200.0", decimal.String(*view.SpreadBps))
	assert.Equal(t, "10", decimal.String(view.BidDepthTotal))
	assert.Equal(t, "15", decimal.String(view.AskDepthTotal))
}

func TestGetRecentTrades_NewestFirst(t *testing.T) {
	a := newEngine()
	_, err := a.SubmitOrder(limitReq("AAPL", book.Sell, "100.00", "20", "alice"))
	require.NoError(t, err)
	_, err = a.SubmitOrder(limitReq("AAPL", book.Buy, "100.00", "5", "bob"))
	require.NoError(t, err)
	_, err = a.SubmitOrder(limitReq("AAPL", book.Buy, "100.00", "5", "carol"))
	require.NoError(t, err)

	trades := a.GetRecentTrades("AAPL", 0)
	require.Len(t, trades, 2)
	assert.Equal(t, "carol", trades[0].BuyerUserID)
	assert.Equal(t, "bob", trades[1].BuyerUserID)
}

func TestFromFileConfig_MapsFields(t *testing.T) {
	fc := config.Default()
	cfg := FromFileConfig(fc)
	assert.Equal(t, fc.MakerFeeBps, cfg.MakerFeeBps)
	assert.Equal(t, fc.TakerFeeBps, cfg.TakerFeeBps)
	assert.Equal(t, fc.TradeHistoryCapacity, cfg.TradeHistoryCap)
	assert.Equal(t, fc.MaxDepthLevels, cfg.MaxDepthLevels)
}
