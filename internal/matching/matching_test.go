package matching

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
	"fenrir/internal/clock"
	"fenrir/internal/decimal"
	"fenrir/internal/fees"
	"fenrir/internal/ids"
)

func newOrder(side book.Side, typ book.Type, price, qty, user string) *book.Order {
	o := &book.Order{
		ID:        ids.New(),
		Symbol:    "AAPL",
		Side:      side,
		Type:      typ,
		Quantity:  decimal.MustParse(qty),
		Status:    book.New,
		UserID:    user,
		CreatedAt: time.Unix(0, 0).UTC(),
	}
	if typ == book.Limit {
		p := decimal.MustParse(price)
		o.Price = &p
	}
	return o
}

func newEngine() *Engine {
	return New(fees.Default(), clock.NewSequence(time.Unix(1700000000, 0).UTC()))
}

func TestSubmit_RestingLimitWhenNoCross(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	resting := newOrder(book.Buy, book.Limit, "99.00", "10", "alice")
	final, trades, err := e.Submit(b, resting)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, book.New, final.Status)
	assert.True(t, b.IsResting(resting.ID))
}

func TestSubmit_FullMatchAtMakerPrice(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	maker := newOrder(book.Sell, book.Limit, "100.00", "10", "alice")
	_, _, err := e.Submit(b, maker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Limit, "101.00", "10", "bob")
	final, trades, err := e.Submit(b, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.Equal(t, "100.0", decimal.String(trade.Price))
	assert.Equal(t, "10", decimal.String(trade.Quantity))
	assert.Equal(t, maker.ID, trade.MakerOrderID)
	assert.Equal(t, taker.ID, trade.TakerOrderID)
	assert.Equal(t, book.Filled, final.Status)
	assert.Equal(t, book.Filled, maker.Status)
	assert.False(t, b.IsResting(maker.ID))
}

func TestSubmit_PartialFillRestsRemainder(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	maker := newOrder(book.Sell, book.Limit, "100.00", "5", "alice")
	_, _, err := e.Submit(b, maker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Limit, "100.00", "10", "bob")
	final, trades, err := e.Submit(b, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)

	assert.Equal(t, book.PartiallyFilled, final.Status)
	assert.True(t, b.IsResting(taker.ID))
	assert.Equal(t, "5", decimal.String(final.Remaining()))
}

func TestSubmit_MarketOrderRejectedWithNoLiquidity(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	order := newOrder(book.Buy, book.Market, "", "10", "bob")
	final, trades, err := e.Submit(b, order)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindMarketNoLiquidity))
	assert.Nil(t, trades)
	assert.Equal(t, book.Rejected, final.Status)
}

func TestSubmit_MarketOrderNeverRests(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	maker := newOrder(book.Sell, book.Limit, "100.00", "5", "alice")
	_, _, err := e.Submit(b, maker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Market, "", "10", "bob")
	final, trades, err := e.Submit(b, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, book.PartiallyFilled, final.Status)
	assert.False(t, b.IsResting(taker.ID))
}

func TestSubmit_SelfTradeCancelTakerStopsMatching(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	maker := newOrder(book.Sell, book.Limit, "100.00", "10", "alice")
	_, _, err := e.Submit(b, maker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Limit, "100.00", "10", "alice")
	final, trades, err := e.Submit(b, taker)
	require.NoError(t, err)
	assert.Empty(t, trades)
	assert.Equal(t, book.Cancelled, final.Status)
	assert.True(t, b.IsResting(maker.ID))
}

func TestSubmit_SelfTradeCancelRestingSkipsAndContinues(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelResting)

	selfMaker := newOrder(book.Sell, book.Limit, "100.00", "5", "alice")
	otherMaker := newOrder(book.Sell, book.Limit, "100.00", "5", "carol")
	_, _, err := e.Submit(b, selfMaker)
	require.NoError(t, err)
	_, _, err = e.Submit(b, otherMaker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Limit, "100.00", "5", "alice")
	final, trades, err := e.Submit(b, taker)
	require.NoError(t, err)
	require.Len(t, trades, 1)
	assert.Equal(t, otherMaker.ID, trades[0].MakerOrderID)
	assert.Equal(t, book.Filled, final.Status)
	assert.Equal(t, book.Cancelled, selfMaker.Status)
}

func TestSubmit_SelfTradeRejectPolicyRefusesAdmission(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.Reject)

	maker := newOrder(book.Sell, book.Limit, "100.00", "10", "alice")
	_, _, err := e.Submit(b, maker)
	require.NoError(t, err)

	taker := newOrder(book.Buy, book.Limit, "100.00", "10", "alice")
	final, trades, err := e.Submit(b, taker)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindSelfTradeRejected))
	assert.Nil(t, trades)
	assert.Equal(t, book.Rejected, final.Status)
}

func TestCancel_RemovesRestingOrder(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	order := newOrder(book.Buy, book.Limit, "99.00", "10", "alice")
	_, _, err := e.Submit(b, order)
	require.NoError(t, err)

	cancelled, err := e.Cancel(b, order.ID)
	require.NoError(t, err)
	assert.Equal(t, book.Cancelled, cancelled.Status)
	assert.False(t, b.IsResting(order.ID))
}

func TestCancel_UnknownOrderReturnsOrderNotFound(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	_, err := e.Cancel(b, ids.New())
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindOrderNotFound))
}

func TestCancel_TerminalOrderReturnsInvalidState(t *testing.T) {
	e := newEngine()
	b := book.NewBook("AAPL", 10, book.CancelTaker)

	order := newOrder(book.Buy, book.Limit, "99.00", "10", "alice")
	_, _, err := e.Submit(b, order)
	require.NoError(t, err)
	_, err = e.Cancel(b, order.ID)
	require.NoError(t, err)

	_, err = e.Cancel(b, order.ID)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindInvalidState))
}
