package validate

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
)

func baseRequest() SubmitOrderRequest {
	return SubmitOrderRequest{
		Symbol:    "AAPL",
		Side:      "buy",
		OrderType: "limit",
		Price:     "100.00",
		Quantity:  "10",
		UserID:    "alice",
	}
}

func TestSubmitOrder_ValidLimitOrder(t *testing.T) {
	out, err := SubmitOrder(baseRequest())
	require.NoError(t, err)
	assert.Equal(t, "AAPL", out.Symbol)
	assert.Equal(t, book.Buy, out.Side)
	assert.Equal(t, book.Limit, out.Type)
	require.NotNil(t, out.Price)
}

func TestSubmitOrder_ValidMarketOrderRequiresNoPrice(t *testing.T) {
	req := baseRequest()
	req.OrderType = "market"
	req.Price = ""
	out, err := SubmitOrder(req)
	require.NoError(t, err)
	assert.Nil(t, out.Price)
}

func TestSubmitOrder_MarketOrderWithPriceRejected(t *testing.T) {
	req := baseRequest()
	req.OrderType = "market"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindValidation))
}

func TestSubmitOrder_LimitOrderMissingPriceRejected(t *testing.T) {
	req := baseRequest()
	req.Price = ""
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindValidation))
}

func TestSubmitOrder_NonPositivePriceRejected(t *testing.T) {
	req := baseRequest()
	req.Price = "0"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "price must be > 0")
}

func TestSubmitOrder_NonPositiveQuantityRejected(t *testing.T) {
	req := baseRequest()
	req.Quantity = "-5"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "quantity must be > 0")
}

func TestSubmitOrder_EmptyUserIDRejected(t *testing.T) {
	req := baseRequest()
	req.UserID = "  "
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user_id")
}

func TestSubmitOrder_InvalidSideRejected(t *testing.T) {
	req := baseRequest()
	req.Side = "up"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindValidation))
}

func TestSubmitOrder_SymbolTooLongRejected(t *testing.T) {
	req := baseRequest()
	req.Symbol = strings.Repeat("A", 21)
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds")
}

func TestSubmitOrder_SymbolWithInvalidCharactersRejected(t *testing.T) {
	req := baseRequest()
	req.Symbol = "AAPL!"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "alphanumeric")
}

func TestSubmitOrder_TooManyFractionDigitsRejected(t *testing.T) {
	req := baseRequest()
	req.Quantity = "1.123456789"
	_, err := SubmitOrder(req)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "fractional digits")
}

func TestCancel_ValidRequest(t *testing.T) {
	err := Cancel(CancelOrderRequest{Symbol: "AAPL", OrderID: "some-id"})
	require.NoError(t, err)
}

func TestCancel_EmptyOrderIDRejected(t *testing.T) {
	err := Cancel(CancelOrderRequest{Symbol: "AAPL", OrderID: ""})
	require.Error(t, err)
	assert.True(t, bookerr.Is(err, bookerr.KindValidation))
}
