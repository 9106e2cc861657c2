package netio

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/book"
)

func TestToSubmitRequest_ValidMessage(t *testing.T) {
	msg := NewOrderMessage{
		Symbol:    "AAPL",
		Side:      0,
		OrderType: 0,
		Price:     "100.00",
		Quantity:  "10",
		UserID:    "alice",
	}
	req, err := toSubmitRequest(msg)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, book.Buy, req.Side)
	assert.Equal(t, book.Limit, req.Type)
	assert.Equal(t, "alice", req.UserID)
	assert.NotEqual(t, [16]byte{}, [16]byte(req.ID))
}

func TestToSubmitRequest_InvalidMessagePropagatesValidationError(t *testing.T) {
	msg := NewOrderMessage{Symbol: "AAPL", OrderType: 0, Price: "", Quantity: "10", UserID: "alice"}
	_, err := toSubmitRequest(msg)
	assert.Error(t, err)
}
