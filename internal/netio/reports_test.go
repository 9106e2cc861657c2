package netio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fenrir/internal/aggregator"
	"fenrir/internal/book"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

func TestEncodeDecodeExecutionReport_RoundTrips(t *testing.T) {
	outcome := aggregator.SubmitOutcome{
		OrderID:        ids.New(),
		Status:         book.Filled,
		FilledQuantity: decimal.MustParse("10.00"),
		Trades: []book.Trade{
			{
				Price:    decimal.MustParse("100.00"),
				Quantity: decimal.MustParse("10"),
				MakerFee: decimal.MustParse("0.10000000"),
				TakerFee: decimal.MustParse("0.20000000"),
			},
		},
		Timestamp: time.Unix(0, 0).UTC(),
	}

	typ, report, errStr, err := DecodeReport(EncodeExecutionReport(outcome))
	require.NoError(t, err)
	assert.Equal(t, ReportExecution, typ)
	assert.Empty(t, errStr)
	require.NotNil(t, report)
	assert.Equal(t, outcome.OrderID, report.OrderID)
	assert.Equal(t, byte(book.Filled), report.Status)
	assert.Equal(t, "10.0", report.FilledQuantity) // canonicalized, not raw "10.00"
	require.Len(t, report.Trades, 1)
	assert.Equal(t, "100.0", report.Trades[0].Price)
	assert.Equal(t, "10", report.Trades[0].Quantity)
	assert.Equal(t, "0.1", report.Trades[0].MakerFee)
	assert.Equal(t, "0.2", report.Trades[0].TakerFee)
}

func TestEncodeDecodeErrorReport_RoundTrips(t *testing.T) {
	typ, report, errStr, err := DecodeReport(EncodeErrorReport(assertError("boom")))
	require.NoError(t, err)
	assert.Equal(t, ReportError, typ)
	assert.Nil(t, report)
	assert.Equal(t, "boom", errStr)
}

type stringError string

func (e stringError) Error() string { return string(e) }

func assertError(msg string) error { return stringError(msg) }
