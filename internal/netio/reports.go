package netio

import (
	"encoding/binary"

	"fenrir/internal/aggregator"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// EncodeExecutionReport serializes a SubmitOutcome as an execution
// report: report type, order id, status, filled quantity, trade count,
// and for each trade (price, quantity, maker fee, taker fee), matching
// the teacher's fixed-header-plus-variable-trailer Report framing.
func EncodeExecutionReport(outcome aggregator.SubmitOutcome) []byte {
	buf := []byte{byte(ReportExecution)}
	buf = append(buf, outcome.OrderID[:]...)
	buf = append(buf, byte(outcome.Status))
	buf = append(buf, encodeLenPrefixed([]byte(decimal.String(outcome.FilledQuantity)))...)

	tradeCount := make([]byte, 2)
	binary.BigEndian.PutUint16(tradeCount, uint16(len(outcome.Trades)))
	buf = append(buf, tradeCount...)

	for _, t := range outcome.Trades {
		buf = append(buf, encodeLenPrefixed([]byte(decimal.String(t.Price)))...)
		buf = append(buf, encodeLenPrefixed([]byte(decimal.String(t.Quantity)))...)
		buf = append(buf, encodeLenPrefixed([]byte(decimal.String(t.MakerFee)))...)
		buf = append(buf, encodeLenPrefixed([]byte(decimal.String(t.TakerFee)))...)
	}
	return buf
}

// EncodeErrorReport serializes err as a one-field error report.
func EncodeErrorReport(err error) []byte {
	buf := []byte{byte(ReportError)}
	return append(buf, encodeLenPrefixed([]byte(err.Error()))...)
}

// TradeFill is one trade line within an ExecutionReport.
type TradeFill struct {
	Price    string
	Quantity string
	MakerFee string
	TakerFee string
}

// ExecutionReport is the client-side decoding of EncodeExecutionReport's
// output.
type ExecutionReport struct {
	OrderID        ids.ID
	Status         byte
	FilledQuantity string
	Trades         []TradeFill
}

// DecodeReport dispatches on the leading report-type byte and parses the
// remainder of msg into an *ExecutionReport or a plain error string.
func DecodeReport(msg []byte) (ReportType, *ExecutionReport, string, error) {
	if len(msg) < 1 {
		return 0, nil, "", ErrMessageTooShort
	}
	typ := ReportType(msg[0])
	body := msg[1:]

	if typ == ReportError {
		errStr, _, err := decodeLenPrefixed(body)
		if err != nil {
			return typ, nil, "", err
		}
		return typ, nil, string(errStr), nil
	}

	if len(body) < 17 {
		return typ, nil, "", ErrMessageTooShort
	}
	var report ExecutionReport
	copy(report.OrderID[:], body[:16])
	report.Status = body[16]
	rest := body[17:]

	filledQty, rest, err := decodeLenPrefixed(rest)
	if err != nil {
		return typ, nil, "", err
	}
	report.FilledQuantity = string(filledQty)

	if len(rest) < 2 {
		return typ, nil, "", ErrMessageTooShort
	}
	tradeCount := int(binary.BigEndian.Uint16(rest[:2]))
	rest = rest[2:]

	for i := 0; i < tradeCount; i++ {
		var fill TradeFill
		var field []byte
		if field, rest, err = decodeLenPrefixed(rest); err != nil {
			return typ, nil, "", err
		}
		fill.Price = string(field)
		if field, rest, err = decodeLenPrefixed(rest); err != nil {
			return typ, nil, "", err
		}
		fill.Quantity = string(field)
		if field, rest, err = decodeLenPrefixed(rest); err != nil {
			return typ, nil, "", err
		}
		fill.MakerFee = string(field)
		if field, rest, err = decodeLenPrefixed(rest); err != nil {
			return typ, nil, "", err
		}
		fill.TakerFee = string(field)
		report.Trades = append(report.Trades, fill)
	}
	return typ, &report, "", nil
}
