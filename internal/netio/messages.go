// Package netio implements the demo TCP wire protocol that drives the
// aggregator from outside the process: a small binary framing in the
// same style as the teacher's internal/net/messages.go (a 2-byte type
// header, fixed-width fields, BigEndian, length-prefixed trailing
// strings), reworked for this exchange's decimal prices/quantities and
// UUID order identifiers instead of the teacher's float64/Ticker[4]
// shape.
package netio

import (
	"encoding/binary"
	"errors"

	"fenrir/internal/ids"
	"fenrir/internal/validate"
)

var (
	ErrMessageTooShort    = errors.New("message too short")
	ErrInvalidMessageType = errors.New("invalid message type")
)

// MessageType tags the first two bytes of every inbound frame.
type MessageType uint16

const (
	MsgNewOrder MessageType = iota
	MsgCancelOrder
	MsgHeartbeat
)

// ReportType tags the first byte of every outbound frame.
type ReportType byte

const (
	ReportExecution ReportType = iota
	ReportError
)

const baseHeaderLen = 2

// NewOrderMessage is the wire shape of a SubmitOrderRequest (spec.md
// §6), length-prefixed so symbol/price/quantity/user_id can vary.
type NewOrderMessage struct {
	Symbol    string
	Side      byte // 0 = buy, 1 = sell
	OrderType byte // 0 = limit, 1 = market
	Price     string
	Quantity  string
	UserID    string
}

// ToRequest converts the wire message into a validate.SubmitOrderRequest.
func (m NewOrderMessage) ToRequest() validate.SubmitOrderRequest {
	side := "buy"
	if m.Side == 1 {
		side = "sell"
	}
	orderType := "limit"
	if m.OrderType == 1 {
		orderType = "market"
	}
	return validate.SubmitOrderRequest{
		Symbol:    m.Symbol,
		Side:      side,
		OrderType: orderType,
		Price:     m.Price,
		Quantity:  m.Quantity,
		UserID:    m.UserID,
	}
}

// EncodeNewOrder serializes a NewOrderMessage onto the wire.
func EncodeNewOrder(m NewOrderMessage) []byte {
	body := encodeLenPrefixed([]byte(m.Symbol))
	body = append(body, m.Side, m.OrderType)
	body = append(body, encodeLenPrefixed([]byte(m.Price))...)
	body = append(body, encodeLenPrefixed([]byte(m.Quantity))...)
	body = append(body, encodeLenPrefixed([]byte(m.UserID))...)

	buf := make([]byte, baseHeaderLen)
	binary.BigEndian.PutUint16(buf, uint16(MsgNewOrder))
	return append(buf, body...)
}

func decodeNewOrder(body []byte) (NewOrderMessage, error) {
	var m NewOrderMessage
	symbol, rest, err := decodeLenPrefixed(body)
	if err != nil {
		return m, err
	}
	if len(rest) < 2 {
		return m, ErrMessageTooShort
	}
	m.Symbol = string(symbol)
	m.Side, m.OrderType = rest[0], rest[1]
	rest = rest[2:]

	price, rest, err := decodeLenPrefixed(rest)
	if err != nil {
		return m, err
	}
	m.Price = string(price)

	qty, rest, err := decodeLenPrefixed(rest)
	if err != nil {
		return m, err
	}
	m.Quantity = string(qty)

	userID, _, err := decodeLenPrefixed(rest)
	if err != nil {
		return m, err
	}
	m.UserID = string(userID)
	return m, nil
}

// CancelOrderMessage is the wire shape of a CancelOrderRequest.
type CancelOrderMessage struct {
	Symbol  string
	OrderID ids.ID
}

// EncodeCancelOrder serializes a CancelOrderMessage onto the wire.
func EncodeCancelOrder(m CancelOrderMessage) []byte {
	body := encodeLenPrefixed([]byte(m.Symbol))
	body = append(body, m.OrderID[:]...)

	buf := make([]byte, baseHeaderLen)
	binary.BigEndian.PutUint16(buf, uint16(MsgCancelOrder))
	return append(buf, body...)
}

func decodeCancelOrder(body []byte) (CancelOrderMessage, error) {
	var m CancelOrderMessage
	symbol, rest, err := decodeLenPrefixed(body)
	if err != nil {
		return m, err
	}
	if len(rest) < 16 {
		return m, ErrMessageTooShort
	}
	m.Symbol = string(symbol)
	copy(m.OrderID[:], rest[:16])
	return m, nil
}

// DecodeMessage dispatches on the 2-byte type header and parses the
// remainder of msg into the matching typed message.
func DecodeMessage(msg []byte) (MessageType, any, error) {
	if len(msg) < baseHeaderLen {
		return 0, nil, ErrMessageTooShort
	}
	typ := MessageType(binary.BigEndian.Uint16(msg[:baseHeaderLen]))
	body := msg[baseHeaderLen:]
	switch typ {
	case MsgNewOrder:
		m, err := decodeNewOrder(body)
		return typ, m, err
	case MsgCancelOrder:
		m, err := decodeCancelOrder(body)
		return typ, m, err
	case MsgHeartbeat:
		return typ, nil, nil
	default:
		return typ, nil, ErrInvalidMessageType
	}
}

// encodeLenPrefixed prepends a 2-byte BigEndian length to b.
func encodeLenPrefixed(b []byte) []byte {
	out := make([]byte, 2+len(b))
	binary.BigEndian.PutUint16(out, uint16(len(b)))
	copy(out[2:], b)
	return out
}

// decodeLenPrefixed reads a 2-byte BigEndian length followed by that
// many bytes, returning the field and the remaining buffer.
func decodeLenPrefixed(b []byte) (field, rest []byte, err error) {
	if len(b) < 2 {
		return nil, nil, ErrMessageTooShort
	}
	n := int(binary.BigEndian.Uint16(b[:2]))
	b = b[2:]
	if len(b) < n {
		return nil, nil, ErrMessageTooShort
	}
	return b[:n], b[n:], nil
}
