package book

import (
	"time"

	"github.com/rs/zerolog/log"

	"fenrir/internal/bookerr"
	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// Side is the direction of an order.
type Side int

const (
	Buy Side = iota
	Sell
)

func (s Side) String() string {
	if s == Buy {
		return "buy"
	}
	return "sell"
}

// Opposite returns the other side.
func (s Side) Opposite() Side {
	if s == Buy {
		return Sell
	}
	return Buy
}

// Type distinguishes Limit orders, which may rest on the book, from
// Market orders, which never rest.
type Type int

const (
	// Limit orders are an order to buy or sell a security at a specified
	// price or better. Limit orders may rest on the order book until
	// filled.
	Limit Type = iota
	// Market orders are instructions to buy or sell immediately. This
	// order guarantees that the order will be executed without
	// guarantees on the execution price.
	Market
)

func (t Type) String() string {
	if t == Limit {
		return "limit"
	}
	return "market"
}

// Status is the order's lifecycle state (spec.md §3).
type Status int

const (
	New Status = iota
	PartiallyFilled
	Filled
	Cancelled
	Rejected
)

func (s Status) String() string {
	switch s {
	case New:
		return "new"
	case PartiallyFilled:
		return "partially_filled"
	case Filled:
		return "filled"
	case Cancelled:
		return "cancelled"
	case Rejected:
		return "rejected"
	default:
		return "unknown"
	}
}

// IsTerminal reports whether no further transitions are possible.
func (s Status) IsTerminal() bool {
	return s == Filled || s == Cancelled || s == Rejected
}

// Order is a request-shaped value carrying a lifecycle state (spec.md §3).
type Order struct {
	ID             ids.ID
	Symbol         string
	Side           Side
	Type           Type
	Price          *decimal.Decimal // present iff Type == Limit
	Quantity       decimal.Decimal
	FilledQuantity decimal.Decimal
	Status         Status
	UserID         string
	CreatedAt      time.Time
}

// Remaining returns quantity - filled_quantity.
func (o *Order) Remaining() decimal.Decimal {
	return decimal.Sub(o.Quantity, o.FilledQuantity)
}

// ApplyFill increments filled_quantity by qty and advances status
// according to the lifecycle rules: New|PartiallyFilled -> PartiallyFilled
// when 0 < filled < quantity, -> Filled when filled == quantity. Terminal
// states never accept a fill; calling ApplyFill on one indicates an
// internal inconsistency in the matching engine.
func (o *Order) ApplyFill(qty decimal.Decimal) error {
	if o.Status.IsTerminal() {
		log.Error().Str("symbol", o.Symbol).Str("order_id", o.ID.String()).
			Str("status", o.Status.String()).Msg("internal inconsistency: fill applied to terminal order")
		return bookerr.New(bookerr.KindInternalInconsistency,
			"applyFill on terminal order %s (status=%s)", o.ID, o.Status)
	}
	o.FilledQuantity = decimal.Add(o.FilledQuantity, qty)
	switch {
	case decimal.Cmp(o.FilledQuantity, o.Quantity) == 0:
		o.Status = Filled
	case decimal.IsPositive(o.FilledQuantity):
		o.Status = PartiallyFilled
	}
	return nil
}

// MarkCancelled transitions a non-terminal order to Cancelled.
func (o *Order) MarkCancelled() error {
	if o.Status.IsTerminal() {
		return bookerr.New(bookerr.KindInvalidState,
			"order %s already terminal (%s)", o.ID, o.Status)
	}
	o.Status = Cancelled
	return nil
}

// MarkRejected transitions a New order to the terminal Rejected state.
func (o *Order) MarkRejected() {
	o.Status = Rejected
}

// MarkRestingOutcome sets the post-match disposition for an incoming
// Limit order that still has remaining quantity: PartiallyFilled if any
// fills occurred during matching, New otherwise.
func (o *Order) MarkRestingOutcome(hadFills bool) {
	if hadFills {
		o.Status = PartiallyFilled
	} else {
		o.Status = New
	}
}
