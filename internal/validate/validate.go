// Package validate checks SubmitOrderRequest/CancelOrderRequest field
// bounds (spec.md §6) before a request ever reaches the aggregator,
// producing bookerr.KindValidation errors the way the rest of the core
// reports structured errors.
package validate

import (
	"regexp"
	"strings"

	"fenrir/internal/book"
	"fenrir/internal/bookerr"
	"fenrir/internal/decimal"
)

const (
	maxSymbolLen      = 20
	maxIntegerDigits  = 20
	maxFractionDigits = 8
)

var symbolPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// SubmitOrderRequest mirrors spec.md §6's SubmitOrderRequest, still in
// string/raw form: price and quantity arrive as decimal strings, symbol
// and side/order_type as the wire's raw tokens. Unknown fields are the
// wire decoder's concern, not this package's; by the time a
// SubmitOrderRequest value exists, only the named fields are present.
type SubmitOrderRequest struct {
	Symbol    string
	Side      string // "buy" | "sell"
	OrderType string // "limit" | "market"
	Price     string // empty iff order_type == "market"
	Quantity  string
	UserID    string
}

// CancelOrderRequest mirrors spec.md §6's CancelOrderRequest.
type CancelOrderRequest struct {
	Symbol  string
	OrderID string
}

// Order is the outcome of a successfully validated SubmitOrderRequest:
// parsed decimals and typed enums, ready for aggregator.SubmitRequest.
type Order struct {
	Symbol   string
	Side     book.Side
	Type     book.Type
	Price    *decimal.Decimal
	Quantity decimal.Decimal
	UserID   string
}

// SubmitOrder validates req and returns its parsed, typed form.
// Every failure is a *bookerr.OrderError of KindValidation (spec.md §7).
func SubmitOrder(req SubmitOrderRequest) (Order, error) {
	var out Order

	symbol, err := symbol(req.Symbol)
	if err != nil {
		return out, err
	}
	out.Symbol = symbol

	side, err := side(req.Side)
	if err != nil {
		return out, err
	}
	out.Side = side

	typ, err := orderType(req.OrderType)
	if err != nil {
		return out, err
	}
	out.Type = typ

	if typ == book.Limit {
		if req.Price == "" {
			return out, bookerr.New(bookerr.KindValidation, "price is required for limit orders")
		}
		price, err := decimalField("price", req.Price)
		if err != nil {
			return out, err
		}
		if !decimal.IsPositive(price) {
			return out, bookerr.New(bookerr.KindValidation, "price must be > 0, got %s", decimal.String(price))
		}
		out.Price = &price
	} else if req.Price != "" {
		return out, bookerr.New(bookerr.KindValidation, "price must be absent for market orders")
	}

	qty, err := decimalField("quantity", req.Quantity)
	if err != nil {
		return out, err
	}
	if !decimal.IsPositive(qty) {
		return out, bookerr.New(bookerr.KindValidation, "quantity must be > 0, got %s", decimal.String(qty))
	}
	out.Quantity = qty

	if strings.TrimSpace(req.UserID) == "" {
		return out, bookerr.New(bookerr.KindValidation, "user_id must not be empty")
	}
	out.UserID = req.UserID

	return out, nil
}

// Cancel validates a CancelOrderRequest's string fields. Its order_id is
// parsed by the caller (internal/ids.Parse), since a malformed identifier
// and an unknown-but-well-formed one are distinct failures (spec.md §7:
// ValidationError vs OrderNotFound).
func Cancel(req CancelOrderRequest) error {
	if _, err := symbol(req.Symbol); err != nil {
		return err
	}
	if strings.TrimSpace(req.OrderID) == "" {
		return bookerr.New(bookerr.KindValidation, "order_id must not be empty")
	}
	return nil
}

func symbol(s string) (string, error) {
	if s == "" {
		return "", bookerr.New(bookerr.KindValidation, "symbol must not be empty")
	}
	if len(s) > maxSymbolLen {
		return "", bookerr.New(bookerr.KindValidation, "symbol %q exceeds %d characters", s, maxSymbolLen)
	}
	if !symbolPattern.MatchString(s) {
		return "", bookerr.New(bookerr.KindValidation, "symbol %q must be alphanumeric plus dash/underscore", s)
	}
	return s, nil
}

func side(s string) (book.Side, error) {
	switch s {
	case "buy":
		return book.Buy, nil
	case "sell":
		return book.Sell, nil
	default:
		return 0, bookerr.New(bookerr.KindValidation, "side must be \"buy\" or \"sell\", got %q", s)
	}
}

func orderType(s string) (book.Type, error) {
	switch s {
	case "limit":
		return book.Limit, nil
	case "market":
		return book.Market, nil
	default:
		return 0, bookerr.New(bookerr.KindValidation, "order_type must be \"limit\" or \"market\", got %q", s)
	}
}

// decimalField parses s as a canonical decimal string and enforces the
// shared digit bounds (spec.md §6: "≤ 20 integer digits, ≤ 8 fractional
// digits") for both price and quantity.
func decimalField(name, s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, bookerr.New(bookerr.KindValidation, "%s %q is not a valid decimal", name, s)
	}

	digits := strings.TrimPrefix(s, "-")
	intPart, fracPart, _ := strings.Cut(digits, ".")
	if len(intPart) > maxIntegerDigits {
		return decimal.Zero, bookerr.New(bookerr.KindValidation, "%s has more than %d integer digits", name, maxIntegerDigits)
	}
	if len(fracPart) > maxFractionDigits {
		return decimal.Zero, bookerr.New(bookerr.KindValidation, "%s has more than %d fractional digits", name, maxFractionDigits)
	}
	return d, nil
}
