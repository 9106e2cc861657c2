package book

import (
	"time"

	"fenrir/internal/decimal"
	"fenrir/internal/ids"
)

// Trade is an immutable record of one execution (spec.md §3). Price is
// always the resting (maker) order's price at the instant of match.
type Trade struct {
	ID            ids.ID
	Symbol        string
	Price         decimal.Decimal
	Quantity      decimal.Decimal
	BuyerOrderID  ids.ID
	SellerOrderID ids.ID
	BuyerUserID   string
	SellerUserID  string
	MakerOrderID  ids.ID
	TakerOrderID  ids.ID
	MakerFee      decimal.Decimal
	TakerFee      decimal.Decimal
	Timestamp     time.Time
}

// Notional returns price * quantity.
func (t Trade) Notional() decimal.Decimal {
	return decimal.Mul(t.Price, t.Quantity)
}
