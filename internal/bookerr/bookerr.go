// Package bookerr defines the structured error kinds the core produces
// (spec.md §7), in the teacher's style of package-level sentinel errors
// (see internal/engine/orderbook.go's ErrNotEnoughLiquidity/ErrRejection)
// generalized into a typed Kind plus a wrapping OrderError so callers can
// branch with errors.Is/errors.As instead of string matching.
package bookerr

import (
	"errors"
	"fmt"
)

// Kind tags the category of a core-produced error.
type Kind int

const (
	// KindValidation marks a malformed request.
	KindValidation Kind = iota
	// KindOrderNotFound marks a cancel/query on an unknown order id.
	KindOrderNotFound
	// KindInvalidState marks a cancel on an already-terminal order.
	KindInvalidState
	// KindSelfTradeRejected marks a submission refused by a Reject
	// self-trade policy.
	KindSelfTradeRejected
	// KindMarketNoLiquidity marks a Market order that could not fill
	// against an empty opposite side.
	KindMarketNoLiquidity
	// KindSymbolMismatch marks a cancel whose symbol disagrees with the
	// stored order's symbol.
	KindSymbolMismatch
	// KindInternalInconsistency marks a fatal invariant violation
	// detected mid-match (spec.md §7: "the operation aborts").
	KindInternalInconsistency
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation_error"
	case KindOrderNotFound:
		return "order_not_found"
	case KindInvalidState:
		return "invalid_state"
	case KindSelfTradeRejected:
		return "self_trade_rejected"
	case KindMarketNoLiquidity:
		return "market_order_no_liquidity"
	case KindSymbolMismatch:
		return "symbol_mismatch"
	case KindInternalInconsistency:
		return "internal_inconsistency"
	default:
		return "unknown"
	}
}

// Sentinels usable with errors.Is for each Kind, matching the teacher's
// package-level var block style.
var (
	ErrValidation            = errors.New("validation error")
	ErrOrderNotFound         = errors.New("order not found")
	ErrInvalidState          = errors.New("order already in a terminal state")
	ErrSelfTradeRejected     = errors.New("self-trade rejected")
	ErrMarketNoLiquidity     = errors.New("market order: no liquidity on opposite side")
	ErrSymbolMismatch        = errors.New("symbol mismatch")
	ErrInternalInconsistency = errors.New("internal book inconsistency")
	kindSentinel             = map[Kind]error{}
)

func init() {
	kindSentinel[KindValidation] = ErrValidation
	kindSentinel[KindOrderNotFound] = ErrOrderNotFound
	kindSentinel[KindInvalidState] = ErrInvalidState
	kindSentinel[KindSelfTradeRejected] = ErrSelfTradeRejected
	kindSentinel[KindMarketNoLiquidity] = ErrMarketNoLiquidity
	kindSentinel[KindSymbolMismatch] = ErrSymbolMismatch
	kindSentinel[KindInternalInconsistency] = ErrInternalInconsistency
}

// OrderError is a structured, human-readable error carrying a Kind tag.
type OrderError struct {
	Kind    Kind
	Message string
	cause   error
}

func (e *OrderError) Error() string {
	if e.Message == "" {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap lets errors.Is(err, bookerr.ErrXxx) match the Kind's sentinel.
func (e *OrderError) Unwrap() error {
	if e.cause != nil {
		return e.cause
	}
	return kindSentinel[e.Kind]
}

// New builds an OrderError of the given kind with a formatted message.
func New(kind Kind, format string, args ...any) *OrderError {
	return &OrderError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap builds an OrderError of the given kind wrapping an underlying cause.
func Wrap(kind Kind, cause error, format string, args ...any) *OrderError {
	return &OrderError{Kind: kind, Message: fmt.Sprintf(format, args...), cause: cause}
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	var oe *OrderError
	if errors.As(err, &oe) {
		return oe.Kind == kind
	}
	return false
}
