package core

import "errors"

var (
	ErrInvalidAmount        = errors.New("invalid_amount")
	ErrInsufficientFunds    = errors.New("insufficient_funds")
	ErrInsufficientHoldings = errors.New("insufficient_holdings")
	ErrNoSupply             = errors.New("no_supply")
	ErrUnknownAsset         = errors.New("unknown_asset")
	ErrInvalidSnapshot      = errors.New("invalid_snapshot")
)

var domainErrors = []error{
	ErrInvalidAmount,
	ErrInsufficientFunds,
	ErrInsufficientHoldings,
	ErrNoSupply,
	ErrUnknownAsset,
	ErrInvalidSnapshot,
}

// ErrorCode returns the stable code of a domain error, "ok" for nil and
// "internal" for anything else.
func ErrorCode(err error) string {
	if err == nil {
		return "ok"
	}
	for _, e := range domainErrors {
		if errors.Is(err, e) {
			return e.Error()
		}
	}
	return "internal"
}
