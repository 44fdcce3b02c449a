package exchange

import (
	"errors"
	"fmt"
)

// The closed set of domain error kinds every adapter reports. Venue
// sessions classify raw backend failures into these sentinels so the
// recovery protocols and the presentation layer can branch with errors.Is;
// anything a session cannot classify crosses the adapter boundary
// unchanged.
var (
	// ErrInvalidExchange marks an exchange identifier unknown to the factory.
	ErrInvalidExchange = errors.New("invalid exchange")
	// ErrInvalidSymbol marks a symbol absent from the venue's catalogue.
	ErrInvalidSymbol = errors.New("invalid symbol")
	// ErrInvalidOperation marks a capability the venue does not support.
	// Always raised before any network I/O.
	ErrInvalidOperation = errors.New("invalid operation")
	// ErrInvalidOrder marks a venue-side rejection of order parameters.
	ErrInvalidOrder = errors.New("invalid order")
	// ErrOrderNotFound marks a venue-side "unknown order" response.
	ErrOrderNotFound = errors.New("order not found")
	// ErrRequestTimeout marks an outbound call whose outcome is unknown.
	ErrRequestTimeout = errors.New("request timeout")
)

// MinOrderAmountError re-classifies a venue invalid-order rejection once the
// limits cache confirms the notional sits at or below the venue's known
// minimum. It wraps ErrInvalidOrder so callers matching the broader kind
// still succeed.
type MinOrderAmountError struct {
	Exchange string
	Minimum  float64
	Reason   string
}

func (e *MinOrderAmountError) Error() string {
	return fmt.Sprintf("%s: order notional at or below minimum %g: %s", e.Exchange, e.Minimum, e.Reason)
}

func (e *MinOrderAmountError) Unwrap() error {
	return ErrInvalidOrder
}
