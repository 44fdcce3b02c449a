package binance

import (
	"fmt"

	"xgate-api/pkg/exchange"
)

// Binance API error codes that map onto the normalized sentinels.
const (
	apiCodeInvalidMessage   = -1013
	apiCodeTimeout          = -1007
	apiCodeNewOrderRejected = -2010
	apiCodeCancelRejected   = -2011
	apiCodeOrderNotFound    = -2013
)

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

func (e apiError) Error() string {
	return fmt.Sprintf("binance api error %d: %s", e.Code, e.Msg)
}

// wrapAPIError attaches the matching sentinel so callers can test with
// errors.Is without knowing Binance codes.
func wrapAPIError(code int, msg string) error {
	apiErr := apiError{Code: code, Msg: msg}
	switch code {
	case apiCodeOrderNotFound, apiCodeCancelRejected:
		return fmt.Errorf("%w: %w", exchange.ErrOrderNotFound, apiErr)
	case apiCodeNewOrderRejected, apiCodeInvalidMessage:
		return fmt.Errorf("%w: %w", exchange.ErrInvalidOrder, apiErr)
	case apiCodeTimeout:
		return fmt.Errorf("%w: %w", exchange.ErrRequestTimeout, apiErr)
	}
	return apiErr
}
