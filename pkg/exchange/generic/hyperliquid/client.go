package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"xgate-api/pkg/exchange"
)

const (
	mainnetInfoURL     = "https://api.hyperliquid.xyz/info"
	mainnetExchangeURL = "https://api.hyperliquid.xyz/exchange"
	testnetInfoURL     = "https://api.hyperliquid-testnet.xyz/info"
	testnetExchangeURL = "https://api.hyperliquid-testnet.xyz/exchange"

	defaultHTTPTimeout  = 30 * time.Second
	defaultRetryBackoff = 200 * time.Millisecond
	maxInfoAttempts     = 3
)

// client posts JSON payloads to the Hyperliquid info and exchange endpoints.
// Info requests retry with backoff; exchange requests are fired once because
// a retried action would need a fresh nonce and signature.
type client struct {
	infoURL     string
	exchangeURL string
	httpClient  *http.Client
	signer      Signer
	isMainnet   bool
	clock       func() time.Time
}

func (c *client) doInfo(ctx context.Context, req infoRequest, result any) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("hyperliquid: encode info request: %w", err)
	}
	backoff := defaultRetryBackoff
	var lastErr error
	for attempt := 0; attempt < maxInfoAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return classifyTransportError(ctx.Err())
			case <-time.After(backoff):
				backoff *= 2
			}
		}
		lastErr = c.post(ctx, c.infoURL, payload, result)
		if lastErr == nil {
			return nil
		}
		if ctx.Err() != nil {
			return classifyTransportError(ctx.Err())
		}
	}
	return lastErr
}

func (c *client) doAction(ctx context.Context, action Action) (*exchangeResponse, error) {
	req, err := signAction(action, c.signer, c.clock().UnixMilli(), c.isMainnet)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("hyperliquid: encode exchange request: %w", err)
	}
	var resp exchangeResponse
	if err := c.post(ctx, c.exchangeURL, payload, &resp); err != nil {
		return nil, err
	}
	if strings.ToLower(resp.Status) != "ok" {
		return nil, fmt.Errorf("hyperliquid: exchange status %q", resp.Status)
	}
	return &resp, nil
}

func (c *client) post(ctx context.Context, url string, payload []byte, result any) error {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("hyperliquid: build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("hyperliquid: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		if resp.StatusCode == http.StatusGatewayTimeout || resp.StatusCode == http.StatusRequestTimeout {
			return fmt.Errorf("hyperliquid: http %d: %w", resp.StatusCode, exchange.ErrRequestTimeout)
		}
		return fmt.Errorf("hyperliquid: http status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("hyperliquid: decode response: %w", err)
	}
	return nil
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("hyperliquid: %s: %w", err, exchange.ErrRequestTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("hyperliquid: %s: %w", err, exchange.ErrRequestTimeout)
	}
	return fmt.Errorf("hyperliquid: request failed: %w", err)
}

// classifyStatusError maps a per-order status error string onto the
// normalized sentinels. The venue reports missing orders and rejected
// placements as free-text statuses rather than HTTP failures.
func classifyStatusError(msg string) error {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "never placed") ||
		strings.Contains(lower, "already canceled") ||
		strings.Contains(lower, "unknown oid"):
		return fmt.Errorf("%w: %s", exchange.ErrOrderNotFound, msg)
	case strings.Contains(lower, "minimum value") ||
		strings.Contains(lower, "invalid size") ||
		strings.Contains(lower, "invalid price") ||
		strings.Contains(lower, "insufficient margin"):
		return fmt.Errorf("%w: %s", exchange.ErrInvalidOrder, msg)
	}
	return fmt.Errorf("hyperliquid: %s", msg)
}
