package binance

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"xgate-api/pkg/exchange"
)

const (
	mainnetBaseURL = "https://api.binance.com"

	defaultHTTPTimeout = 30 * time.Second
	defaultRecvWindow  = 5 * time.Second
)

type authType int

const (
	authNone authType = iota
	authSigned
)

// client issues REST requests against the Binance spot API and signs the
// private ones with HMAC-SHA256 over the query string.
type client struct {
	baseURL    string
	apiKey     string
	apiSecret  string
	recvWindow time.Duration
	httpClient *http.Client
	clock      func() time.Time
}

func newClient(apiKey, apiSecret string) *client {
	return &client{
		baseURL:    mainnetBaseURL,
		apiKey:     apiKey,
		apiSecret:  apiSecret,
		recvWindow: defaultRecvWindow,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		clock:      time.Now,
	}
}

func (c *client) get(ctx context.Context, path string, params url.Values, auth authType, out any) error {
	return c.do(ctx, http.MethodGet, path, params, auth, out)
}

func (c *client) do(ctx context.Context, method, path string, params url.Values, auth authType, out any) error {
	if params == nil {
		params = url.Values{}
	}
	if auth == authSigned {
		params.Set("timestamp", strconv.FormatInt(c.clock().UnixMilli(), 10))
		if c.recvWindow > 0 {
			params.Set("recvWindow", strconv.FormatInt(c.recvWindow.Milliseconds(), 10))
		}
		params.Set("signature", sign(c.apiSecret, params.Encode()))
	}

	urlStr := c.baseURL + path
	var reqBody io.Reader
	if method == http.MethodGet || method == http.MethodDelete {
		if encoded := params.Encode(); encoded != "" {
			urlStr += "?" + encoded
		}
	} else {
		reqBody = strings.NewReader(params.Encode())
	}
	req, err := http.NewRequestWithContext(ctx, method, urlStr, reqBody)
	if err != nil {
		return fmt.Errorf("binance: build request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if auth == authSigned {
		req.Header.Set("X-MBX-APIKEY", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return classifyTransportError(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("binance: read response: %w", err)
	}
	if resp.StatusCode/100 != 2 {
		return parseAPIError(resp.StatusCode, body)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("binance: decode %s: %w", path, err)
	}
	return nil
}

func sign(secret, payload string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(payload))
	return hex.EncodeToString(mac.Sum(nil))
}

func classifyTransportError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("binance: %s: %w", err, exchange.ErrRequestTimeout)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("binance: %s: %w", err, exchange.ErrRequestTimeout)
	}
	return fmt.Errorf("binance: request failed: %w", err)
}

func parseAPIError(status int, body []byte) error {
	var apiErr apiError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Msg != "" {
		return wrapAPIError(apiErr.Code, apiErr.Msg)
	}
	if status == http.StatusGatewayTimeout || status == http.StatusRequestTimeout {
		return fmt.Errorf("binance: http %d: %w", status, exchange.ErrRequestTimeout)
	}
	return fmt.Errorf("binance: http error %d: %s", status, strings.TrimSpace(string(body)))
}
