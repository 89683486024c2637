// Package engineclient implements the Engine-API and standard JSON-RPC
// client Emerald uses to drive block construction, finalization, and
// catch-up against the execution layer.
package engineclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// RetryConfig configures the exponential backoff of the NewPayload
// SYNCING/ACCEPTED retry loop. No other operation is retried.
type RetryConfig struct {
	InitialDelay   time.Duration
	Multiplier     float64
	MaxDelay       time.Duration
	MaxElapsedTime time.Duration
}

// DefaultRetryConfig matches the defaults named in the configuration
// surface: 100ms initial delay, 2x multiplier, 5s max delay, 30s max
// elapsed time.
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		InitialDelay:   100 * time.Millisecond,
		Multiplier:     2,
		MaxDelay:       5 * time.Second,
		MaxElapsedTime: 30 * time.Second,
	}
}

func (rc RetryConfig) newBackOff() backoff.BackOff {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = rc.InitialDelay
	eb.Multiplier = rc.Multiplier
	eb.MaxInterval = rc.MaxDelay
	eb.MaxElapsedTime = rc.MaxElapsedTime
	eb.Reset()
	return eb
}

// Client is a JSON-RPC 2.0 client exposing the typed operations C1
// needs. It speaks to two distinct endpoints per spec §6: the
// JWT-authenticated Engine API (forkchoiceUpdated/newPayload/getPayload)
// and the standard, unauthenticated execution RPC (eth_*, including the
// registry's eth_call) — each over its own http.Client/URL, since an EL
// typically serves them on different ports with different auth.
type Client struct {
	engineHTTP *http.Client
	engineURL  string

	rpcHTTP *http.Client
	rpcURL  string

	retry RetryConfig
}

// New dials an Engine-API endpoint at engineAddr, authenticating every
// Engine-API request with an HS256 JWT signed using jwtSecret, and a
// standard execution RPC endpoint at executionAddr with no such
// authentication.
func New(engineAddr, executionAddr string, jwtSecret []byte, retry RetryConfig) *Client {
	return &Client{
		engineHTTP: &http.Client{
			Timeout:   30 * time.Second,
			Transport: newJWTRoundTripper(jwtSecret),
		},
		engineURL: engineAddr,
		rpcHTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
		rpcURL: executionAddr,
		retry:  retry,
	}
}

type rpcRequest struct {
	JSONRPC string        `json:"jsonrpc"`
	ID      int           `json:"id"`
	Method  string        `json:"method"`
	Params  []interface{} `json:"params"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *rpcError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpcError       `json:"error"`
}

// Call issues a single JSON-RPC request against the standard execution
// RPC endpoint and decodes its result into out. It is exported for the
// Validator Registry Reader (C4), which issues raw eth_call requests
// against the registry contract, and does not go through the Engine-API
// JWT round-tripper.
func (c *Client) Call(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	return c.doCall(ctx, c.rpcHTTP, c.rpcURL, out, method, params...)
}

// engineCall issues a single JSON-RPC request against the
// JWT-authenticated Engine API endpoint.
func (c *Client) engineCall(ctx context.Context, out interface{}, method string, params ...interface{}) error {
	return c.doCall(ctx, c.engineHTTP, c.engineURL, out, method, params...)
}

func (c *Client) doCall(ctx context.Context, httpClient *http.Client, url string, out interface{}, method string, params ...interface{}) error {
	req := rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params}
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal rpc request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build rpc request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s: %w", method, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s: read response: %w", method, err)
	}

	var rpcResp rpcResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("%s: decode response: %w", method, err)
	}
	if rpcResp.Error != nil {
		return fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out == nil || len(rpcResp.Result) == 0 {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return fmt.Errorf("%s: decode result: %w", method, err)
	}
	return nil
}

// ChainID returns the EL's configured chain id.
func (c *Client) ChainID(ctx context.Context) (uint64, error) {
	var q quantity
	if err := c.Call(ctx, &q, methodChainID); err != nil {
		return 0, err
	}
	return uint64(q), nil
}
