package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPTransport implements Transport over a JSON-RPC style HTTP endpoint.
type HTTPTransport struct {
	baseURL string
	client  *http.Client
}

// NewHTTPTransport creates an HTTP transport for the remote catalog.
func NewHTTPTransport(baseURL string, timeout time.Duration) *HTTPTransport {
	return &HTTPTransport{
		baseURL: baseURL,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  any    `json:"params,omitempty"`
}

type rpcResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      int             `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *rpcError       `json:"error,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

// ListTools retrieves available descriptors from the server.
func (t *HTTPTransport) ListTools(ctx context.Context) ([]Descriptor, error) {
	resp, err := t.call(ctx, "capabilities/list", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list remote capabilities: %w", err)
	}

	var result struct {
		Capabilities []Descriptor `json:"capabilities"`
	}
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		return nil, fmt.Errorf("failed to parse list response: %w", err)
	}
	return result.Capabilities, nil
}

// CallTool invokes a remote capability.
func (t *HTTPTransport) CallTool(ctx context.Context, name string, args map[string]any) (*CallResult, error) {
	start := time.Now()

	params := map[string]any{
		"name":      name,
		"arguments": args,
	}

	resp, err := t.call(ctx, "capabilities/call", params)
	latencyMs := time.Since(start).Milliseconds()

	if err != nil {
		return &CallResult{
			Success:   false,
			Error:     err.Error(),
			LatencyMs: latencyMs,
		}, nil
	}
	if resp.Error != nil {
		return &CallResult{
			Success:   false,
			Error:     resp.Error.Message,
			LatencyMs: latencyMs,
		}, nil
	}

	var result CallResult
	if err := json.Unmarshal(resp.Result, &result); err != nil {
		// Servers that return the payload bare still count as success.
		return &CallResult{
			Success:   true,
			Output:    resp.Result,
			LatencyMs: latencyMs,
		}, nil
	}
	result.LatencyMs = latencyMs
	return &result, nil
}

// Ping checks if the server is responsive.
func (t *HTTPTransport) Ping(ctx context.Context) error {
	if _, err := t.call(ctx, "ping", nil); err != nil {
		req, err2 := http.NewRequestWithContext(ctx, "GET", t.baseURL+"/health", nil)
		if err2 != nil {
			return err
		}
		resp, err2 := t.client.Do(req)
		if err2 != nil {
			return err
		}
		defer resp.Body.Close()
		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned status %d", resp.StatusCode)
		}
	}
	return nil
}

// call makes a JSON-RPC call to the catalog server.
func (t *HTTPTransport) call(ctx context.Context, method string, params any) (*rpcResponse, error) {
	req := rpcRequest{
		JSONRPC: "2.0",
		ID:      1,
		Method:  method,
		Params:  params,
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", t.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := t.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(httpResp.Body)
		return nil, fmt.Errorf("server returned status %d: %s", httpResp.StatusCode, string(bodyBytes))
	}

	var resp rpcResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	if resp.Error != nil {
		return &resp, fmt.Errorf("catalog error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	return &resp, nil
}

var _ Transport = (*HTTPTransport)(nil)
