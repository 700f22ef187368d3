package mcp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
)

// Client is an MCP Streamable-HTTP client for one server.
type Client struct {
	URL       string
	Token     string
	SessionID string

	client *http.Client
	idSeq  atomic.Int64
}

// NewClient creates a client. token may be empty when the server has no
// auth configured.
func NewClient(url, token string) *Client {
	return &Client{
		URL:    url,
		Token:  token,
		client: &http.Client{},
	}
}

// nextID returns a monotonically increasing JSON-RPC request ID.
func (c *Client) nextID() json.RawMessage {
	id := c.idSeq.Add(1)
	return json.RawMessage(fmt.Sprintf("%d", id))
}

// post sends a JSON-RPC request and returns the raw HTTP response.
func (c *Client) post(ctx context.Context, req *Request) (*http.Response, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json, text/event-stream")
	if c.SessionID != "" {
		httpReq.Header.Set("Mcp-Session-Id", c.SessionID)
	}
	if c.Token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.Token)
	}

	return c.client.Do(httpReq)
}

// call sends a JSON-RPC request and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out any) (http.Header, error) {
	var rawParams json.RawMessage
	if params != nil {
		p, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal params: %w", err)
		}
		rawParams = p
	}

	resp, err := c.post(ctx, &Request{
		JSONRPC: "2.0",
		ID:      c.nextID(),
		Method:  method,
		Params:  rawParams,
	})
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.Header, fmt.Errorf("HTTP %d: %s", resp.StatusCode, bytes.TrimSpace(respBody))
	}

	var rpcResp Response
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return resp.Header, fmt.Errorf("unmarshal response: %w (body: %s)", err, string(respBody))
	}
	if rpcResp.Error != nil {
		return resp.Header, fmt.Errorf("%s: %w", method, rpcResp.Error)
	}
	if out != nil && len(rpcResp.Result) > 0 {
		if err := json.Unmarshal(rpcResp.Result, out); err != nil {
			return resp.Header, fmt.Errorf("decode %s result: %w", method, err)
		}
	}
	return resp.Header, nil
}

// notify sends a JSON-RPC notification (no ID, no response expected).
func (c *Client) notify(ctx context.Context, method string) error {
	resp, err := c.post(ctx, &Request{JSONRPC: "2.0", Method: method})
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

// Connect initializes the MCP session.
func (c *Client) Connect(ctx context.Context) (*InitializeResult, error) {
	params := InitializeParams{
		ProtocolVersion: ProtocolVersion,
		Capabilities:    json.RawMessage(`{}`),
		ClientInfo:      Implementation{Name: "todo-cli", Version: "1.0.0"},
	}

	var result InitializeResult
	headers, err := c.call(ctx, "initialize", params, &result)
	if err != nil {
		return nil, fmt.Errorf("initialize: %w", err)
	}
	if sid := headers.Get("Mcp-Session-Id"); sid != "" {
		c.SessionID = sid
	}
	if err := c.notify(ctx, "notifications/initialized"); err != nil {
		return nil, fmt.Errorf("initialized notification: %w", err)
	}
	return &result, nil
}

// Close ends the session on the server.
func (c *Client) Close(ctx context.Context) error {
	if c.SessionID == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Mcp-Session-Id", c.SessionID)
	if c.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.Token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.SessionID = ""
	return nil
}

// ListTools returns the tools the server exposes.
func (c *Client) ListTools(ctx context.Context) ([]Tool, error) {
	var result ToolsListResult
	if _, err := c.call(ctx, "tools/list", nil, &result); err != nil {
		return nil, err
	}
	return result.Tools, nil
}

// CallTool invokes a tool with JSON-encodable arguments.
func (c *Client) CallTool(ctx context.Context, name string, args any) (*ToolsCallResult, error) {
	raw, err := json.Marshal(args)
	if err != nil {
		return nil, fmt.Errorf("marshal arguments: %w", err)
	}
	var result ToolsCallResult
	if _, err := c.call(ctx, "tools/call", ToolsCallParams{Name: name, Arguments: raw}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// ReadResource returns the text of a resource.
func (c *Client) ReadResource(ctx context.Context, uri string) (string, error) {
	var result ResourcesReadResult
	if _, err := c.call(ctx, "resources/read", ResourcesReadParams{URI: uri}, &result); err != nil {
		return "", err
	}
	if len(result.Contents) == 0 {
		return "", fmt.Errorf("resources/read %s: empty contents", uri)
	}
	return result.Contents[0].Text, nil
}
