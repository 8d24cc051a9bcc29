package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
	sdk_server "github.com/mark3labs/mcp-go/server"
)

// ToolCaller is the capability the script runtime needs to invoke a
// downstream tool and get back its raw result. It has exactly two
// implementations: one that forwards to an out-of-process MCP server
// (DownstreamCaller) and one that dispatches in-process against an
// already-constructed *server.MCPServer (HandlerCaller). Both are
// interchangeable from the runtime's point of view.
type ToolCaller interface {
	CallTool(ctx context.Context, name string, args map[string]any) (*sdk_mcp.CallToolResult, error)
	// ListTools forwards the caller's pagination cursor straight through to
	// the downstream/handler it wraps; an empty cursor requests the first
	// page. It never synthesizes its own cursor.
	ListTools(ctx context.Context, cursor sdk_mcp.Cursor) (*sdk_mcp.ListToolsResult, error)
}

// DownstreamCaller forwards tool calls to a *Client connected to an
// out-of-process MCP server (the proxy shape).
type DownstreamCaller struct {
	client *Client
}

// NewDownstreamCaller wraps an already-connected Client.
func NewDownstreamCaller(client *Client) *DownstreamCaller {
	return &DownstreamCaller{client: client}
}

func (d *DownstreamCaller) CallTool(ctx context.Context, name string, args map[string]any) (*sdk_mcp.CallToolResult, error) {
	return d.client.CallTool(ctx, name, args)
}

func (d *DownstreamCaller) ListTools(ctx context.Context, cursor sdk_mcp.Cursor) (*sdk_mcp.ListToolsResult, error) {
	return d.client.ListToolsRaw(ctx, cursor)
}

// HandlerCaller dispatches tool calls in-process against a
// *server.MCPServer via HandleMessage, with no transport in between (the
// wrapper shape — the adapter sits in front of a handler it constructs
// itself rather than a child process it spawns).
type HandlerCaller struct {
	server *sdk_server.MCPServer
}

// NewHandlerCaller wraps a constructed MCP server for in-process dispatch.
func NewHandlerCaller(server *sdk_server.MCPServer) *HandlerCaller {
	return &HandlerCaller{server: server}
}

func (h *HandlerCaller) CallTool(ctx context.Context, name string, args map[string]any) (*sdk_mcp.CallToolResult, error) {
	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/call",
		"params": map[string]any{
			"name":      name,
			"arguments": args,
		},
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode call_tool request for %q: %w", name, err)
	}

	reply := h.server.HandleMessage(ctx, raw)

	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode in-process reply for %q: %w", name, err)
	}

	var rpcErr sdk_mcp.JSONRPCError
	if err := json.Unmarshal(replyBytes, &rpcErr); err == nil && rpcErr.Error.Code != 0 {
		return nil, fmt.Errorf("mcp: tool %q failed: %s", name, rpcErr.Error.Message)
	}

	var resp sdk_mcp.JSONRPCResponse
	if err := json.Unmarshal(replyBytes, &resp); err != nil {
		return nil, fmt.Errorf("mcp: decode in-process reply for %q: %w", name, err)
	}

	resultBytes, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("mcp: re-encode result for %q: %w", name, err)
	}

	var result sdk_mcp.CallToolResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode call_tool result for %q: %w", name, err)
	}
	return &result, nil
}

func (h *HandlerCaller) ListTools(ctx context.Context, cursor sdk_mcp.Cursor) (*sdk_mcp.ListToolsResult, error) {
	params := map[string]any{}
	if cursor != "" {
		params["cursor"] = cursor
	}
	request := map[string]any{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  "tools/list",
		"params":  params,
	}
	raw, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode list_tools request: %w", err)
	}

	reply := h.server.HandleMessage(ctx, raw)

	replyBytes, err := json.Marshal(reply)
	if err != nil {
		return nil, fmt.Errorf("mcp: encode in-process reply: %w", err)
	}

	var rpcErr sdk_mcp.JSONRPCError
	if err := json.Unmarshal(replyBytes, &rpcErr); err == nil && rpcErr.Error.Code != 0 {
		return nil, fmt.Errorf("mcp: list_tools failed: %s", rpcErr.Error.Message)
	}

	var resp sdk_mcp.JSONRPCResponse
	if err := json.Unmarshal(replyBytes, &resp); err != nil {
		return nil, fmt.Errorf("mcp: decode in-process reply: %w", err)
	}

	resultBytes, err := json.Marshal(resp.Result)
	if err != nil {
		return nil, fmt.Errorf("mcp: re-encode list_tools result: %w", err)
	}

	var result sdk_mcp.ListToolsResult
	if err := json.Unmarshal(resultBytes, &result); err != nil {
		return nil, fmt.Errorf("mcp: decode list_tools result: %w", err)
	}
	return &result, nil
}
