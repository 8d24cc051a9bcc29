// Package mcpmock provides a tiny in-process MCP server used by the test
// suite to exercise the proxy and script runtime without spawning a real
// downstream process. It exposes four tools: add, multiply, echo and
// get_items.
package mcpmock

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// New builds an MCP server with the fixture tool set registered, ready to
// be wrapped by a HandlerCaller or served over stdio by a test harness.
func New() *server.MCPServer {
	s := server.NewMCPServer(
		"mock-mcp-server",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithRecovery(),
	)

	addTool(s, "add", "Add two numbers together", `{
		"type": "object",
		"properties": {
			"a": {"type": "integer", "description": "First number"},
			"b": {"type": "integer", "description": "Second number"}
		},
		"required": ["a", "b"]
	}`, handleAdd)

	addTool(s, "multiply", "Multiply two numbers together", `{
		"type": "object",
		"properties": {
			"a": {"type": "integer", "description": "First number"},
			"b": {"type": "integer", "description": "Second number"}
		},
		"required": ["a", "b"]
	}`, handleMultiply)

	addTool(s, "echo", "Echo a message back", `{
		"type": "object",
		"properties": {
			"message": {"type": "string", "description": "Message to echo back"}
		},
		"required": ["message"]
	}`, handleEcho)

	addTool(s, "get_items", "Get a list of items", `{
		"type": "object",
		"properties": {}
	}`, handleGetItems)

	return s
}

func addTool(s *server.MCPServer, name, description, schema string, handler server.ToolHandlerFunc) {
	tool := mcp.NewToolWithRawSchema(name, description, json.RawMessage(schema))
	s.AddTool(tool, handler)
}

func textResult(v any) *mcp.CallToolResult {
	data, err := json.Marshal(v)
	if err != nil {
		return &mcp.CallToolResult{
			Content: []mcp.Content{mcp.NewTextContent(fmt.Sprintf("marshal error: %v", err))},
			IsError: true,
		}
	}
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(string(data))}}
}

func handleAdd(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return textResult(map[string]any{"result": a + b}), nil
}

func handleMultiply(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	a, _ := args["a"].(float64)
	b, _ := args["b"].(float64)
	return textResult(map[string]any{"result": a * b}), nil
}

func handleEcho(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args := req.GetArguments()
	message, _ := args["message"].(string)
	return textResult(map[string]any{"echo": message}), nil
}

func handleGetItems(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	items := []map[string]any{
		{"id": "item-1", "name": "First Item", "value": 10},
		{"id": "item-2", "name": "Second Item", "value": 20},
		{"id": "item-3", "name": "Third Item", "value": 30},
	}
	return textResult(map[string]any{"items": items}), nil
}
