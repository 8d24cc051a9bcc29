// Package proxy implements the MCP front-end: it presents a downstream
// tool catalogue (optionally filtered) plus one execute-code tool backed
// by the embedded script runtime, and forwards every other call straight
// through.
package proxy

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/invopop/jsonschema"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/mcpcodemode/codemode-proxy/internal/mcp"
	"github.com/mcpcodemode/codemode-proxy/internal/runtime"
	"github.com/mcpcodemode/codemode-proxy/internal/typescript"
)

// executeCodeParams mirrors the original's #[derive(JsonSchema)] params
// struct; its schema is reflected once at package init rather than
// hand-written, the way createJSONSchemaFromHandler does for tool
// handlers elsewhere in the ecosystem.
type executeCodeParams struct {
	Code string `json:"code" jsonschema:"required,description=JavaScript code to execute. The code has access to a tools object with synchronous functions for each tool. The last expression is returned. IMPORTANT: Semicolons are required after statements\\, and object literals must be wrapped in parentheses: ({key: value})."`
}

var codeParamSchemaReflector = jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
	ExpandedStruct: true,
}

// codeParamSchema is the execute-code tool's own input schema, reflected
// once from executeCodeParams; it never changes across calls.
var codeParamSchema = reflectCodeParamSchema()

func reflectCodeParamSchema() json.RawMessage {
	schema := codeParamSchemaReflector.Reflect(&executeCodeParams{})
	data, err := json.Marshal(schema)
	if err != nil {
		panic(fmt.Sprintf("proxy: reflect execute-code schema: %v", err))
	}
	return data
}

// Adapter is the proxy/wrapper front-end. Its caller may be an
// out-of-process downstream MCP server (mcp.NewDownstreamCaller) or an
// in-process handler (mcp.NewHandlerCaller) — the adapter's own logic is
// identical either way.
type Adapter struct {
	config Config
	caller mcp.ToolCaller
	engine *runtime.Engine

	cacheMu         sync.RWMutex
	cachedTools     []sdk_mcp.Tool
	cachedTypedIface string
}

// New constructs an Adapter. The tool cache starts empty and is populated
// lazily on the first ListTools or CallTool(execute-code) call.
func New(config Config, caller mcp.ToolCaller) *Adapter {
	return &Adapter{
		config: config,
		caller: caller,
		engine: runtime.NewEngine(),
	}
}

// Instructions returns the one-line capability hint surfaced via the
// server's get_info/initialize response.
func (a *Adapter) Instructions() string {
	return fmt.Sprintf(
		"This proxy adds code-mode capability. Use the %s tool to write JavaScript that calls multiple tools.",
		a.config.ToolName,
	)
}

// filterTools narrows tools down to config.IncludeTools when set.
func (a *Adapter) filterTools(tools []sdk_mcp.Tool) []sdk_mcp.Tool {
	if len(a.config.IncludeTools) == 0 {
		return tools
	}
	include := make(map[string]bool, len(a.config.IncludeTools))
	for _, name := range a.config.IncludeTools {
		include[name] = true
	}
	filtered := make([]sdk_mcp.Tool, 0, len(tools))
	for _, t := range tools {
		if include[t.Name] {
			filtered = append(filtered, t)
		}
	}
	return filtered
}

// refreshCache lists one page of the downstream catalogue starting at
// cursor, filters it, and atomically replaces both cachedTools and
// cachedTypedIface together — the two must never be observed out of sync
// with each other. The downstream's own NextCursor is returned so the
// caller can decide whether to keep paging; the adapter never synthesizes
// a cursor of its own.
func (a *Adapter) refreshCache(ctx context.Context, cursor sdk_mcp.Cursor) ([]sdk_mcp.Tool, sdk_mcp.Cursor, error) {
	downstream, err := a.caller.ListTools(ctx, cursor)
	if err != nil {
		return nil, "", fmt.Errorf("proxy: list downstream tools: %w", err)
	}
	filtered := a.filterTools(downstream.Tools)
	iface := typescript.Generate(toTypescriptTools(filtered), "tools")

	a.cacheMu.Lock()
	a.cachedTools = filtered
	a.cachedTypedIface = iface
	a.cacheMu.Unlock()

	return filtered, downstream.NextCursor, nil
}

// ensureCached returns the cached catalogue, populating it from the first
// page on first use rather than on every call.
func (a *Adapter) ensureCached(ctx context.Context) ([]sdk_mcp.Tool, error) {
	a.cacheMu.RLock()
	cached := a.cachedTools
	a.cacheMu.RUnlock()
	if len(cached) > 0 {
		return cached, nil
	}
	filtered, _, err := a.refreshCache(ctx, "")
	return filtered, err
}

func toTypescriptTools(tools []sdk_mcp.Tool) []typescript.Tool {
	out := make([]typescript.Tool, 0, len(tools))
	for _, t := range tools {
		inputSchema, _ := json.Marshal(t.InputSchema)
		var outputSchema json.RawMessage
		if t.OutputSchema != nil {
			outputSchema, _ = json.Marshal(t.OutputSchema)
		}
		out = append(out, typescript.Tool{
			Name:         t.Name,
			Description:  t.Description,
			InputSchema:  inputSchema,
			OutputSchema: outputSchema,
		})
	}
	return out
}

// executeCodeTool builds the execute-code tool descriptor, appending the
// cached typed interface block to the configured base description once
// tools have been discovered.
func (a *Adapter) executeCodeTool() sdk_mcp.Tool {
	a.cacheMu.RLock()
	iface := a.cachedTypedIface
	a.cacheMu.RUnlock()

	description := a.config.ToolDescription
	if iface != "" {
		description += fmt.Sprintf(
			"\n\n## Available Tools (synchronous)\n\n```typescript\n%s\n```\n\n## Notes\n\n- All tool calls are **synchronous** (no async/await needed)\n- Use `console.log(value)` to debug - logs are returned in the result",
			iface,
		)
	}

	return sdk_mcp.NewToolWithRawSchema(a.config.ToolName, description, codeParamSchema)
}

// ListTools returns the tool set this mode exposes: the execute-code tool
// always, plus the filtered downstream tools unless Mode is ReplaceTools.
// cursor is forwarded straight through to the downstream caller's own
// list_tools; the adapter never exposes pagination of its own upward, so
// the returned result's NextCursor is always empty.
func (a *Adapter) ListTools(ctx context.Context, cursor sdk_mcp.Cursor) (*sdk_mcp.ListToolsResult, error) {
	filtered, _, err := a.refreshCache(ctx, cursor)
	if err != nil {
		return nil, err
	}

	var result []sdk_mcp.Tool
	if a.config.Mode == ModeAdd {
		result = append(result, filtered...)
	}
	result = append(result, a.executeCodeTool())

	return &sdk_mcp.ListToolsResult{Tools: result}, nil
}

// CallTool dispatches a tools/call request: the execute-code tool runs a
// script through the runtime engine, everything else forwards verbatim to
// the downstream caller.
func (a *Adapter) CallTool(ctx context.Context, name string, args map[string]any) (*sdk_mcp.CallToolResult, error) {
	if name != a.config.ToolName {
		return a.caller.CallTool(ctx, name, args)
	}

	code, ok := args["code"].(string)
	if !ok || code == "" {
		return nil, fmt.Errorf("proxy: missing required %q parameter", "code")
	}

	tools, err := a.ensureCached(ctx)
	if err != nil {
		return nil, err
	}
	toolNames := make([]string, 0, len(tools))
	for _, t := range tools {
		toolNames = append(toolNames, t.Name)
	}

	result, err := a.engine.Execute(ctx, code, toolNames, a.caller)
	if err != nil {
		return nil, fmt.Errorf("proxy: code execution failed: %w", err)
	}

	if result.IsError {
		errMsg := result.ErrorMessage
		if errMsg == "" {
			errMsg = "Unknown error"
		}
		payload := map[string]any{"error": errMsg, "logs": result.Logs}
		return &sdk_mcp.CallToolResult{
			Content: []sdk_mcp.Content{sdk_mcp.NewTextContent(prettyJSON(payload))},
			IsError: true,
		}, nil
	}

	var responseValue any
	if len(result.Logs) == 0 {
		responseValue = result.Value
	} else {
		responseValue = map[string]any{"result": result.Value, "logs": result.Logs}
	}

	var content []sdk_mcp.Content
	if a.config.RichContent {
		content = jsonToContent(responseValue)
	} else {
		content = []sdk_mcp.Content{sdk_mcp.NewTextContent(prettyJSON(responseValue))}
	}

	return &sdk_mcp.CallToolResult{Content: content}, nil
}
