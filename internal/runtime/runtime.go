// Package runtime hosts the embedded script sandbox: a goja ECMAScript
// interpreter extended with a `tools` object whose functions are
// synchronous facades over MCP tool calls.
package runtime

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/dop251/goja"
	sdk_mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/mcpcodemode/codemode-proxy/internal/mcp"
)

// ExecutionResult is the outcome of running one script: either a value
// (the script's last expression) or an error message, plus whatever was
// written via console.log along the way.
type ExecutionResult struct {
	Value        any
	Logs         []string
	IsError      bool
	ErrorMessage string
}

// Engine owns the embedded interpreter. A goja.Runtime is not safe for
// concurrent use, so Execute serializes script evaluations with a mutex
// held for the whole call — matching how the adapter's execute-code tool
// is specified to behave under concurrent invocations.
type Engine struct {
	mu sync.Mutex
}

// NewEngine constructs an idle Engine. The underlying goja.Runtime is
// created fresh per Execute call rather than reused across scripts, so one
// script's globals (or a runaway prototype mutation) can never leak into
// the next.
func NewEngine() *Engine {
	return &Engine{}
}

// Execute runs code with a `tools` object exposing one synchronous
// function per name in toolNames, each of which calls caller.CallTool and
// blocks until it returns. The script's last expression becomes
// ExecutionResult.Value; a thrown exception becomes ExecutionResult.
// IsError/ErrorMessage instead of a Go error — only setup failures
// (building the bridge itself) return a non-nil error.
func (e *Engine) Execute(ctx context.Context, code string, toolNames []string, caller mcp.ToolCaller) (ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	vm := goja.New()
	var logs []string

	if err := installConsole(vm, &logs); err != nil {
		return ExecutionResult{}, fmt.Errorf("runtime: console setup: %w", err)
	}
	if err := installTools(ctx, vm, toolNames, caller); err != nil {
		return ExecutionResult{}, fmt.Errorf("runtime: tool bridge setup: %w", err)
	}

	value, err := vm.RunString(code)
	if err != nil {
		return ExecutionResult{
			Logs:         logs,
			IsError:      true,
			ErrorMessage: scriptErrorMessage(err),
		}, nil
	}

	return ExecutionResult{
		Value: value.Export(),
		Logs:  logs,
	}, nil
}

// installConsole wires a console.log that mirrors the one the script
// bridge has always offered: any argument is JSON-stringified unless it's
// already a primitive, then all arguments are space-joined into one log
// line.
func installConsole(vm *goja.Runtime, logs *[]string) error {
	console := vm.NewObject()
	if err := console.Set("log", func(line string) {
		*logs = append(*logs, line)
	}); err != nil {
		return err
	}
	if err := vm.Set("console", console); err != nil {
		return err
	}

	const stringifySetup = `
		var __original_console_log = console.log;
		console.log = function() {
			var parts = [];
			for (var i = 0; i < arguments.length; i++) {
				var arg = arguments[i];
				if (typeof arg === 'object') {
					parts.push(JSON.stringify(arg));
				} else {
					parts.push(String(arg));
				}
			}
			__original_console_log(parts.join(' '));
		};
	`
	_, err := vm.RunString(stringifySetup)
	return err
}

// installTools builds __raw_tools (one native synchronous function per
// downstream tool, each taking/returning JSON-encoded strings) and the
// `tools` JS facade on top of it that the script actually calls.
func installTools(ctx context.Context, vm *goja.Runtime, toolNames []string, caller mcp.ToolCaller) error {
	rawTools := vm.NewObject()
	for _, name := range toolNames {
		name := name
		fn := func(argsJSON string) string {
			var args map[string]any
			if argsJSON != "" {
				_ = json.Unmarshal([]byte(argsJSON), &args)
			}
			result, err := caller.CallTool(ctx, name, args)
			if err != nil {
				errJSON, _ := json.Marshal(map[string]string{"error": err.Error()})
				return string(errJSON)
			}
			return formatCallResult(result)
		}
		if err := rawTools.Set(name, fn); err != nil {
			return err
		}
	}
	if err := vm.Set("__raw_tools", rawTools); err != nil {
		return err
	}

	namesJSON, err := json.Marshal(toolNames)
	if err != nil {
		return err
	}

	wrapperCode := fmt.Sprintf(`
		var tools = {};
		var __tool_names = %s;
		for (var i = 0; i < __tool_names.length; i++) {
			(function(toolName) {
				tools[toolName] = function(args) {
					var jsonArgs = JSON.stringify(args || {});
					var resultStr = __raw_tools[toolName](jsonArgs);
					var result;
					try {
						result = JSON.parse(resultStr);
					} catch (e) {
						result = resultStr;
					}
					if (result && typeof result === 'object' && result.error) {
						throw new Error('Tool ' + toolName + ' failed: ' + result.error);
					}
					return result;
				};
			})(__tool_names[i]);
		}
	`, namesJSON)

	_, err = vm.RunString(wrapperCode)
	return err
}

// formatCallResult renders a downstream tool's raw result the way a
// script sees it: a lone text item comes back as the plain string, image
// content becomes {type, data, mimeType}, and anything else collapses to
// a JSON array of the per-item values.
func formatCallResult(result *sdk_mcp.CallToolResult) string {
	items := make([]any, 0, len(result.Content))
	for _, content := range result.Content {
		switch c := content.(type) {
		case sdk_mcp.TextContent:
			items = append(items, c.Text)
		case *sdk_mcp.TextContent:
			items = append(items, c.Text)
		case sdk_mcp.ImageContent:
			items = append(items, map[string]any{"type": "image", "data": c.Data, "mimeType": c.MIMEType})
		case *sdk_mcp.ImageContent:
			items = append(items, map[string]any{"type": "image", "data": c.Data, "mimeType": c.MIMEType})
		default:
			items = append(items, nil)
		}
	}

	if len(items) == 1 {
		if s, ok := items[0].(string); ok {
			return s
		}
	}

	data, err := json.Marshal(items)
	if err != nil {
		return "[]"
	}
	return string(data)
}

// scriptErrorMessage extracts a JS exception's message, falling back to
// the raw Go error text for non-exception failures (e.g. a syntax error).
func scriptErrorMessage(err error) string {
	if exc, ok := err.(*goja.Exception); ok {
		return strings.TrimSpace(exc.Value().String())
	}
	return err.Error()
}
