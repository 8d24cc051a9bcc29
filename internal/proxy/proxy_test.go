package proxy

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	sdk_mcp "github.com/mark3labs/mcp-go/mcp"

	"github.com/mcpcodemode/codemode-proxy/internal/mcp"
	"github.com/mcpcodemode/codemode-proxy/internal/mcpmock"
)

func testAdapter(t *testing.T, opts ...Option) *Adapter {
	t.Helper()
	caller := mcp.NewHandlerCaller(mcpmock.New())
	return New(NewConfig(opts...), caller)
}

func TestFilterToolsEmptyConfig(t *testing.T) {
	a := testAdapter(t)
	tools := []sdk_mcp.Tool{{Name: "tool1"}, {Name: "tool2"}}
	if got := a.filterTools(tools); len(got) != 2 {
		t.Errorf("filterTools with no include list = %d tools, want 2", len(got))
	}
}

func TestFilterToolsWithSelection(t *testing.T) {
	a := testAdapter(t, WithIncludeTools([]string{"tool1", "tool3"}))
	tools := []sdk_mcp.Tool{{Name: "tool1"}, {Name: "tool2"}, {Name: "tool3"}}
	got := a.filterTools(tools)
	if len(got) != 2 {
		t.Fatalf("filterTools = %d tools, want 2", len(got))
	}
	names := map[string]bool{}
	for _, tool := range got {
		names[tool.Name] = true
	}
	if !names["tool1"] || !names["tool3"] {
		t.Errorf("filterTools = %#v, want tool1 and tool3", got)
	}
}

func TestListToolsAddMode(t *testing.T) {
	a := testAdapter(t)
	result, err := a.ListTools(context.Background(), "")
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	names := map[string]bool{}
	for _, tool := range result.Tools {
		names[tool.Name] = true
	}
	for _, want := range []string{"add", "multiply", "echo", "get_items", defaultToolName} {
		if !names[want] {
			t.Errorf("ListTools missing %q, got %#v", want, names)
		}
	}
}

func TestListToolsReplaceMode(t *testing.T) {
	a := testAdapter(t, WithMode(ModeReplaceTools))
	result, err := a.ListTools(context.Background(), "")
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if len(result.Tools) != 1 {
		t.Fatalf("ListTools in ReplaceTools mode = %d tools, want 1", len(result.Tools))
	}
	if result.Tools[0].Name != defaultToolName {
		t.Errorf("ListTools[0].Name = %q, want %q", result.Tools[0].Name, defaultToolName)
	}
}

func TestListToolsPopulatesTypedInterface(t *testing.T) {
	a := testAdapter(t)
	if _, err := a.ListTools(context.Background(), ""); err != nil {
		t.Fatalf("ListTools: %v", err)
	}

	tool := a.executeCodeTool()
	if !strings.Contains(tool.Description, "declare namespace tools") {
		t.Errorf("execute-code description missing typed interface block:\n%s", tool.Description)
	}
	if !strings.Contains(tool.Description, "function get_items") {
		t.Errorf("execute-code description missing get_items signature:\n%s", tool.Description)
	}
}

func TestCallToolForwardsNonExecuteCode(t *testing.T) {
	a := testAdapter(t)
	result, err := a.CallTool(context.Background(), "add", map[string]any{"a": 2, "b": 3})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	text := firstText(t, result)
	var decoded map[string]any
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if decoded["result"] != float64(5) {
		t.Errorf("result = %#v, want 5", decoded["result"])
	}
}

func TestCallToolMissingCodeParam(t *testing.T) {
	a := testAdapter(t)
	_, err := a.CallTool(context.Background(), defaultToolName, map[string]any{})
	if err == nil {
		t.Fatal("expected an error for a missing code parameter")
	}
}

func TestCallToolExecutesScriptWithToolsEndToEnd(t *testing.T) {
	a := testAdapter(t)
	code := `
		var items = tools.get_items({}).items;
		var total = 0;
		for (var i = 0; i < items.length; i++) {
			total += items[i].value;
		}
		({ itemCount: items.length, totalValue: total });
	`
	result, err := a.CallTool(context.Background(), defaultToolName, map[string]any{"code": code})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if result.IsError {
		t.Fatalf("unexpected script error: %s", firstText(t, result))
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(firstText(t, result)), &decoded); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if decoded["itemCount"] != float64(3) {
		t.Errorf("itemCount = %#v, want 3", decoded["itemCount"])
	}
	if decoded["totalValue"] != float64(60) {
		t.Errorf("totalValue = %#v, want 60", decoded["totalValue"])
	}
}

func TestCallToolScriptErrorIncludesLogs(t *testing.T) {
	a := testAdapter(t)
	code := `console.log("about to fail"); throw new Error("nope");`
	result, err := a.CallTool(context.Background(), defaultToolName, map[string]any{"code": code})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if !result.IsError {
		t.Fatal("expected IsError=true for a thrown script exception")
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(firstText(t, result)), &decoded); err != nil {
		t.Fatalf("decode error payload: %v", err)
	}
	if decoded["error"] == "" || decoded["error"] == nil {
		t.Error("expected a non-empty error message")
	}
	logs, _ := decoded["logs"].([]any)
	if len(logs) != 1 || logs[0] != "about to fail" {
		t.Errorf("logs = %#v, want [\"about to fail\"]", decoded["logs"])
	}
}

// fakeCursorCaller records the cursor it was asked to list tools with, so
// tests can verify the adapter forwards an incoming pagination cursor to
// its downstream caller rather than discarding it.
type fakeCursorCaller struct {
	gotCursor  sdk_mcp.Cursor
	nextCursor sdk_mcp.Cursor
}

func (f *fakeCursorCaller) CallTool(ctx context.Context, name string, args map[string]any) (*sdk_mcp.CallToolResult, error) {
	return &sdk_mcp.CallToolResult{}, nil
}

func (f *fakeCursorCaller) ListTools(ctx context.Context, cursor sdk_mcp.Cursor) (*sdk_mcp.ListToolsResult, error) {
	f.gotCursor = cursor
	return &sdk_mcp.ListToolsResult{
		Tools:           []sdk_mcp.Tool{{Name: "downstream_tool"}},
		PaginatedResult: sdk_mcp.PaginatedResult{NextCursor: f.nextCursor},
	}, nil
}

func TestListToolsForwardsIncomingCursor(t *testing.T) {
	fake := &fakeCursorCaller{nextCursor: "page-2"}
	a := New(NewConfig(), fake)

	if _, err := a.ListTools(context.Background(), "page-1"); err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if fake.gotCursor != "page-1" {
		t.Errorf("downstream received cursor %q, want %q", fake.gotCursor, "page-1")
	}
}

func TestListToolsNeverSynthesizesOwnCursor(t *testing.T) {
	fake := &fakeCursorCaller{nextCursor: "page-2"}
	a := New(NewConfig(), fake)

	result, err := a.ListTools(context.Background(), "")
	if err != nil {
		t.Fatalf("ListTools: %v", err)
	}
	if result.NextCursor != "" {
		t.Errorf("NextCursor = %q, want empty — the adapter must not expose its own pagination", result.NextCursor)
	}
}

func TestCallToolRichContentRendersImage(t *testing.T) {
	a := testAdapter(t, WithRichContent(true))
	code := `({type: "image", data: "SGVsbG8=", mimeType: "image/png"});`
	result, err := a.CallTool(context.Background(), defaultToolName, map[string]any{"code": code})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if len(result.Content) != 1 {
		t.Fatalf("Content = %#v, want 1 item", result.Content)
	}
	img, ok := result.Content[0].(sdk_mcp.ImageContent)
	if !ok {
		t.Fatalf("Content[0] = %#v, want ImageContent", result.Content[0])
	}
	if img.Data != "SGVsbG8=" || img.MIMEType != "image/png" {
		t.Errorf("ImageContent = %#v", img)
	}
}

func TestCallToolWithoutRichContentKeepsJSONBlob(t *testing.T) {
	a := testAdapter(t)
	code := `({type: "image", data: "SGVsbG8=", mimeType: "image/png"});`
	result, err := a.CallTool(context.Background(), defaultToolName, map[string]any{"code": code})
	if err != nil {
		t.Fatalf("CallTool: %v", err)
	}
	if _, ok := result.Content[0].(sdk_mcp.TextContent); !ok {
		t.Fatalf("Content[0] = %#v, want TextContent when RichContent is disabled", result.Content[0])
	}
}

func firstText(t *testing.T, result *sdk_mcp.CallToolResult) string {
	t.Helper()
	if len(result.Content) == 0 {
		t.Fatal("result has no content")
	}
	tc, ok := result.Content[0].(sdk_mcp.TextContent)
	if !ok {
		t.Fatalf("content[0] = %#v, want TextContent", result.Content[0])
	}
	return tc.Text
}
