package typescript

import (
	"encoding/json"
	"strings"
	"testing"
)

func schema(t *testing.T, s string) json.RawMessage {
	t.Helper()
	return json.RawMessage(s)
}

func TestGenerateSimpleTool(t *testing.T) {
	tool := Tool{
		Name:        "get_items",
		Description: "Get all items",
		InputSchema: schema(t, `{"type":"object","properties":{}}`),
	}

	ts := Generate([]Tool{tool}, "tools")
	if !strings.Contains(ts, "declare namespace tools") {
		t.Errorf("missing namespace declaration: %s", ts)
	}
	if !strings.Contains(ts, "function get_items(): unknown") {
		t.Errorf("missing zero-arg function signature: %s", ts)
	}
}

func TestGenerateToolWithParams(t *testing.T) {
	tool := Tool{
		Name:        "move_footprint",
		Description: "Move a footprint to a new position",
		InputSchema: schema(t, `{
			"type": "object",
			"properties": {
				"id": {"type": "string", "description": "UUID of the footprint"},
				"x_mm": {"type": "number", "description": "X position in mm"},
				"y_mm": {"type": "number", "description": "Y position in mm"},
				"rotation": {"type": "number", "description": "Optional rotation"}
			},
			"required": ["id", "x_mm", "y_mm"]
		}`),
	}

	ts := Generate([]Tool{tool}, "kicad")

	for _, want := range []string{
		"declare namespace kicad",
		"interface MoveFootprintParams",
		"id: string",
		"x_mm: number",
		"rotation?: number",
		"function move_footprint(params: MoveFootprintParams): unknown",
	} {
		if !strings.Contains(ts, want) {
			t.Errorf("expected output to contain %q, got:\n%s", want, ts)
		}
	}
}

func TestGenerateArrayType(t *testing.T) {
	tool := Tool{
		Name: "get_items_by_id",
		InputSchema: schema(t, `{
			"type": "object",
			"properties": {
				"item_ids": {"type": "array", "items": {"type": "string"}, "description": "List of item UUIDs"}
			},
			"required": ["item_ids"]
		}`),
	}

	ts := Generate([]Tool{tool}, "tools")
	if !strings.Contains(ts, "item_ids: string[]") {
		t.Errorf("expected array type, got:\n%s", ts)
	}
}

func TestToPascalCase(t *testing.T) {
	cases := map[string]string{
		"get_items":       "GetItems",
		"move-footprint":  "MoveFootprint",
		"simple":          "Simple",
		"a_b-c":           "ABC",
	}
	for in, want := range cases {
		if got := toPascalCase(in); got != want {
			t.Errorf("toPascalCase(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestSchemaToTypeScriptPrimitives(t *testing.T) {
	cases := []struct {
		schema string
		want   string
	}{
		{`{"type":"string"}`, "string"},
		{`{"type":"number"}`, "number"},
		{`{"type":"integer"}`, "number"},
		{`{"type":"boolean"}`, "boolean"},
		{`{"type":"array","items":{"type":"string"}}`, "string[]"},
	}
	for _, c := range cases {
		got := schemaToTypeScript(decodeValue(schema(t, c.schema)), nil, map[string]bool{})
		if got != c.want {
			t.Errorf("schemaToTypeScript(%s) = %q, want %q", c.schema, got, c.want)
		}
	}
}

func TestSchemaToTypeScriptNullableUnion(t *testing.T) {
	got := schemaToTypeScript(decodeValue(schema(t, `{"anyOf":[{"type":"string"},{"type":"null"}]}`)), nil, map[string]bool{})
	if !strings.Contains(got, "string") || !strings.Contains(got, "null") {
		t.Errorf("expected union of string and null, got %q", got)
	}
}

func TestSchemaToTypeScriptRefResolution(t *testing.T) {
	root := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"widget": map[string]any{"$ref": "#/$defs/Widget"},
		},
		"required": []any{"widget"},
		"$defs": map[string]any{
			"Widget": map[string]any{
				"type":       "object",
				"properties": map[string]any{"name": map[string]any{"type": "string"}},
				"required":   []any{"name"},
			},
		},
	}
	out := generateParamsInterface(root, "Thing", 1)
	if !strings.Contains(out, "name: string") {
		t.Errorf("expected resolved $ref to expand Widget, got:\n%s", out)
	}
}

func TestSchemaToTypeScriptRefCycleGuard(t *testing.T) {
	defs := map[string]any{
		"Node": map[string]any{
			"type": "object",
			"properties": map[string]any{
				"child": map[string]any{"$ref": "#/$defs/Node"},
			},
		},
	}
	node := defs["Node"]
	got := schemaToTypeScript(node, defs, map[string]bool{})
	if got == "" {
		t.Fatal("expected cycle guard to terminate with a result, got empty string")
	}
	if strings.Count(got, "child") > 2 {
		t.Errorf("expected cycle guard to bound recursion, got:\n%s", got)
	}
}

func TestSchemaToTypeScriptUnknownRef(t *testing.T) {
	got := schemaToTypeScript(decodeValue(schema(t, `{"$ref":"#/$defs/Missing"}`)), map[string]any{}, map[string]bool{})
	if got != "unknown" {
		t.Errorf("expected unresolved $ref to degrade to unknown, got %q", got)
	}
}
