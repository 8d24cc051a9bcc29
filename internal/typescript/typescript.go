// Package typescript renders MCP tool descriptors as a TypeScript-like
// function signature block, so the catalogue can be documented inside a
// single string (the execute-code tool's own description) instead of
// re-sent as JSON Schema on every round trip.
package typescript

import (
	"encoding/json"
	"strings"

	"github.com/mcpcodemode/codemode-proxy/internal/util"
)

// maxDescRunes bounds how much of a tool/property description is embedded
// in a generated doc comment.
const maxDescRunes = 400

// Tool is the minimal shape the generator needs from a tool descriptor.
// mcp.Tool (mark3labs/mcp-go) satisfies this once its schema fields are
// marshalled to json.RawMessage; callers construct it directly from the
// SDK type rather than this package depending on the SDK.
type Tool struct {
	Name         string
	Description  string
	InputSchema  json.RawMessage
	OutputSchema json.RawMessage
}

// Generate renders tools as TypeScript function declarations inside a
// `declare namespace <namespace> { ... }` block.
func Generate(tools []Tool, namespace string) string {
	var b strings.Builder

	b.WriteString("// Auto-generated TypeScript interface for MCP tools\n")
	b.WriteString("// Do not edit manually\n\n")
	b.WriteString("declare namespace " + namespace + " {\n")

	for _, tool := range tools {
		interfaceName := toPascalCase(tool.Name)
		fnName := strings.ReplaceAll(tool.Name, "-", "_")

		if tool.Description != "" {
			b.WriteString("  /** " + util.TruncateRunes(tool.Description, maxDescRunes) + " */\n")
		}

		schema := decodeObject(tool.InputSchema)
		paramsType := generateParamsInterface(schema, interfaceName, 1)

		var returnType string
		if len(tool.OutputSchema) > 0 {
			outputSchema := decodeValue(tool.OutputSchema)
			outputObj, _ := outputSchema.(map[string]any)
			returnType = schemaToTypeScript(outputSchema, resolveDefs(outputObj), map[string]bool{})
		} else {
			returnType = "unknown"
		}

		if paramsType != "" {
			b.WriteString(paramsType)
			b.WriteString("  function " + fnName + "(params: " + interfaceName + "Params): " + returnType + ";\n\n")
		} else {
			b.WriteString("  function " + fnName + "(): " + returnType + ";\n\n")
		}
	}

	b.WriteString("}\n")
	return b.String()
}

func generateParamsInterface(schema map[string]any, baseName string, indent int) string {
	indentStr := strings.Repeat("  ", indent)

	props, _ := schema["properties"].(map[string]any)
	if len(props) == 0 {
		return ""
	}

	required := stringSet(schema["required"])
	defs := resolveDefs(schema)

	var b strings.Builder
	b.WriteString(indentStr + "interface " + baseName + "Params {\n")

	for _, name := range sortedKeys(props) {
		propSchema, _ := props[name].(map[string]any)
		tsType := schemaToTypeScript(propSchema, defs, map[string]bool{})
		optional := "?"
		if required[name] {
			optional = ""
		}

		if desc, ok := propSchema["description"].(string); ok && desc != "" {
			b.WriteString(indentStr + "  /** " + util.TruncateRunes(desc, maxDescRunes) + " */\n")
		}
		b.WriteString(indentStr + "  " + name + optional + ": " + tsType + ";\n")
	}

	b.WriteString(indentStr + "}\n\n")
	return b.String()
}

// schemaToTypeScript maps a single JSON Schema node to a TypeScript type
// expression. defs is the nearest enclosing $defs/definitions map, used to
// resolve local $ref pointers. seen guards against $ref cycles: a
// definition name already being expanded on the current path resolves to
// "unknown" instead of recursing forever.
func schemaToTypeScript(schema any, defs map[string]any, seen map[string]bool) string {
	obj, ok := schema.(map[string]any)
	if !ok {
		return "unknown"
	}

	if ref, ok := obj["$ref"].(string); ok {
		name, isLocal := localDefName(ref)
		if !isLocal || defs == nil || seen[name] {
			return "unknown"
		}
		def, ok := defs[name]
		if !ok {
			return "unknown"
		}
		nextSeen := make(map[string]bool, len(seen)+1)
		for k, v := range seen {
			nextSeen[k] = v
		}
		nextSeen[name] = true
		return schemaToTypeScript(def, defs, nextSeen)
	}

	if oneOf, ok := obj["oneOf"].([]any); ok {
		return joinTypes(oneOf, defs, seen)
	}
	if anyOf, ok := obj["anyOf"].([]any); ok {
		return joinTypes(anyOf, defs, seen)
	}

	typeVal, hasType := obj["type"].(string)
	if !hasType {
		return "unknown"
	}

	switch typeVal {
	case "string":
		return "string"
	case "number", "integer":
		return "number"
	case "boolean":
		return "boolean"
	case "null":
		return "null"
	case "array":
		items := "unknown"
		if it, ok := obj["items"]; ok {
			items = schemaToTypeScript(it, defs, seen)
		}
		return items + "[]"
	case "object":
		props, ok := obj["properties"].(map[string]any)
		if !ok {
			return "Record<string, unknown>"
		}
		required := stringSet(obj["required"])
		fields := make([]string, 0, len(props))
		for _, k := range sortedKeys(props) {
			optional := "?"
			if required[k] {
				optional = ""
			}
			fields = append(fields, k+optional+": "+schemaToTypeScript(props[k], defs, seen))
		}
		return "{ " + strings.Join(fields, "; ") + " }"
	default:
		return "unknown"
	}
}

func joinTypes(variants []any, defs map[string]any, seen map[string]bool) string {
	types := make([]string, 0, len(variants))
	for _, v := range variants {
		types = append(types, schemaToTypeScript(v, defs, seen))
	}
	return strings.Join(types, " | ")
}

// localDefName extracts the definition name from "#/$defs/Name" or
// "#/definitions/Name"; any other $ref shape is not locally resolvable.
func localDefName(ref string) (string, bool) {
	for _, prefix := range []string{"#/$defs/", "#/definitions/"} {
		if strings.HasPrefix(ref, prefix) {
			return strings.TrimPrefix(ref, prefix), true
		}
	}
	return "", false
}

func resolveDefs(schema map[string]any) map[string]any {
	if d, ok := schema["$defs"].(map[string]any); ok {
		return d
	}
	if d, ok := schema["definitions"].(map[string]any); ok {
		return d
	}
	return nil
}

func stringSet(v any) map[string]bool {
	arr, _ := v.([]any)
	set := make(map[string]bool, len(arr))
	for _, e := range arr {
		if s, ok := e.(string); ok {
			set[s] = true
		}
	}
	return set
}

func decodeObject(raw json.RawMessage) map[string]any {
	m, _ := decodeValue(raw).(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func decodeValue(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	return v
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Stable, deterministic output matters more than insertion order here:
	// generated interfaces are cached and regenerated on every list_tools
	// call, and map order would make each regeneration differ.
	insertionSort(keys)
	return keys
}

// insertionSort avoids pulling in "sort" for a handful of property names
// per tool; property counts are small enough that this is not a real cost.
func insertionSort(keys []string) {
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j] < keys[j-1]; j-- {
			keys[j], keys[j-1] = keys[j-1], keys[j]
		}
	}
}

// toPascalCase converts a snake_case or kebab-case identifier to
// PascalCase: "get_items" -> "GetItems", "move-footprint" -> "MoveFootprint".
func toPascalCase(s string) string {
	parts := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' })
	var b strings.Builder
	for _, part := range parts {
		if part == "" {
			continue
		}
		r := []rune(part)
		b.WriteString(strings.ToUpper(string(r[0])))
		b.WriteString(string(r[1:]))
	}
	return b.String()
}
