package proxy

import (
	"encoding/json"

	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
)

// jsonToContent converts a script result value into MCP content items.
// It recognizes an image object shaped like {type: "image", data, mimeType}
// (returned as a real image content item), a {result, logs} wrapper
// (recurses into result, then appends logs as a trailing text item), and
// an array that may itself contain images (flattened recursively).
// Anything else becomes a single pretty-printed JSON text item.
func jsonToContent(value any) []sdk_mcp.Content {
	if obj, ok := value.(map[string]any); ok {
		if obj["type"] == "image" {
			data, dataOK := obj["data"].(string)
			mimeType, mimeOK := obj["mimeType"].(string)
			if dataOK && mimeOK {
				return []sdk_mcp.Content{sdk_mcp.NewImageContent(data, mimeType)}
			}
		}

		if result, hasResult := obj["result"]; hasResult {
			content := jsonToContent(result)
			if logs, ok := obj["logs"].([]any); ok && len(logs) > 0 {
				lines := make([]string, 0, len(logs))
				for _, l := range logs {
					if s, ok := l.(string); ok {
						lines = append(lines, s)
					}
				}
				content = append(content, sdk_mcp.NewTextContent("Logs:\n"+joinLines(lines)))
			}
			return content
		}
	}

	if arr, ok := value.([]any); ok {
		var content []sdk_mcp.Content
		for _, item := range arr {
			content = append(content, jsonToContent(item)...)
		}
		if len(content) > 0 {
			return content
		}
	}

	return []sdk_mcp.Content{sdk_mcp.NewTextContent(prettyJSON(value))}
}

func joinLines(lines []string) string {
	out := ""
	for i, l := range lines {
		if i > 0 {
			out += "\n"
		}
		out += l
	}
	return out
}

func prettyJSON(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		data, _ = json.Marshal(value)
	}
	return string(data)
}
