package proxy

// Mode controls whether downstream tools still appear alongside the
// execute-code tool (Add) or are hidden behind it entirely (ReplaceTools).
type Mode string

const (
	ModeAdd          Mode = "add"
	ModeReplaceTools Mode = "replace"
)

const defaultToolName = "execute_tools"

const defaultToolDescription = `Execute JavaScript code with access to MCP tools. The code has access to a ` + "`tools`" + ` object with synchronous functions for each tool. The last expression is returned as the result. Use ` + "`console.log()`" + ` to debug.

## Important syntax rules

1. **Semicolons are required** after statements (strict ECMAScript parsing)
2. **Object literals must be wrapped in parentheses** when used as the final expression: ` + "`({key: value})`" + `
3. The last expression in the code is automatically returned

## Examples

Query and process data:
` + "```javascript" + `
var items = tools.get_items({});
var total = 0;
for (var i = 0; i < items.length; i++) {
    total += items[i].value;
}
total;
` + "```" + `

Return an object (note the parentheses):
` + "```javascript" + `
var a = tools.add({a: 5, b: 3});
var b = tools.multiply({a: a.result, b: 2});
({sum: a.result, product: b.result});
` + "```" + `

Filter and transform:
` + "```javascript" + `
var items = tools.get_items({}).filter(function(x) { return x.value > 10; });
items.map(function(x) { return x.name; });
` + "```"

// Config holds the proxy's exposure policy. Zero value is not directly
// usable — construct with NewConfig, which fills in the defaults the
// original tool ships with.
type Config struct {
	Mode            Mode
	ToolName        string
	ToolDescription string
	IncludeTools    []string // nil means "include everything"

	// RichContent selects the image-aware content codec: a script result
	// shaped like {type: "image", data, mimeType} (or an array containing
	// one) is returned as a genuine image content item instead of a JSON
	// text blob. False keeps the plain single-text-blob rendering.
	RichContent bool
}

// Option configures a Config via NewConfig.
type Option func(*Config)

// NewConfig builds a Config with the documented defaults
// (Mode=Add, ToolName="execute_tools", the full usage-guide description,
// no tool filtering), then applies opts.
func NewConfig(opts ...Option) Config {
	cfg := Config{
		Mode:            ModeAdd,
		ToolName:        defaultToolName,
		ToolDescription: defaultToolDescription,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// WithMode overrides the exposure mode.
func WithMode(mode Mode) Option {
	return func(c *Config) { c.Mode = mode }
}

// WithToolName overrides the execute-code tool's name.
func WithToolName(name string) Option {
	return func(c *Config) {
		if name != "" {
			c.ToolName = name
		}
	}
}

// WithToolDescription overrides the execute-code tool's base description
// (the typed-interface block is still appended once tools are cached).
func WithToolDescription(desc string) Option {
	return func(c *Config) {
		if desc != "" {
			c.ToolDescription = desc
		}
	}
}

// WithIncludeTools restricts the downstream tools the proxy exposes (both
// as passthrough tools in Add mode and as callables inside scripts) to
// exactly this set. A nil/empty slice means "include everything".
func WithIncludeTools(names []string) Option {
	return func(c *Config) { c.IncludeTools = names }
}

// WithRichContent enables the image-aware content codec for execute-code
// results (see Config.RichContent).
func WithRichContent(enabled bool) Option {
	return func(c *Config) { c.RichContent = enabled }
}
