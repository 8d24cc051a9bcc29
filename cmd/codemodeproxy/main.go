// Command codemodeproxy runs as an MCP server that proxies a downstream
// MCP server (spawned as a child process over stdio) and augments its
// tool catalogue with one execute-code tool backed by an embedded
// JavaScript sandbox.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	sdk_mcp "github.com/mark3labs/mcp-go/mcp"
	sdk_server "github.com/mark3labs/mcp-go/server"

	"github.com/mcpcodemode/codemode-proxy/internal/mcp"
	"github.com/mcpcodemode/codemode-proxy/internal/proxy"
	"github.com/mcpcodemode/codemode-proxy/pkg/config"
)

func main() {
	config.LoadEnv()

	mode := flag.String("mode", envDefault("MCP_CODEMODE_MODE", "add"), `tool exposure mode: "add" (default) or "replace"`)
	toolName := flag.String("tool-name", envDefault("MCP_CODEMODE_TOOL_NAME", ""), "name of the execute-code tool (default: execute_tools)")
	includeTools := flag.String("include-tools", envDefault("MCP_CODEMODE_INCLUDE_TOOLS", ""), "comma-separated list of downstream tools to expose (default: all)")
	flag.Parse()

	command := flag.Args()
	if len(command) == 0 {
		log.Fatalf("[Proxy] usage: codemodeproxy [flags] <downstream-command> [args...]")
	}

	proxyMode, err := parseMode(*mode)
	if err != nil {
		log.Fatalf("[Proxy] %v", err)
	}

	var opts []proxy.Option
	opts = append(opts, proxy.WithMode(proxyMode))
	if *toolName != "" {
		opts = append(opts, proxy.WithToolName(*toolName))
	}
	if names := splitAndTrim(*includeTools); len(names) > 0 {
		opts = append(opts, proxy.WithIncludeTools(names))
	}

	ctx := context.Background()

	client := mcp.NewClient(mcp.ServerConfig{
		Name:      "downstream",
		Transport: "stdio",
		Command:   command[0],
		Args:      command[1:],
	})
	if err := client.Connect(ctx); err != nil {
		log.Fatalf("[Proxy] connect downstream: %v", err)
	}
	defer client.Close()

	fmt.Printf("[Proxy] downstream connected: %s\n", strings.Join(command, " "))

	adapter := proxy.New(proxy.NewConfig(opts...), mcp.NewDownstreamCaller(client))

	mcpSrv := sdk_server.NewMCPServer(
		"codemode-proxy",
		"0.1.0",
		sdk_server.WithToolCapabilities(true),
		sdk_server.WithRecovery(),
		sdk_server.WithInstructions(adapter.Instructions()),
	)

	tools, err := adapter.ListTools(ctx, "")
	if err != nil {
		log.Fatalf("[Proxy] initial list_tools: %v", err)
	}
	for _, tool := range tools.Tools {
		tool := tool
		mcpSrv.AddTool(tool, func(ctx context.Context, req sdk_mcp.CallToolRequest) (*sdk_mcp.CallToolResult, error) {
			return adapter.CallTool(ctx, tool.Name, req.GetArguments())
		})
	}
	fmt.Printf("[Proxy] %d tool(s) registered (mode=%s)\n", len(tools.Tools), proxyMode)

	if err := sdk_server.ServeStdio(mcpSrv); err != nil {
		log.Fatalf("[Proxy] serve error: %v", err)
	}
}

// envDefault returns the named environment variable's value, or fallback
// when unset, so .env-sourced values (via config.LoadEnv) serve as flag
// defaults in deployments that prefer environment-based configuration.
func envDefault(name, fallback string) string {
	if v, ok := os.LookupEnv(name); ok {
		return v
	}
	return fallback
}

func parseMode(s string) (proxy.Mode, error) {
	switch s {
	case "add", "":
		return proxy.ModeAdd, nil
	case "replace":
		return proxy.ModeReplaceTools, nil
	default:
		return "", fmt.Errorf("invalid --mode %q: want \"add\" or \"replace\"", s)
	}
}

func splitAndTrim(csv string) []string {
	if csv == "" {
		return nil
	}
	parts := strings.Split(csv, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
