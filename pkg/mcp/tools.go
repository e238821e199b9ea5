package mcp

import (
	"github.com/mark3labs/mcp-go/mcp"
)

const (
	toolTreeshakeEvents  = "treeshake_events"
	toolAnalyzeFactories = "analyze_factories"
)

// optionParams are shared by every tool: the source and the pass options.
func optionParams() []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("code",
			mcp.Required(),
			mcp.Description("Compiled JavaScript or TypeScript module source"),
		),
		mcp.WithString("language",
			mcp.Description("Source language (default: javascript)"),
			mcp.Enum("javascript", "jsx", "typescript", "ts", "tsx"),
		),
		mcp.WithArray("jsxs",
			mcp.Description("Factory function names to track (default: jsx, jsxs, jsxDEV)"),
			mcp.Items(map[string]any{"type": "string"}),
		),
		mcp.WithArray("matches",
			mcp.Description("Regular expressions selecting property keys to remove (default: ^on[A-Z])"),
			mcp.Items(map[string]any{"type": "string"}),
		),
	}
}

func treeshakeEventsTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("Remove event-handler properties from intrinsic-element JSX factory calls " +
			"(e.g. _jsx(\"div\", { onClick })) and return the rewritten module with a list of removed properties."),
		mcp.WithReadOnlyHintAnnotation(true),
	}, optionParams()...)
	return mcp.NewTool(toolTreeshakeEvents, opts...)
}

func analyzeFactoriesTool() mcp.Tool {
	opts := append([]mcp.ToolOption{
		mcp.WithDescription("List the local factory aliases a module imports and the properties " +
			"treeshake_events would remove, without returning rewritten code."),
		mcp.WithReadOnlyHintAnnotation(true),
	}, optionParams()...)
	return mcp.NewTool(toolAnalyzeFactories, opts...)
}
