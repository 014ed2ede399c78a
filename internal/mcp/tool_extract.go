package mcp

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/predsrc/internal/source"
)

// Describer renders a predicate; "" means no rendering is available.
type Describer interface {
	Describe(v any) string
}

// ExtractResponse is the JSON body of a predsrc_extract result.
type ExtractResponse struct {
	Location   string `json:"location"`
	Expression string `json:"expression"`
	Available  bool   `json:"available"`
}

// AddExtractTool registers the predsrc_extract tool with an MCP server.
// Relative file paths are resolved against rootDir.
func AddExtractTool(s *server.MCPServer, describer Describer, rootDir string) {
	tool := mcp.NewTool(
		"predsrc_extract",
		mcp.WithDescription(`Render the predicate whose source starts at FILE:LINE as a single-line expression.

Works for lambdas passed to contract decorators, lambdas assigned to names and
one-expression functions. "available" is false when no rendering exists; callers
should then fall back to a generic description.`),
		mcp.WithString("file",
			mcp.Required(),
			mcp.Description("Python source file, absolute or relative to the project root")),
		mcp.WithNumber("line",
			mcp.Required(),
			mcp.Description("1-based line where the predicate's source starts")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createExtractHandler(describer, rootDir))
}

// createExtractHandler creates the handler function for predsrc_extract.
func createExtractHandler(describer Describer, rootDir string) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		file, err := parseStringArg(argsMap, "file", true)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		line := parseIntArg(argsMap, "line", 0)
		if line < 1 {
			return mcp.NewToolResultError(fmt.Sprintf("line must be a positive number, got %d", line)), nil
		}

		if !filepath.IsAbs(file) {
			file = filepath.Join(rootDir, file)
		}
		loc := source.Location{File: file, Line: line}
		expr := describer.Describe(source.Func{Loc: loc})

		return marshalToolResponse(&ExtractResponse{
			Location:   loc.String(),
			Expression: expr,
			Available:  expr != "",
		})
	}
}
