package mcp

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mvp-joe/predsrc/internal/scan"
	"github.com/mvp-joe/predsrc/internal/storage"
)

const (
	defaultPredicateLimit = 100
	maxPredicateLimit     = 1000
)

// PredicateReader reads stored scan results.
type PredicateReader interface {
	LatestScan(ctx context.Context) (*storage.ScanInfo, error)
	Predicates(ctx context.Context, scanID string, filter storage.Filter) ([]scan.Result, error)
}

// PredicatesResponse is the JSON body of a predsrc_predicates result.
type PredicatesResponse struct {
	ScanID     string        `json:"scan_id"`
	Root       string        `json:"root"`
	ScannedAt  time.Time     `json:"scanned_at"`
	Total      int           `json:"total"`
	Truncated  bool          `json:"truncated"`
	Predicates []scan.Result `json:"predicates"`
}

// AddPredicatesTool registers the predsrc_predicates tool with an MCP server.
func AddPredicatesTool(s *server.MCPServer, reader PredicateReader) {
	tool := mcp.NewTool(
		"predsrc_predicates",
		mcp.WithDescription(`List the contract predicates found by the most recent stored scan.

Each entry carries its file, line, contract (e.g. deal.pre) and rendered
expression. An empty expression means the predicate could not be rendered.`),
		mcp.WithString("contract",
			mcp.Description("Only predicates of this contract, e.g. deal.pre")),
		mcp.WithString("file_prefix",
			mcp.Description("Only predicates in files starting with this path")),
		mcp.WithBoolean("unrendered",
			mcp.Description("Only predicates without a rendered expression")),
		mcp.WithNumber("limit",
			mcp.Description("Maximum number of predicates to return (1-1000, default: 100)")),
		mcp.WithReadOnlyHintAnnotation(true),
		mcp.WithDestructiveHintAnnotation(false),
	)

	s.AddTool(tool, createPredicatesHandler(reader))
}

// createPredicatesHandler creates the handler function for predsrc_predicates.
func createPredicatesHandler(reader PredicateReader) func(context.Context, mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		argsMap, errResult := parseToolArguments(request)
		if errResult != nil {
			return errResult, nil
		}

		var filter storage.Filter
		var err error
		if filter.Contract, err = parseStringArg(argsMap, "contract", false); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		if filter.FilePrefix, err = parseStringArg(argsMap, "file_prefix", false); err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		filter.Unrendered = parseBoolArg(argsMap, "unrendered", false)
		limit := parseClampedInt(argsMap, "limit", defaultPredicateLimit, 1, maxPredicateLimit)

		info, err := reader.LatestScan(ctx)
		if errors.Is(err, storage.ErrNoScans) {
			return mcp.NewToolResultError("no scan stored yet; run `predsrc scan` first"), nil
		}
		if err != nil {
			return nil, fmt.Errorf("latest scan: %w", err)
		}

		results, err := reader.Predicates(ctx, info.ID, filter)
		if err != nil {
			return nil, fmt.Errorf("query predicates: %w", err)
		}

		response := &PredicatesResponse{
			ScanID:     info.ID,
			Root:       info.Root,
			ScannedAt:  info.StartedAt,
			Total:      len(results),
			Predicates: results,
		}
		if len(results) > limit {
			response.Predicates = results[:limit]
			response.Truncated = true
		}
		return marshalToolResponse(response)
	}
}
