// Package mcp exposes predicate rendering and stored scan results as MCP tools.
package mcp

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/mark3labs/mcp-go/server"
)

// ServerVersion is reported to MCP clients.
const ServerVersion = "1.0.0"

// Server manages the MCP server lifecycle.
type Server struct {
	mcp *server.MCPServer
}

// NewServer creates an MCP server for the project at rootDir. predsrc_extract
// is always registered; predsrc_predicates only when reader is non-nil.
func NewServer(rootDir string, describer Describer, reader PredicateReader) (*Server, error) {
	if describer == nil {
		return nil, fmt.Errorf("describer is required")
	}

	mcpServer := server.NewMCPServer(
		"predsrc-mcp",
		ServerVersion,
		server.WithToolCapabilities(true),
	)

	AddExtractTool(mcpServer, describer, rootDir)
	if reader != nil {
		AddPredicatesTool(mcpServer, reader)
	}

	return &Server{mcp: mcpServer}, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown.
func (s *Server) Serve(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Starting MCP server on stdio...")
		if err := server.ServeStdio(s.mcp); err != nil {
			errCh <- fmt.Errorf("MCP server error: %w", err)
		}
	}()

	select {
	case <-sigCh:
		log.Printf("Received shutdown signal, stopping gracefully...")
		return nil
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
