package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/mvp-joe/predsrc/internal/mcp"
	"github.com/mvp-joe/predsrc/internal/storage"
	"github.com/spf13/cobra"
)

// mcpCmd represents the mcp command
var mcpCmd = &cobra.Command{
	Use:   "mcp [DIR]",
	Short: "Start the MCP server for predicate rendering",
	Long: `Start the Model Context Protocol (MCP) server so coding assistants can render
predicates and read stored scan results.

The MCP server:
- Renders the predicate at a file and line via the predsrc_extract tool
- Lists the last stored scan via the predsrc_predicates tool
- Communicates via stdio (standard MCP transport)

Example:
  predsrc mcp`,
	Args: cobra.MaximumNArgs(1),
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	root, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", dir, err)
	}

	extractor, retriever, err := newExtractor(cfg)
	if err != nil {
		return err
	}
	defer retriever.Close()

	dbPath := cfg.ResolveDBPath(dir)
	store, err := storage.OpenStore(dbPath)
	if err != nil {
		return fmt.Errorf("failed to open results database: %w", err)
	}
	defer store.Close()

	fmt.Fprintf(os.Stderr, "predsrc MCP Server\n")
	fmt.Fprintf(os.Stderr, "Project:  %s\n", root)
	fmt.Fprintf(os.Stderr, "Results:  %s\n\n", dbPath)

	server, err := mcp.NewServer(root, extractor, store)
	if err != nil {
		return fmt.Errorf("failed to create MCP server: %w", err)
	}
	return server.Serve(cmd.Context())
}
