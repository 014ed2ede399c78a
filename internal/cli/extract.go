package cli

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/mvp-joe/predsrc/internal/config"
	"github.com/mvp-joe/predsrc/internal/extract"
	"github.com/mvp-joe/predsrc/internal/source"
	"github.com/spf13/cobra"
)

var (
	extractStdin bool
	extractTrace bool
)

// extractCmd represents the extract command
var extractCmd = &cobra.Command{
	Use:   "extract FILE:LINE",
	Short: "Render the predicate whose source starts at FILE:LINE",
	Long: `Render one predicate as a single-line expression.

The source block starting at FILE:LINE is read, dedented and narrowed down to
the predicate's expression. With --stdin the snippet is read from standard
input instead. --trace prints the lines after every stage of the pipeline.

Examples:
  predsrc extract account.py:12
  echo '@deal.pre(lambda x: x > 0)' | predsrc extract --stdin`,
	Args: func(cmd *cobra.Command, args []string) error {
		if extractStdin {
			return cobra.NoArgs(cmd, args)
		}
		return cobra.ExactArgs(1)(cmd, args)
	},
	RunE: runExtract,
}

func init() {
	extractCmd.Flags().BoolVar(&extractStdin, "stdin", false, "read the predicate source from standard input")
	extractCmd.Flags().BoolVar(&extractTrace, "trace", false, "print every pipeline stage")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(".")
	if err != nil {
		return err
	}

	var lines []string
	if extractStdin {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		lines = snippetLines(string(data))
	} else {
		loc, err := source.ParseLocation(args[0])
		if err != nil {
			return err
		}
		lines, err = locationLines(cfg, loc)
		if err != nil {
			return err
		}
	}

	return executeExtract(cmd.OutOrStdout(), cfg, lines, extractTrace)
}

// snippetLines prepares a pasted snippet the way the retriever prepares file source.
func snippetLines(text string) []string {
	return source.Dedent(source.Block(source.SplitLines(text)))
}

// locationLines retrieves the block at loc.
func locationLines(cfg *config.Config, loc source.Location) ([]string, error) {
	retriever, err := source.NewFileRetriever(cfg.Cache.MaxFiles)
	if err != nil {
		return nil, fmt.Errorf("failed to create source cache: %w", err)
	}
	defer retriever.Close()

	if abs, err := filepath.Abs(loc.File); err == nil {
		loc.File = abs
	}
	return retriever.Lines(loc)
}

// executeExtract renders lines and writes the expression, preceded by every
// stage when trace is set.
func executeExtract(w io.Writer, cfg *config.Config, lines []string, trace bool) error {
	extractor := extract.New(extractorOptions(cfg)...)

	if !trace {
		expr := extractor.Lines(lines)
		if expr == "" {
			return ErrNoRendering
		}
		fmt.Fprintln(w, expr)
		return nil
	}

	expr, steps := extractor.Trace(lines)
	fmt.Fprintf(w, "%-12s %s\n", "input", strings.Join(lines, "\n"+strings.Repeat(" ", 13)))
	for _, step := range steps {
		marker := " "
		if step.Matched {
			marker = "*"
		}
		fmt.Fprintf(w, "%-11s%s %s\n", step.Stage, marker, strings.Join(step.Lines, "\n"+strings.Repeat(" ", 13)))
	}
	if expr == "" {
		return ErrNoRendering
	}
	return nil
}
