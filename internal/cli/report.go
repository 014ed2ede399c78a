package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/mvp-joe/predsrc/internal/config"
	"github.com/mvp-joe/predsrc/internal/storage"
	"github.com/spf13/cobra"
)

var (
	reportContract   string
	reportFile       string
	reportUnrendered bool
	reportJSON       bool
)

// reportCmd represents the report command
var reportCmd = &cobra.Command{
	Use:   "report [DIR]",
	Short: "Show the predicates of the last stored scan",
	Long: `Show the predicates recorded by the most recent 'predsrc scan' of DIR
(default: the current directory) without rescanning.

Examples:
  predsrc report
  predsrc report --contract deal.pre
  predsrc report --unrendered`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	reportCmd.Flags().StringVar(&reportContract, "contract", "", "only predicates of this contract, e.g. deal.pre")
	reportCmd.Flags().StringVar(&reportFile, "file", "", "only predicates in files starting with this path")
	reportCmd.Flags().BoolVar(&reportUnrendered, "unrendered", false, "only predicates without a rendering")
	reportCmd.Flags().BoolVar(&reportJSON, "json", false, "print one JSON object per predicate")
	rootCmd.AddCommand(reportCmd)
}

func runReport(cmd *cobra.Command, args []string) error {
	dir, err := projectDir(args)
	if err != nil {
		return err
	}
	cfg, err := loadConfig(dir)
	if err != nil {
		return err
	}

	filter := storage.Filter{
		Contract:   reportContract,
		FilePrefix: reportFile,
		Unrendered: reportUnrendered,
	}
	return executeReport(cmd.Context(), cmd.OutOrStdout(), dir, cfg, filter, reportJSON)
}

// executeReport prints the latest stored scan of dir.
func executeReport(ctx context.Context, w io.Writer, dir string, cfg *config.Config, filter storage.Filter, asJSON bool) error {
	store, err := storage.OpenStore(cfg.ResolveDBPath(dir))
	if err != nil {
		return fmt.Errorf("failed to open results database: %w", err)
	}
	defer store.Close()

	info, err := store.LatestScan(ctx)
	if errors.Is(err, storage.ErrNoScans) {
		return fmt.Errorf("%w: run 'predsrc scan' first", err)
	}
	if err != nil {
		return err
	}

	results, err := store.Predicates(ctx, info.ID, filter)
	if err != nil {
		return err
	}

	if !asJSON {
		fmt.Fprintf(w, "Scan of %s at %s: %s predicates in %s files\n",
			info.Root, info.StartedAt.Local().Format("2006-01-02 15:04:05"),
			formatNumber(info.Sites), formatNumber(info.Files))
	}
	return printResults(w, results, asJSON)
}
