package cli

import (
	"errors"
	"fmt"
	"log"
	"os"

	"github.com/mvp-joe/predsrc/internal/config"
	"github.com/mvp-joe/predsrc/internal/extract"
	"github.com/mvp-joe/predsrc/internal/source"
)

// ErrNoRendering indicates a predicate has no source rendering.
var ErrNoRendering = errors.New("no rendering available")

// projectDir returns the optional DIR argument, defaulting to the working directory.
func projectDir(args []string) (string, error) {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}
	info, err := os.Stat(dir)
	if err != nil {
		return "", fmt.Errorf("failed to access %s: %w", dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("%s is not a directory", dir)
	}
	return dir, nil
}

// loadConfig loads the configuration for the project at rootDir, honouring --config.
func loadConfig(rootDir string) (*config.Config, error) {
	loader := config.NewLoader(rootDir)
	if cfgFile != "" {
		loader = config.NewFileLoader(rootDir, cfgFile)
	}

	cfg, err := loader.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}
	if verbose {
		log.Printf("Contract namespaces: %v", cfg.Contracts.Namespaces)
	}
	return cfg, nil
}

// newExtractor builds an extractor reading files through a bounded cache.
// The caller closes the returned retriever.
func newExtractor(cfg *config.Config) (*extract.Extractor, *source.FileRetriever, error) {
	retriever, err := source.NewFileRetriever(cfg.Cache.MaxFiles)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create source cache: %w", err)
	}

	opts := append(extractorOptions(cfg), extract.WithRetriever(retriever))
	return extract.New(opts...), retriever, nil
}

func extractorOptions(cfg *config.Config) []extract.Option {
	return []extract.Option{
		extract.WithNamespaces(cfg.Contracts.Namespaces...),
		extract.WithPlaceholder(cfg.Contracts.Placeholder),
	}
}
