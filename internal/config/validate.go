package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gobwas/glob"
	"github.com/mvp-joe/predsrc/internal/lexer"
)

var (
	// ErrEmptyNamespaces indicates no contract namespace is configured
	ErrEmptyNamespaces = errors.New("empty contract namespaces")

	// ErrInvalidNamespace indicates a namespace that is not a Python identifier
	ErrInvalidNamespace = errors.New("invalid contract namespace")

	// ErrEmptyInclude indicates no include pattern is configured
	ErrEmptyInclude = errors.New("empty include patterns")

	// ErrInvalidPattern indicates a glob that does not compile
	ErrInvalidPattern = errors.New("invalid path pattern")

	// ErrInvalidCacheSettings indicates invalid cache configuration
	ErrInvalidCacheSettings = errors.New("invalid cache settings")

	// ErrInvalidDebounce indicates a negative watch debounce
	ErrInvalidDebounce = errors.New("invalid watch debounce")

	// ErrInvalidStorage indicates invalid storage configuration
	ErrInvalidStorage = errors.New("invalid storage settings")
)

// Validate checks that the configuration is valid and complete.
func Validate(cfg *Config) error {
	var errs []error

	if err := validateContracts(&cfg.Contracts); err != nil {
		errs = append(errs, err)
	}
	if err := validatePaths(&cfg.Paths); err != nil {
		errs = append(errs, err)
	}
	if cfg.Cache.MaxFiles <= 0 {
		errs = append(errs, fmt.Errorf("%w: max_files must be positive, got %d", ErrInvalidCacheSettings, cfg.Cache.MaxFiles))
	}
	if cfg.Watch.DebounceMS < 0 {
		errs = append(errs, fmt.Errorf("%w: debounce_ms cannot be negative, got %d", ErrInvalidDebounce, cfg.Watch.DebounceMS))
	}
	if err := validateStorage(&cfg.Storage); err != nil {
		errs = append(errs, err)
	}

	return joinErrors(errs)
}

func validateContracts(cfg *ContractsConfig) error {
	var errs []error

	if len(cfg.Namespaces) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one namespace required", ErrEmptyNamespaces))
	}
	for _, ns := range cfg.Namespaces {
		if !isIdentifier(ns) {
			errs = append(errs, fmt.Errorf("%w: %q is not an identifier", ErrInvalidNamespace, ns))
		}
	}

	return joinErrors(errs)
}

func validatePaths(cfg *PathsConfig) error {
	var errs []error

	if len(cfg.Include) == 0 {
		errs = append(errs, fmt.Errorf("%w: at least one pattern required", ErrEmptyInclude))
	}
	for _, pattern := range append(append([]string{}, cfg.Include...), cfg.Ignore...) {
		if _, err := glob.Compile(pattern, '/'); err != nil {
			errs = append(errs, fmt.Errorf("%w: %q: %v", ErrInvalidPattern, pattern, err))
		}
	}

	return joinErrors(errs)
}

func validateStorage(cfg *StorageConfig) error {
	var errs []error

	if strings.TrimSpace(cfg.DBPath) == "" {
		errs = append(errs, fmt.Errorf("%w: db_path is required", ErrInvalidStorage))
	}
	// zero keeps every scan
	if cfg.KeepScans < 0 {
		errs = append(errs, fmt.Errorf("%w: keep_scans cannot be negative, got %d", ErrInvalidStorage, cfg.KeepScans))
	}

	return joinErrors(errs)
}

// isIdentifier reports whether name lexes as a single non-keyword name
// followed by the end of the line.
func isIdentifier(name string) bool {
	tokens, err := lexer.Tokenize([]string{name})
	if err != nil {
		return false
	}
	if len(tokens) != 2 || !tokens[1].IsLineBreak() {
		return false
	}
	return tokens[0].Kind == lexer.Name && tokens[0].Text == name && !lexer.IsKeyword(name)
}

// joinErrors combines multiple errors into a single error with clear formatting.
func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}

	if len(errs) == 1 {
		return errs[0]
	}

	var msgs []string
	for _, err := range errs {
		msgs = append(msgs, err.Error())
	}

	return fmt.Errorf("validation failed:\n  - %s", strings.Join(msgs, "\n  - "))
}
