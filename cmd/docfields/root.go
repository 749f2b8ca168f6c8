package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/docfields/internal/config"
	"github.com/jackzampolin/docfields/internal/home"
	"github.com/jackzampolin/docfields/internal/output"
	"github.com/jackzampolin/docfields/internal/prompts"
	"github.com/jackzampolin/docfields/internal/prompts/extract"
	"github.com/jackzampolin/docfields/internal/prompts/fields"
	"github.com/jackzampolin/docfields/internal/providers"
	"github.com/jackzampolin/docfields/internal/store"
	"github.com/jackzampolin/docfields/version"
)

var (
	cfgFile      string
	homeDir      string
	outputFormat string
	logLevel     string
)

var rootCmd = &cobra.Command{
	Use:   "docfields",
	Short: "Schema-driven field extraction from document images",
	Long: `docfields extracts structured fields from scanned documents.

An app pairs a field schema with prompt settings. For each document the
model fills a value tree shaped like the schema, plus an index tree naming
the OCR tokens each value was read from.

Evidence sources, in order of preference:
  - an OCR result file (--ocr)
  - the PDF text layer
  - an OCR provider (--recognize)
  - none: the model reads the page images alone`,
	Version:       version.GitRelease,
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().StringVar(
		&cfgFile, "config", "", "config file (default: ./config.yaml or ~/.docfields/config.yaml)",
	)
	rootCmd.PersistentFlags().StringVar(
		&homeDir, "home", "", "docfields home directory (default: $DOCFIELDS_HOME or ~/.docfields)",
	)
	rootCmd.PersistentFlags().StringVarP(
		&outputFormat, "output", "o", "yaml", "output format: yaml or json",
	)
	rootCmd.PersistentFlags().StringVar(
		&logLevel, "log-level", "info", "log level: debug, info, warn or error",
	)

	// Set output format before any command runs
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		format, err := output.ParseFormat(outputFormat)
		if err != nil {
			return err
		}
		output.SetFormat(format)
		return nil
	}

	rootCmd.AddCommand(versionCmd)
}

// env is the per-invocation environment shared by commands.
type env struct {
	home   *home.Dir
	config *config.Manager
	logger *slog.Logger
}

func newLogger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		return nil, fmt.Errorf("invalid --log-level %q: %w", logLevel, err)
	}
	// Logs go to stderr; stdout carries command output.
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})), nil
}

func loadEnv() (*env, error) {
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	h, err := home.New(homeDir)
	if err != nil {
		return nil, err
	}
	if err := h.EnsureExists(); err != nil {
		return nil, err
	}
	mgr, err := config.NewManager(cfgFile, h.Path(), logger)
	if err != nil {
		return nil, err
	}
	if f := mgr.File(); f != "" {
		logger.Debug("using config file", "path", f)
	}
	return &env{home: h, config: mgr, logger: logger}, nil
}

func (e *env) openStore() (*store.Store, error) {
	path := e.config.Get().Store.Path
	if path == "" {
		path = e.home.DBPath()
	}
	return store.Open(path, e.logger)
}

func (e *env) registry() *providers.Registry {
	return providers.NewRegistryFromConfig(e.config.Get().ToProviderRegistryConfig(e.logger))
}

// llm returns the named LLM client, or the configured default.
func (e *env) llm(reg *providers.Registry, name string) (providers.LLMClient, error) {
	if name == "" {
		name = e.config.Get().Defaults.LLMProvider
	}
	client, err := reg.GetLLM(name)
	if err != nil {
		return nil, fmt.Errorf("%w (configured and keyed: %v)", err, reg.ListLLM())
	}
	return client, nil
}

// ocr returns the named OCR provider, or the configured default.
func (e *env) ocr(reg *providers.Registry, name string) (providers.OCRProvider, error) {
	if name == "" {
		name = e.config.Get().Defaults.OCRProvider
	}
	provider, err := reg.GetOCR(name)
	if err != nil {
		return nil, fmt.Errorf("%w (configured and keyed: %v)", err, reg.ListOCR())
	}
	return provider, nil
}

// resolver returns a prompt resolver with every embedded prompt registered.
// st may be nil, in which case no overrides apply.
func (e *env) resolver(st *store.Store) *prompts.Resolver {
	var overrides prompts.OverrideStore
	if st != nil {
		overrides = st
	}
	r := prompts.NewResolver(overrides, e.logger)
	extract.RegisterPrompts(r)
	fields.RegisterPrompts(r)
	return r
}
