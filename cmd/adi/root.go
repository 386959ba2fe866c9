package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	inspector "github.com/vals/anndata-design-inspector"
	"github.com/vals/anndata-design-inspector/internal/adapters/h5ad"
	"github.com/vals/anndata-design-inspector/internal/config"
	"github.com/vals/anndata-design-inspector/internal/logging"
	"github.com/vals/anndata-design-inspector/pkg/grammar"
)

var rootCmd = &cobra.Command{
	Use:   "adi",
	Short: "adi inspects the experimental design of AnnData (.h5ad) files",
	Long: `adi extracts categorical factors from an .h5ad file's observation metadata,
infers which factors are nested, crossed or cell-type classifications, and
renders the design as a compact grammar string, diagrams and experiment cards.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to config file (default ./adi.yaml if present)")
	rootCmd.PersistentFlags().String("log-level", "info", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("h5dump", "", "Path to the h5dump binary")
	rootCmd.PersistentFlags().String("h5ls", "", "Path to the h5ls binary")
}

// loadConfig assembles configuration from file, environment and the command's
// flags, then builds the logger.
func loadConfig(cmd *cobra.Command) (config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path, cmd.Flags())
	if err != nil {
		return cfg, nil, err
	}
	logger := logging.New(logging.ParseLevel(cfg.LogLevel))
	return cfg, logger, nil
}

// buildEngine wires the h5ad extractor into an inspector Engine.
func buildEngine(cfg config.Config, logger *slog.Logger) (*inspector.Engine, error) {
	extractor := h5ad.NewExtractor(h5ad.Config{
		H5dump: cfg.Tools.H5dump,
		H5ls:   cfg.Tools.H5ls,
	}, logger)

	return inspector.New(extractor,
		inspector.WithLogger(logger),
		inspector.WithIgnoredFactors(cfg.Ignore...),
		inspector.WithGrammarOptions(grammar.Options{
			BalanceTolerance:  cfg.Grammar.BalanceTolerance,
			ApproximateCounts: cfg.Grammar.ApproximateCounts,
		}),
	)
}

// fail prints the error and exits non-zero.
func fail(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	os.Exit(1)
}
