package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/XiaoConstantine/prodeval/internal/config"
	"github.com/XiaoConstantine/prodeval/internal/logger"
	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	configPath string
	logLevel   string
	logFormat  string
	catalogArg string

	cfg *config.Config
	log logger.Logger
)

func Execute() error {
	return rootCmd.Execute()
}

var rootCmd = &cobra.Command{
	Use:   "prodeval",
	Short: "Build product-retrieval benchmarks and score retrieval methods against them",
	Long: `prodeval generates ground-truth benchmarks from a product catalog and
evaluates retrieval methods against them:
  - generate: enumerate attribute combinations with enough matching products
  - annotate: run SPARQL, text and LLM retrieval over a benchmark file
  - evaluate: precision, recall and F1 per method for all / without / with a feature
  - watch:    re-evaluate result files as they change`,
	SilenceUsage:      true,
	SilenceErrors:     true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: prodeval.yaml in ., ./configs, $HOME/.prodeval)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format (console, json)")

	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(domainsCmd)
	rootCmd.AddCommand(annotateCmd)
	rootCmd.AddCommand(evaluateCmd)
	rootCmd.AddCommand(watchCmd)
}

func setup(cmd *cobra.Command, args []string) error {
	loaded, err := config.Load(configPath, flagOverrides)
	if err != nil {
		return err
	}

	cfg = loaded
	log = logger.NewStructured(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// flagOverrides applies global flags before the configuration is validated.
func flagOverrides(c *config.Config) {
	if logLevel != "" {
		c.Logging.Level = logLevel
	}
	if logFormat != "" {
		c.Logging.Format = logFormat
	}
	if catalogArg != "" {
		c.Catalog.Path = catalogArg
	}
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

func loadCatalog(ctx context.Context) (*catalog.Table, error) {
	if cfg.Catalog.Path == "" {
		return nil, fmt.Errorf("no catalog configured. Set catalog.path or pass --catalog")
	}
	t, err := catalog.Load(ctx, cfg.Catalog.Path, cfg.Catalog.Format, cfg.Catalog.Table, cfg.Catalog.Columns)
	if err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}
	log.Info("catalog loaded", map[string]interface{}{
		"path":  cfg.Catalog.Path,
		"items": t.Len(),
	})
	return t, nil
}
