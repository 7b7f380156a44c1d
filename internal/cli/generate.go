package cli

import (
	"fmt"
	"os"
	"sort"

	"github.com/XiaoConstantine/prodeval/pkg/benchgen"
	"github.com/spf13/cobra"
)

var (
	sizes     []int
	outputDir string
)

// Generate command
var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate benchmark files for each combination size",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		table, err := loadCatalog(ctx)
		if err != nil {
			return err
		}

		opts := benchgen.Options{MinSupport: cfg.Generator.MinSupport, Logger: log}
		if cfg.Generator.NearMissMargin > 0 {
			opts.RejectHook = benchgen.NearMissHook(log, cfg.Generator.NearMissMargin)
		}
		gen, err := benchgen.New(table, benchgen.DefaultDomains(table, cfg.Generator.Domains), opts)
		if err != nil {
			return fmt.Errorf("invalid generator configuration: %w", err)
		}

		if len(sizes) == 0 {
			sizes = cfg.Generator.Sizes
		}
		if outputDir == "" {
			outputDir = cfg.Generator.OutputDir
		}
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}

		bySize, err := gen.GenerateAll(ctx, sizes)
		if err != nil {
			return err
		}

		ns := make([]int, 0, len(bySize))
		for n := range bySize {
			ns = append(ns, n)
		}
		sort.Ints(ns)
		for _, n := range ns {
			path, err := benchgen.WriteEntries(outputDir, n, bySize[n])
			if err != nil {
				return err
			}
			fmt.Printf("%d-feature queries: %d -> %s\n", n, len(bySize[n]), path)
		}
		return nil
	},
}

// Domains command
var domainsCmd = &cobra.Command{
	Use:   "domains",
	Short: "Show the attribute domains derived from the catalog",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		table, err := loadCatalog(ctx)
		if err != nil {
			return err
		}

		for _, d := range benchgen.DefaultDomains(table, cfg.Generator.Domains) {
			fmt.Printf("%s (%d values)\n", d.Attribute, len(d.Values))
			for _, v := range d.Values {
				fmt.Printf("  %s\n", v)
			}
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().StringVar(&catalogArg, "catalog", "", "Catalog file (overrides catalog.path)")
	generateCmd.Flags().IntSliceVar(&sizes, "sizes", nil, "Combination sizes to generate (default from config)")
	generateCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (default from config)")

	domainsCmd.Flags().StringVar(&catalogArg, "catalog", "", "Catalog file (overrides catalog.path)")
}
