package cli

import (
	"fmt"
	"os"

	"github.com/XiaoConstantine/prodeval/internal/metrics"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var (
	jsonOutput  bool
	colorOutput bool
	feature     string
	concurrency int
	metricsAddr string
)

func newEvaluator(cmd *cobra.Command) *eval.Evaluator {
	opts := eval.Options{
		Feature:     cfg.Eval.Feature,
		Suffix:      cfg.Eval.Suffix,
		Concurrency: cfg.Eval.Concurrency,
		Logger:      log,
	}
	if cmd.Flags().Changed("feature") {
		opts.Feature = feature
	}
	if concurrency > 0 {
		opts.Concurrency = concurrency
	}
	return eval.New(opts)
}

// Evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate [dir|file]",
	Short: "Score SPARQL, text and LLM results against the ground truth",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "."
		if len(args) > 0 {
			path = args[0]
		}

		ctx, cancel := signalContext()
		defer cancel()

		e := newEvaluator(cmd)
		info, err := os.Stat(path)
		if err != nil {
			return err
		}

		if !info.IsDir() {
			report, err := e.EvaluateFile(ctx, path)
			if err != nil {
				return err
			}
			if jsonOutput {
				return eval.WriteJSON(os.Stdout, &eval.BatchReport{Feature: e.Options().Feature, Files: []eval.FileReport{report}})
			}
			return eval.WriteFileText(os.Stdout, report)
		}

		batch, err := e.ProcessAll(ctx, path)
		if err != nil {
			return err
		}
		if jsonOutput {
			return eval.WriteJSON(os.Stdout, batch)
		}
		if len(batch.Files) == 0 && len(batch.Failures) == 0 {
			fmt.Printf("No files ending in %s found in %s\n", e.Options().Suffix, path)
			return nil
		}
		return eval.WriteText(os.Stdout, batch, colorOutput)
	},
}

// Watch command
var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Re-evaluate result files whenever they change",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}

		ctx, cancel := signalContext()
		defer cancel()

		addr := cfg.Metrics.Addr
		if metricsAddr != "" {
			addr = metricsAddr
		}

		w := eval.NewWatcher(newEvaluator(cmd), eval.DefaultDebounce)
		g, gctx := errgroup.WithContext(ctx)
		if addr != "" {
			log.Info("serving metrics", map[string]interface{}{"addr": addr})
			g.Go(func() error { return metrics.Serve(gctx, addr) })
		}
		g.Go(func() error {
			defer cancel()
			return w.Watch(gctx, dir, func(r eval.FileReport) {
				if err := eval.WriteFileText(color.Output, r); err != nil {
					log.Warn("failed to print report", map[string]interface{}{"error": err.Error()})
				}
			})
		})
		return g.Wait()
	},
}

func init() {
	for _, cmd := range []*cobra.Command{evaluateCmd, watchCmd} {
		cmd.Flags().StringVar(&feature, "feature", "", "Feature splitting the with/without passes (default from config)")
		cmd.Flags().IntVarP(&concurrency, "concurrency", "j", 0, "Files evaluated in parallel (default from config)")
	}

	evaluateCmd.Flags().BoolVar(&jsonOutput, "json", false, "Output as JSON")
	evaluateCmd.Flags().BoolVar(&colorOutput, "color", false, "Colorize text output")

	watchCmd.Flags().StringVar(&metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address (e.g. :9090)")
}
