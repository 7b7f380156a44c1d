package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/XiaoConstantine/prodeval/pkg/catalog"
	"github.com/XiaoConstantine/prodeval/pkg/eval"
	"github.com/XiaoConstantine/prodeval/pkg/retrieve"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var (
	annotateOutput string
	noCache        bool
)

// Annotate command
var annotateCmd = &cobra.Command{
	Use:   "annotate <benchmark-file>",
	Short: "Run the configured retrieval methods over a benchmark file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := signalContext()
		defer cancel()

		table, err := loadCatalog(ctx)
		if err != nil {
			return err
		}

		retrievers, closers, err := buildRetrievers(ctx, table)
		defer func() {
			for _, c := range closers {
				_ = c.Close()
			}
		}()
		if err != nil {
			return err
		}
		if len(retrievers) == 0 {
			return fmt.Errorf("no retrieval method configured")
		}

		out := annotateOutput
		if out == "" {
			out = retrieve.AnnotatedName(args[0])
		}
		summary, err := retrieve.NewAnnotator(log, retrievers...).AnnotateFile(ctx, args[0], out)
		if err != nil {
			return err
		}

		fmt.Printf("Annotated %d entries -> %s\n", summary.Entries, out)
		for _, m := range eval.Methods {
			if n := summary.Failures[m]; n > 0 {
				fmt.Printf("  %s failures: %d\n", m, n)
			}
		}
		return nil
	},
}

func init() {
	annotateCmd.Flags().StringVar(&catalogArg, "catalog", "", "Catalog file (overrides catalog.path)")
	annotateCmd.Flags().StringVarP(&annotateOutput, "output", "o", "", "Output file (default: <input>_LLM.json)")
	annotateCmd.Flags().BoolVar(&noCache, "no-cache", false, "Disable the result cache")
}

// buildRetrievers wires every method the configuration enables. The returned
// closers must be closed even when err is non-nil.
func buildRetrievers(ctx context.Context, table *catalog.Table) ([]retrieve.Retriever, []io.Closer, error) {
	rc := cfg.Retrieval
	var (
		retrievers []retrieve.Retriever
		closers    []io.Closer
	)

	var structured *retrieve.StructuredSearcher
	if rc.SPARQLEndpoint != "" {
		structured = retrieve.NewStructuredSearcher(rc.SPARQLEndpoint, retrieve.NewPermalinkIndex(table), nil)
		retrievers = append(retrievers, structured)
	}

	switch rc.TextBackend {
	case "elastic":
		es, err := retrieve.NewElasticSearcher(rc.Elastic)
		if err != nil {
			return nil, closers, err
		}
		retrievers = append(retrievers, es)
	default:
		fts, err := retrieve.NewFTSIndex(ctx, rc.FTSPath, table, log)
		if err != nil {
			return nil, closers, err
		}
		closers = append(closers, fts)
		retrievers = append(retrievers, fts)
	}

	if structured != nil && rc.LLM.APIKey != "" {
		retrievers = append(retrievers, retrieve.NewNLSearcher(retrieve.NewTranslator(rc.LLM, log), structured))
	}

	cache, closer := buildCache()
	if closer != nil {
		closers = append(closers, closer)
	}
	for i, r := range retrievers {
		r = retrieve.Timed(r)
		if cache != nil {
			r = retrieve.Cached(r, cache, log)
		}
		retrievers[i] = r
	}
	return retrievers, closers, nil
}

// buildCache prefers Redis when an address is configured, then the in-process
// LRU. A zero LRU size disables caching.
func buildCache() (retrieve.Cache, io.Closer) {
	if noCache {
		return nil, nil
	}
	cc := cfg.Retrieval.Cache
	if cc.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cc.Redis.Addr,
			Password: cc.Redis.Password,
			DB:       cc.Redis.DB,
		})
		return retrieve.NewRedisCache(client, cc.Redis.Prefix, cc.Redis.TTL), client
	}
	if cc.LRU.Size > 0 {
		return retrieve.NewLRUCache(cc.LRU.Size, cc.LRU.TTL), nil
	}
	return nil, nil
}
