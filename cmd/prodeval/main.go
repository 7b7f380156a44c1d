// prodeval generates product-retrieval benchmarks and evaluates retrieval
// methods against them.
//
// Usage:
//
//	prodeval generate --catalog products.csv
//	prodeval annotate query_combinazioni/valid_queries_2_features.json
//	prodeval evaluate query_combinazioni
package main

import (
	"fmt"
	"os"

	"github.com/XiaoConstantine/prodeval/internal/cli"
)

func main() {
	if err := cli.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
