package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/semindex/semindex/internal/query"
)

var searchCmd = &cobra.Command{
	Use:   "search <path> files|functions <query>",
	Short: "Run a semantic search query (C11) against the file or function index",
	Args:  cobra.MinimumNArgs(3),
	Run:   runSearch,
}

func init() {
	searchCmd.Flags().IntP("top-k", "k", 10, "number of results to return")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) {
	path := args[0]
	kind := args[1]
	queryText := strings.Join(args[2:], " ")
	topK, _ := cmd.Flags().GetInt("top-k")

	if kind != "files" && kind != "functions" {
		exitOnRunError(fmt.Errorf("search kind must be \"files\" or \"functions\", got %q", kind))
	}

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	ctx := context.Background()

	if kind == "functions" {
		results, err := a.query.SearchFunctions(ctx, path, queryText, topK, nil)
		exitOnRunError(err)
		printResults(results)
		return
	}

	fileResult, err := a.query.SearchFiles(ctx, path, queryText, topK, nil)
	exitOnRunError(err)
	printResults(fileResult.Hits)
}

func printResults(results []query.Result) {
	if len(results) == 0 {
		fmt.Println("no results")
		return
	}
	for i, r := range results {
		fmt.Printf("%d. %.4f  %s\n", i+1, r.Score, r.ID)
		if path, ok := r.Metadata["relative_path"].(string); ok {
			fmt.Printf("   %s\n", path)
		}
	}
}
