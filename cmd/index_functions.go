package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semindex/semindex/internal/progress"
)

var indexFunctionsCmd = &cobra.Command{
	Use:   "index-functions <path>",
	Short: "Build the per-function semantic index (FuI)",
	Long:  `Extracts every function via AST, tags it with trigger/layer info, and analyzes and embeds it for function-level retrieval. Requires a non-empty file index.`,
	Args:  cobra.ExactArgs(1),
	Run:   runIndexFunctions,
}

func init() {
	indexFunctionsCmd.Flags().Bool("force", false, "drop and rebuild every function's index entries")
	rootCmd.AddCommand(indexFunctionsCmd)
}

func runIndexFunctions(cmd *cobra.Command, args []string) {
	path := args[0]
	force, _ := cmd.Flags().GetBool("force")

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	if verbose {
		reporter := progress.NewReporter("index-functions")
		started := false
		a.fui.SetProgressFunc(func(processed, total int, relPath string) {
			if !started {
				reporter.Start(total)
				started = true
			}
			reporter.Update(processed, relPath)
		})
		defer func() {
			if started {
				reporter.Finish()
			}
		}()
	}

	stats, err := a.orchestrator.IndexFunctions(context.Background(), path, force)
	exitOnRunError(err)

	fmt.Printf("files_processed=%d functions=%d failed=%d\n", stats.FilesProcessed, stats.FunctionsTotal, stats.Failed)
	if verbose {
		printTelemetry(a)
	}
}
