package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/semindex/semindex/internal/progress"
)

var indexFilesCmd = &cobra.Command{
	Use:   "index-files <path>",
	Short: "Build the per-file semantic index (FI)",
	Long:  `Chunks and summarizes every scanned file, embedding each chunk for natural-language retrieval. Requires a sufficiently converged project analysis.`,
	Args:  cobra.ExactArgs(1),
	Run:   runIndexFiles,
}

func init() {
	indexFilesCmd.Flags().Bool("force", false, "drop and rebuild every file's index entries")
	rootCmd.AddCommand(indexFilesCmd)
}

func runIndexFiles(cmd *cobra.Command, args []string) {
	path := args[0]
	force, _ := cmd.Flags().GetBool("force")

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	if verbose {
		reporter := progress.NewReporter("index-files")
		started := false
		a.fi.SetProgressFunc(func(processed, total int, relPath string) {
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

	stats, err := a.orchestrator.IndexFiles(context.Background(), path, force, nil, nil)
	exitOnRunError(err)

	fmt.Printf("processed=%d failed=%d skipped=%d\n", stats.Processed, stats.Failed, stats.Skipped)
	if verbose {
		printTelemetry(a)
	}
}
