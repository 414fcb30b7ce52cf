package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <path>",
	Short: "Run project analysis (PA) over a repository",
	Long:  `Iteratively refines a project's description, languages, frameworks, modules, entry points, and architecture, each field carrying a confidence score.`,
	Args:  cobra.ExactArgs(1),
	Run:   runAnalyze,
}

func init() {
	analyzeCmd.Flags().Bool("force", false, "discard prior PA state and start over")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) {
	path := args[0]
	force, _ := cmd.Flags().GetBool("force")

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	if verbose {
		fmt.Fprintf(os.Stderr, "analyzing %s (force=%v)...\n", path, force)
	}

	result, err := a.orchestrator.AnalyzeProject(context.Background(), path, force)
	exitOnRunError(err)

	fmt.Printf("completed=%v min_confidence=%d\n", result.Completed, result.MinConfidence())
	if result.Description.HasValue {
		fmt.Printf("description: %s (confidence %d)\n", result.Description.Value, result.Description.Confidence)
	}
	if verbose {
		printTelemetry(a)
	}
}
