package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status <path>",
	Short: "Report aggregate PA/FI/FuI progress for a repository",
	Args:  cobra.ExactArgs(1),
	Run:   runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) {
	path := args[0]

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	status, err := a.orchestrator.CheckStatus(context.Background(), path)
	exitOnRunError(err)

	if !status.PAFound {
		fmt.Println("pa: not found")
	} else {
		fmt.Printf("pa: completed=%v min_confidence=%d iteration_count=%d\n",
			status.PA.Completed, status.PA.MinConfidence(), status.PA.IterationCount)
	}
	fmt.Printf("files: total=%d completed=%d failed=%d\n", status.Files.Total, status.Files.Completed, status.Files.Failed)
	fmt.Printf("functions: total=%d completed=%d failed=%d\n", status.Functions.Total, status.Functions.Completed, status.Functions.Failed)
}
