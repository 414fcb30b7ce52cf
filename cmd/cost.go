package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var costCmd = &cobra.Command{
	Use:   "cost <path>",
	Short: "Estimate the LLM/embedding spend of indexing not-yet-indexed files, without calling any API",
	Args:  cobra.ExactArgs(1),
	Run:   runCost,
}

func init() {
	rootCmd.AddCommand(costCmd)
}

func runCost(cmd *cobra.Command, args []string) {
	path := args[0]

	a, err := openApp(path)
	exitOnRunError(err)
	defer func() { exitOnRunError(a.close()) }()

	estimate, err := a.orchestrator.EstimateCost(context.Background(), path, a.model, string(a.embedModel))
	exitOnRunError(err)

	fmt.Println("Cost estimate (dry run)")
	fmt.Println("=======================")
	fmt.Printf("  files to process: %d\n", estimate.TotalFiles)
	fmt.Printf("  estimated tokens: %d\n", estimate.TotalTokensEstimate)
	fmt.Printf("  estimated total:  $%.4f\n", estimate.EstimatedCost)
	fmt.Println("  breakdown:")
	for op, cost := range estimate.CostBreakdown {
		fmt.Printf("    %-20s $%.4f\n", op, cost)
	}
}
