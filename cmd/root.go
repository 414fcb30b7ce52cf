package cmd

import (
	"github.com/spf13/cobra"
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "semindex",
	Short: "Semantic code search index builder",
	Long: `semindex builds a layered semantic search index over a codebase: a
project-level analysis (PA), a per-file index (FI), and a per-function
index (FuI), backed by a checkpoint store and a vector store.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
