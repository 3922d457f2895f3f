package cmd

import (
	"os"

	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "craggo",
	Short: "Corrective RAG service",
	Long: `craggo answers questions over a local document index, scores how
relevant the retrieved chunks actually are, and falls back to web search
when the local knowledge is wrong or ambiguous.`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
