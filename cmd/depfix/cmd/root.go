package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "depfix",
	Short:   "Fix dependency conflicts in package.json without touching your formatting",
	Version: Version,
	Long: `depfix reads your package.json, sends a sanitized summary to the
analysis service, and applies the approved fix directly to the original
file text. Version bumps, package removals, and engine constraints are
spliced in surgically; indentation, key order, and every byte you didn't
ask to change stay exactly as they were.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
