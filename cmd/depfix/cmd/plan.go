package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	planSolution string
	planVerbose  bool
)

var planCmd = &cobra.Command{
	Use:   "plan [directory]",
	Short: "Show what fix would change, without touching the manifest",
	Long: `Compute the change set for the manifest and print it. Nothing is
written; this is the read-only half of fix.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPlan,
}

func init() {
	rootCmd.AddCommand(planCmd)
	planCmd.Flags().StringVar(&planSolution, "solution", "", "read the solution from a local JSON file instead of the service")
	planCmd.Flags().BoolVarP(&planVerbose, "verbose", "v", false, "verbose output")
}

func runPlan(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	p, err := buildPlan(dir, planSolution, planVerbose)
	if err != nil {
		return err
	}

	if p.empty() {
		fmt.Println("Nothing to fix, manifest already matches the solution")
		return nil
	}

	fmt.Println("Planned edits:")
	printPlan(p)
	fmt.Printf("%d change(s), %d removal(s)\n", len(p.Changes), len(p.Removals))

	return nil
}
