package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/depfix-cli/depfix/internal/changeset"
	"github.com/depfix-cli/depfix/internal/manifest"
	"github.com/depfix-cli/depfix/internal/patch"
	"github.com/depfix-cli/depfix/internal/resolve"
	"github.com/depfix-cli/depfix/internal/session"
	"github.com/depfix-cli/depfix/internal/vers"
)

var (
	fixSolution string
	fixDryRun   bool
	fixYes      bool
	fixVerbose  bool
)

var fixCmd = &cobra.Command{
	Use:   "fix [directory]",
	Short: "Analyze package.json and apply the approved fix",
	Long: `Load package.json, obtain a solution from the analysis service (or a
local solution file), and patch the manifest in place.

A backup of the original file is written to package.json.bak before any
edit. Entries the solution marks as unresolvable are skipped; entries it
marks for removal are deleted with trailing-comma repair.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runFix,
}

func init() {
	rootCmd.AddCommand(fixCmd)
	fixCmd.Flags().StringVar(&fixSolution, "solution", "", "apply a solution from a local JSON file instead of the service")
	fixCmd.Flags().BoolVar(&fixDryRun, "dry-run", false, "print the plan without modifying anything")
	fixCmd.Flags().BoolVarP(&fixYes, "yes", "y", false, "apply without confirmation")
	fixCmd.Flags().BoolVarP(&fixVerbose, "verbose", "v", false, "verbose output")
}

// plan is everything computed before the manifest is touched.
type plan struct {
	Manifest *manifest.Manifest
	Changes  []changeset.Change
	Removals []changeset.Removal
	Engines  changeset.EngineUpdate
}

func (p *plan) empty() bool {
	return len(p.Changes) == 0 && len(p.Removals) == 0 && p.Engines.Empty()
}

// buildPlan loads the manifest, obtains a solution, and diffs the two.
func buildPlan(dir, solutionPath string, verbose bool) (*plan, error) {
	m, err := manifest.Load(dir)
	if err != nil {
		return nil, err
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "Manifest: %s\n", m.Path)
		fmt.Fprintf(os.Stderr, "Dependencies: %d runtime, %d dev\n", len(m.Dependencies), len(m.DevDependencies))
	}

	var sol *resolve.Solution
	if solutionPath != "" {
		sol, err = resolve.LoadSolution(solutionPath)
		if err != nil {
			return nil, err
		}
	} else {
		sol, err = requestSolution(m, verbose)
		if err != nil {
			return nil, err
		}
	}

	return &plan{
		Manifest: m,
		Changes:  changeset.Build(m, sol),
		Removals: changeset.Removals(m, sol),
		Engines:  changeset.Engines(sol),
	}, nil
}

// requestSolution asks the analysis service for a fix, reusing the cached
// session token when the environment provides none.
func requestSolution(m *manifest.Manifest, verbose bool) (*resolve.Solution, error) {
	client, err := resolve.NewClient()
	if err != nil {
		return nil, err
	}
	client.Verbose = verbose

	store, err := session.Open()
	if err != nil {
		return nil, err
	}
	sess, err := store.Load()
	if err != nil {
		return nil, err
	}

	if client.Token == "" {
		client.Token = sess.Token
	}

	sol, err := client.Analyze(m.Summary())
	if err != nil {
		return nil, fmt.Errorf("analyzing %s: %w", m.Name, err)
	}

	sess.LastAnalysis = manifest.Fingerprint(m.Raw)
	sess.LastRun = time.Now().UTC()
	if err := store.Save(sess); err != nil && verbose {
		fmt.Fprintf(os.Stderr, "warning: failed to save session: %v\n", err)
	}

	return sol, nil
}

// printPlan writes the human-readable change list to stdout.
func printPlan(p *plan) {
	for _, c := range p.Changes {
		label := ""
		switch cmp := vers.Compare(c.From, c.To); {
		case cmp < 0:
			label = " (upgrade)"
		case cmp > 0:
			label = " (downgrade)"
		}
		fmt.Printf("  ~ %s: %s -> %s%s [%s]\n", c.Package, c.From, c.To, label, c.Section)
	}
	for _, r := range p.Removals {
		reason := r.Reason
		if reason == "" {
			reason = "removal advised"
		}
		fmt.Printf("  - %s: %s [%s]\n", r.Package, reason, r.Section)
	}
	if p.Engines.Node != "" {
		fmt.Printf("  * engines.node: %s\n", p.Engines.Node)
	}
	if p.Engines.Npm != "" {
		fmt.Printf("  * engines.npm: %s\n", p.Engines.Npm)
	}
}

func runFix(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	p, err := buildPlan(dir, fixSolution, fixVerbose)
	if err != nil {
		return err
	}

	if p.empty() {
		fmt.Println("Nothing to fix, manifest already matches the solution")
		return nil
	}

	fmt.Println("Planned edits:")
	printPlan(p)

	if fixDryRun {
		return nil
	}

	if !fixYes && !confirm("Apply these edits?") {
		fmt.Println("Aborted")
		return nil
	}

	res, err := patch.Apply(p.Manifest.Path, p.Changes, p.Removals, p.Engines)
	if err != nil {
		return err
	}

	fmt.Printf("Patched %s\n", p.Manifest.Path)
	fmt.Printf("  Changes: %d, removals: %d, engine keys: %d\n",
		res.ChangesApplied, res.RemovalsApplied, res.EngineKeysUpdated)
	fmt.Printf("  Backup: %s\n", res.BackupPath)

	if skipped := len(p.Changes) - res.ChangesApplied + len(p.Removals) - res.RemovalsApplied; skipped > 0 {
		fmt.Fprintf(os.Stderr, "warning: %d edit(s) no longer matched the manifest and were skipped\n", skipped)
	}

	return nil
}

// confirm asks a yes/no question on the terminal, defaulting to no.
func confirm(prompt string) bool {
	fmt.Printf("%s [y/N]: ", prompt)
	reader := bufio.NewReader(os.Stdin)
	answer, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	answer = strings.ToLower(strings.TrimSpace(answer))
	return answer == "y" || answer == "yes"
}
