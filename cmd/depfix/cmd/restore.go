package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/depfix-cli/depfix/internal/manifest"
	"github.com/depfix-cli/depfix/internal/patch"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [directory]",
	Short: "Restore package.json from the last backup",
	Long: `Copy package.json.bak back over package.json, undoing the last fix.
The backup file itself is left in place.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRestore,
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}

func runRestore(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) > 0 {
		dir = args[0]
	}

	path := filepath.Join(dir, manifest.DefaultName)
	backupPath := path + patch.BackupSuffix

	data, err := os.ReadFile(backupPath)
	if err != nil {
		return fmt.Errorf("reading backup: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("restoring manifest: %w", err)
	}

	fmt.Printf("Restored %s from %s\n", path, backupPath)
	return nil
}
