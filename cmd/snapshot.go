package cmd

import (
	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/spf13/cobra"
)

// snapshotCmd groups per-user snapshot operations.
var snapshotCmd = &cobra.Command{
	Use:   "snapshot",
	Short: "Inspect, reset or migrate stored snapshots",
	Long: `Manage the persisted snapshot of each scanned user.

Subcommands:
  show    - Print the stored snapshot of a user
  reset   - Null the stored analyses of a user so the next scan recomputes them
  migrate - Run database schema migrations`,
}

var snapshotShowCmd = &cobra.Command{
	Use:     "show <username>",
	Short:   "Print the stored snapshot of a user",
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteSnapshotShow(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot show snapshot", err)
		}
	},
}

var snapshotResetCmd = &cobra.Command{
	Use:   "reset <username>",
	Short: "Null the stored analyses of a user",
	Long: `Clear the four component payloads and their timestamps. Counters, sync
categories and the last score are kept.`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(cmd *cobra.Command, _ []string) {
		if err := core.ExecuteSnapshotReset(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot reset snapshot", err)
		}
		cmd.Printf("Stored analyses of %s cleared.\n", cfg.Username)
	},
}

// snapshotMigrateCmd runs schema migrations. Stores are not opened first
// so that it works on a fresh database.
var snapshotMigrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run database schema migrations",
	Long: `Apply or roll back the schema migrations of the snapshot and event stores.

Examples:
  # Migrate to the latest version
  devscore snapshot migrate

  # Roll back everything
  devscore snapshot migrate --target-version 0`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteMigrate(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Migration failed", err)
		}
	},
}
