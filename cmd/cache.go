package cmd

import (
	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/spf13/cobra"
)

// cacheCmd focused on cache management.
var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Inspect or clear the cache tiers",
	Long: `Manage the cache tiers that keep repeated scans cheap.

Devscore keeps a memory tier for the running process and persists one snapshot
per user plus an audit log of scans.

Supported backends: SQLite (default), MySQL, PostgreSQL, or None (in-memory)

Subcommands:
  status - Show store statistics and connection info
  clear  - Remove all stored snapshots and scan events

Examples:
  # Check cache status
  devscore cache status

  # Start over
  devscore cache clear`,
}

// cacheClearCmd drops the persisted stores.
var cacheClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all stored snapshots and scan events",
	Long: `Delete every snapshot and scan event from the configured backends.

For SQLite: Deletes the database files
For MySQL/PostgreSQL: Drops the tables

Examples:
  devscore cache clear

  # Clear MySQL stores (set connection strings via env variables)
  DEVSCORE_SNAPSHOT_BACKEND=mysql DEVSCORE_SNAPSHOT_DB_CONNECT="..." devscore cache clear`,
	Args:    cobra.NoArgs,
	PreRunE: configSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCacheClear(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Failed to clear stores", err)
		}
	},
}

// cacheStatusCmd shows cache status.
var cacheStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Display store statistics and connection details",
	Long: `Show backend, entry counts, newest and oldest entries and table sizes of the
snapshot and scan event stores.

Examples:
  devscore cache status`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteCacheStatus(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Failed to get cache status", err)
		}
	},
}
