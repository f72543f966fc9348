package cmd

import (
	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/spf13/cobra"
)

// eventsCmd groups scan audit log operations.
var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "List or export the scan audit log",
	Long: `Every scan appends one event: mode, status, score, whether the snapshot was
persisted, remaining API budget and duration.

Subcommands:
  list   - Print recent events
  export - Write events and snapshots to Parquet, optionally uploading them to S3`,
}

var eventsListCmd = &cobra.Command{
	Use:   "list [username]",
	Short: "Print the most recent scan events",
	Long: `Examples:
  devscore events list
  devscore events list octocat --limit 5 --output csv`,
	Args:    cobra.MaximumNArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEvents(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot list events", err)
		}
	},
}

var eventsExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export scan events and snapshots to Parquet",
	Long: `Write <output-file>.scan_events.parquet and <output-file>.snapshots.parquet.
With --export-s3-bucket both files are uploaded afterwards. Credentials come from
the standard AWS environment variables or shared config.

Examples:
  devscore events export --output-file devscore

  # Upload to MinIO
  devscore events export --output-file devscore \
    --export-s3-bucket exports --export-s3-endpoint http://localhost:9000`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteEventsExport(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Export failed", err)
		}
	},
}
