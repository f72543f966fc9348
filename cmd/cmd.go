// Package cmd defines the command-line interface for devscore.
package cmd

import (
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func init() {
	// Call initConfig on Cobra's initialization
	cobra.OnInitialize(initConfig)

	// Add primary subcommands to the root command
	rootCmd.AddCommand(scanCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(scoreCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(weightsCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(snapshotCmd)
	rootCmd.AddCommand(eventsCmd)

	// Add the cache subcommands to the parent cache command
	cacheCmd.AddCommand(cacheClearCmd)
	cacheCmd.AddCommand(cacheStatusCmd)

	// Add the snapshot subcommands to the parent snapshot command
	snapshotCmd.AddCommand(snapshotShowCmd)
	snapshotCmd.AddCommand(snapshotResetCmd)
	snapshotCmd.AddCommand(snapshotMigrateCmd)

	// Add the events subcommands to the parent events command
	eventsCmd.AddCommand(eventsListCmd)
	eventsCmd.AddCommand(eventsExportCmd)

	// Bind all persistent flags of rootCmd to Viper
	rootCmd.PersistentFlags().String("token", "", "GitHub access token (prefer DEVSCORE_TOKEN)")
	rootCmd.PersistentFlags().String("api-url", contract.DefaultAPIURL, "GitHub API base URL, for GitHub Enterprise")
	rootCmd.PersistentFlags().String("cache-ttl", contract.DefaultCacheTTL.String(), "Lifetime of memory tier entries")
	rootCmd.PersistentFlags().String("scan-timeout", contract.DefaultScanTimeout.String(), "Time budget of one scan")
	rootCmd.PersistentFlags().String("module-timeout", contract.DefaultModuleTimeout.String(), "Time budget of one analysis module")
	rootCmd.PersistentFlags().Int("min-rate-remaining", contract.DefaultMinRateRemaining, "API calls that must remain after a scan")
	rootCmd.PersistentFlags().Int("workers", contract.DefaultWorkers, "Number of concurrent workers")
	rootCmd.PersistentFlags().Int("top-repos", contract.DefaultTopRepos, "Number of top repositories kept in the snapshot")
	rootCmd.PersistentFlags().Int("max-analyzed-repos", contract.DefaultMaxAnalyzedRepos, "Most recently pushed repositories read by the analysis modules")
	rootCmd.PersistentFlags().Bool("sync-detect-updates", false, "Also refresh categories when a repository was updated since the last scan")
	rootCmd.PersistentFlags().String("output", string(schema.TextOut), "Output format: text or csv or json")
	rootCmd.PersistentFlags().String("output-file", "", "Optional path to write output to")
	rootCmd.PersistentFlags().Int("precision", contract.DefaultPrecision, "Decimal precision for numeric columns")
	rootCmd.PersistentFlags().Int("width", 0, "Terminal width override (0 = auto-detect)")
	rootCmd.PersistentFlags().String("color", "yes", "Enable colored labels in output (yes/no/true/false/1/0)")
	rootCmd.PersistentFlags().String("snapshot-backend", string(schema.SQLiteBackend), "Snapshot backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("snapshot-db-connect", "", "Database connection string for mysql/postgresql (e.g., user:pass@tcp(host:port)/dbname)")
	rootCmd.PersistentFlags().String("event-backend", string(schema.SQLiteBackend), "Scan event backend: sqlite or mysql or postgresql or none")
	rootCmd.PersistentFlags().String("event-db-connect", "", "Database connection string for the scan event log")
	rootCmd.PersistentFlags().String("server-url", "", "Base URL of a devscore server")
	rootCmd.PersistentFlags().String("config", "", "Path to config file")
	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding root flags", err)
	}

	// Bind all flags of scanCmd to Viper
	scanCmd.Flags().Bool("fast", false, "Persist counters and a fallback score now; run the analyses later with 'analyze'")
	scanCmd.Flags().Bool("fresh", false, "Discard stored analyses before scanning")
	if err := viper.BindPFlags(scanCmd.Flags()); err != nil {
		contract.LogFatal("Error binding scan flags", err)
	}

	// Bind all flags of scoreCmd to Viper
	scoreCmd.Flags().Bool("remote", false, "Read the score from --server-url instead of the local stores")
	if err := viper.BindPFlags(scoreCmd.Flags()); err != nil {
		contract.LogFatal("Error binding score flags", err)
	}

	// Bind all flags of serveCmd to Viper
	serveCmd.Flags().String("listen", contract.DefaultListen, "Address the HTTP API listens on")
	if err := viper.BindPFlags(serveCmd.Flags()); err != nil {
		contract.LogFatal("Error binding serve flags", err)
	}

	// Bind all flags of the events commands to Viper
	eventsCmd.PersistentFlags().Int("limit", contract.DefaultEventLimit, "Number of events to list (0 = all)")
	eventsCmd.PersistentFlags().String("export-s3-bucket", "", "Upload exported files to this S3 bucket")
	eventsCmd.PersistentFlags().String("export-s3-prefix", "", "Key prefix of uploaded files")
	eventsCmd.PersistentFlags().String("export-s3-endpoint", "", "S3-compatible endpoint, e.g. http://localhost:9000 for MinIO")
	eventsCmd.PersistentFlags().String("export-s3-region", contract.DefaultS3Region, "S3 region")
	if err := viper.BindPFlags(eventsCmd.PersistentFlags()); err != nil {
		contract.LogFatal("Error binding events flags", err)
	}

	// Bind all flags of snapshotMigrateCmd to Viper
	snapshotMigrateCmd.Flags().Int("target-version", -1, "Target migration version (-1 means latest, 0 means rollback to initial state)")
	if err := viper.BindPFlags(snapshotMigrateCmd.Flags()); err != nil {
		contract.LogFatal("Error binding snapshot migrate flags", err)
	}
}
