package cmd

import (
	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/spf13/cobra"
)

// scanCmd scans a user and prints the graded result.
var scanCmd = &cobra.Command{
	Use:   "scan <username>",
	Short: "Scan a GitHub user and compute their developer score.",
	Long: `Fetch a user's public profile, repositories and activity, refresh the slow
categories that changed, run the analysis modules concurrently and grade the result.

Languages, frameworks and organizations are only re-fetched when the repository
count changed since the last scan (or, with --sync-detect-updates, when a
repository was updated). The snapshot is stored so later reads cost no API calls.

Examples:
  # Full scan (token from DEVSCORE_TOKEN)
  devscore scan octocat

  # Persist counters now and run the analyses later
  devscore scan octocat --fast
  devscore analyze octocat

  # Ignore stored analyses
  devscore scan octocat --fresh --output json`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteScan(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot scan user", err)
		}
	},
}

// analyzeCmd completes a fast scan.
var analyzeCmd = &cobra.Command{
	Use:   "analyze <username>",
	Short: "Run the analysis modules against a stored snapshot.",
	Long: `Complete a scan started with --fast. Only the repository listing is fetched
again; profile, counters and sync categories come from the stored snapshot.

Examples:
  devscore analyze octocat`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteAnalyze(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot analyze user", err)
		}
	},
}

// scoreCmd reads a stored score.
var scoreCmd = &cobra.Command{
	Use:   "score <username>",
	Short: "Print the stored score of a user without calling GitHub.",
	Long: `Read the score of a previously scanned user from the local stores, or from a
devscore server with --remote.

Examples:
  devscore score octocat
  devscore score octocat --remote --server-url http://localhost:8080`,
	Args:    cobra.ExactArgs(1),
	PreRunE: sharedSetupWrapper,
	Run: func(_ *cobra.Command, _ []string) {
		execute := core.ExecuteScore
		if cfg.Remote {
			execute = core.ExecuteRemoteScore
		}
		if err := execute(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot read score", err)
		}
	},
}

// weightsCmd prints the scoring model.
var weightsCmd = &cobra.Command{
	Use:   "weights",
	Short: "Show the score components, their weights and the grade bands.",
	Args:  cobra.NoArgs,
	PreRunE: func(_ *cobra.Command, args []string) error {
		return loadConfig(args)
	},
	Run: func(_ *cobra.Command, _ []string) {
		if err := core.ExecuteWeights(rootCtx, cfg, cacheManager); err != nil {
			contract.LogFatal("Cannot print weights", err)
		}
	},
}
