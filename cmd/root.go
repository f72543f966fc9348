package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
	"github.com/huangsam/devscore/schema"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// All linker flags will be set by goreleaser infra at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// rootCtx is the root context for all operations.
var rootCtx = context.Background()

// cfg will hold the validated, final configuration.
var cfg = &contract.Config{}

// input holds the raw, unvalidated configuration from all sources (file, env, flags).
// Viper will unmarshal into this struct.
var input = &contract.ConfigRawInput{}

// cacheManager is the global persistence manager instance.
var cacheManager contract.CacheManager = iocache.Manager

// rootCmd is the command-line entrypoint for all other commands.
var rootCmd = &cobra.Command{
	Use:                "devscore",
	Short:              "Score a GitHub developer's public footprint.",
	Long:               `Devscore scans a GitHub account, analyzes its repositories and activity, and grades it on a 0-100 scale.`,
	Version:            version,
	SilenceErrors:      true,
	SilenceUsage:       true,
	DisableSuggestions: true,
	Run: func(cmd *cobra.Command, _ []string) {
		_ = cmd.Help()
	},
}

// initConfig reads in config file and ENV variables if set.
func initConfig() {
	// Check if a specific config file is provided
	if configFile := viper.GetString("config"); configFile != "" {
		viper.SetConfigFile(configFile)
	} else {
		viper.SetConfigName(".devscore") // Name of config file (without extension)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}

	// Set environment variable prefix
	viper.SetEnvPrefix("DEVSCORE")
	viper.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	viper.AutomaticEnv() // Read in environment variables that match

	// Set defaults in Viper
	viper.SetDefault("api-url", contract.DefaultAPIURL)
	viper.SetDefault("cache-ttl", contract.DefaultCacheTTL.String())
	viper.SetDefault("scan-timeout", contract.DefaultScanTimeout.String())
	viper.SetDefault("module-timeout", contract.DefaultModuleTimeout.String())
	viper.SetDefault("min-rate-remaining", contract.DefaultMinRateRemaining)
	viper.SetDefault("workers", contract.DefaultWorkers)
	viper.SetDefault("top-repos", contract.DefaultTopRepos)
	viper.SetDefault("max-analyzed-repos", contract.DefaultMaxAnalyzedRepos)
	viper.SetDefault("precision", contract.DefaultPrecision)
	viper.SetDefault("output", schema.TextOut)
	viper.SetDefault("snapshot-backend", schema.SQLiteBackend)
	viper.SetDefault("snapshot-db-connect", "")
	viper.SetDefault("event-backend", schema.SQLiteBackend)
	viper.SetDefault("event-db-connect", "")
	viper.SetDefault("color", "yes")
	viper.SetDefault("listen", contract.DefaultListen)
	viper.SetDefault("limit", contract.DefaultEventLimit)
	viper.SetDefault("target-version", -1)
	viper.SetDefault("export-s3-region", contract.DefaultS3Region)
}

// loadConfig merges file, env and flags into cfg. args holds the optional username.
func loadConfig(args []string) error {
	// 1. Read config file. This merges defaults, file, env, and flags.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			// Config file was found but another error was produced
			return fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, which is fine; we'll use defaults/env/flags.
	}

	// 2. Unmarshal all resolved values from Viper into our raw input struct.
	if err := viper.Unmarshal(input); err != nil {
		return fmt.Errorf("unable to unmarshal config: %w", err)
	}

	// 3. Handle positional arguments (which Viper doesn't do).
	input.UsernameStr = ""
	if len(args) == 1 {
		input.UsernameStr = args[0]
	}

	// 4. Run all validation and complex parsing.
	if err := contract.ProcessAndValidate(cfg, input); err != nil {
		return err
	}
	if !cfg.UseColors {
		color.NoColor = true
	}
	return nil
}

// sharedSetup loads the configuration and opens every cache tier.
func sharedSetup(_ context.Context, _ *cobra.Command, args []string) error {
	if err := loadConfig(args); err != nil {
		return err
	}

	// Initialize persistence layer with validated config
	if err := iocache.InitCaching(cfg.CacheTTL, cfg.SnapshotBackend, cfg.SnapshotDBConnect, cfg.EventBackend, cfg.EventDBConnect); err != nil {
		return fmt.Errorf("failed to initialize persistence: %w", err)
	}
	return nil
}

// sharedSetupWrapper wraps sharedSetup to provide context for Cobra's PreRunE.
func sharedSetupWrapper(cmd *cobra.Command, args []string) error {
	return sharedSetup(rootCtx, cmd, args)
}

// configSetupWrapper loads the configuration without opening any store.
// Migrations use it so they can run against a fresh database.
func configSetupWrapper(_ *cobra.Command, args []string) error {
	return loadConfig(args)
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// SetCacheManager sets the global cache manager.
func SetCacheManager(mgr contract.CacheManager) {
	cacheManager = mgr
}
