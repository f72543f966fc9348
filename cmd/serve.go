package cmd

import (
	"os/signal"
	"syscall"

	"github.com/huangsam/devscore/core"
	"github.com/spf13/cobra"
)

// serveCmd runs the HTTP API.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve scans and scores over HTTP.",
	Long: `Start the devscore HTTP API. Each request carries its own GitHub token as a
bearer credential; the server shares one memory tier and one set of stores.

Endpoints:
  POST   /api/v1/users/{username}/scan?fast=&fresh=
  POST   /api/v1/users/{username}/analysis
  GET    /api/v1/users/{username}/score
  DELETE /api/v1/users/{username}/cache
  GET    /healthz

Examples:
  devscore serve --listen :8080`,
	Args:    cobra.NoArgs,
	PreRunE: sharedSetupWrapper,
	RunE: func(_ *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(rootCtx, syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return core.ExecuteServe(ctx, cfg, cacheManager)
	},
}
