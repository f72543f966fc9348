// Package mcp provides the Model Context Protocol (MCP) server implementation.
package mcp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// NewMCPServer initializes and configures the devscore MCP server without starting it.
// This is exposed for unit testing.
func NewMCPServer(baseCfg *contract.Config, scanner *core.Scanner) *server.MCPServer {
	s := server.NewMCPServer(
		"Devscore Server",
		"1.0.0",
		server.WithLogging(),
	)

	h := &toolHandler{
		baseCfg: baseCfg,
		scanner: scanner,
	}

	// --- 1. Tool: scan_user ---
	s.AddTool(mcp.NewTool("scan_user",
		mcp.WithDescription("Scan a GitHub user's public footprint and compute their developer score."),
		mcp.WithString("username", mcp.Description("GitHub login to scan."), mcp.Required()),
		mcp.WithBoolean("fast", mcp.Description("Persist counters and a fallback score only; run the analyses later.")),
		mcp.WithBoolean("fresh", mcp.Description("Discard stored analyses before scanning.")),
	), h.handleScanUser)

	// --- 2. Tool: get_score ---
	s.AddTool(mcp.NewTool("get_score",
		mcp.WithDescription("Return the stored score of a previously scanned user without calling GitHub."),
		mcp.WithString("username", mcp.Description("GitHub login."), mcp.Required()),
	), h.handleGetScore)

	// --- 3. Tool: get_weights ---
	s.AddTool(mcp.NewTool("get_weights",
		mcp.WithDescription("Describe the score components, their weights and the grade bands."),
	), h.handleGetWeights)

	return s
}

// StartMCPServer starts the devscore MCP server on stdio, or on httpAddr when it is set.
// The HTTP transport stops when ctx is done.
func StartMCPServer(ctx context.Context, baseCfg *contract.Config, mgr contract.CacheManager, httpAddr string) error {
	s := NewMCPServer(baseCfg, core.NewGitHubScanner(baseCfg, mgr))
	if httpAddr == "" {
		return server.ServeStdio(s)
	}

	httpServer := server.NewStreamableHTTPServer(s)
	errCh := make(chan error, 1)
	go func() {
		errCh <- httpServer.Start(httpAddr)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("mcp http server: %w", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	}
}
