package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
)

// toolHandler holds common dependencies for MCP tool handlers.
type toolHandler struct {
	baseCfg *contract.Config
	scanner *core.Scanner
}

func (h *toolHandler) handleScanUser(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := schema.NormalizeUser(request.GetString("username", ""))
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	resp, err := h.scanner.Scan(ctx, schema.ScanRequest{
		Username: username,
		Token:    h.baseCfg.Token,
		Fast:     request.GetBool("fast", false),
		Fresh:    request.GetBool("fresh", false),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("scan failed: %v", err)), nil
	}
	return jsonResult(resp)
}

func (h *toolHandler) handleGetScore(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	username := schema.NormalizeUser(request.GetString("username", ""))
	if username == "" {
		return mcp.NewToolResultError("username is required"), nil
	}

	resp, err := h.scanner.Score(ctx, username)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("no score for %s: %v", username, err)), nil
	}
	return jsonResult(resp)
}

func (h *toolHandler) handleGetWeights(_ context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	return jsonResult(core.Weights())
}

func jsonResult(v any) (*mcp.CallToolResult, error) {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(jsonData)), nil
}
