package mcp_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/huangsam/devscore/core"
	"github.com/huangsam/devscore/internal/contract"
	"github.com/huangsam/devscore/internal/iocache"
	mcp_internal "github.com/huangsam/devscore/internal/mcp"
	"github.com/huangsam/devscore/schema"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *server.MCPServer {
	t.Helper()
	mgr, err := iocache.OpenStores(time.Hour, schema.SQLiteBackend, ":memory:", schema.SQLiteBackend, ":memory:")
	require.NoError(t, err)
	t.Cleanup(mgr.Close)

	source := &contract.MockDataSource{}
	source.On("GetRateLimit", mock.Anything).Return(schema.RateLimit{Limit: 5000, Remaining: 4999}, nil)
	source.On("GetUser", mock.Anything, "ghost").Return(schema.UserProfile{Login: "ghost"}, nil)
	source.On("ListRepositories", mock.Anything, "ghost").Return([]schema.Repository{}, nil)
	source.On("GetContributionCalendar", mock.Anything, "ghost").Return(schema.ContributionCalendar{Days: []schema.ContributionDay{}}, nil)
	source.On("GetPullRequestMetrics", mock.Anything, "ghost").Return(schema.PullRequestMetrics{}, nil)
	source.On("ListOrganizations", mock.Anything, "ghost").Return([]string{}, nil)

	cfg := &contract.Config{Token: "ghp_test", Workers: 2, ModuleTimeout: time.Second, MinRateRemaining: 100}
	factory := func(string) (contract.DataSource, error) { return source, nil }
	return mcp_internal.NewMCPServer(cfg, core.NewScanner(cfg, factory, mgr))
}

func callTool(t *testing.T, s *server.MCPServer, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	tool := s.GetTool(name)
	require.NotNil(t, tool, "Tool %s should exist", name)

	res, err := tool.Handler(context.Background(), mcp.CallToolRequest{
		Params: mcp.CallToolParams{Name: name, Arguments: args},
	})
	require.NoError(t, err, "The MCP handler should not return a raw error for tool logic failures")
	require.NotEmpty(t, res.Content)
	return res
}

func resultText(res *mcp.CallToolResult) string {
	return res.Content[0].(mcp.TextContent).Text
}

func TestMCPServerHandlers_ValidationErrors(t *testing.T) {
	s := newTestServer(t)

	for _, name := range []string{"scan_user", "get_score"} {
		t.Run(name+" missing username", func(t *testing.T) {
			res := callTool(t, s, name, map[string]any{"username": "  "})
			assert.True(t, res.IsError, "The response should indicate an error state")
			assert.Contains(t, resultText(res), "username is required")
		})
	}

	t.Run("get_score before any scan", func(t *testing.T) {
		res := callTool(t, s, "get_score", map[string]any{"username": "ghost"})
		assert.True(t, res.IsError)
		assert.Contains(t, resultText(res), "no snapshot found")
	})
}

func TestMCPServerHandlers_ScanThenScore(t *testing.T) {
	s := newTestServer(t)

	res := callTool(t, s, "scan_user", map[string]any{"username": "Ghost", "fast": true})
	require.False(t, res.IsError, resultText(res))

	var scanned schema.ScanResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &scanned))
	assert.True(t, scanned.Success)
	assert.Equal(t, schema.PartialStatus, scanned.Status)
	assert.Equal(t, schema.GradeF, scanned.Score.Grade)

	res = callTool(t, s, "get_score", map[string]any{"username": "ghost"})
	require.False(t, res.IsError, resultText(res))

	var scored schema.ScanResponse
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &scored))
	assert.Equal(t, scanned.Score.Composite, scored.Score.Composite)
}

func TestMCPServerHandlers_Weights(t *testing.T) {
	res := callTool(t, newTestServer(t), "get_weights", nil)
	require.False(t, res.IsError)

	var model schema.WeightsRenderModel
	require.NoError(t, json.Unmarshal([]byte(resultText(res)), &model))
	assert.Len(t, model.Components, len(schema.AllComponents))
	assert.NotEmpty(t, model.Grades)
	assert.NotEmpty(t, model.Formula)
}
