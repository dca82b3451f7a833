package mcpserver

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/config"
	"github.com/standardbeagle/codeintel/internal/engine"
	"github.com/standardbeagle/codeintel/internal/orchestrator"
	"github.com/standardbeagle/codeintel/internal/types"
)

const sampleGoSource = `package sample

// Greet returns a friendly greeting for name.
func Greet(name string) string {
	return "hello " + name
}
`

func newIndexedServer(t *testing.T) *Server {
	t.Helper()
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, "sample.go"), []byte(sampleGoSource), 0o644))

	cfg := config.Default(root)
	ix, err := engine.New(cfg)
	require.NoError(t, err)
	_, err = ix.IndexRoot(root)
	require.NoError(t, err)

	registry := orchestrator.NewRegistry()
	registry.Add(&orchestrator.AgentDescriptor{Name: "noop"})
	runner := func(ctx context.Context, desc *orchestrator.AgentDescriptor, shared *orchestrator.SharedContext, step orchestrator.Step, check func(string) error) (string, error) {
		return "done", nil
	}
	orch := orchestrator.New(registry, orchestrator.NewToolRegistry(), runner, config.Default(root).Orchestrator)

	return New(ix, orch, registry, types.ModeBuild)
}

func callTool(t *testing.T, s *Server, name string, args any) *mcp.CallToolResult {
	t.Helper()
	payload, err := json.Marshal(args)
	require.NoError(t, err)

	req := &mcp.CallToolRequest{Params: &mcp.CallToolParamsRaw{Arguments: payload}}
	var (
		result *mcp.CallToolResult
		callErr error
	)
	switch name {
	case "search":
		result, callErr = s.handleSearch(context.Background(), req)
	case "run_agent":
		result, callErr = s.handleRunAgent(context.Background(), req)
	default:
		t.Fatalf("unknown tool %q", name)
	}
	require.NoError(t, callErr)
	return result
}

func textOf(t *testing.T, result *mcp.CallToolResult) string {
	t.Helper()
	require.Len(t, result.Content, 1)
	tc, ok := result.Content[0].(*mcp.TextContent)
	require.True(t, ok)
	return tc.Text
}

func TestSearchToolReturnsSymbolMatch(t *testing.T) {
	s := newIndexedServer(t)
	result := callTool(t, s, "search", searchParams{Kind: "symbol_exact", Text: "Greet"})
	assert.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &body))
	assert.Greater(t, body["count"], float64(0))
}

func TestSearchToolRejectsEmptyText(t *testing.T) {
	s := newIndexedServer(t)
	result := callTool(t, s, "search", searchParams{Text: ""})
	assert.True(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &body))
	assert.Equal(t, "search", body["operation"])
}

func TestSearchToolDefaultsUnknownKindToGeneral(t *testing.T) {
	s := newIndexedServer(t)
	result := callTool(t, s, "search", searchParams{Kind: "not_a_real_kind", Text: "Greet"})
	assert.False(t, result.IsError)
}

func TestRunAgentToolExecutesRegisteredAgent(t *testing.T) {
	s := newIndexedServer(t)
	result := callTool(t, s, "run_agent", runAgentParams{Agent: "noop"})
	assert.False(t, result.IsError)

	var body map[string]any
	require.NoError(t, json.Unmarshal([]byte(textOf(t, result)), &body))
	assert.NotEmpty(t, body["records"])
}

func TestRunAgentToolFailsForUnknownAgent(t *testing.T) {
	s := newIndexedServer(t)
	result := callTool(t, s, "run_agent", runAgentParams{Agent: "ghost"})
	assert.True(t, result.IsError)
}

func TestToolsAreRegisteredWithServer(t *testing.T) {
	s := newIndexedServer(t)
	assert.NotNil(t, s.server)
}
