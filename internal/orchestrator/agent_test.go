package orchestrator

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/standardbeagle/codeintel/internal/types"
)

func writeAgentKDL(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "reviewer.agent.kdl")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAgentDescriptorParsesCoreFields(t *testing.T) {
	path := writeAgentKDL(t, `
agent "reviewer" {
    description "Reviews a diff for correctness issues"
    intensity "hard"
    mode "review"
    allow "read_file" "search_symbols"
    deny "write_file"
    prompt "Review {diff} for issues"
}
`)
	desc, err := LoadAgentDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, "reviewer", desc.Name)
	assert.Equal(t, "Reviews a diff for correctness issues", desc.Description)
	assert.Equal(t, IntensityHard, desc.Intensity)
	assert.Equal(t, types.OperatingMode("review"), desc.ModeOverride)
	assert.Equal(t, []string{"read_file", "search_symbols"}, desc.ToolAllowlist)
	assert.Equal(t, []string{"write_file"}, desc.ToolDenylist)
	assert.Equal(t, "Review {diff} for issues", desc.PromptTemplate)
}

func TestLoadAgentDescriptorParsesContextAndResourceBlocks(t *testing.T) {
	path := writeAgentKDL(t, `
agent "reviewer" {
    prompt "Review {diff}"
    context {
        inherit "ast" "embeddings"
        max_context_size 8192
        exclude_patterns "**/*.lock" "vendor/**"
    }
    resources {
        max_memory 512
        max_cpu_percent 75
        timeout_seconds 30
    }
}
`)
	desc, err := LoadAgentDescriptor(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"ast", "embeddings"}, desc.ContextInherit)
	assert.Equal(t, 8192, desc.ContextMaxContextSize)
	assert.Equal(t, []string{"**/*.lock", "vendor/**"}, desc.ContextExcludePatterns)
	assert.Equal(t, 512, desc.ResourceMaxMemoryMB)
	assert.Equal(t, 75, desc.ResourceMaxCPUPercent)
	assert.Equal(t, 30, desc.ResourceTimeoutSec)
}

func TestLoadAgentDescriptorMissingAgentNodeFails(t *testing.T) {
	path := writeAgentKDL(t, `description "no agent node"`)
	_, err := LoadAgentDescriptor(path)
	assert.Error(t, err)
}
