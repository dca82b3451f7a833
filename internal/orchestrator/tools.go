package orchestrator

import (
	"context"

	"github.com/standardbeagle/codeintel/internal/ierrors"
	"github.com/standardbeagle/codeintel/internal/types"
)

// SideEffect classifies a Tool's blast radius (§4.9 "capability gate"):
// read never mutates; small-edit names tools that make small writes;
// large-edit and execute are unbounded; network leaves the process. The
// class is declared per tool: Gate does not check the size of any write.
type SideEffect string

const (
	SideEffectRead      SideEffect = "read"
	SideEffectSmallEdit SideEffect = "small_edit"
	SideEffectLargeEdit SideEffect = "large_edit"
	SideEffectExecute   SideEffect = "execute"
	SideEffectNetwork   SideEffect = "network"
)

// Tool is one invocable capability (modeled after cagent's pkg/tools.Tool /
// FunctionDefinition pairing a name with a JSON-Schema-described call
// signature), plus the SideEffect class the capability gate keys on.
type Tool struct {
	Name        string
	Description string
	SideEffect  SideEffect
	Parameters  map[string]any
	Invoke      func(ctx context.Context, args map[string]any) (string, error)
}

// ToolRegistry is a named lookup of Tools, analogous to cagent's ToolSet
// but flattened to a single process-wide registry since this engine's
// tools (read_file, search_*, write_file, run_command, ...) are fixed
// rather than dynamically discovered from an MCP server per agent.
type ToolRegistry struct {
	byName map[string]*Tool
}

func NewToolRegistry() *ToolRegistry {
	return &ToolRegistry{byName: make(map[string]*Tool)}
}

func (r *ToolRegistry) Register(t *Tool) {
	r.byName[t.Name] = t
}

func (r *ToolRegistry) Get(name string) (*Tool, bool) {
	t, ok := r.byName[name]
	return t, ok
}

// modeAllowedEffects is the default side-effect allowance per OperatingMode
// (§4.9): Plan allows read tools; Review adds small-edit tools (no per-edit
// size is enforced); Build allows every class, minus buildModeDenylist.
var modeAllowedEffects = map[types.OperatingMode]map[SideEffect]bool{
	types.ModePlan: {
		SideEffectRead: true,
	},
	types.ModeReview: {
		SideEffectRead:      true,
		SideEffectSmallEdit: true,
	},
	types.ModeBuild: {
		SideEffectRead:      true,
		SideEffectSmallEdit: true,
		SideEffectLargeEdit: true,
		SideEffectExecute:   true,
		SideEffectNetwork:   true,
	},
}

// buildModeDenylist is the "fixed denylist of destructive operations" Build
// mode still excludes even though its side-effect class is otherwise
// permitted — tools named here are never runnable regardless of mode.
var buildModeDenylist = map[string]bool{
	"delete_repository": true,
	"force_push":        true,
	"drop_database":     true,
}

// Gate decides whether an agent running under mode may invoke toolName,
// intersecting the agent's allowlist/denylist with the mode's permitted
// side-effect classes (§4.9, §3 "An agent never acquires a tool not in its
// allowlist, and never acquires a tool in its denylist, even if the
// surrounding mode would permit it").
func Gate(registry *ToolRegistry, desc *AgentDescriptor, mode types.OperatingMode, toolName string) error {
	if containsString(desc.ToolDenylist, toolName) {
		return ierrors.CapabilityDenied(toolName, mode)
	}
	if len(desc.ToolAllowlist) > 0 && !containsString(desc.ToolAllowlist, toolName) {
		return ierrors.CapabilityDenied(toolName, mode)
	}
	if buildModeDenylist[toolName] {
		return ierrors.CapabilityDenied(toolName, mode)
	}

	tool, ok := registry.Get(toolName)
	if !ok {
		return ierrors.NotFound("orchestrator.Gate(" + toolName + ")")
	}
	if !modeAllowedEffects[mode][tool.SideEffect] {
		return ierrors.CapabilityDenied(toolName, mode)
	}
	return nil
}

func containsString(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
