// Package orchestrator implements the Orchestrator (component J): loads
// AgentDescriptors from KDL files, executes Plans against a registry of
// tools under a capability gate keyed by OperatingMode, and records
// per-step ExecutionRecords. Grounded on docker/cagent's pkg/agent (the
// AgentDescriptor shape: name, description, instruction, tool sets,
// sub-agents) and pkg/tools (typed Tool/FunctionDefinition), adapted from
// cagent's general tool-approval flow to a three-mode capability gate, and
// loaded from KDL the way internal/config/kdl.go parses `.codeintel.kdl`
// (this module's own dialect, github.com/sblinch/kdl-go).
package orchestrator

import (
	"fmt"
	"os"
	"strings"

	kdl "github.com/sblinch/kdl-go"
	"github.com/sblinch/kdl-go/document"

	"github.com/standardbeagle/codeintel/internal/types"
)

// Intensity selects which AST Compactor level (§4.2) an agent's context
// gets built at (§3 "AgentDescriptor").
type Intensity string

const (
	IntensityLight  Intensity = "light"
	IntensityMedium Intensity = "medium"
	IntensityHard   Intensity = "hard"
)

// AgentDescriptor is a loaded agent definition (§3). ParameterSchema is a
// raw JSON Schema document (github.com/google/jsonschema-go's Schema type
// would validate it at tool-invocation time; kept as a plain map here since the
// orchestrator itself only needs to pass it through to whatever builds the
// agent's prompt, not re-validate it at load time).
type AgentDescriptor struct {
	Name            string
	Description     string
	Intensity       Intensity
	ModeOverride    types.OperatingMode
	ToolAllowlist   []string
	ToolDenylist    []string
	ParameterSchema map[string]any
	PromptTemplate  string

	// ContextInherit lists the parent indices named in the agent's context
	// block ("ast", "embeddings", "tests", ...; §6 "context.inherit_*").
	// It is parsed and carried only: nothing in this package reads it.
	ContextInherit []string
	// ContextMaxContextSize caps, in bytes, how much inherited context (the
	// rendered prompt included) this agent is handed; 0 means unbounded
	// (§6 "context.max_context_size").
	ContextMaxContextSize int
	// ContextExcludePatterns are the globs named in the agent's context
	// block (§6 "context.exclude_patterns"). Parsed and carried only:
	// nothing in this package applies them.
	ContextExcludePatterns []string

	// ResourceMaxMemoryMB, ResourceMaxCPUPercent, and ResourceTimeoutSec come
	// from the agent's resources block (§6 "resources.*"); 0 means "use the
	// orchestrator's configured default". runStep uses ResourceTimeoutSec as
	// the step's timeout and ResourceMaxMemoryMB as the process heap level
	// above which the step waits before starting; neither limits the
	// agent's own memory or CPU while it runs, and ResourceMaxCPUPercent is
	// not read.
	ResourceMaxMemoryMB   int
	ResourceMaxCPUPercent int
	ResourceTimeoutSec    int
}

// LoadAgentDescriptor parses one `<name>.agent.kdl` file. A minimal
// document looks like:
//
//	agent "reviewer" {
//	    description "Reviews a diff for correctness issues"
//	    intensity "medium"
//	    mode "review"
//	    allow "read_file" "search_symbols" "search_fulltext"
//	    deny "write_file"
//	    prompt "Review the changes in {diff} ..."
//	}
func LoadAgentDescriptor(path string) (*AgentDescriptor, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}
	doc, err := kdl.Parse(strings.NewReader(string(content)))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	for _, n := range doc.Nodes {
		if nodeName(n) != "agent" {
			continue
		}
		name, _ := firstString(n)
		desc := &AgentDescriptor{Name: name, Intensity: IntensityMedium}
		for _, cn := range n.Children {
			switch nodeName(cn) {
			case "description":
				if s, ok := firstString(cn); ok {
					desc.Description = s
				}
			case "intensity":
				if s, ok := firstString(cn); ok {
					desc.Intensity = Intensity(s)
				}
			case "mode":
				if s, ok := firstString(cn); ok {
					desc.ModeOverride = types.OperatingMode(s)
				}
			case "allow":
				desc.ToolAllowlist = append(desc.ToolAllowlist, collectStrings(cn)...)
			case "deny":
				desc.ToolDenylist = append(desc.ToolDenylist, collectStrings(cn)...)
			case "prompt":
				if s, ok := firstString(cn); ok {
					desc.PromptTemplate = s
				}
			case "context":
				for _, ctxChild := range cn.Children {
					switch nodeName(ctxChild) {
					case "inherit":
						desc.ContextInherit = append(desc.ContextInherit, collectStrings(ctxChild)...)
					case "max_context_size":
						if v, ok := firstInt(ctxChild); ok {
							desc.ContextMaxContextSize = v
						}
					case "exclude_patterns":
						desc.ContextExcludePatterns = append(desc.ContextExcludePatterns, collectStrings(ctxChild)...)
					}
				}
			case "resources":
				for _, resChild := range cn.Children {
					switch nodeName(resChild) {
					case "max_memory":
						if v, ok := firstInt(resChild); ok {
							desc.ResourceMaxMemoryMB = v
						}
					case "max_cpu_percent":
						if v, ok := firstInt(resChild); ok {
							desc.ResourceMaxCPUPercent = v
						}
					case "timeout_seconds":
						if v, ok := firstInt(resChild); ok {
							desc.ResourceTimeoutSec = v
						}
					}
				}
			}
		}
		return desc, nil
	}
	return nil, fmt.Errorf("%s: no \"agent\" node found", path)
}

func nodeName(n *document.Node) string {
	if n == nil || n.Name == nil {
		return ""
	}
	return n.Name.NodeNameString()
}

func firstString(n *document.Node) (string, bool) {
	if len(n.Arguments) == 0 {
		return "", false
	}
	s, ok := n.Arguments[0].Value.(string)
	return s, ok
}

func firstInt(n *document.Node) (int, bool) {
	if len(n.Arguments) == 0 {
		return 0, false
	}
	switch v := n.Arguments[0].Value.(type) {
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

func collectStrings(n *document.Node) []string {
	out := make([]string, 0, len(n.Arguments))
	for _, a := range n.Arguments {
		if s, ok := a.Value.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

// Registry is a named lookup of AgentDescriptors, mirroring cagent's
// pkg/team (a named registry of agents the orchestrator dispatches Single
// plan steps against).
type Registry struct {
	byName map[string]*AgentDescriptor
}

func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]*AgentDescriptor)}
}

func (r *Registry) Add(desc *AgentDescriptor) {
	r.byName[desc.Name] = desc
}

func (r *Registry) Get(name string) (*AgentDescriptor, bool) {
	d, ok := r.byName[name]
	return d, ok
}
