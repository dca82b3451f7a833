package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/standardbeagle/codeintel/internal/engine"
	"github.com/standardbeagle/codeintel/internal/orchestrator"
	"github.com/standardbeagle/codeintel/internal/retrieval"
)

// loadAgentRegistry loads every `*.agent.kdl` file under dir into a
// Registry. A missing directory yields an empty registry rather than an
// error, since agents are optional configuration.
func loadAgentRegistry(dir string) (*orchestrator.Registry, error) {
	registry := orchestrator.NewRegistry()
	matches, err := filepath.Glob(filepath.Join(dir, "*.agent.kdl"))
	if err != nil {
		return nil, fmt.Errorf("glob %s: %w", dir, err)
	}
	for _, path := range matches {
		desc, err := orchestrator.LoadAgentDescriptor(path)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		registry.Add(desc)
	}
	return registry, nil
}

// builtinTools registers the fixed tool set the capability gate classifies
// by side-effect: read-only search/inspection tools backed by the Indexer,
// plus a local file write (write_file, classed small-edit; the size of the
// content it writes is not checked). Grounded on cagent's pkg/tools (a flat
// named registry of invocable functions) rather than a tree-sitter-specific
// tool set, since this engine's tools are search and file operations, not
// lci's legacy grep/tree commands.
func builtinTools(ix *engine.Indexer) *orchestrator.ToolRegistry {
	tools := orchestrator.NewToolRegistry()

	tools.Register(&orchestrator.Tool{
		Name:        "read_file",
		Description: "Read the full contents of a file; a relative path resolves against the process working directory",
		SideEffect:  orchestrator.SideEffectRead,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, err := os.ReadFile(path)
			if err != nil {
				return "", err
			}
			return string(content), nil
		},
	})

	tools.Register(&orchestrator.Tool{
		Name:        "search_symbols",
		Description: "Search the Symbol Layer for an exact or fuzzy name match",
		SideEffect:  orchestrator.SideEffectRead,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSymbolFuzzy, Text: text})
			return formatResults(results), nil
		},
	})

	tools.Register(&orchestrator.Tool{
		Name:        "search_fulltext",
		Description: "Search the Full-Text Layer",
		SideEffect:  orchestrator.SideEffectRead,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindFullText, Text: text})
			return formatResults(results), nil
		},
	})

	tools.Register(&orchestrator.Tool{
		Name:        "search_semantic",
		Description: "Search the Vector Store for semantically similar code",
		SideEffect:  orchestrator.SideEffectRead,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			text, _ := args["text"].(string)
			results := ix.Retrieval().Search(retrieval.Query{Kind: retrieval.KindSemantic, Text: text})
			return formatResults(results), nil
		},
	})

	tools.Register(&orchestrator.Tool{
		Name:        "write_file",
		Description: "Overwrite a file with new contents; a relative path resolves against the process working directory",
		SideEffect:  orchestrator.SideEffectSmallEdit,
		Invoke: func(ctx context.Context, args map[string]any) (string, error) {
			path, _ := args["path"].(string)
			content, _ := args["content"].(string)
			if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
				return "", err
			}
			return "wrote " + path, nil
		},
	})

	return tools
}

func formatResults(results []retrieval.Result) string {
	out := ""
	for _, r := range results {
		name := ""
		if r.Symbol != nil {
			name = r.Symbol.Name
		}
		out += fmt.Sprintf("%s [%s] %.2f %s\n", name, r.Layer, r.Relevance, r.Excerpt)
	}
	return out
}

// stubRunner is a placeholder AgentRunner: without an LLM provider in scope
// (an explicit non-goal), it has nothing to decide with, so its only
// "turn" is to render the agent's prompt template against the step's
// parameters and the plan's SharedContext, run the search_symbols tool
// against the agent's own name when the capability gate allows it, and
// report both back. A real deployment
// substitutes a runner that feeds the rendered prompt to an LLM and drives
// the full checkTool-gated tool set, calling tools.Get(name).Invoke for
// whatever the model chooses.
func stubRunner(tools *orchestrator.ToolRegistry) orchestrator.AgentRunner {
	return func(ctx context.Context, desc *orchestrator.AgentDescriptor, shared *orchestrator.SharedContext, step orchestrator.Step, checkTool func(string) error) (string, error) {
		output := fmt.Sprintf("agent %q (%s intensity): %s", desc.Name, desc.Intensity, desc.Description)
		if desc.PromptTemplate != "" {
			output += "\n" + orchestrator.RenderPrompt(desc, shared, step)
		}

		if err := checkTool("search_symbols"); err == nil {
			if tool, ok := tools.Get("search_symbols"); ok {
				if result, err := tool.Invoke(ctx, map[string]any{"text": desc.Name}); err == nil && result != "" {
					output += "\n" + result
				}
			}
		}
		return output, nil
	}
}
