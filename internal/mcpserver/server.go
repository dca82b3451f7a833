// Package mcpserver exposes the Retrieval Engine and Orchestrator over the
// Model Context Protocol. Grounded on internal/mcp/server.go
// (mcp.NewServer + AddTool + stdio transport) and response.go
// (createJSONResponse/createErrorResponse), narrowed from dozens of
// consolidated tools down to two: search and run_agent.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/standardbeagle/codeintel/internal/engine"
	"github.com/standardbeagle/codeintel/internal/orchestrator"
	"github.com/standardbeagle/codeintel/internal/retrieval"
	"github.com/standardbeagle/codeintel/internal/telemetry"
	"github.com/standardbeagle/codeintel/internal/types"
)

// Server wraps the engine's Indexer and Orchestrator behind an MCP
// mcp.Server, following the pattern of one Server struct per process
// owning both the index and the protocol plumbing.
type Server struct {
	index        *engine.Indexer
	orchestrator *orchestrator.Orchestrator
	registry     *orchestrator.Registry
	mode         types.OperatingMode

	server *mcp.Server
}

// New constructs a Server. orch and registry may be nil when the process
// only needs retrieval tools (e.g. a read-only search server); run_agent
// is omitted from registration in that case.
func New(index *engine.Indexer, orch *orchestrator.Orchestrator, registry *orchestrator.Registry, mode types.OperatingMode) *Server {
	s := &Server{
		index:        index,
		orchestrator: orch,
		registry:     registry,
		mode:         mode,
	}
	s.server = mcp.NewServer(&mcp.Implementation{
		Name:    "codeintel-mcp-server",
		Version: "0.1.0",
	}, nil)
	s.registerTools()
	return s
}

// Start runs the server over stdio until ctx is cancelled, mirroring
// Server.Start: MCP is a stdio JSON-RPC transport, so no other code may
// write to stdout.
func (s *Server) Start(ctx context.Context) error {
	telemetry.SetMCPMode(true)
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) registerTools() {
	s.server.AddTool(&mcp.Tool{
		Name:        "search",
		Description: "Search the indexed codebase by symbol, full text, AST pattern, or semantic similarity.",
		InputSchema: &jsonschema.Schema{
			Type: "object",
			Properties: map[string]*jsonschema.Schema{
				"kind":        {Type: "string", Description: "symbol_exact, symbol_fuzzy, definition, references, full_text, semantic, or general"},
				"text":        {Type: "string", Description: "query text or symbol name"},
				"language":    {Type: "string", Description: "restrict results to this language"},
				"path_prefix": {Type: "string", Description: "restrict results to paths with this prefix"},
				"limit":       {Type: "integer", Description: "maximum results (default 20)"},
				"offset":      {Type: "integer", Description: "pagination offset"},
			},
			Required: []string{"text"},
		},
	}, s.handleSearch)

	if s.orchestrator != nil && s.registry != nil {
		s.server.AddTool(&mcp.Tool{
			Name:        "run_agent",
			Description: "Run a single registered agent against the orchestrator.",
			InputSchema: &jsonschema.Schema{
				Type: "object",
				Properties: map[string]*jsonschema.Schema{
					"agent": {Type: "string", Description: "registered agent name"},
				},
				Required: []string{"agent"},
			},
		}, s.handleRunAgent)
	}
}

type searchParams struct {
	Kind       string `json:"kind,omitempty"`
	Text       string `json:"text"`
	Language   string `json:"language,omitempty"`
	PathPrefix string `json:"path_prefix,omitempty"`
	Limit      int    `json:"limit,omitempty"`
	Offset     int    `json:"offset,omitempty"`
}

var kindByName = map[string]retrieval.Kind{
	"symbol_exact": retrieval.KindSymbolExact,
	"symbol_fuzzy": retrieval.KindSymbolFuzzy,
	"definition":   retrieval.KindDefinition,
	"references":   retrieval.KindReferences,
	"full_text":    retrieval.KindFullText,
	"semantic":     retrieval.KindSemantic,
	"general":      retrieval.KindGeneral,
}

func (s *Server) handleSearch(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params searchParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("search", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Text == "" {
		return createErrorResponse("search", fmt.Errorf("text is required"))
	}

	kind, ok := kindByName[params.Kind]
	if !ok {
		kind = retrieval.KindGeneral
	}

	query := retrieval.Query{
		Kind: kind,
		Text: params.Text,
		Filters: retrieval.Filters{
			Language:   types.Language(params.Language),
			PathPrefix: params.PathPrefix,
		},
		Limit:  params.Limit,
		Offset: params.Offset,
	}

	results := s.index.Retrieval().Search(query)
	return createJSONResponse(map[string]any{
		"results": toSearchResults(results),
		"count":   len(results),
	})
}

type searchResult struct {
	File      uint32  `json:"file"`
	Start     int     `json:"start"`
	End       int     `json:"end"`
	Relevance float64 `json:"relevance"`
	Excerpt   string  `json:"excerpt"`
	Scope     string  `json:"containing_scope,omitempty"`
	Layer     string  `json:"layer"`
	Symbol    string  `json:"symbol,omitempty"`
}

func toSearchResults(results []retrieval.Result) []searchResult {
	out := make([]searchResult, len(results))
	for i, r := range results {
		sr := searchResult{
			File:      uint32(r.File),
			Start:     r.Span.Start,
			End:       r.Span.End,
			Relevance: r.Relevance,
			Excerpt:   r.Excerpt,
			Scope:     r.ContainingScope,
			Layer:     string(r.Layer),
		}
		if r.Symbol != nil {
			sr.Symbol = r.Symbol.Name
		}
		out[i] = sr
	}
	return out
}

type runAgentParams struct {
	Agent string `json:"agent"`
}

func (s *Server) handleRunAgent(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	var params runAgentParams
	if err := json.Unmarshal(req.Params.Arguments, &params); err != nil {
		return createErrorResponse("run_agent", fmt.Errorf("invalid parameters: %w", err))
	}
	if params.Agent == "" {
		return createErrorResponse("run_agent", fmt.Errorf("agent is required"))
	}

	plan := orchestrator.SingleOf(orchestrator.Step{AgentName: params.Agent})
	_, records, planStatus, err := s.orchestrator.Execute(ctx, plan, s.mode)
	if err != nil {
		return createErrorResponse("run_agent", err)
	}
	return createJSONResponse(map[string]any{"records": records, "status": planStatus})
}
