package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// createJSONResponse marshals data into the single-TextContent shape every
// tool in this package returns on success. Grounded on
// internal/mcp/response.go's createJSONResponse.
func createJSONResponse(data any) (*mcp.CallToolResult, error) {
	content, err := json.Marshal(data)
	if err != nil {
		return nil, fmt.Errorf("marshal response: %w", err)
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(content)}},
	}, nil
}

// createErrorResponse wraps err as a tool-level error result rather than a
// protocol-level error, per the MCP spec: tool errors must be visible inside
// the result object so the calling model can see and self-correct, not
// swallowed at the transport layer. Grounded on
// internal/mcp/response.go's createErrorResponse.
func createErrorResponse(operation string, err error) (*mcp.CallToolResult, error) {
	result, marshalErr := createJSONResponse(map[string]any{
		"success":   false,
		"error":     err.Error(),
		"operation": operation,
	})
	if marshalErr != nil {
		return nil, marshalErr
	}
	result.IsError = true
	return result, nil
}
