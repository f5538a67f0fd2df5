package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/diegoturueno/provokers-tool/internal/session"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// CaseRef selects a case; empty falls back to the session's current case.
type CaseRef struct {
	CaseID string `json:"case_id,omitempty" jsonschema:"Case id or identifier; defaults to the current case"`
}

// scope resolves case references against the store and session.
type scope struct {
	store   *storage.Store
	session *session.Session
}

// caseID resolves ref to a stored case id. The returned result is non-nil
// when the tool should stop and return it.
func (s scope) caseID(ctx context.Context, ref string) (string, *mcp.CallToolResult) {
	if ref == "" {
		id, _, ok := s.session.GetCurrent()
		if !ok {
			return "", toolError("No active case. Use create_case or switch_case to select one, or pass case_id.")
		}
		return id, nil
	}
	c, err := s.store.FindCase(ctx, ref)
	if errors.Is(err, storage.ErrNotFound) {
		return "", toolError("Case %q not found", ref)
	}
	if err != nil {
		return "", toolError("Failed to look up case: %v", err)
	}
	return c.ID, nil
}

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

func toolError(format string, args ...any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: fmt.Sprintf(format, args...)}},
		IsError: true,
	}
}

func toolJSON(v any) (*mcp.CallToolResult, any, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return toolError("Failed to marshal result: %v", err), nil, nil
	}
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: string(data)}},
	}, nil, nil
}
