package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/session"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// CaseTools holds references needed by case and input tool handlers.
type CaseTools struct {
	Store   *storage.Store
	Session *session.Session
}

func (t *CaseTools) scope() scope {
	return scope{store: t.Store, session: t.Session}
}

// --- Input types ---

type CreateCaseInput struct {
	Identifier  string `json:"identifier" jsonschema:"Short human-readable case identifier"`
	Description string `json:"description,omitempty" jsonschema:"Optional case description"`
}

type SwitchCaseInput struct {
	Case string `json:"case" jsonschema:"Id or identifier of the case to switch to"`
}

type DeleteCaseInput struct {
	CaseID string `json:"case_id" jsonschema:"Id or identifier of the case to permanently delete"`
}

type AddInputInput struct {
	CaseID    string         `json:"case_id,omitempty" jsonschema:"Case id or identifier; defaults to the current case"`
	Content   string         `json:"content" jsonschema:"Observed text: a phrase, speech excerpt, narrative or situation"`
	InputType string         `json:"input_type,omitempty" jsonschema:"One of phrase, speech, narrative, situation (default phrase)"`
	Metadata  map[string]any `json:"metadata,omitempty" jsonschema:"Optional free-form metadata stored with the input"`
}

type SearchInputsInput struct {
	CaseID string `json:"case_id,omitempty" jsonschema:"Case id or identifier; defaults to the current case"`
	Query  string `json:"query" jsonschema:"Search query (supports FTS5 syntax: AND, OR, NOT, prefix*)"`
}

// --- Handlers ---

func (t *CaseTools) ListCases(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	cases, err := t.Store.ListCases(ctx)
	if err != nil {
		return toolError("Failed to list cases: %v", err), nil, nil
	}
	return toolJSON(cases)
}

func (t *CaseTools) CreateCase(ctx context.Context, _ *mcp.CallToolRequest, input CreateCaseInput) (*mcp.CallToolResult, any, error) {
	c, err := t.Store.CreateCase(ctx, input.Identifier, input.Description)
	if err != nil {
		return toolError("Failed to create case: %v", err), nil, nil
	}

	// Auto-switch to the new case
	t.Session.Set(c)
	return toolJSON(c)
}

func (t *CaseTools) SwitchCase(ctx context.Context, _ *mcp.CallToolRequest, input SwitchCaseInput) (*mcp.CallToolResult, any, error) {
	if input.Case == "" {
		return toolError("Case id or identifier is required"), nil, nil
	}
	c, err := t.Session.SwitchCase(ctx, t.Store, input.Case)
	if err != nil {
		return toolError("Failed to switch case: %v", err), nil, nil
	}
	return toolJSON(c)
}

func (t *CaseTools) GetCurrentCase(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	id, identifier, ok := t.Session.GetCurrent()
	if !ok {
		return toolText("No case is currently active. Use switch_case to select one."), nil, nil
	}
	c, err := t.Store.GetCase(ctx, id)
	if err != nil {
		return toolText(fmt.Sprintf("Active case: %s (details unavailable)", identifier)), nil, nil
	}
	return toolJSON(c)
}

func (t *CaseTools) GetCase(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	c, err := t.Store.GetCase(ctx, id)
	if err != nil {
		return toolError("Failed to get case: %v", err), nil, nil
	}
	return toolJSON(c)
}

func (t *CaseTools) DeleteCase(ctx context.Context, _ *mcp.CallToolRequest, input DeleteCaseInput) (*mcp.CallToolResult, any, error) {
	if input.CaseID == "" {
		return toolError("Case id or identifier is required"), nil, nil
	}
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	if err := t.Store.DeleteCase(ctx, id); err != nil {
		return toolError("Failed to delete case: %v", err), nil, nil
	}

	// If deleting the current case, clear the session
	t.Session.Forget(id)
	return toolText(fmt.Sprintf("Case %q permanently deleted.", input.CaseID)), nil, nil
}

func (t *CaseTools) AddInput(ctx context.Context, _ *mcp.CallToolRequest, input AddInputInput) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	typ, err := models.ParseInputType(input.InputType)
	if err != nil {
		return toolError("Invalid input type: %v", err), nil, nil
	}
	in, err := t.Store.AddInput(ctx, id, input.Content, typ, input.Metadata)
	if errors.Is(err, storage.ErrValidation) {
		return toolError("Invalid input: %v", err), nil, nil
	}
	if err != nil {
		return toolError("Failed to add input: %v", err), nil, nil
	}
	return toolJSON(in)
}

func (t *CaseTools) ListInputs(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	inputs, err := t.Store.ListInputs(ctx, id)
	if err != nil {
		return toolError("Failed to list inputs: %v", err), nil, nil
	}
	return toolJSON(inputs)
}

func (t *CaseTools) SearchInputs(ctx context.Context, _ *mcp.CallToolRequest, input SearchInputsInput) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	inputs, err := t.Store.SearchInputs(ctx, id, input.Query)
	if err != nil {
		return toolError("Search failed: %v", err), nil, nil
	}
	return toolJSON(inputs)
}
