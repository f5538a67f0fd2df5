package tools

import (
	"context"
	"errors"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/pipeline"
	"github.com/diegoturueno/provokers-tool/internal/session"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// AnalysisTools holds references needed by the phase and result tool
// handlers.
type AnalysisTools struct {
	Store   *storage.Store
	Engine  *pipeline.Engine
	Session *session.Session
	// Timeout bounds each phase run; zero means no limit.
	Timeout time.Duration
}

func (t *AnalysisTools) scope() scope {
	return scope{store: t.Store, session: t.Session}
}

// --- Input types ---

type PhaseInput struct {
	CaseID   string `json:"case_id,omitempty" jsonschema:"Case id or identifier; defaults to the current case"`
	Provider string `json:"provider,omitempty" jsonschema:"Model provider: openai, ollama, anthropic, gemini, or the aliases cloud and local"`
}

// --- Phase handlers ---

func (t *AnalysisTools) run(ctx context.Context, phase models.Phase, input PhaseInput) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	if t.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.Timeout)
		defer cancel()
	}

	res := t.Engine.Run(ctx, phase, id, pipeline.RunOptions{Provider: input.Provider})
	if res.Err != nil {
		return toolError("%s failed (%s): %s", phase, res.Err.Kind, res.Err.Message), nil, nil
	}
	return toolJSON(res)
}

func (t *AnalysisTools) DetectPatterns(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhasePatternDetection, input)
}

func (t *AnalysisTools) LinkAxes(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhaseAxisLinking, input)
}

func (t *AnalysisTools) ClassifyAxes(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhaseAxisClassification, input)
}

func (t *AnalysisTools) DetectTensions(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhaseTensionDetection, input)
}

func (t *AnalysisTools) EvaluateThreshold(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhaseThresholdEvaluation, input)
}

func (t *AnalysisTools) AssignArchetype(ctx context.Context, _ *mcp.CallToolRequest, input PhaseInput) (*mcp.CallToolResult, any, error) {
	return t.run(ctx, models.PhaseArchetypeAssignment, input)
}

// --- Read handlers ---

func (t *AnalysisTools) ListPatterns(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	patterns, err := t.Store.ListPatterns(ctx, id)
	if err != nil {
		return toolError("Failed to list patterns: %v", err), nil, nil
	}
	return toolJSON(patterns)
}

func (t *AnalysisTools) ListAxisAssignments(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	assignments, err := t.Store.ListAxisAssignments(ctx, id)
	if err != nil {
		return toolError("Failed to list axis assignments: %v", err), nil, nil
	}
	return toolJSON(assignments)
}

func (t *AnalysisTools) ListAxisStates(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	states, err := t.Store.ListAxisStates(ctx, id)
	if err != nil {
		return toolError("Failed to list axis states: %v", err), nil, nil
	}
	return toolJSON(states)
}

func (t *AnalysisTools) ListTensions(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	tensions, err := t.Store.ListTensions(ctx, id)
	if err != nil {
		return toolError("Failed to list tensions: %v", err), nil, nil
	}
	return toolJSON(tensions)
}

func (t *AnalysisTools) GetThresholdEvaluation(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	ev, err := t.Store.GetThresholdEvaluation(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return toolText("No threshold evaluation yet. Run evaluate_threshold first."), nil, nil
	}
	if err != nil {
		return toolError("Failed to get threshold evaluation: %v", err), nil, nil
	}
	return toolJSON(ev)
}

func (t *AnalysisTools) GetArchetypeAssignment(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	arch, err := t.Store.GetArchetypeAssignment(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return toolText("No archetype assigned yet. Run assign_archetype first."), nil, nil
	}
	if err != nil {
		return toolError("Failed to get archetype assignment: %v", err), nil, nil
	}
	return toolJSON(arch)
}

func (t *AnalysisTools) GetCaseStatus(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	st, err := pipeline.Status(ctx, t.Store, id)
	if err != nil {
		return toolError("Failed to get case status: %v", err), nil, nil
	}
	return toolJSON(st)
}

func (t *AnalysisTools) GetCaseReport(ctx context.Context, _ *mcp.CallToolRequest, input CaseRef) (*mcp.CallToolResult, any, error) {
	id, stop := t.scope().caseID(ctx, input.CaseID)
	if stop != nil {
		return stop, nil, nil
	}
	report, err := t.Store.Report(ctx, id)
	if err != nil {
		return toolError("Failed to build case report: %v", err), nil, nil
	}
	return toolJSON(report)
}
