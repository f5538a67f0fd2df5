package server

import (
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/diegoturueno/provokers-tool/internal/pipeline"
	"github.com/diegoturueno/provokers-tool/internal/session"
	"github.com/diegoturueno/provokers-tool/internal/storage"
	"github.com/diegoturueno/provokers-tool/internal/tools"
)

// Options configures the MCP server.
type Options struct {
	Version string
	// PhaseTimeout bounds each phase tool call; zero means no limit.
	PhaseTimeout time.Duration
}

// New creates a fully configured MCP server with all tools registered.
func New(store *storage.Store, engine *pipeline.Engine, opts Options) *mcp.Server {
	sess := session.New()
	if opts.Version == "" {
		opts.Version = "dev"
	}

	ct := &tools.CaseTools{Store: store, Session: sess}
	at := &tools.AnalysisTools{Store: store, Engine: engine, Session: sess, Timeout: opts.PhaseTimeout}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    "provokers",
		Version: opts.Version,
	}, nil)

	// Case management tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_cases",
		Description: "List all cases, newest first",
	}, ct.ListCases)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "create_case",
		Description: "Create a new case and make it the current case",
	}, ct.CreateCase)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "switch_case",
		Description: "Switch the current case for this session, by id or identifier",
	}, ct.SwitchCase)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_current_case",
		Description: "Get information about the current case",
	}, ct.GetCurrentCase)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_case",
		Description: "Get a case by id or identifier",
	}, ct.GetCase)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "delete_case",
		Description: "Permanently delete a case and all of its inputs and analysis (irreversible)",
	}, ct.DeleteCase)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "add_input",
		Description: "Add an observed phrase, speech, narrative or situation to a case",
	}, ct.AddInput)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_inputs",
		Description: "List the inputs of a case in the order they were added",
	}, ct.ListInputs)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_inputs",
		Description: "Full-text search over the inputs of a case, best matches first",
	}, ct.SearchInputs)

	// Phase tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "detect_patterns",
		Description: "Detect recurring behavioural patterns in the case inputs (requires inputs)",
	}, at.DetectPatterns)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "link_axes",
		Description: "Link detected patterns to analysis axes (requires patterns)",
	}, at.LinkAxes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "classify_axes",
		Description: "Classify each linked axis as Defined, Partial, Undefined or Tension (requires axis assignments)",
	}, at.ClassifyAxes)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "detect_tensions",
		Description: "Detect contradictions, reinforcements and paradoxes between axes, replacing earlier tensions (requires axis states)",
	}, at.DetectTensions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "evaluate_threshold",
		Description: "Score whether the case crosses the analysis threshold, replacing any earlier evaluation (requires axis states)",
	}, at.EvaluateThreshold)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "assign_archetype",
		Description: "Assign the best-fitting archetype to the case, replacing any earlier one (requires a threshold evaluation)",
	}, at.AssignArchetype)

	// Result tools
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_patterns",
		Description: "List the patterns detected for a case",
	}, at.ListPatterns)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_axis_assignments",
		Description: "List the pattern to axis assignments of a case",
	}, at.ListAxisAssignments)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_axis_states",
		Description: "List the axis classifications of a case",
	}, at.ListAxisStates)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "list_tensions",
		Description: "List the tensions detected for a case",
	}, at.ListTensions)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_threshold_evaluation",
		Description: "Get the threshold evaluation of a case",
	}, at.GetThresholdEvaluation)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_archetype_assignment",
		Description: "Get the archetype assigned to a case",
	}, at.GetArchetypeAssignment)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_case_status",
		Description: "Show record counts, which phases are ready and the next phase to run for a case",
	}, at.GetCaseStatus)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_case_report",
		Description: "Get the full analysis history of a case across every phase",
	}, at.GetCaseReport)

	return srv
}
