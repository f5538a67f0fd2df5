package models

// Case is the top-level unit of analysis tracked through every phase.
type Case struct {
	ID          string `json:"id" yaml:"id"`
	Identifier  string `json:"identifier" yaml:"identifier"`
	Description string `json:"description" yaml:"description"`
	Status      string `json:"status" yaml:"status"`
	CreatedAt   string `json:"created_at" yaml:"created_at"`
}

// CaseStatusOpen is the status of a case no phase has run against yet.
const CaseStatusOpen = "open"

// Input is a free-text observation attached to a case.
type Input struct {
	ID        string         `json:"id" yaml:"id"`
	CaseID    string         `json:"case_id" yaml:"case_id"`
	Content   string         `json:"content" yaml:"content"`
	InputType InputType      `json:"input_type" yaml:"input_type"`
	Metadata  map[string]any `json:"metadata" yaml:"metadata"`
	CreatedAt string         `json:"created_at" yaml:"created_at"`
}

// Pattern is a recurring behaviour detected across a case's inputs.
type Pattern struct {
	ID              string     `json:"id" yaml:"id"`
	CaseID          string     `json:"case_id" yaml:"case_id"`
	Description     string     `json:"description" yaml:"description"`
	Recurrence      Recurrence `json:"recurrence" yaml:"recurrence"`
	Persistence     string     `json:"persistence" yaml:"persistence"`
	PressureContext string     `json:"pressure_context" yaml:"pressure_context"`
	Contradictions  string     `json:"contradictions" yaml:"contradictions"`
	IsValidated     bool       `json:"is_validated" yaml:"is_validated"`
	CreatedAt       string     `json:"created_at" yaml:"created_at"`
}

// AxisAssignment links a pattern to a named axis. PatternID is nil when the
// model referenced a pattern that could not be resolved.
type AxisAssignment struct {
	ID                 string  `json:"id" yaml:"id"`
	CaseID             string  `json:"case_id" yaml:"case_id"`
	PatternID          *string `json:"pattern_id" yaml:"pattern_id"`
	PatternDescription string  `json:"pattern_description,omitempty" yaml:"pattern_description,omitempty"`
	AxisName           string  `json:"axis_name" yaml:"axis_name"`
	Justification      string  `json:"justification" yaml:"justification"`
	CreatedAt          string  `json:"created_at" yaml:"created_at"`
}

// AxisState is the classification of one axis for a case. There is at most
// one per (case, axis).
type AxisState struct {
	ID            string     `json:"id" yaml:"id"`
	CaseID        string     `json:"case_id" yaml:"case_id"`
	AxisName      string     `json:"axis_name" yaml:"axis_name"`
	Status        AxisStatus `json:"status" yaml:"status"`
	Value         string     `json:"value" yaml:"value"`
	Justification string     `json:"justification" yaml:"justification"`
}

// Tension is a relationship between axes detected for a case.
type Tension struct {
	ID           string      `json:"id" yaml:"id"`
	CaseID       string      `json:"case_id" yaml:"case_id"`
	Description  string      `json:"description" yaml:"description"`
	Type         TensionType `json:"type" yaml:"type"`
	AxesInvolved []string    `json:"axes_involved" yaml:"axes_involved"`
	Severity     Severity    `json:"severity" yaml:"severity"`
}

// ThresholdEvaluation is the single threshold verdict for a case.
type ThresholdEvaluation struct {
	ID        string `json:"id" yaml:"id"`
	CaseID    string `json:"case_id" yaml:"case_id"`
	Score     int    `json:"score" yaml:"score"`
	Status    string `json:"status" yaml:"status"`
	Reasoning string `json:"reasoning" yaml:"reasoning"`
	CreatedAt string `json:"created_at" yaml:"created_at"`
}

// ArchetypeAssignment is the single archetype assigned to a case.
type ArchetypeAssignment struct {
	ID            string   `json:"id" yaml:"id"`
	CaseID        string   `json:"case_id" yaml:"case_id"`
	ArchetypeName string   `json:"archetype_name" yaml:"archetype_name"`
	Description   string   `json:"description" yaml:"description"`
	FitScore      int      `json:"fit_score" yaml:"fit_score"`
	KeyTraits     []string `json:"key_traits" yaml:"key_traits"`
	CreatedAt     string   `json:"created_at" yaml:"created_at"`
}

// CaseState summarises how far a case has progressed. It is what the
// sequencer evaluates phase readiness against.
type CaseState struct {
	Inputs          int  `json:"inputs"`
	Patterns        int  `json:"patterns"`
	AxisAssignments int  `json:"axis_assignments"`
	AxisStates      int  `json:"axis_states"`
	Tensions        int  `json:"tensions"`
	HasThreshold    bool `json:"has_threshold"`
	HasArchetype    bool `json:"has_archetype"`
	// LastPhase is the phase that last completed for the case, if any.
	LastPhase Phase `json:"last_phase,omitempty"`
}

// CaseReport is the full history of a case across every phase.
type CaseReport struct {
	Case            Case                 `json:"case" yaml:"case"`
	Inputs          []Input              `json:"inputs" yaml:"inputs"`
	Patterns        []Pattern            `json:"patterns" yaml:"patterns"`
	AxisAssignments []AxisAssignment     `json:"axis_assignments" yaml:"axis_assignments"`
	AxisStates      []AxisState          `json:"axis_states" yaml:"axis_states"`
	Tensions        []Tension            `json:"tensions" yaml:"tensions"`
	Threshold       *ThresholdEvaluation `json:"threshold" yaml:"threshold"`
	Archetype       *ArchetypeAssignment `json:"archetype" yaml:"archetype"`
}
