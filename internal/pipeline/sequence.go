package pipeline

import "github.com/diegoturueno/provokers-tool/internal/models"

// Step describes one phase: what it needs and what it writes.
type Step struct {
	Phase    models.Phase `json:"phase"`
	Title    string       `json:"title"`
	Requires string       `json:"requires"`
	Produces string       `json:"produces"`
}

// Sequence lists the phases in dependency order.
var Sequence = []Step{
	{models.PhasePatternDetection, "Pattern Detection", "inputs", "patterns"},
	{models.PhaseAxisLinking, "Axis Linking", "patterns", "axis assignments"},
	{models.PhaseAxisClassification, "Axis Classification", "axis assignments", "axis states"},
	{models.PhaseTensionDetection, "Tension Detection", "axis states", "tensions"},
	{models.PhaseThresholdEvaluation, "Threshold Evaluation", "axis states", "threshold evaluation"},
	{models.PhaseArchetypeAssignment, "Archetype Assignment", "threshold evaluation", "archetype assignment"},
}

// StepFor returns the step of a phase.
func StepFor(phase models.Phase) (Step, bool) {
	for _, s := range Sequence {
		if s.Phase == phase {
			return s, true
		}
	}
	return Step{}, false
}

// IsPhaseReady reports whether the upstream data a phase needs exists.
func IsPhaseReady(phase models.Phase, st models.CaseState) bool {
	switch phase {
	case models.PhasePatternDetection:
		return st.Inputs > 0
	case models.PhaseAxisLinking:
		return st.Patterns > 0
	case models.PhaseAxisClassification:
		return st.AxisAssignments > 0
	case models.PhaseTensionDetection, models.PhaseThresholdEvaluation:
		return st.AxisStates > 0
	case models.PhaseArchetypeAssignment:
		return st.HasThreshold
	}
	return false
}

// HasOutput reports whether a phase has persisted anything for the case.
// Tension detection may legitimately produce nothing, so an empty tension
// set counts as done once the run is recorded as the last phase or a
// threshold evaluation exists.
func HasOutput(phase models.Phase, st models.CaseState) bool {
	switch phase {
	case models.PhasePatternDetection:
		return st.Patterns > 0
	case models.PhaseAxisLinking:
		return st.AxisAssignments > 0
	case models.PhaseAxisClassification:
		return st.AxisStates > 0
	case models.PhaseTensionDetection:
		return st.Tensions > 0 || st.HasThreshold || st.LastPhase == models.PhaseTensionDetection
	case models.PhaseThresholdEvaluation:
		return st.HasThreshold
	case models.PhaseArchetypeAssignment:
		return st.HasArchetype
	}
	return false
}

// ReadyPhases lists every phase whose preconditions hold, in order.
func ReadyPhases(st models.CaseState) []models.Phase {
	ready := []models.Phase{}
	for _, s := range Sequence {
		if IsPhaseReady(s.Phase, st) {
			ready = append(ready, s.Phase)
		}
	}
	return ready
}

// NextPhase returns the phase after the furthest one with output, if it is
// ready. It returns false when the pipeline is complete or blocked.
func NextPhase(st models.CaseState) (models.Phase, bool) {
	next := 0
	for i, s := range Sequence {
		if HasOutput(s.Phase, st) {
			next = i + 1
		}
	}
	if next >= len(Sequence) {
		return "", false
	}
	phase := Sequence[next].Phase
	if !IsPhaseReady(phase, st) {
		return "", false
	}
	return phase, true
}
