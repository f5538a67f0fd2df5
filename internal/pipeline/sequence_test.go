package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

func TestSequenceOrder(t *testing.T) {
	assert.Len(t, Sequence, len(models.Phases))
	for i, s := range Sequence {
		assert.Equal(t, models.Phases[i], s.Phase)
	}
	step, ok := StepFor(models.PhaseArchetypeAssignment)
	assert.True(t, ok)
	assert.Equal(t, "threshold evaluation", step.Requires)
}

func TestNextPhase(t *testing.T) {
	tests := []struct {
		name  string
		state models.CaseState
		want  models.Phase
		ok    bool
	}{
		{"empty case", models.CaseState{}, "", false},
		{"inputs only", models.CaseState{Inputs: 2}, models.PhasePatternDetection, true},
		{"patterns", models.CaseState{Inputs: 2, Patterns: 3}, models.PhaseAxisLinking, true},
		{"assignments", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 2}, models.PhaseAxisClassification, true},
		{"states", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 2}, models.PhaseTensionDetection, true},
		{"tensions", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 1, Tensions: 1}, models.PhaseThresholdEvaluation, true},
		{"tension run found nothing", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 1, LastPhase: models.PhaseTensionDetection}, models.PhaseThresholdEvaluation, true},
		{"states reclassified after tensions", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 1, LastPhase: models.PhaseAxisClassification}, models.PhaseTensionDetection, true},
		{"threshold without tensions", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 1, HasThreshold: true}, models.PhaseArchetypeAssignment, true},
		{"complete", models.CaseState{Inputs: 1, Patterns: 1, AxisAssignments: 1, AxisStates: 1, HasThreshold: true, HasArchetype: true}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := NextPhase(tt.state)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestReadyPhases(t *testing.T) {
	assert.Empty(t, ReadyPhases(models.CaseState{}))
	assert.Equal(t,
		[]models.Phase{models.PhasePatternDetection, models.PhaseAxisLinking, models.PhaseTensionDetection, models.PhaseThresholdEvaluation},
		ReadyPhases(models.CaseState{Inputs: 1, Patterns: 1, AxisStates: 1}),
	)
	assert.False(t, IsPhaseReady(models.Phase("unknown"), models.CaseState{Inputs: 1}))
}
