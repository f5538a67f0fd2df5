package pipeline

import (
	"context"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// StepStatus is the progress of one phase for a case.
type StepStatus struct {
	Step
	Ready bool `json:"ready"`
	Done  bool `json:"done"`
}

// CaseStatus summarises where a case stands in the pipeline.
type CaseStatus struct {
	Case        models.Case      `json:"case"`
	State       models.CaseState `json:"state"`
	Steps       []StepStatus     `json:"steps"`
	ReadyPhases []models.Phase   `json:"ready_phases"`
	NextPhase   models.Phase     `json:"next_phase,omitempty"`
	Complete    bool             `json:"complete"`
}

// Status loads the case and evaluates every phase against its records.
func Status(ctx context.Context, store *storage.Store, caseID string) (*CaseStatus, error) {
	c, err := store.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	st, err := store.CaseState(ctx, caseID)
	if err != nil {
		return nil, err
	}

	out := &CaseStatus{
		Case:        *c,
		State:       st,
		Steps:       make([]StepStatus, 0, len(Sequence)),
		ReadyPhases: ReadyPhases(st),
		Complete:    st.HasArchetype,
	}
	for _, s := range Sequence {
		out.Steps = append(out.Steps, StepStatus{
			Step:  s,
			Ready: IsPhaseReady(s.Phase, st),
			Done:  HasOutput(s.Phase, st),
		})
	}
	if next, ok := NextPhase(st); ok {
		out.NextPhase = next
	}
	return out, nil
}
