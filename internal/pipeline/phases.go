package pipeline

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/normalize"
	"github.com/diegoturueno/provokers-tool/internal/prompt"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

func (e *Engine) detectPatterns(ctx context.Context, run *phaseRun) error {
	inputs, err := e.store.ListInputs(ctx, run.caseID)
	if err != nil {
		return err
	}
	if len(inputs) == 0 {
		return precondition(run.phase, "the case has no inputs; add inputs before running pattern detection")
	}

	raw, err := e.generate(ctx, run, prompt.InputsBlock(inputs))
	if err != nil {
		return err
	}
	drafts, err := normalize.Patterns(raw)
	if err != nil {
		return err
	}

	saved := make([]models.Pattern, 0, len(drafts))
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		for _, p := range drafts {
			p.CaseID = run.caseID
			out, err := tx.AddPattern(ctx, p)
			if err != nil {
				return err
			}
			saved = append(saved, *out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.result.Patterns = saved
	run.result.Count = len(saved)
	return nil
}

func (e *Engine) linkAxes(ctx context.Context, run *phaseRun) error {
	patterns, err := e.store.ListPatterns(ctx, run.caseID)
	if err != nil {
		return err
	}
	if len(patterns) == 0 {
		return precondition(run.phase, "the case has no patterns; run pattern detection first")
	}

	raw, err := e.generate(ctx, run, prompt.PatternsBlock(patterns))
	if err != nil {
		return err
	}
	drafts, err := normalize.AxisAssignments(raw)
	if err != nil {
		return err
	}

	saved := make([]models.AxisAssignment, 0, len(drafts))
	unresolved := 0
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		for _, d := range drafts {
			a := models.AxisAssignment{
				CaseID:        run.caseID,
				AxisName:      d.AxisName,
				Justification: d.Justification,
			}
			if p := resolvePattern(patterns, d); p != nil {
				a.PatternID = &p.ID
				a.PatternDescription = p.Description
			} else {
				unresolved++
			}
			out, err := tx.AddAxisAssignment(ctx, a)
			if err != nil {
				return err
			}
			out.PatternDescription = a.PatternDescription
			saved = append(saved, *out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	if unresolved > 0 {
		e.logger.Warn("axis assignments without a matching pattern",
			zap.String("case_id", run.caseID), zap.Int("unresolved", unresolved))
	}
	run.result.AxisAssignments = saved
	run.result.Count = len(saved)
	return nil
}

// resolvePattern finds the stored pattern an assignment refers to: by
// explicit id first, then by exact description, then by substring in either
// direction. The first match in storage order wins; nil means unresolved.
func resolvePattern(patterns []models.Pattern, d normalize.AssignmentDraft) *models.Pattern {
	if d.PatternID != "" {
		for i := range patterns {
			if patterns[i].ID == d.PatternID {
				return &patterns[i]
			}
		}
	}

	needle := strings.ToLower(strings.TrimSpace(d.PatternDescription))
	if needle == "" {
		return nil
	}
	for i := range patterns {
		if strings.ToLower(strings.TrimSpace(patterns[i].Description)) == needle {
			return &patterns[i]
		}
	}
	for i := range patterns {
		desc := strings.ToLower(strings.TrimSpace(patterns[i].Description))
		if desc == "" {
			continue
		}
		if strings.Contains(desc, needle) || strings.Contains(needle, desc) {
			return &patterns[i]
		}
	}
	return nil
}

func (e *Engine) classifyAxes(ctx context.Context, run *phaseRun) error {
	assignments, err := e.store.ListAxisAssignments(ctx, run.caseID)
	if err != nil {
		return err
	}
	if len(assignments) == 0 {
		return precondition(run.phase, "the case has no axis assignments; run axis linking first")
	}

	raw, err := e.generate(ctx, run, prompt.AxisAssignmentsBlock(assignments))
	if err != nil {
		return err
	}
	states, err := normalize.AxisStates(raw)
	if err != nil {
		return err
	}

	// A later entry for the same axis replaces an earlier one, as in storage.
	saved := make([]models.AxisState, 0, len(states))
	index := make(map[string]int, len(states))
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		for _, st := range states {
			st.CaseID = run.caseID
			out, err := tx.UpsertAxisState(ctx, st)
			if err != nil {
				return err
			}
			if i, ok := index[out.AxisName]; ok {
				saved[i] = *out
				continue
			}
			index[out.AxisName] = len(saved)
			saved = append(saved, *out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.result.AxisStates = saved
	run.result.Count = len(saved)
	return nil
}

func (e *Engine) detectTensions(ctx context.Context, run *phaseRun) error {
	states, err := e.store.ListAxisStates(ctx, run.caseID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return precondition(run.phase, "the case has no axis states; run axis classification first")
	}

	raw, err := e.generate(ctx, run, prompt.AxisStatesBlock(states))
	if err != nil {
		return err
	}
	tensions, err := normalize.Tensions(raw)
	if err != nil {
		return err
	}

	saved := make([]models.Tension, 0, len(tensions))
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		if err := tx.ClearTensions(ctx, run.caseID); err != nil {
			return err
		}
		for _, t := range tensions {
			t.CaseID = run.caseID
			out, err := tx.AppendTension(ctx, t)
			if err != nil {
				return err
			}
			saved = append(saved, *out)
		}
		return nil
	})
	if err != nil {
		return err
	}
	run.result.Tensions = saved
	run.result.Count = len(saved)
	return nil
}

// summaryInputs loads what the case summary phases read.
func (e *Engine) summaryInputs(ctx context.Context, caseID string) ([]models.Pattern, []models.AxisState, []models.Tension, error) {
	patterns, err := e.store.ListPatterns(ctx, caseID)
	if err != nil {
		return nil, nil, nil, err
	}
	states, err := e.store.ListAxisStates(ctx, caseID)
	if err != nil {
		return nil, nil, nil, err
	}
	tensions, err := e.store.ListTensions(ctx, caseID)
	if err != nil {
		return nil, nil, nil, err
	}
	return patterns, states, tensions, nil
}

func (e *Engine) evaluateThreshold(ctx context.Context, run *phaseRun) error {
	patterns, states, tensions, err := e.summaryInputs(ctx, run.caseID)
	if err != nil {
		return err
	}
	if len(states) == 0 {
		return precondition(run.phase, "the case has no axis states; run axis classification first")
	}

	raw, err := e.generate(ctx, run, prompt.ThresholdSummary(patterns, states, tensions))
	if err != nil {
		return err
	}
	ev, err := normalize.Threshold(raw)
	if err != nil {
		return err
	}

	var saved *models.ThresholdEvaluation
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		ev.CaseID = run.caseID
		saved, err = tx.UpsertThresholdEvaluation(ctx, ev)
		return err
	})
	if err != nil {
		return err
	}
	run.result.Threshold = saved
	run.result.Count = 1
	return nil
}

func (e *Engine) assignArchetype(ctx context.Context, run *phaseRun) error {
	ev, err := e.store.GetThresholdEvaluation(ctx, run.caseID)
	if errors.Is(err, storage.ErrNotFound) {
		return precondition(run.phase, "the case has no threshold evaluation; run threshold evaluation first")
	}
	if err != nil {
		return err
	}
	patterns, states, tensions, err := e.summaryInputs(ctx, run.caseID)
	if err != nil {
		return err
	}

	raw, err := e.generate(ctx, run, prompt.ArchetypeSummary(patterns, states, tensions, *ev))
	if err != nil {
		return err
	}
	arch, err := normalize.Archetype(raw)
	if err != nil {
		return err
	}

	var saved *models.ArchetypeAssignment
	err = e.persist(ctx, run, func(tx *storage.Store) error {
		arch.CaseID = run.caseID
		saved, err = tx.UpsertArchetypeAssignment(ctx, arch)
		return err
	})
	if err != nil {
		return err
	}
	run.result.Archetype = saved
	run.result.Count = 1
	return nil
}
