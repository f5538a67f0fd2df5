package storage

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// Report loads the full history of a case. The per-table reads run
// concurrently; a missing threshold or archetype leaves the field nil.
func (s *Store) Report(ctx context.Context, caseID string) (*models.CaseReport, error) {
	c, err := s.GetCase(ctx, caseID)
	if err != nil {
		return nil, err
	}
	report := &models.CaseReport{Case: *c}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		report.Inputs, err = s.ListInputs(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		report.Patterns, err = s.ListPatterns(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		report.AxisAssignments, err = s.ListAxisAssignments(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		report.AxisStates, err = s.ListAxisStates(gctx, caseID)
		return err
	})
	g.Go(func() (err error) {
		report.Tensions, err = s.ListTensions(gctx, caseID)
		return err
	})
	g.Go(func() error {
		ev, err := s.GetThresholdEvaluation(gctx, caseID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		report.Threshold = ev
		return nil
	})
	g.Go(func() error {
		a, err := s.GetArchetypeAssignment(gctx, caseID)
		if err != nil && !errors.Is(err, ErrNotFound) {
			return err
		}
		report.Archetype = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("load case report: %w", err)
	}
	return report, nil
}
