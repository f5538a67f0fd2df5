package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// UpsertThresholdEvaluation replaces the threshold evaluation of a case.
func (s *Store) UpsertThresholdEvaluation(ctx context.Context, ev models.ThresholdEvaluation) (*models.ThresholdEvaluation, error) {
	if ev.Status == "" {
		return nil, fmt.Errorf("%w: threshold status is required", ErrValidation)
	}
	ev.ID = uuid.New().String()
	ev.CreatedAt = s.timestamp()

	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM threshold_evaluations WHERE case_id = ?`, ev.CaseID); err != nil {
			return fmt.Errorf("delete threshold evaluation: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx,
			`INSERT INTO threshold_evaluations (id, case_id, score, status, reasoning, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			ev.ID, ev.CaseID, ev.Score, ev.Status, ev.Reasoning, ev.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert threshold evaluation: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &ev, nil
}

// GetThresholdEvaluation returns the threshold evaluation of a case, or
// ErrNotFound if none has been saved.
func (s *Store) GetThresholdEvaluation(ctx context.Context, caseID string) (*models.ThresholdEvaluation, error) {
	var ev models.ThresholdEvaluation
	err := s.q.QueryRowContext(ctx,
		`SELECT id, case_id, score, status, reasoning, created_at FROM threshold_evaluations WHERE case_id = ?`,
		caseID,
	).Scan(&ev.ID, &ev.CaseID, &ev.Score, &ev.Status, &ev.Reasoning, &ev.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("threshold evaluation: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get threshold evaluation: %w", err)
	}
	return &ev, nil
}

// UpsertArchetypeAssignment replaces the archetype assignment of a case.
func (s *Store) UpsertArchetypeAssignment(ctx context.Context, a models.ArchetypeAssignment) (*models.ArchetypeAssignment, error) {
	if a.ArchetypeName == "" {
		return nil, fmt.Errorf("%w: archetype name is required", ErrValidation)
	}
	if a.KeyTraits == nil {
		a.KeyTraits = []string{}
	}
	traits, err := json.Marshal(a.KeyTraits)
	if err != nil {
		return nil, fmt.Errorf("encode key traits: %w", err)
	}
	a.ID = uuid.New().String()
	a.CreatedAt = s.timestamp()

	err = s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM archetype_assignments WHERE case_id = ?`, a.CaseID); err != nil {
			return fmt.Errorf("delete archetype assignment: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx,
			`INSERT INTO archetype_assignments (id, case_id, archetype_name, description, fit_score, key_traits, created_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.CaseID, a.ArchetypeName, a.Description, a.FitScore, string(traits), a.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert archetype assignment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// GetArchetypeAssignment returns the archetype assignment of a case, or
// ErrNotFound if none has been saved.
func (s *Store) GetArchetypeAssignment(ctx context.Context, caseID string) (*models.ArchetypeAssignment, error) {
	var a models.ArchetypeAssignment
	var traits string
	err := s.q.QueryRowContext(ctx,
		`SELECT id, case_id, archetype_name, description, fit_score, key_traits, created_at
		 FROM archetype_assignments WHERE case_id = ?`,
		caseID,
	).Scan(&a.ID, &a.CaseID, &a.ArchetypeName, &a.Description, &a.FitScore, &traits, &a.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("archetype assignment: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get archetype assignment: %w", err)
	}
	if a.KeyTraits, err = decodeList(traits); err != nil {
		return nil, fmt.Errorf("decode key traits: %w", err)
	}
	return &a, nil
}
