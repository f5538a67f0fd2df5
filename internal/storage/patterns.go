package storage

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// AddPattern appends a pattern to a case. The returned copy carries the
// generated id and timestamp.
func (s *Store) AddPattern(ctx context.Context, p models.Pattern) (*models.Pattern, error) {
	if p.Description == "" {
		return nil, fmt.Errorf("%w: pattern description is required", ErrValidation)
	}
	p.ID = uuid.New().String()
	p.CreatedAt = s.timestamp()

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO patterns (id, case_id, description, recurrence, persistence, pressure_context, contradictions, is_validated, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.CaseID, p.Description, string(p.Recurrence), p.Persistence, p.PressureContext, p.Contradictions, p.IsValidated, p.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert pattern: %w", err)
	}
	return &p, nil
}

// ListPatterns returns a case's patterns in insertion order.
func (s *Store) ListPatterns(ctx context.Context, caseID string) ([]models.Pattern, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, case_id, description, recurrence, persistence, pressure_context, contradictions, is_validated, created_at
		 FROM patterns WHERE case_id = ? ORDER BY rowid`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list patterns: %w", err)
	}
	defer rows.Close()

	patterns := []models.Pattern{}
	for rows.Next() {
		var p models.Pattern
		var recurrence string
		if err := rows.Scan(&p.ID, &p.CaseID, &p.Description, &recurrence, &p.Persistence,
			&p.PressureContext, &p.Contradictions, &p.IsValidated, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan pattern: %w", err)
		}
		p.Recurrence = models.Recurrence(recurrence)
		patterns = append(patterns, p)
	}
	return patterns, rows.Err()
}
