package storage

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// AddAxisAssignment appends an axis assignment. A nil PatternID records a
// link the model made to a pattern that could not be resolved.
func (s *Store) AddAxisAssignment(ctx context.Context, a models.AxisAssignment) (*models.AxisAssignment, error) {
	if a.AxisName == "" {
		return nil, fmt.Errorf("%w: axis name is required", ErrValidation)
	}
	a.ID = uuid.New().String()
	a.CreatedAt = s.timestamp()

	_, err := s.q.ExecContext(ctx,
		`INSERT INTO axis_assignments (id, case_id, pattern_id, axis_name, justification, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		a.ID, a.CaseID, a.PatternID, a.AxisName, a.Justification, a.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert axis assignment: %w", err)
	}
	return &a, nil
}

// ListAxisAssignments returns a case's assignments in insertion order, each
// joined with the description of the pattern it references.
func (s *Store) ListAxisAssignments(ctx context.Context, caseID string) ([]models.AxisAssignment, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT a.id, a.case_id, a.pattern_id, COALESCE(p.description, ''), a.axis_name, a.justification, a.created_at
		 FROM axis_assignments a
		 LEFT JOIN patterns p ON p.id = a.pattern_id
		 WHERE a.case_id = ?
		 ORDER BY a.rowid`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list axis assignments: %w", err)
	}
	defer rows.Close()

	assignments := []models.AxisAssignment{}
	for rows.Next() {
		var a models.AxisAssignment
		var patternID sql.NullString
		if err := rows.Scan(&a.ID, &a.CaseID, &patternID, &a.PatternDescription, &a.AxisName, &a.Justification, &a.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan axis assignment: %w", err)
		}
		if patternID.Valid {
			id := patternID.String
			a.PatternID = &id
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// UpsertAxisState replaces the state for (case, axis name) with st.
func (s *Store) UpsertAxisState(ctx context.Context, st models.AxisState) (*models.AxisState, error) {
	if st.AxisName == "" {
		return nil, fmt.Errorf("%w: axis name is required", ErrValidation)
	}
	st.ID = uuid.New().String()

	err := s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.q.ExecContext(ctx,
			`DELETE FROM axis_states WHERE case_id = ? AND axis_name = ?`,
			st.CaseID, st.AxisName,
		); err != nil {
			return fmt.Errorf("delete axis state: %w", err)
		}
		if _, err := tx.q.ExecContext(ctx,
			`INSERT INTO axis_states (id, case_id, axis_name, status, value, justification) VALUES (?, ?, ?, ?, ?, ?)`,
			st.ID, st.CaseID, st.AxisName, string(st.Status), st.Value, st.Justification,
		); err != nil {
			return fmt.Errorf("insert axis state: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &st, nil
}

// ListAxisStates returns a case's axis states in insertion order.
func (s *Store) ListAxisStates(ctx context.Context, caseID string) ([]models.AxisState, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, case_id, axis_name, status, value, justification
		 FROM axis_states WHERE case_id = ? ORDER BY rowid`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list axis states: %w", err)
	}
	defer rows.Close()

	states := []models.AxisState{}
	for rows.Next() {
		var st models.AxisState
		var status string
		if err := rows.Scan(&st.ID, &st.CaseID, &st.AxisName, &status, &st.Value, &st.Justification); err != nil {
			return nil, fmt.Errorf("scan axis state: %w", err)
		}
		st.Status = models.AxisStatus(status)
		states = append(states, st)
	}
	return states, rows.Err()
}
