package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

const caseColumns = `id, identifier, description, status, created_at`

// CreateCase inserts a new case with status "open".
func (s *Store) CreateCase(ctx context.Context, identifier, description string) (*models.Case, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: case identifier is required", ErrValidation)
	}

	c := models.Case{
		ID:          uuid.New().String(),
		Identifier:  identifier,
		Description: description,
		Status:      models.CaseStatusOpen,
		CreatedAt:   s.timestamp(),
	}
	_, err := s.q.ExecContext(ctx,
		`INSERT INTO cases (id, identifier, description, status, created_at) VALUES (?, ?, ?, ?, ?)`,
		c.ID, c.Identifier, c.Description, c.Status, c.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert case: %w", err)
	}
	return &c, nil
}

// GetCase looks up a case by id.
func (s *Store) GetCase(ctx context.Context, id string) (*models.Case, error) {
	row := s.q.QueryRowContext(ctx, `SELECT `+caseColumns+` FROM cases WHERE id = ?`, id)
	return scanCase(row)
}

// FindCase looks up a case by id, falling back to an exact identifier match.
// When several cases share the identifier the newest wins.
func (s *Store) FindCase(ctx context.Context, ref string) (*models.Case, error) {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil, fmt.Errorf("%w: case id or identifier is required", ErrValidation)
	}
	c, err := s.GetCase(ctx, ref)
	if !errors.Is(err, ErrNotFound) {
		return c, err
	}
	row := s.q.QueryRowContext(ctx,
		`SELECT `+caseColumns+` FROM cases WHERE identifier = ? ORDER BY created_at DESC, rowid DESC LIMIT 1`, ref)
	c, err = scanCase(row)
	if errors.Is(err, ErrNotFound) {
		return nil, fmt.Errorf("case %q: %w", ref, ErrNotFound)
	}
	return c, err
}

// ListCases returns every case, newest first.
func (s *Store) ListCases(ctx context.Context) ([]models.Case, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT `+caseColumns+` FROM cases ORDER BY created_at DESC, rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("list cases: %w", err)
	}
	defer rows.Close()

	cases := []models.Case{}
	for rows.Next() {
		var c models.Case
		if err := rows.Scan(&c.ID, &c.Identifier, &c.Description, &c.Status, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan case: %w", err)
		}
		cases = append(cases, c)
	}
	return cases, rows.Err()
}

// UpdateCaseStatus records the latest pipeline stage reached by a case.
func (s *Store) UpdateCaseStatus(ctx context.Context, id, status string) error {
	result, err := s.q.ExecContext(ctx, `UPDATE cases SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("update case status: %w", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return fmt.Errorf("case %q: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteCase permanently removes a case and every record it owns.
func (s *Store) DeleteCase(ctx context.Context, id string) error {
	return s.WithTx(ctx, func(tx *Store) error {
		if _, err := tx.GetCase(ctx, id); err != nil {
			return err
		}
		// Children first; the FK cascade covers the same ground when enabled.
		for _, table := range childTables {
			if _, err := tx.q.ExecContext(ctx, `DELETE FROM `+table+` WHERE case_id = ?`, id); err != nil {
				return fmt.Errorf("delete %s: %w", table, err)
			}
		}
		if _, err := tx.q.ExecContext(ctx, `DELETE FROM cases WHERE id = ?`, id); err != nil {
			return fmt.Errorf("delete case record: %w", err)
		}
		return nil
	})
}

// CaseState counts what each phase has persisted for a case.
func (s *Store) CaseState(ctx context.Context, caseID string) (models.CaseState, error) {
	var st models.CaseState
	var threshold, archetype int
	var status string
	err := s.q.QueryRowContext(ctx, `
		SELECT
			COALESCE((SELECT status FROM cases WHERE id = ?1), ''),
			(SELECT COUNT(*) FROM inputs WHERE case_id = ?1),
			(SELECT COUNT(*) FROM patterns WHERE case_id = ?1),
			(SELECT COUNT(*) FROM axis_assignments WHERE case_id = ?1),
			(SELECT COUNT(*) FROM axis_states WHERE case_id = ?1),
			(SELECT COUNT(*) FROM tensions WHERE case_id = ?1),
			(SELECT COUNT(*) FROM threshold_evaluations WHERE case_id = ?1),
			(SELECT COUNT(*) FROM archetype_assignments WHERE case_id = ?1)`,
		caseID,
	).Scan(&status, &st.Inputs, &st.Patterns, &st.AxisAssignments, &st.AxisStates, &st.Tensions, &threshold, &archetype)
	if err != nil {
		return st, fmt.Errorf("count case records: %w", err)
	}
	st.HasThreshold = threshold > 0
	st.HasArchetype = archetype > 0
	if phase, err := models.ParsePhase(status); err == nil {
		st.LastPhase = phase
	}
	return st, nil
}

// scanCase scans a single case row.
func scanCase(row *sql.Row) (*models.Case, error) {
	var c models.Case
	err := row.Scan(&c.ID, &c.Identifier, &c.Description, &c.Status, &c.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("case: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("scan case: %w", err)
	}
	return &c, nil
}
