package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// AppendTension adds a tension to a case.
func (s *Store) AppendTension(ctx context.Context, t models.Tension) (*models.Tension, error) {
	if t.Description == "" {
		return nil, fmt.Errorf("%w: tension description is required", ErrValidation)
	}
	if t.AxesInvolved == nil {
		t.AxesInvolved = []string{}
	}
	axes, err := json.Marshal(t.AxesInvolved)
	if err != nil {
		return nil, fmt.Errorf("encode axes involved: %w", err)
	}
	t.ID = uuid.New().String()

	_, err = s.q.ExecContext(ctx,
		`INSERT INTO tensions (id, case_id, description, type, axes_involved, severity) VALUES (?, ?, ?, ?, ?, ?)`,
		t.ID, t.CaseID, t.Description, string(t.Type), string(axes), string(t.Severity),
	)
	if err != nil {
		return nil, fmt.Errorf("insert tension: %w", err)
	}
	return &t, nil
}

// ClearTensions removes every tension of a case.
func (s *Store) ClearTensions(ctx context.Context, caseID string) error {
	if _, err := s.q.ExecContext(ctx, `DELETE FROM tensions WHERE case_id = ?`, caseID); err != nil {
		return fmt.Errorf("clear tensions: %w", err)
	}
	return nil
}

// ListTensions returns a case's tensions in insertion order.
func (s *Store) ListTensions(ctx context.Context, caseID string) ([]models.Tension, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, case_id, description, type, axes_involved, severity
		 FROM tensions WHERE case_id = ? ORDER BY rowid`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list tensions: %w", err)
	}
	defer rows.Close()

	tensions := []models.Tension{}
	for rows.Next() {
		var t models.Tension
		var typ, axes, severity string
		if err := rows.Scan(&t.ID, &t.CaseID, &t.Description, &typ, &axes, &severity); err != nil {
			return nil, fmt.Errorf("scan tension: %w", err)
		}
		t.Type = models.TensionType(typ)
		t.Severity = models.Severity(severity)
		if t.AxesInvolved, err = decodeList(axes); err != nil {
			return nil, fmt.Errorf("decode axes involved: %w", err)
		}
		tensions = append(tensions, t)
	}
	return tensions, rows.Err()
}

// decodeList decodes a JSON text column holding a list of strings.
func decodeList(raw string) ([]string, error) {
	list := []string{}
	if raw == "" {
		return list, nil
	}
	if err := json.Unmarshal([]byte(raw), &list); err != nil {
		return nil, err
	}
	return list, nil
}
