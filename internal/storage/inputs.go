package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// AddInput appends an input to a case. A nil metadata map is stored as {}.
func (s *Store) AddInput(ctx context.Context, caseID, content string, inputType models.InputType, metadata map[string]any) (*models.Input, error) {
	if strings.TrimSpace(content) == "" {
		return nil, fmt.Errorf("%w: input content is required", ErrValidation)
	}
	if inputType == "" {
		inputType = models.InputPhrase
	}
	if _, err := models.ParseInputType(string(inputType)); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]any{}
	}
	meta, err := json.Marshal(metadata)
	if err != nil {
		return nil, fmt.Errorf("%w: metadata: %v", ErrValidation, err)
	}

	in := models.Input{
		ID:        uuid.New().String(),
		CaseID:    caseID,
		Content:   content,
		InputType: inputType,
		Metadata:  metadata,
		CreatedAt: s.timestamp(),
	}
	_, err = s.q.ExecContext(ctx,
		`INSERT INTO inputs (id, case_id, content, input_type, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		in.ID, in.CaseID, in.Content, string(in.InputType), string(meta), in.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert input: %w", err)
	}
	return &in, nil
}

// ListInputs returns a case's inputs in insertion order.
func (s *Store) ListInputs(ctx context.Context, caseID string) ([]models.Input, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT id, case_id, content, input_type, metadata, created_at
		 FROM inputs WHERE case_id = ? ORDER BY rowid`,
		caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("list inputs: %w", err)
	}
	defer rows.Close()
	return scanInputs(rows)
}

func scanInputs(rows *sql.Rows) ([]models.Input, error) {
	inputs := []models.Input{}
	for rows.Next() {
		var in models.Input
		var inputType, meta string
		if err := rows.Scan(&in.ID, &in.CaseID, &in.Content, &inputType, &meta, &in.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan input: %w", err)
		}
		in.InputType = models.InputType(inputType)
		in.Metadata = map[string]any{}
		if meta != "" {
			if err := json.Unmarshal([]byte(meta), &in.Metadata); err != nil {
				return nil, fmt.Errorf("decode input metadata: %w", err)
			}
		}
		inputs = append(inputs, in)
	}
	return inputs, rows.Err()
}
