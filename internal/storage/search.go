package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/diegoturueno/provokers-tool/internal/models"
)

// SearchInputs runs an FTS5 full-text query over a case's inputs and returns
// the matches best first. The query accepts FTS5 syntax (AND, OR, NOT, prefix*).
func (s *Store) SearchInputs(ctx context.Context, caseID, query string) ([]models.Input, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query is required", ErrValidation)
	}
	if _, err := s.GetCase(ctx, caseID); err != nil {
		return nil, err
	}

	rows, err := s.q.QueryContext(ctx,
		`SELECT i.id, i.case_id, i.content, i.input_type, i.metadata, i.created_at
		 FROM inputs i
		 JOIN inputs_fts ON inputs_fts.rowid = i.rowid
		 WHERE inputs_fts MATCH ? AND i.case_id = ?
		 ORDER BY inputs_fts.rank, i.rowid`,
		query, caseID,
	)
	if err != nil {
		return nil, fmt.Errorf("search inputs fts: %w", err)
	}
	defer rows.Close()
	return scanInputs(rows)
}
