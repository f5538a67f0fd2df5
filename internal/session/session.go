// Package session tracks the case an MCP client is working on.
package session

import (
	"context"
	"sync"

	"github.com/diegoturueno/provokers-tool/internal/models"
	"github.com/diegoturueno/provokers-tool/internal/storage"
)

// Session holds the current case for an MCP session.
type Session struct {
	mu                sync.Mutex
	currentCaseID     string
	currentIdentifier string
}

// New creates a new empty session with no active case.
func New() *Session {
	return &Session{}
}

// SwitchCase makes the case referenced by id or identifier current.
func (s *Session) SwitchCase(ctx context.Context, store *storage.Store, ref string) (*models.Case, error) {
	c, err := store.FindCase(ctx, ref)
	if err != nil {
		return nil, err
	}
	s.Set(c)
	return c, nil
}

// Set makes c the current case.
func (s *Session) Set(c *models.Case) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCaseID = c.ID
	s.currentIdentifier = c.Identifier
}

// GetCurrent returns the current case, if one is active.
func (s *Session) GetCurrent() (id, identifier string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentCaseID == "" {
		return "", "", false
	}
	return s.currentCaseID, s.currentIdentifier, true
}

// Forget clears the current case if it is id. Used when a case is deleted.
func (s *Session) Forget(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.currentCaseID == id {
		s.currentCaseID = ""
		s.currentIdentifier = ""
	}
}

// Clear resets session state.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.currentCaseID = ""
	s.currentIdentifier = ""
}
