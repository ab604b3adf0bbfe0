// Package store provides storage backends for PayFlow session records.
//
// It includes an in-memory store plus SQLite and PostgreSQL implementations.
// Only lifecycle state and non-sensitive metadata are stored; field values
// and credentials never reach a backend.
package store

import (
	"context"
	"sync"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// Store persists flow session state records.
type Store interface {
	SaveFlowState(ctx context.Context, state models.FlowState) error
	GetFlowState(ctx context.Context, sessionID string, kind models.FlowKind) (*models.FlowState, error)
	DeleteFlowState(ctx context.Context, sessionID string, kind models.FlowKind) error
	Close() error
}

type stateKey struct {
	sessionID string
	kind      models.FlowKind
}

// InMemoryStore is a simple in-memory store for session state records.
type InMemoryStore struct {
	mu     sync.RWMutex
	states map[stateKey]models.FlowState
}

// NewInMemoryStore creates an empty InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{states: make(map[stateKey]models.FlowState)}
}

func copyState(state models.FlowState) models.FlowState {
	if state.StateData != nil {
		data := make(map[models.DataKey]string, len(state.StateData))
		for k, v := range state.StateData {
			data[k] = v
		}
		state.StateData = data
	}
	return state
}

// SaveFlowState stores or replaces the record for a session.
func (s *InMemoryStore) SaveFlowState(_ context.Context, state models.FlowState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.states[stateKey{state.SessionID, state.FlowKind}] = copyState(state)
	return nil
}

// GetFlowState returns the record for a session, or nil when none exists.
func (s *InMemoryStore) GetFlowState(_ context.Context, sessionID string, kind models.FlowKind) (*models.FlowState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.states[stateKey{sessionID, kind}]
	if !ok {
		return nil, nil
	}
	out := copyState(state)
	return &out, nil
}

// DeleteFlowState removes the record for a session.
func (s *InMemoryStore) DeleteFlowState(_ context.Context, sessionID string, kind models.FlowKind) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.states, stateKey{sessionID, kind})
	return nil
}

// Close is a no-op.
func (s *InMemoryStore) Close() error { return nil }
