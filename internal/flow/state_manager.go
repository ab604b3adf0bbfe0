// Package flow provides a store-backed implementation of StateManager.
package flow

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/store"
)

// StoreBasedStateManager implements StateManager using a Store backend.
type StoreBasedStateManager struct {
	store store.Store
}

// NewStoreBasedStateManager creates a new StateManager backed by a Store.
func NewStoreBasedStateManager(st store.Store) *StoreBasedStateManager {
	slog.Debug("Creating StoreBasedStateManager")
	return &StoreBasedStateManager{store: st}
}

// GetCurrentState retrieves the current state of a session. A session with no
// record is reported as StateIdle.
func (sm *StoreBasedStateManager) GetCurrentState(ctx context.Context, sessionID string, kind models.FlowKind) (models.StateType, error) {
	flowState, err := sm.store.GetFlowState(ctx, sessionID, kind)
	if err != nil {
		slog.Error("StateManager GetCurrentState error", "error", err, "sessionID", sessionID, "kind", kind)
		return "", err
	}
	if flowState == nil {
		return models.StateIdle, nil
	}
	return flowState.CurrentState, nil
}

// load returns the stored record or a fresh idle one.
func (sm *StoreBasedStateManager) load(ctx context.Context, sessionID string, kind models.FlowKind) (*models.FlowState, error) {
	flowState, err := sm.store.GetFlowState(ctx, sessionID, kind)
	if err != nil {
		return nil, err
	}
	if flowState == nil {
		now := time.Now()
		flowState = &models.FlowState{
			SessionID:    sessionID,
			FlowKind:     kind,
			CurrentState: models.StateIdle,
			StateData:    make(map[models.DataKey]string),
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}
	if flowState.StateData == nil {
		flowState.StateData = make(map[models.DataKey]string)
	}
	return flowState, nil
}

// SetCurrentState updates the current state of a session.
func (sm *StoreBasedStateManager) SetCurrentState(ctx context.Context, sessionID string, kind models.FlowKind, state models.StateType) error {
	slog.Debug("StateManager SetCurrentState", "sessionID", sessionID, "kind", kind, "state", state)
	flowState, err := sm.load(ctx, sessionID, kind)
	if err != nil {
		slog.Error("StateManager SetCurrentState get error", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	flowState.CurrentState = state
	flowState.UpdatedAt = time.Now()
	if err := sm.store.SaveFlowState(ctx, *flowState); err != nil {
		slog.Error("StateManager SetCurrentState save error", "error", err, "sessionID", sessionID, "kind", kind, "state", state)
		return err
	}
	return nil
}

// GetStateData retrieves metadata recorded next to the session state.
func (sm *StoreBasedStateManager) GetStateData(ctx context.Context, sessionID string, kind models.FlowKind, key models.DataKey) (string, error) {
	flowState, err := sm.store.GetFlowState(ctx, sessionID, kind)
	if err != nil {
		slog.Error("StateManager GetStateData error", "error", err, "sessionID", sessionID, "kind", kind, "key", key)
		return "", err
	}
	if flowState == nil || flowState.StateData == nil {
		return "", nil
	}
	return flowState.StateData[key], nil
}

// SetStateData stores metadata next to the session state.
func (sm *StoreBasedStateManager) SetStateData(ctx context.Context, sessionID string, kind models.FlowKind, key models.DataKey, value string) error {
	flowState, err := sm.load(ctx, sessionID, kind)
	if err != nil {
		slog.Error("StateManager SetStateData get error", "error", err, "sessionID", sessionID, "kind", kind, "key", key)
		return err
	}
	flowState.StateData[key] = value
	flowState.UpdatedAt = time.Now()
	if err := sm.store.SaveFlowState(ctx, *flowState); err != nil {
		slog.Error("StateManager SetStateData save error", "error", err, "sessionID", sessionID, "kind", kind, "key", key)
		return err
	}
	return nil
}

// TransitionState moves a session from one state to another, verifying both
// the recorded state and the legality of the move.
func (sm *StoreBasedStateManager) TransitionState(ctx context.Context, sessionID string, kind models.FlowKind, fromState, toState models.StateType) error {
	currentState, err := sm.GetCurrentState(ctx, sessionID, kind)
	if err != nil {
		return err
	}
	if currentState != fromState {
		err := fmt.Errorf("invalid state transition: expected %s, current is %s", fromState, currentState)
		slog.Error("StateManager TransitionState invalid transition", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	if !models.IsValidTransition(fromState, toState) {
		err := fmt.Errorf("invalid state transition: %s -> %s", fromState, toState)
		slog.Error("StateManager TransitionState illegal move", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	if err := sm.SetCurrentState(ctx, sessionID, kind, toState); err != nil {
		return err
	}
	slog.Info("StateManager TransitionState succeeded", "sessionID", sessionID, "kind", kind, "from", fromState, "to", toState)
	return nil
}

// ResetState removes the record of a session.
func (sm *StoreBasedStateManager) ResetState(ctx context.Context, sessionID string, kind models.FlowKind) error {
	if err := sm.store.DeleteFlowState(ctx, sessionID, kind); err != nil {
		slog.Error("StateManager ResetState error", "error", err, "sessionID", sessionID, "kind", kind)
		return err
	}
	slog.Info("StateManager ResetState succeeded", "sessionID", sessionID, "kind", kind)
	return nil
}
