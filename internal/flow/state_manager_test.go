package flow

import (
	"context"
	"testing"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/store"
)

func TestStoreBasedStateManager(t *testing.T) {
	ctx := context.Background()
	sm := NewStoreBasedStateManager(store.NewInMemoryStore())
	sessionID, kind := "session-1", models.FlowKindDeposit

	state, err := sm.GetCurrentState(ctx, sessionID, kind)
	if err != nil {
		t.Fatalf("GetCurrentState failed: %v", err)
	}
	if state != models.StateIdle {
		t.Errorf("expected %s for unknown session, got %s", models.StateIdle, state)
	}

	if err := sm.TransitionState(ctx, sessionID, kind, models.StateIdle, models.StateFetchingConfiguration); err != nil {
		t.Fatalf("TransitionState failed: %v", err)
	}
	if err := sm.SetStateData(ctx, sessionID, kind, models.DataKeyDisplayWidget, string(models.WidgetTypeManualDeposit)); err != nil {
		t.Fatalf("SetStateData failed: %v", err)
	}

	state, _ = sm.GetCurrentState(ctx, sessionID, kind)
	if state != models.StateFetchingConfiguration {
		t.Errorf("expected %s, got %s", models.StateFetchingConfiguration, state)
	}
	value, _ := sm.GetStateData(ctx, sessionID, kind, models.DataKeyDisplayWidget)
	if value != string(models.WidgetTypeManualDeposit) {
		t.Errorf("expected recorded widget, got %q", value)
	}
	if value, _ := sm.GetStateData(ctx, sessionID, models.FlowKindCloseAccount, models.DataKeyDisplayWidget); value != "" {
		t.Errorf("records must be scoped by flow kind, got %q", value)
	}
}

func TestStoreBasedStateManagerRejectsBadTransitions(t *testing.T) {
	ctx := context.Background()
	sm := NewStoreBasedStateManager(store.NewInMemoryStore())
	sessionID, kind := "session-2", models.FlowKindCloseAccount

	if err := sm.TransitionState(ctx, sessionID, kind, models.StateMerging, models.StateFiltered); err == nil {
		t.Error("expected error when the recorded state differs from the from-state")
	}
	if err := sm.TransitionState(ctx, sessionID, kind, models.StateIdle, models.StatePublished); err == nil {
		t.Error("expected error for an illegal move")
	}
	if err := sm.TransitionState(ctx, sessionID, kind, models.StateIdle, models.StateEnded); err != nil {
		t.Errorf("any state may end: %v", err)
	}
	if err := sm.TransitionState(ctx, sessionID, kind, models.StateEnded, models.StateEnded); err == nil {
		t.Error("an ended session cannot end again")
	}
}

func TestStoreBasedStateManagerResetState(t *testing.T) {
	ctx := context.Background()
	sm := NewStoreBasedStateManager(store.NewInMemoryStore())
	sessionID, kind := "session-3", models.FlowKindAccountValidation

	if err := sm.SetCurrentState(ctx, sessionID, kind, models.StateFailed); err != nil {
		t.Fatalf("SetCurrentState failed: %v", err)
	}
	if err := sm.ResetState(ctx, sessionID, kind); err != nil {
		t.Fatalf("ResetState failed: %v", err)
	}
	state, _ := sm.GetCurrentState(ctx, sessionID, kind)
	if state != models.StateIdle {
		t.Errorf("expected %s after reset, got %s", models.StateIdle, state)
	}
}
