// Package models defines state management structures for PayFlow sessions.
package models

import "time"

// FlowState is the persisted lifecycle record of one flow session.
type FlowState struct {
	SessionID    string             `json:"session_id"`
	FlowKind     FlowKind           `json:"flow_kind"`
	CurrentState StateType          `json:"current_state"`
	StateData    map[DataKey]string `json:"state_data,omitempty"` // non-sensitive session metadata
	CreatedAt    time.Time          `json:"created_at"`
	UpdatedAt    time.Time          `json:"updated_at"`
}
