// Package flow defines the collaborators a flow session drives.
package flow

import (
	"context"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// StateManager defines the interface for managing session state records.
type StateManager interface {
	// GetCurrentState retrieves the current state of a session
	GetCurrentState(ctx context.Context, sessionID string, kind models.FlowKind) (models.StateType, error)

	// SetCurrentState updates the current state of a session
	SetCurrentState(ctx context.Context, sessionID string, kind models.FlowKind, state models.StateType) error

	// GetStateData retrieves metadata recorded next to the session state
	GetStateData(ctx context.Context, sessionID string, kind models.FlowKind, key models.DataKey) (string, error)

	// SetStateData stores metadata next to the session state
	SetStateData(ctx context.Context, sessionID string, kind models.FlowKind, key models.DataKey, value string) error

	// TransitionState moves a session from one state to another
	TransitionState(ctx context.Context, sessionID string, kind models.FlowKind, fromState, toState models.StateType) error

	// ResetState removes the record of a session
	ResetState(ctx context.Context, sessionID string, kind models.FlowKind) error
}

// ConnectivityChecker is the reachability probe consulted once before any fetch.
type ConnectivityChecker interface {
	IsConnected(ctx context.Context) bool
}

// ConfigurationFetcher retrieves the screen schema for a session.
type ConfigurationFetcher interface {
	FetchConfiguration(ctx context.Context, creds models.Credentials) (*models.ConfigurationDocument, error)
}

// AccountDataFetcher retrieves the raw prior account record for update enrollment.
type AccountDataFetcher interface {
	FetchAccountData(ctx context.Context, creds models.Credentials) ([]byte, error)
}

// Publication is what the presentation layer receives once a data set is ready.
type Publication struct {
	SessionID string             `json:"session_id"`
	Kind      models.FlowKind    `json:"flow_kind"`
	Widget    models.WidgetType  `json:"widget"`
	Schema    models.Widget      `json:"schema"`
	Data      models.FlatDataSet `json:"data"`
	Strings   map[string]string  `json:"strings,omitempty"`
}

// ResultScreen asks the presentation layer to show a final result page.
type ResultScreen struct {
	SessionID   string        `json:"session_id"`
	Title       string        `json:"title,omitempty"`
	Message     string        `json:"message,omitempty"`
	ButtonTitle string        `json:"button_title,omitempty"`
	Success     bool          `json:"success"`
	Result      models.Result `json:"result,omitempty"`
}

// Alert asks the presentation layer to show a modal error.
type Alert struct {
	SessionID string `json:"session_id"`
	Title     string `json:"title"`
	Message   string `json:"message"`
}

// Presenter renders what the engine publishes.
type Presenter interface {
	Present(ctx context.Context, pub Publication) error
	PresentResult(ctx context.Context, screen ResultScreen)
	PresentAlert(ctx context.Context, alert Alert)
}

// FetchError is returned by fetch collaborators when the server answered with
// a result mapping that should reach the caller verbatim.
type FetchError struct {
	Result models.Result
	Err    error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "fetch failed"
	}
	return e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

// Dependencies holds all collaborators injected into a Flow.
type Dependencies struct {
	APIKey        string
	Connectivity  ConnectivityChecker
	Configuration ConfigurationFetcher
	AccountData   AccountDataFetcher
	Presenter     Presenter
	StateManager  StateManager // optional
	Metrics       *Metrics     // optional
}
