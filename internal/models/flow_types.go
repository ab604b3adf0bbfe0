// Package models defines flow type definitions to avoid circular imports.
package models

// FlowKind identifies one of the supported bank-account journeys.
type FlowKind string

// StateType represents a specific state within a flow session.
type StateType string

// DataKey represents a key for storing session metadata alongside a state record.
type DataKey string

// WidgetType is the server-side name of a widget. It doubles as the leading
// segment of every FieldKey projected for that widget.
type WidgetType string

// Flow kind constants.
const (
	FlowKindCloseAccount      FlowKind = "closeAccount"
	FlowKindManualEnrollment  FlowKind = "manualEnrollment"
	FlowKindUpdateEnrollment  FlowKind = "updateEnrollment"
	FlowKindDeposit           FlowKind = "deposit"
	FlowKindAccountValidation FlowKind = "accountValidation"
	FlowKindAccountDetails    FlowKind = "accountDetails"
)

// FlowKinds lists every supported flow kind in a stable order.
var FlowKinds = []FlowKind{
	FlowKindCloseAccount,
	FlowKindManualEnrollment,
	FlowKindUpdateEnrollment,
	FlowKindDeposit,
	FlowKindAccountValidation,
	FlowKindAccountDetails,
}

// IsValidFlowKind checks if the given flow kind is supported.
func IsValidFlowKind(kind FlowKind) bool {
	for _, k := range FlowKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Widget type constants as delivered by the configuration service.
const (
	WidgetTypeNone                      WidgetType = "None"
	WidgetTypeCloseAccount              WidgetType = "CPCloseAccountWidget"
	WidgetTypeManualDeposit             WidgetType = "CPManualDepositWidget"
	WidgetTypeAccountValidation         WidgetType = "CPAccountValidationWidget"
	WidgetTypeEnrollmentAccountDetails  WidgetType = "CPEnrollmentAccountDetailsWidget"
	WidgetTypeEnrollmentTermsConditions WidgetType = "CPEnrollmentTAndCWidget"
	WidgetTypeUpdatePersonalInformation WidgetType = "CPUpdatePersonalInformationWidget"
)

// Session state constants.
const (
	StateIdle                  StateType = "IDLE"
	StateFetchingConfiguration StateType = "FETCHING_CONFIGURATION"
	StateFetchingAccountData   StateType = "FETCHING_ACCOUNT_DATA"
	StateMerging               StateType = "MERGING"
	StateFiltered              StateType = "FILTERED"
	StatePublished             StateType = "PUBLISHED"
	StateFailed                StateType = "FAILED"
	StateEnded                 StateType = "ENDED"
)

// Data key constants recorded next to a session state. Field values and
// credentials are never stored under these keys.
const (
	DataKeyDisplayWidget  DataKey = "displayWidget"
	DataKeyPublishedKeys  DataKey = "publishedKeys"
	DataKeyStatusCode     DataKey = "statusCode"
	DataKeyFailureReason  DataKey = "failureReason"
	DataKeyConfigID       DataKey = "configId"
	DataKeyFetchedAccount DataKey = "fetchedAccount"
)

// transitions enumerates the legal forward moves of a session. Any state may
// additionally move to StateEnded when a stop signal arrives.
var transitions = map[StateType][]StateType{
	StateIdle:                  {StateFetchingConfiguration, StateFailed},
	StateFetchingConfiguration: {StateFetchingAccountData, StateMerging, StateFailed},
	StateFetchingAccountData:   {StateMerging, StateFailed},
	StateMerging:               {StateFiltered, StateFailed},
	StateFiltered:              {StatePublished, StateFailed},
	StatePublished:             {},
	StateFailed:                {},
}

// IsValidTransition reports whether a session may move from one state to another.
func IsValidTransition(from, to StateType) bool {
	if to == StateEnded {
		return from != StateEnded
	}
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further forward transition exists from state.
func IsTerminal(state StateType) bool {
	return state == StateFailed || state == StateEnded
}
