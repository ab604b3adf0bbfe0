package models

import (
	"encoding/json"
	"fmt"
)

// NewFlowConfiguration returns an empty typed configuration for kind.
func NewFlowConfiguration(kind FlowKind) (FlowConfiguration, error) {
	switch kind {
	case FlowKindCloseAccount:
		return &CloseAccountConfiguration{}, nil
	case FlowKindManualEnrollment, FlowKindUpdateEnrollment, FlowKindAccountDetails:
		return &EnrollmentConfiguration{}, nil
	case FlowKindDeposit:
		return &DepositConfiguration{}, nil
	case FlowKindAccountValidation:
		return &AccountValidationConfiguration{}, nil
	default:
		return nil, ErrInvalidFlowKind
	}
}

// DecodeFlowConfiguration decodes raw JSON into the typed configuration for
// kind and validates it.
func DecodeFlowConfiguration(kind FlowKind, raw json.RawMessage) (FlowConfiguration, error) {
	cfg, err := NewFlowConfiguration(kind)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrInvalidConfiguration
	}
	if err := json.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfiguration, err)
	}
	return cfg, nil
}
