// Package models defines the caller-supplied configuration objects for each flow.
package models

import (
	"errors"
	"strings"
)

// Environment selects the gateway the SDK talks to.
type Environment string

const (
	EnvironmentQA   Environment = "qa"
	EnvironmentCAT  Environment = "cat"
	EnvironmentProd Environment = "prod"
)

// BaseURL returns the gateway base URL for the environment. Unknown values
// fall back to QA.
func (e Environment) BaseURL() string {
	switch e {
	case EnvironmentCAT:
		return "https://cat.api.firstdata.com/gateway/v2/connectpay"
	case EnvironmentProd:
		return "https://prod.api.firstdata.com/gateway/v2/connectpay"
	default:
		return "https://qa.api.firstdata.com/gateway/v2/connectpay"
	}
}

// ParseEnvironment maps a case-insensitive name to an Environment.
func ParseEnvironment(s string) (Environment, error) {
	switch Environment(strings.ToLower(strings.TrimSpace(s))) {
	case "", EnvironmentQA:
		return EnvironmentQA, nil
	case EnvironmentCAT:
		return EnvironmentCAT, nil
	case EnvironmentProd:
		return EnvironmentProd, nil
	default:
		return "", ErrInvalidEnvironment
	}
}

// Error variables for configuration construction.
var (
	ErrInvalidEnvironment   = errors.New("invalid environment")
	ErrMissingCustomerID    = errors.New("customer id is required")
	ErrMissingEncryptionKey = errors.New("encryption key is required")
	ErrMissingAccessToken   = errors.New("access token is required")
	ErrMissingConfigID      = errors.New("config id is required")
	ErrMissingPostURL       = errors.New("post url is required")
	ErrMissingAccountNumber = errors.New("account number is required")
)

// SDKConfiguration carries the host-issued values every flow needs to reach the gateway.
type SDKConfiguration struct {
	CustomerID    string      `json:"fdCustomerId"`
	EncryptionKey string      `json:"encryptionKey"`
	AccessToken   string      `json:"accessToken"`
	ConfigID      string      `json:"configId"` // page id on the configuration service
	PostURL       string      `json:"postUrl"`
	Environment   Environment `json:"environment,omitempty"`
	Locale        string      `json:"locale,omitempty"`
}

// NewSDKConfiguration builds a validated SDKConfiguration.
func NewSDKConfiguration(customerID, encryptionKey, accessToken, configID, postURL string) (*SDKConfiguration, error) {
	c := &SDKConfiguration{
		CustomerID:    customerID,
		EncryptionKey: encryptionKey,
		AccessToken:   accessToken,
		ConfigID:      configID,
		PostURL:       postURL,
		Environment:   EnvironmentQA,
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks that all identifiers are present.
func (c *SDKConfiguration) Validate() error {
	if c == nil {
		return ErrInvalidConfiguration
	}
	switch {
	case c.CustomerID == "":
		return ErrMissingCustomerID
	case c.EncryptionKey == "":
		return ErrMissingEncryptionKey
	case c.AccessToken == "":
		return ErrMissingAccessToken
	case c.ConfigID == "":
		return ErrMissingConfigID
	case c.PostURL == "":
		return ErrMissingPostURL
	}
	return nil
}

// Credentials is the per-session copy of what the fetch collaborators need.
// It is zeroed when the session ends.
type Credentials struct {
	APIKey        string
	CustomerID    string
	EncryptionKey string
	AccessToken   string
	ConfigID      string
	PostURL       string
	Environment   Environment
}

// Credentials derives session credentials from the SDK configuration.
func (c *SDKConfiguration) Credentials(apiKey string) Credentials {
	return Credentials{
		APIKey:        apiKey,
		CustomerID:    c.CustomerID,
		EncryptionKey: c.EncryptionKey,
		AccessToken:   c.AccessToken,
		ConfigID:      c.ConfigID,
		PostURL:       c.PostURL,
		Environment:   c.Environment,
	}
}

// Clear wipes every credential value.
func (c *Credentials) Clear() {
	*c = Credentials{}
}

// FlowConfiguration is implemented by every typed per-flow configuration.
type FlowConfiguration interface {
	Validate() error
}

// String returns a pointer to s, for populating optional configuration fields.
func String(s string) *string {
	return &s
}

// CloseAccountConfiguration is the input for the close-account flow.
type CloseAccountConfiguration struct {
	AccountNumber string  `json:"accountNumber"`
	Reason        *string `json:"reason,omitempty"`
}

// NewCloseAccountConfiguration builds a CloseAccountConfiguration; the account number is required.
func NewCloseAccountConfiguration(accountNumber string, reason *string) (*CloseAccountConfiguration, error) {
	c := &CloseAccountConfiguration{AccountNumber: accountNumber, Reason: reason}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks the required account number.
func (c *CloseAccountConfiguration) Validate() error {
	if c == nil {
		return ErrInvalidConfiguration
	}
	if c.AccountNumber == "" {
		return ErrMissingAccountNumber
	}
	return nil
}

// PhoneNumberConfiguration is one entry of a repeated phone group.
type PhoneNumberConfiguration struct {
	ID          *string `json:"id,omitempty"`
	PhoneNumber *string `json:"phoneNumber,omitempty"`
	Type        *string `json:"type,omitempty"`
}

// SecurityQuestionConfiguration is carried for the host's benefit; it is not projected.
type SecurityQuestionConfiguration struct {
	ID       *string `json:"id,omitempty"`
	Question *string `json:"question,omitempty"`
	Answer   *string `json:"answer,omitempty"`
}

// EnrollmentConfiguration feeds the manual-enrollment, update-enrollment and
// account-details flows.
type EnrollmentConfiguration struct {
	RoutingNumber              *string                         `json:"routingNumber,omitempty"`
	AccountNumber              *string                         `json:"accountNumber,omitempty"`
	AccountType                *string                         `json:"accountType,omitempty"`
	OnlineBankTransactionID    *string                         `json:"onlineBankTransactionId,omitempty"`
	CardNumber                 *string                         `json:"cpCardNumber,omitempty"`
	FirstName                  *string                         `json:"firstName,omitempty"`
	LastName                   *string                         `json:"lastName,omitempty"`
	Email                      *string                         `json:"email,omitempty"`
	PhoneNumbers               []PhoneNumberConfiguration      `json:"phoneNumbers,omitempty"`
	StreetAddress              *string                         `json:"streetAddress,omitempty"`
	ApartmentNumber            *string                         `json:"apartmentNumber,omitempty"`
	City                       *string                         `json:"city,omitempty"`
	State                      *string                         `json:"state,omitempty"`
	ZipCode                    *string                         `json:"zipCode,omitempty"`
	DriversLicense             *string                         `json:"driversLicense,omitempty"`
	DriversLicenseIssuingState *string                         `json:"driversLicenseIssuingState,omitempty"`
	SSN                        *string                         `json:"ssn,omitempty"`
	Gender                     *string                         `json:"gender,omitempty"`
	DOB                        *string                         `json:"dob,omitempty"`
	PIN                        *string                         `json:"pin,omitempty"`
	NewPIN                     *string                         `json:"newPin,omitempty"`
	MemberSince                *string                         `json:"memberSince,omitempty"`
	SecurityQuestions          []SecurityQuestionConfiguration `json:"securityQuestions,omitempty"`
	GenericFlag1               *string                         `json:"genericFlag1,omitempty"`
	GenericFlag2               *string                         `json:"genericFlag2,omitempty"`
	GenericFlag3               *string                         `json:"genericFlag3,omitempty"`
	GenericCode1               *string                         `json:"genericCode1,omitempty"`
	GenericCode2               *string                         `json:"genericCode2,omitempty"`
	GenericCode3               *string                         `json:"genericCode3,omitempty"`
	ReportingField1            *string                         `json:"reportingField1,omitempty"`
	ReportingField2            *string                         `json:"reportingField2,omitempty"`
	ReportingField3            *string                         `json:"reportingField3,omitempty"`
}

// Validate always succeeds; enrollment fields are validated server-side.
func (c *EnrollmentConfiguration) Validate() error { return nil }

// DepositConfiguration is the input for the micro-deposit verification flow.
type DepositConfiguration struct {
	AccountNumber         *string `json:"accountNumber,omitempty"`
	FirstDepositedAmount  *string `json:"firstDepositedAmount,omitempty"`
	SecondDepositedAmount *string `json:"secondDepositedAmount,omitempty"`
}

// Validate always succeeds.
func (c *DepositConfiguration) Validate() error { return nil }

// AccountValidationConfiguration is the input for the account-validation flow.
type AccountValidationConfiguration struct {
	CardNumber *string `json:"cpCardNumber,omitempty"`
	PIN        *string `json:"pin,omitempty"`
}

// Validate always succeeds.
func (c *AccountValidationConfiguration) Validate() error { return nil }
