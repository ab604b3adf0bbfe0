package models

import "fmt"

// Result is the mapping delivered verbatim to a session's completion callback.
type Result map[string]any

// Keys of the status quadruple carried by a Result.
const (
	ResultKeyStatus            = "transactionStatus"
	ResultKeyStatusCode        = "transactionStatusCode"
	ResultKeyStatusDescription = "transactionStatusDescription"
	ResultKeyResponseVerbiage  = "responseVerbiage"
)

// TransactionStatusError is the status reported for every client-side failure.
const TransactionStatusError = "ERROR"

// ErrorCode is the machine-readable status code of a client-side failure.
type ErrorCode int

const (
	ErrorCodeNetwork              ErrorCode = 900
	ErrorCodeConfigurationFetch   ErrorCode = 901
	ErrorCodeAccountDataFetch     ErrorCode = 902
	ErrorCodeInvalidConfiguration ErrorCode = 903
)

// Message returns the human-readable verbiage for the code.
func (c ErrorCode) Message() string {
	switch c {
	case ErrorCodeNetwork:
		return "No network connection. Please check your connection and try again."
	case ErrorCodeConfigurationFetch:
		return "Unable to load the configuration. Please try again later."
	case ErrorCodeAccountDataFetch:
		return "Unable to retrieve account details. Please try again later."
	case ErrorCodeInvalidConfiguration:
		return "Invalid Configuration"
	default:
		return fmt.Sprintf("error %d", int(c))
	}
}

// ErrorResult builds the failure mapping for code.
func ErrorResult(code ErrorCode) Result {
	return Result{
		ResultKeyStatus:            TransactionStatusError,
		ResultKeyStatusCode:        int(code),
		ResultKeyStatusDescription: code.Message(),
		ResultKeyResponseVerbiage:  code.Message(),
	}
}

// HasStatus reports whether the mapping carries a transaction status.
func (r Result) HasStatus() bool {
	if r == nil {
		return false
	}
	_, ok := r[ResultKeyStatus]
	return ok
}

// StatusCode returns the status code as a string, whatever its JSON type.
func (r Result) StatusCode() string {
	if r == nil {
		return ""
	}
	v, ok := r[ResultKeyStatusCode]
	if !ok || v == nil {
		return ""
	}
	switch n := v.(type) {
	case float64:
		if n == float64(int64(n)) {
			return fmt.Sprintf("%d", int64(n))
		}
	}
	return fmt.Sprint(v)
}
