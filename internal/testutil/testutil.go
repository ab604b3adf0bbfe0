// Package testutil provides common test utilities and fakes for PayFlow tests.
package testutil

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// TestOrgID is the risk-engine org id carried by SampleDocument.
const TestOrgID = "org-123"

// Connectivity is a fixed connectivity probe.
type Connectivity struct {
	Connected bool
}

// IsConnected reports the fixed value.
func (c Connectivity) IsConnected(context.Context) bool { return c.Connected }

// ConfigurationStub serves a fixed configuration document or error. When
// Block is set, fetches wait until it is closed or the context ends.
type ConfigurationStub struct {
	Doc   *models.ConfigurationDocument
	Err   error
	Block chan struct{}
	calls atomic.Int32
}

// FetchConfiguration returns the stubbed document.
func (s *ConfigurationStub) FetchConfiguration(ctx context.Context, _ models.Credentials) (*models.ConfigurationDocument, error) {
	s.calls.Add(1)
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Doc, s.Err
}

// Calls returns how many fetches were made.
func (s *ConfigurationStub) Calls() int { return int(s.calls.Load()) }

// AccountDataStub serves a fixed raw account record or error. When Block is
// set, fetches wait until it is closed or the context ends.
type AccountDataStub struct {
	Body  []byte
	Err   error
	Block chan struct{}
	calls atomic.Int32
}

// FetchAccountData returns the stubbed body.
func (s *AccountDataStub) FetchAccountData(ctx context.Context, _ models.Credentials) ([]byte, error) {
	s.calls.Add(1)
	if s.Block != nil {
		select {
		case <-s.Block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.Body, s.Err
}

// Calls returns how many fetches were made.
func (s *AccountDataStub) Calls() int { return int(s.calls.Load()) }

// SampleDocument builds a configuration document whose display widget is
// widget and which declares fieldIDs on it. Additional widgets can be declared
// through extra.
func SampleDocument(widget models.WidgetType, fieldIDs []string, extra ...models.Widget) *models.ConfigurationDocument {
	fields := make([]models.FieldConfiguration, 0, len(fieldIDs))
	for _, id := range fieldIDs {
		fields = append(fields, models.FieldConfiguration{ID: id, Type: "text"})
	}
	widgets := map[models.WidgetType]models.Widget{
		widget: {Type: widget, Title: string(widget), Fields: fields},
	}
	for _, w := range extra {
		widgets[w.Type] = w
	}
	return &models.ConfigurationDocument{
		PageID: "page-1",
		MainScreen: models.ScreenConfiguration{
			DisplayWidgets: []models.DisplayWidgetGroup{{Widgets: []models.WidgetRef{{Type: widget}}}},
			Widgets:        widgets,
			LocalizedResources: []models.LocalizedResource{{
				Locale: "en_US",
				Strings: map[string]string{
					models.StringKeyErrorTitle:   "Something went wrong",
					models.StringKeyErrorMessage: "We could not load your account.",
					models.StringKeyDoneButton:   "Done",
				},
			}},
			ThreatMetrix: &models.ThreatMetrix{OrgID: TestOrgID},
		},
	}
}

// SampleSDKConfiguration returns a valid SDK configuration.
func SampleSDKConfiguration() *models.SDKConfiguration {
	return &models.SDKConfiguration{
		CustomerID:    "customer-1",
		EncryptionKey: "enc-key",
		AccessToken:   "access-token",
		ConfigID:      "page-1",
		PostURL:       "https://merchant.example/post",
		Environment:   models.EnvironmentQA,
		Locale:        "en_US",
	}
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		reqBody = bytes.NewBuffer(MustMarshalJSON(t, body))
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}

// AssertDataSetEquals compares two flat data sets key by key.
func AssertDataSetEquals(t *testing.T, expected, actual models.FlatDataSet, context string) {
	t.Helper()
	if len(expected) != len(actual) {
		t.Errorf("%s: expected %d keys, got %d\nexpected: %v\nactual: %v", context, len(expected), len(actual), expected, actual)
	}
	for k, v := range expected {
		got, ok := actual[k]
		if !ok {
			t.Errorf("%s: missing key %q", context, k)
			continue
		}
		if got != v {
			t.Errorf("%s: key %q expected %q, got %q", context, k, v, got)
		}
	}
	for k := range actual {
		if _, ok := expected[k]; !ok {
			t.Errorf("%s: unexpected key %q", context, k)
		}
	}
}

// MustMarshalJSON marshals an object to JSON and fails test on error.
func MustMarshalJSON(t *testing.T, v interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}
	return data
}

// MustUnmarshalJSON unmarshals JSON data into target and fails test on error.
func MustUnmarshalJSON(t *testing.T, data []byte, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(data, target); err != nil {
		t.Fatalf("failed to unmarshal JSON: %v", err)
	}
}
