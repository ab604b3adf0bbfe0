package testutil

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
)

func TestSampleDocument(t *testing.T) {
	doc := SampleDocument(models.WidgetTypeCloseAccount, []string{"accountNumber", "reason"},
		models.Widget{Type: models.WidgetTypeEnrollmentTermsConditions, Fields: []models.FieldConfiguration{{ID: "pin"}}})

	widget, ok := doc.MainScreen.DisplayWidgetType()
	if !ok || widget != models.WidgetTypeCloseAccount {
		t.Fatalf("display widget = %q, %v", widget, ok)
	}
	if got := len(doc.MainScreen.Widgets[widget].FlatFields()); got != 2 {
		t.Errorf("expected 2 fields, got %d", got)
	}
	if _, ok := doc.MainScreen.Widgets[models.WidgetTypeEnrollmentTermsConditions]; !ok {
		t.Error("expected extra widget to be declared")
	}
	if org := doc.MainScreen.OrganizationID(); org == nil || *org != TestOrgID {
		t.Errorf("organization id = %v", org)
	}
	if err := SampleSDKConfiguration().Validate(); err != nil {
		t.Errorf("sample SDK configuration invalid: %v", err)
	}
}

func TestConfigurationStubBlocksUntilReleased(t *testing.T) {
	stub := &ConfigurationStub{Doc: SampleDocument(models.WidgetTypeManualDeposit, nil), Block: make(chan struct{})}
	done := make(chan error, 1)
	go func() {
		_, err := stub.FetchConfiguration(context.Background(), models.Credentials{})
		done <- err
	}()

	select {
	case <-done:
		t.Fatal("fetch returned before release")
	case <-time.After(20 * time.Millisecond):
	}
	close(stub.Block)
	if err := <-done; err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if stub.Calls() != 1 {
		t.Errorf("expected 1 call, got %d", stub.Calls())
	}
}

func TestConfigurationStubHonorsContext(t *testing.T) {
	stub := &ConfigurationStub{Block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stub.FetchConfiguration(ctx, models.Credentials{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestAccountDataStub(t *testing.T) {
	stub := &AccountDataStub{Body: []byte(`{}`)}
	body, err := stub.FetchAccountData(context.Background(), models.Credentials{})
	if err != nil || string(body) != "{}" || stub.Calls() != 1 {
		t.Errorf("unexpected stub result %q, %v, calls=%d", body, err, stub.Calls())
	}
}

func TestAccountDataStubHonorsContext(t *testing.T) {
	stub := &AccountDataStub{Body: []byte(`{}`), Block: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := stub.FetchAccountData(ctx, models.Credentials{}); !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestCreateHTTPRequest(t *testing.T) {
	req := CreateHTTPRequest(t, "POST", "/flows/deposit/sessions", map[string]string{"key": "value"})
	if req.Method != "POST" || req.URL.Path != "/flows/deposit/sessions" {
		t.Errorf("unexpected request %s %s", req.Method, req.URL.Path)
	}
}

func TestAssertJSONResponse(t *testing.T) {
	rr := httptest.NewRecorder()
	rr.Body.WriteString(`{"status":"ok","result":{"a":1}}`)
	response := AssertJSONResponse(t, rr, "ok")
	if response["result"] == nil {
		t.Error("expected result field")
	}
}
