package presenter

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/BTreeMap/PayFlow/internal/flow"
	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/fatih/color"
)

func TestRecorderKeepsPerSessionViews(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()

	pub := flow.Publication{
		SessionID: "s1",
		Kind:      models.FlowKindDeposit,
		Widget:    models.WidgetTypeManualDeposit,
		Data:      models.FlatDataSet{"CPManualDepositWidget.accountNumber": "123"},
	}
	if err := r.Present(ctx, pub); err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	pub.Data["CPManualDepositWidget.accountNumber"] = "mutated"

	r.PresentAlert(ctx, flow.Alert{SessionID: "s2", Title: "Error", Message: "Invalid Configuration"})
	r.PresentResult(ctx, flow.ResultScreen{SessionID: "s2", Title: "Oops"})

	v, ok := r.View("s1")
	if !ok || v.Publication == nil {
		t.Fatalf("expected publication for s1, got %+v", v)
	}
	if v.Publication.Data["CPManualDepositWidget.accountNumber"] != "123" {
		t.Error("publication data must be copied on record")
	}

	v2, _ := r.View("s2")
	if len(v2.Alerts) != 1 || v2.Result == nil || v2.Result.Title != "Oops" {
		t.Errorf("unexpected view for s2: %+v", v2)
	}

	r.Forget("s1")
	if _, ok := r.View("s1"); ok {
		t.Error("expected s1 to be forgotten")
	}
}

func TestTerminalMasksSensitiveValues(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	err := term.Present(context.Background(), flow.Publication{
		Kind:   models.FlowKindAccountValidation,
		Widget: models.WidgetTypeAccountValidation,
		Data: models.FlatDataSet{
			"CPAccountValidationWidget.connectPayPaymentNumber": "4111111111111111",
			"CPAccountValidationWidget.pin":                     "1234",
			"CPAccountValidationWidget.firstName":               "Ada",
		},
	})
	if err != nil {
		t.Fatalf("Present failed: %v", err)
	}
	out := buf.String()
	if strings.Contains(out, "4111111111111111") || !strings.Contains(out, "************1111") {
		t.Errorf("payment number not masked:\n%s", out)
	}
	if !strings.Contains(out, "CPAccountValidationWidget.pin = ****") {
		t.Errorf("pin not masked:\n%s", out)
	}
	if !strings.Contains(out, "firstName = Ada") {
		t.Errorf("non-sensitive value missing:\n%s", out)
	}
}

func TestTerminalResultAndAlert(t *testing.T) {
	color.NoColor = true
	var buf bytes.Buffer
	term := NewTerminal(&buf)
	term.PresentAlert(context.Background(), flow.Alert{Title: "Error", Message: "Invalid Configuration"})
	term.PresentResult(context.Background(), flow.ResultScreen{
		Title:       "Something went wrong",
		ButtonTitle: "Done",
		Result:      models.ErrorResult(models.ErrorCodeAccountDataFetch),
	})
	out := buf.String()
	for _, want := range []string{"Error: Invalid Configuration", "Something went wrong", "transactionStatusCode: 902", "[Done]"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRecorderRedactMasksRetainedPublication(t *testing.T) {
	r := NewRecorder()
	ctx := context.Background()
	r.Present(ctx, flow.Publication{
		SessionID: "s1",
		Widget:    models.WidgetTypeCloseAccount,
		Data: models.FlatDataSet{
			"CPCloseAccountWidget.accountNumber": "123456789",
			"CPCloseAccountWidget.reason":        "moving",
		},
	})
	before, _ := r.View("s1")

	r.Redact("s1")
	r.Redact("unknown")

	v, ok := r.View("s1")
	if !ok {
		t.Fatal("a redacted session stays queryable")
	}
	if got := v.Publication.Data["CPCloseAccountWidget.accountNumber"]; got != "*****6789" {
		t.Errorf("account number = %q, want *****6789", got)
	}
	if got := v.Publication.Data["CPCloseAccountWidget.reason"]; got != "moving" {
		t.Errorf("reason = %q, want moving", got)
	}
	if before.Publication.Data["CPCloseAccountWidget.accountNumber"] != "123456789" {
		t.Error("views handed out earlier must not change")
	}
}

func TestMaskValue(t *testing.T) {
	tests := []struct {
		key, value, want string
	}{
		{"CPCloseAccountWidget.accountNumber", "42345", "*2345"},
		{"CPUpdatePersonalInformationWidget.ssn", "123456789", "*****6789"},
		{"pin", "12", "**"},
		{"CPAccountValidationWidget.connectPayPaymentNumber", "4111", "****"},
		{"CPCloseAccountWidget.reason", "moving", "moving"},
		{"CPEnrollmentTAndCWidget.newPin", "9876", "****"},
	}
	for _, tt := range tests {
		if got := MaskValue(tt.key, tt.value); got != tt.want {
			t.Errorf("MaskValue(%q, %q) = %q, want %q", tt.key, tt.value, got, tt.want)
		}
	}
	if MaskDataSet(nil) != nil {
		t.Error("masking a nil data set yields nil")
	}
}
