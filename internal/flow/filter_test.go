package flow

import (
	"testing"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/testutil"
)

func TestFilterKeepsOnlyDeclaredFields(t *testing.T) {
	doc := testutil.SampleDocument(models.WidgetTypeCloseAccount, []string{"accountNumber"})
	data := models.FlatDataSet{
		"CPCloseAccountWidget.accountNumber": "1",
		"CPCloseAccountWidget.reason":        "moving",
		"noWidgetPrefix":                     "x",
	}
	got := Filter(data, &doc.MainScreen)
	testutil.AssertDataSetEquals(t, models.FlatDataSet{"CPCloseAccountWidget.accountNumber": "1"}, got, "filter")
	if len(data) != 3 {
		t.Error("Filter must not modify its input")
	}
}

func TestFilterMatchesFieldsOfAnyWidget(t *testing.T) {
	terms := models.Widget{
		Type: models.WidgetTypeEnrollmentTermsConditions,
		Fields: []models.FieldConfiguration{{
			ID:     "agreement",
			Fields: []models.FieldConfiguration{{ID: "pin"}},
		}},
	}
	doc := testutil.SampleDocument(models.WidgetTypeEnrollmentAccountDetails, []string{"firstName"}, terms)
	got := Filter(models.FlatDataSet{
		"CPEnrollmentAccountDetailsWidget.firstName": "Ada",
		"CPEnrollmentTAndCWidget.pin":                "1234",
		"CPEnrollmentTAndCWidget.agreement":          "yes",
	}, &doc.MainScreen)

	testutil.AssertDataSetEquals(t, models.FlatDataSet{
		"CPEnrollmentAccountDetailsWidget.firstName": "Ada",
		"CPEnrollmentTAndCWidget.pin":                "1234",
	}, got, "nested and cross-widget fields")
}

func TestFilterIndexedKeys(t *testing.T) {
	doc := testutil.SampleDocument(models.WidgetTypeUpdatePersonalInformation, []string{"phone[0].number", "userPhone[0].type"})
	got := Filter(models.FlatDataSet{
		"CPUpdatePersonalInformationWidget.phone[0].number":   "555",
		"CPUpdatePersonalInformationWidget.phone[1].number":   "556",
		"CPUpdatePersonalInformationWidget.userPhone[0].type": "home",
	}, &doc.MainScreen)
	if len(got) != 2 {
		t.Errorf("expected two indexed keys to survive, got %v", got)
	}
}

func TestFilterIsIdempotent(t *testing.T) {
	doc := testutil.SampleDocument(models.WidgetTypeManualDeposit, []string{"accountNumber", "firstDepositedAmount"})
	data := models.FlatDataSet{
		"CPManualDepositWidget.accountNumber":         "1",
		"CPManualDepositWidget.firstDepositedAmount":  "0.50",
		"CPManualDepositWidget.secondDepositedAmount": "0.07",
	}
	once := Filter(data, &doc.MainScreen)
	twice := Filter(once, &doc.MainScreen)
	testutil.AssertDataSetEquals(t, once, twice, "idempotence")
}

func TestFilterNilScreenDropsEverything(t *testing.T) {
	if got := Filter(models.FlatDataSet{"A.b": "c"}, nil); len(got) != 0 {
		t.Errorf("expected empty result, got %v", got)
	}
}

func TestMergeFetchedWins(t *testing.T) {
	configured := models.FlatDataSet{"W.firstName": "Ada", "W.city": "London"}
	fetched := models.FlatDataSet{"W.firstName": "Augusta", "W.accountStatus": "ACTIVE"}
	got := Merge(configured, fetched)

	testutil.AssertDataSetEquals(t, models.FlatDataSet{
		"W.firstName":     "Augusta",
		"W.city":          "London",
		"W.accountStatus": "ACTIVE",
	}, got, "merge")
	if configured["W.firstName"] != "Ada" || len(fetched) != 2 {
		t.Error("Merge must not modify its inputs")
	}
}

func TestMergeWithNilFetched(t *testing.T) {
	configured := models.FlatDataSet{"W.a": "1"}
	got := Merge(configured, nil)
	testutil.AssertDataSetEquals(t, configured, got, "nil fetched")
}
