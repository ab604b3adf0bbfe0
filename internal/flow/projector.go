// Package flow provides the per-kind field-path projections.
package flow

import (
	"fmt"
	"strings"

	"github.com/BTreeMap/PayFlow/internal/models"
)

func invalidConfiguration(want string, got models.FlowConfiguration) error {
	return fmt.Errorf("%w: expected %s, got %T", models.ErrInvalidConfiguration, want, got)
}

func enrollmentConfiguration(cfg models.FlowConfiguration) (*models.EnrollmentConfiguration, error) {
	c, ok := cfg.(*models.EnrollmentConfiguration)
	if !ok || c == nil {
		return nil, invalidConfiguration("*models.EnrollmentConfiguration", cfg)
	}
	return c, nil
}

func projectCloseAccount(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, ok := cfg.(*models.CloseAccountConfiguration)
	if !ok || c == nil {
		return nil, invalidConfiguration("*models.CloseAccountConfiguration", cfg)
	}
	w := target.Widget
	data := models.FlatDataSet{}
	data[models.FieldKey(w, "accountNumber")] = c.AccountNumber
	data.Set(models.FieldKey(w, "reason"), c.Reason)
	return data, nil
}

// projectEnrollmentCore emits the eighteen identity and account fields shared
// by every enrollment-shaped flow.
func projectEnrollmentCore(data models.FlatDataSet, c *models.EnrollmentConfiguration, w models.WidgetType) {
	data.Set(models.FieldKey(w, "routingNumber"), c.RoutingNumber)
	data.Set(models.FieldKey(w, "accountNumber"), c.AccountNumber)
	data.Set(models.FieldKey(w, "accountType"), c.AccountType)
	data.Set(models.FieldKey(w, "onlineBankTransactionId"), c.OnlineBankTransactionID)
	data.Set(models.FieldKey(w, "connectPayPaymentNumber"), c.CardNumber)
	data.Set(models.FieldKey(w, "firstName"), c.FirstName)
	data.Set(models.FieldKey(w, "lastName"), c.LastName)
	data.Set(models.FieldKey(w, "email"), c.Email)
	data.Set(models.FieldKey(w, "street"), c.StreetAddress)
	data.Set(models.FieldKey(w, "street2"), c.ApartmentNumber)
	data.Set(models.FieldKey(w, "city"), c.City)
	data.Set(models.FieldKey(w, "state"), c.State)
	data.Set(models.FieldKey(w, "postalCode"), c.ZipCode)
	data.Set(models.FieldKey(w, "driversLicense"), c.DriversLicense)
	data.Set(models.FieldKey(w, "driversLicenseIssuingState"), c.DriversLicenseIssuingState)
	data.Set(models.FieldKey(w, "ssn"), c.SSN)
	data.Set(models.FieldKey(w, "gender"), c.Gender)
	data.Set(models.FieldKey(w, "dob"), c.DOB)
}

func projectPhoneNumbers(data models.FlatDataSet, phones []models.PhoneNumberConfiguration, w models.WidgetType) {
	for i, p := range phones {
		data.Set(models.FieldKey(w, fmt.Sprintf("phone[%d].number", i)), p.PhoneNumber)
		data.Set(models.FieldKey(w, fmt.Sprintf("phone[%d].type", i)), p.Type)
	}
}

func projectManualEnrollment(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, err := enrollmentConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	w := target.Widget
	data := models.FlatDataSet{}
	projectEnrollmentCore(data, c, w)
	data.Set(models.FieldKey(w, "organizationId"), target.OrganizationID)
	data.Set(models.FieldKey(w, "memberSince"), c.MemberSince)
	// The PIN is always entered on the terms-and-conditions widget.
	data.Set(models.FieldKey(models.WidgetTypeEnrollmentTermsConditions, "pin"), c.PIN)
	data.Set(models.FieldKey(w, "genericFlag1"), c.GenericFlag1)
	data.Set(models.FieldKey(w, "genericFlag2"), c.GenericFlag2)
	data.Set(models.FieldKey(w, "genericFlag3"), c.GenericFlag3)
	data.Set(models.FieldKey(w, "genericCode1"), c.GenericCode1)
	data.Set(models.FieldKey(w, "genericCode2"), c.GenericCode2)
	data.Set(models.FieldKey(w, "genericCode3"), c.GenericCode3)
	data.Set(models.FieldKey(w, "reportingField1"), c.ReportingField1)
	data.Set(models.FieldKey(w, "reportingField2"), c.ReportingField2)
	data.Set(models.FieldKey(w, "reportingField3"), c.ReportingField3)
	projectPhoneNumbers(data, c.PhoneNumbers, w)
	return data, nil
}

func projectUpdateEnrollment(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, err := enrollmentConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	w := target.Widget
	data := models.FlatDataSet{}
	projectEnrollmentCore(data, c, w)
	// Update enrollment keeps both PINs on its own widget.
	data.Set(models.FieldKey(w, "pin"), c.PIN)
	data.Set(models.FieldKey(w, "pinNew"), c.NewPIN)
	data.Set(models.FieldKey(w, "organizationId"), target.OrganizationID)
	projectPhoneNumbers(data, c.PhoneNumbers, w)
	return data, nil
}

func projectAccountDetails(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, err := enrollmentConfiguration(cfg)
	if err != nil {
		return nil, err
	}
	w := target.Widget
	data := models.FlatDataSet{}
	projectEnrollmentCore(data, c, w)
	data.Set(models.FieldKey(models.WidgetTypeEnrollmentTermsConditions, "pin"), c.PIN)
	data.Set(models.FieldKey(w, "organizationId"), target.OrganizationID)
	projectPhoneNumbers(data, c.PhoneNumbers, w)
	return data, nil
}

// FormatDepositAmount turns a bare cents string into a decimal amount: "50"
// becomes "0.50". Values that already carry a decimal point, and the empty
// string, are returned unchanged.
func FormatDepositAmount(amount string) string {
	if amount == "" || strings.Contains(amount, ".") {
		return amount
	}
	cents := []rune(amount)
	if len(cents) > 2 {
		cents = cents[:2]
	}
	return "0." + string(cents)
}

func projectDeposit(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, ok := cfg.(*models.DepositConfiguration)
	if !ok || c == nil {
		return nil, invalidConfiguration("*models.DepositConfiguration", cfg)
	}
	w := target.Widget
	data := models.FlatDataSet{}
	data.Set(models.FieldKey(w, "accountNumber"), c.AccountNumber)
	if c.FirstDepositedAmount != nil {
		data[models.FieldKey(w, "firstDepositedAmount")] = FormatDepositAmount(*c.FirstDepositedAmount)
	}
	if c.SecondDepositedAmount != nil {
		data[models.FieldKey(w, "secondDepositedAmount")] = FormatDepositAmount(*c.SecondDepositedAmount)
	}
	return data, nil
}

func projectAccountValidation(cfg models.FlowConfiguration, target Target) (models.FlatDataSet, error) {
	c, ok := cfg.(*models.AccountValidationConfiguration)
	if !ok || c == nil {
		return nil, invalidConfiguration("*models.AccountValidationConfiguration", cfg)
	}
	w := target.Widget
	data := models.FlatDataSet{}
	data.Set(models.FieldKey(w, "connectPayPaymentNumber"), c.CardNumber)
	data.Set(models.FieldKey(w, "pin"), c.PIN)
	return data, nil
}
