// Package flow provides the projection of fetched account records.
package flow

import (
	"fmt"
	"log/slog"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/tidwall/gjson"
)

// PostalCodeLength is the number of characters kept from a fetched postal code.
const PostalCodeLength = 5

// FetchedWidget is the widget type every fetched account key is scoped to.
const FetchedWidget = models.WidgetTypeUpdatePersonalInformation

// ProjectAccountRecord flattens the first entry of the "account" array of an
// account-data response. A response without a non-empty account array is a
// soft failure reported as ErrAccountDataFetchFailed.
func ProjectAccountRecord(raw []byte) (models.FlatDataSet, error) {
	if !gjson.ValidBytes(raw) {
		return nil, fmt.Errorf("%w: malformed account response", models.ErrAccountDataFetchFailed)
	}
	accounts := gjson.GetBytes(raw, "account")
	if !accounts.IsArray() {
		return nil, fmt.Errorf("%w: response has no account array", models.ErrAccountDataFetchFailed)
	}
	list := accounts.Array()
	if len(list) == 0 || !list[0].IsObject() {
		return nil, fmt.Errorf("%w: account array is empty", models.ErrAccountDataFetchFailed)
	}
	account := list[0]

	w := FetchedWidget
	data := models.FlatDataSet{}

	if phones := account.Get("userPhone"); phones.IsArray() {
		for i, phone := range phones.Array() {
			for _, sub := range []string{"number", "type", "primary"} {
				if v := phone.Get(sub); v.Exists() {
					data[models.FieldKey(w, fmt.Sprintf("userPhone[%d].%s", i, sub))] = v.String()
				}
			}
		}
	}

	for _, key := range []string{"accountStatus", "accountStatusDesc"} {
		if v := account.Get(key); v.Type == gjson.String {
			data[models.FieldKey(w, key)] = v.Str
		}
	}

	account.ForEach(func(section, value gjson.Result) bool {
		if section.String() == "userPhone" || !value.IsObject() {
			return true
		}
		value.ForEach(func(k, v gjson.Result) bool {
			if v.Type != gjson.String || v.Str == "" {
				return true
			}
			val := v.Str
			if k.String() == "postalCode" {
				val = truncateRunes(val, PostalCodeLength)
			}
			data[models.FieldKey(w, k.String())] = val
			return true
		})
		return true
	})

	slog.Debug("Flow ProjectAccountRecord succeeded", "keys", len(data))
	return data, nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
