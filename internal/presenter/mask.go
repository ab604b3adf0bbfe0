package presenter

import (
	"strings"

	"github.com/BTreeMap/PayFlow/internal/models"
)

// sensitiveFields are masked when printed or retained past a session.
var sensitiveFields = []string{"accountnumber", "cardnumber", "ssn", "pin", "paymentnumber"}

// MaskValue keeps only the last four characters of a sensitive value. key is
// a flat data set key or a bare field id; other values are returned as is.
func MaskValue(key, value string) string {
	id := strings.ToLower(key)
	if i := strings.LastIndexByte(id, '.'); i >= 0 {
		id = id[i+1:]
	}
	sensitive := false
	for _, s := range sensitiveFields {
		if strings.Contains(id, s) {
			sensitive = true
			break
		}
	}
	if !sensitive {
		return value
	}
	r := []rune(value)
	if len(r) <= 4 {
		return strings.Repeat("*", len(r))
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

// MaskDataSet returns a copy of d with every sensitive value masked.
func MaskDataSet(d models.FlatDataSet) models.FlatDataSet {
	if d == nil {
		return nil
	}
	out := make(models.FlatDataSet, len(d))
	for k, v := range d {
		out[k] = MaskValue(k, v)
	}
	return out
}
