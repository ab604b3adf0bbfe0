package models

import (
	"sort"
	"strings"
)

// FlatDataSet maps dotted field keys to string values.
type FlatDataSet map[string]string

// FieldKey builds "<widget>.<field>".
func FieldKey(widget WidgetType, field string) string {
	return string(widget) + "." + field
}

// FieldID strips the leading widget-type segment from key. A key without a
// dot has no field id.
func FieldID(key string) (string, bool) {
	i := strings.IndexByte(key, '.')
	if i < 0 {
		return "", false
	}
	return key[i+1:], true
}

// Set stores value under key when value is present.
func (d FlatDataSet) Set(key string, value *string) {
	if value == nil {
		return
	}
	d[key] = *value
}

// Clone returns an independent copy.
func (d FlatDataSet) Clone() FlatDataSet {
	out := make(FlatDataSet, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}

// Keys returns the keys in sorted order.
func (d FlatDataSet) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
