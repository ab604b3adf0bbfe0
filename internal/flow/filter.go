package flow

import "github.com/BTreeMap/PayFlow/internal/models"

// DeclaredFieldIDs collects the id of every leaf field across every widget of
// the screen.
func DeclaredFieldIDs(screen *models.ScreenConfiguration) map[string]struct{} {
	ids := make(map[string]struct{})
	if screen == nil {
		return ids
	}
	for _, w := range screen.Widgets {
		for _, f := range w.FlatFields() {
			ids[f.ID] = struct{}{}
		}
	}
	return ids
}

// Filter keeps only the pairs whose key, with the leading widget-type segment
// stripped, equals a field id declared somewhere in screen. Everything else is
// dropped without error.
func Filter(data models.FlatDataSet, screen *models.ScreenConfiguration) models.FlatDataSet {
	declared := DeclaredFieldIDs(screen)
	out := make(models.FlatDataSet, len(data))
	for key, value := range data {
		id, ok := models.FieldID(key)
		if !ok {
			continue
		}
		if _, found := declared[id]; found {
			out[key] = value
		}
	}
	return out
}

// Merge overlays fetched on top of configured; fetched wins on every
// collision. Neither input is modified.
func Merge(configured, fetched models.FlatDataSet) models.FlatDataSet {
	out := make(models.FlatDataSet, len(configured)+len(fetched))
	for k, v := range configured {
		out[k] = v
	}
	for k, v := range fetched {
		out[k] = v
	}
	return out
}
