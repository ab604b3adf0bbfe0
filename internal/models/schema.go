// Package models defines the server-delivered screen configuration.
package models

// ConfigurationDocument is the body returned by the configuration service.
type ConfigurationDocument struct {
	PageID     string              `json:"pageId,omitempty"`
	MainScreen ScreenConfiguration `json:"mainScreenConfiguration"`
}

// ScreenConfiguration describes one screen: which widgets are displayed, the
// fields each widget declares, localized strings and the risk-engine org id.
type ScreenConfiguration struct {
	DisplayWidgets     []DisplayWidgetGroup  `json:"displayWidgets"`
	Widgets            map[WidgetType]Widget `json:"widgets"`
	LocalizedResources []LocalizedResource   `json:"localizedResources,omitempty"`
	ThreatMetrix       *ThreatMetrix         `json:"threatmetrix,omitempty"`
}

// DisplayWidgetGroup is an ordered group of widget references.
type DisplayWidgetGroup struct {
	Widgets []WidgetRef `json:"widgets"`
}

// WidgetRef points at a widget by type.
type WidgetRef struct {
	Type WidgetType `json:"type"`
}

// Widget is a server-declared UI section with its field schema.
type Widget struct {
	Type   WidgetType           `json:"type"`
	Title  string               `json:"title,omitempty"`
	Fields []FieldConfiguration `json:"fields"`
}

// FieldConfiguration declares one field. Group fields nest their children in Fields.
type FieldConfiguration struct {
	ID       string               `json:"id"`
	Type     string               `json:"type,omitempty"`
	Label    string               `json:"label,omitempty"`
	Required bool                 `json:"required,omitempty"`
	Fields   []FieldConfiguration `json:"fields,omitempty"`
}

// LocalizedResource holds the strings for one locale.
type LocalizedResource struct {
	Locale  string            `json:"locale"`
	Strings map[string]string `json:"strings"`
}

// ThreatMetrix carries the third-party risk-engine settings.
type ThreatMetrix struct {
	OrgID string `json:"orgId"`
}

// Localized string keys used by the error-result screen.
const (
	StringKeyErrorTitle   = "error.label"
	StringKeyErrorMessage = "error.verbiage"
	StringKeyDoneButton   = "doneButton.label"
)

// FlatFields returns every leaf field declared by the widget, depth first.
func (w Widget) FlatFields() []FieldConfiguration {
	var out []FieldConfiguration
	var walk func(fields []FieldConfiguration)
	walk = func(fields []FieldConfiguration) {
		for _, f := range fields {
			if len(f.Fields) > 0 {
				walk(f.Fields)
				continue
			}
			out = append(out, f)
		}
	}
	walk(w.Fields)
	return out
}

// DisplayWidgetType returns the first widget of the first display group.
func (s *ScreenConfiguration) DisplayWidgetType() (WidgetType, bool) {
	if s == nil || len(s.DisplayWidgets) == 0 || len(s.DisplayWidgets[0].Widgets) == 0 {
		return "", false
	}
	t := s.DisplayWidgets[0].Widgets[0].Type
	return t, t != ""
}

// OrganizationID returns the risk-engine org id, or nil when the section is absent.
func (s *ScreenConfiguration) OrganizationID() *string {
	if s == nil || s.ThreatMetrix == nil {
		return nil
	}
	id := s.ThreatMetrix.OrgID
	return &id
}

// LocalizedStrings returns the strings for locale, falling back to the first
// resource when no exact match exists.
func (s *ScreenConfiguration) LocalizedStrings(locale string) map[string]string {
	if s == nil || len(s.LocalizedResources) == 0 {
		return nil
	}
	for _, r := range s.LocalizedResources {
		if r.Locale == locale {
			return r.Strings
		}
	}
	return s.LocalizedResources[0].Strings
}
