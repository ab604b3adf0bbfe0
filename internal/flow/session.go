package flow

import "github.com/BTreeMap/PayFlow/internal/models"

// session is the per-run context object. It is created by Start, owned by the
// session goroutine, and wiped when the session ends so nothing leaks into
// the next one.
type session struct {
	id      string
	kind    models.FlowKind
	creds   models.Credentials
	locale  string
	screen  *models.ScreenConfiguration
	widget  models.WidgetType
	fetched models.FlatDataSet
	data    models.FlatDataSet
}

func newSession(id string, kind models.FlowKind, creds models.Credentials, locale string) *session {
	return &session{id: id, kind: kind, creds: creds, locale: locale}
}

func (s *session) strings() map[string]string {
	return s.screen.LocalizedStrings(s.locale)
}

func (s *session) clear() {
	s.creds.Clear()
	s.screen = nil
	s.widget = ""
	s.fetched = nil
	s.data = nil
}
