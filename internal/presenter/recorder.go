// Package presenter provides the presentation-layer implementations that
// receive what a flow session publishes.
package presenter

import (
	"context"
	"log/slog"
	"sync"

	"github.com/BTreeMap/PayFlow/internal/flow"
)

// View is everything a session has presented so far.
type View struct {
	Publication *flow.Publication  `json:"publication,omitempty"`
	Result      *flow.ResultScreen `json:"result_screen,omitempty"`
	Alerts      []flow.Alert       `json:"alerts,omitempty"`
}

// Recorder keeps the latest presentation of each session in memory so a host
// can poll for it.
type Recorder struct {
	mu    sync.RWMutex
	views map[string]*View
}

var _ flow.Presenter = (*Recorder)(nil)

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{views: make(map[string]*View)}
}

func (r *Recorder) view(sessionID string) *View {
	v, ok := r.views[sessionID]
	if !ok {
		v = &View{}
		r.views[sessionID] = v
	}
	return v
}

// Present records the publication for the session.
func (r *Recorder) Present(_ context.Context, pub flow.Publication) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := pub
	p.Data = pub.Data.Clone()
	r.view(pub.SessionID).Publication = &p
	slog.Debug("Recorder.Present: publication recorded", "sessionID", pub.SessionID, "widget", pub.Widget, "keys", len(pub.Data))
	return nil
}

// PresentResult records the result screen for the session.
func (r *Recorder) PresentResult(_ context.Context, screen flow.ResultScreen) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := screen
	r.view(screen.SessionID).Result = &s
	slog.Debug("Recorder.PresentResult: result screen recorded", "sessionID", screen.SessionID, "success", screen.Success)
}

// PresentAlert appends the alert to the session.
func (r *Recorder) PresentAlert(_ context.Context, alert flow.Alert) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v := r.view(alert.SessionID)
	v.Alerts = append(v.Alerts, alert)
	slog.Debug("Recorder.PresentAlert: alert recorded", "sessionID", alert.SessionID, "title", alert.Title)
}

// View returns a copy of what the session has presented.
func (r *Recorder) View(sessionID string) (View, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.views[sessionID]
	if !ok {
		return View{}, false
	}
	out := View{Result: v.Result, Alerts: append([]flow.Alert(nil), v.Alerts...)}
	if v.Publication != nil {
		p := *v.Publication
		p.Data = v.Publication.Data.Clone()
		out.Publication = &p
	}
	return out, true
}

// Forget drops everything recorded for the session.
func (r *Recorder) Forget(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.views, sessionID)
}

// Redact masks the sensitive values of the session's publication. Hosts call
// it once the session has ended; the view stays queryable.
func (r *Recorder) Redact(sessionID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	v, ok := r.views[sessionID]
	if !ok || v.Publication == nil {
		return
	}
	p := *v.Publication
	p.Data = MaskDataSet(p.Data)
	v.Publication = &p
	slog.Debug("Recorder.Redact: publication redacted", "sessionID", sessionID)
}
