package flow

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/testutil"
)

// recordingPresenter captures everything presented to it.
type recordingPresenter struct {
	mu      sync.Mutex
	pubs    []Publication
	results []ResultScreen
	alerts  []Alert
	err     error

	// onPresent runs after a publication is recorded.
	onPresent func()
}

func (p *recordingPresenter) Present(_ context.Context, pub Publication) error {
	p.mu.Lock()
	p.pubs = append(p.pubs, pub)
	hook, err := p.onPresent, p.err
	p.mu.Unlock()
	if hook != nil {
		hook()
	}
	return err
}

func (p *recordingPresenter) PresentResult(_ context.Context, screen ResultScreen) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, screen)
}

func (p *recordingPresenter) PresentAlert(_ context.Context, alert Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.alerts = append(p.alerts, alert)
}

func (p *recordingPresenter) snapshot() ([]Publication, []ResultScreen, []Alert) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Publication(nil), p.pubs...), append([]ResultScreen(nil), p.results...), append([]Alert(nil), p.alerts...)
}

// completionRecorder counts completion invocations.
type completionRecorder struct {
	mu      sync.Mutex
	calls   int
	results []models.Result
}

func (c *completionRecorder) complete(r models.Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls++
	c.results = append(c.results, r)
}

func (c *completionRecorder) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calls
}

func testDeps(connected bool, doc *models.ConfigurationDocument) (Dependencies, *testutil.ConfigurationStub, *testutil.AccountDataStub, *recordingPresenter) {
	cfg := &testutil.ConfigurationStub{Doc: doc}
	acct := &testutil.AccountDataStub{}
	pres := &recordingPresenter{}
	return Dependencies{
		APIKey:        "api-key",
		Connectivity:  testutil.Connectivity{Connected: connected},
		Configuration: cfg,
		AccountData:   acct,
		Presenter:     pres,
	}, cfg, acct, pres
}

func waitClosed(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(5 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func str(s string) *string { return &s }
