package flow

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/BTreeMap/PayFlow/internal/models"
	"github.com/BTreeMap/PayFlow/internal/testutil"
	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsRecordSessionLifecycle(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	doc := testutil.SampleDocument(models.WidgetTypeCloseAccount, []string{"accountNumber"})
	deps, _, _, _ := testDeps(true, doc)
	deps.Metrics = m
	f, err := New(models.FlowKindCloseAccount, testutil.SampleSDKConfiguration(), &models.CloseAccountConfiguration{AccountNumber: "1"}, deps)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if err := f.Start(context.Background(), nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	waitClosed(t, f.Loaded(), "publication")
	f.Stop(models.Result{"transactionStatusCode": "200"})
	waitClosed(t, f.Done(), "session end")

	if got := promtestutil.ToFloat64(m.started.WithLabelValues("closeAccount")); got != 1 {
		t.Errorf("expected 1 started session, got %v", got)
	}
	if got := promtestutil.ToFloat64(m.finished.WithLabelValues("closeAccount", string(models.StateEnded), "200")); got != 1 {
		t.Errorf("expected 1 finished session, got %v", got)
	}
	if n := promtestutil.CollectAndCount(m.fetch); n != 1 {
		t.Errorf("expected one fetch series, got %d", n)
	}
}

func TestMetricsNilIsSafe(t *testing.T) {
	var m *Metrics
	m.sessionStarted(models.FlowKindDeposit)
	m.sessionFinished(models.FlowKindDeposit, models.StateFailed, nil)
	m.observeFetch("configuration", time.Now(), errors.New("x"))
}

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.observeFetch("account_data", time.Now(), nil)
	m.sessionStarted(models.FlowKindDeposit)

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, mf := range families {
		names[mf.GetName()] = true
	}
	for _, want := range []string{"payflow_sessions_started_total", "payflow_fetch_duration_seconds"} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
