package health

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SungwookYoon/searchdeposit6-web/internal/backend"
	"github.com/SungwookYoon/searchdeposit6-web/internal/config"
	"github.com/SungwookYoon/searchdeposit6-web/internal/metrics"
	"github.com/SungwookYoon/searchdeposit6-web/internal/testserver"
)

var testHealthCfg = config.HealthCheckConfig{
	Interval:         30 * time.Second,
	FailureThreshold: 3,
	Timeout:          5 * time.Second,
}

var errProbe = errors.New("probe failed")

func TestCheckerInitialState(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)

	// Unknown target should be treated as healthy
	if !c.IsHealthy("unknown") {
		t.Error("unknown target should be treated as healthy")
	}

	status := c.GetStatus("unknown")
	if status.Status != StatusUnknown {
		t.Errorf("expected StatusUnknown, got %v", status.Status)
	}
}

func TestCheckerRegisterReportsUnknown(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)
	c.Register("project_api", func(context.Context) error { return nil })

	statuses := c.GetAllStatuses()
	if len(statuses) != 1 {
		t.Fatalf("expected 1 target, got %d", len(statuses))
	}
	if statuses["project_api"].Status != StatusUnknown {
		t.Errorf("expected StatusUnknown before first check, got %v", statuses["project_api"].Status)
	}
	if got := c.Targets(); len(got) != 1 || got[0] != "project_api" {
		t.Errorf("unexpected targets %v", got)
	}
}

func TestCheckerUpdateStatus(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)

	// Mark as healthy
	c.updateStatus("test", nil)
	if !c.IsHealthy("test") {
		t.Error("should be healthy after healthy update")
	}

	status := c.GetStatus("test")
	if status.Status != StatusHealthy {
		t.Errorf("expected StatusHealthy, got %v", status.Status)
	}

	// Single failure shouldn't make it unhealthy (threshold is 3)
	c.updateStatus("test", errProbe)
	if !c.IsHealthy("test") {
		t.Error("should still be healthy after one failure")
	}

	status = c.GetStatus("test")
	if status.ConsecutiveFailures != 1 {
		t.Errorf("expected 1 consecutive failure, got %d", status.ConsecutiveFailures)
	}
	if status.LastError != errProbe.Error() {
		t.Errorf("expected last error %q, got %q", errProbe, status.LastError)
	}
}

func TestCheckerThreshold(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)

	c.updateStatus("test", errProbe)
	c.updateStatus("test", errProbe)
	c.updateStatus("test", errProbe)

	if c.IsHealthy("test") {
		t.Error("should be unhealthy after 3 consecutive failures")
	}

	status := c.GetStatus("test")
	if status.Status != StatusUnhealthy {
		t.Errorf("expected StatusUnhealthy, got %v", status.Status)
	}
}

func TestCheckerRecovery(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)

	c.updateStatus("test", errProbe)
	c.updateStatus("test", errProbe)
	c.updateStatus("test", errProbe)

	if c.IsHealthy("test") {
		t.Error("should be unhealthy")
	}

	// Recovery
	c.updateStatus("test", nil)
	if !c.IsHealthy("test") {
		t.Error("should be healthy after recovery")
	}

	status := c.GetStatus("test")
	if status.ConsecutiveFailures != 0 {
		t.Errorf("expected 0 consecutive failures after recovery, got %d", status.ConsecutiveFailures)
	}
	if status.LastError != "" {
		t.Errorf("expected last error cleared, got %q", status.LastError)
	}
}

func TestOverallHealthy(t *testing.T) {
	c := NewChecker(testHealthCfg, nil, nil)

	if !c.OverallHealthy() {
		t.Error("should be healthy with no targets checked")
	}

	c.updateStatus("a", nil)
	c.updateStatus("b", nil)
	if !c.OverallHealthy() {
		t.Error("should be healthy when every target is healthy")
	}

	for i := 0; i < 3; i++ {
		c.updateStatus("b", errProbe)
	}
	if c.OverallHealthy() {
		t.Error("should be unhealthy when one target is unhealthy")
	}
}

func TestZeroThresholdFailsImmediately(t *testing.T) {
	c := NewChecker(config.HealthCheckConfig{Interval: time.Second}, nil, nil)
	c.updateStatus("test", errProbe)
	if c.IsHealthy("test") {
		t.Error("a threshold below one should mark the first failure unhealthy")
	}
}

type recordingMetrics struct {
	mu      sync.Mutex
	results map[string][]bool
}

func (m *recordingMetrics) HealthCheckCompleted(target string, _ time.Duration, healthy bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.results == nil {
		m.results = make(map[string][]bool)
	}
	m.results[target] = append(m.results[target], healthy)
}

func TestCheckAllRunsEveryProbe(t *testing.T) {
	m := &recordingMetrics{}
	c := NewChecker(testHealthCfg, m, nil)
	c.Register("ok", func(context.Context) error { return nil })
	c.Register("broken", func(context.Context) error { return errProbe })

	c.CheckAll(context.Background())

	if c.GetStatus("ok").Status != StatusHealthy {
		t.Errorf("expected ok to be healthy, got %v", c.GetStatus("ok").Status)
	}
	if c.GetStatus("broken").ConsecutiveFailures != 1 {
		t.Errorf("expected 1 failure for broken, got %d", c.GetStatus("broken").ConsecutiveFailures)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.results["ok"]) != 1 || !m.results["ok"][0] {
		t.Errorf("unexpected metrics for ok: %v", m.results["ok"])
	}
	if len(m.results["broken"]) != 1 || m.results["broken"][0] {
		t.Errorf("unexpected metrics for broken: %v", m.results["broken"])
	}
}

func TestProbeTimeout(t *testing.T) {
	c := NewChecker(config.HealthCheckConfig{Interval: time.Second, FailureThreshold: 1, Timeout: 10 * time.Millisecond}, nil, nil)
	c.Register("slow", func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})

	c.CheckAll(context.Background())
	if c.IsHealthy("slow") {
		t.Error("a probe exceeding the timeout should fail")
	}
}

func TestStartStop(t *testing.T) {
	var calls atomic.Int32
	c := NewChecker(config.HealthCheckConfig{Interval: 5 * time.Millisecond, FailureThreshold: 1}, nil, nil)
	c.Register("tick", func(context.Context) error {
		calls.Add(1)
		return nil
	})

	c.Start()
	deadline := time.Now().Add(2 * time.Second)
	for calls.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	c.Stop()
	c.Stop() // safe to call twice

	if calls.Load() < 3 {
		t.Fatalf("expected at least 3 checks, got %d", calls.Load())
	}
	n := calls.Load()
	time.Sleep(20 * time.Millisecond)
	if calls.Load() != n {
		t.Error("probes ran after Stop")
	}
}

func TestAPIProbe(t *testing.T) {
	srv := testserver.New(t, 3)
	client, err := backend.New(backend.Options{BaseURL: srv.URL, Timeout: time.Second})
	if err != nil {
		t.Fatal(err)
	}
	probe := APIProbe(client)

	if err := probe(context.Background()); err != nil {
		t.Errorf("expected healthy api, got %v", err)
	}

	srv.Fail(testserver.EndpointStatistics, 502)
	if err := probe(context.Background()); err == nil {
		t.Error("expected failure when statistics endpoint fails")
	}
}

func TestWritableDirProbe(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "exports")
	if err := WritableDirProbe(dir)(context.Background()); err != nil {
		t.Fatalf("expected writable dir, got %v", err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("probe left %d files behind", len(entries))
	}

	file := filepath.Join(t.TempDir(), "plain-file")
	if err := os.WriteFile(file, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	if err := WritableDirProbe(file)(context.Background()); err == nil {
		t.Error("expected failure when the download dir is a file")
	}
}

func TestCollectorRecordsHealth(t *testing.T) {
	m := metrics.New(nil)
	c := NewChecker(testHealthCfg, m, nil)
	c.Register("project_api", func(context.Context) error { return nil })
	c.CheckAll(context.Background())

	families, err := m.Registry.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		if f.GetName() == "gbdash_target_healthy" {
			if v := f.GetMetric()[0].GetGauge().GetValue(); v != 1 {
				t.Errorf("expected healthy gauge 1, got %v", v)
			}
			return
		}
	}
	t.Error("health gauge not found")
}
