package progress

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type recorder struct {
	mu     sync.Mutex
	values []float64
}

func (r *recorder) add(v float64) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder) snapshot() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]float64(nil), r.values...)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestTaskAdvancesUpToCap(t *testing.T) {
	rec := &recorder{}
	task := Start(Options{
		Interval: time.Millisecond,
		Cap:      85,
		MaxStep:  15,
		Rand:     func() float64 { return 0.99 },
	}, rec.add)

	waitFor(t, func() bool { return task.Value() == 85 })
	task.Stop()

	values := rec.snapshot()
	if len(values) < 6 {
		t.Fatalf("expected at least 6 advances, got %d", len(values))
	}
	for i, v := range values {
		if v > 85 {
			t.Errorf("advance %d exceeded cap: %v", i, v)
		}
		if i > 0 && v < values[i-1] {
			t.Errorf("advance %d went backwards: %v < %v", i, v, values[i-1])
		}
	}
}

func TestTaskStopIsIdempotent(t *testing.T) {
	task := Start(Options{Interval: time.Hour}, nil)
	task.Stop()
	task.Stop()
	if task.Value() != 0 {
		t.Errorf("expected no progress, got %v", task.Value())
	}
}

func TestTaskNoAdvanceAfterStop(t *testing.T) {
	rec := &recorder{}
	task := Start(Options{Interval: time.Millisecond, Rand: func() float64 { return 0.1 }}, rec.add)
	waitFor(t, func() bool { return len(rec.snapshot()) > 0 })
	task.Stop()

	n := len(rec.snapshot())
	time.Sleep(20 * time.Millisecond)
	if got := len(rec.snapshot()); got != n {
		t.Errorf("expected no advances after Stop, got %d more", got-n)
	}
}

func TestTaskFinishSnapsToComplete(t *testing.T) {
	rec := &recorder{}
	task := Start(Options{Interval: time.Hour}, rec.add)
	task.Finish()
	task.Stop()

	if task.Value() != Complete {
		t.Errorf("expected %v, got %v", Complete, task.Value())
	}
	values := rec.snapshot()
	if len(values) != 1 || values[0] != Complete {
		t.Errorf("expected a single %v advance, got %v", Complete, values)
	}
}

func TestStartDefaults(t *testing.T) {
	task := Start(Options{Cap: 150}, nil)
	defer task.Stop()

	if task.opts.Cap != 85 {
		t.Errorf("expected cap to fall back to 85, got %v", task.opts.Cap)
	}
	if task.opts.Interval != 800*time.Millisecond {
		t.Errorf("expected default interval, got %v", task.opts.Interval)
	}
}
