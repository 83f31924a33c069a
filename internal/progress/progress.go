// Package progress runs cosmetic progress indicators for operations whose real
// progress is unknown to the client.
package progress

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Complete is the value reported once the real operation finishes.
const Complete = 100.0

// Options configures a Task.
type Options struct {
	Interval time.Duration // time between advances
	Cap      float64       // the value never passes Cap until Finish
	MaxStep  float64       // each advance adds a random amount in [0, MaxStep)

	// Rand returns a float in [0,1). Defaults to math/rand/v2.
	Rand func() float64
}

// Task advances a pseudo-progress value on a ticker until stopped.
type Task struct {
	opts      Options
	onAdvance func(float64)

	mu    sync.Mutex
	value float64

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// Start launches a task. onAdvance is called from the task goroutine after
// every advance and never after Stop has returned.
func Start(opts Options, onAdvance func(float64)) *Task {
	if opts.Interval <= 0 {
		opts.Interval = 800 * time.Millisecond
	}
	if opts.Cap <= 0 || opts.Cap >= Complete {
		opts.Cap = 85
	}
	if opts.MaxStep <= 0 {
		opts.MaxStep = 15
	}
	if opts.Rand == nil {
		opts.Rand = rand.Float64
	}
	if onAdvance == nil {
		onAdvance = func(float64) {}
	}

	t := &Task{
		opts:      opts,
		onAdvance: onAdvance,
		stopCh:    make(chan struct{}),
	}
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		t.run()
	}()
	return t
}

func (t *Task) run() {
	ticker := time.NewTicker(t.opts.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Stop may race with the tick; it wins.
			select {
			case <-t.stopCh:
				return
			default:
			}
			t.onAdvance(t.advance())
		case <-t.stopCh:
			return
		}
	}
}

func (t *Task) advance() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.value += t.opts.Rand() * t.opts.MaxStep
	if t.value > t.opts.Cap {
		t.value = t.opts.Cap
	}
	return t.value
}

// Value returns the current progress value.
func (t *Task) Value() float64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.value
}

// Stop halts the ticker and waits for the task goroutine to exit. Safe to call multiple times.
func (t *Task) Stop() {
	t.stopOnce.Do(func() {
		close(t.stopCh)
	})
	t.wg.Wait()
}

// Finish stops the task and snaps the value to Complete.
func (t *Task) Finish() {
	t.Stop()
	t.mu.Lock()
	t.value = Complete
	t.mu.Unlock()
	t.onAdvance(Complete)
}
