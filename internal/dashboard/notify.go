package dashboard

import (
	"sync"
	"time"
)

// Level is the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a transient message for the user.
type Notification struct {
	Level     Level     `json:"level"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Toaster keeps only the latest notification until it expires.
type Toaster struct {
	mu      sync.Mutex
	ttl     time.Duration
	now     func() time.Time
	current *Notification
}

// NewToaster creates a toaster whose notifications live for ttl.
func NewToaster(ttl time.Duration, now func() time.Time) *Toaster {
	if now == nil {
		now = time.Now
	}
	return &Toaster{ttl: ttl, now: now}
}

// Show replaces any visible notification.
func (t *Toaster) Show(level Level, message string) Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	n := Notification{Level: level, Message: message, CreatedAt: now, ExpiresAt: now.Add(t.ttl)}
	t.current = &n
	return n
}

// Current returns the visible notification, or nil once it expired.
func (t *Toaster) Current() *Notification {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return nil
	}
	if !t.now().Before(t.current.ExpiresAt) {
		t.current = nil
		return nil
	}
	n := *t.current
	return &n
}

// Dismiss hides the visible notification.
func (t *Toaster) Dismiss() {
	t.mu.Lock()
	t.current = nil
	t.mu.Unlock()
}

// SetTTL changes the lifetime of notifications shown from now on.
func (t *Toaster) SetTTL(ttl time.Duration) {
	t.mu.Lock()
	t.ttl = ttl
	t.mu.Unlock()
}

// Debouncer runs only the last of a burst of calls, once the burst has been quiet for wait.
type Debouncer struct {
	mu    sync.Mutex
	wait  time.Duration
	timer *time.Timer
}

// NewDebouncer creates a debouncer with the given quiet period.
func NewDebouncer(wait time.Duration) *Debouncer {
	return &Debouncer{wait: wait}
}

// Trigger schedules fn, cancelling any call still waiting.
func (d *Debouncer) Trigger(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, fn)
}

// SetWait changes the quiet period for later triggers.
func (d *Debouncer) SetWait(wait time.Duration) {
	d.mu.Lock()
	d.wait = wait
	d.mu.Unlock()
}

// Stop cancels a pending call.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
