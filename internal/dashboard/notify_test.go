package dashboard

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) now() time.Time { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestToasterExpires(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	toast := NewToaster(4*time.Second, clock.now)

	toast.Show(LevelError, "boom")
	clock.advance(3 * time.Second)
	n := toast.Current()
	require.NotNil(t, n)
	require.Equal(t, LevelError, n.Level)

	clock.advance(time.Second)
	require.Nil(t, toast.Current())
}

func TestToasterKeepsOnlyLatest(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 10, 18, 9, 0, 0, 0, time.UTC)}
	toast := NewToaster(4*time.Second, clock.now)

	toast.Show(LevelInfo, "first")
	clock.advance(3 * time.Second)
	toast.Show(LevelSuccess, "second")
	clock.advance(2 * time.Second)

	n := toast.Current()
	require.NotNil(t, n)
	require.Equal(t, "second", n.Message)

	toast.Dismiss()
	require.Nil(t, toast.Current())
}

func TestDebouncerRunsLastCallOnly(t *testing.T) {
	d := NewDebouncer(20 * time.Millisecond)
	defer d.Stop()

	var calls, last atomic.Int32
	for i := int32(1); i <= 5; i++ {
		d.Trigger(func() {
			calls.Add(1)
			last.Store(i)
		})
	}

	require.Eventually(t, func() bool { return calls.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(40 * time.Millisecond)
	require.Equal(t, int32(1), calls.Load())
	require.Equal(t, int32(5), last.Load())
}

func TestDebouncerStopCancels(t *testing.T) {
	d := NewDebouncer(10 * time.Millisecond)
	var calls atomic.Int32
	d.Trigger(func() { calls.Add(1) })
	d.Stop()

	time.Sleep(30 * time.Millisecond)
	require.Zero(t, calls.Load())
}
