package resilience

import (
	"time"
)

// RestartConfig holds the spacing rules for recognizer restarts
type RestartConfig struct {
	MinInterval time.Duration // Minimum spacing between two restarts
	MinDelay    time.Duration // Floor applied to every scheduled restart
}

// DefaultRestartConfig returns a default restart configuration
func DefaultRestartConfig() RestartConfig {
	return RestartConfig{
		MinInterval: 1 * time.Second,
		MinDelay:    100 * time.Millisecond,
	}
}

// RestartDelay returns max(MinInterval - (now - last), MinDelay), clamped to MinInterval.
// A zero last means no previous restart.
func (c RestartConfig) RestartDelay(now, last time.Time) time.Duration {
	if last.IsZero() {
		return c.MinDelay
	}
	since := now.Sub(last)
	if since < 0 {
		since = 0
	}
	delay := c.MinInterval - since
	if delay < c.MinDelay {
		delay = c.MinDelay
	}
	if delay > c.MinInterval {
		delay = c.MinInterval
	}
	return delay
}

// Stopper cancels a scheduled callback
type Stopper interface {
	Stop() bool
}

// AfterFunc schedules f after d
type AfterFunc func(d time.Duration, f func()) Stopper

// SystemAfterFunc schedules with time.AfterFunc
func SystemAfterFunc(d time.Duration, f func()) Stopper {
	return time.AfterFunc(d, f)
}

// RestartTimer keeps at most one deferred restart outstanding.
// Every Schedule bumps a generation; callbacks from older generations are stale.
// It is owned by a single goroutine and is not safe for concurrent use.
type RestartTimer struct {
	after   AfterFunc
	pending Stopper
	gen     uint64
}

// NewRestartTimer creates a restart timer. A nil after uses time.AfterFunc.
func NewRestartTimer(after AfterFunc) *RestartTimer {
	if after == nil {
		after = SystemAfterFunc
	}
	return &RestartTimer{after: after}
}

// Schedule cancels any pending restart and arranges fn(gen) after d.
// fn runs on the timer's goroutine; callers hand it back to their own loop.
func (t *RestartTimer) Schedule(d time.Duration, fn func(gen uint64)) uint64 {
	t.Cancel()
	gen := t.gen
	t.pending = t.after(d, func() { fn(gen) })
	return gen
}

// Cancel stops the pending restart, if any, and invalidates its generation
func (t *RestartTimer) Cancel() bool {
	hadPending := t.pending != nil
	if hadPending {
		t.pending.Stop()
		t.pending = nil
	}
	t.gen++
	return hadPending
}

// Claim reports whether gen is the current pending restart and marks it fired
func (t *RestartTimer) Claim(gen uint64) bool {
	if t.pending == nil || gen != t.gen {
		return false
	}
	t.pending = nil
	t.gen++
	return true
}

// Pending reports whether a restart is outstanding
func (t *RestartTimer) Pending() bool {
	return t.pending != nil
}
