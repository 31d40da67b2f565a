// Package timer provides the resend countdown that throttles OTP re-issue.
package timer

import (
	"sync"
	"time"
)

// DefaultWindow is the resend cooldown in ticks (seconds with the default interval).
const DefaultWindow = 30

// TickSource starts a periodic tick every interval. stop releases it; it is called exactly once.
type TickSource func(interval time.Duration) (ticks <-chan time.Time, stop func())

// RealTicks is the TickSource backed by time.NewTicker.
func RealTicks(interval time.Duration) (<-chan time.Time, func()) {
	t := time.NewTicker(interval)
	return t.C, t.Stop
}

// Option configures a ResendTimer.
type Option func(*ResendTimer)

// WithInterval sets the tick period. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(t *ResendTimer) {
		if d > 0 {
			t.interval = d
		}
	}
}

// WithTickSource replaces the ticker, e.g. with a channel driven by a test.
func WithTickSource(src TickSource) Option {
	return func(t *ResendTimer) {
		if src != nil {
			t.source = src
		}
	}
}

// WithOnTick registers fn to be called with the remaining value after every decrement.
// fn runs outside the timer lock and may call back into the timer.
func WithOnTick(fn func(remaining int)) Option {
	return func(t *ResendTimer) {
		t.onTick = fn
	}
}

// ResendTimer is a single countdown decremented once per tick while above zero.
// Starting a new countdown cancels the scheduled decrement of the previous one.
// Safe for concurrent use.
type ResendTimer struct {
	mu        sync.Mutex
	window    int
	interval  time.Duration
	source    TickSource
	onTick    func(int)
	remaining int
	// gen identifies the countdown goroutine allowed to decrement; bumped on Start and Cancel.
	gen  uint64
	stop chan struct{}
}

// New returns a timer with the given window (in ticks). Non-positive windows fall back to DefaultWindow.
// The timer is idle (ready) until Start is called.
func New(window int, opts ...Option) *ResendTimer {
	if window <= 0 {
		window = DefaultWindow
	}
	t := &ResendTimer{
		window:   window,
		interval: time.Second,
		source:   RealTicks,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Start resets the countdown to the full window and schedules ticks.
func (t *ResendTimer) Start() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
	t.remaining = t.window
	stop := make(chan struct{})
	t.stop = stop
	ticks, stopTicks := t.source(t.interval)
	go t.run(t.gen, ticks, stopTicks, stop)
}

// Cancel stops scheduled ticks. The remaining value is kept. Safe to call repeatedly.
func (t *ResendTimer) Cancel() {
	t.mu.Lock()
	t.cancelLocked()
	t.mu.Unlock()
}

// Reset stops scheduled ticks and zeroes the countdown so a resend is permitted immediately.
func (t *ResendTimer) Reset() {
	t.mu.Lock()
	t.cancelLocked()
	t.remaining = 0
	t.mu.Unlock()
}

// Tick decrements the countdown by one if it is above zero. Reaching zero ends the scheduled ticks.
// Returns the remaining value.
func (t *ResendTimer) Tick() int {
	t.mu.Lock()
	remaining, changed := t.decrementLocked()
	if remaining == 0 {
		t.cancelLocked()
	}
	cb := t.onTick
	t.mu.Unlock()
	if changed && cb != nil {
		cb(remaining)
	}
	return remaining
}

// Remaining returns the ticks left before resend is permitted.
func (t *ResendTimer) Remaining() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// IsReady reports whether the countdown is at zero.
func (t *ResendTimer) IsReady() bool {
	return t.Remaining() == 0
}

// Window returns the configured full window.
func (t *ResendTimer) Window() int {
	return t.window
}

// Running reports whether ticks are currently scheduled.
func (t *ResendTimer) Running() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.stop != nil
}

func (t *ResendTimer) run(gen uint64, ticks <-chan time.Time, stopTicks func(), stop <-chan struct{}) {
	defer stopTicks()
	for {
		select {
		case <-stop:
			return
		case <-ticks:
			if !t.scheduledTick(gen) {
				return
			}
		}
	}
}

// scheduledTick decrements on behalf of the goroutine of generation gen.
// Returns false when that goroutine should exit.
func (t *ResendTimer) scheduledTick(gen uint64) bool {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return false
	}
	remaining, changed := t.decrementLocked()
	more := remaining > 0
	if !more {
		t.stop = nil
		t.gen++
	}
	cb := t.onTick
	t.mu.Unlock()
	if changed && cb != nil {
		cb(remaining)
	}
	return more
}

func (t *ResendTimer) decrementLocked() (int, bool) {
	if t.remaining <= 0 {
		t.remaining = 0
		return 0, false
	}
	t.remaining--
	return t.remaining, true
}

func (t *ResendTimer) cancelLocked() {
	if t.stop != nil {
		close(t.stop)
		t.stop = nil
	}
	t.gen++
}
