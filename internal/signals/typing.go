// Package signals holds short-lived session state: typing indicators and
// connection status. Nothing here is persisted; every timer is cleared on
// teardown so no callback fires into a torn-down context.
package signals

import (
	"sync"
	"time"
)

// DefaultTypingTimeout is how long the indicator stays visible after the last
// qualifying event.
const DefaultTypingTimeout = 3 * time.Second

// TypingIndicator is a debounce state machine. Touch arms (or re-arms) the
// auto-hide timer; Show/Hide/Toggle give explicit control and cancel any
// pending timer.
type TypingIndicator struct {
	mu       sync.Mutex
	timeout  time.Duration
	timer    *time.Timer
	gen      uint64
	active   bool
	onChange func(bool)
}

// NewTypingIndicator creates an indicator. A zero timeout selects the default;
// onChange may be nil and fires only on actual transitions.
func NewTypingIndicator(timeout time.Duration, onChange func(bool)) *TypingIndicator {
	if timeout <= 0 {
		timeout = DefaultTypingTimeout
	}
	return &TypingIndicator{timeout: timeout, onChange: onChange}
}

// Touch marks typing activity: the indicator turns on and the auto-hide timer
// restarts from now.
func (t *TypingIndicator) Touch() {
	t.mu.Lock()
	t.cancelTimerLocked()
	changed := !t.active
	t.active = true

	t.gen++
	gen := t.gen
	t.timer = time.AfterFunc(t.timeout, func() {
		t.expire(gen)
	})
	t.mu.Unlock()

	if changed {
		t.emit(true)
	}
}

func (t *TypingIndicator) expire(gen uint64) {
	t.mu.Lock()
	if gen != t.gen || !t.active {
		t.mu.Unlock()
		return
	}
	t.active = false
	t.timer = nil
	t.mu.Unlock()

	t.emit(false)
}

// Show turns the indicator on without arming the auto-hide timer.
func (t *TypingIndicator) Show() {
	t.mu.Lock()
	t.cancelTimerLocked()
	changed := !t.active
	t.active = true
	t.mu.Unlock()

	if changed {
		t.emit(true)
	}
}

// Hide turns the indicator off and clears any pending timer.
func (t *TypingIndicator) Hide() {
	t.mu.Lock()
	t.cancelTimerLocked()
	changed := t.active
	t.active = false
	t.mu.Unlock()

	if changed {
		t.emit(false)
	}
}

func (t *TypingIndicator) Toggle() {
	t.mu.Lock()
	active := t.active
	t.mu.Unlock()

	if active {
		t.Hide()
	} else {
		t.Show()
	}
}

// Active reports the current indicator state.
func (t *TypingIndicator) Active() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// Stop tears the indicator down, clearing any pending timer.
func (t *TypingIndicator) Stop() {
	t.mu.Lock()
	t.cancelTimerLocked()
	t.active = false
	t.mu.Unlock()
}

func (t *TypingIndicator) cancelTimerLocked() {
	t.gen++
	if t.timer != nil {
		t.timer.Stop()
		t.timer = nil
	}
}

func (t *TypingIndicator) emit(active bool) {
	if t.onChange != nil {
		t.onChange(active)
	}
}
