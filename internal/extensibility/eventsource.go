package extensibility

import (
	"sync"
	"time"

	"github.com/comalice/avssm"
	"github.com/comalice/avssm/internal/core"
)

// ChannelEventSource is a core.EventSource backed by a Go channel.
type ChannelEventSource struct {
	ch chan core.Delivery
}

// NewChannelEventSource creates a source with the given buffer size.
func NewChannelEventSource(buffer int) *ChannelEventSource {
	return &ChannelEventSource{ch: make(chan core.Delivery, buffer)}
}

// Events returns the receive-only channel for deliveries.
func (s *ChannelEventSource) Events() <-chan core.Delivery {
	return s.ch
}

// Send queues e for handle. It reports false if the buffer is full.
func (s *ChannelEventSource) Send(handle avssm.Handle, e avssm.Event, payload any) bool {
	select {
	case s.ch <- core.Delivery{Handle: handle, Event: e, Payload: payload}:
		return true
	default:
		return false
	}
}

// Close closes the channel. The manager's pump stops reading it.
func (s *ChannelEventSource) Close() {
	close(s.ch)
}

// RoleSwitchTimer delivers AVRC_TIMER to an endpoint once its timeout
// elapses after Arm. Re-arming restarts the countdown. One timer per handle.
type RoleSwitchTimer struct {
	mu      sync.Mutex
	ch      chan core.Delivery
	timeout time.Duration
	timers  map[avssm.Handle]armed
	gen     uint64
	stopped bool
}

type armed struct {
	timer *time.Timer
	gen   uint64
}

// NewRoleSwitchTimer creates a timer source firing after timeout.
func NewRoleSwitchTimer(timeout time.Duration) *RoleSwitchTimer {
	return &RoleSwitchTimer{
		ch:      make(chan core.Delivery, 16),
		timeout: timeout,
		timers:  make(map[avssm.Handle]armed),
	}
}

// Events returns the event channel.
func (t *RoleSwitchTimer) Events() <-chan core.Delivery {
	return t.ch
}

// Arm starts or restarts the countdown for handle.
func (t *RoleSwitchTimer) Arm(handle avssm.Handle) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	if old, ok := t.timers[handle]; ok {
		old.timer.Stop()
	}
	t.gen++
	gen := t.gen
	t.timers[handle] = armed{
		timer: time.AfterFunc(t.timeout, func() { t.fire(handle, gen) }),
		gen:   gen,
	}
}

// Disarm cancels a pending countdown. It reports whether one was pending.
func (t *RoleSwitchTimer) Disarm(handle avssm.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	a, ok := t.timers[handle]
	if !ok {
		return false
	}
	delete(t.timers, handle)
	return a.timer.Stop()
}

// Pending reports whether handle has an armed countdown.
func (t *RoleSwitchTimer) Pending(handle avssm.Handle) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	_, ok := t.timers[handle]
	return ok
}

// Stop cancels every countdown and closes the event channel.
func (t *RoleSwitchTimer) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.stopped {
		return
	}
	t.stopped = true
	for h, a := range t.timers {
		a.timer.Stop()
		delete(t.timers, h)
	}
	close(t.ch)
}

func (t *RoleSwitchTimer) fire(handle avssm.Handle, gen uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	// A re-armed or disarmed countdown may still fire once.
	if a, ok := t.timers[handle]; t.stopped || !ok || a.gen != gen {
		return
	}
	delete(t.timers, handle)
	select {
	case t.ch <- core.Delivery{Handle: handle, Event: avssm.EvAVRCTimer}:
	default:
		// drop if full
	}
}
