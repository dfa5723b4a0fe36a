package session

import "time"

type WatchdogState int

const (
	WatchdogIdle WatchdogState = iota
	WatchdogArmed
	WatchdogFired
)

func (s WatchdogState) String() string {
	switch s {
	case WatchdogArmed:
		return "armed"
	case WatchdogFired:
		return "fired"
	default:
		return "idle"
	}
}

// Watchdog is a single-slot inactivity timer. Expiry is delivered to notify
// with the generation of the arming that produced it, and Expire accepts it
// only if no Arm or Cancel happened since. Watchdog itself is not safe for
// concurrent use; notify runs on the clock's goroutine.
type Watchdog struct {
	clock  Clock
	after  time.Duration
	notify func(gen uint64)

	timer Timer
	gen   uint64
	state WatchdogState
}

func NewWatchdog(clock Clock, after time.Duration, notify func(gen uint64)) *Watchdog {
	return &Watchdog{clock: clock, after: after, notify: notify}
}

// Arm replaces any pending timer with a fresh one.
func (w *Watchdog) Arm() {
	w.stop()
	w.gen++
	gen := w.gen
	w.state = WatchdogArmed
	w.timer = w.clock.AfterFunc(w.after, func() { w.notify(gen) })
}

func (w *Watchdog) Cancel() {
	w.stop()
	w.gen++
	w.state = WatchdogIdle
}

// Expire reports whether an expiry for gen should raise the alert. It is
// true at most once per Arm.
func (w *Watchdog) Expire(gen uint64) bool {
	if gen != w.gen || w.state != WatchdogArmed {
		return false
	}
	w.state = WatchdogFired
	w.timer = nil
	return true
}

func (w *Watchdog) State() WatchdogState {
	return w.state
}

func (w *Watchdog) stop() {
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
}
