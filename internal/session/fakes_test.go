package session

import (
	"context"
	"time"

	"smartjogger/internal/gps"
	"smartjogger/internal/netinfo"
	"smartjogger/internal/sensor"
)

type fakeTimer struct {
	at      time.Time
	f       func()
	stopped bool
	fired   bool
}

func (t *fakeTimer) Stop() bool {
	active := !t.stopped && !t.fired
	t.stopped = true
	return active
}

type fakeClock struct {
	now    time.Time
	timers []*fakeTimer
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 5, 1, 7, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) AfterFunc(d time.Duration, f func()) Timer {
	t := &fakeTimer{at: c.now.Add(d), f: f}
	c.timers = append(c.timers, t)
	return t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.now = c.now.Add(d)
	for _, t := range c.timers {
		if !t.stopped && !t.fired && !t.at.After(c.now) {
			t.fired = true
			t.f()
		}
	}
}

type fakeSource struct {
	err     error
	cb      sensor.Callbacks
	opts    sensor.Options
	watches int
	stops   int
}

func (f *fakeSource) Watch(ctx context.Context, opts sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	f.watches++
	if f.err != nil {
		return nil, f.err
	}
	f.cb = cb
	f.opts = opts
	return sensor.StopFunc(func() { f.stops++ }), nil
}

type fakeNetwork struct {
	current netinfo.Info
	known   bool
	fn      func(netinfo.Info)
}

func (f *fakeNetwork) Current() (netinfo.Info, bool) { return f.current, f.known }

func (f *fakeNetwork) Subscribe(ctx context.Context, fn func(netinfo.Info)) { f.fn = fn }

type fakeDisplay struct {
	network  []string
	location []string
	alerts   []string
	stats    []string
}

func (d *fakeDisplay) SetNetworkStatus(text string)  { d.network = append(d.network, text) }
func (d *fakeDisplay) SetLocationStatus(text string) { d.location = append(d.location, text) }
func (d *fakeDisplay) SetAlert(text string)          { d.alerts = append(d.alerts, text) }
func (d *fakeDisplay) SetStats(text string)          { d.stats = append(d.stats, text) }

func (d *fakeDisplay) count(alert string) int {
	n := 0
	for _, a := range d.alerts {
		if a == alert {
			n++
		}
	}
	return n
}

func last(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[len(values)-1]
}

type recorderCall struct {
	op     string
	runID  string
	sample gps.Sample
}

type fakeRecorder struct {
	calls []recorderCall
	runs  int
}

func (r *fakeRecorder) Begin(ctx context.Context, sessionID string, at time.Time) (string, error) {
	r.runs++
	id := "run-" + string(rune('0'+r.runs))
	r.calls = append(r.calls, recorderCall{op: "begin", runID: id})
	return id, nil
}

func (r *fakeRecorder) Record(ctx context.Context, runID string, sample gps.Sample) error {
	r.calls = append(r.calls, recorderCall{op: "record", runID: runID, sample: sample})
	return nil
}

func (r *fakeRecorder) End(ctx context.Context, runID string, at time.Time) error {
	r.calls = append(r.calls, recorderCall{op: "end", runID: runID})
	return nil
}
