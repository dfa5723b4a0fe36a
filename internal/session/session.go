// Package session runs the tracking pipeline: it accepts position fixes,
// recomputes statistics and the drawn path, watches for inactivity and reacts
// to connectivity changes.
package session

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smartjogger/internal/draw"
	"smartjogger/internal/gps"
	"smartjogger/internal/netinfo"
	"smartjogger/internal/projector"
	"smartjogger/internal/sensor"
	"smartjogger/internal/stats"
)

type State string

const (
	StateUninitialized State = "uninitialized"
	StateStarting      State = "starting"
	StateTracking      State = "tracking"
	StateError         State = "error"
	StateWaiting       State = "waiting"
)

const (
	StatusStarting    = "Location: Starting..."
	StatusTracking    = "Location: Tracking..."
	StatusWaiting     = "Location: Waiting..."
	StatusUnsupported = "Location: Geolocation not supported"

	AlertPoorNetwork = "Warning: Poor network connection!"
	AlertStopped     = "You have stopped moving!"
)

// ErrClosed is returned by Snapshot once Run has returned.
var ErrClosed = errors.New("session closed")

// Recorder persists accepted samples. A run begins with the first sample
// after start or reset and ends on reset or shutdown.
type Recorder interface {
	Begin(ctx context.Context, sessionID string, at time.Time) (string, error)
	Record(ctx context.Context, runID string, sample gps.Sample) error
	End(ctx context.Context, runID string, at time.Time) error
}

type Config struct {
	Projector projector.Projector
	Style     projector.Style
	StopAfter time.Duration
	Options   sensor.Options
}

func DefaultConfig(width, height float64) Config {
	return Config{
		Projector: projector.Projector{Width: width, Height: height, Padding: projector.DefaultPadding},
		Style:     projector.DefaultStyle,
		StopAfter: 15 * time.Second,
		Options:   sensor.DefaultOptions,
	}
}

// Deps are the collaborators of a session. Positions and Network may be nil
// when the host has no such capability; Canvas, Display and Recorder are
// optional sinks.
type Deps struct {
	Positions sensor.Source
	Network   netinfo.Source
	Canvas    draw.Sink
	Display   Display
	Recorder  Recorder
	Clock     Clock
}

// Snapshot is a copy of the session's observable state.
type Snapshot struct {
	ID             string        `json:"id"`
	State          State         `json:"state"`
	Samples        int           `json:"samples"`
	Summary        stats.Summary `json:"summary"`
	Stats          string        `json:"stats"`
	LocationStatus string        `json:"location_status"`
	NetworkStatus  string        `json:"network_status"`
	Alert          string        `json:"alert"`
	Link           *netinfo.Info `json:"link,omitempty"`
	RunID          string        `json:"run_id,omitempty"`
	Track          []gps.Sample  `json:"-"`
}

type positionEvent struct {
	epoch uint64
	pos   sensor.Position
}

type errorEvent struct {
	epoch uint64
	err   error
}

type linkEvent struct {
	info netinfo.Info
}

type timerEvent struct {
	gen uint64
}

type resetEvent struct{}

type snapshotEvent struct {
	reply chan Snapshot
}

// Session owns one tracking run. All state below events is touched only by
// the goroutine executing Run.
type Session struct {
	id     string
	cfg    Config
	deps   Deps
	clock  Clock
	events chan any
	done   chan struct{}

	ctx       context.Context
	state     State
	track     gps.Track
	epoch     uint64
	watch     sensor.Handle
	watchdog  *Watchdog
	link      *netinfo.Info
	runID     string
	location  string
	network   string
	alert     string
	statsText string
}

func New(cfg Config, deps Deps) *Session {
	clock := deps.Clock
	if clock == nil {
		clock = RealClock{}
	}
	if cfg.StopAfter <= 0 {
		cfg.StopAfter = 15 * time.Second
	}
	s := &Session{
		id:     uuid.NewString(),
		cfg:    cfg,
		deps:   deps,
		clock:  clock,
		events: make(chan any, 64),
		done:   make(chan struct{}),
		ctx:    context.Background(),
		state:  StateUninitialized,
	}
	s.watchdog = NewWatchdog(clock, cfg.StopAfter, func(gen uint64) {
		s.post(timerEvent{gen: gen})
	})
	return s
}

func (s *Session) ID() string {
	return s.id
}

// Run starts sensing and processes events until ctx is done. It must be
// called once.
func (s *Session) Run(ctx context.Context) {
	defer close(s.done)
	s.open(ctx)
	for {
		select {
		case <-ctx.Done():
			s.shutdown()
			return
		case ev := <-s.events:
			s.handle(ev)
		}
	}
}

// Reset discards the current track and restarts sensing.
func (s *Session) Reset() {
	s.post(resetEvent{})
}

func (s *Session) Snapshot(ctx context.Context) (Snapshot, error) {
	reply := make(chan Snapshot, 1)
	select {
	case s.events <- snapshotEvent{reply: reply}:
	case <-s.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
	select {
	case snap := <-reply:
		return snap, nil
	case <-s.done:
		return Snapshot{}, ErrClosed
	case <-ctx.Done():
		return Snapshot{}, ctx.Err()
	}
}

func (s *Session) post(ev any) {
	select {
	case s.events <- ev:
	case <-s.done:
	}
}

func (s *Session) open(ctx context.Context) {
	s.ctx = ctx
	if s.deps.Network == nil {
		s.setNetwork(netinfo.UnknownStatus)
	} else {
		if info, ok := s.deps.Network.Current(); ok {
			s.applyLink(info)
		} else {
			s.setNetwork(netinfo.UnknownStatus)
		}
		s.deps.Network.Subscribe(ctx, func(info netinfo.Info) {
			s.post(linkEvent{info: info})
		})
	}
	s.start()
}

func (s *Session) handle(ev any) {
	switch ev := ev.(type) {
	case positionEvent:
		if ev.epoch != s.epoch || s.watch == nil {
			return
		}
		s.accept(ev.pos)
	case errorEvent:
		if ev.epoch != s.epoch || s.watch == nil {
			return
		}
		s.sensingError(ev.err)
	case linkEvent:
		s.applyLink(ev.info)
	case timerEvent:
		if s.watchdog.Expire(ev.gen) {
			slog.Info("no movement detected", "session", s.id, "after", s.cfg.StopAfter)
			s.setAlert(AlertStopped)
		}
	case resetEvent:
		s.reset()
	case snapshotEvent:
		ev.reply <- s.snapshot()
	}
}

func (s *Session) start() {
	if s.deps.Positions == nil {
		s.unsupported()
		return
	}
	s.epoch++
	epoch := s.epoch
	h, err := s.deps.Positions.Watch(s.ctx, s.cfg.Options, sensor.Callbacks{
		OnPosition: func(p sensor.Position) { s.post(positionEvent{epoch: epoch, pos: p}) },
		OnError:    func(err error) { s.post(errorEvent{epoch: epoch, err: err}) },
	})
	if errors.Is(err, sensor.ErrUnavailable) {
		slog.Warn("position sensing unavailable", "session", s.id, "error", err)
		s.unsupported()
		return
	}
	if err != nil {
		slog.Error("start position watch", "session", s.id, "error", err)
		s.sensingError(err)
		return
	}
	s.watch = h
	s.state = StateStarting
	s.setLocation(StatusStarting)
}

func (s *Session) accept(pos sensor.Position) {
	at := pos.Timestamp
	if at.IsZero() {
		at = s.clock.Now()
	}
	sample := gps.Sample{Lat: pos.Latitude, Lon: pos.Longitude, Time: at}
	s.track.Append(sample)
	s.state = StateTracking
	s.setLocation(StatusTracking)
	s.record(sample)

	samples := s.track.Samples()
	if len(samples) >= 2 {
		s.redraw(samples)
	}
	s.setStats(stats.Format(gps.Compute(samples)))

	s.watchdog.Arm()
	s.setAlert("")
}

func (s *Session) redraw(samples []gps.Sample) {
	if s.deps.Canvas == nil {
		return
	}
	path, err := s.cfg.Projector.Project(samples)
	if err != nil {
		slog.Warn("skipping redraw", "session", s.id, "samples", len(samples), "error", err)
		return
	}
	projector.Render(s.deps.Canvas, path, s.cfg.Style)
}

func (s *Session) sensingError(err error) {
	s.state = StateError
	msg := err.Error()
	s.setLocation("Location: Error: " + msg)
	s.setAlert("Location error: " + msg)
}

func (s *Session) unsupported() {
	s.state = StateError
	s.setLocation(StatusUnsupported)
}

func (s *Session) applyLink(info netinfo.Info) {
	s.link = &info
	s.setNetwork(info.Status())
	if info.Poor() {
		s.setAlert(AlertPoorNetwork)
	} else {
		s.setAlert("")
	}
}

func (s *Session) reset() {
	s.watchdog.Cancel()
	s.stopWatch()
	s.endRun(s.clock.Now())
	s.track.Reset()
	if s.deps.Canvas != nil {
		s.deps.Canvas.Clear()
	}
	s.setStats("")
	s.setAlert("")
	s.state = StateWaiting
	s.setLocation(StatusWaiting)
	s.start()
}

func (s *Session) shutdown() {
	s.watchdog.Cancel()
	s.stopWatch()
	s.endRun(s.clock.Now())
}

func (s *Session) stopWatch() {
	if s.watch != nil {
		s.watch.Stop()
		s.watch = nil
	}
	s.epoch++
}

func (s *Session) record(sample gps.Sample) {
	if s.deps.Recorder == nil {
		return
	}
	if s.runID == "" {
		id, err := s.deps.Recorder.Begin(s.ctx, s.id, sample.Time)
		if err != nil {
			slog.Error("begin run", "session", s.id, "error", err)
			return
		}
		s.runID = id
	}
	if err := s.deps.Recorder.Record(s.ctx, s.runID, sample); err != nil {
		slog.Error("record sample", "session", s.id, "run", s.runID, "error", err)
	}
}

func (s *Session) endRun(at time.Time) {
	if s.deps.Recorder == nil || s.runID == "" {
		return
	}
	if err := s.deps.Recorder.End(context.WithoutCancel(s.ctx), s.runID, at); err != nil {
		slog.Error("end run", "session", s.id, "run", s.runID, "error", err)
	}
	s.runID = ""
}

func (s *Session) snapshot() Snapshot {
	samples := s.track.Samples()
	snap := Snapshot{
		ID:             s.id,
		State:          s.state,
		Samples:        len(samples),
		Summary:        gps.Compute(samples),
		Stats:          s.statsText,
		LocationStatus: s.location,
		NetworkStatus:  s.network,
		Alert:          s.alert,
		RunID:          s.runID,
		Track:          append([]gps.Sample(nil), samples...),
	}
	if s.link != nil {
		link := *s.link
		snap.Link = &link
	}
	return snap
}

func (s *Session) setLocation(text string) {
	s.location = text
	if s.deps.Display != nil {
		s.deps.Display.SetLocationStatus(text)
	}
}

func (s *Session) setNetwork(text string) {
	s.network = text
	if s.deps.Display != nil {
		s.deps.Display.SetNetworkStatus(text)
	}
}

func (s *Session) setAlert(text string) {
	s.alert = text
	if s.deps.Display != nil {
		s.deps.Display.SetAlert(text)
	}
}

func (s *Session) setStats(text string) {
	s.statsText = text
	if s.deps.Display != nil {
		s.deps.Display.SetStats(text)
	}
}
