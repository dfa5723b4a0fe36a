// Package sensor defines the continuous position source the session watches
// and the plumbing shared by its implementations.
package sensor

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var (
	// ErrUnavailable means the host has no way to sense position at all.
	ErrUnavailable = errors.New("geolocation not supported")
	// ErrTimeout is reported when no fix arrives within Options.Timeout.
	ErrTimeout = errors.New("timeout expired")
	// ErrPositionUnavailable is reported when the receiver has no fix.
	ErrPositionUnavailable = errors.New("position unavailable")
)

// Options configures a watch.
type Options struct {
	HighAccuracy bool
	// MaximumAge is the oldest cached fix a source may hand out when a
	// watch starts. Fixes delivered during the watch are never aged out.
	MaximumAge time.Duration
	// Timeout is how long the relay waits for a fix before reporting
	// ErrTimeout. The watch keeps running afterwards.
	Timeout time.Duration
}

// DefaultOptions are the watch options the tracker starts sensing with.
var DefaultOptions = Options{
	HighAccuracy: true,
	MaximumAge:   1000 * time.Millisecond,
	Timeout:      10000 * time.Millisecond,
}

// Position is one fix emitted by a source. A zero Timestamp means the
// receiver did not stamp it.
type Position struct {
	Latitude  float64   `json:"latitude"`
	Longitude float64   `json:"longitude"`
	Timestamp time.Time `json:"timestamp"`
}

func (p Position) Validate() error {
	if p.Latitude < -90 || p.Latitude > 90 {
		return fmt.Errorf("latitude: must be between -90 and 90")
	}
	if p.Longitude < -180 || p.Longitude > 180 {
		return fmt.Errorf("longitude: must be between -180 and 180")
	}
	return nil
}

// Callbacks receive the output of a watch. They may be called from any
// goroutine, one call at a time.
type Callbacks struct {
	OnPosition func(Position)
	OnError    func(error)
}

// Handle stops a running watch.
type Handle interface {
	Stop()
}

// StopFunc adapts a function to Handle.
type StopFunc func()

func (f StopFunc) Stop() { f() }

// Source starts continuous position sensing.
type Source interface {
	Watch(ctx context.Context, opts Options, cb Callbacks) (Handle, error)
}
