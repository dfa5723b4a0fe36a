// Package scenario plays scripted position fixes and connectivity readings
// loaded from YAML.
package scenario

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"

	"smartjogger/internal/netinfo"
	"smartjogger/internal/sensor"
)

// Step is one scripted position event. Error, when set, is delivered as a
// sensing failure instead of a fix. After is the pause before the step.
type Step struct {
	Lat   float64       `yaml:"lat"`
	Lon   float64       `yaml:"lon"`
	Error string        `yaml:"error"`
	After time.Duration `yaml:"after"`
}

// Link is one scripted connectivity reading.
type Link struct {
	EffectiveType string        `yaml:"effective_type"`
	DownlinkMbps  *float64      `yaml:"downlink_mbps"`
	After         time.Duration `yaml:"after"`
}

// Script is a loaded scenario. It serves as both a position and a
// connectivity source.
type Script struct {
	Unsupported bool   `yaml:"unsupported"`
	Positions   []Step `yaml:"positions"`
	Network     []Link `yaml:"network"`

	mu      sync.Mutex
	current netinfo.Info
	known   bool
}

func Load(path string) (*Script, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	return Parse(data)
}

func Parse(data []byte) (*Script, error) {
	var s Script
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	for i, step := range s.Positions {
		if step.Error != "" {
			continue
		}
		pos := sensor.Position{Latitude: step.Lat, Longitude: step.Lon}
		if err := pos.Validate(); err != nil {
			return nil, fmt.Errorf("positions[%d]: %w", i, err)
		}
	}
	return &s, nil
}

// Watch plays the position steps once. Each fix is stamped with the time it
// is emitted.
func (s *Script) Watch(ctx context.Context, _ sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	if s.Unsupported {
		return nil, sensor.ErrUnavailable
	}
	ctx, cancel := context.WithCancel(ctx)
	fixes := make(chan sensor.Position)
	errs := make(chan error)

	go func() {
		defer close(fixes)
		defer close(errs)
		for _, step := range s.Positions {
			if !sleep(ctx, step.After) {
				return
			}
			if step.Error != "" {
				select {
				case errs <- errors.New(step.Error):
				case <-ctx.Done():
					return
				}
				continue
			}
			select {
			case fixes <- sensor.Position{Latitude: step.Lat, Longitude: step.Lon, Timestamp: time.Now()}:
			case <-ctx.Done():
				return
			}
		}
		<-ctx.Done()
	}()
	// Scripts pause for arbitrarily long, so no timeout is relayed.
	go sensor.Relay(ctx, sensor.Options{}, fixes, errs, cb)

	return sensor.StopFunc(cancel), nil
}

func (s *Script) Current() (netinfo.Info, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current, s.known
}

// Subscribe plays the network steps once.
func (s *Script) Subscribe(ctx context.Context, fn func(netinfo.Info)) {
	go func() {
		for _, link := range s.Network {
			if !sleep(ctx, link.After) {
				return
			}
			info := netinfo.Info{EffectiveType: link.EffectiveType, DownlinkMbps: link.DownlinkMbps}
			s.mu.Lock()
			s.current = info
			s.known = true
			s.mu.Unlock()
			fn(info)
		}
	}()
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}
