// Package replay plays a recorded run back as a live position source.
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartjogger/internal/gps"
	"smartjogger/internal/sensor"
	"smartjogger/internal/storage"
)

var ErrEmptyRun = errors.New("replay: run has no samples")

// Replayer re-emits the samples of RunID with their original spacing divided
// by Speed. Fixes are restamped relative to the start of the watch.
type Replayer struct {
	Store *storage.Store
	RunID string
	Speed float64
}

func (r *Replayer) Watch(ctx context.Context, _ sensor.Options, cb sensor.Callbacks) (sensor.Handle, error) {
	samples, err := r.Store.LoadRunSamples(ctx, r.RunID)
	if err != nil {
		return nil, fmt.Errorf("load run %s: %w", r.RunID, err)
	}
	if len(samples) == 0 {
		return nil, ErrEmptyRun
	}

	ctx, cancel := context.WithCancel(ctx)
	fixes := make(chan sensor.Position)
	go func() {
		defer close(fixes)
		r.play(ctx, samples, time.Now(), fixes)
		<-ctx.Done()
	}()
	go sensor.Relay(ctx, sensor.Options{}, fixes, nil, cb)

	return sensor.StopFunc(cancel), nil
}

func (r *Replayer) play(ctx context.Context, samples []gps.Sample, start time.Time, fixes chan<- sensor.Position) {
	speed := r.Speed
	if speed <= 0 {
		speed = 1
	}
	first := samples[0].Time
	for _, s := range samples {
		// Sleep until the sample's slot relative to start so waits do not
		// accumulate timer overshoot.
		at := start.Add(time.Duration(float64(s.Time.Sub(first)) / speed))
		if wait := time.Until(at); wait > 0 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(wait):
			}
		}
		pos := sensor.Position{Latitude: s.Lat, Longitude: s.Lon, Timestamp: at}
		select {
		case fixes <- pos:
		case <-ctx.Done():
			return
		}
	}
}
