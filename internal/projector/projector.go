// Package projector maps geographic tracks onto a fixed-size canvas.
package projector

import (
	"errors"
	"image/color"

	"github.com/paulmach/orb"

	"smartjogger/internal/draw"
	"smartjogger/internal/gps"
)

var (
	// ErrTooFewSamples is returned for sequences shorter than two samples.
	ErrTooFewSamples = errors.New("projector: at least two samples required")
	// ErrZeroSpan is returned when an axis has no extent and no padding.
	ErrZeroSpan = errors.New("projector: zero span on an unpadded axis")
)

// Padding is added to the coordinate span of each axis, in degrees, before
// the scale is derived.
type Padding struct {
	Lon float64
	Lat float64
}

// DefaultPadding pads the longitude span only.
var DefaultPadding = Padding{Lon: 0.0005}

// Projector fits a track into a Width x Height canvas with an independent
// scale per axis.
type Projector struct {
	Width   float64
	Height  float64
	Padding Padding
}

// Path is a projected track. Current is the projection of the newest sample.
type Path struct {
	Points  []draw.Point
	Current draw.Point
	Bound   orb.Bound
}

// Project recomputes the bounding box over every sample and maps each one
// onto the canvas. North is up.
func (p Projector) Project(samples []gps.Sample) (Path, error) {
	if len(samples) < 2 {
		return Path{}, ErrTooFewSamples
	}

	bound := Bound(samples)
	minLng, minLat := bound.Min.Lon(), bound.Min.Lat()
	maxLng, maxLat := bound.Max.Lon(), bound.Max.Lat()

	spanX := maxLng - minLng + p.Padding.Lon
	spanY := maxLat - minLat + p.Padding.Lat
	if spanX == 0 || spanY == 0 {
		return Path{}, ErrZeroSpan
	}
	scaleX := p.Width / spanX
	scaleY := p.Height / spanY

	points := make([]draw.Point, len(samples))
	for i, s := range samples {
		points[i] = draw.Point{
			X: (s.Lon - minLng) * scaleX,
			Y: p.Height - (s.Lat-minLat)*scaleY,
		}
	}

	return Path{Points: points, Current: points[len(points)-1], Bound: bound}, nil
}

// Bound returns the lon/lat bounding box of the samples.
func Bound(samples []gps.Sample) orb.Bound {
	mp := make(orb.MultiPoint, len(samples))
	for i, s := range samples {
		mp[i] = orb.Point{s.Lon, s.Lat}
	}
	return mp.Bound()
}

// Style controls how a path is stroked.
type Style struct {
	LineWidth    float64
	LineColor    color.Color
	MarkerRadius float64
	MarkerColor  color.Color
}

// DefaultStyle is a blue 3px trail with a red 6px position marker.
var DefaultStyle = Style{
	LineWidth:    3,
	LineColor:    color.RGBA{R: 0x21, G: 0x96, B: 0xf3, A: 0xff},
	MarkerRadius: 6,
	MarkerColor:  color.RGBA{R: 0xd3, G: 0x2f, B: 0x2f, A: 0xff},
}

// Render clears the sink and draws the path followed by the current-position
// marker.
func Render(sink draw.Sink, path Path, style Style) {
	sink.Clear()
	sink.Polyline(path.Points, style.LineWidth, style.LineColor)
	sink.Circle(path.Current, style.MarkerRadius, style.MarkerColor)
}
