// Package draw holds the immediate-mode drawing surface the track is
// rendered onto.
package draw

import "image/color"

// Point is a canvas coordinate in pixels, origin top-left, Y growing down.
type Point struct {
	X float64
	Y float64
}

// Sink is a 2D immediate-mode canvas.
type Sink interface {
	Clear()
	Polyline(points []Point, width float64, c color.Color)
	Circle(center Point, radius float64, c color.Color)
}
