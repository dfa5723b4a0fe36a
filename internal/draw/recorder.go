package draw

import (
	"image/color"
	"sync"
)

// OpKind names a recorded drawing call.
type OpKind string

const (
	OpClear    OpKind = "clear"
	OpPolyline OpKind = "polyline"
	OpCircle   OpKind = "circle"
)

// Op is one call received by a Recorder.
type Op struct {
	Kind   OpKind
	Points []Point
	Width  float64
	Radius float64
	Color  color.Color
}

// Recorder is a Sink that keeps every call it receives.
type Recorder struct {
	mu  sync.Mutex
	ops []Op
}

func (r *Recorder) Clear() {
	r.add(Op{Kind: OpClear})
}

func (r *Recorder) Polyline(points []Point, width float64, c color.Color) {
	pts := make([]Point, len(points))
	copy(pts, points)
	r.add(Op{Kind: OpPolyline, Points: pts, Width: width, Color: c})
}

func (r *Recorder) Circle(center Point, radius float64, c color.Color) {
	r.add(Op{Kind: OpCircle, Points: []Point{center}, Radius: radius, Color: c})
}

// Ops returns a copy of the recorded calls.
func (r *Recorder) Ops() []Op {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Op, len(r.ops))
	copy(out, r.ops)
	return out
}

// Last returns the most recent call.
func (r *Recorder) Last() (Op, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.ops) == 0 {
		return Op{}, false
	}
	return r.ops[len(r.ops)-1], true
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = nil
}

func (r *Recorder) add(op Op) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
}
