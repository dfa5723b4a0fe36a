package draw

import (
	"fmt"
	"image/color"
	"io"
	"math"
	"sync"

	"gonum.org/v1/plot/vg"
	"gonum.org/v1/plot/vg/vgimg"
)

// Raster is a Sink backed by an in-memory image. One canvas point maps to
// one pixel. It is safe to encode while another goroutine draws.
type Raster struct {
	mu         sync.Mutex
	width      float64
	height     float64
	background color.Color
	canvas     *vgimg.Canvas
}

func NewRaster(width, height int) *Raster {
	r := &Raster{
		width:      float64(width),
		height:     float64(height),
		background: color.White,
		canvas: vgimg.NewWith(
			vgimg.UseWH(vg.Length(width), vg.Length(height)),
			vgimg.UseDPI(72),
		),
	}
	r.Clear()
	return r
}

func (r *Raster) Size() (width, height float64) {
	return r.width, r.height
}

func (r *Raster) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	var p vg.Path
	p.Move(vg.Point{X: 0, Y: 0})
	p.Line(vg.Point{X: vg.Length(r.width), Y: 0})
	p.Line(vg.Point{X: vg.Length(r.width), Y: vg.Length(r.height)})
	p.Line(vg.Point{X: 0, Y: vg.Length(r.height)})
	p.Close()

	r.canvas.SetColor(r.background)
	r.canvas.Fill(p)
}

func (r *Raster) Polyline(points []Point, width float64, c color.Color) {
	if len(points) < 2 {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	var p vg.Path
	for i, pt := range points {
		if i == 0 {
			p.Move(r.toCanvas(pt))
			continue
		}
		p.Line(r.toCanvas(pt))
	}

	r.canvas.SetLineWidth(vg.Length(width))
	r.canvas.SetColor(c)
	r.canvas.Stroke(p)
}

func (r *Raster) Circle(center Point, radius float64, c color.Color) {
	r.mu.Lock()
	defer r.mu.Unlock()

	pt := r.toCanvas(center)
	var p vg.Path
	p.Move(vg.Point{X: pt.X + vg.Length(radius), Y: pt.Y})
	p.Arc(pt, vg.Length(radius), 0, 2*math.Pi)
	p.Close()

	r.canvas.SetColor(c)
	r.canvas.Fill(p)
}

// WritePNG encodes the current canvas.
func (r *Raster) WritePNG(w io.Writer) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	png := vgimg.PngCanvas{Canvas: r.canvas}
	if _, err := png.WriteTo(w); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// toCanvas flips Y: vg puts the origin bottom-left.
func (r *Raster) toCanvas(p Point) vg.Point {
	return vg.Point{X: vg.Length(p.X), Y: vg.Length(r.height - p.Y)}
}
