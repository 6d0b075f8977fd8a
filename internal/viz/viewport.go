package viz

import (
	"math"

	"github.com/san-kum/gravsim/internal/dynamo"
	"github.com/san-kum/gravsim/internal/sim"
)

const (
	zoomStep = 1.25
	tiltStep = math.Pi / 24
	panStep  = 0.1
	fitFill  = 0.9
)

// Viewport maps world positions onto canvas sub-pixels. With Tilt and Spin
// at zero it is a top-down projection onto the x-y plane, +y up.
type Viewport struct {
	Center dynamo.Vec3
	// Scale is sub-pixels per world unit.
	Scale float64
	// Tilt rotates about the screen x axis, Spin about the world z axis.
	Tilt, Spin float64
}

func NewViewport() Viewport {
	return Viewport{Scale: 1}
}

func (v Viewport) rotate(p dynamo.Vec3) dynamo.Vec3 {
	if v.Spin != 0 {
		s, c := math.Sincos(v.Spin)
		p.X, p.Y = p.X*c-p.Y*s, p.X*s+p.Y*c
	}
	if v.Tilt != 0 {
		s, c := math.Sincos(v.Tilt)
		p.Y, p.Z = p.Y*c-p.Z*s, p.Y*s+p.Z*c
	}
	return p
}

// Project returns the sub-pixel for p on a w x h sub-pixel canvas and
// whether it falls inside it.
func (v Viewport) Project(p dynamo.Vec3, w, h int) (x, y int, ok bool) {
	q := v.rotate(p.Sub(v.Center))
	fx := float64(w)/2 + q.X*v.Scale
	fy := float64(h)/2 - q.Y*v.Scale
	if math.IsNaN(fx) || math.IsNaN(fy) || math.IsInf(fx, 0) || math.IsInf(fy, 0) {
		return 0, 0, false
	}
	fx, fy = math.Floor(fx), math.Floor(fy)
	if fx < 0 || fy < 0 || fx >= float64(w) || fy >= float64(h) {
		return 0, 0, false
	}
	return int(fx), int(fy), true
}

// Fit centres the view on the bounding box of the active bodies and scales
// it to fill most of the canvas. A single body keeps the current scale.
func (v *Viewport) Fit(bodies []sim.BodyState, w, h int) {
	var lo, hi dynamo.Vec3
	n := 0
	for _, b := range bodies {
		if !b.Active || !b.Position.IsFinite() {
			continue
		}
		p := b.Position
		if n == 0 {
			lo, hi = p, p
		} else {
			lo = dynamo.Vec3{X: math.Min(lo.X, p.X), Y: math.Min(lo.Y, p.Y), Z: math.Min(lo.Z, p.Z)}
			hi = dynamo.Vec3{X: math.Max(hi.X, p.X), Y: math.Max(hi.Y, p.Y), Z: math.Max(hi.Z, p.Z)}
		}
		n++
	}
	if n == 0 {
		return
	}
	v.Center = lo.Add(hi).Scale(0.5)
	extent := math.Max(hi.X-lo.X, math.Max(hi.Y-lo.Y, hi.Z-lo.Z)) / 2
	if extent > 0 {
		v.Scale = fitFill * float64(min(w, h)) / (2 * extent)
	}
	if !(v.Scale > 0) {
		v.Scale = 1
	}
}

func (v *Viewport) ZoomIn()  { v.Scale *= zoomStep }
func (v *Viewport) ZoomOut() { v.Scale /= zoomStep }

// Pan moves the centre by a fraction of the visible width or height.
func (v *Viewport) Pan(fx, fy float64, w, h int) {
	v.Center.X += fx * float64(w) / v.Scale
	v.Center.Y += fy * float64(h) / v.Scale
}

func (v *Viewport) Rotate(dTilt, dSpin float64) {
	v.Tilt = math.Remainder(v.Tilt+dTilt, 2*math.Pi)
	v.Spin = math.Remainder(v.Spin+dSpin, 2*math.Pi)
}

// PixelRadius is the drawn radius of a body, at least one sub-pixel and
// capped so a close zoom does not flood the canvas.
func (v Viewport) PixelRadius(radius float64) int {
	r := int(radius * v.Scale)
	switch {
	case r < 1:
		return 0
	case r > 6:
		return 6
	}
	return r
}
