// Package tft wires a touch sampler and an ILI9341 panel together: a linear
// raw-to-pixel mapper, a periph display driver for the panel, and the
// rendering used while capturing calibration targets.
package tft

import "image"

// Native panel size of the ILI9341 in its unrotated portrait orientation.
const (
	NativeWidth  = 240
	NativeHeight = 320
)

// RawSource provides raw readings in display axes. *ads7846.Dev implements
// it.
type RawSource interface {
	XRaw() uint16
	YRaw() uint16
}

// Bounds are the raw readings at the screen edges, in display axes.
type Bounds struct {
	XMin, XMax, YMin, YMax int
}

// Touch rescales raw readings linearly between calibrated edge values.
//
// By default values outside the calibrated range extrapolate past the
// screen; SetClamp limits them to the screen.
type Touch struct {
	src    RawSource
	width  int
	height int
	b      Bounds
	clamp  bool
}

// NewTouch returns a mapper onto a width by height screen.
func NewTouch(src RawSource, width, height int) *Touch {
	return &Touch{src: src, width: width, height: height}
}

// Calibrate stores the raw edge readings. The panel is mounted a quarter
// turn from the sensor, so the X bounds given here drive Y and the Y bounds
// drive X.
func (t *Touch) Calibrate(xMin, xMax, yMin, yMax int) {
	t.b = Bounds{XMin: yMin, XMax: yMax, YMin: xMin, YMax: xMax}
}

// Bounds returns the stored edge readings as applied to each axis.
func (t *Touch) Bounds() Bounds {
	return t.b
}

// SetClamp limits X and Y to the screen when on is true.
func (t *Touch) SetClamp(on bool) {
	t.clamp = on
}

// X returns the horizontal pixel of the last reading.
func (t *Touch) X() int {
	return t.scale(int(t.src.XRaw()), t.b.XMin, t.b.XMax, t.width)
}

// Y returns the vertical pixel of the last reading.
func (t *Touch) Y() int {
	return t.scale(int(t.src.YRaw()), t.b.YMin, t.b.YMax, t.height)
}

// Point returns X and Y together.
func (t *Touch) Point() image.Point {
	return image.Pt(t.X(), t.Y())
}

func (t *Touch) scale(v, inMin, inMax, out int) int {
	if inMin == inMax {
		return 0
	}
	p := mapRange(v, inMin, inMax, 0, out)
	if t.clamp {
		if p < 0 {
			p = 0
		}
		if p > out-1 {
			p = out - 1
		}
	}
	return p
}

func mapRange(v, inMin, inMax, outMin, outMax int) int {
	return (v-inMin)*(outMax-outMin)/(inMax-inMin) + outMin
}
