package calib

import "github.com/dailypush/tfttouch/ads7846"

// Screen describes the display a calibration targets. Width and Height are
// in the orientation the calibration was taken in.
type Screen struct {
	Width, Height int
	Orientation   ads7846.Orientation
}

// DefaultScreen is the 320x240 landscape panel.
var DefaultScreen = Screen{Width: 320, Height: 240}

// DefaultTargets returns the three reference points drawn during capture on
// a w by h screen: near the top left corner, the middle of the right edge
// and the middle of the bottom edge.
func DefaultTargets(w, h int) [3]Point {
	return [3]Point{
		{X: 20, Y: 20},
		{X: w - 20, Y: h / 2},
		{X: w / 2, Y: h - 20},
	}
}

// Size returns the screen dimensions as seen in its orientation.
func (s Screen) Size() (w, h int) {
	switch s.Orientation {
	case ads7846.Orientation90, ads7846.Orientation270:
		return s.Height, s.Width
	default:
		return s.Width, s.Height
	}
}

// Rotate clamps p to the screen and rotates it clockwise into s's
// orientation.
func (s Screen) Rotate(p Point) Point {
	x := clamp(p.X, 0, s.Width-1)
	y := clamp(p.Y, 0, s.Height-1)
	switch s.Orientation {
	case ads7846.Orientation90:
		return Point{X: s.Height - 1 - y, Y: x}
	case ads7846.Orientation180:
		return Point{X: s.Width - 1 - x, Y: s.Height - 1 - y}
	case ads7846.Orientation270:
		return Point{X: y, Y: s.Width - 1 - x}
	default:
		return Point{X: x, Y: y}
	}
}

// ScreenPoint transforms raw through the live matrix and places the result
// on s.
func (c *Calibrator) ScreenPoint(raw Point, s Screen) (Point, error) {
	p, err := c.Transform(raw)
	if err != nil {
		return Point{}, err
	}
	return s.Rotate(p), nil
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
