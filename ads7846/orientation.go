package ads7846

import "tinygo.org/x/drivers"

// Orientation is the panel rotation in degrees, clockwise.
type Orientation uint16

const (
	Orientation0   Orientation = 0
	Orientation90  Orientation = 90
	Orientation180 Orientation = 180
	Orientation270 Orientation = 270
)

// ParseOrientation maps v onto one of the four orientations. It accepts the
// short forms 9, 18 and 27, the full degree values, and 14 as a legacy
// encoding of 270. Anything else is 0.
func ParseOrientation(v uint16) Orientation {
	switch v {
	case 9, 90:
		return Orientation90
	case 18, 180:
		return Orientation180
	case 27, 14, 270:
		return Orientation270
	default:
		return Orientation0
	}
}

// Rotation converts o to the tinygo display rotation.
func (o Orientation) Rotation() drivers.Rotation {
	switch o {
	case Orientation90:
		return drivers.Rotation90
	case Orientation180:
		return drivers.Rotation180
	case Orientation270:
		return drivers.Rotation270
	default:
		return drivers.Rotation0
	}
}

// SetOrientation records the panel rotation. Unrecognised values silently
// select Orientation0.
func (d *Dev) SetOrientation(v uint16) {
	d.orientation = ParseOrientation(v)
}

// SetRotation is an alias of SetOrientation.
func (d *Dev) SetRotation(v uint16) {
	d.SetOrientation(v)
}

// Orientation returns the recorded panel rotation.
func (d *Dev) Orientation() Orientation {
	return d.orientation
}
