// Package ads7846 drives ADS7846/TSC2046-class resistive touch controllers.
//
// The driver is polled: call Service at a regular interval (once per UI frame
// is typical) and read the latest sample through XRaw, YRaw and Pressure.
// Samples are filtered by requiring two consecutive conversions of an axis to
// agree exactly; a disagreeing pass keeps the previous sample.
//
// Datasheet
//
// https://www.ti.com/lit/ds/symlink/ads7846.pdf
package ads7846

import (
	"errors"
	"fmt"

	"github.com/golang/glog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/gpio"
	"tinygo.org/x/drivers"
	"tinygo.org/x/drivers/touch"
)

// Control byte fields.
const (
	cmdStart    = 0x80
	cmd12Bit    = 0x00
	cmd8Bit     = 0x08
	cmdDiff     = 0x00
	cmdSingle   = 0x04
	cmdXPos     = 0x10
	cmdZ1Pos    = 0x30
	cmdZ2Pos    = 0x40
	cmdYPos     = 0x50
	cmdPowDown  = 0x00
	cmdAlwaysOn = 0x03
)

// Resolution selects how a two byte position conversion is decoded.
type Resolution uint8

const (
	// Resolution10 keeps the top 10 bits of each conversion.
	Resolution10 Resolution = iota
	// Resolution12 keeps the full 12 bits of each conversion.
	Resolution12
)

func (r Resolution) String() string {
	switch r {
	case Resolution10:
		return "10bit"
	case Resolution12:
		return "12bit"
	default:
		return fmt.Sprintf("Resolution(%d)", uint8(r))
	}
}

// Max returns the largest value a conversion decodes to.
func (r Resolution) Max() uint16 {
	if r == Resolution12 {
		return 4095
	}
	return 1023
}

func (r Resolution) decode(hi, lo byte) uint16 {
	if r == Resolution12 {
		return uint16(hi)<<4 | uint16(lo)>>4
	}
	return uint16(hi)<<2 | uint16(lo)>>6
}

// Opts holds the configuration options.
type Opts struct {
	// MinPressure is the composite pressure a reading must exceed to count as
	// a touch.
	MinPressure uint8
	// Resolution of position conversions.
	Resolution Resolution
	// IRQ is the optional PENIRQ line, active low. May be nil.
	IRQ gpio.PinIn
}

// DefaultOpts is the recommended default options.
var DefaultOpts = Opts{
	MinPressure: 5,
	Resolution:  Resolution10,
}

// Sample is the last committed reading in the controller's native axes.
type Sample struct {
	X, Y     uint16
	Pressure uint8
}

// Dev is a handle to an ADS7846 touch controller.
type Dev struct {
	bus         drivers.SPI
	cs          gpio.PinOut
	opts        Opts
	sample      Sample
	orientation Orientation
	commits     uint64
}

// New returns a driver on bus with chip select cs.
//
// The bus must already be configured for mode 0. CS is driven high (idle) and
// the sample and orientation are reset.
func New(bus drivers.SPI, cs gpio.PinOut, opts *Opts) (*Dev, error) {
	if bus == nil {
		return nil, errors.New("ads7846: bus is required")
	}
	if cs == nil {
		return nil, errors.New("ads7846: chip select is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	d := &Dev{bus: bus, cs: cs, opts: *opts}
	if err := cs.Out(gpio.High); err != nil {
		return nil, fmt.Errorf("ads7846: cs: %w", err)
	}
	if d.opts.IRQ != nil {
		if err := d.opts.IRQ.In(gpio.PullUp, gpio.NoEdge); err != nil {
			return nil, fmt.Errorf("ads7846: irq: %w", err)
		}
	}
	return d, nil
}

func (d *Dev) String() string {
	return fmt.Sprintf("ADS7846{%s, %s}", d.cs, d.opts.Resolution)
}

// Halt releases chip select.
func (d *Dev) Halt() error {
	return d.cs.Out(gpio.High)
}

// Service runs one acquisition pass.
//
// Pressure is sampled first. When it does not exceed MinPressure the
// pressure is reported as 0 and the position is left alone. Otherwise X and
// Y are each converted twice and the position is committed only when both
// pairs agree and neither axis reads 0. Pressure is committed either way.
//
// An error is returned only when the bus or CS line fails; the sample is
// then unchanged.
func (d *Dev) Service() error {
	p, err := d.readPressure()
	if err != nil {
		return err
	}
	if p <= d.opts.MinPressure {
		d.sample.Pressure = 0
		return nil
	}
	x, y, ok, err := d.readPosition()
	if err != nil {
		return err
	}
	if ok {
		d.sample.X, d.sample.Y = x, y
		d.commits++
	}
	d.sample.Pressure = p
	glog.V(2).Infof("ads7846: p=%d x=%d y=%d committed=%t", p, x, y, ok)
	return nil
}

// XRaw returns the last committed reading of the horizontal display axis,
// which is the controller's Y channel on this panel.
func (d *Dev) XRaw() uint16 {
	return d.sample.Y
}

// YRaw returns the last committed reading of the vertical display axis,
// which is the controller's X channel on this panel.
func (d *Dev) YRaw() uint16 {
	return d.sample.X
}

// Commits returns the number of passes that committed a position. A caller
// that needs a position taken while the pen is down compares it across
// Service calls, since a rejected pass keeps the previous position.
func (d *Dev) Commits() uint64 {
	return d.commits
}

// Resolution returns the configured conversion resolution.
func (d *Dev) Resolution() Resolution {
	return d.opts.Resolution
}

// Pressure returns the last composite pressure; 0 means not touched.
func (d *Dev) Pressure() uint8 {
	return d.sample.Pressure
}

// Touched reports whether the last pass saw a touch.
func (d *Dev) Touched() bool {
	return d.sample.Pressure > 0
}

// Sample returns the last committed reading in native axes.
func (d *Dev) Sample() Sample {
	return d.sample
}

// PenDown reports the PENIRQ line. Without an IRQ line it always reports
// true so callers fall back to pressure gating.
func (d *Dev) PenDown() bool {
	if d.opts.IRQ == nil {
		return true
	}
	return d.opts.IRQ.Read() == gpio.Low
}

// ReadTouchPoint implements touch.Pointer. It runs one Service pass and
// returns the display-axis reading, with Z 0 when untouched.
func (d *Dev) ReadTouchPoint() touch.Point {
	if err := d.Service(); err != nil {
		glog.Errorf("ads7846: service: %v", err)
	}
	return touch.Point{
		X: int(d.XRaw()),
		Y: int(d.YRaw()),
		Z: int(d.Pressure()),
	}
}

func (d *Dev) readPressure() (p uint8, err error) {
	err = d.selected(func() error {
		z1, err := d.convert8(cmdStart | cmd8Bit | cmdDiff | cmdZ1Pos)
		if err != nil {
			return err
		}
		z2, err := d.convert8(cmdStart | cmd8Bit | cmdDiff | cmdZ2Pos)
		if err != nil {
			return err
		}
		p = z1&0x7F + (255-z2)&0x7F
		return nil
	})
	return p, err
}

func (d *Dev) readPosition() (x, y uint16, ok bool, err error) {
	var x1, x2, y1, y2 uint16
	err = d.selected(func() error {
		var err error
		if x1, err = d.convert12(cmdStart | cmd12Bit | cmdDiff | cmdXPos); err != nil {
			return err
		}
		if x2, err = d.convert12(cmdStart | cmd12Bit | cmdDiff | cmdXPos); err != nil {
			return err
		}
		if y1, err = d.convert12(cmdStart | cmd12Bit | cmdDiff | cmdYPos); err != nil {
			return err
		}
		y2, err = d.convert12(cmdStart | cmd12Bit | cmdDiff | cmdYPos)
		return err
	})
	if err != nil {
		return 0, 0, false, err
	}
	if x1 != x2 || y1 != y2 {
		glog.V(1).Infof("ads7846: rejected x=%d/%d y=%d/%d", x1, x2, y1, y2)
		return 0, 0, false, nil
	}
	x = d.opts.Resolution.Max() - x2
	y = y2
	return x, y, x != 0 && y != 0, nil
}

// selected runs fn with CS asserted and always releases it afterwards.
func (d *Dev) selected(fn func() error) (err error) {
	if err := d.cs.Out(gpio.Low); err != nil {
		return fmt.Errorf("ads7846: cs: %w", err)
	}
	defer func() {
		if rerr := d.cs.Out(gpio.High); rerr != nil {
			err = multierr.Append(err, fmt.Errorf("ads7846: cs: %w", rerr))
		}
	}()
	if err := fn(); err != nil {
		return fmt.Errorf("ads7846: transfer: %w", err)
	}
	return nil
}

func (d *Dev) convert8(cmd byte) (byte, error) {
	if _, err := d.bus.Transfer(cmd); err != nil {
		return 0, err
	}
	return d.bus.Transfer(0)
}

func (d *Dev) convert12(cmd byte) (uint16, error) {
	if _, err := d.bus.Transfer(cmd); err != nil {
		return 0, err
	}
	hi, err := d.bus.Transfer(0)
	if err != nil {
		return 0, err
	}
	lo, err := d.bus.Transfer(0)
	if err != nil {
		return 0, err
	}
	return d.opts.Resolution.decode(hi, lo), nil
}

var _ touch.Pointer = &Dev{}
