package tft

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"time"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"
)

// ILI9341 commands.
const (
	cmdSWReset  = 0x01
	cmdSleepIn  = 0x10
	cmdSleepOut = 0x11
	cmdDispOff  = 0x28
	cmdDispOn   = 0x29
	cmdCASet    = 0x2A
	cmdPASet    = 0x2B
	cmdRAMWr    = 0x2C
	cmdMADCtl   = 0x36
	cmdPixFmt   = 0x3A
	cmdFrmCtr1  = 0xB1
	cmdDFunCtr  = 0xB6
	cmdPwCtr1   = 0xC0
	cmdPwCtr2   = 0xC1
	cmdVmCtr1   = 0xC5
	cmdVmCtr2   = 0xC7

	madctlMY  = 0x80
	madctlMX  = 0x40
	madctlMV  = 0x20
	madctlML  = 0x10
	madctlBGR = 0x08
)

// initSeq is command, argument count, arguments. Bit 7 of the count asks
// for a delay after the command.
var initSeq = []byte{
	cmdPwCtr1, 1, 0x23,
	cmdPwCtr2, 1, 0x10,
	cmdVmCtr1, 2, 0x3E, 0x28,
	cmdVmCtr2, 1, 0x86,
	cmdPixFmt, 1, 0x55,
	cmdFrmCtr1, 2, 0x00, 0x18,
	cmdDFunCtr, 3, 0x08, 0x82, 0x27,
	cmdSleepOut, 0x80,
	cmdDispOn, 0x80,
}

// Opts holds the configuration options.
type Opts struct {
	// Rotation of the panel, clockwise from portrait.
	Rotation drivers.Rotation
	// Frequency of the SPI clock.
	Frequency physic.Frequency
}

// DefaultOpts runs the panel in landscape, matching the 320x240 touch
// calibration.
var DefaultOpts = Opts{
	Rotation:  drivers.Rotation90,
	Frequency: 32 * physic.MegaHertz,
}

// ILI9341 drives an ILI9341 TFT controller over SPI.
type ILI9341 struct {
	c        spi.Conn
	dc       gpio.PinOut
	rst      gpio.PinOut
	rotation drivers.Rotation
	maxTx    int
}

// NewILI9341 connects to the panel on p. rst may be nil, in which case Init
// issues a software reset. The panel is not touched until Init.
func NewILI9341(p spi.Port, dc, rst gpio.PinOut, opts *Opts) (*ILI9341, error) {
	if dc == nil {
		return nil, errors.New("tft: dc pin is required")
	}
	if opts == nil {
		opts = &DefaultOpts
	}
	f := opts.Frequency
	if f == 0 {
		f = DefaultOpts.Frequency
	}
	c, err := p.Connect(f, spi.Mode0, 8)
	if err != nil {
		return nil, fmt.Errorf("tft: connect: %w", err)
	}
	d := &ILI9341{c: c, dc: dc, rst: rst, rotation: opts.Rotation % 4, maxTx: 4096}
	if l, ok := c.(conn.Limits); ok && l.MaxTxSize() > 0 {
		d.maxTx = l.MaxTxSize()
	}
	return d, nil
}

func (d *ILI9341) String() string {
	return fmt.Sprintf("ILI9341{%s, %s}", d.c, d.dc)
}

// Init resets the controller, runs the power-up sequence and applies the
// rotation.
func (d *ILI9341) Init() error {
	if d.rst != nil {
		for _, l := range []gpio.Level{gpio.High, gpio.Low, gpio.High} {
			if err := d.rst.Out(l); err != nil {
				return err
			}
			time.Sleep(100 * time.Millisecond)
		}
	} else {
		if err := d.command(cmdSWReset); err != nil {
			return err
		}
		time.Sleep(150 * time.Millisecond)
	}
	for i := 0; i < len(initSeq); {
		cmd, n := initSeq[i], int(initSeq[i+1]&0x7F)
		if err := d.command(cmd, initSeq[i+2:i+2+n]...); err != nil {
			return err
		}
		if initSeq[i+1]&0x80 != 0 {
			time.Sleep(150 * time.Millisecond)
		}
		i += 2 + n
	}
	return d.SetRotation(d.rotation)
}

// SetRotation changes the panel orientation.
func (d *ILI9341) SetRotation(r drivers.Rotation) error {
	var madctl byte
	switch r % 4 {
	case drivers.Rotation0:
		madctl = madctlMX | madctlBGR
	case drivers.Rotation90:
		madctl = madctlMV | madctlBGR
	case drivers.Rotation180:
		madctl = madctlMY | madctlBGR | madctlML
	case drivers.Rotation270:
		madctl = madctlMX | madctlMY | madctlMV | madctlBGR | madctlML
	}
	if err := d.command(cmdMADCtl, madctl); err != nil {
		return err
	}
	d.rotation = r % 4
	return nil
}

// Rotation returns the current orientation.
func (d *ILI9341) Rotation() drivers.Rotation {
	return d.rotation
}

// ColorModel implements display.Drawer.
func (d *ILI9341) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements display.Drawer.
func (d *ILI9341) Bounds() image.Rectangle {
	if d.rotation == drivers.Rotation90 || d.rotation == drivers.Rotation270 {
		return image.Rect(0, 0, NativeHeight, NativeWidth)
	}
	return image.Rect(0, 0, NativeWidth, NativeHeight)
}

// Draw implements display.Drawer. srcPts is aligned with r.Min.
func (d *ILI9341) Draw(r image.Rectangle, src image.Image, srcPts image.Point) error {
	area := r.Intersect(d.Bounds())
	if area.Empty() {
		return nil
	}
	off := srcPts.Sub(r.Min)
	buf := make([]byte, 0, area.Dx()*area.Dy()*2)
	for y := area.Min.Y; y < area.Max.Y; y++ {
		for x := area.Min.X; x < area.Max.X; x++ {
			v := rgb565(src.At(x+off.X, y+off.Y))
			buf = append(buf, byte(v>>8), byte(v))
		}
	}
	if err := d.window(area); err != nil {
		return err
	}
	return d.data(buf)
}

// Sleep turns the panel off and enters sleep mode.
func (d *ILI9341) Sleep() error {
	if err := d.command(cmdDispOff); err != nil {
		return err
	}
	return d.command(cmdSleepIn)
}

// Halt implements conn.Resource.
func (d *ILI9341) Halt() error {
	return d.Sleep()
}

func (d *ILI9341) window(r image.Rectangle) error {
	x0, x1 := r.Min.X, r.Max.X-1
	y0, y1 := r.Min.Y, r.Max.Y-1
	if err := d.command(cmdCASet, byte(x0>>8), byte(x0), byte(x1>>8), byte(x1)); err != nil {
		return err
	}
	if err := d.command(cmdPASet, byte(y0>>8), byte(y0), byte(y1>>8), byte(y1)); err != nil {
		return err
	}
	return d.command(cmdRAMWr)
}

func (d *ILI9341) command(cmd byte, args ...byte) error {
	if err := d.dc.Out(gpio.Low); err != nil {
		return err
	}
	if err := d.c.Tx([]byte{cmd}, nil); err != nil {
		return fmt.Errorf("tft: command %#02x: %w", cmd, err)
	}
	if len(args) == 0 {
		return nil
	}
	return d.data(args)
}

func (d *ILI9341) data(b []byte) error {
	if err := d.dc.Out(gpio.High); err != nil {
		return err
	}
	for len(b) > 0 {
		n := len(b)
		if n > d.maxTx {
			n = d.maxTx
		}
		if err := d.c.Tx(b[:n], nil); err != nil {
			return fmt.Errorf("tft: data: %w", err)
		}
		b = b[n:]
	}
	return nil
}

func rgb565(c color.Color) uint16 {
	r, g, b, _ := c.RGBA()
	return uint16((r & 0xF800) | ((g & 0xFC00) >> 5) | ((b & 0xF800) >> 11))
}

var _ display.Drawer = &ILI9341{}
