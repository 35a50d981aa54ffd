package board

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"io"

	"github.com/golang/glog"
	"go.uber.org/multierr"
	"periph.io/x/conn/v3/display"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/i2c/i2creg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/devices/v3/ssd1306/image1bit"
	"periph.io/x/devices/v3/waveshare2in13v4"
	"periph.io/x/host/v3"
	"tinygo.org/x/drivers"

	"github.com/dailypush/tfttouch/ads7846"
	"github.com/dailypush/tfttouch/calib"
	"github.com/dailypush/tfttouch/eeprom"
	"github.com/dailypush/tfttouch/spibus"
	"github.com/dailypush/tfttouch/tft"
)

// Storage is byte addressable calibration storage.
type Storage interface {
	io.ReaderAt
	io.WriterAt
}

// Board holds the opened peripherals. Display is nil when configured as
// "none".
type Board struct {
	Touch   *ads7846.Dev
	Display display.Drawer
	Storage Storage
	Screen  calib.Screen

	closers []func() error
}

// Open initialises the host drivers and opens everything c describes.
func Open(c Config) (b *Board, err error) {
	if _, err := host.Init(); err != nil {
		return nil, err
	}
	b = &Board{}
	defer func() {
		if err != nil {
			err = multierr.Append(err, b.Close())
			b = nil
		}
	}()
	if b.Touch, err = b.openTouch(c); err != nil {
		return b, err
	}
	b.Touch.SetOrientation(c.Orientation)
	if b.Display, err = b.openDisplay(c); err != nil {
		return b, err
	}
	if b.Storage, err = b.openStorage(c); err != nil {
		return b, err
	}
	b.Screen = calib.DefaultScreen
	if b.Display != nil {
		r := b.Display.Bounds()
		b.Screen = calib.Screen{Width: r.Dx(), Height: r.Dy()}
	}
	b.Screen.Orientation = b.Touch.Orientation()
	glog.Infof("board: touch=%s display=%v storage=%s", b.Touch, b.Display, c.Storage)
	return b, nil
}

// Close releases everything in reverse order of opening.
func (b *Board) Close() error {
	var err error
	for i := len(b.closers) - 1; i >= 0; i-- {
		err = multierr.Append(err, b.closers[i]())
	}
	b.closers = nil
	return err
}

func (b *Board) onClose(f func() error) {
	b.closers = append(b.closers, f)
}

func pin(name string) (gpio.PinIO, error) {
	p := gpioreg.ByName(name)
	if p == nil {
		return nil, fmt.Errorf("board: no gpio pin %q", name)
	}
	return p, nil
}

func (b *Board) openTouch(c Config) (*ads7846.Dev, error) {
	cs, err := pin(c.CS)
	if err != nil {
		return nil, err
	}
	var bus drivers.SPI
	if c.BitBang {
		clk, err := pin(c.CLK)
		if err != nil {
			return nil, err
		}
		mosi, err := pin(c.MOSI)
		if err != nil {
			return nil, err
		}
		miso, err := pin(c.MISO)
		if err != nil {
			return nil, err
		}
		if bus, err = spibus.NewBitBang(clk, mosi, miso); err != nil {
			return nil, err
		}
	} else {
		port, err := spireg.Open(c.TouchPort)
		if err != nil {
			return nil, fmt.Errorf("board: touch spi %q: %w", c.TouchPort, err)
		}
		b.onClose(port.Close)
		if bus, err = spibus.NewHardware(port, physic.Frequency(c.TouchHz)*physic.Hertz); err != nil {
			return nil, err
		}
	}
	opts := ads7846.DefaultOpts
	opts.MinPressure = c.MinPressure
	if c.Resolution == 12 {
		opts.Resolution = ads7846.Resolution12
	}
	if c.IRQ != "" {
		if opts.IRQ, err = pin(c.IRQ); err != nil {
			return nil, err
		}
	}
	d, err := ads7846.New(bus, cs, &opts)
	if err != nil {
		return nil, err
	}
	b.onClose(d.Halt)
	return d, nil
}

func (b *Board) openDisplay(c Config) (display.Drawer, error) {
	switch c.Display {
	case "none":
		return nil, nil
	case "epd2in13v4":
		port, err := spireg.Open(c.DisplayPort)
		if err != nil {
			return nil, fmt.Errorf("board: display spi %q: %w", c.DisplayPort, err)
		}
		b.onClose(port.Close)
		opts := waveshare2in13v4.EPD2in13v4
		dev, err := waveshare2in13v4.NewHat(port, &opts)
		if err != nil {
			return nil, err
		}
		if err := dev.Init(); err != nil {
			return nil, err
		}
		b.onClose(dev.Halt)
		return &epaper{dev: dev}, nil
	default:
		port, err := spireg.Open(c.DisplayPort)
		if err != nil {
			return nil, fmt.Errorf("board: display spi %q: %w", c.DisplayPort, err)
		}
		b.onClose(port.Close)
		dc, err := pin(c.DC)
		if err != nil {
			return nil, err
		}
		var rst gpio.PinOut
		if c.RST != "" {
			if rst, err = pin(c.RST); err != nil {
				return nil, err
			}
		}
		dev, err := tft.NewILI9341(port, dc, rst, &tft.DefaultOpts)
		if err != nil {
			return nil, err
		}
		if err := dev.Init(); err != nil {
			return nil, err
		}
		b.onClose(dev.Halt)
		return dev, nil
	}
}

func (b *Board) openStorage(c Config) (Storage, error) {
	if c.Storage == "eeprom" {
		bus, err := i2creg.Open(c.I2CBus)
		if err != nil {
			return nil, fmt.Errorf("board: i2c %q: %w", c.I2CBus, err)
		}
		b.onClose(bus.Close)
		opts := eeprom.DefaultOpts
		opts.Addr = c.EEPROMAddr
		return eeprom.NewAT24C(bus, &opts)
	}
	f, err := eeprom.OpenFile(c.StoragePath, eeprom.DefaultOpts.Size)
	if err != nil {
		return nil, err
	}
	b.onClose(f.Close)
	return f, nil
}

// epaper adapts the 2.13" e-paper HAT to full colour frames and leaves the
// panel asleep between updates.
type epaper struct {
	dev *waveshare2in13v4.Dev
}

func (e *epaper) String() string {
	return e.dev.String()
}

func (e *epaper) Halt() error {
	return e.dev.Halt()
}

func (e *epaper) ColorModel() color.Model {
	return image1bit.BitModel
}

func (e *epaper) Bounds() image.Rectangle {
	return e.dev.Bounds()
}

func (e *epaper) Draw(r image.Rectangle, src image.Image, sp image.Point) error {
	img := image1bit.NewVerticalLSB(e.dev.Bounds())
	draw.Draw(img, r, src, sp, draw.Src)
	if err := e.dev.Init(); err != nil {
		return err
	}
	if err := e.dev.Draw(img.Bounds(), img, image.Point{}); err != nil {
		return err
	}
	return e.dev.Sleep()
}
