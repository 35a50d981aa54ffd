// Package spibus provides the byte-wide serial transports a touch controller
// is driven through.
//
// Both implementations satisfy tinygo.org/x/drivers.SPI, so a driver written
// against that interface runs unchanged on a hardware SPI port or on three
// plain GPIO lines. Chip select is never handled here; the device driver owns
// its CS line and brackets each transaction itself.
package spibus

import (
	"errors"
	"fmt"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"tinygo.org/x/drivers"
)

// DefaultFrequency is a clock the ADS7846 family tolerates at 2.7V.
const DefaultFrequency = physic.MegaHertz

// Hardware drives a periph SPI port in mode 0, 8 bits per word, with the
// port's own CS disabled.
type Hardware struct {
	c spi.Conn
}

// NewHardware connects to port at frequency f. A zero f selects
// DefaultFrequency.
func NewHardware(port spi.Port, f physic.Frequency) (*Hardware, error) {
	if f == 0 {
		f = DefaultFrequency
	}
	c, err := port.Connect(f, spi.Mode0|spi.NoCS, 8)
	if err != nil {
		return nil, fmt.Errorf("spibus: connect: %w", err)
	}
	return &Hardware{c: c}, nil
}

func (h *Hardware) String() string {
	return fmt.Sprintf("spibus.Hardware{%s}", h.c)
}

// Tx implements drivers.SPI. A nil w clocks out zeros while reading r.
func (h *Hardware) Tx(w, r []byte) error {
	if w == nil {
		w = make([]byte, len(r))
	}
	return h.c.Tx(w, r)
}

// Transfer implements drivers.SPI.
func (h *Hardware) Transfer(b byte) (byte, error) {
	var r [1]byte
	if err := h.c.Tx([]byte{b}, r[:]); err != nil {
		return 0, err
	}
	return r[0], nil
}

// BitBang clocks bytes MSB first over GPIO lines in mode 0: MOSI is set
// while SCK is low, MISO is sampled after the rising edge.
type BitBang struct {
	clk  gpio.PinOut
	mosi gpio.PinOut
	miso gpio.PinIn
	// Delay is held after each clock edge. Zero runs as fast as the GPIO
	// driver allows.
	Delay time.Duration
}

// NewBitBang claims the three lines and leaves SCK and MOSI low.
func NewBitBang(clk, mosi gpio.PinOut, miso gpio.PinIn) (*BitBang, error) {
	if clk == nil || mosi == nil || miso == nil {
		return nil, errors.New("spibus: bit-bang requires clk, mosi and miso")
	}
	if err := clk.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("spibus: clk: %w", err)
	}
	if err := mosi.Out(gpio.Low); err != nil {
		return nil, fmt.Errorf("spibus: mosi: %w", err)
	}
	if err := miso.In(gpio.PullNoChange, gpio.NoEdge); err != nil {
		return nil, fmt.Errorf("spibus: miso: %w", err)
	}
	return &BitBang{clk: clk, mosi: mosi, miso: miso}, nil
}

func (b *BitBang) String() string {
	return fmt.Sprintf("spibus.BitBang{%s, %s, %s}", b.clk, b.mosi, b.miso)
}

// Transfer implements drivers.SPI.
func (b *BitBang) Transfer(v byte) (byte, error) {
	var in byte
	for mask := byte(0x80); mask != 0; mask >>= 1 {
		if err := b.mosi.Out(gpio.Level(v&mask != 0)); err != nil {
			return 0, err
		}
		if err := b.clk.Out(gpio.High); err != nil {
			return 0, err
		}
		b.wait()
		if b.miso.Read() == gpio.High {
			in |= mask
		}
		if err := b.clk.Out(gpio.Low); err != nil {
			return 0, err
		}
		b.wait()
	}
	return in, nil
}

// Tx implements drivers.SPI.
func (b *BitBang) Tx(w, r []byte) error {
	n := len(w)
	if len(r) > n {
		n = len(r)
	}
	if w != nil && r != nil && len(w) != len(r) {
		return errors.New("spibus: w and r must be the same length")
	}
	for i := 0; i < n; i++ {
		var out byte
		if w != nil {
			out = w[i]
		}
		in, err := b.Transfer(out)
		if err != nil {
			return err
		}
		if r != nil {
			r[i] = in
		}
	}
	return nil
}

func (b *BitBang) wait() {
	if b.Delay > 0 {
		time.Sleep(b.Delay)
	}
}

var (
	_ drivers.SPI = &Hardware{}
	_ drivers.SPI = &BitBang{}
)
